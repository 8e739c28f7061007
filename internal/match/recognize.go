package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/gallery"
	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
	"github.com/kalaburagitech/face-recognition-sub000/internal/observability"
)

const defaultTopK = 5

// Candidate is one gallery match for a detected face. Score is the cosine
// similarity expressed as a [0,100] percentage; Distance is the
// complementary cosine distance.
type Candidate struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Name       string    `json:"name"`
	Similarity float64   `json:"similarity"`
	Score      float64   `json:"score"`
	Distance   float64   `json:"distance"`
	Quality    float32   `json:"quality"`
}

// FaceResult is the recognition outcome for one detected face. Matches is
// empty when nothing clears the recognition threshold.
type FaceResult struct {
	BBox       [4]float32  `json:"bbox"`
	Confidence float32     `json:"confidence"`
	Quality    float32     `json:"quality"`
	Matches    []Candidate `json:"matches"`
}

// Report is the result of recognizing all faces in one image.
// FacesDetected counts detections even when none of them matched.
type Report struct {
	FacesDetected int          `json:"faces_detected"`
	Faces         []FaceResult `json:"faces"`
}

// Recognizer ranks gallery matches for detected faces. It never mutates
// gallery state.
type Recognizer struct {
	gallery  gallery.Store
	settings *Settings
}

func NewRecognizer(g gallery.Store, settings *Settings) *Recognizer {
	return &Recognizer{gallery: g, settings: settings}
}

// Recognize queries the region's gallery for each observation and returns
// matches at or above the recognition threshold, ordered by the gallery's
// deterministic ranking. A face with no qualifying match contributes an
// empty Matches list, not a placeholder entry.
func (r *Recognizer) Recognize(ctx context.Context, region string, observations []models.FaceObservation, topK int) (*Report, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	threshold := r.settings.Current().Recognition

	report := &Report{FacesDetected: len(observations)}
	for _, obs := range observations {
		start := time.Now()
		matches, err := r.gallery.Nearest(ctx, region, obs.Embedding, topK, nil)
		observability.GallerySearchDuration.WithLabelValues(region).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("gallery nearest: %w", err)
		}

		face := FaceResult{
			BBox:       obs.BBox,
			Confidence: obs.Confidence,
			Quality:    obs.Quality,
			Matches:    make([]Candidate, 0, len(matches)),
		}
		for _, m := range matches {
			if m.Similarity < threshold {
				continue
			}
			face.Matches = append(face.Matches, Candidate{
				IdentityID: m.IdentityID,
				Name:       m.Name,
				Similarity: m.Similarity,
				Score:      ScorePercent(m.Similarity),
				Distance:   1 - m.Similarity,
				Quality:    m.Quality,
			})
		}
		if len(face.Matches) > 0 {
			observability.Recognitions.WithLabelValues(region).Inc()
		}
		report.Faces = append(report.Faces, face)
	}
	return report, nil
}

// ScorePercent converts a cosine similarity to a [0,100] display score.
// Negative similarity clamps to zero.
func ScorePercent(similarity float64) float64 {
	if similarity <= 0 {
		return 0
	}
	if similarity >= 1 {
		return 100
	}
	return similarity * 100
}
