package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kalaburagitech/face-recognition-sub000/internal/match"
	"github.com/kalaburagitech/face-recognition-sub000/internal/vision"
	"github.com/kalaburagitech/face-recognition-sub000/pkg/dto"
)

type RecognizeHandler struct {
	provider   vision.Provider
	recognizer *match.Recognizer
}

func NewRecognizeHandler(provider vision.Provider, recognizer *match.Recognizer) *RecognizeHandler {
	return &RecognizeHandler{provider: provider, recognizer: recognizer}
}

// Recognize detects every face in the uploaded image and ranks gallery
// candidates for each. Read-only: never writes records or attendance.
func (h *RecognizeHandler) Recognize(c *gin.Context) {
	region := c.PostForm("region")
	if region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}

	topK := 0
	if v := c.PostForm("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid top_k"})
			return
		}
		topK = n
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	observations, err := h.provider.Detect(imageData)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "detect faces: " + err.Error()})
		return
	}

	report, err := h.recognizer.Recognize(c.Request.Context(), region, observations, topK)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	faces := make([]dto.RecognizeFace, 0, len(report.Faces))
	for _, f := range report.Faces {
		matches := make([]dto.RecognizeCandidate, 0, len(f.Matches))
		for _, m := range f.Matches {
			matches = append(matches, dto.RecognizeCandidate{
				IdentityID: m.IdentityID,
				Name:       m.Name,
				Similarity: m.Similarity,
				Score:      m.Score,
				Distance:   m.Distance,
			})
		}
		faces = append(faces, dto.RecognizeFace{
			BBox:       f.BBox,
			Confidence: f.Confidence,
			Quality:    f.Quality,
			Matches:    matches,
		})
	}

	c.JSON(http.StatusOK, dto.RecognizeResponse{
		FacesDetected: report.FacesDetected,
		Faces:         faces,
	})
}
