package models

// FaceObservation is one detected face in an image as reported by the
// embedding provider: bounding box in pixel coordinates, detection
// confidence, a quality score in [0,1], and an L2-normalized embedding.
type FaceObservation struct {
	BBox       [4]float32 `json:"bbox"` // x1, y1, x2, y2
	Confidence float32    `json:"confidence"`
	Quality    float32    `json:"quality"`
	Embedding  []float32  `json:"embedding"`
}
