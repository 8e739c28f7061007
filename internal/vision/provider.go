// Package vision provides the embedding provider: image in, zero or more
// face observations out. The orchestrators consume the Provider interface
// and never touch the models directly.
package vision

import (
	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

// EmbeddingDim is the fixed, globally agreed embedding dimension.
const EmbeddingDim = 512

// Provider converts an image into face observations. Implementations must
// return L2-normalized embeddings of Dim() length.
type Provider interface {
	Detect(imageData []byte) ([]models.FaceObservation, error)
	Dim() int
}
