package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kalaburagitech/face-recognition-sub000/internal/match"
	"github.com/kalaburagitech/face-recognition-sub000/pkg/dto"
)

type ThresholdHandler struct {
	settings *match.Settings
}

func NewThresholdHandler(settings *match.Settings) *ThresholdHandler {
	return &ThresholdHandler{settings: settings}
}

func (h *ThresholdHandler) Get(c *gin.Context) {
	t := h.settings.Current()
	c.JSON(http.StatusOK, dto.ThresholdsResponse{
		Recognition: t.Recognition,
		Duplicate:   t.Duplicate,
	})
}

// Update changes one or both thresholds. Validation is atomic: an invalid
// pair leaves the current values untouched.
func (h *ThresholdHandler) Update(c *gin.Context) {
	var req dto.UpdateThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Recognition == nil && req.Duplicate == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	t := h.settings.Current()
	if req.Recognition != nil {
		t.Recognition = *req.Recognition
	}
	if req.Duplicate != nil {
		t.Duplicate = *req.Duplicate
	}

	if err := h.settings.Update(t); err != nil {
		var invalid *match.InvalidThresholdError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ThresholdsResponse{
		Recognition: t.Recognition,
		Duplicate:   t.Duplicate,
	})
}
