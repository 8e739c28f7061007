package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kalaburagitech/face-recognition-sub000/internal/attendance"
	"github.com/kalaburagitech/face-recognition-sub000/internal/enroll"
	"github.com/kalaburagitech/face-recognition-sub000/internal/match"
)

// Timestamps are rendered with their real offset; attendance instants are
// in the configured reporting timezone, not UTC.
const timeFormat = time.RFC3339

// writeEnrollError maps enrollment pipeline errors onto HTTP statuses.
// Image problems are 422, duplicate and concurrency rejections are 409.
func writeEnrollError(c *gin.Context, err error) {
	var dup *enroll.DuplicateError
	if errors.As(err, &dup) {
		c.JSON(http.StatusConflict, gin.H{
			"error":       "duplicate identity",
			"identity_id": dup.IdentityID,
			"name":        dup.Name,
			"similarity":  dup.Similarity,
			"score":       match.ScorePercent(dup.Similarity),
		})
		return
	}

	var mismatch *enroll.BatchMismatchError
	if errors.As(err, &mismatch) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	var lowQ *enroll.LowQualityError
	if errors.As(err, &lowQ) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	switch {
	case errors.Is(err, enroll.ErrNoFaceDetected), errors.Is(err, enroll.ErrMultipleFaces):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, enroll.ErrEnrollmentConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func writeAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrIdentityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNotCheckedIn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
