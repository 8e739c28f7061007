package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kalaburagitech/face-recognition-sub000/internal/storage"
	"github.com/kalaburagitech/face-recognition-sub000/pkg/dto"
)

type EventHandler struct {
	db *storage.PostgresStore
}

func NewEventHandler(db *storage.PostgresStore) *EventHandler {
	return &EventHandler{db: db}
}

func parseEventTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	// Accept a day or a full timestamp.
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns analytics events for a region, newest first.
func (h *EventHandler) List(c *gin.Context) {
	var q dto.EventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}

	from, err := parseEventTime(q.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return
	}
	to, err := parseEventTime(q.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return
	}

	events, err := h.db.ListAnalyticsEvents(c.Request.Context(), q.Region, from, to, q.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, dto.EventResponse{
			ID:         ev.ID,
			IdentityID: ev.IdentityID,
			Region:     ev.Region,
			Kind:       string(ev.Kind),
			OccurredAt: ev.OccurredAt.Format(timeFormat),
			Metadata:   ev.Metadata,
		})
	}

	c.JSON(http.StatusOK, dto.EventListResponse{Events: resp, Total: len(resp)})
}
