package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kalaburagitech/face-recognition-sub000/internal/attendance"
	"github.com/kalaburagitech/face-recognition-sub000/pkg/dto"
)

type AttendanceHandler struct {
	tracker *attendance.Tracker
}

func NewAttendanceHandler(tracker *attendance.Tracker) *AttendanceHandler {
	return &AttendanceHandler{tracker: tracker}
}

func attendanceResponse(res *attendance.Result) dto.AttendanceResponse {
	resp := dto.AttendanceResponse{
		IdentityID:       res.Identity.ID,
		Name:             res.Identity.Name,
		AlreadyMarked:    res.AlreadyMarked,
		AlreadyCompleted: res.AlreadyCompleted,
	}
	if res.Record != nil {
		resp.Day = res.Record.Day
		resp.Status = string(res.Record.Status)
		if res.Record.CheckInAt != nil {
			resp.CheckInAt = res.Record.CheckInAt.Format(timeFormat)
		}
		if res.Record.CheckOutAt != nil {
			resp.CheckOutAt = res.Record.CheckOutAt.Format(timeFormat)
		}
	}
	return resp
}

// CheckIn confirms today's arrival. A repeat confirmation is a successful
// no-op with already_marked set.
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req dto.AttendanceMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.tracker.CheckIn(c.Request.Context(), req.Region, req.Identity)
	if err != nil {
		writeAttendanceError(c, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyMarked {
		status = http.StatusOK
	}
	c.JSON(status, attendanceResponse(res))
}

// CheckOut closes today's attendance. Requires a prior check-in.
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	var req dto.AttendanceMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.tracker.CheckOut(c.Request.Context(), req.Region, req.Identity)
	if err != nil {
		writeAttendanceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attendanceResponse(res))
}

func (h *AttendanceHandler) Status(c *gin.Context) {
	var q dto.AttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Region == "" || q.Identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region and identity are required"})
		return
	}

	state, rec, err := h.tracker.Status(c.Request.Context(), q.Region, q.Identity, q.Day)
	if err != nil {
		writeAttendanceError(c, err)
		return
	}

	day := q.Day
	if day == "" {
		day = h.tracker.Today()
	}

	resp := dto.AttendanceStatusResponse{Day: day, Status: string(state)}
	if rec != nil {
		resp.IdentityID = rec.IdentityID
		resp.Day = rec.Day
		if rec.CheckInAt != nil {
			resp.CheckInAt = rec.CheckInAt.Format(timeFormat)
		}
		if rec.CheckOutAt != nil {
			resp.CheckOutAt = rec.CheckOutAt.Format(timeFormat)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// List returns a region's attendance sheet for one day, default today.
func (h *AttendanceHandler) List(c *gin.Context) {
	region := c.Query("region")
	if region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}
	day := c.Query("day")
	if day == "" {
		day = h.tracker.Today()
	}

	entries, err := h.tracker.ListDay(c.Request.Context(), region, day)
	if err != nil {
		writeAttendanceError(c, err)
		return
	}

	resp := make([]dto.AttendanceResponse, 0, len(entries))
	for _, e := range entries {
		item := dto.AttendanceResponse{
			IdentityID: e.Identity.ID,
			Name:       e.Identity.Name,
			Day:        e.Record.Day,
			Status:     string(e.Record.Status),
		}
		if e.Record.CheckInAt != nil {
			item.CheckInAt = e.Record.CheckInAt.Format(timeFormat)
		}
		if e.Record.CheckOutAt != nil {
			item.CheckOutAt = e.Record.CheckOutAt.Format(timeFormat)
		}
		resp = append(resp, item)
	}

	c.JSON(http.StatusOK, dto.AttendanceListResponse{
		Day:     day,
		Region:  region,
		Entries: resp,
		Total:   len(resp),
	})
}

// Delete removes one day's record so the day can be re-marked. Admin
// correction path.
func (h *AttendanceHandler) Delete(c *gin.Context) {
	var q dto.AttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Region == "" || q.Identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region and identity are required"})
		return
	}
	day := q.Day
	if day == "" {
		day = h.tracker.Today()
	}

	if err := h.tracker.Delete(c.Request.Context(), q.Region, q.Identity, day); err != nil {
		writeAttendanceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "day": day})
}
