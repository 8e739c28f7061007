package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalaburagitech/face-recognition-sub000/internal/api/handlers"
	"github.com/kalaburagitech/face-recognition-sub000/internal/api/ws"
	"github.com/kalaburagitech/face-recognition-sub000/internal/attendance"
	"github.com/kalaburagitech/face-recognition-sub000/internal/auth"
	"github.com/kalaburagitech/face-recognition-sub000/internal/enroll"
	"github.com/kalaburagitech/face-recognition-sub000/internal/match"
	"github.com/kalaburagitech/face-recognition-sub000/internal/queue"
	"github.com/kalaburagitech/face-recognition-sub000/internal/storage"
	"github.com/kalaburagitech/face-recognition-sub000/internal/vision"
)

type RouterConfig struct {
	APIKey     string
	DB         *storage.PostgresStore
	MinIO      *storage.MinIOStore
	Producer   *queue.Producer
	Hub        *ws.Hub
	Provider   vision.Provider
	Enroller   *enroll.Enroller
	Recognizer *match.Recognizer
	Tracker    *attendance.Tracker
	Settings   *match.Settings
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket attendance feed
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Identities & faces
	identityH := handlers.NewIdentityHandler(cfg.DB, cfg.MinIO)
	v1.POST("/identities", identityH.Create)
	v1.GET("/identities", identityH.List)
	v1.GET("/identities/:id", identityH.Get)
	v1.PUT("/identities/:id", identityH.Update)
	v1.DELETE("/identities/:id", identityH.Delete)
	v1.GET("/identities/:id/faces", identityH.ListFaces)
	v1.DELETE("/identities/:id/faces/:faceId", identityH.DeleteFace)

	// Enrollment
	enrollH := handlers.NewEnrollHandler(cfg.Enroller)
	v1.POST("/enroll", enrollH.Enroll)
	v1.POST("/enroll/batch", enrollH.EnrollBatch)
	v1.POST("/duplicate-check", enrollH.DuplicateCheck)

	// Recognition
	recognizeH := handlers.NewRecognizeHandler(cfg.Provider, cfg.Recognizer)
	v1.POST("/recognize", recognizeH.Recognize)

	// Attendance
	attendanceH := handlers.NewAttendanceHandler(cfg.Tracker)
	v1.POST("/attendance/check-in", attendanceH.CheckIn)
	v1.POST("/attendance/check-out", attendanceH.CheckOut)
	v1.GET("/attendance/status", attendanceH.Status)
	v1.GET("/attendance", attendanceH.List)
	v1.DELETE("/attendance", attendanceH.Delete)

	// Thresholds
	thresholdH := handlers.NewThresholdHandler(cfg.Settings)
	v1.GET("/thresholds", thresholdH.Get)
	v1.PUT("/thresholds", thresholdH.Update)

	// Analytics events
	eventH := handlers.NewEventHandler(cfg.DB)
	v1.GET("/analytics/events", eventH.List)

	return r
}
