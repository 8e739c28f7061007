package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/kalaburagitech/face-recognition-sub000/internal/analytics"
	"github.com/kalaburagitech/face-recognition-sub000/internal/api"
	"github.com/kalaburagitech/face-recognition-sub000/internal/api/ws"
	"github.com/kalaburagitech/face-recognition-sub000/internal/attendance"
	"github.com/kalaburagitech/face-recognition-sub000/internal/config"
	"github.com/kalaburagitech/face-recognition-sub000/internal/enroll"
	"github.com/kalaburagitech/face-recognition-sub000/internal/match"
	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
	"github.com/kalaburagitech/face-recognition-sub000/internal/observability"
	"github.com/kalaburagitech/face-recognition-sub000/internal/queue"
	"github.com/kalaburagitech/face-recognition-sub000/internal/storage"
	"github.com/kalaburagitech/face-recognition-sub000/internal/vision"
	"github.com/kalaburagitech/face-recognition-sub000/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting attendance API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Relay attendance events from JetStream to WebSocket clients.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "api-events", func(ctx context.Context, msg jetstream.Msg) error {
		var ev models.AnalyticsEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			return err
		}
		hub.BroadcastEvent(&dto.WSEvent{
			Type: string(ev.Kind),
			Data: msg.Data(),
		})
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	// ONNX Runtime and the detection/embedding models. The service is an
	// enrollment and recognition API first, so a missing runtime is fatal.
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("onnx runtime init", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	provider, err := vision.NewONNXProvider(cfg.Vision)
	if err != nil {
		slog.Error("vision provider init", "error", err)
		os.Exit(1)
	}
	defer provider.Close()

	// Matching core
	settings, err := match.NewSettings(match.Thresholds{
		Recognition: cfg.Matching.RecognitionThreshold,
		Duplicate:   cfg.Matching.DuplicateThreshold,
	})
	if err != nil {
		slog.Error("invalid matching thresholds", "error", err)
		os.Exit(1)
	}
	guard := match.NewGuard(db, settings)
	recognizer := match.NewRecognizer(db, settings)

	recorder := analytics.NewRecorder(db, producer)

	enroller := enroll.New(provider, guard, db, db, enroll.Options{
		QualityFloor: cfg.Vision.QualityFloor,
		LockTimeout:  time.Duration(cfg.Matching.LockTimeoutMS) * time.Millisecond,
		Images:       minioStore,
		DBLock:       db,
		Recorder:     recorder,
	})

	tracker, err := attendance.NewTracker(db, cfg.Attendance.Timezone, recorder)
	if err != nil {
		slog.Error("attendance tracker init", "error", err)
		os.Exit(1)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:     cfg.Server.APIKey,
		DB:         db,
		MinIO:      minioStore,
		Producer:   producer,
		Hub:        hub,
		Provider:   provider,
		Enroller:   enroller,
		Recognizer: recognizer,
		Tracker:    tracker,
		Settings:   settings,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
