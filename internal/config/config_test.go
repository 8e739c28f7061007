package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  name: attendance
  user: app
  password: secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default db port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Matching.RecognitionThreshold != 0.35 {
		t.Errorf("expected default recognition threshold 0.35, got %v", cfg.Matching.RecognitionThreshold)
	}
	if cfg.Matching.DuplicateThreshold != 0.80 {
		t.Errorf("expected default duplicate threshold 0.80, got %v", cfg.Matching.DuplicateThreshold)
	}
	if cfg.Matching.LockTimeoutMS != 5000 {
		t.Errorf("expected default lock timeout 5000ms, got %d", cfg.Matching.LockTimeoutMS)
	}
	if cfg.Vision.QualityFloor != 0.45 {
		t.Errorf("expected default quality floor 0.45, got %v", cfg.Vision.QualityFloor)
	}
	if cfg.Attendance.Timezone != "Asia/Kolkata" {
		t.Errorf("expected default timezone Asia/Kolkata, got %s", cfg.Attendance.Timezone)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadYAMLValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
matching:
  recognition_threshold: 0.40
  duplicate_threshold: 0.85
attendance:
  timezone: UTC
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Matching.DuplicateThreshold != 0.85 {
		t.Errorf("expected duplicate threshold 0.85, got %v", cfg.Matching.DuplicateThreshold)
	}
	if cfg.Attendance.Timezone != "UTC" {
		t.Errorf("expected timezone UTC, got %s", cfg.Attendance.Timezone)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  host: filehost
matching:
  duplicate_threshold: 0.80
`)

	t.Setenv("FR_DB_HOST", "envhost")
	t.Setenv("FR_DUPLICATE_THRESHOLD", "0.90")
	t.Setenv("FR_ATTENDANCE_TZ", "UTC")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database.Host != "envhost" {
		t.Errorf("expected env override envhost, got %s", cfg.Database.Host)
	}
	if cfg.Matching.DuplicateThreshold != 0.90 {
		t.Errorf("expected env override 0.90, got %v", cfg.Matching.DuplicateThreshold)
	}
	if cfg.Attendance.Timezone != "UTC" {
		t.Errorf("expected env override UTC, got %s", cfg.Attendance.Timezone)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "att", User: "u", Password: "p"}
	want := "postgres://u:p@db:5433/att?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
