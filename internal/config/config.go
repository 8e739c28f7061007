package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Vision     VisionConfig     `yaml:"vision"`
	Matching   MatchingConfig   `yaml:"matching"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	QualityFloor       float64 `yaml:"quality_floor"`
}

// MatchingConfig holds the boot-time similarity thresholds. The running
// service keeps the live values in a match.Settings holder so operators can
// adjust them over the API without a restart.
type MatchingConfig struct {
	RecognitionThreshold float64 `yaml:"recognition_threshold"`
	DuplicateThreshold   float64 `yaml:"duplicate_threshold"`
	// LockTimeoutMS bounds how long an enrollment waits for the
	// per-region critical section before reporting a conflict.
	LockTimeoutMS int `yaml:"lock_timeout_ms"`
}

type AttendanceConfig struct {
	// Timezone is the fixed reporting timezone used to derive the
	// calendar day for attendance records.
	Timezone string `yaml:"timezone"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.QualityFloor == 0 {
		cfg.Vision.QualityFloor = 0.45
	}
	if cfg.Matching.RecognitionThreshold == 0 {
		cfg.Matching.RecognitionThreshold = 0.35
	}
	if cfg.Matching.DuplicateThreshold == 0 {
		cfg.Matching.DuplicateThreshold = 0.80
	}
	if cfg.Matching.LockTimeoutMS == 0 {
		cfg.Matching.LockTimeoutMS = 5000
	}
	if cfg.Attendance.Timezone == "" {
		cfg.Attendance.Timezone = "Asia/Kolkata"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FR_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FR_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FR_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FR_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FR_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FR_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FR_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FR_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FR_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FR_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FR_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FR_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("FR_QUALITY_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Vision.QualityFloor = f
		}
	}
	if v := os.Getenv("FR_RECOGNITION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.RecognitionThreshold = f
		}
	}
	if v := os.Getenv("FR_DUPLICATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.DuplicateThreshold = f
		}
	}
	if v := os.Getenv("FR_ATTENDANCE_TZ"); v != "" {
		cfg.Attendance.Timezone = v
	}
}
