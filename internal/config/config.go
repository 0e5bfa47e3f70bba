package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed calibrations.yaml
var calibrationsYAML []byte

// DefaultExtractorModel is the dlib ResNet model used by the python face_recognition package.
const DefaultExtractorModel = "dlib_face_recognition_resnet_model_v1"

type Config struct {
	Database     DatabaseConfig
	Extractor    ExtractorConfig
	Web          WebConfig
	Events       EventsConfig
	Archive      ArchiveConfig
	Report       ReportConfig
	Log          LogConfig
	Calibrations CalibrationsConfig
}

type DatabaseConfig struct {
	URL          string // postgres://, mysql:// or sqlite:// connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ExtractorConfig struct {
	URL          string        // face embedding sidecar, defaults to http://localhost:8000
	Model        string        // key into calibrations.yaml
	Timeout      time.Duration // per-request timeout (default 30s)
	Rate         float64       // requests per second, 0 disables throttling
	Burst        int           // token bucket size (default 4)
	MaxImageSize int           // longest side in pixels after normalization (default 1600)
	ModelsDir    string        // dlib model directory for the in-process extractor
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type EventsConfig struct {
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
}

type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3-compatible storage
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether enrollment images should be archived.
func (c *ArchiveConfig) Enabled() bool {
	return c.Bucket != ""
}

type ReportConfig struct {
	Schedule string // cron expression, empty disables the daily report
}

type LogConfig struct {
	Level string
	File  string
	Env   string
}

type CalibrationsConfig struct {
	Models map[string]Calibration `yaml:"models"`
}

// Calibration describes an extractor model's embedding space.
// Tolerance is tied to the model and is never configured on its own.
type Calibration struct {
	Dim       int     `yaml:"dim"`
	Tolerance float64 `yaml:"tolerance"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a non-negative float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a Go duration string such as "30s".
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var calibrations CalibrationsConfig
	if err := yaml.Unmarshal(calibrationsYAML, &calibrations); err != nil {
		// Embedded file, only a broken build can get here.
		panic("failed to unmarshal embedded calibrations.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          envString("DATABASE_URL", "sqlite://attendance.db"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Extractor: ExtractorConfig{
			URL:          os.Getenv("EXTRACTOR_URL"),
			Model:        envString("EXTRACTOR_MODEL", DefaultExtractorModel),
			Timeout:      envDuration("EXTRACTOR_TIMEOUT", 30*time.Second),
			Rate:         envFloat("EXTRACTOR_RATE", 0),
			Burst:        envInt("EXTRACTOR_BURST", 4),
			MaxImageSize: envInt("EXTRACTOR_MAX_IMAGE_SIZE", 1600),
			ModelsDir:    os.Getenv("EXTRACTOR_MODELS_DIR"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 5000),
			AllowedOrigins: splitList(os.Getenv("WEB_ALLOWED_ORIGINS")),
		},
		Events: EventsConfig{
			RedisAddress:  os.Getenv("REDIS_ADDRESS"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envInt("REDIS_DB", 0),
			RedisChannel:  envString("REDIS_CHANNEL", "attendance.events"),
		},
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("ARCHIVE_BUCKET"),
			Region:          envString("AWS_REGION", "us-east-1"),
			Endpoint:        os.Getenv("AWS_ENDPOINT"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		Report: ReportConfig{
			Schedule: os.Getenv("REPORT_SCHEDULE"),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
			Env:   os.Getenv("APP_ENV"),
		},
		Calibrations: calibrations,
	}
}

// Calibration returns the calibration of the configured extractor model.
func (c *Config) Calibration() (Calibration, error) {
	cal, ok := c.Calibrations.Models[c.Extractor.Model]
	if !ok {
		return Calibration{}, fmt.Errorf("unknown extractor model %q", c.Extractor.Model)
	}
	if cal.Dim <= 0 || cal.Tolerance <= 0 {
		return Calibration{}, fmt.Errorf("invalid calibration for extractor model %q", c.Extractor.Model)
	}
	return cal, nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
