package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	Reference ReferenceConfig
	Pipeline  PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// OCRConfig holds text-acquisition configuration. All binaries are
// resolvable names or absolute paths; nothing is hardcoded per platform.
type OCRConfig struct {
	Pdftotext  string
	Pdftoppm   string
	Pdftocairo string
	Tesseract  string
	Language   string // tesseract language pack(s), e.g. "ind+eng"
	DPI        int
	Timeout    time.Duration // per-file acquisition bound
}

// ReferenceConfig points at the ICD coding reference workbooks.
type ReferenceConfig struct {
	ICD10Path string
	ICD9Path  string
}

// PipelineConfig holds background-queue and validation-policy configuration.
type PipelineConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	RequiredPages  int  // structural pre-check page count per claim PDF
	Strict         bool // escalate every mandatory-field miss to critical
	UploadDir      string
	MaxUploadBytes int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OCR: OCRConfig{
			Pdftotext:  getEnv("OCR_PDFTOTEXT", "pdftotext"),
			Pdftoppm:   getEnv("OCR_PDFTOPPM", "pdftoppm"),
			Pdftocairo: getEnv("OCR_PDFTOCAIRO", "pdftocairo"),
			Tesseract:  getEnv("OCR_TESSERACT", "tesseract"),
			Language:   getEnv("OCR_LANGUAGE", "ind+eng"),
			DPI:        getEnvAsInt("OCR_DPI", 300),
			Timeout:    getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
		},
		Reference: ReferenceConfig{
			ICD10Path: getEnv("ICD10_PATH", ""),
			ICD9Path:  getEnv("ICD9_PATH", ""),
		},
		Pipeline: PipelineConfig{
			Workers:        getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:      getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PIPELINE_PROCESS_TIMEOUT", 3*time.Minute),
			RequiredPages:  getEnvAsInt("CLAIM_REQUIRED_PAGES", 3),
			Strict:         getEnvAsBool("CLAIM_STRICT_VALIDATION", false),
			UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Reference.ICD10Path == "" {
		return NewAppError("CONFIG_ERROR", "ICD10_PATH is required", ErrInvalidInput)
	}
	if c.Reference.ICD9Path == "" {
		return NewAppError("CONFIG_ERROR", "ICD9_PATH is required", ErrInvalidInput)
	}
	if c.Pipeline.RequiredPages <= 0 {
		return NewAppError("CONFIG_ERROR", "CLAIM_REQUIRED_PAGES must be positive", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
