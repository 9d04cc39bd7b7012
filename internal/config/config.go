/**
 * Configuration for the ID photo extractor
 *
 * Loads configuration from IDPHOTO_* environment variables. The command
 * loads an optional .env file first, so the same keys may live there.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Detector backends
const (
	DetectorEdges   = "edges"
	DetectorHTTP    = "http"
	DetectorCascade = "cascade"
)

// Config holds extractor configuration
type Config struct {
	// Logging
	LogLevel string

	// Text recognition
	OCRLanguage    string
	OCRMaxSide     int
	TessdataPrefix string

	// Rasterization of PDF pages
	RasterScale float64

	// Region detector backend and its settings
	Detector     string
	InferenceURL string
	CascadePath  string

	// Preview and export
	PreviewMaxWidth int
	OutputDir       string

	// Largest accepted input file in bytes
	MaxFileSize int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		LogLevel:        getEnvOrDefault("IDPHOTO_LOG_LEVEL", "info"),
		OCRLanguage:     getEnvOrDefault("IDPHOTO_OCR_LANGUAGE", "eng"),
		OCRMaxSide:      getEnvAsIntOrDefault("IDPHOTO_OCR_MAX_SIDE", 1500),
		TessdataPrefix:  getEnvOrDefault("IDPHOTO_TESSDATA_PREFIX", ""),
		RasterScale:     getEnvAsFloatOrDefault("IDPHOTO_RASTER_SCALE", 3.0),
		Detector:        getEnvOrDefault("IDPHOTO_DETECTOR", DetectorEdges),
		InferenceURL:    getEnvOrDefault("IDPHOTO_INFERENCE_URL", "http://localhost:5000/predict"),
		CascadePath:     getEnvOrDefault("IDPHOTO_CASCADE_PATH", "haarcascade_frontalface_default.xml"),
		PreviewMaxWidth: getEnvAsIntOrDefault("IDPHOTO_PREVIEW_MAX_WIDTH", 700),
		OutputDir:       getEnvOrDefault("IDPHOTO_OUTPUT_DIR", "."),
		MaxFileSize:     getEnvAsInt64OrDefault("IDPHOTO_MAX_FILE_SIZE", 104857600), // 100MB
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.OCRLanguage == "" {
		return fmt.Errorf("IDPHOTO_OCR_LANGUAGE is required")
	}

	if c.OCRMaxSide < 100 || c.OCRMaxSide > 10000 {
		return fmt.Errorf("IDPHOTO_OCR_MAX_SIDE must be between 100 and 10000, got %d", c.OCRMaxSide)
	}

	if c.RasterScale <= 0 || c.RasterScale > 10 {
		return fmt.Errorf("IDPHOTO_RASTER_SCALE must be in (0, 10], got %g", c.RasterScale)
	}

	switch c.Detector {
	case DetectorEdges, DetectorCascade:
	case DetectorHTTP:
		if c.InferenceURL == "" {
			return fmt.Errorf("IDPHOTO_INFERENCE_URL is required for the http detector")
		}
	default:
		return fmt.Errorf("IDPHOTO_DETECTOR must be one of edges, http, cascade, got %q", c.Detector)
	}

	if c.PreviewMaxWidth < 1 {
		return fmt.Errorf("IDPHOTO_PREVIEW_MAX_WIDTH must be positive, got %d", c.PreviewMaxWidth)
	}

	if c.MaxFileSize < 1024 {
		return fmt.Errorf("IDPHOTO_MAX_FILE_SIZE must be at least 1KB, got %d", c.MaxFileSize)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}
