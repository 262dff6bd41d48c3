// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/intelevision/internal/log"
)

type Config struct {
	// HTTP server
	Addr string

	// Storage
	DataDir string

	// Capture
	CameraID       int
	CameraAltID    int
	DriverInterval time.Duration

	// Sampling
	Throttle   time.Duration
	Vocabulary string

	// Detector service
	PythonPath        string
	VisionScript      string
	DetectorIdle      time.Duration
	DetectorInitWait  time.Duration
	AutoStartDetector bool

	// MQTT
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string

	// UI
	Tray     bool
	LogLevel string
}

// DBPath returns the SQLite database location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "intelevision.db")
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// Load reads .env (if present) and then the environment.
func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Addr: getEnv("INTELEVISION_ADDR", ":8080"),

		DataDir: getEnv("INTELEVISION_DATA_DIR", defaultDataDir()),

		CameraID:       getEnvInt("CAMERA_ID", 0),
		CameraAltID:    getEnvInt("CAMERA_ALT_ID", -1),
		DriverInterval: getEnvDuration("DRIVER_INTERVAL", 100*time.Millisecond),

		Throttle:   getEnvDuration("DETECTION_THROTTLE", 200*time.Millisecond),
		Vocabulary: getEnv("VOCABULARY", "en"),

		PythonPath:        getEnv("VISION_PYTHON", ""),
		VisionScript:      getEnv("VISION_SCRIPT", ""),
		DetectorIdle:      getEnvDuration("DETECTOR_IDLE_TIMEOUT", 30*time.Second),
		DetectorInitWait:  getEnvDuration("DETECTOR_INIT_TIMEOUT", 60*time.Second),
		AutoStartDetector: getEnvBool("AUTO_START", true),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "intelevision"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "intelevision/snapshot"),

		Tray:     getEnvBool("TRAY", true),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".intelevision"
	}
	return filepath.Join(home, ".intelevision")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Warn("invalid integer in environment, using default", "key", key, "error", err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn("invalid bool in environment, using default", "key", key, "error", err)
		return defaultValue
	}
	return boolValue
}

// getEnvDuration accepts Go durations ("250ms") or bare milliseconds ("250").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}
