package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"INTELEVISION_ADDR", "CAMERA_ID", "CAMERA_ALT_ID", "DRIVER_INTERVAL",
		"DETECTION_THROTTLE", "VOCABULARY", "MQTT_BROKER", "TRAY",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Throttle != 200*time.Millisecond {
		t.Errorf("Throttle = %v, want 200ms", cfg.Throttle)
	}
	if cfg.DriverInterval != 100*time.Millisecond {
		t.Errorf("DriverInterval = %v, want 100ms", cfg.DriverInterval)
	}
	if cfg.CameraAltID != -1 {
		t.Errorf("CameraAltID = %d, want -1", cfg.CameraAltID)
	}
	if cfg.Vocabulary != "en" {
		t.Errorf("Vocabulary = %q, want en", cfg.Vocabulary)
	}
	if cfg.MQTTEnabled() {
		t.Error("MQTT should be disabled without a broker")
	}
	if !cfg.Tray {
		t.Error("tray should default on")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INTELEVISION_ADDR", ":9999")
	t.Setenv("INTELEVISION_DATA_DIR", "/tmp/iv")
	t.Setenv("CAMERA_ID", "2")
	t.Setenv("CAMERA_ALT_ID", "3")
	t.Setenv("DETECTION_THROTTLE", "350ms")
	t.Setenv("DRIVER_INTERVAL", "50")
	t.Setenv("VOCABULARY", "es")
	t.Setenv("MQTT_BROKER", "tcp://localhost:1883")
	t.Setenv("TRAY", "false")

	cfg := Load()

	if cfg.Addr != ":9999" || cfg.CameraID != 2 || cfg.CameraAltID != 3 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Throttle != 350*time.Millisecond {
		t.Errorf("Throttle = %v, want 350ms", cfg.Throttle)
	}
	if cfg.DriverInterval != 50*time.Millisecond {
		t.Errorf("DriverInterval = %v, want 50ms", cfg.DriverInterval)
	}
	if cfg.Vocabulary != "es" {
		t.Errorf("Vocabulary = %q, want es", cfg.Vocabulary)
	}
	if !cfg.MQTTEnabled() {
		t.Error("expected MQTT enabled")
	}
	if cfg.Tray {
		t.Error("expected tray disabled")
	}
	if got := cfg.DBPath(); got != filepath.Join("/tmp/iv", "intelevision.db") {
		t.Errorf("DBPath() = %q", got)
	}
}

func TestGetEnvHelpers_InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		check func() bool
	}{
		{
			name: "int",
			check: func() bool {
				t.Setenv("IV_TEST_INT", "abc")
				return getEnvInt("IV_TEST_INT", 7) == 7
			},
		},
		{
			name: "bool",
			check: func() bool {
				t.Setenv("IV_TEST_BOOL", "maybe")
				return getEnvBool("IV_TEST_BOOL", true)
			},
		},
		{
			name: "duration",
			check: func() bool {
				t.Setenv("IV_TEST_DUR", "soon")
				return getEnvDuration("IV_TEST_DUR", time.Second) == time.Second
			},
		},
		{
			name: "negative duration",
			check: func() bool {
				t.Setenv("IV_TEST_DUR", "-5s")
				return getEnvDuration("IV_TEST_DUR", time.Second) == time.Second
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check() {
				t.Error("expected default value for invalid input")
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MQTT_TOPIC=cams/front\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	// godotenv never overrides variables that are already set.
	os.Unsetenv("MQTT_TOPIC")
	defer os.Unsetenv("MQTT_TOPIC")

	if got := Load().MQTTTopic; got != "cams/front" {
		t.Errorf("MQTTTopic = %q, want cams/front", got)
	}
}
