package detector

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for the external vision runtime.
type Detector interface {
	// Init loads the models. It must succeed before Detect is called.
	Init(ctx context.Context) error

	// Detect runs the pose, face and object queries against the same frame
	// and returns them together. at is the video timestamp of the frame.
	Detect(frame *gocv.Mat, at time.Time) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the vision runtime.
type Config struct {
	// MaxPoses is the maximum number of people to landmark (default: 3).
	MaxPoses int

	// MaxFaces is the maximum number of faces to score (default: 3).
	MaxFaces int

	// MaxObjects is the maximum number of object detections (default: 5).
	MaxObjects int

	// MinConfidence is the minimum pose/face detection confidence (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ObjectScoreThreshold is the runtime's own object score cutoff.
	ObjectScoreThreshold float64

	// ScriptPath overrides the service script lookup.
	ScriptPath string

	// PythonPath overrides the interpreter lookup.
	PythonPath string

	// IdleTimeout shuts the service down after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxPoses:             3,
		MaxFaces:             3,
		MaxObjects:           5,
		MinConfidence:        0.5,
		MinTrackingConf:      0.5,
		ObjectScoreThreshold: 0.3,
		IdleTimeout:          30 * time.Second,
	}
}
