package detector

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu      sync.Mutex
	result  *Result
	err     error
	initErr error
	calls   int
	times   []time.Time
	gate    chan struct{}
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResult sets the result that will be returned by Detect.
func (m *MockDetector) SetResult(r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetInitError sets the error that will be returned by Init.
func (m *MockDetector) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// Block makes every following Detect call wait until the returned release
// function is called.
func (m *MockDetector) Block() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Timestamps returns the frame timestamps Detect was invoked with.
func (m *MockDetector) Timestamps() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.times...)
}

// Init returns the configured init error.
func (m *MockDetector) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initErr
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat, at time.Time) (*Result, error) {
	m.mu.Lock()
	m.calls++
	m.times = append(m.times, at)
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &Result{}, nil
	}
	return m.result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingPose returns a full pose of a person facing the camera with arms
// resting at their sides, shoulders 0.2 apart.
func StandingPose() Pose {
	lm := make([]Landmark, NumPoseLandmarks)
	for i := range lm {
		lm[i] = Landmark{X: 0.5, Y: 0.5, Visibility: Vis(0.9)}
	}

	lm[Nose] = Landmark{X: 0.5, Y: 0.2, Visibility: Vis(0.99)}
	lm[LeftShoulder] = Landmark{X: 0.6, Y: 0.4, Visibility: Vis(0.98)}
	lm[RightShoulder] = Landmark{X: 0.4, Y: 0.4, Visibility: Vis(0.98)}
	lm[LeftElbow] = Landmark{X: 0.62, Y: 0.55, Visibility: Vis(0.9)}
	lm[RightElbow] = Landmark{X: 0.38, Y: 0.55, Visibility: Vis(0.9)}
	lm[LeftWrist] = Landmark{X: 0.62, Y: 0.7, Visibility: Vis(0.9)}
	lm[RightWrist] = Landmark{X: 0.38, Y: 0.7, Visibility: Vis(0.9)}
	lm[LeftHip] = Landmark{X: 0.57, Y: 0.75, Visibility: Vis(0.9)}
	lm[RightHip] = Landmark{X: 0.43, Y: 0.75, Visibility: Vis(0.9)}

	return Pose{Landmarks: lm}
}

// HandsUpPose returns StandingPose with both wrists well above the shoulders.
func HandsUpPose() Pose {
	p := StandingPose()
	p.Landmarks[LeftWrist] = Landmark{X: 0.65, Y: 0.1, Visibility: Vis(0.9)}
	p.Landmarks[RightWrist] = Landmark{X: 0.35, Y: 0.1, Visibility: Vis(0.9)}
	p.Landmarks[LeftElbow] = Landmark{X: 0.65, Y: 0.25, Visibility: Vis(0.9)}
	p.Landmarks[RightElbow] = Landmark{X: 0.35, Y: 0.25, Visibility: Vis(0.9)}
	return p
}

// SmilingFace returns blendshapes dominated by smile activations.
func SmilingFace() Face {
	return Face{Blendshapes: []Category{
		{Name: "mouthSmileLeft", Score: 0.4},
		{Name: "mouthSmileRight", Score: 0.3},
		{Name: "browDownLeft", Score: 0.2},
	}}
}
