package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing
type MockCamera struct {
	frames   []*gocv.Mat
	index    int
	loop     bool
	mu       sync.Mutex
	running  bool
	facing   Facing
	switches int
	reads    int
	readErr  error
	fps      int
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		facing: FacingFront,
		fps:    DefaultFPS,
	}
}

// NewBlankMockCamera returns a looping camera that yields one black frame.
// The caller owns the returned Mat and closes it after the camera.
func NewBlankMockCamera() (*MockCamera, *gocv.Mat) {
	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	return NewMockCamera([]*gocv.Mat{&frame}, true), &frame
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	c.reads++
	if c.readErr != nil {
		return nil, c.readErr
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, fmt.Errorf("no more frames")
		}
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Switch flips the facing; playback restarts from the first frame.
func (c *MockCamera) Switch() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.facing == FacingFront {
		c.facing = FacingBack
	} else {
		c.facing = FacingFront
	}
	c.switches++
	c.index = 0
	return nil
}

func (c *MockCamera) DeviceID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.facing == FacingBack {
		return 1
	}
	return 0
}

func (c *MockCamera) Facing() Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// Switches returns how many times Switch was called.
func (c *MockCamera) Switches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switches
}

// Reads returns how many times ReadFrame was called while open.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// SetReadError makes every following ReadFrame fail with err.
func (c *MockCamera) SetReadError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
