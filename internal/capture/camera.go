// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 10
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrNoAlternate is returned by Switch when only one device is configured.
	ErrNoAlternate = errors.New("no alternate camera configured")
)

// Facing names the two devices a camera can switch between.
type Facing string

const (
	FacingFront Facing = "front"
	FacingBack  Facing = "back"
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool

	// Switch flips between the primary and alternate device, reopening the
	// capture if it was open.
	Switch() error
	DeviceID() int
	Facing() Facing
}

// Config describes the capture devices.
type Config struct {
	// DeviceID is the primary (front) device.
	DeviceID int
	// AltDeviceID is the back device; negative means none.
	AltDeviceID int
	Width       int
	Height      int
	FPS         int
}

// DefaultConfig returns a single-device config for device 0.
func DefaultConfig() Config {
	return Config{
		DeviceID:    0,
		AltDeviceID: -1,
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		FPS:         DefaultFPS,
	}
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	cfg     Config
	facing  Facing
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a camera from cfg. Zero sizes and FPS take the defaults.
func NewCamera(cfg Config) Camera {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}

	return &cameraImpl{
		cfg:    cfg,
		facing: FacingFront,
		fps:    cfg.FPS,
	}
}

func (c *cameraImpl) deviceLocked() int {
	if c.facing == FacingBack {
		return c.cfg.AltDeviceID
	}
	return c.cfg.DeviceID
}

// Open opens the current device and applies the configured resolution.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	return c.openLocked()
}

func (c *cameraImpl) openLocked() error {
	id := c.deviceLocked()
	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", id, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true
	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *cameraImpl) closeLocked() error {
	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false
	return err
}

// Switch flips to the other device. On failure to open the new device the
// camera falls back to the previous one.
func (c *cameraImpl) Switch() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.AltDeviceID < 0 {
		return ErrNoAlternate
	}

	prev := c.facing
	if prev == FacingFront {
		c.facing = FacingBack
	} else {
		c.facing = FacingFront
	}

	if !c.running {
		return nil
	}

	if err := c.closeLocked(); err != nil {
		return err
	}
	if err := c.openLocked(); err != nil {
		c.facing = prev
		if rerr := c.openLocked(); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

// DeviceID returns the device in use.
func (c *cameraImpl) DeviceID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceLocked()
}

// Facing returns which device is selected.
func (c *cameraImpl) Facing() Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
