// Package app wires the camera, detector, sampler and snapshot store into the
// running intelevision service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/intelevision/internal/aggregator"
	"github.com/ayusman/intelevision/internal/capture"
	"github.com/ayusman/intelevision/internal/detector"
	"github.com/ayusman/intelevision/internal/label"
	"github.com/ayusman/intelevision/internal/log"
	"github.com/ayusman/intelevision/internal/sampler"
	"github.com/ayusman/intelevision/internal/snapshot"
	"github.com/ayusman/intelevision/internal/store"
)

// DefaultDriverInterval is how often the driver reads the camera. The
// sampler throttle, not this interval, decides how often detection runs.
const DefaultDriverInterval = 100 * time.Millisecond

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store

	// Camera overrides the device built from CameraConfig.
	Camera       capture.Camera
	CameraConfig capture.Config

	// Detector overrides the MediaPipe service built from DetectorConfig.
	Detector       detector.Detector
	DetectorConfig detector.Config

	Throttle       time.Duration
	DriverInterval time.Duration
	Vocabulary     string

	// Clock is passed to the sampler; nil means time.Now.
	Clock func() time.Time
}

// App is the main application: it polls the camera, feeds the sampler and
// exposes the snapshot store to the display layer.
type App struct {
	config    Config
	camera    capture.Camera
	detector  detector.Detector
	agg       *aggregator.Aggregator
	snapshots *snapshot.Store
	sampler   *sampler.Sampler

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	offers  sync.WaitGroup

	frameMu sync.Mutex
	latest  gocv.Mat
	hasLast bool
}

// Status summarizes the application state for the API and tray.
type Status struct {
	State      sampler.State `json:"state"`
	Enabled    bool          `json:"enabled"`
	Running    bool          `json:"running"`
	Camera     bool          `json:"camera"`
	Facing     string        `json:"facing"`
	DeviceID   int           `json:"device_id"`
	Throttle   string        `json:"throttle"`
	Vocabulary string        `json:"vocabulary"`
	Stats      sampler.Stats `json:"stats"`
	InitError  string        `json:"init_error,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
}

// New creates a new App. Persisted tuning, vocabulary and label overrides
// are loaded from the store when one is configured.
func New(config Config) (*App, error) {
	if config.DriverInterval <= 0 {
		config.DriverInterval = DefaultDriverInterval
	}

	tuning := label.DefaultTuning()
	vocabName := config.Vocabulary
	var overrides map[string]string

	if config.Store != nil {
		t, err := config.Store.Settings().LoadTuning(tuning)
		switch {
		case err == nil:
			tuning = t
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("ignoring stored tuning", "error", err)
		}

		if name, err := config.Store.Settings().LoadVocabulary(); err == nil {
			vocabName = name
		}

		overrides, _ = config.Store.CategoryLabels().Map()
	}

	vocab, err := label.NewVocabulary(vocabName)
	if err != nil {
		return nil, err
	}
	vocab.SetOverrides(overrides)

	a := &App{
		config:    config,
		camera:    config.Camera,
		detector:  config.Detector,
		agg:       aggregator.New(tuning, vocab),
		snapshots: snapshot.New(),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraConfig)
	}

	// Try MediaPipe first, fall back to mock detector
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(config.DetectorConfig); err == nil {
			a.detector = mp
			log.Info("using MediaPipe vision service")
		} else {
			log.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	a.sampler = sampler.New(a.detector, a.agg, a.snapshots, sampler.Config{
		Throttle: config.Throttle,
		Clock:    config.Clock,
	})

	return a, nil
}

// InitDetector loads the detector models. The sampler refuses to run until
// this succeeds.
func (a *App) InitDetector(ctx context.Context) error {
	return a.sampler.Init(ctx)
}

// StartWhenReady waits for the detector and then enables detection. It
// returns the init error if the detector failed to load.
func (a *App) StartWhenReady(ctx context.Context) error {
	if err := a.sampler.WaitReady(ctx); err != nil {
		return err
	}
	return a.SetEnabled(true)
}

// SetEnabled enables or disables detection. Enabling fails with
// sampler.ErrNotReady until the detector has initialized.
func (a *App) SetEnabled(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if enabled {
		if err := a.sampler.Start(); err != nil {
			return err
		}
	} else {
		a.sampler.Stop()
	}
	a.enabled = enabled
	return nil
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Start opens the camera and starts the driver loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runDriver(a.stopCh, a.doneCh)

	log.Info("driver started", "interval", a.config.DriverInterval, "device", a.camera.DeviceID())
	return nil
}

// Stop halts detection and the driver and releases the camera. The last
// snapshot stays current. Safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	a.sampler.Stop()
	a.enabled = false

	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.camera.Close(); err != nil {
		log.Warn("error closing camera", "error", err)
	}

	a.frameMu.Lock()
	if a.hasLast {
		a.latest.Close()
		a.hasLast = false
	}
	a.frameMu.Unlock()
}

// Close stops the app, waits for any detection still in flight and shuts
// the detector down.
func (a *App) Close() error {
	a.Stop()
	a.offers.Wait()
	return a.detector.Close()
}

// Running reports whether the driver loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// SwitchCamera flips between the front and back devices. Detection pauses
// for the switch and resumes afterwards if it was enabled.
func (a *App) SwitchCamera() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	wasEnabled := a.enabled
	if wasEnabled {
		a.sampler.Stop()
	}

	err := a.camera.Switch()
	if err == nil {
		log.Info("camera switched", "facing", a.camera.Facing(), "device", a.camera.DeviceID())
	}

	if wasEnabled {
		if serr := a.sampler.Start(); serr != nil {
			a.enabled = false
			return errors.Join(err, serr)
		}
	}
	return err
}

// ApplyTuning validates t, persists it and uses it from the next frame on.
func (a *App) ApplyTuning(t label.Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SaveTuning(t); err != nil {
			return fmt.Errorf("save tuning: %w", err)
		}
	}
	a.agg.SetTuning(t)
	return nil
}

// Tuning returns the tuning table in use.
func (a *App) Tuning() label.Tuning {
	return a.agg.Tuning()
}

// VocabularyName returns the active display vocabulary.
func (a *App) VocabularyName() string {
	return a.agg.Vocabulary().Name()
}

// SetVocabulary switches the display vocabulary and persists the choice.
func (a *App) SetVocabulary(name string) error {
	vocab, err := label.NewVocabulary(name)
	if err != nil {
		return err
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SaveVocabulary(name); err != nil {
			return fmt.Errorf("save vocabulary: %w", err)
		}
		overrides, err := a.config.Store.CategoryLabels().Map()
		if err != nil {
			return err
		}
		vocab.SetOverrides(overrides)
	}
	a.agg.SetVocabulary(vocab)
	return nil
}

// ReloadLabels re-reads the category overrides from the store.
func (a *App) ReloadLabels() error {
	if a.config.Store == nil {
		return nil
	}
	overrides, err := a.config.Store.CategoryLabels().Map()
	if err != nil {
		return err
	}
	a.agg.Vocabulary().SetOverrides(overrides)
	return nil
}

// LatestFrame returns a copy of the most recent camera frame. The caller
// closes it.
func (a *App) LatestFrame() (*gocv.Mat, bool) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()

	if !a.hasLast {
		return nil, false
	}
	c := a.latest.Clone()
	return &c, true
}

func (a *App) keepFrame(frame *gocv.Mat) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()

	if a.hasLast {
		a.latest.Close()
	}
	a.latest = frame.Clone()
	a.hasLast = true
}

// Status returns the current state summary.
func (a *App) Status() Status {
	st := Status{
		State:      a.sampler.State(),
		Enabled:    a.IsEnabled(),
		Running:    a.Running(),
		Camera:     a.camera.IsOpen(),
		Facing:     string(a.camera.Facing()),
		DeviceID:   a.camera.DeviceID(),
		Throttle:   a.sampler.Throttle().String(),
		Vocabulary: a.agg.Vocabulary().Name(),
		Stats:      a.sampler.Stats(),
	}
	if err := a.sampler.InitError(); err != nil {
		st.InitError = err.Error()
	}
	if err := a.sampler.LastError(); err != nil {
		st.LastError = err.Error()
	}
	return st
}

// Snapshots returns the snapshot store.
func (a *App) Snapshots() *snapshot.Store {
	return a.snapshots
}

// Sampler returns the sampling loop.
func (a *App) Sampler() *sampler.Sampler {
	return a.sampler
}

// Aggregator returns the frame aggregator.
func (a *App) Aggregator() *aggregator.Aggregator {
	return a.agg
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the vision detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}
