// Package sampler decides which camera frames reach the detector and turns
// each accepted frame into a published snapshot.
//
// Frames are offered at whatever rate the caller likes. The sampler accepts at
// most one frame per throttle window and runs one detection cycle at a time;
// everything else is dropped, never queued.
package sampler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	"gocv.io/x/gocv"

	"github.com/ayusman/intelevision/internal/aggregator"
	"github.com/ayusman/intelevision/internal/detector"
	"github.com/ayusman/intelevision/internal/log"
	"github.com/ayusman/intelevision/internal/snapshot"
)

// DefaultThrottle is the minimum gap between detector invocations.
const DefaultThrottle = 200 * time.Millisecond

var (
	// ErrNotReady is returned by Start before the detector has initialized.
	ErrNotReady = errors.New("sampler: detector not ready")

	// ErrInitializing is returned by Init while another Init is in progress.
	ErrInitializing = errors.New("sampler: initialization in progress")
)

// Outcome reports what happened to an offered frame.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeThrottled Outcome = "throttled"
	OutcomeBusy      Outcome = "busy"
	OutcomeNotReady  Outcome = "not_ready"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
)

// Config holds sampler options.
type Config struct {
	// Throttle is the minimum gap between accepted frames (default: 200ms).
	Throttle time.Duration

	// Clock returns the current time. Tests replace it.
	Clock func() time.Time
}

// Stats counts offered frames by outcome.
type Stats struct {
	Processed uint64 `json:"processed"`
	Throttled uint64 `json:"throttled"`
	Busy      uint64 `json:"busy"`
	Failed    uint64 `json:"failed"`
}

// Sampler owns the throttle, the readiness state and the last detection
// time. Several samplers can run side by side; nothing is global.
type Sampler struct {
	id    string
	det   detector.Detector
	agg   *aggregator.Aggregator
	store *snapshot.Store
	clock func() time.Time
	log   *slog.Logger

	throttle atomic.Int64
	busy     atomic.Bool

	processed atomic.Uint64
	throttled atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	mu            sync.Mutex
	state         State
	initErr       error
	changed       chan struct{}
	running       bool
	generation    uint64
	lastDetection time.Time
	lastErr       error
}

// New creates a sampler. It starts Uninitialized and stopped.
func New(det detector.Detector, agg *aggregator.Aggregator, store *snapshot.Store, cfg Config) *Sampler {
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	id := uuid.New().String()
	s := &Sampler{
		id:      id,
		det:     det,
		agg:     agg,
		store:   store,
		clock:   cfg.Clock,
		log:     log.With("component", "sampler", "sampler_id", id),
		changed: make(chan struct{}),
	}
	s.throttle.Store(int64(cfg.Throttle))
	return s
}

// ID returns the sampler's instance id.
func (s *Sampler) ID() string {
	return s.id
}

// Throttle returns the current throttle window.
func (s *Sampler) Throttle() time.Duration {
	return time.Duration(s.throttle.Load())
}

// SetThrottle changes the throttle window. Non-positive values restore the
// default.
func (s *Sampler) SetThrottle(d time.Duration) {
	if d <= 0 {
		d = DefaultThrottle
	}
	s.throttle.Store(int64(d))
}

// Start begins accepting frames. It fails with ErrNotReady unless the
// detector has initialized.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return ErrNotReady
	}
	if s.running {
		return nil
	}

	s.running = true
	s.generation++
	s.log.Info("sampler started", "throttle", s.Throttle())
	return nil
}

// Stop rejects further frames and discards the result of any cycle still
// running. The last published snapshot stays current. Safe to call when
// already stopped.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.generation++
	s.log.Info("sampler stopped")
}

// Running reports whether the sampler accepts frames.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Offer hands a frame to the sampler. At most one frame per throttle window
// reaches the detector, and the call blocks while that detection runs.
// Snapshot subscribers are notified from inside Offer and must not call back
// into the sampler.
func (s *Sampler) Offer(frame *gocv.Mat) Outcome {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return OutcomeNotReady
	}
	if !s.running {
		s.mu.Unlock()
		return OutcomeStopped
	}

	now := s.clock()
	if !s.lastDetection.IsZero() && now.Sub(s.lastDetection) < s.Throttle() {
		s.mu.Unlock()
		s.throttled.Add(1)
		return OutcomeThrottled
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.mu.Unlock()
		s.dropped.Add(1)
		return OutcomeBusy
	}
	s.lastDetection = now
	gen := s.generation
	s.mu.Unlock()

	defer s.busy.Store(false)
	return s.cycle(frame, now, gen)
}

func (s *Sampler) cycle(frame *gocv.Mat, at time.Time, gen uint64) Outcome {
	result, err := s.det.Detect(frame, at)
	if err != nil {
		err := xerrors.New(err)
		s.failed.Add(1)

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		s.log.Warn("detection failed, keeping previous snapshot", slog.Any("error", err))
		return OutcomeFailed
	}

	persons, objects := s.agg.Aggregate(result)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop (or a Stop/Start pair) happened while the detector was running.
	if !s.running || s.generation != gen {
		return OutcomeStopped
	}

	s.store.Publish(snapshot.Snapshot{
		Persons:      persons,
		Objects:      objects,
		Timestamp:    at.UnixMilli(),
		CameraActive: true,
	})
	s.lastErr = nil
	s.processed.Add(1)
	return OutcomeProcessed
}

// Stats returns the outcome counters.
func (s *Sampler) Stats() Stats {
	return Stats{
		Processed: s.processed.Load(),
		Throttled: s.throttled.Load(),
		Busy:      s.dropped.Load(),
		Failed:    s.failed.Load(),
	}
}

// LastError returns the error of the most recent failed cycle, cleared by
// the next successful one.
func (s *Sampler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Init initializes the detector and moves the sampler to Ready or Failed.
// A failed sampler may be initialized again.
func (s *Sampler) Init(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateInitializing:
		s.mu.Unlock()
		return ErrInitializing
	}
	s.setStateLocked(StateInitializing, nil)
	s.mu.Unlock()

	s.log.Info("initializing detector")
	err := s.det.Init(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		err := xerrors.New(err)
		s.setStateLocked(StateFailed, err)
		s.log.Error("detector initialization failed", slog.Any("error", err))
		return err
	}

	s.setStateLocked(StateReady, nil)
	s.log.Info("detector ready")
	return nil
}
