package sampler

import (
	"context"
	"fmt"
)

// State is the detector readiness state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for st := StateUninitialized; st <= StateFailed; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown sampler state %q", b)
}

// setStateLocked records a transition and wakes every waiter. s.mu must be
// held.
func (s *Sampler) setStateLocked(st State, err error) {
	s.state = st
	s.initErr = err
	close(s.changed)
	s.changed = make(chan struct{})
}

// State returns the readiness state.
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the detector initialized successfully.
func (s *Sampler) Ready() bool {
	return s.State() == StateReady
}

// InitError returns the initialization error when the state is Failed.
func (s *Sampler) InitError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initErr
}

// WaitReady blocks until the sampler is Ready, initialization fails, or ctx
// is done. It returns nil only when Ready.
func (s *Sampler) WaitReady(ctx context.Context) error {
	for {
		s.mu.Lock()
		state, err, changed := s.state, s.initErr, s.changed
		s.mu.Unlock()

		switch state {
		case StateReady:
			return nil
		case StateFailed:
			return err
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
