package match

import (
	"fmt"
	"sync"
)

// Duplicate detection must be stricter than recognition, and the duplicate
// threshold is restricted to a tighter band so an operator cannot
// accidentally turn the guard off.
const (
	DuplicateMin = 0.60
	DuplicateMax = 0.95
)

// InvalidThresholdError reports a threshold configuration outside the
// allowed ranges or violating the ordering invariant.
type InvalidThresholdError struct {
	Reason string
}

func (e *InvalidThresholdError) Error() string {
	return "invalid threshold: " + e.Reason
}

// Thresholds is the similarity configuration passed explicitly into the
// guard and recognizer. There is no ambient global threshold state.
type Thresholds struct {
	Recognition float64 `json:"recognition_threshold"`
	Duplicate   float64 `json:"duplicate_threshold"`
}

func (t Thresholds) Validate() error {
	if t.Recognition <= 0 || t.Recognition >= 1 {
		return &InvalidThresholdError{
			Reason: fmt.Sprintf("recognition_threshold %.3f must be in (0, 1)", t.Recognition),
		}
	}
	if t.Duplicate < DuplicateMin || t.Duplicate > DuplicateMax {
		return &InvalidThresholdError{
			Reason: fmt.Sprintf("duplicate_threshold %.3f must be in [%.2f, %.2f]", t.Duplicate, DuplicateMin, DuplicateMax),
		}
	}
	if t.Duplicate <= t.Recognition {
		return &InvalidThresholdError{
			Reason: fmt.Sprintf("duplicate_threshold %.3f must be stricter than recognition_threshold %.3f", t.Duplicate, t.Recognition),
		}
	}
	return nil
}

// Settings holds the live threshold values behind a mutex so operators can
// update them over the API while requests are in flight.
type Settings struct {
	mu sync.RWMutex
	t  Thresholds
}

func NewSettings(t Thresholds) (*Settings, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Settings{t: t}, nil
}

func (s *Settings) Current() Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t
}

func (s *Settings) Update(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.t = t
	s.mu.Unlock()
	return nil
}
