package domain

import (
	"errors"
	"time"
)

var (
	// ErrSLAAlreadyPaused is returned when pausing an SLA clock that is paused.
	ErrSLAAlreadyPaused = errors.New("sla: clock already paused")
	// ErrSLANotPaused is returned when resuming an SLA clock that is running.
	ErrSLANotPaused = errors.New("sla: clock not paused")
)

// SLAWindow defines the response and resolution deadlines for one priority.
type SLAWindow struct {
	Response   time.Duration
	Resolution time.Duration
}

// SLAConfig maps each priority to its deadline windows.
type SLAConfig struct {
	Emergency SLAWindow
	High      SLAWindow
	Medium    SLAWindow
	Low       SLAWindow
}

// DefaultSLAConfig returns the platform default deadline windows. Emergency
// windows are materially tighter than low-priority ones.
func DefaultSLAConfig() SLAConfig {
	return SLAConfig{
		Emergency: SLAWindow{Response: 30 * time.Minute, Resolution: 4 * time.Hour},
		High:      SLAWindow{Response: 2 * time.Hour, Resolution: 24 * time.Hour},
		Medium:    SLAWindow{Response: 8 * time.Hour, Resolution: 72 * time.Hour},
		Low:       SLAWindow{Response: 24 * time.Hour, Resolution: 7 * 24 * time.Hour},
	}
}

// Window returns the deadline windows for the given priority, defaulting to
// the medium windows for unknown values.
func (c SLAConfig) Window(p Priority) SLAWindow {
	switch p {
	case PriorityEmergency:
		return c.Emergency
	case PriorityHigh:
		return c.High
	case PriorityLow:
		return c.Low
	default:
		return c.Medium
	}
}

// SLARecord tracks the deadline clock embedded in a work order. Due timestamps
// are derived from the submission time plus the priority window, and shift
// forward by exactly the accumulated paused duration on every resume.
type SLARecord struct {
	SubmittedAt        time.Time
	ResponseDueAt      time.Time
	ResolutionDueAt    time.Time
	ResponseBreached   bool
	ResolutionBreached bool
	// PausedAt is nil while the clock is running.
	PausedAt    *time.Time
	PausedTotal time.Duration
	// ResolvedAt is nil until completion.
	ResolvedAt *time.Time
}

// NewSLARecord computes the initial deadline clock for a submission.
func NewSLARecord(submittedAt time.Time, window SLAWindow) SLARecord {
	submittedAt = submittedAt.UTC()
	return SLARecord{
		SubmittedAt:     submittedAt,
		ResponseDueAt:   submittedAt.Add(window.Response),
		ResolutionDueAt: submittedAt.Add(window.Resolution),
	}
}

// Rebase recomputes both due timestamps for a new priority window, preserving
// the accumulated paused duration. Used when triage changes the priority.
func (s *SLARecord) Rebase(window SLAWindow) {
	s.ResponseDueAt = s.SubmittedAt.Add(window.Response + s.PausedTotal)
	s.ResolutionDueAt = s.SubmittedAt.Add(window.Resolution + s.PausedTotal)
}

// Paused reports whether the deadline clock is currently frozen.
func (s SLARecord) Paused() bool {
	return s.PausedAt != nil
}

// Pause freezes the deadline clock. Fails without mutation when already paused.
func (s *SLARecord) Pause(now time.Time) error {
	if s.PausedAt != nil {
		return ErrSLAAlreadyPaused
	}
	paused := now.UTC()
	s.PausedAt = &paused
	return nil
}

// Resume unfreezes the clock, adds the elapsed pause window to the accumulated
// total, and shifts both due timestamps forward by that amount. Returns the
// elapsed pause duration. Fails without mutation when the clock is running.
func (s *SLARecord) Resume(now time.Time) (time.Duration, error) {
	if s.PausedAt == nil {
		return 0, ErrSLANotPaused
	}
	elapsed := now.UTC().Sub(*s.PausedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	s.PausedAt = nil
	s.PausedTotal += elapsed
	s.ResponseDueAt = s.ResponseDueAt.Add(elapsed)
	s.ResolutionDueAt = s.ResolutionDueAt.Add(elapsed)
	return elapsed, nil
}

// ResponseOverdue reports whether the response deadline has newly passed.
// A paused clock is never treated as newly breached, and a flag that is
// already set stays set.
func (s SLARecord) ResponseOverdue(now time.Time) bool {
	if s.ResponseBreached {
		return true
	}
	if s.PausedAt != nil {
		return false
	}
	return now.After(s.ResponseDueAt)
}

// ResolutionOverdue reports whether the resolution deadline has newly passed,
// with the same pause awareness as ResponseOverdue. After resolution the
// recorded completion time is authoritative.
func (s SLARecord) ResolutionOverdue(now time.Time) bool {
	if s.ResolutionBreached {
		return true
	}
	if s.ResolvedAt != nil {
		return s.ResolvedAt.After(s.ResolutionDueAt)
	}
	if s.PausedAt != nil {
		return false
	}
	return now.After(s.ResolutionDueAt)
}

// MarkResolved stamps the completion time and settles the resolution breach
// flag from the recorded timestamps.
func (s *SLARecord) MarkResolved(now time.Time) {
	resolved := now.UTC()
	s.ResolvedAt = &resolved
	if resolved.After(s.ResolutionDueAt) {
		s.ResolutionBreached = true
	}
}
