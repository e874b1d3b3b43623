// Package scheduler drives the two-phase (realtime, commit) debounce timers
// described in spec.md §4.4, and the IME composition gate that suppresses
// analysis while a composition is in progress.
package scheduler

import (
	"sync"
	"time"
)

// Config holds the debounce intervals. Zero-value fields are replaced by
// DefaultConfig's values by New.
type Config struct {
	RealtimeMs    int
	CommitAfterMs int
}

// DefaultConfig returns the spec.md-mandated defaults: 150ms realtime,
// 700ms commit.
func DefaultConfig() Config {
	return Config{RealtimeMs: 150, CommitAfterMs: 700}
}

func (c Config) withDefaults() Config {
	if c.RealtimeMs <= 0 {
		c.RealtimeMs = DefaultConfig().RealtimeMs
	}
	if c.CommitAfterMs <= 0 {
		c.CommitAfterMs = DefaultConfig().CommitAfterMs
	}
	return c
}

// Scheduler arms/rearms the realtime and commit timers on every
// ScheduleAnalysis call, and gates analysis entirely while composing.
type Scheduler struct {
	mu  sync.Mutex
	cfg Config

	realtimeTimer *time.Timer
	commitTimer   *time.Timer

	composing bool
	destroyed bool

	onRealtime func()
	onCommit   func()
}

// New constructs a Scheduler with the given config and fire callbacks.
// Either callback may be nil.
func New(cfg Config, onRealtime, onCommit func()) *Scheduler {
	return &Scheduler{
		cfg:        cfg.withDefaults(),
		onRealtime: onRealtime,
		onCommit:   onCommit,
	}
}

// ScheduleAnalysis is a no-op while destroyed or composing. Otherwise it
// cancels and rearms both timers, so a burst of calls closer together than
// RealtimeMs produces no realtime fire until the caller pauses.
func (s *Scheduler) ScheduleAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || s.composing {
		return
	}
	s.armRealtimeLocked()
	s.armCommitLocked()
}

func (s *Scheduler) armRealtimeLocked() {
	if s.realtimeTimer != nil {
		s.realtimeTimer.Stop()
	}
	s.realtimeTimer = time.AfterFunc(time.Duration(s.cfg.RealtimeMs)*time.Millisecond, func() {
		s.mu.Lock()
		s.realtimeTimer = nil
		destroyed := s.destroyed
		cb := s.onRealtime
		s.mu.Unlock()
		if !destroyed && cb != nil {
			cb()
		}
	})
}

func (s *Scheduler) armCommitLocked() {
	if s.commitTimer != nil {
		s.commitTimer.Stop()
	}
	s.commitTimer = time.AfterFunc(time.Duration(s.cfg.CommitAfterMs)*time.Millisecond, func() {
		s.mu.Lock()
		s.commitTimer = nil
		destroyed := s.destroyed
		cb := s.onCommit
		s.mu.Unlock()
		if !destroyed && cb != nil {
			cb()
		}
	})
}

// ForceCommit cancels both timers and invokes the commit callback
// immediately; commit subsumes any pending realtime fire.
func (s *Scheduler) ForceCommit() {
	s.mu.Lock()
	s.stopTimersLocked()
	destroyed := s.destroyed
	cb := s.onCommit
	s.mu.Unlock()

	if !destroyed && cb != nil {
		cb()
	}
}

// SetComposing sets the IME composing flag. Transitioning from true to
// false resumes analysis by calling ScheduleAnalysis.
func (s *Scheduler) SetComposing(composing bool) {
	s.mu.Lock()
	was := s.composing
	s.composing = composing
	s.mu.Unlock()

	if was && !composing {
		s.ScheduleAnalysis()
	}
}

// Cancel stops both timers without firing either callback.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
}

func (s *Scheduler) stopTimersLocked() {
	if s.realtimeTimer != nil {
		s.realtimeTimer.Stop()
		s.realtimeTimer = nil
	}
	if s.commitTimer != nil {
		s.commitTimer.Stop()
		s.commitTimer = nil
	}
}

// Destroy cancels both timers and marks the scheduler destroyed; all
// subsequent calls become no-ops. Idempotent.
func (s *Scheduler) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.stopTimersLocked()
}

// IsPendingCommit reports whether a commit fire is currently armed.
func (s *Scheduler) IsPendingCommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitTimer != nil
}
