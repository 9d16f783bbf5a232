// Package gameclock implements the match clock as a pure state machine over
// an injectable time source. Callers persist the returned Snapshot.
package gameclock

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type State string

const (
	Stopped State = "stopped"
	Running State = "running"
	Paused  State = "paused"
)

type Action string

const (
	ActionStart      Action = "start"
	ActionPause      Action = "pause"
	ActionResume     Action = "resume"
	ActionStop       Action = "stop"
	ActionReset      Action = "reset"
	ActionNextPeriod Action = "next-period"
)

var (
	ErrInvalidTransition = errors.New("invalid clock transition")
	ErrLastPeriod        = errors.New("already in the last period")
	ErrNoTimeRemaining   = errors.New("no time remaining in the period")
	ErrUnknownAction     = errors.New("unknown clock action")
)

// Snapshot is the persisted clock. RemainingSeconds is the value at
// StartedAt while running, and the live value otherwise.
type Snapshot struct {
	State            State
	Period           int
	NumberOfPeriods  int
	PeriodDuration   int
	RemainingSeconds int
	StartedAt        *time.Time
}

type Clock struct {
	clock clockwork.Clock
}

func New(clock clockwork.Clock) *Clock {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Clock{clock: clock}
}

func (c *Clock) Now() time.Time {
	return c.clock.Now()
}

// Remaining returns the seconds left in the current period, floored at 0.
func (c *Clock) Remaining(s Snapshot) int {
	if s.State != Running || s.StartedAt == nil {
		return s.RemainingSeconds
	}
	elapsed := int(c.clock.Since(*s.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := s.RemainingSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether a running period has reached zero.
func (c *Clock) Expired(s Snapshot) bool {
	return c.Remaining(s) == 0
}

// Apply performs a named action.
func (c *Clock) Apply(s Snapshot, action Action) (Snapshot, error) {
	switch action {
	case ActionStart:
		return c.Start(s)
	case ActionPause:
		return c.Pause(s)
	case ActionResume:
		return c.Resume(s)
	case ActionStop:
		return c.Stop(s)
	case ActionReset:
		return c.Reset(s), nil
	case ActionNextPeriod:
		return c.NextPeriod(s)
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (c *Clock) Start(s Snapshot) (Snapshot, error) {
	if s.State != Stopped {
		return s, fmt.Errorf("%w: cannot start a %s clock", ErrInvalidTransition, s.State)
	}
	return c.run(s)
}

func (c *Clock) Resume(s Snapshot) (Snapshot, error) {
	if s.State != Paused {
		return s, fmt.Errorf("%w: cannot resume a %s clock", ErrInvalidTransition, s.State)
	}
	return c.run(s)
}

func (c *Clock) run(s Snapshot) (Snapshot, error) {
	if s.RemainingSeconds <= 0 {
		return s, ErrNoTimeRemaining
	}
	now := c.clock.Now().UTC()
	s.State = Running
	s.StartedAt = &now
	return s, nil
}

func (c *Clock) Pause(s Snapshot) (Snapshot, error) {
	if s.State != Running {
		return s, fmt.Errorf("%w: cannot pause a %s clock", ErrInvalidTransition, s.State)
	}
	s.RemainingSeconds = c.Remaining(s)
	s.State = Paused
	s.StartedAt = nil
	return s, nil
}

func (c *Clock) Stop(s Snapshot) (Snapshot, error) {
	if s.State == Stopped {
		return s, fmt.Errorf("%w: clock is already stopped", ErrInvalidTransition)
	}
	s.RemainingSeconds = c.Remaining(s)
	s.State = Stopped
	s.StartedAt = nil
	return s, nil
}

// Reset stops the clock and restores the full period duration.
func (c *Clock) Reset(s Snapshot) Snapshot {
	s.State = Stopped
	s.StartedAt = nil
	s.RemainingSeconds = s.PeriodDuration
	return s
}

func (c *Clock) NextPeriod(s Snapshot) (Snapshot, error) {
	if s.Period >= s.NumberOfPeriods {
		return s, ErrLastPeriod
	}
	s = c.Reset(s)
	s.Period++
	return s, nil
}

// Begin returns the clock for a game that has just started: period one,
// full time, stopped.
func Begin(numberOfPeriods, periodDuration int) Snapshot {
	return Snapshot{
		State:            Stopped,
		Period:           1,
		NumberOfPeriods:  numberOfPeriods,
		PeriodDuration:   periodDuration,
		RemainingSeconds: periodDuration,
	}
}
