// Package recovery implements the bounded bot-detection recovery protocol.
// It runs at most one cycle per unit: detection, a sequence of
// human-plausible page interactions, a randomized cool-down, and a single
// re-navigation to the login entry point. It is a mitigation, never a
// guarantee, and it must not be "improved" into an open-ended retry loop.
package recovery

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itc-ops/invoice-orchestrator/models"
)

// Pager is the slice of the session the protocol drives. *session.Session
// satisfies it; tests substitute a fake.
type Pager interface {
	Capture(label string) string
	MoveMouse(x, y float64)
	Wheel(dy float64)
	PauseBetween(min, max time.Duration)
	Goto(url string, timeout time.Duration) error
}

// State is the protocol's position in its Idle -> Detected -> Recovering
// -> Retried cycle.
type State int

const (
	StateIdle State = iota
	StateDetected
	StateRecovering
	StateRetried
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetected:
		return "detected"
	case StateRecovering:
		return "recovering"
	case StateRetried:
		return "retried"
	}
	return "unknown"
}

// ErrExhausted means the single allowed recovery cycle was already spent
// for this unit.
var ErrExhausted = errors.New("recovery already attempted for this unit")

// Default cool-down bounds when the vendor's policy leaves them zero.
const (
	defaultMinPause = 25 * time.Second
	defaultMaxPause = 50 * time.Second
)

// Protocol is one unit's recovery state machine. Not reused across units.
type Protocol struct {
	policy models.RecoveryPolicy
	log    *logrus.Entry

	state  State
	cycles int
}

// New builds a protocol bound to one unit's run.
func New(policy models.RecoveryPolicy, log *logrus.Entry) *Protocol {
	return &Protocol{policy: policy, log: log, state: StateIdle}
}

// State reports the current protocol state.
func (p *Protocol) State() State { return p.state }

// Exhausted reports whether the one allowed cycle has been spent.
func (p *Protocol) Exhausted() bool { return p.cycles >= 1 }

// Run executes one recovery cycle against the session and leaves the page
// back at the login entry point. A second call for the same unit returns
// ErrExhausted without touching the page.
func (p *Protocol) Run(s Pager, loginURL string) error {
	if !p.policy.Enabled {
		return errors.New("recovery disabled for this vendor")
	}
	if p.Exhausted() {
		return ErrExhausted
	}
	p.cycles++

	p.state = StateDetected
	s.Capture("challenge_detected")
	p.log.Warn("bot challenge detected, starting recovery")

	p.state = StateRecovering

	// Wander the pointer across a handful of points. The exact path is
	// irrelevant; the variability is the point.
	moves := 3 + rand.Intn(4)
	for i := 0; i < moves; i++ {
		s.MoveMouse(float64(100+rand.Intn(900)), float64(100+rand.Intn(500)))
		s.PauseBetween(300*time.Millisecond, 800*time.Millisecond)
	}

	scrolls := 2 + rand.Intn(3)
	for i := 0; i < scrolls; i++ {
		s.Wheel(float64(rand.Intn(400) - 200))
		s.PauseBetween(500*time.Millisecond, 1200*time.Millisecond)
	}

	min, max := p.policy.MinPause.Std(), p.policy.MaxPause.Std()
	if min <= 0 {
		min = defaultMinPause
	}
	if max <= min {
		max = min + (defaultMaxPause - defaultMinPause)
	}
	p.log.Infof("cooling down %v-%v before retrying login", min, max)
	s.PauseBetween(min, max)

	if err := s.Goto(loginURL, 60*time.Second); err != nil {
		return fmt.Errorf("re-navigate to login: %w", err)
	}
	s.Capture("recovery_back_at_login")

	p.state = StateRetried
	p.log.Info("recovery complete, one authenticate retry permitted")
	return nil
}
