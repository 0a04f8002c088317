package recovery

import (
	"errors"
	"testing"
	"time"

	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/runlog"
)

// fakePager records the choreography without a browser. Pauses run at
// full speed.
type fakePager struct {
	captures []string
	moves    int
	wheels   int
	gotos    []string
	gotoErr  error
}

func (f *fakePager) Capture(label string) string {
	f.captures = append(f.captures, label)
	return label + ".png"
}
func (f *fakePager) MoveMouse(x, y float64)              { f.moves++ }
func (f *fakePager) Wheel(dy float64)                    { f.wheels++ }
func (f *fakePager) PauseBetween(min, max time.Duration) {}
func (f *fakePager) Goto(url string, _ time.Duration) error {
	f.gotos = append(f.gotos, url)
	return f.gotoErr
}

func enabledPolicy() models.RecoveryPolicy {
	return models.RecoveryPolicy{
		Enabled:  true,
		MinPause: models.Duration(time.Millisecond),
		MaxPause: models.Duration(2 * time.Millisecond),
	}
}

func TestRun_OneFullCycle(t *testing.T) {
	p := New(enabledPolicy(), runlog.Discard())
	fake := &fakePager{}

	if p.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", p.State())
	}

	if err := p.Run(fake, "https://portal.example/login"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if p.State() != StateRetried {
		t.Errorf("state after Run() = %v, want retried", p.State())
	}
	if fake.moves < 3 || fake.moves > 6 {
		t.Errorf("pointer moves = %d, want 3-6", fake.moves)
	}
	if fake.wheels < 2 || fake.wheels > 4 {
		t.Errorf("scrolls = %d, want 2-4", fake.wheels)
	}
	if len(fake.gotos) != 1 || fake.gotos[0] != "https://portal.example/login" {
		t.Errorf("gotos = %v, want one navigation back to login", fake.gotos)
	}
}

func TestRun_SecondCycleRefused(t *testing.T) {
	p := New(enabledPolicy(), runlog.Discard())
	fake := &fakePager{}

	if err := p.Run(fake, "https://portal.example/login"); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	movesAfterFirst := fake.moves

	err := p.Run(fake, "https://portal.example/login")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("second Run() error = %v, want ErrExhausted", err)
	}
	if fake.moves != movesAfterFirst {
		t.Error("second Run() touched the page despite being exhausted")
	}
	if !p.Exhausted() {
		t.Error("Exhausted() = false after a completed cycle")
	}
}

func TestRun_DisabledPolicy(t *testing.T) {
	p := New(models.RecoveryPolicy{Enabled: false}, runlog.Discard())
	fake := &fakePager{}

	if err := p.Run(fake, "https://portal.example/login"); err == nil {
		t.Fatal("Run() with disabled policy succeeded, want error")
	}
	if fake.moves != 0 && len(fake.gotos) != 0 {
		t.Error("Run() with disabled policy touched the page")
	}
}

func TestRun_NavigationFailure(t *testing.T) {
	p := New(enabledPolicy(), runlog.Discard())
	fake := &fakePager{gotoErr: errors.New("net::ERR_CONNECTION_RESET")}

	if err := p.Run(fake, "https://portal.example/login"); err == nil {
		t.Fatal("Run() succeeded despite navigation failure")
	}
	// The cycle is still spent: navigation failure is not a free retry.
	if !p.Exhausted() {
		t.Error("Exhausted() = false after failed cycle")
	}
}
