package engine_test

import (
	"context"
	"testing"
	"time"
)

func TestDaemonIsIgnoredWhenStopped(t *testing.T) {
	r := newRig(t)
	r.daemon.Evolve()
	r.daemon.Ambience()
	r.player.ProcessMessages()
	s := r.engine.State()
	if s.PreviousScale != "" || s.Ambience != 0.2 {
		t.Fatalf("daemon changed a stopped session: %+v", s)
	}
}

func TestDaemonEvolvesPlayingSession(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	r.pulses(1)
	r.daemon.Evolve()
	r.daemon.Ambience()
	r.pulses(1)
	s := r.engine.State()
	if s.PreviousScale != "minor" {
		t.Fatalf("evolution not applied: %+v", s)
	}
	if s.Ambience < 0.1 || s.Ambience > 0.6 {
		t.Fatalf("ambience %v outside 0.1..0.6", s.Ambience)
	}
	if s.Pulse != 2 || !s.Playing {
		t.Fatalf("clock disturbed: %+v", s)
	}
}

func TestChaosOnlyWhenEnabled(t *testing.T) {
	r := newRig(t)
	r.daemon.ChaosTick()
	if n := len(r.broker.ToPlayer); n != 0 {
		t.Fatalf("chaos off posted %d messages", n)
	}
	r.engine.SetChaosMode(true)
	r.player.ProcessMessages()
	if !r.engine.State().Chaos || !r.daemon.Chaos() {
		t.Fatal("chaos mode not enabled")
	}
	for range 20 {
		r.daemon.ChaosTick()
		n := len(r.broker.ToPlayer)
		if n < 1 || n > 2 {
			t.Fatalf("chaos tick posted %d messages, want 1 or 2", n)
		}
		r.player.ProcessMessages()
	}
	if s := r.engine.State(); s.PreviousScale != "" || s.TargetBPM != 120 {
		t.Fatalf("chaos changed a stopped session: %+v", s)
	}
	r.engine.Start()
	r.pulses(1)
	for range 50 {
		r.daemon.ChaosTick()
		r.pulses(1)
	}
	if s := r.engine.State(); !s.Playing || s.Pulse != 51 {
		t.Fatalf("chaos disturbed the transport: %+v", s)
	}
}

func TestRunWaitsForDaemon(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.engine.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	select {
	case <-r.broker.FinishedDaemon:
	default:
		t.Fatal("Run returned before the daemon exited")
	}
}
