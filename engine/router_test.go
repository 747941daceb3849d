package engine_test

import (
	"testing"
	"time"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/engine"
)

func TestRouter(t *testing.T) {
	a, b := newFake(), newFake()
	r := engine.NewRouter()
	r.Register(lumen.EngineSampler, b)
	r.Register(lumen.EngineSynth, a)
	if r.Selected() != lumen.EngineSampler {
		t.Fatalf("first registered backend should be selected, got %v", r.Selected())
	}
	if err := r.Select(lumen.EngineMIDI); !lumen.IsNotFound(err) {
		t.Fatalf("selecting an unregistered engine: %v", err)
	}
	if r.Selected() != lumen.EngineSampler {
		t.Fatal("failed Select changed the selection")
	}
	r.SetAttenuation(lumen.EngineSampler, 0.5)
	if err := r.Play(lumen.Lead, 60, time.Second, 0.8); err != nil {
		t.Fatal(err)
	}
	if len(b.calls) != 1 || b.calls[0].velocity != 0.4 {
		t.Fatalf("sampler calls %+v", b.calls)
	}
	b.notReady[lumen.Lead] = true
	if err := r.Play(lumen.Lead, 60, time.Second, 0.8); !lumen.IsNotReady(err) {
		t.Fatalf("expected NotReady, got %v", err)
	}
	if len(b.calls) != 1 {
		t.Fatal("note sent to an unready backend")
	}
	if err := r.Select(lumen.EngineSynth); err != nil {
		t.Fatal(err)
	}
	if err := r.Play(lumen.Lead, 60, time.Second, 0.8); err != nil || len(a.calls) != 1 {
		t.Fatalf("synth did not get the note: %v", err)
	}
	if err := r.ChangePreset(lumen.Pad, "glass"); err != nil {
		t.Fatal(err)
	}
	if a.presets[lumen.Pad] != "glass" || b.presets[lumen.Pad] != "glass" {
		t.Fatal("preset not sent to every backend")
	}
	if err := r.ChangePreset(lumen.Pad, "808"); !lumen.IsNotFound(err) {
		t.Fatalf("kit name accepted as a pad preset: %v", err)
	}
}
