package gomidi_test

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/gomidi"
	"gitlab.com/gomidi/midi/v2"
)

type pendingOff struct {
	d time.Duration
	f func()
}

func TestOutput(t *testing.T) {
	var sent []midi.Message
	var offs []pendingOff
	gain := lumen.NewRamp(1, nil)
	o := gomidi.New(func(m midi.Message) error {
		sent = append(sent, m)
		return nil
	}, gain)
	o.AfterFunc = func(d time.Duration, f func()) { offs = append(offs, pendingOff{d, f}) }

	if err := o.Play(lumen.Kick, 36, 100*time.Millisecond, 1); err != nil {
		t.Fatal(err)
	}
	if err := o.Play(lumen.Lead, 72, time.Second, 0.5); err != nil {
		t.Fatal(err)
	}
	var ch, key, vel uint8
	if !sent[0].GetNoteStart(&ch, &key, &vel) || ch != gomidi.DrumChannel || key != 36 || vel != 127 {
		t.Fatalf("kick sent as %v", sent[0])
	}
	if !sent[1].GetNoteStart(&ch, &key, &vel) || ch != 2 || key != 72 || vel != 64 {
		t.Fatalf("lead sent as %v", sent[1])
	}
	if len(offs) != 2 || offs[1].d != time.Second {
		t.Fatalf("note offs %v", offs)
	}
	offs[0].f()
	if !sent[2].GetNoteEnd(&ch, &key) || ch != gomidi.DrumChannel || key != 36 {
		t.Fatalf("expected kick note off, got %v", sent[2])
	}

	gain.Set(0)
	n := len(sent)
	if err := o.Play(lumen.Bass, 40, time.Second, 1); err != nil {
		t.Fatal(err)
	}
	if len(sent) != n {
		t.Fatal("note sent at zero output gain")
	}

	if err := o.ChangePreset(lumen.Pad, "choir"); err != nil {
		t.Fatal(err)
	}
	var prog uint8
	if !sent[len(sent)-1].GetProgramChange(&ch, &prog) || ch != 0 || prog != 52 {
		t.Fatalf("program change sent as %v", sent[len(sent)-1])
	}
	if err := o.ChangePreset(lumen.Pad, "909"); !lumen.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestOverlappingNotesReleaseOnce(t *testing.T) {
	var offs []func()
	var noteOffs int
	o := gomidi.New(func(m midi.Message) error {
		var ch, key uint8
		if m.GetNoteEnd(&ch, &key) {
			noteOffs++
		}
		return nil
	}, nil)
	o.AfterFunc = func(_ time.Duration, f func()) { offs = append(offs, f) }
	o.Play(lumen.Arp, 60, time.Second, 1)
	o.Play(lumen.Arp, 60, time.Second, 1)
	offs[0]()
	if noteOffs != 0 {
		t.Fatal("first release cut the retriggered note")
	}
	offs[1]()
	if noteOffs != 1 {
		t.Fatalf("%d note offs, want 1", noteOffs)
	}
}

func TestNoteOffsAfterCloseAreDropped(t *testing.T) {
	var offs []func()
	var sent []midi.Message
	o := gomidi.New(func(m midi.Message) error {
		sent = append(sent, m)
		return nil
	}, nil)
	o.AfterFunc = func(_ time.Duration, f func()) { offs = append(offs, f) }
	if err := o.Play(lumen.Bass, 40, time.Second, 1); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	n := len(sent)
	offs[0]()
	if len(sent) != n {
		t.Fatalf("note off sent after Close: %v", sent[n:])
	}
}

func TestFailedNoteOffIsLogged(t *testing.T) {
	var offs []func()
	var logged bytes.Buffer
	o := gomidi.New(func(m midi.Message) error {
		var ch, key uint8
		if m.GetNoteEnd(&ch, &key) {
			return errors.New("port gone")
		}
		return nil
	}, nil)
	o.AfterFunc = func(_ time.Duration, f func()) { offs = append(offs, f) }
	o.Logger = log.New(&logged, "", 0)
	if err := o.Play(lumen.Lead, 72, time.Second, 1); err != nil {
		t.Fatal(err)
	}
	offs[0]()
	if !strings.Contains(logged.String(), "port gone") {
		t.Fatalf("note off failure not logged: %q", logged.String())
	}
}
