// Package gametest drives a game through its exported API for black-box tests.
package gametest

import (
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"idlecraft.ai/internal/i18n"
	"idlecraft.ai/internal/persistence/save"
	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/clock"
	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/sim/game"
	"idlecraft.ai/internal/sim/tuning"
)

// Epoch is the fake clock's starting time.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// ConfigsDir locates the repository's configs directory.
func ConfigsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("gametest: cannot locate source file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "configs")
}

// MemorySink keeps the most recent blob per key.
type MemorySink struct {
	Blobs   map[string][]byte
	Submits int
}

func (s *MemorySink) Submit(b save.Blob) bool {
	if s.Blobs == nil {
		s.Blobs = map[string][]byte{}
	}
	s.Blobs[b.Key] = append([]byte(nil), b.Data...)
	s.Submits++
	return true
}

type Options struct {
	Tuning   *tuning.Tuning
	Player   *save.Player
	Settings *save.Settings
	Start    time.Time
}

type Harness struct {
	T      *testing.T
	Cats   *catalogs.Catalogs
	Clock  *clock.Fake
	G      *game.Game
	Sink   *MemorySink
	Events []events.Event

	nextAct int
}

func NewHarness(t *testing.T, opts Options) *Harness {
	t.Helper()
	dir := ConfigsDir(t)

	cats, err := catalogs.Load(dir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	locales, err := i18n.LoadDir(filepath.Join(dir, "locales"))
	if err != nil {
		t.Fatalf("locales: %v", err)
	}
	tun := tuning.Defaults()
	if opts.Tuning != nil {
		tun = *opts.Tuning
	} else if loaded, err := tuning.Load(filepath.Join(dir, "tuning.yaml")); err == nil {
		tun = loaded
	} else {
		t.Fatalf("tuning: %v", err)
	}
	settings := save.DefaultSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	start := opts.Start
	if start.IsZero() {
		start = Epoch
	}

	h := &Harness{T: t, Cats: cats, Clock: clock.NewFake(start), Sink: &MemorySink{}}
	g, err := game.New(game.Config{
		Tuning:   tun,
		Catalogs: cats,
		Locales:  locales,
		Clock:    h.Clock,
		Player:   opts.Player,
		Settings: settings,
	})
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	g.SetSaveSink(h.Sink)
	g.Bus().SubscribeAll(func(ev events.Event) { h.Events = append(h.Events, ev) })
	h.G = g
	return h
}

// Do applies one command in its own tick and returns the result.
func (h *Harness) Do(act protocol.ActMsg) protocol.ResultMsg {
	h.T.Helper()
	h.nextAct++
	if act.ActID == "" {
		act.ActID = fmt.Sprintf("A%d", h.nextAct)
	}
	if act.Type == "" {
		act.Type = protocol.TypeAct
	}
	if act.ProtocolVersion == "" {
		act.ProtocolVersion = protocol.Version
	}
	res := h.G.Step([]protocol.ActMsg{act})
	if len(res) != 1 {
		h.T.Fatalf("expected one result, got %d", len(res))
	}
	return res[0]
}

// MustDo is Do that fails the test on a rejection.
func (h *Harness) MustDo(act protocol.ActMsg) protocol.ResultMsg {
	h.T.Helper()
	res := h.Do(act)
	if !res.OK {
		h.T.Fatalf("%s rejected: %s %s %s", act.Cmd, res.Code, res.Reason, res.Message)
	}
	return res
}

// Advance moves the clock and runs one tick.
func (h *Harness) Advance(d time.Duration) {
	h.Clock.Advance(d)
	h.G.Step(nil)
}

// Count returns how many notifications of type t were published so far.
func (h *Harness) Count(t events.Type) int {
	n := 0
	for _, ev := range h.Events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// Last returns the latest notification of type t.
func (h *Harness) Last(t events.Type) (events.Event, bool) {
	for i := len(h.Events) - 1; i >= 0; i-- {
		if h.Events[i].Type == t {
			return h.Events[i], true
		}
	}
	return events.Event{}, false
}
