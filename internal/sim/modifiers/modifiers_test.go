package modifiers

import (
	"math"
	"testing"

	"idlecraft.ai/internal/sim/events"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRegistry_GetDefaults(t *testing.T) {
	r := New(events.NewBus(), SkillNames([]string{"fishing"}))
	if got := r.Get("fishing_xp"); got != Base {
		t.Fatalf("fishing_xp: got %v want %v", got, Base)
	}
	if got := r.Get("unknown_xp"); got != Base {
		t.Fatalf("unknown: got %v want %v", got, Base)
	}
	if r.Adjust("unknown_xp", 1) {
		t.Fatalf("expected adjust of untracked name to fail")
	}
}

func TestRegistry_AdjustPublishes(t *testing.T) {
	bus := events.NewBus()
	var got []events.MultiplierPayload
	bus.Subscribe(events.MultipliersApplied, func(ev events.Event) {
		got = append(got, ev.Data.(events.MultiplierPayload))
	})
	r := New(bus, SkillNames([]string{"fishing"}))

	if !r.Adjust("fishing_duration", -0.05) {
		t.Fatalf("adjust failed")
	}
	if !approx(r.Get("fishing_duration"), 0.95) {
		t.Fatalf("fishing_duration: got %v", r.Get("fishing_duration"))
	}
	if len(got) != 1 || got[0].Name != "fishing_duration" || !approx(got[0].Value, 0.95) {
		t.Fatalf("unexpected notifications: %+v", got)
	}
}

func TestRegistry_RecomputeIsRederivable(t *testing.T) {
	bus := events.NewBus()
	notified := 0
	bus.Subscribe(events.MultipliersApplied, func(events.Event) { notified++ })
	r := New(bus, SkillNames([]string{"fishing", "mining"}))

	tool := SourceFunc(func(add func(string, float64)) {
		add("fishing_xp", 0.25)
		add("fishing_duration", -0.05)
	})
	upgrade := SourceFunc(func(add func(string, float64)) {
		add("fishing_xp", 0.03)
		add("not_tracked", 5)
	})

	r.Recompute(tool, upgrade)
	if !approx(r.Get("fishing_xp"), 1.28) || !approx(r.Get("fishing_duration"), 0.95) {
		t.Fatalf("after recompute: %+v", r.Entries())
	}
	if r.Get("mining_xp") != Base {
		t.Fatalf("mining_xp should be untouched")
	}
	if notified != 2 {
		t.Fatalf("notifications: got %d want 2", notified)
	}

	// Drift from a manual adjust is discarded by the next recompute.
	r.Adjust("mining_xp", 3)
	r.Recompute(tool, upgrade)
	if r.Get("mining_xp") != Base {
		t.Fatalf("mining_xp: got %v want %v", r.Get("mining_xp"), Base)
	}

	r.Recompute()
	for _, e := range r.Entries() {
		if e.Value != Base {
			t.Fatalf("%s: got %v want %v", e.Name, e.Value, Base)
		}
	}
}
