package skills

import (
	"testing"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/sim/modifiers"
)

func TestMaxXP(t *testing.T) {
	cases := map[int]float64{1: 4, 2: 16, 3: 36, 10: 400}
	for lvl, want := range cases {
		if got := MaxXP(lvl); got != want {
			t.Fatalf("MaxXP(%d): got %v want %v", lvl, got, want)
		}
	}
}

func TestAddXP_LevelOneByTen(t *testing.T) {
	bus := events.NewBus()
	var seq []events.Type
	var xpNote events.XPAddedPayload
	bus.SubscribeAll(func(ev events.Event) {
		seq = append(seq, ev.Type)
		if p, ok := ev.Data.(events.XPAddedPayload); ok {
			xpNote = p
		}
	})
	tr := New([]string{"fishing"}, nil, bus, nil)

	if err := tr.AddXP("fishing", 10); err != nil {
		t.Fatalf("AddXP: %v", err)
	}
	s, _ := tr.Get("fishing")
	if s.Level != 2 || s.XP != 6 {
		t.Fatalf("got level=%d xp=%v want level=2 xp=6", s.Level, s.XP)
	}
	if len(seq) != 2 || seq[0] != events.LeveledUp || seq[1] != events.XPAdded {
		t.Fatalf("unexpected notifications: %v", seq)
	}
	if xpNote.Amount != 10 {
		t.Fatalf("xpAdded amount: got %v want 10", xpNote.Amount)
	}
}

func TestAddXP_CascadesMultipleLevels(t *testing.T) {
	bus := events.NewBus()
	levels := 0
	bus.Subscribe(events.LeveledUp, func(events.Event) { levels++ })
	tr := New([]string{"mining"}, nil, bus, nil)

	// 4 + 16 + 36 = 56 reaches level 4 exactly.
	if err := tr.AddXP("mining", 57); err != nil {
		t.Fatalf("AddXP: %v", err)
	}
	s, _ := tr.Get("mining")
	if s.Level != 4 || s.XP != 1 || levels != 3 {
		t.Fatalf("got level=%d xp=%v levels=%d", s.Level, s.XP, levels)
	}
}

func TestAddXP_Additive(t *testing.T) {
	a := New([]string{"cooking"}, nil, events.NewBus(), nil)
	b := New([]string{"cooking"}, nil, events.NewBus(), nil)

	for _, x := range []float64{3, 7, 11, 25, 2} {
		if err := a.AddXP("cooking", x); err != nil {
			t.Fatalf("AddXP: %v", err)
		}
	}
	if err := b.AddXP("cooking", 48); err != nil {
		t.Fatalf("AddXP: %v", err)
	}
	sa, _ := a.Get("cooking")
	sb, _ := b.Get("cooking")
	if sa != sb {
		t.Fatalf("split=%+v single=%+v", sa, sb)
	}
}

func TestAddXP_Rejections(t *testing.T) {
	tr := New([]string{"fishing"}, nil, events.NewBus(), nil)
	if err := tr.AddXP("ghost", 1); protocol.CodeOf(err) != protocol.ErrInvalidTarget {
		t.Fatalf("unknown skill: got %v", err)
	}
	if err := tr.AddXP("fishing", -1); protocol.CodeOf(err) != protocol.ErrBadRequest {
		t.Fatalf("negative amount: got %v", err)
	}
	s, _ := tr.Get("fishing")
	if s.Level != 1 || s.XP != 0 {
		t.Fatalf("rejection mutated state: %+v", s)
	}
}

func TestMultipliersFollowRegistry(t *testing.T) {
	mods := modifiers.New(events.NewBus(), modifiers.SkillNames([]string{"fishing"}))
	mods.Adjust("fishing_duration", -0.05)
	tr := New([]string{"fishing"}, mods, events.NewBus(), nil)
	if tr.XPMultiplier("fishing") != 1 {
		t.Fatalf("xp multiplier: got %v", tr.XPMultiplier("fishing"))
	}
	if got := tr.DurationMultiplier("fishing"); got != 0.95 {
		t.Fatalf("duration multiplier: got %v", got)
	}
}

func TestRestore(t *testing.T) {
	tr := New([]string{"fishing", "mining"}, nil, events.NewBus(), nil)
	tr.Restore([]Skill{
		{ID: "fishing", Level: 3, XP: 5},
		{ID: "mining", Level: 0, XP: 5},
		{ID: "ghost", Level: 9},
	})
	got := tr.Snapshot()
	want := []Skill{{ID: "fishing", Level: 3, XP: 5}, {ID: "mining", Level: 2, XP: 1}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v want %+v", got, want)
	}
}
