package skills

import (
	"io"
	"log"
	"math"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/sim/modifiers"
)

// Multipliers is the read side of the modifier registry.
type Multipliers interface {
	Get(name string) float64
}

type Skill struct {
	ID    string  `json:"id"`
	Level int     `json:"level"`
	XP    float64 `json:"xp"`
}

// MaxXP is the experience needed to leave level.
func MaxXP(level int) float64 {
	v := float64(level * 2)
	return v * v
}

// Tracker owns skill levels and experience. For every skill 1 <= Level and
// 0 <= XP < MaxXP(Level).
type Tracker struct {
	order  []string
	skills map[string]*Skill
	mods   Multipliers
	bus    *events.Bus
	log    *log.Logger
}

func New(skillIDs []string, mods Multipliers, bus *events.Bus, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	t := &Tracker{
		skills: make(map[string]*Skill, len(skillIDs)),
		mods:   mods,
		bus:    bus,
		log:    logger,
	}
	for _, id := range skillIDs {
		if _, dup := t.skills[id]; dup {
			continue
		}
		t.order = append(t.order, id)
		t.skills[id] = &Skill{ID: id, Level: 1}
	}
	return t
}

func (t *Tracker) Get(id string) (Skill, bool) {
	s, ok := t.skills[id]
	if !ok {
		return Skill{}, false
	}
	return *s, true
}

// Level returns the skill level, or 0 for an unknown skill.
func (t *Tracker) Level(id string) int {
	if s, ok := t.skills[id]; ok {
		return s.Level
	}
	return 0
}

func (t *Tracker) XPMultiplier(id string) float64 {
	if t.mods == nil {
		return modifiers.Base
	}
	return t.mods.Get(modifiers.XPName(id))
}

func (t *Tracker) DurationMultiplier(id string) float64 {
	if t.mods == nil {
		return modifiers.Base
	}
	return t.mods.Get(modifiers.DurationName(id))
}

// AddXP credits amount to a skill, levelling up as many times as the amount
// allows and carrying the surplus. One leveledUp notification is published per
// level gained, followed by a single xpAdded carrying the original amount.
func (t *Tracker) AddXP(id string, amount float64) error {
	s, ok := t.skills[id]
	if !ok {
		t.log.Printf("skills: add xp: unknown skill %q", id)
		return protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown skill %q", id)
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		t.log.Printf("skills: add xp %q: invalid amount %v", id, amount)
		return protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "invalid xp amount %v", amount)
	}

	var levels []int
	xp := s.XP + amount
	for xp >= MaxXP(s.Level) {
		xp -= MaxXP(s.Level)
		s.Level++
		levels = append(levels, s.Level)
	}
	s.XP = xp

	for _, lvl := range levels {
		t.bus.Publish(events.LeveledUp, events.LeveledUpPayload{SkillID: id, Level: lvl})
	}
	t.bus.Publish(events.XPAdded, events.XPAddedPayload{SkillID: id, Amount: amount, Level: s.Level, XP: s.XP})
	return nil
}

func (t *Tracker) Snapshot() []Skill {
	out := make([]Skill, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.skills[id])
	}
	return out
}

// Restore loads saved skills. Unknown ids are skipped and out of range values are
// normalized: level below 1 becomes 1 and surplus xp is carried into levels.
func (t *Tracker) Restore(saved []Skill) {
	for _, sv := range saved {
		s, ok := t.skills[sv.ID]
		if !ok {
			t.log.Printf("skills: restore: unknown skill %q", sv.ID)
			continue
		}
		s.Level = max(sv.Level, 1)
		s.XP = sv.XP
		if s.XP < 0 || math.IsNaN(s.XP) || math.IsInf(s.XP, 0) {
			s.XP = 0
		}
		for s.XP >= MaxXP(s.Level) {
			s.XP -= MaxXP(s.Level)
			s.Level++
		}
	}
}
