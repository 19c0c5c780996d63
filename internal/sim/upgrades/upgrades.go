package upgrades

import (
	"io"
	"log"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/events"
)

type Economy interface {
	CheckAffordable(costs []catalogs.CostDef, mult int) bool
	ApplyCosts(costs []catalogs.CostDef, mult int) bool
}

type Capacity interface {
	SetMaxSize(n int)
}

type Multitasking interface {
	SetMaxActions(n int) error
	MaxActionsCap() int
}

type Modifiers interface {
	Adjust(name string, delta float64) bool
}

// Record is the persisted level of one upgrade.
type Record struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

type Config struct {
	BaseInventorySize int
	BaseMaxActions    int
}

// Engine owns upgrade levels and keeps their effects applied. Applying is
// idempotent: the effect of the current level is removed before the new level's
// effect is added.
type Engine struct {
	cfg    Config
	order  []string
	defs   map[string]catalogs.UpgradeDef
	levels map[string]int

	econ  Economy
	inv   Capacity
	multi Multitasking
	mods  Modifiers
	bus   *events.Bus
	log   *log.Logger
}

func New(cfg Config, defs []catalogs.UpgradeDef, econ Economy, inv Capacity, multi Multitasking, mods Modifiers, bus *events.Bus, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	e := &Engine{
		cfg:    cfg,
		defs:   make(map[string]catalogs.UpgradeDef, len(defs)),
		levels: make(map[string]int, len(defs)),
		econ:   econ,
		inv:    inv,
		multi:  multi,
		mods:   mods,
		bus:    bus,
		log:    logger,
	}
	for _, d := range defs {
		if _, dup := e.defs[d.ID]; dup {
			continue
		}
		e.order = append(e.order, d.ID)
		e.defs[d.ID] = d
	}
	return e
}

func (e *Engine) Level(id string) int { return e.levels[id] }

// Buy raises an upgrade by levels, paying the per-level cost levels times.
func (e *Engine) Buy(id string, levels int) error {
	if levels < 1 {
		return e.reject(protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "levels must be >= 1, got %d", levels))
	}
	d, ok := e.defs[id]
	if !ok {
		return e.reject(protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown upgrade %q", id))
	}
	cur := e.levels[id]
	if levels > d.LevelCap-cur {
		return e.reject(protocol.Reject(protocol.ErrMaxLevel, protocol.ReasonMaxLevelReached, "%q at %d, cap %d", id, cur, d.LevelCap))
	}
	if !e.econ.CheckAffordable(d.Costs, levels) {
		return e.reject(protocol.Reject(protocol.ErrNoResource, protocol.ReasonNotEnoughCurrency, "cannot afford %d levels of %q", levels, id))
	}

	e.unapply(d, cur)
	e.levels[id] = cur + levels
	e.econ.ApplyCosts(d.Costs, levels)
	e.apply(d, cur+levels)
	e.bus.Publish(events.UpgradeApplied, events.UpgradePayload{ID: id, Level: cur + levels})
	return nil
}

func (e *Engine) reject(err *protocol.Rejection) error {
	e.log.Printf("upgrades: buy: %v", err)
	return err
}

func (e *Engine) unapply(d catalogs.UpgradeDef, level int) {
	switch d.Kind {
	case catalogs.UpgradeMultiplierXP, catalogs.UpgradeMultiplierDuration:
		if level > 0 && e.mods != nil {
			e.mods.Adjust(d.ID, -d.Step*float64(level))
		}
	}
}

func (e *Engine) apply(d catalogs.UpgradeDef, level int) {
	switch d.Kind {
	case catalogs.UpgradeInventorySize:
		if e.inv != nil {
			e.inv.SetMaxSize(e.cfg.BaseInventorySize + level)
		}
	case catalogs.UpgradeMultitasking:
		if e.multi != nil {
			n := min(e.cfg.BaseMaxActions+level, e.multi.MaxActionsCap())
			if err := e.multi.SetMaxActions(n); err != nil {
				e.log.Printf("upgrades: multitasking: %v", err)
			}
		}
	case catalogs.UpgradeMultiplierXP, catalogs.UpgradeMultiplierDuration:
		if level > 0 && e.mods != nil {
			e.mods.Adjust(d.ID, d.Step*float64(level))
		}
	default:
		e.log.Printf("upgrades: unknown kind %q", d.Kind)
	}
}

// Contribute reports the multiplier upgrades to a modifier recompute.
func (e *Engine) Contribute(add func(name string, delta float64)) {
	for _, id := range e.order {
		d := e.defs[id]
		lvl := e.levels[id]
		if lvl == 0 {
			continue
		}
		switch d.Kind {
		case catalogs.UpgradeMultiplierXP, catalogs.UpgradeMultiplierDuration:
			add(d.ID, d.Step*float64(lvl))
		}
	}
}

// Snapshot lists every upgrade in catalog order, including level 0.
func (e *Engine) Snapshot() []Record {
	out := make([]Record, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, Record{ID: id, Level: e.levels[id]})
	}
	return out
}

// Restore loads saved levels, clamped to 0..cap, and re-applies every effect.
// Unknown ids are skipped.
func (e *Engine) Restore(saved []Record) {
	next := make(map[string]int, len(e.order))
	for _, r := range saved {
		d, ok := e.defs[r.ID]
		if !ok {
			e.log.Printf("upgrades: restore: unknown upgrade %q", r.ID)
			continue
		}
		next[r.ID] = min(max(r.Level, 0), d.LevelCap)
	}
	for _, id := range e.order {
		d := e.defs[id]
		e.unapply(d, e.levels[id])
		e.levels[id] = next[id]
		e.apply(d, next[id])
	}
}
