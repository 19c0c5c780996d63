package actions

import (
	"io"
	"log"
	"math"
	"time"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/clock"
	"idlecraft.ai/internal/sim/economy"
	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/sim/inventory"
)

type Kind string

const (
	Gathering Kind = "gathering"
	Crafting  Kind = "crafting"
)

type Outcome string

const (
	Started Outcome = "started"
	Stopped Outcome = "stopped"
)

type Content interface {
	Node(id string) (catalogs.GatheringNodeDef, string, bool)
	Recipe(id string) (catalogs.CraftingRecipeDef, string, bool)
}

type Ledger interface {
	IsFull() bool
	CanAccept(grants []inventory.Grant) bool
}

type Economy interface {
	CheckAffordable(costs []catalogs.CostDef, mult int) bool
	ApplyCosts(costs []catalogs.CostDef, mult int) bool
	RefundCosts(costs []catalogs.CostDef, mult int) int
	ApplyRewards(rewards []catalogs.RewardDef, mult int)
}

type Conditions interface {
	CheckAll(cs []catalogs.ConditionDef) bool
	DescribeUnmet(cs []catalogs.ConditionDef) string
}

type Durations interface {
	DurationMultiplier(skillID string) float64
}

// Request asks to start (or toggle off) the action bound to a node or recipe.
type Request struct {
	Kind     Kind
	NodeID   string
	RecipeID string
	Loops    int
}

// Action is one entry of the active set.
type Action struct {
	ID         string
	Kind       Kind
	SkillID    string
	ResourceID string

	StartMs        int64
	BaseDurationMs int64
	LoopTarget     int // 0 loops forever
	LoopCount      int

	Costs      []catalogs.CostDef
	Rewards    []catalogs.RewardDef
	Conditions []catalogs.ConditionDef
}

// Record is the persisted form of an active action.
type Record struct {
	StartMs    int64
	ID         string
	Kind       Kind
	LoopTarget int
	LoopCount  int
	ResourceID string
	SkillID    string
}

// Status is a read-only view of an active action at a point in time.
type Status struct {
	Action
	DurationMs int64
	ElapsedMs  int64
	Percent    float64
}

type Config struct {
	MaxActions    int
	MaxActionsCap int
}

// Engine runs timed actions. It is single-threaded; the game loop owns it.
type Engine struct {
	content Content
	ledger  Ledger
	econ    Economy
	conds   Conditions
	skills  Durations
	clock   clock.Clock
	bus     *events.Bus
	log     *log.Logger

	active     []*Action
	maxActions int
	maxCap     int
}

func New(cfg Config, content Content, ledger Ledger, econ Economy, conds Conditions, skills Durations, clk clock.Clock, bus *events.Bus, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if cfg.MaxActionsCap < 1 {
		cfg.MaxActionsCap = 1
	}
	cfg.MaxActions = min(max(cfg.MaxActions, 1), cfg.MaxActionsCap)
	return &Engine{
		content:    content,
		ledger:     ledger,
		econ:       econ,
		conds:      conds,
		skills:     skills,
		clock:      clk,
		bus:        bus,
		log:        logger,
		maxActions: cfg.MaxActions,
		maxCap:     cfg.MaxActionsCap,
	}
}

func (e *Engine) MaxActions() int    { return e.maxActions }
func (e *Engine) MaxActionsCap() int { return e.maxCap }
func (e *Engine) IsFull() bool       { return len(e.active) >= e.maxActions }
func (e *Engine) Len() int           { return len(e.active) }

// SetMaxActions accepts 1..MaxActionsCap. Lowering the limit does not stop
// running actions; it only blocks new starts.
func (e *Engine) SetMaxActions(n int) error {
	if n < 1 || n > e.maxCap {
		return protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "max actions %d outside 1..%d", n, e.maxCap)
	}
	e.maxActions = n
	return nil
}

// StartAction validates and starts an action, or stops the running action bound
// to the same resource. Every check runs before any mutation.
func (e *Engine) StartAction(req Request) (Outcome, error) {
	a, err := e.resolve(req)
	if err != nil {
		e.log.Printf("actions: start: %v", err)
		return "", err
	}

	if !e.conds.CheckAll(a.Conditions) {
		err := protocol.Reject(protocol.ErrConditions, protocol.ReasonConditionsFailed, "%s", e.conds.DescribeUnmet(a.Conditions))
		e.log.Printf("actions: start %s %q: %v", a.Kind, a.ResourceID, err)
		return "", err
	}

	if cur := e.find(a.Kind, a.ResourceID); cur != nil {
		e.stop(cur)
		return Stopped, nil
	}

	if e.IsFull() {
		err := protocol.Reject(protocol.ErrActionsFull, protocol.ReasonMaxActionsReached, "active=%d max=%d", len(e.active), e.maxActions)
		e.log.Printf("actions: start %s %q: %v", a.Kind, a.ResourceID, err)
		return "", err
	}

	if a.Kind == Crafting {
		if err := e.checkCrafting(a, req.Loops); err != nil {
			e.log.Printf("actions: start %s %q: %v", a.Kind, a.ResourceID, err)
			return "", err
		}
		a.LoopTarget = req.Loops
		e.econ.ApplyCosts(a.Costs, a.LoopTarget)
	}

	a.StartMs = clock.UnixMilli(e.clock)
	e.active = append(e.active, a)
	e.bus.Publish(events.ActionStarted, e.payload(a))
	return Started, nil
}

func (e *Engine) checkCrafting(a *Action, loops int) error {
	if loops < 1 {
		return protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "loops must be >= 1, got %d", loops)
	}
	if e.ledger.IsFull() {
		return protocol.Reject(protocol.ErrInventoryFull, protocol.ReasonInventoryFull, "inventory full")
	}
	if !e.econ.CheckAffordable(a.Costs, loops) {
		return protocol.Reject(protocol.ErrNoResource, protocol.ReasonNotEnoughCurrency, "cannot afford %d x %q", loops, a.ResourceID)
	}
	return nil
}

func (e *Engine) resolve(req Request) (*Action, error) {
	switch req.Kind {
	case Gathering:
		n, skillID, ok := e.content.Node(req.NodeID)
		if !ok {
			return nil, protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown gathering node %q", req.NodeID)
		}
		return &Action{
			ID:             n.ActionID,
			Kind:           Gathering,
			SkillID:        skillID,
			ResourceID:     n.ID,
			BaseDurationMs: n.DurationMs,
			Rewards:        n.Rewards,
			Conditions:     n.Conditions,
		}, nil
	case Crafting:
		r, skillID, ok := e.content.Recipe(req.RecipeID)
		if !ok {
			return nil, protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown crafting recipe %q", req.RecipeID)
		}
		return &Action{
			ID:             r.ActionID,
			Kind:           Crafting,
			SkillID:        skillID,
			ResourceID:     r.ID,
			BaseDurationMs: r.DurationMs,
			Costs:          r.Costs,
			Rewards:        r.Rewards,
			Conditions:     r.Conditions,
		}, nil
	default:
		return nil, protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "unknown action kind %q", req.Kind)
	}
}

// Stop stops the action bound to a resource. Stopping an inactive resource is a no-op.
func (e *Engine) Stop(kind Kind, resourceID string) bool {
	a := e.find(kind, resourceID)
	if a == nil {
		return false
	}
	e.stop(a)
	return true
}

// StopAll stops every active action in start order.
func (e *Engine) StopAll() {
	for len(e.active) > 0 {
		e.stop(e.active[0])
	}
}

func (e *Engine) stop(a *Action) {
	idx := e.index(a)
	if idx < 0 {
		return
	}
	if a.Kind == Crafting && a.LoopTarget > a.LoopCount {
		e.econ.RefundCosts(a.Costs, a.LoopTarget-a.LoopCount)
	}
	e.active = append(e.active[:idx], e.active[idx+1:]...)
	a.LoopCount = 0
	e.bus.Publish(events.ActionStopped, e.payload(a))
}

// Update completes every action whose timer has elapsed. Completion is decided
// against the clock, not the tick delta, so a slow tick never loses time.
func (e *Engine) Update(time.Duration) {
	now := clock.UnixMilli(e.clock)
	due := make([]*Action, 0, len(e.active))
	for _, a := range e.active {
		if now >= a.StartMs+e.duration(a) {
			due = append(due, a)
		}
	}
	for _, a := range due {
		if e.index(a) < 0 {
			continue
		}
		e.complete(a, now)
	}
}

func (e *Engine) complete(a *Action, now int64) {
	if e.ledger.IsFull() || !e.ledger.CanAccept(economy.Grants(a.Rewards, 1)) {
		e.log.Printf("actions: %s %q: inventory cannot take rewards, stopping", a.Kind, a.ResourceID)
		e.stop(a)
		return
	}
	e.econ.ApplyRewards(a.Rewards, 1)
	a.LoopCount++
	e.bus.Publish(events.ActionEnded, e.payload(a))

	if a.LoopTarget == 0 || a.LoopCount < a.LoopTarget {
		a.StartMs = now
		return
	}
	e.stop(a)
}

func (e *Engine) duration(a *Action) int64 {
	mult := 1.0
	if e.skills != nil {
		mult = e.skills.DurationMultiplier(a.SkillID)
	}
	d := int64(math.Round(float64(a.BaseDurationMs) * mult))
	if d < 1 {
		d = 1
	}
	return d
}

func (e *Engine) find(kind Kind, resourceID string) *Action {
	for _, a := range e.active {
		if a.Kind == kind && a.ResourceID == resourceID {
			return a
		}
	}
	return nil
}

func (e *Engine) index(a *Action) int {
	for i, x := range e.active {
		if x == a {
			return i
		}
	}
	return -1
}

func (e *Engine) IsActive(kind Kind, resourceID string) bool {
	return e.find(kind, resourceID) != nil
}

// Active returns the active actions in start order with their progress.
func (e *Engine) Active() []Status {
	now := clock.UnixMilli(e.clock)
	out := make([]Status, 0, len(e.active))
	for _, a := range e.active {
		d := e.duration(a)
		elapsed := max(now-a.StartMs, 0)
		pct := float64(elapsed) / float64(d) * 100
		out = append(out, Status{Action: *a, DurationMs: d, ElapsedMs: elapsed, Percent: min(pct, 100)})
	}
	return out
}

func (e *Engine) payload(a *Action) events.ActionPayload {
	return events.ActionPayload{
		ID:         a.ID,
		Kind:       string(a.Kind),
		SkillID:    a.SkillID,
		ResourceID: a.ResourceID,
		LoopTarget: a.LoopTarget,
		LoopCount:  a.LoopCount,
		StartMs:    a.StartMs,
		DurationMs: e.duration(a),
	}
}

func (e *Engine) Snapshot() []Record {
	out := make([]Record, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, Record{
			StartMs:    a.StartMs,
			ID:         a.ID,
			Kind:       a.Kind,
			LoopTarget: a.LoopTarget,
			LoopCount:  a.LoopCount,
			ResourceID: a.ResourceID,
			SkillID:    a.SkillID,
		})
	}
	return out
}

// Restore replaces the active set with saved records. Records naming unknown
// content, duplicating a resource or exceeding MaxActions are dropped; a dropped
// crafting record refunds its unconsumed loops since they were paid at start.
func (e *Engine) Restore(records []Record) {
	e.active = nil
	for _, r := range records {
		a, err := e.resolve(Request{Kind: r.Kind, NodeID: r.ResourceID, RecipeID: r.ResourceID})
		if err != nil {
			e.log.Printf("actions: restore: %v", err)
			continue
		}
		if a.Kind == Crafting && (r.LoopTarget < 1 || r.LoopCount >= r.LoopTarget) {
			e.log.Printf("actions: restore: crafting %q has loops %d/%d", a.ResourceID, r.LoopCount, r.LoopTarget)
			continue
		}
		if a.Kind == Gathering {
			r.LoopTarget = 0
		}
		a.StartMs = r.StartMs
		a.LoopTarget = r.LoopTarget
		a.LoopCount = max(r.LoopCount, 0)

		if e.find(a.Kind, a.ResourceID) != nil || e.IsFull() {
			e.log.Printf("actions: restore: dropping %s %q (duplicate or over capacity)", a.Kind, a.ResourceID)
			if a.Kind == Crafting {
				e.econ.RefundCosts(a.Costs, a.LoopTarget-a.LoopCount)
			}
			continue
		}
		e.active = append(e.active, a)
	}
}
