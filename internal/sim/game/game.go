// Package game assembles the engine components and drives them from one loop.
package game

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"idlecraft.ai/internal/i18n"
	persistlog "idlecraft.ai/internal/persistence/log"
	"idlecraft.ai/internal/persistence/save"
	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/actions"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/clock"
	"idlecraft.ai/internal/sim/conditions"
	"idlecraft.ai/internal/sim/economy"
	"idlecraft.ai/internal/sim/equipment"
	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/sim/inventory"
	"idlecraft.ai/internal/sim/modifiers"
	"idlecraft.ai/internal/sim/shops"
	"idlecraft.ai/internal/sim/skills"
	"idlecraft.ai/internal/sim/tuning"
	"idlecraft.ai/internal/sim/upgrades"
)

// Journal receives every published notification in order.
type Journal interface {
	WriteEvent(e persistlog.EventEntry) error
}

// SaveSink accepts encoded blobs; it must not block.
type SaveSink interface {
	Submit(b save.Blob) bool
}

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Locales  *i18n.Bundle
	Clock    clock.Clock
	Logger   *log.Logger

	// Player is the saved player, nil for a fresh one.
	Player   *save.Player
	Settings save.Settings
}

type Game struct {
	tun   tuning.Tuning
	cats  *catalogs.Catalogs
	clock clock.Clock
	log   *log.Logger
	bus   *events.Bus

	mods      *modifiers.Registry
	ledger    *inventory.Ledger
	skills    *skills.Tracker
	conds     *conditions.Evaluator
	econ      *economy.Engine
	actions   *actions.Engine
	upgrades  *upgrades.Engine
	equipment *equipment.Set
	shops     *shops.Market
	tr        *i18n.Translator

	settings   save.Settings
	lastSaveMs int64
	lastTick   time.Time

	journal Journal
	sink    SaveSink

	inbox  chan Command
	attach chan AttachRequest
	detach chan string
	stop   chan struct{}

	observers map[string]*observer
	seq       uint64

	stats Stats
}

// Stats are counters safe to read from any goroutine.
type Stats struct {
	Ticks        atomic.Uint64
	Commands     atomic.Uint64
	Rejections   atomic.Uint64
	Events       atomic.Uint64
	Saves        atomic.Uint64
	DroppedSends atomic.Uint64
	Observers    atomic.Int64
}

func New(cfg Config) (*Game, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("game: nil catalogs")
	}
	if cfg.Locales == nil {
		return nil, fmt.Errorf("game: nil locales")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}
	if cfg.Tuning.TickRateHz <= 0 {
		return nil, fmt.Errorf("game: tick rate must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	cats := cfg.Catalogs
	tun := cfg.Tuning

	g := &Game{
		tun:       tun,
		cats:      cats,
		clock:     clk,
		log:       logger,
		bus:       events.NewBus(),
		settings:  cfg.Settings,
		inbox:     make(chan Command, 256),
		attach:    make(chan AttachRequest, 16),
		detach:    make(chan string, 16),
		stop:      make(chan struct{}),
		observers: map[string]*observer{},
	}
	g.bus.SubscribeAll(g.onEvent)

	skillIDs := cats.Skills.Order
	g.mods = modifiers.New(g.bus, modifiers.SkillNames(skillIDs))
	g.tr = i18n.NewTranslator(cfg.Locales, g.settings.Language, g.bus, logger)
	g.settings.Language = g.tr.Language()
	g.skills = skills.New(skillIDs, g.mods, g.bus, logger)
	g.conds = conditions.New(g.skills, g.tr, logger)
	g.ledger = inventory.New(cats, tun.InventorySize, g.bus, logger)
	g.econ = economy.New(g.ledger, g.skills, logger)
	g.actions = actions.New(actions.Config{MaxActions: tun.MaxActions, MaxActionsCap: tun.MaxActionsCap},
		cats, g.ledger, g.econ, g.conds, g.skills, clk, g.bus, logger)

	upgradeDefs := make([]catalogs.UpgradeDef, 0, len(cats.Upgrades.Order))
	for _, id := range cats.Upgrades.Order {
		upgradeDefs = append(upgradeDefs, cats.Upgrades.Defs[id])
	}
	g.upgrades = upgrades.New(upgrades.Config{BaseInventorySize: tun.InventorySize, BaseMaxActions: tun.MaxActions},
		upgradeDefs, g.econ, g.ledger, g.actions, g.mods, g.bus, logger)

	g.equipment = equipment.New(cats.ToolSlots(), cats, g.ledger, g.conds, g.bus, logger)

	shopDefs := make([]catalogs.ShopDef, 0, len(cats.Shops.Order))
	for _, id := range cats.Shops.Order {
		shopDefs = append(shopDefs, cats.Shops.Defs[id])
	}
	restock := time.Duration(tun.ShopRestockIntervalMs) * time.Millisecond
	g.shops = shops.New(shopDefs, restock, cats, g.ledger, g.econ, g.conds, clk, logger)

	if cfg.Player != nil {
		g.restore(*cfg.Player)
	} else {
		g.grantStarterItems()
	}
	g.mods.Recompute(g.equipment, g.upgrades)
	g.lastSaveMs = clock.UnixMilli(clk)
	return g, nil
}

func (g *Game) grantStarterItems() {
	for _, it := range g.tun.StarterItems {
		if _, ok := g.cats.Item(it.ItemID); !ok {
			g.log.Printf("game: starter item %q is not in the catalog", it.ItemID)
			continue
		}
		g.ledger.AddItem(it.ItemID, it.Amount)
	}
}

func (g *Game) SetJournal(j Journal)   { g.journal = j }
func (g *Game) SetSaveSink(s SaveSink) { g.sink = s }

// Bus exposes the notification bus for in-process subscribers. Handlers run on
// the loop goroutine.
func (g *Game) Bus() *events.Bus { return g.bus }

func (g *Game) Stats() *Stats { return &g.stats }

func (g *Game) Params() protocol.GameParams {
	return protocol.GameParams{
		TickRateHz:    g.tun.TickRateHz,
		InventorySize: g.ledger.MaxSize(),
		MaxActions:    g.actions.MaxActions(),
		MaxActionsCap: g.tun.MaxActionsCap,
	}
}

func (g *Game) CatalogDigests() protocol.CatalogDigests {
	return protocol.CatalogDigests{
		Items:    g.cats.Items.Digest,
		Skills:   g.cats.Skills.Digest,
		Upgrades: g.cats.Upgrades.Digest,
		Shops:    g.cats.Shops.Digest,
	}
}

// Settings returns the current settings. Not safe while Run is active.
func (g *Game) Settings() save.Settings { return g.settings }

// Read-only component views for tests and tooling. Not safe while Run is active.
func (g *Game) Ledger() *inventory.Ledger      { return g.ledger }
func (g *Game) Skills() *skills.Tracker        { return g.skills }
func (g *Game) Actions() *actions.Engine       { return g.actions }
func (g *Game) Upgrades() *upgrades.Engine     { return g.upgrades }
func (g *Game) Equipment() *equipment.Set      { return g.equipment }
func (g *Game) Shops() *shops.Market           { return g.shops }
func (g *Game) Modifiers() *modifiers.Registry { return g.mods }
