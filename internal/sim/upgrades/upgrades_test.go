package upgrades

import (
	"math"
	"testing"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/economy"
	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/sim/inventory"
	"idlecraft.ai/internal/sim/modifiers"
)

type fakeMulti struct {
	max, cap int
}

func (f *fakeMulti) SetMaxActions(n int) error {
	if n < 1 || n > f.cap {
		return protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "bad max %d", n)
	}
	f.max = n
	return nil
}

func (f *fakeMulti) MaxActionsCap() int { return f.cap }

type fixture struct {
	eng    *Engine
	ledger *inventory.Ledger
	mods   *modifiers.Registry
	multi  *fakeMulti
	bus    *events.Bus
}

func money(n int) []catalogs.CostDef {
	return []catalogs.CostDef{{Kind: catalogs.CostItem, ItemID: "money", Amount: n}}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	defs := []catalogs.UpgradeDef{
		{ID: "inventorySize", Kind: catalogs.UpgradeInventorySize, LevelCap: 3, Costs: money(1000)},
		{ID: "multitasking", Kind: catalogs.UpgradeMultitasking, LevelCap: 4, Costs: money(5000)},
		{ID: "mining_xp", Kind: catalogs.UpgradeMultiplierXP, LevelCap: 100, Costs: money(1000), Step: 0.01},
		{ID: "mining_duration", Kind: catalogs.UpgradeMultiplierDuration, LevelCap: 100, Costs: money(2000), Step: -0.001},
	}
	cats, err := catalogs.Build([]catalogs.ItemDef{{ID: "money", MaxStack: -1}}, nil, defs, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f := &fixture{bus: events.NewBus(), multi: &fakeMulti{max: 1, cap: 5}}
	f.ledger = inventory.New(cats, 10, f.bus, nil)
	f.mods = modifiers.New(f.bus, modifiers.SkillNames([]string{"mining"}))
	econ := economy.New(f.ledger, nil, nil)
	f.eng = New(Config{BaseInventorySize: 10, BaseMaxActions: 1}, defs, econ, f.ledger, f.multi, f.mods, f.bus, nil)
	return f
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBuy_InventorySize(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddItem("money", 5000)

	if err := f.eng.Buy("inventorySize", 2); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if f.eng.Level("inventorySize") != 2 || f.ledger.MaxSize() != 12 {
		t.Fatalf("level=%d max=%d", f.eng.Level("inventorySize"), f.ledger.MaxSize())
	}
	if f.ledger.Quantity("money") != 3000 {
		t.Fatalf("money: got %d want 3000", f.ledger.Quantity("money"))
	}
}

func TestBuy_BeyondCapRejected(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddItem("money", 10000)
	if err := f.eng.Buy("inventorySize", 2); err != nil {
		t.Fatalf("buy: %v", err)
	}
	err := f.eng.Buy("inventorySize", 2)
	if protocol.CodeOf(err) != protocol.ErrMaxLevel || protocol.ReasonOf(err) != protocol.ReasonMaxLevelReached {
		t.Fatalf("expected max level rejection, got %v", err)
	}
	if f.eng.Level("inventorySize") != 2 || f.ledger.Quantity("money") != 8000 || f.ledger.MaxSize() != 12 {
		t.Fatalf("rejection mutated state: level=%d money=%d max=%d",
			f.eng.Level("inventorySize"), f.ledger.Quantity("money"), f.ledger.MaxSize())
	}
	if err := f.eng.Buy("inventorySize", 1); err != nil {
		t.Fatalf("buy up to cap: %v", err)
	}
}

func TestBuy_HugeLevelsRejected(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddItem("money", 10000)
	if err := f.eng.Buy("inventorySize", 1); err != nil {
		t.Fatalf("buy: %v", err)
	}
	for _, levels := range []int{math.MaxInt, math.MaxInt / 1000} {
		if err := f.eng.Buy("inventorySize", levels); protocol.CodeOf(err) != protocol.ErrMaxLevel {
			t.Fatalf("levels %d: expected max level rejection, got %v", levels, err)
		}
	}
	if f.eng.Level("inventorySize") != 1 || f.ledger.Quantity("money") != 9000 || f.ledger.MaxSize() != 11 {
		t.Fatalf("rejection mutated state: level=%d money=%d max=%d",
			f.eng.Level("inventorySize"), f.ledger.Quantity("money"), f.ledger.MaxSize())
	}
}

func TestBuy_Rejections(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddItem("money", 999)

	if err := f.eng.Buy("inventorySize", 0); protocol.CodeOf(err) != protocol.ErrBadRequest {
		t.Fatalf("levels=0: %v", err)
	}
	if err := f.eng.Buy("teleport", 1); protocol.CodeOf(err) != protocol.ErrInvalidTarget {
		t.Fatalf("unknown: %v", err)
	}
	if err := f.eng.Buy("inventorySize", 1); protocol.CodeOf(err) != protocol.ErrNoResource {
		t.Fatalf("unaffordable: %v", err)
	}
	if f.ledger.Quantity("money") != 999 || f.eng.Level("inventorySize") != 0 {
		t.Fatalf("rejection mutated state")
	}
}

func TestBuy_MultitaskingClampsToCap(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddItem("money", 100000)
	if err := f.eng.Buy("multitasking", 2); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if f.multi.max != 3 {
		t.Fatalf("max actions: got %d want 3", f.multi.max)
	}
	if err := f.eng.Buy("multitasking", 2); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if f.multi.max != 5 {
		t.Fatalf("max actions: got %d want 5", f.multi.max)
	}
}

func TestBuy_MultipliersAreIdempotent(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddItem("money", 100000)
	var applied []events.UpgradePayload
	f.bus.Subscribe(events.UpgradeApplied, func(ev events.Event) {
		applied = append(applied, ev.Data.(events.UpgradePayload))
	})

	for i := 0; i < 3; i++ {
		if err := f.eng.Buy("mining_xp", 1); err != nil {
			t.Fatalf("buy %d: %v", i, err)
		}
	}
	if got := f.mods.Get("mining_xp"); !near(got, 1.03) {
		t.Fatalf("mining_xp: got %v want 1.03", got)
	}
	if err := f.eng.Buy("mining_duration", 5); err != nil {
		t.Fatalf("buy duration: %v", err)
	}
	if got := f.mods.Get("mining_duration"); !near(got, 0.995) {
		t.Fatalf("mining_duration: got %v want 0.995", got)
	}
	if len(applied) != 4 || applied[2].Level != 3 || applied[3].Level != 5 {
		t.Fatalf("notifications: %+v", applied)
	}

	// A full recompute from the engine alone lands on the same values.
	f.mods.Recompute(f.eng)
	if !near(f.mods.Get("mining_xp"), 1.03) || !near(f.mods.Get("mining_duration"), 0.995) {
		t.Fatalf("recompute drifted: %+v", f.mods.Entries())
	}
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddItem("money", 100000)
	if err := f.eng.Buy("inventorySize", 3); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := f.eng.Buy("mining_xp", 4); err != nil {
		t.Fatalf("buy: %v", err)
	}
	saved := f.eng.Snapshot()
	if len(saved) != 4 || saved[0] != (Record{ID: "inventorySize", Level: 3}) || saved[1].Level != 0 {
		t.Fatalf("snapshot: %+v", saved)
	}

	g := newFixture(t)
	g.eng.Restore(append(saved, Record{ID: "ghost", Level: 9}, Record{ID: "multitasking", Level: 99}))
	if g.ledger.MaxSize() != 13 {
		t.Fatalf("max size after restore: %d", g.ledger.MaxSize())
	}
	if g.eng.Level("multitasking") != 4 || g.multi.max != 5 {
		t.Fatalf("multitasking: level=%d max=%d", g.eng.Level("multitasking"), g.multi.max)
	}
	if !near(g.mods.Get("mining_xp"), 1.04) {
		t.Fatalf("mining_xp after restore: %v", g.mods.Get("mining_xp"))
	}

	// Restoring again replaces rather than stacks.
	g.eng.Restore(saved)
	if !near(g.mods.Get("mining_xp"), 1.04) || g.eng.Level("multitasking") != 0 || g.multi.max != 1 {
		t.Fatalf("second restore: xp=%v multi=%d max=%d", g.mods.Get("mining_xp"), g.eng.Level("multitasking"), g.multi.max)
	}
}
