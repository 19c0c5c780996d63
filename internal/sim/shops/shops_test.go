package shops

import (
	"testing"
	"time"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/clock"
	"idlecraft.ai/internal/sim/conditions"
	"idlecraft.ai/internal/sim/economy"
	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/sim/inventory"
	"idlecraft.ai/internal/sim/skills"
)

type fixture struct {
	market *Market
	ledger *inventory.Ledger
	clk    *clock.Fake
}

func newFixture(t *testing.T, slots int) *fixture {
	t.Helper()
	no := false
	money := func(n int) []catalogs.CostDef {
		return []catalogs.CostDef{{Kind: catalogs.CostItem, ItemID: "money", Amount: n}}
	}
	cats, err := catalogs.Build([]catalogs.ItemDef{
		{ID: "money", MaxStack: -1},
		{ID: "ore", Sell: []catalogs.RewardDef{{Kind: catalogs.RewardItem, ItemID: "money", Amount: 10}}},
		{ID: "rod", Type: "type_fishingTools", MaxStack: 1, Buy: money(100),
			Sell: []catalogs.RewardDef{{Kind: catalogs.RewardItem, ItemID: "money", Amount: 50}}},
		{ID: "bait", Buy: money(1)},
		{ID: "goldRod", MaxStack: 1, Buy: money(1),
			Conditions: []catalogs.ConditionDef{{Kind: catalogs.ConditionSkillLevel, SkillID: "fishing", Level: 50}}},
	}, []catalogs.SkillDef{{ID: "fishing"}}, nil, []catalogs.ShopDef{{
		ID: "type_fishingTools",
		Items: []catalogs.ShopItemDef{
			{ItemID: "rod", BaseStock: 2},
			{ItemID: "bait", BaseStock: 50, CanRestock: &no},
			{ItemID: "goldRod"},
		},
	}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	bus := events.NewBus()
	f := &fixture{clk: clock.NewFake(time.UnixMilli(1_000_000))}
	tracker := skills.New([]string{"fishing"}, nil, bus, nil)
	f.ledger = inventory.New(cats, slots, bus, nil)
	econ := economy.New(f.ledger, tracker, nil)
	var defs []catalogs.ShopDef
	for _, id := range cats.Shops.Order {
		defs = append(defs, cats.Shops.Defs[id])
	}
	f.market = New(defs, time.Hour, cats, f.ledger, econ, conditions.New(tracker, nil, nil), f.clk, nil)
	return f
}

func (f *fixture) stock(t *testing.T, item string) int {
	t.Helper()
	n, ok := f.market.Stock("type_fishingTools", item)
	if !ok {
		t.Fatalf("no stock entry for %q", item)
	}
	return n
}

func TestBuy(t *testing.T) {
	f := newFixture(t, 10)
	f.ledger.AddItem("money", 250)

	if err := f.market.Buy("type_fishingTools", "rod", 1); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if f.ledger.Quantity("rod") != 1 || f.ledger.Quantity("money") != 150 || f.stock(t, "rod") != 1 {
		t.Fatalf("rod=%d money=%d stock=%d", f.ledger.Quantity("rod"), f.ledger.Quantity("money"), f.stock(t, "rod"))
	}
}

func TestBuy_Rejections(t *testing.T) {
	f := newFixture(t, 10)
	f.ledger.AddItem("money", 1000)

	cases := []struct {
		shop, item string
		n          int
		code       string
	}{
		{"nope", "rod", 1, protocol.ErrInvalidTarget},
		{"type_fishingTools", "ore", 1, protocol.ErrInvalidTarget},
		{"type_fishingTools", "rod", 0, protocol.ErrBadRequest},
		{"type_fishingTools", "rod", 2, protocol.ErrBadRequest},
		{"type_fishingTools", "bait", 51, protocol.ErrOutOfStock},
		{"type_fishingTools", "goldRod", 1, protocol.ErrConditions},
	}
	for _, tc := range cases {
		err := f.market.Buy(tc.shop, tc.item, tc.n)
		if protocol.CodeOf(err) != tc.code {
			t.Fatalf("buy %s/%s x%d: got %v want %s", tc.shop, tc.item, tc.n, err, tc.code)
		}
	}
	if f.ledger.Quantity("money") != 1000 || f.ledger.Size() != 1 {
		t.Fatalf("rejections mutated the ledger")
	}

	g := newFixture(t, 10)
	g.ledger.AddItem("money", 99)
	if err := g.market.Buy("type_fishingTools", "rod", 1); protocol.CodeOf(err) != protocol.ErrNoResource {
		t.Fatalf("unaffordable: %v", err)
	}
	if g.stock(t, "rod") != 2 {
		t.Fatalf("unaffordable buy changed stock")
	}
}

func TestBuy_InventoryFull(t *testing.T) {
	f := newFixture(t, 1)
	f.ledger.AddItem("money", 1000)
	if err := f.market.Buy("type_fishingTools", "rod", 1); protocol.CodeOf(err) != protocol.ErrInventoryFull {
		t.Fatalf("expected inventory full, got %v", err)
	}
}

func TestRestock(t *testing.T) {
	f := newFixture(t, 10)
	f.ledger.AddItem("money", 1000)

	if err := f.market.Buy("type_fishingTools", "rod", 1); err != nil {
		t.Fatalf("buy: %v", err)
	}
	f.clk.Advance(30 * time.Minute)
	if err := f.market.Buy("type_fishingTools", "rod", 1); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := f.market.Buy("type_fishingTools", "bait", 10); err != nil {
		t.Fatalf("buy bait: %v", err)
	}
	if f.stock(t, "rod") != 0 {
		t.Fatalf("expected rods sold out")
	}

	f.clk.Advance(29 * time.Minute)
	f.market.Update(0)
	if f.stock(t, "rod") != 0 {
		t.Fatalf("restocked early")
	}
	f.clk.Advance(time.Minute)
	f.market.Update(0)
	if f.stock(t, "rod") != 2 {
		t.Fatalf("rod stock after restock: %d", f.stock(t, "rod"))
	}
	if f.stock(t, "bait") != 40 {
		t.Fatalf("bait must not restock, got %d", f.stock(t, "bait"))
	}
}

func TestSell(t *testing.T) {
	f := newFixture(t, 10)
	f.ledger.AddItem("ore", 5)

	if err := f.market.Sell("ore", 6); protocol.CodeOf(err) != protocol.ErrNoResource {
		t.Fatalf("oversell: %v", err)
	}
	if err := f.market.Sell("bait", 1); protocol.CodeOf(err) != protocol.ErrBadRequest {
		t.Fatalf("no sell data: %v", err)
	}
	if err := f.market.Sell("ore", 5); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if f.ledger.Quantity("ore") != 0 || f.ledger.Quantity("money") != 50 {
		t.Fatalf("ore=%d money=%d", f.ledger.Quantity("ore"), f.ledger.Quantity("money"))
	}
}

func TestSell_FreesSlotForPayment(t *testing.T) {
	f := newFixture(t, 1)
	f.ledger.AddItem("ore", 3)
	if err := f.market.Sell("ore", 3); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if f.ledger.Quantity("money") != 30 {
		t.Fatalf("money: got %d want 30", f.ledger.Quantity("money"))
	}
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t, 10)
	f.ledger.AddItem("money", 1000)
	if err := f.market.Buy("type_fishingTools", "rod", 1); err != nil {
		t.Fatalf("buy: %v", err)
	}
	saved := f.market.Snapshot()
	if len(saved) != 1 || len(saved[0].ItemStates) != 3 {
		t.Fatalf("snapshot: %+v", saved)
	}
	rod := saved[0].ItemStates[0]
	if rod.ID != "rod" || rod.Stock != 1 || rod.RestockDate != 1_000_000+3_600_000 {
		t.Fatalf("rod state: %+v", rod)
	}

	g := newFixture(t, 10)
	g.market.Restore(append(saved, Record{ID: "ghost"}))
	got := g.market.Snapshot()
	for i := range saved[0].ItemStates {
		if got[0].ItemStates[i] != saved[0].ItemStates[i] {
			t.Fatalf("item %d: got %+v want %+v", i, got[0].ItemStates[i], saved[0].ItemStates[i])
		}
	}
}
