package economy

import (
	"math"
	"testing"

	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/sim/inventory"
	"idlecraft.ai/internal/sim/modifiers"
	"idlecraft.ai/internal/sim/skills"
)

type fixture struct {
	ledger *inventory.Ledger
	skills *skills.Tracker
	mods   *modifiers.Registry
	eng    *Engine
}

func newFixture(t *testing.T, slots int) fixture {
	t.Helper()
	c, err := catalogs.Build([]catalogs.ItemDef{
		{ID: "money", MaxStack: -1},
		{ID: "copperOre"},
		{ID: "tinOre"},
		{ID: "bronzeIngot"},
	}, []catalogs.SkillDef{{ID: "smithing"}}, nil, nil)
	if err != nil {
		t.Fatalf("build catalogs: %v", err)
	}
	bus := events.NewBus()
	mods := modifiers.New(bus, modifiers.SkillNames([]string{"smithing"}))
	tr := skills.New([]string{"smithing"}, mods, bus, nil)
	l := inventory.New(c, slots, bus, nil)
	return fixture{ledger: l, skills: tr, mods: mods, eng: New(l, tr, nil)}
}

var bronzeCosts = []catalogs.CostDef{
	{Kind: catalogs.CostItem, ItemID: "copperOre", Amount: 1},
	{Kind: catalogs.CostItem, ItemID: "tinOre", Amount: 1},
}

func TestAffordability(t *testing.T) {
	f := newFixture(t, 10)
	f.ledger.AddItem("copperOre", 5)
	f.ledger.AddItem("tinOre", 3)

	if !f.eng.CheckAffordable(bronzeCosts, 3) {
		t.Fatalf("expected 3 to be affordable")
	}
	if f.eng.CheckAffordable(bronzeCosts, 4) {
		t.Fatalf("expected 4 to be unaffordable")
	}
	if got := f.eng.MaxAffordable(bronzeCosts); got != 3 {
		t.Fatalf("MaxAffordable: got %d want 3", got)
	}
	if got := f.eng.MaxAffordable(nil); got != 0 {
		t.Fatalf("MaxAffordable(empty): got %d want 0", got)
	}
	unknown := []catalogs.CostDef{{Kind: "favor", ItemID: "copperOre", Amount: 1}}
	if f.eng.CheckAffordable(unknown, 1) || f.eng.MaxAffordable(unknown) != 0 {
		t.Fatalf("expected unknown cost kind to be unpayable")
	}
}

func TestApplyAndRefundConserve(t *testing.T) {
	f := newFixture(t, 10)
	f.ledger.AddItem("copperOre", 5)
	f.ledger.AddItem("tinOre", 5)

	if f.eng.ApplyCosts(bronzeCosts, 6) {
		t.Fatalf("expected unaffordable apply to fail")
	}
	if f.ledger.Quantity("copperOre") != 5 || f.ledger.Quantity("tinOre") != 5 {
		t.Fatalf("failed apply must not mutate")
	}

	if !f.eng.ApplyCosts(bronzeCosts, 4) {
		t.Fatalf("apply failed")
	}
	if f.ledger.Quantity("copperOre") != 1 || f.ledger.Quantity("tinOre") != 1 {
		t.Fatalf("after apply: copper=%d tin=%d", f.ledger.Quantity("copperOre"), f.ledger.Quantity("tinOre"))
	}
	if got := f.eng.RefundCosts(bronzeCosts, 4); got != 8 {
		t.Fatalf("refund credited %d want 8", got)
	}
	if f.ledger.Quantity("copperOre") != 5 || f.ledger.Quantity("tinOre") != 5 {
		t.Fatalf("after refund: copper=%d tin=%d", f.ledger.Quantity("copperOre"), f.ledger.Quantity("tinOre"))
	}
}

func TestAffordability_OverflowIsUnpayable(t *testing.T) {
	f := newFixture(t, 10)
	f.ledger.AddItem("copperOre", 5)
	double := []catalogs.CostDef{{Kind: catalogs.CostItem, ItemID: "copperOre", Amount: 2}}

	if f.eng.CheckAffordable(double, math.MaxInt/2+1) {
		t.Fatalf("expected overflowing multiple to be unaffordable")
	}
	if f.eng.CheckAffordable(bronzeCosts, math.MaxInt) {
		t.Fatalf("expected MaxInt multiple to be unaffordable")
	}
	if f.eng.ApplyCosts(double, math.MaxInt/2+1) {
		t.Fatalf("expected overflowing apply to fail")
	}
	if got := f.ledger.Quantity("copperOre"); got != 5 {
		t.Fatalf("copperOre: got %d want 5", got)
	}
	if got := f.eng.RefundCosts(double, math.MaxInt/2+1); got != 0 {
		t.Fatalf("overflowing refund credited %d", got)
	}
}

func TestApplyRewards_ScalesXPAndTracksLifetime(t *testing.T) {
	f := newFixture(t, 10)
	f.mods.Adjust("smithing_xp", 0.5)

	rewards := []catalogs.RewardDef{
		{Kind: catalogs.RewardSkillXP, SkillID: "smithing", Amount: 2},
		{Kind: catalogs.RewardItem, ItemID: "bronzeIngot", Amount: 1},
	}
	f.eng.ApplyRewards(rewards, 1)
	f.eng.ApplyRewards(rewards, 1)

	s, _ := f.skills.Get("smithing")
	// 6 xp total: level 1 needs 4, so level 2 with 2 left over.
	if s.Level != 2 || s.XP != 2 {
		t.Fatalf("skill: %+v", s)
	}
	if f.ledger.Quantity("bronzeIngot") != 2 {
		t.Fatalf("ingots: got %d", f.ledger.Quantity("bronzeIngot"))
	}
	if f.eng.Lifetime(rewards[0]) != 6 || f.eng.Lifetime(rewards[1]) != 2 {
		t.Fatalf("lifetime: xp=%v items=%v", f.eng.Lifetime(rewards[0]), f.eng.Lifetime(rewards[1]))
	}
}

func TestGrants(t *testing.T) {
	g := Grants([]catalogs.RewardDef{
		{Kind: catalogs.RewardSkillXP, SkillID: "smithing", Amount: 5},
		{Kind: catalogs.RewardItem, ItemID: "bronzeIngot", Amount: 2},
	}, 3)
	if len(g) != 1 || g[0].ItemID != "bronzeIngot" || g[0].Amount != 6 {
		t.Fatalf("unexpected grants: %+v", g)
	}
}
