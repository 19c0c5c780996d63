package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoTuning(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 30 {
		t.Fatalf("tick_rate_hz: got %d want 30", tu.TickRateHz)
	}
	if tu.InventorySize != 10 || tu.MaxActions != 1 || tu.MaxActionsCap != 5 {
		t.Fatalf("unexpected capacities: %+v", tu)
	}
	if len(tu.StarterItems) == 0 || tu.StarterItems[0].ItemID != "money" {
		t.Fatalf("expected starter money, got %+v", tu.StarterItems)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 10\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Defaults()
	if tu.TickRateHz != 10 {
		t.Fatalf("tick_rate_hz: got %d want 10", tu.TickRateHz)
	}
	if tu.InventorySize != def.InventorySize || tu.MaxActionsCap != def.MaxActionsCap {
		t.Fatalf("defaults not kept: %+v", tu)
	}
}

func TestLoad_RejectsMaxActionsAboveCap(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("max_actions: 6\nmax_actions_cap: 5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}
