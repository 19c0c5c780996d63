package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	InventorySize int `yaml:"inventory_size"`
	MaxActions    int `yaml:"max_actions"`
	MaxActionsCap int `yaml:"max_actions_cap"`

	ShopRestockIntervalMs int64 `yaml:"shop_restock_interval_ms"`
	AutosaveIntervalMs    int64 `yaml:"autosave_interval_ms"`

	StarterItems []ItemGrant `yaml:"starter_items"`
}

type ItemGrant struct {
	ItemID string `yaml:"item_id"`
	Amount int    `yaml:"amount"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:       "1.0",
		TickRateHz:            30,
		InventorySize:         10,
		MaxActions:            1,
		MaxActionsCap:         5,
		ShopRestockIntervalMs: 60 * 60 * 1000,
		AutosaveIntervalMs:    10000,
	}
}

// Load reads a tuning file on top of Defaults. Zero or missing values keep the default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	var f Tuning
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.merge(f)
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) merge(f Tuning) {
	if f.ProtocolVersion != "" {
		t.ProtocolVersion = f.ProtocolVersion
	}
	if f.TickRateHz > 0 {
		t.TickRateHz = f.TickRateHz
	}
	if f.InventorySize > 0 {
		t.InventorySize = f.InventorySize
	}
	if f.MaxActions > 0 {
		t.MaxActions = f.MaxActions
	}
	if f.MaxActionsCap > 0 {
		t.MaxActionsCap = f.MaxActionsCap
	}
	if f.ShopRestockIntervalMs > 0 {
		t.ShopRestockIntervalMs = f.ShopRestockIntervalMs
	}
	if f.AutosaveIntervalMs > 0 {
		t.AutosaveIntervalMs = f.AutosaveIntervalMs
	}
	if len(f.StarterItems) > 0 {
		t.StarterItems = f.StarterItems
	}
}

func (t Tuning) Validate() error {
	if t.MaxActions > t.MaxActionsCap {
		return fmt.Errorf("max_actions %d exceeds max_actions_cap %d", t.MaxActions, t.MaxActionsCap)
	}
	for _, g := range t.StarterItems {
		if g.ItemID == "" || g.Amount <= 0 {
			return fmt.Errorf("bad starter item %q x%d", g.ItemID, g.Amount)
		}
	}
	return nil
}
