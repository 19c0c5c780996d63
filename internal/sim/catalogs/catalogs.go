package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultMaxStack applies to items that do not set max_stack.
const DefaultMaxStack = 999

// Condition kinds.
const (
	ConditionSkillLevel = "skillLevel"
)

// Cost kinds.
const (
	CostItem = "item"
)

// Reward kinds.
const (
	RewardSkillXP = "skillXp"
	RewardItem    = "item"
)

// Upgrade kinds.
const (
	UpgradeInventorySize      = "inventorySize"
	UpgradeMultitasking       = "multitasking"
	UpgradeMultiplierXP       = "multiplierXp"
	UpgradeMultiplierDuration = "multiplierDuration"
)

type Catalogs struct {
	Items    ItemCatalog
	Skills   SkillCatalog
	Upgrades UpgradeCatalog
	Shops    ShopCatalog
}

type ConditionDef struct {
	Kind    string `json:"kind"`
	SkillID string `json:"skill_id,omitempty"`
	Level   int    `json:"level,omitempty"`
}

type CostDef struct {
	Kind   string `json:"kind"`
	ItemID string `json:"item_id"`
	Amount int    `json:"amount"`
}

type RewardDef struct {
	Kind    string `json:"kind"`
	SkillID string `json:"skill_id,omitempty"`
	ItemID  string `json:"item_id,omitempty"`
	Amount  int    `json:"amount"`
}

type ItemCatalog struct {
	Order  []string
	Defs   map[string]ItemDef
	Digest string
}

type ItemDef struct {
	ID          string             `json:"id"`
	Category    string             `json:"category"`
	Type        string             `json:"type"`
	Icon        string             `json:"icon,omitempty"`
	MaxStack    int                `json:"max_stack,omitempty"` // 0: DefaultMaxStack, <0: unlimited
	Multipliers map[string]float64 `json:"multipliers,omitempty"`
	Conditions  []ConditionDef     `json:"conditions,omitempty"`
	Buy         []CostDef          `json:"buy,omitempty"`
	Sell        []RewardDef        `json:"sell,omitempty"`
}

// StackLimit is the largest quantity a single slot of this item may hold.
func (d ItemDef) StackLimit() int {
	switch {
	case d.MaxStack < 0:
		return math.MaxInt
	case d.MaxStack == 0:
		return DefaultMaxStack
	default:
		return d.MaxStack
	}
}

type SkillCatalog struct {
	Order  []string
	Defs   map[string]SkillDef
	Digest string

	nodes   map[string]string
	recipes map[string]string
}

type SkillDef struct {
	ID      string              `json:"id"`
	Icon    string              `json:"icon,omitempty"`
	Nodes   []GatheringNodeDef  `json:"nodes,omitempty"`
	Recipes []CraftingRecipeDef `json:"recipes,omitempty"`
}

type GatheringNodeDef struct {
	ID         string         `json:"id"`
	ActionID   string         `json:"action_id"`
	DurationMs int64          `json:"duration_ms"`
	Conditions []ConditionDef `json:"conditions,omitempty"`
	Rewards    []RewardDef    `json:"rewards"`
}

// CraftingRecipeDef is keyed by the id of the item it produces.
type CraftingRecipeDef struct {
	ID         string         `json:"id"`
	ActionID   string         `json:"action_id"`
	Type       string         `json:"type,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Costs      []CostDef      `json:"costs"`
	Conditions []ConditionDef `json:"conditions,omitempty"`
	Rewards    []RewardDef    `json:"rewards"`
}

type UpgradeCatalog struct {
	Order  []string
	Defs   map[string]UpgradeDef
	Digest string
}

type UpgradeDef struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	LevelCap int       `json:"level_cap"`
	Costs    []CostDef `json:"costs"`
	Step     float64   `json:"step"`
}

type ShopCatalog struct {
	Order  []string
	Defs   map[string]ShopDef
	Digest string
}

type ShopDef struct {
	ID    string        `json:"id"`
	Items []ShopItemDef `json:"items"`
}

type ShopItemDef struct {
	ItemID     string `json:"item_id"`
	CanRestock *bool  `json:"can_restock,omitempty"`
	BaseStock  int    `json:"base_stock,omitempty"`
}

func (s ShopItemDef) Restocks() bool { return s.CanRestock == nil || *s.CanRestock }

func (s ShopItemDef) Stock() int {
	if s.BaseStock <= 0 {
		return 1
	}
	return s.BaseStock
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadSkills(filepath.Join(configDir, "skills.json"), &c.Skills); err != nil {
		return nil, err
	}
	if err := loadUpgrades(filepath.Join(configDir, "upgrades.json"), &c.Upgrades); err != nil {
		return nil, err
	}
	if err := loadShops(filepath.Join(configDir, "shops.json"), &c.Shops); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Build assembles catalogs from in-memory definitions. Digests are computed over the
// JSON encoding of each list.
func Build(items []ItemDef, skills []SkillDef, upgrades []UpgradeDef, shops []ShopDef) (*Catalogs, error) {
	var c Catalogs
	if err := indexItems(items, &c.Items); err != nil {
		return nil, err
	}
	if err := indexSkills(skills, &c.Skills); err != nil {
		return nil, err
	}
	if err := indexUpgrades(upgrades, &c.Upgrades); err != nil {
		return nil, err
	}
	if err := indexShops(shops, &c.Shops); err != nil {
		return nil, err
	}
	c.Items.Digest = digestOf(items)
	c.Skills.Digest = digestOf(skills)
	c.Upgrades.Digest = digestOf(upgrades)
	c.Shops.Digest = digestOf(shops)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func digestOf(v any) string {
	b, _ := json.Marshal(v)
	return sha256Hex(b)
}

func (c *Catalogs) Item(id string) (ItemDef, bool) {
	d, ok := c.Items.Defs[id]
	return d, ok
}

func (c *Catalogs) Skill(id string) (SkillDef, bool) {
	d, ok := c.Skills.Defs[id]
	return d, ok
}

// Node returns a gathering node and the id of the skill that owns it.
func (c *Catalogs) Node(id string) (GatheringNodeDef, string, bool) {
	skillID, ok := c.Skills.nodes[id]
	if !ok {
		return GatheringNodeDef{}, "", false
	}
	for _, n := range c.Skills.Defs[skillID].Nodes {
		if n.ID == id {
			return n, skillID, true
		}
	}
	return GatheringNodeDef{}, "", false
}

// Recipe returns a crafting recipe and the id of the skill that owns it.
func (c *Catalogs) Recipe(id string) (CraftingRecipeDef, string, bool) {
	skillID, ok := c.Skills.recipes[id]
	if !ok {
		return CraftingRecipeDef{}, "", false
	}
	for _, r := range c.Skills.Defs[skillID].Recipes {
		if r.ID == id {
			return r, skillID, true
		}
	}
	return CraftingRecipeDef{}, "", false
}

func (c *Catalogs) Upgrade(id string) (UpgradeDef, bool) {
	d, ok := c.Upgrades.Defs[id]
	return d, ok
}

func (c *Catalogs) Shop(id string) (ShopDef, bool) {
	d, ok := c.Shops.Defs[id]
	return d, ok
}

// ToolSlots lists the distinct item types that carry multipliers, in item order.
// Each one is an equipment slot.
func (c *Catalogs) ToolSlots() []string {
	var out []string
	seen := map[string]bool{}
	for _, id := range c.Items.Order {
		d := c.Items.Defs[id]
		if len(d.Multipliers) == 0 || seen[d.Type] {
			continue
		}
		seen[d.Type] = true
		out = append(out, d.Type)
	}
	return out
}

// Validate checks that every cross reference resolves.
func (c *Catalogs) Validate() error {
	item := func(where, id string) error {
		if _, ok := c.Items.Defs[id]; !ok {
			return fmt.Errorf("%s: unknown item %q", where, id)
		}
		return nil
	}
	skill := func(where, id string) error {
		if _, ok := c.Skills.Defs[id]; !ok {
			return fmt.Errorf("%s: unknown skill %q", where, id)
		}
		return nil
	}
	costs := func(where string, cs []CostDef) error {
		for _, cd := range cs {
			if cd.Kind != CostItem {
				return fmt.Errorf("%s: unknown cost kind %q", where, cd.Kind)
			}
			if cd.Amount <= 0 {
				return fmt.Errorf("%s: cost amount must be positive", where)
			}
			if err := item(where, cd.ItemID); err != nil {
				return err
			}
		}
		return nil
	}
	rewards := func(where string, rs []RewardDef) error {
		for _, r := range rs {
			switch r.Kind {
			case RewardSkillXP:
				if err := skill(where, r.SkillID); err != nil {
					return err
				}
			case RewardItem:
				if err := item(where, r.ItemID); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%s: unknown reward kind %q", where, r.Kind)
			}
			if r.Amount <= 0 {
				return fmt.Errorf("%s: reward amount must be positive", where)
			}
		}
		return nil
	}
	conds := func(where string, cs []ConditionDef) error {
		for _, cd := range cs {
			if cd.Kind == ConditionSkillLevel {
				if err := skill(where, cd.SkillID); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, id := range c.Items.Order {
		d := c.Items.Defs[id]
		where := "items.json " + id
		if err := costs(where, d.Buy); err != nil {
			return err
		}
		if err := rewards(where, d.Sell); err != nil {
			return err
		}
		if err := conds(where, d.Conditions); err != nil {
			return err
		}
	}
	for _, id := range c.Skills.Order {
		s := c.Skills.Defs[id]
		for _, n := range s.Nodes {
			where := "skills.json " + n.ID
			if n.DurationMs <= 0 {
				return fmt.Errorf("%s: duration_ms must be positive", where)
			}
			if err := rewards(where, n.Rewards); err != nil {
				return err
			}
			if err := conds(where, n.Conditions); err != nil {
				return err
			}
		}
		for _, r := range s.Recipes {
			where := "skills.json " + r.ID
			if r.DurationMs <= 0 {
				return fmt.Errorf("%s: duration_ms must be positive", where)
			}
			if err := item(where, r.ID); err != nil {
				return err
			}
			if err := costs(where, r.Costs); err != nil {
				return err
			}
			if err := rewards(where, r.Rewards); err != nil {
				return err
			}
			if err := conds(where, r.Conditions); err != nil {
				return err
			}
		}
	}
	for _, id := range c.Upgrades.Order {
		u := c.Upgrades.Defs[id]
		where := "upgrades.json " + id
		switch u.Kind {
		case UpgradeInventorySize, UpgradeMultitasking, UpgradeMultiplierXP, UpgradeMultiplierDuration:
		default:
			return fmt.Errorf("%s: unknown kind %q", where, u.Kind)
		}
		if u.LevelCap < 1 {
			return fmt.Errorf("%s: level_cap must be >= 1", where)
		}
		if err := costs(where, u.Costs); err != nil {
			return err
		}
	}
	for _, id := range c.Shops.Order {
		for _, it := range c.Shops.Defs[id].Items {
			where := "shops.json " + id
			if err := item(where, it.ItemID); err != nil {
				return err
			}
			if len(c.Items.Defs[it.ItemID].Buy) == 0 {
				return fmt.Errorf("%s: item %q has no buy data", where, it.ItemID)
			}
			if c.Items.Defs[it.ItemID].MaxStack < 0 {
				return fmt.Errorf("%s: item %q has an unlimited stack", where, it.ItemID)
			}
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	return indexItems(defs, out)
}

func indexItems(defs []ItemDef, out *ItemCatalog) error {
	out.Defs = make(map[string]ItemDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %q", d.ID)
		}
		out.Defs[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	return nil
}

func loadSkills(path string, out *SkillCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []SkillDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("skills.json: %w", err)
	}
	return indexSkills(defs, out)
}

func indexSkills(defs []SkillDef, out *SkillCatalog) error {
	out.Defs = make(map[string]SkillDef, len(defs))
	out.nodes = map[string]string{}
	out.recipes = map[string]string{}
	for _, s := range defs {
		if s.ID == "" {
			return fmt.Errorf("skills.json: empty id")
		}
		if _, dup := out.Defs[s.ID]; dup {
			return fmt.Errorf("skills.json: duplicate id %q", s.ID)
		}
		for _, n := range s.Nodes {
			if n.ID == "" {
				return fmt.Errorf("skills.json %s: node with empty id", s.ID)
			}
			if _, dup := out.nodes[n.ID]; dup {
				return fmt.Errorf("skills.json: duplicate node %q", n.ID)
			}
			out.nodes[n.ID] = s.ID
		}
		for _, r := range s.Recipes {
			if r.ID == "" {
				return fmt.Errorf("skills.json %s: recipe with empty id", s.ID)
			}
			if _, dup := out.recipes[r.ID]; dup {
				return fmt.Errorf("skills.json: duplicate recipe %q", r.ID)
			}
			out.recipes[r.ID] = s.ID
		}
		out.Defs[s.ID] = s
		out.Order = append(out.Order, s.ID)
	}
	return nil
}

func loadUpgrades(path string, out *UpgradeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []UpgradeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("upgrades.json: %w", err)
	}
	return indexUpgrades(defs, out)
}

func indexUpgrades(defs []UpgradeDef, out *UpgradeCatalog) error {
	out.Defs = make(map[string]UpgradeDef, len(defs))
	for _, u := range defs {
		if u.ID == "" {
			return fmt.Errorf("upgrades.json: empty id")
		}
		if _, dup := out.Defs[u.ID]; dup {
			return fmt.Errorf("upgrades.json: duplicate id %q", u.ID)
		}
		out.Defs[u.ID] = u
		out.Order = append(out.Order, u.ID)
	}
	return nil
}

func loadShops(path string, out *ShopCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// A game without shops is valid.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			out.Defs = map[string]ShopDef{}
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ShopDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("shops.json: %w", err)
	}
	return indexShops(defs, out)
}

func indexShops(defs []ShopDef, out *ShopCatalog) error {
	out.Defs = make(map[string]ShopDef, len(defs))
	for _, s := range defs {
		if s.ID == "" {
			return fmt.Errorf("shops.json: empty id")
		}
		if _, dup := out.Defs[s.ID]; dup {
			return fmt.Errorf("shops.json: duplicate id %q", s.ID)
		}
		out.Defs[s.ID] = s
		out.Order = append(out.Order, s.ID)
	}
	return nil
}
