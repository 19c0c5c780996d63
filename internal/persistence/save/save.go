// Package save encodes the player and settings blobs.
package save

import (
	"bytes"
	"encoding/json"
	"fmt"

	"idlecraft.ai/internal/sim/actions"
	"idlecraft.ai/internal/sim/equipment"
	"idlecraft.ai/internal/sim/inventory"
	"idlecraft.ai/internal/sim/shops"
	"idlecraft.ai/internal/sim/skills"
	"idlecraft.ai/internal/sim/upgrades"
)

const (
	DefaultLanguage           = "en"
	DefaultTheme              = "dark"
	DefaultAutoSaveIntervalMs = 10000
)

type Settings struct {
	Language           string `json:"language"`
	Theme              string `json:"theme"`
	AutoSaveIntervalMs int64  `json:"autoSaveIntervalMs"`
}

func DefaultSettings() Settings {
	return Settings{
		Language:           DefaultLanguage,
		Theme:              DefaultTheme,
		AutoSaveIntervalMs: DefaultAutoSaveIntervalMs,
	}
}

// Action is the saved form of an active action. Exactly one of GatheringNodeID
// and CraftingRecipeID is set, depending on Kind.
type Action struct {
	StartTime        int64  `json:"startTime"`
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	LoopTarget       int    `json:"loopTarget"`
	LoopCount        int    `json:"loopCount"`
	GatheringNodeID  string `json:"gatheringNodeId,omitempty"`
	CraftingRecipeID string `json:"craftingRecipeId,omitempty"`
	SkillID          string `json:"skillId,omitempty"`
}

type Player struct {
	Inventory []inventory.Slot   `json:"inventory"`
	Equipment []equipment.Record `json:"equipment"`
	Skills    []skills.Skill     `json:"skills"`
	Actions   []Action           `json:"actions"`
	Upgrades  []upgrades.Record  `json:"upgrades"`
	Shops     []shops.Record     `json:"shops"`
}

// normalize replaces nil collections with empty ones so the blob always
// carries every array.
func (p *Player) normalize() {
	if p.Inventory == nil {
		p.Inventory = []inventory.Slot{}
	}
	if p.Equipment == nil {
		p.Equipment = []equipment.Record{}
	}
	if p.Skills == nil {
		p.Skills = []skills.Skill{}
	}
	if p.Actions == nil {
		p.Actions = []Action{}
	}
	if p.Upgrades == nil {
		p.Upgrades = []upgrades.Record{}
	}
	if p.Shops == nil {
		p.Shops = []shops.Record{}
	}
	for i := range p.Shops {
		if p.Shops[i].ItemStates == nil {
			p.Shops[i].ItemStates = []shops.ItemState{}
		}
	}
}

func FromActionRecords(rs []actions.Record) []Action {
	out := make([]Action, 0, len(rs))
	for _, r := range rs {
		a := Action{
			StartTime:  r.StartMs,
			ID:         r.ID,
			Kind:       string(r.Kind),
			LoopTarget: r.LoopTarget,
			LoopCount:  r.LoopCount,
			SkillID:    r.SkillID,
		}
		if r.Kind == actions.Crafting {
			a.CraftingRecipeID = r.ResourceID
		} else {
			a.GatheringNodeID = r.ResourceID
		}
		out = append(out, a)
	}
	return out
}

func ToActionRecords(as []Action) []actions.Record {
	out := make([]actions.Record, 0, len(as))
	for _, a := range as {
		r := actions.Record{
			StartMs:    a.StartTime,
			ID:         a.ID,
			Kind:       actions.Kind(a.Kind),
			LoopTarget: a.LoopTarget,
			LoopCount:  a.LoopCount,
			SkillID:    a.SkillID,
			ResourceID: a.GatheringNodeID,
		}
		if r.Kind == actions.Crafting {
			r.ResourceID = a.CraftingRecipeID
		}
		out = append(out, r)
	}
	return out
}

func EncodePlayer(p Player) ([]byte, error) {
	p.normalize()
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode player: %w", err)
	}
	return b, nil
}

// DecodePlayer parses a player blob. An empty or null blob is an empty player.
func DecodePlayer(b []byte) (Player, error) {
	var p Player
	if !isEmpty(b) {
		if err := json.Unmarshal(b, &p); err != nil {
			return Player{}, fmt.Errorf("decode player: %w", err)
		}
	}
	p.normalize()
	return p, nil
}

func EncodeSettings(s Settings) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return b, nil
}

// DecodeSettings parses a settings blob. Missing fields take their defaults; a
// present zero autosave interval is kept since it disables autosave.
func DecodeSettings(b []byte) (Settings, error) {
	s := DefaultSettings()
	if isEmpty(b) {
		return s, nil
	}
	var raw struct {
		Language           *string `json:"language"`
		Theme              *string `json:"theme"`
		AutoSaveIntervalMs *int64  `json:"autoSaveIntervalMs"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	if raw.Language != nil && *raw.Language != "" {
		s.Language = *raw.Language
	}
	if raw.Theme != nil && *raw.Theme != "" {
		s.Theme = *raw.Theme
	}
	if raw.AutoSaveIntervalMs != nil && *raw.AutoSaveIntervalMs >= 0 {
		s.AutoSaveIntervalMs = *raw.AutoSaveIntervalMs
	}
	return s, nil
}

func isEmpty(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
