package game

import (
	"fmt"

	"idlecraft.ai/internal/persistence/blobstore"
	"idlecraft.ai/internal/persistence/save"
	"idlecraft.ai/internal/sim/clock"
	"idlecraft.ai/internal/sim/events"
)

// Snapshot captures the player state in its saved form.
func (g *Game) Snapshot() save.Player {
	return save.Player{
		Inventory: g.ledger.Slots(),
		Equipment: g.equipment.Snapshot(),
		Skills:    g.skills.Snapshot(),
		Actions:   save.FromActionRecords(g.actions.Snapshot()),
		Upgrades:  g.upgrades.Snapshot(),
		Shops:     g.shops.Snapshot(),
	}
}

// restore loads a saved player. Upgrades go first so capacity limits are in
// place before the inventory and the active actions are loaded.
func (g *Game) restore(p save.Player) {
	g.upgrades.Restore(p.Upgrades)
	g.ledger.Restore(p.Inventory)
	g.skills.Restore(p.Skills)
	g.equipment.Restore(p.Equipment)
	g.mods.Recompute(g.equipment, g.upgrades)
	g.shops.Restore(p.Shops)
	g.actions.Restore(save.ToActionRecords(p.Actions))
}

// Blobs encodes the player and settings for writing.
func (g *Game) Blobs() ([]save.Blob, error) {
	player, err := save.EncodePlayer(g.Snapshot())
	if err != nil {
		return nil, err
	}
	settings, err := save.EncodeSettings(g.settings)
	if err != nil {
		return nil, err
	}
	return []save.Blob{
		{Key: blobstore.Player, Data: player},
		{Key: blobstore.Settings, Data: settings},
	}, nil
}

// SaveNow encodes the current state and hands it to the save sink.
func (g *Game) SaveNow() error {
	blobs, err := g.Blobs()
	if err != nil {
		return err
	}
	now := clock.UnixMilli(g.clock)
	g.lastSaveMs = now
	if g.sink == nil {
		return fmt.Errorf("no save sink")
	}
	n := 0
	for _, b := range blobs {
		if !g.sink.Submit(b) {
			return fmt.Errorf("save queue full")
		}
		n += len(b.Data)
	}
	g.stats.Saves.Add(1)
	g.bus.Publish(events.Saved, events.SavedPayload{AtMs: now, Bytes: n})
	return nil
}

func (g *Game) submitSettings() {
	if g.sink == nil {
		return
	}
	b, err := save.EncodeSettings(g.settings)
	if err != nil {
		g.log.Printf("game: encode settings: %v", err)
		return
	}
	g.sink.Submit(save.Blob{Key: blobstore.Settings, Data: b})
}

func (g *Game) maybeAutosave() {
	every := g.settings.AutoSaveIntervalMs
	if every <= 0 || g.sink == nil {
		return
	}
	if clock.UnixMilli(g.clock)-g.lastSaveMs < every {
		return
	}
	if err := g.SaveNow(); err != nil {
		g.log.Printf("game: autosave: %v", err)
	}
}
