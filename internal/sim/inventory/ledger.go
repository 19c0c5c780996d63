package inventory

import (
	"io"
	"log"
	"sort"

	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/events"
)

// Items resolves item definitions; *catalogs.Catalogs satisfies it.
type Items interface {
	Item(id string) (catalogs.ItemDef, bool)
}

type Slot struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// Grant is a prospective addition used for capacity checks.
type Grant struct {
	ItemID string
	Amount int
}

// Ledger is the slotted inventory. Slots keep creation order; a slot never holds
// more than its item's stack limit and never exists with a zero quantity.
type Ledger struct {
	items Items
	bus   *events.Bus
	log   *log.Logger

	slots   []*Slot
	maxSize int
	totals  map[string]int
}

func New(items Items, maxSize int, bus *events.Bus, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if maxSize < 1 {
		maxSize = 1
	}
	return &Ledger{
		items:   items,
		bus:     bus,
		log:     logger,
		maxSize: maxSize,
		totals:  map[string]int{},
	}
}

func (l *Ledger) Size() int    { return len(l.slots) }
func (l *Ledger) MaxSize() int { return l.maxSize }
func (l *Ledger) IsFull() bool { return len(l.slots) >= l.maxSize }

func (l *Ledger) SpaceLeft() int {
	if n := l.maxSize - len(l.slots); n > 0 {
		return n
	}
	return 0
}

// SetMaxSize changes the slot capacity. Existing slots above a lowered capacity are kept.
func (l *Ledger) SetMaxSize(n int) {
	if n < 1 {
		n = 1
	}
	l.maxSize = n
}

func (l *Ledger) Quantity(itemID string) int { return l.totals[itemID] }

func (l *Ledger) Slots() []Slot {
	out := make([]Slot, 0, len(l.slots))
	for _, s := range l.slots {
		out = append(out, *s)
	}
	return out
}

// AddItem adds up to n units, filling existing slots first and then opening new
// ones while capacity remains. Units that do not fit are dropped. It returns the
// number of units applied.
func (l *Ledger) AddItem(itemID string, n int) int {
	if n <= 0 {
		l.log.Printf("inventory: add %q: invalid amount %d", itemID, n)
		return 0
	}
	def, ok := l.items.Item(itemID)
	if !ok {
		l.log.Printf("inventory: add: unknown item %q", itemID)
		return 0
	}
	limit := def.StackLimit()

	var notes []events.ItemAddedPayload
	remaining := n
	for _, s := range l.slots {
		if remaining == 0 {
			break
		}
		if s.ItemID != itemID || s.Quantity >= limit {
			continue
		}
		add := min(remaining, limit-s.Quantity)
		s.Quantity += add
		remaining -= add
		notes = append(notes, events.ItemAddedPayload{Slot: events.SlotView(*s), Amount: add})
	}
	for remaining > 0 && !l.IsFull() {
		add := min(remaining, limit)
		s := &Slot{ItemID: itemID, Quantity: add}
		l.slots = append(l.slots, s)
		remaining -= add
		notes = append(notes, events.ItemAddedPayload{Slot: events.SlotView(*s), Amount: add, WasCreated: true})
	}
	applied := n - remaining
	if applied > 0 {
		l.totals[itemID] += applied
	}
	if remaining > 0 {
		l.log.Printf("inventory: add %q: dropped %d of %d (full)", itemID, remaining, n)
	}

	for _, p := range notes {
		l.bus.Publish(events.ItemAdded, p)
	}
	return applied
}

// RemoveItem removes exactly n units, draining slots in creation order. A request
// for more than is held is rejected and removes nothing.
func (l *Ledger) RemoveItem(itemID string, n int) int {
	if n <= 0 {
		l.log.Printf("inventory: remove %q: invalid amount %d", itemID, n)
		return 0
	}
	if held := l.totals[itemID]; held < n {
		l.log.Printf("inventory: remove %q: want %d have %d", itemID, n, held)
		return 0
	}

	var notes []events.ItemRemovedPayload
	remaining := n
	kept := l.slots[:0]
	for _, s := range l.slots {
		if remaining > 0 && s.ItemID == itemID {
			take := min(remaining, s.Quantity)
			s.Quantity -= take
			remaining -= take
			deleted := s.Quantity == 0
			notes = append(notes, events.ItemRemovedPayload{Slot: events.SlotView(*s), Amount: take, WasDeleted: deleted})
			if deleted {
				continue
			}
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(l.slots); i++ {
		l.slots[i] = nil
	}
	l.slots = kept
	l.totals[itemID] -= n
	if l.totals[itemID] == 0 {
		delete(l.totals, itemID)
	}

	for _, p := range notes {
		l.bus.Publish(events.ItemRemoved, p)
	}
	return n
}

// CanAccept reports whether every grant fits without dropping anything.
func (l *Ledger) CanAccept(grants []Grant) bool {
	want := map[string]int{}
	var order []string
	for _, g := range grants {
		if g.Amount <= 0 {
			continue
		}
		if _, ok := want[g.ItemID]; !ok {
			order = append(order, g.ItemID)
		}
		want[g.ItemID] += g.Amount
	}
	sort.Strings(order)

	newSlots := 0
	for _, id := range order {
		def, ok := l.items.Item(id)
		if !ok {
			return false
		}
		limit := def.StackLimit()
		remaining := want[id]
		for _, s := range l.slots {
			if s.ItemID == id && s.Quantity < limit {
				remaining -= min(remaining, limit-s.Quantity)
			}
		}
		newSlots += remaining / limit
		if remaining%limit != 0 {
			newSlots++
		}
	}
	return newSlots <= l.SpaceLeft()
}

// Restore replaces the contents with saved slots. Unknown items and empty slots
// are skipped; quantities above the stack limit are clamped.
func (l *Ledger) Restore(saved []Slot) {
	l.slots = nil
	l.totals = map[string]int{}
	for _, s := range saved {
		def, ok := l.items.Item(s.ItemID)
		if !ok {
			l.log.Printf("inventory: restore: unknown item %q", s.ItemID)
			continue
		}
		if s.Quantity <= 0 {
			continue
		}
		q := min(s.Quantity, def.StackLimit())
		l.slots = append(l.slots, &Slot{ItemID: s.ItemID, Quantity: q})
		l.totals[s.ItemID] += q
	}
	if len(l.slots) > l.maxSize {
		l.log.Printf("inventory: restore: %d slots over capacity %d", len(l.slots), l.maxSize)
	}
}
