package equipment

import (
	"io"
	"log"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/events"
)

type Items interface {
	Item(id string) (catalogs.ItemDef, bool)
}

type Ledger interface {
	IsFull() bool
	Quantity(itemID string) int
	AddItem(itemID string, n int) int
	RemoveItem(itemID string, n int) int
}

type Conditions interface {
	CheckAll(cs []catalogs.ConditionDef) bool
	DescribeUnmet(cs []catalogs.ConditionDef) string
}

// Record is the persisted content of one slot. Quantity is always 1.
type Record struct {
	SlotID   string `json:"slotId"`
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// Set holds one slot per tool type. A slot is named after the item type it
// accepts and holds at most one item.
type Set struct {
	items  Items
	ledger Ledger
	conds  Conditions
	bus    *events.Bus
	log    *log.Logger

	order []string
	slots map[string]string
}

func New(slotIDs []string, items Items, ledger Ledger, conds Conditions, bus *events.Bus, logger *log.Logger) *Set {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Set{
		items:  items,
		ledger: ledger,
		conds:  conds,
		bus:    bus,
		log:    logger,
		slots:  make(map[string]string, len(slotIDs)),
	}
	for _, id := range slotIDs {
		if _, dup := s.slots[id]; dup {
			continue
		}
		s.order = append(s.order, id)
		s.slots[id] = ""
	}
	return s
}

func (s *Set) Slots() []string { return append([]string(nil), s.order...) }

// Equipped returns the item in a slot, "" when it is empty.
func (s *Set) Equipped(slotID string) string { return s.slots[slotID] }

// Equip moves one unit of an item from the ledger into the slot for its type,
// returning the previously equipped item to the ledger first.
func (s *Set) Equip(itemID string) error {
	def, ok := s.items.Item(itemID)
	if !ok {
		return s.reject("equip", protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown item %q", itemID))
	}
	cur, ok := s.slots[def.Type]
	if !ok {
		return s.reject("equip", protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "item %q is not equipable", itemID))
	}
	if s.ledger.Quantity(itemID) < 1 {
		return s.reject("equip", protocol.Reject(protocol.ErrNoResource, protocol.ReasonInvalidRequest, "item %q not in inventory", itemID))
	}
	if !s.conds.CheckAll(def.Conditions) {
		return s.reject("equip", protocol.Reject(protocol.ErrConditions, protocol.ReasonConditionsFailed, "%s", s.conds.DescribeUnmet(def.Conditions)))
	}
	if cur != "" && s.ledger.IsFull() {
		return s.reject("equip", protocol.Reject(protocol.ErrInventoryFull, protocol.ReasonInventoryFull, "no room to unequip %q", cur))
	}

	if cur != "" {
		s.takeOff(def.Type, cur)
	}
	s.ledger.RemoveItem(itemID, 1)
	s.slots[def.Type] = itemID
	s.bus.Publish(events.ItemEquipped, events.EquipmentPayload{SlotID: def.Type, ItemID: itemID})
	return nil
}

// Unequip returns the item in a slot to the ledger.
func (s *Set) Unequip(slotID string) error {
	cur, ok := s.slots[slotID]
	if !ok {
		return s.reject("unequip", protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown slot %q", slotID))
	}
	if cur == "" {
		return s.reject("unequip", protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "slot %q is empty", slotID))
	}
	if s.ledger.IsFull() {
		return s.reject("unequip", protocol.Reject(protocol.ErrInventoryFull, protocol.ReasonInventoryFull, "no room for %q", cur))
	}
	s.takeOff(slotID, cur)
	return nil
}

func (s *Set) takeOff(slotID, itemID string) {
	s.slots[slotID] = ""
	s.ledger.AddItem(itemID, 1)
	s.bus.Publish(events.ItemUnequipped, events.EquipmentPayload{SlotID: slotID, ItemID: itemID})
}

func (s *Set) reject(op string, err *protocol.Rejection) error {
	s.log.Printf("equipment: %s: %v", op, err)
	return err
}

// Contribute adds the multipliers of every equipped item.
func (s *Set) Contribute(add func(name string, delta float64)) {
	for _, slot := range s.order {
		id := s.slots[slot]
		if id == "" {
			continue
		}
		def, ok := s.items.Item(id)
		if !ok {
			continue
		}
		for name, delta := range def.Multipliers {
			add(name, delta)
		}
	}
}

// Snapshot lists the occupied slots in slot order.
func (s *Set) Snapshot() []Record {
	out := make([]Record, 0, len(s.order))
	for _, slot := range s.order {
		if id := s.slots[slot]; id != "" {
			out = append(out, Record{SlotID: slot, ItemID: id, Quantity: 1})
		}
	}
	return out
}

// Restore fills slots from saved records. Records naming an unknown slot or
// item, or an item of another type, are skipped. A slot keeps one unit; any
// surplus quantity goes back to the ledger.
func (s *Set) Restore(saved []Record) {
	for slot := range s.slots {
		s.slots[slot] = ""
	}
	for _, r := range saved {
		if _, ok := s.slots[r.SlotID]; !ok {
			s.log.Printf("equipment: restore: unknown slot %q", r.SlotID)
			continue
		}
		if r.ItemID == "" || r.Quantity < 1 {
			continue
		}
		def, ok := s.items.Item(r.ItemID)
		if !ok || def.Type != r.SlotID {
			s.log.Printf("equipment: restore: item %q does not fit slot %q", r.ItemID, r.SlotID)
			continue
		}
		s.slots[r.SlotID] = r.ItemID
		if extra := r.Quantity - 1; extra > 0 {
			got := s.ledger.AddItem(r.ItemID, extra)
			s.log.Printf("equipment: restore: slot %q held %d, returned %d to the ledger", r.SlotID, r.Quantity, got)
		}
	}
}
