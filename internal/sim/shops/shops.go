package shops

import (
	"io"
	"log"
	"time"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/clock"
	"idlecraft.ai/internal/sim/inventory"
)

type Items interface {
	Item(id string) (catalogs.ItemDef, bool)
}

type Ledger interface {
	IsFull() bool
	Quantity(itemID string) int
	AddItem(itemID string, n int) int
	RemoveItem(itemID string, n int) int
	CanAccept(grants []inventory.Grant) bool
}

type Economy interface {
	CheckAffordable(costs []catalogs.CostDef, mult int) bool
	ApplyCosts(costs []catalogs.CostDef, mult int) bool
	ApplyRewards(rewards []catalogs.RewardDef, mult int)
}

type Conditions interface {
	CheckAll(cs []catalogs.ConditionDef) bool
	DescribeUnmet(cs []catalogs.ConditionDef) string
}

type ItemState struct {
	ID          string `json:"id"`
	Stock       int    `json:"stock"`
	RestockDate int64  `json:"restockDate"` // unix ms, 0 when nothing is pending
}

type Record struct {
	ID         string      `json:"id"`
	ItemStates []ItemState `json:"itemStates"`
}

type stockedItem struct {
	def         catalogs.ShopItemDef
	stock       int
	restockDate int64
}

type shop struct {
	id    string
	items []*stockedItem
}

func (s *shop) item(id string) *stockedItem {
	for _, it := range s.items {
		if it.def.ItemID == id {
			return it
		}
	}
	return nil
}

// Market holds every shop's stock. Items that restock return to their base stock
// once the restock interval has passed since the first sale that depleted them.
type Market struct {
	items  Items
	ledger Ledger
	econ   Economy
	conds  Conditions
	clock  clock.Clock
	log    *log.Logger

	restockMs int64
	order     []string
	shops     map[string]*shop
}

func New(defs []catalogs.ShopDef, restockInterval time.Duration, items Items, ledger Ledger, econ Economy, conds Conditions, clk clock.Clock, logger *log.Logger) *Market {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	m := &Market{
		items:     items,
		ledger:    ledger,
		econ:      econ,
		conds:     conds,
		clock:     clk,
		log:       logger,
		restockMs: restockInterval.Milliseconds(),
		shops:     make(map[string]*shop, len(defs)),
	}
	for _, d := range defs {
		if _, dup := m.shops[d.ID]; dup {
			continue
		}
		s := &shop{id: d.ID}
		for _, it := range d.Items {
			s.items = append(s.items, &stockedItem{def: it, stock: it.Stock()})
		}
		m.order = append(m.order, d.ID)
		m.shops[d.ID] = s
	}
	return m
}

// Stock returns the current stock of an item in a shop.
func (m *Market) Stock(shopID, itemID string) (int, bool) {
	s, ok := m.shops[shopID]
	if !ok {
		return 0, false
	}
	it := s.item(itemID)
	if it == nil {
		return 0, false
	}
	return it.stock, true
}

// Buy purchases n units of an item from a shop.
func (m *Market) Buy(shopID, itemID string, n int) error {
	s, ok := m.shops[shopID]
	if !ok {
		return m.reject("buy", protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown shop %q", shopID))
	}
	it := s.item(itemID)
	if it == nil {
		return m.reject("buy", protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "shop %q does not sell %q", shopID, itemID))
	}
	def, ok := m.items.Item(itemID)
	if !ok {
		return m.reject("buy", protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown item %q", itemID))
	}
	if m.ledger.IsFull() {
		return m.reject("buy", protocol.Reject(protocol.ErrInventoryFull, protocol.ReasonInventoryFull, "inventory full"))
	}
	if n < 1 || n > def.StackLimit() || len(def.Buy) == 0 {
		return m.reject("buy", protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "cannot buy %d x %q", n, itemID))
	}
	if !m.ledger.CanAccept([]inventory.Grant{{ItemID: itemID, Amount: n}}) {
		return m.reject("buy", protocol.Reject(protocol.ErrInventoryFull, protocol.ReasonInventoryFull, "no room for %d x %q", n, itemID))
	}
	if it.stock < n {
		return m.reject("buy", protocol.Reject(protocol.ErrOutOfStock, protocol.ReasonOutOfStock, "%q has %d in stock", itemID, it.stock))
	}
	if !m.conds.CheckAll(def.Conditions) {
		return m.reject("buy", protocol.Reject(protocol.ErrConditions, protocol.ReasonConditionsFailed, "%s", m.conds.DescribeUnmet(def.Conditions)))
	}
	if !m.econ.CheckAffordable(def.Buy, n) {
		return m.reject("buy", protocol.Reject(protocol.ErrNoResource, protocol.ReasonNotEnoughCurrency, "cannot afford %d x %q", n, itemID))
	}

	m.ledger.AddItem(itemID, n)
	it.stock -= n
	if it.def.Restocks() && it.restockDate == 0 {
		it.restockDate = clock.UnixMilli(m.clock) + m.restockMs
	}
	m.econ.ApplyCosts(def.Buy, n)
	return nil
}

// Sell removes n units of an item from the ledger and grants its sell rewards
// n times over.
func (m *Market) Sell(itemID string, n int) error {
	def, ok := m.items.Item(itemID)
	if !ok {
		return m.reject("sell", protocol.Reject(protocol.ErrInvalidTarget, protocol.ReasonInvalidRequest, "unknown item %q", itemID))
	}
	if n < 1 || len(def.Sell) == 0 {
		return m.reject("sell", protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "cannot sell %d x %q", n, itemID))
	}
	if held := m.ledger.Quantity(itemID); held < n {
		return m.reject("sell", protocol.Reject(protocol.ErrNoResource, protocol.ReasonInvalidRequest, "holding %d of %q, selling %d", held, itemID, n))
	}
	m.ledger.RemoveItem(itemID, n)
	m.econ.ApplyRewards(def.Sell, n)
	return nil
}

func (m *Market) reject(op string, err *protocol.Rejection) error {
	m.log.Printf("shops: %s: %v", op, err)
	return err
}

// Update restocks every item whose restock date has passed.
func (m *Market) Update(time.Duration) {
	now := clock.UnixMilli(m.clock)
	for _, id := range m.order {
		for _, it := range m.shops[id].items {
			if it.restockDate == 0 || now < it.restockDate {
				continue
			}
			it.stock = it.def.Stock()
			it.restockDate = 0
		}
	}
}

func (m *Market) Snapshot() []Record {
	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		s := m.shops[id]
		r := Record{ID: id, ItemStates: make([]ItemState, 0, len(s.items))}
		for _, it := range s.items {
			r.ItemStates = append(r.ItemStates, ItemState{ID: it.def.ItemID, Stock: it.stock, RestockDate: it.restockDate})
		}
		out = append(out, r)
	}
	return out
}

// Restore loads saved stock. Unknown shops and items are skipped; items missing
// from the save keep their base stock.
func (m *Market) Restore(saved []Record) {
	for _, id := range m.order {
		for _, it := range m.shops[id].items {
			it.stock = it.def.Stock()
			it.restockDate = 0
		}
	}
	for _, r := range saved {
		s, ok := m.shops[r.ID]
		if !ok {
			m.log.Printf("shops: restore: unknown shop %q", r.ID)
			continue
		}
		for _, st := range r.ItemStates {
			it := s.item(st.ID)
			if it == nil {
				m.log.Printf("shops: restore: shop %q has no item %q", r.ID, st.ID)
				continue
			}
			it.stock = max(st.Stock, 0)
			if it.def.Restocks() {
				it.restockDate = max(st.RestockDate, 0)
			}
		}
	}
}
