package economy

import (
	"io"
	"log"
	"math"

	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/inventory"
)

type Ledger interface {
	Quantity(itemID string) int
	AddItem(itemID string, n int) int
	RemoveItem(itemID string, n int) int
}

type Progression interface {
	AddXP(skillID string, amount float64) error
	XPMultiplier(skillID string) float64
}

// Engine applies cost and reward sets. Costs are item quantities taken from the
// ledger; rewards are experience or items.
type Engine struct {
	ledger Ledger
	skills Progression
	log    *log.Logger

	lifetime map[string]float64
}

func New(ledger Ledger, skills Progression, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		ledger:   ledger,
		skills:   skills,
		log:      logger,
		lifetime: map[string]float64{},
	}
}

// needs sums the units required per item for mult repetitions. ok is false when a
// cost kind is unknown or a total does not fit in an int.
func (e *Engine) needs(costs []catalogs.CostDef, mult int) (map[string]int, bool) {
	out := make(map[string]int, len(costs))
	for _, c := range costs {
		if c.Kind != catalogs.CostItem {
			e.log.Printf("economy: unknown cost kind %q", c.Kind)
			return nil, false
		}
		n, ok := mulUnits(c.Amount, mult)
		if !ok || out[c.ItemID] > math.MaxInt-n {
			e.log.Printf("economy: cost %q x%d overflows", c.ItemID, mult)
			return nil, false
		}
		out[c.ItemID] += n
	}
	return out, true
}

// mulUnits multiplies a non-negative unit amount by mult, reporting overflow.
func mulUnits(amount, mult int) (int, bool) {
	if amount < 0 || mult < 0 {
		return 0, false
	}
	if amount != 0 && mult > math.MaxInt/amount {
		return 0, false
	}
	return amount * mult, true
}

// CheckAffordable reports whether the ledger holds every cost mult times over.
func (e *Engine) CheckAffordable(costs []catalogs.CostDef, mult int) bool {
	if mult < 1 {
		return false
	}
	need, ok := e.needs(costs, mult)
	if !ok {
		return false
	}
	for id, n := range need {
		if e.ledger.Quantity(id) < n {
			return false
		}
	}
	return true
}

// MaxAffordable is the largest multiple of costs the ledger can pay. An empty
// set, or one with an unpayable cost, yields 0.
func (e *Engine) MaxAffordable(costs []catalogs.CostDef) int {
	if len(costs) == 0 {
		return 0
	}
	need, ok := e.needs(costs, 1)
	if !ok {
		return 0
	}
	best := -1
	for id, unit := range need {
		if unit <= 0 {
			return 0
		}
		n := e.ledger.Quantity(id) / unit
		if best < 0 || n < best {
			best = n
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// ApplyCosts removes costs mult times over. Nothing is removed unless the whole
// set is affordable.
func (e *Engine) ApplyCosts(costs []catalogs.CostDef, mult int) bool {
	if !e.CheckAffordable(costs, mult) {
		return false
	}
	for _, c := range costs {
		e.ledger.RemoveItem(c.ItemID, c.Amount*mult)
	}
	return true
}

// RefundCosts returns costs mult times over. Units that do not fit are dropped
// by the ledger; the number of units credited is returned.
func (e *Engine) RefundCosts(costs []catalogs.CostDef, mult int) int {
	if mult < 1 {
		return 0
	}
	credited := 0
	for _, c := range costs {
		if c.Kind != catalogs.CostItem {
			e.log.Printf("economy: refund: unknown cost kind %q", c.Kind)
			continue
		}
		want, ok := mulUnits(c.Amount, mult)
		if !ok {
			e.log.Printf("economy: refund %q x%d overflows", c.ItemID, mult)
			continue
		}
		got := e.ledger.AddItem(c.ItemID, want)
		if got < want {
			e.log.Printf("economy: refund %q: credited %d of %d", c.ItemID, got, want)
		}
		credited += got
	}
	return credited
}

// ApplyRewards grants rewards mult times over. Experience is scaled by the
// skill's xp multiplier. Capacity is the caller's concern.
func (e *Engine) ApplyRewards(rewards []catalogs.RewardDef, mult int) {
	if mult < 1 {
		return
	}
	for _, r := range rewards {
		switch r.Kind {
		case catalogs.RewardSkillXP:
			amount := float64(r.Amount*mult) * e.skills.XPMultiplier(r.SkillID)
			if err := e.skills.AddXP(r.SkillID, amount); err != nil {
				e.log.Printf("economy: reward xp: %v", err)
				continue
			}
			e.lifetime[lifetimeKey(r)] += amount
		case catalogs.RewardItem:
			got := e.ledger.AddItem(r.ItemID, r.Amount*mult)
			e.lifetime[lifetimeKey(r)] += float64(got)
		default:
			e.log.Printf("economy: unknown reward kind %q", r.Kind)
		}
	}
}

// Grants lists the item rewards of a set, for capacity checks.
func Grants(rewards []catalogs.RewardDef, mult int) []inventory.Grant {
	var out []inventory.Grant
	for _, r := range rewards {
		if r.Kind == catalogs.RewardItem {
			out = append(out, inventory.Grant{ItemID: r.ItemID, Amount: r.Amount * mult})
		}
	}
	return out
}

// Lifetime is the total granted so far for the reward's kind and target.
func (e *Engine) Lifetime(r catalogs.RewardDef) float64 {
	return e.lifetime[lifetimeKey(r)]
}

func lifetimeKey(r catalogs.RewardDef) string {
	if r.Kind == catalogs.RewardSkillXP {
		return r.Kind + ":" + r.SkillID
	}
	return r.Kind + ":" + r.ItemID
}
