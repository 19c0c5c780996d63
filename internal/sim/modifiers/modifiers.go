package modifiers

import "idlecraft.ai/internal/sim/events"

const Base = 1.0

// Source is anything that contributes additive deltas to named modifiers.
type Source interface {
	Contribute(add func(name string, delta float64))
}

// SourceFunc adapts a function to Source.
type SourceFunc func(add func(name string, delta float64))

func (f SourceFunc) Contribute(add func(name string, delta float64)) { f(add) }

type Entry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Registry holds the tracked multipliers. Every value is Base plus the sum of the
// contributions of its sources, so it can always be rebuilt with Recompute.
type Registry struct {
	names  []string
	values map[string]float64
	bus    *events.Bus
}

func XPName(skillID string) string       { return skillID + "_xp" }
func DurationName(skillID string) string { return skillID + "_duration" }

// SkillNames returns the xp and duration modifier names for each skill, in order.
func SkillNames(skillIDs []string) []string {
	out := make([]string, 0, 2*len(skillIDs))
	for _, id := range skillIDs {
		out = append(out, XPName(id), DurationName(id))
	}
	return out
}

func New(bus *events.Bus, names []string) *Registry {
	r := &Registry{
		values: make(map[string]float64, len(names)),
		bus:    bus,
	}
	for _, n := range names {
		if _, dup := r.values[n]; dup {
			continue
		}
		r.names = append(r.names, n)
		r.values[n] = Base
	}
	return r
}

// Get returns the current value, or Base for an untracked name.
func (r *Registry) Get(name string) float64 {
	v, ok := r.values[name]
	if !ok {
		return Base
	}
	return v
}

func (r *Registry) Tracked(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Adjust adds delta to a tracked modifier. Untracked names are ignored.
func (r *Registry) Adjust(name string, delta float64) bool {
	v, ok := r.values[name]
	if !ok {
		return false
	}
	r.values[name] = v + delta
	r.bus.Publish(events.MultipliersApplied, events.MultiplierPayload{Name: name, Value: r.values[name]})
	return true
}

// Recompute resets every modifier to Base and re-applies all sources.
// One notification is published per modifier whose value changed.
func (r *Registry) Recompute(sources ...Source) {
	next := make(map[string]float64, len(r.names))
	for _, n := range r.names {
		next[n] = Base
	}
	add := func(name string, delta float64) {
		if _, ok := next[name]; ok {
			next[name] += delta
		}
	}
	for _, s := range sources {
		if s != nil {
			s.Contribute(add)
		}
	}
	for _, n := range r.names {
		if next[n] == r.values[n] {
			continue
		}
		r.values[n] = next[n]
		r.bus.Publish(events.MultipliersApplied, events.MultiplierPayload{Name: n, Value: next[n]})
	}
}

func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, Entry{Name: n, Value: r.values[n]})
	}
	return out
}
