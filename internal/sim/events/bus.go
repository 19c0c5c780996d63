package events

// Event is one delivered notification.
type Event struct {
	Type Type
	Data any
}

type Handler func(Event)

// Bus dispatches notifications synchronously on the publishing goroutine.
//
// Architecture:
//   - Handlers for a type run in registration order
//   - Wildcard handlers run after the typed ones
//   - Publishing an unregistered type is a no-op
//
// Bus is not safe for concurrent use; it belongs to the game loop.
type Bus struct {
	known    map[Type]struct{}
	handlers map[Type][]Handler
	any      []Handler
}

func NewBus() *Bus {
	b := &Bus{
		known:    make(map[Type]struct{}, len(All)),
		handlers: make(map[Type][]Handler),
	}
	for _, t := range All {
		b.known[t] = struct{}{}
	}
	return b
}

// Subscribe registers h for t. Subscribing to an unregistered type returns false.
func (b *Bus) Subscribe(t Type, h Handler) bool {
	if _, ok := b.known[t]; !ok || h == nil {
		return false
	}
	b.handlers[t] = append(b.handlers[t], h)
	return true
}

// SubscribeAll registers h for every type.
func (b *Bus) SubscribeAll(h Handler) {
	if h != nil {
		b.any = append(b.any, h)
	}
}

func (b *Bus) Publish(t Type, data any) {
	if b == nil {
		return
	}
	if _, ok := b.known[t]; !ok {
		return
	}
	ev := Event{Type: t, Data: data}
	for _, h := range b.handlers[t] {
		h(ev)
	}
	for _, h := range b.any {
		h(ev)
	}
}

func (b *Bus) HandlerCount(t Type) int {
	return len(b.handlers[t])
}
