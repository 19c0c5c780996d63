package game

import (
	"context"
	"encoding/json"
	"time"

	persistlog "idlecraft.ai/internal/persistence/log"
	"idlecraft.ai/internal/persistence/save"
	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/clock"
	"idlecraft.ai/internal/sim/events"
)

type observer struct {
	out chan []byte
}

// AttachRequest registers a view. Resp receives the WELCOME built on the loop.
type AttachRequest struct {
	SessionID string
	Out       chan []byte
	Resp      chan protocol.WelcomeMsg
}

func (g *Game) Inbox() chan<- Command        { return g.inbox }
func (g *Game) Attach() chan<- AttachRequest { return g.attach }
func (g *Game) Detach() chan<- string        { return g.detach }

// Run drives the game at the tuned tick rate until ctx is done or Stop is
// called. Commands are queued as they arrive and applied at the start of the
// next tick, in arrival order.
func (g *Game) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(g.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []Command
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.stop:
			return nil
		case req := <-g.attach:
			g.handleAttach(req)
		case id := <-g.detach:
			g.handleDetach(id)
		case cmd := <-g.inbox:
			pending = append(pending, cmd)
		case <-ticker.C:
			g.step(pending)
			pending = pending[:0]
		}
	}
}

func (g *Game) Stop() { close(g.stop) }

// Step applies cmds and advances one tick. It is the loop body, exported for
// tests and tools that drive the game without Run.
func (g *Game) Step(cmds []protocol.ActMsg) []protocol.ResultMsg {
	out := make([]protocol.ResultMsg, 0, len(cmds))
	for _, act := range cmds {
		out = append(out, g.Execute(act))
	}
	g.tick()
	return out
}

func (g *Game) step(cmds []Command) {
	for _, c := range cmds {
		res := g.Execute(c.Act)
		if c.Resp != nil {
			select {
			case c.Resp <- res:
			default:
				g.stats.DroppedSends.Add(1)
			}
		}
	}
	g.tick()
}

func (g *Game) tick() {
	now := g.clock.Now()
	var delta time.Duration
	if !g.lastTick.IsZero() {
		delta = now.Sub(g.lastTick)
	}
	g.lastTick = now

	g.actions.Update(delta)
	g.shops.Update(delta)
	g.maybeAutosave()
	g.stats.Ticks.Add(1)
}

// Welcome builds the handshake reply for a view.
func (g *Game) Welcome(sessionID string) protocol.WelcomeMsg {
	snap := g.Snapshot()
	var player any = snap
	if b, err := save.EncodePlayer(snap); err == nil {
		player = json.RawMessage(b)
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		GameParams:      g.Params(),
		Catalogs:        g.CatalogDigests(),
		Settings:        g.settings,
		Player:          player,
	}
}

func (g *Game) handleAttach(req AttachRequest) {
	if req.Out != nil {
		g.observers[req.SessionID] = &observer{out: req.Out}
		g.stats.Observers.Store(int64(len(g.observers)))
	}
	if req.Resp != nil {
		req.Resp <- g.Welcome(req.SessionID)
	}
}

func (g *Game) handleDetach(id string) {
	delete(g.observers, id)
	g.stats.Observers.Store(int64(len(g.observers)))
}

// onEvent numbers every notification, journals it and fans it out to views.
func (g *Game) onEvent(ev events.Event) {
	g.seq++
	g.stats.Events.Add(1)
	at := clock.UnixMilli(g.clock)

	if g.journal != nil {
		if err := g.journal.WriteEvent(persistlog.EventEntry{Seq: g.seq, AtMs: at, Event: string(ev.Type), Data: ev.Data}); err != nil {
			g.log.Printf("game: journal: %v", err)
		}
	}
	if len(g.observers) == 0 {
		return
	}
	b, err := json.Marshal(protocol.EventMsg{Type: protocol.TypeEvent, Seq: g.seq, AtMS: at, Event: string(ev.Type), Data: ev.Data})
	if err != nil {
		g.log.Printf("game: encode %s: %v", ev.Type, err)
		return
	}
	for _, o := range g.observers {
		select {
		case o.out <- b:
		default:
			g.stats.DroppedSends.Add(1)
		}
	}
}
