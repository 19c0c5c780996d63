package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"idlecraft.ai/internal/sim/events"
	"idlecraft.ai/internal/protocol"
)

// bot keeps one gathering node running and sells its yield in batches.
type bot struct {
	node      string
	sellItem  string
	sellEvery int
	nextAct   int
}

func main() {
	var (
		url       = flag.String("url", "ws://127.0.0.1:8080/v1/ws", "ws url")
		node      = flag.String("node", "node_sardineFish", "gathering node to keep running")
		sellItem  = flag.String("sell", "rawSardine", "item to sell (empty to keep everything)")
		sellEvery = flag.Int("sell_every", 10, "sell once this many units are held")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "bot",
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 64},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	b := &bot{node: *node, sellItem: *sellItem, sellEvery: *sellEvery}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		act, note := b.handle(msg)
		if note != "" {
			logger.Print(note)
		}
		if act != nil {
			if err := conn.WriteJSON(act); err != nil {
				logger.Printf("send ACT: %v", err)
				return
			}
		}
	}
}

// handle returns the command to send for one server message, if any, and a
// line worth logging.
func (b *bot) handle(msg []byte) (*protocol.ActMsg, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return nil, ""
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w struct {
			SessionID string `json:"session_id"`
			Player    struct {
				Actions []struct {
					GatheringNodeID string `json:"gatheringNodeId"`
				} `json:"actions"`
			} `json:"player"`
		}
		if err := json.Unmarshal(msg, &w); err != nil {
			return nil, ""
		}
		note := fmt.Sprintf("WELCOME session_id=%s", w.SessionID)
		for _, a := range w.Player.Actions {
			if a.GatheringNodeID == b.node {
				// Starting again would toggle it off.
				return nil, note + " (already gathering)"
			}
		}
		return b.act(protocol.ActMsg{Cmd: protocol.CmdStartGathering, NodeID: b.node}), note

	case protocol.TypeResult:
		var res protocol.ResultMsg
		if err := json.Unmarshal(msg, &res); err != nil || res.OK {
			return nil, ""
		}
		return nil, fmt.Sprintf("%s %s rejected: %s", res.ActID, res.Cmd, res.Message)

	case protocol.TypeEvent:
		var ev struct {
			Event string                  `json:"event"`
			Data  events.ItemAddedPayload `json:"data"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil || ev.Event != string(events.ItemAdded) {
			return nil, ""
		}
		if b.sellItem == "" || ev.Data.Slot.ItemID != b.sellItem || ev.Data.Slot.Quantity < b.sellEvery {
			return nil, ""
		}
		n := ev.Data.Slot.Quantity
		return b.act(protocol.ActMsg{Cmd: protocol.CmdSellItem, ItemID: b.sellItem, Amount: n}), fmt.Sprintf("selling %d %s", n, b.sellItem)
	}
	return nil, ""
}

func (b *bot) act(a protocol.ActMsg) *protocol.ActMsg {
	b.nextAct++
	a.Type = protocol.TypeAct
	a.ProtocolVersion = protocol.Version
	a.ActID = fmt.Sprintf("B%d", b.nextAct)
	return &a
}
