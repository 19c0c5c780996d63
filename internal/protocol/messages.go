package protocol

// HELLO (view -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> view)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	GameParams      GameParams     `json:"game_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Settings        any            `json:"settings"`
	Player          any            `json:"player"`
}

type GameParams struct {
	TickRateHz    int `json:"tick_rate_hz"`
	InventorySize int `json:"inventory_size"`
	MaxActions    int `json:"max_actions"`
	MaxActionsCap int `json:"max_actions_cap"`
}

type CatalogDigests struct {
	Items    string `json:"items"`
	Skills   string `json:"skills"`
	Upgrades string `json:"upgrades"`
	Shops    string `json:"shops"`
}

// Command names carried by ACT.
const (
	CmdStartGathering = "start_gathering"
	CmdStartCrafting  = "start_crafting"
	CmdStopAction     = "stop_action"
	CmdBuyUpgrade     = "buy_upgrade"
	CmdEquip          = "equip"
	CmdUnequip        = "unequip"
	CmdBuyItem        = "buy_item"
	CmdSellItem       = "sell_item"
	CmdSetSetting     = "set_setting"
	CmdSave           = "save"
)

// ACT (view -> server)
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ActID           string `json:"act_id,omitempty"`
	Cmd             string `json:"cmd"`

	SkillID  string `json:"skill_id,omitempty"`
	NodeID   string `json:"node_id,omitempty"`
	RecipeID string `json:"recipe_id,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	SlotID   string `json:"slot_id,omitempty"`
	ShopID   string `json:"shop_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Amount   int    `json:"amount,omitempty"`

	Setting string `json:"setting,omitempty"`
	Value   string `json:"value,omitempty"`
}

// RESULT (server -> view), one per ACT.
type ResultMsg struct {
	Type    string `json:"type"`
	ActID   string `json:"act_id,omitempty"`
	Cmd     string `json:"cmd"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// EVENT (server -> view), one per bus notification.
type EventMsg struct {
	Type  string `json:"type"`
	Seq   uint64 `json:"seq"`
	AtMS  int64  `json:"at_ms"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
