package events

type SlotView struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type ItemAddedPayload struct {
	Slot       SlotView `json:"slot"`
	Amount     int      `json:"amount"`
	WasCreated bool     `json:"wasCreated"`
}

type ItemRemovedPayload struct {
	Slot       SlotView `json:"slot"`
	Amount     int      `json:"amount"`
	WasDeleted bool     `json:"wasDeleted"`
}

type XPAddedPayload struct {
	SkillID string  `json:"skillId"`
	Amount  float64 `json:"amount"`
	Level   int     `json:"level"`
	XP      float64 `json:"xp"`
}

type LeveledUpPayload struct {
	SkillID string `json:"skillId"`
	Level   int    `json:"level"`
}

type EquipmentPayload struct {
	SlotID string `json:"slotId"`
	ItemID string `json:"itemId"`
}

type ActionPayload struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	SkillID    string `json:"skillId"`
	ResourceID string `json:"resourceId"`
	LoopTarget int    `json:"loopTarget"`
	LoopCount  int    `json:"loopCount"`
	StartMs    int64  `json:"startTime"`
	DurationMs int64  `json:"durationMs"`
}

type MultiplierPayload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type UpgradePayload struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

type LanguagePayload struct {
	Language string `json:"language"`
}

type ToastPayload struct {
	Success  bool   `json:"success"`
	ReasonID string `json:"reasonId"`
	Text     string `json:"text"`
}

type SavedPayload struct {
	AtMs  int64 `json:"atMs"`
	Bytes int   `json:"bytes"`
}
