package events

// Type names a notification. Names are part of the view protocol.
type Type string

const (
	ItemAdded          Type = "itemAdded"
	ItemRemoved        Type = "itemRemoved"
	XPAdded            Type = "xpAdded"
	LeveledUp          Type = "leveledUp"
	ItemEquipped       Type = "itemEquipped"
	ItemUnequipped     Type = "itemUnequipped"
	ActionStarted      Type = "actionStarted"
	ActionEnded        Type = "actionEnded"
	ActionStopped      Type = "actionStopped"
	MultipliersApplied Type = "multipliersApplied"
	UpgradeApplied     Type = "upgradeApplied"
	LanguageLoaded     Type = "languageLoaded"
	Toast              Type = "toast"
	Saved              Type = "saved"
)

// All lists every registered type in declaration order.
var All = []Type{
	ItemAdded,
	ItemRemoved,
	XPAdded,
	LeveledUp,
	ItemEquipped,
	ItemUnequipped,
	ActionStarted,
	ActionEnded,
	ActionStopped,
	MultipliersApplied,
	UpgradeApplied,
	LanguageLoaded,
	Toast,
	Saved,
}

// Lookup resolves a wire name to a registered type.
func Lookup(name string) (Type, bool) {
	for _, t := range All {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}
