package protocol

import (
	"errors"
	"fmt"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Validation rejections.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"

	// Unmet preconditions.
	ErrConditions = "E_CONDITIONS"
	ErrNoResource = "E_NO_RESOURCE"

	// Capacity rejections.
	ErrInventoryFull = "E_INVENTORY_FULL"
	ErrActionsFull   = "E_ACTIONS_FULL"
	ErrMaxLevel      = "E_MAX_LEVEL"
	ErrOutOfStock    = "E_OUT_OF_STOCK"

	ErrInternal = "E_INTERNAL"
)

// Locale keys for the user-facing reason of a rejection.
const (
	ReasonInvalidRequest    = "error_invalidRequest"
	ReasonConditionsFailed  = "error_conditionsFailed"
	ReasonNotEnoughCurrency = "error_notEnoughCurrency"
	ReasonInventoryFull     = "error_inventoryFull"
	ReasonMaxActionsReached = "error_maxActionsReached"
	ReasonMaxLevelReached   = "error_maxLevelReached"
	ReasonOutOfStock        = "error_outOfStock"
	ReasonPurchaseCompleted = "success_purchaseCompleted"
	ReasonSaleCompleted     = "success_saleCompleted"
	ReasonSettingsSaved     = "success_settingsSaved"
	ReasonGameSaved         = "success_gameSaved"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrInvalidTarget:   {},
	ErrConditions:      {},
	ErrNoResource:      {},
	ErrInventoryFull:   {},
	ErrActionsFull:     {},
	ErrMaxLevel:        {},
	ErrOutOfStock:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Rejection is a non-fatal refusal of a player request. Code classifies it for control flow,
// ReasonID is the locale key the view renders.
type Rejection struct {
	Code     string
	ReasonID string
	Message  string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return r.Code
	}
	return r.Code + ": " + r.Message
}

func Reject(code, reasonID, format string, args ...any) *Rejection {
	return &Rejection{Code: code, ReasonID: reasonID, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the rejection code carried by err, ErrInternal for other errors and "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return ErrInternal
}

// ReasonOf returns the locale key carried by err, or ReasonInvalidRequest.
func ReasonOf(err error) string {
	var r *Rejection
	if errors.As(err, &r) && r.ReasonID != "" {
		return r.ReasonID
	}
	return ReasonInvalidRequest
}
