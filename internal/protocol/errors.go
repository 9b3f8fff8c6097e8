package protocol

// Rejection codes reported to submitters. Order rejections never mutate
// simulation state.
const (
	ErrOrderMalformed      = "E_ORDER_MALFORMED"
	ErrOrderLate           = "E_ORDER_LATE"
	ErrOrderDuplicate      = "E_ORDER_DUPLICATE"
	ErrOrderCapability     = "E_ORDER_CAPABILITY"
	ErrOrderUnknownFaction = "E_ORDER_UNKNOWN_FACTION"

	ErrRollbackRange = "E_ROLLBACK_RANGE"
	ErrBusy          = "E_BUSY"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrOrderMalformed:      {},
	ErrOrderLate:           {},
	ErrOrderDuplicate:      {},
	ErrOrderCapability:     {},
	ErrOrderUnknownFaction: {},
	ErrRollbackRange:       {},
	ErrBusy:                {},
	ErrInternal:            {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
