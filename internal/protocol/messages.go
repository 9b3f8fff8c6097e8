package protocol

// OrderMsg is the order submission envelope. Exactly one is accepted per
// faction per open turn; duplicates are rejected with ErrOrderDuplicate.
type OrderMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	FactionID       string         `json:"faction_id"`
	Tick            uint64         `json:"tick"`
	Directives      []DirectiveMsg `json:"directives"`
}

type DirectiveMsg struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
	Weight int64  `json:"weight,omitempty"` // permille
	Amount int64  `json:"amount,omitempty"` // milli units
}

// CancelMsg withdraws a faction's pending order. Only valid while the turn
// is still open.
type CancelMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	FactionID       string `json:"faction_id"`
	Tick            uint64 `json:"tick"`
}

type AckMsg struct {
	Type      string `json:"type"`
	FactionID string `json:"faction_id"`
	Tick      uint64 `json:"tick"`
}

type RejectMsg struct {
	Type      string `json:"type"`
	FactionID string `json:"faction_id,omitempty"`
	Tick      uint64 `json:"tick"`
	Code      string `json:"code"`
	Reason    string `json:"reason,omitempty"`
}

// TurnMsg announces a resolved turn to broadcast subscribers. Body is the
// base64 wire frame (full snapshot or delta, see internal/snapshot).
type TurnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Kind            string `json:"kind"` // "full" or "delta"
	ContentHash     string `json:"content_hash"`
	Body            string `json:"body"`
}

// SubscribeMsg opens a broadcast subscription on the websocket endpoint.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}
