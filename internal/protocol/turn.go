package protocol

import (
	"encoding/base64"
	"encoding/json"
)

// EncodeTurn builds the broadcast frame for a resolved turn. body is the
// binary snapshot/delta wire frame; it is base64-carried inside the JSON
// envelope.
func EncodeTurn(tick uint64, kind, contentHash string, body []byte) ([]byte, error) {
	return json.Marshal(TurnMsg{
		Type:            TypeTurn,
		ProtocolVersion: Version,
		Tick:            tick,
		Kind:            kind,
		ContentHash:     contentHash,
		Body:            base64.StdEncoding.EncodeToString(body),
	})
}

// DecodeTurnBody extracts the binary wire frame from a TurnMsg.
func DecodeTurnBody(msg *TurnMsg) ([]byte, error) {
	return base64.StdEncoding.DecodeString(msg.Body)
}
