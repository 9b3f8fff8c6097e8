package protocol

import (
	"encoding/json"
	"testing"
)

func TestValidateOrder_OK(t *testing.T) {
	raw := []byte(`{
		"type": "ORDER",
		"protocol_version": "1.0",
		"faction_id": "aurora",
		"tick": 12,
		"directives": [
			{"type": "power.generate", "target": "r01-gen", "weight": 800},
			{"type": "materials.extract", "target": "fuel", "weight": 300}
		]
	}`)
	msg, err := ValidateOrder(raw)
	if err != nil {
		t.Fatalf("ValidateOrder: %v", err)
	}
	if msg.FactionID != "aurora" || msg.Tick != 12 || len(msg.Directives) != 2 {
		t.Fatalf("decoded envelope wrong: %+v", msg)
	}
	if msg.Directives[0].Weight != 800 {
		t.Fatalf("weight = %d, want 800", msg.Directives[0].Weight)
	}
}

func TestValidateOrder_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"wrong type":      `{"type":"NOPE","protocol_version":"1.0","faction_id":"a","tick":1,"directives":[]}`,
		"missing faction": `{"type":"ORDER","protocol_version":"1.0","tick":1,"directives":[]}`,
		"empty faction":   `{"type":"ORDER","protocol_version":"1.0","faction_id":"","tick":1,"directives":[]}`,
		"negative tick":   `{"type":"ORDER","protocol_version":"1.0","faction_id":"a","tick":-1,"directives":[]}`,
		"weight too big":  `{"type":"ORDER","protocol_version":"1.0","faction_id":"a","tick":1,"directives":[{"type":"power.generate","weight":1500}]}`,
		"extra field":     `{"type":"ORDER","protocol_version":"1.0","faction_id":"a","tick":1,"directives":[],"extra":true}`,
		"bad version":     `{"type":"ORDER","protocol_version":"0.9","faction_id":"a","tick":1,"directives":[]}`,
		"untyped item":    `{"type":"ORDER","protocol_version":"1.0","faction_id":"a","tick":1,"directives":[{"target":"x"}]}`,
	}
	for name, raw := range cases {
		if _, err := ValidateOrder([]byte(raw)); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestEncodeTurn_RoundTrip(t *testing.T) {
	body := []byte{0x01, 0x02, 0xff, 0x00, 0x7f}
	frame, err := EncodeTurn(42, "delta", "abc123", body)
	if err != nil {
		t.Fatalf("EncodeTurn: %v", err)
	}
	base, err := DecodeBase(frame)
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if base.Type != TypeTurn || base.ProtocolVersion != Version {
		t.Fatalf("envelope header wrong: %+v", base)
	}
	var turn TurnMsg
	if err := json.Unmarshal(frame, &turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if turn.Tick != 42 || turn.Kind != "delta" || turn.ContentHash != "abc123" {
		t.Fatalf("envelope wrong: %+v", turn)
	}
	got, err := DecodeTurnBody(&turn)
	if err != nil {
		t.Fatalf("DecodeTurnBody: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("body round trip mismatch: %v vs %v", got, body)
	}
}

func TestIsKnownCode(t *testing.T) {
	for _, code := range []string{ErrOrderMalformed, ErrOrderLate, ErrOrderDuplicate, ErrOrderCapability, ErrOrderUnknownFaction, ErrRollbackRange, ErrBusy, ErrInternal} {
		if !IsKnownCode(code) {
			t.Fatalf("%s should be known", code)
		}
	}
	if IsKnownCode("E_MADE_UP") {
		t.Fatal("unknown code accepted")
	}
}
