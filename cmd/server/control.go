package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"hegemon.sim/internal/protocol"
	"hegemon.sim/internal/sim/engine"
	"hegemon.sim/internal/snapshot"
)

// registerControl wires the HTTP order and control surface. The websocket
// endpoint is the primary transport; these exist for scripts and operators.
func registerControl(mux *http.ServeMux, eng *engine.Engine, logger *log.Logger) {
	mux.HandleFunc("/v1/status", func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, eng.Status())
	})

	mux.HandleFunc("/v1/orders", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw, err := readBody(r)
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, protocol.RejectMsg{
				Type: "REJECT", Code: protocol.ErrOrderMalformed, Reason: err.Error(),
			})
			return
		}
		msg, verr := protocol.ValidateOrder(raw)
		if verr != nil {
			writeJSON(rw, http.StatusBadRequest, protocol.RejectMsg{
				Type: "REJECT", Code: protocol.ErrOrderMalformed, Reason: verr.Error(),
			})
			return
		}
		if rej := eng.SubmitOrder(msg); rej != nil {
			writeJSON(rw, http.StatusConflict, protocol.RejectMsg{
				Type: "REJECT", FactionID: msg.FactionID, Tick: msg.Tick,
				Code: rej.Code, Reason: rej.Reason,
			})
			return
		}
		writeJSON(rw, http.StatusOK, protocol.AckMsg{
			Type: "ACK", FactionID: msg.FactionID, Tick: msg.Tick,
		})
	})

	mux.HandleFunc("/v1/control/rollback", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Tick uint64 `json:"tick"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if err := eng.Rollback(req.Tick); err != nil {
			status := http.StatusInternalServerError
			code := protocol.ErrInternal
			if errors.Is(err, snapshot.ErrRollbackOutOfRange) {
				status = http.StatusBadRequest
				code = protocol.ErrRollbackRange
			}
			writeJSON(rw, status, map[string]any{"ok": false, "code": code, "error": err.Error()})
			return
		}
		logger.Printf("rolled back to tick=%d", req.Tick)
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": req.Tick})
	})

	mux.HandleFunc("/v1/control/reload_config", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if err := eng.ReloadConfig(req.Path); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		logger.Printf("staged tuning reload from %s", req.Path)
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
	})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
