package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hegemon.sim/internal/protocol"
	"hegemon.sim/internal/sim/state"
	"hegemon.sim/internal/sim/tuning"
	"hegemon.sim/internal/sim/worldgen"
	"hegemon.sim/internal/snapshot"
)

type captureBroadcaster struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *captureBroadcaster) Publish(msg []byte) {
	c.mu.Lock()
	c.frames = append(c.frames, msg)
	c.mu.Unlock()
}

func (c *captureBroadcaster) ticks(t *testing.T) []uint64 {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []uint64
	for _, f := range c.frames {
		var msg protocol.TurnMsg
		if err := json.Unmarshal(f, &msg); err != nil {
			t.Fatalf("decode broadcast frame: %v", err)
		}
		out = append(out, msg.Tick)
	}
	return out
}

func startEngine(t *testing.T, factions []string, tun *tuning.Tuning) (*Engine, *captureBroadcaster) {
	t.Helper()
	cfg := worldgen.Config{Seed: 7, Regions: 4, Factions: factions}
	w, err := worldgen.Generate(cfg)
	if err != nil {
		t.Fatalf("worldgen: %v", err)
	}
	bc := &captureBroadcaster{}
	eng := New(w, tun, Options{Broadcast: bc})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return eng, bc
}

func order(faction string, tick uint64, directives ...protocol.DirectiveMsg) *protocol.OrderMsg {
	return &protocol.OrderMsg{
		Type:            protocol.TypeOrder,
		ProtocolVersion: protocol.Version,
		FactionID:       faction,
		Tick:            tick,
		Directives:      directives,
	}
}

// submitTurn submits one empty order per faction, which reaches quorum and
// resolves the turn before the last submit returns.
func submitTurn(t *testing.T, eng *Engine, factions []string, tick uint64) {
	t.Helper()
	for _, f := range factions {
		if rej := eng.SubmitOrder(order(f, tick)); rej != nil {
			t.Fatalf("submit %s tick %d: %+v", f, tick, rej)
		}
	}
}

func TestEngine_QuorumResolvesTurn(t *testing.T) {
	factions := []string{"east", "west"}
	eng, bc := startEngine(t, factions, tuning.Defaults())

	submitTurn(t, eng, factions, 1)

	st := eng.Status()
	if st.Tick != 1 {
		t.Fatalf("Tick = %d, want 1", st.Tick)
	}
	if st.OpenTurn != 2 {
		t.Fatalf("OpenTurn = %d, want 2", st.OpenTurn)
	}
	if st.LatestHash == "" {
		t.Fatal("no latest hash after resolution")
	}

	// Genesis plus the resolved turn were broadcast in order.
	ticks := bc.ticks(t)
	if len(ticks) != 2 || ticks[0] != 0 || ticks[1] != 1 {
		t.Fatalf("broadcast ticks = %v, want [0 1]", ticks)
	}
}

func TestEngine_RejectsBadSubmissions(t *testing.T) {
	factions := []string{"east", "west"}
	eng, _ := startEngine(t, factions, tuning.Defaults())

	rej := eng.SubmitOrder(order("nobody", 1))
	if rej == nil || rej.Code != protocol.ErrOrderUnknownFaction {
		t.Fatalf("unknown faction: %+v", rej)
	}

	rej = eng.SubmitOrder(order("east", 1, protocol.DirectiveMsg{
		Type: state.DirectiveStoragePolicy, Target: "r01-gen", Weight: 500,
	}))
	if rej == nil || rej.Code != protocol.ErrOrderCapability {
		t.Fatalf("ungated capability directive: %+v", rej)
	}

	if rej := eng.SubmitOrder(order("east", 1)); rej != nil {
		t.Fatalf("clean order rejected: %+v", rej)
	}
	rej = eng.SubmitOrder(order("east", 1))
	if rej == nil || rej.Code != protocol.ErrOrderDuplicate {
		t.Fatalf("duplicate: %+v", rej)
	}

	rej = eng.SubmitOrder(order("west", 5))
	if rej == nil || rej.Code != protocol.ErrOrderLate {
		t.Fatalf("far future order: %+v", rej)
	}

	// Rejections left the turn unresolved.
	if st := eng.Status(); st.Tick != 0 {
		t.Fatalf("Tick = %d, want 0", st.Tick)
	}
}

func TestEngine_CancelReleasesSlot(t *testing.T) {
	factions := []string{"east", "west"}
	eng, _ := startEngine(t, factions, tuning.Defaults())

	if rej := eng.SubmitOrder(order("east", 1)); rej != nil {
		t.Fatalf("submit: %+v", rej)
	}
	if !eng.CancelOrder("east", 1) {
		t.Fatal("cancel failed")
	}
	if eng.CancelOrder("east", 1) {
		t.Fatal("double cancel succeeded")
	}
	if rej := eng.SubmitOrder(order("east", 1)); rej != nil {
		t.Fatalf("resubmit after cancel: %+v", rej)
	}
}

func TestEngine_RollbackRestoresAndReopens(t *testing.T) {
	factions := []string{"east", "west"}
	eng, _ := startEngine(t, factions, tuning.Defaults())

	for tick := uint64(1); tick <= 3; tick++ {
		submitTurn(t, eng, factions, tick)
	}
	hashAt2 := func() string {
		// Walk history through Status after rolling back.
		return eng.Status().LatestHash
	}

	if err := eng.Rollback(2); err != nil {
		t.Fatalf("Rollback(2): %v", err)
	}
	st := eng.Status()
	if st.Tick != 2 {
		t.Fatalf("Tick = %d, want 2", st.Tick)
	}
	if st.OpenTurn != 3 {
		t.Fatalf("OpenTurn = %d, want 3", st.OpenTurn)
	}

	// Rolling back to the same tick again is a no-op on state.
	h := hashAt2()
	if err := eng.Rollback(2); err != nil {
		t.Fatalf("second Rollback(2): %v", err)
	}
	if got := eng.Status().LatestHash; got != h {
		t.Fatalf("rollback not idempotent: %s vs %s", got, h)
	}

	if err := eng.Rollback(99); !errors.Is(err, snapshot.ErrRollbackOutOfRange) {
		t.Fatalf("future rollback err = %v", err)
	}
}

func TestEngine_ResolutionAfterRollbackMatchesOriginal(t *testing.T) {
	factions := []string{"east", "west"}
	eng, _ := startEngine(t, factions, tuning.Defaults())

	submitTurn(t, eng, factions, 1)
	submitTurn(t, eng, factions, 2)
	origHash := eng.Status().LatestHash

	if err := eng.Rollback(1); err != nil {
		t.Fatalf("Rollback(1): %v", err)
	}
	submitTurn(t, eng, factions, 2)
	if got := eng.Status().LatestHash; got != origHash {
		t.Fatalf("re-resolved tick 2 hash %s, want %s", got, origHash)
	}
}

func TestEngine_TimeoutClosesTurn(t *testing.T) {
	tun := tuning.Defaults()
	tun.TurnTimeoutMs = 50
	factions := []string{"east", "west"}
	eng, _ := startEngine(t, factions, tun)

	// Only one of two factions submits: resolution must come from the
	// timeout, not quorum.
	if rej := eng.SubmitOrder(order("east", 1)); rej != nil {
		t.Fatalf("submit: %+v", rej)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if eng.Status().Tick >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("turn never resolved on timeout")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEngine_StagedOrderResolvesNextTurn(t *testing.T) {
	factions := []string{"east", "west"}
	eng, _ := startEngine(t, factions, tuning.Defaults())

	// Stage west's order for turn 2 before turn 1 has resolved.
	if rej := eng.SubmitOrder(order("west", 2)); rej != nil {
		t.Fatalf("stage: %+v", rej)
	}
	submitTurn(t, eng, factions, 1)

	st := eng.Status()
	if st.Tick != 1 {
		t.Fatalf("Tick = %d, want 1", st.Tick)
	}
	if st.OpenOrders != 1 {
		t.Fatalf("OpenOrders = %d, want promoted staged order", st.OpenOrders)
	}

	// East alone completes the quorum for turn 2.
	if rej := eng.SubmitOrder(order("east", 2)); rej != nil {
		t.Fatalf("submit east turn 2: %+v", rej)
	}
	if st := eng.Status(); st.Tick != 2 {
		t.Fatalf("Tick = %d, want 2", st.Tick)
	}
}

func TestEngine_StagedQuorumClosesPromotedTurn(t *testing.T) {
	factions := []string{"east", "west"}
	tun := tuning.Defaults()
	tun.TurnTimeoutMs = 60_000
	eng, _ := startEngine(t, factions, tun)

	// Both factions stage their turn-2 orders while turn 1 is still open.
	for _, f := range factions {
		if rej := eng.SubmitOrder(order(f, 2)); rej != nil {
			t.Fatalf("stage %s: %+v", f, rej)
		}
	}
	submitTurn(t, eng, factions, 1)

	// The promoted order-set already satisfies quorum, so turn 2 must close
	// without waiting out the timeout.
	if st := eng.Status(); st.Tick != 2 {
		t.Fatalf("Tick = %d, want 2", st.Tick)
	}
}

func TestEngine_ReloadConfigSwapsAtTurnBoundary(t *testing.T) {
	factions := []string{"east", "west"}
	tun := tuning.Defaults()
	tun.TurnTimeoutMs = 60_000
	eng, _ := startEngine(t, factions, tun)

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	override := "turn_timeout_ms: 60000\ndirective_caps:\n  power.generate: civic_planning\n"
	if err := os.WriteFile(path, []byte(override), 0o600); err != nil {
		t.Fatalf("write tuning: %v", err)
	}
	if err := eng.ReloadConfig(path); err != nil {
		t.Fatalf("reload: %v", err)
	}

	// The staged config is not live yet: the open turn still accepts the
	// directive it will gate.
	gen := protocol.DirectiveMsg{Type: state.DirectiveGenerate, Target: "r01-gen", Weight: 500}
	if rej := eng.SubmitOrder(order("east", 1, gen)); rej != nil {
		t.Fatalf("pre-boundary submit: %+v", rej)
	}
	if rej := eng.SubmitOrder(order("west", 1)); rej != nil {
		t.Fatalf("submit west: %+v", rej)
	}
	if st := eng.Status(); st.Tick != 1 {
		t.Fatalf("Tick = %d, want 1", st.Tick)
	}

	// The swap happened at the boundary; the same directive is now gated.
	rej := eng.SubmitOrder(order("east", 2, gen))
	if rej == nil || rej.Code != protocol.ErrOrderCapability {
		t.Fatalf("post-boundary submit: %+v", rej)
	}
}

func TestEngine_BroadcastFrameCarriesSnapshotBody(t *testing.T) {
	factions := []string{"east", "west"}
	eng, bc := startEngine(t, factions, tuning.Defaults())

	submitTurn(t, eng, factions, 1)
	if st := eng.Status(); st.Tick != 1 {
		t.Fatalf("Tick = %d, want 1", st.Tick)
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()
	if len(bc.frames) < 2 {
		t.Fatalf("frames = %d, want genesis plus turn 1", len(bc.frames))
	}
	var msg protocol.TurnMsg
	if err := json.Unmarshal(bc.frames[1], &msg); err != nil {
		t.Fatalf("decode broadcast frame: %v", err)
	}
	body, err := protocol.DecodeTurnBody(&msg)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	entry, err := snapshot.DecodeFrame(body)
	if err != nil {
		t.Fatalf("decode wire frame: %v", err)
	}
	if entry.Tick != 1 || entry.Hash != msg.ContentHash {
		t.Fatalf("entry tick %d hash %s, want tick 1 hash %s",
			entry.Tick, entry.Hash, msg.ContentHash)
	}
}

func TestEngine_ShutdownUnblocksRequests(t *testing.T) {
	w, err := worldgen.Generate(worldgen.Config{Seed: 7, Regions: 4, Factions: []string{"east"}})
	if err != nil {
		t.Fatalf("worldgen: %v", err)
	}
	eng := New(w, tuning.Defaults(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	cancel()
	<-done

	rej := eng.SubmitOrder(order("east", 1))
	if rej == nil || rej.Code != protocol.ErrBusy {
		t.Fatalf("submit after shutdown: %+v", rej)
	}
	if err := eng.Rollback(1); !errors.Is(err, ErrStopped) {
		t.Fatalf("rollback after shutdown: %v", err)
	}
	if st := eng.Status(); st.Tick != 0 {
		t.Fatalf("status after shutdown: %+v", st)
	}
	// Stop after a context-driven exit must not panic.
	eng.Stop()
	eng.Stop()
}
