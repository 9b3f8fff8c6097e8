package engine

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"hegemon.sim/internal/observability"
	"hegemon.sim/internal/protocol"
	"hegemon.sim/internal/sim/state"
	"hegemon.sim/internal/sim/tuning"
	"hegemon.sim/internal/snapshot"
)

// Broadcaster ships resolved-turn frames to subscribed consumers. Publish
// must never block: slow subscribers are the broadcaster's problem, not the
// engine's.
type Broadcaster interface {
	Publish(msg []byte)
}

// TurnLogger records resolved turns for offline replay verification.
type TurnLogger interface {
	WriteTurn(entry TurnLogEntry) error
}

// HashLogger indexes (tick, hash) rows for the replay verifier. It is a
// read-model and must not influence resolution.
type HashLogger interface {
	WriteTurn(tick uint64, hash, kind string, orderCount int) error
}

type TurnLogEntry struct {
	Tick   uint64          `json:"tick"`
	Kind   string          `json:"kind"`
	Hash   string          `json:"hash"`
	Orders []RecordedOrder `json:"orders,omitempty"`
	Events int             `json:"events,omitempty"`
}

type RecordedOrder struct {
	FactionID  string                  `json:"faction_id"`
	Directives []protocol.DirectiveMsg `json:"directives,omitempty"`
}

type Options struct {
	Logger    *log.Logger
	Broadcast Broadcaster
	TurnLog   TurnLogger
	HashLog   HashLogger
	Metrics   *observability.EngineMetrics
}

// Engine owns the committed world state and drives turn resolution. All
// state access happens on the Run goroutine; the exported methods hand
// requests over via channels, which is what makes rollback and config
// swaps mutually exclusive with resolution by construction.
type Engine struct {
	log *log.Logger

	world    *state.World
	tun      *tuning.Tuning
	nextTun  *tuning.Tuning // staged by reload_config, swapped at turn boundary
	queue    *TurnQueue
	sched    *Scheduler
	capturer *snapshot.Capturer
	history  *snapshot.History
	lastTurn time.Duration

	broadcast Broadcaster
	turnLog   TurnLogger
	hashLog   HashLogger
	metrics   *observability.EngineMetrics

	submit   chan submitReq
	cancel   chan cancelReq
	rollback chan rollbackReq
	reload   chan reloadReq
	status   chan chan Status
	stop     chan struct{}
	stopOnce sync.Once
}

type submitReq struct {
	msg  *protocol.OrderMsg
	resp chan *Rejection
}

type cancelReq struct {
	factionID string
	tick      uint64
	resp      chan bool
}

type rollbackReq struct {
	tick uint64
	resp chan error
}

type reloadReq struct {
	path string
	resp chan error
}

func New(w *state.World, tun *tuning.Tuning, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[engine] ", log.LstdFlags)
	}
	return &Engine{
		log:       logger,
		world:     w,
		tun:       tun,
		queue:     NewTurnQueue(expectedFactions(w), w.Tick+1),
		sched:     NewScheduler(),
		capturer:  snapshot.NewCapturer(tun.SnapshotEveryTicks),
		history:   snapshot.NewHistory(tun.HistoryCapacity),
		broadcast: opts.Broadcast,
		turnLog:   opts.TurnLog,
		hashLog:   opts.HashLog,
		metrics:   opts.Metrics,
		submit:    make(chan submitReq, 64),
		cancel:    make(chan cancelReq, 16),
		rollback:  make(chan rollbackReq),
		reload:    make(chan reloadReq),
		status:    make(chan chan Status, 16),
		stop:      make(chan struct{}),
	}
}

func expectedFactions(w *state.World) []string {
	return w.FactionIDs()
}

// Run drives the engine until the context is cancelled or Stop is called.
// The genesis state is captured as the tick-0 history entry before the
// first turn opens.
func (e *Engine) Run(ctx context.Context) error {
	e.captureGenesis()

	timeout := e.turnTimeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Stop()
			return ctx.Err()
		case <-e.stop:
			return nil
		case req := <-e.submit:
			req.resp <- e.handleSubmit(req.msg)
			if e.queue.Quorum() {
				e.resolveReady()
				timeout = e.turnTimeout()
				resetTimer(timer, timeout)
			}
		case req := <-e.cancel:
			req.resp <- e.queue.Cancel(req.factionID, req.tick)
		case req := <-e.rollback:
			req.resp <- e.handleRollback(req.tick)
			timeout = e.turnTimeout()
			resetTimer(timer, timeout)
		case req := <-e.reload:
			req.resp <- e.stageReload(req.path)
		case resp := <-e.status:
			resp <- e.currentStatus()
		case <-timer.C:
			e.resolveReady()
			timeout = e.turnTimeout()
			timer.Reset(timeout)
		}
	}
}

// Stop shuts the engine down and unblocks every pending caller. It is
// idempotent; Run also calls it on context cancellation so the request API
// never hangs after shutdown.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *Engine) turnTimeout() time.Duration {
	ms := e.tun.TurnTimeoutMs
	if ms <= 0 {
		ms = 2000
	}
	return time.Duration(ms) * time.Millisecond
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (e *Engine) captureGenesis() {
	if _, ok := e.history.LatestTick(); ok {
		return
	}
	sections := snapshot.EncodeSections(e.world, nil)
	entry := e.capturer.Capture(e.world.Tick, sections)
	if err := e.history.Append(entry); err != nil {
		e.log.Printf("genesis capture: %v", err)
		return
	}
	e.publishEntry(entry)
	e.writeLogs(entry, nil, 0)
}

// handleSubmit validates an envelope against the live faction roster and
// capability flags, then hands it to the queue. Rejections carry a
// protocol code and never mutate state.
func (e *Engine) handleSubmit(msg *protocol.OrderMsg) *Rejection {
	f := e.world.Factions[msg.FactionID]
	if f == nil {
		return reject(protocol.ErrOrderUnknownFaction, "unknown faction %s", msg.FactionID)
	}
	for _, d := range msg.Directives {
		if need := e.tun.RequiredCapability(d.Type); need != "" && !f.Capabilities[need] {
			return reject(protocol.ErrOrderCapability, "directive %s requires capability %s", d.Type, need)
		}
	}

	order := &state.Order{FactionID: msg.FactionID, Tick: msg.Tick}
	for _, d := range msg.Directives {
		order.Directives = append(order.Directives, state.Directive{
			Type:   d.Type,
			Target: d.Target,
			Weight: d.Weight,
			Amount: state.Milli(d.Amount),
		})
	}
	if rej := e.queue.Submit(order); rej != nil {
		return rej
	}
	if e.metrics != nil {
		e.metrics.ObserveQueue(e.queue.OpenCount(), e.queue.StagedCount())
	}
	return nil
}

// resolveReady resolves the closed turn and keeps going while the promoted
// staged orders already satisfy quorum, so a turn whose full order-set was
// staged in advance closes immediately instead of waiting out the timeout.
func (e *Engine) resolveReady() {
	e.resolveTurn()
	for e.queue.Quorum() {
		e.resolveTurn()
	}
}

// resolveTurn closes the queue, runs the phase pipeline, and on success
// captures, records and broadcasts the new tick. A staged tuning swap is
// applied before resolution so the whole turn sees one immutable config.
func (e *Engine) resolveTurn() {
	start := time.Now()
	if e.nextTun != nil {
		e.tun = e.nextTun
		e.nextTun = nil
		e.log.Printf("tuning config swapped at turn %d boundary", e.queue.Tick())
	}

	orders := e.queue.Close()
	work, events, err := e.sched.Resolve(e.world, orders, e.tun)
	if err != nil {
		e.log.Printf("turn %d aborted: %v", e.queue.Tick(), err)
		if e.metrics != nil {
			e.metrics.TurnAborted()
		}
		e.queue.Reopen()
		return
	}

	e.world = work
	sections := snapshot.EncodeSections(e.world, events)
	entry := e.capturer.Capture(e.world.Tick, sections)
	if histErr := e.history.Append(entry); histErr != nil {
		e.log.Printf("history append: %v", histErr)
	}
	e.publishEntry(entry)
	e.writeLogs(entry, orders, len(events))
	e.queue.Advance()
	e.lastTurn = time.Since(start)

	if e.metrics != nil {
		e.metrics.TurnResolved(entry.Kind.String(), e.lastTurn)
		e.metrics.ObserveHistory(e.history.Len())
		e.metrics.ObserveQueue(e.queue.OpenCount(), e.queue.StagedCount())
		for _, in := range e.world.Power.Incidents {
			e.metrics.IncidentEmitted(in.Kind, in.Severity)
		}
		for _, nid := range e.world.Power.NodeIDs() {
			n := e.world.Power.Nodes[nid]
			e.metrics.ObserveStability(nid, n.Region, float64(n.Stability)/1000)
		}
	}
}

func (e *Engine) publishEntry(entry snapshot.Entry) {
	if e.broadcast == nil {
		return
	}
	body, err := snapshot.EncodeFrame(entry)
	if err != nil {
		e.log.Printf("encode snapshot frame tick %d: %v", entry.Tick, err)
		return
	}
	frame, err := protocol.EncodeTurn(entry.Tick, entry.Kind.String(), entry.Hash, body)
	if err != nil {
		e.log.Printf("encode turn broadcast: %v", err)
		return
	}
	e.broadcast.Publish(frame)
}

func (e *Engine) writeLogs(entry snapshot.Entry, orders state.OrderSet, eventCount int) {
	if e.turnLog != nil {
		rec := TurnLogEntry{
			Tick:   entry.Tick,
			Kind:   entry.Kind.String(),
			Hash:   entry.Hash,
			Events: eventCount,
		}
		for _, fid := range sortedOrderKeys(orders) {
			o := orders[fid]
			ro := RecordedOrder{FactionID: fid}
			for _, d := range o.Directives {
				ro.Directives = append(ro.Directives, protocol.DirectiveMsg{
					Type:   d.Type,
					Target: d.Target,
					Weight: d.Weight,
					Amount: int64(d.Amount),
				})
			}
			rec.Orders = append(rec.Orders, ro)
		}
		if err := e.turnLog.WriteTurn(rec); err != nil {
			e.log.Printf("turn log: %v", err)
		}
	}
	if e.hashLog != nil {
		if err := e.hashLog.WriteTurn(entry.Tick, entry.Hash, entry.Kind.String(), len(orders)); err != nil {
			e.log.Printf("hash log: %v", err)
		}
	}
}

func sortedOrderKeys(orders state.OrderSet) []string {
	ids := make([]string, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// handleRollback restores the world at the requested tick and reopens the
// queue at tick+1. It runs on the loop goroutine, strictly between turns.
func (e *Engine) handleRollback(tick uint64) error {
	w, sections, err := e.history.Rollback(tick)
	if err != nil {
		return err
	}
	e.world = w
	e.capturer.Reset(sections)
	e.queue.ResetTo(tick + 1)
	e.log.Printf("rolled back to tick %d", tick)
	if e.metrics != nil {
		e.metrics.ObserveHistory(e.history.Len())
	}
	return nil
}

// stageReload loads and validates a tuning file now but swaps it in only
// at the next turn boundary. The running turn never sees a mixed config.
func (e *Engine) stageReload(path string) error {
	t, err := tuning.Load(path)
	if err != nil {
		return err
	}
	e.nextTun = t
	e.log.Printf("tuning reload staged from %s", path)
	return nil
}
