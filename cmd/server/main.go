package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"hegemon.sim/internal/observability"
	"hegemon.sim/internal/persistence/hashlog"
	"hegemon.sim/internal/persistence/turnlog"
	"hegemon.sim/internal/sim/engine"
	"hegemon.sim/internal/sim/tuning"
	"hegemon.sim/internal/sim/worldgen"
	"hegemon.sim/internal/transport/ws"
)

// envConfig overrides flag defaults; flags still win when set explicitly.
type envConfig struct {
	Addr        string `env:"HS_ADDR"`
	DataDir     string `env:"HS_DATA_DIR"`
	TuningPath  string `env:"HS_TUNING"`
	Seed        int64  `env:"HS_SEED"`
	RunID       string `env:"HS_RUN_ID"`
	EnablePprof bool   `env:"HS_ENABLE_PPROF"`
}

func main() {
	ec := envConfig{Addr: ":8080", DataDir: "./data", Seed: 1337}
	if err := env.Parse(&ec); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	var (
		addr       = flag.String("addr", ec.Addr, "http listen address")
		dataDir    = flag.String("data", ec.DataDir, "runtime data directory")
		tuningPath = flag.String("tuning", ec.TuningPath, "path to tuning.yaml (default: <data>/tuning.yaml)")
		seed       = flag.Int64("seed", ec.Seed, "world seed")
		regions    = flag.Int("regions", 8, "region count for a fresh world")
		factions   = flag.String("factions", "aurora,boreal,cinder", "comma separated faction ids")
		runID      = flag.String("run", ec.RunID, "run id for log files (default: unix timestamp)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*dataDir, "tuning.yaml")
	}
	tun, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tun = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	gen := worldgen.DefaultConfig(*seed)
	gen.Regions = *regions
	if f := splitCSV(*factions); len(f) > 0 {
		gen.Factions = f
	}
	w, err := worldgen.Generate(gen)
	if err != nil {
		logger.Fatalf("worldgen: %v", err)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	rid := strings.TrimSpace(*runID)
	if rid == "" {
		rid = time.Now().UTC().Format("20060102T150405")
	}

	tlog, err := turnlog.NewWriter(filepath.Join(*dataDir, "turns"), rid)
	if err != nil {
		logger.Fatalf("turn log: %v", err)
	}
	defer tlog.Close()

	hlog, err := hashlog.Open(filepath.Join(*dataDir, "hashes.db"))
	if err != nil {
		logger.Fatalf("hash log: %v", err)
	}
	defer hlog.Close()

	metrics := observability.NewEngineMetrics()
	hub := ws.NewHub(metrics.BroadcastDropped)

	eng := engine.New(w, tun, engine.Options{
		Logger:    logger,
		Broadcast: hub,
		TurnLog:   turnLogAdapter{w: tlog},
		HashLog:   hlog,
		Metrics:   metrics,
	})

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/v1/ws", ws.NewServer(eng, hub, logger).Handler())
	registerControl(mux, eng, logger)

	if ec.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s seed=%d regions=%d run=%s", *addr, *seed, *regions, rid)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// turnLogAdapter bridges the jsonl writer to the engine's logger interface.
type turnLogAdapter struct {
	w *turnlog.Writer
}

func (a turnLogAdapter) WriteTurn(entry engine.TurnLogEntry) error {
	return a.w.Write(entry)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
