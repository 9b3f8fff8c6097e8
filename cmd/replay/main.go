// Command replay re-resolves a recorded run and checks every committed
// tick's content hash against the turn log. Any mismatch means resolution
// is not deterministic (or the log was produced by different code or
// tuning) and the tool exits non-zero.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"hegemon.sim/internal/persistence/turnlog"
	"hegemon.sim/internal/sim/engine"
	"hegemon.sim/internal/sim/state"
	"hegemon.sim/internal/sim/tuning"
	"hegemon.sim/internal/sim/worldgen"
	"hegemon.sim/internal/snapshot"
)

func main() {
	var (
		logPath    = flag.String("log", "", "path to turns-<run>.jsonl.zst (or a directory of them)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (defaults when empty)")
		seed       = flag.Int64("seed", 1337, "world seed the run started from")
		regions    = flag.Int("regions", 8, "region count the run started from")
		factions   = flag.String("factions", "aurora,boreal,cinder", "comma separated faction ids")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, 0 = all)")
	)
	flag.Parse()

	if *logPath == "" {
		fmt.Fprintln(os.Stderr, "missing -log")
		os.Exit(2)
	}

	tun := tuning.Defaults()
	if *tuningPath != "" {
		var err error
		tun, err = tuning.Load(*tuningPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	gen := worldgen.DefaultConfig(*seed)
	gen.Regions = *regions
	if f := splitCSV(*factions); len(f) > 0 {
		gen.Factions = f
	}
	w, err := worldgen.Generate(gen)
	if err != nil {
		fmt.Fprintln(os.Stderr, "worldgen:", err)
		os.Exit(1)
	}

	files, err := resolveFiles(*logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list logs:", err)
		os.Exit(1)
	}

	sched := engine.NewScheduler()
	capturer := snapshot.NewCapturer(tun.SnapshotEveryTicks)
	capturer.Capture(0, snapshot.EncodeSections(w, nil))

	var checked, mismatches uint64
	for _, path := range files {
		err := turnlog.ReadAll(path, func(raw []byte) error {
			var rec engine.TurnLogEntry
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if rec.Tick == 0 {
				// Genesis capture, nothing to resolve.
				return nil
			}
			if *toTick != 0 && rec.Tick > *toTick {
				return nil
			}
			if rec.Tick != w.Tick+1 {
				return fmt.Errorf("log gap: world at tick %d, next record is %d", w.Tick, rec.Tick)
			}

			orders := state.OrderSet{}
			for _, ro := range rec.Orders {
				o := &state.Order{FactionID: ro.FactionID, Tick: rec.Tick}
				for _, d := range ro.Directives {
					o.Directives = append(o.Directives, state.Directive{
						Type:   d.Type,
						Target: d.Target,
						Weight: d.Weight,
						Amount: state.Milli(d.Amount),
					})
				}
				orders[ro.FactionID] = o
			}

			next, events, err := sched.Resolve(w, orders, tun)
			if err != nil {
				return fmt.Errorf("resolve tick %d: %w", rec.Tick, err)
			}
			w = next

			entry := capturer.Capture(w.Tick, snapshot.EncodeSections(w, events))
			checked++
			if entry.Hash != rec.Hash {
				mismatches++
				fmt.Printf("MISMATCH tick=%d logged=%s replayed=%s\n", rec.Tick, rec.Hash, entry.Hash)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}

	if mismatches > 0 {
		fmt.Printf("replay FAILED: checked=%d mismatches=%d\n", checked, mismatches)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks final_tick=%d\n", checked, w.Tick)
}

func resolveFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return turnlog.ListFiles(path)
	}
	return []string{path}, nil
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
