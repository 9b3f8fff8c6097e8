package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeTempTuning(t, `
schema_version: 1
turn_timeout_ms: 500
snapshot_every_ticks: 4
power:
  shortfall_penalty_permille: 2500
`)
	tun, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tun.TurnTimeoutMs != 500 {
		t.Fatalf("TurnTimeoutMs = %d, want 500", tun.TurnTimeoutMs)
	}
	if tun.SnapshotEveryTicks != 4 {
		t.Fatalf("SnapshotEveryTicks = %d, want 4", tun.SnapshotEveryTicks)
	}
	if tun.Power.ShortfallPenaltyPermille != 2500 {
		t.Fatalf("ShortfallPenaltyPermille = %d, want 2500", tun.Power.ShortfallPenaltyPermille)
	}
	// Untouched keys keep their defaults.
	if tun.Power.WarnThresholdPermille != Defaults().Power.WarnThresholdPermille {
		t.Fatal("unset key lost its default")
	}
	if tun.HistoryCapacity != Defaults().HistoryCapacity {
		t.Fatal("unset history capacity lost its default")
	}
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	path := writeTempTuning(t, `
snapshot_every_ticks: 0
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for snapshot_every_ticks=0")
	}

	path = writeTempTuning(t, `
power:
  warn_threshold_permille: 100
  critical_threshold_permille: 300
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "threshold") {
		t.Fatalf("expected threshold ordering error, got %v", err)
	}
}

func TestDefaults_Validate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestRequiredCapability(t *testing.T) {
	tun := Defaults()
	if got := tun.RequiredCapability("power.storage_policy"); got != "grid_control" {
		t.Fatalf("storage_policy capability = %q", got)
	}
	if got := tun.RequiredCapability("power.generate"); got != "" {
		t.Fatalf("power.generate should be ungated, got %q", got)
	}
}

func TestTechByID(t *testing.T) {
	tun := Defaults()
	if tech := tun.TechByID("grid_control"); tech == nil || tech.Capability != "grid_control" {
		t.Fatalf("TechByID(grid_control) = %+v", tech)
	}
	if tun.TechByID("nope") != nil {
		t.Fatal("unknown tech should be nil")
	}
}
