// Package tuning holds the hot-reloadable simulation tunables. A Tuning
// value is immutable after Load; reload_config builds a fresh value and the
// engine swaps the pointer at the next turn boundary, never mid-phase.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	SchemaVersion int `yaml:"schema_version"`

	TurnTimeoutMs      int `yaml:"turn_timeout_ms"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	HistoryCapacity    int `yaml:"history_capacity"`

	Power     Power     `yaml:"power"`
	Materials Materials `yaml:"materials"`
	Society   Society   `yaml:"society"`

	Techs []Tech `yaml:"techs"`

	// DirectiveCaps maps a directive type to the capability flag a faction
	// must hold before the turn queue accepts it. Types absent from the map
	// are ungated.
	DirectiveCaps map[string]string `yaml:"directive_caps"`
}

type Power struct {
	EfficiencyFloorPermille   int64 `yaml:"efficiency_floor_permille"`
	ShortfallPenaltyPermille  int64 `yaml:"shortfall_penalty_permille"`
	HeadroomBonusPermille     int64 `yaml:"headroom_bonus_permille"`
	WarnThresholdPermille     int64 `yaml:"warn_threshold_permille"`
	CriticalThresholdPermille int64 `yaml:"critical_threshold_permille"`
	BlackoutDeficitPermille   int64 `yaml:"blackout_deficit_permille"`
}

type Materials struct {
	ExtractionBasePermille int64 `yaml:"extraction_base_permille"`
	UpkeepFoodPermille     int64 `yaml:"upkeep_food_permille"`
}

type Society struct {
	GrowthPermille         int64 `yaml:"growth_permille"`
	StarvationPermille     int64 `yaml:"starvation_permille"`
	LaborPermille          int64 `yaml:"labor_permille"`
	TensionPerIncident     int64 `yaml:"tension_per_incident"` // Milli
	TensionDecayPermille   int64 `yaml:"tension_decay_permille"`
	CrisisThreshold        int64 `yaml:"crisis_threshold"` // Milli
	InfluenceDriftPermille int64 `yaml:"influence_drift_permille"`
	ResearchRatePermille   int64 `yaml:"research_rate_permille"`
	VictoryScore           int64 `yaml:"victory_score"` // Milli
}

type Tech struct {
	ID         string `yaml:"id"`
	Cost       int64  `yaml:"cost"` // Milli
	Capability string `yaml:"capability"`
}

func Load(path string) (*Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := Defaults()
	if err := yaml.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func Defaults() *Tuning {
	return &Tuning{
		SchemaVersion:      1,
		TurnTimeoutMs:      2000,
		SnapshotEveryTicks: 16,
		HistoryCapacity:    256,
		Power: Power{
			EfficiencyFloorPermille:   250,
			ShortfallPenaltyPermille:  3000,
			HeadroomBonusPermille:     100,
			WarnThresholdPermille:     400,
			CriticalThresholdPermille: 200,
			BlackoutDeficitPermille:   500,
		},
		Materials: Materials{
			ExtractionBasePermille: 800,
			UpkeepFoodPermille:     50,
		},
		Society: Society{
			GrowthPermille:         12,
			StarvationPermille:     40,
			LaborPermille:          600,
			TensionPerIncident:     250,
			TensionDecayPermille:   900,
			CrisisThreshold:        1000,
			InfluenceDriftPermille: 20,
			ResearchRatePermille:   100,
			VictoryScore:           1_000_000,
		},
		Techs: []Tech{
			{ID: "grid_control", Cost: 5_000, Capability: "grid_control"},
			{ID: "logistics_corps", Cost: 4_000, Capability: "logistics_corps"},
			{ID: "civic_planning", Cost: 6_000, Capability: "civic_planning"},
		},
		DirectiveCaps: map[string]string{
			"power.storage_policy": "grid_control",
			"logistics.prioritize": "logistics_corps",
		},
	}
}

func (t *Tuning) Validate() error {
	if t.SnapshotEveryTicks <= 0 {
		return fmt.Errorf("snapshot_every_ticks must be positive, got %d", t.SnapshotEveryTicks)
	}
	if t.HistoryCapacity <= 0 {
		return fmt.Errorf("history_capacity must be positive, got %d", t.HistoryCapacity)
	}
	if t.Power.EfficiencyFloorPermille < 0 || t.Power.EfficiencyFloorPermille > 1000 {
		return fmt.Errorf("efficiency_floor_permille out of range: %d", t.Power.EfficiencyFloorPermille)
	}
	if t.Power.CriticalThresholdPermille > t.Power.WarnThresholdPermille {
		return fmt.Errorf("critical threshold %d above warn threshold %d",
			t.Power.CriticalThresholdPermille, t.Power.WarnThresholdPermille)
	}
	for _, tech := range t.Techs {
		if tech.ID == "" || tech.Cost <= 0 {
			return fmt.Errorf("bad tech entry %q", tech.ID)
		}
	}
	return nil
}

// TechByID returns the tech definition or nil.
func (t *Tuning) TechByID(id string) *Tech {
	for i := range t.Techs {
		if t.Techs[i].ID == id {
			return &t.Techs[i]
		}
	}
	return nil
}

// RequiredCapability returns the capability flag gating a directive type,
// or "" when the type is ungated.
func (t *Tuning) RequiredCapability(directiveType string) string {
	return t.DirectiveCaps[directiveType]
}
