package phase

import (
	"hegemon.sim/internal/sim/state"
)

// VictoryPhase finalizes the turn: it recomputes faction scores from the
// other partitions and declares a victor once a score crosses the
// configured threshold. Writes only the scores partition.
type VictoryPhase struct{}

func (VictoryPhase) Name() string { return "victory" }
func (VictoryPhase) After() []string {
	return []string{"materials", "logistics", "population", "power", "crisis", "culture", "knowledge"}
}

func (VictoryPhase) Run(ctx *Context) error {
	w := ctx.World

	for _, fid := range w.FactionIDs() {
		stock := w.Materials.Stock[fid]
		score := stock.Food/10 + stock.Ore/10 + stock.Fuel/10

		score += w.Culture.Influence[fid]

		var stabSum, stabCount int64
		for _, nid := range w.Power.NodeIDs() {
			n := w.Power.Nodes[nid]
			if n.Owner == fid {
				stabSum += n.Stability
				stabCount++
			}
		}
		if stabCount > 0 {
			score += state.Milli(stabSum/stabCount) * 10
		}

		score += state.Milli(len(w.Knowledge.Research[fid].Unlocked)) * 50_000

		for _, rid := range w.RegionIDs() {
			if w.Terrain.Regions[rid].Owner == fid {
				score -= state.Milli(w.Crisis.Level[rid]) * 20_000
			}
		}
		if score < 0 {
			score = 0
		}
		w.Scores.Points[fid] = score

		if w.Scores.Victor == "" && score >= state.Milli(ctx.Tun.Society.VictoryScore) {
			w.Scores.Victor = fid
			ctx.Events.Append(state.Event{
				Kind:      state.EventVictory,
				Subsystem: "victory",
				Entity:    fid,
				Value:     int64(score),
			})
		}
	}
	return nil
}
