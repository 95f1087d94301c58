package stats

import (
	"fmt"
	"io"

	"paddlerl/internal/model"
	"paddlerl/internal/nn"
)

// AgentSummary aggregates the training phases of one agent within a run.
type AgentSummary struct {
	Agent       string  `json:"agent"`
	Phases      int     `json:"phases"`
	Updates     int     `json:"updates"`
	LastEpoch   int     `json:"last_epoch"`
	MeanReward  float64 `json:"mean_reward"`
	RewardStd   float64 `json:"reward_std"`
	BestReward  float64 `json:"best_reward"`
	WorstReward float64 `json:"worst_reward"`
	CriticLoss  float64 `json:"critic_loss"`
	ActorLoss   float64 `json:"actor_loss"`
	HardSyncs   int     `json:"hard_syncs"`
	Checkpoints int     `json:"checkpoints"`
}

// PlotPoint is one sample of a per-epoch series.
type PlotPoint struct {
	Epoch int     `json:"epoch"`
	Value float64 `json:"value"`
}

// Summarize groups records by agent in order of first appearance. Losses are
// taken from the most recent phase.
func Summarize(records []model.TrainingRecord) []AgentSummary {
	order := make([]string, 0, 2)
	rewards := make(map[string][]float64)
	byAgent := make(map[string]*AgentSummary)
	for _, rec := range records {
		s, ok := byAgent[rec.Agent]
		if !ok {
			s = &AgentSummary{Agent: rec.Agent}
			byAgent[rec.Agent] = s
			order = append(order, rec.Agent)
		}
		s.Phases++
		s.Updates += rec.Updates
		if rec.ModelEpoch > s.LastEpoch {
			s.LastEpoch = rec.ModelEpoch
		}
		s.CriticLoss = rec.CriticLoss
		s.ActorLoss = rec.ActorLoss
		if rec.HardSynced {
			s.HardSyncs++
		}
		if rec.Checkpoint {
			s.Checkpoints++
		}
		rewards[rec.Agent] = append(rewards[rec.Agent], rec.MeanReward)
	}

	out := make([]AgentSummary, 0, len(order))
	for _, agent := range order {
		s := byAgent[agent]
		values := rewards[agent]
		s.MeanReward, s.RewardStd = avgStd(values)
		s.BestReward = maxFloat(values)
		s.WorstReward = minFloat(values)
		out = append(out, *s)
	}
	return out
}

// RewardCurve returns the mean reward of agent's phases smoothed over a
// trailing window. A window below one disables smoothing.
func RewardCurve(records []model.TrainingRecord, agent string, window int) []PlotPoint {
	if window < 1 {
		window = 1
	}
	var (
		epochs []int
		values []float64
	)
	for _, rec := range records {
		if rec.Agent != agent {
			continue
		}
		epochs = append(epochs, rec.ModelEpoch)
		values = append(values, rec.MeanReward)
	}
	points := make([]PlotPoint, 0, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		avg, _ := nn.Avg(values[start : i+1])
		points = append(points, PlotPoint{Epoch: epochs[i], Value: avg})
	}
	return points
}

// WriteSeries writes points as whitespace separated columns for plotting.
func WriteSeries(w io.Writer, name string, points []PlotPoint) error {
	if _, err := fmt.Fprintf(w, "# %s\n", name); err != nil {
		return err
	}
	for _, p := range points {
		if _, err := fmt.Fprintf(w, "%d %.6f\n", p.Epoch, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func avgStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	avg, _ := nn.Avg(values)
	std, _ := nn.Std(values)
	return avg, std
}

func maxFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, value := range values[1:] {
		if value > max {
			max = value
		}
	}
	return max
}

func minFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, value := range values[1:] {
		if value < min {
			min = value
		}
	}
	return min
}
