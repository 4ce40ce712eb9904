package engine

import (
	"github.com/Gkfit2025/Burns/internal/difficulty"
	"github.com/Gkfit2025/Burns/internal/models"
)

// Snapshot is the renderer-facing read view: a copy of the session state
// plus the resolved scenario and step and derived progress data. Safe to
// hold across frames; nothing in it aliases engine-owned memory.
type Snapshot struct {
	State    models.SessionState
	Scenario *models.Scenario
	Step     *models.Step

	// InitialTime is the full countdown budget for the selected
	// difficulty; Progress is the elapsed fraction of it, 0..1.
	InitialTime int
	Progress    float64
}

// Snapshot returns the current read view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:       e.state.Clone(),
		InitialTime: difficulty.InitialTime(e.state.Difficulty),
	}
	if e.state.ScenarioID != "" {
		snap.Scenario, _ = e.catalog.Get(e.state.ScenarioID)
		if e.state.StepID != "" {
			snap.Step, _ = e.catalog.Step(e.state.ScenarioID, e.state.StepID)
		}
	}
	if snap.InitialTime > 0 {
		elapsed := snap.InitialTime - e.state.TimeRemaining
		switch {
		case elapsed <= 0:
			snap.Progress = 0
		case elapsed >= snap.InitialTime:
			snap.Progress = 1
		default:
			snap.Progress = float64(elapsed) / float64(snap.InitialTime)
		}
	}
	return snap
}

// Verdict is the post-game performance summary line. Empty until the
// attempt is over.
func (s Snapshot) Verdict() string {
	if !s.State.GameOver {
		return ""
	}
	switch {
	case s.State.Success && s.State.Score >= 40:
		return "Excellent understanding of burn fluid management."
	case s.State.Success:
		return "Good job! You have a solid grasp of the concepts."
	default:
		return "Keep practicing! Review the feedback and try again."
	}
}
