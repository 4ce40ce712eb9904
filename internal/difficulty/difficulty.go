// Package difficulty holds the pure scoring and timing policy for the
// three training levels. Nothing in here keeps state.
package difficulty

import (
	"fmt"
	"math"

	"github.com/Gkfit2025/Burns/internal/models"
)

// Settings describes one difficulty level. Label, Description and Color
// are presentation metadata for the renderer; the engine only reads the
// multipliers and the initial time.
type Settings struct {
	Label           string
	Description     string
	Color           string
	InitialTime     int // seconds on the clock at scenario start
	ScoreMultiplier float64
	TimeMultiplier  float64
}

var settings = map[models.DifficultyLevel]Settings{
	models.Beginner: {
		Label:           "Beginner",
		Description:     "Extended time with forgiving scoring for learning.",
		Color:           "green",
		InitialTime:     90,
		ScoreMultiplier: 0.5,
		TimeMultiplier:  1.5,
	},
	models.Intermediate: {
		Label:           "Intermediate",
		Description:     "Moderate time limits with standard scoring.",
		Color:           "blue",
		InitialTime:     60,
		ScoreMultiplier: 1,
		TimeMultiplier:  1,
	},
	models.Advanced: {
		Label:           "Advanced",
		Description:     "Tight time limits with strict scoring for experts.",
		Color:           "red",
		InitialTime:     45,
		ScoreMultiplier: 1.5,
		TimeMultiplier:  0.75,
	},
}

// Levels lists the difficulty levels in ascending order.
func Levels() []models.DifficultyLevel {
	return []models.DifficultyLevel{models.Beginner, models.Intermediate, models.Advanced}
}

// SettingsFor returns the settings table entry for a level. Unknown
// levels fall back to intermediate; callers should have validated the
// level with Parse first.
func SettingsFor(level models.DifficultyLevel) Settings {
	if s, ok := settings[level]; ok {
		return s
	}
	return settings[models.Intermediate]
}

// Parse validates a user-supplied difficulty name.
func Parse(s string) (models.DifficultyLevel, error) {
	level := models.DifficultyLevel(s)
	if _, ok := settings[level]; !ok {
		return "", fmt.Errorf("unknown difficulty level %q", s)
	}
	return level, nil
}

// AdjustScore scales a raw score delta by the level's score multiplier
// and the scenario complexity (1-10, where 5 is neutral). Rounds half
// away from zero.
func AdjustScore(raw int, level models.DifficultyLevel, complexity int) int {
	s := SettingsFor(level)
	return round(float64(raw) * s.ScoreMultiplier * (float64(complexity) / 5))
}

// AdjustTime scales a raw time bonus (seconds) by the level's time
// multiplier. Rounds half away from zero.
func AdjustTime(raw int, level models.DifficultyLevel) int {
	return round(float64(raw) * SettingsFor(level).TimeMultiplier)
}

// InitialTime returns the countdown budget in seconds for a level.
func InitialTime(level models.DifficultyLevel) int {
	return SettingsFor(level).InitialTime
}

// round is math.Round: halves round away from zero, so the adjustment is
// symmetric for penalties and bonuses.
func round(v float64) int {
	return int(math.Round(v))
}
