package difficulty

import (
	"testing"

	"github.com/Gkfit2025/Burns/internal/models"
)

func TestAdjustScore(t *testing.T) {
	tests := []struct {
		name       string
		raw        int
		level      models.DifficultyLevel
		complexity int
		want       int
	}{
		{"intermediate mid complexity", 15, models.Intermediate, 6, 18},
		{"advanced penalty", -10, models.Advanced, 8, -24},
		{"zero is always zero", 0, models.Advanced, 10, 0},
		{"beginner halves", 10, models.Beginner, 5, 5},
		{"neutral complexity identity", 10, models.Intermediate, 5, 10},
		{"half rounds away from zero", 5, models.Beginner, 5, 3},     // 2.5 -> 3
		{"negative half rounds away", -5, models.Beginner, 5, -3},    // -2.5 -> -3
		{"low complexity shrinks", 15, models.Intermediate, 2, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustScore(tt.raw, tt.level, tt.complexity)
			if got != tt.want {
				t.Errorf("AdjustScore(%d, %s, %d) = %d, want %d", tt.raw, tt.level, tt.complexity, got, tt.want)
			}
			// Pure: same inputs, same output.
			if again := AdjustScore(tt.raw, tt.level, tt.complexity); again != got {
				t.Errorf("AdjustScore not deterministic: %d then %d", got, again)
			}
		})
	}
}

func TestAdjustTime(t *testing.T) {
	tests := []struct {
		raw   int
		level models.DifficultyLevel
		want  int
	}{
		{10, models.Beginner, 15},
		{10, models.Intermediate, 10},
		{10, models.Advanced, 8}, // 7.5 rounds to 8
		{0, models.Advanced, 0},
	}
	for _, tt := range tests {
		if got := AdjustTime(tt.raw, tt.level); got != tt.want {
			t.Errorf("AdjustTime(%d, %s) = %d, want %d", tt.raw, tt.level, got, tt.want)
		}
	}
}

func TestInitialTime(t *testing.T) {
	tests := []struct {
		level models.DifficultyLevel
		want  int
	}{
		{models.Beginner, 90},
		{models.Intermediate, 60},
		{models.Advanced, 45},
	}
	for _, tt := range tests {
		if got := InitialTime(tt.level); got != tt.want {
			t.Errorf("InitialTime(%s) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	for _, level := range Levels() {
		got, err := Parse(string(level))
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", level, err)
		}
		if got != level {
			t.Errorf("Parse(%q) = %q", level, got)
		}
	}
	if _, err := Parse("expert"); err == nil {
		t.Error("Parse should reject an unknown level")
	}
	if _, err := Parse(""); err == nil {
		t.Error("Parse should reject an empty level")
	}
}
