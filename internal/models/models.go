package models

// DifficultyLevel selects the score/time multipliers for an attempt.
type DifficultyLevel string

const (
	Beginner     DifficultyLevel = "beginner"
	Intermediate DifficultyLevel = "intermediate"
	Advanced     DifficultyLevel = "advanced"
)

// PatientInfo holds the descriptive presentation of the case. The engine
// never computes on these fields.
type PatientInfo struct {
	Age            int    `yaml:"age" json:"age"`
	Weight         int    `yaml:"weight" json:"weight"`
	BurnPercentage int    `yaml:"burn_percentage" json:"burnPercentage"`
	BurnDepth      string `yaml:"burn_depth" json:"burnDepth"`
	TimeFromInjury string `yaml:"time_from_injury" json:"timeFromInjury"`
	Location       string `yaml:"location" json:"location"`
	Climate        string `yaml:"climate" json:"climate"`
}

// Scenario is one branching clinical case. Immutable after load.
type Scenario struct {
	ID          string      `yaml:"id" json:"id"`
	Title       string      `yaml:"title" json:"title"`
	Description string      `yaml:"description" json:"description"`
	Complexity  int         `yaml:"complexity" json:"complexity"` // 1-10, scoring multiplier input
	InitialStep string      `yaml:"initial_step" json:"initialStep"`
	PatientInfo PatientInfo `yaml:"patient_info" json:"patientInfo"`
	Steps       []Step      `yaml:"steps" json:"steps"`
}

// Step is a single decision point within a scenario.
type Step struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	Question    string     `yaml:"question" json:"question"`
	Decisions   []Decision `yaml:"decisions" json:"decisions"`
}

// Decision is one choice a trainee can make at a step. IsUrgent is
// advisory display metadata only.
type Decision struct {
	ID       string  `yaml:"id" json:"id"`
	Text     string  `yaml:"text" json:"text"`
	IsUrgent bool    `yaml:"is_urgent,omitempty" json:"isUrgent,omitempty"`
	Outcome  Outcome `yaml:"outcome" json:"outcome"`
}

// Outcome is the fixed consequence of a decision. NextStep is empty only
// when IsGameOver is set; AddTime is a pre-multiplier bonus in seconds.
type Outcome struct {
	Feedback    string `yaml:"feedback" json:"feedback"`
	NextStep    string `yaml:"next_step,omitempty" json:"nextStep,omitempty"`
	IsGameOver  bool   `yaml:"is_game_over,omitempty" json:"isGameOver,omitempty"`
	IsCorrect   bool   `yaml:"is_correct" json:"isCorrect"`
	ScoreChange int    `yaml:"score_change" json:"scoreChange"`
	AddTime     int    `yaml:"add_time,omitempty" json:"addTime,omitempty"`
}

// FeedbackKind tells the renderer how to style a feedback message.
type FeedbackKind string

const (
	FeedbackSuccess FeedbackKind = "success"
	FeedbackError   FeedbackKind = "error"
)

// Feedback is the message shown after a decision resolves (or a timeout).
type Feedback struct {
	Message string       `json:"message"`
	Kind    FeedbackKind `json:"kind"`
}

// SessionState is the full mutable state of one training session. It is
// owned by the engine; everything else sees copies.
type SessionState struct {
	AttemptID        string          `json:"attemptId,omitempty"`
	ScenarioID       string          `json:"scenarioId,omitempty"`
	StepID           string          `json:"stepId,omitempty"`
	Difficulty       DifficultyLevel `json:"difficulty"`
	ScenarioSelected bool            `json:"scenarioSelected"`
	TimeRemaining    int             `json:"timeRemaining"`
	TimerActive      bool            `json:"timerActive"`
	Score            int             `json:"score"`
	GameOver         bool            `json:"gameOver"`
	Success          bool            `json:"success"`
	History          []string        `json:"history"`
	Feedback         *Feedback       `json:"feedback,omitempty"`
	Celebrating      bool            `json:"celebrating"`
}

// Clone returns a deep copy so callers can hold a snapshot without
// aliasing the engine's history slice or feedback pointer.
func (s SessionState) Clone() SessionState {
	out := s
	if s.History != nil {
		out.History = make([]string, len(s.History))
		copy(out.History, s.History)
	}
	if s.Feedback != nil {
		fb := *s.Feedback
		out.Feedback = &fb
	}
	return out
}
