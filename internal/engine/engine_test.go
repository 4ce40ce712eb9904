package engine

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Gkfit2025/Burns/internal/catalog"
	"github.com/Gkfit2025/Burns/internal/models"
)

// Two-step scenario: one branching step, one closing step. Complexity 6
// so the intermediate score multiplier is 1.2.
const testContent = `
scenarios:
  - id: case
    title: Test Case
    description: A case for the engine tests.
    complexity: 6
    initial_step: s1
    patient_info:
      age: 30
      weight: 60
      burn_percentage: 20
      burn_depth: 2nd degree
      time_from_injury: 1 hour
      location: Test Town
      climate: Temperate
    steps:
      - id: s1
        title: First Call
        description: The patient arrives.
        question: What do you do?
        decisions:
          - id: good
            text: The right move
            outcome:
              feedback: Correct choice.
              is_correct: true
              score_change: 15
              add_time: 10
              next_step: s2
          - id: bad
            text: The wrong move
            outcome:
              feedback: Wrong choice.
              is_correct: false
              score_change: -10
              next_step: s2
          - id: fatal
            text: The fatal move
            outcome:
              feedback: Fatal choice.
              is_correct: false
              is_game_over: true
              score_change: -20
      - id: s2
        title: Second Call
        description: The case continues.
        question: How do you finish?
        decisions:
          - id: finish
            text: Finish well
            outcome:
              feedback: Case closed.
              is_correct: true
              is_game_over: true
              score_change: 20
          - id: flunk
            text: Finish badly
            outcome:
              feedback: Case lost.
              is_correct: false
              is_game_over: true
              score_change: -10
`

type fakeTimer struct {
	clock   *fakeClock
	fn      func()
	at      time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.stopped
	t.stopped = true
	return !was
}

// fakeClock fires AfterFunc callbacks only when the test advances it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, fn: fn, at: c.now + d}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	var rest []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && t.at <= c.now {
			t.stopped = true
			due = append(due, t)
			continue
		}
		rest = append(rest, t)
	}
	c.timers = rest
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

type fakeSaver struct {
	mu      sync.Mutex
	saves   []models.SessionState
	cleared int
}

func (s *fakeSaver) Save(st models.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, st.Clone())
}

func (s *fakeSaver) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
}

func (s *fakeSaver) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock, *fakeSaver) {
	t.Helper()
	cat, err := catalog.Parse([]byte(testContent))
	if err != nil {
		t.Fatalf("parse test content: %v", err)
	}
	clk := &fakeClock{}
	saver := &fakeSaver{}
	return New(cat, WithClock(clk), WithSaver(saver)), clk, saver
}

func startAttempt(t *testing.T, e *Engine, level models.DifficultyLevel) {
	t.Helper()
	if err := e.SelectScenario("case"); err != nil {
		t.Fatalf("select scenario: %v", err)
	}
	if err := e.ChooseDifficulty(level); err != nil {
		t.Fatalf("choose difficulty: %v", err)
	}
	if err := e.StartScenario(); err != nil {
		t.Fatalf("start scenario: %v", err)
	}
}

func TestStartScenarioInitialState(t *testing.T) {
	e, _, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)

	st := e.Snapshot().State
	if st.StepID != "s1" {
		t.Errorf("expected initial step s1, got %q", st.StepID)
	}
	if st.TimeRemaining != 60 {
		t.Errorf("expected 60s on the clock, got %d", st.TimeRemaining)
	}
	if !st.TimerActive {
		t.Error("timer should be active after start")
	}
	if st.Score != 0 {
		t.Errorf("score should start at 0, got %d", st.Score)
	}
	if len(st.History) != 1 || st.History[0] != "Test Case" {
		t.Errorf("history should open with the scenario title, got %v", st.History)
	}
	if st.AttemptID == "" {
		t.Error("attempt id should be assigned")
	}
	if st.Feedback != nil || st.GameOver || st.Celebrating {
		t.Error("start should clear feedback, game-over and celebration state")
	}
}

func TestSubmitDecisionAdvances(t *testing.T) {
	e, _, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)

	if err := e.SubmitDecision("good"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	st := e.Snapshot().State
	// 15 * 1.0 * (6/5) = 18
	if st.Score != 18 {
		t.Errorf("expected score 18, got %d", st.Score)
	}
	// 60 + adjustTime(10, intermediate) = 70
	if st.TimeRemaining != 70 {
		t.Errorf("expected 70s after time bonus, got %d", st.TimeRemaining)
	}
	if st.StepID != "s2" {
		t.Errorf("expected step s2, got %q", st.StepID)
	}
	if st.Feedback == nil || st.Feedback.Kind != models.FeedbackSuccess {
		t.Fatalf("expected success feedback, got %+v", st.Feedback)
	}
	if st.Feedback.Message != "Correct choice. (+18 points)" {
		t.Errorf("unexpected feedback message %q", st.Feedback.Message)
	}
	if len(st.History) != 2 || st.History[1] != "The right move" {
		t.Errorf("history should record the decision text, got %v", st.History)
	}
}

func TestSubmitRejectedWhileFeedbackPending(t *testing.T) {
	e, _, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)

	if err := e.SubmitDecision("good"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := e.Snapshot().State

	err := e.SubmitDecision("finish")
	if !errors.Is(err, ErrFeedbackPending) {
		t.Fatalf("expected ErrFeedbackPending, got %v", err)
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("feedback-pending rejection should also be an invalid transition")
	}
	after := e.Snapshot().State
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rejected submit mutated state:\nbefore %+v\nafter  %+v", before, after)
	}

	if err := e.AcknowledgeFeedback(); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if e.Snapshot().State.Feedback != nil {
		t.Error("acknowledge should clear feedback")
	}
	if err := e.SubmitDecision("finish"); err != nil {
		t.Fatalf("submit after acknowledge: %v", err)
	}
}

func TestUnknownDecisionIsAtomic(t *testing.T) {
	e, _, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)
	before := e.Snapshot().State

	err := e.SubmitDecision("no-such-decision")
	if !errors.Is(err, ErrUnknownDecision) {
		t.Fatalf("expected ErrUnknownDecision, got %v", err)
	}
	after := e.Snapshot().State
	if !reflect.DeepEqual(before, after) {
		t.Error("unknown decision mutated state")
	}
}

func TestTerminalCorrectOutcome(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)

	if err := e.SubmitDecision("good"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := e.AcknowledgeFeedback(); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if err := e.SubmitDecision("finish"); err != nil {
		t.Fatalf("submit terminal: %v", err)
	}

	st := e.Snapshot().State
	if !st.GameOver || !st.Success {
		t.Fatalf("expected successful game over, got gameOver=%v success=%v", st.GameOver, st.Success)
	}
	if st.TimerActive {
		t.Error("timer should stop on terminal outcome")
	}
	if !st.Celebrating {
		t.Error("correct terminal outcome should set celebration")
	}
	// 18 + round(20 * 1.2) = 42
	if st.Score != 42 {
		t.Errorf("expected score 42, got %d", st.Score)
	}
	if st.ScenarioID == "" {
		t.Error("scenario reference should survive until the summary delay fires")
	}

	clk.advance(1500 * time.Millisecond)
	st = e.Snapshot().State
	if st.ScenarioID != "" || st.StepID != "" {
		t.Error("scenario reference should clear after the summary delay")
	}
	if !st.Celebrating {
		t.Error("celebration should still be set at 1.5s")
	}
	if !st.GameOver || !st.Success {
		t.Error("summary cleanup must not touch the game-over result")
	}

	clk.advance(1500 * time.Millisecond)
	if e.Snapshot().State.Celebrating {
		t.Error("celebration should clear after 3s")
	}
}

func TestTerminalIncorrectOutcome(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)

	if err := e.SubmitDecision("fatal"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	st := e.Snapshot().State
	if !st.GameOver || st.Success {
		t.Fatalf("expected failed game over, got gameOver=%v success=%v", st.GameOver, st.Success)
	}
	if st.Celebrating {
		t.Error("incorrect terminal outcome must not celebrate")
	}
	if st.Feedback == nil || st.Feedback.Kind != models.FeedbackError {
		t.Errorf("expected error feedback, got %+v", st.Feedback)
	}

	clk.advance(2 * time.Second)
	if e.Snapshot().State.ScenarioID != "" {
		t.Error("scenario reference should clear after the summary delay")
	}
}

func TestTimeout(t *testing.T) {
	e, _, _ := newTestEngine(t)
	startAttempt(t, e, models.Advanced)

	if got := e.Snapshot().State.TimeRemaining; got != 45 {
		t.Fatalf("advanced should start with 45s, got %d", got)
	}
	for i := 0; i < 45; i++ {
		e.Tick()
	}
	st := e.Snapshot().State
	if !st.GameOver || st.Success {
		t.Fatalf("expected timeout failure, got gameOver=%v success=%v", st.GameOver, st.Success)
	}
	if st.TimerActive {
		t.Error("timer should stop on timeout")
	}
	if st.TimeRemaining != 0 {
		t.Errorf("time remaining should be exactly 0, got %d", st.TimeRemaining)
	}
	if st.ScenarioID != "" || st.StepID != "" {
		t.Error("timeout clears the scenario reference immediately")
	}
	if st.Feedback == nil || st.Feedback.Kind != models.FeedbackError {
		t.Errorf("expected timeout feedback, got %+v", st.Feedback)
	}

	// Late ticks must not fire again or push time negative.
	before := e.Snapshot().State
	e.Tick()
	e.Tick()
	if !reflect.DeepEqual(before, e.Snapshot().State) {
		t.Error("ticks after timeout mutated state")
	}

	if err := e.SubmitDecision("good"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("decisions after timeout should be invalid, got %v", err)
	}
}

func TestTickOutsideAttemptIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t)
	before := e.Snapshot().State
	e.Tick()
	if !reflect.DeepEqual(before, e.Snapshot().State) {
		t.Error("tick outside an attempt mutated state")
	}
}

func TestRestartScenario(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)
	if err := e.SubmitDecision("fatal"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	firstAttempt := e.Snapshot().State.AttemptID

	if err := e.RestartScenario(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	st := e.Snapshot().State
	if st.ScenarioID != "case" || st.StepID != "s1" {
		t.Errorf("restart should rerun the same scenario from the top, got %q/%q", st.ScenarioID, st.StepID)
	}
	if st.GameOver || st.Feedback != nil || st.Score != 0 {
		t.Error("restart should reset result, feedback and score")
	}
	if st.AttemptID == firstAttempt {
		t.Error("restart should mint a new attempt id")
	}

	// The cancelled summary timer from the failed attempt must not
	// clobber the new one.
	clk.advance(5 * time.Second)
	st = e.Snapshot().State
	if st.ScenarioID != "case" {
		t.Error("stale cleanup timer fired into the restarted attempt")
	}
}

func TestRestartAfterSummaryCleanup(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)
	if err := e.SubmitDecision("fatal"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clk.advance(2 * time.Second)
	if e.Snapshot().State.ScenarioID != "" {
		t.Fatal("expected cleared scenario reference")
	}

	if err := e.RestartScenario(); err != nil {
		t.Fatalf("restart from summary view: %v", err)
	}
	if e.Snapshot().State.ScenarioID != "case" {
		t.Error("restart should recover the scenario from the summary view")
	}
}

func TestReturnToSelection(t *testing.T) {
	e, _, saver := newTestEngine(t)
	startAttempt(t, e, models.Advanced)
	if err := e.SubmitDecision("good"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	e.ReturnToSelection()
	st := e.Snapshot().State
	if st.ScenarioID != "" || st.StepID != "" || st.ScenarioSelected || st.GameOver || st.Feedback != nil {
		t.Errorf("return to selection should discard in-flight state, got %+v", st)
	}
	if st.Difficulty != models.Advanced {
		t.Error("chosen difficulty should survive return to selection")
	}
	if saver.clearCount() != 1 {
		t.Errorf("return to selection should clear durable storage once, got %d", saver.clearCount())
	}
	if err := e.RestartScenario(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("restart after reset should be invalid, got %v", err)
	}
}

func TestInvalidCommands(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if err := e.SelectScenario("no-such"); !errors.Is(err, ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
	if err := e.StartScenario(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("start without selection should be invalid, got %v", err)
	}
	if err := e.SubmitDecision("good"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("submit without an attempt should be invalid, got %v", err)
	}
	if err := e.AcknowledgeFeedback(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("acknowledge without feedback should be invalid, got %v", err)
	}
	if err := e.ChooseDifficulty("expert"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Errorf("expected ErrUnknownDifficulty, got %v", err)
	}

	startAttempt(t, e, models.Intermediate)
	if err := e.SelectScenario("case"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("selecting during an attempt should be invalid, got %v", err)
	}
	if err := e.ChooseDifficulty(models.Advanced); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("changing difficulty mid-attempt should be invalid, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	e, _, _ := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)
	if err := e.SubmitDecision("good"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	saved := e.Snapshot().State

	e2, _, _ := newTestEngine(t)
	if err := e2.Restore(saved); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got := e2.Snapshot().State
	if !reflect.DeepEqual(saved, got) {
		t.Errorf("restored state differs:\nsaved %+v\ngot   %+v", saved, got)
	}

	// The restored attempt keeps working.
	if err := e2.AcknowledgeFeedback(); err != nil {
		t.Fatalf("acknowledge after restore: %v", err)
	}
	if err := e2.SubmitDecision("finish"); err != nil {
		t.Fatalf("submit after restore: %v", err)
	}
}

func TestRestoreRejectsDanglingReferences(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if err := e.Restore(models.SessionState{ScenarioID: "gone", Difficulty: models.Beginner}); err == nil {
		t.Error("restore should reject an unknown scenario")
	}
	if err := e.Restore(models.SessionState{ScenarioID: "case", StepID: "gone", Difficulty: models.Beginner}); err == nil {
		t.Error("restore should reject an unknown step")
	}
	if err := e.Restore(models.SessionState{Difficulty: "expert"}); err == nil {
		t.Error("restore should reject an unknown difficulty")
	}
	if err := e.Restore(models.SessionState{Difficulty: models.Beginner, TimeRemaining: -1}); err == nil {
		t.Error("restore should reject negative time")
	}
}

func TestRestoreSettlesInterruptedCleanup(t *testing.T) {
	e, _, _ := newTestEngine(t)
	st := models.SessionState{
		ScenarioID:  "case",
		StepID:      "s2",
		Difficulty:  models.Intermediate,
		GameOver:    true,
		Success:     true,
		Celebrating: true,
		Score:       42,
	}
	if err := e.Restore(st); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got := e.Snapshot().State
	if got.ScenarioID != "" || got.StepID != "" {
		t.Error("restore should settle the owed post-game scenario clear")
	}
	if got.Celebrating {
		t.Error("restore should drop the transient celebration flag")
	}
	if !got.GameOver || !got.Success || got.Score != 42 {
		t.Error("restore must keep the game-over result intact")
	}
}

func TestSubscribeNotifies(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ch := e.Subscribe()

	if err := e.SelectScenario("case"); err != nil {
		t.Fatalf("select: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a notification after a transition")
	}
}

func TestSaverMirrorsTransitions(t *testing.T) {
	e, _, saver := newTestEngine(t)
	startAttempt(t, e, models.Intermediate)

	saver.mu.Lock()
	defer saver.mu.Unlock()
	if len(saver.saves) == 0 {
		t.Fatal("transitions should be mirrored to the saver")
	}
	last := saver.saves[len(saver.saves)-1]
	if last.ScenarioID != "case" || !last.TimerActive {
		t.Errorf("latest save should reflect the started attempt, got %+v", last)
	}
}
