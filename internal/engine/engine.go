// Package engine implements the session state machine for the burn
// management trainer: scenario selection, the decision/outcome loop, the
// countdown and its timeout, and the deferred post-game cleanup. All
// transitions are serialized and atomic: a rejected command leaves the
// state exactly as it was.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gkfit2025/Burns/internal/catalog"
	"github.com/Gkfit2025/Burns/internal/difficulty"
	"github.com/Gkfit2025/Burns/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownScenario   = errors.New("unknown scenario")
	ErrUnknownDecision   = errors.New("unknown decision")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrFeedbackPending rejects a decision submitted before the
	// previous one's feedback was acknowledged.
	ErrFeedbackPending = fmt.Errorf("%w: feedback pending", ErrInvalidTransition)
)

const (
	// celebrationDelay is how long the one-shot celebration state stays
	// set after a successful terminal outcome.
	celebrationDelay = 3 * time.Second
	// summaryDelay is how long the scenario reference survives after a
	// terminal outcome before the session falls back to the summary view.
	summaryDelay = 1500 * time.Millisecond

	timeoutFeedback = "Time's up! The patient deteriorated while the decision was pending."
)

// Saver mirrors state changes to durable storage. Implementations must
// not block; the engine calls Save after every transition.
type Saver interface {
	Save(models.SessionState)
	Clear()
}

// Engine owns the one mutable SessionState. Everything outside reads
// snapshots and submits commands.
type Engine struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	clock   Clock
	saver   Saver
	log     zerolog.Logger

	state models.SessionState

	// lastScenarioID survives the post-game scenario clear so the same
	// case can be restarted from the summary view.
	lastScenarioID string

	celebrationTimer Timer
	summaryTimer     Timer

	subs []chan struct{}
}

type Option func(*Engine)

// WithClock replaces the wall clock; tests use this to fire the
// deferred cleanup callbacks deterministically.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithSaver mirrors every transition to the given store.
func WithSaver(s Saver) Option { return func(e *Engine) { e.saver = s } }

func WithLogger(log zerolog.Logger) Option { return func(e *Engine) { e.log = log } }

func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: cat,
		clock:   RealClock(),
		log:     zerolog.Nop(),
		state:   models.SessionState{Difficulty: models.Intermediate},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore adopts a previously persisted state. References are checked
// against the catalog; a state that no longer resolves is rejected so
// the caller can start fresh instead. Transient fields (celebration,
// pending post-game cleanup) are settled rather than rescheduled.
func (e *Engine) Restore(st models.SessionState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st.Difficulty == "" {
		st.Difficulty = models.Intermediate
	}
	if _, err := difficulty.Parse(string(st.Difficulty)); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if st.ScenarioID != "" {
		if _, ok := e.catalog.Get(st.ScenarioID); !ok {
			return fmt.Errorf("restore: %w: %s", ErrUnknownScenario, st.ScenarioID)
		}
		if st.StepID != "" {
			if _, ok := e.catalog.Step(st.ScenarioID, st.StepID); !ok {
				return fmt.Errorf("restore: step %q not in scenario %q", st.StepID, st.ScenarioID)
			}
		}
	}
	if st.TimeRemaining < 0 {
		return fmt.Errorf("restore: negative time remaining")
	}

	e.state = st.Clone()
	e.lastScenarioID = st.ScenarioID
	e.state.Celebrating = false
	if e.state.GameOver {
		// The deferred summary cleanup may have been cut off by the
		// previous process exit; settle it now.
		e.state.ScenarioID = ""
		e.state.StepID = ""
		e.state.TimerActive = false
	}
	e.persistAndNotify()
	return nil
}

// Scenarios lists the catalog content in authoring order, for the
// renderer's selection view.
func (e *Engine) Scenarios() []models.Scenario {
	return e.catalog.List()
}

// Subscribe returns a channel that receives a (coalesced) signal after
// every state change. Intended for the renderer's event loop.
func (e *Engine) Subscribe() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan struct{}, 1)
	e.subs = append(e.subs, ch)
	return ch
}

// SelectScenario marks a scenario as chosen. Only valid when no scenario
// is active and no finished game is awaiting cleanup.
func (e *Engine) SelectScenario(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.ScenarioID != "" || e.state.GameOver {
		return fmt.Errorf("%w: scenario already active", ErrInvalidTransition)
	}
	if _, ok := e.catalog.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}
	e.state.ScenarioID = id
	e.state.ScenarioSelected = true
	e.lastScenarioID = id
	e.persistAndNotify()
	return nil
}

// ChooseDifficulty updates the selected level. It has no other side
// effect, so it is allowed any time the countdown is not running.
func (e *Engine) ChooseDifficulty(level models.DifficultyLevel) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := difficulty.Parse(string(level)); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownDifficulty, level)
	}
	if e.state.TimerActive {
		return fmt.Errorf("%w: attempt in progress", ErrInvalidTransition)
	}
	e.state.Difficulty = level
	e.persistAndNotify()
	return nil
}

// StartScenario begins the attempt: initial step, fresh score, full
// clock. The countdown starts here and nowhere else.
func (e *Engine) StartScenario() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.ScenarioSelected || e.state.ScenarioID == "" {
		return fmt.Errorf("%w: no scenario selected", ErrInvalidTransition)
	}
	e.startLocked(e.state.ScenarioID)
	return nil
}

// RestartScenario re-runs StartScenario semantics for the last played
// scenario, including from the post-game summary view.
func (e *Engine) RestartScenario() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastScenarioID == "" {
		return fmt.Errorf("%w: nothing to restart", ErrInvalidTransition)
	}
	e.startLocked(e.lastScenarioID)
	return nil
}

// startLocked assumes e.mu is held and id resolves in the catalog.
func (e *Engine) startLocked(id string) {
	sc, _ := e.catalog.Get(id)
	e.cancelTimersLocked()
	e.state = models.SessionState{
		AttemptID:        uuid.NewString(),
		ScenarioID:       id,
		StepID:           sc.InitialStep,
		Difficulty:       e.state.Difficulty,
		ScenarioSelected: true,
		TimeRemaining:    difficulty.InitialTime(e.state.Difficulty),
		TimerActive:      true,
		History:          []string{sc.Title},
	}
	e.lastScenarioID = id
	e.log.Info().Str("scenario", id).Str("attempt", e.state.AttemptID).
		Str("difficulty", string(e.state.Difficulty)).Msg("scenario started")
	e.persistAndNotify()
}

// SubmitDecision resolves a decision on the current step: history,
// score, feedback, and either advancement or the terminal transition.
// Rejected while feedback from the previous decision is still pending.
func (e *Engine) SubmitDecision(decisionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.GameOver || e.state.ScenarioID == "" || e.state.StepID == "" {
		return fmt.Errorf("%w: no active step", ErrInvalidTransition)
	}
	if e.state.Feedback != nil {
		return ErrFeedbackPending
	}
	sc, ok := e.catalog.Get(e.state.ScenarioID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScenario, e.state.ScenarioID)
	}
	step, ok := e.catalog.Step(sc.ID, e.state.StepID)
	if !ok {
		return fmt.Errorf("%w: no active step", ErrInvalidTransition)
	}
	var dec *models.Decision
	for i := range step.Decisions {
		if step.Decisions[i].ID == decisionID {
			dec = &step.Decisions[i]
			break
		}
	}
	if dec == nil {
		return fmt.Errorf("%w: %s", ErrUnknownDecision, decisionID)
	}

	// Validation is done; everything below must succeed as a unit.
	out := dec.Outcome
	delta := difficulty.AdjustScore(out.ScoreChange, e.state.Difficulty, sc.Complexity)
	e.state.History = append(e.state.History, dec.Text)
	e.state.Score += delta

	kind := models.FeedbackError
	if out.IsCorrect {
		kind = models.FeedbackSuccess
	}
	e.state.Feedback = &models.Feedback{
		Message: fmt.Sprintf("%s (%+d points)", out.Feedback, delta),
		Kind:    kind,
	}

	if out.IsGameOver {
		e.state.TimerActive = false
		e.state.GameOver = true
		e.state.Success = out.IsCorrect
		if out.IsCorrect {
			e.state.Celebrating = true
			e.celebrationTimer = e.clock.AfterFunc(celebrationDelay, e.clearCelebration)
		}
		e.summaryTimer = e.clock.AfterFunc(summaryDelay, e.clearScenarioRef)
		e.log.Info().Str("attempt", e.state.AttemptID).Bool("success", out.IsCorrect).
			Int("score", e.state.Score).Msg("scenario finished")
	} else {
		e.state.StepID = out.NextStep
		if out.AddTime > 0 {
			e.state.TimeRemaining += difficulty.AdjustTime(out.AddTime, e.state.Difficulty)
		}
	}
	e.persistAndNotify()
	return nil
}

// AcknowledgeFeedback clears the pending feedback so the next decision
// can be submitted.
func (e *Engine) AcknowledgeFeedback() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Feedback == nil {
		return fmt.Errorf("%w: no feedback pending", ErrInvalidTransition)
	}
	e.state.Feedback = nil
	e.persistAndNotify()
	return nil
}

// ReturnToSelection discards all in-flight state and clears durable
// storage. The chosen difficulty survives as a convenience.
func (e *Engine) ReturnToSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelTimersLocked()
	e.state = models.SessionState{Difficulty: e.state.Difficulty}
	e.lastScenarioID = ""
	if e.saver != nil {
		e.saver.Clear()
	}
	e.notifyLocked()
}

// Tick advances the countdown by one second. It is a no-op unless the
// timer is active with time on the clock, so a racing tick after
// game-over can never double-fire the timeout or push time negative.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.TimerActive || e.state.GameOver || e.state.TimeRemaining <= 0 {
		return
	}
	e.state.TimeRemaining--
	if e.state.TimeRemaining == 0 {
		e.timeoutLocked()
	}
	e.persistAndNotify()
}

// timeoutLocked ends the attempt as a failure. Unlike the terminal
// outcome path, the scenario reference is cleared immediately rather
// than after summaryDelay; this mirrors the product's behavior.
func (e *Engine) timeoutLocked() {
	e.state.TimerActive = false
	e.state.GameOver = true
	e.state.Success = false
	e.state.Feedback = &models.Feedback{Message: timeoutFeedback, Kind: models.FeedbackError}
	e.state.ScenarioID = ""
	e.state.StepID = ""
	e.log.Info().Str("attempt", e.state.AttemptID).Int("score", e.state.Score).Msg("attempt timed out")
}

func (e *Engine) clearCelebration() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Celebrating {
		return
	}
	e.state.Celebrating = false
	e.persistAndNotify()
}

func (e *Engine) clearScenarioRef() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.GameOver || e.state.ScenarioID == "" {
		return
	}
	e.state.ScenarioID = ""
	e.state.StepID = ""
	e.persistAndNotify()
}

// cancelTimersLocked stops pending deferred cleanups so they cannot
// clobber a newer attempt's state.
func (e *Engine) cancelTimersLocked() {
	if e.celebrationTimer != nil {
		e.celebrationTimer.Stop()
		e.celebrationTimer = nil
	}
	if e.summaryTimer != nil {
		e.summaryTimer.Stop()
		e.summaryTimer = nil
	}
}

func (e *Engine) persistAndNotify() {
	if e.saver != nil {
		e.saver.Save(e.state)
	}
	e.notifyLocked()
}

func (e *Engine) notifyLocked() {
	for _, ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
