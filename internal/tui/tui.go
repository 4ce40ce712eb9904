// Package tui is the terminal renderer for the training engine. It owns
// no game state: every frame is drawn from an engine snapshot, and every
// keypress is translated into one engine command.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Gkfit2025/Burns/internal/debrief"
	"github.com/Gkfit2025/Burns/internal/difficulty"
	"github.com/Gkfit2025/Burns/internal/engine"
	"github.com/Gkfit2025/Burns/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FD75F")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	urgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF8700")).
			Bold(true)

	levelColors = map[string]lipgloss.Style{
		"green": lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
		"blue":  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")).Bold(true),
		"red":   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true),
	}
)

type model struct {
	eng       *engine.Engine
	debriefer *debrief.Engine
	updates   <-chan struct{}

	snap     engine.Snapshot
	progress progress.Model
	width    int
	height   int

	lastErr      error
	debriefText  string
	debriefBusy  bool
	debriefOfID  string // attempt the debrief belongs to
}

type stateChangedMsg struct{}

type debriefMsg struct {
	attemptID string
	text      string
	err       error
}

func newModel(eng *engine.Engine, db *debrief.Engine, updates <-chan struct{}) model {
	return model{
		eng:       eng,
		debriefer: db,
		updates:   updates,
		snap:      eng.Snapshot(),
		progress:  progress.New(progress.WithDefaultGradient()),
	}
}

func (m model) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.updates
		return stateChangedMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(48, msg.Width-20)

	case stateChangedMsg:
		m.snap = m.eng.Snapshot()
		return m, m.waitForUpdate()

	case debriefMsg:
		m.debriefBusy = false
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.debriefText = msg.text
		m.debriefOfID = msg.attemptID
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
		return m, tea.Quit
	}
	m.lastErr = nil

	st := m.snap.State
	switch {
	case st.GameOver:
		return m.keySummary(msg)
	case st.TimerActive && m.snap.Step != nil:
		return m.keyPlaying(msg)
	case st.ScenarioSelected:
		return m.keyDifficulty(msg)
	default:
		return m.keySelection(msg)
	}
}

func (m model) keySelection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if i, ok := digit(msg); ok {
		scenarios := m.eng.Scenarios()
		if i < len(scenarios) {
			m.lastErr = m.eng.SelectScenario(scenarios[i].ID)
		}
	}
	return m, nil
}

func (m model) keyDifficulty(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if i, ok := digit(msg); ok {
		levels := difficulty.Levels()
		if i < len(levels) {
			m.lastErr = m.eng.ChooseDifficulty(levels[i])
		}
		return m, nil
	}
	switch msg.String() {
	case "enter":
		m.debriefText = ""
		m.lastErr = m.eng.StartScenario()
	case "b":
		m.eng.ReturnToSelection()
	}
	return m, nil
}

func (m model) keyPlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snap.State.Feedback != nil {
		if msg.String() == "enter" {
			m.lastErr = m.eng.AcknowledgeFeedback()
		}
		return m, nil
	}
	if i, ok := digit(msg); ok {
		if i < len(m.snap.Step.Decisions) {
			m.lastErr = m.eng.SubmitDecision(m.snap.Step.Decisions[i].ID)
		}
	}
	return m, nil
}

func (m model) keySummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.snap.State.Feedback != nil {
			m.lastErr = m.eng.AcknowledgeFeedback()
		}
	case "r":
		m.debriefText = ""
		m.lastErr = m.eng.RestartScenario()
	case "b":
		m.debriefText = ""
		m.eng.ReturnToSelection()
	case "d":
		return m.requestDebrief()
	}
	return m, nil
}

func (m model) requestDebrief() (tea.Model, tea.Cmd) {
	if m.debriefer == nil || m.debriefBusy {
		return m, nil
	}
	snap := m.snap
	if m.debriefOfID == snap.State.AttemptID && m.debriefText != "" {
		return m, nil
	}
	m.debriefBusy = true
	title := ""
	if len(snap.State.History) > 0 {
		title = snap.State.History[0]
	}
	attempt := debrief.Attempt{
		ScenarioTitle: title,
		Difficulty:    string(snap.State.Difficulty),
		Score:         snap.State.Score,
		Success:       snap.State.Success,
		History:       snap.State.History,
	}
	id := snap.State.AttemptID
	db := m.debriefer
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		text, err := db.Debrief(ctx, attempt)
		return debriefMsg{attemptID: id, text: text, err: err}
	}
}

func (m model) View() string {
	st := m.snap.State

	var body string
	switch {
	case st.GameOver:
		body = m.viewSummary()
	case st.TimerActive && m.snap.Step != nil:
		body = m.viewPlaying()
	case st.ScenarioSelected:
		body = m.viewDifficulty()
	default:
		body = m.viewSelection()
	}

	if m.lastErr != nil {
		body += "\n" + errorStyle.Render(fmt.Sprintf("! %v", m.lastErr))
	}
	return "\n" + body + "\n"
}

func (m model) viewSelection() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BURNS FLUID MANAGEMENT TRAINING") + "\n\n")
	b.WriteString("Interactive scenarios for Indian healthcare settings.\n\n")
	for i, sc := range m.eng.Scenarios() {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%d. %s", i+1, sc.Title)) + "\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("   complexity %d/10", sc.Complexity)) + "\n")
		b.WriteString(wrap(sc.Description, m.contentWidth(), "   ") + "\n\n")
	}
	b.WriteString(helpStyle.Render("Press the scenario number to begin. q to quit."))
	return b.String()
}

func (m model) viewDifficulty() string {
	var b strings.Builder
	title := "Choose difficulty"
	if m.snap.Scenario != nil {
		title = m.snap.Scenario.Title
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	for i, level := range difficulty.Levels() {
		s := difficulty.SettingsFor(level)
		label := s.Label
		if style, ok := levelColors[s.Color]; ok {
			label = style.Render(label)
		}
		marker := " "
		if level == m.snap.State.Difficulty {
			marker = ">"
		}
		b.WriteString(fmt.Sprintf("%s %d. %s - %s (%ds on the clock)\n",
			marker, i+1, label, s.Description, s.InitialTime))
	}
	b.WriteString("\n" + helpStyle.Render("1-3 to pick a level, enter to start, b for scenario selection, q to quit."))
	return b.String()
}

func (m model) viewPlaying() string {
	st := m.snap.State
	step := m.snap.Step

	header := headerStyle.Render(m.snap.Scenario.Title) +
		dimStyle.Render(fmt.Sprintf("  score %d  time %ds", st.Score, st.TimeRemaining))
	bar := m.progress.ViewAs(1 - m.snap.Progress)

	var b strings.Builder
	b.WriteString(header + "\n" + bar + "\n\n")
	b.WriteString(titleStyle.Render(step.Title) + "\n")
	b.WriteString(wrap(step.Description, m.contentWidth(), "") + "\n\n")
	b.WriteString(headerStyle.Render(wrap(step.Question, m.contentWidth(), "")) + "\n\n")

	if st.Feedback != nil {
		style := successStyle
		if st.Feedback.Kind == models.FeedbackError {
			style = errorStyle
		}
		b.WriteString(style.Render(wrap(st.Feedback.Message, m.contentWidth(), "")) + "\n\n")
		b.WriteString(helpStyle.Render("Press enter to continue."))
	} else {
		for i, d := range step.Decisions {
			line := fmt.Sprintf("%d. %s", i+1, d.Text)
			if d.IsUrgent {
				line += " " + urgentStyle.Render("[urgent]")
			}
			b.WriteString(wrap(line, m.contentWidth(), "") + "\n")
		}
		b.WriteString("\n" + helpStyle.Render("Choose a decision by number. q to quit."))
	}

	main := b.String()
	side := m.renderPatient()
	if side == "" {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.contentWidth()+2).Render(main),
		side,
	)
}

func (m model) viewSummary() string {
	st := m.snap.State

	var b strings.Builder
	if st.Celebrating {
		b.WriteString(successStyle.Render("*** WELL DONE ***") + "\n\n")
	}
	if st.Success {
		b.WriteString(successStyle.Render("Scenario completed") + "\n\n")
	} else {
		b.WriteString(errorStyle.Render("Scenario failed") + "\n\n")
	}
	if st.Feedback != nil {
		style := successStyle
		if st.Feedback.Kind == models.FeedbackError {
			style = errorStyle
		}
		b.WriteString(style.Render(wrap(st.Feedback.Message, m.contentWidth(), "")) + "\n\n")
	}
	b.WriteString(fmt.Sprintf("Final score: %s\n", headerStyle.Render(fmt.Sprintf("%d", st.Score))))
	b.WriteString(m.snap.Verdict() + "\n\n")

	if len(st.History) > 1 {
		b.WriteString(titleStyle.Render("YOUR PATH") + "\n")
		for _, h := range st.History[1:] {
			b.WriteString(wrap("- "+h, m.contentWidth(), "") + "\n")
		}
		b.WriteString("\n")
	}

	if m.debriefBusy {
		b.WriteString(dimStyle.Render("Preparing debrief...") + "\n\n")
	} else if m.debriefText != "" && m.debriefOfID == st.AttemptID {
		b.WriteString(titleStyle.Render("DEBRIEF") + "\n")
		b.WriteString(wrap(m.debriefText, m.contentWidth(), "") + "\n\n")
	}

	help := "r to retry this scenario, b for scenario selection, q to quit."
	if m.debriefer != nil && m.debriefText == "" && !m.debriefBusy {
		help = "d for an AI debrief, " + help
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m model) renderPatient() string {
	sc := m.snap.Scenario
	if sc == nil || m.width < 70 {
		return ""
	}
	p := sc.PatientInfo
	content := titleStyle.Render("PATIENT") + "\n" +
		fmt.Sprintf("Age: %d years\n", p.Age) +
		fmt.Sprintf("Weight: %d kg\n", p.Weight) +
		fmt.Sprintf("TBSA: %d%%\n", p.BurnPercentage) +
		fmt.Sprintf("Depth: %s\n", p.BurnDepth) +
		fmt.Sprintf("Injury: %s ago\n", p.TimeFromInjury) +
		fmt.Sprintf("Place: %s\n", p.Location) +
		fmt.Sprintf("Climate: %s\n", p.Climate)
	return panelStyle.Width(m.width - m.contentWidth() - 4).Render(content)
}

func (m model) contentWidth() int {
	if m.width <= 0 {
		return 72
	}
	w := int(float64(m.width) * 0.7)
	if w < 40 {
		w = m.width - 4
	}
	return w
}

func digit(msg tea.KeyMsg) (int, bool) {
	s := msg.String()
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		return int(s[0] - '1'), true
	}
	return 0, false
}

// wrap is a light word wrapper; lipgloss handles styling but the long
// clinical texts still need folding to the content column.
func wrap(s string, width int, indent string) string {
	if width <= 0 {
		width = 72
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return indent
	}
	var b strings.Builder
	line := indent + words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			b.WriteString(line + "\n")
			line = indent + w
			continue
		}
		line += " " + w
	}
	b.WriteString(line)
	return b.String()
}

// Run starts the renderer and blocks until the user quits.
func Run(eng *engine.Engine, db *debrief.Engine) error {
	p := tea.NewProgram(newModel(eng, db, eng.Subscribe()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
