// Package debrief generates an optional AI coaching summary for a
// finished attempt. It reads a snapshot of the attempt and never touches
// session state.
package debrief

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

//go:embed prompts/debrief.txt
var debriefPrompt string

// Attempt is the finished-attempt data the debrief is written from.
type Attempt struct {
	ScenarioTitle string
	Difficulty    string
	Score         int
	Success       bool
	History       []string
}

type Engine struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewEngine(ctx context.Context, apiKey string) (*Engine, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel("gemini-2.5-flash")
	return &Engine{
		client: client,
		model:  model,
	}, nil
}

func (e *Engine) Close() {
	e.client.Close()
}

// Debrief renders the attempt through the prompt template and asks the
// model for a short coaching summary.
func (e *Engine) Debrief(ctx context.Context, a Attempt) (string, error) {
	tmpl, err := template.New("debrief").Parse(debriefPrompt)
	if err != nil {
		return "", err
	}

	result := "failed"
	if a.Success {
		result = "succeeded"
	}
	var buf bytes.Buffer
	data := struct {
		ScenarioTitle string
		Difficulty    string
		Score         int
		Result        string
		Decisions     string
	}{
		ScenarioTitle: a.ScenarioTitle,
		Difficulty:    a.Difficulty,
		Score:         a.Score,
		Result:        result,
		Decisions:     strings.Join(a.History, "\n- "),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	resp, err := e.model.GenerateContent(ctx, genai.Text(buf.String()))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from Gemini")
	}

	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from Gemini")
	}

	clean := strings.TrimSpace(string(text))
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean), nil
}
