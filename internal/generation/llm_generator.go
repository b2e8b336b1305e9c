package generation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shortbird/pathweaver/internal/llm"
	"github.com/shortbird/pathweaver/internal/prompts"
	"github.com/shortbird/pathweaver/internal/schemas"
	"github.com/shortbird/pathweaver/internal/types"
)

const (
	promptFile = "generation.json"
	promptKey  = "lesson-tasks"
	systemKey  = "system"
)

// SystemInstruction returns the system prompt that goes with the lesson
// task prompt.
func SystemInstruction() (string, error) {
	return prompts.Get(promptFile, systemKey)
}

// LLMGenerator implements Generator on top of an llm.Client.
type LLMGenerator struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMGenerator creates a generator that prompts client at the standard tier.
func NewLLMGenerator(client llm.Client) *LLMGenerator {
	return &LLMGenerator{client: client, tier: llm.TierStandard}
}

// WithTier overrides the model tier used for generation.
func (g *LLMGenerator) WithTier(tier llm.ModelTier) *LLMGenerator {
	g.tier = tier
	return g
}

type generatedTasksPayload struct {
	Tasks []RawTask `json:"tasks"`
}

// Generate prompts the model for req.Count tasks. Failures are reported in
// the Response rather than as an error, so the caller sees them per lesson.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	text, err := g.client.GenerateJSON(ctx, prompt, g.tier)
	if err != nil {
		apiErr := &APICallError{Message: "failed to generate tasks", Cause: err}
		return &Response{Success: false, Error: apiErr.Error()}, nil
	}

	tasks, err := parseTasks(text)
	if err != nil {
		return &Response{Success: false, Error: err.Error()}, nil
	}

	if req.Count > 0 && len(tasks) > req.Count {
		tasks = tasks[:req.Count]
	}
	return &Response{Success: true, Tasks: tasks}, nil
}

func buildPrompt(req Request) (string, error) {
	return prompts.Render(promptFile, promptKey, map[string]any{
		"LessonTitle": req.Title,
		"LessonText":  req.Text,
		"Count":       req.Count,
		"Pillars":     strings.Join(types.Pillars, ", "),
	})
}

// parseTasks validates the model output against the generated tasks schema
// and normalizes each task.
func parseTasks(text string) ([]RawTask, error) {
	cleaned := llm.CleanJSONBlock(text)
	if err := schemas.ValidateGeneratedTasks([]byte(cleaned)); err != nil {
		return nil, &ParseError{Message: "response does not match schema", Cause: err}
	}

	var payload generatedTasksPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ParseError{Message: "failed to parse JSON response", Cause: err}
	}

	tasks := make([]RawTask, 0, len(payload.Tasks))
	for _, t := range payload.Tasks {
		t.Title = strings.TrimSpace(t.Title)
		t.Description = strings.TrimSpace(t.Description)
		t.Pillar = types.NormalizePillar(t.Pillar)
		tasks = append(tasks, t)
	}
	return tasks, nil
}
