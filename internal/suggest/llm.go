package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/dvloznov/household-budget/internal/logger"
	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is used when no model is configured.
	DefaultGeminiModel = "gemini-2.5-flash"
	// DefaultClaudeModel is used when no model is configured.
	DefaultClaudeModel = "claude-sonnet-4-5-20250929"

	claudeMaxTokens = 256
)

// LLM asks a hosted model to pick a category.
type LLM struct {
	source   string
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewGemini creates a suggester backed by Gemini. An empty apiKey falls
// back to the client's environment configuration.
func NewGemini(ctx context.Context, apiKey, model string) (*LLM, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}

	return &LLM{
		source: "gemini",
		generate: func(ctx context.Context, prompt string) (string, error) {
			contents := []*genai.Content{
				{
					Role:  "user",
					Parts: []*genai.Part{{Text: prompt}},
				},
			}
			resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
			if err != nil {
				return "", fmt.Errorf("generate content: %w", err)
			}
			return resp.Text(), nil
		},
	}, nil
}

// NewClaude creates a suggester backed by Claude.
func NewClaude(apiKey, model string) (*LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewClaude: ANTHROPIC_API_KEY not set")
	}
	if model == "" {
		model = DefaultClaudeModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &LLM{
		source: "claude",
		generate: func(ctx context.Context, prompt string) (string, error) {
			message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
				Model:     anthropic.Model(model),
				MaxTokens: claudeMaxTokens,
				Messages: []anthropic.MessageParam{
					anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
				},
			})
			if err != nil {
				return "", fmt.Errorf("claude API call failed: %w", err)
			}
			var text strings.Builder
			for _, block := range message.Content {
				if block.Type == "text" {
					text.WriteString(block.Text)
				}
			}
			return text.String(), nil
		},
	}, nil
}

func buildPrompt(description string, categories []string) string {
	var b strings.Builder
	b.WriteString("You categorize household bank transactions for a family budget.\n\n")
	b.WriteString("Transaction description: ")
	b.WriteString(description)
	b.WriteString("\n\nUse ONLY one of these categories:\n")
	for _, c := range categories {
		b.WriteString("  - " + c + "\n")
	}
	b.WriteString("\nReturn ONLY raw JSON of the form {\"category\": \"<name>\", \"confidence\": <0.0-1.0>}.\n")
	b.WriteString("Use an empty category if none fits.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	return b.String()
}

type llmAnswer struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// cleanModelJSON keeps the outermost JSON object of a model reply, dropping
// Markdown fences and chatter around it.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}

// Suggest asks the model. Answers naming a category outside categories are
// treated as no suggestion.
func (l *LLM) Suggest(ctx context.Context, description string, categories []string) (Suggestion, error) {
	out := Suggestion{Description: description, Source: l.source}

	raw, err := l.generate(ctx, buildPrompt(description, categories))
	if err != nil {
		return out, fmt.Errorf("Suggest: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return out, fmt.Errorf("Suggest: empty response from model")
	}

	var ans llmAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &ans); err != nil {
		return out, fmt.Errorf("Suggest: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	if ans.Category == "" {
		return out, nil
	}
	cat, ok := pick(ans.Category, categories)
	if !ok {
		log := logger.FromContext(ctx)
		log.Warn().
			Str("source", l.source).
			Str("category", ans.Category).
			Msg("Model proposed an unknown category")
		return out, nil
	}
	out.Category = cat
	out.Confidence = ans.Confidence
	return out, nil
}

var _ Suggester = (*LLM)(nil)
