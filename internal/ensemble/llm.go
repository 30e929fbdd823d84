package ensemble

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikey/mail-triage/internal/core"
)

const llmSystemPrompt = "You are an email triage system. Respond only with JSON."

const llmPromptFormat = `Classify the following email into exactly one of these categories:
%s

Respond with a JSON object containing:
- category: string (one of the categories above, spelled exactly)
- confidence: number between 0 and 1 (how confident you are in your assessment)

Email:
From domain: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// llmResponse is the structured reply expected from the model
type llmResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// LLM is a zero-shot ensemble member backed by a text completion provider
type LLM struct {
	completer   core.TextCompleter
	categories  []core.Category
	maxBodySize int
}

// NewLLM creates a zero-shot member restricted to the given categories
func NewLLM(completer core.TextCompleter, categories []core.Category, maxBodySize int) *LLM {
	return &LLM{completer: completer, categories: categories, maxBodySize: maxBodySize}
}

// ID returns the model identifier
func (m *LLM) ID() string { return ModelLLM }

// Predict asks the language model for a category
func (m *LLM) Predict(ctx context.Context, f *core.Features) (core.Vote, error) {
	names := make([]string, len(m.categories))
	for i, c := range m.categories {
		names[i] = "- " + string(c)
	}

	body := f.BodyText
	if m.maxBodySize > 0 && len(body) > m.maxBodySize {
		cut := m.maxBodySize
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "\n[... Content truncated due to size limits ...]"
	}
	prompt := fmt.Sprintf(llmPromptFormat, strings.Join(names, "\n"), f.Domain, f.SubjectText, body)

	reply, err := m.completer.Complete(ctx, llmSystemPrompt, prompt)
	if err != nil {
		return core.Vote{}, fmt.Errorf("%s completion failed: %w", m.completer.Name(), err)
	}

	var resp llmResponse
	if err := DecodeJSONReply(reply, &resp); err != nil {
		return core.Vote{}, err
	}
	for _, c := range m.categories {
		if strings.EqualFold(string(c), strings.TrimSpace(resp.Category)) {
			return core.Vote{Category: c, Confidence: resp.Confidence}, nil
		}
	}
	return core.Vote{}, fmt.Errorf("model answered unknown category %q", resp.Category)
}

// DecodeJSONReply parses a JSON object from a model reply, tolerating text
// around the object
func DecodeJSONReply(reply string, v any) error {
	if err := json.Unmarshal([]byte(reply), v); err == nil {
		return nil
	}
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("failed to extract JSON from model reply")
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse model reply as JSON: %w", err)
	}
	return nil
}
