package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/hyunwoo-kim/docchat/internal/config"
	"github.com/hyunwoo-kim/docchat/internal/domain"
)

const titlePrompt = `Generate a short title (at most 6 words) summarizing this chat message.
Return only the title, no quotes or punctuation around it.

Message: %s`

// GeminiTitler generates session titles with Gemini. Title generation
// is best-effort; callers fall back to a truncation of the message.
type GeminiTitler struct {
	apiKey string
	model  string
}

// NewGeminiTitler creates a titler. It is usable even without an API
// key; IsConfigured gates actual calls.
func NewGeminiTitler(cfg config.TitlerConfig) *GeminiTitler {
	return &GeminiTitler{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (t *GeminiTitler) IsConfigured() bool {
	return t.apiKey != ""
}

func (t *GeminiTitler) Title(ctx context.Context, firstMessage string) (string, error) {
	if !t.IsConfigured() {
		return "", fmt.Errorf("titler is not configured (missing API key)")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(t.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := t.model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	generativeModel := client.GenerativeModel(model)
	var temperature float32 = 0.2
	generativeModel.Temperature = &temperature

	resp, err := generativeModel.GenerateContent(ctx, genai.Text(fmt.Sprintf(titlePrompt, firstMessage)))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var output string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output += string(text)
		}
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(output), `"'`))
	if title == "" {
		return "", fmt.Errorf("empty title from gemini")
	}

	// Titles are display strings; clamp like the truncation fallback.
	return domain.TitleFromMessage(title), nil
}
