package restore

import (
	"context"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/restitch/restitch/pkg/errors"
)

const defaultRetries = 3

// Gemini restores files through the Gemini API.
type Gemini struct {
	cli     *genai.Client
	model   string
	retries int
}

// NewGemini creates a Gemini-backed restorer. The API key comes from
// configuration; model is the Gemini model name.
func NewGemini(ctx context.Context, apiKey, model string, retries int) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "GEMINI_API_KEY is not set")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRestoreFailed, err, "create model client")
	}
	if retries <= 0 {
		retries = defaultRetries
	}
	return &Gemini{cli: cli, model: model, retries: retries}, nil
}

// Model returns the Gemini model name.
func (g *Gemini) Model() string { return g.model }

// Close releases client resources.
func (g *Gemini) Close() error { return nil }

// Restore sends the decompiled content and restored dependency context to
// the model and returns the restored source. Transient failures are retried
// with exponential backoff.
func (g *Gemini) Restore(ctx context.Context, req Request) (string, error) {
	prompt := buildPrompt(req)

	var lastErr error
	for attempt := 0; attempt < g.retries; attempt++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			nil,
		)
		switch {
		case err != nil:
			lastErr = err
		case len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0:
			lastErr = errors.New(errors.ErrCodeRestoreFailed, "empty model response for %s", req.RelPath)
		default:
			return stripFence(resp.Candidates[0].Content.Parts[0].Text), nil
		}

		if attempt < g.retries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
			}
		}
	}
	return "", errors.Wrap(errors.ErrCodeRestoreFailed, lastErr, "restore %s", req.RelPath)
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are restoring decompiled Lua source code to clean, readable Lua.\n")
	b.WriteString("Recover meaningful variable names, restore idiomatic control flow, and keep behavior identical.\n")
	b.WriteString("Output only the restored Lua source, no commentary.\n")

	if len(req.Dependencies) > 0 {
		b.WriteString("\nAlready-restored modules this file requires, for reference:\n")
		for _, dep := range req.Dependencies {
			b.WriteString("\n--- " + dep.RelPath + " ---\n")
			b.WriteString(dep.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nFile to restore: " + req.RelPath + "\n\n")
	b.WriteString(req.Content)
	return b.String()
}

// stripFence removes a surrounding markdown code fence if the model added
// one despite instructions.
func stripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```lua")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed) + "\n"
}

// Ensure Gemini implements Restorer.
var _ Restorer = (*Gemini)(nil)
