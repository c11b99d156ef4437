package intelligence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ivlev/inbetween/internal/config"
)

// GeminiClient implements Service against the Gemini API. All calls go
// through a shared rate limiter and a bounded retry loop, since model
// quotas and transient failures are routine rather than exceptional.
type GeminiClient struct {
	models     *genai.Models
	model      string
	limiter    *rate.Limiter
	maxRetries int
	maxTokens  int32
	log        *slog.Logger
}

// NewGeminiClient builds a Service from the intelligence config. The
// API key is read from the configured environment variable.
func NewGeminiClient(ctx context.Context, cfg config.IntelligenceConfig, log *slog.Logger) (*GeminiClient, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("intelligence API key missing: set %s", cfg.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}

	return &GeminiClient{
		models:     client.Models,
		model:      cfg.Model,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: cfg.MaxRetries,
		maxTokens:  cfg.MaxOutputTokens,
		log:        log,
	}, nil
}

// AnalyzeMotion asks the model to describe the motion between the two
// keyframes under the given instruction.
func (g *GeminiClient) AnalyzeMotion(ctx context.Context, keyframe1, keyframe2 []byte, instruction string) (*MotionAnalysis, error) {
	parts := []*genai.Part{
		{Text: analysisUserPrompt(instruction)},
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: keyframe1}},
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: keyframe2}},
	}

	raw, err := g.generate(ctx, analysisSystemPrompt, parts)
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(raw)
}

// DetectPrinciples asks the model which animation principles apply.
func (g *GeminiClient) DetectPrinciples(ctx context.Context, analysis *MotionAnalysis, instruction string) (*PrincipleSet, error) {
	if analysis == nil {
		analysis = FallbackAnalysis()
	}
	parts := []*genai.Part{
		{Text: principlesUserPrompt(analysis, instruction)},
	}

	raw, err := g.generate(ctx, principlesSystemPrompt, parts)
	if err != nil {
		return nil, err
	}
	return decodePrinciples(raw, analysis)
}

// AssessQuality asks the model to score a sampled frame sequence.
func (g *GeminiClient) AssessQuality(ctx context.Context, frames [][]byte, keyframe1, keyframe2 []byte, planSummary string) (*Validation, error) {
	parts := []*genai.Part{
		{Text: validationUserPrompt(planSummary, len(frames))},
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: keyframe1}},
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: keyframe2}},
	}
	for _, f := range frames {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: f}})
	}

	raw, err := g.generate(ctx, validationSystemPrompt, parts)
	if err != nil {
		return nil, err
	}
	return decodeValidation(raw)
}

// generate sends one request with rate limiting and retries, returning
// the concatenated text of the response.
func (g *GeminiClient) generate(ctx context.Context, system string, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.2),
		MaxOutputTokens:   g.maxTokens,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		ResponseMIMEType:  "application/json",
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			lastErr = err
			g.log.Warn("generation attempt failed", "attempt", attempt+1, "error", err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
			continue
		}

		var out strings.Builder
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				out.WriteString(part.Text)
			}
		}
		return out.String(), nil
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", g.maxRetries+1, lastErr)
}
