// Package llm provides reply-generation adapters.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/domain/repositories"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.6
)

// GeminiReplyGenerator implements ReplyGenerator using Google's Gemini
// API with a JSON response schema, so the structured segments and
// timeline come back machine-parseable.
type GeminiReplyGenerator struct {
	client      *genai.Client
	logger      *zap.Logger
	model       string
	temperature float32
}

var _ repositories.ReplyGenerator = (*GeminiReplyGenerator)(nil)

// NewGeminiReplyGenerator creates a new Gemini-backed generator. Requires
// GEMINI_API_KEY; GEMINI_MODEL overrides the default model.
func NewGeminiReplyGenerator(logger *zap.Logger) (*GeminiReplyGenerator, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &GeminiReplyGenerator{
		client:      client,
		logger:      logger,
		model:       model,
		temperature: defaultTemperature,
	}, nil
}

// replyEnvelope is the raw JSON shape the model is asked to produce.
type replyEnvelope struct {
	Timeline    []entities.TimelineEvent  `json:"timeline"`
	TextBoxData []entities.TextBoxSegment `json:"text_box_data"`
}

// Generate returns a structured reply for the user text, conditioned on
// the user's facial expression when one is known.
func (g *GeminiReplyGenerator) Generate(ctx context.Context, userText string, expression string) (*entities.Reply, error) {
	input := userText
	if expression != "" {
		input = fmt.Sprintf("[The user currently looks %s.] %s", expression, userText)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(input, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		ResponseMIMEType:  "application/json",
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in reply generation response")
	}

	var raw string
	for _, part := range response.Candidates[0].Content.Parts {
		raw += part.Text
	}

	reply, err := parseReply([]byte(raw))
	if err != nil {
		return nil, err
	}

	g.logger.Info("Reply generated",
		zap.Int("segments", len(reply.Segments)),
		zap.Int("timelineEvents", len(reply.Timeline)))

	return reply, nil
}

// parseReply decodes and normalizes the model output. Durations are
// clamped to the 1.0s floor and positions/styles to their 4 discrete
// values, so a slightly off-schema reply still renders.
func parseReply(raw []byte) (*entities.Reply, error) {
	var envelope replyEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode reply JSON: %w", err)
	}
	if len(envelope.TextBoxData) == 0 {
		return nil, fmt.Errorf("reply contains no text box data")
	}

	segments := make([]entities.TextBoxSegment, len(envelope.TextBoxData))
	for i, seg := range envelope.TextBoxData {
		if seg.Duration < 1.0 {
			seg.Duration = 1.0
		}
		if seg.Position < entities.PositionTopLeft || seg.Position > entities.PositionRight {
			seg.Position = entities.PositionTopLeft
		}
		if seg.Style < entities.StyleCircle || seg.Style > entities.StyleCloud {
			seg.Style = entities.StyleCircle
		}
		segments[i] = seg
	}

	timeline := make([]entities.TimelineEvent, len(envelope.Timeline))
	for i, ev := range envelope.Timeline {
		if ev.TriggerSpeed <= 0 {
			ev.TriggerSpeed = 1.0
		}
		timeline[i] = ev
	}

	return &entities.Reply{Segments: segments, Timeline: timeline}, nil
}
