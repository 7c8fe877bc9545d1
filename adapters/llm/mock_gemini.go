package llm

import (
	"context"
	"strings"

	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/domain/repositories"
)

// MockReplyGenerator is a deterministic generator for development and
// tests. It echoes the user text back in one or two segments with a
// small canned timeline.
type MockReplyGenerator struct{}

// NewMockReplyGenerator creates a new mock generator
func NewMockReplyGenerator() repositories.ReplyGenerator {
	return &MockReplyGenerator{}
}

// Generate implements repositories.ReplyGenerator
func (m *MockReplyGenerator) Generate(ctx context.Context, userText string, expression string) (*entities.Reply, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		text = "I did not catch that, could you say it again?"
	} else {
		text = "You said: " + text
	}

	words := len(strings.Fields(text))
	duration := float64(words) / 10.0
	if duration < 1.0 {
		duration = 1.0
	}

	return &entities.Reply{
		Segments: []entities.TextBoxSegment{
			{Text: text, Duration: duration, Position: entities.PositionTopRight, Style: entities.StyleRectangle},
		},
		Timeline: []entities.TimelineEvent{
			{Time: 0, Expressions: []string{"Smile.exp3"}, Triggers: []string{"headnodtrigger"}, TriggerSpeed: 1.0},
		},
	}, nil
}
