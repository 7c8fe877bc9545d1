package repositories

import (
	"context"

	"github.com/ihub-ai/character-server/domain/entities"
)

// ReplyGenerator abstracts the structured reply generation service. Given
// the user's text it produces dialogue fragments plus an animation
// timeline, optionally conditioned on the user's facial expression.
type ReplyGenerator interface {
	// Generate returns a structured reply for the user text. expression is
	// the most recent facial-expression label for the user, or empty when
	// none has been observed.
	Generate(ctx context.Context, userText string, expression string) (*entities.Reply, error)
}
