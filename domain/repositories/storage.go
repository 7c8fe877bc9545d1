package repositories

import (
	"context"

	"github.com/ihub-ai/character-server/domain/entities"
)

// ConversationRepository defines data access for the two append-only
// record sets. Implementations must accept concurrent writers from
// arbitrarily many sessions.
type ConversationRepository interface {
	// SaveMessage appends a user message record, filling in its ID and
	// CreatedAt.
	SaveMessage(ctx context.Context, message *entities.MessageRecord) error
	// SaveReply appends an assistant reply record, filling in its ID and
	// CreatedAt.
	SaveReply(ctx context.Context, reply *entities.ReplyRecord) error
	// RecentMessages returns up to limit message records, newest first.
	RecentMessages(ctx context.Context, limit int) ([]*entities.MessageRecord, error)
	// RecentReplies returns up to limit reply records, newest first.
	RecentReplies(ctx context.Context, limit int) ([]*entities.ReplyRecord, error)
}
