// Package memory holds in-process implementations of the persistence
// interfaces, used in tests and when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/domain/repositories"
)

// ConversationRepository is an append-only in-memory record store. Safe
// for concurrent writers.
type ConversationRepository struct {
	mu        sync.Mutex
	messages  []*entities.MessageRecord
	replies   []*entities.ReplyRecord
	messageID int64
	replyID   int64
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates an empty repository.
func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{}
}

// SaveMessage implements repositories.ConversationRepository
func (r *ConversationRepository) SaveMessage(ctx context.Context, message *entities.MessageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messageID++
	message.ID = r.messageID
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	stored := *message
	r.messages = append(r.messages, &stored)
	return nil
}

// SaveReply implements repositories.ConversationRepository
func (r *ConversationRepository) SaveReply(ctx context.Context, reply *entities.ReplyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.replyID++
	reply.ID = r.replyID
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}
	stored := *reply
	r.replies = append(r.replies, &stored)
	return nil
}

// RecentMessages implements repositories.ConversationRepository
func (r *ConversationRepository) RecentMessages(ctx context.Context, limit int) ([]*entities.MessageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entities.MessageRecord, 0, limit)
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		record := *r.messages[i]
		out = append(out, &record)
	}
	return out, nil
}

// RecentReplies implements repositories.ConversationRepository
func (r *ConversationRepository) RecentReplies(ctx context.Context, limit int) ([]*entities.ReplyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entities.ReplyRecord, 0, limit)
	for i := len(r.replies) - 1; i >= 0 && len(out) < limit; i-- {
		record := *r.replies[i]
		out = append(out, &record)
	}
	return out, nil
}
