package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/domain/repositories"
)

// ConversationRepository stores the two append-only record sets in the
// "messages" and "ai_responses" collections. Numeric ids come from an
// atomic counter document, so records stay ordered and queryable by
// "most recent N" the same way an autoincrement column would be.
type ConversationRepository struct {
	messages *mongo.Collection
	replies  *mongo.Collection
	counters *mongo.Collection
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new MongoDB conversation repository
func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{
		messages: db.Collection("messages"),
		replies:  db.Collection("ai_responses"),
		counters: db.Collection("counters"),
	}
}

// nextID atomically increments and returns the named sequence.
func (r *ConversationRepository) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", name, err)
	}
	return counter.Seq, nil
}

// SaveMessage implements repositories.ConversationRepository
func (r *ConversationRepository) SaveMessage(ctx context.Context, message *entities.MessageRecord) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}

	id, err := r.nextID(ctx, "messages")
	if err != nil {
		return err
	}
	message.ID = id
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	if _, err := r.messages.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("failed to insert message record: %w", err)
	}
	return nil
}

// SaveReply implements repositories.ConversationRepository
func (r *ConversationRepository) SaveReply(ctx context.Context, reply *entities.ReplyRecord) error {
	if reply == nil {
		return errors.New("reply cannot be nil")
	}

	id, err := r.nextID(ctx, "ai_responses")
	if err != nil {
		return err
	}
	reply.ID = id
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}

	if _, err := r.replies.InsertOne(ctx, reply); err != nil {
		return fmt.Errorf("failed to insert reply record: %w", err)
	}
	return nil
}

// RecentMessages implements repositories.ConversationRepository
func (r *ConversationRepository) RecentMessages(ctx context.Context, limit int) ([]*entities.MessageRecord, error) {
	opts := options.Find().SetSort(bson.M{"_id": -1}).SetLimit(int64(limit))
	cursor, err := r.messages.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*entities.MessageRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode message records: %w", err)
	}
	return records, nil
}

// RecentReplies implements repositories.ConversationRepository
func (r *ConversationRepository) RecentReplies(ctx context.Context, limit int) ([]*entities.ReplyRecord, error) {
	opts := options.Find().SetSort(bson.M{"_id": -1}).SetLimit(int64(limit))
	cursor, err := r.replies.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*entities.ReplyRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode reply records: %w", err)
	}
	return records, nil
}
