// Package usecase holds the per-turn orchestration logic.
package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/adapters/audiocache"
	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/domain/repositories"
)

// TurnInput is one completed turn: either an accumulated audio signal or
// an explicit text submission, never both.
type TurnInput struct {
	Samples      []float32
	SampleRate   int
	Text         *string
	ResponseMode entities.ResponseMode
	Expression   string
}

// TurnResult is the assembled outcome of one turn. It is always complete:
// collaborator failures degrade individual fields instead of aborting.
type TurnResult struct {
	Reply      *entities.Reply
	AudioID    string
	UserText   string
	Expression string
	// UserRecord and ReplyRecord are nil when the corresponding
	// best-effort save was lost.
	UserRecord  *entities.MessageRecord
	ReplyRecord *entities.ReplyRecord
}

// Coordinator drives one turn through transcription, reply generation,
// synthesis and persistence. It holds no cross-turn state; one instance
// serves any number of sessions concurrently.
type Coordinator struct {
	stt       repositories.SpeechToText
	generator repositories.ReplyGenerator
	tts       repositories.TextToSpeech
	store     repositories.ConversationRepository
	cache     *audiocache.Store
	logger    *zap.Logger
}

// NewCoordinator creates a new pipeline coordinator
func NewCoordinator(
	stt repositories.SpeechToText,
	generator repositories.ReplyGenerator,
	tts repositories.TextToSpeech,
	store repositories.ConversationRepository,
	cache *audiocache.Store,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		stt:       stt,
		generator: generator,
		tts:       tts,
		store:     store,
		cache:     cache,
		logger:    logger,
	}
}

// RunTurn executes the pipeline for one turn. Steps run sequentially;
// every collaborator failure has a local fallback, so the result is
// always usable.
func (c *Coordinator) RunTurn(ctx context.Context, input TurnInput) *TurnResult {
	userText := c.resolveUserText(ctx, input)

	reply, err := c.generator.Generate(ctx, userText, input.Expression)
	if err != nil {
		c.logger.Warn("Reply generation failed, using fallback reply", zap.Error(err))
		reply = entities.FallbackReply()
	}

	userRecord := &entities.MessageRecord{
		Role:       entities.MessageRoleUser,
		Text:       userText,
		Expression: input.Expression,
	}
	if err := c.store.SaveMessage(ctx, userRecord); err != nil {
		c.logger.Warn("Failed to persist user message", zap.Error(err))
		userRecord = nil
	}

	var audioID string
	if input.ResponseMode == entities.ResponseModeAudio {
		audioID = c.synthesize(ctx, reply)
	}

	replyRecord := &entities.ReplyRecord{
		Text:     reply.PlainText(),
		Timeline: reply.Timeline,
		AudioID:  audioID,
	}
	if err := c.store.SaveReply(ctx, replyRecord); err != nil {
		c.logger.Warn("Failed to persist reply", zap.Error(err))
		replyRecord = nil
	}

	return &TurnResult{
		Reply:       reply,
		AudioID:     audioID,
		UserText:    userText,
		Expression:  input.Expression,
		UserRecord:  userRecord,
		ReplyRecord: replyRecord,
	}
}

// resolveUserText returns the verbatim text submission, or the transcript
// of the turn signal. Transcription failure and empty signals both
// resolve to an empty string; they never abort the turn.
func (c *Coordinator) resolveUserText(ctx context.Context, input TurnInput) string {
	if input.Text != nil {
		return *input.Text
	}
	if len(input.Samples) == 0 {
		return ""
	}

	text, err := c.stt.Transcribe(ctx, input.Samples, input.SampleRate)
	if err != nil {
		c.logger.Warn("Transcription failed, treating turn as empty", zap.Error(err))
		return ""
	}
	return text
}

// synthesize returns an audio reference for the reply. Audio mode always
// yields a reference: on synthesis failure a placeholder artifact is
// stored instead.
func (c *Coordinator) synthesize(ctx context.Context, reply *entities.Reply) string {
	audioID, err := c.tts.Synthesize(ctx, reply.PlainText())
	if err == nil {
		return audioID
	}
	c.logger.Warn("Speech synthesis failed, storing placeholder artifact", zap.Error(err))

	audioID, err = c.cache.PutStub()
	if err != nil {
		c.logger.Error("Failed to store placeholder artifact", zap.Error(err))
		return uuid.NewString()
	}
	return audioID
}
