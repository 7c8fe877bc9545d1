package tts

import (
	"context"

	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/adapters/audiocache"
	"github.com/ihub-ai/character-server/domain/repositories"
)

// MockTextToSpeech is a placeholder synthesizer for development without
// an Eleven Labs key. It stores a pattern artifact sized by text length.
type MockTextToSpeech struct {
	store  *audiocache.Store
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(store *audiocache.Store, logger *zap.Logger) repositories.TextToSpeech {
	return &MockTextToSpeech{store: store, logger: logger}
}

// Synthesize implements repositories.TextToSpeech
func (t *MockTextToSpeech) Synthesize(ctx context.Context, text string) (string, error) {
	t.logger.Info("Processing text-to-speech", zap.Int("textLen", len(text)))

	mockAudio := make([]byte, len(text)*100)
	for i := range mockAudio {
		mockAudio[i] = byte(i % 256)
	}
	return t.store.Put(mockAudio, ".wav")
}
