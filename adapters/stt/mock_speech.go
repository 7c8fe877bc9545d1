package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/domain/repositories"
)

// MockSpeechToText is a placeholder recognizer for development without
// Google Cloud credentials.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{logger: logger}
}

// Transcribe implements repositories.SpeechToText
func (s *MockSpeechToText) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	s.logger.Info("Processing speech-to-text",
		zap.Int("samples", len(samples)),
		zap.Int("sampleRate", sampleRate))

	if len(samples) == 0 {
		return "", nil
	}

	// Mock transcription based on utterance length
	switch {
	case len(samples) > sampleRate*3:
		return "Hello there, I wanted to tell you about my day.", nil
	case len(samples) > sampleRate:
		return "How are you doing today?", nil
	default:
		return "Hi!", nil
	}
}
