package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts a contiguous normalized [-1,1] signal to text.
	// A zero-length signal yields an empty transcript, not an error.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}
