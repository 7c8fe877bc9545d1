package repositories

import "context"

// TextToSpeech abstracts speech synthesis services. Implementations store
// the synthesized audio as an artifact and return its opaque reference.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) (audioID string, err error)
}
