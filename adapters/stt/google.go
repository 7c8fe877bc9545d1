// Package stt provides speech-to-text adapters.
package stt

import (
	"context"
	"fmt"
	"io"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/domain/repositories"
	"github.com/ihub-ai/character-server/internal/audio"
)

const defaultLanguage = "en-US"

// GoogleSpeechToText implements SpeechToText for Google Cloud. Each turn
// opens one streaming-recognize session in single-utterance mode, sends
// the whole turn signal, and waits for the final result.
type GoogleSpeechToText struct {
	language string
	logger   *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates the adapter. The recognition language
// comes from STT_LANGUAGE, defaulting to en-US.
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	language := os.Getenv("STT_LANGUAGE")
	if language == "" {
		language = defaultLanguage
	}
	return &GoogleSpeechToText{language: language, logger: logger}
}

// Transcribe converts one turn signal to text.
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: int32(sampleRate),
					LanguageCode:    g.language,
				},
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		return "", fmt.Errorf("failed to send streaming config: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio.EncodePCM16(samples),
		},
	}); err != nil {
		stream.CloseSend()
		return "", fmt.Errorf("failed to send audio content: %w", err)
	}

	if err := stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	var transcript string
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to receive response: %w", err)
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				transcript = result.Alternatives[0].Transcript
			}
		}
	}

	g.logger.Debug("Transcription completed",
		zap.Int("samples", len(samples)),
		zap.Int("sampleRate", sampleRate),
		zap.Int("transcriptLen", len(transcript)))

	return transcript, nil
}
