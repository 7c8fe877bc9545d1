package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/adapters/audiocache"
	"github.com/ihub-ai/character-server/adapters/llm"
	"github.com/ihub-ai/character-server/adapters/memory"
	"github.com/ihub-ai/character-server/domain/entities"
)

type stubSTT struct {
	text string
	err  error
}

func (s *stubSTT) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	return s.text, s.err
}

type stubGenerator struct {
	err error
}

func (g *stubGenerator) Generate(ctx context.Context, userText string, expression string) (*entities.Reply, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &entities.Reply{
		Segments: []entities.TextBoxSegment{{Text: "reply to " + userText, Duration: 1.4}},
		Timeline: []entities.TimelineEvent{{Time: 0, TriggerSpeed: 1.0}},
	}, nil
}

type stubTTS struct {
	id  string
	err error
}

func (t *stubTTS) Synthesize(ctx context.Context, text string) (string, error) {
	return t.id, t.err
}

type failingStore struct{}

func (failingStore) SaveMessage(ctx context.Context, m *entities.MessageRecord) error {
	return errors.New("store down")
}
func (failingStore) SaveReply(ctx context.Context, r *entities.ReplyRecord) error {
	return errors.New("store down")
}
func (failingStore) RecentMessages(ctx context.Context, limit int) ([]*entities.MessageRecord, error) {
	return nil, errors.New("store down")
}
func (failingStore) RecentReplies(ctx context.Context, limit int) ([]*entities.ReplyRecord, error) {
	return nil, errors.New("store down")
}

func newTestCoordinator(t *testing.T, stt *stubSTT, gen *stubGenerator, tts *stubTTS) (*Coordinator, *memory.ConversationRepository) {
	t.Helper()
	cache, err := audiocache.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := memory.NewConversationRepository()
	return NewCoordinator(stt, gen, tts, store, cache, zap.NewNop()), store
}

func textInput(text string, mode entities.ResponseMode) TurnInput {
	return TurnInput{Text: &text, ResponseMode: mode}
}

func TestRunTurn_TextModeHasNoAudioRef(t *testing.T) {
	coord, _ := newTestCoordinator(t, &stubSTT{}, &stubGenerator{}, &stubTTS{id: "should-not-be-used"})

	result := coord.RunTurn(context.Background(), textInput("hello", entities.ResponseModeText))

	if result.UserText != "hello" {
		t.Errorf("user text should pass through verbatim, got %q", result.UserText)
	}
	if result.AudioID != "" {
		t.Errorf("text mode must not carry an audio reference, got %q", result.AudioID)
	}
	if result.Reply == nil || len(result.Reply.Segments) == 0 {
		t.Fatal("reply missing")
	}
}

func TestRunTurn_AudioModeAlwaysYieldsReference(t *testing.T) {
	// Even with synthesis failing, audio mode must produce a reference
	// via the placeholder artifact path.
	coord, _ := newTestCoordinator(t, &stubSTT{}, &stubGenerator{}, &stubTTS{err: errors.New("tts down")})

	result := coord.RunTurn(context.Background(), textInput("hello", entities.ResponseModeAudio))
	if result.AudioID == "" {
		t.Fatal("audio mode must always yield an audio reference")
	}
}

func TestRunTurn_GenerationFailureFallsBack(t *testing.T) {
	coord, _ := newTestCoordinator(t, &stubSTT{}, &stubGenerator{err: errors.New("llm down")}, &stubTTS{id: "a1"})

	result := coord.RunTurn(context.Background(), textInput("hello", entities.ResponseModeText))

	if len(result.Reply.Segments) != 1 {
		t.Fatalf("fallback reply must have exactly one segment, got %d", len(result.Reply.Segments))
	}
	if result.Reply.Segments[0].Duration < 1.0 {
		t.Errorf("fallback segment duration must be at least 1.0, got %f", result.Reply.Segments[0].Duration)
	}
	if len(result.Reply.Timeline) != 0 {
		t.Errorf("fallback reply must have an empty timeline, got %d events", len(result.Reply.Timeline))
	}
}

func TestRunTurn_TranscriptionFailureResolvesEmpty(t *testing.T) {
	coord, _ := newTestCoordinator(t, &stubSTT{err: errors.New("stt down")}, &stubGenerator{}, &stubTTS{id: "a1"})

	result := coord.RunTurn(context.Background(), TurnInput{
		Samples:      make([]float32, 1600),
		SampleRate:   16000,
		ResponseMode: entities.ResponseModeText,
	})
	if result.UserText != "" {
		t.Errorf("failed transcription must resolve to empty text, got %q", result.UserText)
	}
	if result.Reply == nil {
		t.Fatal("turn must still complete with a reply")
	}
}

func TestRunTurn_EmptySignalSkipsTranscriber(t *testing.T) {
	stt := &stubSTT{text: "should never be called", err: nil}
	coord, _ := newTestCoordinator(t, stt, &stubGenerator{}, &stubTTS{id: "a1"})

	result := coord.RunTurn(context.Background(), TurnInput{ResponseMode: entities.ResponseModeText})
	if result.UserText != "" {
		t.Errorf("empty signal must resolve to empty transcript, got %q", result.UserText)
	}
}

func TestRunTurn_PersistsUserBeforeReply(t *testing.T) {
	coord, store := newTestCoordinator(t, &stubSTT{}, &stubGenerator{}, &stubTTS{id: "a1"})

	result := coord.RunTurn(context.Background(), textInput("hello", entities.ResponseModeText))

	if result.UserRecord == nil || result.ReplyRecord == nil {
		t.Fatal("both records should persist")
	}
	if result.ReplyRecord.CreatedAt.Before(result.UserRecord.CreatedAt) {
		t.Error("reply record must not predate its paired message record")
	}

	messages, _ := store.RecentMessages(context.Background(), 1)
	if len(messages) != 1 || messages[0].Text != "hello" {
		t.Error("user message not persisted")
	}
}

func TestRunTurn_StoreFailureDoesNotAbort(t *testing.T) {
	cache, err := audiocache.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	coord := NewCoordinator(&stubSTT{}, &stubGenerator{}, &stubTTS{id: "a1"}, failingStore{}, cache, zap.NewNop())

	result := coord.RunTurn(context.Background(), textInput("hello", entities.ResponseModeAudio))

	if result.UserRecord != nil || result.ReplyRecord != nil {
		t.Error("lost records should be reported as nil")
	}
	if result.Reply == nil || result.AudioID == "" {
		t.Error("turn must still complete despite persistence failure")
	}
}

func TestRunTurn_ConcurrentSessions(t *testing.T) {
	coord, store := newTestCoordinator(t, &stubSTT{}, &stubGenerator{}, &stubTTS{id: "a1"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := coord.RunTurn(context.Background(), textInput("hi", entities.ResponseModeText))
			if result.UserRecord == nil || result.ReplyRecord == nil {
				t.Error("records lost under concurrency")
				return
			}
			if result.ReplyRecord.CreatedAt.Before(result.UserRecord.CreatedAt) {
				t.Error("reply record predates its message record")
			}
		}()
	}
	wg.Wait()

	messages, _ := store.RecentMessages(context.Background(), 100)
	replies, _ := store.RecentReplies(context.Background(), 100)
	if len(messages) != 10 || len(replies) != 10 {
		t.Errorf("expected 10+10 records, got %d+%d", len(messages), len(replies))
	}
}

func TestRunTurn_MockGeneratorIntegration(t *testing.T) {
	cache, err := audiocache.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	coord := NewCoordinator(&stubSTT{}, llm.NewMockReplyGenerator(), &stubTTS{id: "a1"}, memory.NewConversationRepository(), cache, zap.NewNop())

	result := coord.RunTurn(context.Background(), textInput("tell me a story", entities.ResponseModeText))
	if len(result.Reply.Segments) == 0 {
		t.Fatal("mock generator produced no segments")
	}
	for _, seg := range result.Reply.Segments {
		if seg.Duration < 1.0 {
			t.Errorf("segment duration below minimum: %f", seg.Duration)
		}
	}
}
