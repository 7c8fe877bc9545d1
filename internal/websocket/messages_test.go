package websocket

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/internal/audio"
	"github.com/ihub-ai/character-server/usecase"
)

func TestDecodeInboundAudioFrame(t *testing.T) {
	pcm := audio.EncodePCM16([]float32{0.5, -0.5, 0.25})
	raw := []byte(`{"type":"audio","sampleRate":48000,"data":"` + base64.StdEncoding.EncodeToString(pcm) + `"}`)

	msg, err := DecodeInbound(raw)
	if err != nil {
		t.Fatalf("DecodeInbound failed: %v", err)
	}
	frameMsg, ok := msg.(*AudioFrameMessage)
	if !ok {
		t.Fatalf("expected AudioFrameMessage, got %T", msg)
	}

	frame, err := frameMsg.Frame()
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if frame.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", frame.SampleRate)
	}
	if len(frame.Samples) != 3 {
		t.Errorf("expected 3 samples, got %d", len(frame.Samples))
	}
}

func TestDecodeInboundAudioFrameDefaultsSampleRate(t *testing.T) {
	pcm := audio.EncodePCM16([]float32{0.1})
	raw := []byte(`{"type":"audio","data":"` + base64.StdEncoding.EncodeToString(pcm) + `"}`)

	msg, err := DecodeInbound(raw)
	if err != nil {
		t.Fatalf("DecodeInbound failed: %v", err)
	}
	frame, err := msg.(*AudioFrameMessage).Frame()
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if frame.SampleRate != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", frame.SampleRate)
	}
}

func TestDecodeInboundAudioFrameRequiresData(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":"audio"}`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeInboundText(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"text","text":"hello","responseMode":"text"}`))
	if err != nil {
		t.Fatalf("DecodeInbound failed: %v", err)
	}
	textMsg, ok := msg.(*TextSubmissionMessage)
	if !ok {
		t.Fatalf("expected TextSubmissionMessage, got %T", msg)
	}
	if textMsg.Text != "hello" {
		t.Errorf("expected text %q, got %q", "hello", textMsg.Text)
	}
	if textMsg.Mode() != entities.ResponseModeText {
		t.Errorf("expected text mode, got %q", textMsg.Mode())
	}
}

func TestTextSubmissionModeDefaultsToAudio(t *testing.T) {
	msg := &TextSubmissionMessage{Text: "hi"}
	if msg.Mode() != entities.ResponseModeAudio {
		t.Errorf("expected audio mode default, got %q", msg.Mode())
	}
	msg = &TextSubmissionMessage{Text: "hi", ResponseMode: "bogus"}
	if msg.Mode() != entities.ResponseModeAudio {
		t.Errorf("expected audio mode for unknown value, got %q", msg.Mode())
	}
}

func TestDecodeInboundPing(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("DecodeInbound failed: %v", err)
	}
	if _, ok := msg.(*PingMessage); !ok {
		t.Fatalf("expected PingMessage, got %T", msg)
	}
}

func TestDecodeInboundVideoFrame(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	raw := []byte(`{"type":"video_frame","data":"` + base64.StdEncoding.EncodeToString(image) + `"}`)

	msg, err := DecodeInbound(raw)
	if err != nil {
		t.Fatalf("DecodeInbound failed: %v", err)
	}
	videoMsg, ok := msg.(*VideoFrameMessage)
	if !ok {
		t.Fatalf("expected VideoFrameMessage, got %T", msg)
	}
	decoded, err := videoMsg.Image()
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if len(decoded) != len(image) {
		t.Errorf("expected %d image bytes, got %d", len(image), len(decoded))
	}
}

func TestDecodeInboundRejectsUnknownType(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":"teleport"}`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeInboundRejectsInvalidJSON(t *testing.T) {
	_, err := DecodeInbound([]byte(`{not json`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestSpeechEndedOmitsAudioIDWithoutSynthesis(t *testing.T) {
	ev := SpeechEndedEvent{
		Event:    "speech_ended",
		Duration: 1.2,
		Text:     "hello",
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(payload), "audio_id") {
		t.Errorf("expected audio_id to be omitted, got %s", payload)
	}

	id := "abc-123"
	ev.AudioID = &id
	payload, err = json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(payload), `"audio_id":"abc-123"`) {
		t.Errorf("expected audio_id to be present, got %s", payload)
	}
}

func TestTurnEventsCarryRecordsAndAudioID(t *testing.T) {
	now := time.Now().UTC()
	result := &usecase.TurnResult{
		Reply: &entities.Reply{
			Segments: []entities.TextBoxSegment{
				{Text: "Hi there!", Duration: 1.5},
			},
		},
		AudioID:  "abc-123",
		UserText: "hello",
		UserRecord: &entities.MessageRecord{
			ID:        1,
			Text:      "hello",
			CreatedAt: now,
		},
		ReplyRecord: &entities.ReplyRecord{
			ID:        2,
			Text:      "Hi there!",
			CreatedAt: now,
		},
	}

	duration := 2.5
	userEvent, aiEvent := turnEvents(result, entities.ResponseModeAudio, &duration)

	if userEvent.Event != "user_message" {
		t.Errorf("expected user_message event, got %q", userEvent.Event)
	}
	if userEvent.Text != "hello" {
		t.Errorf("expected user text %q, got %q", "hello", userEvent.Text)
	}
	if userEvent.CreatedAt == nil {
		t.Error("expected created_at on persisted user message")
	}

	if aiEvent.Event != "ai_response" {
		t.Errorf("expected ai_response event, got %q", aiEvent.Event)
	}
	if aiEvent.AudioID == nil || *aiEvent.AudioID != "abc-123" {
		t.Errorf("expected audio id abc-123, got %v", aiEvent.AudioID)
	}
	if aiEvent.ResponseMode != string(entities.ResponseModeAudio) {
		t.Errorf("expected audio response mode, got %q", aiEvent.ResponseMode)
	}
	if aiEvent.Duration == nil || *aiEvent.Duration != 2.5 {
		t.Errorf("expected duration 2.5, got %v", aiEvent.Duration)
	}
	if aiEvent.Text != "Hi there!" {
		t.Errorf("expected reply text, got %q", aiEvent.Text)
	}
}

func TestTurnEventsDegradeWhenRecordsLost(t *testing.T) {
	result := &usecase.TurnResult{
		Reply:    entities.FallbackReply(),
		UserText: "hello",
	}

	userEvent, aiEvent := turnEvents(result, entities.ResponseModeText, nil)

	if userEvent.CreatedAt != nil {
		t.Error("expected nil created_at for lost user record")
	}
	if aiEvent.CreatedAt != nil {
		t.Error("expected nil created_at for lost reply record")
	}
	if aiEvent.AudioID != nil {
		t.Errorf("expected nil audio id in text mode, got %v", aiEvent.AudioID)
	}
	if aiEvent.Duration != nil {
		t.Errorf("expected nil duration for text turn, got %v", aiEvent.Duration)
	}
}
