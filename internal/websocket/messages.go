package websocket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/internal/audio"
	"github.com/ihub-ai/character-server/usecase"
)

// MessageType discriminates inbound wire messages
type MessageType string

// Supported inbound message types
const (
	MessageTypeAudio      MessageType = "audio"
	MessageTypeText       MessageType = "text"
	MessageTypePing       MessageType = "ping"
	MessageTypeVideoFrame MessageType = "video_frame"
)

// DecodeError marks a malformed or unknown inbound payload. The adapter
// drops the message and keeps the session alive.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InboundMessage is the tagged union of everything a client can send.
type InboundMessage interface {
	isInbound()
}

// AudioFrameMessage carries one base64 PCM16LE mono frame.
type AudioFrameMessage struct {
	SampleRate int    `json:"sampleRate"`
	Data       string `json:"data"`
}

func (*AudioFrameMessage) isInbound() {}

// Frame decodes the payload into a normalized audio frame. A missing
// sample rate defaults to 16kHz.
func (m *AudioFrameMessage) Frame() (entities.AudioFrame, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return entities.AudioFrame{}, &DecodeError{Reason: "invalid audio frame payload", Err: err}
	}
	sampleRate := m.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return entities.AudioFrame{
		SampleRate: sampleRate,
		Samples:    audio.DecodePCM16(raw),
	}, nil
}

// TextSubmissionMessage is an explicit turn that bypasses turn detection.
type TextSubmissionMessage struct {
	Text         string `json:"text"`
	ResponseMode string `json:"responseMode"`
}

func (*TextSubmissionMessage) isInbound() {}

// Mode returns the requested response mode, defaulting to audio.
func (m *TextSubmissionMessage) Mode() entities.ResponseMode {
	if m.ResponseMode == string(entities.ResponseModeText) {
		return entities.ResponseModeText
	}
	return entities.ResponseModeAudio
}

// PingMessage is a liveness probe.
type PingMessage struct{}

func (*PingMessage) isInbound() {}

// VideoFrameMessage carries one base64 encoded image.
type VideoFrameMessage struct {
	Data string `json:"data"`
}

func (*VideoFrameMessage) isInbound() {}

// Image decodes the frame bytes.
func (m *VideoFrameMessage) Image() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid video frame payload", Err: err}
	}
	return raw, nil
}

// DecodeInbound parses one wire message into its typed form. Unknown and
// malformed tags come back as a DecodeError.
func DecodeInbound(raw []byte) (InboundMessage, error) {
	var base struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, &DecodeError{Reason: "invalid JSON", Err: err}
	}

	switch base.Type {
	case MessageTypeAudio:
		var msg AudioFrameMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, &DecodeError{Reason: "invalid audio message", Err: err}
		}
		if msg.Data == "" {
			return nil, &DecodeError{Reason: "audio message missing data"}
		}
		return &msg, nil

	case MessageTypeText:
		var msg TextSubmissionMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, &DecodeError{Reason: "invalid text message", Err: err}
		}
		return &msg, nil

	case MessageTypePing:
		return &PingMessage{}, nil

	case MessageTypeVideoFrame:
		var msg VideoFrameMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, &DecodeError{Reason: "invalid video frame message", Err: err}
		}
		return &msg, nil

	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported message type: %q", base.Type)}
	}
}

// Outbound events.

// SpeechStartedEvent announces a confirmed speech onset.
type SpeechStartedEvent struct {
	Event string `json:"event"`
}

// NewSpeechStartedEvent creates the onset event
func NewSpeechStartedEvent() SpeechStartedEvent {
	return SpeechStartedEvent{Event: "speech_started"}
}

// SpeechEndedEvent closes a turn, carrying the flattened pipeline result.
type SpeechEndedEvent struct {
	Event    string                    `json:"event"`
	Duration float64                   `json:"duration"`
	Response []entities.TextBoxSegment `json:"response"`
	Timeline []entities.TimelineEvent  `json:"timeline"`
	AudioID  *string                   `json:"audio_id,omitempty"`
	Text     string                    `json:"text"`
}

// UserMessageEvent echoes what the user said, with the persisted
// timestamp when the record survived.
type UserMessageEvent struct {
	Event     string  `json:"event"`
	Text      string  `json:"text"`
	CreatedAt *string `json:"created_at"`
}

// AIResponseEvent delivers the structured reply.
type AIResponseEvent struct {
	Event        string                    `json:"event"`
	Response     []entities.TextBoxSegment `json:"response"`
	Timeline     []entities.TimelineEvent  `json:"timeline"`
	AudioID      *string                   `json:"audio_id"`
	Text         string                    `json:"text"`
	ResponseMode string                    `json:"responseMode"`
	Duration     *float64                  `json:"duration,omitempty"`
	CreatedAt    *string                   `json:"created_at"`
}

// ErrorEvent reports the one fatal case: collaborator initialization
// failure at session start.
type ErrorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// NewErrorEvent creates an error event
func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Event: "error", Message: message}
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"`
}

// PingResponseMessage answers a ping on the video channel.
type PingResponseMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// KeepAliveMessage is emitted when a video connection has been idle for
// the liveness window.
type KeepAliveMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// VideoStatusEvent acknowledges a processed video frame.
type VideoStatusEvent struct {
	Status         string  `json:"status"`
	Emotion        string  `json:"emotion,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	FramesReceived int     `json:"frames_received"`
}

// recordTimestamp formats a persisted record timestamp, or nil when the
// best-effort save lost the record.
func recordTimestamp(at *time.Time) *string {
	if at == nil {
		return nil
	}
	s := at.UTC().Format(time.RFC3339)
	return &s
}

// turnEvents builds the user_message and ai_response events for one
// completed turn. duration is set for audio turns only.
func turnEvents(result *usecase.TurnResult, mode entities.ResponseMode, duration *float64) (UserMessageEvent, AIResponseEvent) {
	var userCreatedAt, replyCreatedAt *time.Time
	if result.UserRecord != nil {
		userCreatedAt = &result.UserRecord.CreatedAt
	}
	if result.ReplyRecord != nil {
		replyCreatedAt = &result.ReplyRecord.CreatedAt
	}

	var audioID *string
	if result.AudioID != "" {
		id := result.AudioID
		audioID = &id
	}

	userEvent := UserMessageEvent{
		Event:     "user_message",
		Text:      result.UserText,
		CreatedAt: recordTimestamp(userCreatedAt),
	}
	aiEvent := AIResponseEvent{
		Event:        "ai_response",
		Response:     result.Reply.Segments,
		Timeline:     result.Reply.Timeline,
		AudioID:      audioID,
		Text:         result.Reply.PlainText(),
		ResponseMode: string(mode),
		Duration:     duration,
		CreatedAt:    recordTimestamp(replyCreatedAt),
	}
	return userEvent, aiEvent
}
