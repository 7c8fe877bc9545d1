package websocket

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/internal/vad"
	"github.com/ihub-ai/character-server/usecase"
)

// turnTimeout bounds one full transcribe-generate-synthesize-persist pass.
const turnTimeout = 60 * time.Second

// AudioSession is the conversational channel: it runs the turn detector
// over incoming frames and drives the pipeline when a turn closes. The
// pipeline runs on the read goroutine, so frames arriving while a reply
// is being produced wait in the transport buffer.
type AudioSession struct {
	client      *Client
	hub         *Hub
	coordinator *usecase.Coordinator
	detector    *vad.Detector

	// Last declared inbound sample rate, applied to the drained turn.
	sampleRate int

	// Sticky across turns, updated by text submissions.
	responseMode entities.ResponseMode

	logger *zap.Logger
}

var _ sessionHandler = (*AudioSession)(nil)

// ServeAudio upgrades the request and runs a conversational session on
// it. A missing pipeline is the one fatal condition: the client gets an
// error event and the connection closes.
func ServeAudio(hub *Hub, coordinator *usecase.Coordinator, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	if coordinator == nil {
		logger.Error("Speech pipeline unavailable, rejecting audio session")
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(NewErrorEvent("speech pipeline unavailable"))
		conn.Close()
		return nil
	}

	client := newClient(hub, conn, true, logger)
	client.handler = &AudioSession{
		client:       client,
		hub:          hub,
		coordinator:  coordinator,
		detector:     vad.NewDetector(vad.Config{}),
		sampleRate:   16000,
		responseMode: entities.ResponseModeAudio,
		logger:       logger,
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// HandleText dispatches one inbound wire message.
func (s *AudioSession) HandleText(message []byte) {
	msg, err := DecodeInbound(message)
	if err != nil {
		s.logger.Warn("Dropping malformed message", zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case *AudioFrameMessage:
		s.handleAudioFrame(m)

	case *TextSubmissionMessage:
		s.responseMode = m.Mode()
		s.runTextTurn(m.Text)

	case *PingMessage:
		s.client.Enqueue(PongMessage{Type: "pong"})

	case *VideoFrameMessage:
		s.logger.Debug("Ignoring video frame on audio channel")

	default:
		s.logger.Warn("Unhandled message on audio channel")
	}
}

// Close implements sessionHandler; the detector state dies with the
// connection, so an in-progress turn is simply abandoned.
func (s *AudioSession) Close() {
	s.detector.Reset()
}

func (s *AudioSession) handleAudioFrame(m *AudioFrameMessage) {
	frame, err := m.Frame()
	if err != nil {
		s.logger.Warn("Dropping undecodable audio frame", zap.Error(err))
		return
	}
	s.sampleRate = frame.SampleRate

	ev := s.detector.Push(frame.Samples)
	switch ev.Kind {
	case vad.EventSpeechStarted:
		started := NewSpeechStartedEvent()
		s.client.Enqueue(started)
		s.hub.Broadcast(started, s.client)

	case vad.EventSpeechEnded:
		s.runAudioTurn(ev)
	}
}

// runAudioTurn completes a detected turn: the full pipeline runs here on
// the read goroutine, then the three closing events go out in order.
func (s *AudioSession) runAudioTurn(ev vad.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	expression, _ := s.hub.LastExpression()
	result := s.coordinator.RunTurn(ctx, usecase.TurnInput{
		Samples:      ev.Samples,
		SampleRate:   s.sampleRate,
		ResponseMode: s.responseMode,
		Expression:   expression,
	})

	duration := ev.Duration.Seconds()
	s.client.Enqueue(SpeechEndedEvent{
		Event:    "speech_ended",
		Duration: duration,
		Response: result.Reply.Segments,
		Timeline: result.Reply.Timeline,
		AudioID:  optionalID(result.AudioID),
		Text:     result.UserText,
	})

	userEvent, aiEvent := turnEvents(result, s.responseMode, &duration)
	s.client.Enqueue(userEvent)
	s.client.Enqueue(aiEvent)
}

// runTextTurn completes an explicit text turn: no turn-boundary events,
// just the user echo and the reply.
func (s *AudioSession) runTextTurn(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	expression, _ := s.hub.LastExpression()
	result := s.coordinator.RunTurn(ctx, usecase.TurnInput{
		Text:         &text,
		ResponseMode: s.responseMode,
		Expression:   expression,
	})

	userEvent, aiEvent := turnEvents(result, s.responseMode, nil)
	s.client.Enqueue(userEvent)
	s.client.Enqueue(aiEvent)
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
