package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/domain/repositories"
)

const (
	// classifyTimeout bounds one inference call.
	classifyTimeout = 10 * time.Second

	// videoIdleWindow is how long a video connection may stay silent
	// before the server probes it with a keep-alive.
	videoIdleWindow = 30 * time.Second
)

// VideoSession is the expression channel: it classifies incoming frames
// and publishes the latest emotion to the hub so conversation turns can
// pick it up.
type VideoSession struct {
	client     *Client
	hub        *Hub
	classifier repositories.ExpressionClassifier

	framesReceived int

	logger *zap.Logger
}

var _ sessionHandler = (*VideoSession)(nil)

// ServeVideo upgrades the request and runs an expression session on it.
// A missing classifier is fatal: the client gets an error event and the
// connection closes.
func ServeVideo(hub *Hub, classifier repositories.ExpressionClassifier, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	if classifier == nil {
		logger.Error("Expression classifier unavailable, rejecting video session")
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(NewErrorEvent("expression classifier unavailable"))
		conn.Close()
		return nil
	}

	client := newClient(hub, conn, false, logger)
	client.handler = &VideoSession{
		client:     client,
		hub:        hub,
		classifier: classifier,
		logger:     logger,
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
	client.startLiveness(videoIdleWindow)

	return nil
}

// HandleText dispatches one inbound wire message.
func (s *VideoSession) HandleText(message []byte) {
	msg, err := DecodeInbound(message)
	if err != nil {
		s.logger.Warn("Dropping malformed message", zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case *VideoFrameMessage:
		s.handleVideoFrame(m)

	case *PingMessage:
		s.client.Enqueue(PingResponseMessage{
			Type:      "ping_response",
			Timestamp: time.Now().Unix(),
		})

	default:
		s.logger.Debug("Ignoring message on video channel")
	}
}

// Close implements sessionHandler.
func (s *VideoSession) Close() {
	s.logger.Info("Video session closed", zap.Int("framesReceived", s.framesReceived))
}

// handleVideoFrame classifies one frame. Classification failures degrade
// to a bare acknowledgment; the frame counter advances either way.
func (s *VideoSession) handleVideoFrame(m *VideoFrameMessage) {
	s.framesReceived++

	status := VideoStatusEvent{
		Status:         fmt.Sprintf("Processing frame %d", s.framesReceived),
		FramesReceived: s.framesReceived,
	}

	image, err := m.Image()
	if err != nil {
		s.logger.Warn("Dropping undecodable video frame", zap.Error(err))
		s.client.Enqueue(status)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	label, confidence, err := s.classifier.Classify(ctx, image)
	if err != nil {
		s.logger.Warn("Expression classification failed", zap.Error(err))
		s.client.Enqueue(status)
		return
	}

	s.hub.SetExpression(label, confidence)
	status.Emotion = label
	status.Confidence = confidence
	s.client.Enqueue(status)
}
