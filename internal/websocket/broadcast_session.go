package websocket

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BroadcastSession is the plain relay channel: anything a client sends
// is fanned out verbatim to every subscribed connection, itself included.
type BroadcastSession struct {
	client *Client
	hub    *Hub
	logger *zap.Logger
}

var _ sessionHandler = (*BroadcastSession)(nil)

// ServeBroadcast upgrades the request and runs a relay session on it.
func ServeBroadcast(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, true, logger)
	client.handler = &BroadcastSession{
		client: client,
		hub:    hub,
		logger: logger,
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// HandleText relays the raw payload to all subscribed clients.
func (s *BroadcastSession) HandleText(message []byte) {
	s.hub.BroadcastRaw(message, nil)
}

// Close implements sessionHandler.
func (s *BroadcastSession) Close() {}
