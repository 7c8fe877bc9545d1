package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Sized for base64 video frames.
	maxMessageSize = 1024 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// sessionHandler consumes decoded frames from one client's read loop.
// HandleText runs on the read goroutine, so a slow handler pauses intake
// for that connection only.
type sessionHandler interface {
	HandleText(message []byte)
	Close()
}

// Client is a middleman between a websocket connection and its session
// handler, owning the write side of the connection.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Never closed; writers
	// check done instead, and writePump exits on it.
	send chan []byte

	handler sessionHandler

	// Whether this client receives hub broadcasts.
	subscribed bool

	// Unix nanos of the last inbound message, for the liveness loop.
	lastTraffic atomic.Int64

	// done is closed exactly once at teardown and is the only
	// shutdown signal writers observe.
	done      chan struct{}
	closeOnce sync.Once

	logger *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, subscribed bool, logger *zap.Logger) *Client {
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		subscribed: subscribed,
		done:       make(chan struct{}),
		logger:     logger,
	}
	c.lastTraffic.Store(time.Now().UnixNano())
	return c
}

// Enqueue marshals v and queues it for delivery. Reports false when the
// client has torn down or the outbound buffer is full and the message
// was dropped.
func (c *Client) Enqueue(v interface{}) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn("Outbound buffer full, dropping message")
		return false
	}
}

func (c *Client) markClosed() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump pumps messages from the websocket connection to the session
// handler.
func (c *Client) readPump() {
	defer func() {
		c.markClosed()
		c.hub.unregister <- c
		if c.handler != nil {
			c.handler.Close()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastTraffic.Store(time.Now().UnixNano())

		switch messageType {
		case websocket.TextMessage:
			if c.handler != nil {
				c.handler.HandleText(message)
			}
		default:
			c.logger.Warn("Received unsupported message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps queued messages to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// startLiveness emits keep-alives when no client traffic has arrived
// within the window, and tears the connection down when the keep-alive
// cannot be delivered.
func (c *Client) startLiveness(window time.Duration) {
	go func() {
		ticker := time.NewTicker(window / 2)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				idle := time.Since(time.Unix(0, c.lastTraffic.Load()))
				if idle < window {
					continue
				}
				ok := c.Enqueue(KeepAliveMessage{
					Type:      "keep_alive",
					Timestamp: time.Now().Unix(),
				})
				if !ok {
					select {
					case <-c.done:
						// Teardown beat the tick; nothing to close.
					default:
						c.logger.Warn("Keep-alive rejected, closing connection")
						c.conn.Close()
					}
					return
				}
			}
		}
	}()
}
