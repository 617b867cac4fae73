/*
Package gateway adapts websocket connections to the routing core.

This file defines the Client struct, representing an active WebSocket connection.
It manages the connection's message loops (ReadPump and WritePump), decodes inbound
frames into envelopes for the chat Service, and implements the chat.Conn handle the
Service borrows while the connection's user is online.
*/
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"clusterchat/internal/app/chat"
	"clusterchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// Client wraps one WebSocket connection. Outbound payloads are queued on a
// buffered channel and written by WritePump; inbound frames are decoded by
// ReadPump and dispatched into the chat Service.
type Client struct {
	// id identifies the connection in logs, independent of any user identity.
	id string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// the routing core inbound frames are dispatched into.
	service *chat.Service

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// done is closed exactly once when the client shuts down.
	done      chan struct{}
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client over an upgraded WebSocket connection.
func NewClient(wsConn *websocket.Conn, service *chat.Service) *Client {
	id := uuid.NewString()

	clientLogger := logx.Logger().With().
		Str("conn_id", id).
		Str("peer", wsConn.RemoteAddr().String()).
		Logger()

	return &Client{
		id:      id,
		conn:    wsConn,
		service: service,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		logger:  clientLogger,
	}
}

// ID returns the connection's log identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues payload for delivery to the peer. It fails fast instead of
// blocking when the peer cannot keep up with its queue.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection %s is closed", c.id)
	case c.send <- payload:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping message")
		return fmt.Errorf("send queue full for connection %s", c.id)
	}
}

// Close tears down the connection. Closing twice is safe.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// PeerAddr returns the remote address for diagnostics.
func (c *Client) PeerAddr() string {
	return c.conn.RemoteAddr().String()
}

// ReadPump handles reading frames from the WebSocket connection. It handles
// heartbeats (Pong), envelope parsing, and dispatch into the Service, and
// performs disconnect handling when the connection drops.
func (c *Client) ReadPump(ctx context.Context) {
	// Disconnect handling must finish even when the request context has
	// already been canceled by the client going away.
	defer c.service.HandleDisconnect(context.WithoutCancel(ctx), c)

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		env, err := chat.ParseEnvelope(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Client sent an invalid envelope")
			continue
		}

		c.service.Dispatch(ctx, c, env, time.Now())
	}
}

// WritePump handles writing queued payloads to the WebSocket connection and
// keeps the heartbeat going. It owns all writes to the underlying connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close in WritePump")
		}
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error().Err(err).Msg("Error writing message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
