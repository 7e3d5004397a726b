// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/FaelSemW/LovePingServer/internal/platform/constants"
	"github.com/FaelSemW/LovePingServer/internal/presence"
	"github.com/FaelSemW/LovePingServer/pkg/uuidv7"
)

// connection wraps one websocket and implements [presence.Sender].
//
// All writes to the socket go through the outbound channel and a single
// writePump goroutine; gorilla/websocket allows only one concurrent
// writer. Shutdown is signalled through the done channel rather than by
// closing outbound, so a concurrent SendSnapshot can never hit a closed
// channel.
type connection struct {
	id       string
	userID   string
	socket   *websocket.Conn
	outbound chan any
	done     chan struct{}
	once     sync.Once
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func newConnection(socket *websocket.Conn, logger *slog.Logger) *connection {
	id := uuidv7.New()
	return &connection{
		id:       id,
		socket:   socket,
		outbound: make(chan any, constants.OutboundBufferSize),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Limit(constants.InboundMessagesPerSecond), constants.InboundMessageBurst),
		logger:   logger.With(slog.String("connection_id", id)),
	}
}

// ID returns the connection's unique identifier.
func (conn *connection) ID() string {
	return conn.id
}

// SendSnapshot enqueues a presence push without blocking. A full buffer
// drops the push and returns false; the reconnect sync path repairs any
// gap the drop leaves.
func (conn *connection) SendSnapshot(userID string, snapshot presence.Snapshot) bool {
	select {
	case <-conn.done:
		return false
	case conn.outbound <- newPresencePush(userID, snapshot):
		return true
	default:
		return false
	}
}

// close transitions the connection to Closed. Idempotent; safe from any
// goroutine.
func (conn *connection) close() {
	conn.once.Do(func() {
		close(conn.done)
		_ = conn.socket.Close()
	})
}

// writePump is the connection's only socket writer. It drains the
// outbound queue and keeps the peer alive with periodic pings until
// close is called or a write fails.
func (conn *connection) writePump() {
	ticker := time.NewTicker(constants.PingInterval)
	defer ticker.Stop()
	defer conn.close()

	for {
		select {
		case <-conn.done:
			deadline := time.Now().Add(constants.WriteDeadline)
			_ = conn.socket.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return

		case message := <-conn.outbound:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(constants.WriteDeadline))
			if err := conn.socket.WriteJSON(message); err != nil {
				conn.logger.Debug("gateway_write_failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(constants.WriteDeadline)
			if err := conn.socket.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
