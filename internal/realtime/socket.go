package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// socket wraps one WebSocket connection with a buffered outbound channel.
// All writes go through the write pump so frames for one connection are
// sent in the order their triggering operations completed.
type socket struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	log  *zap.Logger
}

func newSocket(conn *websocket.Conn, log *zap.Logger) *socket {
	return &socket{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		log:  log,
	}
}

// Send enqueues an outbound frame without blocking. A full buffer drops the
// frame; the client reconciles on its next read.
func (s *socket) Send(payload []byte) bool {
	defer func() {
		// Send may race Close; a frame for a just-closed socket is dropped
		// like any other missed delivery.
		recover()
	}()
	select {
	case s.send <- payload:
		return true
	default:
		s.log.Warn("send buffer full, dropping frame")
		return false
	}
}

// Close stops the write pump, which closes the underlying connection.
func (s *socket) Close() {
	s.once.Do(func() { close(s.send) })
}

// writePump pumps frames from the send channel to the connection and keeps
// the connection alive with pings.
func (s *socket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Warn("write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
