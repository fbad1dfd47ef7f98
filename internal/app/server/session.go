package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/trisbattle/arena/internal/domains/entities"
	"golang.org/x/time/rate"
)

type Status uint8

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusSpectating
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusSpectating:
		return "spectating"
	default:
		return "idle"
	}
}

// Session is one websocket connection. Outbound frames go through a
// buffered queue drained by writePump, so senders never block on I/O.
type Session struct {
	id      string
	token   string
	roomId  string
	status  Status
	info    *entities.PlayerInfo
	limiter *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeCode int
	closed    bool
	mu        sync.Mutex
}

func newSession(id string, bufferSize int, limiter *rate.Limiter) *Session {
	return &Session{
		id:      id,
		status:  StatusIdle,
		limiter: limiter,
		send:    make(chan []byte, bufferSize),
		done:    make(chan struct{}),
	}
}

// enqueue queues a frame without blocking. A full queue closes the session.
func (sess *Session) enqueue(data []byte) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return false
	}
	select {
	case sess.send <- data:
		return true
	default:
		sess.closeLocked(CloseSlowConsumer)
		return false
	}
}

// close asks writePump to flush and send a close frame with code. Only the
// first call has any effect.
func (sess *Session) close(code int) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.closeLocked(code)
}

func (sess *Session) closeLocked(code int) {
	if sess.closed {
		return
	}
	sess.closed = true
	sess.closeCode = code
	close(sess.done)
}

func (sess *Session) isClosed() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.closed
}

func (sess *Session) allow() bool {
	return sess.limiter == nil || sess.limiter.Allow()
}

func (sess *Session) isIdentity(userId string) bool {
	return sess.info != nil && sess.info.UserId == userId
}

func (sess *Session) writePump(conn *websocket.Conn, writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(messageType int, data []byte) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(messageType, data)
	}

	for {
		select {
		case data := <-sess.send:
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sess.done:
			for pending := len(sess.send); pending > 0; pending-- {
				if err := write(websocket.TextMessage, <-sess.send); err != nil {
					return
				}
			}
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(sess.closeCode, closeReason(sess.closeCode)),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}
