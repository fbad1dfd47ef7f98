package server

import (
	"encoding/json"

	"github.com/trisbattle/arena/pkg/logging"
	"go.uber.org/zap"
)

// run is the dispatch loop. Rooms, players and the registry are only
// touched from closures executed here.
func (s *server) run() {
	for {
		select {
		case ev := <-s.events:
			s.dispatch(ev)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *server) dispatch(ev func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("event handler panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	ev()
}

// post queues ev on the loop. It returns false once the server is stopping.
func (s *server) post(ev func()) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// call runs ev on the loop and waits for it to finish.
func (s *server) call(ev func()) error {
	done := make(chan struct{})
	if !s.post(func() {
		defer close(done)
		ev()
	}) {
		return ErrServerStopping
	}
	select {
	case <-done:
		return nil
	case <-s.ctx.Done():
		return ErrServerStopping
	}
}

func (s *server) send(sess *Session, msg message) {
	if sess == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("failed to marshal message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	sess.enqueue(data)
}

func (s *server) sendError(sess *Session, status string) {
	s.send(sess, newMessage(msgError, status))
}

// broadcast marshals once and queues the frame for every player and
// spectator in the room.
func (s *server) broadcast(room *Room, msg message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("failed to marshal message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	for _, player := range room.players {
		player.session.enqueue(data)
	}
	for _, spectator := range room.spectators {
		spectator.enqueue(data)
	}
}
