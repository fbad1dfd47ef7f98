package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/trisbattle/arena/internal/aws/storage"
	"github.com/trisbattle/arena/internal/domains/entities"
	"github.com/trisbattle/arena/pkg/logging"
	"go.uber.org/zap"
)

type joinRequest struct {
	roomId   string
	key      string
	token    string
	spectate bool
}

func parseJoinRequest(r *http.Request) joinRequest {
	query := r.URL.Query()
	token := query.Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	return joinRequest{
		roomId:   query.Get("roomId"),
		key:      query.Get("key"),
		token:    strings.TrimSpace(token),
		spectate: query.Get("spectate") == "true",
	}
}

// join binds sess to a room or closes it with the code of the first check
// that fails. Store and identity calls run off the loop; everything they
// decided is checked again once back on it.
func (s *server) join(ctx context.Context, sess *Session, req joinRequest) bool {
	roomId := req.roomId
	var roomKey *entities.RoomKey
	if req.key != "" {
		key, err := s.resolveRoomKey(ctx, req.key)
		if err != nil {
			if !errors.Is(err, storage.ErrRoomKeyNotFound) && !errors.Is(err, ErrKeyExpired) {
				logging.Error("failed to resolve room key", zap.Error(err))
			}
			sess.close(CloseInvalidRoom)
			return false
		}
		roomKey = &key
		if roomId == "" {
			roomId = key.RoomId
		}
	}
	if roomId == "" {
		sess.close(CloseInvalidRoom)
		return false
	}

	var (
		exists  bool
		private bool
	)
	if err := s.call(func() {
		var room *Room
		room, exists = s.getRoom(roomId)
		if exists {
			private = room.private
		}
	}); err != nil {
		sess.close(CloseServerShutdown)
		return false
	}
	if !exists {
		sess.close(CloseRoomNotFound)
		return false
	}

	if req.spectate {
		if req.token != "" {
			if info, err := s.identity.Resolve(ctx, req.token); err == nil {
				sess.info = &info
			}
		}
		return s.admitSpectator(sess, roomId)
	}

	if req.token == "" {
		sess.close(CloseMissingToken)
		return false
	}
	keyMatches := roomKey != nil && roomKey.RoomId == roomId
	if private && roomKey == nil {
		sess.close(ClosePrivateRoom)
		return false
	}
	if roomKey != nil && !keyMatches {
		sess.close(CloseAuthFailed)
		return false
	}
	info, err := s.identity.Resolve(ctx, req.token)
	if err != nil {
		logging.Info("authentication failed", zap.String("session_id", sess.id), zap.Error(err))
		sess.close(CloseAuthFailed)
		return false
	}
	sess.token = req.token
	sess.info = &info
	return s.admitPlayer(sess, roomId)
}

func (s *server) admitSpectator(sess *Session, roomId string) bool {
	return s.admit(sess, roomId, s.seatSpectator)
}

func (s *server) admitPlayer(sess *Session, roomId string) bool {
	return s.admit(sess, roomId, s.seatPlayer)
}

// admit runs seat on the loop against a fresh lookup of the room and closes
// the session with whatever code it returns.
func (s *server) admit(sess *Session, roomId string, seat func(*Room, *Session) int) bool {
	code := 0
	if err := s.call(func() {
		room, ok := s.getRoom(roomId)
		if !ok {
			code = CloseRoomNotFound
			return
		}
		code = seat(room, sess)
	}); err != nil {
		code = CloseServerShutdown
	}
	if code != 0 {
		sess.close(code)
		return false
	}
	return true
}

func (s *server) seatSpectator(room *Room, sess *Session) int {
	sess.roomId = room.id
	sess.status = StatusSpectating
	room.spectators[sess.id] = sess
	s.connections[sess.id] = sess
	s.send(sess, newMessage(msgAuthenticated, authenticatedPayload{SessionId: sess.id}))
	s.send(sess, newMessage(msgRoomData, roomDataPayload{RoomData: room.public(s.engine)}))
	return 0
}

// seatPlayer applies the ban and capacity checks and inserts the player.
func (s *server) seatPlayer(room *Room, sess *Session) int {
	if _, banned := room.banned[sess.info.UserId]; banned {
		return CloseBanned
	}
	if len(room.players) >= room.maxPlayers {
		return CloseRoomFull
	}
	player := newPlayerData(sess, *sess.info, s.now())
	sess.roomId = room.id
	sess.status = StatusPlaying
	room.players[sess.id] = player
	s.connections[sess.id] = sess
	s.send(sess, newMessage(msgAuthenticated, authenticatedPayload{SessionId: sess.id}))
	s.send(sess, newMessage(msgRoomData, roomDataPayload{RoomData: room.public(s.engine)}))
	s.broadcast(room, newMessage(msgPlayerJoined, playerJoinedPayload{PlayerData: player.public(s.engine)}))
	logging.Info("player joined",
		zap.String("room_id", room.id),
		zap.String("session_id", sess.id),
		zap.String("user_id", sess.info.UserId),
	)
	return 0
}

// resolveRoomKey looks a join key up. Single-use keys are consumed here, so
// a second connection with the same key fails.
func (s *server) resolveRoomKey(ctx context.Context, key string) (entities.RoomKey, error) {
	roomKey, err := s.store.GetRoomKey(ctx, key)
	if err != nil {
		return entities.RoomKey{}, err
	}
	if roomKey.Expired(s.now()) {
		return entities.RoomKey{}, ErrKeyExpired
	}
	if roomKey.SingleUse {
		return s.store.ConsumeRoomKey(ctx, key)
	}
	return roomKey, nil
}
