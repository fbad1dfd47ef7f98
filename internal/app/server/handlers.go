package server

import (
	"context"
	"errors"

	"github.com/trisbattle/arena/internal/aws/storage"
	"github.com/trisbattle/arena/pkg/logging"
	"go.uber.org/zap"
)

// handleMessage dispatches one inbound frame. Player messages are tried
// first for seated sessions; everything else must be a host message.
// Malformed and rate-limited frames are dropped. An action answering a
// pending move request bypasses the limiter, since dropping it would
// forfeit the player.
func (s *server) handleMessage(sess *Session, data []byte) {
	if s.connections[sess.id] != sess {
		return
	}
	room, ok := s.rooms[sess.roomId]
	if !ok {
		return
	}

	if player, ok := room.players[sess.id]; ok && player.session == sess {
		if msg, ok := parsePlayerMessage(s.validate, data); ok {
			if _, answer := msg.(actionMessage); (answer && player.moveRequested) || sess.allow() {
				s.handlePlayerMessage(room, player, msg)
			}
			return
		}
	}

	if !sess.allow() {
		return
	}
	msg, ok := parseGeneralMessage(s.validate, data)
	if !ok || !room.isHost(sess) {
		return
	}
	s.handleGeneralMessage(room, sess, msg)
}

func (s *server) handlePlayerMessage(room *Room, player *PlayerData, msg playerMessage) {
	switch msg := msg.(type) {
	case actionMessage:
		s.handleAction(room, player, msg.Commands)
	case pingMessage:
		s.send(player.session, newPingMessage(s.now()))
	}
}

func (s *server) handleGeneralMessage(room *Room, sess *Session, msg generalMessage) {
	switch msg := msg.(type) {
	case kickMessage:
		s.kick(room, sess, msg.SessionId)
	case banMessage:
		s.ban(room, sess, msg.UserId)
	case unbanMessage:
		s.unban(room, msg.UserId)
	case startGameMessage:
		s.startGame(room, sess)
	case resetGameMessage:
		s.handleResetGame(room, sess)
	case transferHostMessage:
		s.transferHost(room, sess, msg.UserId)
	case roomSettingsMessage:
		s.handleSettings(room, msg)
	}
}

// ban uses the info of a connected session when there is one, otherwise
// the stored profile. The lookup runs off the loop, so the room and the
// host are checked again before the ban is applied.
func (s *server) ban(room *Room, sess *Session, userId string) {
	if player, ok := room.playerWithUserId(userId); ok {
		s.applyBan(room, player.info)
		return
	}
	for _, spectator := range room.spectators {
		if spectator.isIdentity(userId) {
			s.applyBan(room, *spectator.info)
			return
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		defer cancel()
		profile, err := s.store.GetProfile(ctx, userId)
		s.post(func() {
			if s.rooms[room.id] != room || s.connections[sess.id] != sess || !room.isHost(sess) {
				return
			}
			if err != nil {
				if !errors.Is(err, storage.ErrProfileNotFound) {
					logging.Error("failed to get profile", zap.String("user_id", userId), zap.Error(err))
				}
				s.sendError(sess, ErrStatusPlayerNotFound)
				return
			}
			s.applyBan(room, profile.PlayerInfo())
		})
	}()
}

// handleDisconnect runs once the transport is gone. Kick and ban may have
// removed the session already, so every step tolerates that.
func (s *server) handleDisconnect(sess *Session) {
	if s.connections[sess.id] == sess {
		delete(s.connections, sess.id)
	}
	room, ok := s.rooms[sess.roomId]
	if !ok {
		return
	}
	if room.spectators[sess.id] == sess {
		delete(room.spectators, sess.id)
	}
	if player, ok := room.players[sess.id]; ok && player.session == sess {
		s.removePlayer(room, player)
	}
	logging.Info("session disconnected",
		zap.String("session_id", sess.id),
		zap.String("room_id", room.id),
		zap.Stringer("status", sess.status),
	)
	s.deleteRoomIfEmpty(room)
}
