package server

import (
	"time"

	"github.com/trisbattle/arena/internal/domains/entities"
	"github.com/trisbattle/arena/internal/game"
	"github.com/trisbattle/arena/pkg/logging"
	"go.uber.org/zap"
)

// startGame runs on the loop for a host start_game message.
func (s *server) startGame(room *Room, sess *Session) {
	if room.gameOngoing {
		s.sendError(sess, ErrStatusGameStarted)
		return
	}
	if len(room.players) < 2 {
		s.sendError(sess, ErrStatusNotEnoughPlayers)
		return
	}
	if len(room.players) > room.maxPlayers {
		s.sendError(sess, ErrStatusTooManyPlayers)
		return
	}
	for _, player := range room.players {
		player.wins = 0
		player.playing = true
	}
	room.endedAt = nil
	s.broadcast(room, newMessage(msgGameStarted, nil))
	logging.Info("game started", zap.String("room_id", room.id))
	s.startRound(room)
}

// startRound deals fresh states and arms the countdown. A room that lost a
// player or was deleted since the round was scheduled is left alone.
func (s *server) startRound(room *Room) {
	if s.rooms[room.id] != room || len(room.players) < 2 {
		return
	}
	for _, player := range room.players {
		if !player.playing {
			return
		}
	}
	for _, player := range room.players {
		player.cancelTimers()
		player.gameState = s.engine.NewGameState()
	}

	startsAt := s.now().Add(s.config.RoundStartDelay)
	room.startedAt = &startsAt
	room.endedAt = nil
	room.gameOngoing = true
	room.roundOngoing = false
	room.lastWinner = nil

	s.broadcast(room, newMessage(msgRoundStarted, roundStartedPayload{
		StartsAt: startsAt.UnixMilli(),
		RoomData: room.public(s.engine),
	}))
	room.armRoundStart(s.scheduler, s.config.RoundStartDelay, func() {
		s.beginRound(room)
	})
}

func (s *server) beginRound(room *Room) {
	room.roundStart = nil
	if s.rooms[room.id] != room || !room.gameOngoing {
		return
	}
	room.roundOngoing = true
	for _, player := range room.orderedPlayers() {
		s.requestMove(room, player)
	}
}

// requestMove sends the player its own state and starts the move clock.
func (s *server) requestMove(room *Room, player *PlayerData) {
	player.nextRequest = nil
	if !room.gameOngoing || !room.roundOngoing || !player.alive() {
		return
	}
	if room.players[player.sessionId] != player {
		return
	}
	player.moveRequested = true
	player.lastRequestAt = s.now()
	s.send(player.session, newMessage(msgRequestMove, requestMovePayload{
		GameState: player.gameState,
		Players:   room.publicPlayers(s.engine),
	}))
	player.armMoveTimeout(s.scheduler, s.config.MoveTimeout, func() {
		s.handleMoveTimeout(room, player)
	})
}

// handleMoveTimeout forfeits a player that did not answer in time.
func (s *server) handleMoveTimeout(room *Room, player *PlayerData) {
	player.moveTimeout = nil
	if !player.moveRequested || room.players[player.sessionId] != player {
		return
	}
	player.moveRequested = false
	player.cancelNextRequest()

	prev := player.gameState
	player.gameState = s.engine.Forfeit(prev)
	logging.Info("move timed out",
		zap.String("room_id", room.id),
		zap.String("session_id", player.sessionId),
	)
	s.broadcast(room, newMessage(msgPlayerAction, playerActionPayload{
		SessionId:     player.sessionId,
		Commands:      []game.Command{},
		GameState:     s.engine.PublicView(player.gameState),
		PrevGameState: s.engine.PublicView(prev),
		Events:        []game.Event{{Type: game.EventGameOver}},
	}))
	s.checkRoundOver(room)
}

func (s *server) handleAction(room *Room, player *PlayerData, commands []game.Command) {
	if !room.gameOngoing || !room.roundOngoing || !player.moveRequested {
		s.sendError(player.session, ErrStatusMoveNotRequested)
		return
	}
	player.moveRequested = false
	player.cancelMoveTimeout()

	now := s.now()
	elapsed := room.elapsed(now)
	mods := game.Modifiers{GarbageMultiplier: room.settings.multiplier().At(elapsed)}

	if commands == nil {
		commands = []game.Command{}
	}
	applied := make([]game.Command, 0, len(commands)+1)
	applied = append(applied, commands...)
	applied = append(applied, game.HardDrop)

	prev := player.gameState
	state, events := s.engine.Apply(prev, applied, mods)
	player.gameState = state
	if events == nil {
		events = []game.Event{}
	}

	for _, event := range events {
		switch event.Type {
		case game.EventGameOver:
			player.cancelTimers()
		case game.EventAttack:
			s.sendGarbage(room, player, event.Lines)
		}
	}

	s.broadcast(room, newMessage(msgPlayerAction, playerActionPayload{
		SessionId:     player.sessionId,
		Commands:      commands,
		GameState:     s.engine.PublicView(state),
		PrevGameState: s.engine.PublicView(prev),
		Events:        events,
	}))

	if player.alive() {
		delay := nextRequestDelay(room.settings.moveInterval(elapsed), now.Sub(player.lastRequestAt))
		player.armNextRequest(s.scheduler, delay, func() {
			s.requestMove(room, player)
		})
	}
	s.checkRoundOver(room)
}

// sendGarbage queues an attack on every other live player.
func (s *server) sendGarbage(room *Room, attacker *PlayerData, lines int) {
	if lines <= 0 {
		return
	}
	for _, target := range room.orderedPlayers() {
		if target == attacker || !target.alive() {
			continue
		}
		target.gameState = s.engine.QueueGarbage(target.gameState, s.engine.GarbageFor(lines))
		if target.gameState.Dead() {
			target.cancelTimers()
		}
		s.broadcast(room, newMessage(msgPlayerDamageReceived, damagePayload{
			SessionId: target.sessionId,
			Damage:    lines,
			GameState: s.engine.PublicView(target.gameState),
		}))
	}
}

// checkRoundOver ends the round once fewer than two players are alive. A
// round where nobody survives is a draw and gets replayed.
func (s *server) checkRoundOver(room *Room) {
	if !room.roundOngoing {
		return
	}
	alive := room.alivePlayers()
	if len(alive) >= 2 {
		return
	}

	room.roundOngoing = false
	for _, player := range room.players {
		player.cancelTimers()
	}

	var winner *PlayerData
	if len(alive) == 1 {
		winner = alive[0]
		winner.wins++
		winnerId := winner.sessionId
		room.lastWinner = &winnerId
	} else {
		room.lastWinner = nil
	}

	payload := roundOverPayload{RoomData: room.public(s.engine)}
	if winner != nil {
		winnerId := winner.sessionId
		info := winner.info
		payload.WinnerId = &winnerId
		payload.WinnerInfo = &info
	}
	s.broadcast(room, newMessage(msgRoundOver, payload))
	logging.Info("round over",
		zap.String("room_id", room.id),
		zap.Any("winner", payload.WinnerId),
	)

	if winner != nil && winner.wins >= room.settings.Ft {
		s.endGame(room, winner)
		return
	}
	room.armRoundStart(s.scheduler, s.config.NextRoundDelay, func() {
		room.roundStart = nil
		s.startRound(room)
	})
}

func (s *server) endGame(room *Room, winner *PlayerData) {
	now := s.now()
	room.gameOngoing = false
	room.endedAt = &now

	winnerId := winner.sessionId
	info := winner.info
	s.broadcast(room, newMessage(msgGameOver, roundOverPayload{
		WinnerId:   &winnerId,
		WinnerInfo: &info,
		RoomData:   room.public(s.engine),
	}))
	logging.Info("game over",
		zap.String("room_id", room.id),
		zap.String("winner", winnerId),
	)
	s.resetGame(room)
}

// resetGame returns the room to the lobby and broadcasts game_reset.
func (s *server) resetGame(room *Room) {
	room.cancelTimers()
	room.gameOngoing = false
	room.roundOngoing = false
	for _, player := range room.players {
		player.gameState = nil
		player.playing = false
	}
	s.broadcast(room, newMessage(msgGameReset, roomDataPayload{RoomData: room.public(s.engine)}))
}

func (s *server) handleResetGame(room *Room, sess *Session) {
	if !room.gameOngoing {
		s.sendError(sess, ErrStatusGameNotStarted)
		return
	}
	s.resetGame(room)
}

func (s *server) handleSettings(room *Room, msg roomSettingsMessage) {
	room.private = msg.Private
	room.settings = msg.settings()
	s.broadcast(room, newMessage(msgSettingsChanged, roomDataPayload{RoomData: room.public(s.engine)}))
}

func (s *server) transferHost(room *Room, sess *Session, userId string) {
	player, ok := room.playerWithUserId(userId)
	if !ok {
		s.sendError(sess, ErrStatusPlayerNotFound)
		return
	}
	room.host = player.info
	s.broadcast(room, newMessage(msgHostChanged, hostChangedPayload{HostInfo: player.info}))
}

// unban is a no-op for identities that are not banned.
func (s *server) unban(room *Room, userId string) {
	info, ok := room.banned[userId]
	if !ok {
		return
	}
	delete(room.banned, userId)
	s.broadcast(room, newMessage(msgPlayerUnbanned, playerInfoPayload{PlayerInfo: info}))
}

// applyBan records the ban and removes every session of that identity.
func (s *server) applyBan(room *Room, info entities.PlayerInfo) {
	room.banned[info.UserId] = info
	for _, player := range room.orderedPlayers() {
		if player.info.UserId == info.UserId {
			player.session.close(CloseBanned)
			s.removePlayer(room, player)
		}
	}
	for id, spectator := range room.spectators {
		if spectator.isIdentity(info.UserId) {
			spectator.close(CloseBanned)
			delete(room.spectators, id)
			delete(s.connections, id)
		}
	}
	s.broadcast(room, newMessage(msgPlayerBanned, playerInfoPayload{PlayerInfo: info}))
	logging.Info("player banned",
		zap.String("room_id", room.id),
		zap.String("user_id", info.UserId),
	)
	s.deleteRoomIfEmpty(room)
}

func (s *server) kick(room *Room, sess *Session, sessionId string) {
	if player, ok := room.players[sessionId]; ok {
		player.session.close(CloseKicked)
		s.removePlayer(room, player)
		s.deleteRoomIfEmpty(room)
		return
	}
	if spectator, ok := room.spectators[sessionId]; ok {
		spectator.close(CloseKicked)
		delete(room.spectators, sessionId)
		delete(s.connections, sessionId)
		s.broadcast(room, newMessage(msgPlayerLeft, playerLeftPayload{SessionId: sessionId}))
		s.deleteRoomIfEmpty(room)
		return
	}
	s.sendError(sess, ErrStatusPlayerNotFound)
}

// removePlayer drops a player and resets a game that can no longer go on.
func (s *server) removePlayer(room *Room, player *PlayerData) {
	if room.players[player.sessionId] != player {
		return
	}
	player.cancelTimers()
	delete(room.players, player.sessionId)
	delete(s.connections, player.sessionId)
	s.broadcast(room, newMessage(msgPlayerLeft, playerLeftPayload{SessionId: player.sessionId}))
	if room.gameOngoing && len(room.players) < 2 {
		s.resetGame(room)
	}
}

func nextRequestDelay(interval time.Duration, latency time.Duration) time.Duration {
	if d := interval - latency; d > 0 {
		return d
	}
	return 0
}
