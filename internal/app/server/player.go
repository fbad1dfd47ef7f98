package server

import (
	"time"

	"github.com/trisbattle/arena/internal/domains/dtos"
	"github.com/trisbattle/arena/internal/domains/entities"
	"github.com/trisbattle/arena/internal/game"
)

// PlayerData is a seated player in a room.
type PlayerData struct {
	sessionId     string
	session       *Session
	info          entities.PlayerInfo
	playing       bool
	wins          int
	gameState     game.State
	moveRequested bool
	lastRequestAt time.Time
	joinedAt      time.Time

	moveTimeout Timer
	nextRequest Timer
}

func newPlayerData(session *Session, info entities.PlayerInfo, now time.Time) *PlayerData {
	return &PlayerData{
		sessionId: session.id,
		session:   session,
		info:      info,
		joinedAt:  now,
	}
}

// alive reports whether the player is still competing in the current round.
func (p *PlayerData) alive() bool {
	return p.playing && p.gameState != nil && !p.gameState.Dead()
}

func (p *PlayerData) armMoveTimeout(s Scheduler, d time.Duration, f func()) {
	p.cancelMoveTimeout()
	p.moveTimeout = s.AfterFunc(d, f)
}

func (p *PlayerData) cancelMoveTimeout() {
	if p.moveTimeout != nil {
		p.moveTimeout.Stop()
		p.moveTimeout = nil
	}
}

func (p *PlayerData) armNextRequest(s Scheduler, d time.Duration, f func()) {
	p.cancelNextRequest()
	p.nextRequest = s.AfterFunc(d, f)
}

func (p *PlayerData) cancelNextRequest() {
	if p.nextRequest != nil {
		p.nextRequest.Stop()
		p.nextRequest = nil
	}
}

func (p *PlayerData) cancelTimers() {
	p.cancelMoveTimeout()
	p.cancelNextRequest()
	p.moveRequested = false
}

func (p *PlayerData) public(engine game.Engine) dtos.PublicPlayerData {
	var view any
	if p.gameState != nil {
		view = engine.PublicView(p.gameState)
	}
	return dtos.PublicPlayerData{
		SessionId: p.sessionId,
		Playing:   p.playing,
		Wins:      p.wins,
		GameState: view,
		Info:      p.info,
	}
}
