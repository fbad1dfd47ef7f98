package server

import "errors"

// Close codes sent when a connection is refused or removed.
const (
	CloseInvalidRoom    = 4000
	CloseRoomNotFound   = 4001
	CloseBanned         = 4002
	CloseKicked         = 4003
	CloseAuthFailed     = 4004
	CloseMissingToken   = 4005
	CloseRoomFull       = 4006
	ClosePrivateRoom    = 4007
	CloseSlowConsumer   = 4008
	CloseServerShutdown = 4009
)

var closeReasons = map[int]string{
	CloseInvalidRoom:    "invalid room",
	CloseRoomNotFound:   "room not found",
	CloseBanned:         "banned",
	CloseKicked:         "kicked",
	CloseAuthFailed:     "authentication failed",
	CloseMissingToken:   "missing token",
	CloseRoomFull:       "room full",
	ClosePrivateRoom:    "private room",
	CloseSlowConsumer:   "slow consumer",
	CloseServerShutdown: "server shutting down",
}

func closeReason(code int) string {
	return closeReasons[code]
}

// Messages carried by targeted error frames.
const (
	ErrStatusNotEnoughPlayers = "Not enough players"
	ErrStatusTooManyPlayers   = "Too many players"
	ErrStatusGameStarted      = "Game already started"
	ErrStatusGameNotStarted   = "Game not started"
	ErrStatusMoveNotRequested = "Move not requested"
	ErrStatusPlayerNotFound   = "Player not found"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomLimit      = errors.New("room limit reached")
	ErrNotHost        = errors.New("not the room host")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrKeyExpired     = errors.New("room key expired")
	ErrServerStopping = errors.New("server stopping")
)
