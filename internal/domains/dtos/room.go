package dtos

import (
	"github.com/trisbattle/arena/internal/domains/entities"
)

type PublicPlayerData struct {
	SessionId string              `json:"sessionId"`
	Playing   bool                `json:"playing"`
	Wins      int                 `json:"wins"`
	GameState any                 `json:"gameState"`
	Info      entities.PlayerInfo `json:"playerInfo"`
}

type RoomSettings struct {
	Ft                int     `json:"ft"`
	InitialPps        float64 `json:"initialPps"`
	FinalPps          float64 `json:"finalPps"`
	InitialMultiplier float64 `json:"initialMultiplier"`
	FinalMultiplier   float64 `json:"finalMultiplier"`
	// Margins are in seconds.
	StartMargin float64 `json:"startMargin"`
	EndMargin   float64 `json:"endMargin"`
}

type PublicRoomData struct {
	Id           string                `json:"id"`
	Host         entities.PlayerInfo   `json:"host"`
	Private      bool                  `json:"private"`
	Settings     RoomSettings          `json:"settings"`
	MaxPlayers   int                   `json:"maxPlayers"`
	GameOngoing  bool                  `json:"gameOngoing"`
	RoundOngoing bool                  `json:"roundOngoing"`
	StartedAt    *int64                `json:"startedAt"`
	EndedAt      *int64                `json:"endedAt"`
	LastWinner   *string               `json:"lastWinner"`
	Players      []PublicPlayerData    `json:"players"`
	Banned       []entities.PlayerInfo `json:"banned"`
}

// RoomCreateRequest is the body of POST /rooms.
type RoomCreateRequest struct {
	Private           bool    `json:"private"`
	Ft                int     `json:"ft" binding:"required,min=1,max=99"`
	InitialPps        float64 `json:"initialPps" binding:"required,gt=0,lte=30"`
	FinalPps          float64 `json:"finalPps" binding:"required,gt=0,lte=30"`
	InitialMultiplier float64 `json:"initialMultiplier" binding:"gte=0,lte=20"`
	FinalMultiplier   float64 `json:"finalMultiplier" binding:"gte=0,lte=20"`
	StartMargin       float64 `json:"startMargin" binding:"gte=0"`
	EndMargin         float64 `json:"endMargin" binding:"gtefield=StartMargin"`
}

type RoomCreateResponse struct {
	RoomId string `json:"roomId"`
	Key    string `json:"key"`
}

type RoomKeyResponse struct {
	Key       string `json:"key"`
	SingleUse bool   `json:"singleUse"`
}
