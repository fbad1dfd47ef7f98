package server

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/trisbattle/arena/internal/domains/dtos"
	"github.com/trisbattle/arena/internal/domains/entities"
	"github.com/trisbattle/arena/internal/game"
)

// Outbound message types.
const (
	msgAuthenticated        = "authenticated"
	msgRoomData             = "room_data"
	msgPlayerJoined         = "player_joined"
	msgPlayerLeft           = "player_left"
	msgPlayerBanned         = "player_banned"
	msgPlayerUnbanned       = "player_unbanned"
	msgSettingsChanged      = "settings_changed"
	msgHostChanged          = "host_changed"
	msgGameStarted          = "game_started"
	msgRoundStarted         = "round_started"
	msgRequestMove          = "request_move"
	msgPlayerAction         = "player_action"
	msgPlayerDamageReceived = "player_damage_received"
	msgRoundOver            = "round_over"
	msgGameOver             = "game_over"
	msgGameReset            = "game_reset"
	msgPing                 = "ping"
	msgError                = "error"
)

// Inbound message types.
const (
	msgKick         = "kick"
	msgBan          = "ban"
	msgUnban        = "unban"
	msgStartGame    = "start_game"
	msgResetGame    = "reset_game"
	msgTransferHost = "transfer_host"
	msgRoomSettings = "room_settings"
	msgAction       = "action"
)

type message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func newMessage(msgType string, payload any) message {
	return message{Type: msgType, Payload: payload}
}

type authenticatedPayload struct {
	SessionId string `json:"sessionId"`
}

type roomDataPayload struct {
	RoomData dtos.PublicRoomData `json:"roomData"`
}

type playerJoinedPayload struct {
	PlayerData dtos.PublicPlayerData `json:"playerData"`
}

type playerLeftPayload struct {
	SessionId string `json:"sessionId"`
}

type playerInfoPayload struct {
	PlayerInfo entities.PlayerInfo `json:"playerInfo"`
}

type hostChangedPayload struct {
	HostInfo entities.PlayerInfo `json:"hostInfo"`
}

type roundStartedPayload struct {
	StartsAt int64               `json:"startsAt"`
	RoomData dtos.PublicRoomData `json:"roomData"`
}

type requestMovePayload struct {
	GameState game.State              `json:"gameState"`
	Players   []dtos.PublicPlayerData `json:"players"`
}

type playerActionPayload struct {
	SessionId     string         `json:"sessionId"`
	Commands      []game.Command `json:"commands"`
	GameState     any            `json:"gameState"`
	PrevGameState any            `json:"prevGameState"`
	Events        []game.Event   `json:"events"`
}

type damagePayload struct {
	SessionId string `json:"sessionId"`
	Damage    int    `json:"damage"`
	GameState any    `json:"gameState"`
}

type roundOverPayload struct {
	WinnerId   *string              `json:"winnerId"`
	WinnerInfo *entities.PlayerInfo `json:"winnerInfo"`
	RoomData   dtos.PublicRoomData  `json:"roomData"`
}

type pingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

func newPingMessage(now time.Time) message {
	return newMessage(msgPing, pingPayload{Timestamp: now.UnixMilli()})
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// generalMessage is a room administration message. Only the host's are
// acted on.
type generalMessage interface {
	general()
}

type kickMessage struct {
	SessionId string `json:"sessionId" validate:"required"`
}

type banMessage struct {
	UserId string `json:"userId" validate:"required"`
}

type unbanMessage struct {
	UserId string `json:"userId" validate:"required"`
}

type startGameMessage struct{}

type resetGameMessage struct{}

type transferHostMessage struct {
	UserId string `json:"userId" validate:"required"`
}

type roomSettingsMessage struct {
	Private           bool    `json:"private"`
	Ft                int     `json:"ft" validate:"min=1,max=99"`
	InitialPps        float64 `json:"initialPps" validate:"gt=0,lte=30"`
	FinalPps          float64 `json:"finalPps" validate:"gt=0,lte=30"`
	InitialMultiplier float64 `json:"initialMultiplier" validate:"gte=0,lte=20"`
	FinalMultiplier   float64 `json:"finalMultiplier" validate:"gte=0,lte=20"`
	StartMargin       float64 `json:"startMargin" validate:"gte=0"`
	EndMargin         float64 `json:"endMargin" validate:"gtefield=StartMargin"`
}

func (kickMessage) general()         {}
func (banMessage) general()          {}
func (unbanMessage) general()        {}
func (startGameMessage) general()    {}
func (resetGameMessage) general()    {}
func (transferHostMessage) general() {}
func (roomSettingsMessage) general() {}

func (m roomSettingsMessage) settings() Settings {
	return Settings{
		Ft:                m.Ft,
		InitialPps:        m.InitialPps,
		FinalPps:          m.FinalPps,
		InitialMultiplier: m.InitialMultiplier,
		FinalMultiplier:   m.FinalMultiplier,
		StartMargin:       seconds(m.StartMargin),
		EndMargin:         seconds(m.EndMargin),
	}
}

// playerMessage is sent by a seated player.
type playerMessage interface {
	player()
}

type actionMessage struct {
	Commands []game.Command `json:"commands" validate:"max=64,dive,oneof=move_left move_right sonic_left sonic_right drop sonic_drop rotate_cw rotate_ccw hold none"`
}

type pingMessage struct{}

func (actionMessage) player() {}
func (pingMessage) player()   {}

func decodePayload[T any](v *validator.Validate, raw json.RawMessage) (T, bool) {
	var msg T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &msg); err != nil {
			return msg, false
		}
	}
	if err := v.Struct(msg); err != nil {
		return msg, false
	}
	return msg, true
}

func parseEnvelope(data []byte) (envelope, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		return envelope{}, false
	}
	return env, true
}

func parseGeneralMessage(v *validator.Validate, data []byte) (generalMessage, bool) {
	env, ok := parseEnvelope(data)
	if !ok {
		return nil, false
	}
	switch env.Type {
	case msgKick:
		return decodePayload[kickMessage](v, env.Payload)
	case msgBan:
		return decodePayload[banMessage](v, env.Payload)
	case msgUnban:
		return decodePayload[unbanMessage](v, env.Payload)
	case msgStartGame:
		return startGameMessage{}, true
	case msgResetGame:
		return resetGameMessage{}, true
	case msgTransferHost:
		return decodePayload[transferHostMessage](v, env.Payload)
	case msgRoomSettings:
		return decodePayload[roomSettingsMessage](v, env.Payload)
	}
	return nil, false
}

func parsePlayerMessage(v *validator.Validate, data []byte) (playerMessage, bool) {
	env, ok := parseEnvelope(data)
	if !ok {
		return nil, false
	}
	switch env.Type {
	case msgAction:
		return decodePayload[actionMessage](v, env.Payload)
	case msgPing:
		return pingMessage{}, true
	}
	return nil, false
}
