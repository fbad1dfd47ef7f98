package server

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trisbattle/arena/internal/game"
)

func TestParseGeneralMessage(t *testing.T) {
	v := validator.New()
	tests := []struct {
		name   string
		data   string
		want   generalMessage
		wantOk bool
	}{
		{"kick", `{"type":"kick","payload":{"sessionId":"s1"}}`, kickMessage{SessionId: "s1"}, true},
		{"kick without target", `{"type":"kick","payload":{}}`, nil, false},
		{"ban", `{"type":"ban","payload":{"userId":"u1"}}`, banMessage{UserId: "u1"}, true},
		{"unban", `{"type":"unban","payload":{"userId":"u1"}}`, unbanMessage{UserId: "u1"}, true},
		{"start without payload", `{"type":"start_game"}`, startGameMessage{}, true},
		{"reset ignores payload", `{"type":"reset_game","payload":{"x":1}}`, resetGameMessage{}, true},
		{"transfer host", `{"type":"transfer_host","payload":{"userId":"u2"}}`, transferHostMessage{UserId: "u2"}, true},
		{
			"room settings",
			`{"type":"room_settings","payload":{"private":true,"ft":5,"initialPps":1,"finalPps":3,"initialMultiplier":1,"finalMultiplier":2,"startMargin":10,"endMargin":20}}`,
			roomSettingsMessage{Private: true, Ft: 5, InitialPps: 1, FinalPps: 3, InitialMultiplier: 1, FinalMultiplier: 2, StartMargin: 10, EndMargin: 20},
			true,
		},
		{"settings with zero pps", `{"type":"room_settings","payload":{"ft":5,"initialPps":0,"finalPps":3}}`, nil, false},
		{"settings with inverted margins", `{"type":"room_settings","payload":{"ft":5,"initialPps":1,"finalPps":3,"startMargin":20,"endMargin":10}}`, nil, false},
		{"unknown type", `{"type":"chat","payload":{}}`, nil, false},
		{"player message", `{"type":"action","payload":{"commands":[]}}`, nil, false},
		{"missing type", `{"payload":{}}`, nil, false},
		{"not json", `kick`, nil, false},
		{"payload of wrong shape", `{"type":"ban","payload":{"userId":7}}`, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := parseGeneralMessage(v, []byte(tt.data))
			require.Equal(t, tt.wantOk, ok)
			if ok {
				assert.Equal(t, tt.want, msg)
			}
		})
	}
}

func TestParsePlayerMessage(t *testing.T) {
	v := validator.New()
	tests := []struct {
		name   string
		data   string
		want   playerMessage
		wantOk bool
	}{
		{
			"action",
			`{"type":"action","payload":{"commands":["move_left","rotate_cw","hold"]}}`,
			actionMessage{Commands: []game.Command{game.MoveLeft, game.RotateCW, game.Hold}},
			true,
		},
		{"empty action", `{"type":"action","payload":{"commands":[]}}`, actionMessage{Commands: []game.Command{}}, true},
		{"action without payload", `{"type":"action"}`, actionMessage{}, true},
		{"unknown command", `{"type":"action","payload":{"commands":["teleport"]}}`, nil, false},
		{"ping", `{"type":"ping"}`, pingMessage{}, true},
		{"general message", `{"type":"kick","payload":{"sessionId":"s1"}}`, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := parsePlayerMessage(v, []byte(tt.data))
			require.Equal(t, tt.wantOk, ok)
			if ok {
				assert.Equal(t, tt.want, msg)
			}
		})
	}
}

func TestRoomSettingsMessageConvertsMargins(t *testing.T) {
	settings := roomSettingsMessage{Ft: 3, InitialPps: 1, FinalPps: 2, StartMargin: 1.5, EndMargin: 90}.settings()

	assert.Equal(t, 1500*time.Millisecond, settings.StartMargin)
	assert.Equal(t, 90*time.Second, settings.EndMargin)
	assert.Equal(t, 3, settings.Ft)
}

func TestPingMessage(t *testing.T) {
	msg := newPingMessage(time.UnixMilli(1234))
	assert.Equal(t, message{Type: msgPing, Payload: pingPayload{Timestamp: 1234}}, msg)
}
