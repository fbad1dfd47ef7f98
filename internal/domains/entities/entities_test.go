package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.False(t, ApiToken{}.Expired(now))
	assert.True(t, ApiToken{Expires: &past}.Expired(now))
	assert.True(t, ApiToken{Expires: &now}.Expired(now))
	assert.False(t, ApiToken{Expires: &future}.Expired(now))

	assert.False(t, RoomKey{}.Expired(now))
	assert.True(t, RoomKey{ExpiresAt: &past}.Expired(now))
	assert.False(t, RoomKey{ExpiresAt: &future}.Expired(now))
}

func TestProfilePlayerInfo(t *testing.T) {
	p := Profile{Id: "p1", Creator: "alice", Name: "stacker", Avatar: [][]int{{1, 0}}}
	assert.Equal(t, PlayerInfo{
		UserId:  "p1",
		Creator: "alice",
		Bot:     "stacker",
		Avatar:  [][]int{{1, 0}},
	}, p.PlayerInfo())
}
