package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trisbattle/arena/internal/domains/entities"
)

func sequentialIds(ids ...string) func() (string, error) {
	return func() (string, error) {
		if len(ids) == 0 {
			return "", errors.New("out of ids")
		}
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
}

func TestCreateRoom(t *testing.T) {
	h := newHarness(t)

	room := h.newRoom(t)

	assert.Len(t, room.id, roomIdLength)
	assert.Same(t, room, h.srv.rooms[room.id])
	assert.Equal(t, hostInfo, room.host)
	assert.Equal(t, 2, room.maxPlayers)
	assert.False(t, room.gameOngoing)
	assert.False(t, room.roundOngoing)
	assert.Nil(t, room.startedAt)
	assert.Nil(t, room.endedAt)
	assert.Nil(t, room.lastWinner)
	assert.True(t, room.empty())
}

func TestCreateRoomSkipsTakenIds(t *testing.T) {
	h := newHarness(t)
	h.srv.newRoomId = sequentialIds("aaaaaaaa", "aaaaaaaa", "bbbbbbbb")

	first := h.newRoom(t)
	second := h.newRoom(t)

	assert.Equal(t, "aaaaaaaa", first.id)
	assert.Equal(t, "bbbbbbbb", second.id)
	assert.Len(t, h.srv.rooms, 2)
}

func TestCreateRoomLimit(t *testing.T) {
	h := newHarness(t)
	h.srv.config.MaxRooms = 1
	h.newRoom(t)

	_, err := h.srv.createRoom(hostInfo, false, testSettings())

	assert.ErrorIs(t, err, ErrRoomLimit)
	assert.Len(t, h.srv.rooms, 1)
}

func TestSweepIdleRooms(t *testing.T) {
	h := newHarness(t)
	idle := h.newRoom(t)
	occupied := h.newRoom(t)
	h.seat(t, occupied, hostInfo)

	h.sched.advance(5 * time.Second)
	fresh := h.newRoom(t)
	h.srv.sweepIdleRooms()
	assert.Len(t, h.srv.rooms, 3)

	h.sched.advance(5 * time.Second)
	h.srv.sweepIdleRooms()

	assert.NotContains(t, h.srv.rooms, idle.id)
	assert.Contains(t, h.srv.rooms, occupied.id)
	assert.Contains(t, h.srv.rooms, fresh.id)
}

func TestDeleteRoomCancelsTimers(t *testing.T) {
	h := newHarness(t)
	room, _, _ := h.live(t)
	require.NotZero(t, h.sched.pending())
	deleted := make(chan string, 1)
	h.store.ExpectedCalls = nil
	h.store.On("DeleteRoomKeys", mock.Anything, room.id).Return(nil).Run(func(args mock.Arguments) {
		deleted <- args.String(1)
	})

	h.srv.deleteRoom(room)

	assert.NotContains(t, h.srv.rooms, room.id)
	assert.Equal(t, 0, h.sched.pending())
	select {
	case roomId := <-deleted:
		assert.Equal(t, room.id, roomId)
	case <-time.After(time.Second):
		t.Fatal("room keys were not deleted")
	}
}

func TestOpenRoomMintsMultiUseKey(t *testing.T) {
	h := newHarness(t)
	h.startLoop()
	h.store.On("PutRoomKey", mock.Anything, mock.MatchedBy(func(key entities.RoomKey) bool {
		return !key.SingleUse && key.ExpiresAt == nil && len(key.Key) == 32
	})).Return(nil)

	room, key, err := h.srv.openRoom(context.Background(), hostInfo, true, testSettings())

	require.NoError(t, err)
	assert.Equal(t, room.id, key.RoomId)
	var private bool
	require.NoError(t, h.srv.call(func() {
		private = h.srv.rooms[room.id].private
	}))
	assert.True(t, private)
}

func TestOpenRoomDropsRoomWhenKeyFails(t *testing.T) {
	h := newHarness(t)
	h.startLoop()
	h.store.On("PutRoomKey", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	_, _, err := h.srv.openRoom(context.Background(), hostInfo, false, testSettings())

	require.Error(t, err)
	assert.Eventually(t, func() bool {
		var rooms int
		h.srv.call(func() {
			rooms = len(h.srv.rooms)
		})
		return rooms == 0
	}, time.Second, time.Millisecond)
}
