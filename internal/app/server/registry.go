package server

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/trisbattle/arena/internal/domains/entities"
	"github.com/trisbattle/arena/pkg/logging"
	"github.com/trisbattle/arena/pkg/utils"
	"go.uber.org/zap"
)

const (
	roomIdLength       = 8
	roomIdMaxAttempts  = 16
	sweepJobSpecFormat = "@every %s"
)

// Store is the record store the server reads profiles, tokens and join
// keys from.
type Store interface {
	GetProfile(ctx context.Context, id string) (entities.Profile, error)
	GetApiToken(ctx context.Context, token string) (entities.ApiToken, error)
	GetRoomKey(ctx context.Context, key string) (entities.RoomKey, error)
	ConsumeRoomKey(ctx context.Context, key string) (entities.RoomKey, error)
	PutRoomKey(ctx context.Context, roomKey entities.RoomKey) error
	GetMasterRoomKey(ctx context.Context, roomId string) (entities.RoomKey, error)
	DeleteRoomKeys(ctx context.Context, roomId string) error
}

func newRoomId() (string, error) {
	return utils.RandomString(utils.RoomIdAlphabet, roomIdLength)
}

// createRoom registers a new room. It must run on the loop.
func (s *server) createRoom(host entities.PlayerInfo, private bool, settings Settings) (*Room, error) {
	if len(s.rooms) >= s.config.MaxRooms {
		return nil, ErrRoomLimit
	}
	var id string
	for attempt := 0; ; attempt++ {
		if attempt == roomIdMaxAttempts {
			return nil, fmt.Errorf("failed to generate unique room id after %d attempts", attempt)
		}
		candidate, err := s.newRoomId()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room id: %w", err)
		}
		if _, taken := s.rooms[candidate]; !taken {
			id = candidate
			break
		}
	}
	room := newRoom(id, host, private, settings, s.config.MaxPlayers, s.now())
	s.rooms[id] = room
	s.protection.roomsChanged(len(s.rooms))
	logging.Info("room created",
		zap.String("room_id", id),
		zap.String("host", host.UserId),
		zap.Bool("private", private),
	)
	return room, nil
}

// openRoom creates a room and mints its multi-use join key. The room is
// dropped again if the key cannot be stored.
func (s *server) openRoom(
	ctx context.Context,
	host entities.PlayerInfo,
	private bool,
	settings Settings,
) (*Room, entities.RoomKey, error) {
	var (
		room *Room
		err  error
	)
	if callErr := s.call(func() {
		room, err = s.createRoom(host, private, settings)
	}); callErr != nil {
		return nil, entities.RoomKey{}, callErr
	}
	if err != nil {
		return nil, entities.RoomKey{}, err
	}

	key := entities.RoomKey{
		Key:       utils.NewKey(),
		RoomId:    room.id,
		SingleUse: false,
		CreatedAt: s.now(),
	}
	if err := s.store.PutRoomKey(ctx, key); err != nil {
		s.post(func() {
			if s.rooms[room.id] == room {
				s.deleteRoom(room)
			}
		})
		return nil, entities.RoomKey{}, fmt.Errorf("failed to mint room key: %w", err)
	}
	return room, key, nil
}

func (s *server) getRoom(roomId string) (*Room, bool) {
	room, ok := s.rooms[roomId]
	return room, ok
}

// deleteRoom tears a room down. Its keys are removed in the background.
func (s *server) deleteRoom(room *Room) {
	if s.rooms[room.id] != room {
		return
	}
	room.cancelTimers()
	delete(s.rooms, room.id)
	s.protection.roomsChanged(len(s.rooms))
	logging.Info("room deleted", zap.String("room_id", room.id))

	go func(roomId string) {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := s.store.DeleteRoomKeys(ctx, roomId); err != nil {
			logging.Warn("failed to delete room keys", zap.String("room_id", roomId), zap.Error(err))
		}
	}(room.id)
}

func (s *server) deleteRoomIfEmpty(room *Room) {
	if room.empty() {
		s.deleteRoom(room)
	}
}

// sweepIdleRooms deletes rooms that nobody joined within the idle timeout.
func (s *server) sweepIdleRooms() {
	now := s.now()
	for _, room := range s.rooms {
		if room.empty() && now.Sub(room.createdAt) >= s.config.RoomIdleTimeout {
			s.deleteRoom(room)
		}
	}
}

func (s *server) startSweeper() (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf(sweepJobSpecFormat, s.config.SweepInterval), func() {
		s.post(s.sweepIdleRooms)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule room sweep: %w", err)
	}
	c.Start()
	return c, nil
}
