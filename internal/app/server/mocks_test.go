package server

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trisbattle/arena/internal/domains/entities"
	"github.com/trisbattle/arena/internal/game"
	"github.com/trisbattle/arena/pkg/logging"
	"go.uber.org/zap"
)

// --- Scheduler ---

type fakeTimer struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeScheduler runs callbacks when the test advances its clock.
type fakeScheduler struct {
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.seq++
	t := &fakeTimer{at: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) next(until time.Duration) *fakeTimer {
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= until {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	return due[0]
}

// advance moves the clock by d, firing due timers in deadline order. Timers
// armed by a callback fire too if they fall inside the window.
func (s *fakeScheduler) advance(d time.Duration) {
	until := s.now + d
	for t := s.next(until); t != nil; t = s.next(until) {
		s.now = t.at
		t.fired = true
		t.f()
	}
	s.now = until
}

func (s *fakeScheduler) pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// --- Engine ---

type stubState struct {
	Moves   int  `json:"moves"`
	Garbage int  `json:"garbage"`
	IsDead  bool `json:"dead"`
}

func (s *stubState) Dead() bool {
	return s.IsDead
}

// stubEngine maps commands to scripted outcomes: rotate_cw attacks for 3,
// hold attacks for 10 and tops the mover out, rotate_ccw tops out. Ten
// queued garbage lines kill.
type stubEngine struct {
	lastMods game.Modifiers
	applied  [][]game.Command
}

func (e *stubEngine) NewGameState() game.State {
	return &stubState{}
}

func (e *stubEngine) Apply(state game.State, commands []game.Command, mods game.Modifiers) (game.State, []game.Event) {
	e.lastMods = mods
	e.applied = append(e.applied, commands)
	next := *state.(*stubState)
	var events []game.Event
	for _, cmd := range commands {
		if next.IsDead {
			break
		}
		switch cmd {
		case game.RotateCW:
			events = append(events, game.Event{Type: game.EventAttack, Lines: 3})
		case game.Hold:
			events = append(events, game.Event{Type: game.EventAttack, Lines: 10})
			next.IsDead = true
			events = append(events, game.Event{Type: game.EventGameOver})
		case game.RotateCCW:
			next.IsDead = true
			events = append(events, game.Event{Type: game.EventGameOver})
		case game.HardDrop:
			next.Moves++
			events = append(events, game.Event{Type: game.EventPiecePlaced})
		}
	}
	return &next, events
}

func (e *stubEngine) PublicView(state game.State) any {
	return *state.(*stubState)
}

func (e *stubEngine) GarbageFor(lines int) game.Garbage {
	return game.Garbage{Lines: lines}
}

func (e *stubEngine) QueueGarbage(state game.State, garbage game.Garbage) game.State {
	next := *state.(*stubState)
	next.Garbage += garbage.Lines
	if next.Garbage >= 10 {
		next.IsDead = true
	}
	return &next
}

func (e *stubEngine) Forfeit(state game.State) game.State {
	next := *state.(*stubState)
	next.IsDead = true
	return &next
}

// --- Store ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetProfile(ctx context.Context, id string) (entities.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entities.Profile), args.Error(1)
}

func (m *mockStore) GetApiToken(ctx context.Context, token string) (entities.ApiToken, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(entities.ApiToken), args.Error(1)
}

func (m *mockStore) GetRoomKey(ctx context.Context, key string) (entities.RoomKey, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(entities.RoomKey), args.Error(1)
}

func (m *mockStore) ConsumeRoomKey(ctx context.Context, key string) (entities.RoomKey, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(entities.RoomKey), args.Error(1)
}

func (m *mockStore) PutRoomKey(ctx context.Context, roomKey entities.RoomKey) error {
	args := m.Called(ctx, roomKey)
	return args.Error(0)
}

func (m *mockStore) GetMasterRoomKey(ctx context.Context, roomId string) (entities.RoomKey, error) {
	args := m.Called(ctx, roomId)
	return args.Get(0).(entities.RoomKey), args.Error(1)
}

func (m *mockStore) DeleteRoomKeys(ctx context.Context, roomId string) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}

// --- Identity ---

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) Resolve(ctx context.Context, token string) (entities.PlayerInfo, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(entities.PlayerInfo), args.Error(1)
}

// --- Harness ---

var (
	hostInfo  = entities.PlayerInfo{UserId: "host", Creator: "alice", Bot: "hostbot"}
	guestInfo = entities.PlayerInfo{UserId: "guest", Creator: "bob", Bot: "guestbot"}
	otherInfo = entities.PlayerInfo{UserId: "other", Creator: "carol", Bot: "otherbot"}
)

type harness struct {
	srv      *server
	sched    *fakeScheduler
	engine   *stubEngine
	store    *mockStore
	identity *mockIdentity
	base     time.Time
	sessions int
}

func testConfig() Config {
	return Config{
		Port:            "0",
		MaxRooms:        10,
		MaxPlayers:      2,
		RoomIdleTimeout: 10 * time.Second,
		SweepInterval:   time.Second,
		KeyTTL:          10 * time.Minute,
		MoveTimeout:     5 * time.Second,
		RoundStartDelay: 3 * time.Second,
		NextRoundDelay:  2 * time.Second,
		PingPeriod:      54 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		SendBufferSize:  256,
		MaxMessageSize:  64 * 1024,
		RateLimit:       100,
		RateBurst:       100,
		ProtectionGrace: time.Minute,
	}
}

func testSettings() Settings {
	return Settings{
		Ft:                2,
		InitialPps:        10,
		FinalPps:          10,
		InitialMultiplier: 1,
		FinalMultiplier:   1,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logging.SetLogger(zap.NewNop())

	h := &harness{
		sched:    &fakeScheduler{},
		engine:   &stubEngine{},
		store:    &mockStore{},
		identity: &mockIdentity{},
		base:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	h.store.On("DeleteRoomKeys", mock.Anything, mock.Anything).Return(nil).Maybe()

	h.srv = newServer(testConfig(), h.engine, h.store, h.identity, nil)
	h.srv.scheduler = h.sched
	h.srv.now = func() time.Time {
		return h.base.Add(h.sched.now)
	}
	t.Cleanup(h.srv.cancel)
	return h
}

// startLoop runs the dispatch loop for tests that go through call/post.
func (h *harness) startLoop() {
	go h.srv.run()
}

func (h *harness) newRoom(t *testing.T) *Room {
	t.Helper()
	room, err := h.srv.createRoom(hostInfo, false, testSettings())
	require.NoError(t, err)
	return room
}

func (h *harness) newSession(info *entities.PlayerInfo) *Session {
	h.sessions++
	sess := newSession(string(rune('a'+h.sessions-1))+"-session", 256, nil)
	if info != nil {
		copied := *info
		sess.info = &copied
	}
	return sess
}

func (h *harness) seat(t *testing.T, room *Room, info entities.PlayerInfo) *Session {
	t.Helper()
	sess := h.newSession(&info)
	require.Equal(t, 0, h.srv.seatPlayer(room, sess))
	return sess
}

// duel returns a room with the host and a guest seated and all join frames
// drained.
func (h *harness) duel(t *testing.T) (*Room, *Session, *Session) {
	t.Helper()
	room := h.newRoom(t)
	host := h.seat(t, room, hostInfo)
	guest := h.seat(t, room, guestInfo)
	drain(host)
	drain(guest)
	return room, host, guest
}

// --- Frames ---

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func drain(sess *Session) []frame {
	var frames []frame
	for {
		select {
		case data := <-sess.send:
			var f frame
			if err := json.Unmarshal(data, &f); err == nil {
				frames = append(frames, f)
			}
		default:
			return frames
		}
	}
}

func frameTypes(frames []frame) []string {
	types := make([]string, 0, len(frames))
	for _, f := range frames {
		types = append(types, f.Type)
	}
	return types
}

func findFrame(frames []frame, msgType string) (frame, bool) {
	for _, f := range frames {
		if f.Type == msgType {
			return f, true
		}
	}
	return frame{}, false
}

func decode[T any](t *testing.T, f frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Payload, &v))
	return v
}

func rawMessage(msgType string, payload any) []byte {
	data, _ := json.Marshal(newMessage(msgType, payload))
	return data
}
