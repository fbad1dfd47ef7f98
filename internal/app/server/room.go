package server

import (
	"sort"
	"time"

	"github.com/trisbattle/arena/internal/domains/dtos"
	"github.com/trisbattle/arena/internal/domains/entities"
	"github.com/trisbattle/arena/internal/game"
	"github.com/trisbattle/arena/pkg/utils"
)

// Settings are the host-tunable rules of a room. Pace and garbage
// multiplier both ramp over the same margins.
type Settings struct {
	Ft                int
	InitialPps        float64
	FinalPps          float64
	InitialMultiplier float64
	FinalMultiplier   float64
	StartMargin       time.Duration
	EndMargin         time.Duration
}

func (s Settings) pps() utils.Schedule {
	return utils.Schedule{
		Initial:     s.InitialPps,
		Final:       s.FinalPps,
		StartMargin: s.StartMargin,
		EndMargin:   s.EndMargin,
	}
}

func (s Settings) multiplier() utils.Schedule {
	return utils.Schedule{
		Initial:     s.InitialMultiplier,
		Final:       s.FinalMultiplier,
		StartMargin: s.StartMargin,
		EndMargin:   s.EndMargin,
	}
}

// moveInterval is the minimum time between two moves at the current pace.
func (s Settings) moveInterval(elapsed time.Duration) time.Duration {
	pps := s.pps().At(elapsed)
	if pps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / pps)
}

func (s Settings) public() dtos.RoomSettings {
	return dtos.RoomSettings{
		Ft:                s.Ft,
		InitialPps:        s.InitialPps,
		FinalPps:          s.FinalPps,
		InitialMultiplier: s.InitialMultiplier,
		FinalMultiplier:   s.FinalMultiplier,
		StartMargin:       s.StartMargin.Seconds(),
		EndMargin:         s.EndMargin.Seconds(),
	}
}

func settingsFromRequest(req dtos.RoomCreateRequest) Settings {
	return Settings{
		Ft:                req.Ft,
		InitialPps:        req.InitialPps,
		FinalPps:          req.FinalPps,
		InitialMultiplier: req.InitialMultiplier,
		FinalMultiplier:   req.FinalMultiplier,
		StartMargin:       seconds(req.StartMargin),
		EndMargin:         seconds(req.EndMargin),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

type Room struct {
	id         string
	createdAt  time.Time
	host       entities.PlayerInfo
	private    bool
	settings   Settings
	maxPlayers int

	gameOngoing  bool
	roundOngoing bool
	startedAt    *time.Time
	endedAt      *time.Time
	lastWinner   *string

	banned     map[string]entities.PlayerInfo
	players    map[string]*PlayerData
	spectators map[string]*Session

	roundStart Timer
}

func newRoom(
	id string,
	host entities.PlayerInfo,
	private bool,
	settings Settings,
	maxPlayers int,
	now time.Time,
) *Room {
	return &Room{
		id:         id,
		createdAt:  now,
		host:       host,
		private:    private,
		settings:   settings,
		maxPlayers: maxPlayers,
		banned:     make(map[string]entities.PlayerInfo),
		players:    make(map[string]*PlayerData),
		spectators: make(map[string]*Session),
	}
}

func (r *Room) empty() bool {
	return len(r.players) == 0 && len(r.spectators) == 0
}

func (r *Room) isHost(sess *Session) bool {
	return sess.isIdentity(r.host.UserId)
}

// orderedPlayers returns players in join order.
func (r *Room) orderedPlayers() []*PlayerData {
	players := make([]*PlayerData, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].joinedAt.Equal(players[j].joinedAt) {
			return players[i].sessionId < players[j].sessionId
		}
		return players[i].joinedAt.Before(players[j].joinedAt)
	})
	return players
}

func (r *Room) alivePlayers() []*PlayerData {
	var alive []*PlayerData
	for _, p := range r.orderedPlayers() {
		if p.alive() {
			alive = append(alive, p)
		}
	}
	return alive
}

func (r *Room) playerWithUserId(userId string) (*PlayerData, bool) {
	for _, p := range r.orderedPlayers() {
		if p.info.UserId == userId {
			return p, true
		}
	}
	return nil, false
}

// elapsed is the time since the current round went live.
func (r *Room) elapsed(now time.Time) time.Duration {
	if r.startedAt == nil {
		return 0
	}
	d := now.Sub(*r.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

func (r *Room) armRoundStart(s Scheduler, d time.Duration, f func()) {
	r.cancelRoundStart()
	r.roundStart = s.AfterFunc(d, f)
}

func (r *Room) cancelRoundStart() {
	if r.roundStart != nil {
		r.roundStart.Stop()
		r.roundStart = nil
	}
}

func (r *Room) cancelTimers() {
	r.cancelRoundStart()
	for _, p := range r.players {
		p.cancelTimers()
	}
}

func (r *Room) publicPlayers(engine game.Engine) []dtos.PublicPlayerData {
	players := r.orderedPlayers()
	out := make([]dtos.PublicPlayerData, 0, len(players))
	for _, p := range players {
		out = append(out, p.public(engine))
	}
	return out
}

func unixMilli(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func (r *Room) public(engine game.Engine) dtos.PublicRoomData {
	banned := make([]entities.PlayerInfo, 0, len(r.banned))
	for _, info := range r.banned {
		banned = append(banned, info)
	}
	sort.Slice(banned, func(i, j int) bool {
		return banned[i].UserId < banned[j].UserId
	})
	var lastWinner *string
	if r.lastWinner != nil {
		winner := *r.lastWinner
		lastWinner = &winner
	}
	return dtos.PublicRoomData{
		Id:           r.id,
		Host:         r.host,
		Private:      r.private,
		Settings:     r.settings.public(),
		MaxPlayers:   r.maxPlayers,
		GameOngoing:  r.gameOngoing,
		RoundOngoing: r.roundOngoing,
		StartedAt:    unixMilli(r.startedAt),
		EndedAt:      unixMilli(r.endedAt),
		LastWinner:   lastWinner,
		Players:      r.publicPlayers(engine),
		Banned:       banned,
	}
}

func sortRooms(rooms []*Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].createdAt.Equal(rooms[j].createdAt) {
			return rooms[i].id < rooms[j].id
		}
		return rooms[i].createdAt.Before(rooms[j].createdAt)
	})
}
