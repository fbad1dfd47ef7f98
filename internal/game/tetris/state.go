package tetris

import (
	"github.com/trisbattle/arena/internal/game"
)

const (
	PreviewSize = 5
	spawnX      = 3
	spawnY      = 2
)

// GameState is the full state of one player's board. It is the player's own
// view; opponents get PublicState.
type GameState struct {
	Board        Board          `json:"board"`
	Current      Piece          `json:"current"`
	Held         PieceType      `json:"held,omitempty"`
	CanHold      bool           `json:"canHold"`
	Queue        []PieceType    `json:"queue"`
	GarbageQueue []game.Garbage `json:"garbageQueue"`
	Combo        int            `json:"combo"`
	BackToBack   bool           `json:"b2b"`
	PiecesPlaced int            `json:"piecesPlaced"`
	LinesCleared int            `json:"linesCleared"`
	IsDead       bool           `json:"dead"`

	seed        uint64
	lastRotated bool
}

// PublicState is the redacted view broadcast to the room.
type PublicState struct {
	Board         Board       `json:"board"`
	Current       Piece       `json:"current"`
	Held          PieceType   `json:"held,omitempty"`
	Queue         []PieceType `json:"queue"`
	GarbageQueued int         `json:"garbageQueued"`
	Combo         int         `json:"combo"`
	BackToBack    bool        `json:"b2b"`
	PiecesPlaced  int         `json:"piecesPlaced"`
	LinesCleared  int         `json:"linesCleared"`
	Dead          bool        `json:"dead"`
}

func (s *GameState) Dead() bool {
	return s.IsDead
}

func (s *GameState) clone() *GameState {
	c := *s
	c.Queue = append([]PieceType(nil), s.Queue...)
	c.GarbageQueue = append([]game.Garbage(nil), s.GarbageQueue...)
	return &c
}

func (s *GameState) public() PublicState {
	preview := s.Queue
	if len(preview) > PreviewSize {
		preview = preview[:PreviewSize]
	}
	queued := 0
	for _, g := range s.GarbageQueue {
		queued += g.Lines
	}
	return PublicState{
		Board:         s.Board,
		Current:       s.Current,
		Held:          s.Held,
		Queue:         append([]PieceType(nil), preview...),
		GarbageQueued: queued,
		Combo:         s.Combo,
		BackToBack:    s.BackToBack,
		PiecesPlaced:  s.PiecesPlaced,
		LinesCleared:  s.LinesCleared,
		Dead:          s.IsDead,
	}
}

// splitmix64, so the bag sequence travels with the state.
func (s *GameState) random() uint64 {
	s.seed += 0x9e3779b97f4a7c15
	z := s.seed
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (s *GameState) refill() {
	for len(s.Queue) < len(bag) {
		next := bag
		for i := len(next) - 1; i > 0; i-- {
			j := int(s.random() % uint64(i+1))
			next[i], next[j] = next[j], next[i]
		}
		s.Queue = append(s.Queue, next[:]...)
	}
}

func (s *GameState) pop() PieceType {
	t := s.Queue[0]
	s.Queue = s.Queue[1:]
	s.refill()
	return t
}

func (s *GameState) spawn(t PieceType) {
	s.Current = Piece{Type: t, X: spawnX, Y: spawnY}
	s.lastRotated = false
	if !s.Board.fits(s.Current) {
		s.IsDead = true
	}
}

func (s *GameState) shift(dx, dy int) bool {
	moved := s.Current
	moved.X += dx
	moved.Y += dy
	if !s.Board.fits(moved) {
		return false
	}
	s.Current = moved
	s.lastRotated = false
	return true
}

func (s *GameState) rotate(dir int) bool {
	from := s.Current.Rotation
	to := (from + dir + 4) % 4
	for _, k := range kickTable(s.Current.Type)[rotation{from, to}] {
		moved := s.Current
		moved.Rotation = to
		moved.X += k.x
		moved.Y += k.y
		if s.Board.fits(moved) {
			s.Current = moved
			s.lastRotated = true
			return true
		}
	}
	return false
}

func (s *GameState) hold() []game.Event {
	if !s.CanHold {
		return nil
	}
	current := s.Current.Type
	if s.Held == "" {
		s.Held = current
		s.spawn(s.pop())
	} else {
		next := s.Held
		s.Held = current
		s.spawn(next)
	}
	s.CanHold = false
	if s.IsDead {
		return []game.Event{{Type: game.EventGameOver}}
	}
	return nil
}

// tCorners counts blocked corners of the T piece's 3x3 box.
func (s *GameState) tCorners() int {
	n := 0
	for _, c := range [...]point{{0, 0}, {2, 0}, {0, 2}, {2, 2}} {
		if s.Board.occupied(s.Current.X+c.x, s.Current.Y+c.y) {
			n++
		}
	}
	return n
}
