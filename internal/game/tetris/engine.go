// Package tetris is the default rules engine: SRS rotation, 7-bag
// randomizer, hold, line-clear attack and a garbage queue.
package tetris

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/trisbattle/arena/internal/game"
)

const perfectClearBonus = 10

var comboTable = []int{0, 0, 1, 1, 1, 2, 2, 3, 3, 4, 4, 4, 5}

type Engine struct {
	rng *rand.Rand
	mu  sync.Mutex
}

func New(seed int64) *Engine {
	return &Engine{rng: rand.New(rand.NewSource(seed))}
}

func (e *Engine) NewGameState() game.State {
	e.mu.Lock()
	seed := e.rng.Uint64()
	e.mu.Unlock()

	s := &GameState{CanHold: true, seed: seed}
	s.refill()
	s.spawn(s.pop())
	return s
}

// Apply runs commands against a copy of state. Processing stops once the
// board tops out.
func (e *Engine) Apply(
	state game.State,
	commands []game.Command,
	mods game.Modifiers,
) (game.State, []game.Event) {
	s := mustState(state).clone()
	var events []game.Event
	for _, cmd := range commands {
		if s.IsDead {
			break
		}
		events = append(events, s.execute(cmd, mods)...)
	}
	return s, events
}

func (e *Engine) PublicView(state game.State) any {
	return mustState(state).public()
}

func (e *Engine) GarbageFor(lines int) game.Garbage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return game.Garbage{Lines: lines, Hole: e.rng.Intn(BoardWidth)}
}

func (e *Engine) QueueGarbage(state game.State, garbage game.Garbage) game.State {
	s := mustState(state).clone()
	if garbage.Lines > 0 {
		s.GarbageQueue = append(s.GarbageQueue, garbage)
	}
	return s
}

func (e *Engine) Forfeit(state game.State) game.State {
	s := mustState(state).clone()
	s.IsDead = true
	return s
}

func mustState(state game.State) *GameState {
	s, ok := state.(*GameState)
	if !ok {
		panic(fmt.Sprintf("tetris: foreign game state %T", state))
	}
	return s
}

func (s *GameState) execute(cmd game.Command, mods game.Modifiers) []game.Event {
	switch cmd {
	case game.MoveLeft:
		s.shift(-1, 0)
	case game.MoveRight:
		s.shift(1, 0)
	case game.SonicLeft:
		for s.shift(-1, 0) {
		}
	case game.SonicRight:
		for s.shift(1, 0) {
		}
	case game.Drop:
		s.shift(0, 1)
	case game.SonicDrop:
		for s.shift(0, 1) {
		}
	case game.RotateCW:
		s.rotate(1)
	case game.RotateCCW:
		s.rotate(-1)
	case game.Hold:
		return s.hold()
	case game.HardDrop:
		for s.shift(0, 1) {
		}
		return s.lock(mods)
	}
	return nil
}

func (s *GameState) lock(mods game.Modifiers) []game.Event {
	piece := s.Current
	tspin := piece.Type == T && s.lastRotated && s.tCorners() >= 3
	for _, c := range piece.cells() {
		if c.y < 0 {
			s.IsDead = true
			continue
		}
		s.Board[c.y][c.x] = Block(piece.Type)
	}
	s.PiecesPlaced++
	events := []game.Event{{Type: game.EventPiecePlaced, Piece: string(piece.Type)}}

	cleared := s.Board.clearLines()
	if cleared > 0 {
		s.LinesCleared += cleared
		s.Combo++
		difficult := cleared == 4 || tspin
		b2b := difficult && s.BackToBack
		perfect := s.Board.empty()
		s.BackToBack = difficult

		attack := baseAttack(cleared, tspin) + comboBonus(s.Combo)
		if b2b {
			attack++
		}
		if perfect {
			attack += perfectClearBonus
		}
		events = append(events, game.Event{
			Type:         game.EventClear,
			Lines:        cleared,
			TSpin:        tspin,
			BackToBack:   b2b,
			Combo:        s.Combo - 1,
			PerfectClear: perfect,
		})

		attack = int(math.Floor(float64(attack) * mods.GarbageMultiplier))
		if attack = s.cancelGarbage(attack); attack > 0 {
			events = append(events, game.Event{Type: game.EventAttack, Lines: attack})
		}
	} else {
		s.Combo = 0
		if tanked := s.tankGarbage(); tanked > 0 {
			events = append(events, game.Event{Type: game.EventGarbageTanked, Lines: tanked})
		}
	}

	if !s.IsDead {
		s.CanHold = true
		s.spawn(s.pop())
	}
	if s.IsDead {
		events = append(events, game.Event{Type: game.EventGameOver})
	}
	return events
}

// cancelGarbage offsets outgoing attack against queued garbage, oldest
// first, and returns what is left to send.
func (s *GameState) cancelGarbage(attack int) int {
	for attack > 0 && len(s.GarbageQueue) > 0 {
		head := &s.GarbageQueue[0]
		if head.Lines <= attack {
			attack -= head.Lines
			s.GarbageQueue = s.GarbageQueue[1:]
			continue
		}
		head.Lines -= attack
		attack = 0
	}
	return attack
}

func (s *GameState) tankGarbage() int {
	total := 0
	for _, g := range s.GarbageQueue {
		for i := 0; i < g.Lines && !s.IsDead; i++ {
			if !s.Board.pushGarbage(g.Hole) {
				s.IsDead = true
			}
		}
		total += g.Lines
	}
	s.GarbageQueue = nil
	return total
}

func baseAttack(lines int, tspin bool) int {
	if tspin {
		return lines * 2
	}
	switch lines {
	case 2:
		return 1
	case 3:
		return 2
	case 4:
		return 4
	}
	return 0
}

func comboBonus(combo int) int {
	idx := combo - 1
	if idx < 0 {
		return 0
	}
	if idx >= len(comboTable) {
		return comboTable[len(comboTable)-1]
	}
	return comboTable[idx]
}
