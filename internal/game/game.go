// Package game defines the boundary between the room server and a rules
// engine. Rooms only see these types; the engine owns board semantics.
package game

// Command is one step of a player's move.
type Command string

const (
	MoveLeft   Command = "move_left"
	MoveRight  Command = "move_right"
	SonicLeft  Command = "sonic_left"
	SonicRight Command = "sonic_right"
	Drop       Command = "drop"
	SonicDrop  Command = "sonic_drop"
	RotateCW   Command = "rotate_cw"
	RotateCCW  Command = "rotate_ccw"
	Hold       Command = "hold"
	None       Command = "none"

	// HardDrop locks the active piece. The server appends it to every move.
	HardDrop Command = "hard_drop"
)

type EventType string

const (
	EventPiecePlaced   EventType = "piece_placed"
	EventClear         EventType = "clear"
	EventAttack        EventType = "attack"
	EventGarbageTanked EventType = "damage_tanked"
	EventGameOver      EventType = "game_over"
)

// Event reports something that happened while applying commands.
type Event struct {
	Type         EventType `json:"type"`
	Piece        string    `json:"piece,omitempty"`
	Lines        int       `json:"lines,omitempty"`
	TSpin        bool      `json:"tspin,omitempty"`
	BackToBack   bool      `json:"b2b,omitempty"`
	Combo        int       `json:"combo,omitempty"`
	PerfectClear bool      `json:"perfectClear,omitempty"`
}

// Modifiers carry the room's pace-dependent knobs into a move.
type Modifiers struct {
	GarbageMultiplier float64
}

// Garbage is a batch of incoming lines sharing one hole column.
type Garbage struct {
	Lines int `json:"lines"`
	Hole  int `json:"hole"`
}

// State is an engine-owned board state. Rooms only ask whether it is dead.
type State interface {
	Dead() bool
}

// Engine is a pure rules engine. Implementations must not mutate the state
// they are given.
type Engine interface {
	NewGameState() State
	Apply(state State, commands []Command, mods Modifiers) (State, []Event)
	PublicView(state State) any
	GarbageFor(lines int) Garbage
	QueueGarbage(state State, garbage Garbage) State
	Forfeit(state State) State
}
