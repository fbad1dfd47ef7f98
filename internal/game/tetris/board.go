package tetris

const (
	BoardWidth  = 10
	BoardHeight = 24
	// Rows above the visible field where pieces spawn.
	HiddenRows = 4
)

// Block is one board cell: empty, a piece letter or garbage.
type Block string

const (
	Empty        Block = ""
	GarbageBlock Block = "G"
)

type Row [BoardWidth]Block

// Board rows run top to bottom.
type Board [BoardHeight]Row

func (b *Board) occupied(x, y int) bool {
	if x < 0 || x >= BoardWidth || y >= BoardHeight {
		return true
	}
	if y < 0 {
		return false
	}
	return b[y][x] != Empty
}

func (b *Board) fits(p Piece) bool {
	for _, c := range p.cells() {
		if b.occupied(c.x, c.y) {
			return false
		}
	}
	return true
}

func (r Row) full() bool {
	for _, cell := range r {
		if cell == Empty {
			return false
		}
	}
	return true
}

func (r Row) empty() bool {
	for _, cell := range r {
		if cell != Empty {
			return false
		}
	}
	return true
}

func (b *Board) empty() bool {
	for _, row := range b {
		if !row.empty() {
			return false
		}
	}
	return true
}

// clearLines removes full rows and returns how many were removed.
func (b *Board) clearLines() int {
	cleared := 0
	write := BoardHeight - 1
	for read := BoardHeight - 1; read >= 0; read-- {
		if b[read].full() {
			cleared++
			continue
		}
		b[write] = b[read]
		write--
	}
	for ; write >= 0; write-- {
		b[write] = Row{}
	}
	return cleared
}

// pushGarbage shifts the board up one row and fills the bottom row except
// for hole. It reports false if a block was pushed off the top.
func (b *Board) pushGarbage(hole int) bool {
	overflow := !b[0].empty()
	for y := 0; y < BoardHeight-1; y++ {
		b[y] = b[y+1]
	}
	var row Row
	for x := range row {
		if x != hole {
			row[x] = GarbageBlock
		}
	}
	b[BoardHeight-1] = row
	return !overflow
}
