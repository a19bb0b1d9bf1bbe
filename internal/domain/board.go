package domain

import "fmt"

// Player identifies the owner of a cell. Empty marks an unoccupied cell and
// players are numbered from 1.
type Player uint8

const Empty Player = 0

// MaxPlayers is the largest player count a Player value can hold.
const MaxPlayers = 255

func (p Player) String() string {
	if p == Empty {
		return "empty"
	}
	return fmt.Sprintf("player %d", uint8(p))
}

// Pos is a (row, column) coordinate on the board.
type Pos struct {
	Row int
	Col int
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// Board is a fixed-size grid stored row-major.
type Board struct {
	rows  int
	cols  int
	cells []Player
}

// NewBoard returns an empty rows x cols board.
func NewBoard(rows, cols int) *Board {
	return &Board{rows: rows, cols: cols, cells: make([]Player, rows*cols)}
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Contains reports whether pos lies on the board.
func (b *Board) Contains(pos Pos) bool {
	return pos.Row >= 0 && pos.Row < b.rows && pos.Col >= 0 && pos.Col < b.cols
}

// Get returns the owner of the cell at pos.
func (b *Board) Get(pos Pos) (Player, error) {
	if !b.Contains(pos) {
		return Empty, fmt.Errorf("%w: %v on %dx%d board", ErrOutOfBounds, pos, b.rows, b.cols)
	}
	return b.at(pos), nil
}

func (b *Board) at(pos Pos) Player { return b.cells[pos.Row*b.cols+pos.Col] }

// set is only called by the game after validating pos.
func (b *Board) set(pos Pos, p Player) { b.cells[pos.Row*b.cols+pos.Col] = p }

// Count returns the number of cells owned by p.
func (b *Board) Count(p Player) int {
	n := 0
	for _, c := range b.cells {
		if c == p {
			n++
		}
	}
	return n
}

// Full reports whether no empty cell is left.
func (b *Board) Full() bool {
	for _, c := range b.cells {
		if c == Empty {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the board.
func (b *Board) Clone() *Board {
	cells := make([]Player, len(b.cells))
	copy(cells, b.cells)
	return &Board{rows: b.rows, cols: b.cols, cells: cells}
}

// Equal reports whether both boards have the same size and contents.
func (b *Board) Equal(other *Board) bool {
	if other == nil || b.rows != other.rows || b.cols != other.cols {
		return false
	}
	for i, c := range b.cells {
		if other.cells[i] != c {
			return false
		}
	}
	return true
}

// Grid returns a copy of the board as a slice of rows.
func (b *Board) Grid() [][]Player {
	grid := make([][]Player, b.rows)
	for r := range grid {
		grid[r] = make([]Player, b.cols)
		copy(grid[r], b.cells[r*b.cols:(r+1)*b.cols])
	}
	return grid
}

// String renders the board one row per line, '.' for empty cells.
func (b *Board) String() string {
	buf := make([]byte, 0, b.rows*(b.cols+1))
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			p := b.at(Pos{r, c})
			switch {
			case p == Empty:
				buf = append(buf, '.')
			case p < 10:
				buf = append(buf, byte('0'+p))
			default:
				buf = append(buf, '#')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}

// boardFromGrid copies grid into a new board after checking its shape.
func boardFromGrid(grid [][]Player, rows, cols, players int) (*Board, error) {
	if len(grid) != rows {
		return nil, fmt.Errorf("%w: layout has %d rows, want %d", ErrInvalidSetup, len(grid), rows)
	}
	b := NewBoard(rows, cols)
	for r, row := range grid {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: layout row %d has %d cells, want %d", ErrInvalidSetup, r, len(row), cols)
		}
		for c, p := range row {
			if int(p) > players {
				return nil, fmt.Errorf("%w: layout cell (%d,%d) holds %v with %d players", ErrInvalidSetup, r, c, p, players)
			}
			b.set(Pos{r, c}, p)
		}
	}
	return b, nil
}
