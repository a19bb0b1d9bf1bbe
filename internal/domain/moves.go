package domain

import "sort"

// directions lists the 8 rays scanned from a candidate cell.
var directions = [8]Pos{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// MoveSet maps each legal cell to the cells it would flip.
type MoveSet map[Pos][]Pos

// Contains reports whether pos is a legal move.
func (s MoveSet) Contains(pos Pos) bool {
	_, ok := s[pos]
	return ok
}

// Positions returns the legal cells ordered by row, then column.
func (s MoveSet) Positions() []Pos {
	out := make([]Pos, 0, len(s))
	for pos := range s {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Less orders positions by row, then column.
func Less(a, b Pos) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// LegalMoves returns every empty cell where p captures at least one disc.
// The board is not modified.
func LegalMoves(b *Board, p Player) MoveSet {
	moves := make(MoveSet)
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			pos := Pos{r, c}
			if flips := Captures(b, p, pos); len(flips) > 0 {
				moves[pos] = flips
			}
		}
	}
	return moves
}

// Captures returns the cells p would flip by playing pos, or nil when pos is
// occupied, off the board, or captures nothing.
func Captures(b *Board, p Player, pos Pos) []Pos {
	if !b.Contains(pos) || b.at(pos) != Empty {
		return nil
	}
	var flips []Pos
	for _, d := range directions {
		flips = appendRay(flips, b, p, pos, d)
	}
	return flips
}

// appendRay appends the run of opposing cells bracketed by p along d.
func appendRay(flips []Pos, b *Board, p Player, from, d Pos) []Pos {
	cur := Pos{from.Row + d.Row, from.Col + d.Col}
	n := 0
	for b.Contains(cur) {
		owner := b.at(cur)
		if owner == Empty {
			return flips
		}
		if owner == p {
			if n == 0 {
				return flips
			}
			for i := 1; i <= n; i++ {
				flips = append(flips, Pos{from.Row + d.Row*i, from.Col + d.Col*i})
			}
			return flips
		}
		n++
		cur.Row += d.Row
		cur.Col += d.Col
	}
	return flips
}

// centre returns the bounds [r0,r1) x [c0,c1) of the players x players
// region in the middle of the board.
func centre(b *Board, players int) (r0, r1, c0, c1 int) {
	r0 = (b.rows - players) / 2
	c0 = (b.cols - players) / 2
	return r0, r0 + players, c0, c0 + players
}

func inCentre(pos Pos, r0, r1, c0, c1 int) bool {
	return pos.Row >= r0 && pos.Row < r1 && pos.Col >= c0 && pos.Col < c1
}

// openingMoves reports whether the board is still in the opening phase and,
// if so, returns the empty centre cells. The opening lasts while the centre
// has a hole and no disc has been placed outside it.
func openingMoves(b *Board, players int) (MoveSet, bool) {
	r0, r1, c0, c1 := centre(b, players)
	moves := make(MoveSet)
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			pos := Pos{r, c}
			owner := b.at(pos)
			if !inCentre(pos, r0, r1, c0, c1) {
				if owner != Empty {
					return nil, false
				}
				continue
			}
			if owner == Empty {
				moves[pos] = nil
			}
		}
	}
	if len(moves) == 0 {
		return nil, false
	}
	return moves, true
}
