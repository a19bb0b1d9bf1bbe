package domain

import (
	"errors"
	"fmt"
)

// Errors returned by domain operations.
var (
	ErrOutOfBounds  = errors.New("out of bounds")
	ErrIllegalMove  = errors.New("illegal move")
	ErrGameOver     = errors.New("game over")
	ErrInvalidSetup = errors.New("invalid game setup")
)

// Variant selects the starting layout.
type Variant uint8

const (
	// Default picks Othello for two players and FreeOpening otherwise.
	Default Variant = iota
	// Othello seeds the four centre discs.
	Othello
	// FreeOpening starts empty; players first fill the centre region.
	FreeOpening
)

func (v Variant) String() string {
	switch v {
	case Othello:
		return "othello"
	case FreeOpening:
		return "free"
	default:
		return "default"
	}
}

// ParseVariant maps a variant name back to its value.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "", "default":
		return Default, nil
	case "othello":
		return Othello, nil
	case "free", "free-opening", "non-othello":
		return FreeOpening, nil
	}
	return Default, fmt.Errorf("%w: unknown variant %q", ErrInvalidSetup, s)
}

// Outcome describes a finished game.
type Outcome struct {
	// Winners holds every player sharing the highest disc count, ascending.
	Winners []Player
	// Counts[i] is the disc count of player i+1.
	Counts []int
}

// Tie reports whether more than one player shares the win.
func (o Outcome) Tie() bool { return len(o.Winners) > 1 }

// Game holds the state of a Reversi match between two or more players.
type Game struct {
	board   *Board
	players int
	variant Variant
	turn    Player
	over    bool
	outcome Outcome
	moves   int
}

type setup struct {
	variant Variant
	layout  [][]Player
	turn    Player
}

// Option customises New.
type Option func(*setup)

// WithVariant selects the starting layout.
func WithVariant(v Variant) Option { return func(s *setup) { s.variant = v } }

// WithLayout starts from the given grid instead of the variant's seed.
func WithLayout(grid [][]Player) Option { return func(s *setup) { s.layout = grid } }

// WithTurn sets the player to move first.
func WithTurn(p Player) Option { return func(s *setup) { s.turn = p } }

// New returns a game on a rows x cols board for the given number of players.
// Every dimension must be at least 3 and at least players, with the same
// parity as players.
func New(rows, cols, players int, opts ...Option) (*Game, error) {
	st := setup{turn: 1}
	for _, opt := range opts {
		opt(&st)
	}
	if players < 2 || players > MaxPlayers {
		return nil, fmt.Errorf("%w: %d players", ErrInvalidSetup, players)
	}
	for _, n := range [2]int{rows, cols} {
		if n < 3 || n < players {
			return nil, fmt.Errorf("%w: %dx%d board too small for %d players", ErrInvalidSetup, rows, cols, players)
		}
		if n%2 != players%2 {
			return nil, fmt.Errorf("%w: parity of %dx%d board does not match %d players", ErrInvalidSetup, rows, cols, players)
		}
	}
	if st.variant == Default {
		st.variant = FreeOpening
		if players == 2 {
			st.variant = Othello
		}
	}
	if st.variant == Othello && players != 2 {
		return nil, fmt.Errorf("%w: othello needs 2 players, got %d", ErrInvalidSetup, players)
	}
	if st.turn == Empty || int(st.turn) > players {
		return nil, fmt.Errorf("%w: turn %d with %d players", ErrInvalidSetup, st.turn, players)
	}

	g := &Game{players: players, variant: st.variant, turn: st.turn}
	if st.layout != nil {
		b, err := boardFromGrid(st.layout, rows, cols, players)
		if err != nil {
			return nil, err
		}
		g.board = b
	} else {
		g.board = NewBoard(rows, cols)
		if st.variant == Othello {
			r, c := rows/2, cols/2
			g.board.set(Pos{r - 1, c - 1}, 2)
			g.board.set(Pos{r, c}, 2)
			g.board.set(Pos{r - 1, c}, 1)
			g.board.set(Pos{r, c - 1}, 1)
		}
	}
	if len(g.LegalMovesFor(g.turn)) == 0 {
		g.advance()
	}
	return g, nil
}

func (g *Game) Rows() int { return g.board.rows }
func (g *Game) Cols() int { return g.board.cols }
func (g *Game) Players() int { return g.players }
func (g *Game) Variant() Variant { return g.variant }
func (g *Game) Over() bool { return g.over }
func (g *Game) Moves() int { return g.moves }
func (g *Game) Count(p Player) int { return g.board.Count(p) }

// Turn returns the player to move. It carries no meaning once the game is over.
func (g *Game) Turn() Player { return g.turn }

// Board returns a copy of the current board.
func (g *Game) Board() *Board { return g.board.Clone() }

// CellState returns the owner of the cell at pos.
func (g *Game) CellState(pos Pos) (Player, error) { return g.board.Get(pos) }

// Outcome returns the result once the game is over.
func (g *Game) Outcome() (Outcome, bool) {
	if !g.over {
		return Outcome{}, false
	}
	out := Outcome{
		Winners: append([]Player(nil), g.outcome.Winners...),
		Counts:  append([]int(nil), g.outcome.Counts...),
	}
	return out, true
}

// LegalMoves returns the moves available to the player whose turn it is.
func (g *Game) LegalMoves() MoveSet { return g.LegalMovesFor(g.turn) }

// LegalMovesFor returns the moves available to p on the current board.
func (g *Game) LegalMovesFor(p Player) MoveSet {
	if p == Empty || int(p) > g.players {
		return MoveSet{}
	}
	if moves, ok := openingMoves(g.board, g.players); ok {
		return moves
	}
	return LegalMoves(g.board, p)
}

// ApplyMove places a disc for the current player at pos, flips the captured
// cells and passes the turn to the next player able to move. On error the
// board is left untouched.
func (g *Game) ApplyMove(pos Pos) error {
	if g.over {
		return ErrGameOver
	}
	if !g.board.Contains(pos) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, pos)
	}
	moves := g.LegalMovesFor(g.turn)
	flips, ok := moves[pos]
	if !ok {
		return fmt.Errorf("%w: %v for %v", ErrIllegalMove, pos, g.turn)
	}

	g.board.set(pos, g.turn)
	for _, f := range flips {
		g.board.set(f, g.turn)
	}
	g.moves++
	g.advance()
	return nil
}

// advance hands the turn to the next player in rotation with a legal move,
// skipping those without one. When nobody can move the game is over.
func (g *Game) advance() {
	if g.board.Full() {
		g.finish()
		return
	}
	for i := 1; i <= g.players; i++ {
		next := Player((int(g.turn)-1+i)%g.players + 1)
		if len(g.LegalMovesFor(next)) > 0 {
			g.turn = next
			return
		}
	}
	g.finish()
}

func (g *Game) finish() {
	g.over = true
	counts := make([]int, g.players)
	best := 0
	for i := range counts {
		counts[i] = g.board.Count(Player(i + 1))
		if counts[i] > best {
			best = counts[i]
		}
	}
	var winners []Player
	for i, n := range counts {
		if n == best {
			winners = append(winners, Player(i+1))
		}
	}
	g.outcome = Outcome{Winners: winners, Counts: counts}
}

// Clone returns an independent copy of the game.
func (g *Game) Clone() *Game {
	cp := *g
	cp.board = g.board.Clone()
	cp.outcome = Outcome{
		Winners: append([]Player(nil), g.outcome.Winners...),
		Counts:  append([]int(nil), g.outcome.Counts...),
	}
	return &cp
}

// Simulate applies moves in order to a copy of the game and returns the copy.
// Players without a legal move are skipped as in ApplyMove.
func (g *Game) Simulate(moves ...Pos) (*Game, error) {
	sim := g.Clone()
	for i, pos := range moves {
		if err := sim.ApplyMove(pos); err != nil {
			return nil, fmt.Errorf("simulated move %d: %w", i, err)
		}
	}
	return sim, nil
}
