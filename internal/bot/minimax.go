package bot

import (
	"context"
	"math"

	"github.com/jaminalder/reversi/internal/domain"
)

const (
	DefaultDepth = 4

	scoreWin  = 1000000
	scoreLoss = -1000000

	weightCorner   = 100
	weightXSquare  = -25
	weightCSquare  = -10
	weightEdge     = 10
	weightInterior = 1
	weightMobility = 5
)

// Minimax searches with alpha-beta pruning. With more than two players it
// assumes every opponent plays against p.
type Minimax struct {
	Depth int
}

// NewMinimax returns a Minimax strategy; depth <= 0 selects DefaultDepth.
func NewMinimax(depth int) *Minimax {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Minimax{Depth: depth}
}

func (m *Minimax) ChooseMove(ctx context.Context, g *domain.Game, p domain.Player, moves domain.MoveSet) (domain.Pos, error) {
	if len(moves) == 0 {
		return domain.Pos{}, ErrNoLegalMove
	}
	positions := moves.Positions()
	best := positions[0]
	bestScore := math.MinInt
	alpha, beta := math.MinInt, math.MaxInt
	for _, pos := range positions {
		child, err := g.Simulate(pos)
		if err != nil {
			return domain.Pos{}, err
		}
		score, err := m.search(ctx, child, p, m.Depth-1, alpha, beta)
		if err != nil {
			return domain.Pos{}, err
		}
		if score > bestScore {
			best, bestScore = pos, score
		}
		alpha = max(alpha, bestScore)
	}
	return best, nil
}

func (m *Minimax) search(ctx context.Context, g *domain.Game, p domain.Player, depth, alpha, beta int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if depth <= 0 || g.Over() {
		return evaluate(g, p, depth), nil
	}
	maximizing := g.Turn() == p
	best := math.MaxInt
	if maximizing {
		best = math.MinInt
	}
	for _, pos := range g.LegalMoves().Positions() {
		child, err := g.Simulate(pos)
		if err != nil {
			return 0, err
		}
		score, err := m.search(ctx, child, p, depth-1, alpha, beta)
		if err != nil {
			return 0, err
		}
		if maximizing {
			best = max(best, score)
			alpha = max(alpha, score)
		} else {
			best = min(best, score)
			beta = min(beta, score)
		}
		if beta <= alpha {
			break
		}
	}
	return best, nil
}

// evaluate scores g from p's point of view. Finished games are scored by
// result, preferring quicker wins and slower losses.
func evaluate(g *domain.Game, p domain.Player, depth int) int {
	if out, over := g.Outcome(); over {
		for _, w := range out.Winners {
			if w == p {
				if len(out.Winners) > 1 {
					return 0
				}
				return scoreWin + depth
			}
		}
		return scoreLoss - depth
	}

	score := 0
	for r, row := range g.Board().Grid() {
		for c, owner := range row {
			if owner == domain.Empty {
				continue
			}
			w := squareWeight(g.Rows(), g.Cols(), r, c)
			if owner == p {
				score += w
			} else {
				score -= w
			}
		}
	}

	own := len(g.LegalMovesFor(p))
	other := 0
	for q := 1; q <= g.Players(); q++ {
		if domain.Player(q) != p {
			other = max(other, len(g.LegalMovesFor(domain.Player(q))))
		}
	}
	return score + weightMobility*(own-other)
}

// squareWeight rates a cell: corners are stable, cells next to a corner hand
// it to the opponent, edges are harder to flip than the interior.
func squareWeight(rows, cols, r, c int) int {
	edgeR := r == 0 || r == rows-1
	edgeC := c == 0 || c == cols-1
	nearR := r == 1 || r == rows-2
	nearC := c == 1 || c == cols-2
	switch {
	case edgeR && edgeC:
		return weightCorner
	case nearR && nearC:
		return weightXSquare
	case (edgeR && nearC) || (nearR && edgeC):
		return weightCSquare
	case edgeR || edgeC:
		return weightEdge
	}
	return weightInterior
}
