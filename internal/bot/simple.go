package bot

import (
	"context"
	"math/rand"
	"sync"

	"github.com/jaminalder/reversi/internal/domain"
)

// Greedy takes the move flipping the most discs. Ties go to the lowest row,
// then the lowest column.
var Greedy Strategy = StrategyFunc(greedy)

func greedy(_ context.Context, _ *domain.Game, _ domain.Player, moves domain.MoveSet) (domain.Pos, error) {
	if len(moves) == 0 {
		return domain.Pos{}, ErrNoLegalMove
	}
	positions := moves.Positions()
	best := positions[0]
	for _, pos := range positions[1:] {
		if len(moves[pos]) > len(moves[best]) {
			best = pos
		}
	}
	return best, nil
}

// Random picks uniformly among the legal moves.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Random strategy with a reproducible seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) ChooseMove(_ context.Context, _ *domain.Game, _ domain.Player, moves domain.MoveSet) (domain.Pos, error) {
	if len(moves) == 0 {
		return domain.Pos{}, ErrNoLegalMove
	}
	positions := moves.Positions()
	r.mu.Lock()
	i := r.rng.Intn(len(positions))
	r.mu.Unlock()
	return positions[i], nil
}

// Lookahead looks two plies ahead: it takes a move that wins outright,
// otherwise the move whose replies leave p with the most discs on average.
var Lookahead Strategy = StrategyFunc(lookahead)

func lookahead(ctx context.Context, g *domain.Game, p domain.Player, moves domain.MoveSet) (domain.Pos, error) {
	if len(moves) == 0 {
		return domain.Pos{}, ErrNoLegalMove
	}
	positions := moves.Positions()
	var (
		best    domain.Pos
		bestAvg = -1.0
	)
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return domain.Pos{}, err
		}
		sim, err := g.Simulate(pos)
		if err != nil {
			return domain.Pos{}, err
		}
		if out, over := sim.Outcome(); over {
			if len(out.Winners) == 1 && out.Winners[0] == p {
				return pos, nil
			}
			continue
		}
		replies := sim.LegalMoves()
		total := 0
		for reply := range replies {
			next, err := sim.Simulate(reply)
			if err != nil {
				return domain.Pos{}, err
			}
			total += next.Count(p)
		}
		if avg := float64(total) / float64(len(replies)); avg > bestAvg {
			best, bestAvg = pos, avg
		}
	}
	if bestAvg < 0 {
		return positions[0], nil
	}
	return best, nil
}
