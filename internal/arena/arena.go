// Package arena plays bots against each other through an app.Service and
// tallies the results.
package arena

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/jaminalder/reversi/internal/app"
	"github.com/jaminalder/reversi/internal/bot"
	"github.com/jaminalder/reversi/internal/domain"
)

var ErrSeats = errors.New("one strategy per player required")

// Setup describes the board every game of a run starts from.
type Setup struct {
	Rows, Cols, Players int
	Variant             domain.Variant
}

// Result tallies a run. A game shared by several top scorers counts as a
// tie and credits nobody.
type Result struct {
	Games int
	// Wins[i] counts outright wins of player i+1.
	Wins []int
	Ties int
}

func (r Result) percent(n int) float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(n) / float64(r.Games) * 100
}

// WinRate is the share of games player p won outright, in percent.
func (r Result) WinRate(p domain.Player) float64 {
	if p == domain.Empty || int(p) > len(r.Wins) {
		return 0
	}
	return r.percent(r.Wins[p-1])
}

// TieRate is the share of tied games, in percent.
func (r Result) TieRate() float64 { return r.percent(r.Ties) }

// Report prints one line per player followed by the tie rate.
func (r Result) Report(w io.Writer) error {
	for i := range r.Wins {
		if _, err := fmt.Fprintf(w, "Player %d wins: %.2f%%\n", i+1, r.WinRate(domain.Player(i+1))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Ties: %.2f%%\n", r.TieRate())
	return err
}

func (r *Result) add(out domain.Outcome) {
	r.Games++
	if out.Tie() {
		r.Ties++
		return
	}
	r.Wins[out.Winners[0]-1]++
}

// Arena runs games on svc. Workers > 1 plays that many games at once.
type Arena struct {
	svc     *app.Service
	log     *zap.Logger
	Workers int
}

func New(svc *app.Service, log *zap.Logger) *Arena {
	if log == nil {
		log = zap.NewNop()
	}
	return &Arena{svc: svc, log: log, Workers: 1}
}

// Run plays games matches with seats[i] moving for player i+1. On error the
// games finished so far are returned along with it.
func (a *Arena) Run(ctx context.Context, games int, setup Setup, seats []bot.Strategy) (Result, error) {
	res := Result{Wins: make([]int, setup.Players)}
	if len(seats) != setup.Players {
		return res, fmt.Errorf("%w: %d strategies for %d players", ErrSeats, len(seats), setup.Players)
	}
	workers := min(max(a.Workers, 1), max(games, 1))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobs := make(chan int)
	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				out, err := a.play(ctx, n, setup, seats)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
				} else {
					res.add(out)
				}
				mu.Unlock()
			}
		}()
	}
feed:
	for n := 0; n < games; n++ {
		select {
		case jobs <- n:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr == nil {
		firstErr = ctx.Err()
	}
	a.log.Info("arena run finished",
		zap.Int("games", res.Games),
		zap.Ints("wins", res.Wins),
		zap.Int("ties", res.Ties),
		zap.Error(firstErr),
	)
	return res, firstErr
}

func seatID(p domain.Player) string { return fmt.Sprintf("bot-%d", p) }

// play runs one game to completion and removes it from the service.
func (a *Arena) play(ctx context.Context, n int, setup Setup, seats []bot.Strategy) (domain.Outcome, error) {
	gs, err := a.svc.CreateGame(setup.Rows, setup.Cols, setup.Players, domain.WithVariant(setup.Variant))
	if err != nil {
		return domain.Outcome{}, err
	}
	defer a.svc.Remove(gs.ID)
	for i := range seats {
		if _, _, err := a.svc.Join(gs.ID, seatID(domain.Player(i+1))); err != nil {
			return domain.Outcome{}, err
		}
	}

	for !gs.Game.Over() {
		turn := gs.Game.Turn()
		gs, _, err = a.svc.PlayBot(ctx, gs.ID, seatID(turn), seats[turn-1])
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("game %d, player %d: %w", n+1, turn, err)
		}
	}
	out, _ := gs.Game.Outcome()
	a.log.Debug("arena game finished",
		zap.Int("game", n+1),
		zap.Any("winners", out.Winners),
		zap.Ints("counts", out.Counts),
	)
	return out, nil
}

// Close releases every strategy that holds resources, such as Lua states.
func Close(seats []bot.Strategy) error {
	var errs []error
	seen := make(map[io.Closer]bool)
	for _, s := range seats {
		c, ok := s.(io.Closer)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
