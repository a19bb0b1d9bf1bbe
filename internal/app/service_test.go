package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/jaminalder/reversi/internal/bot"
	"github.com/jaminalder/reversi/internal/domain"
)

// minimal renderer for tests: encode moves count as bytes
func testRenderer(gs GameState) []byte { return []byte(fmt.Sprintf("moves=%d", gs.Game.Moves())) }

func pos(r, c int) domain.Pos { return domain.Pos{Row: r, Col: c} }

// skipLayout leaves player 2 without moves, so player 1 moves twice in a row
// and wins with (0,2) then (3,1).
func skipLayout() [][]domain.Player {
	return [][]domain.Player{
		{1, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 2, 1},
	}
}

func seated(t *testing.T, s *Service, rows, cols, players int, opts ...domain.Option) *GameState {
	t.Helper()
	gs, err := s.CreateGame(rows, cols, players, opts...)
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	for i := 1; i <= players; i++ {
		if _, _, err := s.Join(gs.ID, fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("Join p%d: %v", i, err)
		}
	}
	return gs
}

func TestCreateAndGet(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs, err := s.CreateGame(8, 8, 2)
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if gs.ID == "" {
		t.Fatalf("expected non-empty game ID")
	}
	if gs.Game.Turn() != 1 || gs.Game.Variant() != domain.Othello || gs.Game.Count(1) != 2 {
		t.Fatalf("expected seeded othello board with player 1 to move")
	}
	if gs.Created.IsZero() || gs.Updated.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	got, ok := s.Get(gs.ID)
	if !ok || got.ID != gs.ID {
		t.Fatalf("Get should find created game")
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("Get should miss unknown game")
	}
}

func TestCreateRejectsInvalidSetup(t *testing.T) {
	s := NewService()
	if _, err := s.CreateGame(7, 8, 2); !errors.Is(err, domain.ErrInvalidSetup) {
		t.Fatalf("expected ErrInvalidSetup, got %v", err)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 8, 8, 2)
	if err := gs.Game.ApplyMove(pos(2, 3)); err != nil {
		t.Fatalf("apply on copy: %v", err)
	}
	got, _ := s.Get(gs.ID)
	if got.Game.Moves() != 0 {
		t.Fatalf("mutating a returned state should not touch the service copy")
	}
}

func TestJoinSeatsAndRejoin(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs, _ := s.CreateGame(5, 5, 3)

	for i, id := range []string{"p1", "p2", "p3"} {
		seat, _, err := s.Join(gs.ID, id)
		if err != nil || seat != domain.Player(i+1) {
			t.Fatalf("%s should claim seat %d, got %v, err=%v", id, i+1, seat, err)
		}
	}
	seat, _, err := s.Join(gs.ID, "p1")
	if err != nil || seat != 1 {
		t.Fatalf("p1 rejoin should keep seat 1, got %v, err=%v", seat, err)
	}
	seat, st, err := s.Join(gs.ID, "p4")
	if err != nil || seat != domain.Empty {
		t.Fatalf("p4 should spectate (Empty), got %v, err=%v", seat, err)
	}
	if !reflect.DeepEqual(st.Seats, []string{"p1", "p2", "p3"}) {
		t.Fatalf("unexpected seats %v", st.Seats)
	}
	if _, _, err := s.Join("missing", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlayEnforcesTurnAndSpectatorBlocked(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs := seated(t, s, 8, 8, 2)
	s.Join(gs.ID, "p3") // spectator

	// player 2 cannot play first
	if _, err := s.Play(gs.ID, "p2", pos(2, 2)); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	// spectator cannot play
	if _, err := s.Play(gs.ID, "p3", pos(2, 3)); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("expected ErrNotAPlayer, got %v", err)
	}
	if _, err := s.Play("missing", "p1", pos(2, 3)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// player 1 plays
	st, err := s.Play(gs.ID, "p1", pos(2, 3))
	if err != nil {
		t.Fatalf("p1 play failed: %v", err)
	}
	if owner, _ := st.Game.CellState(pos(3, 3)); owner != 1 || st.Game.Turn() != 2 || st.Game.Moves() != 1 {
		t.Fatalf("unexpected state after p1 move: turn=%v moves=%d (3,3)=%v", st.Game.Turn(), st.Game.Moves(), owner)
	}
	// player 1 cannot play again
	if _, err := s.Play(gs.ID, "p1", pos(2, 2)); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn for p1 again, got %v", err)
	}
}

func TestPlayRejectsIllegalMove(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 8, 8, 2)
	if _, err := s.Play(gs.ID, "p1", pos(0, 0)); !errors.Is(err, domain.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if _, err := s.Play(gs.ID, "p1", pos(8, 0)); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	got, _ := s.Get(gs.ID)
	if got.Game.Moves() != 0 || got.Game.Turn() != 1 {
		t.Fatalf("rejected moves should leave the game untouched")
	}
	// the lock must have been released on the error path
	if _, err := s.Play(gs.ID, "p1", pos(2, 3)); err != nil {
		t.Fatalf("play after rejection: %v", err)
	}
}

func TestPlayAfterGameOver(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 4, 4, 2, domain.WithLayout(skipLayout()))
	if _, err := s.Play(gs.ID, "p1", pos(0, 2)); err != nil {
		t.Fatalf("first move: %v", err)
	}
	st, err := s.Play(gs.ID, "p1", pos(3, 1))
	if err != nil {
		t.Fatalf("second move: %v", err)
	}
	out, over := st.Game.Outcome()
	if !over || !reflect.DeepEqual(out.Winners, []domain.Player{1}) {
		t.Fatalf("expected player 1 to win, got %+v over=%v", out, over)
	}
	if _, err := s.Play(gs.ID, "p2", pos(1, 1)); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestPlayBot(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 8, 8, 2)
	st, chosen, err := s.PlayBot(context.Background(), gs.ID, "p1", bot.Greedy)
	if err != nil {
		t.Fatalf("PlayBot: %v", err)
	}
	if chosen != pos(2, 3) || st.Game.Moves() != 1 || st.Game.Turn() != 2 {
		t.Fatalf("unexpected bot move %v, moves=%d turn=%v", chosen, st.Game.Moves(), st.Game.Turn())
	}
	if _, _, err := s.PlayBot(context.Background(), gs.ID, "p1", bot.Greedy); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
}

func TestPlayBotRejectsIllegalChoice(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 8, 8, 2)
	cheat := bot.StrategyFunc(func(context.Context, *domain.Game, domain.Player, domain.MoveSet) (domain.Pos, error) {
		return pos(0, 0), nil
	})
	if _, _, err := s.PlayBot(context.Background(), gs.ID, "p1", cheat); !errors.Is(err, domain.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestPlayBotDiscardsStaleChoice(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 4, 4, 2, domain.WithLayout(skipLayout()))
	// p1 moves through the service while its bot is still thinking; p1 keeps
	// the turn because p2 has nothing to play.
	racer := bot.StrategyFunc(func(_ context.Context, _ *domain.Game, _ domain.Player, moves domain.MoveSet) (domain.Pos, error) {
		if _, err := s.Play(gs.ID, "p1", pos(0, 2)); err != nil {
			return domain.Pos{}, err
		}
		return pos(3, 1), nil
	})
	if _, _, err := s.PlayBot(context.Background(), gs.ID, "p1", racer); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	got, _ := s.Get(gs.ID)
	if got.Game.Moves() != 1 || got.Game.Over() {
		t.Fatalf("stale choice should not be applied, moves=%d", got.Game.Moves())
	}
}

func TestPlayBotCancelled(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 8, 8, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.PlayBot(ctx, gs.ID, "p1", bot.NewMinimax(6)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	got, _ := s.Get(gs.ID)
	if got.Game.Moves() != 0 {
		t.Fatalf("cancelled search should leave the game untouched")
	}
}

func TestSubscribeAndBroadcast(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs := seated(t, s, 8, 8, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	ch, unsub, err := s.Subscribe(ctx, gs.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	// Trigger an update: player 1 plays
	if _, err := s.Play(gs.ID, "p1", pos(2, 3)); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed unexpectedly")
		}
		if string(b) != "moves=1" {
			t.Fatalf("unexpected broadcast payload: %q", string(b))
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}
}

func TestSubscribeUnknownGame(t *testing.T) {
	s := NewService()
	if _, _, err := s.Subscribe(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDropSlowSubscriber(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs := seated(t, s, 8, 8, 2)

	// Slow subscriber: never read until the end
	ctxSlow, cancelSlow := context.WithCancel(context.Background())
	defer cancelSlow()
	slowCh, _, _ := s.Subscribe(ctxSlow, gs.ID)

	ctxFast, cancelFast := context.WithTimeout(context.Background(), time.Second*2)
	defer cancelFast()
	fastCh, unsubFast, _ := s.Subscribe(ctxFast, gs.ID)
	defer unsubFast()

	for i, mv := range []struct {
		player string
		at     domain.Pos
	}{{"p1", pos(2, 3)}, {"p2", pos(2, 2)}} {
		if _, err := s.Play(gs.ID, mv.player, mv.at); err != nil {
			t.Fatalf("play%d: %v", i+1, err)
		}
		select {
		case b := <-fastCh:
			if want := fmt.Sprintf("moves=%d", i+1); string(b) != want {
				t.Fatalf("fast subscriber got %q, want %q", b, want)
			}
		case <-ctxFast.Done():
			t.Fatalf("fast subscriber did not receive updates in time")
		}
	}

	// the slow subscriber kept its first payload and was closed on the second
	if b, ok := <-slowCh; !ok || string(b) != "moves=1" {
		t.Fatalf("expected buffered first payload, got %q ok=%v", b, ok)
	}
	if _, ok := <-slowCh; ok {
		t.Fatalf("expected slow subscriber to be closed")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 8, 8, 2)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _, _ := s.Subscribe(ctx, gs.ID)
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelling ctx did not close the subscription")
	}
}

func TestRemove(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 8, 8, 2)
	ch, unsub, _ := s.Subscribe(context.Background(), gs.ID)
	if !s.Remove(gs.ID) {
		t.Fatalf("expected Remove to report the game")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected subscriber to be closed")
	}
	unsub() // closing twice must be safe
	if _, ok := s.Get(gs.ID); ok {
		t.Fatalf("removed game still present")
	}
	if s.Remove(gs.ID) {
		t.Fatalf("second Remove should report false")
	}
}

func TestSubscriptionWatcherExits(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs := seated(t, s, 8, 8, 2)
	before := runtime.NumGoroutine()

	var unsubs []func()
	for i := 0; i < 20; i++ {
		_, unsub, err := s.Subscribe(context.Background(), gs.ID)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		unsubs = append(unsubs, unsub)
	}
	// half leave on their own, the rest go with the game
	for _, unsub := range unsubs[:10] {
		unsub()
	}
	s.Remove(gs.ID)

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("subscription goroutines still running: %d > %d", runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUnsubscribeSignalsDone(t *testing.T) {
	s := NewService()
	gs := seated(t, s, 8, 8, 2)
	_, unsub, _ := s.Subscribe(context.Background(), gs.ID)
	var sub *subscriber
	s.mu.Lock()
	for sub = range s.subs[gs.ID] {
	}
	s.mu.Unlock()
	unsub()
	select {
	case <-sub.done:
	default:
		t.Fatalf("unsubscribe should close the done channel")
	}
}
