package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaminalder/reversi/internal/bot"
	"github.com/jaminalder/reversi/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
	ErrStale       = errors.New("game changed while the bot was thinking")
)

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID   string
	Game *domain.Game
	// Seats[i] is the id of the participant playing domain.Player(i+1).
	Seats   []string
	Created time.Time
	Updated time.Time
}

func (gs *GameState) snapshot() GameState {
	cp := *gs
	cp.Game = gs.Game.Clone()
	cp.Seats = append([]string(nil), gs.Seats...)
	return cp
}

// Seat returns the player seated as playerID, or domain.Empty.
func (gs *GameState) Seat(playerID string) domain.Player {
	for i, id := range gs.Seats {
		if id != "" && id == playerID {
			return domain.Player(i + 1)
		}
	}
	return domain.Empty
}

type subscriber struct {
	ch        chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
		close(s.done)
	})
}

// Service manages games and subscribers. Every mutation of a game happens
// under the service lock, so at most one move per game is in flight.
type Service struct {
	mu     sync.Mutex
	games  map[string]*GameState
	subs   map[string]map[*subscriber]struct{}
	render func(GameState) []byte
	log    *zap.Logger
}

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService() *Service { return NewServiceWithRenderer(nil) }

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(renderer func(GameState) []byte) *Service {
	s := &Service{
		games: make(map[string]*GameState),
		subs:  make(map[string]map[*subscriber]struct{}),
		log:   zap.NewNop(),
	}
	s.SetRenderer(renderer)
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(gs GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// SetLogger replaces the service logger; nil disables logging.
func (s *Service) SetLogger(l *zap.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	s.log = l
}

// CreateGame creates and registers a new game.
func (s *Service) CreateGame(rows, cols, players int, opts ...domain.Option) (*GameState, error) {
	g, err := domain.New(rows, cols, players, opts...)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	now := time.Now()
	gs := &GameState{ID: id, Game: g, Seats: make([]string, players), Created: now, Updated: now}
	s.games[id] = gs
	s.log.Info("game created",
		zap.String("game_id", id),
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Int("players", players),
		zap.Stringer("variant", g.Variant()),
	)
	cp := gs.snapshot()
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := gs.snapshot()
	return &cp, true
}

// Join seats playerID in the first free seat, or returns the seat it already
// holds. When every seat is taken the participant spectates (domain.Empty).
func (s *Service) Join(id, playerID string) (domain.Player, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	seat := gs.Seat(playerID)
	if seat == domain.Empty {
		for i, taken := range gs.Seats {
			if taken == "" {
				gs.Seats[i] = playerID
				seat = domain.Player(i + 1)
				break
			}
		}
	}
	gs.Updated = time.Now()
	s.log.Debug("join", zap.String("game_id", id), zap.String("player_id", playerID), zap.Stringer("seat", seat))
	cp := gs.snapshot()
	return seat, &cp, nil
}

// Play validates seat and turn, applies a move, updates timestamps, and broadcasts.
func (s *Service) Play(id, playerID string, pos domain.Pos) (*GameState, error) {
	s.mu.Lock()
	gs, err := s.seatedLocked(id, playerID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s.applyLocked(gs, pos)
}

// PlayBot lets strategy choose the move for playerID. The strategy runs on a
// copy of the game without holding the service lock; if the game moved on in
// the meantime the choice is discarded with ErrStale. Cancelling ctx abandons
// the search without touching the game.
func (s *Service) PlayBot(ctx context.Context, id, playerID string, strategy bot.Strategy) (*GameState, domain.Pos, error) {
	s.mu.Lock()
	gs, err := s.seatedLocked(id, playerID)
	if err != nil {
		s.mu.Unlock()
		return nil, domain.Pos{}, err
	}
	view := gs.Game.Clone()
	revision := view.Moves()
	log := s.log
	s.mu.Unlock()

	start := time.Now()
	pos, err := strategy.ChooseMove(ctx, view, view.Turn(), view.LegalMoves())
	if err != nil {
		return nil, domain.Pos{}, err
	}
	log.Debug("bot chose move",
		zap.String("game_id", id),
		zap.String("player_id", playerID),
		zap.Stringer("pos", pos),
		zap.Duration("took", time.Since(start)),
	)

	s.mu.Lock()
	gs, err = s.seatedLocked(id, playerID)
	if err != nil {
		s.mu.Unlock()
		return nil, domain.Pos{}, err
	}
	if gs.Game.Moves() != revision {
		s.mu.Unlock()
		log.Warn("discarding stale bot move", zap.String("game_id", id), zap.Stringer("pos", pos))
		return nil, domain.Pos{}, ErrStale
	}
	cp, err := s.applyLocked(gs, pos)
	return cp, pos, err
}

// seatedLocked returns the game if playerID holds the seat whose turn it is.
func (s *Service) seatedLocked(id, playerID string) (*GameState, error) {
	gs, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	if gs.Game.Over() {
		return nil, domain.ErrGameOver
	}
	seat := gs.Seat(playerID)
	if seat == domain.Empty {
		return nil, ErrNotAPlayer
	}
	if seat != gs.Game.Turn() {
		return nil, ErrNotYourTurn
	}
	return gs, nil
}

// applyLocked is entered with s.mu held and releases it.
func (s *Service) applyLocked(gs *GameState, pos domain.Pos) (*GameState, error) {
	mover := gs.Game.Turn()
	if err := gs.Game.ApplyMove(pos); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.Updated = time.Now()

	fields := []zap.Field{
		zap.String("game_id", gs.ID),
		zap.Stringer("player", mover),
		zap.Stringer("pos", pos),
		zap.Int("moves", gs.Game.Moves()),
	}
	if out, over := gs.Game.Outcome(); over {
		s.log.Info("game over", append(fields, zap.Any("winners", out.Winners), zap.Ints("counts", out.Counts))...)
	} else {
		s.log.Debug("move applied", append(fields, zap.Stringer("next", gs.Game.Turn()))...)
	}

	cp := gs.snapshot()
	s.broadcastLocked(gs.ID, s.render(cp))
	s.mu.Unlock()
	return &cp, nil
}

// broadcastLocked fans out payload without blocking; slow subscribers are
// closed and dropped.
func (s *Service) broadcastLocked(id string, payload []byte) {
	for sub := range s.subs[id] {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			delete(s.subs[id], sub)
		}
	}
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
// The subscription ends when ctx is done, unsub is called, the subscriber falls
// behind, or the game is removed.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1), done: make(chan struct{})}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			sub.close()
			s.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsub()
		case <-sub.done:
		}
	}()
	return sub.ch, unsub, nil
}

// Remove forgets a game and closes its subscribers.
func (s *Service) Remove(id string) bool {
	s.mu.Lock()
	_, ok := s.games[id]
	delete(s.games, id)
	for sub := range s.subs[id] {
		sub.close()
	}
	delete(s.subs, id)
	s.mu.Unlock()
	return ok
}
