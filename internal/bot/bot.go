// Package bot holds opponent strategies. A strategy picks one of the legal
// moves it is handed; it never mutates the game it is shown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jaminalder/reversi/internal/domain"
)

// Errors returned by strategies.
var (
	ErrNoLegalMove     = errors.New("no legal move")
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Strategy selects a move for player p from moves. g is a private copy of the
// game and may be used for simulation.
type Strategy interface {
	ChooseMove(ctx context.Context, g *domain.Game, p domain.Player, moves domain.MoveSet) (domain.Pos, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(ctx context.Context, g *domain.Game, p domain.Player, moves domain.MoveSet) (domain.Pos, error)

func (f StrategyFunc) ChooseMove(ctx context.Context, g *domain.Game, p domain.Player, moves domain.MoveSet) (domain.Pos, error) {
	return f(ctx, g, p, moves)
}

// Options tunes the strategies built by New.
type Options struct {
	Seed  int64
	Depth int
}

// ScriptPrefix selects a Lua strategy file in New, e.g. "lua:corners.lua".
const ScriptPrefix = "lua:"

var builders = map[string]func(Options) Strategy{
	"random":    func(o Options) Strategy { return NewRandom(o.Seed) },
	"greedy":    func(Options) Strategy { return Greedy },
	"lookahead": func(Options) Strategy { return Lookahead },
	"minimax":   func(o Options) Strategy { return NewMinimax(o.Depth) },
}

// aliases keeps the names of the classic bot command working.
var aliases = map[string]string{
	"smart":      "greedy",
	"very-smart": "lookahead",
}

func lookup(name string) (func(Options) Strategy, bool) {
	name = strings.ToLower(name)
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	build, ok := builders[name]
	return build, ok
}

// Known reports whether New accepts name without loading anything.
func Known(name string) bool {
	if strings.HasPrefix(name, ScriptPrefix) {
		return len(name) > len(ScriptPrefix)
	}
	_, ok := lookup(name)
	return ok
}

// New returns the strategy registered under name.
func New(name string, opts Options) (Strategy, error) {
	if path, ok := strings.CutPrefix(name, ScriptPrefix); ok {
		return LoadScript(path)
	}
	build, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return build(opts), nil
}

// Names lists the built-in strategies, without aliases.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
