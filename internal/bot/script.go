package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/jaminalder/reversi/internal/domain"
)

// ScriptEntryPoint is the global function a strategy script must define:
//
//	function choose_move(moves, player, game) ... return index end
//
// moves is a 1-based array of {row=, col=, flips=} tables ordered by row,
// then column; game carries rows, cols, players and a board of rows.
// The function returns the 1-based index of the chosen move.
const ScriptEntryPoint = "choose_move"

var ErrScript = errors.New("strategy script")

// Script is a strategy implemented in Lua. Calls are serialized since a Lua
// state is single threaded.
type Script struct {
	mu sync.Mutex
	L  *lua.LState
	fn *lua.LFunction
}

// scriptLibs are the only libraries a strategy script can reach; os and io
// stay closed.
var scriptLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range scriptLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// file loaders from the base and package libraries
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// NewScript compiles src and looks up its entry point.
func NewScript(src string) (*Script, error) {
	L := newState()
	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: %v", ErrScript, err)
	}
	return bindScript(L)
}

// LoadScript runs the Lua file at path and looks up its entry point.
func LoadScript(path string) (*Script, error) {
	L := newState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrScript, path, err)
	}
	return bindScript(L)
}

func bindScript(L *lua.LState) (*Script, error) {
	fn, ok := L.GetGlobal(ScriptEntryPoint).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("%w: missing function %s", ErrScript, ScriptEntryPoint)
	}
	return &Script{L: L, fn: fn}, nil
}

func (s *Script) ChooseMove(ctx context.Context, g *domain.Game, p domain.Player, moves domain.MoveSet) (domain.Pos, error) {
	if len(moves) == 0 {
		return domain.Pos{}, ErrNoLegalMove
	}
	positions := moves.Positions()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	list := s.L.NewTable()
	for i, pos := range positions {
		m := s.L.NewTable()
		m.RawSetString("row", lua.LNumber(pos.Row))
		m.RawSetString("col", lua.LNumber(pos.Col))
		m.RawSetString("flips", lua.LNumber(len(moves[pos])))
		list.RawSetInt(i+1, m)
	}

	err := s.L.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true}, list, lua.LNumber(p), s.gameTable(g))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Pos{}, ctxErr
		}
		return domain.Pos{}, fmt.Errorf("%w: %v", ErrScript, err)
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		return domain.Pos{}, fmt.Errorf("%w: %s returned %s, want a number", ErrScript, ScriptEntryPoint, ret.Type())
	}
	i := int(n)
	if i < 1 || i > len(positions) {
		return domain.Pos{}, fmt.Errorf("%w: move index %d out of range 1..%d", ErrScript, i, len(positions))
	}
	return positions[i-1], nil
}

func (s *Script) gameTable(g *domain.Game) *lua.LTable {
	t := s.L.NewTable()
	t.RawSetString("rows", lua.LNumber(g.Rows()))
	t.RawSetString("cols", lua.LNumber(g.Cols()))
	t.RawSetString("players", lua.LNumber(g.Players()))
	board := s.L.NewTable()
	for r, row := range g.Board().Grid() {
		cells := s.L.NewTable()
		for c, owner := range row {
			cells.RawSetInt(c+1, lua.LNumber(owner))
		}
		board.RawSetInt(r+1, cells)
	}
	t.RawSetString("board", board)
	return t
}

// Close releases the Lua state.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
	return nil
}
