package domain

import (
	"reflect"
	"testing"
)

func mustBoard(t *testing.T, players int, rows ...string) *Board {
	t.Helper()
	grid := layout(t, rows...)
	b, err := boardFromGrid(grid, len(grid), len(grid[0]), players)
	if err != nil {
		t.Fatalf("boardFromGrid: %v", err)
	}
	return b
}

func TestLegalMovesClassicStart(t *testing.T) {
	b := mustBoard(t, 2,
		"........",
		"........",
		"........",
		"...21...",
		"...12...",
		"........",
		"........",
		"........",
	)
	moves := LegalMoves(b, 1)
	want := []Pos{{2, 3}, {3, 2}, {4, 5}, {5, 4}}
	if got := moves.Positions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if flips := moves[Pos{2, 3}]; !reflect.DeepEqual(flips, []Pos{{3, 3}}) {
		t.Fatalf("expected (2,3) to flip only (3,3), got %v", flips)
	}
}

func TestCapturesUnionAcrossDirections(t *testing.T) {
	b := mustBoard(t, 2,
		"1.1.",
		".22.",
		"12..",
		"....",
	)
	got := Captures(b, 1, Pos{2, 2})
	want := []Pos{{1, 1}, {1, 2}, {2, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected flips %v, got %v", want, got)
	}
}

func TestCapturesRayEdgeCases(t *testing.T) {
	cases := []struct {
		name string
		rows []string
		pos  Pos
	}{
		{"run ends at edge, own disc adjacent", []string{"1.22", "....", "....", "...."}, Pos{0, 1}},
		{"run followed by empty", []string{".2.1", "....", "....", "...."}, Pos{0, 0}},
		{"no wraparound", []string{"...2", "1...", "....", "...."}, Pos{0, 2}},
		{"occupied cell", []string{"1.22", "....", "....", "...."}, Pos{0, 2}},
		{"off board", []string{"1.22", "....", "....", "...."}, Pos{4, 0}},
	}
	for _, tc := range cases {
		b := mustBoard(t, 2, tc.rows...)
		if flips := Captures(b, 1, tc.pos); flips != nil {
			t.Fatalf("%s: expected no capture at %v, got %v", tc.name, tc.pos, flips)
		}
		if LegalMoves(b, 1).Contains(tc.pos) {
			t.Fatalf("%s: %v should not be legal", tc.name, tc.pos)
		}
	}
}

func TestCapturesMixedOpponentsForNPlayers(t *testing.T) {
	b := mustBoard(t, 3,
		"123..",
		".....",
		".....",
	)
	got := Captures(b, 1, Pos{0, 3})
	want := []Pos{{0, 2}, {0, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected mixed opponent run %v to flip, got %v", want, got)
	}
	if flips := Captures(b, 2, Pos{0, 3}); !reflect.DeepEqual(flips, []Pos{{0, 2}}) {
		t.Fatalf("player 2 should flip only (0,2), got %v", flips)
	}
}

func TestLegalMovesNeverIncludeOccupied(t *testing.T) {
	boards := []*Board{
		mustBoard(t, 2, "....", ".21.", ".12.", "...."),
		mustBoard(t, 2, "1.1.", ".22.", "12..", "...."),
		mustBoard(t, 3, "..213", ".3.1.", "22.33", "1.1.2", "3...."),
	}
	for i, b := range boards {
		for p := Player(1); p <= 3; p++ {
			for pos, flips := range LegalMoves(b, p) {
				if owner, _ := b.Get(pos); owner != Empty {
					t.Fatalf("board %d: %v listed occupied %v", i, p, pos)
				}
				if len(flips) == 0 {
					t.Fatalf("board %d: %v listed %v without captures", i, p, pos)
				}
				for _, f := range flips {
					if owner, _ := b.Get(f); owner == Empty || owner == p {
						t.Fatalf("board %d: %v would flip %v owned by %v", i, p, f, owner)
					}
				}
			}
		}
	}
}

func TestLegalMovesIsIdempotent(t *testing.T) {
	b := mustBoard(t, 2, "1.1.", ".22.", "12..", "....")
	before := b.Clone()
	first := LegalMoves(b, 1)
	second := LegalMoves(b, 1)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated queries differ: %v vs %v", first, second)
	}
	if !b.Equal(before) {
		t.Fatalf("LegalMoves mutated the board")
	}
}

func TestOpeningMovesCentreRegion(t *testing.T) {
	b := NewBoard(9, 9)
	moves, ok := openingMoves(b, 3)
	if !ok {
		t.Fatalf("empty board should be in the opening phase")
	}
	var want []Pos
	for r := 3; r <= 5; r++ {
		for c := 3; c <= 5; c++ {
			want = append(want, Pos{r, c})
		}
	}
	if got := moves.Positions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected centre cells %v, got %v", want, got)
	}

	b.set(Pos{0, 0}, 1)
	if _, ok := openingMoves(b, 3); ok {
		t.Fatalf("a disc outside the centre ends the opening phase")
	}
}
