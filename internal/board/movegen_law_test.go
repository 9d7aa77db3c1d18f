package board

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// These tests check the structural laws the generator is expected to
// satisfy across GenType/Legality combinations, rather than any single
// position's move count.

func allTestPositions(t *testing.T) []*Position {
	t.Helper()
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", // CPW perft position 2 (Kiwipete)
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",                          // CPW perft position 3
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", // CPW perft position 4
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",       // CPW perft position 5
		"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10", // CPW perft position 6
	}
	positions := make([]*Position, 0, len(fens))
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		positions = append(positions, pos)
	}
	return positions
}

func TestGenerateMovesLegalEqualsFilteredPseudoLegal(t *testing.T) {
	for _, pos := range allTestPositions(t) {
		legal := pos.GenerateMoves(Legal, GenAll)
		pseudo := pos.GenerateMoves(PseudoLegal, GenAll)

		filtered := NewMoveList()
		for i := 0; i < pseudo.Len(); i++ {
			m := pseudo.Get(i)
			if pos.IsLegal(m) {
				filtered.Add(m)
			}
		}

		assert.ElementsMatch(t, legal.Slice(), filtered.Slice(), "legal generation must equal pseudo-legal filtered by IsLegal")
	}
}

func TestGenerateMovesAllSplitsIntoCapturesAndQuiets(t *testing.T) {
	for _, pos := range allTestPositions(t) {
		if pos.Checkers != 0 {
			continue // the captures/quiets split only holds outside of check
		}
		all := pos.GenerateMoves(Legal, GenAll)
		captures := pos.GenerateMoves(Legal, GenCaptures)
		quiets := pos.GenerateMoves(Legal, GenQuiets)

		assert.Equal(t, all.Len(), captures.Len()+quiets.Len(), "captures and quiets must partition all moves when not in check")

		seen := make(map[Move]bool)
		for i := 0; i < captures.Len(); i++ {
			seen[captures.Get(i)] = true
		}
		for i := 0; i < quiets.Len(); i++ {
			assert.False(t, seen[quiets.Get(i)], "a move cannot be both a capture and a quiet")
		}
	}
}

func TestGenerateMovesAllEqualsEvasionsInCheck(t *testing.T) {
	// Fool's mate: 1. f3 e5 2. g4 Qh4#
	pos, err := ParseFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	assert.NoError(t, err)
	assert.True(t, pos.Checkers != 0, "fool's mate position must have white in check")

	all := pos.GenerateMoves(Legal, GenAll)
	evasions := pos.GenerateMoves(Legal, GenEvasions)
	assert.ElementsMatch(t, all.Slice(), evasions.Slice())
	assert.Equal(t, 0, all.Len(), "fool's mate has no legal replies")
}

func TestGenerateQuietChecksAreQuietAndGiveCheck(t *testing.T) {
	for _, pos := range allTestPositions(t) {
		if pos.Checkers != 0 {
			continue
		}
		checks := pos.GenerateMoves(Legal, GenQuietChecks)
		for i := 0; i < checks.Len(); i++ {
			m := checks.Get(i)
			assert.True(t, m.IsQuiet(), "quiet check %v must be quiet", m)
			assert.True(t, pos.GivesCheck(m), "quiet check %v must give check", m)
		}
	}
}

func TestMakeUnmakeRoundTripsHash(t *testing.T) {
	for _, pos := range allTestPositions(t) {
		original := *pos
		moves := pos.GenerateMoves(Legal, GenAll)
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			undo := pos.MakeMove(m)
			pos.UnmakeMove(m, undo)

			assert.Equal(t, original.Hash, pos.Hash, "hash must round-trip through make/unmake for %v", m)
			assert.Equal(t, original.PawnKey, pos.PawnKey, "pawn key must round-trip through make/unmake for %v", m)
			assert.Equal(t, original.AllOccupied, pos.AllOccupied, "occupancy must round-trip for %v", m)
			assert.Equal(t, original.SideToMove, pos.SideToMove)
		}
	}
}

// TestDeepMakeUnmakeRoundTripsToStartFEN walks 50 plies of random legal
// moves from the starting position, unwinds every one in reverse order, and
// checks the board lands back on the exact FEN it started from. Exercises
// unmake's full undo record (castling rights, en passant square, halfmove
// clock) rather than just the single-ply hash/occupancy checks above.
func TestDeepMakeUnmakeRoundTripsToStartFEN(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	startFEN := pos.ToFEN()

	var history []struct {
		move Move
		undo UndoInfo
	}

	for ply := 0; ply < 50; ply++ {
		moves := pos.GenerateMoves(Legal, GenAll)
		if moves.Len() == 0 {
			break // ran into checkmate/stalemate before 50 plies; stop early
		}
		m := moves.Get(rng.Intn(moves.Len()))
		undo := pos.MakeMove(m)
		history = append(history, struct {
			move Move
			undo UndoInfo
		}{m, undo})
	}

	for i := len(history) - 1; i >= 0; i-- {
		pos.UnmakeMove(history[i].move, history[i].undo)
	}

	assert.Equal(t, startFEN, pos.ToFEN(), "50 random plies made then unmade in reverse must restore the exact starting FEN")
}

func TestMakeMoveRecomputesHashFromScratch(t *testing.T) {
	for _, pos := range allTestPositions(t) {
		moves := pos.GenerateMoves(Legal, GenAll)
		for i := 0; i < moves.Len() && i < 8; i++ {
			m := moves.Get(i)
			child := pos.Copy()
			child.MakeMove(m)
			assert.Equal(t, child.ComputeHash(), child.Hash, "incremental hash must match from-scratch computation after %v", m)
		}
	}
}
