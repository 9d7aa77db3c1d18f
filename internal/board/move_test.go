package board

import (
	"errors"
	"testing"
)

func TestParseMoveAcceptsLegalMove(t *testing.T) {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	m, err := ParseMove("e2e4", pos)
	if err != nil {
		t.Fatalf("ParseMove(e2e4): unexpected error: %v", err)
	}
	if m != NewDoublePawnPush(E2, E4) {
		t.Errorf("ParseMove(e2e4) = %v, want e2e4 double push", m)
	}
}

// TestParseMoveRejectsPinnedEnPassant exercises spec scenario 6's
// en-passant pin: the pawn's diagonal capture is syntactically and
// shape-wise a legal en passant move, but playing it would expose the
// white king on a5 to the black rook on h5 along the now-vacated 5th rank.
func TestParseMoveRejectsPinnedEnPassant(t *testing.T) {
	pos, err := ParseFEN("8/8/8/KPp4r/8/8/8/7k w - c6 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	_, err = ParseMove("b5c6", pos)
	if err == nil {
		t.Fatal("ParseMove(b5c6): expected an error, the en passant capture is pinned")
	}

	var illegal *IllegalMoveError
	if !errors.As(err, &illegal) {
		t.Errorf("ParseMove(b5c6): expected *IllegalMoveError, got %T (%v)", err, err)
	}
}

// TestParseMoveRejectsBlockedSlider checks that a syntactically valid
// bishop move with a piece in the way is rejected rather than silently
// accepted, since ParseMove infers shape from square arithmetic alone and
// has no other way to see the blocker without consulting legal move
// generation.
func TestParseMoveRejectsBlockedSlider(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/1P6/B3K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	_, err = ParseMove("a1c3", pos)
	if err == nil {
		t.Fatal("ParseMove(a1c3): expected an error, the bishop's diagonal is blocked by its own pawn on b2")
	}

	var illegal *IllegalMoveError
	if !errors.As(err, &illegal) {
		t.Errorf("ParseMove(a1c3): expected *IllegalMoveError, got %T (%v)", err, err)
	}
}

func TestParseMoveRejectsPinnedPiece(t *testing.T) {
	// White king e1, white bishop e2 pinned by black rook e8 along the e-file;
	// black king h8.
	pos, err := ParseFEN("4r2k/8/8/8/8/8/4B3/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	_, err = ParseMove("e2d3", pos)
	if err == nil {
		t.Fatal("ParseMove(e2d3): expected an error, the bishop is pinned to the king along the e-file")
	}

	var illegal *IllegalMoveError
	if !errors.As(err, &illegal) {
		t.Errorf("ParseMove(e2d3): expected *IllegalMoveError, got %T (%v)", err, err)
	}
}
