package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corvidchess/engine/internal/board"
)

func TestWorkerSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	var stop atomic.Bool

	w := NewWorker(0, NewTranspositionTable(16), DefaultConfig(), &stop)
	w.InitSearch(pos)

	move, _ := w.SearchDepth(4, -Infinity, Infinity)
	if move == board.NoMove {
		t.Fatal("search returned NoMove for starting position")
	}
}

func TestWorkerFindsMateInOne(t *testing.T) {
	pos, err := board.ParseFEN("8/8/8/8/8/7k/4q3/7K b - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	var stop atomic.Bool

	w := NewWorker(0, NewTranspositionTable(16), DefaultConfig(), &stop)
	w.InitSearch(pos)

	move, score := w.SearchDepth(1, -Infinity, Infinity)
	if move == board.NoMove {
		t.Fatal("expected a mating move")
	}
	if score < MateScore-2 {
		t.Errorf("expected mate score near MateScore, got %d", score)
	}
}

// TestConcurrentSearchRace stresses Probe/Store from many workers sharing
// one transposition table. Run with -race to confirm no torn reads survive
// the self-verifying key check.
func TestConcurrentSearchRace(t *testing.T) {
	tt := NewTranspositionTable(4)
	var stop atomic.Bool

	iterations := 20
	if testing.Short() {
		iterations = 5
	}

	positions := []string{
		board.StartFEN,
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"rnbqkbnr/ppp1pppp/8/3p4/3P4/8/PPP1PPPP/RNBQKBNR w KQkq d6 0 2",
	}

	for i := 0; i < iterations; i++ {
		pos, err := board.ParseFEN(positions[i%len(positions)])
		if err != nil {
			t.Fatalf("ParseFEN: %v", err)
		}

		var wg sync.WaitGroup
		for id := 0; id < 4; id++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				w := NewWorker(id, tt, DefaultConfig(), &stop)
				w.InitSearch(pos.Copy())
				w.SearchDepth(4, -Infinity, Infinity)
			}(id)
		}
		wg.Wait()
	}

	t.Logf("completed %d concurrent TT stress iterations", iterations)
}

func TestPawnHashTable(t *testing.T) {
	pt := NewPawnTable(1024)
	pos := board.NewPosition()

	if _, _, found := pt.Probe(pos.PawnKey); found {
		t.Error("expected cache miss on first probe")
	}

	pt.Store(pos.PawnKey, -15, -20)

	mg, eg, found := pt.Probe(pos.PawnKey)
	if !found {
		t.Error("expected cache hit after store")
	}
	if mg != -15 || eg != -20 {
		t.Errorf("wrong values: got mg=%d, eg=%d, want -15, -20", mg, eg)
	}

	oldKey := pos.PawnKey
	move := board.NewMove(board.E2, board.E4)
	undo := pos.MakeMove(move)
	if pos.PawnKey == oldKey {
		t.Error("PawnKey should change when a pawn moves")
	}

	pos.UnmakeMove(move, undo)
	if pos.PawnKey != oldKey {
		t.Error("PawnKey should be restored on unmake")
	}
}

func TestTimeManagerFixedMoveTime(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{MoveTime: 250 * time.Millisecond}, board.White, 0)

	if tm.OptimumTime() != 250*time.Millisecond || tm.MaximumTime() != 250*time.Millisecond {
		t.Errorf("fixed move time should pin optimum and maximum, got %v/%v", tm.OptimumTime(), tm.MaximumTime())
	}
}

func TestTimeManagerSuddenDeath(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{WhiteTime: 60 * time.Second, WhiteInc: time.Second}, board.White, 0)

	if tm.OptimumTime() <= 0 || tm.MaximumTime() < tm.OptimumTime() {
		t.Errorf("expected positive optimum <= maximum, got %v/%v", tm.OptimumTime(), tm.MaximumTime())
	}
}
