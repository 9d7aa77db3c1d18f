package coordinator

import (
	"testing"
	"time"

	"github.com/corvidchess/engine/internal/board"
	"github.com/corvidchess/engine/internal/engine"
)

func perft(p *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

func TestSearchFindsMateInOne(t *testing.T) {
	pos, err := board.ParseFEN("8/8/8/8/8/7k/4q3/7K b - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	c := New(WithThreads(1), WithHashMB(4))
	defer c.Close()

	best := c.Search(pos, engine.Limits{Depth: 1, MoveTime: time.Second}, nil, 0)
	if best.Move == board.NoMove {
		t.Fatal("expected a mating move, got NoMove")
	}
	if best.Score < engine.MateScore-2 {
		t.Errorf("expected a mate score near MateScore, got %d", best.Score)
	}
}

func TestSearchDepth4NodeSanity(t *testing.T) {
	pos := board.NewPosition()

	c := New(WithThreads(2), WithHashMB(4))
	defer c.Close()

	best := c.Search(pos, engine.Limits{Depth: 4, MoveTime: 5 * time.Second}, nil, 0)
	if best.Move == board.NoMove {
		t.Fatal("expected a legal move from the starting position")
	}

	refPos := board.NewPosition()
	want := perft(refPos, 4) / 10
	if c.Nodes() < want {
		t.Errorf("total nodes searched (%d) below perft(4)/10 sanity floor (%d)", c.Nodes(), want)
	}
}

func TestStopReturnsPromptly(t *testing.T) {
	pos := board.NewPosition()

	c := New(WithThreads(4), WithHashMB(4))
	defer c.Close()

	done := make(chan BestMove, 1)
	go func() {
		done <- c.Search(pos, engine.Limits{Infinite: true}, nil, 0)
	}()

	time.Sleep(200 * time.Millisecond)
	c.Stop()

	select {
	case best := <-done:
		if best.Move == board.NoMove {
			t.Error("expected a legal move even from an interrupted infinite search")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("coordinator did not stop within 500ms of Stop()")
	}
}

func TestSetThreadCountGrowsAndShrinks(t *testing.T) {
	c := New(WithThreads(1), WithHashMB(4))
	defer c.Close()

	if c.ThreadCount() != 1 {
		t.Fatalf("expected 1 thread, got %d", c.ThreadCount())
	}

	c.SetThreadCount(4)
	if c.ThreadCount() != 4 {
		t.Fatalf("expected 4 threads after growing, got %d", c.ThreadCount())
	}

	c.SetThreadCount(2)
	if c.ThreadCount() != 2 {
		t.Fatalf("expected 2 threads after shrinking, got %d", c.ThreadCount())
	}

	pos := board.NewPosition()
	best := c.Search(pos, engine.Limits{Depth: 3, MoveTime: time.Second}, nil, 0)
	if best.Move == board.NoMove {
		t.Error("expected a legal move after resizing the pool")
	}
}

func TestUciSearchIsNonBlocking(t *testing.T) {
	pos := board.NewPosition()

	c := New(WithThreads(2), WithHashMB(4))
	defer c.Close()

	resultCh := make(chan BestMove, 1)
	start := time.Now()
	c.UciSearch(pos, engine.Limits{Depth: 4, MoveTime: 2 * time.Second}, nil, 0, func(b BestMove) {
		resultCh <- b
	})
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("UciSearch blocked for %v, expected an immediate return", elapsed)
	}

	select {
	case best := <-resultCh:
		if best.Move == board.NoMove {
			t.Error("expected a legal move from the async callback")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("UciSearch callback never fired")
	}
}
