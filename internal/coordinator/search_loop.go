package coordinator

import (
	"github.com/corvidchess/engine/internal/board"
	"github.com/corvidchess/engine/internal/engine"
)

// driveMain runs the main worker's iterative deepening: it owns the time
// manager, decides when the whole search stops, and aggregates the final
// answer across every worker once it does.
func (c *Coordinator) driveMain(h *workerHandle, pos *board.Position, limits engine.Limits, ply int) BestMove {
	tm := engine.NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)

	maxDepth := engine.MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	var prevScore int
	var lastMove board.Move
	var stability, instability int
	recentScores := make([]int, 0, 10)

	for depth := 1; depth <= maxDepth; depth++ {
		if c.stopFlag.Load() {
			break
		}

		move, score := c.searchOneDepth(h, depth, prevScore, recentScores)
		if c.stopFlag.Load() && move == board.NoMove {
			break
		}

		c.foldNodes(h)
		c.recordResult(h, depth, score, move)

		if move != board.NoMove {
			if move == lastMove {
				stability++
				instability = 0
			} else {
				instability++
				stability = 0
			}
			lastMove = move
		}
		tm.AdjustForStability(stability)
		tm.AdjustForInstability(instability)

		prevScore = score
		recentScores = append(recentScores, score)
		if len(recentScores) > 10 {
			recentScores = recentScores[1:]
		}

		if score > engine.MateScore-100 || score < -engine.MateScore+100 {
			break
		}
		if limits.Nodes > 0 && c.Nodes() >= limits.Nodes {
			break
		}
		if tm.ShouldStop() {
			break
		}
		if tm.PastOptimum() && stability >= 4 {
			break
		}
	}

	return c.selectBestResult()
}

// driveHelper runs a helper's iterative deepening until the main worker
// (or an external Stop) raises the stop flag. Helpers never manage time
// themselves; they exist only to fill the shared TT with deeper lines.
func (c *Coordinator) driveHelper(h *workerHandle, limits engine.Limits) {
	maxDepth := engine.MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	// Depth staggering: later-numbered helpers skip shallow, cheap depths
	// that the main worker and earlier helpers already cover, spreading
	// the pool's effort across a wider band of the tree.
	startDepth := 1
	switch {
	case h.id >= 6:
		startDepth = 4
	case h.id >= 3:
		startDepth = 3
	case h.id >= 1:
		startDepth = 2
	}

	var prevScore int
	recentScores := make([]int, 0, 10)

	for depth := startDepth; depth <= maxDepth; depth++ {
		if c.stopFlag.Load() {
			return
		}

		move, score := c.searchOneDepth(h, depth, prevScore, recentScores)
		if c.stopFlag.Load() && move == board.NoMove {
			return
		}

		c.foldNodes(h)
		c.recordResult(h, depth, score, move)

		prevScore = score
		recentScores = append(recentScores, score)
		if len(recentScores) > 10 {
			recentScores = recentScores[1:]
		}
	}
}

func (c *Coordinator) recordResult(h *workerHandle, depth, score int, move board.Move) {
	result := engine.WorkerResult{
		WorkerID: h.id,
		Depth:    depth,
		Score:    score,
		Move:     move,
		PV:       h.worker.GetPV(),
		Nodes:    h.worker.Nodes(),
	}
	h.lastResult.Store(&result)
}

// searchOneDepth runs a single iterative-deepening iteration, widening a
// dynamic aspiration window around the previous iteration's score once the
// search is deep enough for the window to pay for itself. Window width
// adapts to recent score volatility, and each worker perturbs its window
// slightly so the pool doesn't all fail high/low on the same depth.
func (c *Coordinator) searchOneDepth(h *workerHandle, depth, prevScore int, recentScores []int) (board.Move, int) {
	if depth < 5 || prevScore == 0 {
		return h.worker.SearchDepth(depth, -engine.Infinity, engine.Infinity)
	}

	volatility := 0
	if len(recentScores) >= 2 {
		lo, hi := recentScores[0], recentScores[0]
		for _, s := range recentScores {
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
		volatility = hi - lo
	}

	var window int
	switch {
	case volatility > 400:
		window = 150 + volatility/4
	case volatility < 50:
		window = 25
	default:
		window = 50 + volatility/8
	}
	window += (h.id % 8) * 3

	alpha := prevScore - window
	beta := prevScore + window
	retries := 0

	for {
		move, score := h.worker.SearchDepth(depth, alpha, beta)
		if c.stopFlag.Load() {
			return move, score
		}

		if score <= alpha {
			retries++
			if retries >= 2 {
				alpha = -engine.Infinity
			} else {
				alpha = prevScore - window*2
			}
		} else if score >= beta {
			retries++
			if retries >= 2 {
				beta = engine.Infinity
			} else {
				beta = prevScore + window*2
			}
		} else {
			return move, score
		}
	}
}

// selectBestResult aggregates every worker's most recently completed depth
// into one answer: deepest completed depth wins, ties break on score, and
// remaining ties break on longer PV (more search agreement behind the move).
func (c *Coordinator) selectBestResult() BestMove {
	var best *engine.WorkerResult
	c.workers.Range(func(_ int, h *workerHandle) bool {
		r := h.lastResult.Load()
		if r == nil || r.Move == board.NoMove {
			return true
		}
		if best == nil ||
			r.Depth > best.Depth ||
			(r.Depth == best.Depth && r.Score > best.Score) ||
			(r.Depth == best.Depth && r.Score == best.Score && len(r.PV) > len(best.PV)) {
			best = r
		}
		return true
	})

	if best == nil {
		return BestMove{Move: board.NoMove}
	}
	return BestMove{
		Move:  best.Move,
		Score: best.Score,
		Depth: best.Depth,
		PV:    best.PV,
		Nodes: c.Nodes(),
	}
}
