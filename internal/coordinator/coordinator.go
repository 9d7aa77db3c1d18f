// Package coordinator owns the Lazy-SMP thread pool: one persistent
// goroutine per search worker, a shared transposition table, and the
// generation-counted latch protocol that hands a new (position, limits)
// pair to every worker without tearing down and respawning goroutines on
// every move.
package coordinator

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/errgroup"

	"github.com/corvidchess/engine/internal/board"
	"github.com/corvidchess/engine/internal/engine"
	"github.com/corvidchess/engine/internal/logging"
)

// BestMove is the coordinator's answer to a search: the move itself plus
// the bookkeeping a caller (UCI layer, tests) typically wants to report.
type BestMove struct {
	Move  board.Move
	Score int
	Depth int
	PV    []board.Move
	Nodes uint64
}

type workerHandle struct {
	id     int
	isMain bool
	worker *engine.Worker

	seenGen uint64
	retired atomic.Bool

	lastResult  atomic.Pointer[engine.WorkerResult]
	lastCounted uint64 // worker.Nodes() value last folded into the shared counter
}

// Coordinator is the coordinator of worker goroutines described above. The
// zero value is not usable; construct with New.
type Coordinator struct {
	cfg Config
	tt  *engine.TranspositionTable
	log *logging.Logger

	stopFlag atomic.Bool
	killFlag atomic.Bool

	mu         sync.Mutex
	cond       *sync.Cond
	generation uint64

	sharedPos        *board.Position
	sharedLimits     engine.Limits
	sharedPly        int
	sharedRootHashes []uint64
	resultCh         chan BestMove
	onBestMove       func(BestMove)

	searchWG  sync.WaitGroup
	searching atomic.Bool

	workers *xsync.Map[int, *workerHandle]
	nextID  atomic.Int64

	nodes *xsync.Counter

	group *errgroup.Group
}

// New creates a coordinator with its shared transposition table and a
// single main worker; SetThreadCount(n) grows the helper pool afterward.
// Equivalent to spec's "new() — create with 1 thread (main) and empty
// helpers", except that WithThreads(n) (if passed) immediately grows the
// pool to n threads as a constructor convenience.
func New(opts ...Option) *Coordinator {
	cfg := NewConfig(opts...)

	c := &Coordinator{
		cfg:     cfg,
		tt:      engine.NewTranspositionTable(cfg.HashMB, engine.WithAgeWeight(cfg.AgeBonus)),
		log:     logging.Get("coordinator"),
		workers: xsync.NewMap[int, *workerHandle](),
		nodes:   xsync.NewCounter(),
		group:   &errgroup.Group{},
	}
	c.cond = sync.NewCond(&c.mu)

	c.spawnWorker(true)
	if cfg.Threads > 1 {
		c.SetThreadCount(cfg.Threads)
	}
	return c
}

// ThreadCount returns the number of persistent search threads (main + helpers).
func (c *Coordinator) ThreadCount() int {
	return c.workers.Size()
}

// TranspositionTable exposes the shared hash table, mainly for tests and an
// eventual UCI "hashfull" report.
func (c *Coordinator) TranspositionTable() *engine.TranspositionTable {
	return c.tt
}

// Nodes returns the total node count aggregated from every worker across
// the most recent search.
func (c *Coordinator) Nodes() uint64 {
	v := c.nodes.Value()
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func (c *Coordinator) spawnWorker(isMain bool) *workerHandle {
	id := int(c.nextID.Add(1)) - 1
	h := &workerHandle{
		id:     id,
		isMain: isMain,
		worker: engine.NewWorker(id, c.tt, c.cfg.Engine, &c.stopFlag),
	}

	// A helper added mid-lifetime (SetThreadCount growing the pool) must
	// not mistake the generation already in flight, or finished, for new
	// work to join: it never had a slot counted in that search's
	// searchWG.Add, so treating it as current would double-report or
	// panic the WaitGroup into negative territory.
	c.mu.Lock()
	h.seenGen = c.generation
	c.mu.Unlock()

	c.workers.Store(id, h)
	c.group.Go(func() error {
		return c.runWorker(h)
	})
	return h
}

// SetThreadCount grows or shrinks the helper pool to n total threads
// (1 main + n-1 helpers). Per spec this is unsafe to call concurrently
// with a running search; callers serialize it themselves (UCI "setoption"
// handling, test setup) the same way the source requires.
func (c *Coordinator) SetThreadCount(n int) {
	if n < 1 {
		n = 1
	}

	c.mu.Lock()
	current := c.workers.Size()
	c.mu.Unlock()

	if n > current {
		for i := current; i < n; i++ {
			c.spawnWorker(false)
		}
		return
	}

	toRetire := current - n
	if toRetire <= 0 {
		return
	}

	var retired []int
	c.workers.Range(func(id int, h *workerHandle) bool {
		if len(retired) >= toRetire {
			return false
		}
		if !h.isMain {
			h.retired.Store(true)
			retired = append(retired, id)
		}
		return true
	})

	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()

	for _, id := range retired {
		c.workers.Delete(id)
	}
}

// Search publishes position and limits to every worker, releases the
// generation latch, and blocks until the main worker reports the
// aggregated best move across all workers.
func (c *Coordinator) Search(pos *board.Position, limits engine.Limits, rootHashes []uint64, ply int) BestMove {
	ch := c.beginSearch(pos, limits, rootHashes, ply, nil)
	return <-ch
}

// UciSearch is Search's non-blocking twin: it publishes the same latch
// release but returns immediately, delivering the final result to onBest
// from the main worker's goroutine once the search converges.
func (c *Coordinator) UciSearch(pos *board.Position, limits engine.Limits, rootHashes []uint64, ply int, onBest func(BestMove)) {
	c.beginSearch(pos, limits, rootHashes, ply, onBest)
}

func (c *Coordinator) beginSearch(pos *board.Position, limits engine.Limits, rootHashes []uint64, ply int, onBest func(BestMove)) chan BestMove {
	if !c.searching.CompareAndSwap(false, true) {
		panic("coordinator: Search called while a search is already running")
	}

	c.stopFlag.Store(false)
	c.nodes.Reset()
	c.tt.NewSearch()

	ch := make(chan BestMove, 1)

	c.mu.Lock()
	c.sharedPos = pos
	c.sharedLimits = limits
	c.sharedPly = ply
	c.sharedRootHashes = rootHashes
	c.resultCh = ch
	c.onBestMove = onBest

	helpers := 0
	c.workers.Range(func(_ int, h *workerHandle) bool {
		if !h.isMain {
			helpers++
		}
		return true
	})
	c.searchWG.Add(helpers)

	c.generation++
	c.cond.Broadcast()
	c.mu.Unlock()

	return ch
}

// Stop requests that the current search unwind to the root and report.
// Idempotent; safe to call with no search running.
func (c *Coordinator) Stop() {
	c.stopFlag.Store(true)
}

// Close drains the coordinator: kills every persistent worker goroutine,
// releases the latch so parked workers observe the kill flag, and joins
// them through the errgroup. A panicking worker in debug mode surfaces
// here as a non-nil error.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.killFlag.Store(true)
	c.cond.Broadcast()
	c.mu.Unlock()

	return c.group.Wait()
}

// runWorker is the body of every persistent search goroutine: park on the
// generation latch, wake to a published (position, limits), search until
// told to stop, report, and park again. A panic during one generation's
// work is recovered per-generation (not around the whole loop) so that a
// single bad search doesn't strand the coordinator: cleanup for that
// generation still runs, and the worker parks again for the next one.
func (c *Coordinator) runWorker(h *workerHandle) error {
	for {
		c.mu.Lock()
		for h.seenGen == c.generation && !c.killFlag.Load() && !h.retired.Load() {
			c.cond.Wait()
		}
		if c.killFlag.Load() || h.retired.Load() {
			c.mu.Unlock()
			return nil
		}
		gen := c.generation
		h.seenGen = gen
		pos := c.sharedPos.Copy()
		limits := c.sharedLimits
		ply := c.sharedPly
		rootHashes := c.sharedRootHashes
		resultCh := c.resultCh
		onBest := c.onBestMove
		c.mu.Unlock()

		if fatal := c.runGeneration(h, pos, limits, ply, rootHashes, resultCh, onBest); fatal != nil {
			return fatal
		}
	}
}

// runGeneration drives one search generation for one worker and recovers a
// panic into the fatal WorkerPanic error only when Config.Debug is set;
// otherwise it logs and the worker simply sits out the rest of this
// generation, ready to rejoin on the next one.
func (c *Coordinator) runGeneration(h *workerHandle, pos *board.Position, limits engine.Limits, ply int, rootHashes []uint64, resultCh chan BestMove, onBest func(BestMove)) (fatal error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("worker %d panicked: %v", h.id, r)
			if h.isMain {
				c.stopFlag.Store(true)
				c.searchWG.Wait()
				c.searching.Store(false)
				best := c.selectBestResult()
				if onBest != nil {
					onBest(best)
				}
				if resultCh != nil {
					resultCh <- best
				}
			} else {
				c.searchWG.Done()
			}
			if c.cfg.Debug {
				fatal = &WorkerPanic{WorkerID: h.id, Value: r}
			}
		}
	}()

	h.worker.Reset()
	h.worker.SetRootHistory(rootHashes)
	h.worker.InitSearch(pos)
	h.lastCounted = 0

	if h.isMain {
		best := c.driveMain(h, pos, limits, ply)
		c.stopFlag.Store(true)
		c.searchWG.Wait()
		c.searching.Store(false)
		if onBest != nil {
			onBest(best)
		}
		if resultCh != nil {
			resultCh <- best
		}
	} else {
		c.driveHelper(h, limits)
		c.searchWG.Done()
	}
	return nil
}

func (c *Coordinator) foldNodes(h *workerHandle) {
	n := h.worker.Nodes()
	if n > h.lastCounted {
		c.nodes.Add(int64(n - h.lastCounted))
		h.lastCounted = n
	}
}

// WorkerPanic reports a search worker panic recovered at the coordinator
// boundary; only ever non-nil from Close when Config.Debug is set.
type WorkerPanic struct {
	WorkerID int
	Value    any
}

func (e *WorkerPanic) Error() string {
	return "coordinator: worker panicked"
}
