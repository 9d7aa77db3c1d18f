package engine

import (
	"math"
	"sync/atomic"

	"github.com/corvidchess/engine/internal/board"
)

// lmrReductions is a precomputed table of late-move reductions, following
// Stockfish's logarithmic formula: (21.46 * log(depth)) * (21.46 * log(moveCount)) / 1024.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(21.46 * math.Log(float64(d)) * 21.46 * math.Log(float64(m)) / 1024.0)
		}
	}
}

var futilityMargin = []int{0, 200, 300, 500, 700, 900}

// Worker is one Lazy-SMP search thread. It owns its own position copy, move
// ordering state, and pawn/correction caches; it shares only the
// transposition table with its sibling workers, coordinated by
// internal/coordinator.
type Worker struct {
	id int

	pos     *board.Position
	orderer *MoveOrderer

	nodes uint64
	pv    PVTable

	undoStack [MaxPly]board.UndoInfo
	evalStack [MaxPly]int

	posHistoryBuffer [768]uint64
	posHistoryLen    int
	rootPosHashes    []uint64

	tt          *TranspositionTable
	pawnTable   *PawnTable
	corrHistory *CorrectionHistory
	stopFlag    *atomic.Bool

	depth int
}

// WorkerResult is what a worker reports after finishing one iterative
// deepening depth.
type WorkerResult struct {
	WorkerID int
	Depth    int
	Score    int
	Move     board.Move
	PV       []board.Move
	Nodes    uint64
}

// NewWorker creates a search worker backed by the given shared
// transposition table and a private pawn table sized from cfg.
func NewWorker(id int, tt *TranspositionTable, cfg Config, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		id:          id,
		orderer:     NewMoveOrderer(),
		tt:          tt,
		pawnTable:   NewPawnTable(cfg.PawnCacheEntries),
		corrHistory: NewCorrectionHistory(),
		stopFlag:    stopFlag,
	}
}

func (w *Worker) ID() int       { return w.id }
func (w *Worker) Nodes() uint64 { return w.nodes }

// Reset clears per-search state (node count, killers/history) while keeping
// the transposition table and pawn cache warm across searches.
func (w *Worker) Reset() {
	w.nodes = 0
	w.orderer.Clear()
}

// SetRootHistory records the game's position history so repetition
// detection inside the search sees moves played before the search root.
func (w *Worker) SetRootHistory(hashes []uint64) {
	w.rootPosHashes = append(w.rootPosHashes[:0], hashes...)
}

// InitSearch points the worker at a position it owns exclusively for the
// duration of the search (the caller must hand it a dedicated copy).
func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos

	rootLen := len(w.rootPosHashes)
	if rootLen > 640 {
		rootLen = 640
		copy(w.posHistoryBuffer[:rootLen], w.rootPosHashes[len(w.rootPosHashes)-640:])
	} else {
		copy(w.posHistoryBuffer[:rootLen], w.rootPosHashes)
	}
	w.posHistoryBuffer[rootLen] = w.pos.Hash
	w.posHistoryLen = rootLen + 1
}

func (w *Worker) Pos() *board.Position { return w.pos }

// SearchDepth runs negamax for a single iterative-deepening depth and
// returns the best move found at the root (falling back to the first legal
// move if no PV move was recorded and the search was not stopped; a stopped
// search with no PV move returns NoMove).
func (w *Worker) SearchDepth(depth, alpha, beta int) (board.Move, int) {
	w.depth = depth
	score := w.negamax(depth, 0, alpha, beta, board.NoMove)

	var bestMove board.Move
	if w.pv.length[0] > 0 {
		bestMove = w.pv.moves[0][0]
	}
	if bestMove == board.NoMove && !w.stopFlag.Load() {
		if moves := w.pos.GenerateLegalMoves(); moves.Len() > 0 {
			bestMove = moves.Get(0)
		}
	}
	return bestMove, score
}

func (w *Worker) evaluate() int {
	return EvaluateWithPawnTable(w.pos, w.pawnTable)
}

// GetPV returns the principal variation from the most recent SearchDepth call.
func (w *Worker) GetPV() []board.Move {
	return w.pv.slice()
}

func (w *Worker) isDraw() bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	if w.pos.IsInsufficientMaterial() {
		return true
	}
	if w.posHistoryLen > 0 {
		count := 0
		for i := 0; i < w.posHistoryLen; i++ {
			if w.posHistoryBuffer[i] == w.pos.Hash {
				count++
				if count >= 2 {
					return true
				}
			}
		}
	}
	return false
}

// negamax implements alpha-beta search with TT cutoffs, null-move pruning,
// futility pruning, late-move reductions, and check extensions.
func (w *Worker) negamax(depth, ply int, alpha, beta int, prevMove board.Move) int {
	if ply >= MaxPly-1 {
		return w.evaluate()
	}
	if w.nodes&4095 == 0 && w.stopFlag.Load() {
		return 0
	}
	w.nodes++

	w.pv.length[ply] = ply

	if ply > 0 && w.isDraw() {
		return 0
	}

	var ttMove board.Move
	ttPv := false
	ttEntry, found := w.tt.Probe(w.pos.Hash)
	if found {
		ttMove = ttEntry.BestMove
		ttPv = ttEntry.PV
		if int(ttEntry.Depth) >= depth {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag {
			case TTExact:
				if ply == 0 && ttMove != board.NoMove {
					w.pv.moves[0][0] = ttMove
					w.pv.length[0] = 1
				}
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	inCheck := w.pos.InCheck()

	extension := 0
	if inCheck {
		extension = 1
	}

	staticEval := w.evaluate() + w.corrHistory.Get(w.pos)
	w.evalStack[ply] = staticEval

	improving := ply >= 2 && staticEval > w.evalStack[ply-2]

	// Null-move pruning: skip our move entirely and see if the opponent is
	// still in trouble at a reduced depth. Disabled in pawn-only endgames,
	// where zugzwang makes the null-move assumption unsound.
	if !inCheck && depth >= 3 && ply > 0 && !ttPv && w.pos.HasNonPawnMaterial() {
		r := 3 + depth/4
		if r > depth-1 {
			r = depth - 1
		}
		nullUndo := w.pos.MakeNullMove()
		nullScore := -w.negamax(depth-1-r, ply+1, -beta, -beta+1, board.NoMove)
		w.pos.UnmakeNullMove(nullUndo)
		if nullScore >= beta {
			return nullScore
		}
	}

	pruneQuietMoves := false
	if depth <= 5 && !inCheck && ply > 0 {
		if staticEval+futilityMargin[depth] <= alpha {
			pruneQuietMoves = true
		}
	}

	moves := w.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	scores := w.orderer.ScoreMovesWithCounter(w.pos, moves, ply, ttMove, prevMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	movesSearched := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		isCapture := move.IsCapture()
		isPromotion := move.IsPromotion()

		if pruneQuietMoves && !isCapture && !isPromotion && bestMove != board.NoMove {
			continue
		}
		if isCapture && depth <= 7 && !inCheck && movesSearched > 0 {
			if SEE(w.pos, move) < -20*depth {
				continue
			}
		}

		movingPiece := w.pos.PieceAt(move.From())
		if movingPiece == board.NoPiece || movingPiece.Color() != w.pos.SideToMove {
			continue
		}

		w.undoStack[ply] = w.pos.MakeMove(move)
		if !w.undoStack[ply].Valid {
			w.pos.UnmakeMove(move, w.undoStack[ply])
			continue
		}
		w.posHistoryBuffer[w.posHistoryLen] = w.pos.Hash
		w.posHistoryLen++
		movesSearched++

		newDepth := depth - 1 + extension
		var score int

		if movesSearched > 4 && depth >= 3 && !inCheck && !isCapture && !isPromotion {
			d, m := depth, movesSearched
			if d > 63 {
				d = 63
			}
			if m > 63 {
				m = 63
			}
			reduction := lmrReductions[d][m]
			if !improving {
				reduction++
			}
			if move == ttMove {
				reduction -= 2
			}
			if reduction < 1 {
				reduction = 1
			}
			reducedDepth := newDepth - reduction
			if reducedDepth < 1 {
				reducedDepth = 1
			}

			score = -w.negamax(reducedDepth, ply+1, -alpha-1, -alpha, move)
			if score > alpha {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, move)
			}
		} else if movesSearched == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha, move)
		} else {
			score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha, move)
			if score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, move)
			}
		}

		w.posHistoryLen--
		w.pos.UnmakeMove(move, w.undoStack[ply])

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move
			if score > alpha {
				alpha = score
				flag = TTExact
				w.pv.update(ply, move)
			}
		}

		if score >= beta {
			if ply == 0 {
				w.pv.moves[0][0] = bestMove
				w.pv.length[0] = 1
			}
			w.tt.StorePV(w.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove, ttPv)

			if isCapture {
				attackerPiece := w.pos.PieceAt(move.From())
				capturedType := board.Pawn
				if !move.IsEnPassant() {
					if capturedPiece := w.pos.PieceAt(move.To()); capturedPiece != board.NoPiece {
						capturedType = capturedPiece.Type()
					}
				}
				w.orderer.UpdateCaptureHistory(attackerPiece, move.To(), capturedType, depth, true)
			} else {
				w.orderer.UpdateKillers(move, ply)
				w.orderer.UpdateHistory(move, depth, true)
				w.orderer.UpdateCounterMove(prevMove, move, w.pos)
				if prevMove != board.NoMove {
					prevPiece := w.pos.PieceAt(prevMove.To())
					w.orderer.UpdateCountermoveHistory(prevMove, move, prevPiece, movingPiece, depth, true)
				}
			}
			return score
		}
	}

	if bestMove == board.NoMove && moves.Len() > 0 {
		bestMove = moves.Get(0)
		if bestScore == -Infinity {
			bestScore = alpha
		}
	}

	if flag == TTExact && !inCheck && depth >= 2 {
		w.corrHistory.Update(w.pos, bestScore, staticEval, depth)
	}

	w.tt.StorePV(w.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove, flag == TTExact)

	return bestScore
}

// quiescence searches captures (and, while in check, all evasions) to avoid
// the horizon effect at the end of the main search.
func (w *Worker) quiescence(ply int, alpha, beta int) int {
	const maxQuiescencePly = 32
	if ply >= MaxPly || ply > maxQuiescencePly {
		return w.evaluate()
	}
	if w.stopFlag.Load() {
		return 0
	}
	w.nodes++

	inCheck := w.pos.InCheck()

	var standPat, bestValue int
	if inCheck {
		bestValue = -MateScore + ply
		standPat = bestValue
	} else {
		standPat = w.evaluate()
		bestValue = standPat
		if standPat >= beta {
			return beta
		}
		if standPat > alpha {
			alpha = standPat
		}
		if standPat+QueenValue < alpha {
			return alpha
		}
	}

	var moves *board.MoveList
	if inCheck {
		moves = w.pos.GenerateLegalMoves()
	} else {
		moves = w.pos.GenerateCaptures()
	}
	scores := w.orderer.ScoreMoves(w.pos, moves, ply, board.NoMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !inCheck && move.IsCapture() {
			captureValue := qsCaptureValue(w.pos, move)
			if standPat+captureValue+200 < alpha {
				continue
			}
			if SEE(w.pos, move) < 0 {
				continue
			}
		}

		undo := w.pos.MakeMove(move)
		if !undo.Valid {
			w.pos.UnmakeMove(move, undo)
			continue
		}
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.pos.UnmakeMove(move, undo)

		if score > bestValue {
			bestValue = score
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	if inCheck && bestValue == -MateScore+ply && moves.Len() == 0 {
		return -MateScore + ply
	}

	return bestValue
}

func qsCaptureValue(pos *board.Position, move board.Move) int {
	var value int
	if move.IsEnPassant() {
		value = PawnValue
	} else if captured := pos.PieceAt(move.To()); captured != board.NoPiece {
		value = pieceValues[captured.Type()]
	}
	if move.IsPromotion() {
		value += pieceValues[move.Promotion()] - PawnValue
	}
	return value
}
