package engine

import (
	"sync/atomic"

	"github.com/corvidchess/engine/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// TTEntry is the logical, unpacked view of a transposition table slot.
type TTEntry struct {
	BestMove board.Move
	Score    int16
	Depth    int8
	Flag     TTFlag
	Age      uint8
	PV       bool // true if stored from an exact-score node, or from a fail-high at a node whose probed entry had PV set
}

// Slots are stored packed into a single uint64 (data) plus a second uint64
// (key) that is the upper half of the position's Zobrist hash XORed with
// data, so a torn concurrent read can be detected cheaply: load both words,
// re-derive the hash from data, and compare against the stored key.
//
// data layout, low to high:
//
//	bits  0-15  BestMove
//	bits 16-31  Score (two's complement)
//	bits 32-39  Depth
//	bits 40-41  Flag
//	bits 42-49  Age
//	bit  50     PV
const (
	dataMoveShift  = 0
	dataScoreShift = 16
	dataDepthShift = 32
	dataFlagShift  = 40
	dataAgeShift   = 42
	dataPVShift    = 50
)

func packEntry(e TTEntry) uint64 {
	data := uint64(e.BestMove)<<dataMoveShift |
		uint64(uint16(e.Score))<<dataScoreShift |
		uint64(uint8(e.Depth))<<dataDepthShift |
		uint64(e.Flag)<<dataFlagShift |
		uint64(e.Age)<<dataAgeShift
	if e.PV {
		data |= 1 << dataPVShift
	}
	return data
}

func unpackEntry(data uint64) TTEntry {
	return TTEntry{
		BestMove: board.Move(uint16(data >> dataMoveShift)),
		Score:    int16(uint16(data >> dataScoreShift)),
		Depth:    int8(uint8(data >> dataDepthShift)),
		Flag:     TTFlag(uint8(data>>dataFlagShift) & 0x3),
		Age:      uint8(data>>dataAgeShift) & 0xFF,
		PV:       data&(1<<dataPVShift) != 0,
	}
}

// ttSlot is one lock-free, self-verifying table slot: two atomic words, no
// mutex. A writer stores data then key = upperHash^data; a reader loads key
// then data and accepts the slot only if key^data still matches the hash it
// is probing for. A write interleaved with a read fails that check and is
// treated as a miss rather than handed back as corrupted bytes.
type ttSlot struct {
	key  atomic.Uint64
	data atomic.Uint64
}

func (s *ttSlot) load(upperHash uint64) (TTEntry, bool) {
	key := s.key.Load()
	data := s.data.Load()
	if key^data != upperHash {
		return TTEntry{}, false
	}
	return unpackEntry(data), true
}

func (s *ttSlot) store(upperHash uint64, e TTEntry) {
	data := packEntry(e)
	s.data.Store(data)
	s.key.Store(upperHash ^ data)
}

// clusterSize is the number of slots probed per hash bucket. Clustering
// trades a little extra probing for a much lower effective collision rate
// than one entry per bucket.
const clusterSize = 3

type ttCluster [clusterSize]ttSlot

// TranspositionTable is a lock-free hash table for storing search results,
// safe for concurrent Probe/Store from any number of Lazy-SMP workers
// without external synchronization. Entries are never moved or resized
// after construction, only overwritten in place.
type TranspositionTable struct {
	clusters  []ttCluster
	mask      uint64
	age       atomic.Uint32
	ageWeight int

	hits   atomic.Uint64
	probes atomic.Uint64
}

// DefaultAgeWeight is the replacement-score weight given to an entry's
// search generation when no explicit weight is configured.
const DefaultAgeWeight = 32

// TTOption configures a TranspositionTable at construction.
type TTOption func(*TranspositionTable)

// WithAgeWeight overrides the replacement score's age weight (see StorePV).
func WithAgeWeight(weight int) TTOption {
	return func(tt *TranspositionTable) {
		tt.ageWeight = weight
	}
}

// NewTranspositionTable creates a transposition table sized to approximately
// sizeMB megabytes, rounded down to a power-of-two number of clusters.
func NewTranspositionTable(sizeMB int, opts ...TTOption) *TranspositionTable {
	clusterBytes := uint64(clusterSize * 16) // two uint64 words per slot
	numClusters := (uint64(sizeMB) * 1024 * 1024) / clusterBytes
	numClusters = roundDownToPowerOf2(numClusters)
	if numClusters == 0 {
		numClusters = 1
	}

	tt := &TranspositionTable{
		clusters:  make([]ttCluster, numClusters),
		mask:      numClusters - 1,
		ageWeight: DefaultAgeWeight,
	}
	for _, opt := range opts {
		opt(tt)
	}
	return tt
}

func roundDownToPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe looks up a position by full Zobrist hash. Returns the entry and true
// if a verified match was found anywhere in the hash's cluster.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)
	cluster := &tt.clusters[hash&tt.mask]
	upper := hash >> 32
	for i := range cluster {
		if e, ok := cluster[i].load(upper); ok {
			tt.hits.Add(1)
			return e, true
		}
	}
	return TTEntry{}, false
}

// Store saves a position's search result into its cluster. The slot
// replaced is the one with the lowest age*ageWeight+depth score (see
// StorePV), which biases eviction toward stale-generation and shallow
// entries, so a shallow quiescence probe does not evict a deep line from
// the current search.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	tt.StorePV(hash, depth, score, flag, bestMove, false)
}

// StorePV is Store with an explicit PV flag. The search sets it when the
// node returned an exact (non-bounded) score, and on a fail-high store it
// carries over the PV flag of the entry probed at that node.
func (tt *TranspositionTable) StorePV(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move, pv bool) {
	cluster := &tt.clusters[hash&tt.mask]
	upper := hash >> 32
	age := uint8(tt.age.Load())

	// Replacement score is entry.age*ageWeight + entry.depth; the lowest
	// score in the cluster is evicted. Within one generation the shallowest
	// entry goes first. A stale-generation entry has a smaller age term and
	// so is evicted before a current-generation entry unless it is deeper by
	// ageWeight plies or more, with ageWeight controlling how much extra
	// depth an entry left behind by the previous search needs to be kept.
	victim := 0
	victimScore := int(^uint(0) >> 1) // max int
	for i := range cluster {
		existing, ok := cluster[i].load(upper)
		if !ok {
			victim = i
			break
		}
		replaceScore := int(existing.Age)*tt.ageWeight + int(existing.Depth)
		if replaceScore < victimScore {
			victimScore = replaceScore
			victim = i
		}
	}

	if bestMove == board.NoMove {
		if existing, ok := cluster[victim].load(upper); ok {
			bestMove = existing.BestMove
		}
	}

	cluster[victim].store(upper, TTEntry{
		BestMove: bestMove,
		Score:    int16(score),
		Depth:    int8(depth),
		Flag:     flag,
		Age:      age,
		PV:       pv,
	})
}

// NewSearch bumps the generation counter so Store begins preferring to
// evict entries from the previous search.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear zeroes every slot in the table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.clusters {
		for j := range tt.clusters[i] {
			tt.clusters[i][j].key.Store(0)
			tt.clusters[i][j].data.Store(0)
		}
	}
	tt.age.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull returns the permille (parts per thousand) of the table occupied
// by entries from the current generation, sampled from the first 1000
// clusters.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if uint64(sampleSize) > uint64(len(tt.clusters)) {
		sampleSize = len(tt.clusters)
	}
	age := uint8(tt.age.Load())

	used := 0
	for i := 0; i < sampleSize; i++ {
		for j := range tt.clusters[i] {
			data := tt.clusters[i][j].data.Load()
			if data == 0 {
				continue
			}
			if unpackEntry(data).Age == age {
				used++
			}
		}
	}
	return (used * 1000) / (sampleSize * clusterSize)
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of clusters in the table.
func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.clusters))
}

// AdjustScoreFromTT converts a mate score stored relative to the TT-hit ply
// back to a score relative to the search root.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a root-relative mate score to one relative to the
// ply it is being stored at, so the same entry is reusable from other plies.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
