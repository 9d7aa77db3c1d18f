package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-15: flag (see the Flag* constants)
//
// The flag field distinguishes every move shape the generator and search
// need to reason about without touching the board: quiet move, double pawn
// push, the two castling sides, capture, en passant capture, and the four
// promotion pieces both quiet and capturing.
type Move uint16

// Move flags. The high bit marks promotions, the next bit marks captures
// (set on FlagCapture/FlagEnPassant and on every promotion-capture), mirroring
// the layout used across the open-source bitboard engines this scheme is
// drawn from.
const (
	FlagQuiet uint16 = iota
	FlagDoublePawnPush
	FlagCastleKing
	FlagCastleQueen
	FlagCapture
	FlagEnPassant
	_ // 6, 7 unused
	_
	FlagPromoKnight
	FlagPromoBishop
	FlagPromoRook
	FlagPromoQueen
	FlagPromoCaptureKnight
	FlagPromoCaptureBishop
	FlagPromoCaptureRook
	FlagPromoCaptureQueen
)

const (
	fromMask = 0x003F
	toShift  = 6
	toMask   = 0x0FC0
	flagMask = 0xF000
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

var promoPieceByFlag = [16]PieceType{
	FlagPromoKnight:        Knight,
	FlagPromoBishop:        Bishop,
	FlagPromoRook:          Rook,
	FlagPromoQueen:         Queen,
	FlagPromoCaptureKnight: Knight,
	FlagPromoCaptureBishop: Bishop,
	FlagPromoCaptureRook:   Rook,
	FlagPromoCaptureQueen:  Queen,
}

var promoFlagByPiece = map[PieceType][2]uint16{
	Knight: {FlagPromoKnight, FlagPromoCaptureKnight},
	Bishop: {FlagPromoBishop, FlagPromoCaptureBishop},
	Rook:   {FlagPromoRook, FlagPromoCaptureRook},
	Queen:  {FlagPromoQueen, FlagPromoCaptureQueen},
}

func newMoveFlag(from, to Square, flag uint16) Move {
	return Move(from) | Move(to)<<toShift | Move(flag)<<12
}

// NewMove creates a quiet, non-special move.
func NewMove(from, to Square) Move {
	return newMoveFlag(from, to, FlagQuiet)
}

// NewCapture creates a non-en-passant, non-promotion capture.
func NewCapture(from, to Square) Move {
	return newMoveFlag(from, to, FlagCapture)
}

// NewDoublePawnPush creates a two-square pawn advance.
func NewDoublePawnPush(from, to Square) Move {
	return newMoveFlag(from, to, FlagDoublePawnPush)
}

// NewPromotion creates a promotion move, capturing if capture is true.
func NewPromotion(from, to Square, promo PieceType, capture bool) Move {
	flags := promoFlagByPiece[promo]
	idx := 0
	if capture {
		idx = 1
	}
	return newMoveFlag(from, to, flags[idx])
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return newMoveFlag(from, to, FlagEnPassant)
}

// NewCastling creates a castling move (king's movement) for the given side.
// kingside selects the king-rook (O-O), otherwise the queen-rook (O-O-O).
func NewCastling(from, to Square, kingside bool) Move {
	if kingside {
		return newMoveFlag(from, to, FlagCastleKing)
	}
	return newMoveFlag(from, to, FlagCastleQueen)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & fromMask)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m & toMask) >> toShift)
}

// Flag returns the move flag.
func (m Move) Flag() uint16 {
	return uint16(m>>12) & 0xF
}

// Promotion returns the promotion piece type (only valid if IsPromotion() is true).
func (m Move) Promotion() PieceType {
	return promoPieceByFlag[m.Flag()]
}

// IsPromotion returns true if this is a promotion move (capturing or not).
func (m Move) IsPromotion() bool {
	return m.Flag() >= FlagPromoKnight
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	f := m.Flag()
	return f == FlagCastleKing || f == FlagCastleQueen
}

// IsKingsideCastle returns true for an O-O move.
func (m Move) IsKingsideCastle() bool {
	return m.Flag() == FlagCastleKing
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsCapture returns true if this move captures a piece, including en
// passant and promotion-captures. Unlike the naive board-lookup approach,
// this is decided entirely from the flag, so it is safe to call after the
// move has already been made and the target square's contents changed.
func (m Move) IsCapture() bool {
	f := m.Flag()
	return f == FlagCapture || f == FlagEnPassant || (f >= FlagPromoCaptureKnight && f <= FlagPromoCaptureQueen)
}

// IsDoublePawnPush returns true for a two-square pawn advance.
func (m Move) IsDoublePawnPush() bool {
	return m.Flag() == FlagDoublePawnPush
}

// IsQuiet returns true if this is not a capture or promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if m.IsPromotion() {
		promoChars := map[PieceType]byte{Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q'}
		s += string(promoChars[m.Promotion()])
	}

	return s
}

// ParseMove parses a UCI format move string against the given position,
// which supplies the context (piece on from-square, en passant target,
// occupancy) needed to classify the move.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, &ParseError{Reason: fmt.Sprintf("move string too short: %q", s), Offset: 0}
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, &ParseError{Reason: err.Error(), Offset: 0}
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, &ParseError{Reason: err.Error(), Offset: 2}
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, &ParseError{Reason: fmt.Sprintf("no piece at %s", from), Offset: 0}
	}
	pt := piece.Type()
	capture := !pos.IsEmpty(to)

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, &ParseError{Reason: fmt.Sprintf("invalid promotion piece: %c", s[4]), Offset: 4}
		}
		return checkLegal(pos, NewPromotion(from, to, promo, capture))
	}

	if pt == King && abs(int(to)-int(from)) == 2 {
		return checkLegal(pos, NewCastling(from, to, to > from))
	}

	if pt == Pawn && to == pos.EnPassant && pos.EnPassant != NoSquare {
		return checkLegal(pos, NewEnPassant(from, to))
	}

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		return checkLegal(pos, NewDoublePawnPush(from, to))
	}

	var candidate Move
	switch {
	case capture:
		candidate = NewCapture(from, to)
	default:
		candidate = NewMove(from, to)
	}
	return checkLegal(pos, candidate)
}

// checkLegal rejects a syntactically well-formed candidate move that the
// position's actual legal move generator would not produce: blocked by an
// intervening piece, pinned, castling through check, or any other shape
// ParseMove's square/flag inference cannot see on its own.
func checkLegal(pos *Position, candidate Move) (Move, error) {
	if pos.GenerateLegalMoves().Contains(candidate) {
		return candidate, nil
	}
	return NoMove, &IllegalMoveError{Move: candidate}
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo stores information needed to undo a move.
type UndoInfo struct {
	CapturedPiece  Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	Checkers       Bitboard
	KingSquare     [2]Square      // Not filled by MakeMove; UnmakeMove reverses the move instead
	Pieces         [2][6]Bitboard // Not filled by MakeMove
	Occupied       [2]Bitboard    // Not filled by MakeMove
	AllOccupied    Bitboard       // Not filled by MakeMove
	Valid          bool           // True if move was actually applied
}
