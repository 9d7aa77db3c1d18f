package board

// Legality selects whether GenerateMoves filters its output for legality
// or returns the raw pseudo-legal set (the caller must then consult
// IsLegal before trusting any individual move).
type Legality int

const (
	Legal Legality = iota
	PseudoLegal
)

// GenType selects which subset of the move space GenerateMoves produces.
type GenType int

const (
	GenAll GenType = iota
	GenCaptures
	GenQuiets
	GenQuietChecks
	GenEvasions
	GenNonEvasions
)

type pawnGenMode int

const (
	pawnAll pawnGenMode = iota
	pawnCapturesOnly
	pawnQuietsOnly
)

var allSquares = ^Bitboard(0)

// GenerateMoves is the single move generation entry point. genType selects
// which moves to produce; legality selects whether illegal moves (those
// that leave the mover's own king in check) are filtered out before
// returning. GenAll dispatches to GenEvasions or GenNonEvasions depending
// on whether the side to move is in check, so gen(All) always equals
// gen(Evasions) while in check and gen(NonEvasions) otherwise.
func (p *Position) GenerateMoves(legality Legality, genType GenType) *MoveList {
	ml := NewMoveList()

	effective := genType
	if genType == GenAll {
		if p.Checkers != 0 {
			effective = GenEvasions
		} else {
			effective = GenNonEvasions
		}
	}

	switch effective {
	case GenEvasions:
		p.generateEvasions(ml)
	case GenQuietChecks:
		p.generateQuietChecks(ml)
	case GenCaptures:
		p.generateCapturesOnly(ml)
	case GenQuiets:
		p.generateQuietsOnly(ml)
	case GenNonEvasions:
		p.generateNonEvasions(ml)
	}

	if legality == PseudoLegal {
		return ml
	}
	return p.filterLegalMoves(ml)
}

// GenerateLegalMoves is a convenience wrapper over GenerateMoves(Legal, GenAll).
func (p *Position) GenerateLegalMoves() *MoveList {
	return p.GenerateMoves(Legal, GenAll)
}

// GeneratePseudoLegalMoves is a convenience wrapper over GenerateMoves(PseudoLegal, GenAll).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	return p.GenerateMoves(PseudoLegal, GenAll)
}

// GenerateCaptures is a convenience wrapper over GenerateMoves(Legal, GenCaptures).
func (p *Position) GenerateCaptures() *MoveList {
	return p.GenerateMoves(Legal, GenCaptures)
}

var slidingAndKnight = [4]PieceType{Knight, Bishop, Rook, Queen}

func (p *Position) generateCapturesOnly(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	enemies := p.Occupied[us.Other()]

	p.generatePawnMoves(ml, us, allSquares, pawnCapturesOnly)
	p.generateEnPassantCaptures(ml, us, NoSquare)
	for _, pt := range slidingAndKnight {
		p.generatePieceMoves(ml, us, pt, enemies, occupied)
	}
	p.generateKingMoves(ml, us, enemies)
}

func (p *Position) generateQuietsOnly(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	empty := ^occupied

	p.generatePawnMoves(ml, us, allSquares, pawnQuietsOnly)
	for _, pt := range slidingAndKnight {
		p.generatePieceMoves(ml, us, pt, empty, occupied)
	}
	p.generateKingMoves(ml, us, empty)
	p.generateCastlingMoves(ml, us)
}

func (p *Position) generateNonEvasions(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	own := p.Occupied[us]

	p.generatePawnMoves(ml, us, allSquares, pawnAll)
	p.generateEnPassantCaptures(ml, us, NoSquare)
	for _, pt := range slidingAndKnight {
		p.generatePieceMoves(ml, us, pt, ^own, occupied)
	}
	p.generateKingMoves(ml, us, ^own)
	p.generateCastlingMoves(ml, us)
}

// generateEvasions generates moves that get the side to move out of check:
// king moves to any square it isn't currently occupying, plus (for a single
// checker) captures of the checker or interpositions on the checking ray.
// A double check restricts the side to move to king moves only.
func (p *Position) generateEvasions(ml *MoveList) {
	us := p.SideToMove
	checkers := p.Checkers
	ksq := p.KingSquare[us]
	occupied := p.AllOccupied
	own := p.Occupied[us]

	p.generateKingMoves(ml, us, ^own)

	if checkers.PopCount() > 1 {
		return
	}

	checkerSq := checkers.LSB()
	blockMask := Between(ksq, checkerSq) | SquareBB(checkerSq)

	p.generatePawnMoves(ml, us, blockMask, pawnAll)
	p.generateEnPassantCaptures(ml, us, checkerSq)

	for _, pt := range slidingAndKnight {
		p.generatePieceMoves(ml, us, pt, blockMask & ^own, occupied)
	}
}

// generateQuietChecks generates quiet moves (no captures, no promotions)
// that give check to the opponent. Rather than special-casing discovered
// versus direct checks, it generates all quiets and keeps the ones for
// which GivesCheck is true — simpler to get right than hand-rolled
// discovered-check-candidate bitboards, at the cost of evaluating every
// quiet move once.
func (p *Position) generateQuietChecks(ml *MoveList) {
	if p.Checkers != 0 {
		return
	}

	candidates := NewMoveList()
	p.generateQuietsOnly(candidates)

	for i := 0; i < candidates.Len(); i++ {
		m := candidates.Get(i)
		if p.GivesCheck(m) {
			ml.Add(m)
		}
	}
}

// generatePawnMoves generates pawn moves whose destination lies within
// blockMask (allSquares for unrestricted generation, or the check
// interposition mask under Evasions), split by mode into the quiet
// (single/double push) and tactical (captures, all promotions) subsets.
// En passant is handled separately by generateEnPassantCaptures since its
// capture square is not its destination square.
func (p *Position) generatePawnMoves(ml *MoveList, us Color, blockMask Bitboard, mode pawnGenMode) {
	pawns := p.Pieces[us][Pawn]
	enemies := p.Occupied[us.Other()]
	empty := ^p.AllOccupied

	var push1, push2, attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	push1 &= blockMask
	push2 &= blockMask
	attackL &= blockMask
	attackR &= blockMask

	if mode != pawnCapturesOnly {
		nonPromo := push1 &^ promotionRank
		for nonPromo != 0 {
			to := nonPromo.PopLSB()
			ml.Add(NewMove(Square(int(to)-pushDir), to))
		}
		for push2 != 0 {
			to := push2.PopLSB()
			ml.Add(NewDoublePawnPush(Square(int(to)-2*pushDir), to))
		}
	}

	if mode != pawnQuietsOnly {
		promoPush := push1 & promotionRank
		for promoPush != 0 {
			to := promoPush.PopLSB()
			addPromotions(ml, Square(int(to)-pushDir), to, false)
		}

		nonPromoL := attackL &^ promotionRank
		for nonPromoL != 0 {
			to := nonPromoL.PopLSB()
			ml.Add(NewCapture(Square(int(to)-pushDir+1), to))
		}
		nonPromoR := attackR &^ promotionRank
		for nonPromoR != 0 {
			to := nonPromoR.PopLSB()
			ml.Add(NewCapture(Square(int(to)-pushDir-1), to))
		}

		promoL := attackL & promotionRank
		for promoL != 0 {
			to := promoL.PopLSB()
			addPromotions(ml, Square(int(to)-pushDir+1), to, true)
		}
		promoR := attackR & promotionRank
		for promoR != 0 {
			to := promoR.PopLSB()
			addPromotions(ml, Square(int(to)-pushDir-1), to, true)
		}
	}
}

// generateEnPassantCaptures adds en passant captures. requireCaptureSq, when
// not NoSquare, restricts the move to the one that removes the pawn on that
// square — used by evasion generation, where capturing en passant is only
// a legal evasion if it removes the checking pawn itself.
func (p *Position) generateEnPassantCaptures(ml *MoveList, us Color, requireCaptureSq Square) {
	if p.EnPassant == NoSquare {
		return
	}

	var capturedSq Square
	if us == White {
		capturedSq = p.EnPassant - 8
	} else {
		capturedSq = p.EnPassant + 8
	}
	if requireCaptureSq != NoSquare && capturedSq != requireCaptureSq {
		return
	}

	pawns := p.Pieces[us][Pawn]
	epBB := SquareBB(p.EnPassant)
	var epAttackers Bitboard
	if us == White {
		epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
	} else {
		epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
	}
	for epAttackers != 0 {
		from := epAttackers.PopLSB()
		ml.Add(NewEnPassant(from, p.EnPassant))
	}
}

// addPromotions adds all four promotion moves, quiet or capturing.
func addPromotions(ml *MoveList, from, to Square, capture bool) {
	ml.Add(NewPromotion(from, to, Queen, capture))
	ml.Add(NewPromotion(from, to, Rook, capture))
	ml.Add(NewPromotion(from, to, Bishop, capture))
	ml.Add(NewPromotion(from, to, Knight, capture))
}

// generatePieceMoves generates moves for a knight/bishop/rook/queen whose
// destination lies within target.
func (p *Position) generatePieceMoves(ml *MoveList, us Color, pt PieceType, target Bitboard, occupied Bitboard) {
	enemies := p.Occupied[us.Other()]
	pieces := p.Pieces[us][pt]

	for pieces != 0 {
		from := pieces.PopLSB()
		var attacks Bitboard
		switch pt {
		case Knight:
			attacks = KnightAttacks(from)
		case Bishop:
			attacks = BishopAttacks(from, occupied)
		case Rook:
			attacks = RookAttacks(from, occupied)
		case Queen:
			attacks = QueenAttacks(from, occupied)
		}
		attacks &= target

		for attacks != 0 {
			to := attacks.PopLSB()
			if enemies&SquareBB(to) != 0 {
				ml.Add(NewCapture(from, to))
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}
}

// generateKingMoves generates non-castling king moves whose destination
// lies within target.
func (p *Position) generateKingMoves(ml *MoveList, us Color, target Bitboard) {
	from := p.KingSquare[us]
	enemies := p.Occupied[us.Other()]
	attacks := KingAttacks(from) & target

	for attacks != 0 {
		to := attacks.PopLSB()
		if enemies&SquareBB(to) != 0 {
			ml.Add(NewCapture(from, to))
		} else {
			ml.Add(NewMove(from, to))
		}
	}
}

// generateCastlingMoves generates castling moves. Castling out of check is
// never legal, so this is skipped entirely while in check.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	if p.Checkers != 0 {
		return
	}
	them := us.Other()

	if us == White {
		if p.CastlingRights&WhiteKingSideCastle != 0 {
			if p.AllOccupied&((1<<F1)|(1<<G1)) == 0 {
				if !p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
					ml.Add(NewCastling(E1, G1, true))
				}
			}
		}
		if p.CastlingRights&WhiteQueenSideCastle != 0 {
			if p.AllOccupied&((1<<B1)|(1<<C1)|(1<<D1)) == 0 {
				if !p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(D1, them) && !p.IsSquareAttacked(C1, them) {
					ml.Add(NewCastling(E1, C1, false))
				}
			}
		}
	} else {
		if p.CastlingRights&BlackKingSideCastle != 0 {
			if p.AllOccupied&((1<<F8)|(1<<G8)) == 0 {
				if !p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
					ml.Add(NewCastling(E8, G8, true))
				}
			}
		}
		if p.CastlingRights&BlackQueenSideCastle != 0 {
			if p.AllOccupied&((1<<B8)|(1<<C8)|(1<<D8)) == 0 {
				if !p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(D8, them) && !p.IsSquareAttacked(C8, them) {
					ml.Add(NewCastling(E8, C8, false))
				}
			}
		}
	}
}

// filterLegalMoves filters out illegal moves (those that leave king in check).
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := NewMoveList()

	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if p.IsLegal(m) {
			result.Add(m)
		}
	}

	return result
}

// IsLegal returns true if the move does not leave the mover's own king in
// check. King moves are checked by testing the destination square against
// the attacker set with the king's origin square vacated (so a slider's
// ray through the king's old square is accounted for). En passant gets its
// own check because it removes two pawns from the same rank, which can
// expose the king to a rook or queen neither pawn was blocking alone. Every
// other move is checked against the pinned-piece bitboard: an unpinned
// piece can move anywhere, a pinned piece only along the line to its king.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	ksq := p.KingSquare[us]

	if m.IsCastling() {
		return true
	}

	if from == ksq {
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(to, them, occ) == 0
	}

	if m.IsEnPassant() {
		var capturedSq Square
		if us == White {
			capturedSq = to - 8
		} else {
			capturedSq = to + 8
		}
		occ := (p.AllOccupied &^ SquareBB(from) &^ SquareBB(capturedSq)) | SquareBB(to)
		return p.AttackersByColor(ksq, them, occ) == 0
	}

	pinned := p.PinnedFor(us)
	if pinned&SquareBB(from) == 0 {
		return true
	}
	return Aligned(from, to, ksq)
}

// GivesCheck reports whether making m would leave the opponent's king
// attacked. It plays the move out on a throwaway VBoard rather than the
// full position, so it carries none of MakeMove's hash/undo bookkeeping
// cost and is safe to call speculatively during move ordering or
// quiet-check generation.
func (p *Position) GivesCheck(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	v := NewVBoard(p)
	v.ApplyMove(m, us)
	return v.IsKingAttacked(v.KingSquare[them], us)
}

// MakeMove applies a move to the position and returns undo information.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece:  NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		Checkers:       p.Checkers,
		Valid:          false,
	}

	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	piece := p.PieceAt(from)

	if piece == NoPiece {
		return undo
	}

	undo.Valid = true
	pt := piece.Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.CastlingRights]

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	if m.IsEnPassant() {
		var capturedSq Square
		if us == White {
			capturedSq = to - 8
		} else {
			capturedSq = to + 8
		}
		undo.CapturedPiece = p.removePiece(capturedSq)
		p.Hash ^= zobristPiece[them][Pawn][capturedSq]
		p.PawnKey ^= zobristPiece[them][Pawn][capturedSq]
	} else if captured := p.PieceAt(to); captured != NoPiece {
		undo.CapturedPiece = captured
		p.removePiece(to)
		p.Hash ^= zobristPiece[them][captured.Type()][to]
		if captured.Type() == Pawn {
			p.PawnKey ^= zobristPiece[them][Pawn][to]
		}
	}

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[us][pt][from]
	p.Hash ^= zobristPiece[us][pt][to]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[us][Pawn][from]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promoPt] |= SquareBB(to)
		p.Hash ^= zobristPiece[us][Pawn][to]
		p.Hash ^= zobristPiece[us][promoPt][to]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	}

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if to > from {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookFrom, rookTo)
		p.Hash ^= zobristPiece[us][Rook][rookFrom]
		p.Hash ^= zobristPiece[us][Rook][rookTo]
	}

	if pt == King {
		if us == White {
			p.CastlingRights &^= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			p.CastlingRights &^= BlackKingSideCastle | BlackQueenSideCastle
		}
	}

	if from == A1 || to == A1 {
		p.CastlingRights &^= WhiteQueenSideCastle
	}
	if from == H1 || to == H1 {
		p.CastlingRights &^= WhiteKingSideCastle
	}
	if from == A8 || to == A8 {
		p.CastlingRights &^= BlackQueenSideCastle
	}
	if from == H8 || to == H8 {
		p.CastlingRights &^= BlackKingSideCastle
	}

	p.Hash ^= zobristCastling[p.CastlingRights]

	if m.IsDoublePawnPush() {
		epSquare := Square((int(from) + int(to)) / 2)
		p.EnPassant = epSquare
		p.Hash ^= zobristEnPassant[epSquare.File()]
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}

	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.UpdateCheckers()

	return undo
}

// UnmakeMove undoes a move using the stored undo information.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	them := p.SideToMove
	us := them.Other()
	from := m.From()
	to := m.To()

	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.SideToMove = us

	if us == Black {
		p.FullMoveNumber--
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][promoPt] &^= SquareBB(to)
		p.Pieces[us][Pawn] |= SquareBB(to)
	}

	p.movePiece(to, from)

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if to > from {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookTo, rookFrom)
	}

	if undo.CapturedPiece != NoPiece {
		if m.IsEnPassant() {
			var capturedSq Square
			if us == White {
				capturedSq = to - 8
			} else {
				capturedSq = to + 8
			}
			p.setPiece(undo.CapturedPiece, capturedSq)
		} else {
			p.setPiece(undo.CapturedPiece, to)
		}
	}
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	ml := p.GenerateMoves(PseudoLegal, GenAll)
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegal(ml.Get(i)) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw returns true if the position is a draw (stalemate, 50-move, insufficient material).
func (p *Position) IsDraw() bool {
	if p.IsStalemate() {
		return true
	}
	if p.HalfMoveClock >= 100 {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wKnights := p.Pieces[White][Knight].PopCount()
	wBishops := p.Pieces[White][Bishop].PopCount()
	bKnights := p.Pieces[Black][Knight].PopCount()
	bBishops := p.Pieces[Black][Bishop].PopCount()

	if wKnights+wBishops+bKnights+bBishops == 0 {
		return true
	}
	if wKnights+wBishops <= 1 && bKnights+bBishops == 0 {
		return true
	}
	if bKnights+bBishops <= 1 && wKnights+wBishops == 0 {
		return true
	}

	return false
}
