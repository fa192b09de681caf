// Package chessmodel wraps github.com/corentings/chess/v2 behind the
// opaque rules-engine contract spec.md describes: reset, apply a parsed
// move and get back a StrikeReport, FEN, a rendered ASCII board, and
// side-to-move. Grounded on the original ChessGame::buildStrikeData /
// applyMove / getBoardASCII, and on the corentings/chess/v2 call shapes
// demonstrated in the retrieval pack (UCINotation/AlgebraicNotation
// Decode, move tags, Outcome/Method).
package chessmodel

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/mathieudelehaye/network-chess-game/internal/notation"
)

// StrikeReport is what Apply returns on a legal move.
type StrikeReport struct {
	Piece          string `json:"piece"`
	Color          string `json:"color"`
	CaseSrc        string `json:"case_src"`
	CaseDest       string `json:"case_dest"`
	StrikeNumber   int    `json:"strike_number"`
	IsCapture      bool   `json:"is_capture"`
	CapturedPiece  string `json:"captured_piece,omitempty"`
	CapturedColor  string `json:"captured_color,omitempty"`
	IsCastling     bool   `json:"is_castling"`
	CastlingType   string `json:"castling_type,omitempty"`
	Check          bool   `json:"check"`
	Checkmate      bool   `json:"checkmate"`
	Stalemate      bool   `json:"stalemate"`
}

// ErrInvalidMove is returned by Apply when the move does not resolve to
// a legal move in the current position.
var ErrInvalidMove = fmt.Errorf("invalid move")

// Model is the single shared chess position for the hosted game.
type Model struct {
	game       *nchess.Game
	moveNumber int
}

// New builds a model at the standard starting position.
func New() *Model {
	m := &Model{}
	m.Reset()
	return m
}

// Reset returns the position to the standard starting position and the
// move counter to 1.
func (m *Model) Reset() {
	m.game = nchess.NewGame()
	m.moveNumber = 1
}

// SideToMove reports whose turn it is, as "white" or "black".
func (m *Model) SideToMove() string {
	if m.game.Position().Turn() == nchess.White {
		return "white"
	}
	return "black"
}

// FEN returns the current position in Forsyth-Edwards notation.
func (m *Model) FEN() string {
	return m.game.FEN()
}

// Apply resolves move against the current position and, if legal,
// pushes it and returns the resulting StrikeReport. Strike numbers are
// a monotonically increasing ply count, reset to 1 by Reset.
func (m *Model) Apply(move notation.ParsedMove) (StrikeReport, error) {
	pos := m.game.Position()
	board := pos.Board()

	mv, err := m.decode(pos, move)
	if err != nil {
		return StrikeReport{}, ErrInvalidMove
	}

	report := m.buildStrikeReport(board, pos, mv)

	if err := m.game.Move(mv, nil); err != nil {
		return StrikeReport{}, ErrInvalidMove
	}
	m.moveNumber++

	switch m.game.Method() {
	case nchess.Checkmate:
		report.Checkmate = true
	case nchess.Stalemate:
		report.Stalemate = true
	}
	if !report.Checkmate && mv.HasTag(nchess.Check) {
		report.Check = true
	}

	return report, nil
}

func (m *Model) decode(pos *nchess.Position, move notation.ParsedMove) (*nchess.Move, error) {
	if !move.IsSAN {
		uci := strings.ToLower(move.From + move.To)
		return nchess.UCINotation{}.Decode(pos, uci)
	}
	san := strings.TrimRight(strings.TrimSpace(move.Notation), "+#")
	return nchess.AlgebraicNotation{}.Decode(pos, san)
}

func (m *Model) buildStrikeReport(board *nchess.Board, pos *nchess.Position, mv *nchess.Move) StrikeReport {
	movingPiece := board.Piece(mv.S1())

	report := StrikeReport{
		Piece:        pieceName(movingPiece.Type()),
		Color:        colorName(movingPiece.Color()),
		CaseSrc:      mv.S1().String(),
		CaseDest:     mv.S2().String(),
		StrikeNumber: m.moveNumber,
	}

	captureSquare := mv.S2()
	if mv.HasTag(nchess.EnPassant) {
		file := mv.S2().File()
		rank := mv.S2().Rank()
		if pos.Turn() == nchess.White {
			captureSquare = nchess.NewSquare(file, rank-1)
		} else {
			captureSquare = nchess.NewSquare(file, rank+1)
		}
	}
	if captured := board.Piece(captureSquare); captured != nchess.NoPiece {
		report.IsCapture = true
		report.CapturedPiece = pieceName(captured.Type())
		report.CapturedColor = colorName(captured.Color())
	}

	if mv.HasTag(nchess.KingSideCastle) {
		report.IsCastling = true
		report.CastlingType = "little"
	} else if mv.HasTag(nchess.QueenSideCastle) {
		report.IsCastling = true
		report.CastlingType = "big"
	}

	return report
}

func pieceName(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "king"
	case nchess.Queen:
		return "queen"
	case nchess.Rook:
		return "rook"
	case nchess.Bishop:
		return "bishop"
	case nchess.Knight:
		return "knight"
	case nchess.Pawn:
		return "pawn"
	default:
		return "piece"
	}
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "white"
	}
	return "black"
}

// RenderBoard renders an 8-row, file-labelled ASCII grid. Knights render
// as 'c'/'C' to avoid colliding with a generic wildcard character.
func (m *Model) RenderBoard() string {
	board := m.game.Position().Board()

	var b strings.Builder
	b.WriteString("  a b c d e f g h\n")
	b.WriteString(" ---------------------------------\n")

	for rank := nchess.Rank8; rank >= nchess.Rank1; rank-- {
		fmt.Fprintf(&b, "%d|", int(rank)+1)
		for file := nchess.FileA; file <= nchess.FileH; file++ {
			piece := board.Piece(nchess.NewSquare(file, rank))
			b.WriteByte(' ')
			b.WriteByte(pieceChar(piece))
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func pieceChar(piece nchess.Piece) byte {
	if piece == nchess.NoPiece {
		return ' '
	}

	var ch byte
	switch piece.Type() {
	case nchess.Pawn:
		ch = 'p'
	case nchess.Knight:
		ch = 'c'
	case nchess.Bishop:
		ch = 'b'
	case nchess.Rook:
		ch = 'r'
	case nchess.Queen:
		ch = 'q'
	case nchess.King:
		ch = 'k'
	default:
		ch = '?'
	}

	if piece.Color() == nchess.White {
		return ch - ('a' - 'A')
	}
	return ch
}
