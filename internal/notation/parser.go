// Package notation implements the move-notation parser strategy: two
// pure, stateless variants (simple coordinate notation and PGN/SAN)
// behind one interface, selected by a factory. Grounded on the original
// server's IGameParser/ParserFactory split, with the ANTLR-generated PGN
// lexer/parser/visitor reproduced by hand as a small tokenizer that strips
// tags, comments and variations and then scans the movetext token by
// token (parser-generator output is out of scope for the rewrite).
package notation

// Kind identifies which parser strategy produced a ParsedMove.
type Kind string

const (
	KindSimple Kind = "simple"
	KindPGN    Kind = "pgn"
)

// ParsedMove is the sum type spec.md describes: either a from/to square
// pair (SimpleCoord) or a SAN token to be resolved by the chess model.
type ParsedMove struct {
	Notation string
	From     string
	To       string
	IsSAN    bool
}

// Parser is the notation strategy interface.
type Parser interface {
	ParseMove(s string) (ParsedMove, bool)
	ParseGame(s string) ([]ParsedMove, bool)
	Kind() Kind
}
