package notation

import "strings"

// NewParser builds a Parser by name, case-insensitively, defaulting to
// SimpleCoord for anything unrecognised, grounded on the original
// server's ParserFactory::parseParserType.
func NewParser(name string) Parser {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pgn":
		return NewPGN()
	case "simple", "simple_notation", "":
		return NewSimpleCoord()
	default:
		return NewSimpleCoord()
	}
}
