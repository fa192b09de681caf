package notation

import (
	"regexp"
	"strings"
)

// simpleMoveRe matches an optional leading piece letter, a file+rank
// square, a separator ("-", "->", or run of spaces), and a second
// file+rank square. Trailing "// comment" text is stripped before
// matching.
var simpleMoveRe = regexp.MustCompile(`^[KQRBNkqrbn]?([a-h][1-8])(?:-|->|\s+)([a-h][1-8])$`)

type simpleCoordParser struct{}

// NewSimpleCoord builds the SimpleCoord notation strategy.
func NewSimpleCoord() Parser {
	return simpleCoordParser{}
}

func (simpleCoordParser) Kind() Kind { return KindSimple }

func (p simpleCoordParser) ParseMove(s string) (ParsedMove, bool) {
	line := stripComment(s)
	line = strings.TrimSpace(line)
	if line == "" {
		return ParsedMove{}, false
	}

	m := simpleMoveRe.FindStringSubmatch(line)
	if m == nil {
		return ParsedMove{}, false
	}

	return ParsedMove{
		Notation: m[1] + "-" + m[2],
		From:     m[1],
		To:       m[2],
		IsSAN:    false,
	}, true
}

// ParseGame parses every non-blank, non-comment-only line as a move. An
// unparseable line aborts parsing entirely only if nothing has parsed
// successfully yet; otherwise parsing stops at the first failure and
// returns what was parsed so far.
func (p simpleCoordParser) ParseGame(s string) ([]ParsedMove, bool) {
	var moves []ParsedMove

	for _, rawLine := range strings.Split(s, "\n") {
		line := strings.TrimSpace(stripComment(rawLine))
		if line == "" {
			continue
		}

		move, ok := p.ParseMove(line)
		if !ok {
			if len(moves) == 0 {
				return nil, false
			}
			return moves, true
		}
		moves = append(moves, move)
	}

	if len(moves) == 0 {
		return nil, false
	}
	return moves, true
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}
