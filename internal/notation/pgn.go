package notation

import (
	"regexp"
	"strings"
)

// sanTokenRe matches a single SAN move token without its check/mate
// suffix. ParseMove strips the suffix before matching so both "Nf3" and
// "Nf3+" round-trip the same way.
var sanTokenRe = regexp.MustCompile(`^(O-O-O|O-O|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](=[QRBN])?)$`)

var moveNumberRe = regexp.MustCompile(`^\d+\.+`)

var terminationMarkers = map[string]bool{
	"1-0": true, "0-1": true, "1/2-1/2": true, "*": true,
}

type pgnParser struct{}

// NewPGN builds the PGN/SAN notation strategy.
func NewPGN() Parser {
	return pgnParser{}
}

func (pgnParser) Kind() Kind { return KindPGN }

func (p pgnParser) ParseMove(s string) (ParsedMove, bool) {
	token := strings.TrimSpace(s)
	token = strings.TrimRight(token, "+#")
	if token == "" || !sanTokenRe.MatchString(token) {
		return ParsedMove{}, false
	}
	return ParsedMove{Notation: strings.TrimSpace(s), IsSAN: true}, true
}

// ParseGame strips the tag section, brace comments, and parenthesised
// variations, then walks the remaining movetext token by token. As with
// SimpleCoord, an unparseable token aborts to failure only if nothing
// has parsed yet; otherwise it stops and returns the moves found so far.
func (p pgnParser) ParseGame(s string) ([]ParsedMove, bool) {
	movetext := stripTags(s)
	movetext = stripBraceComments(movetext)
	movetext = stripVariations(movetext)

	var moves []ParsedMove
	for _, rawToken := range strings.Fields(movetext) {
		token := moveNumberRe.ReplaceAllString(rawToken, "")
		if token == "" {
			continue
		}
		if terminationMarkers[token] {
			break
		}

		move, ok := p.ParseMove(token)
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

func stripTags(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func stripBraceComments(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripVariations(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
