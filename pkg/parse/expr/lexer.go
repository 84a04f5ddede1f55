package expr

import (
	"fmt"
	"strings"
)

// tokenKind identifies the lexical class of a token.
type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
	tokenEOF
)

func (k tokenKind) String() string {
	switch k {
	case tokenNumber:
		return "number"
	case tokenPlus:
		return "'+'"
	case tokenMinus:
		return "'-'"
	case tokenStar:
		return "'*'"
	case tokenSlash:
		return "'/'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenEOF:
		return "end of expression"
	}
	return "unknown"
}

// token is a single lexical unit with its position in the input.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits an expression candidate into tokens. Whitespace has already
// been removed by the caller; any character outside the expression alphabet
// is an immediate error.
func lex(input string) ([]token, error) {
	tokens := make([]token, 0, len(input))

	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case c == '+':
			tokens = append(tokens, token{tokenPlus, "+", i})
			i++
		case c == '-':
			tokens = append(tokens, token{tokenMinus, "-", i})
			i++
		case c == '*':
			tokens = append(tokens, token{tokenStar, "*", i})
			i++
		case c == '/':
			tokens = append(tokens, token{tokenSlash, "/", i})
			i++
		case c == '(':
			tokens = append(tokens, token{tokenLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenRParen, ")", i})
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			dots := 0
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				if input[i] == '.' {
					dots++
				}
				i++
			}
			lit := input[start:i]
			if dots > 1 || lit == "." {
				return nil, fmt.Errorf("%w: %q at position %d", ErrBadNumber, lit, start)
			}
			tokens = append(tokens, token{tokenNumber, lit, start})
		default:
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidCharacter, string(input[i]), i)
		}
	}

	tokens = append(tokens, token{tokenEOF, "", len(input)})
	return tokens, nil
}

// stripSpaces removes ASCII whitespace from an expression candidate.
// Embedded spaces are common in chat text ("60 * 2") and carry no meaning.
func stripSpaces(s string) string {
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
