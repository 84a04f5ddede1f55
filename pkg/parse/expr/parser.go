package expr

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Evaluation errors. All are recoverable; callers fold them into "this
// candidate does not match".
var (
	ErrEmpty            = errors.New("empty expression")
	ErrInvalidCharacter = errors.New("invalid character in expression")
	ErrBadNumber        = errors.New("malformed number")
	ErrUnbalancedParens = errors.New("unbalanced parentheses")
	ErrUnexpectedToken  = errors.New("unexpected token")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrTooDeep          = errors.New("expression nesting too deep")
)

// maxDepth bounds parenthesis nesting so hostile input cannot exhaust the
// stack through recursion.
const maxDepth = 64

// node is a typed expression-tree node evaluated bottom-up.
type node interface {
	eval() (decimal.Decimal, error)
}

// literal is a numeric leaf.
type literal struct {
	value decimal.Decimal
}

func (l literal) eval() (decimal.Decimal, error) {
	return l.value, nil
}

// binary applies one of the four operators to two sub-trees.
type binary struct {
	op    tokenKind
	left  node
	right node
}

func (b binary) eval() (decimal.Decimal, error) {
	left, err := b.left.eval()
	if err != nil {
		return decimal.Zero, err
	}
	right, err := b.right.eval()
	if err != nil {
		return decimal.Zero, err
	}

	switch b.op {
	case tokenPlus:
		return left.Add(right), nil
	case tokenMinus:
		return left.Sub(right), nil
	case tokenStar:
		return left.Mul(right), nil
	case tokenSlash:
		if right.IsZero() {
			return decimal.Zero, ErrDivisionByZero
		}
		return left.Div(right), nil
	}
	return decimal.Zero, fmt.Errorf("%w: operator %s", ErrUnexpectedToken, b.op)
}

// negate flips the sign of its operand (leading unary minus).
type negate struct {
	operand node
}

func (n negate) eval() (decimal.Decimal, error) {
	v, err := n.operand.eval()
	if err != nil {
		return decimal.Zero, err
	}
	return v.Neg(), nil
}

// Evaluate parses and evaluates an arithmetic expression, returning the
// result rounded to exactly two decimal places. Intermediate arithmetic is
// exact decimal throughout; only the final value is quantized.
func Evaluate(input string) (decimal.Decimal, error) {
	tree, err := Parse(input)
	if err != nil {
		return decimal.Zero, err
	}
	result, err := tree.eval()
	if err != nil {
		return decimal.Zero, err
	}
	return result.Round(2), nil
}

// Parse builds the expression tree without evaluating it.
func Parse(input string) (node, error) {
	input = stripSpaces(input)
	if input == "" {
		return nil, ErrEmpty
	}

	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	tree, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		if p.peek().kind == tokenRParen {
			return nil, ErrUnbalancedParens
		}
		return nil, fmt.Errorf("%w: %s at position %d", ErrUnexpectedToken, p.peek().kind, p.peek().pos)
	}
	return tree, nil
}

// parser is a recursive-descent parser over the token stream.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

// parseExpression handles the additive level and the optional leading minus.
// The unary minus is only accepted here, so it can appear at the start of
// the whole expression or directly inside an opening parenthesis.
func (p *parser) parseExpression(depth int) (node, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}

	negated := false
	if p.peek().kind == tokenMinus {
		p.next()
		negated = true
	}

	left, err := p.parseTerm(depth)
	if err != nil {
		return nil, err
	}
	if negated {
		left = negate{operand: left}
	}

	for {
		op := p.peek().kind
		if op != tokenPlus && op != tokenMinus {
			return left, nil
		}
		p.next()

		right, err := p.parseTerm(depth)
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

// parseTerm handles the multiplicative level.
func (p *parser) parseTerm(depth int) (node, error) {
	left, err := p.parseFactor(depth)
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek().kind
		if op != tokenStar && op != tokenSlash {
			return left, nil
		}
		p.next()

		right, err := p.parseFactor(depth)
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

// parseFactor handles literals and parenthesized sub-expressions.
func (p *parser) parseFactor(depth int) (node, error) {
	switch t := p.next(); t.kind {
	case tokenNumber:
		value, err := decimal.NewFromString(t.text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q at position %d", ErrBadNumber, t.text, t.pos)
		}
		return literal{value: value}, nil

	case tokenLParen:
		inner, err := p.parseExpression(depth + 1)
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokenRParen {
			return nil, ErrUnbalancedParens
		}
		return inner, nil

	case tokenEOF:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedToken, tokenEOF)

	default:
		return nil, fmt.Errorf("%w: %s at position %d", ErrUnexpectedToken, t.kind, t.pos)
	}
}
