/*
Package eval evaluates small user-authored arithmetic formulas.

PURPOSE:

	The target panel lets operators type their own man-hour formulas.
	Because the text is free-form user input shown on a kiosk, evaluation
	must be impossible to abuse: no calls, no property access, no state
	beyond the supplied numeric variables.

GRAMMAR:

	expr    := term (('+' | '-') term)*
	term    := unary (('*' | '/') unary)*
	unary   := ('+' | '-') unary | primary
	primary := NUMBER | IDENT | '(' expr ')'

SECURITY BOUNDARY:

	The boundary is the grammar itself: a hand-rolled tokenizer and
	recursive-descent parser accept only numbers, identifiers, the four
	arithmetic operators and parentheses. A character whitelist is checked
	up front so anything outside the expected alphabet fails before the
	tokenizer even runs. Identifiers resolve only against the caller's
	variable map.

ERRORS:

	Every failure mode (bad character, syntax error, unknown variable,
	division by zero) wraps ErrInvalidExpression; callers display a
	placeholder rather than an error message.
*/
package eval

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidExpression is wrapped by every evaluation failure. Use with
// errors.Is().
var ErrInvalidExpression = errors.New("invalid expression")

// Evaluate computes expr over the given variable bindings. The result is
// deterministic: same expression and variables always yield the same value.
func Evaluate(expr string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	if err := checkAlphabet(expr); err != nil {
		return decimal.Zero, err
	}
	tokens, err := tokenize(expr)
	if err != nil {
		return decimal.Zero, err
	}
	p := &parser{tokens: tokens, vars: vars}
	value, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	if p.peek().kind != tokenEOF {
		return decimal.Zero, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, p.peek().text)
	}
	return value, nil
}

// checkAlphabet rejects any character outside the whitelisted set before
// tokenizing.
func checkAlphabet(expr string) error {
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '_' || r == '.':
		case r == '+' || r == '-' || r == '*' || r == '/':
		case r == '(' || r == ')':
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		default:
			return fmt.Errorf("%w: illegal character %q", ErrInvalidExpression, r)
		}
	}
	return nil
}

// =============================================================================
// TOKENIZER
// =============================================================================

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenIdent
	tokenOp // + - * /
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{kind: tokenOp, text: string(c)})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			dots := 0
			for i < len(expr) && (expr[i] >= '0' && expr[i] <= '9' || expr[i] == '.') {
				if expr[i] == '.' {
					dots++
				}
				i++
			}
			if dots > 1 || i-start == dots {
				return nil, fmt.Errorf("%w: malformed number %q", ErrInvalidExpression, expr[start:i])
			}
			tokens = append(tokens, token{kind: tokenNumber, text: expr[start:i]})
		case isIdentStart(c):
			start := i
			for i < len(expr) && isIdentPart(expr[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: expr[start:i]})
		default:
			return nil, fmt.Errorf("%w: illegal character %q", ErrInvalidExpression, c)
		}
	}
	return append(tokens, token{kind: tokenEOF}), nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// =============================================================================
// PARSER - Recursive descent over the restricted grammar
// =============================================================================

type parser struct {
	tokens []token
	pos    int
	vars   map[string]decimal.Decimal
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

func (p *parser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for p.peek().kind == tokenOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return decimal.Zero, err
		}
		if op == "+" {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseUnary()
	if err != nil {
		return decimal.Zero, err
	}
	for p.peek().kind == tokenOp && (p.peek().text == "*" || p.peek().text == "/") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		if op == "*" {
			left = left.Mul(right)
		} else {
			if right.IsZero() {
				return decimal.Zero, fmt.Errorf("%w: division by zero", ErrInvalidExpression)
			}
			left = left.Div(right)
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (decimal.Decimal, error) {
	if p.peek().kind == tokenOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		value, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		if op == "-" {
			value = value.Neg()
		}
		return value, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (decimal.Decimal, error) {
	switch t := p.next(); t.kind {
	case tokenNumber:
		value, err := decimal.NewFromString(t.text)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: malformed number %q", ErrInvalidExpression, t.text)
		}
		return value, nil
	case tokenIdent:
		value, ok := p.vars[t.text]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: unknown variable %q", ErrInvalidExpression, t.text)
		}
		return value, nil
	case tokenLParen:
		value, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		if p.next().kind != tokenRParen {
			return decimal.Zero, fmt.Errorf("%w: missing closing parenthesis", ErrInvalidExpression)
		}
		return value, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, t.text)
	}
}
