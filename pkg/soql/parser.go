package soql

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/openforce/backend/pkg/errors"
)

// Parse tokenizes and parses a query string into its AST.
// Any malformed input surfaces as a *errors.ParseError carrying the query.
func Parse(input string) (*Query, error) {
	tokens, err := newScanner(input).scan()
	if err != nil {
		return nil, apperrors.NewParseError(input, err.Error())
	}
	p := &parser{tokens: tokens, query: input}
	q, err := p.parseQuery(false)
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != TokenEOF {
		return nil, p.errorf("unexpected %s after end of query", p.peek())
	}
	return q, nil
}

var aggregateFuncs = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

var dateLiterals = map[string]bool{
	"TODAY": true, "YESTERDAY": true, "TOMORROW": true,
	"THIS_WEEK": true, "LAST_WEEK": true, "NEXT_WEEK": true,
	"THIS_MONTH": true, "LAST_MONTH": true, "NEXT_MONTH": true,
	"THIS_YEAR": true, "LAST_YEAR": true, "NEXT_YEAR": true,
}

// IsDateLiteral reports whether the name is a relative date literal,
// including the counted LAST_N_DAYS:n and NEXT_N_DAYS:n forms
func IsDateLiteral(name string) bool {
	upper := strings.ToUpper(name)
	return dateLiterals[upper] || isCountedLiteral(upper)
}

func isCountedLiteral(upper string) bool {
	return strings.HasPrefix(upper, "LAST_N_DAYS:") || strings.HasPrefix(upper, "NEXT_N_DAYS:")
}

type parser struct {
	tokens []Token
	pos    int
	query  string
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return apperrors.NewParseError(p.query, fmt.Sprintf(format, args...))
}

func (p *parser) peek() Token { return p.tokens[p.pos] }

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// peekKeyword reports whether the next token is the given keyword
func (p *parser) peekKeyword(kw string) bool {
	tok := p.peek()
	return tok.Kind == TokenIdent && strings.EqualFold(tok.Text, kw)
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.peekKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.errorf("expected %s, found %s", kw, p.peek())
	}
	return nil
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	if p.peek().Kind != kind {
		return Token{}, p.errorf("expected %s, found %s", kind, p.peek())
	}
	return p.advance(), nil
}

// parseQuery parses SELECT ... FROM ... with optional clauses. Nested child
// subqueries set nested=true: they may not carry their own subqueries
// (child-of-child is unsupported) and stop at the enclosing ')'.
func (p *parser) parseQuery(nested bool) (*Query, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	q := &Query{}
	if err := p.parseFieldList(q, nested); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if strings.Contains(from.Text, ".") {
		return nil, p.errorf("invalid FROM target '%s'", from.Text)
	}
	q.From = from.Text

	if p.acceptKeyword("WHERE") {
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		q.Where = expr
	}

	if p.peekKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			field, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			q.GroupBy = append(q.GroupBy, field.Text)
			if p.peek().Kind != TokenComma {
				break
			}
			p.advance()
		}
		q.IsAggregate = true
	}

	if p.peekKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			field, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			clause := OrderClause{Field: field.Text, Direction: "ASC"}
			if p.acceptKeyword("ASC") {
				clause.Direction = "ASC"
			} else if p.acceptKeyword("DESC") {
				clause.Direction = "DESC"
			}
			q.OrderBy = append(q.OrderBy, clause)
			if p.peek().Kind != TokenComma {
				break
			}
			p.advance()
		}
	}

	if p.acceptKeyword("LIMIT") {
		n, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}

	if p.acceptKeyword("OFFSET") {
		n, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		q.Offset = &n
	}

	return q, nil
}

func (p *parser) parseInt() (int, error) {
	tok, err := p.expect(TokenNumber)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(tok.Text)
	if convErr != nil || n < 0 {
		return 0, p.errorf("expected a non-negative integer, found '%s'", tok.Text)
	}
	return n, nil
}

func (p *parser) parseFieldList(q *Query, nested bool) error {
	for {
		if err := p.parseProjection(q, nested); err != nil {
			return err
		}
		if p.peek().Kind != TokenComma {
			return nil
		}
		p.advance()
	}
}

func (p *parser) parseProjection(q *Query, nested bool) error {
	tok := p.peek()

	// Child subquery: ( SELECT ... FROM RelationshipName )
	if tok.Kind == TokenLParen {
		if nested {
			return p.errorf("child subqueries may not be nested inside child subqueries")
		}
		p.advance()
		inner, err := p.parseQuery(true)
		if err != nil {
			return err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return err
		}
		q.Fields = append(q.Fields, &Subquery{Query: inner})
		return nil
	}

	if tok.Kind != TokenIdent {
		return p.errorf("expected a field, found %s", tok)
	}

	upper := strings.ToUpper(tok.Text)
	if aggregateFuncs[upper] && p.tokens[p.pos+1].Kind == TokenLParen {
		p.advance() // function name
		p.advance() // (
		if p.peek().Kind == TokenRParen {
			p.advance()
			if upper != "COUNT" {
				return p.errorf("%s requires a field argument", upper)
			}
			// Bare COUNT() must be the only projection
			if len(q.Fields) > 0 {
				return p.errorf("COUNT() cannot be combined with other fields")
			}
			q.IsCount = true
			return nil
		}
		field, err := p.expect(TokenIdent)
		if err != nil {
			return err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return err
		}
		q.Fields = append(q.Fields, &AggregateField{Func: upper, Field: field.Text})
		q.IsAggregate = true
		return nil
	}

	if q.IsCount {
		return p.errorf("COUNT() cannot be combined with other fields")
	}

	p.advance()
	if !strings.Contains(tok.Text, ".") {
		q.Fields = append(q.Fields, &FieldRef{Name: tok.Text})
		return nil
	}

	segments := strings.Split(tok.Text, ".")
	if len(segments) != 2 {
		return p.errorf("relationship path '%s' exceeds the supported single hop", tok.Text)
	}
	q.Fields = append(q.Fields, &RelationshipField{
		Relationship: segments[0],
		Field:        segments[1],
	})
	return nil
}

// WHERE grammar, binding tightest first: NOT > AND > OR

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		// NOT IN belongs to the comparison, not the boolean grammar
		if p.peekKeyword("AND") {
			p.advance()
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			left = &LogicalExpr{Op: "AND", Left: left, Right: right}
			continue
		}
		return left, nil
	}
}

func (p *parser) parseNot() (Expr, error) {
	if p.peekKeyword("NOT") && !p.nextIsInList() {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: inner}, nil
	}
	return p.parseCondition()
}

// nextIsInList guards against consuming the NOT of a trailing "NOT IN"
func (p *parser) nextIsInList() bool {
	next := p.tokens[p.pos+1]
	return next.Kind == TokenIdent && strings.EqualFold(next.Text, "IN")
}

func (p *parser) parseCondition() (Expr, error) {
	if p.peek().Kind == TokenLParen {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	}

	field, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if parts := strings.Split(field.Text, "."); len(parts) > 2 {
		return nil, p.errorf("relationship path '%s' exceeds the supported single hop", field.Text)
	}

	negated := false
	if p.acceptKeyword("NOT") {
		negated = true
		if !p.peekKeyword("IN") && !p.peekKeyword("LIKE") {
			return nil, p.errorf("expected IN or LIKE after NOT, found %s", p.peek())
		}
	}

	switch {
	case p.acceptKeyword("LIKE"):
		val, err := p.expect(TokenString)
		if err != nil {
			return nil, err
		}
		cmp := &Comparison{Field: field.Text, Op: "LIKE", Value: Value{Kind: ValueString, Text: val.Text}}
		if negated {
			return &NotExpr{Expr: cmp}, nil
		}
		return cmp, nil

	case p.acceptKeyword("IN"):
		return p.parseInRHS(field.Text, negated)

	default:
		if negated {
			return nil, p.errorf("expected IN or LIKE after NOT, found %s", p.peek())
		}
		op, err := p.expect(TokenOperator)
		if err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &Comparison{Field: field.Text, Op: op.Text, Value: val}, nil
	}
}

func (p *parser) parseInRHS(field string, negated bool) (Expr, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	// IN (SELECT ...) becomes an in_subquery node, evaluated at execution
	if p.peekKeyword("SELECT") {
		inner, err := p.parseQuery(true)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		if len(inner.Fields) != 1 {
			return nil, p.errorf("IN subquery must select exactly one field")
		}
		return &InSubquery{Field: field, Negated: negated, Query: inner}, nil
	}

	var list []Value
	for {
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list = append(list, val)
		if p.peek().Kind != TokenComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	op := "IN"
	if negated {
		op = "NOT IN"
	}
	return &Comparison{Field: field, Op: op, Value: Value{Kind: ValueList, List: list}}, nil
}

func (p *parser) parseValue() (Value, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenString:
		p.advance()
		return Value{Kind: ValueString, Text: tok.Text}, nil
	case TokenNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return Value{}, p.errorf("malformed number '%s'", tok.Text)
		}
		return Value{Kind: ValueNumber, Number: f}, nil
	case TokenDate:
		p.advance()
		return Value{Kind: ValueDate, Text: tok.Text}, nil
	case TokenIdent:
		upper := strings.ToUpper(tok.Text)
		switch {
		case upper == "TRUE":
			p.advance()
			return Value{Kind: ValueBool, Bool: true}, nil
		case upper == "FALSE":
			p.advance()
			return Value{Kind: ValueBool, Bool: false}, nil
		case upper == "NULL":
			p.advance()
			return Value{Kind: ValueNull}, nil
		case dateLiterals[upper] || isCountedLiteral(upper):
			p.advance()
			return Value{Kind: ValueDateLiteral, Text: upper}, nil
		}
	}
	return Value{}, p.errorf("expected a literal value, found %s", tok)
}
