package formula

import "fmt"

// Node is one node of a parsed formula
type Node interface{ node() }

// LiteralNode holds a string, number, boolean or null literal
type LiteralNode struct {
	Value interface{}
}

// IdentNode references a record field
type IdentNode struct {
	Name string
}

// CallNode invokes a built-in function
type CallNode struct {
	Name string
	Args []Node
}

// BinaryNode applies an infix operator
type BinaryNode struct {
	Op    string
	Left  Node
	Right Node
}

// UnaryNode is unary minus
type UnaryNode struct {
	Op      string
	Operand Node
}

func (*LiteralNode) node() {}
func (*IdentNode) node()   {}
func (*CallNode) node()    {}
func (*BinaryNode) node()  {}
func (*UnaryNode) node()   {}

// ParseFormula parses a formula expression.
//
// The grammar deliberately has no operator-precedence table: operators chain
// strictly left to right at a single level, an inherited constraint of the
// formula language. Mixed-operator formulas must parenthesize explicitly.
func ParseFormula(input string) (Node, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &formulaParser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected token '%s' at position %d", p.peek().text, p.peek().pos)
	}
	return node, nil
}

type formulaParser struct {
	tokens []token
	pos    int
}

func (p *formulaParser) peek() token { return p.tokens[p.pos] }

func (p *formulaParser) advance() token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// parseExpr is operand (op operand)*, left-associative
func (p *formulaParser) parseExpr() (Node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOperator {
		op := p.advance().text
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *formulaParser) parseOperand() (Node, error) {
	tok := p.peek()

	switch tok.kind {
	case tokOperator:
		if tok.text == "-" {
			p.advance()
			operand, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			return &UnaryNode{Op: "-", Operand: operand}, nil
		}
		return nil, fmt.Errorf("unexpected operator '%s' at position %d", tok.text, tok.pos)

	case tokLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at position %d", p.peek().pos)
		}
		p.advance()
		return inner, nil

	case tokString:
		p.advance()
		return &LiteralNode{Value: tok.text}, nil

	case tokNumber:
		p.advance()
		var f float64
		if _, err := fmt.Sscanf(tok.text, "%f", &f); err != nil {
			return nil, fmt.Errorf("malformed number '%s'", tok.text)
		}
		return &LiteralNode{Value: f}, nil

	case tokIdent:
		p.advance()
		switch tok.text {
		case "true", "TRUE", "True":
			return &LiteralNode{Value: true}, nil
		case "false", "FALSE", "False":
			return &LiteralNode{Value: false}, nil
		case "null", "NULL", "Null":
			return &LiteralNode{Value: nil}, nil
		}
		if p.peek().kind == tokLParen {
			p.advance()
			var args []Node
			if p.peek().kind != tokRParen {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.peek().kind != tokComma {
						break
					}
					p.advance()
				}
			}
			if p.peek().kind != tokRParen {
				return nil, fmt.Errorf("expected ')' after arguments of %s", tok.text)
			}
			p.advance()
			return &CallNode{Name: tok.text, Args: args}, nil
		}
		return &IdentNode{Name: tok.text}, nil

	case tokEOF:
		return nil, fmt.Errorf("unexpected end of formula")
	}

	return nil, fmt.Errorf("unexpected token '%s' at position %d", tok.text, tok.pos)
}
