package formula

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOperator
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits a formula into tokens. Operators cover the full surface of
// the grammar: arithmetic, & concatenation, comparisons and && / ||.
func tokenize(input string) ([]token, error) {
	var tokens []token
	pos := 0
	for pos < len(input) {
		c := input[pos]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			pos++
			continue

		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", pos})
			pos++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", pos})
			pos++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", pos})
			pos++

		case c == '\'' || c == '"':
			quote := c
			start := pos
			pos++
			text := make([]byte, 0, 16)
			for pos < len(input) && input[pos] != quote {
				if input[pos] == '\\' && pos+1 < len(input) {
					pos++
				}
				text = append(text, input[pos])
				pos++
			}
			if pos >= len(input) {
				return nil, fmt.Errorf("unterminated string at position %d", start)
			}
			pos++ // closing quote
			tokens = append(tokens, token{tokString, string(text), start})

		case c >= '0' && c <= '9':
			start := pos
			dots := 0
			for pos < len(input) && (isDigit(input[pos]) || input[pos] == '.') {
				if input[pos] == '.' {
					dots++
				}
				pos++
			}
			if dots > 1 {
				return nil, fmt.Errorf("malformed number at position %d", start)
			}
			tokens = append(tokens, token{tokNumber, input[start:pos], start})

		case isLetter(c) || c == '_':
			start := pos
			for pos < len(input) && (isLetter(input[pos]) || isDigit(input[pos]) || input[pos] == '_') {
				pos++
			}
			tokens = append(tokens, token{tokIdent, input[start:pos], start})

		case c == '&':
			if pos+1 < len(input) && input[pos+1] == '&' {
				tokens = append(tokens, token{tokOperator, "&&", pos})
				pos += 2
			} else {
				tokens = append(tokens, token{tokOperator, "&", pos})
				pos++
			}
		case c == '|':
			if pos+1 < len(input) && input[pos+1] == '|' {
				tokens = append(tokens, token{tokOperator, "||", pos})
				pos += 2
			} else {
				return nil, fmt.Errorf("unexpected character '|' at position %d", pos)
			}
		case c == '=':
			if pos+1 < len(input) && input[pos+1] == '=' {
				tokens = append(tokens, token{tokOperator, "==", pos})
				pos += 2
			} else {
				tokens = append(tokens, token{tokOperator, "=", pos})
				pos++
			}
		case c == '!':
			if pos+1 < len(input) && input[pos+1] == '=' {
				tokens = append(tokens, token{tokOperator, "!=", pos})
				pos += 2
			} else {
				return nil, fmt.Errorf("unexpected character '!' at position %d", pos)
			}
		case c == '<':
			if pos+1 < len(input) && input[pos+1] == '=' {
				tokens = append(tokens, token{tokOperator, "<=", pos})
				pos += 2
			} else {
				tokens = append(tokens, token{tokOperator, "<", pos})
				pos++
			}
		case c == '>':
			if pos+1 < len(input) && input[pos+1] == '=' {
				tokens = append(tokens, token{tokOperator, ">=", pos})
				pos += 2
			} else {
				tokens = append(tokens, token{tokOperator, ">", pos})
				pos++
			}
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{tokOperator, string(c), pos})
			pos++

		default:
			return nil, fmt.Errorf("unexpected character '%c' at position %d", c, pos)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: pos})
	return tokens, nil
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
