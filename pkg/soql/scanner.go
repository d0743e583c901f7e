package soql

import (
	"fmt"
	"strings"
)

// scanner tokenizes a query string. Identifiers keep their dotted relationship
// paths intact (Account.Name stays one token); date and datetime literals are
// recognized as their own kind so the parser never confuses them with numbers.
type scanner struct {
	input string
	pos   int
}

func newScanner(input string) *scanner {
	return &scanner{input: input}
}

// scan returns all tokens, or an error describing the first malformed one
func (s *scanner) scan() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

func (s *scanner) next() (Token, error) {
	s.skipWhitespace()
	if s.pos >= len(s.input) {
		return Token{Kind: TokenEOF, Pos: s.pos}, nil
	}

	start := s.pos
	c := s.input[s.pos]

	switch {
	case c == '(':
		s.pos++
		return Token{Kind: TokenLParen, Text: "(", Pos: start}, nil
	case c == ')':
		s.pos++
		return Token{Kind: TokenRParen, Text: ")", Pos: start}, nil
	case c == ',':
		s.pos++
		return Token{Kind: TokenComma, Text: ",", Pos: start}, nil
	case c == '\'':
		return s.scanString()
	case c == '=':
		s.pos++
		return Token{Kind: TokenOperator, Text: "=", Pos: start}, nil
	case c == '!':
		if s.peekAt(s.pos+1) == '=' {
			s.pos += 2
			return Token{Kind: TokenOperator, Text: "!=", Pos: start}, nil
		}
		return Token{}, fmt.Errorf("unexpected character '!' at position %d", start)
	case c == '<':
		if s.peekAt(s.pos+1) == '=' {
			s.pos += 2
			return Token{Kind: TokenOperator, Text: "<=", Pos: start}, nil
		}
		if s.peekAt(s.pos+1) == '>' {
			s.pos += 2
			return Token{Kind: TokenOperator, Text: "!=", Pos: start}, nil
		}
		s.pos++
		return Token{Kind: TokenOperator, Text: "<", Pos: start}, nil
	case c == '>':
		if s.peekAt(s.pos+1) == '=' {
			s.pos += 2
			return Token{Kind: TokenOperator, Text: ">=", Pos: start}, nil
		}
		s.pos++
		return Token{Kind: TokenOperator, Text: ">", Pos: start}, nil
	case c >= '0' && c <= '9':
		return s.scanNumberOrDate()
	case c == '-' && s.peekAt(s.pos+1) >= '0' && s.peekAt(s.pos+1) <= '9':
		return s.scanNumberOrDate()
	case isIdentStart(c):
		return s.scanIdent()
	}

	return Token{}, fmt.Errorf("unexpected character '%c' at position %d", c, start)
}

func (s *scanner) scanString() (Token, error) {
	start := s.pos
	s.pos++ // opening quote
	var sb strings.Builder
	for s.pos < len(s.input) {
		c := s.input[s.pos]
		if c == '\\' && s.pos+1 < len(s.input) {
			next := s.input[s.pos+1]
			if next == '\'' || next == '\\' {
				sb.WriteByte(next)
				s.pos += 2
				continue
			}
		}
		if c == '\'' {
			s.pos++
			return Token{Kind: TokenString, Text: sb.String(), Pos: start}, nil
		}
		sb.WriteByte(c)
		s.pos++
	}
	return Token{}, fmt.Errorf("unterminated string literal at position %d", start)
}

// scanNumberOrDate distinguishes 42 / -3.14 from 2024-01-15 and
// 2024-01-15T10:30:00Z, which appear unquoted in the query language.
func (s *scanner) scanNumberOrDate() (Token, error) {
	start := s.pos
	if s.input[s.pos] == '-' {
		s.pos++
	}
	for s.pos < len(s.input) && isDateOrNumberChar(s.input[s.pos]) {
		s.pos++
	}
	text := s.input[start:s.pos]
	if isDateText(text) {
		return Token{Kind: TokenDate, Text: text, Pos: start}, nil
	}
	if !isNumberText(text) {
		return Token{}, fmt.Errorf("malformed numeric literal '%s' at position %d", text, start)
	}
	return Token{Kind: TokenNumber, Text: text, Pos: start}, nil
}

func (s *scanner) scanIdent() (Token, error) {
	start := s.pos
	for s.pos < len(s.input) {
		c := s.input[s.pos]
		if isIdentChar(c) || c == '.' {
			s.pos++
			continue
		}
		break
	}
	text := s.input[start:s.pos]
	if strings.HasPrefix(text, ".") || strings.HasSuffix(text, ".") || strings.Contains(text, "..") {
		return Token{}, fmt.Errorf("malformed identifier '%s' at position %d", text, start)
	}
	// LAST_N_DAYS:7 style literals carry their day count in the token
	if s.pos < len(s.input) && s.input[s.pos] == ':' && isCountedDateLiteral(text) {
		s.pos++
		digits := s.pos
		for s.pos < len(s.input) && s.input[s.pos] >= '0' && s.input[s.pos] <= '9' {
			s.pos++
		}
		if s.pos == digits {
			return Token{}, fmt.Errorf("date literal '%s' requires a day count at position %d", text, start)
		}
		text = s.input[start:s.pos]
	}
	return Token{Kind: TokenIdent, Text: text, Pos: start}, nil
}

// isCountedDateLiteral matches the date literals that take a :n day count
func isCountedDateLiteral(text string) bool {
	upper := strings.ToUpper(text)
	return upper == "LAST_N_DAYS" || upper == "NEXT_N_DAYS"
}

func (s *scanner) skipWhitespace() {
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) peekAt(i int) byte {
	if i < len(s.input) {
		return s.input[i]
	}
	return 0
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDateOrNumberChar(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == ':' ||
		c == 'T' || c == 'Z' || c == '+'
}

func isNumberText(text string) bool {
	dots := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.':
			dots++
			if dots > 1 {
				return false
			}
		case c == '-' && i == 0:
		default:
			return false
		}
	}
	return len(text) > 0 && text != "-"
}

// isDateText matches YYYY-MM-DD with an optional time component
func isDateText(text string) bool {
	if len(text) < 10 {
		return false
	}
	for i := 0; i < 10; i++ {
		c := text[i]
		if i == 4 || i == 7 {
			if c != '-' {
				return false
			}
		} else if c < '0' || c > '9' {
			return false
		}
	}
	return len(text) == 10 || text[10] == 'T'
}
