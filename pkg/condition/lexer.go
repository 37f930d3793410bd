package condition

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokTrue
	tokFalse
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError reports a condition that does not match the grammar.
type SyntaxError struct {
	Text string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("condition %q: %s at offset %d", e.Text, e.Msg, e.Pos)
}

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"true":  tokTrue,
	"false": tokFalse,
}

func lex(text string) ([]token, error) {
	var tokens []token
	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case r == '=' || r == '!' || r == '<' || r == '>':
			start := i
			i++
			if i < len(runes) && runes[i] == '=' {
				i++
			}
			op := string(runes[start:i])
			if op == "=" || op == "!" {
				return nil, &SyntaxError{Text: text, Pos: start, Msg: fmt.Sprintf("unexpected %q", op)}
			}
			tokens = append(tokens, token{tokOp, op, start})
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			i++
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, token{tokNumber, string(runes[start:i]), start})
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(runes) && (runes[i] == '_' || runes[i] == '-' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			word := string(runes[start:i])
			if kind, ok := keywords[strings.ToLower(word)]; ok {
				tokens = append(tokens, token{kind, word, start})
			} else {
				tokens = append(tokens, token{tokIdent, word, start})
			}
		default:
			return nil, &SyntaxError{Text: text, Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(runes)})
	return tokens, nil
}
