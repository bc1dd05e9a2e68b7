package surrealql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokParam
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	// quoted is set for `backtick` and ⟨angle⟩ identifiers
	quoted bool
	num    Value
	pos    int
}

// ParseError reports malformed query text.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	if e.Pos > 0 {
		return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
	}
	return "parse error: " + e.Msg
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '#' || strings.HasPrefix(l.src[l.pos:], "--") || strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end + 1
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(l.pos, "unterminated comment")
			}
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := l.src[l.pos]
	switch {
	case isIdentByte(c) && !(c >= '0' && c <= '9'):
		word := l.word()
		return token{kind: tokIdent, text: word, pos: start}, nil
	case c >= '0' && c <= '9':
		return l.number(start)
	case c == '$':
		l.pos++
		name := l.word()
		if name == "" {
			return token{}, l.errorf(start, "expected parameter name after $")
		}
		return token{kind: tokParam, text: name, pos: start}, nil
	case c == '\'' || c == '"':
		s, err := l.quoted(rune(c), rune(c))
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, pos: start}, nil
	case c == '`':
		s, err := l.quoted('`', '`')
		if err != nil {
			return token{}, err
		}
		return token{kind: tokIdent, text: s, quoted: true, pos: start}, nil
	case strings.HasPrefix(l.src[l.pos:], "⟨"):
		s, err := l.quoted('⟨', '⟩')
		if err != nil {
			return token{}, err
		}
		return token{kind: tokIdent, text: s, quoted: true, pos: start}, nil
	case strings.IndexByte("{}[](),:;*=-", c) >= 0:
		l.pos++
		return token{kind: tokPunct, text: string(c), pos: start}, nil
	default:
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		return token{}, l.errorf(start, "unexpected character %q", r)
	}
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

// number lexes a run starting with a digit. Words such as 1abc are
// identifiers (valid record ids), 12, 1.5, 1e3 and 2f are numbers.
func (l *lexer) number(start int) (token, error) {
	word := l.word()
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) && isAllDigits(word) {
		l.pos++
		frac := l.word()
		word = word + "." + frac
		// allow an exponent with a sign, e.g. 1.5e-3
		if strings.HasSuffix(frac, "e") || strings.HasSuffix(frac, "E") {
			if l.pos < len(l.src) && (l.src[l.pos] == '-' || l.src[l.pos] == '+') {
				l.pos++
				word += string(l.src[l.pos-1]) + l.word()
			}
		}
	}
	if v, ok := numberWord(word); ok {
		return token{kind: tokNumber, text: word, num: v, pos: start}, nil
	}
	if strings.Contains(word, ".") {
		return token{}, l.errorf(start, "invalid number %q", word)
	}
	return token{kind: tokIdent, text: word, pos: start}, nil
}

// numberWord interprets a word that starts with a digit as a number literal.
func numberWord(word string) (Value, bool) {
	if isAllDigits(word) {
		i, err := strconv.ParseInt(word, 10, 64)
		if err != nil {
			// too large for an int, keep it as a float like the server does
			f, ferr := strconv.ParseFloat(word, 64)
			if ferr != nil {
				return nil, false
			}
			return Float(f), true
		}
		return Int(i), true
	}
	body := strings.TrimSuffix(word, "f")
	if body == "" || !isDigit(body[0]) {
		return nil, false
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		if !(isDigit(c) || c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+') {
			return nil, false
		}
	}
	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return nil, false
	}
	return Float(f), true
}

func (l *lexer) quoted(open, close rune) (string, error) {
	start := l.pos
	l.pos += utf8.RuneLen(open)
	var b strings.Builder
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == utf8.RuneError && size == 1 {
			return "", l.errorf(l.pos, "invalid UTF-8 in quoted text")
		}
		l.pos += size
		switch r {
		case close:
			return b.String(), nil
		case '\\':
			if l.pos >= len(l.src) {
				return "", l.errorf(start, "unterminated escape")
			}
			e, esize := utf8.DecodeRuneInString(l.src[l.pos:])
			l.pos += esize
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteRune(e)
			}
		default:
			b.WriteRune(r)
		}
	}
	return "", l.errorf(start, "unterminated quoted text")
}

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
