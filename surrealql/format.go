package surrealql

import (
	"math"
	"strconv"
	"strings"
)

func (None) String() string { return "NONE" }
func (Null) String() string { return "NULL" }

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (f Float) String() string {
	x := float64(f)
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += "f"
	}
	return s
}

func (s Strand) String() string { return quoteString(string(s)) }

func (a Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			b.WriteString(", ")
		}
		writeValue(&b, v)
	}
	b.WriteByte(']')
	return b.String()
}

func (o Object) String() string {
	if len(o) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{ ")
	for i, k := range o.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		if isSimpleIdent(k) {
			b.WriteString(k)
		} else {
			b.WriteString(quoteString(k))
		}
		b.WriteString(": ")
		writeValue(&b, o[k])
	}
	b.WriteString(" }")
	return b.String()
}

// String renders the record reference so that it parses back to the same
// Thing. Non-trivial table names are backtick escaped and non-trivial string
// ids are wrapped in ⟨⟩.
func (t Thing) String() string {
	var b strings.Builder
	b.WriteString(EscapeIdent(t.Table))
	b.WriteByte(':')
	switch id := t.ID.(type) {
	case Int:
		b.WriteString(id.String())
	case Strand:
		b.WriteString(escapeID(string(id)))
	case Array:
		b.WriteString(id.String())
	case Object:
		b.WriteString(id.String())
	default:
		// NewThing never produces this; render something that cannot parse
		b.WriteString("⟨⟩")
	}
	return b.String()
}

func writeValue(b *strings.Builder, v Value) {
	if v == nil {
		b.WriteString("NONE")
		return
	}
	b.WriteString(v.String())
}

// EscapeIdent returns a table or field name usable verbatim in query text.
func EscapeIdent(s string) string {
	if isSimpleIdent(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('`')
	for _, r := range s {
		if r == '`' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('`')
	return b.String()
}

func escapeID(s string) string {
	if isSimpleIdent(s) {
		return s
	}
	var b strings.Builder
	b.WriteRune('⟨')
	for _, r := range s {
		if r == '⟩' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteRune('⟩')
	return b.String()
}

func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// isSimpleIdent: non-empty, only [A-Za-z0-9_], not all digits, not a keyword
// that would change meaning when read back.
func isSimpleIdent(s string) bool {
	if s == "" {
		return false
	}
	digits := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			digits = false
		default:
			return false
		}
	}
	if digits {
		return false
	}
	if c := s[0]; c >= '0' && c <= '9' {
		// 1e5 or 2f would read back as numbers
		if _, ok := numberWord(s); ok {
			return false
		}
	}
	return !reservedWords[strings.ToUpper(s)]
}

var reservedWords = map[string]bool{
	"NONE":  true,
	"NULL":  true,
	"TRUE":  true,
	"FALSE": true,
}
