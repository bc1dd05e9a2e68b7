package surrealql

import (
	"strings"
)

// Statement is one parsed query statement.
type Statement interface {
	isStatement()
}

// DataMode selects how a statement applies its data clause.
type DataMode uint8

const (
	DataNone DataMode = iota
	DataContent
	DataMerge
)

// Data is an optional CONTENT or MERGE clause.
type Data struct {
	Mode DataMode
	Expr Expr
}

type CreateStatement struct {
	What Target
	Data Data
}

type SelectStatement struct {
	What []Target
}

type UpdateStatement struct {
	What []Target
	Data Data
}

// UpsertStatement is UPDATE that creates the records it does not find.
type UpsertStatement struct {
	What []Target
	Data Data
}

// InsertStatement inserts one object or an array of objects into a table.
type InsertStatement struct {
	Into Target
	Data Expr
}

type DeleteStatement struct {
	What []Target
}

type ReturnStatement struct {
	Expr Expr
}

type LetStatement struct {
	Name string
	Expr Expr
}

type UseStatement struct {
	NS string
	DB string
}

func (*CreateStatement) isStatement() {}
func (*SelectStatement) isStatement() {}
func (*UpdateStatement) isStatement() {}
func (*UpsertStatement) isStatement() {}
func (*InsertStatement) isStatement() {}
func (*DeleteStatement) isStatement() {}
func (*ReturnStatement) isStatement() {}
func (*LetStatement) isStatement()    {}
func (*UseStatement) isStatement()    {}

// Target is the subject of a record statement: a whole table, a single
// record, or a parameter that resolves to one of those at execution time.
type Target struct {
	Table string
	// ID is nil when the target is the whole table.
	ID    Value
	Param string
}

// Thing returns the record reference for a single-record target.
func (t Target) Thing() (Thing, bool) {
	if t.ID == nil || t.Param != "" {
		return Thing{}, false
	}
	return Thing{Table: t.Table, ID: t.ID}, true
}

func (t Target) String() string {
	if t.Param != "" {
		return "$" + t.Param
	}
	if th, ok := t.Thing(); ok {
		return th.String()
	}
	return EscapeIdent(t.Table)
}

// Parse splits query text into statements. Empty statements are skipped.
func Parse(src string) ([]Statement, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	var out []Statement
	for {
		for p.isPunct(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.tok.kind == tokEOF {
			return out, nil
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
		if p.tok.kind != tokEOF && !p.isPunct(";") {
			return nil, p.unexpected("end of statement")
		}
	}
}

// ParseTarget parses a table name or record reference, nothing else.
func ParseTarget(src string) (Target, error) {
	p, err := newParser(src)
	if err != nil {
		return Target{}, err
	}
	if p.tok.kind != tokIdent {
		return Target{}, p.unexpected("table or record id")
	}
	t, err := p.target()
	if err != nil {
		return Target{}, err
	}
	if p.tok.kind != tokEOF {
		return Target{}, p.unexpected("end of input")
	}
	return t, nil
}

// ParseThing parses a record reference such as person:tobie.
func ParseThing(src string) (Thing, error) {
	t, err := ParseTarget(src)
	if err != nil {
		return Thing{}, err
	}
	th, ok := t.Thing()
	if !ok {
		return Thing{}, &ParseError{Msg: "expected a record id, found table " + t.Table}
	}
	return th, nil
}

type parser struct {
	lex lexer
	tok token
}

func newParser(src string) (*parser, error) {
	p := &parser{lex: lexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) isKeyword(kw string) bool {
	return p.tok.kind == tokIdent && !p.tok.quoted && strings.EqualFold(p.tok.text, kw)
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.unexpected("'" + s + "'")
	}
	return p.advance()
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.unexpected(kw)
	}
	return p.advance()
}

func (p *parser) unexpected(want string) error {
	found := p.tok.text
	switch p.tok.kind {
	case tokEOF:
		found = "end of input"
	case tokString:
		found = "string " + quoteString(p.tok.text)
	case tokParam:
		found = "$" + p.tok.text
	}
	return p.lex.errorf(p.tok.pos, "expected %s, found %s", want, found)
}

func (p *parser) statement() (Statement, error) {
	if p.tok.kind != tokIdent || p.tok.quoted {
		return nil, p.unexpected("statement")
	}
	kw := strings.ToUpper(p.tok.text)
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch kw {
	case "CREATE":
		what, err := p.target()
		if err != nil {
			return nil, err
		}
		data, err := p.data(false)
		if err != nil {
			return nil, err
		}
		return &CreateStatement{What: what, Data: data}, nil
	case "SELECT":
		if err := p.expectPunct("*"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("FROM"); err != nil {
			return nil, err
		}
		what, err := p.targets()
		if err != nil {
			return nil, err
		}
		return &SelectStatement{What: what}, nil
	case "UPDATE", "UPSERT":
		what, err := p.targets()
		if err != nil {
			return nil, err
		}
		data, err := p.data(true)
		if err != nil {
			return nil, err
		}
		if kw == "UPSERT" {
			return &UpsertStatement{What: what, Data: data}, nil
		}
		return &UpdateStatement{What: what, Data: data}, nil
	case "INSERT":
		if err := p.expectKeyword("INTO"); err != nil {
			return nil, err
		}
		into, err := p.target()
		if err != nil {
			return nil, err
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &InsertStatement{Into: into, Data: e}, nil
	case "DELETE":
		if p.isKeyword("FROM") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		what, err := p.targets()
		if err != nil {
			return nil, err
		}
		return &DeleteStatement{What: what}, nil
	case "RETURN":
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ReturnStatement{Expr: e}, nil
	case "LET":
		if p.tok.kind != tokParam {
			return nil, p.unexpected("parameter")
		}
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &LetStatement{Name: name, Expr: e}, nil
	case "USE":
		return p.use()
	default:
		return nil, p.lex.errorf(p.tok.pos, "unsupported statement %s", kw)
	}
}

func (p *parser) use() (Statement, error) {
	stmt := &UseStatement{}
	for {
		switch {
		case p.isKeyword("NS") || p.isKeyword("NAMESPACE"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.name()
			if err != nil {
				return nil, err
			}
			stmt.NS = name
		case p.isKeyword("DB") || p.isKeyword("DATABASE"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.name()
			if err != nil {
				return nil, err
			}
			stmt.DB = name
		default:
			if stmt.NS == "" && stmt.DB == "" {
				return nil, p.unexpected("NS or DB")
			}
			return stmt, nil
		}
	}
}

func (p *parser) name() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.unexpected("name")
	}
	n := p.tok.text
	return n, p.advance()
}

func (p *parser) data(allowMerge bool) (Data, error) {
	mode := DataNone
	switch {
	case p.isKeyword("CONTENT"):
		mode = DataContent
	case allowMerge && p.isKeyword("MERGE"):
		mode = DataMerge
	default:
		return Data{}, nil
	}
	if err := p.advance(); err != nil {
		return Data{}, err
	}
	e, err := p.expr()
	if err != nil {
		return Data{}, err
	}
	return Data{Mode: mode, Expr: e}, nil
}

func (p *parser) targets() ([]Target, error) {
	var out []Target
	for {
		t, err := p.target()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if !p.isPunct(",") {
			return out, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) target() (Target, error) {
	if p.tok.kind == tokParam {
		t := Target{Param: p.tok.text}
		return t, p.advance()
	}
	if p.tok.kind != tokIdent {
		return Target{}, p.unexpected("table or record id")
	}
	table := p.tok.text
	if err := p.advance(); err != nil {
		return Target{}, err
	}
	if !p.isPunct(":") {
		return Target{Table: table}, nil
	}
	if err := p.advance(); err != nil {
		return Target{}, err
	}
	id, err := p.recordID()
	if err != nil {
		return Target{}, err
	}
	return Target{Table: table, ID: id}, nil
}

func (p *parser) recordID() (Value, error) {
	switch {
	case p.tok.kind == tokNumber:
		i, ok := p.tok.num.(Int)
		if !ok {
			return nil, p.lex.errorf(p.tok.pos, "record id cannot be a float")
		}
		return i, p.advance()
	case p.isPunct("-"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokNumber {
			return nil, p.unexpected("number")
		}
		i, ok := p.tok.num.(Int)
		if !ok {
			return nil, p.lex.errorf(p.tok.pos, "record id cannot be a float")
		}
		return -i, p.advance()
	case p.tok.kind == tokIdent:
		s := Strand(p.tok.text)
		return s, p.advance()
	case p.isPunct("["), p.isPunct("{"):
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		v, err := Eval(e, nil)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, p.unexpected("record id")
	}
}
