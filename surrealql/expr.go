package surrealql

import (
	"strings"
)

// Expr is a value expression: a literal, a parameter, or an array/object
// built from expressions.
type Expr interface {
	isExpr()
}

type Literal struct {
	Value Value
}

type Param struct {
	Name string
}

type ArrayExpr []Expr

type Field struct {
	Key   string
	Value Expr
}

type ObjectExpr []Field

func (Literal) isExpr()    {}
func (Param) isExpr()      {}
func (ArrayExpr) isExpr()  {}
func (ObjectExpr) isExpr() {}

// Vars maps parameter names (without $) to values.
type Vars map[string]Value

// Eval resolves an expression. Unknown parameters evaluate to NONE.
func Eval(e Expr, vars Vars) (Value, error) {
	switch x := e.(type) {
	case Literal:
		return x.Value, nil
	case Param:
		if v, ok := vars[x.Name]; ok && v != nil {
			return v, nil
		}
		return None{}, nil
	case ArrayExpr:
		out := make(Array, len(x))
		for i, item := range x {
			v, err := Eval(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case ObjectExpr:
		out := make(Object, len(x))
		for _, f := range x {
			v, err := Eval(f.Value, vars)
			if err != nil {
				return nil, err
			}
			out[f.Key] = v
		}
		return out, nil
	default:
		return nil, &ParseError{Msg: "unsupported expression"}
	}
}

// ParseValue parses a single literal value, e.g. { name: 'Tobie' }.
func ParseValue(src string) (Value, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.unexpected("end of input")
	}
	return Eval(e, nil)
}

func (p *parser) expr() (Expr, error) {
	switch p.tok.kind {
	case tokNumber:
		v := p.tok.num
		return Literal{Value: v}, p.advance()
	case tokString:
		v := Strand(p.tok.text)
		return Literal{Value: v}, p.advance()
	case tokParam:
		name := p.tok.text
		return Param{Name: name}, p.advance()
	case tokIdent:
		return p.identExpr()
	case tokPunct:
		switch p.tok.text {
		case "-":
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokNumber {
				return nil, p.unexpected("number")
			}
			var v Value
			switch n := p.tok.num.(type) {
			case Int:
				v = -n
			case Float:
				v = -n
			default:
				return nil, p.unexpected("number")
			}
			return Literal{Value: v}, p.advance()
		case "[":
			return p.arrayExpr()
		case "{":
			return p.objectExpr()
		}
	}
	return nil, p.unexpected("expression")
}

func (p *parser) identExpr() (Expr, error) {
	if !p.tok.quoted {
		var v Value
		switch strings.ToUpper(p.tok.text) {
		case "NONE":
			v = None{}
		case "NULL":
			v = Null{}
		case "TRUE":
			v = Bool(true)
		case "FALSE":
			v = Bool(false)
		}
		if v != nil {
			return Literal{Value: v}, p.advance()
		}
	}
	t, err := p.target()
	if err != nil {
		return nil, err
	}
	th, ok := t.Thing()
	if !ok {
		return nil, p.lex.errorf(p.tok.pos, "unexpected identifier %s in expression", t.Table)
	}
	return Literal{Value: th}, nil
}

func (p *parser) arrayExpr() (Expr, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	out := ArrayExpr{}
	for !p.isPunct("]") {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isPunct("]") {
			return nil, p.unexpected("',' or ']'")
		}
	}
	return out, p.advance()
}

func (p *parser) objectExpr() (Expr, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	out := ObjectExpr{}
	for !p.isPunct("}") {
		var key string
		switch p.tok.kind {
		case tokIdent, tokString, tokNumber:
			key = p.tok.text
		default:
			return nil, p.unexpected("object key")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		out = append(out, Field{Key: key, Value: e})
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isPunct("}") {
			return nil, p.unexpected("',' or '}'")
		}
	}
	return out, p.advance()
}
