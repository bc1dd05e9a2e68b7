// Package surrealql holds the native value model exchanged with the database
// and the small subset of the query language the bridge needs to build and the
// embedded engine needs to execute.
//
// Value is a closed sum type. Every variant lives in this file; code that
// inspects a Value switches over all of them and treats anything else as an
// error.
package surrealql

import (
	"math"
	"sort"
)

type Kind uint8

const (
	KindNone Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindStrand
	KindArray
	KindObject
	KindThing
)

var kindNames = [...]string{
	KindNone:   "none",
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindStrand: "string",
	KindArray:  "array",
	KindObject: "object",
	KindThing:  "thing",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a dynamically typed database value.
type Value interface {
	Kind() Kind
	String() string
	isValue()
}

type (
	// None is the absence of a value (distinct from Null).
	None struct{}
	Null struct{}
	Bool bool
	Int  int64
	// Float is a 64-bit floating point number.
	Float  float64
	Strand string
	Array  []Value
	// Object keys are rendered and encoded in sorted order.
	Object map[string]Value
	// Thing is a record reference: a table name plus an identifier.
	// ID is one of Int, Strand, Array or Object.
	Thing struct {
		Table string
		ID    Value
	}
)

func (None) Kind() Kind   { return KindNone }
func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (Strand) Kind() Kind { return KindStrand }
func (Array) Kind() Kind  { return KindArray }
func (Object) Kind() Kind { return KindObject }
func (Thing) Kind() Kind  { return KindThing }

func (None) isValue()   {}
func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (Strand) isValue() {}
func (Array) isValue()  {}
func (Object) isValue() {}
func (Thing) isValue()  {}

// Keys returns the object keys in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the object.
func (o Object) Clone() Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// NewThing builds a record reference, validating the identifier variant.
func NewThing(table string, id Value) (Thing, error) {
	if table == "" {
		return Thing{}, &ParseError{Msg: "empty table name in record id"}
	}
	switch id.(type) {
	case Int, Strand, Array, Object:
		return Thing{Table: table, ID: id}, nil
	case nil:
		return Thing{}, &ParseError{Msg: "missing record id"}
	default:
		return Thing{}, &ParseError{Msg: "record id cannot be of type " + id.Kind().String()}
	}
}

// IsNone reports whether v is NONE or a nil interface.
func IsNone(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(None)
	return ok
}

// Equal compares two values structurally. Int and Float never compare equal
// to each other.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return IsNone(a) && IsNone(b)
	}
	switch x := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Float:
		y, ok := b.(Float)
		if !ok {
			return false
		}
		if math.IsNaN(float64(x)) && math.IsNaN(float64(y)) {
			return true
		}
		return x == y
	case Strand:
		y, ok := b.(Strand)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y, ok := b.(Object)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case Thing:
		y, ok := b.(Thing)
		return ok && x.Table == y.Table && Equal(x.ID, y.ID)
	default:
		return false
	}
}
