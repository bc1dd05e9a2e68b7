package surrealql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// FromJSON decodes a JSON document into a value. Integers that fit int64
// become Int, other numbers Float. Strings are never reinterpreted as
// record references.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("surrealql: trailing data after JSON value")
	}
	return fromJSONAny(x)
}

func fromJSONAny(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("surrealql: invalid number %s", v)
		}
		return Float(f), nil
	case string:
		return Strand(v), nil
	case []any:
		out := make(Array, len(v))
		for i, item := range v {
			iv, err := fromJSONAny(item)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(v))
		for k, item := range v {
			iv, err := fromJSONAny(item)
			if err != nil {
				return nil, err
			}
			out[k] = iv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("surrealql: unsupported JSON item %T", x)
	}
}

// ToJSON encodes a value as JSON. NONE and NULL both become null and record
// references become their string form.
func ToJSON(v Value) ([]byte, error) {
	x, err := toJSONAny(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(x)
}

func toJSONAny(v Value) (any, error) {
	switch x := v.(type) {
	case nil, None, Null:
		return nil, nil
	case Bool:
		return bool(x), nil
	case Int:
		return int64(x), nil
	case Float:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, fmt.Errorf("surrealql: %s has no JSON representation", x.String())
		}
		return float64(x), nil
	case Strand:
		return string(x), nil
	case Array:
		out := make([]any, len(x))
		for i, item := range x {
			iv, err := toJSONAny(item)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	case Object:
		out := make(map[string]any, len(x))
		for k, item := range x {
			iv, err := toJSONAny(item)
			if err != nil {
				return nil, err
			}
			out[k] = iv
		}
		return out, nil
	case Thing:
		return x.String(), nil
	default:
		return nil, fmt.Errorf("surrealql: unknown value variant %T", v)
	}
}
