package surrealql

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// CBOR tags used by the database RPC protocol.
const (
	TagNone       = 6
	TagRecordID   = 8
	TagUUIDString = 9
	TagDecimal    = 10
	TagDatetime   = 12
	TagUUID       = 37
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Errorf("surrealql: cbor encoder: %w", err))
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Errorf("surrealql: cbor decoder: %w", err))
	}
}

// MarshalCBOR encodes a value with the tags understood by the server.
func MarshalCBOR(v Value) ([]byte, error) {
	return cborEnc.Marshal(ToCBOR(v))
}

// UnmarshalCBOR decodes a single CBOR item into a value.
func UnmarshalCBOR(data []byte) (Value, error) {
	var x any
	if err := cborDec.Unmarshal(data, &x); err != nil {
		return nil, err
	}
	return FromCBOR(x)
}

// CBOREncMode and CBORDecMode expose the codec configuration so that
// envelopes carrying values encode the same way.
func CBOREncMode() cbor.EncMode { return cborEnc }
func CBORDecMode() cbor.DecMode { return cborDec }

// ToCBOR converts a value into the generic tree the cbor encoder accepts.
func ToCBOR(v Value) any {
	switch x := v.(type) {
	case nil, None:
		return cbor.Tag{Number: TagNone, Content: nil}
	case Null:
		return nil
	case Bool:
		return bool(x)
	case Int:
		return int64(x)
	case Float:
		return float64(x)
	case Strand:
		return string(x)
	case Array:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = ToCBOR(item)
		}
		return out
	case Object:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = ToCBOR(item)
		}
		return out
	case Thing:
		return cbor.Tag{Number: TagRecordID, Content: []any{x.Table, ToCBOR(x.ID)}}
	default:
		panic(fmt.Sprintf("surrealql: unknown value variant %T", v))
	}
}

// FromCBOR converts a decoded cbor tree into a value.
func FromCBOR(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(v), nil
	case int64:
		return Int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return Float(float64(v)), nil
		}
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return Strand(v), nil
	case big.Int:
		return fromBigInt(&v)
	case *big.Int:
		return fromBigInt(v)
	case time.Time:
		return Strand(v.UTC().Format(time.RFC3339Nano)), nil
	case []any:
		out := make(Array, len(v))
		for i, item := range v {
			iv, err := FromCBOR(item)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(v))
		for k, item := range v {
			iv, err := FromCBOR(item)
			if err != nil {
				return nil, err
			}
			out[k] = iv
		}
		return out, nil
	case cbor.Tag:
		return fromCBORTag(v)
	default:
		return nil, fmt.Errorf("surrealql: unsupported cbor item %T", x)
	}
}

func fromBigInt(v *big.Int) (Value, error) {
	if !v.IsInt64() {
		return nil, fmt.Errorf("surrealql: integer %s out of range", v.String())
	}
	return Int(v.Int64()), nil
}

func fromCBORTag(t cbor.Tag) (Value, error) {
	switch t.Number {
	case TagNone:
		return None{}, nil
	case TagRecordID:
		switch c := t.Content.(type) {
		case string:
			return ParseThing(c)
		case []any:
			if len(c) != 2 {
				return nil, fmt.Errorf("surrealql: record id tag with %d elements", len(c))
			}
			table, ok := c[0].(string)
			if !ok {
				return nil, fmt.Errorf("surrealql: record id table is %T", c[0])
			}
			id, err := FromCBOR(c[1])
			if err != nil {
				return nil, err
			}
			return NewThing(table, id)
		default:
			return nil, fmt.Errorf("surrealql: record id tag content %T", t.Content)
		}
	case TagUUIDString:
		s, ok := t.Content.(string)
		if !ok {
			return nil, fmt.Errorf("surrealql: uuid tag content %T", t.Content)
		}
		return Strand(s), nil
	case TagUUID:
		b, ok := t.Content.([]byte)
		if !ok {
			return nil, fmt.Errorf("surrealql: uuid tag content %T", t.Content)
		}
		u, err := uuid.FromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("surrealql: uuid tag: %w", err)
		}
		return Strand(u.String()), nil
	case TagDecimal:
		s, ok := t.Content.(string)
		if !ok {
			return nil, fmt.Errorf("surrealql: decimal tag content %T", t.Content)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("surrealql: decimal tag: %w", err)
		}
		return Float(f), nil
	case TagDatetime:
		c, ok := t.Content.([]any)
		if !ok || len(c) == 0 || len(c) > 2 {
			return nil, fmt.Errorf("surrealql: datetime tag content %T", t.Content)
		}
		var parts [2]int64
		for i, item := range c {
			switch n := item.(type) {
			case uint64:
				parts[i] = int64(n)
			case int64:
				parts[i] = n
			default:
				return nil, fmt.Errorf("surrealql: datetime part %T", item)
			}
		}
		return Strand(time.Unix(parts[0], parts[1]).UTC().Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("surrealql: unsupported cbor tag %d", t.Number)
	}
}
