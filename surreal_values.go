package surreal

import (
	"github.com/harry-xi/surrealdb.java/client"
	"github.com/harry-xi/surrealdb.java/surrealql"
)

// ResponseSize returns the number of statement results in a response.
func (b *Bridge) ResponseSize(r Handle) (int, error) {
	l, err := b.reg.Borrow(Ref{Handle: r, Kind: KindResponse})
	if err != nil {
		return -1, b.fail("responseSize", err)
	}
	defer l.Release()
	return l.Get(r).(*client.Response).Len(), nil
}

// ResponseTake returns a value handle for the result of statement i, or the
// statement's error.
func (b *Bridge) ResponseTake(r Handle, i int) (Handle, error) {
	const op = "responseTake"
	l, err := b.reg.Borrow(Ref{Handle: r, Kind: KindResponse})
	if err != nil {
		return 0, b.fail(op, err)
	}
	defer l.Release()
	v, err := takeStatement(l.Get(r).(*client.Response), i)
	if err != nil {
		return 0, b.fail(op, err)
	}
	out, err := b.register(KindValue, v)
	if err != nil {
		return 0, b.fail(op, err)
	}
	return out, nil
}

// ResponseRelease releases a response handle.
func (b *Bridge) ResponseRelease(r Handle) (bool, error) {
	if err := b.reg.Release(r, KindResponse); err != nil {
		return false, b.fail("responseRelease", err)
	}
	return true, nil
}

func (b *Bridge) newValue(op string, v surrealql.Value, err error) (Handle, error) {
	if err != nil {
		return 0, b.fail(op, err)
	}
	h, err := b.register(KindValue, v)
	if err != nil {
		return 0, b.fail(op, err)
	}
	return h, nil
}

// ValueFromJSON builds a value from a JSON document.
func (b *Bridge) ValueFromJSON(data []byte) (Handle, error) {
	const op = "valueFromJson"
	s, err := hostString(data)
	if err != nil {
		return 0, b.fail(op, err)
	}
	v, err := surrealql.FromJSON([]byte(s))
	if err != nil {
		err = &Error{Category: CategoryMarshal, Op: op, Detail: "invalid JSON", Cause: err}
	}
	return b.newValue(op, v, err)
}

// ValueParse builds a value from a SurrealQL literal such as
// { name: 'Tobie', friend: person:jaime }.
func (b *Bridge) ValueParse(text []byte) (Handle, error) {
	const op = "valueParse"
	s, err := hostString(text)
	if err != nil {
		return 0, b.fail(op, err)
	}
	v, err := surrealql.ParseValue(s)
	if err != nil {
		err = &Error{Category: CategoryMarshal, Op: op, Detail: "invalid literal", Cause: err}
	}
	return b.newValue(op, v, err)
}

// ThingNew builds a record id from a table name and the id value behind id.
func (b *Bridge) ThingNew(table []byte, id Handle) (Handle, error) {
	const op = "thingNew"
	tb, err := hostString(table)
	if err != nil {
		return 0, b.fail(op, err)
	}
	l, err := b.reg.Borrow(Ref{Handle: id, Kind: KindValue})
	if err != nil {
		return 0, b.fail(op, err)
	}
	defer l.Release()
	th, err := surrealql.NewThing(tb, l.Get(id).(surrealql.Value))
	if err != nil {
		return 0, b.fail(op, &Error{Category: CategoryMarshal, Op: op, Detail: "invalid record id", Cause: err})
	}
	return b.newValue(op, th, nil)
}

// ThingParse builds a record id from text such as person:tobie.
func (b *Bridge) ThingParse(text []byte) (Handle, error) {
	const op = "thingParse"
	s, err := hostString(text)
	if err != nil {
		return 0, b.fail(op, err)
	}
	th, err := surrealql.ParseThing(s)
	if err != nil {
		return 0, b.fail(op, &Error{Category: CategoryMarshal, Op: op, Detail: "invalid record id", Cause: err})
	}
	return b.newValue(op, th, nil)
}

func (b *Bridge) value(op string, v Handle) (surrealql.Value, error) {
	l, err := b.reg.Borrow(Ref{Handle: v, Kind: KindValue})
	if err != nil {
		return nil, b.fail(op, err)
	}
	// values are immutable once registered
	defer l.Release()
	return l.Get(v).(surrealql.Value), nil
}

// ValueToJSON renders a value as JSON. Record ids become strings.
func (b *Bridge) ValueToJSON(v Handle) (string, error) {
	const op = "valueToJson"
	val, err := b.value(op, v)
	if err != nil {
		return "", err
	}
	out, err := surrealql.ToJSON(val)
	if err != nil {
		return "", b.fail(op, &Error{Category: CategoryMarshal, Op: op, Cause: err})
	}
	return string(out), nil
}

// ValueString renders a value as a SurrealQL literal.
func (b *Bridge) ValueString(v Handle) (string, error) {
	val, err := b.value("valueString", v)
	if err != nil {
		return "", err
	}
	return val.String(), nil
}

// ValueKind returns the variant of a value.
func (b *Bridge) ValueKind(v Handle) (surrealql.Kind, error) {
	val, err := b.value("valueKind", v)
	if err != nil {
		return 0, err
	}
	return val.Kind(), nil
}

// ValueRelease releases a value handle.
func (b *Bridge) ValueRelease(v Handle) (bool, error) {
	if err := b.reg.Release(v, KindValue); err != nil {
		return false, b.fail("valueRelease", err)
	}
	return true, nil
}
