package surrealql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{name: "none", value: None{}, want: "NONE"},
		{name: "null", value: Null{}, want: "NULL"},
		{name: "bool", value: Bool(true), want: "true"},
		{name: "int", value: Int(-42), want: "-42"},
		{name: "float", value: Float(1.5), want: "1.5"},
		{name: "whole float", value: Float(2), want: "2f"},
		{name: "string", value: Strand("it's"), want: `'it\'s'`},
		{name: "array", value: Array{Int(1), Strand("a")}, want: "[1, 'a']"},
		{name: "empty object", value: Object{}, want: "{}"},
		{
			name:  "object sorted keys",
			value: Object{"name": Strand("Alice"), "age": Int(3), "first name": Strand("A")},
			want:  "{ age: 3, 'first name': 'A', name: 'Alice' }",
		},
		{name: "thing", value: Thing{Table: "person", ID: Strand("tobie")}, want: "person:tobie"},
		{name: "thing int id", value: Thing{Table: "person", ID: Int(1)}, want: "person:1"},
		{name: "thing numeric string id", value: Thing{Table: "person", ID: Strand("1")}, want: "person:⟨1⟩"},
		{name: "thing spaced id", value: Thing{Table: "person", ID: Strand("tobie jaime")}, want: "person:⟨tobie jaime⟩"},
		{name: "thing escaped table", value: Thing{Table: "my table", ID: Int(1)}, want: "`my table`:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.value.String())
		})
	}
}

func TestThingStringRoundTrip(t *testing.T) {
	ids := []Value{
		Int(1),
		Int(-7),
		Strand("tobie"),
		Strand("tobie jaime"),
		Strand("123"),
		Strand("a⟩b"),
		Strand("none"),
		Strand("1e5"),
		Array{Int(1), Strand("x")},
		Object{"a": Int(1)},
	}
	for _, table := range []string{"person", "my table", "a`b"} {
		for _, id := range ids {
			thing, err := NewThing(table, id)
			require.NoError(t, err)
			parsed, err := ParseThing(thing.String())
			require.NoError(t, err, "parsing %s", thing.String())
			require.True(t, Equal(thing, parsed), "%s parsed as %s", thing.String(), parsed.String())
		}
	}
}

func TestNewThingRejectsInvalidIDs(t *testing.T) {
	_, err := NewThing("", Int(1))
	require.Error(t, err)
	_, err = NewThing("person", Float(1.5))
	require.Error(t, err)
	_, err = NewThing("person", nil)
	require.Error(t, err)
	_, err = NewThing("person", Bool(true))
	require.Error(t, err)
}

func TestValueLiteralRoundTrip(t *testing.T) {
	values := []Value{
		None{},
		Null{},
		Bool(false),
		Int(0),
		Int(-12),
		Float(1.25),
		Float(-0.5),
		Float(3),
		Strand(""),
		Strand("line\nbreak \\ 'quote'"),
		Array{},
		Array{Int(1), Array{Strand("nested")}},
		Object{"name": Strand("Alice"), "tags": Array{Strand("a")}, "friend": Thing{Table: "person", ID: Strand("bob")}},
	}
	for _, v := range values {
		parsed, err := ParseValue(v.String())
		require.NoError(t, err, "parsing %s", v.String())
		require.True(t, Equal(v, parsed), "%s parsed as %s", v.String(), parsed.String())
	}
}

func TestEqual(t *testing.T) {
	require.True(t, Equal(nil, None{}))
	require.False(t, Equal(Int(1), Float(1)))
	require.False(t, Equal(Null{}, None{}))
	require.True(t, Equal(Object{"a": Array{Int(1)}}, Object{"a": Array{Int(1)}}))
	require.False(t, Equal(Object{"a": Int(1)}, Object{"b": Int(1)}))
	require.False(t, Equal(Thing{Table: "a", ID: Int(1)}, Thing{Table: "b", ID: Int(1)}))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "thing", KindThing.String())
	require.Equal(t, "none", None{}.Kind().String())
	require.Equal(t, "unknown", Kind(200).String())
}
