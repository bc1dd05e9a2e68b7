package surrealql

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromJSON(t *testing.T) {
	v, err := FromJSON([]byte(`{"name":"Alice","age":30,"score":1.5,"tags":["a"],"x":null,"ok":true}`))
	require.NoError(t, err)
	require.True(t, Equal(Object{
		"name":  Strand("Alice"),
		"age":   Int(30),
		"score": Float(1.5),
		"tags":  Array{Strand("a")},
		"x":     Null{},
		"ok":    Bool(true),
	}, v), v.String())

	// strings that look like record ids stay strings
	v, err = FromJSON([]byte(`"person:tobie"`))
	require.NoError(t, err)
	require.Equal(t, Strand("person:tobie"), v)
}

func TestFromJSONErrors(t *testing.T) {
	for _, src := range []string{``, `{`, `{} {}`, `[1,]`} {
		_, err := FromJSON([]byte(src))
		require.Error(t, err, src)
	}
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(Object{
		"id":   Thing{Table: "person", ID: Strand("tobie")},
		"gone": None{},
		"nil":  Null{},
		"n":    Array{Int(1), Float(2.5)},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"person:tobie","gone":null,"nil":null,"n":[1,2.5]}`, string(out))

	_, err = ToJSON(Float(math.NaN()))
	require.Error(t, err)
	_, err = ToJSON(Array{Float(math.Inf(1))})
	require.Error(t, err)
}
