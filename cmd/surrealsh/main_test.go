package main

import (
	"bytes"
	"strings"
	"testing"

	surreal "github.com/harry-xi/surrealdb.java"
	"github.com/stretchr/testify/require"
)

func newShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	b := surreal.NewBridge(surreal.Config{Workers: 1, Signaler: &surreal.RecordingSignaler{}})
	t.Cleanup(func() { _ = b.Close() })
	conn, err := b.NewInstance()
	require.NoError(t, err)
	_, err = b.Connect(conn, []byte("memory"))
	require.NoError(t, err)
	_, err = b.SigninRoot(conn, []byte("root"), []byte("root"))
	require.NoError(t, err)

	var out bytes.Buffer
	sh := &shell{b: b, conn: conn, out: &out}
	require.NoError(t, sh.use("test", "test"))
	return sh, &out
}

func TestShellSession(t *testing.T) {
	sh, out := newShell(t)
	sh.run(strings.NewReader(strings.Join([]string{
		"CREATE person:tobie CONTENT { name: 'Tobie' }",
		`\get person:tobie`,
		`\json`,
		`\get person:nobody`,
		"RETURN 1; CREATE person:tobie",
		`\bogus`,
		`\q`,
		"RETURN 'unreachable'",
	}, "\n")), false)

	got := out.String()
	require.Contains(t, got, "[{ id: person:tobie, name: 'Tobie' }]")
	require.Contains(t, got, "{ id: person:tobie, name: 'Tobie' }\n")
	require.Contains(t, got, "null")
	require.Contains(t, got, "-- statement 2: [client]")
	require.Contains(t, got, `unknown command \bogus`)
	require.NotContains(t, got, "unreachable")
	require.Equal(t, 1, sh.b.Registry().Len())
}

func TestShellUseUsage(t *testing.T) {
	sh, _ := newShell(t)
	require.ErrorContains(t, sh.exec(`\use only`), "usage")
	require.ErrorContains(t, sh.exec(`\get`), "usage")
	require.NoError(t, sh.exec(`\use other db`))
}
