package surreal

import (
	"context"
	"testing"

	"github.com/harry-xi/surrealdb.java/client"
	"github.com/harry-xi/surrealdb.java/surrealql"
	"github.com/stretchr/testify/require"
)

func TestHostString(t *testing.T) {
	s, err := hostString([]byte("héllo ⟨world⟩"))
	require.NoError(t, err)
	require.Equal(t, "héllo ⟨world⟩", s)

	s, err = hostString(nil)
	require.NoError(t, err)
	require.Equal(t, "", s)

	_, err = hostString([]byte{'a', 0xff, 'b'})
	require.ErrorIs(t, err, ErrInvalidUTF8)

	_, err = hostStrings([][]byte{[]byte("ok"), {0xc3}})
	require.ErrorIs(t, err, ErrInvalidUTF8)
	require.Contains(t, err.Error(), "argument 1")
}

func TestCreateQuery(t *testing.T) {
	tests := []struct {
		resource string
		want     string
	}{
		{"person", "CREATE person CONTENT $val"},
		{"person:tobie", "CREATE person:tobie CONTENT $val"},
		{"person:100", "CREATE person:100 CONTENT $val"},
		{"`my table`", "CREATE `my table` CONTENT $val"},
	}
	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			got, err := createQuery(tt.resource)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "person; DELETE person", "$val", "person:"} {
		_, err := createQuery(bad)
		require.ErrorIs(t, err, ErrBadResource, "resource %q", bad)
	}
}

func TestCreateBatchQuery(t *testing.T) {
	sql, params, err := createBatchQuery("person", 3)
	require.NoError(t, err)
	require.Equal(t, "CREATE person CONTENT $i0;\nCREATE person CONTENT $i1;\nCREATE person CONTENT $i2", sql)
	require.Equal(t, []string{"i0", "i1", "i2"}, params)

	stmts, err := surrealql.Parse(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	sql, params, err = createBatchQuery("person", 0)
	require.NoError(t, err)
	require.Empty(t, sql)
	require.Empty(t, params)

	_, _, err = createBatchQuery("person:tobie", 2)
	require.ErrorIs(t, err, ErrBadResource)
}

func TestThingQueries(t *testing.T) {
	things := []surrealql.Thing{
		{Table: "person", ID: surrealql.Strand("tobie")},
		{Table: "person", ID: surrealql.Int(7)},
	}
	require.Equal(t, "SELECT * FROM person:tobie, person:7", selectQuery(things))
	require.Equal(t, "DELETE person:tobie, person:7", deleteQuery(things))

	sql, err := dataQuery("UPDATE", things[0].String(), UpdateContent)
	require.NoError(t, err)
	require.Equal(t, "UPDATE person:tobie CONTENT $val", sql)
	sql, err = dataQuery("UPDATE", things[0].String(), UpdateMerge)
	require.NoError(t, err)
	require.Equal(t, "UPDATE person:tobie MERGE $val", sql)
	_, err = dataQuery("UPDATE", things[0].String(), UpdateMode(9))
	require.ErrorIs(t, err, ErrBadResource)
}

// queryResponse runs sql against a fresh in-memory datastore.
func queryResponse(t *testing.T, sql string) *client.Response {
	t.Helper()
	ctx := context.Background()
	db := client.New()
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Connect(ctx, "memory"))
	require.NoError(t, db.UseNs(ctx, "test"))
	require.NoError(t, db.UseDb(ctx, "test"))
	resp, err := db.Query(ctx, sql, nil)
	require.NoError(t, err)
	return resp
}

func TestTargetQueries(t *testing.T) {
	targets, err := parseTargets([]string{"person", "animal:1", "`my table`"})
	require.NoError(t, err)
	require.Equal(t, "person, animal:1, `my table`", targets)

	sql, err := dataQuery("UPSERT", targets, UpdateMerge)
	require.NoError(t, err)
	require.Equal(t, "UPSERT person, animal:1, `my table` MERGE $val", sql)
	stmts, err := surrealql.Parse(sql)
	require.NoError(t, err)
	require.Len(t, stmts[0].(*surrealql.UpsertStatement).What, 3)

	_, err = dataQuery("UPDATE", targets, UpdateMode(9))
	require.ErrorIs(t, err, ErrBadResource)

	for _, bad := range [][]string{nil, {"person", "person; DELETE person"}} {
		_, err := parseTargets(bad)
		require.ErrorIs(t, err, ErrBadResource, "targets %q", bad)
	}

	sql, err = insertQuery("person")
	require.NoError(t, err)
	require.Equal(t, "INSERT INTO person $vals", sql)
	_, err = insertQuery("person:1")
	require.ErrorIs(t, err, ErrBadResource)
}

func TestTakeShapes(t *testing.T) {
	resp := queryResponse(t, `
		RETURN [];
		RETURN [1];
		RETURN [1, 2];
		RETURN 5;
		CREATE person:tobie CONTENT { name: 'Tobie' };
		CREATE person:tobie CONTENT { name: 'Again' };
	`)
	require.Equal(t, 6, resp.Len())

	arr, err := takeArray(resp, 0)
	require.NoError(t, err)
	require.Empty(t, arr)
	_, err = takeSingleton(resp, 0)
	require.ErrorIs(t, err, ErrResultShape)
	v, err := takeOptional(resp, 0)
	require.NoError(t, err)
	require.True(t, surrealql.IsNone(v))

	v, err = takeSingleton(resp, 1)
	require.NoError(t, err)
	require.Equal(t, surrealql.Int(1), v)
	v, err = takeOptional(resp, 1)
	require.NoError(t, err)
	require.Equal(t, surrealql.Int(1), v)

	_, err = takeSingleton(resp, 2)
	require.ErrorIs(t, err, ErrResultShape)
	_, err = takeOptional(resp, 2)
	require.ErrorIs(t, err, ErrResultShape)

	_, err = takeArray(resp, 3)
	require.ErrorIs(t, err, ErrResultShape)

	v, err = takeSingleton(resp, 4)
	require.NoError(t, err)
	require.Equal(t, surrealql.Thing{Table: "person", ID: surrealql.Strand("tobie")}, v.(surrealql.Object)["id"])

	// a failed statement reports its own error
	_, err = takeSingleton(resp, 5)
	var ce *client.Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, client.KindQuery, ce.Kind)

	_, err = takeStatement(resp, 6)
	require.ErrorIs(t, err, ErrMissingResult)
	_, err = takeStatement(resp, -1)
	require.ErrorIs(t, err, ErrMissingResult)
}
