package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/harry-xi/surrealdb.java/surrealql"
	"github.com/stretchr/testify/require"
)

// fakeServer answers the subset of the RPC protocol the remote engine uses.
type fakeServer struct {
	mu       sync.Mutex
	requests []rpcRequest
	headers  []http.Header
	healthy  atomic.Bool
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		if !f.healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	case "/rpc":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var req rpcRequest
		if err := surrealql.CBORDecMode().Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.headers = append(f.headers, r.Header.Clone())
		f.mu.Unlock()

		reply := map[string]any{"id": req.ID}
		switch req.Method {
		case "signin":
			creds, _ := req.Params[0].(map[string]any)
			if creds["user"] == "root" && creds["pass"] == "root" {
				reply["result"] = "header.payload.signature"
			} else {
				reply["error"] = map[string]any{"code": int64(-32000), "message": "There was a problem with authentication"}
			}
		case "query":
			sql, _ := req.Params[0].(string)
			switch {
			case strings.HasPrefix(sql, "SELEC "):
				reply["error"] = map[string]any{"code": int64(-32000), "message": "Parse error: unexpected token"}
			default:
				vars, _ := req.Params[1].(map[string]any)
				reply["result"] = []any{
					map[string]any{"status": "OK", "time": "1.5ms", "result": []any{
						map[string]any{
							"id":   cbor.Tag{Number: surrealql.TagRecordID, Content: []any{"person", "tobie"}},
							"val":  vars["val"],
							"none": cbor.Tag{Number: surrealql.TagNone, Content: nil},
						},
					}},
					map[string]any{"status": "ERR", "time": "10µs", "result": "Database record `person:tobie` already exists"},
				}
			}
		default:
			reply["error"] = map[string]any{"code": int64(-32601), "message": "Method not found"}
		}
		out, err := surrealql.CBOREncMode().Marshal(reply)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", cborContentType)
		_, _ = w.Write(out)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{}
	f.healthy.Store(true)
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestRemoteQuery(t *testing.T) {
	f, srv := newFakeServer(t)
	ctx := context.Background()

	db := New(WithHTTPClient(srv.Client()))
	require.NoError(t, db.Connect(ctx, strings.Replace(srv.URL, "http://", "ws://", 1)+"/rpc"))
	defer db.Close()

	token, err := db.Signin(ctx, Root{Username: "root", Password: "root"})
	require.NoError(t, err)
	require.Equal(t, "header.payload.signature", token)
	require.NoError(t, db.UseNs(ctx, "test"))
	require.NoError(t, db.UseDb(ctx, "app"))

	resp, err := db.Query(ctx, "CREATE person:tobie CONTENT $val; CREATE person:tobie", map[string]surrealql.Value{
		"val": surrealql.Object{"ref": surrealql.Thing{Table: "animal", ID: surrealql.Int(1)}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Len())

	v, err := resp.Take(0)
	require.NoError(t, err)
	require.True(t, surrealql.Equal(surrealql.Array{surrealql.Object{
		"id":   surrealql.Thing{Table: "person", ID: surrealql.Strand("tobie")},
		"val":  surrealql.Object{"ref": surrealql.Thing{Table: "animal", ID: surrealql.Int(1)}},
		"none": surrealql.None{},
	}}, v), v.String())
	require.Greater(t, resp.Results()[0].Time.Microseconds(), int64(1000))

	_, err = resp.Take(1)
	require.ErrorContains(t, err, "already exists")
	require.ErrorIs(t, err, &Error{Kind: KindQuery})

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.requests, 2)
	require.Equal(t, "signin", f.requests[0].Method)
	require.Equal(t, "query", f.requests[1].Method)
	last := f.headers[1]
	require.Equal(t, "test", last.Get("Surreal-NS"))
	require.Equal(t, "app", last.Get("Surreal-DB"))
	require.Equal(t, "Bearer header.payload.signature", last.Get("Authorization"))
	require.Equal(t, cborContentType, last.Get("Content-Type"))
}

func TestRemoteErrors(t *testing.T) {
	f, srv := newFakeServer(t)
	ctx := context.Background()

	db := New(WithHTTPClient(srv.Client()))
	require.NoError(t, db.Connect(ctx, srv.URL))
	defer db.Close()

	_, err := db.Signin(ctx, Root{Username: "root", Password: "nope"})
	require.ErrorIs(t, err, &Error{Kind: KindAuth})

	_, err = db.Query(ctx, "SELEC * FROM person", nil)
	require.ErrorIs(t, err, &Error{Kind: KindParse})

	f.healthy.Store(false)
	err = New(WithHTTPClient(srv.Client())).Connect(ctx, srv.URL)
	require.ErrorIs(t, err, &Error{Kind: KindConnection})
}

func TestRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New().Connect(context.Background(), url)
	require.ErrorIs(t, err, &Error{Kind: KindConnection})
}
