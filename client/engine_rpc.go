package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/harry-xi/surrealdb.java/surrealql"
	"go.uber.org/zap"
)

const cborContentType = "application/cbor"

// remoteEngine speaks the CBOR RPC protocol over plain HTTP requests. The
// HTTP endpoint is stateless, so the session travels in headers.
type remoteEngine struct {
	base   string
	client *http.Client
	seq    atomic.Uint64
}

type rpcRequest struct {
	ID     string `cbor:"id"`
	Method string `cbor:"method"`
	Params []any  `cbor:"params"`
}

type rpcError struct {
	Code    int64  `cbor:"code"`
	Message string `cbor:"message"`
}

type rpcResponse struct {
	ID     any       `cbor:"id"`
	Result any       `cbor:"result"`
	Error  *rpcError `cbor:"error"`
}

// rpcQueryResult is one element of a query reply.
type rpcQueryResult struct {
	Status string `cbor:"status"`
	Time   string `cbor:"time"`
	Result any    `cbor:"result"`
}

func openRemoteEngine(ctx context.Context, base string, client *http.Client) (*remoteEngine, error) {
	if client == nil {
		client = http.DefaultClient
	}
	e := &remoteEngine{base: base, client: client}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinUrl(base, "/health"), nil)
	if err != nil {
		return nil, wrapError(KindConnection, err, "invalid server address %s", base)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapError(KindConnection, err, "failed to connect to %s", base)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, newError(KindConnection, "server %s is not healthy: %s", base, resp.Status)
	}
	Logger().Debug("remote engine connected", zap.String("url", base))
	return e, nil
}

func (e *remoteEngine) close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *remoteEngine) signin(ctx context.Context, creds Root) (string, error) {
	params := []any{map[string]any{"user": creds.Username, "pass": creds.Password}}
	result, err := e.call(ctx, nil, "signin", params)
	if err != nil {
		return "", asKind(err, KindAuth)
	}
	token, ok := result.(string)
	if !ok {
		return "", newError(KindProtocol, "unexpected signin result %T", result)
	}
	return token, nil
}

func (e *remoteEngine) query(ctx context.Context, sess *session, sql string, vars surrealql.Vars) (*Response, error) {
	bound := make(map[string]any, len(vars))
	for k, v := range vars {
		bound[k] = surrealql.ToCBOR(v)
	}
	result, err := e.call(ctx, sess, "query", []any{sql, bound})
	if err != nil {
		return nil, asKind(err, KindQuery)
	}
	items, ok := result.([]any)
	if !ok {
		return nil, newError(KindProtocol, "unexpected query result %T", result)
	}
	results := make([]QueryResult, 0, len(items))
	for i, item := range items {
		raw, err := surrealql.CBOREncMode().Marshal(item)
		if err != nil {
			return nil, wrapError(KindProtocol, err, "statement %d", i)
		}
		var qr rpcQueryResult
		if err := surrealql.CBORDecMode().Unmarshal(raw, &qr); err != nil {
			return nil, wrapError(KindProtocol, err, "statement %d", i)
		}
		res := QueryResult{Result: surrealql.None{}}
		if d, err := time.ParseDuration(qr.Time); err == nil {
			res.Time = d
		}
		if strings.EqualFold(qr.Status, "OK") {
			v, err := surrealql.FromCBOR(qr.Result)
			if err != nil {
				return nil, wrapError(KindProtocol, err, "statement %d", i)
			}
			res.Result = v
		} else {
			res.Err = newError(KindQuery, "%v", qr.Result)
		}
		results = append(results, res)
	}
	return newResponse(results), nil
}

func (e *remoteEngine) call(ctx context.Context, sess *session, method string, params []any) (any, error) {
	id := strconv.FormatUint(e.seq.Add(1), 10)
	body, err := surrealql.CBOREncMode().Marshal(rpcRequest{ID: id, Method: method, Params: params})
	if err != nil {
		return nil, wrapError(KindProtocol, err, "failed to encode %s request", method)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinUrl(e.base, "/rpc"), bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(KindConnection, err, "failed to build %s request", method)
	}
	req.Header.Set("Content-Type", cborContentType)
	req.Header.Set("Accept", cborContentType)
	if sess != nil {
		if sess.ns != "" {
			req.Header.Set("Surreal-NS", sess.ns)
		}
		if sess.db != "" {
			req.Header.Set("Surreal-DB", sess.db)
		}
		if sess.token != "" {
			req.Header.Set("Authorization", "Bearer "+sess.token)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, wrapError(KindConnection, err, "%s request failed", method)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(KindConnection, err, "failed to read %s reply", method)
	}

	var reply rpcResponse
	if err := surrealql.CBORDecMode().Unmarshal(payload, &reply); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, newError(KindConnection, "%s request failed: %s", method, resp.Status)
		}
		return nil, wrapError(KindProtocol, err, "failed to decode %s reply", method)
	}
	if reply.Error != nil {
		kind := KindQuery
		if strings.HasPrefix(reply.Error.Message, "Parse error") {
			kind = KindParse
		}
		return nil, newError(kind, "%s", reply.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError(KindConnection, "%s request failed: %s", method, resp.Status)
	}
	if fmt.Sprint(reply.ID) != id {
		return nil, newError(KindProtocol, "reply id %v does not match request %s", reply.ID, id)
	}
	return reply.Result, nil
}

// asKind retags generic query errors raised by a call for the given method.
func asKind(err error, kind ErrorKind) error {
	e, ok := err.(*Error)
	if !ok || e.Kind != KindQuery {
		return err
	}
	return &Error{Kind: kind, Message: e.Message, Cause: e.Cause}
}
