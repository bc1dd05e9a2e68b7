package client

import (
	"time"

	"github.com/harry-xi/surrealdb.java/surrealql"
)

// QueryResult is the outcome of one statement.
type QueryResult struct {
	Result surrealql.Value
	// Err is set when the statement failed; Result is NONE then.
	Err  error
	Time time.Duration
}

// Response holds the per-statement results of a query, in statement order.
type Response struct {
	results []QueryResult
}

func newResponse(results []QueryResult) *Response {
	return &Response{results: results}
}

// Len returns the number of statement results.
func (r *Response) Len() int {
	if r == nil {
		return 0
	}
	return len(r.results)
}

// Take returns the result of statement i, or the error that statement
// failed with.
func (r *Response) Take(i int) (surrealql.Value, error) {
	if r == nil || i < 0 || i >= len(r.results) {
		return nil, ErrIndexOutOfRange
	}
	res := r.results[i]
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Result == nil {
		return surrealql.None{}, nil
	}
	return res.Result, nil
}

// Results exposes every statement outcome.
func (r *Response) Results() []QueryResult {
	if r == nil {
		return nil
	}
	return r.results
}

// Check returns the first statement error, if any.
func (r *Response) Check() error {
	for _, res := range r.Results() {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}
