// Package client is a small SurrealDB client. It speaks the HTTP RPC
// protocol to a remote server and also ships an embedded engine backed by
// sqlite, which executes the subset of SurrealQL parsed by package surrealql.
package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/harry-xi/surrealdb.java/surrealql"
	"go.uber.org/zap"
)

// Root holds root user credentials.
type Root struct {
	Username string
	Password string
}

// session is the per-connection selection carried with every request.
type session struct {
	ns    string
	db    string
	token string
}

type engine interface {
	signin(ctx context.Context, creds Root) (string, error)
	// query may update sess when the text contains USE statements
	query(ctx context.Context, sess *session, sql string, vars surrealql.Vars) (*Response, error)
	close() error
}

// Option configures a Surreal client.
type Option func(*Surreal)

// WithHTTPClient sets the http client used by the remote engine.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Surreal) {
		s.httpClient = c
	}
}

// WithRootCredentials overrides the root user seeded into embedded
// datastores. Address options take precedence when both are given.
func WithRootCredentials(user, pass string) Option {
	return func(s *Surreal) {
		s.root = &Root{Username: user, Password: pass}
	}
}

// Surreal is a database session. It is safe for concurrent use; queries run
// with the namespace, database and token selected at the time they start.
type Surreal struct {
	httpClient *http.Client
	root       *Root

	mu     sync.Mutex
	eng    engine
	sess   session
	closed bool
}

// New creates an unconnected client.
func New(opts ...Option) *Surreal {
	s := &Surreal{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens the engine selected by addr. Connecting again replaces the
// previous engine and resets the session.
func (s *Surreal) Connect(ctx context.Context, addr string) error {
	parsed, err := ParseAddress(addr)
	if err != nil {
		return err
	}
	if s.root != nil && parsed.User == defaultRootUser && parsed.Pass == defaultRootPass {
		parsed.User, parsed.Pass = s.root.Username, s.root.Password
	}

	var eng engine
	switch parsed.Engine {
	case EngineMemory, EngineFile:
		eng, err = openLocalEngine(ctx, parsed)
	case EngineRemote:
		eng, err = openRemoteEngine(ctx, parsed.URL, s.httpClient)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = eng.close()
		return ErrClosed
	}
	if s.eng != nil {
		Logger().Debug("replacing connection engine")
		_ = s.eng.close()
	}
	s.eng = eng
	s.sess = session{}
	Logger().Debug("connected", zap.Stringer("engine", parsed.Engine))
	return nil
}

func (s *Surreal) current() (engine, session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, session{}, ErrClosed
	}
	if s.eng == nil {
		return nil, session{}, ErrNotConnected
	}
	return s.eng, s.sess, nil
}

// Signin authenticates as a root user and returns the issued token.
func (s *Surreal) Signin(ctx context.Context, creds Root) (string, error) {
	eng, _, err := s.current()
	if err != nil {
		return "", err
	}
	token, err := eng.signin(ctx, creds)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sess.token = token
	s.mu.Unlock()
	return token, nil
}

// UseNs selects the namespace for subsequent queries.
func (s *Surreal) UseNs(ctx context.Context, ns string) error {
	if _, _, err := s.current(); err != nil {
		return err
	}
	if ns == "" {
		return newError(KindQuery, "namespace name cannot be empty")
	}
	s.mu.Lock()
	s.sess.ns = ns
	s.mu.Unlock()
	return nil
}

// UseDb selects the database for subsequent queries.
func (s *Surreal) UseDb(ctx context.Context, db string) error {
	if _, _, err := s.current(); err != nil {
		return err
	}
	if db == "" {
		return newError(KindQuery, "database name cannot be empty")
	}
	s.mu.Lock()
	s.sess.db = db
	s.mu.Unlock()
	return nil
}

// Query runs SurrealQL text with optional bound parameters. Statement
// failures are reported per statement in the response; the returned error is
// set only when the request as a whole failed (parse error, transport
// failure).
func (s *Surreal) Query(ctx context.Context, sql string, params map[string]surrealql.Value) (*Response, error) {
	eng, sess, err := s.current()
	if err != nil {
		return nil, err
	}
	before := sess
	resp, err := eng.query(ctx, &sess, sql, surrealql.Vars(params))
	if err != nil {
		return nil, err
	}
	if sess != before {
		s.mu.Lock()
		if s.eng == eng {
			s.sess.ns, s.sess.db = sess.ns, sess.db
		}
		s.mu.Unlock()
	}
	return resp, nil
}

// Close releases the engine. Further calls fail with ErrClosed.
func (s *Surreal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.eng == nil {
		return nil
	}
	err := s.eng.close()
	s.eng = nil
	return err
}
