// Package surreal is a handle based bridge that lets a foreign host drive a
// SurrealDB client synchronously. Every database object is owned by the
// bridge and named by a Handle; every entry point blocks the calling thread
// on a shared Runtime and reports failure as a sentinel return plus an
// *Error, which is also raised on the configured Signaler.
package surreal

import (
	"context"
	"fmt"
	"sync"

	"github.com/harry-xi/surrealdb.java/client"
	"github.com/harry-xi/surrealdb.java/surrealql"
	"go.uber.org/zap"
)

// Config configures a Bridge.
type Config struct {
	// Workers is the runtime pool size; GOMAXPROCS when zero.
	Workers int
	// Logger replaces the package logger when set.
	Logger *zap.Logger
	// Signaler receives every error; LogSignaler when nil.
	Signaler Signaler
	// ClientOptions are applied to every connection created by NewInstance.
	ClientOptions []client.Option
}

// Bridge owns a runtime, a handle registry and a signaler.
type Bridge struct {
	ctx     context.Context
	rt      *Runtime
	reg     *Registry
	sig     Signaler
	options []client.Option
}

// NewBridge creates an independent bridge. Hosts normally use Default.
func NewBridge(cfg Config) *Bridge {
	if cfg.Logger != nil {
		SetLogger(cfg.Logger)
		client.SetLogger(cfg.Logger)
	}
	sig := cfg.Signaler
	if sig == nil {
		sig = LogSignaler{}
	}
	return &Bridge{
		ctx:     context.Background(),
		rt:      NewRuntime(cfg.Workers),
		reg:     NewRegistry(),
		sig:     sig,
		options: cfg.ClientOptions,
	}
}

// WithContext returns a view of the bridge whose calls block under ctx. A
// context that belongs to a runtime task makes every call fail with a
// bridge error instead of deadlocking.
func (b *Bridge) WithContext(ctx context.Context) *Bridge {
	out := *b
	out.ctx = ctx
	return &out
}

// WithSignaler returns a view of the bridge that raises errors on sig.
func (b *Bridge) WithSignaler(sig Signaler) *Bridge {
	out := *b
	out.sig = sig
	return &out
}

// Signaler returns the signaler errors are raised on.
func (b *Bridge) Signaler() Signaler { return b.sig }

// Registry exposes the handle registry.
func (b *Bridge) Registry() *Registry { return b.reg }

// Close stops the runtime and releases every live handle.
func (b *Bridge) Close() error {
	b.rt.Close()
	return b.reg.Close()
}

var (
	defaultMu     sync.Mutex
	defaultBridge *Bridge
)

// Setup creates the process wide bridge with cfg. It fails if the bridge
// already exists.
func Setup(cfg Config) (*Bridge, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge != nil {
		return nil, &Error{Category: CategoryBridge, Op: "setup", Detail: "bridge already initialised"}
	}
	defaultBridge = NewBridge(cfg)
	return defaultBridge, nil
}

// Default returns the process wide bridge, creating it from the
// environment on first use.
func Default() *Bridge {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge == nil {
		cfg, err := ConfigFromEnv()
		if err != nil {
			Logger().Warn("ignoring bridge environment", zap.Error(err))
		}
		defaultBridge = NewBridge(cfg)
	}
	return defaultBridge
}

// Shutdown tears down the process wide bridge. Later calls to Default
// create a fresh one.
func Shutdown() error {
	defaultMu.Lock()
	b := defaultBridge
	defaultBridge = nil
	defaultMu.Unlock()
	if b == nil {
		return nil
	}
	return b.Close()
}

// Raise reports a failure detected outside the bridge, such as a bad
// argument at a host boundary, exactly as an entry point would.
func (b *Bridge) Raise(op string, err error) error {
	return b.fail(op, err)
}

func (b *Bridge) fail(op string, err error) error {
	e := translate(op, err)
	Logger().Debug("entry point failed", zap.String("op", op), zap.Error(e))
	b.sig.Raise(e)
	return e
}

// register stores a result object. A closed registry yields a bridge error.
func (b *Bridge) register(kind Kind, obj any) (Handle, error) {
	h := b.reg.Create(kind, obj)
	if h == 0 {
		return 0, ErrRuntimeClosed
	}
	return h, nil
}

// ConnState is the advisory connection state of an instance.
type ConnState uint8

const (
	StateUnconnected ConnState = iota
	StateConnected
	StateAuthenticated
	StateNamespaceSelected
	StateDatabaseSelected
)

func (s ConnState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateNamespaceSelected:
		return "namespace selected"
	case StateDatabaseSelected:
		return "database selected"
	default:
		return "unknown"
	}
}

// instance is the object behind a connection handle.
type instance struct {
	db *client.Surreal

	mu    sync.Mutex
	state ConnState
}

func (i *instance) Close() error {
	return i.db.Close()
}

func (i *instance) advance(s ConnState) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if s > i.state {
		i.state = s
	}
}

// expect logs calls made before the instance reached state s. The client
// decides whether such a call fails.
func (i *instance) expect(op string, s ConnState) {
	i.mu.Lock()
	cur := i.state
	i.mu.Unlock()
	if cur < s {
		Logger().Debug("call made early", zap.String("op", op), zap.Stringer("state", cur), zap.Stringer("expected", s))
	}
}

// State returns the advisory state of the connection behind h.
func (b *Bridge) State(h Handle) (ConnState, error) {
	l, inst, err := b.connection(h)
	if err != nil {
		return 0, b.fail("state", err)
	}
	defer l.Release()
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state, nil
}

func (b *Bridge) connection(h Handle, extra ...Ref) (*Lease, *instance, error) {
	l, err := b.reg.Borrow(append([]Ref{{Handle: h, Kind: KindConnection}}, extra...)...)
	if err != nil {
		return nil, nil, err
	}
	return l, l.Get(h).(*instance), nil
}

// NewInstance creates an unconnected database client.
func (b *Bridge) NewInstance() (Handle, error) {
	inst := &instance{db: client.New(b.options...)}
	h, err := b.register(KindConnection, inst)
	if err != nil {
		return 0, b.fail("newInstance", err)
	}
	return h, nil
}

// DeleteInstance releases a connection handle and closes the client.
func (b *Bridge) DeleteInstance(h Handle) (bool, error) {
	if err := b.reg.Release(h, KindConnection); err != nil {
		return false, b.fail("deleteInstance", err)
	}
	return true, nil
}

type none struct{}

// Connect opens the connection at addr, e.g. "memory" or "ws://host:8000".
func (b *Bridge) Connect(h Handle, addr []byte) (bool, error) {
	const op = "connect"
	a, err := hostString(addr)
	if err != nil {
		return false, b.fail(op, err)
	}
	l, inst, err := b.connection(h)
	if err != nil {
		return false, b.fail(op, err)
	}
	defer l.Release()
	_, err = Block(b.ctx, b.rt, func(ctx context.Context) (none, error) {
		return none{}, inst.db.Connect(ctx, a)
	})
	if err != nil {
		return false, b.fail(op, err)
	}
	inst.advance(StateConnected)
	return true, nil
}

// SigninRoot authenticates as a root user and returns the session token.
func (b *Bridge) SigninRoot(h Handle, user, pass []byte) (string, error) {
	const op = "signinRoot"
	u, err := hostString(user)
	if err != nil {
		return "", b.fail(op, err)
	}
	p, err := hostString(pass)
	if err != nil {
		return "", b.fail(op, err)
	}
	l, inst, err := b.connection(h)
	if err != nil {
		return "", b.fail(op, err)
	}
	defer l.Release()
	inst.expect(op, StateConnected)
	token, err := Block(b.ctx, b.rt, func(ctx context.Context) (string, error) {
		return inst.db.Signin(ctx, client.Root{Username: u, Password: p})
	})
	if err != nil {
		return "", b.fail(op, err)
	}
	inst.advance(StateAuthenticated)
	return token, nil
}

// UseNs selects the namespace.
func (b *Bridge) UseNs(h Handle, ns []byte) (bool, error) {
	return b.use(h, "useNs", ns, StateNamespaceSelected, (*client.Surreal).UseNs)
}

// UseDb selects the database.
func (b *Bridge) UseDb(h Handle, db []byte) (bool, error) {
	return b.use(h, "useDb", db, StateDatabaseSelected, (*client.Surreal).UseDb)
}

func (b *Bridge) use(h Handle, op string, name []byte, next ConnState, fn func(*client.Surreal, context.Context, string) error) (bool, error) {
	n, err := hostString(name)
	if err != nil {
		return false, b.fail(op, err)
	}
	l, inst, err := b.connection(h)
	if err != nil {
		return false, b.fail(op, err)
	}
	defer l.Release()
	inst.expect(op, StateConnected)
	_, err = Block(b.ctx, b.rt, func(ctx context.Context) (none, error) {
		return none{}, fn(inst.db, ctx, n)
	})
	if err != nil {
		return false, b.fail(op, err)
	}
	inst.advance(next)
	return true, nil
}

// run performs one query on the runtime.
func (b *Bridge) run(inst *instance, sql string, params map[string]surrealql.Value) (*client.Response, error) {
	Logger().Debug("query", zap.String("sql", sql), zap.Int("params", len(params)))
	return Block(b.ctx, b.rt, func(ctx context.Context) (*client.Response, error) {
		return inst.db.Query(ctx, sql, params)
	})
}

// Query runs SurrealQL text and returns a response handle. Statement errors
// surface when the statement's result is taken.
func (b *Bridge) Query(h Handle, text []byte) (Handle, error) {
	return b.QueryBind(h, text, nil, nil)
}

// QueryBind runs SurrealQL text with names[i] bound to the value behind
// values[i]. The value handles stay owned by the caller.
func (b *Bridge) QueryBind(h Handle, text []byte, names [][]byte, values []Handle) (Handle, error) {
	const op = "query"
	sql, err := hostString(text)
	if err != nil {
		return 0, b.fail(op, err)
	}
	if len(names) != len(values) {
		return 0, b.fail(op, fmt.Errorf("%w: %d names for %d values", ErrArgCount, len(names), len(values)))
	}
	keys, err := hostStrings(names)
	if err != nil {
		return 0, b.fail(op, err)
	}
	l, inst, err := b.connection(h, valueRefs(values)...)
	if err != nil {
		return 0, b.fail(op, err)
	}
	defer l.Release()
	inst.expect(op, StateConnected)

	var params map[string]surrealql.Value
	if len(keys) > 0 {
		params = make(map[string]surrealql.Value, len(keys))
		for i, v := range leaseValues(l, values) {
			params[keys[i]] = v
		}
	}
	resp, err := b.run(inst, sql, params)
	if err != nil {
		return 0, b.fail(op, err)
	}
	rh, err := b.register(KindResponse, resp)
	if err != nil {
		return 0, b.fail(op, err)
	}
	return rh, nil
}

// CreateTableValue creates one record from the value behind v in resource,
// a table or a record id, and returns a handle to the created record.
func (b *Bridge) CreateTableValue(h Handle, resource []byte, v Handle) (Handle, error) {
	const op = "createTableValue"
	res, err := hostString(resource)
	if err != nil {
		return 0, b.fail(op, err)
	}
	sql, err := createQuery(res)
	if err != nil {
		return 0, b.fail(op, err)
	}
	l, inst, err := b.connection(h, Ref{Handle: v, Kind: KindValue})
	if err != nil {
		return 0, b.fail(op, err)
	}
	defer l.Release()
	inst.expect(op, StateDatabaseSelected)

	resp, err := b.run(inst, sql, map[string]surrealql.Value{"val": l.Get(v).(surrealql.Value)})
	if err != nil {
		return 0, b.fail(op, err)
	}
	record, err := takeSingleton(resp, 0)
	if err != nil {
		return 0, b.fail(op, err)
	}
	out, err := b.register(KindValue, record)
	if err != nil {
		return 0, b.fail(op, err)
	}
	return out, nil
}

// CreateTableValues creates one record per value in table, in one query.
// The returned handles follow the order of vs. Either every record handle is
// returned or none is.
func (b *Bridge) CreateTableValues(h Handle, table []byte, vs []Handle) ([]Handle, error) {
	const op = "createTableValues"
	tb, err := hostString(table)
	if err != nil {
		return nil, b.fail(op, err)
	}
	sql, params, err := createBatchQuery(tb, len(vs))
	if err != nil {
		return nil, b.fail(op, err)
	}
	l, inst, err := b.connection(h, valueRefs(vs)...)
	if err != nil {
		return nil, b.fail(op, err)
	}
	defer l.Release()
	inst.expect(op, StateDatabaseSelected)
	if len(vs) == 0 {
		return []Handle{}, nil
	}

	bound := make(map[string]surrealql.Value, len(vs))
	for i, v := range leaseValues(l, vs) {
		bound[params[i]] = v
	}
	resp, err := b.run(inst, sql, bound)
	if err != nil {
		return nil, b.fail(op, err)
	}
	records := make([]surrealql.Value, len(vs))
	for i := range vs {
		if records[i], err = takeSingleton(resp, i); err != nil {
			return nil, b.fail(op, err)
		}
	}
	out, err := b.registerAll(records)
	if err != nil {
		return nil, b.fail(op, err)
	}
	return out, nil
}

// registerAll registers every value or, on failure, none of them.
func (b *Bridge) registerAll(values []surrealql.Value) ([]Handle, error) {
	out := make([]Handle, 0, len(values))
	for _, v := range values {
		h, err := b.register(KindValue, v)
		if err != nil {
			for _, done := range out {
				_ = b.reg.Release(done, KindValue)
			}
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// SelectThing fetches the record behind the record id value. A missing
// record yields a handle to NONE, not an error.
func (b *Bridge) SelectThing(h Handle, thing Handle) (Handle, error) {
	const op = "selectThing"
	l, inst, err := b.connection(h, Ref{Handle: thing, Kind: KindValue})
	if err != nil {
		return 0, b.fail(op, err)
	}
	defer l.Release()
	things, err := leaseThings(l, []Handle{thing})
	if err != nil {
		return 0, b.fail(op, err)
	}
	inst.expect(op, StateDatabaseSelected)

	resp, err := b.run(inst, selectQuery(things), nil)
	if err != nil {
		return 0, b.fail(op, err)
	}
	record, err := takeOptional(resp, 0)
	if err != nil {
		return 0, b.fail(op, err)
	}
	out, err := b.register(KindValue, record)
	if err != nil {
		return 0, b.fail(op, err)
	}
	return out, nil
}

// SelectThings fetches the records behind several record ids in one query.
// Missing records are skipped; found records keep the order of things.
func (b *Bridge) SelectThings(h Handle, things []Handle) ([]Handle, error) {
	const op = "selectThings"
	l, inst, err := b.connection(h, valueRefs(things)...)
	if err != nil {
		return nil, b.fail(op, err)
	}
	defer l.Release()
	ths, err := leaseThings(l, things)
	if err != nil {
		return nil, b.fail(op, err)
	}
	inst.expect(op, StateDatabaseSelected)
	if len(ths) == 0 {
		return []Handle{}, nil
	}

	resp, err := b.run(inst, selectQuery(ths), nil)
	if err != nil {
		return nil, b.fail(op, err)
	}
	records, err := takeArray(resp, 0)
	if err != nil {
		return nil, b.fail(op, err)
	}
	out, err := b.registerAll(records)
	if err != nil {
		return nil, b.fail(op, err)
	}
	return out, nil
}

// UpdateThingValue replaces or merges the record behind thing with the value
// behind v. A missing record is left alone and yields a handle to NONE.
func (b *Bridge) UpdateThingValue(h Handle, thing Handle, mode UpdateMode, v Handle) (Handle, error) {
	return b.thingValue("updateThingValue", "UPDATE", h, thing, mode, v)
}

// UpsertThingValue is UpdateThingValue that creates a missing record.
func (b *Bridge) UpsertThingValue(h Handle, thing Handle, mode UpdateMode, v Handle) (Handle, error) {
	return b.thingValue("upsertThingValue", "UPSERT", h, thing, mode, v)
}

func (b *Bridge) thingValue(op, verb string, h Handle, thing Handle, mode UpdateMode, v Handle) (Handle, error) {
	l, inst, err := b.connection(h, Ref{Handle: thing, Kind: KindValue}, Ref{Handle: v, Kind: KindValue})
	if err != nil {
		return 0, b.fail(op, err)
	}
	defer l.Release()
	things, err := leaseThings(l, []Handle{thing})
	if err != nil {
		return 0, b.fail(op, err)
	}
	sql, err := dataQuery(verb, things[0].String(), mode)
	if err != nil {
		return 0, b.fail(op, err)
	}
	inst.expect(op, StateDatabaseSelected)

	resp, err := b.run(inst, sql, map[string]surrealql.Value{"val": l.Get(v).(surrealql.Value)})
	if err != nil {
		return 0, b.fail(op, err)
	}
	record, err := takeOptional(resp, 0)
	if err != nil {
		return 0, b.fail(op, err)
	}
	out, err := b.register(KindValue, record)
	if err != nil {
		return 0, b.fail(op, err)
	}
	return out, nil
}

// DeleteThing deletes the record behind thing. Deleting a missing record
// succeeds.
func (b *Bridge) DeleteThing(h Handle, thing Handle) (bool, error) {
	return b.deleteThings("deleteThing", h, []Handle{thing})
}

// DeleteThings deletes several records in one statement.
func (b *Bridge) DeleteThings(h Handle, things []Handle) (bool, error) {
	return b.deleteThings("deleteThings", h, things)
}

func (b *Bridge) deleteThings(op string, h Handle, things []Handle) (bool, error) {
	l, inst, err := b.connection(h, valueRefs(things)...)
	if err != nil {
		return false, b.fail(op, err)
	}
	defer l.Release()
	ths, err := leaseThings(l, things)
	if err != nil {
		return false, b.fail(op, err)
	}
	inst.expect(op, StateDatabaseSelected)
	if len(ths) == 0 {
		return true, nil
	}
	resp, err := b.run(inst, deleteQuery(ths), nil)
	if err != nil {
		return false, b.fail(op, err)
	}
	if _, err := takeArray(resp, 0); err != nil {
		return false, b.fail(op, err)
	}
	return true, nil
}
