package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harry-xi/surrealdb.java/surrealql"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// localEngine executes statements against an embedded sqlite datastore.
type localEngine struct {
	store *store
	key   []byte
}

func openLocalEngine(ctx context.Context, addr Address) (*localEngine, error) {
	key, err := newSigningKey()
	if err != nil {
		return nil, wrapError(KindConnection, err, "failed to open datastore")
	}
	st, err := openStore(ctx, addr)
	if err != nil {
		return nil, err
	}
	Logger().Debug("embedded datastore opened", zap.Stringer("engine", addr.Engine), zap.String("path", addr.Path))
	return &localEngine{store: st, key: key}, nil
}

func (e *localEngine) signin(ctx context.Context, creds Root) (string, error) {
	user, err := e.store.rootUser(ctx, creds.Username)
	if err != nil {
		return "", wrapError(KindAuth, err, "There was a problem with authentication")
	}
	if user == nil || user.PasswordHash != hashPassword(user.Salt, creds.Password) {
		return "", newError(KindAuth, "There was a problem with authentication")
	}
	return issueToken(e.key, user.Name)
}

func (e *localEngine) close() error {
	return e.store.close()
}

func (e *localEngine) query(ctx context.Context, sess *session, sql string, vars surrealql.Vars) (*Response, error) {
	if sess.token != "" {
		if _, err := verifySession(e.key, sess.token); err != nil {
			return nil, err
		}
	}
	stmts, err := surrealql.Parse(sql)
	if err != nil {
		return nil, wrapError(KindParse, err, "Parse error")
	}
	// LET statements shadow bound parameters for the rest of the query
	locals := make(surrealql.Vars, len(vars))
	for k, v := range vars {
		locals[k] = v
	}
	results := make([]QueryResult, 0, len(stmts))
	for _, stmt := range stmts {
		start := time.Now()
		v, err := e.exec(ctx, sess, locals, stmt)
		res := QueryResult{Result: v, Time: time.Since(start)}
		if err != nil {
			res.Result = surrealql.None{}
			res.Err = asQueryError(err)
		}
		results = append(results, res)
	}
	return newResponse(results), nil
}

func asQueryError(err error) error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return wrapError(KindQuery, err, "statement failed")
}

func (e *localEngine) exec(ctx context.Context, sess *session, vars surrealql.Vars, stmt surrealql.Statement) (surrealql.Value, error) {
	switch s := stmt.(type) {
	case *surrealql.UseStatement:
		if s.NS != "" {
			sess.ns = s.NS
		}
		if s.DB != "" {
			sess.db = s.DB
		}
		return surrealql.None{}, nil
	case *surrealql.LetStatement:
		v, err := surrealql.Eval(s.Expr, vars)
		if err != nil {
			return nil, err
		}
		vars[s.Name] = v
		return surrealql.None{}, nil
	case *surrealql.ReturnStatement:
		return surrealql.Eval(s.Expr, vars)
	}

	if sess.ns == "" {
		return nil, newError(KindQuery, "Specify a namespace to use")
	}
	if sess.db == "" {
		return nil, newError(KindQuery, "Specify a database to use")
	}
	var out surrealql.Value
	err := e.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		x := &recordTx{tx: tx, ns: sess.ns, db: sess.db, vars: vars}
		var err error
		switch s := stmt.(type) {
		case *surrealql.CreateStatement:
			out, err = x.create(s)
		case *surrealql.SelectStatement:
			out, err = x.selectAll(s)
		case *surrealql.UpdateStatement:
			out, err = x.update("UPDATE", s.What, s.Data, false)
		case *surrealql.UpsertStatement:
			out, err = x.update("UPSERT", s.What, s.Data, true)
		case *surrealql.InsertStatement:
			out, err = x.insert(s)
		case *surrealql.DeleteStatement:
			out, err = x.delete(s)
		default:
			err = newError(KindQuery, "unsupported statement %T", stmt)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// recordTx executes one record statement inside a transaction.
type recordTx struct {
	tx   *gorm.DB
	ns   string
	db   string
	vars surrealql.Vars
}

// resolve turns a target into either a table name or a record reference.
func (x *recordTx) resolve(verb string, t surrealql.Target) (string, *surrealql.Thing, error) {
	if t.Param == "" {
		if th, ok := t.Thing(); ok {
			return th.Table, &th, nil
		}
		return t.Table, nil, nil
	}
	switch v := x.vars[t.Param].(type) {
	case surrealql.Thing:
		return v.Table, &v, nil
	case surrealql.Strand:
		if v == "" {
			break
		}
		return string(v), nil, nil
	}
	v := x.vars[t.Param]
	if v == nil {
		v = surrealql.None{}
	}
	return "", nil, newError(KindQuery, "Can not execute %s statement using value: %s", verb, v.String())
}

func (x *recordTx) content(d surrealql.Data) (surrealql.Object, error) {
	if d.Mode == surrealql.DataNone {
		return surrealql.Object{}, nil
	}
	v, err := surrealql.Eval(d.Expr, x.vars)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(surrealql.Object)
	if !ok {
		clause := "CONTENT"
		if d.Mode == surrealql.DataMerge {
			clause = "MERGE"
		}
		return nil, newError(KindQuery, "Can not use '%s' in a %s clause", v.String(), clause)
	}
	return obj.Clone(), nil
}

func (x *recordTx) create(s *surrealql.CreateStatement) (surrealql.Value, error) {
	table, th, err := x.resolve("CREATE", s.What)
	if err != nil {
		return nil, err
	}
	record, err := x.content(s.Data)
	if err != nil {
		return nil, err
	}
	if th == nil {
		id, err := recordIDFromContent(table, record["id"])
		if err != nil {
			return nil, err
		}
		th = &surrealql.Thing{Table: table, ID: id}
	}
	if _, exists, err := getRecord(x.tx, x.ns, x.db, *th); err != nil {
		return nil, err
	} else if exists {
		return nil, newError(KindQuery, "Database record `%s` already exists", th.String())
	}
	record["id"] = *th
	if err := insertRecord(x.tx, x.ns, x.db, *th, record); err != nil {
		return nil, err
	}
	return surrealql.Array{record}, nil
}

// recordIDFromContent honours an id field in CREATE content, otherwise a
// random id is generated.
func recordIDFromContent(table string, v surrealql.Value) (surrealql.Value, error) {
	switch id := v.(type) {
	case nil, surrealql.None, surrealql.Null:
		return surrealql.Strand(generateID()), nil
	case surrealql.Thing:
		if id.Table != table {
			return nil, newError(KindQuery, "Found %s for the id field, but a specific record has been specified", id.String())
		}
		return id.ID, nil
	case surrealql.Int, surrealql.Strand, surrealql.Array, surrealql.Object:
		return id, nil
	default:
		return nil, newError(KindQuery, "Found %s for the Record ID but this is not a valid id", v.String())
	}
}

func (x *recordTx) selectAll(s *surrealql.SelectStatement) (surrealql.Value, error) {
	out := surrealql.Array{}
	for _, t := range s.What {
		table, th, err := x.resolve("SELECT", t)
		if err != nil {
			return nil, err
		}
		if th != nil {
			record, ok, err := getRecord(x.tx, x.ns, x.db, *th)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, record)
			}
			continue
		}
		records, err := scanTable(x.tx, x.ns, x.db, table)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			out = append(out, r)
		}
	}
	return out, nil
}

// update applies data to every record the targets name. With upsert set a
// missing record id is created, as is one record for an empty table.
func (x *recordTx) update(verb string, what []surrealql.Target, d surrealql.Data, upsert bool) (surrealql.Value, error) {
	data, err := x.content(d)
	if err != nil {
		return nil, err
	}
	out := surrealql.Array{}
	for _, t := range what {
		table, th, err := x.resolve(verb, t)
		if err != nil {
			return nil, err
		}
		var targets []surrealql.Object
		if th != nil {
			record, ok, err := getRecord(x.tx, x.ns, x.db, *th)
			if err != nil {
				return nil, err
			}
			if ok {
				targets = append(targets, record)
			}
		} else if targets, err = scanTable(x.tx, x.ns, x.db, table); err != nil {
			return nil, err
		}

		if len(targets) == 0 && upsert {
			record, err := x.upsertMissing(table, th, d.Mode, data)
			if err != nil {
				return nil, err
			}
			out = append(out, record)
			continue
		}
		for _, record := range targets {
			id, ok := record["id"].(surrealql.Thing)
			if !ok {
				return nil, newError(KindQuery, "stored record has no id")
			}
			next := applyData(record, d.Mode, data)
			next["id"] = id
			if err := replaceRecord(x.tx, x.ns, x.db, id, next); err != nil {
				return nil, err
			}
			out = append(out, next)
		}
	}
	return out, nil
}

func (x *recordTx) upsertMissing(table string, th *surrealql.Thing, mode surrealql.DataMode, data surrealql.Object) (surrealql.Object, error) {
	record := applyData(surrealql.Object{}, mode, data)
	if th == nil {
		id, err := recordIDFromContent(table, record["id"])
		if err != nil {
			return nil, err
		}
		th = &surrealql.Thing{Table: table, ID: id}
	}
	record["id"] = *th
	if err := insertRecord(x.tx, x.ns, x.db, *th, record); err != nil {
		return nil, err
	}
	return record, nil
}

// insert stores one object or an array of objects in a table. Any record
// that already exists fails the whole statement.
func (x *recordTx) insert(s *surrealql.InsertStatement) (surrealql.Value, error) {
	table, th, err := x.resolve("INSERT", s.Into)
	if err != nil {
		return nil, err
	}
	if th != nil {
		return nil, newError(KindQuery, "Can not execute INSERT statement using value: %s", th.String())
	}
	v, err := surrealql.Eval(s.Data, x.vars)
	if err != nil {
		return nil, err
	}
	var rows surrealql.Array
	switch v := v.(type) {
	case surrealql.Object:
		rows = surrealql.Array{v}
	case surrealql.Array:
		rows = v
	default:
		return nil, newError(KindQuery, "Can not execute INSERT statement using value: %s", v.String())
	}

	out := make(surrealql.Array, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(surrealql.Object)
		if !ok {
			return nil, newError(KindQuery, "Can not execute INSERT statement using value: %s", row.String())
		}
		record := obj.Clone()
		id, err := recordIDFromContent(table, record["id"])
		if err != nil {
			return nil, err
		}
		rid := surrealql.Thing{Table: table, ID: id}
		if _, exists, err := getRecord(x.tx, x.ns, x.db, rid); err != nil {
			return nil, err
		} else if exists {
			return nil, newError(KindQuery, "Database record `%s` already exists", rid.String())
		}
		record["id"] = rid
		if err := insertRecord(x.tx, x.ns, x.db, rid, record); err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// applyData returns the record after a CONTENT or MERGE clause. Merging a
// NONE field removes it.
func applyData(record surrealql.Object, mode surrealql.DataMode, data surrealql.Object) surrealql.Object {
	switch mode {
	case surrealql.DataContent:
		return data.Clone()
	case surrealql.DataMerge:
		next := record.Clone()
		for k, v := range data {
			if surrealql.IsNone(v) {
				delete(next, k)
				continue
			}
			next[k] = v
		}
		return next
	default:
		return record.Clone()
	}
}

func (x *recordTx) delete(s *surrealql.DeleteStatement) (surrealql.Value, error) {
	for _, t := range s.What {
		table, th, err := x.resolve("DELETE", t)
		if err != nil {
			return nil, err
		}
		if th != nil {
			err = deleteRecord(x.tx, x.ns, x.db, *th)
		} else {
			err = deleteTable(x.tx, x.ns, x.db, table)
		}
		if err != nil {
			return nil, err
		}
	}
	return surrealql.Array{}, nil
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateID returns a random 20 character record id.
func generateID() string {
	a, b := uuid.New(), uuid.New()
	raw := append(a[:], b[:]...)
	out := make([]byte, 20)
	for i := range out {
		out[i] = idAlphabet[int(raw[i])%len(idAlphabet)]
	}
	// ids starting with a digit would need escaping when rendered
	if out[0] >= '0' && out[0] <= '9' {
		out[0] = idAlphabet[int(raw[20])%26]
	}
	return string(out)
}
