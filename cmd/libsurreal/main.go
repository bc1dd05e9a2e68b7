//go:build cgo

// Command libsurreal builds the bridge as a C shared library:
//
//	go build -buildmode=c-shared -o libsurreal.so ./cmd/libsurreal
//
// Strings cross the boundary as pointer and length pairs so that invalid
// UTF-8 reaches the bridge instead of being cut at a NUL byte. Every entry
// point takes a trailing errPtr; on failure it is set to a malloc'd message
// the host frees with surreal_free_string. Results covering several records
// are array values walked with surreal_value_len and surreal_value_index.
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

typedef uint64_t surreal_handle_t;
*/
import "C"

import (
	"unsafe"

	surreal "github.com/harry-xi/surrealdb.java"
)

// errSink copies raised errors into the caller's errPtr before passing them on.
type errSink struct {
	errPtr **C.char
	next   surreal.Signaler
}

func (s errSink) Raise(err *surreal.Error) {
	if s.errPtr != nil {
		*s.errPtr = C.CString(err.Error())
	}
	s.next.Raise(err)
}

func call(errPtr **C.char) *surreal.Bridge {
	b := surreal.Default()
	return b.WithSignaler(errSink{errPtr: errPtr, next: b.Signaler()})
}

func setError(msg string, errPtr **C.char) {
	if errPtr != nil {
		*errPtr = C.CString(msg)
	}
}

func (a *args) str(p *C.char, n C.size_t) []byte {
	return a.bytes(unsafe.Pointer(p), uintptr(n))
}

func (a *args) strs(p **C.char, lens *C.size_t, n C.size_t) [][]byte {
	return a.names(unsafe.Pointer(p), unsafe.Pointer(lens), uintptr(n))
}

func (a *args) hs(p *C.surreal_handle_t, n C.size_t) []surreal.Handle {
	return a.handles(unsafe.Pointer(p), uintptr(n))
}

func cMalloc(size uintptr) unsafe.Pointer {
	return C.malloc(C.size_t(size))
}

// cHandles copies hs into a malloc'd array. Empty results are NULL.
func cHandles(hs []surreal.Handle, outLen *C.size_t) *C.surreal_handle_t {
	p, n := copyHandles(hs, cMalloc)
	if outLen != nil {
		*outLen = C.size_t(n)
	}
	return (*C.surreal_handle_t)(p)
}

func cString(s string, err error) *C.char {
	if err != nil {
		return nil
	}
	return C.CString(s)
}

func updateMode(merge C.bool) surreal.UpdateMode {
	if merge {
		return surreal.UpdateMerge
	}
	return surreal.UpdateContent
}

//export surreal_init
func surreal_init(workers C.int32_t, onError unsafe.Pointer, errPtr **C.char) C.bool {
	cfg, err := surreal.ConfigFromEnv()
	if err != nil {
		setError(err.Error(), errPtr)
		return false
	}
	if workers > 0 {
		cfg.Workers = int(workers)
	}
	if onError != nil {
		sig, err := surreal.NewCallbackSignaler(uintptr(onError))
		if err != nil {
			setError(err.Error(), errPtr)
			return false
		}
		cfg.Signaler = sig
	}
	if _, err := surreal.Setup(cfg); err != nil {
		setError(err.Error(), errPtr)
		return false
	}
	return true
}

//export surreal_shutdown
func surreal_shutdown() {
	_ = surreal.Shutdown()
}

//export surreal_free_string
func surreal_free_string(s *C.char) {
	C.free(unsafe.Pointer(s))
}

//export surreal_free_handles
func surreal_free_handles(hs *C.surreal_handle_t) {
	C.free(unsafe.Pointer(hs))
}

//export surreal_new_instance
func surreal_new_instance(errPtr **C.char) C.surreal_handle_t {
	h, _ := call(errPtr).NewInstance()
	return C.surreal_handle_t(h)
}

//export surreal_delete_instance
func surreal_delete_instance(h C.surreal_handle_t, errPtr **C.char) C.bool {
	ok, _ := call(errPtr).DeleteInstance(surreal.Handle(h))
	return C.bool(ok)
}

//export surreal_connect
func surreal_connect(h C.surreal_handle_t, addr *C.char, addrLen C.size_t, errPtr **C.char) C.bool {
	b, a := call(errPtr), args{}
	address := a.str(addr, addrLen)
	if a.failed(b, "connect") {
		return false
	}
	ok, _ := b.Connect(surreal.Handle(h), address)
	return C.bool(ok)
}

//export surreal_signin_root
func surreal_signin_root(h C.surreal_handle_t, user *C.char, userLen C.size_t, pass *C.char, passLen C.size_t, errPtr **C.char) *C.char {
	b, a := call(errPtr), args{}
	u, p := a.str(user, userLen), a.str(pass, passLen)
	if a.failed(b, "signinRoot") {
		return nil
	}
	return cString(b.SigninRoot(surreal.Handle(h), u, p))
}

//export surreal_use_ns
func surreal_use_ns(h C.surreal_handle_t, ns *C.char, nsLen C.size_t, errPtr **C.char) C.bool {
	b, a := call(errPtr), args{}
	name := a.str(ns, nsLen)
	if a.failed(b, "useNs") {
		return false
	}
	ok, _ := b.UseNs(surreal.Handle(h), name)
	return C.bool(ok)
}

//export surreal_use_db
func surreal_use_db(h C.surreal_handle_t, db *C.char, dbLen C.size_t, errPtr **C.char) C.bool {
	b, a := call(errPtr), args{}
	name := a.str(db, dbLen)
	if a.failed(b, "useDb") {
		return false
	}
	ok, _ := b.UseDb(surreal.Handle(h), name)
	return C.bool(ok)
}

//export surreal_query
func surreal_query(h C.surreal_handle_t, text *C.char, textLen C.size_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	sql := a.str(text, textLen)
	if a.failed(b, "query") {
		return 0
	}
	r, _ := b.Query(surreal.Handle(h), sql)
	return C.surreal_handle_t(r)
}

//export surreal_query_bind
func surreal_query_bind(h C.surreal_handle_t, text *C.char, textLen C.size_t, names **C.char, nameLens *C.size_t, values *C.surreal_handle_t, n C.size_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	sql, keys, vs := a.str(text, textLen), a.strs(names, nameLens, n), a.hs(values, n)
	if a.failed(b, "query") {
		return 0
	}
	r, _ := b.QueryBind(surreal.Handle(h), sql, keys, vs)
	return C.surreal_handle_t(r)
}

//export surreal_create_table_value
func surreal_create_table_value(h C.surreal_handle_t, resource *C.char, resourceLen C.size_t, v C.surreal_handle_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	res := a.str(resource, resourceLen)
	if a.failed(b, "createTableValue") {
		return 0
	}
	out, _ := b.CreateTableValue(surreal.Handle(h), res, surreal.Handle(v))
	return C.surreal_handle_t(out)
}

//export surreal_create_table_values
func surreal_create_table_values(h C.surreal_handle_t, table *C.char, tableLen C.size_t, vs *C.surreal_handle_t, n C.size_t, outLen *C.size_t, errPtr **C.char) *C.surreal_handle_t {
	b, a := call(errPtr), args{}
	tb, values := a.str(table, tableLen), a.hs(vs, n)
	if a.failed(b, "createTableValues") {
		return cHandles(nil, outLen)
	}
	out, _ := b.CreateTableValues(surreal.Handle(h), tb, values)
	return cHandles(out, outLen)
}

//export surreal_insert_target_values
func surreal_insert_target_values(h C.surreal_handle_t, table *C.char, tableLen C.size_t, vs *C.surreal_handle_t, n C.size_t, outLen *C.size_t, errPtr **C.char) *C.surreal_handle_t {
	b, a := call(errPtr), args{}
	tb, values := a.str(table, tableLen), a.hs(vs, n)
	if a.failed(b, "insertTargetValues") {
		return cHandles(nil, outLen)
	}
	out, _ := b.InsertTargetValues(surreal.Handle(h), tb, values)
	return cHandles(out, outLen)
}

//export surreal_select_thing
func surreal_select_thing(h C.surreal_handle_t, thing C.surreal_handle_t, errPtr **C.char) C.surreal_handle_t {
	out, _ := call(errPtr).SelectThing(surreal.Handle(h), surreal.Handle(thing))
	return C.surreal_handle_t(out)
}

//export surreal_select_things
func surreal_select_things(h C.surreal_handle_t, things *C.surreal_handle_t, n C.size_t, outLen *C.size_t, errPtr **C.char) *C.surreal_handle_t {
	b, a := call(errPtr), args{}
	ths := a.hs(things, n)
	if a.failed(b, "selectThings") {
		return cHandles(nil, outLen)
	}
	out, _ := b.SelectThings(surreal.Handle(h), ths)
	return cHandles(out, outLen)
}

//export surreal_select_targets_values
func surreal_select_targets_values(h C.surreal_handle_t, targets **C.char, targetLens *C.size_t, n C.size_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	ts := a.strs(targets, targetLens, n)
	if a.failed(b, "selectTargetsValues") {
		return 0
	}
	out, _ := b.SelectTargetsValues(surreal.Handle(h), ts)
	return C.surreal_handle_t(out)
}

//export surreal_update_thing_value
func surreal_update_thing_value(h C.surreal_handle_t, thing C.surreal_handle_t, merge C.bool, v C.surreal_handle_t, errPtr **C.char) C.surreal_handle_t {
	out, _ := call(errPtr).UpdateThingValue(surreal.Handle(h), surreal.Handle(thing), updateMode(merge), surreal.Handle(v))
	return C.surreal_handle_t(out)
}

//export surreal_upsert_thing_value
func surreal_upsert_thing_value(h C.surreal_handle_t, thing C.surreal_handle_t, merge C.bool, v C.surreal_handle_t, errPtr **C.char) C.surreal_handle_t {
	out, _ := call(errPtr).UpsertThingValue(surreal.Handle(h), surreal.Handle(thing), updateMode(merge), surreal.Handle(v))
	return C.surreal_handle_t(out)
}

// surreal_update_targets_value and surreal_upsert_targets_value take one
// or more targets; a single target behaves as updateTargetValue.
//
//export surreal_update_targets_value
func surreal_update_targets_value(h C.surreal_handle_t, targets **C.char, targetLens *C.size_t, n C.size_t, merge C.bool, v C.surreal_handle_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	ts := a.strs(targets, targetLens, n)
	if a.failed(b, "updateTargetsValue") {
		return 0
	}
	out, _ := b.UpdateTargetsValue(surreal.Handle(h), ts, updateMode(merge), surreal.Handle(v))
	return C.surreal_handle_t(out)
}

//export surreal_upsert_targets_value
func surreal_upsert_targets_value(h C.surreal_handle_t, targets **C.char, targetLens *C.size_t, n C.size_t, merge C.bool, v C.surreal_handle_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	ts := a.strs(targets, targetLens, n)
	if a.failed(b, "upsertTargetsValue") {
		return 0
	}
	out, _ := b.UpsertTargetsValue(surreal.Handle(h), ts, updateMode(merge), surreal.Handle(v))
	return C.surreal_handle_t(out)
}

//export surreal_delete_thing
func surreal_delete_thing(h C.surreal_handle_t, thing C.surreal_handle_t, errPtr **C.char) C.bool {
	ok, _ := call(errPtr).DeleteThing(surreal.Handle(h), surreal.Handle(thing))
	return C.bool(ok)
}

//export surreal_delete_things
func surreal_delete_things(h C.surreal_handle_t, things *C.surreal_handle_t, n C.size_t, errPtr **C.char) C.bool {
	b, a := call(errPtr), args{}
	ths := a.hs(things, n)
	if a.failed(b, "deleteThings") {
		return false
	}
	ok, _ := b.DeleteThings(surreal.Handle(h), ths)
	return C.bool(ok)
}

//export surreal_delete_target
func surreal_delete_target(h C.surreal_handle_t, target *C.char, targetLen C.size_t, errPtr **C.char) C.bool {
	b, a := call(errPtr), args{}
	t := a.str(target, targetLen)
	if a.failed(b, "deleteTarget") {
		return false
	}
	ok, _ := b.DeleteTarget(surreal.Handle(h), t)
	return C.bool(ok)
}

//export surreal_response_size
func surreal_response_size(r C.surreal_handle_t, errPtr **C.char) C.int64_t {
	n, _ := call(errPtr).ResponseSize(surreal.Handle(r))
	return C.int64_t(n)
}

//export surreal_response_take
func surreal_response_take(r C.surreal_handle_t, i C.size_t, errPtr **C.char) C.surreal_handle_t {
	out, _ := call(errPtr).ResponseTake(surreal.Handle(r), int(i))
	return C.surreal_handle_t(out)
}

//export surreal_response_release
func surreal_response_release(r C.surreal_handle_t, errPtr **C.char) C.bool {
	ok, _ := call(errPtr).ResponseRelease(surreal.Handle(r))
	return C.bool(ok)
}

//export surreal_value_from_json
func surreal_value_from_json(doc *C.char, docLen C.size_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	d := a.str(doc, docLen)
	if a.failed(b, "valueFromJson") {
		return 0
	}
	v, _ := b.ValueFromJSON(d)
	return C.surreal_handle_t(v)
}

//export surreal_value_parse
func surreal_value_parse(text *C.char, textLen C.size_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	t := a.str(text, textLen)
	if a.failed(b, "valueParse") {
		return 0
	}
	v, _ := b.ValueParse(t)
	return C.surreal_handle_t(v)
}

//export surreal_thing_new
func surreal_thing_new(table *C.char, tableLen C.size_t, id C.surreal_handle_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	tb := a.str(table, tableLen)
	if a.failed(b, "thingNew") {
		return 0
	}
	v, _ := b.ThingNew(tb, surreal.Handle(id))
	return C.surreal_handle_t(v)
}

//export surreal_thing_parse
func surreal_thing_parse(text *C.char, textLen C.size_t, errPtr **C.char) C.surreal_handle_t {
	b, a := call(errPtr), args{}
	t := a.str(text, textLen)
	if a.failed(b, "thingParse") {
		return 0
	}
	v, _ := b.ThingParse(t)
	return C.surreal_handle_t(v)
}

//export surreal_value_to_json
func surreal_value_to_json(v C.surreal_handle_t, errPtr **C.char) *C.char {
	return cString(call(errPtr).ValueToJSON(surreal.Handle(v)))
}

//export surreal_value_string
func surreal_value_string(v C.surreal_handle_t, errPtr **C.char) *C.char {
	return cString(call(errPtr).ValueString(surreal.Handle(v)))
}

// surreal_value_kind returns -1 on failure.
//
//export surreal_value_kind
func surreal_value_kind(v C.surreal_handle_t, errPtr **C.char) C.int32_t {
	k, err := call(errPtr).ValueKind(surreal.Handle(v))
	if err != nil {
		return -1
	}
	return C.int32_t(k)
}

// surreal_value_len returns -1 on failure.
//
//export surreal_value_len
func surreal_value_len(v C.surreal_handle_t, errPtr **C.char) C.int64_t {
	n, _ := call(errPtr).ValueLen(surreal.Handle(v))
	return C.int64_t(n)
}

//export surreal_value_index
func surreal_value_index(v C.surreal_handle_t, i C.size_t, errPtr **C.char) C.surreal_handle_t {
	out, _ := call(errPtr).ValueIndex(surreal.Handle(v), int(i))
	return C.surreal_handle_t(out)
}

//export surreal_value_release
func surreal_value_release(v C.surreal_handle_t, errPtr **C.char) C.bool {
	ok, _ := call(errPtr).ValueRelease(surreal.Handle(v))
	return C.bool(ok)
}
