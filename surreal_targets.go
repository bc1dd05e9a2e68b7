package surreal

import (
	"fmt"

	"github.com/harry-xi/surrealdb.java/surrealql"
)

// Operations on resource strings. A resource names a table or a record id;
// results covering several records come back as one array value, walked
// with ValueLen and ValueIndex.

// SelectTargetsValues returns a handle to the array of records the targets
// name. Missing records are skipped.
func (b *Bridge) SelectTargetsValues(h Handle, targets [][]byte) (Handle, error) {
	const op = "selectTargetsValues"
	list, err := hostTargets(targets)
	if err != nil {
		return 0, b.fail(op, err)
	}
	l, inst, err := b.connection(h)
	if err != nil {
		return 0, b.fail(op, err)
	}
	defer l.Release()
	inst.expect(op, StateDatabaseSelected)
	return b.arrayResult(op, inst, "SELECT * FROM "+list, nil)
}

// UpdateTargetValue applies the value behind v to every record target
// names and returns a handle to the array of updated records.
func (b *Bridge) UpdateTargetValue(h Handle, target []byte, mode UpdateMode, v Handle) (Handle, error) {
	return b.targetsValue("updateTargetValue", "UPDATE", h, [][]byte{target}, mode, v)
}

// UpdateTargetsValue is UpdateTargetValue over several targets in one
// statement.
func (b *Bridge) UpdateTargetsValue(h Handle, targets [][]byte, mode UpdateMode, v Handle) (Handle, error) {
	return b.targetsValue("updateTargetsValue", "UPDATE", h, targets, mode, v)
}

// UpsertTargetValue is UpdateTargetValue that creates a missing record id,
// or one record when a table is empty.
func (b *Bridge) UpsertTargetValue(h Handle, target []byte, mode UpdateMode, v Handle) (Handle, error) {
	return b.targetsValue("upsertTargetValue", "UPSERT", h, [][]byte{target}, mode, v)
}

// UpsertTargetsValue is UpsertTargetValue over several targets.
func (b *Bridge) UpsertTargetsValue(h Handle, targets [][]byte, mode UpdateMode, v Handle) (Handle, error) {
	return b.targetsValue("upsertTargetsValue", "UPSERT", h, targets, mode, v)
}

func (b *Bridge) targetsValue(op, verb string, h Handle, targets [][]byte, mode UpdateMode, v Handle) (Handle, error) {
	list, err := hostTargets(targets)
	if err != nil {
		return 0, b.fail(op, err)
	}
	sql, err := dataQuery(verb, list, mode)
	if err != nil {
		return 0, b.fail(op, err)
	}
	l, inst, err := b.connection(h, Ref{Handle: v, Kind: KindValue})
	if err != nil {
		return 0, b.fail(op, err)
	}
	defer l.Release()
	inst.expect(op, StateDatabaseSelected)
	return b.arrayResult(op, inst, sql, map[string]surrealql.Value{"val": l.Get(v).(surrealql.Value)})
}

// InsertTargetValues inserts one record per value into table. The returned
// handles follow the order of vs. Either every record handle is returned or
// none is.
func (b *Bridge) InsertTargetValues(h Handle, table []byte, vs []Handle) ([]Handle, error) {
	const op = "insertTargetValues"
	tb, err := hostString(table)
	if err != nil {
		return nil, b.fail(op, err)
	}
	sql, err := insertQuery(tb)
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

	vals := surrealql.Array(leaseValues(l, vs))
	resp, err := b.run(inst, sql, map[string]surrealql.Value{"vals": vals})
	if err != nil {
		return nil, b.fail(op, err)
	}
	records, err := takeArray(resp, 0)
	if err != nil {
		return nil, b.fail(op, err)
	}
	if len(records) != len(vs) {
		return nil, b.fail(op, fmt.Errorf("%w: inserted %d records for %d values", ErrResultShape, len(records), len(vs)))
	}
	out, err := b.registerAll(records)
	if err != nil {
		return nil, b.fail(op, err)
	}
	return out, nil
}

// DeleteTarget deletes every record target names.
func (b *Bridge) DeleteTarget(h Handle, target []byte) (bool, error) {
	const op = "deleteTarget"
	list, err := hostTargets([][]byte{target})
	if err != nil {
		return false, b.fail(op, err)
	}
	l, inst, err := b.connection(h)
	if err != nil {
		return false, b.fail(op, err)
	}
	defer l.Release()
	inst.expect(op, StateDatabaseSelected)
	resp, err := b.run(inst, "DELETE "+list, nil)
	if err != nil {
		return false, b.fail(op, err)
	}
	if _, err := takeArray(resp, 0); err != nil {
		return false, b.fail(op, err)
	}
	return true, nil
}

func hostTargets(targets [][]byte) (string, error) {
	res, err := hostStrings(targets)
	if err != nil {
		return "", err
	}
	return parseTargets(res)
}

// arrayResult runs sql and registers the array result of its only
// statement as one value.
func (b *Bridge) arrayResult(op string, inst *instance, sql string, params map[string]surrealql.Value) (Handle, error) {
	resp, err := b.run(inst, sql, params)
	if err != nil {
		return 0, b.fail(op, err)
	}
	records, err := takeArray(resp, 0)
	if err != nil {
		return 0, b.fail(op, err)
	}
	out, err := b.register(KindValue, records)
	if err != nil {
		return 0, b.fail(op, err)
	}
	return out, nil
}

// ValueLen returns the number of elements of an array value, or -1.
func (b *Bridge) ValueLen(v Handle) (int, error) {
	const op = "valueLen"
	val, err := b.value(op, v)
	if err != nil {
		return -1, err
	}
	arr, ok := val.(surrealql.Array)
	if !ok {
		return -1, b.fail(op, fmt.Errorf("%w: %s is not an array", ErrResultShape, val.Kind()))
	}
	return len(arr), nil
}

// ValueIndex returns a handle to element i of an array value.
func (b *Bridge) ValueIndex(v Handle, i int) (Handle, error) {
	const op = "valueIndex"
	val, err := b.value(op, v)
	if err != nil {
		return 0, err
	}
	arr, ok := val.(surrealql.Array)
	if !ok {
		return 0, b.fail(op, fmt.Errorf("%w: %s is not an array", ErrResultShape, val.Kind()))
	}
	if i < 0 || i >= len(arr) {
		return 0, b.fail(op, fmt.Errorf("%w: %d of %d", ErrElementIndex, i, len(arr)))
	}
	return b.newValue(op, arr[i], nil)
}
