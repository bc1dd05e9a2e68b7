package surreal

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/harry-xi/surrealdb.java/client"
	"github.com/harry-xi/surrealdb.java/surrealql"
)

// hostString converts host string bytes. Invalid UTF-8 is rejected, never
// truncated or replaced.
func hostString(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

func hostStrings(bs [][]byte) ([]string, error) {
	out := make([]string, len(bs))
	for i, b := range bs {
		s, err := hostString(b)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

func valueRefs(hs []Handle) []Ref {
	refs := make([]Ref, len(hs))
	for i, h := range hs {
		refs[i] = Ref{Handle: h, Kind: KindValue}
	}
	return refs
}

// leaseValues reads borrowed values in handle order.
func leaseValues(l *Lease, hs []Handle) []surrealql.Value {
	out := make([]surrealql.Value, len(hs))
	for i, h := range hs {
		out[i] = l.Get(h).(surrealql.Value)
	}
	return out
}

func leaseThings(l *Lease, hs []Handle) ([]surrealql.Thing, error) {
	out := make([]surrealql.Thing, len(hs))
	for i, h := range hs {
		th, ok := l.Get(h).(surrealql.Thing)
		if !ok {
			return nil, fmt.Errorf("%w: handle %d holds %s", ErrNotThing, uint64(h), l.Get(h).(surrealql.Value).Kind())
		}
		out[i] = th
	}
	return out, nil
}

func parseResource(resource string) (surrealql.Target, error) {
	t, err := surrealql.ParseTarget(resource)
	if err != nil {
		return surrealql.Target{}, fmt.Errorf("%w %q: %v", ErrBadResource, resource, err)
	}
	return t, nil
}

// createQuery builds the statement creating one record from $val. The
// resource is a table name or a record id and is re-rendered canonically.
func createQuery(resource string) (string, error) {
	t, err := parseResource(resource)
	if err != nil {
		return "", err
	}
	return "CREATE " + t.String() + " CONTENT $val", nil
}

// createBatchQuery builds n CREATE statements on table, bound to the
// parameters i0..i(n-1) in order.
func createBatchQuery(table string, n int) (string, []string, error) {
	t, err := parseResource(table)
	if err != nil {
		return "", nil, err
	}
	if _, ok := t.Thing(); ok {
		return "", nil, fmt.Errorf("%w %q: expected a table name", ErrBadResource, table)
	}
	target := t.String()
	var b strings.Builder
	params := make([]string, n)
	for i := 0; i < n; i++ {
		params[i] = "i" + strconv.Itoa(i)
		if i > 0 {
			b.WriteString(";\n")
		}
		b.WriteString("CREATE ")
		b.WriteString(target)
		b.WriteString(" CONTENT $")
		b.WriteString(params[i])
	}
	return b.String(), params, nil
}

func joinThings(things []surrealql.Thing) string {
	parts := make([]string, len(things))
	for i, th := range things {
		parts[i] = th.String()
	}
	return strings.Join(parts, ", ")
}

func selectQuery(things []surrealql.Thing) string {
	return "SELECT * FROM " + joinThings(things)
}

func deleteQuery(things []surrealql.Thing) string {
	return "DELETE " + joinThings(things)
}

// UpdateMode selects how update and upsert operations apply the new value.
type UpdateMode uint8

const (
	// UpdateContent replaces the record content.
	UpdateContent UpdateMode = iota
	// UpdateMerge merges fields into the record.
	UpdateMerge
)

// dataQuery builds verb over the rendered targets with $val applied by mode.
func dataQuery(verb, targets string, mode UpdateMode) (string, error) {
	switch mode {
	case UpdateContent:
		return verb + " " + targets + " CONTENT $val", nil
	case UpdateMerge:
		return verb + " " + targets + " MERGE $val", nil
	default:
		return "", fmt.Errorf("%w: unknown update mode %d", ErrBadResource, mode)
	}
}

// parseTargets parses and re-renders host resources as a target list.
func parseTargets(resources []string) (string, error) {
	if len(resources) == 0 {
		return "", fmt.Errorf("%w: no targets", ErrBadResource)
	}
	parts := make([]string, len(resources))
	for i, r := range resources {
		t, err := parseResource(r)
		if err != nil {
			return "", err
		}
		parts[i] = t.String()
	}
	return strings.Join(parts, ", "), nil
}

// insertQuery builds the statement inserting the array $vals into table.
func insertQuery(table string) (string, error) {
	t, err := parseResource(table)
	if err != nil {
		return "", err
	}
	if _, ok := t.Thing(); ok {
		return "", fmt.Errorf("%w %q: expected a table name", ErrBadResource, table)
	}
	return "INSERT INTO " + t.String() + " $vals", nil
}

func takeStatement(resp *client.Response, i int) (surrealql.Value, error) {
	if i < 0 || i >= resp.Len() {
		return nil, fmt.Errorf("%w: statement %d of %d", ErrMissingResult, i, resp.Len())
	}
	return resp.Take(i)
}

// takeArray unwraps the array result of statement i.
func takeArray(resp *client.Response, i int) (surrealql.Array, error) {
	v, err := takeStatement(resp, i)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(surrealql.Array)
	if !ok {
		return nil, fmt.Errorf("%w: statement %d returned %s, expected an array", ErrResultShape, i, v.Kind())
	}
	return arr, nil
}

// takeSingleton requires statement i to have produced exactly one record.
func takeSingleton(resp *client.Response, i int) (surrealql.Value, error) {
	arr, err := takeArray(resp, i)
	if err != nil {
		return nil, err
	}
	if len(arr) != 1 {
		return nil, fmt.Errorf("%w: statement %d returned %d records, expected 1", ErrResultShape, i, len(arr))
	}
	return arr[0], nil
}

// takeOptional is takeSingleton that maps an empty result to NONE.
func takeOptional(resp *client.Response, i int) (surrealql.Value, error) {
	arr, err := takeArray(resp, i)
	if err != nil {
		return nil, err
	}
	switch len(arr) {
	case 0:
		return surrealql.None{}, nil
	case 1:
		return arr[0], nil
	default:
		return nil, fmt.Errorf("%w: statement %d returned %d records, expected at most 1", ErrResultShape, i, len(arr))
	}
}
