package client

import (
	"net/url"
	"strings"
)

// EngineKind selects which engine serves a connection.
type EngineKind uint8

const (
	EngineMemory EngineKind = iota + 1
	EngineFile
	EngineRemote
)

func (k EngineKind) String() string {
	switch k {
	case EngineMemory:
		return "memory"
	case EngineFile:
		return "file"
	case EngineRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Address is a parsed connection string.
type Address struct {
	Engine EngineKind
	// Path is the database file for EngineFile.
	Path string
	// URL is the http(s) base url for EngineRemote.
	URL string
	// root credentials seeded into an embedded datastore
	User string
	Pass string
	// Strict is accepted for compatibility; the embedded engine ignores it.
	Strict bool
}

const (
	defaultRootUser = "root"
	defaultRootPass = "root"
)

// ParseAddress supports format: <scheme>://<location>[?user=<string>&pass=<string>&strict=0|1]
//
//	memory, mem://                      embedded, private in-memory datastore
//	file://, surrealkv://, rocksdb://   embedded, datastore file at <location>
//	http://, https://, ws://, wss://    remote server, ws schemes map to http
func ParseAddress(addr string) (Address, error) {
	out := Address{User: defaultRootUser, Pass: defaultRootPass}
	raw := addr
	if qMark := strings.IndexByte(addr, '?'); qMark >= 0 {
		raw = addr[:qMark]
		vals, err := url.ParseQuery(addr[qMark+1:])
		if err != nil {
			return Address{}, wrapError(KindConnection, err, "invalid address options in %q", addr)
		}
		if v := vals.Get("user"); v != "" {
			out.User = v
		}
		if v := vals.Get("pass"); v != "" {
			out.Pass = v
		}
		if v := vals.Get("strict"); v != "" {
			out.Strict = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
		}
	}

	if strings.EqualFold(raw, "memory") {
		out.Engine = EngineMemory
		return out, nil
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Address{}, newError(KindConnection, "unsupported address %q", addr)
	}
	switch strings.ToLower(scheme) {
	case "mem", "memory":
		out.Engine = EngineMemory
	case "file", "surrealkv", "rocksdb":
		if rest == "" {
			return Address{}, newError(KindConnection, "missing datastore path in %q", addr)
		}
		out.Engine = EngineFile
		out.Path = rest
	case "http", "https", "ws", "wss":
		if rest == "" {
			return Address{}, newError(KindConnection, "missing host in %q", addr)
		}
		out.Engine = EngineRemote
		out.URL = normalizeUrl(strings.ToLower(scheme) + "://" + strings.TrimRight(rest, "/"))
	default:
		return Address{}, newError(KindConnection, "unsupported address scheme %q", scheme)
	}
	return out, nil
}

func normalizeUrl(base string) string {
	if cut, ok := strings.CutPrefix(base, "ws://"); ok {
		base = "http://" + cut
	} else if cut, ok := strings.CutPrefix(base, "wss://"); ok {
		base = "https://" + cut
	}
	// servers are usually addressed through their rpc endpoint
	return strings.TrimSuffix(base, "/rpc")
}

func joinUrl(base, p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(base, "/") + p
}
