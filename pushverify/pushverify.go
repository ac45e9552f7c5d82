// Package pushverify implements the promised-request verifier collaborator
// the PUSH_PROMISE handler consults before reserving the promised stream.
package pushverify

import "github.com/i4oolish/h2decode/listener"

// Verifier exposes the three separate predicates spec.md section 4.2 asks
// the PUSH_PROMISE handler to check, kept distinct so diagnostics can
// identify which policy was violated.
type Verifier interface {
	IsAuthoritative(headers []listener.HeaderField) bool
	IsCacheable(headers []listener.HeaderField) bool
	IsSafe(headers []listener.HeaderField) bool
}

// AlwaysVerify is the default verifier spec.md section 6 names: accept
// every promised request unconditionally.
type AlwaysVerify struct{}

func (AlwaysVerify) IsAuthoritative([]listener.HeaderField) bool { return true }
func (AlwaysVerify) IsCacheable([]listener.HeaderField) bool     { return true }
func (AlwaysVerify) IsSafe([]listener.HeaderField) bool          { return true }

// Safe enforces RFC 7234/7540's actual push constraints: the promised
// method must be a safe, cacheable method (GET or HEAD) and must carry no
// request body indicators.
type Safe struct{}

func header(headers []listener.HeaderField, name string) (string, bool) {
	for _, h := range headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

func (Safe) IsAuthoritative(headers []listener.HeaderField) bool {
	_, hasAuthority := header(headers, ":authority")
	return hasAuthority
}

func (Safe) IsCacheable(headers []listener.HeaderField) bool {
	method, _ := header(headers, ":method")
	return method == "GET" || method == "HEAD"
}

func (Safe) IsSafe(headers []listener.HeaderField) bool {
	method, _ := header(headers, ":method")
	if method != "GET" && method != "HEAD" {
		return false
	}
	if _, hasBody := header(headers, "content-length"); hasBody {
		return false
	}
	return true
}
