// Package typekey implements the canonical identity of a binding
// request (spec.md §3.1, §3.2, §4.1): TypeKey and ContextualTypeKey.
//
// Grounded on dig's key{t, name, group} (dig.go) and the wrapping rules
// implied by dig's paramSingle/paramGroupedSlice (param.go), generalized
// from dig's single "optional name xor group" string pair to an
// arbitrary qualifier plus an explicit wrapping-kind enum, since the
// spec's graphs distinguish Provider<T>/Lazy<T>/Provider<Lazy<T>> as
// first-class request shapes rather than dig's request-time-only
// optional/group tags.
package typekey

import (
	"crypto/md5"
	"encoding/base64"
	"sort"

	"github.com/bindgraph/resolver/rawtype"
)

// TypeKey is the canonical (type, optional qualifier) identity of a
// binding request (spec.md §3.1).
type TypeKey struct {
	Type      rawtype.Type
	Qualifier *rawtype.Qualifier
}

// New canonicalizes t and pairs it with q to produce a TypeKey. Two
// TypeKeys built from type-argument-order-equivalent or
// attribute-differing inputs that otherwise name the same type and
// qualifier compare equal.
func New(t rawtype.Type, q *rawtype.Qualifier) TypeKey {
	return TypeKey{Type: t.Canonicalize(), Qualifier: q}
}

// Render renders k deterministically. When includeQualifier is true and
// k has a qualifier, the qualifier is appended after the type.
func (k TypeKey) Render(short, includeQualifier bool) string {
	s := k.Type.Render(short)
	if includeQualifier && k.Qualifier != nil {
		s += " " + k.Qualifier.Render()
	}
	return s
}

// String renders k fully-qualified, with its qualifier.
func (k TypeKey) String() string {
	return k.Render(false, true)
}

// Equal reports whether k and other are the same canonical identity.
func (k TypeKey) Equal(other TypeKey) bool {
	return k.Type.Equal(other.Type) && k.Qualifier.Equal(other.Qualifier)
}

// Less orders k before other using the stable render-string ordering
// spec.md §3.1 requires ("ordering is by the canonical render string,
// stable across runs").
func (k TypeKey) Less(other TypeKey) bool {
	return k.Render(false, true) < other.Render(false, true)
}

// accessorMD5 renders "accessor_" || base64(md5(render)), truncating the
// hash portion to 12 characters (spec.md §3.1). spec.md §9's Open
// Questions explicitly declines to upgrade this to a longer digest ("do
// NOT guess the original intent") — the residual collision risk is
// accepted, matching the source as specified.
func accessorMD5(render string) string {
	sum := md5.Sum([]byte(render))
	enc := base64.RawURLEncoding.EncodeToString(sum[:])
	if len(enc) > 12 {
		enc = enc[:12]
	}
	return "accessor_" + enc
}

// AccessorName derives the stable external name used where code
// generation needs one: accessorHint if non-empty, otherwise
// "accessor_" || base64(md5(render)), with an optional "_provider"
// suffix (spec.md §3.1).
func (k TypeKey) AccessorName(accessorHint string, isProvider bool) string {
	name := accessorHint
	if name == "" {
		name = accessorMD5(k.Render(false, true))
	}
	if isProvider {
		name += "_provider"
	}
	return name
}

// SortKeys sorts a slice of TypeKeys by their stable render order,
// in place, and also returns it for chaining. Every place §4.6's
// "Ordering determinism" requirement folds a set of TypeKeys into a
// list must route through this, never range over a map directly.
func SortKeys(keys []TypeKey) []TypeKey {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
