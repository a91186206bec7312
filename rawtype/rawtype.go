// Package rawtype holds the frontend-agnostic descriptors the resolver
// builds TypeKeys from. The host compiler's own type representation is
// projected into these descriptors once, at the GraphSpec boundary; the
// resolver never looks past them.
package rawtype

import (
	"sort"
	"strings"
)

// Type is a canonicalizable reference to a class, interface, or built-in
// type, possibly parameterized. It stands in for whatever type
// representation the host compiler's frontend actually uses.
type Type struct {
	// Name is the fully-qualified name of the referenced declaration,
	// e.g. "com.example.Foo" or "kotlin.collections.Set".
	Name string

	// Args holds canonicalized type arguments, in declaration order.
	Args []Type

	// Nullable preserves nullability through canonicalization.
	Nullable bool

	// Attributes are annotation-only markers (e.g. a `@JvmStatic`-style
	// marker on a type-use) that carry no identity and are stripped by
	// Canonicalize.
	Attributes []string
}

// Qualifier is an annotation that distinguishes two otherwise identical
// TypeKeys, e.g. a `@Named("db")`-style qualifier.
type Qualifier struct {
	Annotation string
	Args       map[string]string
}

// Canonicalize strips annotation-only variation (Attributes) while
// preserving nullability and the shape of type arguments, recursively.
//
// This is deliberately the single choke point for TypeKey identity: any
// two Types that should canonicalize to "the same" binding request must
// produce identical values here, including recursively through Args, or
// the phantom-duplicate problem spec.md's Open Questions warn about
// reappears.
func (t Type) Canonicalize() Type {
	out := Type{
		Name:     t.Name,
		Nullable: t.Nullable,
	}
	if len(t.Args) > 0 {
		out.Args = make([]Type, len(t.Args))
		for i, a := range t.Args {
			out.Args[i] = a.Canonicalize()
		}
	}
	return out
}

// Render produces a deterministic, total-ordered textual form of t.
// short controls whether Name is rendered fully-qualified or with its
// last path segment only.
func (t Type) Render(short bool) string {
	var b strings.Builder
	t.render(&b, short)
	return b.String()
}

func (t Type) render(b *strings.Builder, short bool) {
	name := t.Name
	if short {
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
	}
	b.WriteString(name)
	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.render(b, short)
		}
		b.WriteByte('>')
	}
	if t.Nullable {
		b.WriteByte('?')
	}
}

// Equal reports whether t and other canonicalize to the same value.
func (t Type) Equal(other Type) bool {
	return t.Canonicalize().Render(false) == other.Canonicalize().Render(false)
}

// Render renders the qualifier in a stable form, e.g. `@Named(name=db)`:
// arguments sorted by name, values written as given.
// A nil Qualifier renders as the empty string.
func (q *Qualifier) Render() string {
	if q == nil {
		return ""
	}
	var b strings.Builder
	b.WriteByte('@')
	b.WriteString(q.Annotation)
	if len(q.Args) > 0 {
		keys := make([]string, 0, len(q.Args))
		for k := range q.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('(')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(q.Args[k])
		}
		b.WriteByte(')')
	}
	return b.String()
}

// Equal reports whether two qualifiers (either of which may be nil)
// are the same qualifier.
func (q *Qualifier) Equal(other *Qualifier) bool {
	if q == nil || other == nil {
		return q == other
	}
	return q.Render() == other.Render()
}
