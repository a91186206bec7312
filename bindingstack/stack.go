// Package bindingstack implements spec.md §4.3's BindingStack: a
// mutable, cycle-and-context-aware stack of request frames used for
// diagnostics and for detecting graph-self-cycles during node
// construction.
//
// Grounded on dig's cycle-path rendering (cycle.go: errCycleDetected
// renders a chain of "X provided by Y (file:line) depends on ..."
// entries) generalized into a reusable, render-anytime stack rather than
// a one-shot error struct, since spec.md needs the same rendering for
// missing-binding, scope-mismatch, and cycle diagnostics alike (spec.md
// §4.6 "rendered stack" / "stack rendered along the cycle").
package bindingstack

import (
	"fmt"
	"strings"

	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/typekey"
)

// Category classifies why an entry was pushed (spec.md §4.3).
type Category int

const (
	RequestedAt Category = iota
	InjectedAt
	SimpleTypeRef
	GeneratedExtensionAt
)

func (c Category) String() string {
	switch c {
	case RequestedAt:
		return "requested at"
	case InjectedAt:
		return "injected at"
	case SimpleTypeRef:
		return "referenced at"
	case GeneratedExtensionAt:
		return "generated extension at"
	default:
		return "at"
	}
}

// Entry records one frame: the contextual key being resolved, the
// declaration where the request originated, and why it was pushed.
type Entry struct {
	Key         typekey.ContextualTypeKey
	Declaration decl.Declaration
	Category    Category
}

// Stack is a growable vector of Entry values. It is not safe for
// concurrent use, matching spec.md §5's single-threaded resolver and
// §9's "do not retain across phases" guidance — a Stack is built fresh
// per top-level resolution and discarded once rendered.
type Stack struct {
	graphName string
	entries   []Entry
}

// New creates a Stack rooted at the given graph's fully-qualified name,
// which is always rendered first (spec.md §4.3 "the graph's
// fully-qualified name at the root").
func New(graphName string) *Stack {
	return &Stack{graphName: graphName}
}

// Push records a new frame.
func (s *Stack) Push(e Entry) {
	s.entries = append(s.entries, e)
}

// Pop removes the most recently pushed frame. It is a no-op on an empty
// stack.
func (s *Stack) Pop() {
	if len(s.entries) == 0 {
		return
	}
	s.entries = s.entries[:len(s.entries)-1]
}

// Len reports the number of frames currently on the stack.
func (s *Stack) Len() int {
	return len(s.entries)
}

// EntryFor returns the first (deepest, i.e. earliest-pushed) entry whose
// key's TypeKey matches k, and true, identifying a cycle during node
// construction ("graph-depends-on-itself", spec.md §4.3). The second
// return is false if k is not currently on the stack.
func (s *Stack) EntryFor(k typekey.TypeKey) (Entry, bool) {
	for _, e := range s.entries {
		if e.Key.TypeKey.Equal(k) {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a snapshot copy of the current frames, oldest first.
func (s *Stack) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Render renders the stack as a readable dependency chain, the graph's
// name first, each subsequent frame indented and joined with "depends
// on" — the same shape as dig's errCycleDetected.Error (cycle.go), but
// over this package's richer Entry (contextual key + category) rather
// than dig's bare key.
func (s *Stack) Render() string {
	var b strings.Builder
	b.WriteString(s.graphName)
	for _, e := range s.entries {
		b.WriteString("\n\tdepends on ")
		fmt.Fprintf(&b, "%s %s %s", e.Key.Render(false), e.Category, e.Declaration)
	}
	return b.String()
}

// RenderFrom renders only the frames from index i onward, used to
// render the cycle-only suffix of a longer stack (spec.md §4.6 step 4
// "stack rendered along the cycle").
func (s *Stack) RenderFrom(i int) string {
	if i < 0 || i > len(s.entries) {
		i = 0
	}
	cp := &Stack{graphName: s.graphName, entries: s.entries[i:]}
	return cp.Render()
}
