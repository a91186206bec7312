// Package diag implements spec.md §7's error-handling design: one error
// kind per named failure mode, a Diagnostics sink collaborator (spec.md
// §6), and the "first fatal error wins" propagation policy (spec.md §5
// "Cancellation", §7 "Propagation policy").
//
// Grounded on dig's errf/RootCause/errCycleDetected family (dig.go,
// cycle.go): dig renders a short reason plus an indented chain of causes
// and exposes IsCycleDetected(err) via a RootCause unwrap helper. This
// package generalizes that one-off pattern into a Kind-tagged
// *Diagnostic usable for all of spec.md's error kinds, plus a
// fmt.Errorf-with-%w-style errf helper for ad-hoc wrapping elsewhere in
// the module.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which of spec.md §7's named error kinds a Diagnostic
// represents.
type Kind int

const (
	// KindDuplicateBinding: two same-level same-key bindings.
	KindDuplicateBinding Kind = iota
	// KindMissingBinding: unresolvable dependency.
	KindMissingBinding
	// KindDependencyCycle: non-deferrable cycle.
	KindDependencyCycle
	// KindIncompatiblyScopedBinding: scope not present on the graph.
	KindIncompatiblyScopedBinding
	// KindAssistedInjectMisuse: assisted binding used outside its factory.
	KindAssistedInjectMisuse
	// KindEmptyMultibinding: empty multibinding where allowEmpty=false.
	KindEmptyMultibinding
	// KindOverlappingAncestorScope: extension graph shares a scope with an ancestor.
	KindOverlappingAncestorScope
	// KindGraphSelfCycle: a creator parameter closes a cycle back to the
	// graph being built.
	KindGraphSelfCycle
	// KindNonExtendableParent: an extension contributes to a
	// non-extendable parent.
	KindNonExtendableParent
	// KindCompilerBug: any invariant violation.
	KindCompilerBug
	// KindProviderOfLazyAcrossGraphDependency: a Provider<Lazy<T>>-wrapped
	// request reaches across a graph-dependency boundary (an included or
	// parent graph's accessor). spec.md's Open Questions note the two
	// places the original disagrees on whether this is legal; this
	// resolver picks the fatal reading rather than guessing.
	KindProviderOfLazyAcrossGraphDependency
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateBinding:
		return "DuplicateBinding"
	case KindMissingBinding:
		return "MissingBinding"
	case KindDependencyCycle:
		return "DependencyCycle"
	case KindIncompatiblyScopedBinding:
		return "IncompatiblyScopedBinding"
	case KindAssistedInjectMisuse:
		return "AssistedInjectMisuse"
	case KindEmptyMultibinding:
		return "EmptyMultibinding"
	case KindOverlappingAncestorScope:
		return "OverlappingAncestorScope"
	case KindGraphSelfCycle:
		return "GraphSelfCycle"
	case KindNonExtendableParent:
		return "NonExtendableParent"
	case KindCompilerBug:
		return "CompilerBug"
	case KindProviderOfLazyAcrossGraphDependency:
		return "ProviderOfLazyAcrossGraphDependency"
	default:
		return "Unknown"
	}
}

// Fatal is true for kinds whose first occurrence must abort the
// compilation unit (spec.md §7 "Propagation policy"). DuplicateBinding is
// the one named non-fatal kind: duplicates "may accumulate before the
// final exit".
func (k Kind) Fatal() bool {
	return k != KindDuplicateBinding
}

// Diagnostic is a single reported problem. It always carries a short,
// stack-free summary plus an optional multi-line detail body (a rendered
// BindingStack, a list of similar-binding suggestions, a hint) built by
// the callers in package bindinggraph.
type Diagnostic struct {
	Kind    Kind
	Summary string
	Detail  string

	// Location is the human-readable source location this diagnostic
	// should be attached to, when one exists (empty for synthetic
	// bindings with no reportableDeclaration).
	Location string
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(d.Summary)
	if d.Location != "" {
		fmt.Fprintf(&b, " (at %s)", d.Location)
	}
	if d.Detail != "" {
		b.WriteByte('\n')
		b.WriteString(d.Detail)
	}
	return b.String()
}

// New builds a Diagnostic of the given kind.
func New(kind Kind, location string, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		Summary:  fmt.Sprintf(format, args...),
		Location: location,
	}
}

// WithDetail attaches a detail body (typically a rendered BindingStack
// or a similar-binding suggestion list) and returns d for chaining.
func (d *Diagnostic) WithDetail(detail string) *Diagnostic {
	d.Detail = detail
	return d
}

// KindOf unwraps err (following errors.Unwrap chains, mirroring dig's
// RootCause helper in cycle.go) looking for a *Diagnostic, and reports
// its Kind if found.
func KindOf(err error) (Kind, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Kind, true
	}
	return 0, false
}

// errf mirrors dig's errf(msg, args..., reason, reasonArgs...) helper: it
// formats msg with args, then wraps reason (if non-nil) underneath it so
// the chain is inspectable with errors.Is/errors.As/errors.Unwrap.
func errf(reason error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if reason == nil {
		return errors.New(msg)
	}
	return fmt.Errorf("%s: %w", msg, reason)
}

// Errf is the exported form of errf, for use by other packages in this
// module that need dig-style wrapped ad-hoc errors outside the
// Diagnostic taxonomy (e.g. malformed GraphSpec input).
func Errf(reason error, format string, args ...interface{}) error {
	return errf(reason, format, args...)
}
