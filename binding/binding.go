// Package binding implements spec.md §3.3's Binding sum type.
//
// Go has no sum types, so this mirrors dig's param/result tagged-union
// pattern (param.go: the param interface implemented by paramSingle,
// paramObject, paramList, paramGroupedSlice, dispatched by a Go type
// switch rather than an open class hierarchy) — one small interface with
// the fields every variant shares, and one struct per kind, switched on
// with a Kind() method instead of reflection or a visitor.
package binding

import (
	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/typekey"
)

// Kind discriminates the Binding variants of spec.md §3.3.
type Kind int

const (
	KindProvided Kind = iota
	KindAlias
	KindConstructorInjected
	KindAssisted
	KindMultibinding
	KindBoundInstance
	KindGraphDependency
	KindGraphExtension
	KindMembersInjected
	KindObjectClass
	KindAbsent
)

func (k Kind) String() string {
	switch k {
	case KindProvided:
		return "Provided"
	case KindAlias:
		return "Alias"
	case KindConstructorInjected:
		return "ConstructorInjected"
	case KindAssisted:
		return "Assisted"
	case KindMultibinding:
		return "Multibinding"
	case KindBoundInstance:
		return "BoundInstance"
	case KindGraphDependency:
		return "GraphDependency"
	case KindGraphExtension:
		return "GraphExtension"
	case KindMembersInjected:
		return "MembersInjected"
	case KindObjectClass:
		return "ObjectClass"
	case KindAbsent:
		return "Absent"
	default:
		return "Unknown"
	}
}

// Binding is the common surface every variant implements: the fields
// spec.md §3.3 says "every variant carries" (typeKey, contextualTypeKey,
// dependencies, optional scope, optional reportableDeclaration), plus
// Kind() for type-switch-free dispatch. The shared Base struct is an
// embedded field of each concrete variant, reachable after a concrete
// type switch (seal's validation passes, §4.6 step 5); the interface
// itself has no accessor for it.
type Binding interface {
	Kind() Kind
	TypeKey() typekey.TypeKey
	ContextualTypeKey() typekey.ContextualTypeKey
	Dependencies() []typekey.ContextualTypeKey
	Scope() *decl.Annotation
	ReportableDeclaration() decl.Declaration

	// Inherited reports whether this binding was contributed by an
	// ancestor (extended/parent) graph rather than the graph being
	// sealed itself. Used by the provider-vs-alias precedence rule
	// (spec.md §4.5 step 3) and the child-wins law (spec.md §8).
	Inherited() bool
}

// Base is embedded by every concrete variant to provide the Binding
// interface's shared accessors without repeating them on each type.
type Base struct {
	Type         typekey.TypeKey
	Contextual   typekey.ContextualTypeKey
	Deps         []typekey.ContextualTypeKey
	ScopeAnn     *decl.Annotation
	Declaration  decl.Declaration
	IsInherited  bool
	NameHintText string
}

func (b Base) TypeKey() typekey.TypeKey                          { return b.Type }
func (b Base) ContextualTypeKey() typekey.ContextualTypeKey       { return b.Contextual }
func (b Base) Dependencies() []typekey.ContextualTypeKey          { return b.Deps }
func (b Base) Scope() *decl.Annotation                            { return b.ScopeAnn }
func (b Base) ReportableDeclaration() decl.Declaration            { return b.Declaration }
func (b Base) Inherited() bool                                    { return b.IsInherited }
func (b Base) NameHint() string                                   { return b.NameHintText }

// Provided is a module/companion-provided value (spec.md §3.3).
type Provided struct {
	Base

	// Callable is the provider function's declaration, for Call() sites
	// generated downstream.
	Callable decl.Declaration

	// IntoMultibinding is true when this provider contributes an element
	// to a set/map multibinding rather than binding its return type
	// directly (spec.md §4.2).
	IntoMultibinding bool
}

func (p Provided) Kind() Kind { return KindProvided }

// Alias represents an `A -> B` redirection produced by an `@Binds`-style
// function (spec.md §3.3). AliasedType is B; the Base's TypeKey is A.
type Alias struct {
	Base

	AliasedType typekey.TypeKey

	// BindsCallable is the declaration of the `@Binds` function, if any
	// (nil for supertype/parent-graph synthetic aliases that have no
	// user-written function, spec.md §4.5 steps 2 and 8).
	BindsCallable *decl.Declaration
}

func (a Alias) Kind() Kind { return KindAlias }

// ConstructorInjected is a class resolved via its primary constructor
// (spec.md §3.3).
type ConstructorInjected struct {
	Base

	Class decl.ClassID

	// IsAssisted is true when one or more constructor parameters are
	// caller-supplied (assisted) rather than graph-resolved; such a
	// binding is never directly reachable as a root (spec.md §4.6 step 5
	// "Assisted misuse").
	IsAssisted bool

	// AssistedParameters names the assisted (non-graph-resolved)
	// parameters, in declaration order, for factory generation.
	AssistedParameters []string
}

func (c ConstructorInjected) Kind() Kind { return KindConstructorInjected }

// Assisted is the factory binding wrapping an assisted
// ConstructorInjected target (spec.md §3.3).
type Assisted struct {
	Base

	// Target is the TypeKey of the ConstructorInjected binding this
	// factory produces.
	Target typekey.TypeKey

	FactoryClass decl.ClassID
}

func (a Assisted) Kind() Kind { return KindAssisted }

// Multibinding is a synthetic Set<T> or Map<K,V> assembled from
// per-element contributions (spec.md §3.3).
type Multibinding struct {
	Base

	IsMap   bool
	IsSet   bool
	KeyType *typekey.TypeKey // nil unless IsMap

	AllowEmpty bool

	// ProviderWrapped is true for the parallel Map<K, Provider<V>>
	// binding spec.md §4.2 requires alongside every Map<K,V>
	// multibinding (binding/multibinding.go's MapOfProviderKey): its
	// dependencies are Provider-wrapped rather than direct, since the
	// whole point of the parallel binding is deferred per-entry
	// construction.
	ProviderWrapped bool

	// SourceBindings holds the TypeKeys of the per-element contributions
	// that feed this multibinding, in insertion order for determinism
	// (spec.md §4.6 "Ordering determinism" — never ranged over as a set
	// in code paths feeding sortedKeys or diagnostics).
	SourceBindings []typekey.TypeKey
}

func (m Multibinding) Kind() Kind { return KindMultibinding }

// Dependencies overrides Base's: a multibinding depends on every
// contribution feeding it, not on a fixed parameter list (spec.md §4.2).
func (m Multibinding) Dependencies() []typekey.ContextualTypeKey {
	wrapping := typekey.Direct
	if m.ProviderWrapped {
		wrapping = typekey.Provider
	}
	deps := make([]typekey.ContextualTypeKey, 0, len(m.SourceBindings))
	for _, s := range m.SourceBindings {
		deps = append(deps, typekey.ContextualTypeKey{TypeKey: s, Wrapping: wrapping})
	}
	return deps
}

// HasSource reports whether t is already a recorded source binding.
func (m *Multibinding) HasSource(t typekey.TypeKey) bool {
	for _, s := range m.SourceBindings {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

// AddSource appends t to SourceBindings if it isn't already present,
// preserving first-seen order.
func (m *Multibinding) AddSource(t typekey.TypeKey) {
	if !m.HasSource(t) {
		m.SourceBindings = append(m.SourceBindings, t)
	}
}

// BoundInstance is a value supplied by the graph's creator parameters,
// the graph itself, or an included container (spec.md §3.3).
type BoundInstance struct {
	Base

	// ReceiverClass is set when this instance must be reached through a
	// nested receiver parameter rather than a bare field (spec.md §3.3
	// "may carry a class receiver parameter").
	ReceiverClass decl.ClassID
}

func (b BoundInstance) Kind() Kind { return KindBoundInstance }

// GraphDependency is an accessor call on an included-or-parent graph
// (spec.md §3.3).
type GraphDependency struct {
	Base

	// OwnerKey identifies the binding (typically a BoundInstance) for
	// the owning graph.
	OwnerKey typekey.TypeKey

	// AccessorFunc is set for a getter-function accessor; FieldName is
	// set for field access. Exactly one is non-empty.
	AccessorFunc decl.FuncID
	FieldName    string
}

func (g GraphDependency) Kind() Kind { return KindGraphDependency }

// GraphExtension is the child-graph constructor call site plus the set
// of scopes it declares (spec.md §3.3).
type GraphExtension struct {
	Base

	ExtensionClass decl.ClassID
	Scopes         []decl.Annotation
	IsFactory      bool
	IsFactorySAM   bool
}

func (g GraphExtension) Kind() Kind { return KindGraphExtension }

// MembersInjected is the injector function for a type plus the merged
// chain of ancestor member-injector parameters (spec.md §3.3).
type MembersInjected struct {
	Base

	TargetClassID decl.ClassID

	// InjectorFunc is the injector function's declaration this binding
	// resolves for.
	InjectorFunc decl.FuncID
}

func (m MembersInjected) Kind() Kind { return KindMembersInjected }

// ObjectClass is a singleton-object value (spec.md §3.3).
type ObjectClass struct {
	Base

	Class decl.ClassID
}

func (o ObjectClass) Kind() Kind { return KindObjectClass }

// Absent is the synthetic sentinel used when a dependency with a default
// is missing (spec.md §3.3). It must never survive as reachable after
// seal (spec.md §4.6 step 5 "Absent sentinels").
type Absent struct {
	Base
}

func (a Absent) Kind() Kind { return KindAbsent }

var (
	_ Binding = Provided{}
	_ Binding = Alias{}
	_ Binding = ConstructorInjected{}
	_ Binding = Assisted{}
	_ Binding = Multibinding{}
	_ Binding = BoundInstance{}
	_ Binding = GraphDependency{}
	_ Binding = GraphExtension{}
	_ Binding = MembersInjected{}
	_ Binding = ObjectClass{}
	_ Binding = Absent{}
)
