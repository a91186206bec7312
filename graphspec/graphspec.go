// Package graphspec defines spec.md §6's external interfaces: the
// frontend's projection of a graph class (GraphSpec), the contribution
// index lookup, and the collaborator contracts (ClassFactoryFinder,
// MembersInjectorFinder, ParentContext, IcObserver) the resolver core
// consumes but never implements itself.
//
// Grounded on dig's own collaborator-interface style (dig.go:
// containerStore / containerWriter / provider are exactly this pattern —
// small interfaces the Container depends on without owning their
// implementation), generalized from dig's single "reflect over an actual
// Go function" frontend to an arbitrary host-compiler-supplied
// projection, per spec.md §6's explicit "Any target language
// implementation must preserve their semantics bit-for-bit."
package graphspec

import (
	"github.com/bindgraph/resolver/binding"
	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/rawtype"
	"github.com/bindgraph/resolver/typekey"
)

// MultibindingContribution marks a provider or binds declaration as
// feeding a multibinding (spec.md §4.2).
type MultibindingContribution struct {
	Kind   binding.ContributionKind
	MapKey *rawtype.Type
}

// AccessorDecl is one abstract accessor member (spec.md §3.4
// "accessors").
type AccessorDecl struct {
	Func         decl.FuncID
	Decl         decl.Declaration
	Key          typekey.ContextualTypeKey
	IsMultibinds bool
}

// InjectorDecl is one abstract member-injector function (spec.md §3.4
// "injectors"): single regular parameter, returns unit, not `@Binds`.
type InjectorDecl struct {
	Func        decl.FuncID
	Decl        decl.Declaration
	TargetClass decl.ClassID
	TargetKey   typekey.ContextualTypeKey
}

// ProviderFactoryDecl is one `@Provides`-style function (spec.md §3.3
// "Provided").
type ProviderFactoryDecl struct {
	Decl             decl.Declaration
	Result           typekey.TypeKey
	Params           []typekey.ContextualTypeKey
	Scope            *decl.Annotation
	IntoMultibinding *MultibindingContribution
	OwnerClass       decl.ClassID
}

// BindsDecl is one `@Binds`-style alias function (spec.md §3.3
// "Alias").
type BindsDecl struct {
	Decl             decl.Declaration
	Target           typekey.TypeKey // the bound supertype, e.g. B in `fun f(impl: BImpl): B`
	Source           typekey.TypeKey // the receiver parameter's type, e.g. BImpl
	Params           []typekey.ContextualTypeKey
	Scope            *decl.Annotation
	IntoMultibinding *MultibindingContribution
	OwnerClass       decl.ClassID
	HasReceiverParam bool
}

// MultibindsDecl is a `@Multibinds`-annotated declaration establishing a
// multibinding's existence and emptiness policy without contributing an
// element (spec.md §4.5 step 7).
type MultibindsDecl struct {
	Decl       decl.Declaration
	Key        typekey.TypeKey
	AllowEmpty bool
}

// CreatorParam is one parameter of a graph's creator (spec.md §3.4
// "creator").
type CreatorParam struct {
	Name               string
	Key                typekey.TypeKey
	IsBindsInstance    bool
	IsIncludes         bool
	IsBindingContainer bool
}

// Creator is a graph's primary-constructor-or-factory-class descriptor
// (spec.md §3.4 "creator").
type Creator struct {
	Decl         decl.Declaration
	IsFactorySAM bool
	FactoryClass decl.ClassID
	Params       []CreatorParam
}

// GraphExtensionAccessor is an abstract accessor whose return type names
// a graph extension or a factory thereof (spec.md §4.7 "graph
// extension").
type GraphExtensionAccessor struct {
	Decl           decl.Declaration
	Func           decl.FuncID
	ExtensionClass decl.ClassID
	IsFactory      bool
	IsFactorySAM   bool
}

// GraphSpec is the frontend's minimal projection of a graph class
// (spec.md §3.4, §6 "GraphSpec"): supertypes, annotations, declared
// scopes, fake-override accessor/injector/binds/multibinds/
// graph-extension functions, and the creator descriptor.
type GraphSpec struct {
	TypeKey    typekey.TypeKey
	Class      decl.ClassID
	Supertypes []decl.ClassID

	DeclaredScopes   []decl.Annotation
	AdditionalScopes []decl.Annotation

	Accessors               []AccessorDecl
	Injectors               []InjectorDecl
	ProviderFactories       []ProviderFactoryDecl
	BindsFunctions          []BindsDecl
	MultibindsCallables     []MultibindsDecl
	GraphExtensionAccessors []GraphExtensionAccessor

	BindingContainers []decl.ClassID
	IncludedGraphs    []decl.ClassID
	ExtendedGraph     decl.ClassID // zero value if this is not a generated extension

	Creator *Creator

	IsGeneratedExtension bool

	// AggregationScopes is the set of scopes (scope + additionalScopes)
	// this class's contributed modules are aggregated against (spec.md
	// §3.4 "aggregationScopes", §4.8).
	AggregationScopes []decl.Annotation
	ContributesExcludes []decl.ClassID

	// External is true when the class is not compiled in this unit, or
	// is not itself annotated as a graph (spec.md §4.7 "External
	// graphs"): such a node exposes only accessors and provider
	// factories, with no creator, injectors, or extensions.
	External bool
}

// Loader resolves a ClassID to the GraphSpec the frontend produced for
// it, or reports that the class is not known as a graph in this
// compilation unit.
type Loader interface {
	Load(class decl.ClassID) (*GraphSpec, bool)
}

// ContributionIndex is the `scope -> set<ContributedClass>` /
// `scope -> set<BindingContainerClass>` lookup of spec.md §6. Both
// methods must be deterministic and idempotent.
type ContributionIndex interface {
	// Contributions returns the classes contributing provider/binds/
	// multibinds declarations to scope, order-independent (callers sort
	// by ClassID before use, per spec.md §4.6's determinism rules).
	Contributions(scope decl.Annotation) []decl.ClassID

	// BindingContainers returns the binding-container classes
	// contributing to scope.
	BindingContainers(scope decl.Annotation) []decl.ClassID

	// Replaces returns the class IDs a binding-container class's
	// `replaces` attribute names, if container is a binding container
	// known to the index.
	Replaces(container decl.ClassID) []decl.ClassID

	// IncludedContainers returns the binding containers a binding
	// container directly includes (spec.md §4.8 step 6, resolved
	// transitively by the caller).
	IncludedContainers(container decl.ClassID) []decl.ClassID

	// Rank returns the interop rank of a contributed class, used only
	// when rank-based interop is enabled (spec.md §4.8 step 5).
	Rank(contributed decl.ClassID) int
}

// ClassFactory is a constructor-injectable class's resolved factory
// descriptor (spec.md §6 "ClassFactoryFinder").
type ClassFactory struct {
	Class               decl.ClassID
	Declaration         decl.Declaration
	Params              []typekey.ContextualTypeKey
	IsAssisted          bool
	AssistedParameters  []string
	FactoryClass        decl.ClassID // set only when IsAssisted
}

// ClassFactoryFinder produces a ConstructorInjected factory descriptor
// for class. When mayBeMissing is true (used during speculative lookup
// for assisted types, spec.md §6), a miss is reported via ok=false
// rather than an error.
type ClassFactoryFinder interface {
	FindOrGenerate(class decl.ClassID, mayBeMissing bool) (*ClassFactory, bool)
}

// MemberInjector is one class's member-injection parameter list (spec.md
// §6 "MembersInjectorFinder").
type MemberInjector struct {
	Class  decl.ClassID
	Params []typekey.ContextualTypeKey
}

// MembersInjectorFinder returns member injectors for a class and all of
// its ancestors, in declaration order; total (never fails — an
// ancestor with nothing to inject simply contributes no MemberInjector).
type MembersInjectorFinder interface {
	FindOrGenerateAllFor(class decl.ClassID) []MemberInjector
}

// FieldAccess is the parent-graph field reservation produced by
// ParentContext.Mark (spec.md §6).
type FieldAccess struct {
	Field string
}

// ParentContext is the collaborator an extension graph's BindingLookup
// consults to materialize a parent-graph key (spec.md §4.4 step 3, §4.5
// step 12, §6). Mark is mutating and must be called at most once per
// key, only when the key is actually consumed.
type ParentContext interface {
	AvailableKeys() []typekey.TypeKey
	Mark(key typekey.TypeKey) (*FieldAccess, bool)
}

// IcObserver is the incremental-compilation fingerprinting hook (spec.md
// §6): the resolver must call these for every provider-class,
// binds-target, included-graph-getter, or accessor it consumes,
// regardless of whether the binding is ultimately reachable.
type IcObserver interface {
	TrackClassLookup(source decl.ClassID, class decl.ClassID)
	TrackFunctionCall(source decl.ClassID, fn decl.FuncID)
}

// NoopIcObserver is an IcObserver that records nothing, for callers that
// don't need incremental-compilation fingerprinting (e.g. tests).
type NoopIcObserver struct{}

func (NoopIcObserver) TrackClassLookup(decl.ClassID, decl.ClassID) {}
func (NoopIcObserver) TrackFunctionCall(decl.ClassID, decl.FuncID) {}

var _ IcObserver = NoopIcObserver{}
