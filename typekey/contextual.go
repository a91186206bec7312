package typekey

// Wrapping describes how a requester declared its dependency on a
// TypeKey: directly, or wrapped in a deferred-access form (spec.md
// §3.2). Decoded by the frontend from the request's declared type (a
// parameter typed `Lazy<T>` decodes to Lazy, etc.) and handed to the
// resolver as part of the ContextualTypeKey — the resolver itself never
// inspects a "declared type" directly, consistent with spec.md §9's
// instruction to keep the core frontend-agnostic.
type Wrapping int

const (
	// Direct is an un-wrapped request: the dependency is required
	// eagerly, at construction time.
	Direct Wrapping = iota
	// Provider is a request for a deferred factory of T (`Provider<T>`).
	Provider
	// Lazy is a request for a memoizing deferred accessor of T (`Lazy<T>`).
	Lazy
	// ProviderOfLazy is a request for a factory of a memoizing deferred
	// accessor (`Provider<Lazy<T>>`).
	ProviderOfLazy
)

func (w Wrapping) String() string {
	switch w {
	case Direct:
		return "Direct"
	case Provider:
		return "Provider"
	case Lazy:
		return "Lazy"
	case ProviderOfLazy:
		return "ProviderOfLazy"
	default:
		return "Unknown"
	}
}

// ContextualTypeKey wraps a TypeKey with the request-site context
// needed to decide deferrability, default-handling, and
// assisted-injection routing (spec.md §3.2).
type ContextualTypeKey struct {
	TypeKey TypeKey

	Wrapping Wrapping

	// HasDefault is true when the requesting parameter/field declares a
	// default value to fall back to if the key cannot be resolved.
	HasDefault bool

	// AssistedIdentifier disambiguates multiple assisted parameters of
	// the same type within one constructor (empty if this key is not an
	// assisted-injection parameter).
	AssistedIdentifier string
}

// Contextual builds a ContextualTypeKey for a direct (unwrapped) request
// to k, the common case.
func Contextual(k TypeKey) ContextualTypeKey {
	return ContextualTypeKey{TypeKey: k, Wrapping: Direct}
}

// RequiresProviderInstance is true for Provider and ProviderOfLazy
// wrapping — request shapes that need a factory value rather than the
// value itself (spec.md §3.2).
func (c ContextualTypeKey) RequiresProviderInstance() bool {
	return c.Wrapping == Provider || c.Wrapping == ProviderOfLazy
}

// IsDeferrable is true for any wrapping that defers construction of the
// target past the requester's own construction — Provider, Lazy, and
// ProviderOfLazy alike — and is the signal seal's cycle-breaking pass
// (spec.md §4.6 step 4: "requester uses Provider/Lazy wrapping") uses to
// decide whether a back-edge may be broken. This is a strictly broader
// set than RequiresProviderInstance: a bare Lazy<T> parameter defers
// construction just as much as Provider<T> does, even though it needs no
// callable factory value.
func (c ContextualTypeKey) IsDeferrable() bool {
	return c.Wrapping != Direct
}

// WithAssisted returns a copy of c carrying the given assisted
// identifier.
func (c ContextualTypeKey) WithAssisted(id string) ContextualTypeKey {
	c.AssistedIdentifier = id
	return c
}

// Equal reports whether c and other name the same contextual request.
// Two requests for the same TypeKey under different wrapping are
// distinct dependencies for adjacency purposes, but the same underlying
// binding is looked up regardless of wrapping (spec.md §4.4: "the key
// (minus wrapping)").
func (c ContextualTypeKey) Equal(other ContextualTypeKey) bool {
	return c.TypeKey.Equal(other.TypeKey) &&
		c.Wrapping == other.Wrapping &&
		c.HasDefault == other.HasDefault &&
		c.AssistedIdentifier == other.AssistedIdentifier
}

// Render renders c for diagnostics, e.g. "Provider<com.example.Foo>".
func (c ContextualTypeKey) Render(short bool) string {
	s := c.TypeKey.Render(short, true)
	switch c.Wrapping {
	case Provider:
		return "Provider<" + s + ">"
	case Lazy:
		return "Lazy<" + s + ">"
	case ProviderOfLazy:
		return "Provider<Lazy<" + s + ">>"
	default:
		return s
	}
}
