package binding

import (
	"github.com/bindgraph/resolver/rawtype"
	"github.com/bindgraph/resolver/typekey"
)

// ContributionKind names the multibinding-contribution annotations
// spec.md §4.2 maps to a resulting multibinding TypeKey.
type ContributionKind int

const (
	// IntoSet contributes a single element T into a Set<T>.
	IntoSet ContributionKind = iota
	// ElementsIntoSet contributes an already-built Set<T> to merge into
	// the aggregate Set<T>.
	ElementsIntoSet
	// IntoMap contributes a single (MapKey, T) entry into a
	// Map<MapKey, T>.
	IntoMap
)

// setTypeName / mapTypeName name the synthetic collection types
// multibindings are keyed under. These are deliberately plain strings
// rather than references to a real `Set`/`Map` declaration — the
// resolver models collection-ness as an identity transform over
// rawtype.Type, not as a binding against the host language's actual
// collection types.
const (
	setTypeName = "kotlin.collections.Set"
	mapTypeName = "kotlin.collections.Map"
)

// ErrMissingMapKey is the §4.2 "compiler bug" condition: an IntoMap
// contribution with no MapKey annotation. The frontend is responsible
// for preventing this; the resolver only detects and reports it as a
// CompilerBug (spec.md §7).
type ErrMissingMapKey struct {
	Contribution typekey.TypeKey
}

func (e *ErrMissingMapKey) Error() string {
	return "IntoMap contribution " + e.Contribution.String() + " has no MapKey annotation"
}

// MultibindingKey computes the concrete multibinding TypeKey a
// contribution feeds, per spec.md §4.2's table. contributionType is the
// contributed element's own TypeKey (e.g. T for IntoSet, the map's
// value type for IntoMap); mapKey is the MapKey-annotation value,
// required (non-nil) for IntoMap.
func MultibindingKey(kind ContributionKind, contributionType typekey.TypeKey, mapKey *rawtype.Type) (typekey.TypeKey, error) {
	switch kind {
	case IntoSet, ElementsIntoSet:
		return typekey.New(rawtype.Type{
			Name: setTypeName,
			Args: []rawtype.Type{contributionType.Type},
		}, contributionType.Qualifier), nil

	case IntoMap:
		if mapKey == nil {
			return typekey.TypeKey{}, &ErrMissingMapKey{Contribution: contributionType}
		}
		return typekey.New(rawtype.Type{
			Name: mapTypeName,
			Args: []rawtype.Type{*mapKey, contributionType.Type},
		}, contributionType.Qualifier), nil

	default:
		return typekey.TypeKey{}, &ErrMissingMapKey{Contribution: contributionType}
	}
}

// MapOfProviderKey computes the parallel `Map<K, Provider<V>>` TypeKey
// spec.md §4.2 says map multibindings also expose, created at seed time
// alongside the plain Map<K,V> binding.
func MapOfProviderKey(mapTypeKey typekey.TypeKey) typekey.TypeKey {
	t := mapTypeKey.Type
	if len(t.Args) != 2 {
		// Defensive only against a malformed caller; the resolver never
		// constructs a map multibinding TypeKey with any other arity.
		return mapTypeKey
	}
	providerValue := rawtype.Type{Name: "Provider", Args: []rawtype.Type{t.Args[1]}}
	return typekey.New(rawtype.Type{
		Name: t.Name,
		Args: []rawtype.Type{t.Args[0], providerValue},
	}, mapTypeKey.Qualifier)
}

// ElementType returns the Set element type (IsSet) or the Map value
// type (IsMap) of a multibinding TypeKey, used when searching for
// "similar multibindings" (spec.md §4.6 step 5 "Empty multibindings").
func ElementType(m Multibinding) (typekey.TypeKey, bool) {
	switch {
	case m.IsSet:
		if len(m.Type.Type.Args) != 1 {
			return typekey.TypeKey{}, false
		}
		return typekey.New(m.Type.Type.Args[0], m.Type.Qualifier), true
	case m.IsMap:
		if len(m.Type.Type.Args) != 2 {
			return typekey.TypeKey{}, false
		}
		return typekey.New(m.Type.Type.Args[1], m.Type.Qualifier), true
	default:
		return typekey.TypeKey{}, false
	}
}
