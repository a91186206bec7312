package binding

import (
	"testing"

	"github.com/bindgraph/resolver/rawtype"
	"github.com/bindgraph/resolver/typekey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fooKey() typekey.TypeKey {
	return typekey.New(rawtype.Type{Name: "com.example.Foo"}, nil)
}

func TestMultibindingKeyIntoSet(t *testing.T) {
	t.Parallel()

	k, err := MultibindingKey(IntoSet, fooKey(), nil)
	require.NoError(t, err)
	assert.Equal(t, "kotlin.collections.Set<com.example.Foo>", k.Render(false, false))
}

func TestMultibindingKeyIntoMapRequiresMapKey(t *testing.T) {
	t.Parallel()

	_, err := MultibindingKey(IntoMap, fooKey(), nil)
	require.Error(t, err)
	var missing *ErrMissingMapKey
	require.ErrorAs(t, err, &missing)
}

func TestMultibindingKeyIntoMap(t *testing.T) {
	t.Parallel()

	mk := rawtype.Type{Name: "kotlin.String"}
	k, err := MultibindingKey(IntoMap, fooKey(), &mk)
	require.NoError(t, err)
	assert.Equal(t, "kotlin.collections.Map<kotlin.String, com.example.Foo>", k.Render(false, false))
}

func TestMapOfProviderKey(t *testing.T) {
	t.Parallel()

	mk := rawtype.Type{Name: "kotlin.String"}
	mapKey, err := MultibindingKey(IntoMap, fooKey(), &mk)
	require.NoError(t, err)

	providerKey := MapOfProviderKey(mapKey)
	assert.Equal(t, "kotlin.collections.Map<kotlin.String, Provider<com.example.Foo>>", providerKey.Render(false, false))
}

func TestMultibindingAddSourceDeduplicates(t *testing.T) {
	t.Parallel()

	m := &Multibinding{IsSet: true}
	m.AddSource(fooKey())
	m.AddSource(fooKey())
	assert.Len(t, m.SourceBindings, 1)

	var b Binding = m
	assert.Equal(t, KindMultibinding, b.Kind())
}

func TestElementTypeForSetAndMap(t *testing.T) {
	t.Parallel()

	setKey, err := MultibindingKey(IntoSet, fooKey(), nil)
	require.NoError(t, err)
	setBinding := Multibinding{Base: Base{Type: setKey}, IsSet: true}
	elem, ok := ElementType(setBinding)
	require.True(t, ok)
	assert.True(t, elem.Equal(fooKey()))

	mk := rawtype.Type{Name: "kotlin.String"}
	mapKey, err := MultibindingKey(IntoMap, fooKey(), &mk)
	require.NoError(t, err)
	mapBinding := Multibinding{Base: Base{Type: mapKey}, IsMap: true}
	elem, ok = ElementType(mapBinding)
	require.True(t, ok)
	assert.True(t, elem.Equal(fooKey()))
}
