package bindinggraph

import (
	"errors"
	"sort"

	"github.com/bindgraph/resolver/binding"
	"github.com/bindgraph/resolver/bindingstack"
	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/diag"
	"github.com/bindgraph/resolver/internal/digraph"
	"github.com/bindgraph/resolver/typekey"
)

// Seal implements spec.md §4.6: populate every requested binding
// starting from the graph's roots (accessors ∪ injectors ∪ extra
// keeps), build the dependency adjacency, compute reachability, break
// deferrable cycles and produce a deterministic topological order, then
// validate the frozen snapshot.
func (b *Builder) Seal() (*Result, error) {
	stack := bindingstack.New(b.node.TypeKey.Render(false, false))

	roots := make([]typekey.ContextualTypeKey, 0, len(b.accessorRoots)+len(b.injectorRoots)+len(b.opts.ExtraKeeps))
	roots = append(roots, b.accessorRoots...)
	roots = append(roots, b.injectorRoots...)
	for _, k := range b.opts.ExtraKeeps {
		roots = append(roots, typekey.Contextual(k))
	}

	var order []typekey.TypeKey
	visited := make(map[string]bool)

	var populate func(ctk typekey.ContextualTypeKey) error
	populate = func(ctk typekey.ContextualTypeKey) error {
		k := ctk.TypeKey
		if visited[k.String()] {
			return nil
		}

		if _, ok := b.lk.GetStaticBinding(k); !ok {
			newBindings, err := b.lk.Lookup(ctk, b.node.Class)
			if err != nil {
				return err
			}
			switch {
			case len(newBindings) > 0:
				for _, nb := range newBindings {
					b.lk.PutBinding(nb.TypeKey(), nb)
				}
			case ctk.HasDefault:
				b.lk.PutBinding(k, binding.Absent{Base: binding.Base{Type: k, Contextual: ctk}})
			default:
				return b.fatal(diag.New(diag.KindMissingBinding, "", "no binding found for %s", ctk.Render(false)).WithDetail(stack.Render()))
			}
		}

		bnd, _ := b.lk.GetStaticBinding(k)
		visited[k.String()] = true
		order = append(order, k)

		if bnd.Kind() == binding.KindAbsent {
			return nil
		}

		stack.Push(bindingstack.Entry{Key: ctk, Declaration: bnd.ReportableDeclaration(), Category: bindingstack.InjectedAt})
		for _, dep := range bnd.Dependencies() {
			if err := populate(dep); err != nil {
				stack.Pop()
				return err
			}
			if dep.Wrapping == typekey.ProviderOfLazy {
				if depBnd, ok := b.lk.GetStaticBinding(dep.TypeKey); ok && depBnd.Kind() == binding.KindGraphDependency {
					stack.Pop()
					return b.fatal(diag.New(diag.KindProviderOfLazyAcrossGraphDependency, bnd.ReportableDeclaration().String(),
						"Provider<Lazy<%s>> may not cross a graph-dependency boundary", dep.TypeKey.Render(false, true)).WithDetail(stack.Render()))
				}
			}
		}
		if a, ok := bnd.(binding.Alias); ok {
			if err := populate(typekey.Contextual(a.AliasedType)); err != nil {
				stack.Pop()
				return err
			}
		}
		stack.Pop()
		return nil
	}

	for _, r := range roots {
		if err := populate(r); err != nil {
			return nil, err
		}
	}

	index := make(map[string]digraph.Ix, len(order))
	for i, k := range order {
		index[k.String()] = digraph.Ix(i)
	}

	g := digraph.New(len(order))
	for _, k := range order {
		bnd, _ := b.lk.GetStaticBinding(k)
		if bnd.Kind() == binding.KindAbsent {
			continue
		}
		u := index[k.String()]
		for _, dep := range bnd.Dependencies() {
			if depBnd, ok := b.lk.GetStaticBinding(dep.TypeKey); ok && depBnd.Kind() == binding.KindAbsent {
				continue
			}
			v, ok := index[dep.TypeKey.String()]
			if !ok {
				continue
			}
			g.AddEdge(u, v, dep.IsDeferrable())
		}
		if a, ok := bnd.(binding.Alias); ok {
			if v, ok2 := index[a.AliasedType.String()]; ok2 {
				g.AddEdge(u, v, false)
			}
		}
	}

	var rootIx []digraph.Ix
	for _, r := range roots {
		if i, ok := index[r.TypeKey.String()]; ok {
			rootIx = append(rootIx, i)
		}
	}
	reachedMask := g.Reachable(rootIx)
	var reachableIx []digraph.Ix
	for i, reached := range reachedMask {
		if reached {
			reachableIx = append(reachableIx, digraph.Ix(i))
		}
	}

	renderLess := func(a, bb digraph.Ix) bool {
		return order[a].Render(false, true) < order[bb].Render(false, true)
	}

	sortedIx, deferredIx, err := g.Seal(reachableIx, renderLess)
	if err != nil {
		var cycleErr *digraph.CycleError
		if errors.As(err, &cycleErr) {
			return nil, b.fatal(diag.New(diag.KindDependencyCycle, "", "non-deferrable dependency cycle: %s", renderMembers(order, cycleErr.Members)).WithDetail(stack.Render()))
		}
		return nil, err
	}

	reachableKeys := toTypeKeys(order, reachableIx)
	sortedKeys := toTypeKeys(order, sortedIx)
	deferredTypes := toTypeKeys(order, deferredIx)

	if err := b.validate(reachableKeys); err != nil {
		return nil, err
	}

	if b.opts.ShrinkUnused {
		b.lk.Shrink(reachableKeys)
	}

	reservedFields := make(map[string]string, len(b.reservedFields))
	for k, v := range b.reservedFields {
		reservedFields[k] = v
	}

	return &Result{
		SortedKeys:               sortedKeys,
		DeferredTypes:            deferredTypes,
		ReachableKeys:            reachableKeys,
		ExtraKeeps:               append([]typekey.TypeKey(nil), b.opts.ExtraKeeps...),
		ReservedFields:           reservedFields,
		ManagedBindingContainers: append([]decl.ClassID(nil), b.managedBindingContainers...),
	}, nil
}

func toTypeKeys(order []typekey.TypeKey, ix []digraph.Ix) []typekey.TypeKey {
	out := make([]typekey.TypeKey, 0, len(ix))
	for _, i := range ix {
		out = append(out, order[i])
	}
	return out
}

func renderMembers(order []typekey.TypeKey, ix []digraph.Ix) string {
	rendered := make([]string, 0, len(ix))
	for _, i := range ix {
		rendered = append(rendered, order[i].Render(false, true))
	}
	sort.Strings(rendered)
	out := ""
	for i, r := range rendered {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}

// validate implements spec.md §4.6 step 5 over the reachable snapshot:
// scope compatibility, assisted-injection misuse, empty multibindings,
// and the Absent-sentinel invariant.
func (b *Builder) validate(reachableKeys []typekey.TypeKey) error {
	ownScopes := make(map[string]bool, len(b.node.Scopes))
	for _, s := range b.node.Scopes {
		ownScopes[s.Name] = true
	}

	rootSet := make(map[string]bool)
	for _, r := range b.accessorRoots {
		rootSet[r.TypeKey.String()] = true
	}
	for _, r := range b.injectorRoots {
		rootSet[r.TypeKey.String()] = true
	}

	// nonAssistedDependents maps a TypeKey's render string to every
	// reachable binding that depends on it directly, other than an
	// Assisted binding targeting it — spec.md §4.6 step 5's "no
	// non-Assisted dependents" clause for assisted ConstructorInjected
	// bindings, which the root-only check below doesn't reach (a
	// non-root binding may still inject an assisted type directly).
	nonAssistedDependents := make(map[string]bool)
	for _, k := range reachableKeys {
		bnd, ok := b.lk.GetStaticBinding(k)
		if !ok {
			continue
		}
		isAssistedWrapper, assistedTarget := false, typekey.TypeKey{}
		if a, ok := bnd.(binding.Assisted); ok {
			isAssistedWrapper, assistedTarget = true, a.Target
		}
		for _, dep := range bnd.Dependencies() {
			if isAssistedWrapper && dep.TypeKey.Equal(assistedTarget) {
				continue
			}
			nonAssistedDependents[dep.TypeKey.String()] = true
		}
		if a, isAlias := bnd.(binding.Alias); isAlias {
			nonAssistedDependents[a.AliasedType.String()] = true
		}
	}

	for _, k := range reachableKeys {
		bnd, ok := b.lk.GetStaticBinding(k)
		if !ok {
			continue
		}

		if bnd.Kind() == binding.KindAbsent {
			return b.fatal(diag.New(diag.KindCompilerBug, bnd.ReportableDeclaration().String(), "Absent sentinel %s survived seal", k.Render(false, true)))
		}

		if scope := bnd.Scope(); scope != nil && !ownScopes[scope.Name] {
			return b.fatal(diag.New(diag.KindIncompatiblyScopedBinding, bnd.ReportableDeclaration().String(),
				"binding %s declares scope %s not present on this graph", k.Render(false, true), scope.Name))
		}

		if ci, isCI := bnd.(binding.ConstructorInjected); isCI && ci.IsAssisted {
			if rootSet[k.String()] {
				return b.fatal(diag.New(diag.KindAssistedInjectMisuse, ci.ReportableDeclaration().String(),
					"assisted type %s requested directly; it must be resolved through its generated assisted factory", k.Render(false, true)))
			}
			if nonAssistedDependents[k.String()] {
				return b.fatal(diag.New(diag.KindAssistedInjectMisuse, ci.ReportableDeclaration().String(),
					"assisted type %s has a non-assisted dependent; it must be resolved through its generated assisted factory", k.Render(false, true)))
			}
		}

		if mb, isMb := bnd.(binding.Multibinding); isMb && !mb.AllowEmpty && len(mb.SourceBindings) == 0 {
			similar := b.findSimilarMultibindings(mb)
			return b.fatal(diag.New(diag.KindEmptyMultibinding, mb.ReportableDeclaration().String(),
				"%s has no contributions and does not allow empty (similar: %s)", k.Render(false, true), similar))
		}
	}
	return nil
}

// findSimilarMultibindings renders the names of other multibindings
// sharing this one's element or map-value shape (spec.md §4.6 step 5
// "Empty multibindings" suggestion list).
func (b *Builder) findSimilarMultibindings(target binding.Multibinding) string {
	targetElem, targetOk := binding.ElementType(target)
	if !targetOk {
		return "none"
	}
	var names []string
	for _, bnd := range b.lk.AllBindings() {
		other, isMb := bnd.(binding.Multibinding)
		if !isMb || other.TypeKey().Equal(target.Type) {
			continue
		}
		elem, ok := binding.ElementType(other)
		if !ok || !elem.Equal(targetElem) {
			continue
		}
		names = append(names, other.TypeKey().Render(false, true))
	}
	if len(names) == 0 {
		return "none"
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
