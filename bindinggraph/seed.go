package bindinggraph

import (
	"sort"

	"github.com/bindgraph/resolver/binding"
	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/diag"
	"github.com/bindgraph/resolver/graphnode"
	"github.com/bindgraph/resolver/graphspec"
	"github.com/bindgraph/resolver/rawtype"
	"github.com/bindgraph/resolver/typekey"
)

// Seed implements spec.md §4.5's thirteen-step seeding procedure in its
// mandatory order (spec.md §5 "Ordering guarantees between operations").
// It returns the first fatal diagnostic's *diag.FatalError, if any;
// non-fatal diagnostics (duplicate bindings) are reported to the sink
// and seeding continues.
func (b *Builder) Seed() error {
	b.seedGraphInstanceBinding()
	b.seedSupertypeAliases()
	if err := b.seedProviderFactories(); err != nil {
		return err
	}
	if err := b.seedBindsCallables(); err != nil {
		return err
	}
	b.seedCreatorParams()
	b.seedManagedBindingContainers()
	b.seedMultibindsDeclarations()
	b.seedParentSupertypeAliasesAndCommit()
	b.seedAccessors()
	b.seedGraphExtensions()
	b.seedIncludedGraphNodes()
	if err := b.seedParentContextLazyKeys(); err != nil {
		return err
	}
	b.seedMemberInjectors()
	return nil
}

// step 1: graph-instance binding.
func (b *Builder) seedGraphInstanceBinding() {
	bi := binding.BoundInstance{Base: binding.Base{
		Type:         b.node.TypeKey,
		Contextual:   typekey.Contextual(b.node.TypeKey),
		NameHintText: b.node.TypeKey.Type.Name + "Provider",
		Declaration:  decl.Declaration{Class: b.node.Class, Name: "<graph>"},
	}}
	b.lk.PutBinding(b.node.TypeKey, bi)
}

// step 2: supertype aliases staged into pendingAlias, first entry wins.
func (b *Builder) seedSupertypeAliases() {
	for _, s := range b.node.Supertypes {
		b.stageAlias(classTypeKey(s), b.node.TypeKey)
	}
}

func (b *Builder) stageAlias(from, to typekey.TypeKey) {
	key := from.String()
	if _, exists := b.pendingAlias[key]; exists {
		return
	}
	b.pendingAlias[key] = pendingAliasEntry{From: from, To: to}
}

func classTypeKey(c decl.ClassID) typekey.TypeKey {
	return typekey.New(rawtype.Type{Name: string(c)}, nil)
}

// precedenceDecision is spec.md §4.5 step 3's precedence table, shared
// between provider-factory and binds-callable seeding.
type precedenceDecision int

const (
	decisionInsert precedenceDecision = iota
	decisionExistingWins
	decisionDuplicate
)

func decidePrecedence(existingOk bool, existing binding.Binding, currentInherited bool) precedenceDecision {
	if !existingOk {
		return decisionInsert
	}
	if existing.Inherited() == currentInherited {
		return decisionDuplicate
	}
	if existing.Inherited() && !currentInherited {
		return decisionInsert
	}
	return decisionExistingWins
}

// contributionElementType returns the element TypeKey a multibinding
// contribution feeds: for ElementsIntoSet the declared result is already
// the built Set<T>, so the element type is its sole argument; for
// IntoSet/IntoMap the declared result already is the element/value type.
func contributionElementType(declared typekey.TypeKey, kind binding.ContributionKind) typekey.TypeKey {
	if kind == binding.ElementsIntoSet && len(declared.Type.Args) == 1 {
		return typekey.New(declared.Type.Args[0], declared.Qualifier)
	}
	return declared
}

func mapKeyTypeOf(multibindingKey typekey.TypeKey) *typekey.TypeKey {
	if len(multibindingKey.Type.Args) != 2 {
		return nil
	}
	k := typekey.New(multibindingKey.Type.Args[0], multibindingKey.Qualifier)
	return &k
}

// addMultibindingSource creates the Multibinding for multibindingKey on
// demand and folds in one contribution (spec.md §4.2, §4.5 step 3/4's
// "add this contribution's typeKey to the appropriate
// Multibinding.sourceBindings set").
func (b *Builder) addMultibindingSource(multibindingKey, contributionKey typekey.TypeKey, mc *graphspec.MultibindingContribution, d decl.Declaration, inherited bool) {
	var mb binding.Multibinding
	if existing, ok := b.lk.GetStaticBinding(multibindingKey); ok {
		if m, isM := existing.(binding.Multibinding); isM {
			mb = m
		}
	} else {
		mb = binding.Multibinding{
			Base: binding.Base{
				Type:        multibindingKey,
				Contextual:  typekey.Contextual(multibindingKey),
				Declaration: d,
				IsInherited: inherited,
			},
			IsSet: mc.Kind == binding.IntoSet || mc.Kind == binding.ElementsIntoSet,
			IsMap: mc.Kind == binding.IntoMap,
		}
		if mb.IsMap {
			mb.KeyType = mapKeyTypeOf(multibindingKey)
		}
	}
	mb.AddSource(contributionKey)
	b.lk.PutBinding(multibindingKey, mb)
	if mb.IsMap {
		b.syncMapOfProviderBinding(multibindingKey, mb)
	}
}

// syncMapOfProviderBinding maintains the parallel Map<K, Provider<V>>
// binding spec.md §4.2 requires alongside every Map<K,V> multibinding
// (binding.MapOfProviderKey), mirroring mb's current source-binding set
// every time mb itself changes.
func (b *Builder) syncMapOfProviderBinding(mapKey typekey.TypeKey, mb binding.Multibinding) {
	provKey := binding.MapOfProviderKey(mapKey)
	b.lk.PutBinding(provKey, binding.Multibinding{
		Base: binding.Base{
			Type:        provKey,
			Contextual:  typekey.Contextual(provKey),
			Declaration: mb.Declaration,
			IsInherited: mb.IsInherited,
		},
		IsMap:           true,
		KeyType:         mb.KeyType,
		AllowEmpty:      mb.AllowEmpty,
		ProviderWrapped: true,
		SourceBindings:  append([]typekey.TypeKey(nil), mb.SourceBindings...),
	})
}

// step 3: provider factories, own + inherited (excluding scoped).
func (b *Builder) seedProviderFactories() error {
	type entry struct {
		pf        graphspec.ProviderFactoryDecl
		inherited bool
	}
	var entries []entry
	for _, pf := range b.node.ProviderFactories {
		entries = append(entries, entry{pf: pf, inherited: false})
	}
	for _, anc := range b.ancestors() {
		for _, pf := range anc.ProviderFactories {
			if pf.Scope != nil {
				continue
			}
			entries = append(entries, entry{pf: pf, inherited: true})
		}
	}

	for _, e := range entries {
		pf := e.pf
		if b.opts.IcObserver != nil {
			b.opts.IcObserver.TrackFunctionCall(b.node.Class, pf.Decl.Func)
		}

		target := pf.Result
		if pf.IntoMultibinding != nil {
			elem := contributionElementType(pf.Result, pf.IntoMultibinding.Kind)
			mk, err := binding.MultibindingKey(pf.IntoMultibinding.Kind, elem, pf.IntoMultibinding.MapKey)
			if err != nil {
				return b.fatal(diag.New(diag.KindCompilerBug, pf.Decl.String(), "%v", err))
			}
			target = mk
		}

		if e.inherited && b.lk.HasBinding(target) {
			continue
		}

		existing, existingOk := b.lk.GetStaticBinding(target)
		switch decidePrecedence(existingOk, existing, e.inherited) {
		case decisionExistingWins:
			continue
		case decisionDuplicate:
			b.report(diag.New(diag.KindDuplicateBinding, pf.Decl.String(), "duplicate binding for %s", target.Render(false, true)))
			continue
		case decisionInsert:
			if existingOk && existing.Kind() == binding.KindAlias {
				b.lk.RemoveAliasBinding(target)
			}
		}

		if pf.IntoMultibinding != nil {
			b.addMultibindingSource(target, pf.Result, pf.IntoMultibinding, pf.Decl, e.inherited)
			continue
		}

		b.lk.PutBinding(target, binding.Provided{
			Base: binding.Base{
				Type:        target,
				Contextual:  typekey.Contextual(target),
				Deps:        pf.Params,
				ScopeAnn:    pf.Scope,
				Declaration: pf.Decl,
				IsInherited: e.inherited,
			},
			Callable: pf.Decl,
		})
	}
	return nil
}

// step 4: binds (alias) callables, own + inherited (excluding scoped).
func (b *Builder) seedBindsCallables() error {
	type entry struct {
		bd        graphspec.BindsDecl
		inherited bool
	}
	var entries []entry
	for _, bd := range b.node.BindsFunctions {
		entries = append(entries, entry{bd: bd, inherited: false})
	}
	for _, anc := range b.ancestors() {
		for _, bd := range anc.BindsFunctions {
			if bd.Scope != nil {
				continue
			}
			entries = append(entries, entry{bd: bd, inherited: true})
		}
	}

	for _, e := range entries {
		bd := e.bd
		if !bd.HasReceiverParam {
			return b.fatal(diag.New(diag.KindCompilerBug, bd.Decl.String(), "@Binds function missing receiver parameter"))
		}
		if b.opts.IcObserver != nil {
			b.opts.IcObserver.TrackFunctionCall(b.node.Class, bd.Decl.Func)
		}

		target := bd.Target
		if bd.IntoMultibinding != nil {
			elem := contributionElementType(bd.Target, bd.IntoMultibinding.Kind)
			mk, err := binding.MultibindingKey(bd.IntoMultibinding.Kind, elem, bd.IntoMultibinding.MapKey)
			if err != nil {
				return b.fatal(diag.New(diag.KindCompilerBug, bd.Decl.String(), "%v", err))
			}
			target = mk
		}

		if e.inherited && b.lk.HasBinding(target) {
			continue
		}

		existing, existingOk := b.lk.GetStaticBinding(target)
		switch decidePrecedence(existingOk, existing, e.inherited) {
		case decisionExistingWins:
			continue
		case decisionDuplicate:
			b.report(diag.New(diag.KindDuplicateBinding, bd.Decl.String(), "duplicate binding for %s", target.Render(false, true)))
			continue
		case decisionInsert:
			if existingOk && existing.Kind() == binding.KindProvided {
				b.lk.RemoveProvidedBinding(target)
			}
		}

		if bd.IntoMultibinding != nil {
			b.addMultibindingSource(target, bd.Source, bd.IntoMultibinding, bd.Decl, e.inherited)
			continue
		}

		callable := bd.Decl
		b.lk.PutBinding(target, binding.Alias{
			Base: binding.Base{
				Type:        target,
				Contextual:  typekey.Contextual(target),
				Deps:        bd.Params,
				ScopeAnn:    bd.Scope,
				Declaration: callable,
				IsInherited: e.inherited,
			},
			AliasedType:   bd.Source,
			BindsCallable: &callable,
		})
	}
	return nil
}

// step 5: creator parameters (BindsInstance / binding-container params
// become BoundInstance bindings).
func (b *Builder) seedCreatorParams() {
	if b.node.Creator == nil {
		return
	}
	for _, p := range b.node.Creator.Params {
		if !p.IsBindsInstance && !p.IsBindingContainer {
			continue
		}
		b.lk.PutBinding(p.Key, binding.BoundInstance{Base: binding.Base{
			Type:         p.Key,
			Contextual:   typekey.Contextual(p.Key),
			NameHintText: p.Name,
		}})
	}
}

// step 6: managed binding containers, own + inherited.
func (b *Builder) seedManagedBindingContainers() {
	seen := make(map[decl.ClassID]bool)
	var all []decl.ClassID
	all = append(all, b.node.BindingContainers...)
	for _, anc := range b.ancestors() {
		all = append(all, anc.BindingContainers...)
	}
	for _, c := range sortClassIDs(all) {
		if seen[c] {
			continue
		}
		seen[c] = true
		k := classTypeKey(c)
		b.lk.PutBinding(k, binding.BoundInstance{Base: binding.Base{Type: k, Contextual: typekey.Contextual(k)}})
		b.managedBindingContainers = append(b.managedBindingContainers, c)
	}
}

// step 7: multibinds declarations, own + inherited.
func (b *Builder) seedMultibindsDeclarations() {
	var all []graphspec.MultibindsDecl
	all = append(all, b.node.MultibindsCallables...)
	for _, anc := range b.ancestors() {
		all = append(all, anc.MultibindsCallables...)
	}
	for _, md := range all {
		existing, ok := b.lk.GetStaticBinding(md.Key)
		if !ok {
			isMap := len(md.Key.Type.Args) == 2
			mb := binding.Multibinding{
				Base:       binding.Base{Type: md.Key, Contextual: typekey.Contextual(md.Key), Declaration: md.Decl},
				IsSet:      !isMap,
				IsMap:      isMap,
				AllowEmpty: md.AllowEmpty,
			}
			if isMap {
				mb.KeyType = mapKeyTypeOf(md.Key)
			}
			b.lk.PutBinding(md.Key, mb)
			if isMap {
				b.syncMapOfProviderBinding(md.Key, mb)
			}
			continue
		}
		if mb, isM := existing.(binding.Multibinding); isM {
			mb.AllowEmpty = md.AllowEmpty
			mb.Declaration = md.Decl
			b.lk.PutBinding(md.Key, mb)
			if mb.IsMap {
				b.syncMapOfProviderBinding(md.Key, mb)
			}
		}
	}
}

// step 8: parent-graph supertype aliases staged, then the whole pending
// map committed to the graph.
func (b *Builder) seedParentSupertypeAliasesAndCommit() {
	for _, anc := range b.ancestors() {
		for _, s := range anc.Supertypes {
			b.stageAlias(classTypeKey(s), anc.TypeKey)
		}
	}

	entries := make([]pendingAliasEntry, 0, len(b.pendingAlias))
	for _, e := range b.pendingAlias {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].From.Less(entries[j].From) })

	for _, e := range entries {
		if b.lk.HasBinding(e.From) {
			continue
		}
		b.lk.PutBinding(e.From, binding.Alias{
			Base:        binding.Base{Type: e.From, Contextual: typekey.Contextual(e.From)},
			AliasedType: e.To,
		})
	}
}

// step 9: accessors, own + inherited multibinds-annotated ones.
func (b *Builder) seedAccessors() {
	var all []graphspec.AccessorDecl
	all = append(all, b.node.Accessors...)
	for _, anc := range b.ancestors() {
		for _, a := range anc.Accessors {
			if a.IsMultibinds {
				all = append(all, a)
			}
		}
	}

	for _, a := range all {
		b.accessorRoots = append(b.accessorRoots, a.Key)
		if !a.IsMultibinds {
			continue
		}
		if _, ok := b.lk.GetStaticBinding(a.Key.TypeKey); ok {
			continue
		}
		isMap := len(a.Key.TypeKey.Type.Args) == 2
		mb := binding.Multibinding{
			Base:  binding.Base{Type: a.Key.TypeKey, Contextual: a.Key, Declaration: a.Decl},
			IsSet: !isMap,
			IsMap: isMap,
		}
		if isMap {
			mb.KeyType = mapKeyTypeOf(a.Key.TypeKey)
		}
		b.lk.PutBinding(a.Key.TypeKey, mb)
		if isMap {
			b.syncMapOfProviderBinding(a.Key.TypeKey, mb)
		}
	}
}

// step 10: graph extensions whose class isn't already a supertype.
func (b *Builder) seedGraphExtensions() {
	supertypes := make(map[decl.ClassID]bool, len(b.node.Supertypes))
	for _, s := range b.node.Supertypes {
		supertypes[s] = true
	}

	groups := make([]graphnode.GraphExtensionGroup, 0, len(b.node.GraphExtensions))
	for _, g := range b.node.GraphExtensions {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key.Less(groups[j].Key) })

	for _, g := range groups {
		for _, ga := range g.Accessors {
			if supertypes[ga.ExtensionClass] {
				continue
			}
			b.lk.PutBinding(g.Key, binding.GraphExtension{
				Base:           binding.Base{Type: g.Key, Contextual: typekey.Contextual(g.Key), Declaration: ga.Decl},
				ExtensionClass: ga.ExtensionClass,
				IsFactory:      ga.IsFactory,
				IsFactorySAM:   ga.IsFactorySAM,
			})
		}
	}
}

// step 11: included graph nodes' BoundInstance + per-accessor
// GraphDependency bindings.
func (b *Builder) seedIncludedGraphNodes() {
	for _, inc := range sortedNodes(b.node.IncludedGraphNodes) {
		if !b.seededIncludedGraphOwner[inc.TypeKey.String()] {
			b.seededIncludedGraphOwner[inc.TypeKey.String()] = true
			if !b.lk.HasBinding(inc.TypeKey) {
				b.lk.PutBinding(inc.TypeKey, binding.BoundInstance{Base: binding.Base{
					Type: inc.TypeKey, Contextual: typekey.Contextual(inc.TypeKey),
				}})
			}
		}
		for _, a := range inc.Accessors {
			if b.lk.HasBinding(a.Key.TypeKey) {
				continue
			}
			b.lk.PutBinding(a.Key.TypeKey, binding.GraphDependency{
				Base:         binding.Base{Type: a.Key.TypeKey, Contextual: a.Key, Declaration: a.Decl},
				OwnerKey:     inc.TypeKey,
				AccessorFunc: a.Func,
			})
		}
	}
}

// step 12: lazy parent keys for extension graphs.
func (b *Builder) seedParentContextLazyKeys() error {
	if len(b.node.ExtendedGraphNodes) == 0 {
		return nil
	}
	if b.opts.ParentContext == nil {
		return b.fatal(diag.New(diag.KindCompilerBug, string(b.node.Class), "extension graph %s has no parent context", b.node.Class))
	}
	for _, k := range b.opts.ParentContext.AvailableKeys() {
		if b.lk.HasBinding(k) {
			continue
		}
		b.lk.RegisterLazyParentKey(k, b.node.TypeKey, b.opts.ParentContext)
	}
	return nil
}

// step 13: member-injector bindings, plus ancestor traversal.
func (b *Builder) seedMemberInjectors() {
	for _, inj := range b.node.Injectors {
		b.injectorRoots = append(b.injectorRoots, inj.TargetKey)
		if b.lk.HasBinding(inj.TargetKey.TypeKey) {
			continue
		}
		b.lk.PutBinding(inj.TargetKey.TypeKey, binding.MembersInjected{
			Base:          binding.Base{Type: inj.TargetKey.TypeKey, Contextual: inj.TargetKey, Declaration: inj.Decl},
			TargetClassID: inj.TargetClass,
			InjectorFunc:  inj.Func,
		})

		if b.memberInjectors == nil {
			continue
		}
		for _, anc := range b.memberInjectors.FindOrGenerateAllFor(inj.TargetClass) {
			ancKey := typekey.New(rawtype.Type{Name: "MembersInjector", Args: []rawtype.Type{{Name: string(anc.Class)}}}, nil)
			if b.lk.HasBinding(ancKey) {
				continue
			}
			b.lk.PutBinding(ancKey, binding.MembersInjected{
				Base:          binding.Base{Type: ancKey, Contextual: typekey.Contextual(ancKey), Deps: anc.Params},
				TargetClassID: anc.Class,
			})
		}
	}
}
