package trait

import (
	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/types"
)

// Resolver adapts a Registry to types.Resolver: the one point where the
// unifier asks "which impl applies here." Every method works the same way
// (grounded on solve_associated_type in the original Niu compiler's
// unify/type_equation.rs): skeletonize each candidate impl's own generics
// with fresh type variables, trial-unify the impl's type against what the
// unifier is asking about in a throwaway equation store, and keep only the
// candidates for which that trial succeeds. Zero survivors is "not yet" (or
// "never," for method/member resolution, which is never speculative);
// exactly one is the match; more than one is always an error — iteration
// order never breaks a tie (SPEC_FULL.md §11 decision 1).
type Resolver struct {
	Reg   *Registry
	Table *types.AnnotationTable
}

// NewResolver returns a Resolver backed by reg, consulting table for
// struct-layout and declared-type lookups during lowering.
func NewResolver(reg *Registry, table *types.AnnotationTable) *Resolver {
	return &Resolver{Reg: reg, Table: table}
}

var _ types.Resolver = (*Resolver)(nil)

// candidateMatch is one impl that survived trial unification.
type candidateMatch struct {
	impl  *Impl
	sub   types.Substitution
	gens  *types.GenericsTypeMap // the impl's own generics, bound to fresh vars
	self  types.Type             // the impl type, as lowered before substitution
}

// skeletonAndTry lowers impl.ImplType with its own generics bound to fresh
// type variables, then trial-unifies the result against target in a
// throwaway store. It returns ok=false (no error) when the impl's type
// spec doesn't even lower (e.g. it names a generic from an enclosing scope
// not relevant here) or when trial unification fails — both mean "this impl
// does not apply," not a hard error.
func (r *Resolver) skeletonAndTry(impl *Impl, target types.Type) (candidateMatch, bool) {
	trial := types.NewEquationStore()

	// A where-clause candidate's ImplType names an already-rigid generic
	// parameter from the enclosing function/impl, not one of its own
	// generics (it has none) — lower it straight to that parameter's
	// placeholder nominal rather than through the general struct-or-builtin
	// check, which would otherwise reject the bare parameter name as an
	// unknown type.
	if impl.Synthetic {
		sign, ok := impl.ImplType.(ast.SignSpec)
		if !ok {
			return candidateMatch{}, false
		}
		implTy := types.Type(&types.Nominal{ID: sign.ID})
		trial.AddEquation(target, implTy)
		nested := types.NewUnifier(r)
		sub, err := nested.Unify(trial)
		if err != nil {
			return candidateMatch{}, false
		}
		return candidateMatch{impl: impl, sub: sub, gens: types.EmptyGenericsTypeMap(), self: implTy}, true
	}

	gens := map[ast.TypeId]types.Type{}
	for _, g := range impl.Generics {
		gens[g] = trial.FreshVar()
	}
	gmap := types.EmptyGenericsTypeMap().Next(gens)

	implTy, err := types.LowerTypeSpec(impl.ImplType, gmap, trial, r.Table)
	if err != nil {
		return candidateMatch{}, false
	}

	trial.AddEquation(target, implTy)
	nested := types.NewUnifier(r)
	sub, err := nested.Unify(trial)
	if err != nil {
		return candidateMatch{}, false
	}
	return candidateMatch{impl: impl, sub: sub, gens: gmap, self: implTy}, true
}

// substitutedGenerics rebinds m's generics map through m.sub, so the
// associated-type or method signature lowered next sees each generic
// parameter's final, resolved type rather than the placeholder variable
// skeletonAndTry minted for it.
func (m candidateMatch) substitutedGenerics() *types.GenericsTypeMap {
	out := map[ast.TypeId]types.Type{}
	for _, g := range m.impl.Generics {
		if bound, ok := m.gens.Get(g); ok {
			out[g] = types.ApplySubst(m.sub, bound)
		}
	}
	return types.EmptyGenericsTypeMap().Next(out)
}

func (m candidateMatch) resolvedSelf() types.Type { return types.ApplySubst(m.sub, m.self) }

// ResolveAssocProj implements types.Resolver.
func (r *Resolver) ResolveAssocProj(base types.Type, traitSpec ast.TraitSpec, name ast.AssocName) (types.Type, types.ResolveOutcome, error) {
	if _, ground := base.(*types.Nominal); !ground {
		return nil, types.NoMatch, nil
	}

	var matches []candidateMatch
	for _, impl := range r.Reg.ImplsFor(traitSpec.TraitID.Name) {
		if m, ok := r.skeletonAndTry(impl, base); ok {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil, types.NoMatch, nil
	}
	if len(matches) > 1 {
		return nil, 0, errors.WrapReport(errors.AmbiguousImpl(traitSpec.TraitID.Name, base))
	}

	m := matches[0]
	assocSpec, ok := m.impl.AssocDefs[name.Name]
	if !ok {
		return nil, 0, errors.WrapReport(errors.UnknownType(traitSpec.TraitID.Name + "::" + name.Name))
	}

	if m.impl.Synthetic {
		sign, ok := assocSpec.(ast.SignSpec)
		if !ok {
			return nil, 0, errors.WrapReport(errors.UnknownType(traitSpec.TraitID.Name + "::" + name.Name))
		}
		// The where-clause never says what this associated type concretely
		// is, only that it exists — it stays an opaque nominal tagged by
		// the bound parameter, trait, and name, matching it against itself
		// wherever it recurs but never unifying with anything else.
		return &types.Nominal{ID: sign.ID}, types.Resolved, nil
	}

	selfStore := types.NewEquationStore()
	selfStore.PushSelfType(m.resolvedSelf())
	lowered, err := types.LowerTypeSpec(assocSpec, m.substitutedGenerics(), selfStore, r.Table)
	if err != nil {
		return nil, 0, err
	}
	return lowered, types.Resolved, nil
}

// ResolveMethod implements types.Resolver.
func (r *Resolver) ResolveMethod(receiver types.Type, traitSpec *ast.TraitSpec, name ast.Identifier, args []types.Type, store *types.EquationStore) (*types.Func, error) {
	var traitIDs []string
	if traitSpec != nil {
		traitIDs = []string{traitSpec.TraitID.Name}
	} else {
		traitIDs = r.Reg.AllTraitsWithMethod(name.Name)
	}

	var matches []candidateMatch
	var matchedTraitID []string
	for _, tid := range traitIDs {
		for _, impl := range r.Reg.ImplsFor(tid) {
			if _, has := impl.Methods[name.Name]; !has {
				continue
			}
			if m, ok := r.skeletonAndTry(impl, receiver); ok {
				matches = append(matches, m)
				matchedTraitID = append(matchedTraitID, tid)
			}
		}
	}

	if len(matches) == 0 {
		if traitSpec != nil {
			return nil, errors.WrapReport(errors.NoImpl(traitSpec.TraitID.Name, receiver))
		}
		return nil, errors.WrapReport(errors.NoImpl(name.Name, receiver))
	}
	if len(matches) > 1 {
		if traitSpec != nil {
			return nil, errors.WrapReport(errors.AmbiguousImpl(traitSpec.TraitID.Name, receiver))
		}
		return nil, errors.WrapReport(errors.AmbiguousMethod(name.Name, receiver, matchedTraitID))
	}

	m := matches[0]
	methodDecl := m.impl.Methods[name.Name]
	gens := m.substitutedGenerics()

	selfStore := types.NewEquationStore()
	selfStore.PushSelfType(m.resolvedSelf())

	declaredArgs := make([]types.Type, len(methodDecl.Info.Params))
	for i, p := range methodDecl.Info.Params {
		lowered, err := types.LowerTypeSpec(p.Type, gens, selfStore, r.Table)
		if err != nil {
			return nil, err
		}
		declaredArgs[i] = lowered
	}
	var declaredRet types.Type
	if methodDecl.Info.Ret != nil {
		lowered, err := types.LowerTypeSpec(methodDecl.Info.Ret, gens, selfStore, r.Table)
		if err != nil {
			return nil, err
		}
		declaredRet = lowered
	} else {
		declaredRet = types.Void
	}

	if args != nil {
		if len(args) != len(declaredArgs) {
			return nil, errors.WrapReport(errors.ArityMismatch("method "+name.Name+" arguments", len(declaredArgs), len(args)))
		}
		for i, a := range args {
			store.AddEquation(a, declaredArgs[i])
		}
	}

	resolvedTraitID := matchedTraitID[0]
	var resolvedTraitSpec ast.TraitSpec
	if traitSpec != nil {
		resolvedTraitSpec = *traitSpec
	} else {
		resolvedTraitSpec = ast.TraitSpec{TraitID: ast.Identifier{Name: resolvedTraitID}}
	}

	return &types.Func{
		Args: declaredArgs,
		Ret:  declaredRet,
		Origin: &types.Origin{
			Trait:    resolvedTraitSpec,
			ImplType: m.resolvedSelf(),
		},
	}, nil
}

// ResolveMember implements types.Resolver. Struct field types are lowered
// once, at struct-declaration time, with each of the struct's own generic
// parameters bound to a placeholder *types.Nominal named after that
// parameter (see internal/driver); resolving a field access on a concrete
// instantiation substitutes those placeholders for the receiver's actual
// type arguments.
func (r *Resolver) ResolveMember(receiver types.Type, name ast.Identifier) (types.Type, error) {
	nom, ok := receiver.(*types.Nominal)
	if !ok {
		return nil, errors.WrapReport(errors.Mismatch(receiver, structLikeStringer{}))
	}
	layout, ok := r.Table.Struct(nom.ID.Name)
	if !ok {
		return nil, errors.WrapReport(errors.UnknownType(nom.ID.Name))
	}
	fieldTy, ok := layout.Fields[name.Name]
	if !ok {
		return nil, errors.WrapReport(errors.UnknownVariable(nom.ID.Name + "." + name.Name))
	}
	return types.SubstituteNamed(fieldTy, layout.Generics, nom.Args), nil
}

type structLikeStringer struct{}

func (structLikeStringer) String() string { return "struct type" }
