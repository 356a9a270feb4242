// Package trait implements the trait registry (TraitsInfo in spec.md §3)
// and the resolver the unifier consults for associated-type projections and
// method dispatch (§4.2). It is grounded on the teacher's
// internal/types.InstanceEnv (github.com/sunholo/ailang): a type class
// instance is this compiler's trait impl, and InstanceEnv.Lookup's
// coherence/overlap checking is Registry.RegisterImpl's duplicate-impl
// check.
package trait

import (
	"fmt"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/types"
)

// Impl is one registered trait implementation: either a real impl parsed
// from an `impl Trait for Type { ... }` block, or a synthetic candidate
// registered for a where-clause bound for the lifetime of one generic
// function's scope (§4.2's where-clause handling).
type Impl struct {
	TraitID   string
	ImplType  ast.TypeSpec
	Generics  []ast.TypeId // the impl's own generic parameters, skeletonized when matching
	Where     []ast.WhereClause
	AssocDefs map[string]ast.TypeSpec
	Methods   map[string]*ast.FuncDecl
	// Synthetic is true for a where-clause candidate. Its Methods holds the
	// trait's own declared FuncInfo (no Body) for each required method,
	// standing in for the not-yet-known impl's methods until the real one is
	// found (RegisterWhereClauseCandidate).
	Synthetic bool
}

// frame is one scope level of the registry: trait definitions and impls
// registered within it, plus the set of generic type parameters active at
// that level. Only into_scope/out_scope create and destroy frames; the
// bottom (index 0) frame never pops and holds every top-level trait and
// impl declaration.
type frame struct {
	traits   map[string]*ast.TraitDecl
	impls    map[string][]*Impl // keyed by trait id, registration order
	generics map[string]bool
}

func newFrame() *frame {
	return &frame{traits: map[string]*ast.TraitDecl{}, impls: map[string][]*Impl{}, generics: map[string]bool{}}
}

// Registry is TraitsInfo: a scoped stack of frames. Lookups traverse frames
// newest-first; registering a trait, impl, or generic parameter only
// affects the top frame.
type Registry struct {
	frames []*frame
}

// NewRegistry returns a registry with one (global, permanent) frame.
func NewRegistry() *Registry {
	return &Registry{frames: []*frame{newFrame()}}
}

// IntoScope pushes a new, empty frame, as entering a generic function's
// body does.
func (r *Registry) IntoScope() { r.frames = append(r.frames, newFrame()) }

// OutScope pops the most recently pushed frame. The global (bottom) frame
// is never popped.
func (r *Registry) OutScope() {
	if len(r.frames) > 1 {
		r.frames = r.frames[:len(r.frames)-1]
	}
}

func (r *Registry) top() *frame { return r.frames[len(r.frames)-1] }

// RegisterTrait adds a trait definition to the top frame.
func (r *Registry) RegisterTrait(decl *ast.TraitDecl) error {
	top := r.top()
	if _, exists := top.traits[decl.TraitID.Name]; exists {
		return errors.WrapReport(&errors.Report{
			Kind: errors.KindUnknownTrait, Code: errors.TRT002, Phase: "trait",
			Message: fmt.Sprintf("trait %q is already defined in this scope", decl.TraitID.Name),
		})
	}
	top.traits[decl.TraitID.Name] = decl
	return nil
}

// LookupTrait searches every frame, newest-first, for a trait definition.
func (r *Registry) LookupTrait(name string) (*ast.TraitDecl, bool) {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if d, ok := r.frames[i].traits[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// RegisterImpl validates and adds a real impl to the top frame. It rejects
// an impl whose method signatures disagree with the trait's required
// signatures (grounded on func_definition.rs's FuncDefinitionInfo::check_equal
// in the original Niu compiler, see SPEC_FULL.md §10) and an impl that
// exactly duplicates an already-registered impl's (trait, ground type head)
// pair — the same overlap/coherence check the teacher's InstanceEnv.Add
// performs. table is consulted while lowering the impl's and trait's
// signatures for the equality check (struct-type validation, Self binding).
func (r *Registry) RegisterImpl(impl *Impl, table *types.AnnotationTable) error {
	trait, ok := r.LookupTrait(impl.TraitID)
	if !ok {
		return errors.WrapReport(errors.UnknownTrait(impl.TraitID))
	}
	for name, methodDecl := range impl.Methods {
		ok := false
		for _, m := range trait.Methods {
			if m.ID.Name == name {
				ok = true
				if err := checkSignatureArity(m, methodDecl.Info); err != nil {
					return err
				}
				if err := checkMethodSignaturesEqual(m, methodDecl, impl, table); err != nil {
					return err
				}
			}
		}
		if !ok {
			return errors.WrapReport(&errors.Report{
				Kind: errors.KindUnknownTrait, Code: errors.TRT004, Phase: "trait",
				Message: fmt.Sprintf("impl provides method %q which trait %q does not require", name, impl.TraitID),
			})
		}
	}
	for _, m := range trait.Methods {
		if _, ok := impl.Methods[m.ID.Name]; !ok {
			return errors.WrapReport(&errors.Report{
				Kind: errors.KindUnknownTrait, Code: errors.TRT004, Phase: "trait",
				Message: fmt.Sprintf("impl of trait %q is missing required method %q", impl.TraitID, m.ID.Name),
			})
		}
	}

	top := r.top()
	if headKey, ok := groundHeadKey(impl); ok {
		for _, existing := range top.impls[impl.TraitID] {
			if existingKey, ok := groundHeadKey(existing); ok && existingKey == headKey {
				return errors.WrapReport(&errors.Report{
					Kind: errors.KindAmbiguousImpl, Code: errors.TRT003, Phase: "trait",
					Message: fmt.Sprintf("overlapping impl: %s[%s] is already registered", impl.TraitID, headKey),
				})
			}
		}
	}
	top.impls[impl.TraitID] = append(top.impls[impl.TraitID], impl)
	return nil
}

// checkSignatureArity rejects an impl method whose arity disagrees with the
// trait's required signature for the same name, ahead of the full
// signature-equality check (checkMethodSignaturesEqual), so a plain arity
// slip is reported as an arity mismatch rather than surfacing as a more
// confusing unification failure.
func checkSignatureArity(required, provided ast.FuncInfo) error {
	if len(required.Params) != len(provided.Params) {
		return errors.WrapReport(errors.ArityMismatch(fmt.Sprintf("method %q parameters", required.ID.Name), len(required.Params), len(provided.Params)))
	}
	return nil
}

// checkMethodSignaturesEqual verifies that providedMethod's declared
// parameter and return types equal the trait's required signature for the
// same method, once both are lowered with impl's and the method's generics
// as opaque nominals (where-clauses are not consulted) and Self bound to
// impl's own type (grounded on func_definition.rs's
// FuncDefinitionInfo::check_equal in the original Niu compiler, see
// SPEC_FULL.md §10). Equality is checked by unifying the two lowered
// *types.Func values, not by structural comparison, since a required
// signature may itself mention an associated-type projection (e.g.
// Self#Describe::Output) that only resolves once Self is bound to a
// concrete impl type.
func checkMethodSignaturesEqual(required ast.FuncInfo, providedMethod *ast.FuncDecl, impl *Impl, table *types.AnnotationTable) error {
	gens := map[ast.TypeId]types.Type{}
	for _, g := range impl.Generics {
		gens[g] = &types.Nominal{ID: g}
	}
	for _, g := range required.Generics {
		gens[g] = &types.Nominal{ID: g}
	}
	for _, g := range providedMethod.Info.Generics {
		gens[g] = &types.Nominal{ID: g}
	}
	gmap := types.EmptyGenericsTypeMap().Next(gens)

	store := types.NewEquationStore()
	implTy, err := types.LowerTypeSpec(impl.ImplType, gmap, store, table)
	if err != nil {
		return err
	}
	store.PushSelfType(implTy)
	defer store.PopSelfType()

	requiredFn, err := lowerFuncSignature(required, gmap, store, table)
	if err != nil {
		return err
	}
	providedFn, err := lowerFuncSignature(providedMethod.Info, gmap, store, table)
	if err != nil {
		return err
	}

	trial := types.NewEquationStore()
	trial.AddEquation(requiredFn, providedFn)
	resolver := &implAssocResolver{impl: impl, table: table}
	if _, err := types.NewUnifier(resolver).Unify(trial); err != nil {
		rep, ok := errors.AsReport(err)
		detail := err.Error()
		if ok {
			detail = rep.Message
		}
		return errors.WrapReport(&errors.Report{
			Kind: errors.KindMismatch, Code: errors.TRT004, Phase: "trait",
			Message: fmt.Sprintf("method %q of impl %s for %s disagrees with trait %q's required signature: %s",
				required.ID.Name, impl.TraitID, impl.ImplType.String(), impl.TraitID, detail),
		})
	}
	return nil
}

// lowerFuncSignature lowers info's parameter and return types into a
// *types.Func, defaulting a missing return type to types.Void exactly as
// internal/trait.Resolver.ResolveMethod does for a dispatched method.
func lowerFuncSignature(info ast.FuncInfo, gens *types.GenericsTypeMap, store *types.EquationStore, table *types.AnnotationTable) (*types.Func, error) {
	args := make([]types.Type, len(info.Params))
	for i, p := range info.Params {
		lowered, err := types.LowerTypeSpec(p.Type, gens, store, table)
		if err != nil {
			return nil, err
		}
		args[i] = lowered
	}
	ret := types.Type(types.Void)
	if info.Ret != nil {
		lowered, err := types.LowerTypeSpec(info.Ret, gens, store, table)
		if err != nil {
			return nil, err
		}
		ret = lowered
	}
	return &types.Func{Args: args, Ret: ret}, nil
}

// implAssocResolver resolves the one kind of associated-type projection a
// required-signature check can legitimately encounter: Self#impl.TraitID::Name
// against the very impl being registered. Any other trait is left
// unresolved (NoMatch) rather than matched against the wrong impl; method
// and member resolution are not needed at registration time and always
// fail, since a required or provided signature is never itself a method
// call or field access.
type implAssocResolver struct {
	impl  *Impl
	table *types.AnnotationTable
}

var _ types.Resolver = (*implAssocResolver)(nil)

func (r *implAssocResolver) ResolveAssocProj(base types.Type, traitSpec ast.TraitSpec, name ast.AssocName) (types.Type, types.ResolveOutcome, error) {
	if traitSpec.TraitID.Name != r.impl.TraitID {
		return nil, types.NoMatch, nil
	}
	spec, ok := r.impl.AssocDefs[name.Name]
	if !ok {
		return nil, 0, errors.WrapReport(errors.UnknownType(r.impl.TraitID + "::" + name.Name))
	}
	store := types.NewEquationStore()
	lowered, err := types.LowerTypeSpec(spec, types.EmptyGenericsTypeMap(), store, r.table)
	if err != nil {
		return nil, 0, err
	}
	return lowered, types.Resolved, nil
}

func (r *implAssocResolver) ResolveMethod(receiver types.Type, _ *ast.TraitSpec, name ast.Identifier, _ []types.Type, _ *types.EquationStore) (*types.Func, error) {
	return nil, errors.WrapReport(errors.NoImpl(name.Name, receiver))
}

func (r *implAssocResolver) ResolveMember(_ types.Type, name ast.Identifier) (types.Type, error) {
	return nil, errors.WrapReport(errors.UnknownVariable(name.Name))
}

// groundHeadKey returns a coherence key for impl when its ImplType contains
// no generics (a "ground" head): a textual rendering of the impl type (the
// trait id is not part of the key). Generic impls (impl<T> Tr for Foo<T>)
// are only checked for overlap at resolution time, by skeletonized
// unification (Resolver.skeletonAndTry), since two such impls may or may
// not overlap depending on T.
func groundHeadKey(impl *Impl) (string, bool) {
	if len(impl.Generics) > 0 {
		return "", false
	}
	return impl.ImplType.String(), true
}

// ImplsFor returns every impl of traitID visible in the current scope,
// oldest frame first and registration order within a frame — the
// deterministic candidate iteration order SPEC_FULL.md §11 decision 1
// requires.
func (r *Registry) ImplsFor(traitID string) []*Impl {
	var out []*Impl
	for _, f := range r.frames {
		out = append(out, f.impls[traitID]...)
	}
	return out
}

// AllTraitsWithMethod returns the trait ids whose required_methods contain
// methodName, visible in the current scope.
func (r *Registry) AllTraitsWithMethod(methodName string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range r.frames {
		for id, decl := range f.traits {
			if seen[id] {
				continue
			}
			for _, m := range decl.Methods {
				if m.ID.Name == methodName {
					out = append(out, id)
					seen[id] = true
					break
				}
			}
		}
	}
	return out
}

// RegisterGenericParam marks id as an active generic type parameter in the
// top frame (no bound implied; see RegisterWhereClauseCandidate for bounds).
func (r *Registry) RegisterGenericParam(id ast.TypeId) { r.top().generics[id.Name] = true }

// IsGenericParam reports whether id is an active generic parameter in any
// open scope.
func (r *Registry) IsGenericParam(id ast.TypeId) bool {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].generics[id.Name] {
			return true
		}
	}
	return false
}

// RegisterWhereClauseCandidate registers a synthetic impl advertising that
// param satisfies trait, with each associated type resolved to a fresh
// opaque nominal tagged by param (§4.2). The candidate is added to the top
// frame and disappears at the next OutScope.
func (r *Registry) RegisterWhereClauseCandidate(param ast.TypeId, traitSpec ast.TraitSpec) error {
	decl, ok := r.LookupTrait(traitSpec.TraitID.Name)
	if !ok {
		return errors.WrapReport(errors.UnknownTrait(traitSpec.TraitID.Name))
	}
	assoc := map[string]ast.TypeSpec{}
	for _, a := range decl.AssocIDs {
		opaqueName := fmt.Sprintf("%s#%s::%s", param.Name, traitSpec.TraitID.Name, a.Name)
		assoc[a.Name] = ast.SignSpec{ID: ast.TypeId{Name: opaqueName}}
	}
	methods := map[string]*ast.FuncDecl{}
	for _, m := range decl.Methods {
		methods[m.ID.Name] = &ast.FuncDecl{Info: m}
	}
	impl := &Impl{
		TraitID:   traitSpec.TraitID.Name,
		ImplType:  ast.SignSpec{ID: param},
		AssocDefs: assoc,
		Methods:   methods,
		Synthetic: true,
	}
	r.top().impls[traitSpec.TraitID.Name] = append(r.top().impls[traitSpec.TraitID.Name], impl)
	return nil
}
