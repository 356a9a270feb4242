package types

import (
	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
)

// ResolveOutcome distinguishes "no impl matched yet, try again later" from
// "resolved" when pre-resolving an associated-type projection. Ambiguity is
// reported as an error directly, never as an outcome.
type ResolveOutcome int

const (
	NoMatch ResolveOutcome = iota
	Resolved
)

// Resolver is the trait registry's contract with the unifier (§4.1, §4.2).
// internal/trait.Registry implements it; the interface lives here, not
// there, so that types has no dependency on trait and trait can depend on
// types for the Type it resolves into.
type Resolver interface {
	// ResolveAssocProj attempts T#Trait::Name where base is already fully
	// resolved (non-variable, non-pending). Zero impls of trait match: the
	// projection is left pending (NoMatch, nil). Exactly one matches: its
	// associated-type definition is returned, lowered through the match's
	// substitution. More than one matches: an error.
	ResolveAssocProj(base Type, trait ast.TraitSpec, name ast.AssocName) (Type, ResolveOutcome, error)

	// ResolveMethod resolves receiver.name(args) (trait == nil) or
	// receiver#Trait::name(args) (trait != nil) to a concrete *Func with
	// Origin set. As part of resolving, it pushes one equation per actual
	// argument against the matched signature's declared parameter type
	// into store, so a mismatched call arity/type surfaces as an ordinary
	// Mismatch/ArityMismatch on the next unification step rather than being
	// silently accepted. Zero matches or ambiguous matches are errors; the
	// pending/retry behavior only applies to associated-type projections
	// nested in receiver, not to method dispatch itself.
	ResolveMethod(receiver Type, trait *ast.TraitSpec, name ast.Identifier, args []Type, store *EquationStore) (*Func, error)

	// ResolveMember resolves a field access to the field's declared type.
	ResolveMember(receiver Type, name ast.Identifier) (Type, error)
}

// Unifier implements Robinson unification over Type, extended with
// pre-resolution of associated-type projections and of unresolved method /
// field / trait-method references through a Resolver (§4.1).
type Unifier struct {
	Trs Resolver
}

// NewUnifier returns a Unifier that consults trs for trait-dependent
// resolution steps.
func NewUnifier(trs Resolver) *Unifier { return &Unifier{Trs: trs} }

// Unify consumes every equation in store, returning either a fully composed
// Substitution or a *errors.Report on the first unrecoverable failure. The
// store's equation queue is empty on return (consumed either into
// substitutions or, for associated-type projections still pending after a
// full pass with no progress, turned into an UnresolvedProjection failure).
func (u *Unifier) Unify(store *EquationStore) (Substitution, error) {
	sub := Substitution{}

	// Bound retries by (a measure that strictly decreases unless progress
	// is made: remaining equations). This matches the original compiler's
	// re-push-on-no-match loop while still guaranteeing termination
	// (spec.md §4.1 step 3, Design Notes on bounding retries).
	stalledBudget := 0
	for len(store.equs) > 0 {
		// Classic LIFO consumption, mirroring the ported compiler's
		// equs.pop() loop.
		last := len(store.equs) - 1
		eq := store.equs[last]
		store.equs = store.equs[:last]

		left, leftOutcome, err := u.preResolve(eq.Left)
		if err != nil {
			return nil, err
		}
		right, rightOutcome, err := u.preResolve(eq.Right)
		if err != nil {
			return nil, err
		}

		if leftOutcome == NoMatch || rightOutcome == NoMatch {
			// Still pending: re-push once and keep going. If an entire
			// pass (queue length many re-pushes) makes no progress at
			// all, the projection can never resolve and we fail.
			stalledBudget++
			if stalledBudget > stalledRetryBound(store) {
				if leftOutcome == NoMatch {
					return nil, errors.WrapReport(errors.UnresolvedProjection(left))
				}
				return nil, errors.WrapReport(errors.UnresolvedProjection(right))
			}
			store.equs = append([]Equation{{Left: left, Right: right}}, store.equs...)
			continue
		}
		stalledBudget = 0

		if left.Equals(right) {
			continue
		}

		progressed, newSub, err := u.step(left, right, store)
		if err != nil {
			return nil, err
		}
		if newSub != nil {
			sub = compose(sub, newSub)
			store.ApplyToEquations(newSub)
		}
		_ = progressed
	}
	return sub, nil
}

// stalledRetryBound is a generous bound on how many consecutive
// no-progress re-pushes are tolerated before giving up: the number of
// equations currently queued, plus one for the equation just re-pushed.
// Any successful substitution resets the counter, so this only fires when
// truly nothing in the remaining queue can ever make the pending
// projection's base ground.
func stalledRetryBound(store *EquationStore) int { return len(store.equs) + 1 }

// preResolve resolves associated-type projections recursively (§4.1 step 1).
// A field access whose receiver is still a type variable is left pending
// the same way. Other constructors are returned unchanged (their children
// are resolved lazily, as part of structural decomposition in step()).
func (u *Unifier) preResolve(t Type) (Type, ResolveOutcome, error) {
	if m, ok := t.(*Member); ok {
		if _, isVar := m.Receiver.(*Var); isVar {
			return t, NoMatch, nil
		}
	}
	proj, ok := t.(*AssocProj)
	if !ok {
		return t, Resolved, nil
	}
	base, outcome, err := u.preResolve(proj.Base)
	if err != nil {
		return nil, 0, err
	}
	if outcome == NoMatch {
		return &AssocProj{Base: base, Trait: proj.Trait, Name: proj.Name}, NoMatch, nil
	}
	if _, isVar := base.(*Var); isVar {
		// Base not yet ground: leave the projection pending.
		return &AssocProj{Base: base, Trait: proj.Trait, Name: proj.Name}, NoMatch, nil
	}
	resolved, outcome, err := u.Trs.ResolveAssocProj(base, proj.Trait, proj.Name)
	if err != nil {
		return nil, 0, err
	}
	if outcome == NoMatch {
		return &AssocProj{Base: base, Trait: proj.Trait, Name: proj.Name}, NoMatch, nil
	}
	return resolved, Resolved, nil
}

// step performs one structural-unification decision between two
// already-pre-resolved types, returning whether progress was made and any
// substitution recorded (§4.1 step 2).
func (u *Unifier) step(left, right Type, store *EquationStore) (bool, Substitution, error) {
	// Unresolved method/field/trait-method references resolve through the
	// trait registry before structural comparison.
	if resolved, ok, err := u.resolveReference(left, store); err != nil {
		return false, nil, err
	} else if ok {
		store.AddEquation(resolved, right)
		return true, nil, nil
	}
	if resolved, ok, err := u.resolveReference(right, store); err != nil {
		return false, nil, err
	} else if ok {
		store.AddEquation(left, resolved)
		return true, nil, nil
	}

	switch l := left.(type) {
	case *Var:
		s, err := bindVar(l.ID, right)
		return true, s, err
	default:
		if r, ok := right.(*Var); ok {
			s, err := bindVar(r.ID, left)
			return true, s, err
		}
	}

	switch l := left.(type) {
	case *Nominal:
		r, ok := right.(*Nominal)
		if !ok || r.ID != l.ID {
			return false, nil, errors.WrapReport(errors.Mismatch(left, right))
		}
		if len(l.Args) != len(r.Args) {
			return false, nil, errors.WrapReport(errors.ArityMismatch("type arguments", len(l.Args), len(r.Args)))
		}
		for i := range l.Args {
			store.AddEquation(l.Args[i], r.Args[i])
		}
		return true, nil, nil

	case *Func:
		r, ok := right.(*Func)
		if !ok {
			return false, nil, errors.WrapReport(errors.Mismatch(left, right))
		}
		if len(l.Args) != len(r.Args) {
			return false, nil, errors.WrapReport(errors.ArityMismatch("function parameters", len(l.Args), len(r.Args)))
		}
		for i := range l.Args {
			store.AddEquation(l.Args[i], r.Args[i])
		}
		store.AddEquation(l.Ret, r.Ret)
		return true, nil, nil

	case *Ref:
		r, ok := right.(*Ref)
		if !ok {
			return false, nil, errors.WrapReport(errors.Mismatch(left, right))
		}
		store.AddEquation(l.Elem, r.Elem)
		return true, nil, nil

	case *MutRef:
		r, ok := right.(*MutRef)
		if !ok {
			return false, nil, errors.WrapReport(errors.Mismatch(left, right))
		}
		store.AddEquation(l.Elem, r.Elem)
		return true, nil, nil

	default:
		return false, nil, errors.WrapReport(errors.Mismatch(left, right))
	}
}

// resolveReference attempts to resolve MemberFunc, Member, or
// TraitMethodRef into a concrete Type via the trait registry. It returns
// ok=false for every other constructor (including when t is nil).
func (u *Unifier) resolveReference(t Type, store *EquationStore) (Type, bool, error) {
	switch r := t.(type) {
	case *MemberFunc:
		f, err := u.Trs.ResolveMethod(r.Receiver, nil, r.Name, r.Args, store)
		if err != nil {
			return nil, false, err
		}
		return f, true, nil
	case *Member:
		f, err := u.Trs.ResolveMember(r.Receiver, r.Name)
		if err != nil {
			return nil, false, err
		}
		return f, true, nil
	case *TraitMethodRef:
		f, err := u.Trs.ResolveMethod(r.Base, r.Trait, r.Method, nil, store)
		if err != nil {
			return nil, false, err
		}
		return f, true, nil
	default:
		return nil, false, nil
	}
}

func bindVar(id uint64, t Type) (Substitution, error) {
	if occurs(id, t) {
		return nil, errors.WrapReport(errors.Occurs(id, t))
	}
	return Substitution{id: t}, nil
}

// compose merges a newly recorded binding into the accumulated
// substitution, applying it to every previously recorded binding's
// right-hand side so the result stays idempotent (fully applied) without a
// final walk pass — see Substitution's doc comment.
func compose(acc, next Substitution) Substitution {
	out := make(Substitution, len(acc)+len(next))
	for id, t := range acc {
		out[id] = ApplySubst(next, t)
	}
	for id, t := range next {
		if _, exists := out[id]; !exists {
			out[id] = t
		}
	}
	return out
}
