package types

import "github.com/niuc-lang/niuc/internal/errors"

// GroundResolve recursively resolves every AssocProj inside t using
// resolver, for contexts where t is known to already be fully ground (no
// remaining type variables) and there is no equation store driving a
// retry loop — chiefly a function or struct's declared signature, lowered
// once at registration time rather than discovered through unification of
// a call (spec.md's scenario S3: a return type written directly as
// `i64#Tr::O` must resolve before anything ever calls the function).
// Anything still containing a Var, or a MemberFunc/Member/TraitMethodRef
// reference, is left untouched: those only ever arise inside a function
// body, where the ordinary equation-driven unification in
// internal/driver already resolves them.
func GroundResolve(resolver Resolver, t Type) (Type, error) {
	switch t := t.(type) {
	case *AssocProj:
		base, err := GroundResolve(resolver, t.Base)
		if err != nil {
			return nil, err
		}
		resolved, outcome, err := resolver.ResolveAssocProj(base, t.Trait, t.Name)
		if err != nil {
			return nil, err
		}
		if outcome == NoMatch {
			return nil, errors.WrapReport(errors.UnresolvedProjection(t))
		}
		return GroundResolve(resolver, resolved)

	case *Nominal:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			resolved, err := GroundResolve(resolver, a)
			if err != nil {
				return nil, err
			}
			args[i] = resolved
		}
		return &Nominal{ID: t.ID, Args: args}, nil

	case *Func:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			resolved, err := GroundResolve(resolver, a)
			if err != nil {
				return nil, err
			}
			args[i] = resolved
		}
		ret, err := GroundResolve(resolver, t.Ret)
		if err != nil {
			return nil, err
		}
		return &Func{Args: args, Ret: ret, Origin: t.Origin}, nil

	case *Ref:
		elem, err := GroundResolve(resolver, t.Elem)
		if err != nil {
			return nil, err
		}
		return &Ref{Elem: elem}, nil

	case *MutRef:
		elem, err := GroundResolve(resolver, t.Elem)
		if err != nil {
			return nil, err
		}
		return &MutRef{Elem: elem}, nil

	default:
		return t, nil
	}
}
