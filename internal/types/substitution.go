package types

// Substitution maps type variables to the Type they were unified with. The
// unifier keeps substitutions in idempotent (fully-applied) form: whenever a
// new binding v -> t is recorded, it is applied to the right-hand side of
// every previously recorded binding (see Unifier.recordSubst), so a single
// ApplySubst pass over any type is enough — no trailing "walk" step.
type Substitution map[uint64]Type

// Clone returns a shallow copy of sub.
func (sub Substitution) Clone() Substitution {
	out := make(Substitution, len(sub))
	for k, v := range sub {
		out[k] = v
	}
	return out
}

// ApplySubst applies sub to t structurally, replacing every Var whose ID is
// bound in sub with its substitute. Unbound variables and non-variable
// constructors recurse into their children.
func ApplySubst(sub Substitution, t Type) Type {
	switch t := t.(type) {
	case *Var:
		if rep, ok := sub[t.ID]; ok {
			// The substitute may itself still mention other bound
			// variables when sub was composed out of order; resolve
			// fully rather than assume idempotence of the caller.
			return ApplySubst(sub, rep)
		}
		return t
	case *Nominal:
		var args []Type
		if t.Args != nil {
			args = make([]Type, len(t.Args))
		}
		for i, a := range t.Args {
			args[i] = ApplySubst(sub, a)
		}
		return &Nominal{ID: t.ID, Args: args}
	case *Func:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = ApplySubst(sub, a)
		}
		var origin *Origin
		if t.Origin != nil {
			origin = &Origin{Trait: t.Origin.Trait, ImplType: ApplySubst(sub, t.Origin.ImplType)}
		}
		return &Func{Args: args, Ret: ApplySubst(sub, t.Ret), Origin: origin}
	case *MemberFunc:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = ApplySubst(sub, a)
		}
		return &MemberFunc{Receiver: ApplySubst(sub, t.Receiver), Name: t.Name, Args: args}
	case *Member:
		return &Member{Receiver: ApplySubst(sub, t.Receiver), Name: t.Name}
	case *AssocProj:
		return &AssocProj{Base: ApplySubst(sub, t.Base), Trait: t.Trait, Name: t.Name}
	case *Ref:
		return &Ref{Elem: ApplySubst(sub, t.Elem)}
	case *MutRef:
		return &MutRef{Elem: ApplySubst(sub, t.Elem)}
	case *TraitMethodRef:
		return &TraitMethodRef{Base: ApplySubst(sub, t.Base), Trait: t.Trait, Method: t.Method}
	default:
		return t
	}
}

// occurs reports whether variable id appears anywhere inside t (the
// occurs-check). A substitution v -> t that fails this check would produce
// an infinite type.
func occurs(id uint64, t Type) bool {
	switch t := t.(type) {
	case *Var:
		return t.ID == id
	case *Nominal:
		for _, a := range t.Args {
			if occurs(id, a) {
				return true
			}
		}
		return false
	case *Func:
		for _, a := range t.Args {
			if occurs(id, a) {
				return true
			}
		}
		if occurs(id, t.Ret) {
			return true
		}
		if t.Origin != nil && occurs(id, t.Origin.ImplType) {
			return true
		}
		return false
	case *MemberFunc:
		if occurs(id, t.Receiver) {
			return true
		}
		for _, a := range t.Args {
			if occurs(id, a) {
				return true
			}
		}
		return false
	case *Member:
		return occurs(id, t.Receiver)
	case *AssocProj:
		return occurs(id, t.Base)
	case *Ref:
		return occurs(id, t.Elem)
	case *MutRef:
		return occurs(id, t.Elem)
	case *TraitMethodRef:
		return occurs(id, t.Base)
	default:
		return false
	}
}
