package types

// SubstituteNamed replaces every nullary *Nominal in t whose name matches an
// entry of names with the corresponding entry of args. It is how a generic
// parameter, lowered as a rigid placeholder Nominal named after itself
// (§4.3's treatment of a function or impl's own generics as opaque types
// within its body), gets resolved back to a concrete type at the call site
// or receiver instantiation that supplies it — struct field lookups
// (internal/trait.Resolver.ResolveMember) and generic function/method
// instantiation (internal/driver) both go through this one substitution.
func SubstituteNamed(t Type, names []string, args []Type) Type {
	index := func(name string) (int, bool) {
		for i, n := range names {
			if n == name {
				return i, true
			}
		}
		return 0, false
	}
	var walk func(t Type) Type
	walk = func(t Type) Type {
		switch t := t.(type) {
		case *Nominal:
			if len(t.Args) == 0 {
				if i, ok := index(t.ID.Name); ok && i < len(args) {
					return args[i]
				}
				return t
			}
			newArgs := make([]Type, len(t.Args))
			for i, a := range t.Args {
				newArgs[i] = walk(a)
			}
			return &Nominal{ID: t.ID, Args: newArgs}
		case *Ref:
			return &Ref{Elem: walk(t.Elem)}
		case *MutRef:
			return &MutRef{Elem: walk(t.Elem)}
		case *Func:
			newArgs := make([]Type, len(t.Args))
			for i, a := range t.Args {
				newArgs[i] = walk(a)
			}
			return &Func{Args: newArgs, Ret: walk(t.Ret), Origin: t.Origin}
		default:
			return t
		}
	}
	return walk(t)
}
