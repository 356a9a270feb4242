package types

// Equation is an unordered pair (Left, Right) meaning "these two types must
// be equal."
type Equation struct {
	Left  Type
	Right Type
}

// TaggedVarKey identifies one syntactic occurrence's type slot: an AST tag
// plus a slot index (slot 0 is an occurrence's own type; higher slots are
// used for e.g. a call site's per-generic-parameter type variables, or a
// member access's field-type variable). The allocator is injective: two
// distinct keys always yield distinct variables.
type TaggedVarKey struct {
	Tag  uint64
	Slot int
}

// EquationStore accumulates equality constraints for one function's
// inference and supports scoped push/pop for nested contexts (one frame per
// function body). It also owns the monotonic counter that mints fresh type
// variables, including the tagged-variable allocator the annotation table
// is keyed against, and the scope stack of named-variable bindings
// (parameters and lets) a Var expression resolves through.
//
// The equation store is LIFO-scoped: out_scope leaves the enclosing scope's
// bindings untouched, and it drops exactly the frame into_scope pushed.
type EquationStore struct {
	cnt       uint64
	equs      []Equation
	scopes    []map[string]Type
	tagged    map[TaggedVarKey]uint64
	selfTypes []Type // stack mirroring TraitsInfo's scope, for "Self" lowering
}

// NewEquationStore returns an empty store with no open scope.
func NewEquationStore() *EquationStore {
	return &EquationStore{tagged: map[TaggedVarKey]uint64{}}
}

// FreshVar mints a new, never-before-seen type variable.
func (e *EquationStore) FreshVar() *Var {
	id := e.cnt
	e.cnt++
	return &Var{ID: id}
}

// TaggedVar returns the type variable for (tag, slot), minting one on first
// use and returning the same variable on every subsequent call with the
// same key within the store's lifetime.
func (e *EquationStore) TaggedVar(tag uint64, slot int) *Var {
	key := TaggedVarKey{Tag: tag, Slot: slot}
	if id, ok := e.tagged[key]; ok {
		return &Var{ID: id}
	}
	v := e.FreshVar()
	e.tagged[key] = v.ID
	return v
}

// AddEquation pushes a new equality constraint onto the pending queue.
func (e *EquationStore) AddEquation(left, right Type) {
	e.equs = append(e.equs, Equation{Left: left, Right: right})
}

// Equations returns the pending (unconsumed) equations.
func (e *EquationStore) Equations() []Equation { return e.equs }

// ClearEquations drops every pending equation, readying the store for the
// next function's inference.
func (e *EquationStore) ClearEquations() { e.equs = nil }

// IntoScope pushes a fresh, empty variable-binding frame.
func (e *EquationStore) IntoScope() { e.scopes = append(e.scopes, map[string]Type{}) }

// OutScope pops the most recently pushed variable-binding frame. It is a
// no-op if no scope is open.
func (e *EquationStore) OutScope() {
	if len(e.scopes) == 0 {
		return
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// RegisterVariable binds name to t in the current (innermost) scope.
func (e *EquationStore) RegisterVariable(name string, t Type) {
	if len(e.scopes) == 0 {
		e.IntoScope()
	}
	e.scopes[len(e.scopes)-1][name] = t
}

// LookupVariable searches scopes newest-first for name.
func (e *EquationStore) LookupVariable(name string) (Type, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if t, ok := e.scopes[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

// PushSelfType makes t the current "Self" type, for lowering TypeSpec nodes
// that name Self inside a trait/impl body (see SPEC_FULL.md §10).
func (e *EquationStore) PushSelfType(t Type) { e.selfTypes = append(e.selfTypes, t) }

// PopSelfType removes the innermost Self type binding.
func (e *EquationStore) PopSelfType() {
	if len(e.selfTypes) == 0 {
		return
	}
	e.selfTypes = e.selfTypes[:len(e.selfTypes)-1]
}

// SelfType returns the innermost bound Self type, if any is currently in
// scope.
func (e *EquationStore) SelfType() (Type, bool) {
	if len(e.selfTypes) == 0 {
		return nil, false
	}
	return e.selfTypes[len(e.selfTypes)-1], true
}

// ApplyToEquations applies sub in place to every pending equation's sides,
// matching the structural-recursion substitution step the unifier performs
// after recording a new binding (§4.1 step 2).
func (e *EquationStore) ApplyToEquations(sub Substitution) {
	for i := range e.equs {
		e.equs[i].Left = ApplySubst(sub, e.equs[i].Left)
		e.equs[i].Right = ApplySubst(sub, e.equs[i].Right)
	}
}
