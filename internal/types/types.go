// Package types implements the core of the compiler: the internal Type
// representation, Hindley-Milner unification extended with trait
// resolution, the scoped equation store, and the annotation table the
// unifier produces.
package types

import (
	"fmt"
	"strings"

	"github.com/niuc-lang/niuc/internal/ast"
)

// Type is the internal, post-lowering representation the unifier works
// over. Every TypeSpec written in source is lowered to a Type before
// equations are emitted against it.
type Type interface {
	isType()
	String() string
	Equals(Type) bool
}

// Nominal is a fully applied nominal type: a TypeId together with its
// already-resolved generic arguments.
type Nominal struct {
	ID   ast.TypeId
	Args []Type
}

func (*Nominal) isType() {}

func (n *Nominal) String() string {
	if len(n.Args) == 0 {
		return n.ID.Name
	}
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", n.ID.Name, strings.Join(parts, ", "))
}

func (n *Nominal) Equals(other Type) bool {
	o, ok := other.(*Nominal)
	if !ok || o.ID != n.ID || len(o.Args) != len(n.Args) {
		return false
	}
	for i := range n.Args {
		if !n.Args[i].Equals(o.Args[i]) {
			return false
		}
	}
	return true
}

// Origin records that a Func value was obtained via trait-method dispatch:
// the trait and the concrete implementing type. The transpiler uses it to
// emit Trait<Ty>::method(...) instead of a bare call.
type Origin struct {
	Trait    ast.TraitSpec
	ImplType Type
}

// Func is a function type. Origin is set only when the function value was
// obtained by resolving a trait method reference.
type Func struct {
	Args   []Type
	Ret    Type
	Origin *Origin
}

func (*Func) isType() {}

func (f *Func) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), f.Ret.String())
}

func (f *Func) Equals(other Type) bool {
	o, ok := other.(*Func)
	if !ok || len(o.Args) != len(f.Args) {
		return false
	}
	for i := range f.Args {
		if !f.Args[i].Equals(o.Args[i]) {
			return false
		}
	}
	return f.Ret.Equals(o.Ret)
}

// MemberFunc is an unresolved method call receiver.name(args...). It never
// survives a successful unification pass: the trait resolver rewrites it to
// a concrete Func (with Origin set) before the equation containing it is
// re-checked.
type MemberFunc struct {
	Receiver Type
	Name     ast.Identifier
	Args     []Type
}

func (*MemberFunc) isType() {}

func (m *MemberFunc) String() string {
	parts := make([]string, len(m.Args))
	for i, a := range m.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s.%s(%s)", m.Receiver.String(), m.Name.Name, strings.Join(parts, ", "))
}

func (m *MemberFunc) Equals(other Type) bool {
	o, ok := other.(*MemberFunc)
	if !ok || o.Name.Name != m.Name.Name || len(o.Args) != len(m.Args) {
		return false
	}
	if !m.Receiver.Equals(o.Receiver) {
		return false
	}
	for i := range m.Args {
		if !m.Args[i].Equals(o.Args[i]) {
			return false
		}
	}
	return true
}

// Member is an unresolved field access; the struct layout registry resolves
// it to the field's declared type.
type Member struct {
	Receiver Type
	Name     ast.Identifier
}

func (*Member) isType() {}

func (m *Member) String() string { return fmt.Sprintf("%s.%s", m.Receiver.String(), m.Name.Name) }

func (m *Member) Equals(other Type) bool {
	o, ok := other.(*Member)
	return ok && o.Name.Name == m.Name.Name && m.Receiver.Equals(o.Receiver)
}

// AssocProj is an unresolved associated-type projection, T#Trait::Name.
type AssocProj struct {
	Base  Type
	Trait ast.TraitSpec
	Name  ast.AssocName
}

func (*AssocProj) isType() {}

func (a *AssocProj) String() string {
	return fmt.Sprintf("%s#%s::%s", a.Base.String(), a.Trait.TraitID.Name, a.Name.Name)
}

func (a *AssocProj) Equals(other Type) bool {
	o, ok := other.(*AssocProj)
	return ok && o.Trait.TraitID.Name == a.Trait.TraitID.Name && o.Name.Name == a.Name.Name && a.Base.Equals(o.Base)
}

// Ref is an immutable reference type, &T.
type Ref struct{ Elem Type }

func (*Ref) isType()          {}
func (r *Ref) String() string { return "&" + r.Elem.String() }
func (r *Ref) Equals(o Type) bool {
	or, ok := o.(*Ref)
	return ok && r.Elem.Equals(or.Elem)
}

// MutRef is a mutable reference type, &mut T.
type MutRef struct{ Elem Type }

func (*MutRef) isType()          {}
func (r *MutRef) String() string { return "&mut " + r.Elem.String() }
func (r *MutRef) Equals(o Type) bool {
	or, ok := o.(*MutRef)
	return ok && r.Elem.Equals(or.Elem)
}

// TraitMethodRef is a bare T#Trait::m value. Trait is nil when the surface
// syntax gave only a method name with no trait disambiguator; the resolver
// then scans every trait whose required methods contain that name. It is
// resolved to a Func (with Origin set) during unification and never appears
// in the final annotation table.
type TraitMethodRef struct {
	Base   Type
	Trait  *ast.TraitSpec
	Method ast.Identifier
}

func (*TraitMethodRef) isType() {}

func (t *TraitMethodRef) String() string {
	if t.Trait != nil {
		return fmt.Sprintf("%s#%s::%s", t.Base.String(), t.Trait.TraitID.Name, t.Method.Name)
	}
	return fmt.Sprintf("%s#?::%s", t.Base.String(), t.Method.Name)
}

func (t *TraitMethodRef) Equals(other Type) bool {
	o, ok := other.(*TraitMethodRef)
	if !ok || o.Method.Name != t.Method.Name || !t.Base.Equals(o.Base) {
		return false
	}
	if (t.Trait == nil) != (o.Trait == nil) {
		return false
	}
	if t.Trait != nil && t.Trait.TraitID.Name != o.Trait.TraitID.Name {
		return false
	}
	return true
}

// Var is a type variable minted by the equation store.
type Var struct {
	ID uint64
}

func (*Var) isType()          {}
func (v *Var) String() string { return fmt.Sprintf("'t%d", v.ID) }
func (v *Var) Equals(o Type) bool {
	ov, ok := o.(*Var)
	return ok && ov.ID == v.ID
}

// Built-in nominal types, fixed per spec.md's "no standard library" scope.
var (
	I64  = &Nominal{ID: ast.TypeId{Name: "i64"}}
	Bool = &Nominal{ID: ast.TypeId{Name: "bool"}}
	Void = &Nominal{ID: ast.TypeId{Name: "void"}}
)

// IsBuiltinTypeId reports whether name is one of the fixed built-in types.
func IsBuiltinTypeId(name string) bool {
	switch name {
	case "i64", "bool", "void":
		return true
	default:
		return false
	}
}
