package types

import (
	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
)

// LowerTypeSpec converts a surface TypeSpec into an internal Type (§4.3's
// "lower(τ)"), resolving generic parameters through gens and the
// contextual "Self" type through store, and rejecting TypeIds that name
// neither a built-in nor a declared struct/trait (UnknownType).
//
// Self is special-cased exactly as the ported compiler's
// TypeSign::generics_to_type does: it is rejected with any generic
// arguments, and otherwise resolves to store's innermost pushed Self type
// (SPEC_FULL.md §10).
func LowerTypeSpec(spec ast.TypeSpec, gens *GenericsTypeMap, store *EquationStore, table *AnnotationTable) (Type, error) {
	switch s := spec.(type) {
	case ast.SignSpec:
		if bound, ok := gens.Get(s.ID); ok {
			if len(s.Gens) != 0 {
				return nil, errors.WrapReport(errors.UnknownType(s.ID.Name + " (generic parameter cannot itself take generic arguments)"))
			}
			return bound, nil
		}
		if s.ID == ast.SelfTypeId {
			if len(s.Gens) != 0 {
				return nil, errors.WrapReport(errors.UnknownType("Self cannot have generic arguments"))
			}
			self, ok := store.SelfType()
			if !ok {
				return nil, errors.WrapReport(errors.UnknownType("Self used outside of a trait or impl body"))
			}
			return self, nil
		}
		args := make([]Type, len(s.Gens))
		for i, g := range s.Gens {
			lowered, err := LowerTypeSpec(g, gens, store, table)
			if err != nil {
				return nil, err
			}
			args[i] = lowered
		}
		if !IsBuiltinTypeId(s.ID.Name) {
			if _, ok := table.Struct(s.ID.Name); !ok {
				return nil, errors.WrapReport(errors.UnknownType(s.ID.Name))
			}
		}
		return &Nominal{ID: s.ID, Args: args}, nil

	case ast.RefSpec:
		elem, err := LowerTypeSpec(s.Elem, gens, store, table)
		if err != nil {
			return nil, err
		}
		return &Ref{Elem: elem}, nil

	case ast.MutRefSpec:
		elem, err := LowerTypeSpec(s.Elem, gens, store, table)
		if err != nil {
			return nil, err
		}
		return &MutRef{Elem: elem}, nil

	case ast.AssocSpec:
		base, err := LowerTypeSpec(s.Base, gens, store, table)
		if err != nil {
			return nil, err
		}
		trait, err := lowerTraitSpec(s.Trait, gens, store, table)
		if err != nil {
			return nil, err
		}
		return &AssocProj{Base: base, Trait: trait, Name: s.Name}, nil

	default:
		return nil, errors.WrapReport(errors.UnknownType("unrecognized type spec"))
	}
}

func lowerTraitSpec(spec ast.TraitSpec, gens *GenericsTypeMap, store *EquationStore, table *AnnotationTable) (ast.TraitSpec, error) {
	out := ast.TraitSpec{TraitID: spec.TraitID, Generics: make([]ast.TypeSpec, len(spec.Generics))}
	for i, g := range spec.Generics {
		lowered, err := LowerTypeSpec(g, gens, store, table)
		if err != nil {
			return ast.TraitSpec{}, err
		}
		// Re-wrap as a TypeSpec literal (SignSpec over the lowered
		// Nominal's name) so TraitSpec keeps its surface-syntax shape even
		// after lowering its generics; the trait registry compares trait
		// generics structurally via LowerTypeSpec on demand, so the exact
		// surface form here only needs to round-trip through the Nominal's
		// printed name for built-ins and declared structs.
		out.Generics[i] = typeToSpec(lowered)
	}
	return out, nil
}

// typeToSpec renders an already-lowered Type back into a TypeSpec, used
// only to keep TraitSpec.Generics in surface-syntax shape after a generic
// parameter has been substituted with a concrete Type. It never needs to
// round-trip Var, MemberFunc, or the other unifier-internal constructors,
// since trait generics are always ground by the time they are compared.
func typeToSpec(t Type) ast.TypeSpec {
	switch t := t.(type) {
	case *Nominal:
		gens := make([]ast.TypeSpec, len(t.Args))
		for i, a := range t.Args {
			gens[i] = typeToSpec(a)
		}
		return ast.SignSpec{ID: t.ID, Gens: gens}
	case *Ref:
		return ast.RefSpec{Elem: typeToSpec(t.Elem)}
	case *MutRef:
		return ast.MutRefSpec{Elem: typeToSpec(t.Elem)}
	default:
		return ast.SignSpec{ID: ast.TypeId{Name: t.String()}}
	}
}
