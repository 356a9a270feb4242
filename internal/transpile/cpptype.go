package transpile

import (
	"fmt"
	"strings"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/types"
)

// BinaryOperatorTraits maps a trait id to the C++ operator it transpiles
// to. An associated-type projection through one of these traits emits
// decltype(std::declval<L>() OP std::declval<R>()) instead of the usual
// typename Trait<Ty>::Name form (spec.md §6's last Output-format bullet;
// mirrors original_source/src/type_spec.rs's BINARY_OPERATOR_TRAITS table,
// consulted the same way: by trait id, before falling back to the
// typename form).
var BinaryOperatorTraits = map[string]string{
	"Add":    "+",
	"Sub":    "-",
	"Mul":    "*",
	"Div":    "/",
	"Rem":    "%",
	"BitAnd": "&",
	"BitOr":  "|",
	"BitXor": "^",
	"Shl":    "<<",
	"Shr":    ">>",
	"Eq":     "==",
	"Ne":     "!=",
	"Lt":     "<",
	"Le":     "<=",
	"Gt":     ">",
	"Ge":     ">=",
	"And":    "&&",
	"Or":     "||",
}

// cppBuiltinName maps the three built-in type ids to their C++ spelling.
// Everything else passes through unchanged: a user struct or trait name is
// already valid as a C++ identifier.
func cppBuiltinName(name string) string {
	switch name {
	case "i64":
		return "int64_t"
	case "bool":
		return "bool"
	case "void":
		return "void"
	default:
		return name
	}
}

// cppType renders a resolved internal Type as C++. By the time the
// transpiler runs, nothing but Nominal, Func, Ref, MutRef, and (on a
// signature that directly named one) AssocProj should remain — Var,
// Member, MemberFunc, and TraitMethodRef only ever exist mid-inference.
func cppType(t types.Type) string {
	switch t := t.(type) {
	case *types.Nominal:
		if len(t.Args) == 0 {
			return cppBuiltinName(t.ID.Name)
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = cppType(a)
		}
		return fmt.Sprintf("%s<%s>", t.ID.Name, strings.Join(parts, ", "))

	case *types.Ref:
		return "const " + cppType(t.Elem) + "&"

	case *types.MutRef:
		return cppType(t.Elem) + "&"

	case *types.AssocProj:
		return assocProjCppNamed(cppType(t.Base), t.Trait, t.Name.Name)

	case *types.Func:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = cppType(a)
		}
		return fmt.Sprintf("std::function<%s(%s)>", cppType(t.Ret), strings.Join(parts, ", "))

	default:
		return t.String()
	}
}

// assocProjCppNamed renders traitSpec::name projected from a base already
// rendered to C++, consulting BinaryOperatorTraits before falling back to
// the typename form.
func assocProjCppNamed(baseCpp string, traitSpec ast.TraitSpec, name string) string {
	if ope, ok := BinaryOperatorTraits[traitSpec.TraitID.Name]; ok {
		right := "void"
		if len(traitSpec.Generics) > 0 {
			right = typeSpecCpp(traitSpec.Generics[0])
		}
		return fmt.Sprintf("decltype(std::declval<%s>() %s std::declval<%s>())", baseCpp, ope, right)
	}
	generics := make([]string, 0, 1+len(traitSpec.Generics))
	generics = append(generics, baseCpp)
	for _, g := range traitSpec.Generics {
		generics = append(generics, typeSpecCpp(g))
	}
	return fmt.Sprintf("typename %s<%s>::%s", traitSpec.TraitID.Name, strings.Join(generics, ", "), name)
}

// typeSpecCpp renders a surface TypeSpec directly, for contexts where no
// internal Type has been lowered yet (an impl header, an associated-type
// definition's right-hand side, a where-clause's trait generics).
func typeSpecCpp(spec ast.TypeSpec) string {
	switch s := spec.(type) {
	case ast.SignSpec:
		if len(s.Gens) == 0 {
			return cppBuiltinName(s.ID.Name)
		}
		parts := make([]string, len(s.Gens))
		for i, g := range s.Gens {
			parts[i] = typeSpecCpp(g)
		}
		return fmt.Sprintf("%s<%s>", s.ID.Name, strings.Join(parts, ", "))

	case ast.RefSpec:
		return "const " + typeSpecCpp(s.Elem) + "&"

	case ast.MutRefSpec:
		return typeSpecCpp(s.Elem) + "&"

	case ast.AssocSpec:
		return assocProjCppNamed(typeSpecCpp(s.Base), s.Trait, s.Name.Name)

	default:
		return spec.String()
	}
}
