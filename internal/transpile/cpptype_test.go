package transpile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/types"
)

func TestCppType_Builtins(t *testing.T) {
	require.Equal(t, "int64_t", cppType(&types.Nominal{ID: ast.TypeId{Name: "i64"}}))
	require.Equal(t, "bool", cppType(&types.Nominal{ID: ast.TypeId{Name: "bool"}}))
	require.Equal(t, "void", cppType(types.Void))
}

func TestCppType_GenericNominal(t *testing.T) {
	ty := &types.Nominal{
		ID:   ast.TypeId{Name: "Pair"},
		Args: []types.Type{types.I64, types.Bool},
	}
	require.Equal(t, "Pair<int64_t, bool>", cppType(ty))
}

func TestCppType_RefAndMutRef(t *testing.T) {
	inner := &types.Nominal{ID: ast.TypeId{Name: "Counter"}}
	require.Equal(t, "const Counter&", cppType(&types.Ref{Elem: inner}))
	require.Equal(t, "Counter&", cppType(&types.MutRef{Elem: inner}))
}

func TestCppType_Func(t *testing.T) {
	f := &types.Func{Args: []types.Type{types.I64, types.Bool}, Ret: types.Void}
	require.Equal(t, "std::function<void(int64_t, bool)>", cppType(f))
}

// Binary-operator traits render as decltype expressions rather than a
// typename projection.
func TestAssocProjCppNamed_BinaryOperatorTrait(t *testing.T) {
	spec := ast.TraitSpec{
		TraitID:  ast.Identifier{Name: "Add"},
		Generics: []ast.TypeSpec{ast.SignSpec{ID: ast.TypeId{Name: "i64"}}},
	}
	got := assocProjCppNamed("int64_t", spec, "Output")
	require.Equal(t, "decltype(std::declval<int64_t>() + std::declval<int64_t>())", got)
}

// Any other trait's associated type falls back to the typename form.
func TestAssocProjCppNamed_NonOperatorTrait(t *testing.T) {
	spec := ast.TraitSpec{TraitID: ast.Identifier{Name: "Describe"}}
	got := assocProjCppNamed("Pair", spec, "Output")
	require.Equal(t, "typename Describe<Pair>::Output", got)
}

func TestTypeSpecCpp_MutRef(t *testing.T) {
	spec := ast.MutRefSpec{Elem: ast.SignSpec{ID: ast.TypeId{Name: "Counter"}}}
	require.Equal(t, "Counter&", typeSpecCpp(spec))
}

func TestGenericsHeader(t *testing.T) {
	require.Equal(t, "", genericsHeader(nil))
	require.Equal(t, "template<class T, class U>\n", genericsHeader([]ast.TypeId{{Name: "T"}, {Name: "U"}}))
}
