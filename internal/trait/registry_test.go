package trait

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/types"
)

// testTable returns an AnnotationTable with every struct name used by this
// file's fixtures pre-registered, so checkMethodSignaturesEqual's lowering
// of an impl's ImplType never fails with an unrelated "unknown type" error.
func testTable() *types.AnnotationTable {
	table := types.NewAnnotationTable()
	for _, name := range []string{"Pair", "A", "B"} {
		table.RegisterStruct(&types.StructLayout{Name: name})
	}
	return table
}

func traitDecl(name string, methodNames ...string) *ast.TraitDecl {
	d := &ast.TraitDecl{TraitID: ast.Identifier{Name: name}}
	for _, m := range methodNames {
		d.Methods = append(d.Methods, ast.FuncInfo{
			ID:   ast.Identifier{Name: m},
			Self: ast.SelfReceiver,
			Ret:  ast.SignSpec{ID: ast.TypeId{Name: "i64"}},
		})
	}
	return d
}

func implFor(traitID, implTypeName string, methodNames ...string) *Impl {
	methods := map[string]*ast.FuncDecl{}
	for _, m := range methodNames {
		methods[m] = &ast.FuncDecl{
			Info: ast.FuncInfo{
				ID:   ast.Identifier{Name: m},
				Self: ast.SelfReceiver,
				Ret:  ast.SignSpec{ID: ast.TypeId{Name: "i64"}},
			},
			Body: &ast.Block{},
		}
	}
	return &Impl{
		TraitID:  traitID,
		ImplType: ast.SignSpec{ID: ast.TypeId{Name: implTypeName}},
		Methods:  methods,
	}
}

func TestRegistry_DuplicateTraitRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTrait(traitDecl("Describe", "describe")))
	err := r.RegisterTrait(traitDecl("Describe", "describe"))
	require.Error(t, err)
}

func TestRegistry_RegisterImpl_MissingRequiredMethod(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTrait(traitDecl("Describe", "describe")))
	impl := implFor("Describe", "Pair") // no methods at all
	err := r.RegisterImpl(impl, testTable())
	require.Error(t, err)
}

func TestRegistry_RegisterImpl_ExtraMethodRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTrait(traitDecl("Describe", "describe")))
	impl := implFor("Describe", "Pair", "describe", "extra")
	err := r.RegisterImpl(impl, testTable())
	require.Error(t, err)
}

func TestRegistry_RegisterImpl_ArityMismatchRejected(t *testing.T) {
	r := NewRegistry()
	trait := traitDecl("Describe", "describe")
	require.NoError(t, r.RegisterTrait(trait))

	impl := implFor("Describe", "Pair", "describe")
	impl.Methods["describe"].Info.Params = append(impl.Methods["describe"].Info.Params,
		ast.Param{Name: ast.Identifier{Name: "extra"}, Type: ast.SignSpec{ID: ast.TypeId{Name: "i64"}}})
	err := r.RegisterImpl(impl, testTable())
	require.Error(t, err)
}

// Property 6 (registry layer): two impls of the same trait on the same
// ground type head must be rejected as overlapping, not silently accepted
// as "last registration wins."
func TestRegistry_OverlappingGroundImplsRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTrait(traitDecl("Describe", "describe")))
	require.NoError(t, r.RegisterImpl(implFor("Describe", "Pair", "describe"), testTable()))
	err := r.RegisterImpl(implFor("Describe", "Pair", "describe"), testTable())
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindAmbiguousImpl, rep.Kind)
}

func TestRegistry_ScopingHidesGenericsAfterOutScope(t *testing.T) {
	r := NewRegistry()
	r.IntoScope()
	r.RegisterGenericParam(ast.TypeId{Name: "T"})
	require.True(t, r.IsGenericParam(ast.TypeId{Name: "T"}))
	r.OutScope()
	require.False(t, r.IsGenericParam(ast.TypeId{Name: "T"}))
}

func TestRegistry_ImplsForOrderedByRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTrait(traitDecl("Describe", "describe")))
	require.NoError(t, r.RegisterImpl(implFor("Describe", "A", "describe"), testTable()))
	require.NoError(t, r.RegisterImpl(implFor("Describe", "B", "describe"), testTable()))
	impls := r.ImplsFor("Describe")
	require.Len(t, impls, 2)
	require.Equal(t, "A", impls[0].ImplType.String())
	require.Equal(t, "B", impls[1].ImplType.String())
}

func TestRegistry_RegisterImpl_UnknownTraitRejected(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterImpl(implFor("NoSuchTrait", "Pair"), testTable())
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindUnknownTrait, rep.Kind)
}

// An impl whose method has the right arity but the wrong return type must
// be rejected, not silently registered: trait Describe requires a method
// returning i64, and this impl claims to return bool.
func TestRegistry_RegisterImpl_ReturnTypeMismatchRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTrait(traitDecl("Describe", "describe")))

	impl := implFor("Describe", "Pair", "describe")
	impl.Methods["describe"].Info.Ret = ast.SignSpec{ID: ast.TypeId{Name: "bool"}}

	err := r.RegisterImpl(impl, testTable())
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindMismatch, rep.Kind)
	require.Equal(t, errors.TRT004, rep.Code)
}

// An impl whose method has the right arity but a parameter of the wrong
// type must also be rejected.
func TestRegistry_RegisterImpl_ParamTypeMismatchRejected(t *testing.T) {
	r := NewRegistry()
	trait := traitDecl("Tr", "m")
	trait.Methods[0].Params = []ast.Param{{Name: ast.Identifier{Name: "x"}, Type: ast.SignSpec{ID: ast.TypeId{Name: "i64"}}}}
	require.NoError(t, r.RegisterTrait(trait))

	impl := implFor("Tr", "Pair", "m")
	impl.Methods["m"].Info.Params = []ast.Param{{Name: ast.Identifier{Name: "x"}, Type: ast.SignSpec{ID: ast.TypeId{Name: "bool"}}}}

	err := r.RegisterImpl(impl, testTable())
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindMismatch, rep.Kind)
}
