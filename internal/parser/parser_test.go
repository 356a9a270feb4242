package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/lexer"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src, "t.niu"), ast.NewTagGen())
	prog, err := p.Parse()
	require.NoError(t, err)
	return prog
}

func TestParse_FuncDecl(t *testing.T) {
	prog := parse(t, `fn add(x: i64, y: i64) -> i64 { x }`)
	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "add", fn.Info.ID.Name)
	require.Len(t, fn.Info.Params, 2)
	require.Equal(t, "i64", fn.Info.Ret.String())
}

func TestParse_StructDecl(t *testing.T) {
	prog := parse(t, `struct Pair<T> { left: T, right: T }`)
	s, ok := prog.Decls[0].(*ast.StructDecl)
	require.True(t, ok)
	require.Equal(t, "Pair", s.ID.Name)
	require.Len(t, s.Generics, 1)
	require.Len(t, s.Fields, 2)
}

func TestParse_TraitAndImpl(t *testing.T) {
	prog := parse(t, `
trait Tr {
    type Output;
    fn m(self) -> Self#Tr::Output;
}

impl Tr for i64 {
    type Output = i64;
    fn m(self) -> i64 { self }
}
`)
	require.Len(t, prog.Decls, 2)
	tr, ok := prog.Decls[0].(*ast.TraitDecl)
	require.True(t, ok)
	require.Equal(t, "Tr", tr.TraitID.Name)
	require.Len(t, tr.AssocIDs, 1)
	require.Len(t, tr.Methods, 1)

	impl, ok := prog.Decls[1].(*ast.ImplDecl)
	require.True(t, ok)
	require.Equal(t, "Tr", impl.Trait.TraitID.Name)
	require.Len(t, impl.AssocDefs, 1)
	require.Len(t, impl.Methods, 1)
}

func TestParse_WhereClauseAndAssocProjection(t *testing.T) {
	prog := parse(t, `fn h<T>(x: T) -> T#Tr::O where T: Tr { x }`)
	fn := prog.Decls[0].(*ast.FuncDecl)
	require.Len(t, fn.Info.Where, 1)
	require.Equal(t, "T", fn.Info.Where[0].Param.Name)
	assoc, ok := fn.Info.Ret.(ast.AssocSpec)
	require.True(t, ok)
	require.Equal(t, "O", assoc.Name.Name)
}

func TestParse_RefAndMutRef(t *testing.T) {
	prog := parse(t, `fn f(x: &i64, y: &mut i64) -> i64 { x }`)
	fn := prog.Decls[0].(*ast.FuncDecl)
	_, ok := fn.Info.Params[0].Type.(ast.RefSpec)
	require.True(t, ok)
	_, ok = fn.Info.Params[1].Type.(ast.MutRefSpec)
	require.True(t, ok)
}

func TestParse_StructLitCallAndMethodChain(t *testing.T) {
	prog := parse(t, `
struct P { x: i64 }
fn main_like() -> i64 {
    let p = P { x: 1i64 };
    p.x
}
`)
	fn := prog.Decls[1].(*ast.FuncDecl)
	require.Len(t, fn.Body.Stmts, 1)
	letStmt := fn.Body.Stmts[0].(ast.LetStmt)
	_, ok := letStmt.Expr.(*ast.StructLit)
	require.True(t, ok)
	_, ok = fn.Body.Trailing.(*ast.FieldAccess)
	require.True(t, ok)
}

func TestParse_TraitMethodRefAndCall(t *testing.T) {
	prog := parse(t, `fn g() -> i64 { i64#Tr::m(1i64) }`)
	fn := prog.Decls[0].(*ast.FuncDecl)
	call, ok := fn.Body.Trailing.(*ast.Call)
	require.True(t, ok)
	_, ok = call.Func.(*ast.TraitMethodRef)
	require.True(t, ok)
}

func TestParse_TopLevelBlock(t *testing.T) {
	prog := parse(t, `
fn one() -> i64 { 1i64 }
{
    let x = one();
    x
}
`)
	require.Len(t, prog.Decls, 1)
	require.NotNil(t, prog.Main)
	require.NotNil(t, prog.Main.Trailing)
}

func TestParse_ErrorOnUnexpectedToken(t *testing.T) {
	p := New(lexer.New(`fn (`, "t.niu"), ast.NewTagGen())
	_, err := p.Parse()
	require.Error(t, err)
}
