package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/niuc-lang/niuc/internal/errors"
)

func TestCompile_PlainFunction(t *testing.T) {
	res, err := Compile(`
fn add(x: i64, y: i64) -> i64 { x }
`, "t.niu")
	require.NoError(t, err)
	require.Contains(t, res.CPP, "int64_t add(int64_t x, int64_t y)")
}

func TestCompile_StructAndTraitImpl(t *testing.T) {
	src := `
struct Pair { left: i64, right: i64 }

trait Describe {
    type Output;
    fn describe(self) -> Self#Describe::Output;
}

impl Describe for Pair {
    type Output = i64;
    fn describe(self) -> i64 { self.left }
}

{
    let p = Pair { left: 1i64, right: 2i64 };
    p.describe()
}
`
	res, err := Compile(src, "t.niu")
	require.NoError(t, err)
	require.Contains(t, res.CPP, "struct Pair {")
	require.Contains(t, res.CPP, "template<class Self, class = void> struct Describe { };")
	require.Contains(t, res.CPP, "struct Describe<Pair> {")
	require.Contains(t, res.CPP, "Describe<Pair>::describe(p)")
	require.True(t, strings.Contains(res.CPP, "int main()"))
}

func TestCompile_WhereClauseAssociatedType(t *testing.T) {
	src := `
trait Tr {
    type O;
    fn m(self) -> Self#Tr::O;
}

fn h<T>(x: T) -> T#Tr::O where T: Tr {
    x.m()
}
`
	_, err := Compile(src, "t.niu")
	require.NoError(t, err)
}

func TestCompile_ParseErrorPropagates(t *testing.T) {
	_, err := Compile(`fn (`, "t.niu")
	require.Error(t, err)
}

// S2: a generic identity function succeeds, with its parameter and return
// type sharing the same unresolved generic.
func TestCompile_GenericIdentityFunction(t *testing.T) {
	res, err := Compile(`
fn id<T>(x: T) -> T { x }
`, "t.niu")
	require.NoError(t, err)
	require.Contains(t, res.CPP, "template<class T>")
	require.Contains(t, res.CPP, "T id(T x)")
}

// S4: the same associated-type-returning function as
// TestCompile_StructAndTraitImpl's shape, but with no impl in scope, must
// fail rather than silently leave the projection unresolved.
func TestCompile_NoImplFails(t *testing.T) {
	src := `
trait Tr {
    type O;
    fn m(self) -> Self#Tr::O;
}

fn g(x: i64) -> i64#Tr::O {
    x.m()
}
`
	_, err := Compile(src, "t.niu")
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Contains(t, []errors.Kind{errors.KindNoImpl, errors.KindUnresolvedProjection}, rep.Kind)
}
