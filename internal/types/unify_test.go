package types

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
)

// stubResolver answers every trait-dependent query with "no impl" since
// none of the tests in this file reach associated-type or method
// resolution; it exists only to satisfy the Unifier's Resolver dependency.
type stubResolver struct{}

func (stubResolver) ResolveAssocProj(Type, ast.TraitSpec, ast.AssocName) (Type, ResolveOutcome, error) {
	return nil, NoMatch, nil
}

func (stubResolver) ResolveMethod(Type, *ast.TraitSpec, ast.Identifier, []Type, *EquationStore) (*Func, error) {
	return nil, errors.WrapReport(errors.NoImpl("<stub>", Void))
}

func (stubResolver) ResolveMember(Type, ast.Identifier) (Type, error) {
	return nil, errors.WrapReport(errors.NoImpl("<stub>", Void))
}

// S1-flavored: a plain nominal-to-nominal equation unifies trivially with an
// empty substitution.
func TestUnify_NominalEquality(t *testing.T) {
	store := NewEquationStore()
	store.AddEquation(I64, I64)
	u := NewUnifier(stubResolver{})
	sub, err := u.Unify(store)
	require.NoError(t, err)
	require.Empty(t, sub)
}

// A variable equated with a nominal binds that variable.
func TestUnify_VarBindsToNominal(t *testing.T) {
	store := NewEquationStore()
	v := store.FreshVar()
	store.AddEquation(v, I64)
	u := NewUnifier(stubResolver{})
	sub, err := u.Unify(store)
	require.NoError(t, err)
	require.True(t, ApplySubst(sub, v).Equals(I64), "expected %s to resolve to i64, got %s (dump: %s)",
		v, ApplySubst(sub, v), spew.Sdump(sub))
}

// Mismatched nominal heads fail with Mismatch.
func TestUnify_Mismatch(t *testing.T) {
	store := NewEquationStore()
	store.AddEquation(I64, Bool)
	u := NewUnifier(stubResolver{})
	_, err := u.Unify(store)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindMismatch, rep.Kind)
}

// S5: alpha = Func([alpha], alpha) must fail the occurs-check.
func TestUnify_OccursCheck(t *testing.T) {
	store := NewEquationStore()
	v := store.FreshVar()
	store.AddEquation(v, &Func{Args: []Type{v}, Ret: v})
	u := NewUnifier(stubResolver{})
	_, err := u.Unify(store)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindOccurs, rep.Kind)
}

// Arity mismatches between two Func types are reported distinctly from a
// head mismatch.
func TestUnify_FuncArityMismatch(t *testing.T) {
	store := NewEquationStore()
	left := &Func{Args: []Type{I64}, Ret: Bool}
	right := &Func{Args: []Type{I64, I64}, Ret: Bool}
	store.AddEquation(left, right)
	u := NewUnifier(stubResolver{})
	_, err := u.Unify(store)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindArityMismatch, rep.Kind)
}

// Idempotent unification (property 1): applying the solution substitution to
// both sides of every originally-asserted equation yields syntactically
// equal types.
func TestUnify_IdempotentSolution(t *testing.T) {
	store := NewEquationStore()
	a := store.FreshVar()
	b := store.FreshVar()
	original := []Equation{
		{Left: a, Right: &Nominal{ID: ast.TypeId{Name: "Pair"}, Args: []Type{b}}},
		{Left: b, Right: I64},
	}
	for _, eq := range original {
		store.AddEquation(eq.Left, eq.Right)
	}
	u := NewUnifier(stubResolver{})
	sub, err := u.Unify(store)
	require.NoError(t, err)

	for _, eq := range original {
		left := ApplySubst(sub, eq.Left)
		right := ApplySubst(sub, eq.Right)
		require.Truef(t, left.Equals(right), "substitution not idempotent for %s = %s: got %s vs %s (sub dump: %s)",
			eq.Left, eq.Right, left, right, spew.Sdump(sub))
	}
}

// Composition keeps earlier bindings fully applied: binding a, then b where
// b's substitute mentions a, must still resolve a transitively when walked.
func TestCompose_KeepsPriorBindingsApplied(t *testing.T) {
	subA := Substitution{0: &Var{ID: 1}}
	subB := Substitution{1: I64}
	composed := compose(subA, subB)
	got := ApplySubst(composed, &Var{ID: 0})
	if diff := cmp.Diff(I64, got); diff != "" {
		t.Fatalf("composed substitution did not resolve var 0 to i64 (-want +got):\n%s", diff)
	}
}

func TestEquationStore_ScopingIsLIFO(t *testing.T) {
	store := NewEquationStore()
	store.IntoScope()
	store.RegisterVariable("x", I64)
	store.IntoScope()
	store.RegisterVariable("y", Bool)

	ty, ok := store.LookupVariable("y")
	require.True(t, ok)
	require.True(t, ty.Equals(Bool))

	store.OutScope()
	_, ok = store.LookupVariable("y")
	require.False(t, ok, "y should not be visible after its scope is popped")

	ty, ok = store.LookupVariable("x")
	require.True(t, ok)
	require.True(t, ty.Equals(I64))
}

// The tagged-variable allocator is injective: distinct (tag, slot) pairs
// never collide, and repeated lookups of the same pair return the same var.
func TestEquationStore_TaggedVarInjective(t *testing.T) {
	store := NewEquationStore()
	v1 := store.TaggedVar(1, 0)
	v2 := store.TaggedVar(1, 1)
	v1Again := store.TaggedVar(1, 0)
	require.NotEqual(t, v1.ID, v2.ID)
	require.Equal(t, v1.ID, v1Again.ID)
}
