package mutability_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/pipeline"
)

func TestMutability_TemporaryAsMutRefArgumentRejected(t *testing.T) {
	src := `
struct Counter { value: i64 }

fn bump(c: &mut Counter) -> void { }

fn pass(c: &mut Counter) -> &mut Counter { c }

fn run(c: &mut Counter) -> void {
    bump(pass(c))
}
`
	_, err := pipeline.Check(src, "t.niu")
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindMutabilityViolation, rep.Kind)
}

func TestMutability_VariableAsMutRefArgumentAccepted(t *testing.T) {
	src := `
struct Counter { value: i64 }

fn bump(c: &mut Counter) -> void { }

fn run(c: &mut Counter) -> void {
    bump(c)
}
`
	_, err := pipeline.Check(src, "t.niu")
	require.NoError(t, err)
}

func TestMutability_FieldAccessChainAsMutRefArgumentAccepted(t *testing.T) {
	src := `
struct Inner { value: i64 }
struct Outer { inner: &mut Inner }

fn bump(v: &mut Inner) -> void { }

fn run(o: Outer) -> void {
    bump(o.inner)
}
`
	_, err := pipeline.Check(src, "t.niu")
	require.NoError(t, err)
}
