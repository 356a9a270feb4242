package errors_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/niuc-lang/niuc/internal/errors"
)

type stringerStub string

func (s stringerStub) String() string { return string(s) }

func TestAsReport_RecoversBareReport(t *testing.T) {
	var err error = errors.Mismatch(stringerStub("i64"), stringerStub("bool"))
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindMismatch, rep.Kind)
}

func TestAsReport_RecoversWrappedReport(t *testing.T) {
	err := errors.WrapReport(errors.UnknownTrait("Describe"))
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.KindUnknownTrait, rep.Kind)
	require.Equal(t, errors.TRT001, rep.Code)
}

func TestAsReport_SurvivesFmtErrorfWrapping(t *testing.T) {
	inner := errors.WrapReport(errors.UnknownVariable("x"))
	wrapped := fmt.Errorf("while checking function body: %w", inner)
	rep, ok := errors.AsReport(wrapped)
	require.True(t, ok)
	require.Equal(t, errors.KindUnknownVariable, rep.Kind)
}

func TestAsReport_FalseForPlainError(t *testing.T) {
	_, ok := errors.AsReport(fmt.Errorf("boom"))
	require.False(t, ok)
}

func TestWrapReport_NilReportYieldsNilError(t *testing.T) {
	require.NoError(t, errors.WrapReport(nil))
}

// Data map keys are sorted before encoding: serializing the same report
// twice must yield byte-identical output.
func TestReport_ToJSON_SortsDataKeysDeterministically(t *testing.T) {
	rep := errors.AmbiguousMethod("describe", stringerStub("Pair"), []string{"Show", "Describe"})
	first, err := rep.ToJSON(true)
	require.NoError(t, err)
	second, err := rep.ToJSON(true)
	require.NoError(t, err)
	require.Equal(t, first, second)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &decoded))
	require.Equal(t, "AmbiguousMethod", decoded["kind"])
	require.Equal(t, errors.TYP008, decoded["code"])
}

func TestEncodeJSON_WrapsReportsInSchemaEnvelope(t *testing.T) {
	reports := []*errors.Report{
		errors.UnknownType("Pair"),
		errors.ArityMismatch("call", 2, 1),
	}
	out, err := errors.EncodeJSON(reports, true)
	require.NoError(t, err)

	var decoded struct {
		Schema  string            `json:"schema"`
		Reports []*errors.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, "niuc.error/v1", decoded.Schema)
	require.Len(t, decoded.Reports, 2)
	require.Equal(t, errors.KindUnknownType, decoded.Reports[0].Kind)
	require.Equal(t, errors.KindArityMismatch, decoded.Reports[1].Kind)
}

func TestReport_Error_FormatsCodeAndMessage(t *testing.T) {
	rep := errors.UnknownVariable("x")
	require.Equal(t, `TYP002: variable "x" is not found`, rep.Error())
}
