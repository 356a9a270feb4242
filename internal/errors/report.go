// Package errors is the compiler's single structured error type: every
// failure in the core (parser, trait registry, unifier, driver) and the
// peripheral passes (mutability checker) is surfaced as a *Report carrying
// a human-readable message and a Kind tag, per spec.md §7.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"sort"

	"github.com/niuc-lang/niuc/internal/ast"
)

// Kind is one of the error kinds spec.md §7 enumerates.
type Kind string

const (
	KindParse                  Kind = "Parse"
	KindUnknownVariable        Kind = "UnknownVariable"
	KindUnknownType            Kind = "UnknownType"
	KindUnknownTrait           Kind = "UnknownTrait"
	KindMismatch               Kind = "Mismatch"
	KindOccurs                 Kind = "Occurs"
	KindArityMismatch          Kind = "ArityMismatch"
	KindNoImpl                 Kind = "NoImpl"
	KindAmbiguousImpl          Kind = "AmbiguousImpl"
	KindAmbiguousMethod        Kind = "AmbiguousMethod"
	KindUnresolvedProjection   Kind = "UnresolvedProjection"
	KindWhereClauseUnsatisfied Kind = "WhereClauseUnsatisfied"
	KindMutabilityViolation    Kind = "MutabilityViolation"
)

// Report is the canonical structured error: a Kind tag, a human-readable
// message, an optional source span, and free-form structured data (e.g. the
// two mismatched type strings, the trait id with no impl). Every component
// returns *Report on failure rather than a bare error; the unifier is the
// only component that composes substitutions, so it is also the only
// component that can fail mid-function and abort a whole compilation
// (spec.md §7).
type Report struct {
	Kind    Kind           `json:"kind"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Span    *ast.Span      `json:"span,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface so *Report can be returned/wrapped
// anywhere a Go error is expected.
func (r *Report) Error() string {
	if r == nil {
		return "unknown error"
	}
	return r.Code + ": " + r.Message
}

// ReportError wraps a *Report so it survives errors.Is/As unwrapping when a
// caller wraps it with fmt.Errorf("...: %w", err).
type ReportError struct{ Rep *Report }

func (e *ReportError) Error() string { return e.Rep.Error() }
func (e *ReportError) Unwrap() error { return nil }

// WrapReport wraps r as an error. Call sites that need %w-compatible
// wrapping should use this instead of returning r directly.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// AsReport recovers a *Report from an error chain, whether it is a bare
// *Report or one wrapped by WrapReport.
func AsReport(err error) (*Report, bool) {
	var rep *Report
	if stderrors.As(err, &rep) {
		return rep, true
	}
	var re *ReportError
	if stderrors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// ToJSON renders r deterministically: map keys in Data are sorted before
// encoding so repeated runs over the same input produce byte-identical
// output.
func (r *Report) ToJSON(compact bool) (string, error) {
	sorted := struct {
		Kind    Kind      `json:"kind"`
		Code    string    `json:"code"`
		Phase   string    `json:"phase"`
		Message string    `json:"message"`
		Span    *ast.Span `json:"span,omitempty"`
		Data    []kv      `json:"data,omitempty"`
	}{Kind: r.Kind, Code: r.Code, Phase: r.Phase, Message: r.Message, Span: r.Span}

	keys := make([]string, 0, len(r.Data))
	for k := range r.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sorted.Data = append(sorted.Data, kv{Key: k, Value: r.Data[k]})
	}

	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(sorted)
	} else {
		data, err = json.MarshalIndent(sorted, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type kv struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}
