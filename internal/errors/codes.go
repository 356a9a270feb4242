package errors

import (
	"fmt"

	"github.com/niuc-lang/niuc/internal/ast"
)

// Error code constants, one family per pipeline phase, in the teacher's
// XXX### taxonomy.
const (
	// Parser errors (PAR###)
	PAR001 = "PAR001" // unexpected token
	PAR002 = "PAR002" // missing closing delimiter

	// Trait registry errors (TRT###)
	TRT001 = "TRT001" // unknown trait
	TRT002 = "TRT002" // duplicate trait definition
	TRT003 = "TRT003" // overlapping impl (same trait, same type head)
	TRT004 = "TRT004" // impl method signature disagrees with trait's required signature

	// Type-system errors (TYP###)
	TYP001 = "TYP001" // unknown type
	TYP002 = "TYP002" // unknown variable
	TYP003 = "TYP003" // type mismatch
	TYP004 = "TYP004" // occurs-check failure
	TYP005 = "TYP005" // arity mismatch
	TYP006 = "TYP006" // no matching trait impl
	TYP007 = "TYP007" // ambiguous trait impl
	TYP008 = "TYP008" // ambiguous method (multiple traits provide it)
	TYP009 = "TYP009" // associated-type projection never resolved
	TYP010 = "TYP010" // where-clause bound not satisfied

	// Mutability-checker errors (MUT###)
	MUT001 = "MUT001" // temporary passed where a &mut reference (a place) is required
)

func newReport(kind Kind, code, phase, msg string, span *ast.Span, data map[string]any) *Report {
	return &Report{Kind: kind, Code: code, Phase: phase, Message: msg, Span: span, Data: data}
}

// Mismatch builds a TYP003 report: two types that cannot unify.
func Mismatch(a, b fmt.Stringer) *Report {
	return newReport(KindMismatch, TYP003, "typecheck",
		fmt.Sprintf("cannot unify %s with %s", a.String(), b.String()), nil,
		map[string]any{"left": a.String(), "right": b.String()})
}

// Occurs builds a TYP004 report: a substitution would create an infinite type.
func Occurs(varID uint64, t fmt.Stringer) *Report {
	return newReport(KindOccurs, TYP004, "typecheck",
		fmt.Sprintf("occurs check failed: 't%d' occurs in %s", varID, t.String()), nil,
		map[string]any{"var": varID, "type": t.String()})
}

// ArityMismatch builds a TYP005 report.
func ArityMismatch(kind string, want, got int) *Report {
	return newReport(KindArityMismatch, TYP005, "typecheck",
		fmt.Sprintf("%s arity mismatch: expected %d, got %d", kind, want, got), nil,
		map[string]any{"kind": kind, "want": want, "got": got})
}

// NoImpl builds a TYP006 report: no impl of trait satisfies ty.
func NoImpl(trait string, ty fmt.Stringer) *Report {
	return newReport(KindNoImpl, TYP006, "typecheck",
		fmt.Sprintf("no impl of trait %q for type %s", trait, ty.String()), nil,
		map[string]any{"trait": trait, "type": ty.String()})
}

// AmbiguousImpl builds a TYP007 report: more than one impl of trait matches ty.
func AmbiguousImpl(trait string, ty fmt.Stringer) *Report {
	return newReport(KindAmbiguousImpl, TYP007, "typecheck",
		fmt.Sprintf("ambiguous impl: more than one impl of trait %q matches %s", trait, ty.String()), nil,
		map[string]any{"trait": trait, "type": ty.String()})
}

// AmbiguousMethod builds a TYP008 report: more than one trait provides method.
func AmbiguousMethod(method string, ty fmt.Stringer, traits []string) *Report {
	return newReport(KindAmbiguousMethod, TYP008, "typecheck",
		fmt.Sprintf("ambiguous method %q on %s: provided by traits %v; disambiguate with #Trait::%s", method, ty.String(), traits, method), nil,
		map[string]any{"method": method, "type": ty.String(), "traits": traits})
}

// UnresolvedProjection builds a TYP009 report.
func UnresolvedProjection(t fmt.Stringer) *Report {
	return newReport(KindUnresolvedProjection, TYP009, "typecheck",
		fmt.Sprintf("associated-type projection never resolved: %s", t.String()), nil,
		map[string]any{"type": t.String()})
}

// WhereClauseUnsatisfied builds a TYP010 report.
func WhereClauseUnsatisfied(param, trait string) *Report {
	return newReport(KindWhereClauseUnsatisfied, TYP010, "typecheck",
		fmt.Sprintf("where-clause %s: %s not satisfied in this scope", param, trait), nil,
		map[string]any{"param": param, "trait": trait})
}

// UnknownVariable builds a TYP002 report.
func UnknownVariable(name string) *Report {
	return newReport(KindUnknownVariable, TYP002, "typecheck",
		fmt.Sprintf("variable %q is not found", name), nil, map[string]any{"name": name})
}

// UnknownType builds a TYP001 report.
func UnknownType(name string) *Report {
	return newReport(KindUnknownType, TYP001, "typecheck",
		fmt.Sprintf("type %q is not declared", name), nil, map[string]any{"name": name})
}

// UnknownTrait builds a TRT001 report.
func UnknownTrait(name string) *Report {
	return newReport(KindUnknownTrait, TRT001, "trait",
		fmt.Sprintf("trait %q is not declared", name), nil, map[string]any{"name": name})
}

// MutabilityViolation builds a MUT001 report.
func MutabilityViolation(msg string, span *ast.Span) *Report {
	return newReport(KindMutabilityViolation, MUT001, "mutability", msg, span, nil)
}

// Parse builds a PAR001/PAR002 report for the lexer/parser.
func Parse(code, msg string, span *ast.Span) *Report {
	return newReport(KindParse, code, "parser", msg, span, nil)
}
