package transpile

import (
	"fmt"
	"strings"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
)

// renderFuncBody renders a function/method/main block's statements,
// followed by either `return TRAILING;` (voidReturn false) or TRAILING as
// a bare expression statement (voidReturn true); a block with no trailing
// expression emits only its statements.
func (tp *Transpiler) renderFuncBody(b *ast.Block, voidReturn bool, indent string) (string, error) {
	var out strings.Builder
	for _, stmt := range b.Stmts {
		line, err := tp.stmt(stmt)
		if err != nil {
			return "", err
		}
		out.WriteString(indent + line + "\n")
	}
	if b.Trailing != nil {
		val, err := tp.expr(b.Trailing)
		if err != nil {
			return "", err
		}
		if voidReturn {
			out.WriteString(indent + val + ";\n")
		} else {
			out.WriteString(indent + "return " + val + ";\n")
		}
	}
	return out.String(), nil
}

func (tp *Transpiler) stmt(s ast.Stmt) (string, error) {
	switch s := s.(type) {
	case ast.ExprStmt:
		val, err := tp.expr(s.Expr)
		if err != nil {
			return "", err
		}
		return val + ";", nil

	case ast.LetStmt:
		val, err := tp.expr(s.Expr)
		if err != nil {
			return "", err
		}
		declTy := "auto"
		if resolved, ok := tp.Table.Lookup(s.Name.Tag, 0); ok {
			declTy = cppType(resolved)
		}
		return fmt.Sprintf("%s %s = %s;", declTy, s.Name.Name, val), nil

	default:
		return "", errors.WrapReport(errors.Parse(errors.PAR001, "unknown statement kind", nil))
	}
}

// expr renders e as a single C++ expression. A block used in expression
// position (not a function's own body) has no direct C++ equivalent, so it
// is wrapped as an immediately invoked lambda capturing its enclosing scope
// by reference.
func (tp *Transpiler) expr(e ast.Expr) (string, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("INT64_C(%d)", e.Value), nil

	case *ast.BoolLit:
		if e.Value {
			return "true", nil
		}
		return "false", nil

	case *ast.Var:
		return e.Name.Name, nil

	case *ast.Call:
		fn, err := tp.expr(e.Func)
		if err != nil {
			return "", err
		}
		args, err := tp.exprList(e.Args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s)", fn, strings.Join(args, ", ")), nil

	case *ast.MethodCall:
		recv, err := tp.expr(e.Receiver)
		if err != nil {
			return "", err
		}
		args, err := tp.exprList(e.Args)
		if err != nil {
			return "", err
		}
		origin, ok := tp.Table.OriginFor(e.Tag)
		if !ok {
			return "", errors.WrapReport(errors.NoImpl(e.Method.Name, missingOrigin("dispatch origin missing for "+e.Method.Name)))
		}
		callArgs := append([]string{recv}, args...)
		return fmt.Sprintf("%s<%s>::%s(%s)", origin.Trait.TraitID.Name, cppType(origin.ImplType), e.Method.Name, strings.Join(callArgs, ", ")), nil

	case *ast.FieldAccess:
		recv, err := tp.expr(e.Receiver)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.%s", recv, e.Field.Name), nil

	case *ast.StructLit:
		fields := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			val, err := tp.expr(f.Value)
			if err != nil {
				return "", err
			}
			fields[i] = fmt.Sprintf(".%s = %s", f.Name.Name, val)
		}
		return fmt.Sprintf("%s{%s}", e.StructID.Name, strings.Join(fields, ", ")), nil

	case *ast.TraitMethodRef:
		origin, ok := tp.Table.OriginFor(e.Tag)
		if !ok {
			return "", errors.WrapReport(errors.NoImpl(e.Method.Name, missingOrigin("dispatch origin missing for "+e.Method.Name)))
		}
		return fmt.Sprintf("%s<%s>::%s", origin.Trait.TraitID.Name, cppType(origin.ImplType), e.Method.Name), nil

	case *ast.Paren:
		inner, err := tp.expr(e.Inner)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil

	case *ast.BlockExpr:
		return tp.blockAsLambda(e.Block)

	default:
		return "", errors.WrapReport(errors.Parse(errors.PAR001, "unknown expression kind", nil))
	}
}

// missingOrigin reports that internal/driver never recorded a dispatch
// origin for a method call or trait-method reference — an internal
// invariant violation (every surviving MethodCall/TraitMethodRef resolves
// through exactly one impl during type-checking), not a user-facing defect.
type missingOrigin string

func (m missingOrigin) String() string { return string(m) }

func (tp *Transpiler) exprList(es []ast.Expr) ([]string, error) {
	out := make([]string, len(es))
	for i, e := range es {
		val, err := tp.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// blockAsLambda renders a block appearing in expression position as a
// zero-argument lambda, capturing the enclosing scope by reference and
// invoking itself immediately.
func (tp *Transpiler) blockAsLambda(b *ast.Block) (string, error) {
	// voidReturn=false: when a trailing expression is present it becomes
	// this lambda's return value (auto-deduced), which is what the
	// enclosing expression actually uses; a trailing-less block has
	// nothing to return regardless of the flag.
	body, err := tp.renderFuncBody(b, false, "        ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[&]() {\n%s    }()", body), nil
}
