// Package mutability implements the peripheral second pass spec.md §1 and
// §7 call for: a reference/ownership audit over the already-typed AST. It
// never infers or resolves types itself — it only reads what
// internal/driver already annotated.
//
// The surface grammar has no assignment statement and no explicit
// borrow-taking expression (`&e` / `&mut e`): a call argument or struct
// field initializer's type is whatever the unifier already forced it to
// be. The one ownership rule that isn't already implied by ordinary type
// equality is that a `&mut T` position must be filled by a *place* —
// something with an address a callee could plausibly write through (a
// variable or a chain of field accesses on one) — never a temporary like a
// struct literal, a call result, or a literal. Passing a temporary where
// `&mut T` is expected type-checks (a `&mut T` unifies fine against
// another `&mut T`) but is meaningless: there is nothing on the caller's
// side for the mutation to outlive into.
package mutability

import (
	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/types"
)

// Checker audits a typed program for reference/ownership violations.
type Checker struct {
	Table *types.AnnotationTable
}

// New returns a Checker reading resolved types from table.
func New(table *types.AnnotationTable) *Checker {
	return &Checker{Table: table}
}

// CheckProgram walks every function body (top-level and impl methods) plus
// the optional main block, the same traversal order internal/driver.Run
// uses for inference.
func (c *Checker) CheckProgram(prog *ast.Program) error {
	for _, decl := range prog.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			if err := c.checkBlock(fn.Body); err != nil {
				return err
			}
		}
	}
	for _, decl := range prog.Decls {
		impl, ok := decl.(*ast.ImplDecl)
		if !ok {
			continue
		}
		for _, m := range impl.Methods {
			if err := c.checkBlock(m.Body); err != nil {
				return err
			}
		}
	}
	if prog.Main != nil {
		if err := c.checkBlock(prog.Main); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkBlock(b *ast.Block) error {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case ast.ExprStmt:
			if err := c.checkExpr(s.Expr); err != nil {
				return err
			}
		case ast.LetStmt:
			if err := c.checkExpr(s.Expr); err != nil {
				return err
			}
		}
	}
	if b.Trailing != nil {
		return c.checkExpr(b.Trailing)
	}
	return nil
}

// checkExpr recurses into every subexpression, and at each Call,
// MethodCall, or StructLit enforces the &mut-argument place rule on its
// immediate operands.
func (c *Checker) checkExpr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.Call:
		if err := c.checkExpr(e.Func); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := c.checkArg(a); err != nil {
				return err
			}
		}
		return nil

	case *ast.MethodCall:
		if err := c.checkExpr(e.Receiver); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := c.checkArg(a); err != nil {
				return err
			}
		}
		return nil

	case *ast.FieldAccess:
		return c.checkExpr(e.Receiver)

	case *ast.StructLit:
		for _, f := range e.Fields {
			if err := c.checkArg(f.Value); err != nil {
				return err
			}
		}
		return nil

	case *ast.Paren:
		return c.checkExpr(e.Inner)

	case *ast.BlockExpr:
		return c.checkBlock(e.Block)

	default:
		// IntLit, BoolLit, Var, TraitMethodRef: no subexpressions to
		// descend into, and none can ever resolve to a MutRef place
		// violation on their own.
		return nil
	}
}

// checkArg applies the place rule to one argument/field-initializer
// expression, then continues checking its own subexpressions.
func (c *Checker) checkArg(e ast.Expr) error {
	tag, pos := tagAndPos(e)
	if resolved, ok := c.Table.Lookup(tag, 0); ok {
		if _, isMutRef := resolved.(*types.MutRef); isMutRef && !isPlace(e) {
			return errors.WrapReport(errors.MutabilityViolation(
				"a &mut argument must be a variable or field access, not a temporary value",
				&ast.Span{Start: pos, End: pos}))
		}
	}
	return c.checkExpr(e)
}

// isPlace reports whether e denotes an addressable location: a bare
// variable, or a chain of field accesses rooted in one (parentheses are
// transparent).
func isPlace(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Var:
		return true
	case *ast.FieldAccess:
		return isPlace(e.Receiver)
	case *ast.Paren:
		return isPlace(e.Inner)
	default:
		return false
	}
}

// tagAndPos extracts the tag and source position every Expr variant
// carries. Expr's own exprTag accessor is unexported (package ast only),
// so this exhaustive switch is the cross-package equivalent.
func tagAndPos(e ast.Expr) (uint64, ast.Pos) {
	switch e := e.(type) {
	case *ast.IntLit:
		return e.Tag, e.Pos
	case *ast.BoolLit:
		return e.Tag, e.Pos
	case *ast.Var:
		return e.Tag, e.Pos
	case *ast.Call:
		return e.Tag, e.Pos
	case *ast.MethodCall:
		return e.Tag, e.Pos
	case *ast.FieldAccess:
		return e.Tag, e.Pos
	case *ast.StructLit:
		return e.Tag, e.Pos
	case *ast.TraitMethodRef:
		return e.Tag, e.Pos
	case *ast.Paren:
		return e.Tag, e.Pos
	case *ast.BlockExpr:
		return e.Tag, e.Pos
	default:
		return 0, ast.Pos{}
	}
}
