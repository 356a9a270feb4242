// Package pipeline orchestrates one compilation end to end: lex, parse,
// type-check and resolve traits (internal/driver), check mutability
// (internal/mutability), and render C++ (internal/transpile) — spec.md
// §5's single sequential, single-file walk.
package pipeline

import (
	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/driver"
	"github.com/niuc-lang/niuc/internal/lexer"
	"github.com/niuc-lang/niuc/internal/mutability"
	"github.com/niuc-lang/niuc/internal/parser"
	"github.com/niuc-lang/niuc/internal/transpile"
)

// Result holds everything a caller might want from a successful compile:
// the parsed program, the driver that type-checked it (its annotation
// table and run id), and the rendered C++ text (empty for Check).
type Result struct {
	Program *ast.Program
	Driver  *driver.Driver
	CPP     string
}

// Check runs lexing, parsing, type-checking/trait-resolution, and the
// mutability audit over src, stopping short of C++ emission — the
// teacher's `check` command's no-codegen mode.
func Check(src, filename string) (*Result, error) {
	l := lexer.New(src, filename)
	p := parser.New(l, ast.NewTagGen())
	prog, err := p.Parse()
	if err != nil {
		return nil, err
	}

	d := driver.New()
	if err := d.Run(prog); err != nil {
		return nil, err
	}

	if err := mutability.New(d.Table).CheckProgram(prog); err != nil {
		return nil, err
	}

	return &Result{Program: prog, Driver: d}, nil
}

// Compile runs the full pipeline over src (from the file named filename,
// used only for diagnostic positions) and returns the generated C++ text.
func Compile(src, filename string) (*Result, error) {
	res, err := Check(src, filename)
	if err != nil {
		return nil, err
	}

	tp := transpile.New(res.Driver.Table, res.Driver.Resolver)
	cpp, err := tp.Transpile(res.Program)
	if err != nil {
		return nil, err
	}
	res.CPP = cpp
	return res, nil
}
