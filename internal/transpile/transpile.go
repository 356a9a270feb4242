// Package transpile renders an already type-checked program (§4.3's
// annotation table, plus the AST it annotates) as C++ text (spec.md §6's
// Output format): structs and generic structs become struct/template
// definitions, trait definitions become the standard empty-primary
// template original_source/src/traits.rs emits, impls become partial
// specializations, and every method call or trait-method reference
// dispatches through internal/driver's recorded Origin as
// Trait<Ty>::method(receiver, args...).
package transpile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/types"
)

// Transpiler renders a type-checked Program as C++ source text.
type Transpiler struct {
	Table    *types.AnnotationTable
	Resolver types.Resolver
}

// New returns a Transpiler reading resolved types from table and consulting
// resolver for any associated-type projection appearing directly in an
// impl method's declared signature.
func New(table *types.AnnotationTable, resolver types.Resolver) *Transpiler {
	return &Transpiler{Table: table, Resolver: resolver}
}

// Transpile renders prog in full: every struct, trait, impl, and top-level
// function, in source order, followed by main wrapped in an entry point.
func (tp *Transpiler) Transpile(prog *ast.Program) (string, error) {
	var b strings.Builder
	b.WriteString("#include <cstdint>\n#include <utility>\n\n")

	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			b.WriteString(tp.transpileStruct(d))
		case *ast.TraitDecl:
			b.WriteString(tp.transpileTraitDecl(d))
		}
	}
	for _, decl := range prog.Decls {
		if d, ok := decl.(*ast.ImplDecl); ok {
			code, err := tp.transpileImpl(d)
			if err != nil {
				return "", err
			}
			b.WriteString(code)
		}
	}
	for _, decl := range prog.Decls {
		if d, ok := decl.(*ast.FuncDecl); ok {
			code, err := tp.transpileFunc(d)
			if err != nil {
				return "", err
			}
			b.WriteString(code)
		}
	}
	if prog.Main != nil {
		code, err := tp.transpileMain(prog.Main)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
	}
	return b.String(), nil
}

func genericsHeader(ids []ast.TypeId) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "class " + id.Name
	}
	return "template<" + strings.Join(parts, ", ") + ">\n"
}

func (tp *Transpiler) transpileStruct(s *ast.StructDecl) string {
	var b strings.Builder
	b.WriteString(genericsHeader(s.Generics))
	b.WriteString(fmt.Sprintf("struct %s {\n", s.ID.Name))
	layout, ok := tp.Table.Struct(s.ID.Name)
	if ok {
		for _, name := range layout.Order {
			b.WriteString(fmt.Sprintf("    %s %s;\n", cppType(layout.Fields[name]), name))
		}
	}
	b.WriteString("};\n\n")
	return b.String()
}

// transpileTraitDecl emits the fixed empty-primary template every trait
// definition becomes, independent of its associated types or required
// methods (original_source/src/traits.rs's Transpile impl for
// TraitDefinition).
func (tp *Transpiler) transpileTraitDecl(t *ast.TraitDecl) string {
	return fmt.Sprintf("template<class Self, class = void> struct %s { };\n\n", t.TraitID.Name)
}

func (tp *Transpiler) transpileImpl(impl *ast.ImplDecl) (string, error) {
	var b strings.Builder
	b.WriteString(genericsHeader(impl.Generics))
	implTypeCpp := typeSpecCpp(impl.ImplType)
	b.WriteString(fmt.Sprintf("struct %s<%s> {\n", impl.Trait.TraitID.Name, implTypeCpp))

	names := make([]string, 0, len(impl.AssocDefs))
	byName := map[string]ast.TypeSpec{}
	for _, a := range impl.AssocDefs {
		names = append(names, a.Name.Name)
		byName[a.Name.Name] = a.Type
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(fmt.Sprintf("    using %s = %s;\n", name, typeSpecCpp(byName[name])))
	}

	for _, m := range impl.Methods {
		code, err := tp.transpileImplMethod(impl, m)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
	}
	b.WriteString("};\n\n")
	return b.String(), nil
}

// implMethodGenerics lowers an impl method's own signature, with the
// impl's and the method's own generics bound to rigid placeholders (the
// same treatment internal/driver gives a function body) and Self bound to
// the impl's own (lowered) type, so a declared parameter or return type
// that names Self or an associated-type projection over it renders
// correctly.
func (tp *Transpiler) implMethodGenerics(impl *ast.ImplDecl, m *ast.FuncDecl) (*types.GenericsTypeMap, *types.EquationStore, error) {
	allGenerics := append(append([]ast.TypeId{}, impl.Generics...), m.Info.Generics...)
	gensMap := map[ast.TypeId]types.Type{}
	for _, id := range allGenerics {
		gensMap[id] = &types.Nominal{ID: id}
	}
	gens := types.EmptyGenericsTypeMap().Next(gensMap)

	store := types.NewEquationStore()
	implTy, err := types.LowerTypeSpec(impl.ImplType, gens, store, tp.Table)
	if err != nil {
		return nil, nil, err
	}
	store.PushSelfType(implTy)
	return gens, store, nil
}

func (tp *Transpiler) transpileImplMethod(impl *ast.ImplDecl, m *ast.FuncDecl) (string, error) {
	gens, store, err := tp.implMethodGenerics(impl, m)
	if err != nil {
		return "", err
	}

	params := make([]string, 0, len(m.Info.Params)+1)
	if m.Info.Self == ast.SelfReceiver {
		selfTy, _ := store.SelfType()
		params = append(params, fmt.Sprintf("%s self", cppType(selfTy)))
	}
	for _, p := range m.Info.Params {
		lowered, err := types.LowerTypeSpec(p.Type, gens, store, tp.Table)
		if err != nil {
			return "", err
		}
		ground, err := types.GroundResolve(tp.Resolver, lowered)
		if err != nil {
			return "", err
		}
		params = append(params, fmt.Sprintf("%s %s", cppType(ground), p.Name.Name))
	}

	retCpp := "void"
	if m.Info.Ret != nil {
		lowered, err := types.LowerTypeSpec(m.Info.Ret, gens, store, tp.Table)
		if err != nil {
			return "", err
		}
		ground, err := types.GroundResolve(tp.Resolver, lowered)
		if err != nil {
			return "", err
		}
		retCpp = cppType(ground)
	}

	body, err := tp.renderFuncBody(m.Body, retCpp == "void", "        ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("    static %s %s(%s) {\n%s    }\n", retCpp, m.Info.ID.Name, strings.Join(params, ", "), body), nil
}

func (tp *Transpiler) transpileFunc(fn *ast.FuncDecl) (string, error) {
	sig, ok := tp.Table.Variable(fn.Info.ID.Name)
	if !ok {
		return "", errors.WrapReport(errors.UnknownVariable(fn.Info.ID.Name))
	}
	f, ok := sig.(*types.Func)
	if !ok {
		return "", errors.WrapReport(errors.Mismatch(sig, sig))
	}

	var b strings.Builder
	b.WriteString(genericsHeader(fn.Info.Generics))
	params := make([]string, len(fn.Info.Params))
	for i, p := range fn.Info.Params {
		params[i] = fmt.Sprintf("%s %s", cppType(f.Args[i]), p.Name.Name)
	}
	ret := cppType(f.Ret)
	body, err := tp.renderFuncBody(fn.Body, ret == "void", "    ")
	if err != nil {
		return "", err
	}
	b.WriteString(fmt.Sprintf("%s %s(%s) {\n%s}\n\n", ret, fn.Info.ID.Name, strings.Join(params, ", "), body))
	return b.String(), nil
}

func (tp *Transpiler) transpileMain(block *ast.Block) (string, error) {
	body, err := tp.renderFuncBody(block, true, "    ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("int main() {\n%s    return 0;\n}\n", body), nil
}
