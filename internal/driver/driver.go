// Package driver owns the top-level compilation walk (§4.3): registering
// every struct, trait, and impl ahead of inference, lowering each
// function's signature so calls can resolve regardless of declaration
// order, then type-checking each function body in its own scope and
// folding the result into one program-wide annotation table.
package driver

import (
	"github.com/google/uuid"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/trait"
	"github.com/niuc-lang/niuc/internal/types"
)

// Driver is the compilation-wide state threaded through every phase:
// trait registry, the unifier's resolver backed by it, the shared
// annotation table, and a program's function generic parameter lists
// (needed to instantiate a generic function fresh at each call site;
// the annotation table itself only stores each function's rigid-generic
// signature, not its parameter names).
type Driver struct {
	Reg          *trait.Registry
	Resolver     *trait.Resolver
	Table        *types.AnnotationTable
	funcGenerics map[string][]string

	// RunID is minted once per New and tags every Run of this Driver; stamped
	// onto every *errors.Report a run produces (Data["run_id"]) so a CLI wrapper correlating logs
	// across many invocations of the same binary can deduplicate them.
	RunID string
}

// New returns a Driver with an empty registry and annotation table.
func New() *Driver {
	table := types.NewAnnotationTable()
	reg := trait.NewRegistry()
	return &Driver{
		Reg:          reg,
		Resolver:     trait.NewResolver(reg, table),
		Table:        table,
		funcGenerics: map[string][]string{},
		RunID:        uuid.New().String(),
	}
}

// Run registers every declaration in prog and then type-checks every
// function body and the optional main block, in that order (§4.3, §4.4).
func (d *Driver) Run(prog *ast.Program) error {
	if err := d.run(prog); err != nil {
		return d.stampRunID(err)
	}
	return nil
}

func (d *Driver) run(prog *ast.Program) error {
	if err := d.registerStructs(prog); err != nil {
		return err
	}
	if err := d.registerTraits(prog); err != nil {
		return err
	}
	if err := d.registerImpls(prog); err != nil {
		return err
	}
	if err := d.registerFuncSignatures(prog); err != nil {
		return err
	}
	for _, decl := range prog.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			if err := d.inferFuncBody(fn); err != nil {
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
			if err := d.inferImplMethodBody(impl, m); err != nil {
				return err
			}
		}
	}
	if prog.Main != nil {
		if err := d.inferMain(prog.Main); err != nil {
			return err
		}
	}
	return nil
}

// stampRunID attaches d.RunID to err's structured report, if it carries
// one, under Data["run_id"].
func (d *Driver) stampRunID(err error) error {
	rep, ok := errors.AsReport(err)
	if !ok {
		return err
	}
	if rep.Data == nil {
		rep.Data = map[string]any{}
	}
	rep.Data["run_id"] = d.RunID
	return err
}

// rigidGenericsMap lowers a function's or impl's own generic parameters to
// opaque *types.Nominal placeholders named after themselves: within the
// defining body they behave as rigid, non-unifiable types (matching only
// themselves), exactly the genericity a template parameter needs. Contrast
// internal/trait.Resolver.skeletonAndTry, which binds a candidate impl's
// generics to fresh *types.Var instead, because there they must be free to
// unify with whatever the receiver turns out to be.
func rigidGenericsMap(ids []ast.TypeId) map[ast.TypeId]types.Type {
	out := make(map[ast.TypeId]types.Type, len(ids))
	for _, id := range ids {
		out[id] = &types.Nominal{ID: id}
	}
	return out
}

func genericNames(ids []ast.TypeId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Name
	}
	return out
}

// registerStructs registers every struct's name first (so mutually or
// forward-referencing field types resolve), then lowers field types.
func (d *Driver) registerStructs(prog *ast.Program) error {
	for _, decl := range prog.Decls {
		if s, ok := decl.(*ast.StructDecl); ok {
			d.Table.RegisterStruct(&types.StructLayout{Name: s.ID.Name})
		}
	}
	scratch := types.NewEquationStore()
	for _, decl := range prog.Decls {
		s, ok := decl.(*ast.StructDecl)
		if !ok {
			continue
		}
		gens := types.EmptyGenericsTypeMap().Next(rigidGenericsMap(s.Generics))
		fields := map[string]types.Type{}
		order := make([]string, 0, len(s.Fields))
		for _, f := range s.Fields {
			lowered, err := types.LowerTypeSpec(f.Type, gens, scratch, d.Table)
			if err != nil {
				return err
			}
			ground, err := types.GroundResolve(d.Resolver, lowered)
			if err != nil {
				return err
			}
			fields[f.Name.Name] = ground
			order = append(order, f.Name.Name)
		}
		d.Table.RegisterStruct(&types.StructLayout{
			Name:     s.ID.Name,
			Generics: genericNames(s.Generics),
			Fields:   fields,
			Order:    order,
		})
	}
	return nil
}

func (d *Driver) registerTraits(prog *ast.Program) error {
	for _, decl := range prog.Decls {
		if t, ok := decl.(*ast.TraitDecl); ok {
			if err := d.Reg.RegisterTrait(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) registerImpls(prog *ast.Program) error {
	for _, decl := range prog.Decls {
		impl, ok := decl.(*ast.ImplDecl)
		if !ok {
			continue
		}
		methods := map[string]*ast.FuncDecl{}
		for _, m := range impl.Methods {
			methods[m.Info.ID.Name] = m
		}
		assoc := map[string]ast.TypeSpec{}
		for _, a := range impl.AssocDefs {
			assoc[a.Name.Name] = a.Type
		}
		if err := d.Reg.RegisterImpl(&trait.Impl{
			TraitID:   impl.Trait.TraitID.Name,
			ImplType:  impl.ImplType,
			Generics:  impl.Generics,
			Where:     impl.Where,
			AssocDefs: assoc,
			Methods:   methods,
		}, d.Table); err != nil {
			return err
		}
	}
	return nil
}

// registerFuncSignatures lowers every top-level function's signature
// (never its body) and binds it in the shared table under its name, so a
// Call to a function declared later in the file — or to itself,
// recursively — resolves during body inference.
func (d *Driver) registerFuncSignatures(prog *ast.Program) error {
	for _, decl := range prog.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		d.Reg.IntoScope()
		for _, g := range fn.Info.Generics {
			d.Reg.RegisterGenericParam(g)
		}
		for _, w := range fn.Info.Where {
			if err := d.Reg.RegisterWhereClauseCandidate(w.Param, w.Trait); err != nil {
				d.Reg.OutScope()
				return err
			}
		}
		gens := types.EmptyGenericsTypeMap().Next(rigidGenericsMap(fn.Info.Generics))
		scratch := types.NewEquationStore()
		sig, err := lowerSignature(fn.Info, gens, scratch, d.Table, d.Resolver)
		d.Reg.OutScope()
		if err != nil {
			return err
		}
		d.Table.BindVariable(fn.Info.ID.Name, sig)
		d.funcGenerics[fn.Info.ID.Name] = genericNames(fn.Info.Generics)
	}
	return nil
}

// lowerSignature lowers info's parameter and return types and immediately
// ground-resolves any associated-type projection they contain (spec.md's
// scenario S3: a signature may name `T#Trait::Assoc` directly, with no
// call in sight to drive the usual equation-based resolution).
func lowerSignature(info ast.FuncInfo, gens *types.GenericsTypeMap, store *types.EquationStore, table *types.AnnotationTable, resolver types.Resolver) (*types.Func, error) {
	args := make([]types.Type, len(info.Params))
	for i, p := range info.Params {
		lowered, err := types.LowerTypeSpec(p.Type, gens, store, table)
		if err != nil {
			return nil, err
		}
		ground, err := types.GroundResolve(resolver, lowered)
		if err != nil {
			return nil, err
		}
		args[i] = ground
	}
	ret := types.Type(types.Void)
	if info.Ret != nil {
		lowered, err := types.LowerTypeSpec(info.Ret, gens, store, table)
		if err != nil {
			return nil, err
		}
		ground, err := types.GroundResolve(resolver, lowered)
		if err != nil {
			return nil, err
		}
		ret = ground
	}
	return &types.Func{Args: args, Ret: ret}, nil
}

// funcCtx carries the per-function inference state: the equation store,
// the generics map in scope, and the list of syntactic sites visited so
// far, so their resolved types can be written into the shared annotation
// table once this function's equations are fully solved.
type funcCtx struct {
	d       *Driver
	store   *types.EquationStore
	gens    *types.GenericsTypeMap
	visited []types.TaggedVarKey
}

// nodeVar returns (minting if necessary) the type variable for tag's own
// type slot and records it for later annotation.
func (c *funcCtx) nodeVar(tag uint64) *types.Var {
	c.visited = append(c.visited, types.TaggedVarKey{Tag: tag, Slot: 0})
	return c.store.TaggedVar(tag, 0)
}

// finish solves every equation accumulated so far and writes the resolved
// type of each visited node into the shared table.
func (c *funcCtx) finish() error {
	u := types.NewUnifier(c.d.Resolver)
	sub, err := u.Unify(c.store)
	if err != nil {
		return err
	}
	for _, k := range c.visited {
		v := c.store.TaggedVar(k.Tag, k.Slot)
		c.d.Table.Annotate(k.Tag, k.Slot, types.ApplySubst(sub, v))
	}
	return nil
}

func (d *Driver) inferFuncBody(fn *ast.FuncDecl) error {
	d.Reg.IntoScope()
	defer d.Reg.OutScope()
	for _, g := range fn.Info.Generics {
		d.Reg.RegisterGenericParam(g)
	}
	for _, w := range fn.Info.Where {
		if err := d.Reg.RegisterWhereClauseCandidate(w.Param, w.Trait); err != nil {
			return err
		}
	}

	gens := types.EmptyGenericsTypeMap().Next(rigidGenericsMap(fn.Info.Generics))
	store := types.NewEquationStore()
	store.IntoScope()
	for _, p := range fn.Info.Params {
		lowered, err := types.LowerTypeSpec(p.Type, gens, store, d.Table)
		if err != nil {
			return err
		}
		store.RegisterVariable(p.Name.Name, lowered)
	}

	ctx := &funcCtx{d: d, store: store, gens: gens}
	bodyTy, err := ctx.inferBlock(fn.Body)
	if err != nil {
		return err
	}
	retTy := types.Type(types.Void)
	if fn.Info.Ret != nil {
		lowered, err := types.LowerTypeSpec(fn.Info.Ret, gens, store, d.Table)
		if err != nil {
			return err
		}
		retTy = lowered
	}
	store.AddEquation(bodyTy, retTy)
	if err := ctx.finish(); err != nil {
		return err
	}
	return ctx.annotateOrigins(fn.Body)
}

func (d *Driver) inferImplMethodBody(impl *ast.ImplDecl, m *ast.FuncDecl) error {
	d.Reg.IntoScope()
	defer d.Reg.OutScope()
	for _, g := range impl.Generics {
		d.Reg.RegisterGenericParam(g)
	}
	for _, w := range impl.Where {
		if err := d.Reg.RegisterWhereClauseCandidate(w.Param, w.Trait); err != nil {
			return err
		}
	}
	for _, g := range m.Info.Generics {
		d.Reg.RegisterGenericParam(g)
	}

	allGenerics := append(append([]ast.TypeId{}, impl.Generics...), m.Info.Generics...)
	gens := types.EmptyGenericsTypeMap().Next(rigidGenericsMap(allGenerics))

	implScratch := types.NewEquationStore()
	implTy, err := types.LowerTypeSpec(impl.ImplType, gens, implScratch, d.Table)
	if err != nil {
		return err
	}

	store := types.NewEquationStore()
	store.PushSelfType(implTy)
	defer store.PopSelfType()
	store.IntoScope()
	if m.Info.Self == ast.SelfReceiver {
		store.RegisterVariable("self", implTy)
	}
	for _, p := range m.Info.Params {
		lowered, err := types.LowerTypeSpec(p.Type, gens, store, d.Table)
		if err != nil {
			return err
		}
		store.RegisterVariable(p.Name.Name, lowered)
	}

	ctx := &funcCtx{d: d, store: store, gens: gens}
	bodyTy, err := ctx.inferBlock(m.Body)
	if err != nil {
		return err
	}
	retTy := types.Type(types.Void)
	if m.Info.Ret != nil {
		lowered, err := types.LowerTypeSpec(m.Info.Ret, gens, store, d.Table)
		if err != nil {
			return err
		}
		retTy = lowered
	}
	store.AddEquation(bodyTy, retTy)
	if err := ctx.finish(); err != nil {
		return err
	}
	return ctx.annotateOrigins(m.Body)
}

func (d *Driver) inferMain(block *ast.Block) error {
	store := types.NewEquationStore()
	store.IntoScope()
	ctx := &funcCtx{d: d, store: store, gens: types.EmptyGenericsTypeMap()}
	if _, err := ctx.inferBlock(block); err != nil {
		return err
	}
	if err := ctx.finish(); err != nil {
		return err
	}
	return ctx.annotateOrigins(block)
}

// inferBlock walks a block's statements in a fresh variable scope, typing
// each let-bound local and returning the trailing expression's type (or
// Void, if the block has none), per §4.3.
func (c *funcCtx) inferBlock(b *ast.Block) (types.Type, error) {
	c.store.IntoScope()
	defer c.store.OutScope()

	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case ast.ExprStmt:
			if _, err := c.inferExpr(s.Expr); err != nil {
				return nil, err
			}
		case ast.LetStmt:
			alpha := c.nodeVar(s.Name.Tag)
			if s.Type != nil {
				lowered, err := types.LowerTypeSpec(s.Type, c.gens, c.store, c.d.Table)
				if err != nil {
					return nil, err
				}
				c.store.AddEquation(alpha, lowered)
			}
			exprTy, err := c.inferExpr(s.Expr)
			if err != nil {
				return nil, err
			}
			c.store.AddEquation(alpha, exprTy)
			c.store.RegisterVariable(s.Name.Name, alpha)
		default:
			return nil, errors.WrapReport(errors.Parse(errors.PAR001, "unknown statement kind", nil))
		}
	}

	if b.Trailing != nil {
		return c.inferExpr(b.Trailing)
	}
	return types.Void, nil
}

// inferExpr emits the equations §4.3 describes for e and returns the type
// variable standing for e's own type.
func (c *funcCtx) inferExpr(e ast.Expr) (types.Type, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		v := c.nodeVar(e.Tag)
		if e.Suffix != "" && e.Suffix != "i64" {
			return nil, errors.WrapReport(errors.UnknownType("integer literal suffix " + e.Suffix))
		}
		c.store.AddEquation(v, types.I64)
		return v, nil

	case *ast.BoolLit:
		v := c.nodeVar(e.Tag)
		c.store.AddEquation(v, types.Bool)
		return v, nil

	case *ast.Var:
		v := c.nodeVar(e.Tag)
		if local, ok := c.store.LookupVariable(e.Name.Name); ok {
			c.store.AddEquation(v, local)
			return v, nil
		}
		global, ok := c.d.Table.Variable(e.Name.Name)
		if !ok {
			return nil, errors.WrapReport(errors.UnknownVariable(e.Name.Name))
		}
		c.store.AddEquation(v, c.instantiate(e.Name.Name, global))
		return v, nil

	case *ast.Call:
		v := c.nodeVar(e.Tag)
		fnTy, err := c.inferExpr(e.Func)
		if err != nil {
			return nil, err
		}
		argTys := make([]types.Type, len(e.Args))
		for i, a := range e.Args {
			t, err := c.inferExpr(a)
			if err != nil {
				return nil, err
			}
			argTys[i] = t
		}
		c.store.AddEquation(fnTy, &types.Func{Args: argTys, Ret: v})
		return v, nil

	case *ast.MethodCall:
		v := c.nodeVar(e.Tag)
		recvTy, err := c.inferExpr(e.Receiver)
		if err != nil {
			return nil, err
		}
		argTys := make([]types.Type, len(e.Args))
		for i, a := range e.Args {
			t, err := c.inferExpr(a)
			if err != nil {
				return nil, err
			}
			argTys[i] = t
		}
		c.store.AddEquation(
			&types.MemberFunc{Receiver: recvTy, Name: e.Method, Args: argTys},
			&types.Func{Args: argTys, Ret: v},
		)
		return v, nil

	case *ast.FieldAccess:
		v := c.nodeVar(e.Tag)
		recvTy, err := c.inferExpr(e.Receiver)
		if err != nil {
			return nil, err
		}
		c.store.AddEquation(&types.Member{Receiver: recvTy, Name: e.Field}, v)
		return v, nil

	case *ast.StructLit:
		v := c.nodeVar(e.Tag)
		layout, ok := c.d.Table.Struct(e.StructID.Name)
		if !ok {
			return nil, errors.WrapReport(errors.UnknownType(e.StructID.Name))
		}
		freshArgs := make([]types.Type, len(layout.Generics))
		for i := range freshArgs {
			freshArgs[i] = c.store.FreshVar()
		}
		c.store.AddEquation(v, &types.Nominal{ID: e.StructID, Args: freshArgs})
		for _, init := range e.Fields {
			declared, ok := layout.Fields[init.Name.Name]
			if !ok {
				return nil, errors.WrapReport(errors.UnknownVariable(e.StructID.Name + "." + init.Name.Name))
			}
			fieldTy := types.SubstituteNamed(declared, layout.Generics, freshArgs)
			valTy, err := c.inferExpr(init.Value)
			if err != nil {
				return nil, err
			}
			c.store.AddEquation(valTy, fieldTy)
		}
		return v, nil

	case *ast.TraitMethodRef:
		v := c.nodeVar(e.Tag)
		base, err := types.LowerTypeSpec(e.Recv, c.gens, c.store, c.d.Table)
		if err != nil {
			return nil, err
		}
		trait := e.Trait
		c.store.AddEquation(&types.TraitMethodRef{Base: base, Trait: &trait, Method: e.Method}, v)
		return v, nil

	case *ast.Paren:
		v := c.nodeVar(e.Tag)
		inner, err := c.inferExpr(e.Inner)
		if err != nil {
			return nil, err
		}
		c.store.AddEquation(v, inner)
		return v, nil

	case *ast.BlockExpr:
		v := c.nodeVar(e.Tag)
		inner, err := c.inferBlock(e.Block)
		if err != nil {
			return nil, err
		}
		c.store.AddEquation(v, inner)
		return v, nil

	default:
		return nil, errors.WrapReport(errors.Parse(errors.PAR001, "unknown expression kind", nil))
	}
}

// annotateOrigins walks an already-solved body a second time, recording
// which trait impl each method call and trait-method reference dispatched
// through. This can't be done inline during inferBlock/inferExpr: a
// MemberFunc or TraitMethodRef resolves to a *types.Func carrying Origin,
// but step() immediately decomposes that Func into Args/Ret equations and
// the Origin is gone — by the time the body's equations are fully solved,
// every receiver type is concrete, so resolution can simply be repeated
// (deterministically, against the same registry) purely to recover Origin.
func (c *funcCtx) annotateOrigins(b *ast.Block) error {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case ast.ExprStmt:
			if err := c.annotateExprOrigins(s.Expr); err != nil {
				return err
			}
		case ast.LetStmt:
			if err := c.annotateExprOrigins(s.Expr); err != nil {
				return err
			}
		}
	}
	if b.Trailing != nil {
		return c.annotateExprOrigins(b.Trailing)
	}
	return nil
}

func (c *funcCtx) annotateExprOrigins(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.Call:
		if err := c.annotateExprOrigins(e.Func); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := c.annotateExprOrigins(a); err != nil {
				return err
			}
		}
		return nil

	case *ast.MethodCall:
		if err := c.annotateExprOrigins(e.Receiver); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := c.annotateExprOrigins(a); err != nil {
				return err
			}
		}
		recvTy, ok := c.d.Table.Lookup(tagOf(e.Receiver), 0)
		if !ok {
			return nil
		}
		f, err := c.d.Resolver.ResolveMethod(recvTy, nil, e.Method, nil, c.store)
		if err != nil {
			return err
		}
		if f.Origin != nil {
			c.d.Table.AnnotateOrigin(e.Tag, f.Origin)
		}
		return nil

	case *ast.FieldAccess:
		return c.annotateExprOrigins(e.Receiver)

	case *ast.StructLit:
		for _, f := range e.Fields {
			if err := c.annotateExprOrigins(f.Value); err != nil {
				return err
			}
		}
		return nil

	case *ast.TraitMethodRef:
		trait := e.Trait
		base, err := types.LowerTypeSpec(e.Recv, c.gens, c.store, c.d.Table)
		if err != nil {
			return err
		}
		f, err := c.d.Resolver.ResolveMethod(base, &trait, e.Method, nil, c.store)
		if err != nil {
			return err
		}
		if f.Origin != nil {
			c.d.Table.AnnotateOrigin(e.Tag, f.Origin)
		}
		return nil

	case *ast.Paren:
		return c.annotateExprOrigins(e.Inner)

	case *ast.BlockExpr:
		return c.annotateOrigins(e.Block)

	default:
		return nil
	}
}

// tagOf extracts the tag every concrete Expr variant carries, for looking
// up its already-annotated type in the shared table.
func tagOf(e ast.Expr) uint64 {
	switch e := e.(type) {
	case *ast.IntLit:
		return e.Tag
	case *ast.BoolLit:
		return e.Tag
	case *ast.Var:
		return e.Tag
	case *ast.Call:
		return e.Tag
	case *ast.MethodCall:
		return e.Tag
	case *ast.FieldAccess:
		return e.Tag
	case *ast.StructLit:
		return e.Tag
	case *ast.TraitMethodRef:
		return e.Tag
	case *ast.Paren:
		return e.Tag
	case *ast.BlockExpr:
		return e.Tag
	default:
		return 0
	}
}

// instantiate produces a fresh copy of a generic top-level function's
// signature for one call site, replacing its own rigid generic
// placeholders with fresh type variables (ordinary let-polymorphism
// instantiation; non-generic functions are returned unchanged since
// funcGenerics[name] is then empty).
func (c *funcCtx) instantiate(name string, sig types.Type) types.Type {
	names := c.d.funcGenerics[name]
	if len(names) == 0 {
		return sig
	}
	fresh := make([]types.Type, len(names))
	for i := range fresh {
		fresh[i] = c.store.FreshVar()
	}
	return types.SubstituteNamed(sig, names, fresh)
}
