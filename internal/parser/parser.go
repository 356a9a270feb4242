// Package parser builds an *ast.Program from a token stream: a sequence of
// fn/struct/trait/impl declarations followed by an optional top-level
// `{ ... }` block, the program's entry point (spec.md §6's grammar).
package parser

import (
	"fmt"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/lexer"
)

// Parser is a single-pass recursive-descent parser with one token of
// lookahead, mirroring the teacher's cur/peek-token shape.
type Parser struct {
	l    *lexer.Lexer
	tags *ast.TagGen

	cur  lexer.Token
	peek lexer.Token

	err error
}

// New returns a Parser reading tokens from l, minting AST tags from tags.
func New(l *lexer.Lexer, tags *ast.TagGen) *Parser {
	p := &Parser{l: l, tags: tags}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) pos() ast.Pos {
	return ast.Pos{Line: p.cur.Line, Column: p.cur.Column}
}

func (p *Parser) fail(msg string) {
	if p.err == nil {
		p.err = errors.WrapReport(errors.Parse(errors.PAR001,
			fmt.Sprintf("%s (got %s %q at %s)", msg, p.cur.Type, p.cur.Literal, p.cur.Position()), nil))
	}
}

func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	tok := p.cur
	if p.cur.Type != tt {
		p.fail(fmt.Sprintf("expected %s", tt))
		return tok
	}
	p.next()
	return tok
}

func (p *Parser) ident() ast.Identifier {
	tok := p.expect(lexer.IDENT)
	return ast.Identifier{Name: tok.Literal, Tag: p.tags.Next(), Pos: ast.Pos{Line: tok.Line, Column: tok.Column}}
}

// Parse consumes the whole token stream and returns the resulting program,
// or the first error encountered.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Type != lexer.EOF && p.err == nil {
		switch p.cur.Type {
		case lexer.FN:
			prog.Decls = append(prog.Decls, p.parseFuncDecl())
		case lexer.STRUCT:
			prog.Decls = append(prog.Decls, p.parseStructDecl())
		case lexer.TRAIT:
			prog.Decls = append(prog.Decls, p.parseTraitDecl())
		case lexer.IMPL:
			prog.Decls = append(prog.Decls, p.parseImplDecl())
		case lexer.LBRACE:
			if prog.Main != nil {
				p.fail("at most one top-level block is allowed")
				break
			}
			prog.Main = p.parseBlock()
		default:
			p.fail("expected a declaration or a top-level block")
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

// ---- declarations ----

func (p *Parser) parseGenericsDecl() []ast.TypeId {
	if p.cur.Type != lexer.LT {
		return nil
	}
	p.next()
	var gens []ast.TypeId
	for {
		tok := p.expect(lexer.IDENT)
		gens = append(gens, ast.TypeId{Name: tok.Literal})
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.GT)
	return gens
}

func (p *Parser) parseWhereClauses() []ast.WhereClause {
	if p.cur.Type != lexer.WHERE {
		return nil
	}
	p.next()
	var out []ast.WhereClause
	for {
		paramTok := p.expect(lexer.IDENT)
		p.expect(lexer.COLON)
		trait := p.parseTraitSpec()
		out = append(out, ast.WhereClause{Param: ast.TypeId{Name: paramTok.Literal}, Trait: trait})
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	return out
}

func (p *Parser) parseTraitSpec() ast.TraitSpec {
	id := p.ident()
	spec := ast.TraitSpec{TraitID: id}
	if p.cur.Type == lexer.LT {
		p.next()
		for {
			spec.Generics = append(spec.Generics, p.parseTypeSpec())
			if p.cur.Type == lexer.COMMA {
				p.next()
				continue
			}
			break
		}
		p.expect(lexer.GT)
	}
	return spec
}

// parseFuncInfo parses a function's signature, shared by top-level fn
// declarations, trait-required methods (no body follows), and impl methods.
func (p *Parser) parseFuncInfo(allowSelf bool) ast.FuncInfo {
	info := ast.FuncInfo{}
	info.ID = p.ident()
	info.Tag = p.tags.Next()
	info.Generics = p.parseGenericsDecl()

	p.expect(lexer.LPAREN)
	if allowSelf && p.cur.Type == lexer.SELF {
		p.next()
		info.Self = ast.SelfReceiver
		if p.cur.Type == lexer.COMMA {
			p.next()
		}
	}
	for p.cur.Type != lexer.RPAREN && p.err == nil {
		name := p.ident()
		p.expect(lexer.COLON)
		ty := p.parseTypeSpec()
		info.Params = append(info.Params, ast.Param{Name: name, Type: ty})
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RPAREN)
	p.expect(lexer.ARROW)
	info.Ret = p.parseTypeSpec()
	info.Where = p.parseWhereClauses()
	return info
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	pos := p.pos()
	p.expect(lexer.FN)
	info := p.parseFuncInfo(true)
	body := p.parseBlock()
	return &ast.FuncDecl{Info: info, Body: body, Pos: pos}
}

func (p *Parser) parseStructDecl() *ast.StructDecl {
	pos := p.pos()
	p.expect(lexer.STRUCT)
	nameTok := p.expect(lexer.IDENT)
	d := &ast.StructDecl{ID: ast.TypeId{Name: nameTok.Literal}, Tag: p.tags.Next(), Pos: pos}
	d.Generics = p.parseGenericsDecl()
	p.expect(lexer.LBRACE)
	for p.cur.Type != lexer.RBRACE && p.err == nil {
		name := p.ident()
		p.expect(lexer.COLON)
		ty := p.parseTypeSpec()
		d.Fields = append(d.Fields, ast.FieldDecl{Name: name, Type: ty})
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RBRACE)
	return d
}

func (p *Parser) parseTraitDecl() *ast.TraitDecl {
	pos := p.pos()
	p.expect(lexer.TRAIT)
	nameTok := p.expect(lexer.IDENT)
	d := &ast.TraitDecl{TraitID: ast.Identifier{Name: nameTok.Literal, Tag: p.tags.Next(), Pos: pos}, Pos: pos}
	p.expect(lexer.LBRACE)
	for p.cur.Type != lexer.RBRACE && p.err == nil {
		switch p.cur.Type {
		case lexer.TYPEKW:
			p.next()
			nameTok := p.expect(lexer.IDENT)
			d.AssocIDs = append(d.AssocIDs, ast.AssocName{Name: nameTok.Literal})
			p.expect(lexer.SEMI)
		case lexer.FN:
			p.next()
			info := p.parseFuncInfo(true)
			p.expect(lexer.SEMI)
			d.Methods = append(d.Methods, info)
		default:
			p.fail("expected 'type' or 'fn' in trait body")
			return d
		}
	}
	p.expect(lexer.RBRACE)
	return d
}

func (p *Parser) parseImplDecl() *ast.ImplDecl {
	pos := p.pos()
	p.expect(lexer.IMPL)
	d := &ast.ImplDecl{Pos: pos}
	d.Generics = p.parseGenericsDecl()
	d.Trait = p.parseTraitSpec()
	p.expect(lexer.FOR)
	d.ImplType = p.parseTypeSpec()
	d.Where = p.parseWhereClauses()
	p.expect(lexer.LBRACE)
	for p.cur.Type != lexer.RBRACE && p.err == nil {
		switch p.cur.Type {
		case lexer.TYPEKW:
			p.next()
			nameTok := p.expect(lexer.IDENT)
			p.expect(lexer.ASSIGN)
			ty := p.parseTypeSpec()
			p.expect(lexer.SEMI)
			d.AssocDefs = append(d.AssocDefs, ast.AssocDef{Name: ast.AssocName{Name: nameTok.Literal}, Type: ty})
		case lexer.FN:
			methodPos := p.pos()
			p.next()
			info := p.parseFuncInfo(true)
			body := p.parseBlock()
			d.Methods = append(d.Methods, &ast.FuncDecl{Info: info, Body: body, Pos: methodPos})
		default:
			p.fail("expected 'type' or 'fn' in impl body")
			return d
		}
	}
	p.expect(lexer.RBRACE)
	return d
}

// ---- types ----

func (p *Parser) parseTypeSpec() ast.TypeSpec {
	var base ast.TypeSpec
	switch p.cur.Type {
	case lexer.AMP:
		p.next()
		if p.cur.Type == lexer.MUT {
			p.next()
			base = ast.MutRefSpec{Elem: p.parseTypeSpec()}
		} else {
			base = ast.RefSpec{Elem: p.parseTypeSpec()}
		}
		return base
	case lexer.SELF:
		p.next()
		base = ast.SignSpec{ID: ast.SelfTypeId}
	case lexer.IDENT:
		tok := p.expect(lexer.IDENT)
		sign := ast.SignSpec{ID: ast.TypeId{Name: tok.Literal}}
		if p.cur.Type == lexer.LT {
			p.next()
			for {
				sign.Gens = append(sign.Gens, p.parseTypeSpec())
				if p.cur.Type == lexer.COMMA {
					p.next()
					continue
				}
				break
			}
			p.expect(lexer.GT)
		}
		base = sign
	default:
		p.fail("expected a type")
		return ast.SignSpec{}
	}

	for p.cur.Type == lexer.HASH {
		p.next()
		trait := p.parseTraitSpec()
		p.expect(lexer.DCOLON)
		nameTok := p.expect(lexer.IDENT)
		base = ast.AssocSpec{Base: base, Trait: trait, Name: ast.AssocName{Name: nameTok.Literal}}
	}
	return base
}

// ---- statements and blocks ----

func (p *Parser) parseBlock() *ast.Block {
	pos := p.pos()
	b := &ast.Block{Tag: p.tags.Next(), Pos: pos}
	p.expect(lexer.LBRACE)
	for p.cur.Type != lexer.RBRACE && p.err == nil {
		if p.cur.Type == lexer.LET {
			b.Stmts = append(b.Stmts, p.parseLetStmt())
			continue
		}
		e := p.parseExpr()
		if p.cur.Type == lexer.SEMI {
			p.next()
			b.Stmts = append(b.Stmts, ast.ExprStmt{Expr: e})
			continue
		}
		// No trailing semicolon: e is the block's trailing expression.
		b.Trailing = e
		break
	}
	p.expect(lexer.RBRACE)
	return b
}

func (p *Parser) parseLetStmt() ast.LetStmt {
	p.expect(lexer.LET)
	name := p.ident()
	var ty ast.TypeSpec
	if p.cur.Type == lexer.COLON {
		p.next()
		ty = p.parseTypeSpec()
	}
	p.expect(lexer.ASSIGN)
	e := p.parseExpr()
	p.expect(lexer.SEMI)
	return ast.LetStmt{Name: name, Type: ty, Expr: e}
}

// ---- expressions ----
//
// niuc's expression grammar (spec.md §6) has no operators to give
// precedence to: a primary expression optionally followed by a chain of
// `.field`, `.method(args)`, or call-application suffixes.

func (p *Parser) parseExpr() ast.Expr {
	e := p.parsePrimary()
	for p.err == nil {
		switch p.cur.Type {
		case lexer.DOT:
			p.next()
			nameTok := p.expect(lexer.IDENT)
			field := ast.Identifier{Name: nameTok.Literal, Tag: p.tags.Next(), Pos: ast.Pos{Line: nameTok.Line, Column: nameTok.Column}}
			if p.cur.Type == lexer.LPAREN {
				args := p.parseArgs()
				e = &ast.MethodCall{Receiver: e, Method: field, Args: args, Tag: p.tags.Next(), Pos: field.Pos}
			} else {
				e = &ast.FieldAccess{Receiver: e, Field: field, Tag: p.tags.Next(), Pos: field.Pos}
			}
		case lexer.LPAREN:
			args := p.parseArgs()
			e = &ast.Call{Func: e, Args: args, Tag: p.tags.Next(), Pos: p.pos()}
		default:
			return e
		}
	}
	return e
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(lexer.LPAREN)
	var args []ast.Expr
	for p.cur.Type != lexer.RPAREN && p.err == nil {
		args = append(args, p.parseExpr())
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RPAREN)
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.pos()
	switch p.cur.Type {
	case lexer.INT:
		tok := p.cur
		p.next()
		val, suffix := splitIntLiteral(tok.Literal)
		return &ast.IntLit{Value: val, Suffix: suffix, Tag: p.tags.Next(), Pos: pos}

	case lexer.TRUE:
		p.next()
		return &ast.BoolLit{Value: true, Tag: p.tags.Next(), Pos: pos}

	case lexer.FALSE:
		p.next()
		return &ast.BoolLit{Value: false, Tag: p.tags.Next(), Pos: pos}

	case lexer.LPAREN:
		p.next()
		inner := p.parseExpr()
		p.expect(lexer.RPAREN)
		return &ast.Paren{Inner: inner, Tag: p.tags.Next(), Pos: pos}

	case lexer.LBRACE:
		return &ast.BlockExpr{Block: p.parseBlock(), Tag: p.tags.Next(), Pos: pos}

	case lexer.SELF:
		p.next()
		return &ast.Var{Name: ast.Identifier{Name: "self", Tag: p.tags.Next(), Pos: pos}, Tag: p.tags.Next(), Pos: pos}

	case lexer.IDENT:
		// Disambiguate: NAME { ... } is a struct literal; NAME#Trait::m is a
		// bare trait-method reference; otherwise a variable reference.
		tok := p.cur
		if p.peek.Type == lexer.LBRACE {
			return p.parseStructLit()
		}
		if p.peek.Type == lexer.HASH {
			return p.parseTraitMethodRef()
		}
		p.next()
		return &ast.Var{Name: ast.Identifier{Name: tok.Literal, Tag: p.tags.Next(), Pos: pos}, Tag: p.tags.Next(), Pos: pos}

	default:
		p.fail("expected an expression")
		return &ast.Var{Tag: p.tags.Next(), Pos: pos}
	}
}

func (p *Parser) parseStructLit() ast.Expr {
	pos := p.pos()
	nameTok := p.expect(lexer.IDENT)
	p.expect(lexer.LBRACE)
	lit := &ast.StructLit{StructID: ast.TypeId{Name: nameTok.Literal}, Tag: p.tags.Next(), Pos: pos}
	for p.cur.Type != lexer.RBRACE && p.err == nil {
		name := p.ident()
		p.expect(lexer.COLON)
		val := p.parseExpr()
		lit.Fields = append(lit.Fields, ast.StructFieldInit{Name: name, Value: val})
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RBRACE)
	return lit
}

func (p *Parser) parseTraitMethodRef() ast.Expr {
	pos := p.pos()
	recv := p.parseTypeSpec()
	// parseTypeSpec already consumes the #Trait::Name suffix if recv was
	// only a bare nominal; for a bare trait-method reference we want the
	// trait/name split out separately, so re-derive them from the parsed
	// AssocSpec shape when present.
	if assoc, ok := recv.(ast.AssocSpec); ok {
		return &ast.TraitMethodRef{Recv: assoc.Base, Trait: assoc.Trait, Method: ast.Identifier{Name: assoc.Name.Name, Tag: p.tags.Next(), Pos: pos}, Tag: p.tags.Next(), Pos: pos}
	}
	p.fail("expected '#Trait::method' after type in trait-method reference")
	return &ast.TraitMethodRef{Recv: recv, Tag: p.tags.Next(), Pos: pos}
}

// splitIntLiteral divides a lexed INT literal's text (e.g. "1i64") into its
// numeric value and its builtin-type suffix.
func splitIntLiteral(lit string) (int64, string) {
	i := 0
	for i < len(lit) && lit[i] >= '0' && lit[i] <= '9' {
		i++
	}
	var val int64
	for _, ch := range lit[:i] {
		val = val*10 + int64(ch-'0')
	}
	return val, lit[i:]
}
