package lexer

import "testing"

func TestNextToken_Declarations(t *testing.T) {
	src := `fn add(x: i64, y: i64) -> i64 { x }`
	want := []TokenType{
		FN, IDENT, LPAREN, IDENT, COLON, IDENT, COMMA, IDENT, COLON, IDENT, RPAREN,
		ARROW, IDENT, LBRACE, IDENT, RBRACE, EOF,
	}
	l := New(src, "t.niu")
	for i, wt := range want {
		tok := l.NextToken()
		if tok.Type != wt {
			t.Fatalf("token %d: got %s, want %s (%q)", i, tok.Type, wt, tok.Literal)
		}
	}
}

func TestNextToken_TraitProjection(t *testing.T) {
	src := `x#Tr::Output`
	l := New(src, "t.niu")
	want := []TokenType{IDENT, HASH, IDENT, DCOLON, IDENT, EOF}
	for i, wt := range want {
		tok := l.NextToken()
		if tok.Type != wt {
			t.Fatalf("token %d: got %s, want %s", i, tok.Type, wt)
		}
	}
}

func TestNextToken_IntSuffix(t *testing.T) {
	l := New("1i64", "t.niu")
	tok := l.NextToken()
	if tok.Type != INT || tok.Literal != "1i64" {
		t.Fatalf("got %v", tok)
	}
}

func TestNextToken_Refs(t *testing.T) {
	l := New("&mut T", "t.niu")
	want := []TokenType{AMP, MUT, IDENT, EOF}
	for i, wt := range want {
		tok := l.NextToken()
		if tok.Type != wt {
			t.Fatalf("token %d: got %s, want %s", i, tok.Type, wt)
		}
	}
}

func TestNextToken_Comment(t *testing.T) {
	l := New("// a comment\nlet x = 1i64;", "t.niu")
	tok := l.NextToken()
	if tok.Type != LET {
		t.Fatalf("got %v, want LET (comment should be skipped)", tok)
	}
}

func TestNextToken_Illegal(t *testing.T) {
	l := New("@", "t.niu")
	tok := l.NextToken()
	if tok.Type != ILLEGAL {
		t.Fatalf("got %v, want ILLEGAL", tok)
	}
}
