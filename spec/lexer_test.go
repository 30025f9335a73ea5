package spec

import (
	"strings"
	"testing"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		tokens  []*token
	}{
		{
			caption: "the lexer recognizes all kinds of tokens",
			src:     `id:|;#()*+?@<T>{ code }"pat"'lit'42`,
			tokens: []*token{
				{kind: tokenKindID, text: "id"},
				{kind: tokenKindColon},
				{kind: tokenKindOr},
				{kind: tokenKindSemicolon},
				{kind: tokenKindDirectiveMarker},
				{kind: tokenKindGroupOpen},
				{kind: tokenKindGroupClose},
				{kind: tokenKindStar},
				{kind: tokenKindPlus},
				{kind: tokenKindOption},
				{kind: tokenKindLabelMarker},
				{kind: tokenKindType, text: "T"},
				{kind: tokenKindAction, text: "code"},
				{kind: tokenKindPattern, text: "pat"},
				{kind: tokenKindString, text: "lit"},
				{kind: tokenKindNumber, num: 42},
				{kind: tokenKindEOF},
			},
		},
		{
			caption: "the lexer skips white spaces and comments",
			src: `
// a comment
foo // another comment
bar
`,
			tokens: []*token{
				{kind: tokenKindID, text: "foo"},
				{kind: tokenKindID, text: "bar"},
				{kind: tokenKindEOF},
			},
		},
		{
			caption: "a pattern keeps escape sequences except the quotation mark",
			src:     `"\+\"x"`,
			tokens: []*token{
				{kind: tokenKindPattern, text: `\+"x`},
				{kind: tokenKindEOF},
			},
		},
		{
			caption: "an action block keeps nested braces",
			src:     `{ if x { y } }`,
			tokens: []*token{
				{kind: tokenKindAction, text: "if x { y }"},
				{kind: tokenKindEOF},
			},
		},
		{
			caption: "a negative number is one token",
			src:     `-1`,
			tokens: []*token{
				{kind: tokenKindNumber, num: -1},
				{kind: tokenKindEOF},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			l := newLexer(strings.NewReader(tt.src))
			for _, want := range tt.tokens {
				got, err := l.next()
				if err != nil {
					t.Fatal(err)
				}
				if got.kind != want.kind {
					t.Fatalf("unexpected token kind: want: %v, got: %v (%q)", want.kind, got.kind, got.text)
				}
				if want.text != "" && got.text != want.text {
					t.Fatalf("unexpected token text: want: %q, got: %q", want.text, got.text)
				}
				if want.num != 0 && got.num != want.num {
					t.Fatalf("unexpected token number: want: %v, got: %v", want.num, got.num)
				}
			}
		})
	}
}

func TestLexerPosition(t *testing.T) {
	l := newLexer(strings.NewReader("a\n  b"))
	tok, err := l.next()
	if err != nil {
		t.Fatal(err)
	}
	if tok.pos.Row != 1 || tok.pos.Col != 1 {
		t.Fatalf("unexpected position: %v", tok.pos)
	}
	tok, err = l.next()
	if err != nil {
		t.Fatal(err)
	}
	if tok.pos.Row != 2 || tok.pos.Col != 3 {
		t.Fatalf("unexpected position: %v", tok.pos)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		caption string
		src     string
	}{
		{caption: "an unclosed pattern", src: `"abc`},
		{caption: "an empty pattern", src: `""`},
		{caption: "an unclosed string", src: `'abc`},
		{caption: "an empty string", src: `''`},
		{caption: "an unclosed action", src: `{ x`},
		{caption: "an unclosed type", src: `<T`},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			l := newLexer(strings.NewReader(tt.src))
			var err error
			for i := 0; i < 2 && err == nil; i++ {
				_, err = l.next()
			}
			if err == nil {
				t.Fatalf("the lexer must fail on %v", tt.caption)
			}
		})
	}
}
