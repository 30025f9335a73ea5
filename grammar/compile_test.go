package grammar

import (
	"testing"
)

func TestCompileFromSource(t *testing.T) {
	src := `
#name calc;
#prec (
    #left add
    #left mul
);

num: "[0-9]+";
add: '+';
mul: '*';

expr
    : expr add expr
    | expr mul expr
    | num
    ;
`
	b := &Builder{
		AST: parseSource(t, src),
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	cgram, report, err := Compile(g, EnableReporting(), CompactReduces())
	if err != nil {
		t.Fatal(err)
	}

	if cgram.Name != "calc" {
		t.Fatalf("unexpected artifact name: %v", cgram.Name)
	}
	if cgram.Lexical == nil || cgram.Lexical.Lexer != "maleeni" {
		t.Fatalf("pattern terminals must produce a lexical section")
	}
	if len(cgram.Lexical.TerminalToKind) != g.TerminalCount() {
		t.Fatalf("the terminal-to-kind mapping must cover every terminal")
	}

	syn := cgram.Syntactic
	if syn.StateCount != len(g.states) {
		t.Fatalf("unexpected state count: %v", syn.StateCount)
	}
	if syn.StartProduction != 0 {
		t.Fatalf("the start production must have index 0")
	}
	if len(syn.LHSSymbols) != g.ProductionCount() || len(syn.RHSLengths) != g.ProductionCount() {
		t.Fatalf("the per-production records must cover every production")
	}
	if syn.RHSLengths[0] != 2 {
		t.Fatalf("the start production derives the start symbol and eof")
	}
	if syn.EOFSymbol != 1 || syn.ErrorSymbol != 0 {
		t.Fatalf("unexpected sentinel symbol indices")
	}

	// Compression round trip: every cell of the uncompressed table must be
	// recoverable from the packed stream.
	for s := 0; s < syn.StateCount; s++ {
		for c := 0; c < g.TerminalCount(); c++ {
			want := g.actionTable.Action(s, c)
			i := syn.ActionBase[s] + 2*c
			got := syn.Action[s]
			if i+1 < len(syn.Action) && syn.Action[i] == s {
				got = syn.Action[i+1]
			}
			if got != want {
				t.Fatalf("action(%v, %v): want: %v, got: %v", s, c, want, got)
			}
		}
	}
	for s := 0; s < syn.StateCount; s++ {
		for n := 0; n < g.NonTerminalCount(); n++ {
			next := g.reduceTable.GoTo(s, n)
			if next == nil {
				continue
			}
			if got := syn.Reduce[syn.Reduce[s]+n]; got != next.index {
				t.Fatalf("goto(%v, %v): want: %v, got: %v", s, n, next.index, got)
			}
		}
	}

	if report == nil || len(report.States) != syn.StateCount {
		t.Fatalf("the report must describe every state")
	}
}

// The empty grammar packs into a comb with entries for exactly two states:
// the initial reduce and the accepting eof shift; the final state is all
// default.
func TestCompileEmptyGrammarCombRows(t *testing.T) {
	g := NewGrammar(nil)
	s := g.AddNonTerminal("s", "")
	g.BuildProduction(s, nil, nil)

	cgram, _, err := Compile(g, CompactReduces())
	if err != nil {
		t.Fatal(err)
	}

	syn := cgram.Syntactic
	nonDefaultRows := 0
	for st := 0; st < syn.StateCount; st++ {
		if syn.ActionBase[st] != syn.StateCount {
			nonDefaultRows++
		}
	}
	if nonDefaultRows != 2 {
		t.Fatalf("the action comb must contain entries for exactly two states; got %v", nonDefaultRows)
	}
}
