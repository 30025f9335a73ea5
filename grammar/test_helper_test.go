package grammar

import "testing"

func symbolParts(syms ...Symbol) []Part {
	ps := make([]Part, len(syms))
	for i, sym := range syms {
		ps[i] = NewSymbolPart(sym)
	}
	return ps
}

func assertTerminalSet(t *testing.T, set *TerminalSet, want ...*Terminal) {
	t.Helper()

	wanted := map[int]struct{}{}
	for _, term := range want {
		wanted[term.index] = struct{}{}
		if !set.containsTerminal(term) {
			t.Fatalf("the set must contain %v", term.name)
		}
	}
	for _, idx := range set.terminalIndices() {
		if _, ok := wanted[idx]; !ok {
			t.Fatalf("the set must not contain terminal #%v", idx)
		}
	}
}

func findTransition(s *LalrState, sym Symbol) *LalrState {
	for _, trans := range s.transitions {
		if trans.sym == sym {
			return trans.to
		}
	}
	return nil
}

func mustCompileGrammar(t *testing.T, g *Grammar, compactReduces bool) {
	t.Helper()

	g.ComputeNullability()
	if err := g.ComputeFirsts(); err != nil {
		t.Fatal(err)
	}
	if _, err := g.BuildMachine(); err != nil {
		t.Fatal(err)
	}
	if err := g.BuildTables(compactReduces); err != nil {
		t.Fatal(err)
	}
}
