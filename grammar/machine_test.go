package grammar

import "testing"

// The arithmetic-expression grammar generates the textbook LALR automaton;
// its shape pins down kernel identity, transition building, and lookahead
// merging.
func TestBuildMachine(t *testing.T) {
	g := NewGrammar(nil)
	add := g.AddTerminal("add", "")
	mul := g.AddTerminal("mul", "")
	lParen := g.AddTerminal("l_paren", "")
	rParen := g.AddTerminal("r_paren", "")
	id := g.AddTerminal("id", "")

	expr := g.AddNonTerminal("expr", "")
	term := g.AddNonTerminal("term", "")
	factor := g.AddNonTerminal("factor", "")

	prodExprAdd := g.BuildProduction(expr, symbolParts(expr, add, term), nil)
	g.BuildProduction(expr, symbolParts(term), nil)
	g.BuildProduction(term, symbolParts(term, mul, factor), nil)
	g.BuildProduction(term, symbolParts(factor), nil)
	g.BuildProduction(factor, symbolParts(lParen, expr, rParen), nil)
	g.BuildProduction(factor, symbolParts(id), nil)

	g.ComputeNullability()
	err := g.ComputeFirsts()
	if err != nil {
		t.Fatal(err)
	}

	start, err := g.BuildMachine()
	if err != nil {
		t.Fatal(err)
	}
	if start.index != 0 {
		t.Fatalf("the start state must have index 0")
	}

	// expr : term and term : factor are proxies, so shifting an id jumps
	// straight to the state recognizing it and no separate states exist
	// for the unit reductions.
	idState := findTransition(start, id)
	if idState == nil {
		t.Fatalf("the start state must shift id")
	}

	// Kernel uniqueness: rediscovering a kernel yields the same state
	// object.
	exprState := findTransition(start, expr)
	if exprState == nil {
		t.Fatalf("the start state must have a goto on expr")
	}
	addState := findTransition(exprState, add)
	if addState == nil {
		t.Fatalf("the expr state must shift add")
	}

	lParenState := findTransition(start, lParen)
	if lParenState == nil {
		t.Fatalf("the start state must shift l_paren")
	}
	innerExprState := findTransition(lParenState, expr)
	if innerExprState == nil {
		t.Fatalf("the l_paren state must have a goto on expr")
	}
	if findTransition(innerExprState, add) != addState {
		t.Fatalf("the add kernel must be shared between the outer and inner expr states")
	}

	// Lookahead of [expr ::= expr add term ・] must contain everything
	// that can follow an expr: eof, add, and r_paren.
	afterTerm := findTransition(addState, term)
	if afterTerm == nil {
		t.Fatalf("the add state must have a goto on term")
	}
	reduceItem := prodExprAdd.startItem().shiftedItem().shiftedItem().shiftedItem()
	la := afterTerm.lookaheads(reduceItem)
	if la == nil {
		t.Fatalf("the reduce item must be in the state")
	}
	assertTerminalSet(t, la.TerminalSet, g.eofTerminal, add, rParen)
}

func TestBuildMachineFoldsProxyChains(t *testing.T) {
	g := NewGrammar(nil)
	x := g.AddTerminal("x", "")

	s := g.AddNonTerminal("s", "")
	a := g.AddNonTerminal("a", "")
	b := g.AddNonTerminal("b", "")

	// s : a | b ; a : x ; b : x — every production is a proxy, so the
	// whole chain folds into a single shift of x and no reduce of a, b,
	// or s ever appears.
	g.BuildProduction(s, symbolParts(a), nil)
	g.BuildProduction(s, symbolParts(b), nil)
	g.BuildProduction(a, symbolParts(x), nil)
	g.BuildProduction(b, symbolParts(x), nil)

	mustCompileGrammar(t, g, false)

	if g.conflictCount != 0 {
		t.Fatalf("proxy folding must not produce conflicts; got %v", g.conflictCount)
	}

	xState := findTransition(g.states[0], x)
	if xState == nil {
		t.Fatalf("the start state must shift x")
	}
	kernel := xState.kernelItems()
	if len(kernel) != 1 || kernel[0].prod != g.startProduction {
		t.Fatalf("shifting x must jump over the proxy chain into the start production's item")
	}
}

func TestBuildMachineNeedsFirsts(t *testing.T) {
	g := NewGrammar(nil)
	a := g.AddTerminal("a", "")
	s := g.AddNonTerminal("s", "")
	g.BuildProduction(s, symbolParts(a), nil)

	_, err := g.BuildMachine()
	if err == nil {
		t.Fatalf("BuildMachine must fail without FIRST sets")
	}
}

// Lookahead propagation must flow through listener cycles built by
// left-recursive rules.
func TestLookaheadPropagation(t *testing.T) {
	g := NewGrammar(nil)
	a := g.AddTerminal("a", "")
	sep := g.AddTerminal("sep", "")

	list := g.AddNonTerminal("list", "")

	// list : list sep a | a
	prodRec := g.BuildProduction(list, symbolParts(list, sep, a), nil)
	g.BuildProduction(list, symbolParts(a), nil)

	mustCompileGrammar(t, g, false)

	// In the state after "list sep a", the reduce item's lookahead must
	// contain both eof (from the start production) and sep (from the
	// recursion).
	s0 := g.states[0]
	listState := findTransition(s0, list)
	sepState := findTransition(listState, sep)
	endState := findTransition(sepState, a)
	reduceItem := prodRec.startItem().shiftedItem().shiftedItem().shiftedItem()
	la := endState.lookaheads(reduceItem)
	if la == nil {
		t.Fatalf("the reduce item must be in the final state")
	}
	assertTerminalSet(t, la.TerminalSet, g.eofTerminal, sep)
}

func TestLookaheadsListenerGraph(t *testing.T) {
	set1 := newTerminalSet(8)
	set2 := newTerminalSet(8)
	la1 := newLookaheads(set1)
	la2 := newLookaheads(set2)
	la3 := newLookaheads(set2)

	// A cycle: la1 -> la2 -> la3 -> la1.
	la1.addListener(la2)
	la2.addListener(la3)
	la3.addListener(la1)

	increment := newTerminalSet(8)
	increment.set(3)
	if !la1.add(increment) {
		t.Fatalf("adding a new terminal must report a change")
	}
	for i, la := range []*Lookaheads{la1, la2, la3} {
		if !la.contains(3) {
			t.Fatalf("lookaheads #%v must have received the propagated terminal", i+1)
		}
	}

	if la1.add(increment) {
		t.Fatalf("adding the same terminal twice must not report a change")
	}
}
