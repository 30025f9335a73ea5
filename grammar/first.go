package grammar

import "fmt"

// ComputeNullability computes the nullable flag of every non-terminal by a
// monotone fixpoint: a production is nullable iff every RHS symbol is a
// nullable non-terminal, and a non-terminal is nullable iff any of its
// productions is. Calling it again is a no-op.
func (g *Grammar) ComputeNullability() {
	if g.nullabilityDone {
		return
	}

	for {
		changed := false
		for _, nt := range g.nonTerminals {
			if nt.checkNullable() {
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	g.nullabilityDone = true
}

// ComputeFirsts computes the FIRST set of every non-terminal. Nullability
// must have been computed already.
func (g *Grammar) ComputeFirsts() error {
	if g.firstsDone {
		return nil
	}
	if !g.nullabilityDone {
		return fmt.Errorf("FIRST sets need nullability computed first")
	}

	for _, nt := range g.nonTerminals {
		nt.firsts = newTerminalSet(g.TerminalCount())
	}

	for {
		changed := false
		for _, nt := range g.nonTerminals {
			for _, prod := range nt.productions {
				prodFirsts := prod.startItem().calcLookahead(g)
				if nt.firsts.union(prodFirsts) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	g.firstsDone = true
	return nil
}
