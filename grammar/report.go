package grammar

import (
	"sort"

	"github.com/calathus/cupola/spec"
)

// genReport snapshots the finished automaton and tables into the
// serializable report format.
func (g *Grammar) genReport() *spec.Report {
	terms := make([]*spec.Terminal, len(g.terminals))
	for i, t := range g.terminals {
		rt := &spec.Terminal{
			Number: t.index,
			Name:   t.name,
		}
		if t.level != NoPrec {
			rt.Precedence = t.level
			rt.Associativity = t.assoc.String()
		}
		terms[i] = rt
	}

	nonTerms := make([]*spec.NonTerminal, len(g.nonTerminals))
	for i, nt := range g.nonTerminals {
		nonTerms[i] = &spec.NonTerminal{
			Number: nt.index,
			Name:   nt.name,
		}
	}

	prods := make([]*spec.Production, len(g.productions))
	for _, p := range g.productions {
		rhs := make([]int, len(p.rhs))
		for i, part := range p.rhs {
			if part.sym.IsNonTerminal() {
				rhs[i] = -(part.sym.Index() + 1)
			} else {
				rhs[i] = part.sym.Index() + 1
			}
		}
		rp := &spec.Production{
			Number: p.index,
			LHS:    p.lhs.index,
			RHS:    rhs,
		}
		if p.level != NoPrec {
			rp.Precedence = p.level
			rp.Associativity = p.assoc.String()
		}
		prods[p.index] = rp
	}

	srConflicts := map[int][]*shiftReduceConflict{}
	rrConflicts := map[int][]*reduceReduceConflict{}
	for _, con := range g.conflicts {
		switch c := con.(type) {
		case *shiftReduceConflict:
			srConflicts[c.state] = append(srConflicts[c.state], c)
		case *reduceReduceConflict:
			rrConflicts[c.state] = append(rrConflicts[c.state], c)
		}
	}

	states := make([]*spec.State, len(g.states))
	for _, s := range g.states {
		var kernel []*spec.Item
		for _, item := range s.kernelItems() {
			kernel = append(kernel, &spec.Item{
				Production: item.prod.index,
				Dot:        item.dot,
			})
		}

		var shift []*spec.Transition
		var reduce []*spec.Reduce
		var goTo []*spec.Transition
	TERMINAL_LOOP:
		for t := 0; t < g.TerminalCount(); t++ {
			act := g.actionTable.Action(s.index, t)
			switch {
			case isShiftActionCode(act):
				shift = append(shift, &spec.Transition{
					Symbol: t,
					State:  actionCodeIndex(act),
				})
			case isReduceActionCode(act):
				prodNum := g.actions[actionCodeIndex(act)].index
				for _, r := range reduce {
					if r.Production == prodNum {
						r.LookAhead = append(r.LookAhead, t)
						continue TERMINAL_LOOP
					}
				}
				reduce = append(reduce, &spec.Reduce{
					LookAhead:  []int{t},
					Production: prodNum,
				})
			}
		}
		for n := 0; n < g.NonTerminalCount(); n++ {
			if next := g.reduceTable.GoTo(s.index, n); next != nil {
				goTo = append(goTo, &spec.Transition{
					Symbol: n,
					State:  next.index,
				})
			}
		}

		sort.Slice(shift, func(i, j int) bool {
			return shift[i].State < shift[j].State
		})
		sort.Slice(reduce, func(i, j int) bool {
			return reduce[i].Production < reduce[j].Production
		})
		sort.Slice(goTo, func(i, j int) bool {
			return goTo[i].State < goTo[j].State
		})

		sr := []*spec.SRConflict{}
		for _, c := range srConflicts[s.index] {
			conflict := &spec.SRConflict{
				Symbol:     c.sym.index,
				State:      c.nextState,
				Production: c.prod.index,
				ResolvedBy: c.resolvedBy.Int(),
			}
			act := g.actionTable.Action(s.index, c.sym.index)
			switch {
			case isShiftActionCode(act):
				n := actionCodeIndex(act)
				conflict.AdoptedState = &n
			case isReduceActionCode(act):
				n := g.actions[actionCodeIndex(act)].index
				conflict.AdoptedProduction = &n
			}
			sr = append(sr, conflict)
		}
		sort.Slice(sr, func(i, j int) bool {
			return sr[i].Symbol < sr[j].Symbol
		})

		rr := []*spec.RRConflict{}
		for _, c := range rrConflicts[s.index] {
			for _, t := range c.symbols.terminalIndices() {
				rr = append(rr, &spec.RRConflict{
					Symbol:            t,
					Production1:       c.prod1.index,
					Production2:       c.prod2.index,
					AdoptedProduction: c.prod1.index,
					ResolvedBy:        c.resolvedBy.Int(),
				})
			}
		}
		sort.Slice(rr, func(i, j int) bool {
			return rr[i].Symbol < rr[j].Symbol
		})

		states[s.index] = &spec.State{
			Number:     s.index,
			Kernel:     kernel,
			Shift:      shift,
			Reduce:     reduce,
			GoTo:       goTo,
			SRConflict: sr,
			RRConflict: rr,
		}
	}

	return &spec.Report{
		Terminals:    terms,
		NonTerminals: nonTerms,
		Productions:  prods,
		States:       states,
	}
}
