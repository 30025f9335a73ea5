package grammar

import (
	"fmt"
	"strings"
)

// Action cells pack the action kind and its operand into one integer:
// ERROR is 0, SHIFT(s) is 2s+1, REDUCE(a) is 2a+2 where a is the action
// index of the reduced production.
const actionError = 0

func shiftActionCode(state int) int {
	return 2*state + 1
}

func reduceActionCode(actionIndex int) int {
	return 2*actionIndex + 2
}

func isShiftActionCode(code int) bool {
	return code&1 != 0
}

func isReduceActionCode(code int) bool {
	return code != actionError && code&1 == 0
}

func actionCodeIndex(code int) int {
	return (code - 1) >> 1
}

// ParseActionTable has one row per state and one column per terminal, plus a
// trailing per-row default column the compressor consumes.
type ParseActionTable struct {
	rows          [][]int
	terminalCount int
}

func newParseActionTable(stateCount, terminalCount int) *ParseActionTable {
	rows := make([][]int, stateCount)
	for i := range rows {
		rows[i] = make([]int, terminalCount+1)
	}
	return &ParseActionTable{
		rows:          rows,
		terminalCount: terminalCount,
	}
}

func (t *ParseActionTable) Rows() [][]int {
	return t.rows
}

// Action returns the raw cell for a state and terminal index.
func (t *ParseActionTable) Action(state, terminal int) int {
	return t.rows[state][terminal]
}

// DefaultAction returns the per-row default chosen during table building.
func (t *ParseActionTable) DefaultAction(state int) int {
	return t.rows[state][t.terminalCount]
}

// ParseReduceTable is the reduce-goto table: one row per state, one column
// per non-terminal, each entry the destination state of a goto.
type ParseReduceTable struct {
	rows             [][]*LalrState
	nonTerminalCount int
}

func newParseReduceTable(stateCount, nonTerminalCount int) *ParseReduceTable {
	rows := make([][]*LalrState, stateCount)
	for i := range rows {
		rows[i] = make([]*LalrState, nonTerminalCount)
	}
	return &ParseReduceTable{
		rows:             rows,
		nonTerminalCount: nonTerminalCount,
	}
}

// GoTo returns the destination state for a goto, or nil.
func (t *ParseReduceTable) GoTo(state, nonTerminal int) *LalrState {
	return t.rows[state][nonTerminal]
}

type conflictResolutionMethod int

func (m conflictResolutionMethod) Int() int {
	return int(m)
}

const (
	ResolvedByPrec      = conflictResolutionMethod(1)
	ResolvedByAssoc     = conflictResolutionMethod(2)
	ResolvedByShift     = conflictResolutionMethod(3)
	ResolvedByProdOrder = conflictResolutionMethod(4)
)

type conflict interface {
	conflict()
}

type shiftReduceConflict struct {
	state      int
	sym        *Terminal
	nextState  int
	prod       *Production
	resolvedBy conflictResolutionMethod
}

func (c *shiftReduceConflict) conflict() {}

type reduceReduceConflict struct {
	state      int
	symbols    *TerminalSet
	prod1      *Production
	prod2      *Production
	resolvedBy conflictResolutionMethod
}

func (c *reduceReduceConflict) conflict() {}

var (
	_ conflict = &shiftReduceConflict{}
	_ conflict = &reduceReduceConflict{}
)

// buildTableEntries fills in this state's action and reduce-goto rows.
//
// Completed items write a reduce under every lookahead terminal; when a cell
// is taken the earlier item keeps it (items iterate in production order) and
// the reduce/reduce conflict is reported. Transitions on terminals write
// shifts; a collision with a reduce goes through precedence resolution and
// otherwise resolves to shift with a reported conflict. Transitions on
// non-terminals fill the goto row.
//
// With compactReduces, the most-covered reduce becomes the row default and
// the remaining error cells are folded into it, with two exceptions: an
// empty-RHS reduce may not become default on a single lookahead, and the
// error terminal's column never reads an empty-RHS default. A reduce written
// for the error terminal forces itself as the default; a shift there forces
// the row to keep no default.
func (s *LalrState) buildTableEntries(g *Grammar, act *ParseActionTable, red *ParseReduceTable, compactReduces bool) {
	terminalCount := g.TerminalCount()
	row := act.rows[s.index]
	reduceProds := make([]*Production, terminalCount)

	defaultLASize := 0
	defaultAction := actionError
	defaultProdIsEmpty := false

	orderedItems := make([]*LrItem, 0, s.items.Size())
	s.items.Each(func(k, _ interface{}) {
		orderedItems = append(orderedItems, k.(*LrItem))
	})

	for itemPos, item := range orderedItems {
		if !item.isDotAtEnd() {
			continue
		}

		lookaheads := s.lookaheads(item)
		actCode := reduceActionCode(item.prod.actionIndex)
		laSize := 0
		conflicted := false

		for t := 0; t < terminalCount; t++ {
			if !lookaheads.contains(t) {
				continue
			}
			laSize++

			if row[t] == actionError {
				row[t] = actCode
				reduceProds[t] = item.prod
			} else {
				// The earlier production already owns the cell.
				conflicted = true
			}
		}

		if conflicted {
			for _, earlier := range orderedItems[:itemPos] {
				if !earlier.isDotAtEnd() {
					continue
				}
				earlierLA := s.lookaheads(earlier)
				if earlierLA.intersects(lookaheads.TerminalSet) {
					g.reportReduceReduceConflict(s, earlier, earlierLA, item, lookaheads)
				}
			}
		}

		if compactReduces && laSize > defaultLASize {
			// An empty-RHS default that covers a single lookahead
			// saves nothing and can loop the parser forever.
			if len(item.prod.rhs) != 0 || laSize > 1 {
				defaultProdIsEmpty = len(item.prod.rhs) == 0
				defaultLASize = laSize
				defaultAction = actCode
			}
		}
	}

	for _, trans := range s.transitions {
		idx := trans.sym.Index()
		if term, ok := trans.sym.(*Terminal); ok {
			shiftCode := shiftActionCode(trans.to.index)
			if row[idx] == actionError {
				row[idx] = shiftCode
			} else {
				p := reduceProds[idx]
				if !s.fixWithPrecedence(g, p, term, row, shiftCode, trans.to.index) {
					row[idx] = shiftCode
					g.reportShiftReduceConflict(s, p, term, trans.to.index)
				}
			}
		} else {
			red.rows[s.index][idx] = trans.to
		}
	}

	if compactReduces {
		// An action on the error terminal dictates the default.
		errAct := row[terminalIndexError]
		if errAct != actionError {
			if isReduceActionCode(errAct) {
				defaultAction = errAct
			} else {
				defaultAction = actionError
			}
			defaultProdIsEmpty = false
		}

		row[terminalCount] = defaultAction
		if defaultAction != actionError {
			for t := 0; t < terminalCount; t++ {
				if row[t] == actionError && (t != terminalIndexError || !defaultProdIsEmpty) {
					row[t] = defaultAction
				}
			}
		}
	}
}

// fixWithPrecedence attempts to resolve a shift/reduce conflict between a
// recorded reduce of p and a shift under term. Both need an explicit
// precedence level. A higher terminal level shifts, a lower one reduces, and
// on a tie the terminal's associativity decides: left reduces, right shifts,
// nonassoc empties the cell so the input is a syntax error. Returns false
// when precedence cannot decide.
func (s *LalrState) fixWithPrecedence(g *Grammar, p *Production, term *Terminal, row []int, shiftCode, nextState int) bool {
	if p == nil || p.level == NoPrec || term.level == NoPrec {
		return false
	}

	method := ResolvedByPrec
	keepShift := false
	clearCell := false
	switch {
	case term.level > p.level:
		keepShift = true
	case term.level < p.level:
		// keep the reduce
	default:
		method = ResolvedByAssoc
		switch term.assoc {
		case AssocRight:
			keepShift = true
		case AssocNonassoc:
			clearCell = true
		}
	}

	if keepShift {
		row[term.index] = shiftCode
	}
	if clearCell {
		row[term.index] = actionError
	}

	g.conflicts = append(g.conflicts, &shiftReduceConflict{
		state:      s.index,
		sym:        term,
		nextState:  nextState,
		prod:       p,
		resolvedBy: method,
	})

	return true
}

func (g *Grammar) reportShiftReduceConflict(state *LalrState, p *Production, sym *Terminal, nextState int) {
	var b strings.Builder
	fmt.Fprintf(&b, "shift/reduce conflict found in state #%v\n", state.index)
	fmt.Fprintf(&b, "  between %v (*)\n", p)
	state.items.Each(func(k, _ interface{}) {
		item := k.(*LrItem)
		if !item.isDotAtEnd() && item.symbolAfterDot() == Symbol(sym) {
			fmt.Fprintf(&b, "  and     %v\n", item)
		}
	})
	fmt.Fprintf(&b, "  under symbol %v\n", sym.name)
	fmt.Fprintf(&b, "  resolved in favor of shifting")

	g.conflictCount++
	g.conflicts = append(g.conflicts, &shiftReduceConflict{
		state:      state.index,
		sym:        sym,
		nextState:  nextState,
		prod:       p,
		resolvedBy: ResolvedByShift,
	})
	g.errman.EmitWarning("%v", b.String())
}

func (g *Grammar) reportReduceReduceConflict(state *LalrState, item1 *LrItem, la1 *Lookaheads, item2 *LrItem, la2 *Lookaheads) {
	shared := newTerminalSet(g.TerminalCount())
	var b strings.Builder
	fmt.Fprintf(&b, "reduce/reduce conflict found in state #%v\n", state.index)
	fmt.Fprintf(&b, "  between %v\n", item1)
	fmt.Fprintf(&b, "  and     %v\n", item2)
	fmt.Fprintf(&b, "  under symbols: {")
	comma := ""
	for t := 0; t < g.TerminalCount(); t++ {
		if la1.contains(t) && la2.contains(t) {
			shared.set(t)
			fmt.Fprintf(&b, "%v%v", comma, g.terminals[t].name)
			comma = ", "
		}
	}
	fmt.Fprintf(&b, "}\n")
	fmt.Fprintf(&b, "  resolved in favor of the first production")

	g.conflictCount++
	g.conflicts = append(g.conflicts, &reduceReduceConflict{
		state:      state.index,
		symbols:    shared,
		prod1:      item1.prod,
		prod2:      item2.prod,
		resolvedBy: ResolvedByProdOrder,
	})
	g.errman.EmitError("%v", b.String())
}

// BuildTables fills in the action and reduce-goto tables for every state.
func (g *Grammar) BuildTables(compactReduces bool) error {
	if len(g.states) == 0 {
		return fmt.Errorf("cannot build tables without the machine")
	}

	g.actionTable = newParseActionTable(len(g.states), g.TerminalCount())
	g.reduceTable = newParseReduceTable(len(g.states), g.NonTerminalCount())
	for _, s := range g.states {
		s.buildTableEntries(g, g.actionTable, g.reduceTable, compactReduces)
	}

	return nil
}

// CheckTables warns about productions whose action never appears as a
// reduce in the finished action table.
func (g *Grammar) CheckTables() {
	if g.actionTable == nil {
		return
	}

	used := make([]bool, len(g.actions))
	for _, row := range g.actionTable.rows {
		for t := 0; t < g.actionTable.terminalCount; t++ {
			if isReduceActionCode(row[t]) {
				used[actionCodeIndex(row[t])] = true
			}
		}
	}

	for _, prod := range g.actions {
		if !used[prod.actionIndex] {
			g.errman.EmitWarning("production %q is never reduced", prod.String())
		}
	}
}
