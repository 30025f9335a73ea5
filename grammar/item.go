package grammar

import (
	"fmt"
	"strings"
)

// LrItem is a production with a dot position. Items are interned: the dot-0
// item lives on its production and every advance is memoized, so two items
// with the same production and dot are always the same object.
type LrItem struct {
	prod *Production
	dot  int

	shifted *LrItem
}

func (i *LrItem) isDotAtEnd() bool {
	return i.dot >= len(i.prod.rhs)
}

func (i *LrItem) symbolAfterDot() Symbol {
	if i.dot < len(i.prod.rhs) {
		return i.prod.rhs[i.dot].sym
	}
	return nil
}

func (i *LrItem) nonTerminalAfterDot() *NonTerminal {
	sym := i.symbolAfterDot()
	if nt, ok := sym.(*NonTerminal); ok {
		return nt
	}
	return nil
}

// shiftedItem returns the item with the dot advanced one position, or nil
// when the dot is already at the end.
func (i *LrItem) shiftedItem() *LrItem {
	if i.isDotAtEnd() {
		return nil
	}
	if i.shifted == nil {
		i.shifted = &LrItem{
			prod: i.prod,
			dot:  i.dot + 1,
		}
	}
	return i.shifted
}

// compareItems orders items by production index first, then dot position.
// State item maps iterate in this order, which makes reduce/reduce conflicts
// resolve toward the production declared first.
func compareItems(a, b *LrItem) int {
	if a.prod != b.prod {
		return a.prod.index - b.prod.index
	}
	return a.dot - b.dot
}

// calcLookahead collects the terminals that can appear right after the dot:
// scanning the tail, a terminal is added and ends the scan; a non-terminal
// contributes its FIRST set and ends the scan unless it is nullable. The
// item's own inherited lookahead is not included; the caller decides whether
// to union it in.
func (i *LrItem) calcLookahead(g *Grammar) *TerminalSet {
	result := newTerminalSet(g.TerminalCount())

	for pos := i.dot; pos < len(i.prod.rhs); pos++ {
		sym := i.prod.rhs[pos].sym
		if nt, ok := sym.(*NonTerminal); ok {
			result.union(nt.firsts)
			if !nt.isNullable() {
				break
			}
		} else {
			result.addTerminal(sym.(*Terminal))
			break
		}
	}

	return result
}

// tailNullable reports whether everything from the dot to the end of the
// RHS can derive the empty string. When the tail of a shifted item is
// nullable, the parent item's lookahead propagates into the closure items.
func (i *LrItem) tailNullable() bool {
	for pos := i.dot; pos < len(i.prod.rhs); pos++ {
		nt, ok := i.prod.rhs[pos].sym.(*NonTerminal)
		if !ok {
			return false
		}
		if !nt.isNullable() {
			return false
		}
	}
	return true
}

func (i *LrItem) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v ::=", i.prod.lhs.name)
	for pos, part := range i.prod.rhs {
		if pos == i.dot {
			fmt.Fprintf(&b, " ・")
		}
		fmt.Fprintf(&b, " %v", part.sym.Name())
	}
	if i.isDotAtEnd() {
		fmt.Fprintf(&b, " ・")
	}
	return b.String()
}
