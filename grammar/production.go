package grammar

import (
	"fmt"
	"strings"
)

// Part is an element of a right-hand side handed to BuildProduction: either
// a symbol (with an optional label) or an embedded action payload.
type Part interface {
	part()
}

// SymbolPart pairs a grammar symbol with an optional label the semantic
// action can refer to it by.
type SymbolPart struct {
	sym   Symbol
	label string
}

func NewSymbolPart(sym Symbol) *SymbolPart {
	return &SymbolPart{
		sym: sym,
	}
}

func NewLabeledSymbolPart(sym Symbol, label string) *SymbolPart {
	return &SymbolPart{
		sym:   sym,
		label: label,
	}
}

func (p *SymbolPart) part() {}

func (p *SymbolPart) Symbol() Symbol {
	return p.sym
}

func (p *SymbolPart) Label() string {
	return p.label
}

// ActionPart carries an opaque code payload for the target language. The
// analyzer never interprets it; it only compares payloads for equality when
// sharing action indices.
type ActionPart struct {
	code string
}

func NewActionPart(code string) *ActionPart {
	return &ActionPart{
		code: code,
	}
}

func (p *ActionPart) part() {}

func (p *ActionPart) Code() string {
	return p.code
}

func (p *ActionPart) addCode(moreCode string) {
	p.code += moreCode
}

var (
	_ Part = &SymbolPart{}
	_ Part = &ActionPart{}
)

// Production is a single rewrite rule. actionIndex is shared between
// productions that reduce with the same semantic action; proxy productions
// (one RHS symbol, no action) carry -1 because their reduction is a no-op
// the successor computation folds away.
type Production struct {
	index       int
	actionIndex int
	lhs         *NonTerminal
	rhs         []*SymbolPart
	action      *ActionPart

	level int
	assoc Associativity

	nullableKnown bool
	nullable      bool

	// indexOfIntermediateResult is the RHS position of the previous
	// mid-rule action, or -1. Only the emitter consumes it.
	indexOfIntermediateResult int

	startItm *LrItem

	// base and actionPosition are set only on action productions factored
	// out of a base production's RHS.
	base           *Production
	actionPosition int
}

func newProduction(g *Grammar, index, actionIndex int, lhs *NonTerminal, rhs []*SymbolPart, lastActionPosition int, action *ActionPart, prec *Terminal) *Production {
	p := &Production{
		index:                     index,
		actionIndex:               actionIndex,
		lhs:                       lhs,
		rhs:                       rhs,
		action:                    action,
		level:                     NoPrec,
		assoc:                     AssocNoPrec,
		indexOfIntermediateResult: lastActionPosition,
		actionPosition:            -1,
	}

	if prec != nil {
		p.level = prec.level
		p.assoc = prec.assoc
	}

	for _, part := range rhs {
		part.sym.base().incrementUseCount()

		if prec != nil {
			continue
		}
		term, ok := part.sym.(*Terminal)
		if !ok || term.level == NoPrec {
			continue
		}
		if p.level == NoPrec {
			p.level = term.level
			p.assoc = term.assoc
		} else {
			g.errman.EmitError("production %v has more than one precedence symbol", p)
		}
	}

	lhs.addProduction(p)

	return p
}

func newActionProduction(g *Grammar, index, actionIndex int, base *Production, lhs *NonTerminal, action *ActionPart, actionPosition, lastActionPosition int) *Production {
	p := newProduction(g, index, actionIndex, lhs, nil, lastActionPosition, action, nil)
	p.base = base
	p.actionPosition = actionPosition
	return p
}

func (p *Production) Index() int {
	return p.index
}

func (p *Production) ActionIndex() int {
	return p.actionIndex
}

func (p *Production) LHS() *NonTerminal {
	return p.lhs
}

func (p *Production) RHSLen() int {
	return len(p.rhs)
}

func (p *Production) RHSAt(i int) *SymbolPart {
	return p.rhs[i]
}

func (p *Production) Action() *ActionPart {
	return p.action
}

func (p *Production) Level() int {
	return p.level
}

func (p *Production) Associativity() Associativity {
	return p.assoc
}

func (p *Production) IndexOfIntermediateResult() int {
	return p.indexOfIntermediateResult
}

// BaseProduction returns the production an action production was factored
// out of, or nil.
func (p *Production) BaseProduction() *Production {
	return p.base
}

// ActionPosition returns the RHS position the factored action occupied in
// its base production, or -1.
func (p *Production) ActionPosition() int {
	return p.actionPosition
}

func (p *Production) isEmpty() bool {
	return len(p.rhs) == 0
}

func (p *Production) isProxy() bool {
	return len(p.rhs) == 1 && p.action == nil
}

// startItem returns the item with the dot at the beginning of the RHS. The
// item is created once per production so that item identity is pointer
// identity everywhere in the machine.
func (p *Production) startItem() *LrItem {
	if p.startItm == nil {
		p.startItm = &LrItem{
			prod: p,
		}
	}
	return p.startItm
}

// checkNullable memoizes whether the production can derive the empty string
// under the current non-terminal nullability flags.
func (p *Production) checkNullable() bool {
	if p.nullableKnown {
		return p.nullable
	}

	if len(p.rhs) == 0 {
		return p.setNullable(true)
	}

	for _, part := range p.rhs {
		nt, ok := part.sym.(*NonTerminal)
		if !ok {
			return p.setNullable(false)
		}
		if !nt.isNullable() {
			// Not known to be nullable yet; don't memoize, a later
			// pass may flip it.
			return false
		}
	}

	return p.setNullable(true)
}

func (p *Production) setNullable(v bool) bool {
	p.nullableKnown = true
	p.nullable = v
	return v
}

func (p *Production) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v ::=", p.lhs.name)
	for _, part := range p.rhs {
		fmt.Fprintf(&b, " %v", part.sym.Name())
	}
	if len(p.rhs) == 0 {
		fmt.Fprintf(&b, " ε")
	}
	return b.String()
}
