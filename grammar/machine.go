package grammar

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
)

func itemComparator(a, b interface{}) int {
	return compareItems(a.(*LrItem), b.(*LrItem))
}

func symbolComparator(a, b interface{}) int {
	return compareSymbols(a.(Symbol), b.(Symbol))
}

func newItemMap() *treemap.Map {
	return treemap.NewWith(itemComparator)
}

// kernelID identifies a state by the set of items in its kernel. Lookahead
// contents are deliberately excluded: two kernels with the same items are
// the same LALR state, and new lookaheads merge into the existing one.
type kernelID [32]byte

func (id kernelID) String() string {
	return fmt.Sprintf("%x", binary.LittleEndian.Uint32(id[:]))
}

// computeKernelID hashes the (production, dot) pairs of the kernel in item
// order.
func computeKernelID(items []*LrItem) kernelID {
	b := make([]byte, 0, len(items)*8)
	for _, item := range items {
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[:4], uint32(item.prod.index))
		binary.LittleEndian.PutUint32(buf[4:], uint32(item.dot))
		b = append(b, buf[:]...)
	}
	return sha256.Sum256(b)
}

type lalrTransition struct {
	sym Symbol
	to  *LalrState
}

// LalrState is a state of the viable-prefix recognition machine: an ordered
// map from items to their lookaheads plus the transitions out of the state.
type LalrState struct {
	index int

	// items maps *LrItem to *Lookaheads in item order.
	items *treemap.Map

	transitions []*lalrTransition
}

func newLalrState(kernel *treemap.Map, index int) *LalrState {
	s := &LalrState{
		index: index,
		items: newItemMap(),
	}
	kernel.Each(func(k, v interface{}) {
		s.items.Put(k, newLookaheads(v.(*TerminalSet)))
	})
	return s
}

func (s *LalrState) Index() int {
	return s.index
}

func (s *LalrState) lookaheads(item *LrItem) *Lookaheads {
	v, ok := s.items.Get(item)
	if !ok {
		return nil
	}
	return v.(*Lookaheads)
}

// kernelItems returns the items inherited from a predecessor, as opposed to
// the ones closure added. The start production's dot-0 item counts as
// kernel.
func (s *LalrState) kernelItems() []*LrItem {
	var items []*LrItem
	s.items.Each(func(k, _ interface{}) {
		item := k.(*LrItem)
		if item.dot > 0 || item.prod.index == 0 {
			items = append(items, item)
		}
	})
	return items
}

// mergeLookaheads unions a new kernel's lookahead increments into the
// existing entries. Growth propagates through the listener graph built
// during closure and successor computation.
func (s *LalrState) mergeLookaheads(kernel *treemap.Map) {
	kernel.Each(func(k, v interface{}) {
		s.lookaheads(k.(*LrItem)).add(v.(*TerminalSet))
	})
}

// getLalrState returns the state for the given kernel, merging lookaheads
// into an existing state when the kernel is already known, or allocating and
// registering a fresh state otherwise. kernel maps *LrItem to *TerminalSet.
func (g *Grammar) getLalrState(kernel *treemap.Map) *LalrState {
	items := make([]*LrItem, 0, kernel.Size())
	kernel.Each(func(k, v interface{}) {
		items = append(items, k.(*LrItem))
	})
	id := computeKernelID(items)

	if state, ok := g.kernelToState[id]; ok {
		state.mergeLookaheads(kernel)
		return state
	}

	state := newLalrState(kernel, len(g.states))
	g.states = append(g.states, state)
	g.kernelToState[id] = state
	return state
}

// computeClosure expands the kernel with an item [N ::= ・β, newLA] for
// every production of every non-terminal N appearing after a dot. newLA is
// the lookahead of the tail behind N; when that tail is nullable the parent
// item's lookahead joins in, and the parent registers the closure item as a
// propagation listener so later merges flow through.
func (s *LalrState) computeClosure(g *Grammar) {
	consider := make([]*LrItem, 0, s.items.Size())
	s.items.Each(func(k, v interface{}) {
		consider = append(consider, k.(*LrItem))
	})

	for len(consider) > 0 {
		item := consider[len(consider)-1]
		consider = consider[:len(consider)-1]

		nt := item.nonTerminalAfterDot()
		if nt == nil {
			continue
		}

		nextItem := item.shiftedItem()
		newLA := nextItem.calcLookahead(g)

		needPropagation := nextItem.tailNullable()
		itemLookaheads := s.lookaheads(item)
		if needPropagation {
			newLA.union(itemLookaheads.TerminalSet)
		}

		for _, prod := range nt.productions {
			newItem := prod.startItem()
			var newLa *Lookaheads
			if existing := s.lookaheads(newItem); existing != nil {
				newLa = existing
				newLa.add(newLA)
			} else {
				newLa = newLookaheads(newLA)
				s.items.Put(newItem, newLa)
				consider = append(consider, newItem)
			}

			if needPropagation {
				itemLookaheads.addListener(newLa)
			}
		}
	}
}

// computeSuccessors builds one transition per symbol appearing after a dot.
// Items whose production is a proxy (single-symbol RHS, no action) do not
// shift into the successor themselves; instead the proxy's LHS joins the
// symbol worklist so the items waiting for it shift in their place. That
// folds the no-op reduction of the proxy away entirely.
func (s *LalrState) computeSuccessors(g *Grammar) {
	outgoing := treemap.NewWith(symbolComparator)
	s.items.Each(func(k, v interface{}) {
		item := k.(*LrItem)
		sym := item.symbolAfterDot()
		if sym == nil {
			return
		}
		var items []*LrItem
		if v, ok := outgoing.Get(sym); ok {
			items = v.([]*LrItem)
		}
		outgoing.Put(sym, append(items, item))
	})

	outgoing.Each(func(k, v interface{}) {
		out := k.(Symbol)

		newItems := newItemMap()
		proxySymbols := []Symbol{out}
		for i := 0; i < len(proxySymbols); i++ {
			items, ok := outgoing.Get(proxySymbols[i])
			if !ok {
				continue
			}
			for _, item := range items.([]*LrItem) {
				if item.prod.isProxy() {
					proxy := Symbol(item.prod.lhs)
					known := false
					for _, ps := range proxySymbols {
						if ps == proxy {
							known = true
							break
						}
					}
					if !known {
						proxySymbols = append(proxySymbols, proxy)
					}
				} else {
					newItems.Put(item.shiftedItem(), s.lookaheads(item).TerminalSet)
				}
			}
		}
		if newItems.Empty() {
			return
		}

		successor := g.getLalrState(newItems)

		for _, sym := range proxySymbols {
			items, ok := outgoing.Get(sym)
			if !ok {
				continue
			}
			for _, item := range items.([]*LrItem) {
				if !item.prod.isProxy() {
					s.lookaheads(item).addListener(successor.lookaheads(item.shiftedItem()))
				}
			}
		}

		s.transitions = append(s.transitions, &lalrTransition{
			sym: out,
			to:  successor,
		})
	})
}

// BuildMachine constructs the LALR(1) automaton. The start state's kernel is
// the start production's item with EOF as lookahead; the driver then walks
// the state vector, which keeps growing while closures and successors
// discover new kernels, until it catches up.
func (g *Grammar) BuildMachine() (*LalrState, error) {
	if g.startProduction == nil {
		return nil, fmt.Errorf("cannot build the machine without a start production")
	}
	if !g.firstsDone {
		return nil, fmt.Errorf("cannot build the machine without FIRST sets")
	}
	if len(g.states) > 0 {
		return g.states[0], nil
	}

	lookahead := newTerminalSet(g.TerminalCount())
	lookahead.addTerminal(g.eofTerminal)
	kernel := newItemMap()
	kernel.Put(g.startProduction.startItem(), lookahead)
	startState := g.getLalrState(kernel)

	for i := 0; i < len(g.states); i++ {
		st := g.states[i]
		st.computeClosure(g)
		st.computeSuccessors(g)
	}

	return startState, nil
}
