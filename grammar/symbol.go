package grammar

// Associativity of a terminal symbol.
type Associativity int

const (
	AssocLeft     = Associativity(0)
	AssocNonassoc = Associativity(1)
	AssocRight    = Associativity(2)
	AssocNoPrec   = Associativity(-1)
)

func (a Associativity) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocNonassoc:
		return "nonassoc"
	case AssocRight:
		return "right"
	}
	return "noprec"
}

// NoPrec marks a terminal or production that carries no precedence level.
// It is distinct from level 0 so that an explicit lowest level never gets
// mistaken for "undeclared".
const NoPrec = -1

const (
	terminalIndexError = 0
	terminalIndexEOF   = 1

	reservedNameError = "error"
	reservedNameEOF   = "eof"
)

type symbolBase struct {
	name     string
	typ      string
	index    int
	useCount int

	// Companion non-terminals synthesized for the EBNF operators *, +, ?.
	star *NonTerminal
	plus *NonTerminal
	opt  *NonTerminal
}

func (b *symbolBase) Name() string {
	return b.name
}

// Type returns the stack-slot type tag of the symbol. An empty string means
// the symbol is untyped.
func (b *symbolBase) Type() string {
	return b.typ
}

func (b *symbolBase) Index() int {
	return b.index
}

func (b *symbolBase) UseCount() int {
	return b.useCount
}

func (b *symbolBase) incrementUseCount() {
	b.useCount++
}

// Symbol is either a *Terminal or a *NonTerminal.
type Symbol interface {
	Name() string
	Type() string
	Index() int
	UseCount() int
	IsNonTerminal() bool

	base() *symbolBase
}

// compareSymbols orders terminals before non-terminals and otherwise by
// index. The transition builder iterates symbols in this order, which keeps
// the generated tables identical across runs.
func compareSymbols(a, b Symbol) int {
	if a.IsNonTerminal() != b.IsNonTerminal() {
		if a.IsNonTerminal() {
			return 1
		}
		return -1
	}
	return a.Index() - b.Index()
}

type Terminal struct {
	symbolBase

	level int
	assoc Associativity
}

func newTerminal(name, typ string, index int) *Terminal {
	return &Terminal{
		symbolBase: symbolBase{
			name:  name,
			typ:   typ,
			index: index,
		},
		level: NoPrec,
		assoc: AssocNoPrec,
	}
}

func (t *Terminal) IsNonTerminal() bool {
	return false
}

func (t *Terminal) base() *symbolBase {
	return &t.symbolBase
}

func (t *Terminal) Level() int {
	return t.level
}

func (t *Terminal) Associativity() Associativity {
	return t.assoc
}

func (t *Terminal) setPrecedence(assoc Associativity, level int) {
	t.assoc = assoc
	t.level = level
}

type NonTerminal struct {
	symbolBase

	// productions contains every production whose LHS is this symbol.
	productions []*Production

	nullable bool
	firsts   *TerminalSet
}

func newNonTerminal(name, typ string, index int) *NonTerminal {
	return &NonTerminal{
		symbolBase: symbolBase{
			name:  name,
			typ:   typ,
			index: index,
		},
	}
}

func (n *NonTerminal) IsNonTerminal() bool {
	return true
}

func (n *NonTerminal) base() *symbolBase {
	return &n.symbolBase
}

func (n *NonTerminal) isNullable() bool {
	return n.nullable
}

func (n *NonTerminal) addProduction(prod *Production) {
	n.productions = append(n.productions, prod)
}

// checkNullable reports whether the nullability of this non-terminal changed
// by looking at its productions once. The fixpoint driver calls it until no
// flag flips anymore.
func (n *NonTerminal) checkNullable() bool {
	if n.nullable {
		return false
	}

	for _, prod := range n.productions {
		if prod.checkNullable() {
			n.nullable = true
			return true
		}
	}

	return false
}
