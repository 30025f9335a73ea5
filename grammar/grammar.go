package grammar

import (
	"fmt"
	"strings"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"

	"github.com/calathus/cupola/compressor"
	verr "github.com/calathus/cupola/error"
	"github.com/calathus/cupola/spec"
)

// Synthetic action payloads attached to generated productions. The emitter
// recognizes the tags; the analyzer only compares them for equality.
const (
	actionAccept  = "$accept"
	actionOptNone = "OPT0"
	actionStar0   = "STAR0"
	actionStar1   = "STAR1"
	actionStar2   = "STAR2"
)

// Grammar owns every symbol, production, state and table of one run. It is
// populated through the builder API by the grammar-spec parser, then driven
// through the analysis phases by Compile.
type Grammar struct {
	name   string
	errman *verr.Manager

	terminals    []*Terminal
	nonTerminals []*NonTerminal
	productions  []*Production

	// actions holds one representative production per action index.
	actions []*Production

	errorTerminal *Terminal
	eofTerminal   *Terminal

	startProduction *Production

	kernelToState map[kernelID]*LalrState
	states        []*LalrState

	conflictCount     int
	conflicts         []conflict
	expectedConflicts int

	actionTable *ParseActionTable
	reduceTable *ParseReduceTable

	// lexEntries collects the lexical specification assembled from pattern
	// terminals; Compile hands it to maleeni.
	lexEntries []*mlspec.LexEntry

	nextAnonNonTerminal int
	nextPrecLevel       int

	nullabilityDone bool
	firstsDone      bool
}

func NewGrammar(errman *verr.Manager) *Grammar {
	if errman == nil {
		errman = verr.NewManager(nil)
	}
	g := &Grammar{
		errman:        errman,
		kernelToState: map[kernelID]*LalrState{},
		nextPrecLevel: 1,
	}
	g.errorTerminal = g.AddTerminal(reservedNameError, "")
	g.eofTerminal = g.AddTerminal(reservedNameEOF, "")
	return g
}

func (g *Grammar) Name() string {
	return g.name
}

func (g *Grammar) SetName(name string) {
	g.name = name
}

func (g *Grammar) TerminalCount() int {
	return len(g.terminals)
}

func (g *Grammar) NonTerminalCount() int {
	return len(g.nonTerminals)
}

func (g *Grammar) ProductionCount() int {
	return len(g.productions)
}

func (g *Grammar) ConflictCount() int {
	return g.conflictCount
}

func (g *Grammar) ErrorTerminal() *Terminal {
	return g.errorTerminal
}

func (g *Grammar) EOFTerminal() *Terminal {
	return g.eofTerminal
}

func (g *Grammar) StartProduction() *Production {
	return g.startProduction
}

func (g *Grammar) ActionTable() *ParseActionTable {
	return g.actionTable
}

func (g *Grammar) ReduceTable() *ParseReduceTable {
	return g.reduceTable
}

func (g *Grammar) States() []*LalrState {
	return g.states
}

// SetExpectedConflicts declares how many conflicts the grammar is allowed
// to produce. -1 disables the check.
func (g *Grammar) SetExpectedConflicts(n int) {
	g.expectedConflicts = n
}

// AddTerminal appends a terminal with the next free terminal index.
// Duplicate names are not detected here; the grammar-file front end must.
func (g *Grammar) AddTerminal(name, typ string) *Terminal {
	t := newTerminal(name, typ, len(g.terminals))
	g.terminals = append(g.terminals, t)
	return t
}

// AddNonTerminal appends a non-terminal with the next free index.
func (g *Grammar) AddNonTerminal(name, typ string) *NonTerminal {
	nt := newNonTerminal(name, typ, len(g.nonTerminals))
	g.nonTerminals = append(g.nonTerminals, nt)
	return nt
}

// SetPrecedenceGroup assigns the next precedence level to a group of
// terminals. Later groups bind tighter than earlier ones.
func (g *Grammar) SetPrecedenceGroup(terms []*Terminal, assoc Associativity) {
	level := g.nextPrecLevel
	g.nextPrecLevel++
	for _, t := range terms {
		t.setPrecedence(assoc, level)
	}
}

// SetStartSymbol creates the synthetic start production $START ::= nt eof.
// It is called at most once; when no start symbol has been declared the
// first built production's LHS becomes the start symbol implicitly.
func (g *Grammar) SetStartSymbol(nt *NonTerminal) {
	if g.startProduction != nil {
		return
	}

	var rhs []*SymbolPart
	if nt.typ != "" {
		rhs = append(rhs, NewLabeledSymbolPart(nt, "$rhs"))
	} else {
		rhs = append(rhs, NewSymbolPart(nt))
	}
	rhs = append(rhs, NewSymbolPart(g.eofTerminal))

	start := g.AddNonTerminal("$START", "")
	prod := newProduction(g, len(g.productions), len(g.actions), start, rhs, -1, NewActionPart(actionAccept), nil)
	g.productions = append(g.productions, prod)
	g.actions = append(g.actions, prod)
	start.incrementUseCount()

	g.startProduction = prod
}

func (g *Grammar) createAnonNonTerminal(typ string) *NonTerminal {
	nt := g.AddNonTerminal(fmt.Sprintf("NT$%v", g.nextAnonNonTerminal), typ)
	g.nextAnonNonTerminal++
	return nt
}

// GetStarSymbol returns the non-terminal implementing sym*, synthesizing it
// (and the plus symbol it is defined through) on first use.
func (g *Grammar) GetStarSymbol(sym Symbol) *NonTerminal {
	b := sym.base()
	if b.star == nil {
		g.GetPlusSymbol(sym)
		typ := ""
		if b.typ != "" {
			typ = b.typ + "[]"
		}
		b.star = g.AddNonTerminal(b.name+"$star", typ)
	}
	return b.star
}

// GetPlusSymbol returns the non-terminal implementing sym+.
func (g *Grammar) GetPlusSymbol(sym Symbol) *NonTerminal {
	b := sym.base()
	if b.plus == nil {
		typ := ""
		if b.typ != "" {
			typ = b.typ + "[]"
		}
		b.plus = g.AddNonTerminal(b.name+"$plus", typ)
	}
	return b.plus
}

// GetOptSymbol returns the non-terminal implementing sym?.
func (g *Grammar) GetOptSymbol(sym Symbol) *NonTerminal {
	b := sym.base()
	if b.opt == nil {
		b.opt = g.AddNonTerminal(b.name+"$opt", b.typ)
	}
	return b.opt
}

// BuildProduction registers a production. Adjacent embedded actions merge,
// a trailing action becomes the production's own action, and every
// remaining mid-rule action is factored out through a fresh anonymous
// non-terminal with an empty-RHS action production, so all actions run as
// part of a reduce. Productions with an identical RHS signature and action
// code share an action index; proxy productions get index -1.
func (g *Grammar) BuildProduction(lhs *NonTerminal, rhsParts []Part, prec *Terminal) *Production {
	if g.startProduction == nil {
		g.SetStartSymbol(lhs)
	}

	lhs.incrementUseCount()
	if prec != nil {
		prec.incrementUseCount()
	}

	merged := make([]Part, 0, len(rhsParts))
	for _, part := range rhsParts {
		if ap, ok := part.(*ActionPart); ok && len(merged) > 0 {
			if prev, ok := merged[len(merged)-1].(*ActionPart); ok {
				prev.addCode(ap.code)
				continue
			}
		}
		merged = append(merged, part)
	}

	var action *ActionPart
	if n := len(merged); n > 0 {
		if ap, ok := merged[n-1].(*ActionPart); ok {
			action = ap
			merged = merged[:n-1]
		}
	}

	rhs := make([]*SymbolPart, len(merged))
	lastActionPosition := -1
	for i, part := range merged {
		if _, ok := part.(*ActionPart); ok {
			// The anonymous non-terminal's use count comes from its RHS
			// slot alone.
			anon := g.createAnonNonTerminal(lhs.typ)
			rhs[i] = NewSymbolPart(anon)
			lastActionPosition = i
		} else {
			rhs[i] = part.(*SymbolPart)
		}
	}

	actionIndex := len(g.actions)
	if len(rhs) == 1 && action == nil {
		actionIndex = -1
	}

	for _, prod := range lhs.productions {
		if actionCodesEqual(action, prod.action) && len(prod.rhs) == len(rhs) && productionsMatch(prod, rhs) {
			actionIndex = prod.actionIndex
			break
		}
	}

	prod := newProduction(g, len(g.productions), actionIndex, lhs, rhs, lastActionPosition, action, prec)
	g.productions = append(g.productions, prod)
	if actionIndex == len(g.actions) {
		g.actions = append(g.actions, prod)
	}

	lastActionPosition = -1
	for i, part := range merged {
		if ap, ok := part.(*ActionPart); ok {
			actProd := newActionProduction(g, len(g.productions), len(g.actions), prod, rhs[i].sym.(*NonTerminal), ap, i, lastActionPosition)
			g.productions = append(g.productions, actProd)
			g.actions = append(g.actions, actProd)
			lastActionPosition = i
		}
	}

	return prod
}

func actionCodesEqual(a, b *ActionPart) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.code == b.code
}

// productionsMatch reports whether an existing production's RHS signature
// (per-slot label and slot type) matches, so the two can share a semantic
// action.
func productionsMatch(prod *Production, rhs []*SymbolPart) bool {
	for idx, part := range rhs {
		other := prod.rhs[idx]
		if part.label == "" {
			if other.label != "" {
				return false
			}
		} else {
			if part.label != other.label {
				return false
			}
			if part.sym.Type() != other.sym.Type() {
				return false
			}
		}
	}
	return true
}

// ExpandWildcardRules emits the backing productions for every synthesized
// EBNF symbol:
//
//	opt(X)  ::= ε | X
//	plus(X) ::= X | plus(X) X
//	star(X) ::= ε | plus(X)
//
// When X is typed, the empty star alternative and both plus alternatives
// carry the STAR0/STAR1/STAR2 action tags so the emitter collects the
// elements into a list, and the empty opt alternative carries OPT0.
// star(X) ::= plus(X) and opt(X) ::= X carry no action and stay proxies.
func (g *Grammar) ExpandWildcardRules() {
	for i := 0; i < len(g.terminals); i++ {
		g.expandWildcardRulesFor(g.terminals[i])
	}
	for i := 0; i < len(g.nonTerminals); i++ {
		g.expandWildcardRulesFor(g.nonTerminals[i])
	}
}

func (g *Grammar) expandWildcardRulesFor(sym Symbol) {
	b := sym.base()
	typed := b.typ != ""

	if b.opt != nil {
		var parts []Part
		if typed {
			parts = append(parts, NewActionPart(actionOptNone))
		}
		g.BuildProduction(b.opt, parts, nil)

		g.BuildProduction(b.opt, []Part{NewSymbolPart(sym)}, nil)
	}

	if b.star != nil {
		var parts []Part
		if typed {
			parts = append(parts, NewActionPart(actionStar0))
		}
		g.BuildProduction(b.star, parts, nil)

		g.BuildProduction(b.star, []Part{NewSymbolPart(b.plus)}, nil)
	}

	if b.plus != nil {
		parts := []Part{NewSymbolPart(sym)}
		if typed {
			parts = append(parts, NewActionPart(actionStar1))
		}
		g.BuildProduction(b.plus, parts, nil)

		parts = []Part{NewSymbolPart(b.plus), NewSymbolPart(sym)}
		if typed {
			parts = append(parts, NewActionPart(actionStar2))
		}
		g.BuildProduction(b.plus, parts, nil)
	}
}

func (g *Grammar) addLexEntry(entry *mlspec.LexEntry) {
	g.lexEntries = append(g.lexEntries, entry)
}

type compileConfig struct {
	isReportingEnabled bool
	compactReduces     bool
	expectOverride     *int
}

type CompileOption func(config *compileConfig)

func EnableReporting() CompileOption {
	return func(config *compileConfig) {
		config.isReportingEnabled = true
	}
}

func CompactReduces() CompileOption {
	return func(config *compileConfig) {
		config.compactReduces = true
	}
}

// ExpectConflicts overrides the grammar's declared conflict expectation.
func ExpectConflicts(n int) CompileOption {
	return func(config *compileConfig) {
		config.expectOverride = &n
	}
}

// Compile runs the whole pipeline: nullability, FIRST sets, the LALR
// machine, table construction and conflict resolution, the unreduced
// production check, the conflict-expectation gate, and finally table
// compression into the emitter-facing artifact.
func Compile(gram *Grammar, opts ...CompileOption) (*spec.CompiledGrammar, *spec.Report, error) {
	config := &compileConfig{}
	for _, opt := range opts {
		opt(config)
	}

	gram.ComputeNullability()
	if err := gram.ComputeFirsts(); err != nil {
		return nil, nil, err
	}
	if _, err := gram.BuildMachine(); err != nil {
		return nil, nil, err
	}
	if err := gram.BuildTables(config.compactReduces); err != nil {
		return nil, nil, err
	}
	gram.CheckTables()

	expected := gram.expectedConflicts
	if config.expectOverride != nil {
		expected = *config.expectOverride
	}
	if expected >= 0 && gram.conflictCount != expected {
		return nil, nil, fmt.Errorf("grammar produced %v conflicts where %v were expected", gram.conflictCount, expected)
	}

	action, actionBase := compressor.CompressActionTable(gram.actionTable.Rows())

	reduceRows := make([][]int, len(gram.states))
	for i, row := range gram.reduceTable.rows {
		cells := make([]int, len(row))
		for j, st := range row {
			if st == nil {
				cells[j] = compressor.EmptyEntry
			} else {
				cells[j] = st.index
			}
		}
		reduceRows[i] = cells
	}
	reduce := compressor.CompressReduceTable(reduceRows)

	actionDefaults := make([]int, len(gram.states))
	for i := range gram.states {
		actionDefaults[i] = gram.actionTable.DefaultAction(i)
	}

	lhsSymbols := make([]int, len(gram.productions))
	rhsLengths := make([]int, len(gram.productions))
	actionIndices := make([]int, len(gram.productions))
	for _, p := range gram.productions {
		lhsSymbols[p.index] = p.lhs.index
		rhsLengths[p.index] = len(p.rhs)
		actionIndices[p.index] = p.actionIndex
	}

	terminals := make([]string, len(gram.terminals))
	for i, t := range gram.terminals {
		terminals[i] = t.name
	}
	nonTerminals := make([]string, len(gram.nonTerminals))
	for i, nt := range gram.nonTerminals {
		nonTerminals[i] = nt.name
	}

	lexical, err := gram.compileLexSpec()
	if err != nil {
		return nil, nil, err
	}

	var report *spec.Report
	if config.isReportingEnabled {
		report = gram.genReport()
	}

	return &spec.CompiledGrammar{
		Name:    gram.name,
		Lexical: lexical,
		Syntactic: &spec.SyntacticSpec{
			Action:            action,
			ActionBase:        actionBase,
			ActionDefault:     actionDefaults,
			Reduce:            reduce,
			StateCount:        len(gram.states),
			InitialState:      0,
			StartProduction:   gram.startProduction.index,
			LHSSymbols:        lhsSymbols,
			RHSLengths:        rhsLengths,
			ActionIndices:     actionIndices,
			Terminals:         terminals,
			TerminalCount:     len(gram.terminals),
			NonTerminals:      nonTerminals,
			NonTerminalCount:  len(gram.nonTerminals),
			EOFSymbol:         gram.eofTerminal.index,
			ErrorSymbol:       gram.errorTerminal.index,
			ExpectedConflicts: expected,
		},
	}, report, nil
}

// compileLexSpec compiles the lexical entries collected from pattern
// terminals through maleeni. Grammars without pattern terminals have no
// lexical section.
func (g *Grammar) compileLexSpec() (*spec.LexicalSpec, error) {
	if len(g.lexEntries) == 0 {
		return nil, nil
	}

	lexSpec := &mlspec.LexSpec{
		Entries: g.lexEntries,
	}
	lexSpec.Name = g.name

	compiled, err, cErrs := mlcompiler.Compile(lexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr)
			}
			return nil, fmt.Errorf("%v", b.String())
		}
		return nil, err
	}

	kindToTerminal := make([]int, len(compiled.KindNames))
	terminalToKind := make([]int, len(g.terminals))
	for i, k := range compiled.KindNames {
		if k == mlspec.LexKindNameNil {
			continue
		}
		term, ok := g.findTerminal(k.String())
		if !ok {
			return nil, fmt.Errorf("terminal symbol %q was not found in the symbol registry", k)
		}
		kindToTerminal[i] = term.index
		terminalToKind[term.index] = i
	}

	return &spec.LexicalSpec{
		Lexer:          "maleeni",
		Spec:           compiled,
		KindToTerminal: kindToTerminal,
		TerminalToKind: terminalToKind,
	}, nil
}

func (g *Grammar) findTerminal(name string) (*Terminal, bool) {
	for _, t := range g.terminals {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

func writeCompileError(b *strings.Builder, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(b, "fragment ")
	}
	fmt.Fprintf(b, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(b, ": %v", cErr.Detail)
	}
}
