package grammar

import (
	mlspec "github.com/nihei9/maleeni/spec"

	verr "github.com/calathus/cupola/error"
	"github.com/calathus/cupola/spec"
)

// Builder turns a parsed grammar file into a Grammar by driving the builder
// API: terminals first, then precedence groups, then every production, and
// finally the wildcard expansion for the EBNF operators that were used.
type Builder struct {
	AST    *spec.RootNode
	ErrMan *verr.Manager

	errs verr.SpecErrors
}

func (b *Builder) Build() (*Grammar, error) {
	root := b.AST

	if root.Name == "" {
		b.errs = append(b.errs, &verr.SpecError{
			Cause: semErrNoGrammarName,
		})
		return nil, b.errs
	}
	if len(root.Productions) == 0 {
		b.errs = append(b.errs, &verr.SpecError{
			Cause: semErrNoProduction,
		})
		return nil, b.errs
	}

	g := NewGrammar(b.ErrMan)
	g.SetName(root.Name)

	terms := b.registerTerminals(g, root)
	nonTerms := b.registerNonTerminals(g, root, terms)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	b.applyPrecedence(g, root, terms)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	if root.Expect != nil {
		if root.Expect.Value < -1 {
			b.errs = append(b.errs, &verr.SpecError{
				Cause: semErrInvalidExpect,
				Row:   root.Expect.Pos.Row,
				Col:   root.Expect.Pos.Col,
			})
			return nil, b.errs
		}
		g.SetExpectedConflicts(root.Expect.Value)
	}

	if root.Start != "" {
		nt, ok := nonTerms[root.Start]
		if !ok {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrUndefinedStart,
				Detail: root.Start,
				Row:    root.StartPos.Row,
				Col:    root.StartPos.Col,
			})
			return nil, b.errs
		}
		g.SetStartSymbol(nt)
	}

	for _, prod := range root.Productions {
		b.buildProductions(g, prod, terms, nonTerms)
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	g.ExpandWildcardRules()

	return g, nil
}

// registerTerminals declares one terminal per lexical production and
// collects the corresponding maleeni lex entries. Literal patterns are
// escaped so the lexer matches them verbatim.
func (b *Builder) registerTerminals(g *Grammar, root *spec.RootNode) map[string]*Terminal {
	terms := map[string]*Terminal{
		reservedNameError: g.errorTerminal,
	}

	for _, prod := range root.LexProductions {
		if prod.LHS == reservedNameError || prod.LHS == reservedNameEOF {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrErrSymIsReserved,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}
		if _, exist := terms[prod.LHS]; exist {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateTerminal,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}

		term := g.AddTerminal(prod.LHS, prod.Type)
		terms[prod.LHS] = term

		elem := prod.RHS[0].Elements[0]
		pattern := elem.Pattern
		if elem.Literal {
			pattern = mlspec.EscapePattern(pattern)
		}
		g.addLexEntry(&mlspec.LexEntry{
			Kind:    mlspec.LexKindName(prod.LHS),
			Pattern: mlspec.LexPattern(pattern),
		})
	}

	return terms
}

func (b *Builder) registerNonTerminals(g *Grammar, root *spec.RootNode, terms map[string]*Terminal) map[string]*NonTerminal {
	nonTerms := map[string]*NonTerminal{}

	for _, prod := range root.Productions {
		if _, exist := nonTerms[prod.LHS]; exist {
			continue
		}
		if prod.LHS == reservedNameError || prod.LHS == reservedNameEOF {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrErrSymIsReserved,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}
		if _, exist := terms[prod.LHS]; exist {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateName,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}
		nonTerms[prod.LHS] = g.AddNonTerminal(prod.LHS, prod.Type)
	}

	return nonTerms
}

func (b *Builder) applyPrecedence(g *Grammar, root *spec.RootNode, terms map[string]*Terminal) {
	seen := map[string]struct{}{}
	for _, group := range root.Prec {
		var assoc Associativity
		switch group.Associativity {
		case "left":
			assoc = AssocLeft
		case "right":
			assoc = AssocRight
		default:
			assoc = AssocNonassoc
		}

		var groupTerms []*Terminal
		for _, sym := range group.Symbols {
			term, ok := terms[sym.Name]
			if !ok {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrPrecOnNonTerminal,
					Detail: sym.Name,
					Row:    sym.Pos.Row,
					Col:    sym.Pos.Col,
				})
				continue
			}
			if term == g.errorTerminal {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrErrSymIsReserved,
					Detail: sym.Name,
					Row:    sym.Pos.Row,
					Col:    sym.Pos.Col,
				})
				continue
			}
			if _, dup := seen[sym.Name]; dup {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateAssoc,
					Detail: sym.Name,
					Row:    sym.Pos.Row,
					Col:    sym.Pos.Col,
				})
				continue
			}
			seen[sym.Name] = struct{}{}
			groupTerms = append(groupTerms, term)
		}
		if len(groupTerms) > 0 {
			g.SetPrecedenceGroup(groupTerms, assoc)
		}
	}
}

// buildProductions builds one production per alternative. An alternative
// that references an undeclared symbol is rejected as a whole; the walk
// continues so that one bad rule does not mask later diagnostics.
func (b *Builder) buildProductions(g *Grammar, prod *spec.ProductionNode, terms map[string]*Terminal, nonTerms map[string]*NonTerminal) {
	lhs := nonTerms[prod.LHS]
	if lhs == nil {
		return
	}

ALTERNATIVE_LOOP:
	for _, alt := range prod.RHS {
		parts := make([]Part, 0, len(alt.Elements))
		labels := map[string]struct{}{}
		for _, elem := range alt.Elements {
			if elem.IsAction {
				parts = append(parts, NewActionPart(elem.Action))
				continue
			}

			var sym Symbol
			if term, ok := terms[elem.ID]; ok {
				sym = term
			} else if nt, ok := nonTerms[elem.ID]; ok {
				sym = nt
			} else {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrUndefinedSym,
					Detail: elem.ID,
					Row:    elem.Pos.Row,
					Col:    elem.Pos.Col,
				})
				continue ALTERNATIVE_LOOP
			}

			switch elem.Repetition {
			case "*":
				sym = g.GetStarSymbol(sym)
			case "+":
				sym = g.GetPlusSymbol(sym)
			case "?":
				sym = g.GetOptSymbol(sym)
			}

			if elem.Label != "" {
				if _, exist := labels[elem.Label]; exist {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrDuplicateLabel,
						Detail: elem.Label,
						Row:    elem.Pos.Row,
						Col:    elem.Pos.Col,
					})
					continue ALTERNATIVE_LOOP
				}
				labels[elem.Label] = struct{}{}
				parts = append(parts, NewLabeledSymbolPart(sym, elem.Label))
			} else {
				parts = append(parts, NewSymbolPart(sym))
			}
		}

		var prec *Terminal
		if alt.Prec != nil {
			term, ok := terms[alt.Prec.Name]
			if !ok {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrPrecOnNonTerminal,
					Detail: alt.Prec.Name,
					Row:    alt.Prec.Pos.Row,
					Col:    alt.Prec.Pos.Col,
				})
				continue ALTERNATIVE_LOOP
			}
			prec = term
		}

		g.BuildProduction(lhs, parts, prec)
	}
}
