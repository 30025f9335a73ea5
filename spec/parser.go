package spec

import (
	"io"

	verr "github.com/calathus/cupola/error"
)

type RootNode struct {
	Name     string
	NamePos  Position
	Prec     []*PrecGroupNode
	Expect   *ExpectNode
	Start    string
	StartPos Position

	LexProductions []*ProductionNode
	Productions    []*ProductionNode
}

type PrecGroupNode struct {
	Associativity string
	Symbols       []*SymbolNode
	Pos           Position
}

type SymbolNode struct {
	Name string
	Pos  Position
}

type ExpectNode struct {
	Value int
	Pos   Position
}

type ProductionNode struct {
	LHS  string
	Type string
	RHS  []*AlternativeNode
	Pos  Position
}

// isLexical reports whether the production declares a terminal: a single
// alternative consisting of a single pattern or string-literal element.
func (n *ProductionNode) isLexical() bool {
	return len(n.RHS) == 1 && n.RHS[0].Prec == nil &&
		len(n.RHS[0].Elements) == 1 && n.RHS[0].Elements[0].Pattern != ""
}

type AlternativeNode struct {
	Elements []*ElementNode
	Prec     *SymbolNode
	Pos      Position
}

// ElementNode is one entry of an alternative: a symbol reference (possibly
// labeled and with an EBNF repetition suffix), a pattern (only valid in
// terminal declarations), or an embedded action.
type ElementNode struct {
	ID         string
	Label      string
	Repetition string
	Pattern    string
	Literal    bool
	Action     string
	IsAction   bool
	Pos        Position
}

func raiseSyntaxError(cause error, pos Position) {
	panic(&verr.SpecError{
		Cause: cause,
		Row:   pos.Row,
		Col:   pos.Col,
	})
}

func Parse(src io.Reader) (*RootNode, error) {
	p := newParser(src)
	return p.parse()
}

type parser struct {
	lex       *lexer
	peekedTok *token
	lastTok   *token
}

func newParser(src io.Reader) *parser {
	return &parser{
		lex: newLexer(src),
	}
}

func (p *parser) parse() (root *RootNode, retErr error) {
	defer func() {
		err := recover()
		if err != nil {
			var ok bool
			retErr, ok = err.(error)
			if !ok {
				panic(err)
			}
		}
	}()
	return p.parseRoot(), nil
}

func (p *parser) parseRoot() *RootNode {
	root := &RootNode{}
	for {
		if p.consume(tokenKindEOF) {
			break
		}
		if p.consume(tokenKindDirectiveMarker) {
			p.parseDirective(root)
			continue
		}
		prod := p.parseProduction()
		if prod.isLexical() {
			root.LexProductions = append(root.LexProductions, prod)
			continue
		}
		for _, alt := range prod.RHS {
			for _, elem := range alt.Elements {
				if elem.Pattern != "" {
					raiseSyntaxError(synErrStrayPattern, elem.Pos)
				}
			}
		}
		root.Productions = append(root.Productions, prod)
	}
	return root
}

func (p *parser) parseDirective(root *RootNode) {
	dirPos := p.lastTok.pos
	if !p.consume(tokenKindID) {
		raiseSyntaxError(synErrNoDirectiveName, dirPos)
	}
	name := p.lastTok.text

	switch name {
	case "name":
		if root.Name != "" {
			raiseSyntaxError(synErrDuplicateDirective, dirPos)
		}
		if !p.consume(tokenKindID) {
			raiseSyntaxError(synErrNameNoParam, dirPos)
		}
		root.Name = p.lastTok.text
		root.NamePos = p.lastTok.pos
	case "start":
		if root.Start != "" {
			raiseSyntaxError(synErrDuplicateDirective, dirPos)
		}
		if !p.consume(tokenKindID) {
			raiseSyntaxError(synErrStartNoParam, dirPos)
		}
		root.Start = p.lastTok.text
		root.StartPos = p.lastTok.pos
	case "expect":
		if root.Expect != nil {
			raiseSyntaxError(synErrDuplicateDirective, dirPos)
		}
		if !p.consume(tokenKindNumber) {
			raiseSyntaxError(synErrExpectNoParam, dirPos)
		}
		root.Expect = &ExpectNode{
			Value: p.lastTok.num,
			Pos:   p.lastTok.pos,
		}
	case "prec":
		if len(root.Prec) > 0 {
			raiseSyntaxError(synErrDuplicateDirective, dirPos)
		}
		root.Prec = p.parsePrecGroups(dirPos)
	default:
		raiseSyntaxError(synErrInvalidDirective, dirPos)
	}

	if !p.consume(tokenKindSemicolon) {
		raiseSyntaxError(synErrDirNoSemicolon, p.peekPos())
	}
}

func (p *parser) parsePrecGroups(dirPos Position) []*PrecGroupNode {
	if !p.consume(tokenKindGroupOpen) {
		raiseSyntaxError(synErrPrecNoGroup, dirPos)
	}

	var groups []*PrecGroupNode
	for {
		if p.consume(tokenKindGroupClose) {
			break
		}
		if !p.consume(tokenKindDirectiveMarker) {
			raiseSyntaxError(synErrPrecNoAssoc, p.peekPos())
		}
		groupPos := p.lastTok.pos
		if !p.consume(tokenKindID) {
			raiseSyntaxError(synErrPrecNoAssoc, groupPos)
		}
		assoc := p.lastTok.text
		switch assoc {
		case "left", "right", "nonassoc":
		default:
			raiseSyntaxError(synErrPrecInvalidAssoc, p.lastTok.pos)
		}

		group := &PrecGroupNode{
			Associativity: assoc,
			Pos:           groupPos,
		}
		for p.consume(tokenKindID) {
			group.Symbols = append(group.Symbols, &SymbolNode{
				Name: p.lastTok.text,
				Pos:  p.lastTok.pos,
			})
		}
		if len(group.Symbols) == 0 {
			raiseSyntaxError(synErrPrecNoSymbol, groupPos)
		}
		groups = append(groups, group)
	}

	return groups
}

func (p *parser) parseProduction() *ProductionNode {
	if !p.consume(tokenKindID) {
		raiseSyntaxError(synErrNoProductionName, p.peekPos())
	}
	lhs := p.lastTok.text
	pos := p.lastTok.pos

	var typ string
	if p.consume(tokenKindType) {
		typ = p.lastTok.text
	}

	if !p.consume(tokenKindColon) {
		raiseSyntaxError(synErrNoColon, p.peekPos())
	}

	alt := p.parseAlternative()
	rhs := []*AlternativeNode{alt}
	for p.consume(tokenKindOr) {
		rhs = append(rhs, p.parseAlternative())
	}

	if !p.consume(tokenKindSemicolon) {
		raiseSyntaxError(synErrNoSemicolon, p.peekPos())
	}

	return &ProductionNode{
		LHS:  lhs,
		Type: typ,
		RHS:  rhs,
		Pos:  pos,
	}
}

func (p *parser) parseAlternative() *AlternativeNode {
	alt := &AlternativeNode{
		Pos: p.peekPos(),
	}
	for {
		elem := p.parseElement()
		if elem == nil {
			break
		}
		alt.Elements = append(alt.Elements, elem)
	}

	if p.consume(tokenKindDirectiveMarker) {
		dirPos := p.lastTok.pos
		if !p.consume(tokenKindID) || p.lastTok.text != "prec" {
			raiseSyntaxError(synErrInvalidDirective, dirPos)
		}
		if !p.consume(tokenKindID) {
			raiseSyntaxError(synErrAltPrecNoSymbol, dirPos)
		}
		alt.Prec = &SymbolNode{
			Name: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	}

	return alt
}

func (p *parser) parseElement() *ElementNode {
	switch {
	case p.consume(tokenKindID):
		elem := &ElementNode{
			ID:  p.lastTok.text,
			Pos: p.lastTok.pos,
		}
		if p.consume(tokenKindLabelMarker) {
			if !p.consume(tokenKindID) {
				raiseSyntaxError(synErrNoLabel, p.peekPos())
			}
			elem.Label = p.lastTok.text
		}
		switch {
		case p.consume(tokenKindStar):
			elem.Repetition = "*"
		case p.consume(tokenKindPlus):
			elem.Repetition = "+"
		case p.consume(tokenKindOption):
			elem.Repetition = "?"
		}
		return elem
	case p.consume(tokenKindPattern):
		return &ElementNode{
			Pattern: p.lastTok.text,
			Pos:     p.lastTok.pos,
		}
	case p.consume(tokenKindString):
		return &ElementNode{
			Pattern: p.lastTok.text,
			Literal: true,
			Pos:     p.lastTok.pos,
		}
	case p.consume(tokenKindAction):
		return &ElementNode{
			Action:   p.lastTok.text,
			IsAction: true,
			Pos:      p.lastTok.pos,
		}
	}
	return nil
}

func (p *parser) consume(expected tokenKind) bool {
	var tok *token
	var err error
	if p.peekedTok != nil {
		tok = p.peekedTok
		p.peekedTok = nil
	} else {
		tok, err = p.lex.next()
		if err != nil {
			panic(err)
		}
	}
	p.lastTok = tok
	if tok.kind == tokenKindInvalid {
		raiseSyntaxError(synErrInvalidToken, tok.pos)
	}
	if tok.kind == expected {
		return true
	}
	p.peekedTok = tok
	p.lastTok = nil

	return false
}

// peekPos returns the position of the upcoming token for error reporting.
func (p *parser) peekPos() Position {
	if p.peekedTok != nil {
		return p.peekedTok.pos
	}
	tok, err := p.lex.next()
	if err != nil {
		panic(err)
	}
	p.peekedTok = tok
	return tok.pos
}
