package spec

import (
	mlspec "github.com/nihei9/maleeni/spec"
)

// CompiledGrammar is the portable artifact the code emitters consume.
type CompiledGrammar struct {
	Name      string         `json:"name"`
	Lexical   *LexicalSpec   `json:"lexical,omitempty"`
	Syntactic *SyntacticSpec `json:"syntactic"`
}

// LexicalSpec carries the compiled lexer for the grammar's pattern
// terminals together with the mapping between lexer kinds and terminal
// indices.
type LexicalSpec struct {
	Lexer          string                  `json:"lexer"`
	Spec           *mlspec.CompiledLexSpec `json:"spec"`
	KindToTerminal []int                   `json:"kind_to_terminal"`
	TerminalToKind []int                   `json:"terminal_to_kind"`
}

// SyntacticSpec carries the compressed parse tables.
//
// Action is the comb-packed action table: Action[s] for s < StateCount is
// state s's default action, and for a terminal t the slot
// Action[ActionBase[s]+2t] names the owning state of the pair whose second
// half holds the action. Reduce serves double duty: Reduce[s] is state s's
// base and Reduce[base+n] the goto destination for non-terminal n.
type SyntacticSpec struct {
	Action            []int    `json:"action"`
	ActionBase        []int    `json:"action_base"`
	ActionDefault     []int    `json:"action_default"`
	Reduce            []int    `json:"reduce"`
	StateCount        int      `json:"state_count"`
	InitialState      int      `json:"initial_state"`
	StartProduction   int      `json:"start_production"`
	LHSSymbols        []int    `json:"lhs_symbols"`
	RHSLengths        []int    `json:"rhs_lengths"`
	ActionIndices     []int    `json:"action_indices"`
	Terminals         []string `json:"terminals"`
	TerminalCount     int      `json:"terminal_count"`
	NonTerminals      []string `json:"non_terminals"`
	NonTerminalCount  int      `json:"non_terminal_count"`
	EOFSymbol         int      `json:"eof_symbol"`
	ErrorSymbol       int      `json:"error_symbol"`
	ExpectedConflicts int      `json:"expected_conflicts"`
}
