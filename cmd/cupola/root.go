package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cupola",
	Short: "Generate LALR(1) parse tables from a grammar",
	Long: `cupola builds deterministic LALR(1) parse tables from a context-free
grammar and writes them as a portable artifact for code emitters, together
with a report describing the automaton and every resolved conflict.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}
