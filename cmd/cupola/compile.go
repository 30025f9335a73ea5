package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	verr "github.com/calathus/cupola/error"
	"github.com/calathus/cupola/grammar"
	"github.com/calathus/cupola/spec"
)

var compileFlags = struct {
	output         *string
	compactReduces *bool
	expect         *int
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile",
		Short:   "Compile a grammar into a parse-table artifact",
		Example: `  cupola compile grammar.cupola -o grammar.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	compileFlags.compactReduces = cmd.Flags().Bool("compact-reduces", false, "fold the most common reduce of each state into a default action")
	compileFlags.expect = cmd.Flags().Int("expect", 0, "required conflict count; -1 disables the check (default: the grammar's #expect, or 0)")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) (retErr error) {
	var grmPath string
	if len(args) > 0 {
		grmPath = args[0]
	}
	defer func() {
		if retErr == nil {
			return
		}
		sourceName := "stdin"
		if grmPath != "" {
			sourceName = grmPath
		}
		switch err := retErr.(type) {
		case *verr.SpecError:
			err.FilePath = grmPath
			err.SourceName = sourceName
		case verr.SpecErrors:
			for _, e := range err {
				e.FilePath = grmPath
				e.SourceName = sourceName
			}
		}
	}()

	gram, err := readGrammar(grmPath)
	if err != nil {
		return err
	}

	opts := []grammar.CompileOption{
		grammar.EnableReporting(),
	}
	if *compileFlags.compactReduces {
		opts = append(opts, grammar.CompactReduces())
	}
	if cmd.Flags().Changed("expect") {
		opts = append(opts, grammar.ExpectConflicts(*compileFlags.expect))
	}

	cgram, report, err := grammar.Compile(gram, opts...)
	if err != nil {
		return err
	}

	err = writeCompiledGrammarAndReport(cgram, report, *compileFlags.output)
	if err != nil {
		return fmt.Errorf("cannot write the output files: %w", err)
	}

	if n := gram.ConflictCount(); n > 0 {
		fmt.Fprintf(os.Stdout, "%v conflicts\n", n)
	}

	return nil
}

func readGrammar(path string) (*grammar.Grammar, error) {
	var src io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open the grammar file %s: %w", path, err)
		}
		defer f.Close()
		src = f
	}

	ast, err := spec.Parse(src)
	if err != nil {
		return nil, err
	}

	b := grammar.Builder{
		AST:    ast,
		ErrMan: verr.NewManager(os.Stderr),
	}
	return b.Build()
}

// writeCompiledGrammarAndReport writes the artifact to the given path (or
// stdout when the path is empty) and the report to <name>-report.json next
// to it.
func writeCompiledGrammarAndReport(cgram *spec.CompiledGrammar, report *spec.Report, path string) error {
	reportFileName := cgram.Name + "-report.json"

	var cgramW io.Writer = os.Stdout
	reportPath := reportFileName
	if path != "" {
		cgramFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer cgramFile.Close()
		cgramW = cgramFile

		dir, _ := filepath.Split(path)
		reportPath = filepath.Join(dir, reportFileName)
	}

	b, err := json.Marshal(cgram)
	if err != nil {
		return err
	}
	fmt.Fprintf(cgramW, "%v\n", string(b))

	reportFile, err := os.OpenFile(reportPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer reportFile.Close()

	rb, err := json.Marshal(report)
	if err != nil {
		return err
	}
	fmt.Fprintf(reportFile, "%v\n", string(rb))

	return nil
}
