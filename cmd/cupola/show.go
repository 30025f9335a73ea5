package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/calathus/cupola/spec"
)

func init() {
	cmd := &cobra.Command{
		Use:     "show",
		Short:   "Print a report generated by the compile command",
		Example: `  cupola show grammar-report.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	report := &spec.Report{}
	err = json.Unmarshal(data, report)
	if err != nil {
		return fmt.Errorf("cannot parse the report %s: %w", args[0], err)
	}

	writeTerminals(report)
	writeProductions(report)
	writeConflicts(report)

	return nil
}

func writeTerminals(report *spec.Report) {
	fmt.Fprintf(os.Stdout, "terminals:\n")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Number", "Name", "Precedence", "Associativity"})
	for _, t := range report.Terminals {
		prec := ""
		if t.Precedence != 0 {
			prec = strconv.Itoa(t.Precedence)
		}
		table.Append([]string{strconv.Itoa(t.Number), t.Name, prec, t.Associativity})
	}
	table.Render()
}

func symbolName(report *spec.Report, encoded int) string {
	if encoded < 0 {
		return report.NonTerminals[-encoded-1].Name
	}
	return report.Terminals[encoded-1].Name
}

func writeProductions(report *spec.Report) {
	fmt.Fprintf(os.Stdout, "productions:\n")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Number", "Rule", "Precedence"})
	for _, p := range report.Productions {
		rule := report.NonTerminals[p.LHS].Name + " ::="
		for _, sym := range p.RHS {
			rule += " " + symbolName(report, sym)
		}
		if len(p.RHS) == 0 {
			rule += " ε"
		}
		prec := ""
		if p.Precedence != 0 {
			prec = strconv.Itoa(p.Precedence)
		}
		table.Append([]string{strconv.Itoa(p.Number), rule, prec})
	}
	table.Render()
}

func writeConflicts(report *spec.Report) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"State", "Kind", "Symbol", "Production", "Resolution"})
	count := 0
	for _, s := range report.States {
		for _, c := range s.SRConflict {
			resolution := "shift"
			if c.AdoptedProduction != nil {
				resolution = fmt.Sprintf("reduce %v", *c.AdoptedProduction)
			} else if c.AdoptedState == nil {
				resolution = "error"
			}
			table.Append([]string{
				strconv.Itoa(s.Number),
				"shift/reduce",
				report.Terminals[c.Symbol].Name,
				strconv.Itoa(c.Production),
				resolution,
			})
			count++
		}
		for _, c := range s.RRConflict {
			table.Append([]string{
				strconv.Itoa(s.Number),
				"reduce/reduce",
				report.Terminals[c.Symbol].Name,
				fmt.Sprintf("%v vs %v", c.Production1, c.Production2),
				fmt.Sprintf("reduce %v", c.AdoptedProduction),
			})
			count++
		}
	}
	if count == 0 {
		fmt.Fprintf(os.Stdout, "no conflicts\n")
		return
	}
	fmt.Fprintf(os.Stdout, "conflicts:\n")
	table.Render()
}
