package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacksenechal/humanebench-eval/internal/schema"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas [name|path]",
	Short: "List built-in schemas or describe one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchemas,
}

func runSchemas(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, name := range schema.ListBuiltin() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	s, err := schema.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (aggregation: %s)\n", s.Name, s.Aggregation)
	for _, d := range s.Dimensions {
		var rng string
		if d.Continuous() {
			rng = fmt.Sprintf("[%g, %g] baseline %g", d.Min, d.Max, d.Baseline)
		} else {
			levels := make([]string, len(d.Levels))
			for i, l := range d.Levels {
				levels[i] = fmt.Sprintf("%+g", l)
			}
			rng = fmt.Sprintf("{%s} default %+g", strings.Join(levels, ", "), d.Default)
		}
		excluded := ""
		if d.ExcludeFromAggregate {
			excluded = " (not aggregated)"
		}
		fmt.Fprintf(out, "  %-28s %-28s %s%s\n", d.ID, d.Label, rng, excluded)
	}
	return nil
}
