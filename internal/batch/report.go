package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jacksenechal/humanebench-eval/internal/schema"
)

// WriteJSON writes results as a single indented JSON array.
func WriteJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// WriteTable writes one row per result with a column per dimension, followed
// by the mean of each column over the evaluated items.
func WriteTable(w io.Writer, s *schema.Schema, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)

	header := append([]string{"ID"}, s.IDs()...)
	header = append(header, "AGGREGATE", "TONE", "FALLBACK", "")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	sums := make([]float64, len(s.Dimensions)+1)
	evaluated := 0
	for _, res := range results {
		if res.Eval == nil {
			fmt.Fprintf(tw, "%s\t%s\n", res.ID, "error: "+res.Err)
			continue
		}
		evaluated++
		cols := []string{res.ID}
		for i, sc := range res.Eval.Scores {
			cols = append(cols, fmt.Sprintf("%+.2f", sc.Score))
			sums[i] += sc.Score
		}
		sums[len(sums)-1] += res.Eval.Aggregate
		cols = append(cols,
			fmt.Sprintf("%+.3f", res.Eval.Aggregate),
			res.ToneLabel,
			fmt.Sprintf("%t", res.Eval.Fallback),
			"",
		)
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}

	if evaluated > 0 {
		cols := []string{"MEAN"}
		for i := range s.Dimensions {
			cols = append(cols, fmt.Sprintf("%+.2f", sums[i]/float64(evaluated)))
		}
		cols = append(cols, fmt.Sprintf("%+.3f", sums[len(sums)-1]/float64(evaluated)), "", "", "")
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}
