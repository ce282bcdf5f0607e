package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacksenechal/humanebench-eval/internal/batch"
	"github.com/jacksenechal/humanebench-eval/internal/config"
	"github.com/jacksenechal/humanebench-eval/internal/evaluator"
	"github.com/jacksenechal/humanebench-eval/internal/schema"
)

var evalFlags struct {
	file     string
	input    string
	reply    string
	schema   string
	format   string
	parallel int
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate prompts offline and print per-dimension scores",
	Long: `Evaluates a JSONL file of {"id","input","reply","history"} records, or a
single --input/--reply pair. Records without a reply get one from CHAT_MODEL
first. Provider settings come from the same environment as serve.`,
	Example: `  humanebench eval --file prompts.jsonl --parallel 8
  humanebench eval --input "I feel awful" --reply "Have you tried not feeling awful?" --format json`,
	RunE: runEval,
}

func init() {
	f := evalCmd.Flags()
	f.StringVarP(&evalFlags.file, "file", "f", "", "JSONL input file (\"-\" for stdin)")
	f.StringVar(&evalFlags.input, "input", "", "single user prompt")
	f.StringVar(&evalFlags.reply, "reply", "", "assistant reply to score with --input (generated when empty)")
	f.StringVar(&evalFlags.schema, "schema", "", "schema name or YAML path (default EVAL_SCHEMA)")
	f.StringVarP(&evalFlags.format, "format", "o", "table", "output format: table or json")
	f.IntVarP(&evalFlags.parallel, "parallel", "p", 4, "concurrent evaluations")
	evalCmd.MarkFlagsMutuallyExclusive("file", "input")
}

func runEval(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if evalFlags.schema != "" {
		cfg.EvalSchema = evalFlags.schema
	}
	// Logs go to stderr so stdout stays machine-readable.
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if evalFlags.format != "table" && evalFlags.format != "json" {
		return fmt.Errorf("unknown format %q", evalFlags.format)
	}

	items, err := evalItems(cmd.InOrStdin())
	if err != nil {
		return err
	}

	sch, err := schema.Load(cfg.EvalSchema)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	provider, err := newProvider(cfg, sch)
	if err != nil {
		return err
	}

	scorer := evaluator.NewScorer(provider, cfg.EvalModel, sch, cfg.ScoringTimeout, logger)
	runner := batch.NewRunner(provider, cfg.ChatModel, scorer, evalFlags.parallel, logger)

	results, err := runner.Run(cmd.Context(), items)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	out := cmd.OutOrStdout()
	if evalFlags.format == "json" {
		return batch.WriteJSON(out, results)
	}
	return batch.WriteTable(out, sch, results)
}

func evalItems(stdin io.Reader) ([]batch.Item, error) {
	switch {
	case evalFlags.input != "":
		return []batch.Item{{ID: "input", Input: evalFlags.input, Reply: evalFlags.reply}}, nil
	case evalFlags.file == "-":
		return batch.ReadJSONL(stdin)
	case evalFlags.file != "":
		f, err := os.Open(evalFlags.file)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		return batch.ReadJSONL(f)
	}
	return nil, errors.New("either --file or --input is required")
}
