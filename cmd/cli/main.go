package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gorates/adapters/excel"
	"gorates/internal"
	"gorates/internal/config"
	"gorates/internal/deferred"
	"gorates/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gorates-cli",
		Short:         "Inspect subsettable rate contexts built from tabular data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMasksCmd(cfg),
		newOneHotCmd(cfg),
	)
	return rootCmd
}

func newMasksCmd(cfg *config.Config) *cobra.Command {
	var file, sheet string
	var req maskRequest
	var subsets []string
	var left, right string

	cmd := &cobra.Command{
		Use:   "masks",
		Short: "Print the effective penalty and constraint masks of a context",
		Long: `Build a rate context over a predictions column, narrow it with a chain of
subsets and optionally combine two sibling subsets with AND or OR.

Each subset is PENALTY_COLUMN[:CONSTRAINT_COLUMN]; columns hold 0/1 or true/false.

Example: gorates-cli masks --file scores.csv --predictions score \
  --subset group_a --left positive --right high_risk:positive --combine or`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range subsets {
				spec, err := parseSubsetSpec(s)
				if err != nil {
					return err
				}
				req.Subsets = append(req.Subsets, spec)
			}
			if left != "" {
				spec, err := parseSubsetSpec(left)
				if err != nil {
					return err
				}
				req.Left = &spec
			}
			if right != "" {
				spec, err := parseSubsetSpec(right)
				if err != nil {
					return err
				}
				req.Right = &spec
			}
			return runMasks(cmd.OutOrStdout(), cfg, file, sheet, req)
		},
	}

	cmd.Flags().StringVar(&file, "file", cfg.Input.File, "CSV or XLSX input file")
	cmd.Flags().StringVar(&sheet, "sheet", cfg.Input.Sheet, "Workbook sheet to read")
	cmd.Flags().StringVar(&req.Predictions, "predictions", "", "Column holding the model predictions")
	cmd.Flags().StringVar(&req.Labels, "labels", "", "Optional label column")
	cmd.Flags().StringVar(&req.Weights, "weights", "", "Optional weight column")
	cmd.Flags().StringArrayVar(&subsets, "subset", nil, "Subset to apply, in order (repeatable)")
	cmd.Flags().StringVar(&left, "left", "", "First child subset to combine")
	cmd.Flags().StringVar(&right, "right", "", "Second child subset to combine")
	cmd.Flags().StringVar(&req.Combine, "combine", "and", "How to combine --left and --right: and|or")
	return cmd
}

func newOneHotCmd(cfg *config.Config) *cobra.Command {
	var file, sheet, labels string
	var classes int

	cmd := &cobra.Command{
		Use:   "onehot",
		Short: "Print index-encoded labels as one-hot rows",
		Long: `Expand a column of integer class indices into one-hot rows.

Example: gorates-cli onehot --file labels.csv --labels class --classes 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneHot(cmd.OutOrStdout(), cfg, file, sheet, labels, classes)
		},
	}

	cmd.Flags().StringVar(&file, "file", cfg.Input.File, "CSV or XLSX input file")
	cmd.Flags().StringVar(&sheet, "sheet", cfg.Input.Sheet, "Workbook sheet to read")
	cmd.Flags().StringVar(&labels, "labels", "", "Column holding class indices")
	cmd.Flags().IntVar(&classes, "classes", 2, "Number of classes")
	return cmd
}

func loadTable(cfg *config.Config, file, sheet string) (*excel.Table, error) {
	if file == "" {
		return nil, errors.InvalidInput("--file (or INPUT_FILE) is required")
	}
	return excel.NewDataReader(file).WithSheet(sheet).WithLogger(cfg.Logger()).ReadTable()
}

func newMemoizer(cfg *config.Config, logger *internal.Logger) *deferred.Memoizer {
	return deferred.NewMemoizer(
		deferred.WithDenominatorLowerBound(cfg.Evaluation.DenominatorLowerBound),
		deferred.WithLogger(logger),
	)
}

func runMasks(out io.Writer, cfg *config.Config, file, sheet string, req maskRequest) error {
	logger := cfg.Logger()
	table, err := loadTable(cfg, file, sheet)
	if err != nil {
		return err
	}

	ctx, err := buildMaskContext(table, req)
	if err != nil {
		return err
	}

	summary, err := ctx.Summarize(newMemoizer(cfg, logger))
	if err != nil {
		return errors.Wrap(err, "failed to evaluate masks")
	}
	logger.Info("penalty selects %.0f of %d examples, constraint selects %.0f",
		summary.Penalty.Selected, summary.Penalty.Examples, summary.Constraint.Selected)
	return writeJSON(out, summary)
}

func runOneHot(out io.Writer, cfg *config.Config, file, sheet, labels string, classes int) error {
	if labels == "" {
		return errors.InvalidInput("--labels is required")
	}
	table, err := loadTable(cfg, file, sheet)
	if err != nil {
		return err
	}
	rows, err := oneHotRows(table, labels, classes, newMemoizer(cfg, cfg.Logger()))
	if err != nil {
		return err
	}
	return writeJSON(out, rows)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
