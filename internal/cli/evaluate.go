package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-intel/internal/api"
	"github.com/miradorstack/mirador-intel/internal/engine"
)

func newEvaluateCommand(opts *rootOptions) *cobra.Command {
	var (
		inputPath string
		userID    string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one evaluation pass over a signals file",
		Long: `Reads a JSON document with "signals", "contextHints" and "domainContext"
and prints the resulting insights, highlights and suggestion for the user.
Use "-" to read the document from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			input, err := readInput(inputPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runEvaluate(cmd.Context(), opts, userID, input, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Signals JSON file")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User to evaluate for")
	return cmd
}

func readInput(path string, stdin io.Reader) (engine.InsightInput, error) {
	var r io.Reader = stdin
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return engine.InsightInput{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	var input engine.InsightInput
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return engine.InsightInput{}, fmt.Errorf("parse input: %w", err)
	}
	return input, nil
}

func runEvaluate(ctx context.Context, opts *rootOptions, userID string, input engine.InsightInput, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, closeFn, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	var eval engine.Evaluation
	if err := c.Call(ctx, api.MethodEvaluate, api.EvaluateRequest{UserID: userID, InsightInput: input}, &eval); err != nil {
		return err
	}
	return printJSON(out, eval)
}
