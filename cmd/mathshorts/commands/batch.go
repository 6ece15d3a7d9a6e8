package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"math-shorts-pipeline/internal/artifact"
	"math-shorts-pipeline/internal/pipeline"
	"math-shorts-pipeline/internal/types"
)

const batchResultsFile = "batch_results.json"

func newBatchCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Produce one short per row of a CSV or JSON file",
		Example: `  mathshorts batch --file prompts.csv
  mathshorts batch --file batch.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := pipeline.LoadBatch(file)
			if err != nil {
				return errorf(cmd, "Could not read batch file", err)
			}
			p, err := a.pipeline(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			results := p.Batch(cmd.Context(), items)
			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.Status == types.StatusFailure {
					failed++
					red.Fprintln(out, r.String())
					continue
				}
				success(out, "%s", r.String())
			}

			path := filepath.Join(a.cfg.Paths.Output, batchResultsFile)
			if err := artifact.WriteJSON(path, results); err != nil {
				warning(out, "could not save %s: %v", path, err)
			} else {
				detail(out, "results", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d batch items failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "prompts.csv", "batch file (.csv or .json)")
	return cmd
}
