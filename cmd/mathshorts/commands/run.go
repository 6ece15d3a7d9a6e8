package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/types"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		opts   config.RunOptions
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce one short end to end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			res := p.Run(cmd.Context(), opts)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printResult(cmd, res)
			}
			if res.Status == types.StatusFailure {
				return fmt.Errorf("run %s failed: %w", res.RunID, res.Error)
			}
			return nil
		},
	}
	runFlags(cmd, &opts, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run result as JSON")
	return cmd
}

func printResult(cmd *cobra.Command, res *types.RunResult) {
	out := cmd.OutOrStdout()
	switch res.Status {
	case types.StatusSuccess:
		success(out, "Run %s complete", res.RunID)
	case types.StatusPartial:
		warning(out, "Run %s complete, %v", res.RunID, res.Error)
	default:
		red.Fprintf(cmd.ErrOrStderr(), "Run %s failed at %s\n", res.RunID, res.Error.Stage)
		fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", res.Error.Cause)
	}
	if res.Topic != nil {
		detail(out, "topic", res.Topic.Name)
	}
	if res.Script != nil {
		detail(out, "script", fmt.Sprintf("%d words via %s", res.Script.WordCount, res.Script.Provider))
	}
	if res.OutputPath != "" {
		detail(out, "video", fmt.Sprintf("%s (%.1fs)", res.OutputPath, res.DurationSec))
	}
	if res.YouTubeURL != "" {
		detail(out, "youtube", res.YouTubeURL)
	}
	if len(res.Timings) > 0 {
		parts := make([]string, 0, len(res.Timings))
		for _, t := range res.Timings {
			parts = append(parts, fmt.Sprintf("%s %.1fs", t.Stage, t.Seconds))
		}
		detail(out, "timings", strings.Join(parts, ", "))
	}
}
