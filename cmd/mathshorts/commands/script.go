package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"math-shorts-pipeline/internal/config"
)

func newScriptCmd(a *app) *cobra.Command {
	var opts config.RunOptions
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Select a topic and print its script as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			out, err := p.GenerateScript(cmd.Context(), opts)
			if err != nil {
				return errorf(cmd, "Script generation failed", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	runFlags(cmd, &opts, false)
	return cmd
}
