package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check a running API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.remote() {
				return errors.New("health requires --server")
			}
			health, err := opts.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (version %s, env %s, database %s, cache %s, llm %s)\n",
				health.Status, health.Version, health.Environment, health.Database, health.Cache, health.LLM)
			return nil
		},
	}
}
