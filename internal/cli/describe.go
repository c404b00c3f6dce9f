package cli

import (
	"strings"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/client"
	"github.com/spf13/cobra"
)

func newDescribeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "describe <description>",
		Short:   "Show the requirements read from a description",
		Example: `  floorplan describe "three bedroom ranch house, 1800 sq ft"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.TrimSpace(args[0])

			if opts.remote() {
				resp, err := opts.client().ExtractRequirements(cmd.Context(), description)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), "", resp)
			}

			result, err := services.NewDesignService(nil, nil).ExtractRequirements(cmd.Context(), description)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), "", client.ExtractionResponse{
				Requirements: result.Requirements,
				Source:       result.Source,
			})
		},
	}
}
