package cli

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/client"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/floorplan"
	"github.com/spf13/cobra"
)

type generateOutput struct {
	Source       string                    `json:"source"`
	Requirements floorplan.Requirements    `json:"requirements"`
	Model        *floorplan.GeneratedModel `json:"model_data"`
	Warnings     []floorplan.Warning       `json:"warnings"`
}

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		area          float64
		bedrooms      int
		bathrooms     int
		style         string
		ceilingHeight float64
		output        string
	)

	cmd := &cobra.Command{
		Use:   "generate [description]",
		Short: "Generate a floor plan",
		Long: `Generate a floor plan from flags, a description, or both.

Flags that are set override values read from the description. With no
description, unset flags take the defaults (100 m², 2 bedrooms, 1 bathroom).`,
		Example: `  floorplan generate --area 120 --bedrooms 3 --bathrooms 2
  floorplan generate "compact two bedroom loft, 80 sqm" -o plan.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var description string
			if len(args) == 1 {
				description = strings.TrimSpace(args[0])
			}

			flags := cmd.Flags()
			overlay := &floorplan.Overlay{}
			if flags.Changed("area") {
				overlay.TotalArea = &area
			}
			if flags.Changed("bedrooms") {
				overlay.Bedrooms = &bedrooms
			}
			if flags.Changed("bathrooms") {
				overlay.Bathrooms = &bathrooms
			}
			if flags.Changed("style") {
				overlay.Style = &style
			}
			var constraints *floorplan.Constraints
			if flags.Changed("ceiling-height") {
				constraints = &floorplan.Constraints{CeilingHeight: ceilingHeight}
			}

			// Local runs always have input: unset fields fall back to the defaults
			if description == "" && overlay.IsEmpty() && !opts.remote() {
				defaults := services.DefaultRequirements
				overlay.TotalArea = &defaults.TotalArea
				overlay.Bedrooms = &defaults.Bedrooms
				overlay.Bathrooms = &defaults.Bathrooms
			}

			var out *generateOutput
			var err error
			if opts.remote() {
				out, err = generateRemote(cmd, opts, description, overlay, constraints)
			} else {
				out, err = generateLocal(cmd, description, overlay, constraints)
			}
			if err != nil {
				return err
			}

			for _, w := range out.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w.Message)
			}
			return writeJSON(cmd.OutOrStdout(), output, out)
		},
	}

	cmd.Flags().Float64Var(&area, "area", services.DefaultRequirements.TotalArea, "total floor area in m²")
	cmd.Flags().IntVar(&bedrooms, "bedrooms", services.DefaultRequirements.Bedrooms, "number of bedrooms")
	cmd.Flags().IntVar(&bathrooms, "bathrooms", services.DefaultRequirements.Bathrooms, "number of bathrooms")
	cmd.Flags().StringVar(&style, "style", services.DefaultRequirements.Style, "architectural style")
	cmd.Flags().Float64Var(&ceilingHeight, "ceiling-height", floorplan.DefaultCeilingHeight, "wall height in metres")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON to file instead of stdout")
	return cmd
}

func generateLocal(cmd *cobra.Command, description string, overlay *floorplan.Overlay, constraints *floorplan.Constraints) (*generateOutput, error) {
	svc := services.NewDesignService(nil, nil)
	result, err := svc.GenerateModel(cmd.Context(), &services.ModelRequest{
		Description:  description,
		Requirements: overlay,
		Constraints:  constraints,
	})
	if err != nil {
		return nil, err
	}
	return &generateOutput{
		Source:       result.Source,
		Requirements: result.Requirements,
		Model:        result.Model,
		Warnings:     result.Warnings,
	}, nil
}

func generateRemote(cmd *cobra.Command, opts *options, description string, overlay *floorplan.Overlay, constraints *floorplan.Constraints) (*generateOutput, error) {
	req := client.ModelRequest{Description: description, Constraints: constraints}
	if !overlay.IsEmpty() {
		req.Requirements = overlay
	}

	resp, err := opts.client().GenerateModel(cmd.Context(), req)
	if err != nil {
		return nil, err
	}
	out := &generateOutput{
		Source:   resp.Source,
		Model:    resp.ModelData,
		Warnings: resp.Warnings,
	}
	if resp.Requirements != nil {
		out.Requirements = *resp.Requirements
	}
	return out, nil
}
