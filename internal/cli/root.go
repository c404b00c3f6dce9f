// Package cli implements the floorplan command line tool. Commands run the
// generator locally unless --server points them at a running API.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/pkg/client"
	"github.com/spf13/cobra"
)

type options struct {
	server  string
	apiKey  string
	timeout time.Duration
	verbose bool
}

// NewRootCommand builds the command tree
func NewRootCommand(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "floorplan",
		Short:         "Generate Revit floor plans from requirements or descriptions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// service code logs through the standard logger
			if opts.verbose {
				log.SetOutput(cmd.ErrOrStderr())
			} else {
				log.SetOutput(io.Discard)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", os.Getenv("REVIT_MCP_SERVER"), "API base URL; empty runs locally")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("REVIT_MCP_API_KEY"), "API key sent as X-API-Key")
	flags.DurationVar(&opts.timeout, "timeout", 90*time.Second, "request timeout against --server")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newDescribeCmd(opts))
	root.AddCommand(newHealthCmd(opts))
	return root
}

func (o *options) remote() bool { return o.server != "" }

func (o *options) client() *client.Client {
	return client.New(o.server, client.WithAPIKey(o.apiKey), client.WithTimeout(o.timeout))
}

// writeJSON writes v indented to path, or to w when path is empty or "-"
func writeJSON(w io.Writer, path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
