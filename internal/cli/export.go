package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/export"
	"github.com/graphsink/graphsink/pkg/graph"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	format string
	output string
}

// newExportCmd creates the export command, which converts a previously
// scanned JSON graph file to another format.
func newExportCmd() *cobra.Command {
	opts := exportOpts{format: export.FormatDOT}

	cmd := &cobra.Command{
		Use:   "export <graph.json>",
		Short: "Convert a scanned graph file to DOT or SVG",
		Long: `Convert a graph file produced by "graphsink scan" to another format.

Examples:
  graphsink export graph.json --format dot -o graph.dot
  graphsink export graph.json --format svg -o graph.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runExport(c.Context(), &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format ("+strings.Join(export.Formats(), "|")+")")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

func runExport(ctx context.Context, opts *exportOpts, input string) error {
	logger := loggerFromContext(ctx)

	if err := export.ValidateFormat(opts.format); err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", input)
	}
	defer f.Close()

	roots, err := graph.ReadJSON(f)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", input)
	}

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := export.Write(roots, opts.format, out); err != nil {
		return err
	}
	if opts.output != "" {
		logger.Infof("Wrote %s graph to %s", opts.format, opts.output)
	}
	return nil
}
