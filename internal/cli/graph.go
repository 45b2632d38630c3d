package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liquid-forge/forge-architecture/internal/app"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

type graphOptions struct {
	Source sourceFlags
	Node   string
	Format string
}

func newGraphCommand() *cobra.Command {
	opts := graphOptions{}
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the module and component dependency graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}
	addSourceFlags(cmd, &opts.Source)
	addFormatFlag(cmd, &opts.Format)
	cmd.Flags().StringVar(&opts.Node, "node", "", "Focus on one node, e.g. module:payments@2.3.0")
	return cmd
}

func runGraph(ctx context.Context, cmd *cobra.Command, out io.Writer, opts graphOptions) error {
	format, err := normalizeFormat(resolveString(cmd, opts.Format, "format", "format"))
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, graphErr := service.Graph(ctx, app.GraphRequest{
		Source: opts.Source.options(cmd),
		Node:   opts.Node,
	})
	// Cycles still come with a populated result worth printing.
	if graphErr != nil && len(result.Report.Nodes) == 0 {
		return graphErr
	}
	if format != formatText {
		if err := writeStructured(out, format, result); err != nil {
			return err
		}
		return graphErr
	}

	p := newPrinter(out)
	if opts.Node != "" {
		p.title(opts.Node)
		p.printf("depends on:\n")
		for _, id := range result.Dependencies {
			p.printf("  %s\n", id)
		}
		p.printf("needed by:\n")
		for _, id := range result.Dependents {
			p.printf("  %s\n", id)
		}
		return graphErr
	}

	p.title("edges")
	for _, edge := range result.Report.Edges {
		label := string(edge.Kind)
		if edge.Label != "" {
			label += " " + edge.Label
		}
		p.printf("  %s -> %s %s\n", edge.From, edge.To, p.muted("("+label+")"))
	}
	cycles := append(append([][]string(nil), result.Report.Cycles...), result.ModuleCycles...)
	for _, cycle := range cycles {
		p.printf("%s cycle: %s\n", p.severity(types.SeverityError), strings.Join(cycle, " -> "))
	}
	p.printf("%d node(s), %d edge(s)\n", len(result.Report.Nodes), len(result.Report.Edges))
	return graphErr
}
