package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liquid-forge/forge-architecture/internal/app"
)

type indexOptions struct {
	Source        sourceFlags
	Output        string
	ContractTypes []string
	SkipValidate  bool
	Watch         bool
}

func newIndexCommand() *cobra.Command {
	opts := indexOptions{}
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Generate the registry index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}
	addSourceFlags(cmd, &opts.Source)
	cmd.Flags().StringVar(&opts.Output, "output", "", "Index file to write (default <root>/registry.yaml)")
	cmd.Flags().StringSliceVar(&opts.ContractTypes, "contract-type", nil, "Extra allowed contract types")
	cmd.Flags().BoolVar(&opts.SkipValidate, "skip-validate", false, "Write the index even when validation fails")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Regenerate whenever documents change")
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("contract_types", cmd.Flags().Lookup("contract-type"))
	_ = viper.BindPFlag("watch", cmd.Flags().Lookup("watch"))
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, out io.Writer, opts indexOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	req := app.IndexRequest{
		Source:        opts.Source.options(cmd),
		Output:        resolveString(cmd, opts.Output, "output", "output"),
		ContractTypes: resolveStrings(cmd, opts.ContractTypes, "contract_types", "contract-type"),
		SkipValidate:  opts.SkipValidate,
	}
	p := newPrinter(out)

	if !resolveBool(cmd, opts.Watch, "watch", "watch") {
		result, err := service.Index(ctx, req)
		if err != nil {
			if result.Report.Errors() > 0 {
				p.validationReport(result.Report)
			}
			return err
		}
		printIndexResult(p, result)
		return nil
	}

	return service.WatchIndex(ctx, req, func(result app.IndexResult, err error) {
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Int("errors", result.Report.Errors()).Msg("index regeneration failed")
			return
		}
		printIndexResult(p, result)
	})
}

func printIndexResult(p printer, result app.IndexResult) {
	summary := result.Index.Summary
	if !result.Changed {
		p.printf("%s %s %s\n", p.muted("unchanged"), result.OutputPath, p.muted(result.Index.Metadata.Digest))
		return
	}
	p.printf("%s %s: %d module(s), %d version(s), %d component(s) %s\n",
		p.render(successStyle, "wrote"),
		result.OutputPath,
		summary.Modules,
		summary.ModuleVersions,
		summary.Components,
		p.muted(result.Index.Metadata.Digest),
	)
}
