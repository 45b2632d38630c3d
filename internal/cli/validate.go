package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liquid-forge/forge-architecture/internal/app"
)

type validateOptions struct {
	Source        sourceFlags
	ContractTypes []string
	Strict        bool
	Format        string
}

func newValidateCommand() *cobra.Command {
	opts := validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every registry document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}
	addSourceFlags(cmd, &opts.Source)
	addFormatFlag(cmd, &opts.Format)
	cmd.Flags().StringSliceVar(&opts.ContractTypes, "contract-type", nil, "Extra allowed contract types")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail on warnings too")
	_ = viper.BindPFlag("contract_types", cmd.Flags().Lookup("contract-type"))
	_ = viper.BindPFlag("strict", cmd.Flags().Lookup("strict"))
	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, out io.Writer, opts validateOptions) error {
	format, err := normalizeFormat(resolveString(cmd, opts.Format, "format", "format"))
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, validateErr := service.Validate(ctx, app.ValidateRequest{
		Source:        opts.Source.options(cmd),
		ContractTypes: resolveStrings(cmd, opts.ContractTypes, "contract_types", "contract-type"),
		Strict:        resolveBool(cmd, opts.Strict, "strict", "strict"),
	})
	if validateErr != nil && !result.Failed {
		return validateErr
	}
	if format != formatText {
		if err := writeStructured(out, format, result.Report); err != nil {
			return err
		}
		return validateErr
	}
	newPrinter(out).validationReport(result.Report)
	return validateErr
}
