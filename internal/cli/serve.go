package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liquid-forge/forge-architecture/internal/server"
)

type serveOptions struct {
	Source        sourceFlags
	Listen        string
	Watch         bool
	ContractTypes []string
}

func newServeCommand() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over a read-only HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	addSourceFlags(cmd, &opts.Source)
	cmd.Flags().StringVar(&opts.Listen, "listen", server.DefaultListen, "Address to listen on")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload when documents change")
	cmd.Flags().StringSliceVar(&opts.ContractTypes, "contract-type", nil, "Extra allowed contract types")
	_ = viper.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("watch", cmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("contract_types", cmd.Flags().Lookup("contract-type"))
	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	srv := server.New(service, server.Options{
		Listen:        resolveString(cmd, opts.Listen, "listen", "listen"),
		Source:        opts.Source.options(cmd),
		Watch:         resolveBool(cmd, opts.Watch, "watch", "watch"),
		ContractTypes: resolveStrings(cmd, opts.ContractTypes, "contract_types", "contract-type"),
	})
	return srv.Run(cmd.Context())
}
