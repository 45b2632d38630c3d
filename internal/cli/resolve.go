package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liquid-forge/forge-architecture/internal/app"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

type resolveOptions struct {
	Source          sourceFlags
	Application     string
	Output          string
	AllowDeprecated bool
	StrictEnv       bool
	Format          string
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an application to one version per module and write a lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}
	addSourceFlags(cmd, &opts.Source)
	addFormatFlag(cmd, &opts.Format)
	cmd.Flags().StringVar(&opts.Application, "application", "", "Application document path or application name")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Lock file to write")
	cmd.Flags().BoolVar(&opts.AllowDeprecated, "allow-deprecated", false, "Consider deprecated module versions")
	cmd.Flags().BoolVar(&opts.StrictEnv, "strict-env", false, "Fail when an environment misses required configuration")
	_ = viper.BindPFlag("application", cmd.Flags().Lookup("application"))
	_ = viper.BindPFlag("allow_deprecated", cmd.Flags().Lookup("allow-deprecated"))
	_ = viper.BindPFlag("strict_env", cmd.Flags().Lookup("strict-env"))
	// output is taken by index; the lock path gets its own key.
	_ = viper.BindPFlag("lock_output", cmd.Flags().Lookup("output"))
	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, out io.Writer, opts resolveOptions) error {
	format, err := normalizeFormat(resolveString(cmd, opts.Format, "format", "format"))
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, resolveErr := service.Resolve(ctx, app.ResolveRequest{
		Source:          opts.Source.options(cmd),
		Application:     resolveString(cmd, opts.Application, "application", "application"),
		Output:          resolveString(cmd, opts.Output, "lock_output", "output"),
		AllowDeprecated: resolveBool(cmd, opts.AllowDeprecated, "allow_deprecated", "allow-deprecated"),
		StrictEnv:       resolveBool(cmd, opts.StrictEnv, "strict_env", "strict-env"),
	})
	if resolveErr != nil && len(result.Lock.Modules) == 0 {
		return resolveErr
	}
	if format != formatText {
		if err := writeStructured(out, format, result.Lock); err != nil {
			return err
		}
		return resolveErr
	}
	printLock(newPrinter(out), result)
	return resolveErr
}

func printLock(p printer, result app.ResolveResult) {
	lock := result.Lock
	p.title(lock.Metadata.Application)
	for _, module := range lock.Modules {
		detail := module.Constraint
		if module.Transitive {
			detail = "transitive"
		}
		p.printf("  %s@%s %s\n", module.Name, module.Version, p.muted("("+detail+")"))
		for _, component := range module.Components {
			p.printf("    %s@%s %s\n", component.Name, component.Version, p.muted(string(component.Classification)))
		}
	}
	for _, record := range lock.Resolutions {
		p.printf("%s %s %s %s %s\n", p.render(warningStyle, "directive"), record.Module, record.Action, record.Value, p.muted("("+record.Owner+")"))
	}
	for _, env := range lock.Environments {
		if len(env.Missing) == 0 {
			continue
		}
		keys := make([]string, 0, len(env.Missing))
		for _, missing := range env.Missing {
			keys = append(keys, missing.Component+"/"+missing.Key)
		}
		p.printf("%s environment %s is missing %s\n", p.severity(types.SeverityWarning), env.Name, strings.Join(keys, ", "))
	}
	p.printf("digest %s\n", p.muted(lock.Metadata.Digest))
	if result.OutputPath != "" {
		p.printf("%s %s\n", p.render(successStyle, "wrote"), result.OutputPath)
	}
}
