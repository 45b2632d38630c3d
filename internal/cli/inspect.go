package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liquid-forge/forge-architecture/internal/app"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

type inspectOptions struct {
	Index  string
	Module string
	Lock   string
	Format string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a generated registry index or lock file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Index, "index", app.DefaultIndexFile, "Registry index file")
	cmd.Flags().StringVar(&opts.Module, "module", "", "Show a single module")
	cmd.Flags().StringVar(&opts.Lock, "lock", "", "Show a lock file instead of the index")
	addFormatFlag(cmd, &opts.Format)
	return cmd
}

func runInspect(cmd *cobra.Command, out io.Writer, opts inspectOptions) error {
	format, err := normalizeFormat(resolveString(cmd, opts.Format, "format", "format"))
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	if opts.Lock != "" {
		lock, err := service.InspectLock(opts.Lock)
		if err != nil {
			return err
		}
		if format != formatText {
			return writeStructured(out, format, lock)
		}
		printLock(newPrinter(out), app.ResolveResult{Lock: lock})
		return nil
	}
	result, err := service.Inspect(app.InspectRequest{
		Path:   opts.Index,
		Module: opts.Module,
	})
	if err != nil {
		return err
	}

	if format != formatText {
		if result.Module != nil {
			return writeStructured(out, format, result.Module)
		}
		return writeStructured(out, format, result.Index)
	}

	p := newPrinter(out)
	if result.Module != nil {
		printModuleEntry(p, *result.Module)
		return nil
	}
	summary := result.Index.Summary
	p.title("registry " + p.muted(result.Index.Metadata.Digest))
	p.printf("modules: %d (%d versions)\n", summary.Modules, summary.ModuleVersions)
	p.printf("components: %d\n", summary.Components)
	for _, classification := range types.Classifications {
		p.printf("  %s: %d\n", classification, summary.ByClassification[classification])
	}
	p.printf("contracts: %d\n", summary.Contracts)
	contractTypes := make([]string, 0, len(summary.ContractTypes))
	for contractType := range summary.ContractTypes {
		contractTypes = append(contractTypes, contractType)
	}
	sort.Strings(contractTypes)
	for _, contractType := range contractTypes {
		p.printf("  %s: %d\n", contractType, summary.ContractTypes[contractType])
	}
	for _, entry := range result.Index.Modules {
		printModuleEntry(p, entry)
	}
	return nil
}

func printModuleEntry(p printer, entry types.ModuleEntry) {
	p.printf("%s %s %s\n", p.render(titleStyle, entry.Name), entry.LatestVersion, p.muted(entry.Owner))
	p.printf("  available:  %s\n", strings.Join(entry.AvailableVersions, ", "))
	p.printf("  supported:  %s\n", strings.Join(entry.SupportedVersions, ", "))
	if len(entry.DeprecatedVersions) > 0 {
		p.printf("  deprecated: %s\n", p.render(warningStyle, strings.Join(entry.DeprecatedVersions, ", ")))
	}
}
