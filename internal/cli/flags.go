package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liquid-forge/forge-architecture/internal/app"
)

type sourceFlags struct {
	Root        string
	Include     []string
	Exclude     []string
	RegistryURL string
}

// addSourceFlags registers the flags selecting where documents are read
// from. Every command that loads a registry shares them.
func addSourceFlags(cmd *cobra.Command, flags *sourceFlags) {
	cmd.Flags().StringVar(&flags.Root, "root", ".", "Registry root directory")
	cmd.Flags().StringSliceVar(&flags.Include, "include", nil, "Glob patterns of documents to load (default **/*.yaml, **/*.yml)")
	cmd.Flags().StringSliceVar(&flags.Exclude, "exclude", nil, "Glob patterns of documents to skip")
	cmd.Flags().StringVar(&flags.RegistryURL, "registry-url", "", "Load documents from a registry server instead of --root")
	_ = viper.BindPFlag("root", cmd.Flags().Lookup("root"))
	_ = viper.BindPFlag("include", cmd.Flags().Lookup("include"))
	_ = viper.BindPFlag("exclude", cmd.Flags().Lookup("exclude"))
	_ = viper.BindPFlag("registry_url", cmd.Flags().Lookup("registry-url"))
}

func (f sourceFlags) options(cmd *cobra.Command) app.SourceOptions {
	return app.SourceOptions{
		Root:        resolveString(cmd, f.Root, "root", "root"),
		Include:     resolveStrings(cmd, f.Include, "include", "include"),
		Exclude:     resolveStrings(cmd, f.Exclude, "exclude", "exclude"),
		RegistryURL: resolveString(cmd, f.RegistryURL, "registry_url", "registry-url"),
	}
}

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "format", formatText, "Output format (text, json, yaml)")
	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
