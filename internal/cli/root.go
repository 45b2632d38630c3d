package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liquid-forge/forge-architecture/internal/adapters"
	"github.com/liquid-forge/forge-architecture/internal/app"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "FORGE_REGISTRY"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
	NoColor    bool
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, newPrinter(os.Stderr).errorLine(errorMessage(err)))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "forge-registry",
		Short:         "Validate, graph, resolve and index a module registry",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			colorEnabled = !viper.GetBool("no_color")
			setupLogging(viper.GetString("log_level"))
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(log.Logger.WithContext(ctx))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("no_color", cmd.PersistentFlags().Lookup("no-color"))

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newGraphCommand())
	cmd.AddCommand(newResolveCommand())
	cmd.AddCommand(newIndexCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newServeCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("forge-registry")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/forge-registry")
	// A missing default config file is fine.
	_ = viper.ReadInConfig()
	return nil
}

// setupLogging sends logs to stderr so command output on stdout stays
// machine readable.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !colorEnabled})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// newAppService wires the application service, configuring the remote
// source from the registry_* settings.
func newAppService() (app.Service, error) {
	service, err := app.NewService()
	if err != nil {
		return app.Service{}, err
	}
	remote := adapters.NewHTTPRegistryAdapter()
	remote.User = viper.GetString("registry_user")
	remote.APIKey = viper.GetString("registry_api_key")
	remote.Workers = viper.GetInt("registry_workers")
	remote.Timeout = viper.GetDuration("registry_timeout")
	remote.Retries = viper.GetInt("registry_retries")
	remote.RetryDelay = viper.GetDuration("registry_retry_delay")
	service.Remote = remote
	return service, nil
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeFailedPrecondition, errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeNotFound:
		return 4
	case errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
