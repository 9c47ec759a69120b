// Package main is the entry point for the edgegate tenant and compliance
// gateway.
package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/routing"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const defaultConfigPath = "configs/edgegate.yaml"

// cliFlags holds the persistent command line flags.
type cliFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   "edgegate",
		Short: "Tenant resolution and compliance gateway",
		Long: `edgegate sits in front of a multi-tenant banking application.

Every request passes the compliance filter, is classified by route, has its
tenant resolved from the Host header and is checked by the auth gate before
it reaches the application.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c",
		getEnvOrDefault(config.EnvConfigPath, defaultConfigPath), "Path to configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level",
		getEnvOrDefault(config.EnvLogLevel, ""), "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format",
		getEnvOrDefault(config.EnvLogFormat, ""), "Log format (json, console)")

	root.AddCommand(
		newServeCmd(flags),
		newValidateCmd(flags),
		newRoutesCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAndValidateConfig(flags.configPath)
			if err != nil {
				return err
			}

			logger, err := initLogger(flags, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("starting edgegate",
				observability.String("version", version),
				observability.String("build_time", buildTime),
				observability.String("git_commit", gitCommit),
				observability.String("config", flags.configPath),
			)

			app, err := initApplication(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("failed to initialize application", observability.Error(err))
				return err
			}
			return runGateway(cmd.Context(), app, flags.configPath)
		},
	}
}

func newValidateCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAndValidateConfig(flags.configPath)
			if err != nil {
				return err
			}
			if _, err := buildRouteTable(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration %s is valid\n", flags.configPath)
			return nil
		},
	}
}

func newRoutesCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the effective route classification table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAndValidateConfig(flags.configPath)
			if err != nil {
				return err
			}
			table, err := buildRouteTable(cfg)
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), table)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "edgegate %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// loadAndValidateConfig loads the configuration file and validates it.
func loadAndValidateConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildRouteTable compiles the route table and checks that every declared
// upstream route is classified.
func buildRouteTable(cfg *config.Config) (*routing.Table, error) {
	table, err := routing.FromConfig(&cfg.Routing)
	if err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}
	if err := table.CheckCoverage(cfg.Upstream.Routes); err != nil {
		return nil, err
	}
	return table, nil
}

func printRoutes(w io.Writer, table *routing.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tMATCH\tCLASS\tCAPABILITY")
	for _, rule := range table.Rules() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rule.Pattern, rule.Match, rule.Classification, rule.Capability)
	}
	fmt.Fprintf(tw, "*\t-\t%s\t-\n", table.DefaultPolicy())
	return tw.Flush()
}

// initLogger builds the logger. Flags and environment win over the
// configuration file.
func initLogger(flags *cliFlags, cfg *config.Config) (observability.Logger, error) {
	logCfg := observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	observability.InstallOTelLogger(logger)
	return logger, nil
}
