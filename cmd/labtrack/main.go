package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/labtrack/internal/apiclient"
	"github.com/HerbHall/labtrack/internal/config"
	"github.com/HerbHall/labtrack/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	apiURL     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "labtrack",
		Short: "Test machine inventory console",
		Long: `LabTrack is a browser console for the test machine inventory.

Examples:
  # Run the console on the configured address
  labtrack serve

  # List ready machines as YAML
  labtrack machines list --status Ready -o yaml`,
		Version:      version.Short(),
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(version.Info() + "\n")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "inventory backend base URL (overrides api.base_url)")

	cmd.AddCommand(newServeCmd(opts), newMachinesCmd(opts), newAuditCmd(opts), newVersionCmd())
	return cmd
}

// load reads configuration and applies flag overrides.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.apiURL != "" {
		cfg.Viper().Set("api.base_url", o.apiURL)
	}
	return cfg, nil
}

// client builds a backend client for one-shot commands.
func (o *rootOptions) client() (*apiclient.Client, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	return newAPIClient(cfg, zap.NewNop(), nil), nil
}

func newAPIClient(cfg *config.Config, logger *zap.Logger, metrics *apiclient.Metrics) *apiclient.Client {
	return apiclient.New(apiclient.Options{
		BaseURL:   cfg.GetString("api.base_url"),
		Timeout:   cfg.GetDuration("api.timeout"),
		RateLimit: cfg.GetFloat64("api.rate_limit"),
		Burst:     cfg.GetInt("api.burst"),
		Logger:    logger,
		Metrics:   metrics,
	})
}

// newLogger builds the process logger for level. "debug" switches to the
// human-readable development encoder.
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
