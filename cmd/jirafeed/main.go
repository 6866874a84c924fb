package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jirafeed/jirafeed/internal/config"
	"github.com/jirafeed/jirafeed/internal/filterfeed/feed"
	"github.com/jirafeed/jirafeed/internal/filterfeed/jira"
	"github.com/jirafeed/jirafeed/internal/filterfeed/render"
	"github.com/jirafeed/jirafeed/internal/filterfeed/ui"
	"github.com/jirafeed/jirafeed/internal/flagutil"
)

var (
	jiraOptions flagutil.JiraOptions
	configPath  string
	verbose     bool

	reportPretty     bool
	reportFilters    string
	reportMaxResults int

	watchInterval time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jirafeed",
		Short: "Aggregate Jira saved-filter results",
		Long: `jirafeed executes server-stored Jira filters and aggregates their results:
issue counts, a compact normalized issue list, and the most recently updated
ticket per filter.

It runs either as a one-shot report emitting JSON (or a colored table), or as
a long-running watcher refreshing a terminal dashboard on a fixed interval.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// stdout carries JSON output, keep diagnostics on stderr
			logrus.SetOutput(os.Stderr)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	jiraOptions.AddPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newReportCmd(),
		newWatchCmd(),
		newFiltersCmd(),
	)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run all configured filters once and emit the results",
		Long: `Run every configured filter once and print the aggregated results as JSON
(an array for a single filter, a mapping keyed by filter id otherwise), or as
a human-readable table with --pretty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context())
		},
	}

	cmd.Flags().BoolVarP(&reportPretty, "pretty", "p", false, "Human-readable table output")
	cmd.Flags().StringVarP(&reportFilters, "filters", "f", "", "Comma-separated filter IDs (overrides the configuration file)")
	cmd.Flags().IntVarP(&reportMaxResults, "max-results", "m", 0, "Maximum issues per filter (overrides the configuration file)")

	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically refresh all configured filters in a dashboard",
		Long: `Continuously refresh every configured filter on a fixed interval and show
the aggregates in a terminal dashboard. Press 'r' for an immediate refresh.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&watchInterval, "interval", 0, "Refresh interval (overrides the configuration file)")

	return cmd
}

func newFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the configured filters with their resolved definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilters(cmd.Context())
		},
	}
}

// loadConfig reads the configuration file, overlays connection flags, and
// validates the result. Any error here is a fatal setup failure.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	jiraOptions.ApplyTo(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createClient(cfg *config.Config) (*jira.Client, error) {
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}

	client, err := jira.NewClient(jira.Options{
		Endpoint:           cfg.Endpoint,
		Email:              cfg.Email,
		APIToken:           token,
		InsecureSkipVerify: !cfg.VerifyTLS(),
		Timeout:            cfg.Timeout(),
	}, logrus.NewEntry(logrus.StandardLogger()))
	if err != nil {
		return nil, fmt.Errorf("cannot create Jira client: %w", err)
	}
	return client, nil
}

func filterSpecs(cfg *config.Config) []feed.FilterSpec {
	specs := make([]feed.FilterSpec, 0, len(cfg.Filters))
	for _, filter := range cfg.Filters {
		specs = append(specs, feed.FilterSpec{ID: filter.ID, Name: filter.Name})
	}
	return specs
}

func runReport(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if reportFilters != "" {
		var filters []config.Filter
		for _, id := range strings.Split(reportFilters, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filters = append(filters, config.Filter{ID: id})
			}
		}
		if len(filters) == 0 {
			return fmt.Errorf("no valid filter IDs provided")
		}
		cfg.Filters = filters
	}
	if reportMaxResults > 0 {
		cfg.MaxResults = reportMaxResults
	}

	client, err := createClient(cfg)
	if err != nil {
		return err
	}

	coordinator := feed.New(client, feed.Config{
		Filters:    filterSpecs(cfg),
		MaxResults: cfg.MaxResults,
	}, logrus.NewEntry(logrus.StandardLogger()))

	// Setup is done; from here on failures produce a JSON error object on
	// stdout instead of a bare crash.
	cycle := coordinator.Refresh(ctx)

	if reportPretty {
		err = render.Table(os.Stdout, cycle)
	} else {
		err = render.JSON(os.Stdout, cycle)
	}
	if err != nil {
		logrus.WithError(err).Error("cannot render results")
		_ = render.ErrorJSON(os.Stdout, err, time.Now())
		os.Exit(1)
	}
	return nil
}

func runWatch(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if watchInterval > 0 {
		cfg.RefreshMinutes = int(watchInterval / time.Minute)
		if cfg.RefreshMinutes == 0 {
			cfg.RefreshMinutes = 1
		}
	}

	client, err := createClient(cfg)
	if err != nil {
		return err
	}

	coordinator := feed.New(client, feed.Config{
		Filters:    filterSpecs(cfg),
		MaxResults: cfg.MaxResults,
		Interval:   cfg.RefreshInterval(),
	}, logrus.NewEntry(logrus.StandardLogger()))

	coordinator.Start(ctx)
	defer coordinator.Stop()

	program := tea.NewProgram(ui.NewModel(coordinator), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("cannot run TUI: %w", err)
	}
	return nil
}

func runFilters(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := createClient(cfg)
	if err != nil {
		return err
	}

	fmt.Println("Configured filters:")
	for _, filter := range cfg.Filters {
		definition, err := client.Resolve(ctx, filter.ID)
		if err != nil {
			fmt.Printf("  - %s: cannot resolve: %v\n", filter.ID, err)
			continue
		}

		name := filter.Name
		if name == "" {
			name = definition.Name
		}
		fmt.Printf("  - %s: %s\n    JQL: %s\n", filter.ID, name, definition.JQL)
	}
	return nil
}
