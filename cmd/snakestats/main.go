// Package main provides the CLI entrypoint for snakestats.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/snakestats/internal/aggregate"
	"github.com/verte-zerg/snakestats/internal/chart"
	"github.com/verte-zerg/snakestats/internal/config"
	"github.com/verte-zerg/snakestats/internal/dashboard"
	"github.com/verte-zerg/snakestats/internal/logger"
	"github.com/verte-zerg/snakestats/internal/model"
	"github.com/verte-zerg/snakestats/internal/pypistats"
	"github.com/verte-zerg/snakestats/internal/selection"
	"github.com/verte-zerg/snakestats/internal/store"
	"github.com/verte-zerg/snakestats/internal/theme"
)

const (
	defaultTimeoutSeconds = 30
	defaultLogLevel       = "info"
	defaultShowHeight     = 12
)

var (
	sourceBaseURL string
	sourceTimeout int

	dashWindow      int
	dashMaxPackages int
	dashTheme       string
	dashNoSort      bool

	showWindow      int
	showMaxPackages int
	showTable       bool
	showWidth       int
	showHeight      int
	showColor       bool
	showNoSort      bool
)

type settings struct {
	dashboard model.DashboardConfig
	source    model.SourceConfig
	theme     theme.Preference
	logLevel  string
	logFile   string
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "snakestats [packages...]",
		Short:         "PyPI download stats dashboard",
		Long:          "Compare daily PyPI downloads for a configurable number of packages (default 6).\nPackages may be given separately or as a \"+\"-joined slug, e.g. flask+django.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDashboardCmd,
	}

	rootCmd.PersistentFlags().StringVar(&sourceBaseURL, "base-url", pypistats.DefaultBaseURL, "pypistats API root")
	rootCmd.PersistentFlags().IntVar(&sourceTimeout, "timeout", defaultTimeoutSeconds, "per-package fetch timeout in seconds")

	rootCmd.Flags().IntVar(&dashWindow, "window", chart.DefaultWindow, "days shown (30, 90 or 180)")
	rootCmd.Flags().IntVar(&dashMaxPackages, "max-packages", selection.DefaultMaxPackages, "maximum number of selected packages")
	rootCmd.Flags().StringVar(&dashTheme, "theme", "", "set and save the theme (light, dark, device)")
	rootCmd.Flags().BoolVar(&dashNoSort, "no-sort", false, "keep rows in fetch order instead of sorting by date")

	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newThemeCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func loadSettings(cmd *cobra.Command, windowFlag string, window *int, maxFlag string, maxPackages *int, noSort bool) (settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, windowFlag, window, fileCfg.Dashboard.Window)
	applyIntConfig(cmd, maxFlag, maxPackages, fileCfg.Dashboard.MaxPackages)
	applyStringConfig(cmd, "base-url", &sourceBaseURL, fileCfg.Source.BaseURL)
	applyIntConfig(cmd, "timeout", &sourceTimeout, fileCfg.Source.TimeoutSeconds)

	sortByDate := true
	if fileCfg.Dashboard.SortByDate != nil {
		sortByDate = *fileCfg.Dashboard.SortByDate
	}
	if cmd.Flags().Changed("no-sort") {
		sortByDate = !noSort
	}

	s := settings{
		dashboard: model.DashboardConfig{
			MaxPackages: *maxPackages,
			WindowDays:  *window,
			SortByDate:  sortByDate,
		},
		source: model.SourceConfig{
			BaseURL: sourceBaseURL,
			Timeout: time.Duration(sourceTimeout) * time.Second,
		},
		theme:    theme.Default,
		logLevel: defaultLogLevel,
		logFile:  config.DefaultLogPath(),
	}
	if fileCfg.Source.UserAgent != nil {
		s.source.UserAgent = *fileCfg.Source.UserAgent
	}
	if fileCfg.Logging.Level != nil {
		s.logLevel = *fileCfg.Logging.Level
	}
	if fileCfg.Logging.File != nil && strings.TrimSpace(*fileCfg.Logging.File) != "" {
		s.logFile = *fileCfg.Logging.File
	}
	if fileCfg.Dashboard.Theme != nil {
		p, err := theme.ParsePreference(*fileCfg.Dashboard.Theme)
		if err != nil {
			return settings{}, fmt.Errorf("invalid theme in config: %w", err)
		}
		s.theme = p
	}
	if err := validateSettings(s, windowFlag, maxFlag); err != nil {
		return settings{}, err
	}
	return s, nil
}

func validateSettings(s settings, windowFlag, maxFlag string) error {
	if !chart.ValidWindow(s.dashboard.WindowDays) {
		return fmt.Errorf("--%s must be one of 30, 90, 180", windowFlag)
	}
	if s.dashboard.MaxPackages <= 0 {
		return fmt.Errorf("--%s must be > 0", maxFlag)
	}
	if s.source.Timeout < 0 {
		return fmt.Errorf("--timeout must be >= 0")
	}
	if strings.TrimSpace(s.source.BaseURL) == "" {
		return fmt.Errorf("--base-url must not be empty")
	}
	return nil
}

func newClient(s settings) *pypistats.Client {
	return pypistats.New(s.source.BaseURL,
		pypistats.WithTimeout(s.source.Timeout),
		pypistats.WithUserAgent(s.source.UserAgent),
	)
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func runDashboardCmd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, "window", &dashWindow, "max-packages", &dashMaxPackages, dashNoSort)
	if err != nil {
		return err
	}
	if dashTheme != "" {
		p, err := theme.ParsePreference(dashTheme)
		if err != nil {
			return fmt.Errorf("invalid --theme: %w", err)
		}
		s.theme = p
	}

	logFile, err := logger.OpenFile(s.logFile)
	if err != nil {
		return err
	}
	defer func() {
		_ = logFile.Close()
	}()
	logger.Init(s.logLevel, logFile)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	themeStore := store.NewThemeStore(st)
	theme.Init(ctx, themeStore, s.theme)
	if dashTheme != "" {
		if err := theme.Set(ctx, s.theme); err != nil {
			logger.Warn("%v", err)
		}
	}

	routes := store.NewRouteStore(st, s.dashboard.MaxPackages)
	initial, err := initialSelection(ctx, routes, args, s.dashboard.MaxPackages)
	if err != nil {
		return err
	}
	logger.Info("starting dashboard at %s", selection.Path(initial))

	client := newClient(s)
	defer client.Close()

	m := dashboard.NewModel(dashboard.Options{
		Fetcher:   client,
		Store:     routes,
		Selection: initial,
		Dashboard: s.dashboard,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logger.Error("dashboard exited: %v", err)
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

// initialSelection uses the arguments when given and saves them as the
// current route; otherwise it restores the saved route.
func initialSelection(ctx context.Context, routes selection.Store, args []string, maxPackages int) (selection.Set, error) {
	if len(args) == 0 {
		set, err := routes.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load saved selection: %w", err)
		}
		return set, nil
	}
	set := selection.ParseArgs(args, maxPackages)
	if err := routes.Save(ctx, set); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}
	return set, nil
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [packages...]",
		Short: "Fetch and print a chart without the dashboard",
		RunE:  runShowCmd,
	}
	cmd.Flags().IntVar(&showWindow, "window", chart.DefaultWindow, "days shown (30, 90 or 180)")
	cmd.Flags().IntVar(&showMaxPackages, "max-packages", selection.DefaultMaxPackages, "maximum number of packages")
	cmd.Flags().BoolVar(&showTable, "table", false, "print a table instead of a chart")
	cmd.Flags().IntVar(&showWidth, "width", 0, "plot width (default: terminal width)")
	cmd.Flags().IntVar(&showHeight, "height", defaultShowHeight, "plot height in rows")
	cmd.Flags().BoolVar(&showColor, "color", false, "enable colored output (ignored when NO_COLOR is set)")
	cmd.Flags().BoolVar(&showNoSort, "no-sort", false, "keep rows in fetch order instead of sorting by date")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, "window", &showWindow, "max-packages", &showMaxPackages, showNoSort)
	if err != nil {
		return err
	}
	if showHeight <= 0 {
		return fmt.Errorf("--height must be > 0")
	}
	if showWidth < 0 {
		return fmt.Errorf("--width must be >= 0")
	}
	logger.Init(s.logLevel, os.Stderr)

	ctx := context.Background()
	set := selection.ParseArgs(args, s.dashboard.MaxPackages)
	if len(set) == 0 {
		st, err := openStore()
		if err != nil {
			return err
		}
		set, err = store.NewRouteStore(st, s.dashboard.MaxPackages).Load(ctx)
		closeStore(st)
		if err != nil {
			return fmt.Errorf("failed to load saved selection: %w", err)
		}
	}
	if len(set) == 0 {
		return fmt.Errorf("no packages given (try: snakestats show requests+flask)")
	}

	client := newClient(s)
	defer client.Close()

	table := aggregate.Aggregate(ctx, client, set.Strings())
	if missing := aggregate.Missing(set.Strings(), table); len(missing) > 0 {
		logErrf("no data for: %s\n", strings.Join(missing, ", "))
		if hosts := openCircuits(client.BreakerStates()); len(hosts) > 0 {
			logErrf("upstream unavailable, requests skipped for: %s\n", strings.Join(hosts, ", "))
		}
	}
	if s.dashboard.SortByDate {
		table = table.SortedByDate()
	}
	view := chart.Present(table, set, s.dashboard.WindowDays)
	return writeView(cmd.OutOrStdout(), view, set, s.dashboard.WindowDays)
}

// openCircuits returns the hosts whose circuit is open, sorted.
func openCircuits(states map[string]string) []string {
	var hosts []string
	for host, state := range states {
		if state == "open" {
			hosts = append(hosts, host)
		}
	}
	sort.Strings(hosts)
	return hosts
}

func writeView(w io.Writer, view chart.View, set selection.Set, window int) error {
	if len(view.Rows) == 0 {
		if _, err := fmt.Fprintln(w, "No download data."); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if showTable {
		if err := chart.RenderTable(w, view); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	title := fmt.Sprintf("Daily downloads, last %d days (%s)", window, selection.Slug(set))
	err := chart.Plot(w, view, chart.PlotOptions{
		Title:  title,
		Width:  showWidth,
		Height: showHeight,
		Color:  showColor,
		Cursor: -1,
	})
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	latest := chart.Tooltip(view.Rows[len(view.Rows)-1], view.Series)
	if _, err := fmt.Fprintln(w, strings.Join(latest, "  ")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newThemeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|device]",
		Short:     "Show or set the theme preference",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(theme.Light), string(theme.Dark), string(theme.Device)},
		RunE:      runThemeCmd,
	}
}

func runThemeCmd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	themes := store.NewThemeStore(st)
	current := theme.Init(ctx, themes, theme.Default)
	if len(args) == 0 {
		saved, ok, err := themes.UpdatedAt(ctx)
		if err != nil {
			logger.Warn("failed to read theme save time: %v", err)
			ok = false
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), themeStatus(current, saved, ok, time.Now())); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	p, err := theme.ParsePreference(args[0])
	if err != nil {
		return err
	}
	if err := theme.Set(ctx, p); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "theme set to %s\n", p); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// themeStatus describes the preference and when it was saved.
func themeStatus(p theme.Preference, saved time.Time, ok bool, now time.Time) string {
	if !ok {
		return fmt.Sprintf("%s (default)", p)
	}
	return fmt.Sprintf("%s (saved %s)", p, humanize.RelTime(saved, now, "ago", "from now"))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# snakestats configuration
# Uncomment a value to enable it. CLI flags override config values.

[dashboard]
# max-packages = %d        # Maximum number of selected packages
# window = %d             # Days shown: 30, 90 or 180
# sort-by-date = true      # Sort rows by date; false keeps fetch order
# theme = %q         # light, dark or device

[source]
# base-url = %q
# timeout-seconds = %d     # Per-package fetch timeout; 0 disables it
# user-agent = "snakestats/1.0"

[logging]
# level = %q             # debug, info, warn or error
# file = %q
`,
		selection.DefaultMaxPackages,
		chart.DefaultWindow,
		theme.Default,
		pypistats.DefaultBaseURL,
		defaultTimeoutSeconds,
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
