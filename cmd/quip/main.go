package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/quip/internal/category"
	"github.com/pders01/quip/internal/config"
	"github.com/pders01/quip/internal/coord"
	"github.com/pders01/quip/internal/debuglog"
	"github.com/pders01/quip/internal/jokeapi"
	"github.com/pders01/quip/internal/search"
	"github.com/pders01/quip/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath  string
	quiet       bool
	logLevel    string
	jokesAmount int
)

var rootCmd = &cobra.Command{
	Use:   "quip",
	Short: "Terminal joke browser",
	Long:  "quip browses joke categories from JokeAPI in the terminal.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !quiet {
			tui.ShowBanner(Version)
		}
		return runTUI(cmd.Context(), cfg)
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("quip %s\n", Version)
		fmt.Println("Terminal joke browser")
		fmt.Println("github.com/pders01/quip")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate default config file",
	Run: func(_ *cobra.Command, _ []string) {
		configFile := configPath
		if configFile == "" {
			home, _ := os.UserHomeDir()
			configFile = filepath.Join(home, ".config", "quip", "config.toml")
		}

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return config.Encode(cmd.OutOrStdout(), cfg)
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Print the category list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadCLIConfig(cmd)
		if err != nil {
			return err
		}
		return printCategories(cmd.Context(), cmd.OutOrStdout(), jokeapi.NewClient(cfg))
	},
}

var jokesCmd = &cobra.Command{
	Use:   "jokes <category>",
	Short: "Fetch and print a batch of jokes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCLIConfig(cmd)
		if err != nil {
			return err
		}
		amount := jokesAmount
		if amount < 1 {
			amount = cfg.Jokes.BatchSize
		}
		return printJokes(cmd.Context(), cmd.OutOrStdout(), jokeapi.NewClient(cfg), args[0], amount)
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Load one batch for every category and print the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadCLIConfig(cmd)
		if err != nil {
			return err
		}
		c := coord.New(category.NewIndex(), jokeapi.NewClient(cfg), coord.OptionsFromConfig(cfg))
		return dump(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), c)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, off)")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Skip startup banner")
	jokesCmd.Flags().IntVarP(&jokesAmount, "amount", "n", 0, "Number of jokes to fetch (default: jokes.batch_size)")

	configCmd.AddCommand(configGenCmd, configShowCmd)
	rootCmd.AddCommand(versionCmd, configCmd, categoriesCmd, jokesCmd, dumpCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// loadCLIConfig is loadConfig for the non-interactive commands, which log to
// stderr instead of the log file.
func loadCLIConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	debuglog.SetOutput(debuglog.ParseLogLevel(cfg.Log.Level), cmd.ErrOrStderr())
	return cfg, nil
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.Path); err != nil {
		return err
	}
	defer debuglog.Close()

	tui.ApplyTheme(cfg.UI.Colors)

	c := coord.New(category.NewIndex(), jokeapi.NewClient(cfg), coord.OptionsFromConfig(cfg))

	var searcher search.Searcher
	idx, err := search.NewIndex()
	if err != nil {
		// Browsing works without search
		debuglog.Warnf("search disabled: %v", err)
	} else {
		defer idx.Close()
		c.SetListener(idx)
		searcher = idx
	}

	app := tui.NewApp(ctx, c, searcher, cfg)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

func printCategories(ctx context.Context, w io.Writer, src coord.Source) error {
	names, err := src.Categories(ctx)
	if err != nil {
		return err
	}
	for i, name := range names {
		fmt.Fprintf(w, "%d. %s\n", i+1, name)
	}
	return nil
}

func printJokes(ctx context.Context, w io.Writer, src coord.Source, name string, amount int) error {
	jokes, err := src.Jokes(ctx, name, amount)
	if err != nil {
		return err
	}
	for i, joke := range jokes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, joke)
	}
	return nil
}

// dump prefetches every category and prints what arrived. Per-category
// failures are reported on errw; only a failed category list is fatal.
func dump(ctx context.Context, w, errw io.Writer, c *coord.Coordinator) error {
	if err := c.Prefetch(ctx); err != nil {
		if c.ListFailure() != nil || c.Index().Len() == 0 {
			return err
		}
		fmt.Fprintf(errw, "warning: %v\n", err)
	}
	printIndex(w, c.Snapshot())
	return nil
}

func printIndex(w io.Writer, snap []category.Category) {
	for i, cat := range snap {
		fmt.Fprintf(w, "%d. %s (%d)\n", i+1, cat.Name, len(cat.Jokes))
		for _, joke := range cat.Jokes {
			fmt.Fprintf(w, "   - %s\n", joke)
		}
	}
}
