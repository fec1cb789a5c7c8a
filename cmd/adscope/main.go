package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lmarchal/adscope/internal/config"
	"github.com/lmarchal/adscope/internal/pipeline"
	"github.com/lmarchal/adscope/internal/report"
	"github.com/lmarchal/adscope/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	// API keys may live in a local .env during development
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "adscope",
	Short:   "Meta Ad Library analysis",
	Long:    "adscope extracts a brand's ads from the Meta Ad Library, classifies their creative strategy with an LLM, and writes HTML/CSV/JSON reports.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(redoCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("adscope", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/adscope/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the browser agent, API keys, and LLM models.")
		return nil
	},
}

// --- analyze command ---

var (
	analyzeCountry string
	analyzeMaxAds  int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [brand]",
	Short: "Run the full pipeline: extract -> classify -> insights -> report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		brand := args[0]

		country := analyzeCountry
		if country == "" {
			country = cfg.Extraction.Country
		}
		maxAds := analyzeMaxAds
		if maxAds <= 0 {
			maxAds = cfg.Extraction.MaxAds
		}

		pipe, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Analyzing %s (country: %s, up to %d ads)\n", brand, country, maxAds)
		result := pipe.Run(context.Background(), brand, country, maxAds)
		return printResult(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCountry, "country", "", "Ad Library country filter")
	analyzeCmd.Flags().IntVar(&analyzeMaxAds, "max-ads", 0, "Maximum number of ads to extract")
}

// --- redo command ---

var redoCmd = &cobra.Command{
	Use:   "redo [export.json|export.csv]",
	Short: "Re-run classification and reporting over a previous export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		var data *report.Data
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			data, err = report.LoadJSON(path)
		case ".csv":
			data, err = report.LoadCSV(path)
		default:
			return fmt.Errorf("unsupported export type %s, expected .json or .csv", path)
		}
		if err != nil {
			return err
		}
		if len(data.Ads) == 0 {
			return fmt.Errorf("export %s contains no ads", path)
		}

		pipe, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Re-analyzing %d ads for %s\n", len(data.Ads), data.Brand)
		result := pipe.Redo(context.Background(), data)
		return printResult(result)
	},
}

// --- reports command ---

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List generated reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := filepath.Join(cfg.GetDataDir(), "reports")
		entries, err := report.List(dir)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Printf("No reports in %s. Run 'adscope analyze <brand>' first.\n", dir)
			return nil
		}

		fmt.Printf("Reports in %s:\n\n", dir)
		for _, e := range entries {
			fmt.Printf("  %-50s %-5s %8.1f KB  %s\n", e.Name, e.Type, e.SizeKB, e.Modified.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, pipe, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func printResult(result *pipeline.Result) error {
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/4: %s\n", i+1, step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}

	if result.Failed() {
		return fmt.Errorf("pipeline did not complete")
	}

	fmt.Println("\nAnalysis complete:")
	fmt.Printf("  HTML: %s\n", result.Paths.HTML)
	fmt.Printf("  CSV:  %s\n", result.Paths.CSV)
	fmt.Printf("  JSON: %s\n", result.Paths.JSON)
	return nil
}
