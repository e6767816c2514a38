package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/linkscout/linkscout/internal/architect"
	"github.com/linkscout/linkscout/internal/config"
	"github.com/linkscout/linkscout/internal/crawl"
	"github.com/linkscout/linkscout/internal/database"
	"github.com/linkscout/linkscout/internal/engine"
	"github.com/linkscout/linkscout/internal/report"
	"github.com/linkscout/linkscout/internal/server"
	"github.com/linkscout/linkscout/internal/wpclient"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose     bool
	configPath  string
	projectPath string
	cfg         *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "linkscout",
	Short:   "Internal link opportunities for WordPress sites",
	Long:    "LinkScout crawls a WordPress site, maps its link architecture, and suggests internal links with validated anchor text.",
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
		if projectPath != "" {
			cfg, err = config.LoadProject(path, projectPath)
		} else {
			cfg, err = config.Load(path)
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", "", "Path to a project config layered over the global one")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("linkscout", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/linkscout/",
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
		fmt.Println("Edit it to set the site URL, credentials, and knowledge graph.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		lastRun, _ := db.GetLastRunDate()
		if lastRun == "" {
			lastRun = "never"
		}

		fmt.Printf("Site: %s (mode: %s)\n", cfg.Site.URL, cfg.API.Mode)
		fmt.Printf("Last run: %s\n\n", lastRun)
		fmt.Println("Pages:")
		fmt.Printf("  Crawled: %d\n", stats.TotalPages)
		fmt.Printf("  Classified: %d\n", stats.ClassifiedPages)
		fmt.Println("\nSuggestions:")
		fmt.Printf("  Total: %d\n", stats.TotalSuggestions)
		fmt.Printf("  Pending: %d\n", stats.PendingSuggestions)
		fmt.Printf("  Applied: %d\n", stats.AppliedSuggestions)
		fmt.Printf("\nRuns: %d\n", stats.Runs)
		return nil
	},
}

// --- crawl command ---

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the site's posts and pages into the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Crawling %s...\n", cfg.Site.URL)
		crawler := crawl.New(cfg, db, architect.New(cfg))
		result, err := crawler.Crawl(context.Background())
		if err != nil {
			return err
		}

		fmt.Println("\nCrawl complete:")
		fmt.Printf("  Posts: %d\n", result.Posts)
		fmt.Printf("  Pages: %d\n", result.Pages)
		fmt.Printf("  Stored: %d\n", result.Stored)
		fmt.Printf("  Failed: %d\n", result.Failed)
		if result.UsedFeed {
			fmt.Println("  (posts came from the RSS feed fallback)")
		}
		return nil
	},
}

// --- analyze command ---

var analyzeRunID string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze crawled pages for link opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runID := analyzeRunID
		if runID == "" {
			runID = database.GetToday()
		}

		analysis, err := engine.NewAnalyzer(cfg, db).Analyze(runID)
		if err != nil {
			return err
		}

		fmt.Printf("Run %s:\n", runID)
		fmt.Printf("  Pages analyzed: %d (%d excluded)\n", analysis.Pages, analysis.Excluded)
		fmt.Printf("  Link suggestions: %d\n", len(analysis.Suggestions))
		fmt.Printf("  Permit decisions: %d\n", len(analysis.Permits))
		fmt.Printf("\nReview them with 'linkscout serve' or export with 'linkscout report'.\n")
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRunID, "run-id", "", "Run ID to analyze under (defaults to today)")
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: crawl -> analyze -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runID := database.GetToday()
		pipe := engine.New(cfg, db)

		var result *engine.Result
		if dryRun {
			result = pipe.DryRun(runID)
		} else {
			result = pipe.Run(context.Background(), runID)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/3: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'linkscout serve' to review suggestions.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

// --- report command ---

var reportRunID string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a run's CSV files and action checklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runID := reportRunID
		if runID == "" {
			runID, _ = db.GetLastRunDate()
		}
		if runID == "" {
			return fmt.Errorf("no completed runs; run 'linkscout run' first")
		}

		outDir := filepath.Join(cfg.GetDataDir(), "reports")
		files, err := report.Generate(db, runID, outDir)
		if err != nil {
			return err
		}

		fmt.Printf("Reports for run %s:\n", runID)
		fmt.Printf("  %s\n", files.SuggestionsCSV)
		fmt.Printf("  %s\n", files.PermitsCSV)
		fmt.Printf("  %s\n", files.ArchitectureCSV)
		fmt.Printf("  %s\n", files.ChecklistMD)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run-id", "", "Run ID to export (defaults to the latest)")
}

// --- apply command ---

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Write pending suggestions back to WordPress as drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pending, err := db.GetPendingSuggestions()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("No pending suggestions to apply.")
			return nil
		}

		client := wpclient.New(cfg)
		result, err := client.ApplyBatch(context.Background(), db, pending, applyDryRun)
		if err != nil {
			return err
		}

		label := "Applied"
		if applyDryRun {
			label = "Would apply"
		}
		fmt.Printf("%s %d suggestion(s), skipped %d, failed %d.\n",
			label, result.Applied, result.Skipped, result.Failed)
		if !applyDryRun && result.Applied > 0 {
			fmt.Println("Edited posts were saved as drafts; review and publish them in WordPress.")
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Validate placements without writing to WordPress")
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local review dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Starting dashboard at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, db)
	},
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "linkscout.db")
	return database.Open(dbPath)
}
