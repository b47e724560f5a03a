// Command localsearch indexes and searches local documents with
// hybrid keyword and semantic ranking. It also runs as an MCP server
// over stdio.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/localsearch/internal/config"
	"github.com/dshills/localsearch/internal/embedder"
	"github.com/dshills/localsearch/internal/engine"
	"github.com/dshills/localsearch/internal/ingest"
	"github.com/dshills/localsearch/internal/mcp"
	"github.com/dshills/localsearch/internal/searcher"
	"github.com/dshills/localsearch/internal/storage"
	"github.com/dshills/localsearch/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	cfgFile string
	dbPath  string
)

func main() {
	log.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:          "localsearch",
		Short:        "Local hybrid document search engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "index database path (overrides config)")

	root.AddCommand(
		newIndexCmd(),
		newSearchCmd(),
		newDeleteCmd(),
		newStatsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the --db override on top of the loaded config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openEngine builds an engine from the loaded config
func openEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDBDir(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	emb, err := embedder.New(embedder.Options{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return engine.New(store, emb), nil
}

func newIndexCmd() *cobra.Command {
	var jsonFile string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "index [directory]",
		Short: "Ingest documents from a directory or a JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && jsonFile == "" {
				return fmt.Errorf("provide a directory or --json file")
			}

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			ing := ingest.New(eng, concurrency)
			var stats ingest.Stats

			if jsonFile != "" {
				f, err := os.Open(jsonFile)
				if err != nil {
					return err
				}
				defer f.Close()
				stats, err = ing.IngestJSON(cmd.Context(), f)
				if err != nil {
					return err
				}
			} else {
				stats, err = ing.IngestDir(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			}

			fmt.Printf("Ingested: %d, failed: %d, skipped: %d\n",
				stats.Ingested, stats.Failed, stats.Skipped)
			for _, msg := range stats.Errors {
				log.Printf("ingest error: %s", msg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&jsonFile, "json", "", "JSON file with an array of {path, content, metadata} objects")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel workers for directory ingestion")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var mode string
	var limit int
	var pathFilters []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			results, err := eng.Search(cmd.Context(), args[0], searcher.Options{
				Mode:        types.SearchMode(mode),
				PathFilters: pathFilters,
				Limit:       limit,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(types.SearchModeHybrid), "search mode: lexical, semantic, or hybrid")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	cmd.Flags().StringSliceVar(&pathFilters, "path", nil, "path substring filters (any match admits a document)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Remove a document from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			stats, err := eng.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// stdout is reserved for the MCP protocol
			log.Printf("localsearch MCP server v%s starting (driver: %s, mode: %s)",
				version, storage.DriverName, storage.BuildMode)

			srv, err := mcp.NewServer(cfg)
			if err != nil {
				return err
			}
			return srv.Serve()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("localsearch %s\n", version)
			fmt.Printf("Build Time: %s\n", buildTime)
			fmt.Printf("Build Mode: %s\n", storage.BuildMode)
			fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		},
	}
}
