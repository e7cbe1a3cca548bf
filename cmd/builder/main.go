// Command builder assembles the city catalog out-of-band from pre-scraped
// dataset payloads. The API never calls it; it only reads the result.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/armieahmed7/halalcities-sub003/internal/adapters/dataset"
	"github.com/armieahmed7/halalcities-sub003/internal/adapters/observability"
	"github.com/armieahmed7/halalcities-sub003/internal/app"
	"github.com/armieahmed7/halalcities-sub003/internal/catalog"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
	"github.com/armieahmed7/halalcities-sub003/internal/shared"
	mysqlrepo "github.com/armieahmed7/halalcities-sub003/internal/storage/mysql"
)

var cfg = shared.Load()

var (
	manifestPath string
	outPath      string
	toMySQL      bool
	workers      int
	rps          int
)

var rootCmd = &cobra.Command{
	Use:           "builder",
	Short:         "Build the HalalCities catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = observability.NewLogger(cfg.AppEnv)
	},
}

// buildCmd downloads and maps every manifest city
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Download city payloads and write the catalog",
	Long: `Fetch each manifest city from the dataset host, map it into catalog
records and write them to a catalog JSON file (--out), to MySQL (--mysql),
or both. Cities without a payload are logged as misses and skipped.`,
	RunE: runBuild,
}

// validateCmd loads a catalog file exactly as the API would
var validateCmd = &cobra.Command{
	Use:   "validate [catalog.json]",
	Short: "Check that a catalog file loads",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.CatalogPath
		if len(args) == 1 {
			path = args[0]
		}
		snap, err := catalog.LoadFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d cities, %d listings, version %s\n",
			snap.Len(), len(snap.Listings()), snap.Version())
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "cities.yaml", "YAML manifest of cities to build")
	buildCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the catalog JSON to this file")
	buildCmd.Flags().BoolVar(&toMySQL, "mysql", false, "upsert into MySQL (MYSQL_DSN)")
	buildCmd.Flags().IntVarP(&workers, "workers", "w", cfg.BuildWorkers, "concurrent city downloads")
	buildCmd.Flags().IntVar(&rps, "rps", 5, "dataset requests per second")

	rootCmd.AddCommand(buildCmd, validateCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if outPath == "" && !toMySQL {
		return fmt.Errorf("nothing to do: pass --out and/or --mysql")
	}
	ctx := cmd.Context()

	m, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}
	listings, err := m.loadListings()
	if err != nil {
		return err
	}

	client, err := dataset.New(cfg.DatasetBase, cfg.DatasetToken, rps)
	if err != nil {
		return fmt.Errorf("dataset client: %w", err)
	}

	var writer domain.CatalogWriter
	if toMySQL {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return fmt.Errorf("sql.Open: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.Ping: %w", err)
		}
		writer = mysqlrepo.New(db)
	}

	log.Info().
		Str("base", cfg.DatasetBase).
		Int("cities", len(m.Cities)).
		Int("workers", workers).
		Msg("build starting")

	b := app.NewCatalogBuilder(client, writer)
	data, err := b.BuildAll(ctx, m.Cities, workers)
	if err != nil {
		return err
	}
	if err := b.PublishListings(ctx, listings); err != nil {
		return err
	}
	data.Listings = listings

	// the file must load exactly as the API would load it
	snap, err := catalog.New(data)
	if err != nil {
		return fmt.Errorf("built catalog is invalid: %w", err)
	}
	if outPath != "" {
		if err := catalog.WriteFile(outPath, data); err != nil {
			return err
		}
	}
	log.Info().
		Int("cities", snap.Len()).
		Int("skipped", len(m.Cities)-snap.Len()).
		Int("listings", len(listings)).
		Str("version", snap.Version()).
		Str("out", outPath).
		Msg("build completed")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("builder failed")
		stop()
		os.Exit(1)
	}
}
