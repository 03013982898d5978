// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/shelfvec"
	"github.com/poiesic/shelfvec/config"
	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/ingestion"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "shelfvec",
		Usage: "Import book catalogs into tag and description vector collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Embed a book catalog and write both collections",
				Action: importCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Catalog path or s3://bucket/key (.zst is decompressed)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records per batch",
						Value: ingestion.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of batches processed in parallel",
						Value: ingestion.DefaultConcurrency,
					},
					&cli.BoolFlag{
						Name:  "clear-existing",
						Usage: "Remove every point from both collections before importing",
					},
					&cli.StringFlag{
						Name:  "summary-file",
						Usage: "Write the run summary as JSON to this path",
					},
					&cli.StringFlag{
						Name:  "metrics-file",
						Usage: "Write Prometheus metrics in textfile format to this path",
					},
				),
			},
			{
				Name:   "verify",
				Usage:  "Report point counts of both collections",
				Action: verifyCommand,
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "deep",
						Usage: "Compare identifier sets and list orphan points",
					},
				),
			},
			{
				Name:   "clear",
				Usage:  "Remove every point from both collections",
				Action: clearCommand,
				Flags:  commonFlags(),
			},
		},
	}
}

func commonFlags() []cli.Flag {
	defaults := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Embedding provider (ollama, openai)",
			Value: string(defaults.Embedding.Provider),
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: defaults.Embedding.Host,
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: defaults.Embedding.Model,
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Attempts per embedding call",
			Value: defaults.Embedding.MaxAttempts,
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Directory of the embedding cache (disabled when empty)",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "Vector store backend (qdrant, badger)",
			Value: defaults.Store.Backend,
		},
		&cli.StringFlag{
			Name:  "store-url",
			Usage: "Qdrant REST endpoint",
			Value: defaults.Store.URL,
		},
		&cli.StringFlag{
			Name:  "store-path",
			Usage: "Directory of the badger store (in-memory when empty)",
		},
		&cli.IntFlag{
			Name:  "vector-size",
			Usage: "Embedding dimensionality of both collections",
			Value: defaults.Store.VectorSize,
		},
		&cli.StringFlag{
			Name:  "distance",
			Usage: "Distance metric of both collections (Cosine, Euclid, Dot, Manhattan)",
			Value: string(defaults.Store.Distance),
		},
		&cli.StringFlag{
			Name:  "tag-collection",
			Usage: "Name of the tag collection",
			Value: defaults.Store.TagCollection,
		},
		&cli.StringFlag{
			Name:  "desc-collection",
			Usage: "Name of the description collection",
			Value: defaults.Store.DescCollection,
		},
	}
}

// loadConfig reads the config file when given and applies every flag set
// on the command line over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrideString(c, "provider", (*string)(&cfg.Embedding.Provider))
	overrideString(c, "embedding-host", &cfg.Embedding.Host)
	overrideString(c, "embedding-model", &cfg.Embedding.Model)
	overrideInt(c, "max-attempts", &cfg.Embedding.MaxAttempts)
	overrideString(c, "cache-dir", &cfg.Embedding.CacheDir)
	overrideString(c, "store", &cfg.Store.Backend)
	overrideString(c, "store-url", &cfg.Store.URL)
	overrideString(c, "store-path", &cfg.Store.Path)
	overrideInt(c, "vector-size", &cfg.Store.VectorSize)
	if c.IsSet("distance") {
		cfg.Store.Distance = core.Distance(c.String("distance"))
	}
	overrideString(c, "tag-collection", &cfg.Store.TagCollection)
	overrideString(c, "desc-collection", &cfg.Store.DescCollection)
	overrideString(c, "input", &cfg.Import.Input)
	overrideInt(c, "batch-size", &cfg.Import.BatchSize)
	overrideInt(c, "concurrency", &cfg.Import.Concurrency)
	overrideString(c, "summary-file", &cfg.Import.SummaryFile)
	overrideString(c, "metrics-file", &cfg.Import.MetricsFile)
	if c.IsSet("clear-existing") {
		cfg.Import.ClearExisting = c.Bool("clear-existing")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func overrideInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

// openImporter loads the config and builds the importer. The returned
// context is cancelled on SIGINT or SIGTERM.
func openImporter(c *cli.Context) (context.Context, context.CancelFunc, *shelfvec.Importer, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, nil, err
	}
	im, err := shelfvec.NewImporter(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	return ctx, stop, im, nil
}

func importCommand(c *cli.Context) error {
	ctx, stop, im, err := openImporter(c)
	if err != nil {
		return err
	}
	defer stop()
	defer im.Close()

	cfg := im.Config()
	out := c.App.ErrWriter
	fmt.Fprintf(out, "Input: %s\n", cfg.Import.Input)
	fmt.Fprintf(out, "Embedding: %s %s (%s)\n", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Host)
	fmt.Fprintf(out, "Store: %s, collections %s and %s\n", cfg.Store.Backend, cfg.Store.TagCollection, cfg.Store.DescCollection)
	fmt.Fprintf(out, "Batch size: %d, concurrency: %d\n", cfg.Import.BatchSize, cfg.Import.Concurrency)
	fmt.Fprintln(out)

	if _, err := im.Import(ctx, cfg.Import.Input, ingestion.WithProgress(out)); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	ctx, stop, im, err := openImporter(c)
	if err != nil {
		return err
	}
	defer stop()
	defer im.Close()

	pipeline, err := im.NewPipeline(ingestion.WithDeepVerify(c.Bool("deep")))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	reports, warnings := pipeline.Verify(ctx)
	unavailable := printReports(c.App.Writer, reports, warnings)
	if unavailable > 0 {
		return fmt.Errorf("%w: %d of %d collections", ingestion.ErrVerificationUnavailable, unavailable, len(reports))
	}
	return nil
}

func printReports(w io.Writer, reports []ingestion.CollectionReport, warnings []string) int {
	unavailable := 0
	for _, r := range reports {
		if r.Error != "" {
			unavailable++
			fmt.Fprintf(w, "%s: unavailable: %s\n", r.Name, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s: %d points, %d vectors, status %s\n", r.Name, r.PointsCount, r.VectorsCount, r.Status)
	}
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return unavailable
}

func clearCommand(c *cli.Context) error {
	ctx, stop, im, err := openImporter(c)
	if err != nil {
		return err
	}
	defer stop()
	defer im.Close()

	pipeline, err := im.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	if err := pipeline.Clear(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("clear interrupted: %w", err)
		}
		return fmt.Errorf("clear failed: %w", err)
	}
	cfg := im.Config()
	fmt.Fprintf(c.App.Writer, "cleared %s and %s\n", cfg.Store.TagCollection, cfg.Store.DescCollection)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
