// Command catalog-ingest loads supplier product feeds into the catalog.
//
// Feeds are gzip-compressed, line-oriented files of the form
//
//	sku\tname\tprice\tcategory
//
// Suppliers own disjoint SKU ranges, so a SKU appearing in more than one
// feed signals conflicting feed exports; those rows are skipped and reported
// rather than letting one supplier overwrite another. The cross-feed check
// uses per-file bloom filters so feeds of tens of millions of rows never need
// to be held in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tripmart/tripmart/internal/domain/product"
	"github.com/tripmart/tripmart/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.000001
	progressEvery = 1_000_000
)

// feedRow is one parsed line of a supplier feed.
type feedRow struct {
	sku      string
	name     string
	price    decimal.Decimal
	category string
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing supplier feed *.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no feed files found in %s", dataDir)
	}

	// Pass 1: build one bloom filter per feed, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Pass 2: re-stream each feed, skip SKUs present in any other feed, and
	// upsert the rest.
	slog.Info("pass 2: ingesting feeds")

	repo := repository.NewProductRepository(pool)
	for i, f := range files {
		if err := ingestFeed(ctx, repo, i, f, filters); err != nil {
			return errors.Wrapf(err, "ingest feed %s", f)
		}
	}

	return nil
}

// buildBloomFilters creates one bloom filter per feed file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) error {
			row, err := parseFeedLine(line)
			if err != nil {
				return nil // malformed lines are counted in pass 2
			}
			filter.AddString(row.sku)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("rows", count),
				)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_rows", count),
		)

		filters[idx] = filter
		return nil
	}
}

// ingestFeed streams one feed and upserts every row whose SKU does not appear
// in another feed's bloom filter. A rare false positive only causes a row to
// be skipped, never a wrong overwrite.
func ingestFeed(
	ctx context.Context,
	repo *repository.ProductRepository,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
) error {
	var ingested, conflicts, malformed uint64

	err := streamGzFile(ctx, path, func(line string) error {
		row, err := parseFeedLine(line)
		if err != nil {
			malformed++
			return nil
		}

		for j, f := range filters {
			if j == idx {
				continue
			}
			if f.TestString(row.sku) {
				conflicts++
				return nil
			}
		}

		if err := repo.Upsert(ctx, product.Product{
			ID:       row.sku,
			Name:     row.name,
			Price:    row.price,
			Category: row.category,
		}); err != nil {
			return err
		}

		ingested++
		if ingested%progressEvery == 0 {
			slog.Info("pass 2 progress",
				slog.Int("file", idx+1),
				slog.Uint64("ingested", ingested),
			)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("pass 2 complete",
		slog.Int("file", idx+1),
		slog.Uint64("ingested", ingested),
		slog.Uint64("conflicts", conflicts),
		slog.Uint64("malformed", malformed),
	)
	return nil
}

// parseFeedLine parses "sku\tname\tprice\tcategory". The price must be a
// non-negative decimal.
func parseFeedLine(line string) (feedRow, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 4 {
		return feedRow{}, errors.Errorf("expected 4 fields, got %d", len(parts))
	}

	sku := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if sku == "" || name == "" {
		return feedRow{}, errors.New("empty sku or name")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
	if err != nil {
		return feedRow{}, errors.Wrap(err, "parse price")
	}
	if price.IsNegative() {
		return feedRow{}, errors.New("negative price")
	}

	return feedRow{
		sku:      sku,
		name:     name,
		price:    price,
		category: strings.TrimSpace(parts[3]),
	}, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
