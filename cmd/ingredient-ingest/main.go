package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/recipex/server/internal/repository"
)

// The national drug registry is published as several gzipped dumps, each a
// raw list of active ingredient names with plenty of typos and vendor noise.
// A name is trusted only when it appears in 2+ dumps.
const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 1_000_000
	minNameLen    = 3
	maxNameLen    = 120
)

// fileResult holds candidate names found in a single dump during pass 2.
type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing drugbaseN.gz registry dumps")
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
		slog.Error("ingredient ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("ingredient ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("drugbase%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: Build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: Find candidate names appearing in 2+ dumps.
	slog.Info("pass 2: finding candidate names")

	validNames, err := findValidNames(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find valid names")
	}

	slog.Info("valid names found", slog.Int("count", len(validNames)))

	if len(validNames) == 0 {
		slog.Info("no valid names to insert")
		return nil
	}

	// Write valid names to the catalog.
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeIngredients(ctx, pool, validNames); err != nil {
		return errors.Wrap(err, "write ingredients to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per dump, concurrently.
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

		if err := streamGzFile(ctx, path, func(name string) {
			filter.AddString(name)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("names", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_names", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findValidNames re-streams each dump and checks names against OTHER dumps'
// bloom filters. A name is valid if it appears in 2 or more dumps.
func findValidNames(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all dumps.
	merged := make(map[string]uint)
	for _, r := range results {
		for name, mask := range r.candidates {
			merged[name] |= mask
		}
	}

	// Keep names appearing in 2+ dumps.
	var valid []string
	for name, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, name)
		}
	}

	return valid, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(name string) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("names", count),
				)
			}

			// Check if this name appears in any OTHER dump's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(name) {
					candidates[name] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_names", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed dump and calls fn for each cleaned
// line. Lines outside the plausible name length are dropped here so both
// passes agree on what counts as a name.
func streamGzFile(ctx context.Context, path string, fn func(name string)) error {
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
		name := strings.TrimSpace(scanner.Text())
		if len(name) < minNameLen || len(name) > maxNameLen {
			continue
		}
		fn(name)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeIngredients upserts all valid ingredient names into the catalog.
func writeIngredients(ctx context.Context, pool *pgxpool.Pool, names []string) error {
	slog.Info("writing ingredients to database", slog.Int("count", len(names)))

	const upsert = `
INSERT INTO active_ingredients (name)
VALUES ($1)
ON CONFLICT (name) DO NOTHING`

	for i, name := range names {
		if _, err := pool.Exec(ctx, upsert, name); err != nil {
			return errors.Wrapf(err, "upsert ingredient %s", name)
		}

		if (i+1)%100 == 0 || i+1 == len(names) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(names)))
		}
	}

	return nil
}
