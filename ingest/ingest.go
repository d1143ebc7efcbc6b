// Copyright 2026 Data Pantry

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ingest implements batch ingestion of downloaded datasets into the
// keyed tabular store: per-ticker flat file trees, combined multi-ticker
// CSVs, and ticker directory listings.
package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/parallel"

	"github.com/datapantry/datapantry/archive"
	"github.com/datapantry/datapantry/db"
)

// Stats summarizes a single ingestion run.
type Stats struct {
	Files      int // input files parsed successfully
	Skipped    int // files skipped as empty or malformed
	Tickers    int // distinct tickers written
	Rows       int // price rows written
	Duplicates int // duplicate (ticker, date) rows dropped
}

// TreeConfig configures ingestion of a directory tree of per-ticker flat
// files into a single keyed price table.
type TreeConfig struct {
	Dir       string             // root of the tree to walk
	Key       string             // store key to write the merged table under
	Pattern   string             // file name glob; default "*.txt"
	Columns   *db.PriceRowConfig // column schema; default db.NewPriceRowConfig()
	BatchSize int                // files per parallel parsing job; default 50
	Workers   int                // default runtime.NumCPU()
}

func (c *TreeConfig) pattern() string {
	if c.Pattern == "" {
		return "*.txt"
	}
	return c.Pattern
}

func (c *TreeConfig) columns() *db.PriceRowConfig {
	if c.Columns == nil {
		return db.NewPriceRowConfig()
	}
	return c.Columns
}

func (c *TreeConfig) batchSize() int {
	if c.BatchSize <= 0 {
		return 50
	}
	return c.BatchSize
}

func (c *TreeConfig) workers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// TickerFromPath derives the ticker symbol from a per-ticker file name: the
// base name without its last extension, in upper case. E.g.
// "data/daily/us/aapl.us.txt" becomes "AAPL.US".
func TickerFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToUpper(base)
}

// Dedupe sorts a price series by date (stable) and drops rows with a
// duplicate date, keeping the first occurrence. It returns the deduplicated
// series and the number of dropped rows.
func Dedupe(prices []db.PriceRow) ([]db.PriceRow, int) {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Date.Before(prices[j].Date)
	})
	res := prices[:0]
	dropped := 0
	for i, p := range prices {
		if i > 0 && p.Date == res[len(res)-1].Date {
			dropped++
			continue
		}
		res = append(res, p)
	}
	return res, dropped
}

// fileResult is the outcome of parsing one per-ticker file.
type fileResult struct {
	Path   string
	Ticker string
	Prices []db.PriceRow
	Err    error
}

func parseFile(path string, c *db.PriceRowConfig) fileResult {
	res := fileResult{Path: path, Ticker: TickerFromPath(path)}
	f, err := os.Open(path)
	if err != nil {
		res.Err = errors.Annotate(err, "failed to open '%s'", path)
		return res
	}
	defer f.Close()
	res.Prices, res.Err = db.ReadCSVPrices(f, c)
	return res
}

// filesJobsIter cuts the file list into parallel parsing jobs.
type filesJobsIter struct {
	Files     []string
	Columns   *db.PriceRowConfig
	BatchSize int
	pos       int
}

var _ parallel.JobsIter = &filesJobsIter{}

func (it *filesJobsIter) Next() (parallel.Job, error) {
	if it.BatchSize <= 0 {
		return nil, errors.Reason("batch size = %d must be > 0", it.BatchSize)
	}
	if it.pos >= len(it.Files) {
		return nil, parallel.Done
	}
	end := it.pos + it.BatchSize
	if end > len(it.Files) {
		end = len(it.Files)
	}
	batch := it.Files[it.pos:end]
	it.pos = end
	job := func() interface{} {
		results := make([]fileResult, len(batch))
		for i, path := range batch {
			results[i] = parseFile(path, it.Columns)
		}
		return results
	}
	return job, nil
}

// listFiles enumerates the files under dir whose base name matches pattern.
func listFiles(dir, pattern string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return errors.Annotate(err, "bad file pattern '%s'", pattern)
		}
		if ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "failed to walk '%s'", dir)
	}
	sort.Strings(files)
	return files, nil
}

// Tree walks a directory tree of per-ticker flat files, parses each file with
// the configured column schema, merges the rows keyed by the ticker derived
// from the file name, deduplicates by (ticker, date), and writes the result
// under cfg.Key. Empty or malformed files are logged and skipped; they never
// abort the batch. When no rows survive, nothing is written.
func Tree(ctx context.Context, store *db.Store, cfg *TreeConfig) (*Stats, error) {
	if err := db.CheckKey(cfg.Key); err != nil {
		return nil, errors.Annotate(err, "invalid store key")
	}
	files, err := listFiles(cfg.Dir, cfg.pattern())
	if err != nil {
		return nil, errors.Annotate(err, "failed to list input files")
	}
	logging.Infof(ctx, "parsing %d files from '%s'...", len(files), cfg.Dir)

	var stats Stats
	merged := map[string][]db.PriceRow{}
	m := parallel.Map(ctx, cfg.workers(), &filesJobsIter{
		Files:     files,
		Columns:   cfg.columns(),
		BatchSize: cfg.batchSize(),
	})
	for {
		v, err := m.Next()
		if err != nil {
			if err == parallel.Done {
				break
			}
			return nil, errors.Annotate(err, "failed to parse input files")
		}
		results, ok := v.([]fileResult)
		if !ok {
			return nil, errors.Reason("incorrect result type: %T", v)
		}
		for _, r := range results {
			if r.Err != nil {
				logging.Warningf(ctx, "skipping '%s': %s", r.Path, r.Err.Error())
				stats.Skipped++
				continue
			}
			if len(r.Prices) == 0 {
				logging.Warningf(ctx, "skipping '%s': no data", r.Path)
				stats.Skipped++
				continue
			}
			merged[r.Ticker] = append(merged[r.Ticker], r.Prices...)
			stats.Files++
		}
	}

	for ticker, rows := range merged {
		rows, dropped := Dedupe(rows)
		merged[ticker] = rows
		stats.Duplicates += dropped
		stats.Rows += len(rows)
	}
	stats.Tickers = len(merged)
	if stats.Duplicates > 0 {
		logging.Warningf(ctx, "dropped %d duplicate rows", stats.Duplicates)
	}
	if len(merged) == 0 {
		logging.Warningf(ctx, "no rows ingested from '%s', nothing written", cfg.Dir)
		return &stats, nil
	}
	if err := store.WritePrices(cfg.Key, merged); err != nil {
		return nil, errors.Annotate(err, "failed to write prices for '%s'", cfg.Key)
	}
	logging.Infof(ctx, "wrote %d rows for %d tickers under '%s' (%d files skipped)",
		stats.Rows, stats.Tickers, cfg.Key, stats.Skipped)
	return &stats, nil
}

// FileConfig configures ingestion of a single CSV file into a keyed price
// table: either a combined file with a ticker column, or a single series
// stored under the configured Ticker.
type FileConfig struct {
	Path    string
	Key     string
	Ticker  string             // empty: the file has a ticker column
	Columns *db.PriceRowConfig // default db.NewPriceRowConfig()
}

func (c *FileConfig) columns() *db.PriceRowConfig {
	if c.Columns == nil {
		return db.NewPriceRowConfig()
	}
	return c.Columns
}

// File ingests a single CSV price file under cfg.Key with the same dedupe
// semantics as Tree. The file may be plain, gzip'ed or a single-file zip.
// Unlike per-file tolerance within a tree, a malformed single input file
// fails the operation.
func File(ctx context.Context, store *db.Store, cfg *FileConfig) (*Stats, error) {
	if err := db.CheckKey(cfg.Key); err != nil {
		return nil, errors.Annotate(err, "invalid store key")
	}
	f, err := archive.OpenCSV(cfg.Path)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open '%s'", cfg.Path)
	}
	defer f.Close()

	logging.Infof(ctx, "parsing '%s'...", cfg.Path)
	var prices map[string][]db.PriceRow
	if cfg.Ticker == "" {
		prices, err = db.ReadCSVMultiPrices(f, cfg.columns())
	} else {
		var rows []db.PriceRow
		rows, err = db.ReadCSVPrices(f, cfg.columns())
		if err == nil && len(rows) > 0 {
			prices = map[string][]db.PriceRow{cfg.Ticker: rows}
		}
	}
	if err != nil {
		return nil, errors.Annotate(err, "failed to parse '%s'", cfg.Path)
	}

	var stats Stats
	for ticker, rows := range prices {
		rows, dropped := Dedupe(rows)
		prices[ticker] = rows
		stats.Duplicates += dropped
		stats.Rows += len(rows)
	}
	stats.Tickers = len(prices)
	if len(prices) == 0 {
		logging.Warningf(ctx, "no rows ingested from '%s', nothing written", cfg.Path)
		return &stats, nil
	}
	stats.Files = 1
	if err := store.WritePrices(cfg.Key, prices); err != nil {
		return nil, errors.Annotate(err, "failed to write prices for '%s'", cfg.Key)
	}
	logging.Infof(ctx, "wrote %d rows for %d tickers under '%s'",
		stats.Rows, stats.Tickers, cfg.Key)
	return &stats, nil
}

// TickersConfig configures ingestion of a ticker directory listing.
type TickersConfig struct {
	Path    string
	Key     string
	Columns *db.TickerRowConfig // default db.NewTickerRowConfig()
}

func (c *TickersConfig) columns() *db.TickerRowConfig {
	if c.Columns == nil {
		return db.NewTickerRowConfig()
	}
	return c.Columns
}

// Tickers ingests a ticker directory listing under cfg.Key.
func Tickers(ctx context.Context, store *db.Store, cfg *TickersConfig) (*Stats, error) {
	if err := db.CheckKey(cfg.Key); err != nil {
		return nil, errors.Annotate(err, "invalid store key")
	}
	f, err := archive.OpenCSV(cfg.Path)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open '%s'", cfg.Path)
	}
	defer f.Close()

	tickers := map[string]db.TickerRow{}
	if err := db.ReadCSVTickers(f, cfg.columns(), tickers); err != nil {
		return nil, errors.Annotate(err, "failed to parse '%s'", cfg.Path)
	}
	if err := store.WriteTickers(cfg.Key, tickers); err != nil {
		return nil, errors.Annotate(err, "failed to write tickers for '%s'", cfg.Key)
	}
	logging.Infof(ctx, "wrote %d tickers under '%s'", len(tickers), cfg.Key)
	return &Stats{Files: 1, Tickers: len(tickers)}, nil
}
