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

// Package stooq ingests stooq-style daily price archives: a directory tree
// of per-ticker flat files laid out as data/daily/<market>/<asset class>/,
// with angle-bracket column headers and compact dates. The archives
// themselves are downloaded manually (the site gates bulk downloads behind a
// CAPTCHA); this package only consumes the extracted tree.
package stooq

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/datapantry/datapantry/db"
	"github.com/datapantry/datapantry/ingest"
)

// Dataset identifies one (market, asset class) pair of a daily archive.
type Dataset struct {
	Market     string // e.g. "us"
	AssetClass string // e.g. "nasdaq stocks"
}

// DefaultDatasets is the catalog of (market, asset class) pairs ingested by
// default.
func DefaultDatasets() []Dataset {
	return []Dataset{
		{"jp", "tse stocks"},
		{"us", "nasdaq etfs"},
		{"us", "nasdaq stocks"},
		{"us", "nyse etfs"},
		{"us", "nyse stocks"},
		{"us", "nysemkt stocks"},
	}
}

// Key is the store key of the dataset's price table. Spaces in asset classes
// are mapped to underscores to keep keys shell-friendly.
func (d Dataset) Key() string {
	return "stooq/" + d.Market + "/" + strings.ReplaceAll(d.AssetClass, " ", "_")
}

// Dir is the dataset's directory within an extracted daily archive.
func (d Dataset) Dir(root string) string {
	return filepath.Join(root, "data", "daily", d.Market, d.AssetClass)
}

func (d Dataset) String() string {
	return d.Market + "/" + d.AssetClass
}

// Columns is the column schema of per-ticker flat files:
// <TICKER>,<PER>,<DATE>,<TIME>,<OPEN>,<HIGH>,<LOW>,<CLOSE>,<VOL>,<OPENINT>.
// The ticker column is ignored; the ticker comes from the file name.
func Columns() *db.PriceRowConfig {
	c := db.NewPriceRowConfig()
	c.Ticker = ""
	c.Date = "<DATE>"
	c.Open = "<OPEN>"
	c.High = "<HIGH>"
	c.Low = "<LOW>"
	c.Close = "<CLOSE>"
	c.Volume = "<VOL>"
	c.ExDividend = ""
	c.SplitRatio = ""
	c.AdjClose = ""
	return c
}

// SymbolColumns is the column schema of symbol directory listings.
func SymbolColumns() *db.TickerRowConfig {
	c := db.NewTickerRowConfig()
	c.Ticker = "Symbol"
	return c
}

// IngestAll ingests every catalog dataset found under the extracted archive
// root. When no datasets are supplied, the default catalog is used. A missing
// dataset directory is logged and skipped; a partial archive is normal (the
// manual download may cover a single market). Returns per-key stats of the
// ingested datasets.
func IngestAll(ctx context.Context, store *db.Store, root string, datasets ...Dataset) (map[string]*ingest.Stats, error) {
	if len(datasets) == 0 {
		datasets = DefaultDatasets()
	}
	res := make(map[string]*ingest.Stats)
	for _, d := range datasets {
		dir := d.Dir(root)
		if _, err := os.Stat(dir); err != nil {
			if os.IsNotExist(err) {
				logging.Warningf(ctx, "skipping %s: no directory '%s'", d, dir)
				continue
			}
			return nil, errors.Annotate(err, "failed to stat '%s'", dir)
		}
		logging.Infof(ctx, "ingesting %s...", d)
		stats, err := ingest.Tree(ctx, store, &ingest.TreeConfig{
			Dir:     dir,
			Key:     d.Key(),
			Columns: Columns(),
		})
		if err != nil {
			return nil, errors.Annotate(err, "failed to ingest %s", d)
		}
		res[d.Key()] = stats
	}
	if len(res) == 0 {
		return nil, errors.Reason("no datasets found under '%s'", root)
	}
	return res, nil
}

// IngestSymbols ingests a symbol directory listing under the given key.
func IngestSymbols(ctx context.Context, store *db.Store, path, key string) (*ingest.Stats, error) {
	stats, err := ingest.Tickers(ctx, store, &ingest.TickersConfig{
		Path:    path,
		Key:     key,
		Columns: SymbolColumns(),
	})
	if err != nil {
		return nil, errors.Annotate(err, "failed to ingest symbols from '%s'", path)
	}
	return stats, nil
}
