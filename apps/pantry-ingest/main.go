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

// Command pantry-ingest runs a batch of ingestion jobs described by a TOML
// config file and writes the results into a local store.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/datapantry/datapantry/archive"
	"github.com/datapantry/datapantry/db"
	"github.com/datapantry/datapantry/idx"
	"github.com/datapantry/datapantry/ingest"
	"github.com/datapantry/datapantry/stooq"

	toml "github.com/pelletier/go-toml/v2"
)

type Flags struct {
	StoreDir string // default: ~/.datapantry
	Config   string // required
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("pantry-ingest", flag.ExitOnError)
	fs.StringVar(&flags.StoreDir, "store",
		filepath.Join(os.Getenv("HOME"), ".datapantry"),
		"path to the store directory")
	fs.StringVar(&flags.Config, "config", "", "TOML config file (required)")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Config == "" {
		return nil, errors.Reason("missing required -config argument")
	}
	return &flags, err
}

// TreeJob ingests a directory tree of per-ticker flat files.
type TreeJob struct {
	Dir     string `toml:"dir"`
	Key     string `toml:"key"`
	Pattern string `toml:"pattern"` // default: "*.txt"
	Schema  string `toml:"schema"`  // builtin name or JSON file; default: "default"
}

// CSVJob ingests a single CSV price file, combined or single-series.
type CSVJob struct {
	Path   string `toml:"path"`
	Key    string `toml:"key"`
	Ticker string `toml:"ticker"` // empty: the file has a ticker column
	Schema string `toml:"schema"`
}

// TickersJob ingests a ticker directory listing.
type TickersJob struct {
	Path   string `toml:"path"`
	Key    string `toml:"key"`
	Schema string `toml:"schema"`
}

// ImagesJob ingests an IDX image set with optional labels.
type ImagesJob struct {
	Images string `toml:"images"`
	Labels string `toml:"labels"` // optional
	Key    string `toml:"key"`
}

// StooqJob ingests a stooq-style daily archive. When URL is set, the archive
// is first downloaded to Archive; when Archive is set, it is extracted under
// Dir before ingestion.
type StooqJob struct {
	Dir     string `toml:"dir"`     // extracted archive root
	Archive string `toml:"archive"` // optional zip to extract into dir
	URL     string `toml:"url"`     // optional URL to download the zip from
}

type Config struct {
	Trees   []TreeJob    `toml:"tree"`
	CSVs    []CSVJob     `toml:"csv"`
	Tickers []TickersJob `toml:"tickers"`
	Images  []ImagesJob  `toml:"images"`
	Stooq   []StooqJob   `toml:"stooq"`
}

const sampleConfig = `[[tree]]
dir = "/downloads/daily/us/nasdaq stocks"
key = "stooq/us/nasdaq_stocks"
schema = "stooq"

[[csv]]
path = "/downloads/liqd.csv"
key = "bonds/liqd"
ticker = "LIQD"

[[tickers]]
path = "/downloads/symbols.csv"
key = "stooq/us/symbols"

[[images]]
images = "/downloads/train-images-idx3-ubyte.gz"
labels = "/downloads/train-labels-idx1-ubyte.gz"
key = "images/mnist/train"

[[stooq]]
dir = "/downloads/stooq"
archive = "/downloads/d_us_txt.zip"
`

func parseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Annotate(err,
				"config file '%s' does not exist.\nA config file looks like:\n%s",
				filePath, sampleConfig)
		}
		return nil, errors.Annotate(err,
			"cannot check config file for existence: '%s'", filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	return &c, nil
}

// priceColumns resolves a price schema: a builtin name ("default", "stooq")
// or a path to a JSON schema file.
func priceColumns(schema string) (*db.PriceRowConfig, error) {
	switch schema {
	case "", "default":
		return db.NewPriceRowConfig(), nil
	case "stooq":
		return stooq.Columns(), nil
	}
	return db.LoadPriceRowConfig(schema)
}

// tickerColumns resolves a ticker schema the same way.
func tickerColumns(schema string) (*db.TickerRowConfig, error) {
	switch schema {
	case "", "default":
		return db.NewTickerRowConfig(), nil
	case "stooq":
		return stooq.SymbolColumns(), nil
	}
	return db.LoadTickerRowConfig(schema)
}

func runStooq(ctx context.Context, store *db.Store, job StooqJob) error {
	if job.URL != "" {
		if job.Archive == "" {
			return errors.Reason("stooq job with a url requires an archive path")
		}
		if err := archive.Fetch(ctx, job.URL, job.Archive); err != nil {
			return errors.Annotate(err, "failed to download '%s'", job.URL)
		}
	}
	if job.Archive != "" {
		n, err := archive.ExtractZip(ctx, job.Archive, job.Dir)
		if err != nil {
			return errors.Annotate(err, "failed to extract '%s'", job.Archive)
		}
		logging.Infof(ctx, "extracted %d files from '%s'", n, job.Archive)
	}
	_, err := stooq.IngestAll(ctx, store, job.Dir)
	return err
}

func ingestAll(ctx context.Context, flags *Flags) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	store := db.NewStore(flags.StoreDir)

	for _, job := range config.Trees {
		columns, err := priceColumns(job.Schema)
		if err != nil {
			return errors.Annotate(err, "invalid schema in tree job '%s'", job.Key)
		}
		stats, err := ingest.Tree(ctx, store, &ingest.TreeConfig{
			Dir:     job.Dir,
			Key:     job.Key,
			Pattern: job.Pattern,
			Columns: columns,
		})
		if err != nil {
			return errors.Annotate(err, "tree job '%s' failed", job.Key)
		}
		logging.Infof(ctx, "tree job '%s': %+v", job.Key, *stats)
	}
	for _, job := range config.CSVs {
		columns, err := priceColumns(job.Schema)
		if err != nil {
			return errors.Annotate(err, "invalid schema in csv job '%s'", job.Key)
		}
		stats, err := ingest.File(ctx, store, &ingest.FileConfig{
			Path:    job.Path,
			Key:     job.Key,
			Ticker:  job.Ticker,
			Columns: columns,
		})
		if err != nil {
			return errors.Annotate(err, "csv job '%s' failed", job.Key)
		}
		logging.Infof(ctx, "csv job '%s': %+v", job.Key, *stats)
	}
	for _, job := range config.Tickers {
		columns, err := tickerColumns(job.Schema)
		if err != nil {
			return errors.Annotate(err, "invalid schema in tickers job '%s'", job.Key)
		}
		stats, err := ingest.Tickers(ctx, store, &ingest.TickersConfig{
			Path:    job.Path,
			Key:     job.Key,
			Columns: columns,
		})
		if err != nil {
			return errors.Annotate(err, "tickers job '%s' failed", job.Key)
		}
		logging.Infof(ctx, "tickers job '%s': %+v", job.Key, *stats)
	}
	for _, job := range config.Images {
		if _, err := idx.Ingest(ctx, store, &idx.Config{
			ImagesPath: job.Images,
			LabelsPath: job.Labels,
			Key:        job.Key,
		}); err != nil {
			return errors.Annotate(err, "images job '%s' failed", job.Key)
		}
	}
	for _, job := range config.Stooq {
		if err := runStooq(ctx, store, job); err != nil {
			return errors.Annotate(err, "stooq job '%s' failed", job.Dir)
		}
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := ingestAll(ctx, flags); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
