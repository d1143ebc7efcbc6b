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

// Command pantry-list prints the contents of a local store: the list of
// table keys, ticker listings, price series, or per-ticker summaries.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/datapantry/datapantry/db"
	"github.com/datapantry/datapantry/report"
	"github.com/datapantry/datapantry/table"
)

type Flags struct {
	StoreDir string // default: ~/.datapantry
	LogLevel logging.Level
	// Exactly one of keys, tickers, prices or summary must be present.
	Keys    bool
	Tickers string // key of the ticker table to print
	Prices  string // key of the price table to print
	Summary string // key of the price table to summarize
	Ticker  string // with -prices: single ticker to print
	Start   db.Date
	End     db.Date
	CSV     bool // dump CSV format; default: text
}

// dateValue adapts db.Date to flag.Value.
type dateValue db.Date

func (d *dateValue) String() string { return db.Date(*d).String() }

func (d *dateValue) Set(s string) error {
	parsed, err := db.NewDateFromString(s)
	if err != nil {
		return errors.Annotate(err, "failed to parse date '%s'", s)
	}
	*d = dateValue(parsed)
	return nil
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("pantry-list", flag.ExitOnError)
	fs.StringVar(&flags.StoreDir, "store",
		filepath.Join(os.Getenv("HOME"), ".datapantry"),
		"path to the store directory")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.BoolVar(&flags.Keys, "keys", false, "print all table keys")
	fs.StringVar(&flags.Tickers, "tickers", "", "key of the ticker table to print")
	fs.StringVar(&flags.Prices, "prices", "", "key of the price table to print")
	fs.StringVar(&flags.Summary, "summary", "",
		"key of the price table to summarize per ticker")
	fs.StringVar(&flags.Ticker, "ticker", "",
		"with -prices: print only this ticker's series")
	fs.Var((*dateValue)(&flags.Start), "start", "start date, YYYY-MM-DD")
	fs.Var((*dateValue)(&flags.End), "end", "end date, YYYY-MM-DD")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	kinds := 0
	if flags.Keys {
		kinds++
	}
	if flags.Tickers != "" {
		kinds++
	}
	if flags.Prices != "" {
		kinds++
	}
	if flags.Summary != "" {
		kinds++
	}
	if kinds != 1 {
		return nil, errors.Reason(
			"expected exactly one of -keys, -tickers, -prices or -summary")
	}
	if flags.Ticker != "" && flags.Prices == "" {
		return nil, errors.Reason("-ticker requires -prices")
	}
	return &flags, err
}

func constraints(flags *Flags) *db.Constraints {
	c := db.NewConstraints()
	if !flags.Start.IsZero() {
		c = c.StartAt(flags.Start)
	}
	if !flags.End.IsZero() {
		c = c.EndAt(flags.End)
	}
	return c
}

func keysTable(store *db.Store) (*table.Table, error) {
	keys, err := store.Keys()
	if err != nil {
		return nil, errors.Annotate(err, "failed to list keys")
	}
	meta, err := store.Metadata()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read metadata")
	}
	tbl := table.NewTable("Key", "Kind", "Tickers", "Rows", "Images")
	for _, key := range keys {
		m := meta[key]
		tbl.AddRow(table.Strings{
			key,
			string(m.Kind),
			strconv.Itoa(m.NumTickers),
			strconv.Itoa(m.NumRows),
			strconv.Itoa(m.NumImages),
		})
	}
	return tbl, nil
}

func tickersTable(store *db.Store, key string) (*table.Table, error) {
	tickers, err := store.Tickers(key, nil)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read tickers under '%s'", key)
	}
	names := make([]string, 0, len(tickers))
	for t := range tickers {
		names = append(names, t)
	}
	sort.Strings(names)
	tbl := table.NewTable(db.TickerRowHeader()...)
	for _, t := range names {
		tbl.AddRow(db.LabeledTicker{Ticker: t, Row: tickers[t]})
	}
	return tbl, nil
}

func pricesTable(store *db.Store, key string, flags *Flags) (*table.Table, error) {
	c := constraints(flags)
	tbl := table.NewTable(db.PriceRowHeader()...)
	if flags.Ticker != "" {
		prices, err := store.TickerPrices(key, flags.Ticker, c)
		if err != nil {
			return nil, errors.Annotate(err, "failed to read prices for '%s'",
				flags.Ticker)
		}
		for _, p := range prices {
			tbl.AddRow(p)
		}
		return tbl, nil
	}
	prices, err := store.Prices(key)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read prices under '%s'", key)
	}
	tickers := make([]string, 0, len(prices))
	for t := range prices {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	tbl = table.NewTable(append([]string{"Ticker"}, db.PriceRowHeader()...)...)
	for _, t := range tickers {
		for _, p := range prices[t] {
			if !c.CheckPrice(p) {
				continue
			}
			tbl.AddRow(table.Strings(append([]string{t}, p.CSV()...)))
		}
	}
	return tbl, nil
}

func printData(ctx context.Context, flags *Flags, w io.Writer) error {
	var tbl *table.Table
	var err error
	store := db.NewStore(flags.StoreDir)
	switch {
	case flags.Keys:
		tbl, err = keysTable(store)
	case flags.Tickers != "":
		tbl, err = tickersTable(store, flags.Tickers)
	case flags.Prices != "":
		tbl, err = pricesTable(store, flags.Prices, flags)
	case flags.Summary != "":
		tbl, err = report.Prices(store, flags.Summary, constraints(flags))
	}
	if err != nil {
		return errors.Annotate(err, "failed to read the store")
	}
	if tbl == nil {
		return errors.Reason("no data")
	}
	if flags.CSV {
		if err := tbl.WriteCSV(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to print text")
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

	if err := printData(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
