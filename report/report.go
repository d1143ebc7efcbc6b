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

// Package report computes quick per-ticker summaries of stored price tables,
// the kind of sanity check one runs right after an ingestion.
package report

import (
	"math"
	"sort"
	"strconv"

	"github.com/stockparfait/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/datapantry/datapantry/db"
	"github.com/datapantry/datapantry/table"
)

// Summary is per-ticker statistics of a daily price series. Mean and StdDev
// are of the daily log-returns of the adjusted close, or of the close when
// the table has no adjusted close.
type Summary struct {
	Ticker  string
	Samples int     // number of price rows
	Returns int     // number of daily log-returns
	Start   db.Date // date of the first sample
	End     db.Date // date of the last sample
	Mean    float64
	StdDev  float64
}

var _ table.Row = Summary{}

func formatF(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

// CSV implements table.Row.
func (s Summary) CSV() []string {
	return []string{
		s.Ticker,
		strconv.Itoa(s.Samples),
		strconv.Itoa(s.Returns),
		s.Start.String(),
		s.End.String(),
		formatF(s.Mean),
		formatF(s.StdDev),
	}
}

// Header is the table header matching Summary.CSV.
func Header() []string {
	return []string{"Ticker", "Samples", "Returns", "Start", "End", "Mean", "StdDev"}
}

func closePrice(r db.PriceRow) float64 {
	if r.AdjClose > 0 {
		return float64(r.AdjClose)
	}
	return float64(r.Close)
}

// LogReturns computes daily log-returns of a price series sorted by date.
// Samples with a non-positive price are skipped.
func LogReturns(prices []db.PriceRow) []float64 {
	res := []float64{}
	prev := 0.0
	for _, r := range prices {
		p := closePrice(r)
		if p <= 0 {
			continue
		}
		if prev > 0 {
			res = append(res, math.Log(p/prev))
		}
		prev = p
	}
	return res
}

// Summarize computes the summary of a single ticker's price series.
func Summarize(ticker string, prices []db.PriceRow) Summary {
	s := Summary{Ticker: ticker, Samples: len(prices)}
	if len(prices) == 0 {
		return s
	}
	s.Start = prices[0].Date
	s.End = prices[len(prices)-1].Date
	returns := LogReturns(prices)
	s.Returns = len(returns)
	if len(returns) > 0 {
		s.Mean = stat.Mean(returns, nil)
	}
	if len(returns) > 1 {
		s.StdDev = stat.StdDev(returns, nil)
	}
	return s
}

// Prices summarizes every ticker of a stored price table, sorted by ticker,
// within the optional constraints.
func Prices(store *db.Store, key string, c *db.Constraints) (*table.Table, error) {
	prices, err := store.Prices(key)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read prices under '%s'", key)
	}
	tickers := []string{}
	for ticker := range prices {
		if !c.CheckTicker(ticker) {
			continue
		}
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	tbl := table.NewTable(Header()...)
	for _, ticker := range tickers {
		rows := []db.PriceRow{}
		for _, r := range prices[ticker] {
			if c.CheckPrice(r) {
				rows = append(rows, r)
			}
		}
		tbl.AddRow(Summarize(ticker, rows))
	}
	return tbl, nil
}
