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

package db

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/stockparfait/errors"
)

// PriceRowConfig maps CSV columns of a source dataset to PriceRow fields by
// header name. Columns with an unrecognized header are ignored; fields whose
// configured column is missing from the file are zero (SplitRatio defaults to
// 1 when its column is absent).
type PriceRowConfig struct {
	Ticker     string   `json:"Ticker"` // only used by multi-ticker files
	Date       string   `json:"Date"`
	Open       string   `json:"Open"`
	High       string   `json:"High"`
	Low        string   `json:"Low"`
	Close      string   `json:"Close"`
	Volume     string   `json:"Volume"`
	ExDividend string   `json:"Ex-Dividend"`
	SplitRatio string   `json:"Split Ratio"`
	AdjClose   string   `json:"Adj. Close"`
	Header     []string `json:"header"` // for headless CSV
}

// NewPriceRowConfig creates a config with the default column names.
func NewPriceRowConfig() *PriceRowConfig {
	return &PriceRowConfig{
		Ticker:     "Ticker",
		Date:       "Date",
		Open:       "Open",
		High:       "High",
		Low:        "Low",
		Close:      "Close",
		Volume:     "Volume",
		ExDividend: "Ex-Dividend",
		SplitRatio: "Split Ratio",
		AdjClose:   "Adj. Close",
	}
}

// LoadPriceRowConfig reads a JSON schema file over the default column names.
func LoadPriceRowConfig(fileName string) (*PriceRowConfig, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read schema file '%s'", fileName)
	}
	c := NewPriceRowConfig()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Annotate(err, "failed to parse schema file '%s'", fileName)
	}
	return c, nil
}

// Indices of PriceRow fields in the column map.
const (
	priceTicker int = iota
	priceDate
	priceOpen
	priceHigh
	priceLow
	priceClose
	priceVolume
	priceExDividend
	priceSplitRatio
	priceAdjClose
	priceLast // keep it last; not a real field
)

func (c *PriceRowConfig) columns() []string {
	cols := make([]string, priceLast)
	cols[priceTicker] = c.Ticker
	cols[priceDate] = c.Date
	cols[priceOpen] = c.Open
	cols[priceHigh] = c.High
	cols[priceLow] = c.Low
	cols[priceClose] = c.Close
	cols[priceVolume] = c.Volume
	cols[priceExDividend] = c.ExDividend
	cols[priceSplitRatio] = c.SplitRatio
	cols[priceAdjClose] = c.AdjClose
	return cols
}

// MapColumns maps the i'th header column to its PriceRow field, or -1.
func (c *PriceRowConfig) MapColumns(header []string) []int {
	m := make([]int, len(header))
	cols := c.columns()
	for i, h := range header {
		m[i] = -1
		for j, n := range cols {
			if n != "" && h == n {
				m[i] = j
				break
			}
		}
	}
	return m
}

// HasDate checks that the header contains the date column.
func (c *PriceRowConfig) HasDate(header []string) bool {
	for _, h := range header {
		if h == c.Date {
			return true
		}
	}
	return false
}

// HasPrice checks that the header contains at least one price column.
func (c *PriceRowConfig) HasPrice(header []string) bool {
	for _, h := range header {
		if h == c.Open || h == c.High || h == c.Low || h == c.Close || h == c.AdjClose {
			return true
		}
	}
	return false
}

// HasTicker checks that the header contains the ticker column.
func (c *PriceRowConfig) HasTicker(header []string) bool {
	for _, h := range header {
		if h == c.Ticker {
			return true
		}
	}
	return false
}

// Parse converts a single CSV row into a PriceRow and its optional ticker.
func (c *PriceRowConfig) Parse(row []string, colMap []int) (ticker string, pr PriceRow, err error) {
	pr.SplitRatio = 1.0
	for i, r := range row {
		if i >= len(colMap) {
			break
		}
		var v float64
		switch colMap[i] {
		case priceTicker:
			ticker = r
		case priceDate:
			pr.Date, err = NewDateFromString(r)
			if err != nil {
				err = errors.Annotate(err, "failed to parse date")
				return
			}
		case priceOpen:
			if v, err = strconv.ParseFloat(r, 32); err != nil {
				err = errors.Annotate(err, "failed to parse Open: %s", r)
				return
			}
			pr.Open = float32(v)
		case priceHigh:
			if v, err = strconv.ParseFloat(r, 32); err != nil {
				err = errors.Annotate(err, "failed to parse High: %s", r)
				return
			}
			pr.High = float32(v)
		case priceLow:
			if v, err = strconv.ParseFloat(r, 32); err != nil {
				err = errors.Annotate(err, "failed to parse Low: %s", r)
				return
			}
			pr.Low = float32(v)
		case priceClose:
			if v, err = strconv.ParseFloat(r, 32); err != nil {
				err = errors.Annotate(err, "failed to parse Close: %s", r)
				return
			}
			pr.Close = float32(v)
		case priceVolume:
			if v, err = strconv.ParseFloat(r, 32); err != nil {
				err = errors.Annotate(err, "failed to parse Volume: %s", r)
				return
			}
			pr.Volume = float32(v)
		case priceExDividend:
			if v, err = strconv.ParseFloat(r, 32); err != nil {
				err = errors.Annotate(err, "failed to parse Ex-Dividend: %s", r)
				return
			}
			pr.ExDividend = float32(v)
		case priceSplitRatio:
			if v, err = strconv.ParseFloat(r, 32); err != nil {
				err = errors.Annotate(err, "failed to parse Split Ratio: %s", r)
				return
			}
			pr.SplitRatio = float32(v)
		case priceAdjClose:
			if v, err = strconv.ParseFloat(r, 32); err != nil {
				err = errors.Annotate(err, "failed to parse Adj Close: %s", r)
				return
			}
			pr.AdjClose = float32(v)
		}
	}
	if pr.Date.IsZero() {
		err = errors.Reason("row has no date")
	}
	return
}

func readAllCSV(r io.Reader, configured []string) (header []string, rows [][]string, err error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1 // tolerate ragged rows; Parse handles the rest
	rows, err = csvReader.ReadAll()
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to read CSV")
	}
	header = configured
	if len(header) == 0 {
		if len(rows) == 0 {
			return nil, nil, nil
		}
		header = rows[0]
		rows = rows[1:]
	}
	return header, rows, nil
}

// ReadCSVPrices reads a single-ticker CSV price series.
//
// When config defines a header, CSV is assumed to be headless; otherwise the
// CSV file must have a header. The header must contain the date column and at
// least one price column. Empty or header-only input yields no rows and no
// error. The result is sorted by date.
func ReadCSVPrices(r io.Reader, c *PriceRowConfig) ([]PriceRow, error) {
	header, rows, err := readAllCSV(r, c.Header)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read prices")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if !c.HasDate(header) {
		return nil, errors.Reason("prices CSV requires a '%s' column", c.Date)
	}
	if !c.HasPrice(header) {
		return nil, errors.Reason("prices CSV requires at least one price column")
	}
	colMap := c.MapColumns(header)
	prices := []PriceRow{}
	for i, row := range rows {
		_, pr, err := c.Parse(row, colMap)
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse row %d", i+1)
		}
		prices = append(prices, pr)
	}
	sort.SliceStable(prices, func(i, j int) bool { return prices[i].Date.Before(prices[j].Date) })
	return prices, nil
}

// ReadCSVMultiPrices reads a combined CSV holding many tickers distinguished
// by the ticker column. The same header requirements as ReadCSVPrices apply,
// plus the ticker column must be present. Series are sorted by date.
func ReadCSVMultiPrices(r io.Reader, c *PriceRowConfig) (map[string][]PriceRow, error) {
	header, rows, err := readAllCSV(r, c.Header)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read prices")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if !c.HasTicker(header) {
		return nil, errors.Reason("prices CSV requires a '%s' column", c.Ticker)
	}
	if !c.HasDate(header) {
		return nil, errors.Reason("prices CSV requires a '%s' column", c.Date)
	}
	if !c.HasPrice(header) {
		return nil, errors.Reason("prices CSV requires at least one price column")
	}
	colMap := c.MapColumns(header)
	prices := map[string][]PriceRow{}
	for i, row := range rows {
		ticker, pr, err := c.Parse(row, colMap)
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse row %d", i+1)
		}
		if ticker == "" {
			return nil, errors.Reason("row %d has an empty ticker", i+1)
		}
		prices[ticker] = append(prices[ticker], pr)
	}
	for _, rows := range prices {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	}
	return prices, nil
}

// TickerRowConfig maps CSV columns of a ticker directory listing to TickerRow
// fields by header name.
type TickerRowConfig struct {
	Ticker   string   `json:"Ticker"`
	Name     string   `json:"Name"`
	Exchange string   `json:"Exchange"`
	Header   []string `json:"header"` // for headless CSV
}

// NewTickerRowConfig creates a config with the default column names.
func NewTickerRowConfig() *TickerRowConfig {
	return &TickerRowConfig{
		Ticker:   "Ticker",
		Name:     "Name",
		Exchange: "Exchange",
	}
}

// LoadTickerRowConfig reads a JSON schema file over the default column names.
func LoadTickerRowConfig(fileName string) (*TickerRowConfig, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read schema file '%s'", fileName)
	}
	c := NewTickerRowConfig()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Annotate(err, "failed to parse schema file '%s'", fileName)
	}
	return c, nil
}

// MapColumns maps the i'th header column to the TickerRow field index, or -1.
func (c *TickerRowConfig) MapColumns(header []string) []int {
	m := make([]int, len(header))
	cols := []string{c.Ticker, c.Name, c.Exchange}
	for i, h := range header {
		m[i] = -1
		for j, n := range cols {
			if n != "" && h == n {
				m[i] = j
				break
			}
		}
	}
	return m
}

// HasTicker checks the header for the ticker column.
func (c *TickerRowConfig) HasTicker(header []string) bool {
	for _, h := range header {
		if h == c.Ticker {
			return true
		}
	}
	return false
}

// Parse converts a single CSV row into a ticker symbol and its row.
func (c *TickerRowConfig) Parse(row []string, colMap []int) (ticker string, tr TickerRow) {
	for i, r := range row {
		if i >= len(colMap) {
			break
		}
		switch colMap[i] {
		case 0:
			ticker = r
		case 1:
			tr.Name = r
		case 2:
			tr.Exchange = r
		}
	}
	return
}

// ReadCSVTickers reads a ticker directory listing and merges it into tickers.
//
// When config defines a header, CSV is assumed to be headless; otherwise the
// CSV file must have a header. In either case, the header must contain a
// ticker column. Rows with an empty ticker are skipped.
func ReadCSVTickers(r io.Reader, c *TickerRowConfig, tickers map[string]TickerRow) error {
	header, rows, err := readAllCSV(r, c.Header)
	if err != nil {
		return errors.Annotate(err, "failed to read tickers")
	}
	if len(rows) == 0 {
		return nil
	}
	if !c.HasTicker(header) {
		return errors.Reason("tickers CSV requires a '%s' column", c.Ticker)
	}
	colMap := c.MapColumns(header)
	for _, row := range rows {
		ticker, tr := c.Parse(row, colMap)
		if ticker == "" {
			continue
		}
		tickers[ticker] = tr
	}
	return nil
}
