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
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stockparfait/errors"
)

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999",
		"2006-01-02T15:04:05.999Z",
		"20060102", // compact form used by per-ticker flat files
	}
	var err error
	for _, f := range formats {
		var tm time.Time
		tm, err = time.Parse(f, s)
		if err == nil {
			return tm, nil
		}
	}
	return time.Time{}, err
}

// Date records a calendar date as year, month and day. The struct is designed
// to fit into 4 bytes.
type Date struct {
	YearVal  uint16
	MonthVal uint8
	DayVal   uint8
}

var _ json.Marshaler = Date{}
var _ json.Unmarshaler = &Date{}

// NewDate is the constructor for Date.
func NewDate(year uint16, month, day uint8) Date {
	return Date{year, month, day}
}

// NewDateFromTime creates a Date instance from a time.Time value in UTC.
func NewDateFromTime(t time.Time) Date {
	return Date{
		YearVal:  uint16(t.Year()),
		MonthVal: uint8(t.Month()),
		DayVal:   uint8(t.Day()),
	}
}

// NewDateFromString creates a Date instance from a string representation.
// The zero value "0000-00-00" round-trips to the zero Date.
func NewDateFromString(s string) (Date, error) {
	if s == "0000-00-00" {
		return Date{}, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return Date{}, errors.Annotate(err, "failed to parse a Date string: '%s'", s)
	}
	return NewDateFromTime(t), nil
}

func (d Date) Year() uint16 { return d.YearVal }
func (d Date) Month() uint8 { return d.MonthVal }
func (d Date) Day() uint8   { return d.DayVal }

// String representation of the value.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. NOTE: unlike other methods, this
// is a pointer method.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Annotate(err, "Date JSON must be a string")
	}
	date, err := NewDateFromString(s)
	if err != nil {
		return errors.Annotate(err, "failed to parse Date string")
	}
	*d = date
	return nil
}

// ToTime converts Date to Time in UTC.
func (d Date) ToTime() time.Time {
	return time.Date(int(d.Year()), time.Month(d.Month()), int(d.Day()), 0, 0, 0, 0, time.UTC)
}

// Before compares two Date objects for strict inequality (self < d2).
func (d Date) Before(d2 Date) bool {
	if d.Year() != d2.Year() {
		return d.Year() < d2.Year()
	}
	if d.Month() != d2.Month() {
		return d.Month() < d2.Month()
	}
	return d.Day() < d2.Day()
}

// After compares two Date objects for strict inequality, self > d2.
func (d Date) After(d2 Date) bool {
	return d2.Before(d)
}

// IsZero checks whether the date has a zero value.
func (d Date) IsZero() bool {
	return d.Year() == 0 && d.Month() == 0 && d.Day() == 0
}

// InRange checks if d is in the inclusive date range. Any of the bounds may be
// zero value, in which case it's ignored.
func (d Date) InRange(start, end Date) bool {
	if d.IsZero() {
		return false
	}
	if !start.IsZero() && start.After(d) {
		return false
	}
	if !end.IsZero() && end.Before(d) {
		return false
	}
	return true
}

// MinDate returns the earliest date from the list, or zero value.
func MinDate(dates ...Date) Date {
	var min Date
	for _, d := range dates {
		if min.IsZero() || (!d.IsZero() && min.After(d)) {
			min = d
		}
	}
	return min
}

// MaxDate returns the latest date from the list, or zero value.
func MaxDate(dates ...Date) Date {
	var max Date
	for _, d := range dates {
		if max.IsZero() || (!d.IsZero() && max.Before(d)) {
			max = d
		}
	}
	return max
}

// PriceRow is a single daily price observation for one ticker, as downloaded,
// in the security's native currency. Optional fields are zero when the source
// dataset doesn't provide them, except SplitRatio whose "no split" value is 1.
type PriceRow struct {
	Date       Date
	Open       float32
	High       float32
	Low        float32
	Close      float32
	Volume     float32 // shares traded
	ExDividend float32 // dividend per share on the ex-date; 0 = none
	SplitRatio float32 // 1 = no split
	AdjClose   float32 // split & dividend adjusted close; 0 = not provided
}

// TestPrice creates a PriceRow instance for use in tests.
func TestPrice(date Date, open, high, low, close, volume float32) PriceRow {
	return PriceRow{
		Date:       date,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      close,
		Volume:     volume,
		SplitRatio: 1.0,
		AdjClose:   close,
	}
}

func formatF32(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// PriceRowHeader is the header for tables of PriceRow.
func PriceRowHeader() []string {
	return []string{"Date", "Open", "High", "Low", "Close", "Volume",
		"Ex-Dividend", "Split Ratio", "Adj Close"}
}

// CSV returns a table row representation of the price point.
func (p PriceRow) CSV() []string {
	return []string{
		p.Date.String(),
		formatF32(p.Open),
		formatF32(p.High),
		formatF32(p.Low),
		formatF32(p.Close),
		formatF32(p.Volume),
		formatF32(p.ExDividend),
		formatF32(p.SplitRatio),
		formatF32(p.AdjClose),
	}
}

// TickerRow is a directory entry for a single ticker symbol.
type TickerRow struct {
	Name     string // company or fund name
	Exchange string
}

// TickerRowHeader is the header for tables of LabeledTicker.
func TickerRowHeader() []string {
	return []string{"Ticker", "Name", "Exchange"}
}

// LabeledTicker attaches the ticker symbol to its directory entry for table
// printing.
type LabeledTicker struct {
	Ticker string
	Row    TickerRow
}

// CSV returns a table row representation of the ticker entry.
func (l LabeledTicker) CSV() []string {
	return []string{l.Ticker, l.Row.Name, l.Row.Exchange}
}

// ImageSet is a set of equally sized grayscale images with optional labels,
// e.g. an MNIST-family training or test set.
type ImageSet struct {
	Count  int
	Rows   int
	Cols   int
	Pixels []byte // Count*Rows*Cols bytes, row-major
	Labels []byte // empty or Count bytes
}

// Image returns the pixels of the i'th image.
func (s *ImageSet) Image(i int) []byte {
	size := s.Rows * s.Cols
	return s.Pixels[i*size : (i+1)*size]
}

// TableKind identifies the contents of a stored table.
type TableKind string

const (
	PricesTable  = TableKind("prices")
	TickersTable = TableKind("tickers")
	ImagesTable  = TableKind("images")
)

// TableMeta describes one stored table in the store-level metadata.
type TableMeta struct {
	Kind       TableKind `json:"kind"`
	NumTickers int       `json:"num_tickers,omitempty"`
	NumRows    int       `json:"num_rows,omitempty"`
	NumImages  int       `json:"num_images,omitempty"`
	Start      Date      `json:"start,omitempty"`
	End        Date      `json:"end,omitempty"`
}

// Metadata is the schema of the metadata.json file: store key -> table info.
type Metadata map[string]TableMeta
