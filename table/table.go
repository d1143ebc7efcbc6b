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

package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Row interface that a table row representation must implement.
type Row interface {
	CSV() []string // an encoding/csv compatible row representation
}

// Strings is a plain []string Row.
type Strings []string

// CSV implements Row.
func (s Strings) CSV() []string { return s }

// Table is an ordered list of rows with an optional header, printable as CSV
// or column-aligned text.
type Table struct {
	Header []string // optional, may be nil
	Rows   []Row
}

// NewTable creates a new Table instance with optional column headers.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds one or more rows to the table.
func (t *Table) AddRow(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// Params are parameters for printing Table data.
type Params struct {
	Rows     int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader bool // whether to print the header, default - yes
}

func (t *Table) limit(p Params) []Row {
	if p.Rows > 0 && p.Rows < len(t.Rows) {
		return t.Rows[:p.Rows]
	}
	return t.Rows
}

func (t *Table) header(p Params) []string {
	if p.NoHeader {
		return nil
	}
	return t.Header
}

// WriteCSV writes the table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if h := t.header(p); len(h) > 0 {
		if err := cw.Write(h); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for _, r := range t.limit(p) {
		if err := cw.Write(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the table as column-aligned text for ease of reading.
func (t *Table) WriteText(w io.Writer, p Params) error {
	var cells [][]string
	if h := t.header(p); len(h) > 0 {
		cells = append(cells, h)
	}
	headerRows := len(cells)
	for _, r := range t.limit(p) {
		cells = append(cells, r.CSV())
	}

	var widths []int
	for _, row := range cells {
		if len(widths) == 0 {
			widths = make([]int, len(row))
		}
		if len(row) != len(widths) {
			return errors.Reason("row size [%d] != expected size [%d]",
				len(row), len(widths))
		}
		for i, c := range row {
			if widths[i] < len([]rune(c)) {
				widths[i] = len([]rune(c))
			}
		}
	}

	write := func(row []string) error {
		padded := make([]string, len(row))
		for i, c := range row {
			padded[i] = fmt.Sprintf("%[2]*[1]s", c, widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(padded, " | "))
		return err
	}

	for i, row := range cells {
		if err := write(row); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
		if headerRows > 0 && i == 0 {
			sep := make([]string, len(widths))
			for j, width := range widths {
				sep[j] = strings.Repeat("-", width)
			}
			if err := write(sep); err != nil {
				return errors.Annotate(err, "failed to write header separator")
			}
		}
	}
	return nil
}
