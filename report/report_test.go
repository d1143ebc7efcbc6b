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

package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/testutil"

	"github.com/datapantry/datapantry/db"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReport(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_report")
	defer os.RemoveAll(tmpdir)

	Convey("Test setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("LogReturns works", t, func() {
		prices := []db.PriceRow{
			db.TestPrice(db.NewDate(2020, 1, 1), 10, 10, 10, 10, 100),
			db.TestPrice(db.NewDate(2020, 1, 2), 20, 20, 20, 20, 100),
			{Date: db.NewDate(2020, 1, 3)}, // zero price, skipped
			db.TestPrice(db.NewDate(2020, 1, 4), 10, 10, 10, 10, 100),
		}
		returns := LogReturns(prices)
		So(len(returns), ShouldEqual, 2)
		So(testutil.Round(returns[0], 5), ShouldEqual, testutil.Round(math.Log(2), 5))
		So(testutil.Round(returns[1], 5), ShouldEqual, testutil.Round(-math.Log(2), 5))
	})

	Convey("Summarize works", t, func() {
		prices := []db.PriceRow{
			db.TestPrice(db.NewDate(2020, 1, 1), 10, 10, 10, 10, 100),
			db.TestPrice(db.NewDate(2020, 1, 2), 20, 20, 20, 20, 100),
			db.TestPrice(db.NewDate(2020, 1, 3), 10, 10, 10, 10, 100),
		}
		s := Summarize("A", prices)
		So(s.Ticker, ShouldEqual, "A")
		So(s.Samples, ShouldEqual, 3)
		So(s.Returns, ShouldEqual, 2)
		So(s.Start, ShouldResemble, db.NewDate(2020, 1, 1))
		So(s.End, ShouldResemble, db.NewDate(2020, 1, 3))
		So(testutil.Round(s.Mean, 5), ShouldEqual, 0.0)
		So(testutil.Round(s.StdDev, 5), ShouldEqual,
			testutil.Round(math.Sqrt(2)*math.Log(2), 5))

		Convey("of an empty series", func() {
			s := Summarize("B", nil)
			So(s, ShouldResemble, Summary{Ticker: "B"})
		})
	})

	Convey("Prices works", t, func() {
		store := db.NewStore(filepath.Join(tmpdir, "db"))
		So(store.WritePrices("test", map[string][]db.PriceRow{
			"B": {
				db.TestPrice(db.NewDate(2020, 1, 1), 10, 10, 10, 10, 100),
				db.TestPrice(db.NewDate(2020, 1, 2), 20, 20, 20, 20, 100),
			},
			"A": {
				db.TestPrice(db.NewDate(2020, 1, 1), 5, 5, 5, 5, 100),
			},
		}), ShouldBeNil)

		tbl, err := Prices(store, "test", nil)
		So(err, ShouldBeNil)
		So(tbl.Header, ShouldResemble, Header())
		So(len(tbl.Rows), ShouldEqual, 2)
		So(tbl.Rows[0].CSV()[0], ShouldEqual, "A")
		So(tbl.Rows[1].CSV()[0], ShouldEqual, "B")

		Convey("with constraints", func() {
			c := db.NewConstraints().Ticker("B").EndAt(db.NewDate(2020, 1, 1))
			tbl, err := Prices(store, "test", c)
			So(err, ShouldBeNil)
			So(len(tbl.Rows), ShouldEqual, 1)
			row := tbl.Rows[0].(Summary)
			So(row.Ticker, ShouldEqual, "B")
			So(row.Samples, ShouldEqual, 1)
		})

		Convey("of a missing key is an error", func() {
			_, err := Prices(store, "nosuch", nil)
			So(err, ShouldNotBeNil)
		})
	})
}
