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
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	t.Parallel()

	Convey("Table printing", t, func() {
		tbl := NewTable("Name", "Age")
		tbl.AddRow(Strings{"John", "25"}, Strings{"Jane", "24"}, Strings{"Bo", "5"})

		Convey("WriteCSV", func() {
			var buf bytes.Buffer
			So(tbl.WriteCSV(&buf, Params{}), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
Name,Age
John,25
Jane,24
Bo,5
`)
		})

		Convey("WriteCSV with row limit and no header", func() {
			var buf bytes.Buffer
			So(tbl.WriteCSV(&buf, Params{Rows: 1, NoHeader: true}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "John,25\n")
		})

		Convey("WriteText aligns columns", func() {
			var buf bytes.Buffer
			So(tbl.WriteText(&buf, Params{}), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
Name | Age
---- | ---
John |  25
Jane |  24
  Bo |   5
`)
		})

		Convey("WriteText rejects ragged rows", func() {
			bad := NewTable("One")
			bad.AddRow(Strings{"a", "b"})
			var buf bytes.Buffer
			So(bad.WriteText(&buf, Params{}), ShouldNotBeNil)
		})

		Convey("headerless table", func() {
			tbl2 := NewTable()
			tbl2.AddRow(Strings{"x", "y"})
			var buf bytes.Buffer
			So(tbl2.WriteText(&buf, Params{}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "x | y\n")
		})
	})
}
