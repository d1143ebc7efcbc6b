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

package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stockparfait/logging"

	"github.com/datapantry/datapantry/db"

	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0644)
}

// idxImages encodes a single-image IDX image file with the given label file.
func idxFiles(tmpdir string) (imagesPath, labelsPath string, err error) {
	var images bytes.Buffer
	binary.Write(&images, binary.BigEndian, []uint32{0x00000803, 1, 2, 2})
	images.Write([]byte{1, 2, 3, 4})
	var labels bytes.Buffer
	binary.Write(&labels, binary.BigEndian, []uint32{0x00000801, 1})
	labels.Write([]byte{7})

	imagesPath = filepath.Join(tmpdir, "images.idx3-ubyte.gz")
	labelsPath = filepath.Join(tmpdir, "labels.idx1-ubyte")
	f, err := os.Create(imagesPath)
	if err != nil {
		return
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err = gz.Write(images.Bytes()); err != nil {
		return
	}
	if err = gz.Close(); err != nil {
		return
	}
	err = os.WriteFile(labelsPath, labels.Bytes(), 0644)
	return
}

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_pantry_ingest")
	defer os.RemoveAll(tmpdir)

	Convey("Test setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	ctx := logging.Use(context.Background(), logging.DefaultGoLogger(logging.Info))

	Convey("parseFlags", t, func() {
		Convey("with all the flags", func() {
			flags, err := parseFlags([]string{
				"-store", "path/to/store", "-config", "jobs.toml",
				"-log-level", "warning"})
			So(err, ShouldBeNil)
			So(flags.StoreDir, ShouldEqual, "path/to/store")
			So(flags.Config, ShouldEqual, "jobs.toml")
			So(flags.LogLevel, ShouldEqual, logging.Warning)
		})

		Convey("without -config", func() {
			_, err := parseFlags([]string{"-store", "path/to/store"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("parseConfig of a missing file suggests a sample", t, func() {
		_, err := parseConfig(filepath.Join(tmpdir, "nosuch.toml"))
		So(err, ShouldNotBeNil)
		So(strings.Contains(err.Error(), "[[tree]]"), ShouldBeTrue)
	})

	Convey("ingestAll works", t, func() {
		treeDir := filepath.Join(tmpdir, "daily")
		So(writeFile(filepath.Join(treeDir, "aaa.us.txt"),
			"<TICKER>,<PER>,<DATE>,<TIME>,<OPEN>,<HIGH>,<LOW>,<CLOSE>,<VOL>,<OPENINT>\n"+
				"AAA.US,D,20200102,000000,10,11,9,10.5,1000,0\n"), ShouldBeNil)

		csvPath := filepath.Join(tmpdir, "liqd.csv")
		So(writeFile(csvPath,
			"Date,Close\n2020-01-02,42.5\n2020-01-03,43\n2020-01-02,999\n"), ShouldBeNil)

		tickersPath := filepath.Join(tmpdir, "symbols.csv")
		So(writeFile(tickersPath, "Ticker,Name\nAAA.US,Triple A\n"), ShouldBeNil)

		imagesPath, labelsPath, err := idxFiles(tmpdir)
		So(err, ShouldBeNil)

		configPath := filepath.Join(tmpdir, "jobs.toml")
		So(writeFile(configPath, `
[[tree]]
dir = "`+treeDir+`"
key = "stooq/us/test_stocks"
schema = "stooq"

[[csv]]
path = "`+csvPath+`"
key = "bonds/liqd"
ticker = "LIQD"

[[tickers]]
path = "`+tickersPath+`"
key = "us/symbols"

[[images]]
images = "`+imagesPath+`"
labels = "`+labelsPath+`"
key = "images/test/train"
`), ShouldBeNil)

		storeDir := filepath.Join(tmpdir, "store")
		flags, err := parseFlags([]string{"-store", storeDir, "-config", configPath})
		So(err, ShouldBeNil)
		So(ingestAll(ctx, flags), ShouldBeNil)

		store := db.NewStore(storeDir)

		Convey("all jobs wrote their tables", func() {
			keys, err := store.Keys()
			So(err, ShouldBeNil)
			So(keys, ShouldResemble, []string{
				"bonds/liqd", "images/test/train", "stooq/us/test_stocks",
				"us/symbols"})
		})

		Convey("the tree job parsed the stooq schema", func() {
			prices, err := store.TickerPrices("stooq/us/test_stocks", "AAA.US", nil)
			So(err, ShouldBeNil)
			So(len(prices), ShouldEqual, 1)
			So(prices[0].Close, ShouldEqual, 10.5)
		})

		Convey("the csv job deduplicated by date", func() {
			prices, err := store.TickerPrices("bonds/liqd", "LIQD", nil)
			So(err, ShouldBeNil)
			So(len(prices), ShouldEqual, 2)
			So(prices[0].Close, ShouldEqual, 42.5)
		})

		Convey("the images job stored labeled images", func() {
			images, err := store.Images("images/test/train")
			So(err, ShouldBeNil)
			So(images.Count, ShouldEqual, 1)
			So(images.Labels, ShouldResemble, []byte{7})
		})

		Convey("a failing job aborts the run", func() {
			badConfig := filepath.Join(tmpdir, "bad.toml")
			So(writeFile(badConfig, `
[[tree]]
dir = "`+filepath.Join(tmpdir, "nosuch")+`"
key = "bad/key"
`), ShouldBeNil)
			flags, err := parseFlags([]string{"-store", storeDir, "-config", badConfig})
			So(err, ShouldBeNil)
			So(ingestAll(ctx, flags), ShouldNotBeNil)
		})
	})
}
