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

package archive

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/fetch"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, contents := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(contents)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func readAll(r *Reader) (string, error) {
	data, err := io.ReadAll(r)
	return string(data), err
}

func TestArchive(t *testing.T) {
	t.Parallel()
	tmpdir, tmpdirErr := os.MkdirTemp("", "testarchive")
	defer os.RemoveAll(tmpdir)

	Convey("Test setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	ctx := context.Background()
	csvBody := "Date,Close\n2020-01-02,10.5\n"

	Convey("OpenCSV", t, func() {
		Convey("plain file", func() {
			path := filepath.Join(tmpdir, "plain.csv")
			So(os.WriteFile(path, []byte(csvBody), 0644), ShouldBeNil)
			r, err := OpenCSV(path)
			So(err, ShouldBeNil)
			defer r.Close()
			body, err := readAll(r)
			So(err, ShouldBeNil)
			So(body, ShouldEqual, csvBody)
		})

		Convey("gzip'ed file", func() {
			path := filepath.Join(tmpdir, "packed.csv.gz")
			f, err := os.Create(path)
			So(err, ShouldBeNil)
			gz := gzip.NewWriter(f)
			_, err = gz.Write([]byte(csvBody))
			So(err, ShouldBeNil)
			So(gz.Close(), ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			r, err := OpenCSV(path)
			So(err, ShouldBeNil)
			defer r.Close()
			body, err := readAll(r)
			So(err, ShouldBeNil)
			So(body, ShouldEqual, csvBody)
		})

		Convey("zip with a single file", func() {
			path := filepath.Join(tmpdir, "single.zip")
			writeZip(t, path, map[string]string{"prices.csv": csvBody})
			r, err := OpenCSV(path)
			So(err, ShouldBeNil)
			defer r.Close()
			body, err := readAll(r)
			So(err, ShouldBeNil)
			So(body, ShouldEqual, csvBody)
		})

		Convey("zip with several files is an error", func() {
			path := filepath.Join(tmpdir, "multi.zip")
			writeZip(t, path, map[string]string{"one.csv": "a\n", "two.csv": "b\n"})
			_, err := OpenCSV(path)
			So(err, ShouldNotBeNil)
		})

		Convey("missing file is an error", func() {
			_, err := OpenCSV(filepath.Join(tmpdir, "nope.csv"))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("ExtractZip", t, func() {
		path := filepath.Join(tmpdir, "tree.zip")
		writeZip(t, path, map[string]string{
			"data/daily/us/aaa.us.txt": "Date,Close\n2020-01-02,10\n",
			"data/daily/us/bbb.us.txt": "Date,Close\n2020-01-02,20\n",
		})

		Convey("extracts preserving structure", func() {
			destDir := filepath.Join(tmpdir, "extracted")
			n, err := ExtractZip(ctx, path, destDir)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			data, err := os.ReadFile(
				filepath.Join(destDir, "data", "daily", "us", "aaa.us.txt"))
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "Date,Close\n2020-01-02,10\n")
		})

		Convey("rejects entries escaping the destination", func() {
			evil := filepath.Join(tmpdir, "evil.zip")
			writeZip(t, evil, map[string]string{"../escape.txt": "gotcha\n"})
			_, err := ExtractZip(ctx, evil, filepath.Join(tmpdir, "evil-out"))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Fetch", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		server.ResponseBody = []string{csvBody}
		ctx := fetch.UseClient(ctx, server.Client())

		dest := filepath.Join(tmpdir, "fetched", "prices.csv")
		So(Fetch(ctx, server.URL()+"/archive/prices.csv", dest), ShouldBeNil)
		data, err := os.ReadFile(dest)
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, csvBody)
		So(server.RequestPath, ShouldEqual, "/archive/prices.csv")
	})
}
