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

// Package archive obtains and opens downloaded dataset archives: fetching a
// stable URL to a local file, extracting zip archives for tree ingestion, and
// streaming CSV out of plain, gzip'ed or zip'ed files.
package archive

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
)

// Reader streams the raw contents of a possibly compressed file, with a
// Close() method to release its resources.
type Reader struct {
	reader              io.Reader
	closers             []io.Closer
	ignoreDeferredClose bool // see deferredClose method
}

// Read implements io.Reader over the decompressed contents.
func (r *Reader) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

// AddCloser to the list of closers. Method Close() will call each registered
// closer in LIFO order.
func (r *Reader) AddCloser(c io.Closer) {
	r.closers = append(r.closers, c)
}

// Close Reader and release all the resources.
func (r *Reader) Close() {
	// Must invoke closers in reverse order. Ignore their errors.
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i].Close()
	}
	r.closers = nil
}

// deferredClose is to be used in defer in OpenCSV. When an intermediate error
// occurs, the already registered closers must be released before returning,
// but not when the method terminates normally.
func (r *Reader) deferredClose() {
	if r.ignoreDeferredClose {
		return
	}
	r.Close()
}

// OpenCSV opens a local CSV file for streaming. A ".gz" file is decompressed
// transparently; a ".zip" file must contain exactly one file, whose contents
// are streamed. Make sure to call Close() when done with the stream.
func OpenCSV(path string) (*Reader, error) {
	var r Reader
	defer r.deferredClose()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		z, err := zip.OpenReader(path)
		if err != nil {
			return nil, errors.Annotate(err, "failed to open zip archive '%s'", path)
		}
		r.AddCloser(z)
		if len(z.File) != 1 {
			names := make([]string, len(z.File))
			for i := range z.File {
				names[i] = z.File[i].Name
			}
			return nil, errors.Reason("archive '%s' contains %d files (expected 1):\n  %s",
				path, len(z.File), strings.Join(names, "\n  "))
		}
		rc, err := z.File[0].Open()
		if err != nil {
			return nil, errors.Annotate(err,
				"failed to open file in archive '%s'", z.File[0].Name)
		}
		r.AddCloser(rc)
		r.reader = rc
	case ".gz":
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Annotate(err, "failed to open '%s'", path)
		}
		r.AddCloser(f)
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Annotate(err, "failed to decompress '%s'", path)
		}
		r.AddCloser(gz)
		r.reader = gz
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Annotate(err, "failed to open '%s'", path)
		}
		r.AddCloser(f)
		r.reader = f
	}
	r.ignoreDeferredClose = true
	return &r, nil
}

// Fetch streams the contents of a URL into a local file, with HTTP-level
// retries. The URL is expected to be a stable archive link; no credentials
// or site-specific logic are involved.
func Fetch(ctx context.Context, url, dest string) error {
	resp, err := fetch.GetRetry(ctx, url, nil, nil)
	if err != nil {
		return errors.Annotate(err, "failed to fetch '%s'", url)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Annotate(err, "failed to create directory for '%s'", dest)
	}
	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open file for writing: '%s'", dest)
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return errors.Annotate(err, "failed to save '%s' to '%s'", url, dest)
	}
	logging.Infof(ctx, "fetched '%s' to '%s' (%d bytes)", url, dest, n)
	return nil
}

func extractFile(f *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(f.Name))
	// Guard against entries escaping destDir.
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return errors.Reason("archive entry '%s' escapes the destination", f.Name)
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Annotate(err, "failed to create directory for '%s'", target)
	}
	rc, err := f.Open()
	if err != nil {
		return errors.Annotate(err, "failed to open archive entry '%s'", f.Name)
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open file for writing: '%s'", target)
	}
	defer out.Close()
	if _, err := io.Copy(out, rc); err != nil {
		return errors.Annotate(err, "failed to extract '%s'", f.Name)
	}
	return nil
}

// ExtractZip unpacks a zip archive into destDir, preserving the archive's
// directory structure, and returns the number of extracted files.
func ExtractZip(ctx context.Context, path, destDir string) (int, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return 0, errors.Annotate(err, "failed to open zip archive '%s'", path)
	}
	defer z.Close()

	count := 0
	for _, f := range z.File {
		if err := extractFile(f, destDir); err != nil {
			return count, errors.Annotate(err, "failed to extract from '%s'", path)
		}
		if !f.FileInfo().IsDir() {
			count++
			if count%10000 == 0 {
				logging.Debugf(ctx, "extracted %d files", count)
			}
		}
	}
	logging.Infof(ctx, "extracted %d files from '%s' to '%s'", count, path, destDir)
	return count, nil
}
