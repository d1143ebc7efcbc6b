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

// Package idx reads IDX-formatted image and label files, the binary format of
// the MNIST family of datasets, and stores the decoded sets in the database.
package idx

import (
	"compress/gzip"
	"context"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/datapantry/datapantry/db"
)

// Magic numbers of the IDX files: unsigned byte data, 3 dimensions for images
// and 1 for labels.
const (
	imagesMagic uint32 = 0x00000803
	labelsMagic uint32 = 0x00000801
)

// ReadImages decodes an IDX image file: magic, count, rows, cols as big-endian
// uint32, followed by count*rows*cols pixel bytes.
func ReadImages(r io.Reader) (*db.ImageSet, error) {
	var hdr [4]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Annotate(err, "failed to read the image header")
	}
	if hdr[0] != imagesMagic {
		return nil, errors.Reason("unexpected image magic: 0x%08x", hdr[0])
	}
	s := &db.ImageSet{
		Count: int(hdr[1]),
		Rows:  int(hdr[2]),
		Cols:  int(hdr[3]),
	}
	s.Pixels = make([]byte, s.Count*s.Rows*s.Cols)
	if _, err := io.ReadFull(r, s.Pixels); err != nil {
		return nil, errors.Annotate(err, "failed to read %d x %d x %d pixels",
			s.Count, s.Rows, s.Cols)
	}
	return s, nil
}

// ReadLabels decodes an IDX label file: magic and count as big-endian uint32,
// followed by count label bytes.
func ReadLabels(r io.Reader) ([]byte, error) {
	var hdr [2]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Annotate(err, "failed to read the label header")
	}
	if hdr[0] != labelsMagic {
		return nil, errors.Reason("unexpected label magic: 0x%08x", hdr[0])
	}
	labels := make([]byte, hdr[1])
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, errors.Annotate(err, "failed to read %d labels", hdr[1])
	}
	return labels, nil
}

// open opens an IDX file, transparently uncompressing ".gz" files. The second
// closer, when non-nil, is the gzip reader and must be closed first.
func open(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to open '%s'", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, f.Close, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.Annotate(err, "failed to uncompress '%s'", path)
	}
	closeAll := func() error {
		err := gz.Close()
		if err2 := f.Close(); err == nil {
			err = err2
		}
		return err
	}
	return gz, closeAll, nil
}

// ReadImagesFile reads an IDX image file, optionally gzip-compressed.
func ReadImagesFile(path string) (*db.ImageSet, error) {
	r, closeAll, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeAll()
	s, err := ReadImages(r)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read images from '%s'", path)
	}
	return s, nil
}

// ReadLabelsFile reads an IDX label file, optionally gzip-compressed.
func ReadLabelsFile(path string) ([]byte, error) {
	r, closeAll, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeAll()
	labels, err := ReadLabels(r)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read labels from '%s'", path)
	}
	return labels, nil
}

// Config is the parameters of ingesting one image set.
type Config struct {
	ImagesPath string // required
	LabelsPath string // optional; the set is stored unlabeled without it
	Key        string // required
}

// Ingest reads an IDX image file and its optional label file and writes the
// decoded set into the store under the config key.
func Ingest(ctx context.Context, store *db.Store, cfg *Config) (*db.ImageSet, error) {
	s, err := ReadImagesFile(cfg.ImagesPath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to ingest images")
	}
	if cfg.LabelsPath != "" {
		labels, err := ReadLabelsFile(cfg.LabelsPath)
		if err != nil {
			return nil, errors.Annotate(err, "failed to ingest labels")
		}
		if len(labels) != s.Count {
			return nil, errors.Reason(
				"%d labels in '%s' do not match %d images in '%s'",
				len(labels), cfg.LabelsPath, s.Count, cfg.ImagesPath)
		}
		s.Labels = labels
	}
	if err := store.WriteImages(cfg.Key, s); err != nil {
		return nil, errors.Annotate(err, "failed to write images under '%s'", cfg.Key)
	}
	logging.Infof(ctx, "ingested %d %dx%d images under '%s'",
		s.Count, s.Rows, s.Cols, cfg.Key)
	return s, nil
}
