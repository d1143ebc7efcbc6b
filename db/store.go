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
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// File names of the gob-encoded tables under each key's directory.
const (
	pricesFile   = "prices.gob"
	tickersFile  = "tickers.gob"
	imagesFile   = "images.gob"
	metadataFile = "metadata.json"
)

// Store is a keyed tabular store: a directory holding gob-encoded tables
// addressed by hierarchical slash-separated keys, plus a metadata.json with
// per-key table info. It assumes a single writer and no concurrent access.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The directory is
// created lazily on the first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root directory of the store.
func (s *Store) Root() string { return s.root }

// CheckKey validates a hierarchical store key: non-empty slash-separated
// components of letters, digits, and "._ -", with no leading dot.
func CheckKey(key string) error {
	if key == "" {
		return errors.Reason("key is empty")
	}
	for _, c := range strings.Split(key, "/") {
		if c == "" {
			return errors.Reason("key '%s' has an empty component", key)
		}
		if c[0] == '.' {
			return errors.Reason("key '%s' has a component starting with '.'", key)
		}
		for _, r := range c {
			switch {
			case r >= 'a' && r <= 'z':
			case r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
			case r == '.' || r == '_' || r == ' ' || r == '-':
			default:
				return errors.Reason("key '%s' has an invalid character %q", key, r)
			}
		}
	}
	return nil
}

// keyDir maps a validated key to its directory under the store root.
func (s *Store) keyDir(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func writeGob(fileName string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		return errors.Annotate(err, "failed to create directory for '%s'", fileName)
	}
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open file for writing: '%s'", fileName)
	}
	defer f.Close()
	enc := gob.NewEncoder(f)
	if err = enc.Encode(v); err != nil {
		return errors.Annotate(err, "failed to write to '%s'", fileName)
	}
	return nil
}

func readGob(fileName string, v interface{}) error {
	f, err := os.Open(fileName)
	if err != nil {
		return errors.Annotate(err, "failed to open file for reading: '%s'", fileName)
	}
	defer f.Close()
	dec := gob.NewDecoder(f)
	if err = dec.Decode(v); err != nil {
		return errors.Annotate(err, "failed to read from '%s'", fileName)
	}
	return nil
}

// Metadata reads the store-level metadata. A missing metadata file is an
// empty store, not an error.
func (s *Store) Metadata() (Metadata, error) {
	fileName := filepath.Join(s.root, metadataFile)
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, nil
		}
		return nil, errors.Annotate(err, "failed to read '%s'", fileName)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Annotate(err, "failed to parse '%s'", fileName)
	}
	return m, nil
}

// updateMetadata merges the table info for key into metadata.json. It is a
// plain read-modify-write; the store assumes a single writer.
func (s *Store) updateMetadata(key string, tm TableMeta) error {
	m, err := s.Metadata()
	if err != nil {
		return errors.Annotate(err, "failed to read metadata")
	}
	m[key] = tm
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Annotate(err, "failed to encode metadata")
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return errors.Annotate(err, "failed to create store root '%s'", s.root)
	}
	fileName := filepath.Join(s.root, metadataFile)
	if err := os.WriteFile(fileName, data, 0644); err != nil {
		return errors.Annotate(err, "failed to write '%s'", fileName)
	}
	return nil
}

// Keys lists the stored table keys in lexicographic order.
func (s *Store) Keys() ([]string, error) {
	m, err := s.Metadata()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read metadata")
	}
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys, nil
}

// WritePrices stores price series for all tickers under the key, replacing
// the previous contents. Series are expected to be sorted by date with unique
// (ticker, date) pairs; the store persists them as given.
func (s *Store) WritePrices(key string, prices map[string][]PriceRow) error {
	if err := CheckKey(key); err != nil {
		return errors.Annotate(err, "invalid key")
	}
	if err := writeGob(filepath.Join(s.keyDir(key), pricesFile), prices); err != nil {
		return errors.Annotate(err, "failed to write prices for '%s'", key)
	}
	tm := TableMeta{Kind: PricesTable, NumTickers: len(prices)}
	for _, rows := range prices {
		tm.NumRows += len(rows)
		for _, r := range rows {
			tm.Start = MinDate(tm.Start, r.Date)
			tm.End = MaxDate(tm.End, r.Date)
		}
	}
	return s.updateMetadata(key, tm)
}

// Prices reads all price series stored under the key.
func (s *Store) Prices(key string) (map[string][]PriceRow, error) {
	if err := CheckKey(key); err != nil {
		return nil, errors.Annotate(err, "invalid key")
	}
	var prices map[string][]PriceRow
	fileName := filepath.Join(s.keyDir(key), pricesFile)
	if err := readGob(fileName, &prices); err != nil {
		return nil, errors.Annotate(err, "failed to read prices for '%s'", key)
	}
	return prices, nil
}

// TickerPrices reads the price series of a single ticker under the key,
// filtered by the constraints.
func (s *Store) TickerPrices(key, ticker string, c *Constraints) ([]PriceRow, error) {
	prices, err := s.Prices(key)
	if err != nil {
		return nil, err
	}
	rows, ok := prices[ticker]
	if !ok {
		return nil, errors.Reason("no ticker '%s' under key '%s'", ticker, key)
	}
	res := []PriceRow{}
	for _, r := range rows {
		if c.CheckPrice(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

// WriteTickers stores a ticker directory under the key, replacing the
// previous contents.
func (s *Store) WriteTickers(key string, tickers map[string]TickerRow) error {
	if err := CheckKey(key); err != nil {
		return errors.Annotate(err, "invalid key")
	}
	if err := writeGob(filepath.Join(s.keyDir(key), tickersFile), tickers); err != nil {
		return errors.Annotate(err, "failed to write tickers for '%s'", key)
	}
	return s.updateMetadata(key, TableMeta{
		Kind:       TickersTable,
		NumTickers: len(tickers),
		NumRows:    len(tickers),
	})
}

// Tickers reads the ticker directory under the key, filtered by the
// constraints.
func (s *Store) Tickers(key string, c *Constraints) (map[string]TickerRow, error) {
	if err := CheckKey(key); err != nil {
		return nil, errors.Annotate(err, "invalid key")
	}
	var tickers map[string]TickerRow
	fileName := filepath.Join(s.keyDir(key), tickersFile)
	if err := readGob(fileName, &tickers); err != nil {
		return nil, errors.Annotate(err, "failed to read tickers for '%s'", key)
	}
	res := make(map[string]TickerRow)
	for t, r := range tickers {
		if c.CheckTicker(t) {
			res[t] = r
		}
	}
	return res, nil
}

// WriteImages stores an image set under the key, replacing the previous
// contents.
func (s *Store) WriteImages(key string, images *ImageSet) error {
	if err := CheckKey(key); err != nil {
		return errors.Annotate(err, "invalid key")
	}
	if err := writeGob(filepath.Join(s.keyDir(key), imagesFile), images); err != nil {
		return errors.Annotate(err, "failed to write images for '%s'", key)
	}
	return s.updateMetadata(key, TableMeta{
		Kind:      ImagesTable,
		NumImages: images.Count,
	})
}

// Images reads the image set stored under the key.
func (s *Store) Images(key string) (*ImageSet, error) {
	if err := CheckKey(key); err != nil {
		return nil, errors.Annotate(err, "invalid key")
	}
	var images ImageSet
	fileName := filepath.Join(s.keyDir(key), imagesFile)
	if err := readGob(fileName, &images); err != nil {
		return nil, errors.Annotate(err, "failed to read images for '%s'", key)
	}
	return &images, nil
}
