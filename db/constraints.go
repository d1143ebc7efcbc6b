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

// Constraints filter tickers and their time series on reads. Zero value means
// no constraints.
type Constraints struct {
	Tickers        map[string]struct{}
	ExcludeTickers map[string]struct{}
	Start          Date
	End            Date
}

// NewConstraints creates a new Constraints with no constraints.
func NewConstraints() *Constraints {
	return &Constraints{
		Tickers:        make(map[string]struct{}),
		ExcludeTickers: make(map[string]struct{}),
	}
}

// Ticker adds tickers to the constraints.
func (c *Constraints) Ticker(tickers ...string) *Constraints {
	for _, tk := range tickers {
		c.Tickers[tk] = struct{}{}
	}
	return c
}

// ExcludeTicker adds tickers to be ignored.
func (c *Constraints) ExcludeTicker(tickers ...string) *Constraints {
	for _, tk := range tickers {
		c.ExcludeTickers[tk] = struct{}{}
	}
	return c
}

// StartAt adds the start date to the constraints.
func (c *Constraints) StartAt(dt Date) *Constraints {
	c.Start = dt
	return c
}

// EndAt adds the end date to the constraints.
func (c *Constraints) EndAt(dt Date) *Constraints {
	c.End = dt
	return c
}

// CheckTicker whether it satisfies the constraints. A nil constraint allows
// everything.
func (c *Constraints) CheckTicker(ticker string) bool {
	if c == nil {
		return true
	}
	if len(c.ExcludeTickers) > 0 {
		if _, ok := c.ExcludeTickers[ticker]; ok {
			return false
		}
	}
	if len(c.Tickers) > 0 {
		if _, ok := c.Tickers[ticker]; !ok {
			return false
		}
	}
	return true
}

// CheckPrice whether its date is within the constrained range. A nil
// constraint allows everything.
func (c *Constraints) CheckPrice(r PriceRow) bool {
	if c == nil {
		return true
	}
	return r.Date.InRange(c.Start, c.End)
}
