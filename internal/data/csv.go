// Package data loads OHLCV candles from CSV files. Column matching is
// case-insensitive; time, open, high, low and close are required, volume is
// optional. Timestamps accept RFC 3339 or unix epoch seconds/milliseconds.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/types"
)

var (
	ErrMissingColumn = errors.New("csv: missing required column")
	ErrNoRows        = errors.New("csv: no data rows")
)

// epochMillisCutoff separates epoch seconds from epoch milliseconds. Any
// value above it is read as milliseconds.
const epochMillisCutoff = 1e12

// LoadFile reads candles from a CSV file at path and stamps them with ticker
// and interval. Rows come back sorted by timestamp ascending.
func LoadFile(path, ticker string, interval types.Interval) ([]types.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle csv: %w", err)
	}
	defer f.Close()
	return Read(f, ticker, interval)
}

// Read parses candles from r. See LoadFile.
func Read(r io.Reader, ticker string, interval types.Interval) ([]types.Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var candles []types.Candle
	row := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}
		row++

		c, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}
		c.Ticker = ticker
		c.Interval = interval
		candles = append(candles, c)
	}
	if len(candles) == 0 {
		return nil, ErrNoRows
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}

type columnIndex struct {
	time, open, high, low, close, volume int
}

func mapColumns(header []string) (columnIndex, error) {
	idx := columnIndex{time: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "time", "timestamp", "date", "datetime":
			idx.time = i
		case "open":
			idx.open = i
		case "high":
			idx.high = i
		case "low":
			idx.low = i
		case "close":
			idx.close = i
		case "volume", "vol":
			idx.volume = i
		}
	}
	for name, i := range map[string]int{
		"time": idx.time, "open": idx.open, "high": idx.high, "low": idx.low, "close": idx.close,
	} {
		if i == -1 {
			return idx, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return idx, nil
}

func parseRow(rec []string, cols columnIndex) (types.Candle, error) {
	var c types.Candle

	ts, err := parseTime(field(rec, cols.time))
	if err != nil {
		return c, err
	}
	c.Timestamp = ts

	for _, f := range []struct {
		name string
		idx  int
		dst  *decimal.Decimal
	}{
		{"open", cols.open, &c.Open},
		{"high", cols.high, &c.High},
		{"low", cols.low, &c.Low},
		{"close", cols.close, &c.Close},
	} {
		v, err := decimal.NewFromString(field(rec, f.idx))
		if err != nil {
			return c, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}

	if cols.volume >= 0 && field(rec, cols.volume) != "" {
		v, err := decimal.NewFromString(field(rec, cols.volume))
		if err != nil {
			return c, fmt.Errorf("parse volume: %w", err)
		}
		c.Volume = v
	}
	return c, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f > epochMillisCutoff {
			return time.UnixMilli(int64(f)).UTC(), nil
		}
		return time.Unix(int64(f), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
