package provider

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"IndexWatch/internal/model"
)

// RawTable is an adapter's fetch output before normalization: ordered rows
// under provider-specific column labels. Not all rows need the same width;
// short rows are padded with empty cells during lookup.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Column label candidates, checked after lower-casing and trimming. Upstream
// tables label their columns in English or Chinese depending on the source.
var (
	dateColumns  = []string{"date", "time", "日期"}
	closeColumns = []string{"close", "收盘"}
	highColumns  = []string{"high", "最高"}
	lowColumns   = []string{"low", "最低"}
)

var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"2006-01-02 15:04:05",
}

// Normalize cleans a provider table into a canonical daily series:
//  1. column labels lower-cased and trimmed,
//  2. the date column identified from a fixed candidate set,
//  3. rows with unparseable dates dropped,
//  4. rows outside [now - lookbackYears, now] dropped,
//  5. high/low synthesized from close when the source lacks them,
//  6. rows with an unparseable close dropped,
//  7. result sorted ascending by date, duplicate dates deduplicated with
//     last write winning.
//
// A table that empties out during cleaning yields an empty series, not an
// error; callers treat empty as "no data".
func Normalize(raw RawTable, now time.Time, lookbackYears int) model.Series {
	labels := make([]string, len(raw.Columns))
	for i, c := range raw.Columns {
		labels[i] = strings.ToLower(strings.TrimSpace(c))
	}

	dateIdx := findColumn(labels, dateColumns)
	closeIdx := findColumn(labels, closeColumns)
	if dateIdx < 0 || closeIdx < 0 {
		return nil
	}
	highIdx := findColumn(labels, highColumns)
	lowIdx := findColumn(labels, lowColumns)

	cutoff := now.AddDate(-lookbackYears, 0, 0)
	series := make(model.Series, 0, len(raw.Rows))

	for _, row := range raw.Rows {
		date, ok := parseDate(cell(row, dateIdx))
		if !ok {
			continue
		}
		if date.Before(cutoff) || date.After(now) {
			continue
		}
		c, ok := parseFloat(cell(row, closeIdx))
		if !ok {
			continue
		}
		h, ok := parseFloat(cell(row, highIdx))
		if highIdx < 0 || !ok {
			h = c
		}
		l, ok := parseFloat(cell(row, lowIdx))
		if lowIdx < 0 || !ok {
			l = c
		}
		series = append(series, model.Bar{Date: date, Close: c, High: h, Low: l})
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return dedupe(series)
}

// dedupe collapses equal dates, keeping the last occurrence. Input must be
// sorted ascending.
func dedupe(s model.Series) model.Series {
	if len(s) == 0 {
		return s
	}
	out := s[:1]
	for _, b := range s[1:] {
		if b.Date.Equal(out[len(out)-1].Date) {
			out[len(out)-1] = b
		} else {
			out = append(out, b)
		}
	}
	return out
}

func findColumn(labels, candidates []string) int {
	for _, cand := range candidates {
		for i, l := range labels {
			if l == cand {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
