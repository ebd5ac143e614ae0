package model

import "time"

// Bar is one cleaned daily row. When the upstream table lacks explicit
// high/low columns both are set to Close (degraded precision, not an error).
type Bar struct {
	Date  time.Time
	Close float64
	High  float64
	Low   float64
}

// Series is a normalized daily history: ascending by date, deduplicated,
// window-filtered, Close always set.
type Series []Bar

// Metrics is the per-index summary consumed by the UI. Recomputed on every
// fetch, never mutated in place.
type Metrics struct {
	Current   float64
	HighValue float64
	HighDate  time.Time
	LowValue  float64
	LowDate   time.Time
	// Source tags which provider produced the data when a fallback chain is
	// in play ("official" or "proxy"); empty for single-source indices.
	Source string
}
