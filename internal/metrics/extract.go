// Package metrics reduces a normalized daily series to the summary values
// the dashboard renders.
package metrics

import (
	"fmt"

	"IndexWatch/internal/model"
	"IndexWatch/internal/provider"
)

// Extract computes the current value and the extremes over the whole series.
// The high is the row with the maximum High, the low the row with the
// minimum Low; ties resolve to the earliest date. The source label is the
// caller's concern and is left empty.
func Extract(s model.Series) (model.Metrics, error) {
	if len(s) == 0 {
		return model.Metrics{}, fmt.Errorf("extract metrics: %w", provider.ErrNoData)
	}

	m := model.Metrics{
		Current:   s[len(s)-1].Close,
		HighValue: s[0].High,
		HighDate:  s[0].Date,
		LowValue:  s[0].Low,
		LowDate:   s[0].Date,
	}
	for _, bar := range s[1:] {
		if bar.High > m.HighValue {
			m.HighValue = bar.High
			m.HighDate = bar.Date
		}
		if bar.Low < m.LowValue {
			m.LowValue = bar.Low
			m.LowDate = bar.Date
		}
	}
	return m, nil
}
