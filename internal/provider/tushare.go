package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"IndexWatch/internal/model"
)

// CrossBorderInstrument is the official instrument code behind the
// cross-border internet index.
const CrossBorderInstrument = "H30533.CSI"

// TushareFetcher queries the authenticated Tushare data API. It is the
// primary source for the cross-border internet index and requires a token.
type TushareFetcher struct {
	client *resty.Client
	token  string
}

// NewTushareFetcher creates the fetcher. Callers should not construct one
// without a token; a missing credential disables this adapter entirely.
func NewTushareFetcher(token string) *TushareFetcher {
	client := resty.New()
	client.SetBaseURL("https://api.tushare.pro")
	client.SetTimeout(30 * time.Second)
	return &TushareFetcher{client: client, token: token}
}

func (f *TushareFetcher) Name() string { return "tushare" }

// tushareResponse is the generic Tushare envelope: a fields array naming the
// columns and an items array of rows.
type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// FetchDaily ignores the routing code and queries the fixed instrument over
// the lookback window. The Tushare table has its own column vocabulary
// (trade_date instead of date), so the mapping is done here instead of the
// shared normalization pass.
func (f *TushareFetcher) FetchDaily(_ string) (model.Series, error) {
	if f.token == "" {
		return nil, fmt.Errorf("%w: tushare: token not configured", ErrSourceUnavailable)
	}

	now := time.Now()
	body := map[string]interface{}{
		"api_name": "index_daily",
		"token":    f.token,
		"params": map[string]string{
			"ts_code":    CrossBorderInstrument,
			"start_date": now.AddDate(-LookbackYears, 0, 0).Format("20060102"),
			"end_date":   now.Format("20060102"),
		},
		"fields": "trade_date,open,high,low,close",
	}

	resp, err := f.client.R().SetBody(body).Post("/")
	if err != nil {
		return nil, fmt.Errorf("%w: tushare: %v", ErrSourceUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: tushare: status %d", ErrSourceUnavailable, resp.StatusCode())
	}
	var payload tushareResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: tushare: decode: %v", ErrSourceUnavailable, err)
	}
	if payload.Code != 0 {
		return nil, fmt.Errorf("%w: tushare: api error: %s", ErrSourceUnavailable, payload.Msg)
	}
	if payload.Data == nil || len(payload.Data.Items) == 0 {
		return nil, fmt.Errorf("%w: tushare: empty result", ErrNoData)
	}

	idx := map[string]int{}
	for i, field := range payload.Data.Fields {
		idx[field] = i
	}
	dateIdx, ok := idx["trade_date"]
	closeIdx, okClose := idx["close"]
	if !ok || !okClose {
		return nil, fmt.Errorf("%w: tushare: schema missing trade_date/close", ErrSourceUnavailable)
	}
	highIdx, hasHigh := idx["high"]
	lowIdx, hasLow := idx["low"]

	series := make(model.Series, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		if dateIdx >= len(item) || closeIdx >= len(item) {
			continue
		}
		ds, _ := item[dateIdx].(string)
		date, err := time.Parse("20060102", ds)
		if err != nil {
			continue
		}
		c, ok := toFloat(item[closeIdx])
		if !ok {
			continue
		}
		h, l := c, c
		if hasHigh && highIdx < len(item) {
			if v, ok := toFloat(item[highIdx]); ok {
				h = v
			}
		}
		if hasLow && lowIdx < len(item) {
			if v, ok := toFloat(item[lowIdx]); ok {
				l = v
			}
		}
		series = append(series, model.Bar{Date: date, Close: c, High: h, Low: l})
	}

	// Tushare returns rows newest-first.
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}
