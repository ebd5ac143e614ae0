package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"IndexWatch/internal/model"
)

// EastmoneyIndexFetcher fetches mainland exchange index daily history from
// the Eastmoney kline API.
type EastmoneyIndexFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewEastmoneyIndexFetcher creates a new fetcher with optional proxy support.
func NewEastmoneyIndexFetcher(proxyURL string) *EastmoneyIndexFetcher {
	return &EastmoneyIndexFetcher{
		BaseURL: "https://push2his.eastmoney.com",
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *EastmoneyIndexFetcher) Name() string { return "eastmoney" }

// emKline is the response structure of the Eastmoney kline API. Each kline
// is a comma-joined row.
type emKline struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// secID maps an exchange-prefixed index code to the Eastmoney security id:
// sh000001 -> 1.000001, sz399006 -> 0.399006.
func secID(code string) string {
	switch {
	case strings.HasPrefix(code, "sh"):
		return "1." + code[2:]
	case strings.HasPrefix(code, "sz"):
		return "0." + code[2:]
	default:
		return code
	}
}

func (f *EastmoneyIndexFetcher) FetchDaily(code string) (model.Series, error) {
	raw, err := fetchEastmoneyKlines(f.Client, f.BaseURL, secID(code), "0", "19900101", "20500101")
	if err != nil {
		return nil, fmt.Errorf("%w: eastmoney %s: %v", ErrSourceUnavailable, code, err)
	}
	return Normalize(raw, time.Now(), LookbackYears), nil
}

// fetchEastmoneyKlines queries the push2his kline endpoint and converts the
// comma-joined rows into a RawTable. The fields2 order fixes the column
// labels: date, open, close, high, low, volume, amount.
func fetchEastmoneyKlines(client *http.Client, baseURL, secid, fqt, beg, end string) (RawTable, error) {
	q := url.Values{}
	q.Set("secid", secid)
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")
	q.Set("klt", "101")
	q.Set("fqt", fqt)
	q.Set("beg", beg)
	q.Set("end", end)

	req, err := http.NewRequest("GET", baseURL+"/api/qt/stock/kline/get?"+q.Encode(), nil)
	if err != nil {
		return RawTable{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return RawTable{}, fmt.Errorf("kline fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawTable{}, fmt.Errorf("kline read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return RawTable{}, fmt.Errorf("kline: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload emKline
	if err := json.Unmarshal(body, &payload); err != nil {
		return RawTable{}, fmt.Errorf("kline decode: %w", err)
	}
	if payload.Data == nil || len(payload.Data.Klines) == 0 {
		return RawTable{}, fmt.Errorf("kline: no data returned")
	}

	table := RawTable{
		Columns: []string{"date", "open", "close", "high", "low", "volume", "amount"},
		Rows:    make([][]string, 0, len(payload.Data.Klines)),
	}
	for _, line := range payload.Data.Klines {
		table.Rows = append(table.Rows, strings.Split(line, ","))
	}
	return table, nil
}
