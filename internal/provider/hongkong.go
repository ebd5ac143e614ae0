package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"IndexWatch/internal/model"
)

// HongKongIndexFetcher fetches Hong Kong index daily history. Codes arrive
// with an "hk" routing prefix which is stripped before calling upstream.
type HongKongIndexFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHongKongIndexFetcher creates a new fetcher with optional proxy support.
func NewHongKongIndexFetcher(proxyURL string) *HongKongIndexFetcher {
	return &HongKongIndexFetcher{
		BaseURL: "https://33.push2his.eastmoney.com",
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *HongKongIndexFetcher) Name() string { return "hk-index" }

// hkRow is one row of the Hong Kong daily feed. The feed labels the closing
// column "latest" and the date column "time".
type hkRow struct {
	Time   string `json:"time"`
	Latest string `json:"latest"`
	High   string `json:"high"`
	Low    string `json:"low"`
}

func (f *HongKongIndexFetcher) FetchDaily(code string) (model.Series, error) {
	symbol := strings.TrimPrefix(code, "hk")

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/api/qt/index/daily?symbol=%s", f.BaseURL, symbol), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: hk %s: %v", ErrSourceUnavailable, code, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: hk %s: %v", ErrSourceUnavailable, code, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: hk %s: read body: %v", ErrSourceUnavailable, code, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: hk %s: status %d", ErrSourceUnavailable, code, resp.StatusCode)
	}

	var rows []hkRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: hk %s: decode: %v", ErrSourceUnavailable, code, err)
	}

	// The feed has no separate close column; "latest" is renamed before the
	// shared cleaning pass.
	table := RawTable{
		Columns: []string{"time", "close", "high", "low"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{r.Time, r.Latest, r.High, r.Low})
	}
	return Normalize(table, time.Now(), LookbackYears), nil
}
