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

// SinaUSFetcher fetches US index daily history from the Sina finance daily-K
// API. Codes arrive with a "gb." routing prefix which is stripped, and two
// symbols need a leading-dot alias upstream.
type SinaUSFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewSinaUSFetcher creates a new fetcher with optional proxy support.
func NewSinaUSFetcher(proxyURL string) *SinaUSFetcher {
	return &SinaUSFetcher{
		BaseURL: "https://stock.finance.sina.com.cn",
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *SinaUSFetcher) Name() string { return "sina-us" }

// sinaBar is one row of the Sina daily-K response.
type sinaBar struct {
	D string `json:"d"`
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

func usSymbol(code string) string {
	symbol := strings.TrimPrefix(code, "gb.")
	switch symbol {
	case "INX":
		return ".INX"
	case "NDX":
		return ".NDX"
	}
	return symbol
}

func (f *SinaUSFetcher) FetchDaily(code string) (model.Series, error) {
	endpoint := fmt.Sprintf("%s/usstock/api/json_v2.php/US_MinKService.getDailyK?symbol=%s",
		f.BaseURL, url.QueryEscape(usSymbol(code)))

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: sina %s: %v", ErrSourceUnavailable, code, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sina %s: %v", ErrSourceUnavailable, code, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: sina %s: read body: %v", ErrSourceUnavailable, code, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: sina %s: status %d", ErrSourceUnavailable, code, resp.StatusCode)
	}

	var bars []sinaBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("%w: sina %s: decode: %v", ErrSourceUnavailable, code, err)
	}

	table := RawTable{
		Columns: []string{"date", "open", "high", "low", "close"},
		Rows:    make([][]string, 0, len(bars)),
	}
	for _, b := range bars {
		table.Rows = append(table.Rows, []string{b.D, b.O, b.H, b.L, b.C})
	}
	return Normalize(table, time.Now(), LookbackYears), nil
}
