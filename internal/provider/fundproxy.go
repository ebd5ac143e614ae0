package provider

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"IndexWatch/internal/model"
)

// ProxyFundSymbol is the exchange-traded fund whose price history stands in
// for the cross-border internet index when the official source is down. The
// fund tracks the index but is not numerically equivalent; the orchestrator
// labels the result so the substitution stays visible.
const ProxyFundSymbol = "513050"

// The retail feed serves forward-adjusted history over a wide fixed window.
const (
	proxyFundBeg = "20190101"
	proxyFundEnd = "20261231"
)

// FundProxyFetcher queries a retail market-data source for the tracking
// fund's daily history.
type FundProxyFetcher struct {
	client *resty.Client
}

// NewFundProxyFetcher creates the fallback fetcher.
func NewFundProxyFetcher() *FundProxyFetcher {
	client := resty.New()
	client.SetBaseURL("https://push2his.eastmoney.com")
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0")
	return &FundProxyFetcher{client: client}
}

func (f *FundProxyFetcher) Name() string { return "etf-proxy" }

// The retail feed labels its columns in Chinese; map them before the shared
// cleaning pass.
var fundColumnRename = map[string]string{
	"日期": "date",
	"开盘": "open",
	"收盘": "close",
	"最高": "high",
	"最低": "low",
}

func renameColumns(table RawTable, rename map[string]string) RawTable {
	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		if mapped, ok := rename[strings.TrimSpace(c)]; ok {
			cols[i] = mapped
		} else {
			cols[i] = c
		}
	}
	table.Columns = cols
	return table
}

// FetchDaily ignores the routing code and fetches the fixed fund's history.
func (f *FundProxyFetcher) FetchDaily(_ string) (model.Series, error) {
	resp, err := f.client.R().
		SetQueryParams(map[string]string{
			"secid":   "1." + ProxyFundSymbol,
			"fields1": "f1,f2,f3,f4,f5,f6",
			"fields2": "f51,f52,f53,f54,f55,f56,f57",
			"klt":     "101",
			"fqt":     "1",
			"beg":     proxyFundBeg,
			"end":     proxyFundEnd,
		}).
		Get("/api/qt/stock/kline/get")
	if err != nil {
		return nil, fmt.Errorf("%w: etf proxy: %v", ErrSourceUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: etf proxy: status %d", ErrSourceUnavailable, resp.StatusCode())
	}

	var payload emKline
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: etf proxy: decode: %v", ErrSourceUnavailable, err)
	}
	if payload.Data == nil || len(payload.Data.Klines) == 0 {
		return nil, fmt.Errorf("%w: etf proxy: empty result", ErrNoData)
	}

	table := RawTable{
		Columns: []string{"日期", "开盘", "收盘", "最高", "最低", "成交量", "成交额"},
		Rows:    make([][]string, 0, len(payload.Data.Klines)),
	}
	for _, line := range payload.Data.Klines {
		table.Rows = append(table.Rows, strings.Split(line, ","))
	}
	return Normalize(renameColumns(table, fundColumnRename), time.Now(), LookbackYears), nil
}
