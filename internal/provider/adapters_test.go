package provider

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// recent formats a date n days back so rows land inside the lookback window
// regardless of when the tests run.
func recent(n int) string {
	return time.Now().AddDate(0, 0, -n).Format("2006-01-02")
}

func TestEastmoneyIndexFetcher_FetchDaily(t *testing.T) {
	var gotSecID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecID = r.URL.Query().Get("secid")
		fmt.Fprintf(w, `{"data":{"code":"000001","name":"上证指数","klines":[
			"%s,3090.0,3100.0,3110.0,3080.0,1000,2000",
			"%s,3100.0,3120.0,3130.0,3095.0,1100,2100"
		]}}`, recent(2), recent(1))
	}))
	defer srv.Close()

	f := NewEastmoneyIndexFetcher("")
	f.BaseURL = srv.URL

	s, err := f.FetchDaily("sh000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSecID != "1.000001" {
		t.Errorf("expected secid 1.000001, got %q", gotSecID)
	}
	if len(s) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(s))
	}
	last := s[len(s)-1]
	if last.Close != 3120.0 || last.High != 3130.0 || last.Low != 3095.0 {
		t.Errorf("unexpected last bar: %+v", last)
	}
}

func TestSecID(t *testing.T) {
	tests := []struct{ code, want string }{
		{"sh000001", "1.000001"},
		{"sz399006", "0.399006"},
		{"H30533", "H30533"},
	}
	for _, tt := range tests {
		if got := secID(tt.code); got != tt.want {
			t.Errorf("secID(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestEastmoneyIndexFetcher_UpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewEastmoneyIndexFetcher("")
	f.BaseURL = srv.URL
	if _, err := f.FetchDaily("sh000001"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestEastmoneyIndexFetcher_EmptyKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":null}`)
	}))
	defer srv.Close()

	f := NewEastmoneyIndexFetcher("")
	f.BaseURL = srv.URL
	if _, err := f.FetchDaily("sh000001"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable on empty payload, got %v", err)
	}
}

func TestHongKongIndexFetcher_StripsPrefixAndRenamesLatest(t *testing.T) {
	var gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		fmt.Fprintf(w, `[
			{"time":"%s","latest":"17000.5","high":"17100.0","low":"16900.0"},
			{"time":"%s","latest":"17100.0","high":"17200.0","low":"17000.0"}
		]`, recent(2), recent(1))
	}))
	defer srv.Close()

	f := NewHongKongIndexFetcher("")
	f.BaseURL = srv.URL

	s, err := f.FetchDaily("hkHSI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSymbol != "HSI" {
		t.Errorf("expected hk prefix stripped, got symbol %q", gotSymbol)
	}
	if len(s) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(s))
	}
	if s[1].Close != 17100.0 {
		t.Errorf("latest column not mapped to close: %+v", s[1])
	}
}

func TestSinaUSFetcher_SymbolAliases(t *testing.T) {
	tests := []struct{ code, want string }{
		{"gb.INX", ".INX"},
		{"gb.NDX", ".NDX"},
		{"gb.DJI", "DJI"},
	}
	for _, tt := range tests {
		if got := usSymbol(tt.code); got != tt.want {
			t.Errorf("usSymbol(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestSinaUSFetcher_FetchDaily(t *testing.T) {
	var gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		fmt.Fprintf(w, `[
			{"d":"%s","o":"4690.0","h":"4720.0","l":"4680.0","c":"4700.0"},
			{"d":"%s","o":"4700.0","h":"4735.0","l":"4695.0","c":"4730.0"}
		]`, recent(2), recent(1))
	}))
	defer srv.Close()

	f := NewSinaUSFetcher("")
	f.BaseURL = srv.URL

	s, err := f.FetchDaily("gb.INX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSymbol != ".INX" {
		t.Errorf("expected aliased symbol .INX, got %q", gotSymbol)
	}
	if len(s) != 2 || s[1].Close != 4730.0 {
		t.Errorf("unexpected series: %+v", s)
	}
}

func TestTushareFetcher_MissingToken(t *testing.T) {
	f := NewTushareFetcher("")
	if _, err := f.FetchDaily("H30533"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable without token, got %v", err)
	}
}

func TestTushareFetcher_FetchDaily(t *testing.T) {
	d1 := time.Now().AddDate(0, 0, -2).Format("20060102")
	d2 := time.Now().AddDate(0, 0, -1).Format("20060102")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Tushare serves rows newest-first.
		fmt.Fprintf(w, `{"code":0,"msg":"","data":{
			"fields":["trade_date","open","high","low","close"],
			"items":[
				["%s",6010.0,6060.0,5990.0,6050.0],
				["%s",6000.0,6040.0,5980.0,6020.0]
			]}}`, d2, d1)
	}))
	defer srv.Close()

	f := NewTushareFetcher("test-token")
	f.client.SetBaseURL(srv.URL)

	s, err := f.FetchDaily("H30533")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(s))
	}
	if !s[0].Date.Before(s[1].Date) {
		t.Error("expected ascending order after bespoke mapping")
	}
	if s[1].Close != 6050.0 || s[1].High != 6060.0 || s[1].Low != 5990.0 {
		t.Errorf("unexpected last bar: %+v", s[1])
	}
}

func TestTushareFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code":2002,"msg":"token invalid","data":null}`)
	}))
	defer srv.Close()

	f := NewTushareFetcher("bad-token")
	f.client.SetBaseURL(srv.URL)
	if _, err := f.FetchDaily("H30533"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable on api error, got %v", err)
	}
}

func TestFundProxyFetcher_FetchDaily(t *testing.T) {
	var gotFqt, gotSecID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFqt = r.URL.Query().Get("fqt")
		gotSecID = r.URL.Query().Get("secid")
		fmt.Fprintf(w, `{"data":{"code":"513050","name":"中概互联网ETF","klines":[
			"%s,1.40,1.42,1.43,1.39,5000,7000",
			"%s,1.42,1.45,1.46,1.41,5100,7100"
		]}}`, recent(2), recent(1))
	}))
	defer srv.Close()

	f := NewFundProxyFetcher()
	f.client.SetBaseURL(srv.URL)

	s, err := f.FetchDaily("H30533")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFqt != "1" {
		t.Errorf("expected forward-adjusted pricing (fqt=1), got %q", gotFqt)
	}
	if gotSecID != "1."+ProxyFundSymbol {
		t.Errorf("expected fund secid, got %q", gotSecID)
	}
	if len(s) != 2 || s[1].Close != 1.45 {
		t.Errorf("unexpected series: %+v", s)
	}
}
