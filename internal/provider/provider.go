package provider

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"IndexWatch/internal/model"
)

// LookbackYears is the trailing window kept after normalization.
const LookbackYears = 5

var (
	// ErrNoData means the upstream returned nothing usable, or every row was
	// filtered out during cleaning.
	ErrNoData = errors.New("no data")

	// ErrSourceUnavailable means the adapter itself failed: network error,
	// missing credential, or a malformed response.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// Fetcher defines the interface for fetching one index's normalized daily
// history. Implementations never panic; any upstream failure comes back as
// an ErrSourceUnavailable- or ErrNoData-wrapped error.
type Fetcher interface {
	FetchDaily(code string) (model.Series, error)
	Name() string
}

// newHTTPClient builds the shared client with a bounded timeout and optional
// proxy. Upstream calls without a deadline can hang a whole refresh sweep.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Series model.Series
	Err    error
	Calls  int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDaily(_ string) (model.Series, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Series, nil
}
