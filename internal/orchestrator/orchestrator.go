// Package orchestrator routes metrics requests to the right provider chain
// and owns the fallback, caching, and recording policy around adapters.
package orchestrator

import (
	"fmt"
	"log"
	"time"

	"IndexWatch/internal/cache"
	"IndexWatch/internal/metrics"
	"IndexWatch/internal/model"
	"IndexWatch/internal/provider"
	"IndexWatch/internal/recorder"
)

// Source labels attached to cross-border metrics so the UI can show which
// provider in the fallback chain produced them.
const (
	SourceOfficial = "official"
	SourceProxy    = "proxy"
)

// Orchestrator turns (index name, index code) into Metrics or a no-data
// failure. Adapter errors never escape; they are logged and absorbed by the
// fallback chain.
type Orchestrator struct {
	domestic provider.Fetcher
	hongkong provider.Fetcher
	us       provider.Fetcher
	// official is nil when the credential is absent; the fallback decision is
	// made at construction, not rediscovered per fetch.
	official provider.Fetcher
	proxy    provider.Fetcher

	byName map[string]model.IndexDescriptor
	cache  *cache.Cache
	rec    recorder.Recorder
}

// Adapters bundles the provider chain for construction.
type Adapters struct {
	Domestic provider.Fetcher
	HongKong provider.Fetcher
	US       provider.Fetcher
	Official provider.Fetcher // leave nil to disable the official source
	Proxy    provider.Fetcher
}

// New creates an Orchestrator over the configured descriptors.
func New(descriptors []model.IndexDescriptor, a Adapters, c *cache.Cache, rec recorder.Recorder) *Orchestrator {
	byName := make(map[string]model.IndexDescriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Orchestrator{
		domestic: a.Domestic,
		hongkong: a.HongKong,
		us:       a.US,
		official: a.Official,
		proxy:    a.Proxy,
		byName:   byName,
		cache:    c,
		rec:      rec,
	}
}

// GetMetrics returns the summary metrics for one index, cached for the TTL
// window. All failures collapse into provider.ErrNoData; the caller renders
// that as "data unavailable, try refreshing".
func (o *Orchestrator) GetMetrics(name, code string) (model.Metrics, error) {
	key := name + "|" + code
	if m, ok := o.cache.Get(key); ok {
		return m, nil
	}

	m, err := o.fetch(name, code)
	if err != nil {
		log.Printf("[WARN] fetch %s (%s): %v", name, code, err)
		return model.Metrics{}, fmt.Errorf("%s: %w", name, provider.ErrNoData)
	}

	o.cache.Set(key, m)
	o.record(name, code, m)
	return m, nil
}

// ForceRefresh drops every cached entry so the next request re-fetches.
func (o *Orchestrator) ForceRefresh() {
	o.cache.Clear()
}

func (o *Orchestrator) fetch(name, code string) (model.Metrics, error) {
	category := model.Classify(name, code)
	if d, ok := o.byName[name]; ok {
		category = d.Category
	}

	if category == model.CategoryCrossBorder {
		return o.fetchCrossBorder(code)
	}

	var f provider.Fetcher
	switch category {
	case model.CategoryHongKong:
		f = o.hongkong
	case model.CategoryUS:
		f = o.us
	default:
		f = o.domestic
	}

	series, err := f.FetchDaily(code)
	if err != nil {
		return model.Metrics{}, err
	}
	return metrics.Extract(series)
}

// fetchCrossBorder tries the official source first and falls back to the
// tracking-fund proxy. Both results are tagged so the substitution is
// visible to the user.
func (o *Orchestrator) fetchCrossBorder(code string) (model.Metrics, error) {
	if o.official != nil {
		series, err := o.official.FetchDaily(code)
		if err == nil {
			if m, err := metrics.Extract(series); err == nil {
				m.Source = SourceOfficial
				return m, nil
			}
		} else {
			log.Printf("[WARN] official source failed, falling back to proxy: %v", err)
		}
	}

	if o.proxy == nil {
		return model.Metrics{}, fmt.Errorf("cross-border: no source configured: %w", provider.ErrNoData)
	}
	series, err := o.proxy.FetchDaily(code)
	if err != nil {
		return model.Metrics{}, err
	}
	m, err := metrics.Extract(series)
	if err != nil {
		return model.Metrics{}, err
	}
	m.Source = SourceProxy
	return m, nil
}

func (o *Orchestrator) record(name, code string, m model.Metrics) {
	err := o.rec.RecordFetch(&recorder.FetchRecord{
		Name:      name,
		Code:      code,
		Source:    m.Source,
		Metrics:   m,
		FetchedAt: time.Now(),
	})
	if err != nil {
		log.Printf("[WARN] record fetch %s: %v", name, err)
	}
}
