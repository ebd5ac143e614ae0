package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"IndexWatch/internal/config"
	"IndexWatch/internal/model"
	"IndexWatch/internal/provider"
	"IndexWatch/internal/recorder"
	"IndexWatch/internal/store"
)

// stubSource serves canned metrics per index name.
type stubSource struct {
	metrics   map[string]model.Metrics
	refreshed int
}

func (s *stubSource) GetMetrics(name, _ string) (model.Metrics, error) {
	m, ok := s.metrics[name]
	if !ok {
		return model.Metrics{}, provider.ErrNoData
	}
	return m, nil
}

func (s *stubSource) ForceRefresh() { s.refreshed++ }

func newTestServer(t *testing.T, src *stubSource) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Load(filepath.Join(t.TempDir(), "state.json"), []string{"上证指数", "中概互联"})
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	groups := []config.Group{{
		Name:    "核心宽基",
		Indices: []config.IndexEntry{{Name: "上证指数", Code: "sh000001"}},
	}}
	return NewServer(src, st, recorder.NewNoopRecorder(), groups), st
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, target, err)
		}
	}
	return w
}

func TestHandleMetrics_Available(t *testing.T) {
	src := &stubSource{metrics: map[string]model.Metrics{
		"上证指数": {
			Current:   3100,
			HighValue: 3700, HighDate: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
			LowValue: 2600, LowDate: time.Date(2022, 10, 31, 0, 0, 0, 0, time.UTC),
		},
	}}
	s, _ := newTestServer(t, src)

	var resp metricsResponse
	w := doJSON(t, s.Handler(), "GET", "/api/metrics?name=上证指数&code=sh000001", "", &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !resp.Available || resp.Metrics == nil {
		t.Fatalf("expected available metrics, got %+v", resp)
	}
	if resp.Metrics.Current != 3100 || resp.Metrics.HighDate != "2024-05-20" {
		t.Errorf("unexpected payload: %+v", resp.Metrics)
	}
}

func TestHandleMetrics_Unavailable(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{})

	var resp metricsResponse
	w := doJSON(t, s.Handler(), "GET", "/api/metrics?name=未知指数", "", &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("per-index failure must not be an HTTP error, got %d", w.Code)
	}
	if resp.Available || resp.Message == "" {
		t.Errorf("expected unavailable envelope with retry hint, got %+v", resp)
	}
}

func TestHandleRefresh(t *testing.T) {
	src := &stubSource{}
	s, _ := newTestServer(t, src)
	doJSON(t, s.Handler(), "POST", "/api/refresh", "", nil)
	if src.refreshed != 1 {
		t.Errorf("expected one force refresh, got %d", src.refreshed)
	}
}

func TestThresholdRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{})
	h := s.Handler()

	var got thresholdDTO
	doJSON(t, h, "GET", "/api/thresholds?name=上证指数", "", &got)
	if got.Support != store.DefaultSupport || got.Ceiling != store.DefaultCeiling {
		t.Errorf("expected defaults, got %+v", got)
	}

	w := doJSON(t, h, "PUT", "/api/thresholds", `{"name":"上证指数","support":3200,"ceiling":4200}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("set threshold: status %d", w.Code)
	}

	doJSON(t, h, "GET", "/api/thresholds?name=上证指数", "", &got)
	if got.Support != 3200 || got.Ceiling != 4200 {
		t.Errorf("threshold not persisted: %+v", got)
	}
}

func TestNoteLifecycle(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{})
	h := s.Handler()

	var notes []model.JournalEntry
	doJSON(t, h, "POST", "/api/notes", `{"name":"中概互联","date":"2026-08-29","content":"第一条"}`, &notes)
	doJSON(t, h, "POST", "/api/notes", `{"name":"中概互联","date":"2026-08-30","content":"第二条"}`, &notes)
	if len(notes) != 2 || notes[0].Content != "第二条" {
		t.Fatalf("expected newest-first journal, got %+v", notes)
	}

	doJSON(t, h, "PUT", "/api/notes", `{"name":"中概互联","index":0,"content":"改过的"}`, &notes)
	if notes[0].Content != "改过的" {
		t.Errorf("update not applied: %+v", notes)
	}

	doJSON(t, h, "DELETE", "/api/notes?name=中概互联&index=1", "", &notes)
	if len(notes) != 1 || notes[0].Content != "改过的" {
		t.Errorf("unexpected journal after delete: %+v", notes)
	}

	w := doJSON(t, h, "POST", "/api/notes", `{"name":"中概互联","date":"2026-08-30","content":"  "}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank content should be rejected, got %d", w.Code)
	}
}

// stubRecorder serves canned fetch history.
type stubRecorder struct {
	records []recorder.FetchRecord
}

func (r *stubRecorder) RecordFetch(_ *recorder.FetchRecord) error { return nil }
func (r *stubRecorder) Close() error                              { return nil }

func (r *stubRecorder) Recent(name string, _ int) ([]recorder.FetchRecord, error) {
	var out []recorder.FetchRecord
	for _, rec := range r.records {
		if rec.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestHandleHistory(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{})
	s.Rec = &stubRecorder{records: []recorder.FetchRecord{{
		Name:   "中概互联",
		Code:   "H30533",
		Source: "proxy",
		Metrics: model.Metrics{
			Current:   1.5,
			HighValue: 2.1, HighDate: time.Date(2021, 2, 18, 0, 0, 0, 0, time.UTC),
			LowValue: 0.9, LowDate: time.Date(2022, 10, 31, 0, 0, 0, 0, time.UTC),
			Source: "proxy",
		},
		FetchedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}}}
	h := s.Handler()

	var history []historyDTO
	w := doJSON(t, h, "GET", "/api/history?name=中概互联&limit=5", "", &history)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if len(history) != 1 {
		t.Fatalf("expected one record, got %d", len(history))
	}
	rec := history[0]
	if rec.FetchedAt != "2026-08-30 10:00:00" || rec.Source != "proxy" {
		t.Errorf("unexpected record envelope: %+v", rec)
	}
	if rec.Metrics == nil || rec.Metrics.Current != 1.5 || rec.Metrics.HighDate != "2021-02-18" {
		t.Errorf("unexpected metrics payload: %+v", rec.Metrics)
	}

	doJSON(t, h, "GET", "/api/history?name=上证指数", "", &history)
	if len(history) != 0 {
		t.Errorf("expected empty history for an unrecorded index, got %+v", history)
	}

	if w := doJSON(t, h, "GET", "/api/history", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing name should be rejected, got %d", w.Code)
	}
}

func TestHandleIndices(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{})

	var groups []groupDTO
	doJSON(t, s.Handler(), "GET", "/api/indices", "", &groups)
	if len(groups) != 1 || groups[0].Indices[0].Code != "sh000001" {
		t.Errorf("unexpected index listing: %+v", groups)
	}
}
