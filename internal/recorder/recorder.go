package recorder

import (
	"time"

	"IndexWatch/internal/model"
)

// FetchRecord is one successful upstream fetch, kept for after-the-fact
// review of what each source reported.
type FetchRecord struct {
	Name      string
	Code      string
	Source    string
	Metrics   model.Metrics
	FetchedAt time.Time
}

// Recorder persists fetch history for analysis.
type Recorder interface {
	RecordFetch(rec *FetchRecord) error
	Recent(name string, limit int) ([]FetchRecord, error)
	Close() error
}
