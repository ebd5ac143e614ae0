package model

// JournalEntry is one freeform note attached to an index. Date is kept as an
// ISO "2006-01-02" string so a plain descending string sort orders entries
// newest-first.
type JournalEntry struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

// Threshold holds the user-defined comparison levels for one index.
type Threshold struct {
	Support float64 `json:"support"`
	Ceiling float64 `json:"ceiling"`
}
