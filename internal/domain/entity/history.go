package entity

import "time"

// HistoryEntry represents a URL visited inside a pane. Visits are recorded
// from navigation reports; the composed layout itself is never persisted.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	FaviconURL  string    `json:"favicon_url"`
	VisitCount  int64     `json:"visit_count"`
	LastVisited time.Time `json:"last_visited"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewHistoryEntry creates a new history entry for a URL.
func NewHistoryEntry(url, title string) *HistoryEntry {
	now := time.Now()
	return &HistoryEntry{
		URL:         url,
		Title:       title,
		VisitCount:  1,
		LastVisited: now,
		CreatedAt:   now,
	}
}

// IncrementVisit updates the entry for a new visit.
func (h *HistoryEntry) IncrementVisit() {
	h.VisitCount++
	h.LastVisited = time.Now()
}

// FaviconRecord caches a resolved favicon URL for a host.
type FaviconRecord struct {
	Host      string    `json:"host"`
	IconURL   string    `json:"icon_url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Expired reports whether the record is older than ttl.
func (f *FaviconRecord) Expired(ttl time.Duration) bool {
	return time.Since(f.FetchedAt) > ttl
}
