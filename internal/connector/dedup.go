package connector

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// requestDeduplicator suppresses duplicate open requests. Frame scripts
// can emit the same intent more than once (re-dispatched click handlers,
// auxclick following click); requests are fingerprinted by url, frame,
// disposition and a 100ms-coarsened timestamp, and explicit request IDs
// are honored when the frame supplies them.
type requestDeduplicator struct {
	mu              sync.Mutex
	recent          map[string]int64 // fingerprint -> unix millis
	requestIDs      map[string]bool
	debounceWindow  time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
}

func newRequestDeduplicator() *requestDeduplicator {
	return &requestDeduplicator{
		recent:          make(map[string]int64),
		requestIDs:      make(map[string]bool),
		debounceWindow:  200 * time.Millisecond,
		cleanupInterval: 5 * time.Second,
		lastCleanup:     time.Now(),
		now:             time.Now,
	}
}

func (d *requestDeduplicator) fingerprint(frameName string, req OpenRequestPayload, ts int64) string {
	data := fmt.Sprintf("%s:%s:%s:%d", req.URL, frameName, req.Disposition, ts/100)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum[:8])
}

// isDuplicate records the request and reports whether an equivalent one
// was already seen inside the debounce window, with a reason for logging.
func (d *requestDeduplicator) isDuplicate(frameName string, req OpenRequestPayload) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.now().Sub(d.lastCleanup) > d.cleanupInterval {
		d.cleanup()
	}

	if req.RequestID != "" && d.requestIDs[req.RequestID] {
		return true, fmt.Sprintf("request id %s already handled", req.RequestID)
	}

	ts := req.Timestamp
	if ts == 0 {
		ts = d.now().UnixMilli()
	}

	fp := d.fingerprint(frameName, req, ts)
	if seen, ok := d.recent[fp]; ok {
		if diff := time.Duration(ts-seen) * time.Millisecond; diff < d.debounceWindow {
			return true, fmt.Sprintf("fingerprint repeated within %v", diff)
		}
	}

	d.recent[fp] = ts
	if req.RequestID != "" {
		d.requestIDs[req.RequestID] = true
	}
	return false, ""
}

func (d *requestDeduplicator) cleanup() {
	cutoff := d.now().UnixMilli() - 3*d.debounceWindow.Milliseconds()
	for fp, ts := range d.recent {
		if ts < cutoff {
			delete(d.recent, fp)
		}
	}
	if len(d.requestIDs) > 100 {
		d.requestIDs = make(map[string]bool)
	}
	d.lastCleanup = d.now()
}
