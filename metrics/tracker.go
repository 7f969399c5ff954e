package metrics

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"taleweaver/logger"
	"taleweaver/text"
)

const (
	EventShown    = "rewrite_shown"
	EventAccepted = "rewrite_accepted"
	EventRejected = "rewrite_rejected"
)

type Event struct {
	EventType  string  `json:"event_type"`
	RevisionID string  `json:"revision_id"`
	Additions  int     `json:"additions"`
	Deletions  int     `json:"deletions"`
	Unchanged  int     `json:"unchanged"`
	Similarity float64 `json:"similarity"`
	Lifespan   *int64  `json:"lifespan"` // ms between shown and resolved; nil for shown events
	DeviceID   string  `json:"device_id"`
}

// RevisionMetrics describes one revision for tracking
type RevisionMetrics struct {
	ID         string
	Stats      text.DiffStats
	Similarity float64
	ShownAt    time.Time
}

// Tracker posts rewrite events to a metrics endpoint. Sending happens on a
// goroutine and never blocks the caller. A tracker without URL drops events.
type Tracker struct {
	url        string
	deviceID   string
	httpClient *http.Client
	wg         sync.WaitGroup
}

func NewTracker(url, dataDir string) *Tracker {
	return &Tracker{
		url:        url,
		deviceID:   loadOrCreateDeviceID(dataDir),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *Tracker) TrackShown(m *RevisionMetrics) {
	t.send(EventShown, m, nil)
}

func (t *Tracker) TrackAccepted(m *RevisionMetrics) {
	lifespan := time.Since(m.ShownAt).Milliseconds()
	t.send(EventAccepted, m, &lifespan)
}

func (t *Tracker) TrackRejected(m *RevisionMetrics) {
	lifespan := time.Since(m.ShownAt).Milliseconds()
	t.send(EventRejected, m, &lifespan)
}

// Wait blocks until every queued event has been sent or dropped
func (t *Tracker) Wait() {
	if t == nil {
		return
	}
	t.wg.Wait()
}

func (t *Tracker) event(eventType string, m *RevisionMetrics, lifespan *int64) *Event {
	return &Event{
		EventType:  eventType,
		RevisionID: m.ID,
		Additions:  m.Stats.Added,
		Deletions:  m.Stats.Removed,
		Unchanged:  m.Stats.Unchanged,
		Similarity: m.Similarity,
		Lifespan:   lifespan,
		DeviceID:   t.deviceID,
	}
}

func (t *Tracker) send(eventType string, m *RevisionMetrics, lifespan *int64) {
	if t == nil || t.url == "" {
		return
	}
	ev := t.event(eventType, m, lifespan)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		body, err := json.Marshal(ev)
		if err != nil {
			logger.Debug("metrics: marshal error: %v", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
		if err != nil {
			logger.Debug("metrics: create request error: %v", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := t.httpClient.Do(httpReq)
		if err != nil {
			logger.Debug("metrics: send error: %v", err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			logger.Debug("metrics: server returned %d for %s", resp.StatusCode, ev.EventType)
		} else {
			logger.Debug("metrics: sent %s (id=%s)", ev.EventType, ev.RevisionID)
		}
	}()
}

func loadOrCreateDeviceID(dataDir string) string {
	if dataDir == "" {
		return GenerateUUID()
	}

	idPath := filepath.Join(dataDir, "device_id")

	data, err := os.ReadFile(idPath)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := GenerateUUID()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Warn("metrics: could not create data dir %s: %v", dataDir, err)
		return id
	}
	if err := os.WriteFile(idPath, []byte(id), 0644); err != nil {
		logger.Warn("metrics: could not write device_id: %v", err)
	}
	return id
}

// GenerateUUID returns a random version 4 UUID
func GenerateUUID() string {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	uuid[6] = (uuid[6] & 0x0f) | 0x40 // version 4
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // variant 2
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:16])
}
