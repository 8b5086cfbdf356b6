package orchestrator

import (
	"encoding/json"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/TheHaywire/solid-fortnight/internal/models"
)

// Event names published while a run progresses.
const (
	EventRunStatus     = "run_status"
	EventPlan          = "plan"
	EventSubtaskStatus = "subtask_status"
	EventResult        = "result"
	EventFailure       = "failure"
	EventWarning       = "warning"
	EventToken         = "token"
)

// Event is a generic SSE payload wrapper.
type Event struct {
	Event   string      `json:"event"`
	RunID   string      `json:"run_id"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventSink receives every event published for a run. Publish must not block.
type EventSink interface {
	Publish(runID string, ev Event)
}

type subscriber chan []byte

// Hub fans events out to per-run SSE subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[subscriber]struct{} // runID -> set of subscribers

	tokMu   sync.Mutex
	tokBuf  map[string]map[string]string // runID -> subtask -> buffered chunk(s)
	tokTick map[string]chan struct{}     // runID -> stop channel
}

func NewHub() *Hub { return &Hub{subs: map[string]map[subscriber]struct{}{}} }

func (h *Hub) Subscribe(runID string) (<-chan []byte, func()) {
	ch := make(subscriber, 16)
	h.mu.Lock()
	set := h.subs[runID]
	if set == nil {
		set = map[subscriber]struct{}{}
		h.subs[runID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[runID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, runID)
				}
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

func (h *Hub) Publish(runID string, ev Event) {
	b, _ := json.Marshal(ev)
	h.mu.RLock()
	for ch := range h.subs[runID] {
		// non-blocking send
		select {
		case ch <- b:
		default:
		}
	}
	h.mu.RUnlock()
}

// TokenAppender returns a function to buffer generator output per subtask for a
// run and periodically flush it as coalesced token events (100ms cadence).
func (h *Hub) TokenAppender(runID string) func(subtask, chunk string) {
	h.tokMu.Lock()
	if h.tokBuf == nil {
		h.tokBuf = map[string]map[string]string{}
	}
	if h.tokTick == nil {
		h.tokTick = map[string]chan struct{}{}
	}
	if _, ok := h.tokBuf[runID]; !ok {
		h.tokBuf[runID] = map[string]string{}
	}
	if _, ok := h.tokTick[runID]; !ok {
		stop := make(chan struct{})
		h.tokTick[runID] = stop
		go h.flushLoop(runID, stop)
	}
	h.tokMu.Unlock()
	return func(subtask, chunk string) {
		if chunk == "" {
			return
		}
		h.tokMu.Lock()
		if _, ok := h.tokBuf[runID]; !ok {
			h.tokBuf[runID] = map[string]string{}
		}
		h.tokBuf[runID][subtask] += chunk
		h.tokMu.Unlock()
	}
}

func (h *Hub) flushLoop(runID string, stop <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.flush(runID, h.drain(runID, false))
		}
	}
}

// drain empties the buffer for a run; with remove it also forgets the run.
func (h *Hub) drain(runID string, remove bool) map[string]string {
	h.tokMu.Lock()
	defer h.tokMu.Unlock()
	buf := h.tokBuf[runID]
	out := make(map[string]string, len(buf))
	for k, s := range buf {
		if s != "" {
			out[k] = s
		}
		delete(buf, k)
	}
	if remove {
		delete(h.tokBuf, runID)
		if ch, ok := h.tokTick[runID]; ok {
			close(ch)
			delete(h.tokTick, runID)
		}
	}
	return out
}

func (h *Hub) flush(runID string, payloads map[string]string) {
	for subtask, chunk := range payloads {
		h.Publish(runID, Event{Event: EventToken, RunID: runID, Payload: map[string]any{"subtask": subtask, "chunk": chunk}})
	}
}

// StopTokenAppender stops the coalescer for a run and flushes remaining chunks.
func (h *Hub) StopTokenAppender(runID string) {
	h.flush(runID, h.drain(runID, true))
}

const defaultPreviewMaxBytes = 20000

// clip returns the longest prefix of s that fits in max bytes without
// splitting a UTF-8 sequence.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// previewResult is the result event payload; the artifact is truncated to max bytes.
func previewResult(res *models.SubtaskResult, max int) map[string]any {
	if max <= 0 {
		max = defaultPreviewMaxBytes
	}
	preview := res.Artifact
	size := len(preview)
	out := map[string]any{
		"subtask":     res.Subtask,
		"depth":       res.Depth,
		"attempts":    res.Attempts,
		"regenerated": res.Regenerated,
		"bytes_total": size,
	}
	if size > max {
		preview = clip(preview, max)
		out["preview_truncated"] = true
	}
	out["artifact"] = preview
	return out
}
