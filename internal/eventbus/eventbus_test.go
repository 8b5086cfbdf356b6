package eventbus

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
)

type fakePublisher struct {
	mu   sync.Mutex
	subs []string
	data [][]byte
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, subject)
	f.data = append(f.data, data)
	return f.err
}

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestNATSSink_Publish(t *testing.T) {
	pub := &fakePublisher{}
	s := newNATSSink(pub, "orch.events.", quiet())
	s.Publish("run-1", orchestrator.Event{Event: orchestrator.EventPlan, RunID: "run-1", Payload: []string{"a", "b"}})

	if len(pub.subs) != 1 || pub.subs[0] != "orch.events.run-1.plan" {
		t.Fatalf("subjects = %v", pub.subs)
	}
	var got struct {
		Event   string   `json:"event"`
		RunID   string   `json:"run_id"`
		Payload []string `json:"payload"`
	}
	if err := json.Unmarshal(pub.data[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.Event != "plan" || got.RunID != "run-1" || len(got.Payload) != 2 {
		t.Errorf("message = %+v", got)
	}

	// Publish errors are logged, not propagated.
	pub.err = errors.New("no responders")
	s.Publish("run-1", orchestrator.Event{Event: orchestrator.EventRunStatus, RunID: "run-1"})
	if len(pub.subs) != 2 {
		t.Errorf("subjects = %v", pub.subs)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close without connection = %v", err)
	}
}

func TestWebhookSink_DeliversInOrder(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev struct {
			Event string `json:"event"`
		}
		json.NewDecoder(r.Body).Decode(&ev)
		mu.Lock()
		events = append(events, ev.Event)
		mu.Unlock()
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, time.Second, quiet())
	s.Publish("r", orchestrator.Event{Event: orchestrator.EventRunStatus, RunID: "r"})
	s.Publish("r", orchestrator.Event{Event: orchestrator.EventPlan, RunID: "r"})
	s.Publish("r", orchestrator.Event{Event: orchestrator.EventResult, RunID: "r"})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Runs still unwinding after shutdown may publish late events.
	s.Publish("r", orchestrator.Event{Event: orchestrator.EventFailure, RunID: "r"})

	mu.Lock()
	defer mu.Unlock()
	want := []string{"run_status", "plan", "result"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events = %v, want %v", events, want)
		}
	}
}
