// Package memory persists completed subtask results across runs.
//
// The whole mapping is loaded once per run and rewritten in full after every
// completed subtask. Keys are subtask descriptions; writes are last-write-wins
// with no versioning.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TheHaywire/solid-fortnight/internal/models"
)

// Store is the Load/Save pair the engine depends on.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Record is the persisted shape of a SubtaskResult.
type Record struct {
	Artifact      string                   `json:"code"`
	Validation    models.ValidationOutcome `json:"test_results"`
	Review        *models.ReviewOutcome    `json:"review,omitempty"`
	Documentation string                   `json:"docs"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// RecordFrom converts a completed result into its persisted form.
func RecordFrom(res *models.SubtaskResult) Record {
	rec := Record{
		Artifact:      res.Artifact,
		Validation:    res.Validation,
		Documentation: res.Documentation,
		UpdatedAt:     res.CompletedAt,
	}
	if res.Review != nil {
		rv := *res.Review
		rec.Review = &rv
	}
	return rec
}

// Snapshot is an insertion-ordered mapping of subtask -> Record.
// It is not safe for concurrent use; see Locked.
type Snapshot struct {
	keys    []string
	records map[string]Record
}

func NewSnapshot() *Snapshot {
	return &Snapshot{records: map[string]Record{}}
}

func (s *Snapshot) Len() int { return len(s.keys) }

// Keys returns the subtasks in insertion order.
func (s *Snapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s *Snapshot) Get(subtask string) (Record, bool) {
	r, ok := s.records[subtask]
	return r, ok
}

// Put stores rec under subtask. An existing key keeps its position.
func (s *Snapshot) Put(subtask string, rec Record) {
	if s.records == nil {
		s.records = map[string]Record{}
	}
	if _, ok := s.records[subtask]; !ok {
		s.keys = append(s.keys, subtask)
	}
	s.records[subtask] = rec
}

// Clone returns a deep-enough copy for handing to a writer outside a lock.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{keys: s.Keys(), records: make(map[string]Record, len(s.records))}
	for k, v := range s.records {
		if v.Review != nil {
			rv := *v.Review
			v.Review = &rv
		}
		out.records[k] = v
	}
	return out
}

// MarshalJSON writes a JSON object whose member order follows insertion order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.records[k])
		if err != nil {
			return nil, fmt.Errorf("marshal record %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the document's member order.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("memory: expected object, got %v", tok)
	}
	*s = Snapshot{records: map[string]Record{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("memory: expected key, got %v", tok)
		}
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("memory: decode %q: %w", key, err)
		}
		s.Put(key, rec)
	}
	_, err = dec.Token()
	return err
}
