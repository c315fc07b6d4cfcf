package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Backend, used by tests and single-node setups without a database.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]memoryDoc
	seq  int64
	now  func() time.Time
}

type memoryDoc struct {
	id   string
	seq  int64
	ts   time.Time
	data map[string]any
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string][]memoryDoc),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Insert implements Backend.
func (m *Memory) Insert(_ context.Context, collection string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now()
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data[FieldAnalysisTimestamp] = ts

	m.seq++
	doc := memoryDoc{id: uuid.NewString(), seq: m.seq, ts: ts, data: data}
	m.docs[collection] = append(m.docs[collection], doc)
	return doc.id, nil
}

// ListByUser implements Backend.
func (m *Memory) ListByUser(_ context.Context, collection, userID string) ([]Snapshot, error) {
	return m.query(collection,
		func(d memoryDoc) bool {
			v, _ := d.data[FieldUserID].(string)
			return v == userID
		},
		func(a, b memoryDoc) bool { return newer(a, b) },
	), nil
}

// ListByMinMatchScore implements Backend.
func (m *Memory) ListByMinMatchScore(_ context.Context, collection string, min float64) ([]Snapshot, error) {
	return m.query(collection,
		func(d memoryDoc) bool {
			score, ok := number(d.data[FieldMatchScore])
			return ok && score >= min
		},
		func(a, b memoryDoc) bool {
			sa, _ := number(a.data[FieldMatchScore])
			sb, _ := number(b.data[FieldMatchScore])
			if sa != sb {
				return sa > sb
			}
			return newer(a, b)
		},
	), nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) query(collection string, keep func(memoryDoc) bool, less func(a, b memoryDoc) bool) []Snapshot {
	m.mu.RLock()
	var matched []memoryDoc
	for _, d := range m.docs[collection] {
		if keep(d) {
			matched = append(matched, d)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	snaps := make([]Snapshot, 0, len(matched))
	for _, d := range matched {
		data := make(map[string]any, len(d.data))
		for k, v := range d.data {
			data[k] = v
		}
		snaps = append(snaps, Snapshot{ID: d.id, Data: data})
	}
	return snaps
}

// newer orders by timestamp, falling back to insertion order for equal timestamps.
func newer(a, b memoryDoc) bool {
	if !a.ts.Equal(b.ts) {
		return a.ts.After(b.ts)
	}
	return a.seq > b.seq
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
