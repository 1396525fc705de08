package sheets

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MockSink implements Sink in memory for testing. Rows are kept per ref,
// header row included, and ordinals are derived exactly like the real sink.
type MockSink struct {
	mu      sync.Mutex
	rows    map[Ref][][]string
	failure error
	now     func() time.Time
}

// NewMockSink creates an empty MockSink.
func NewMockSink() *MockSink {
	return &MockSink{
		rows: make(map[Ref][][]string),
		now:  time.Now,
	}
}

// Append stores a row under the ref and returns its derived ordinal. The
// header row is written on the first append, matching the real sink's
// worksheet bootstrap.
func (m *MockSink) Append(ctx context.Context, ref Ref, rec Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return 0, m.failure
	}
	rows := m.rows[ref]
	if len(rows) == 0 {
		header := make([]string, len(Headers))
		copy(header, Headers)
		rows = append(rows, header)
	}
	ordinal := NextOrdinal(rows)
	m.rows[ref] = append(rows, RowValues(ordinal, rec, m.now()))
	return ordinal, nil
}

// Fail makes subsequent Append calls return err (nil to reset).
func (m *MockSink) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Rows returns a copy of the stored rows for a ref (header included).
func (m *MockSink) Rows(ref Ref) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.rows[ref]
	out := make([][]string, len(src))
	for i, r := range src {
		row := make([]string, len(r))
		copy(row, r)
		out[i] = row
	}
	return out
}

// LastOrdinal returns the ordinal of the last appended row for a ref, or 0.
func (m *MockSink) LastOrdinal(ref Ref) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[ref]
	if len(rows) <= 1 {
		return 0
	}
	last := rows[len(rows)-1]
	if len(last) == 0 {
		return 0
	}
	n, err := strconv.Atoi(last[0])
	if err != nil {
		return 0
	}
	return n
}

// Seed replaces the stored rows for a ref so tests can set up prior state.
func (m *MockSink) Seed(ref Ref, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[ref] = rows
}

var _ Sink = (*MockSink)(nil)
