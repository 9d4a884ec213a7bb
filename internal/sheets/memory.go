package sheets

import (
	"context"
	"sync"

	"github.com/paterrx/planilhador-telegram/internal/model"
)

// MemoryStore is an in-memory ground truth used by tests and dry runs.
type MemoryStore struct {
	ReadErr    error
	AppendErr  error
	header     []string
	rows       [][]string
	records    []model.Record
	AppendCall int
	mu         sync.Mutex
}

// NewMemoryStore returns a store whose tab holds header and rows. A nil
// header starts with the default header.
func NewMemoryStore(header []string, rows ...[]string) *MemoryStore {
	if header == nil {
		header = model.Header
	}
	m := &MemoryStore{header: append([]string(nil), header...)}
	for _, r := range rows {
		m.rows = append(m.rows, append([]string(nil), r...))
	}
	return m
}

// ReadAll returns a copy of the tab, header first.
func (m *MemoryStore) ReadAll(_ context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := make([][]string, 0, len(m.rows)+1)
	out = append(out, append([]string(nil), m.header...))
	for _, r := range m.rows {
		out = append(out, append([]string(nil), r...))
	}
	return out, nil
}

// Append lays rec out by the tab header and stores it.
func (m *MemoryStore) Append(_ context.Context, rec model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendCall++
	if m.AppendErr != nil {
		return m.AppendErr
	}
	values := rec.Row(m.header)
	row := make([]string, len(values))
	for i, v := range values {
		row[i], _ = v.(string)
	}
	m.rows = append(m.rows, row)
	m.records = append(m.records, rec)
	return nil
}

// SetRows replaces the data rows, keeping the header.
func (m *MemoryStore) SetRows(rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = nil
	for _, r := range rows {
		m.rows = append(m.rows, append([]string(nil), r...))
	}
}

// Records returns a copy of the appended records.
func (m *MemoryStore) Records() []model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Record(nil), m.records...)
}

// Header returns the tab header.
func (m *MemoryStore) Header() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.header...)
}
