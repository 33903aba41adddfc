// Package memory provides an in-memory SavingsMirror for tests and for
// running the worker without spreadsheet credentials.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.MonthlySaving

	// FailWith, when set, is returned from every append. Lets tests
	// exercise the best-effort path.
	FailWith error
}

var _ ports.SavingsMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) AppendSnapshot(_ context.Context, s core.MonthlySaving) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.rows = append(m.rows, s)
	return nil
}

// Rows returns a copy of everything appended so far.
func (m *Mirror) Rows() []core.MonthlySaving {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.MonthlySaving(nil), m.rows...)
}
