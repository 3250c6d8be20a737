package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/sheets"
)

var _ sheets.LedgerEventWriter = (*Writer)(nil)

// Writer keeps exported rows in memory. It stands in for the Google sheet
// when no spreadsheet is configured.
type Writer struct {
	mu   sync.Mutex
	rows [][]any
}

func NewWriter() *Writer {
	return &Writer{}
}

// AppendLedgerEvent stores the rendered row and returns a synthetic row reference.
func (w *Writer) AppendLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) (string, error) {
	row, err := sheets.LedgerRow(ev)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, row)
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Rows returns a copy of every appended row, oldest first.
func (w *Writer) Rows() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]any, len(w.rows))
	for i, r := range w.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
