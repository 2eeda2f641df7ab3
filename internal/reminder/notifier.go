package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ent0n29/deadliner/internal/protocol"
)

// WriterNotifier resolves every channel id to a writer that receives one JSON
// line per reminder. Used by the one-shot CLI cycle.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Channel(string) (Channel, bool) {
	if n == nil || n.w == nil {
		return nil, false
	}
	return n, true
}

func (n *WriterNotifier) SendReminder(_ context.Context, ev protocol.ReminderEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintf(n.w, "%s\n", raw); err != nil {
		return fmt.Errorf("write reminder: %w", err)
	}
	return nil
}
