package dashboard

import (
	"context"
	"errors"
	"sync"
)

// BroadcastHook fans out state events to in-process subscribers. Slow
// subscribers miss events rather than block the session.
type BroadcastHook struct {
	mu   sync.RWMutex
	subs map[int]chan StateEvent
	next int
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]chan StateEvent)}
}

// StateChanged satisfies StateHook and broadcasts the event.
func (h *BroadcastHook) StateChanged(_ context.Context, event StateEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of state events and a cancel func.
func (h *BroadcastHook) Subscribe() (<-chan StateEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan StateEvent, 16)
	h.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// StateHooks fans a single event out to several hooks, joining their errors.
type StateHooks []StateHook

// StateChanged implements StateHook.
func (hooks StateHooks) StateChanged(ctx context.Context, event StateEvent) error {
	var errs []error
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook.StateChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
