package filegen

import (
	"sync"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped for it.
const subscriberBuffer = 16

// ProgressHub fans generation progress out to per-owner subscribers. It
// implements Notifier; Notify never blocks a generation worker, so a
// subscriber that stops draining loses events rather than stalling the job.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan domain.GenerationProgress]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: map[string]map[chan domain.GenerationProgress]struct{}{}}
}

// Subscribe registers for an owner's progress events. The returned cancel
// func must be called exactly once; it closes the channel.
func (h *ProgressHub) Subscribe(ownerID string) (<-chan domain.GenerationProgress, func()) {
	ch := make(chan domain.GenerationProgress, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[ownerID]
	if !ok {
		set = map[chan domain.GenerationProgress]struct{}{}
		h.subs[ownerID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[ownerID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, ownerID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// Notify delivers the event to every subscriber of the owner, dropping it
// for any whose buffer is full.
func (h *ProgressHub) Notify(ownerID string, progress domain.GenerationProgress) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ownerID] {
		select {
		case ch <- progress:
		default:
		}
	}
}
