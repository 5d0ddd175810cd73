package service

import (
	"sync"

	"libris/internal/domain"
)

// ProgressTracker holds the progress of one document's ingestion runs.
// The pipeline is its only writer; any number of observers may read snapshots
// or subscribe to updates. It is safe for concurrent use.
type ProgressTracker struct {
	mu      sync.Mutex
	state   domain.IngestionProgress
	subs    map[int]chan domain.IngestionProgress
	nextSub int
}

// NewProgressTracker returns an idle tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		state: domain.IngestionProgress{Status: domain.IngestionStatusIdle},
		subs:  make(map[int]chan domain.IngestionProgress),
	}
}

// Snapshot returns the current progress.
func (t *ProgressTracker) Snapshot() domain.IngestionProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe returns a channel that always holds the latest progress. Updates
// coalesce: a slow reader skips intermediate states but never sees them out of
// order. The current state is delivered immediately. Calling the returned
// function closes the channel.
func (t *ProgressTracker) Subscribe() (<-chan domain.IngestionProgress, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	ch := make(chan domain.IngestionProgress, 1)
	ch <- t.state
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// Watchers returns the number of open subscriptions.
func (t *ProgressTracker) Watchers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Start begins a run over total pages. The tracker must be idle: a finished
// run has to be Reset first so observers see it return to idle.
func (t *ProgressTracker) Start(total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Status.IsActive() {
		return domain.ErrIngestionInProgress
	}
	if t.state.Status != domain.IngestionStatusIdle {
		return domain.ErrProgressNotReset
	}
	if total < 0 {
		total = 0
	}
	t.state = domain.IngestionProgress{Total: total, Status: domain.IngestionStatusRendering}
	t.publishLocked()
	return nil
}

// IncrementDone records one completed page. The status becomes done when every
// page has completed.
func (t *ProgressTracker) IncrementDone() domain.IngestionProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Status.IsActive() {
		return t.state
	}
	if t.state.Done < t.state.Total {
		t.state.Done++
	}
	if t.state.Done == t.state.Total {
		t.state.Status = domain.IngestionStatusDone
	}
	t.publishLocked()
	return t.state
}

// Complete marks an active run done once every page is accounted for. It covers
// documents with zero pages, which never increment.
func (t *ProgressTracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Status.IsActive() || t.state.Done != t.state.Total {
		return
	}
	t.state.Status = domain.IngestionStatusDone
	t.publishLocked()
}

// Fail moves a non-terminal run to error with msg.
func (t *ProgressTracker) Fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Status.CanAdvanceTo(domain.IngestionStatusError) {
		return
	}
	t.state.Status = domain.IngestionStatusError
	t.state.Error = msg
	t.publishLocked()
}

// Reset returns the tracker to idle. It fails while a run is in flight.
func (t *ProgressTracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Status.IsActive() {
		return domain.ErrIngestionInProgress
	}
	t.state = domain.IngestionProgress{Status: domain.IngestionStatusIdle}
	t.publishLocked()
	return nil
}

// publishLocked replaces whatever each subscriber has not read yet with the
// current state. Sends happen under mu, so they never block and stay ordered.
func (t *ProgressTracker) publishLocked() {
	for _, ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- t.state
	}
}
