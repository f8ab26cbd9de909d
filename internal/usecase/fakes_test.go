package usecase

import (
	"context"
	"sync"
	"time"

	"ContentEnricher/internal/domain"
)

type saveCall struct {
	id     string
	patch  domain.Patch
	status domain.Status
}

type fakeRepo struct {
	mu       sync.Mutex
	items    map[string]domain.ContentItem
	saves    []saveCall
	statuses []domain.Status
	getErr   error
	saveErr  error
	stale    []string
	staleArg time.Time
}

func newFakeRepo(items ...domain.ContentItem) *fakeRepo {
	r := &fakeRepo{items: map[string]domain.ContentItem{}}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *fakeRepo) Get(_ context.Context, id string) (domain.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return domain.ContentItem{}, r.getErr
	}
	it, ok := r.items[id]
	if !ok {
		return domain.ContentItem{}, domain.ErrNotFound
	}
	return it, nil
}

func (r *fakeRepo) SaveEnrichment(_ context.Context, id string, patch domain.Patch, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves = append(r.saves, saveCall{id: id, patch: patch, status: status})
	it := patch.Apply(r.items[id])
	it.Status = status
	r.items[id] = it
	return nil
}

func (r *fakeRepo) SetStatus(_ context.Context, id string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.items[id]
	it.Status = status
	r.items[id] = it
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *fakeRepo) ListStale(_ context.Context, _ domain.Status, olderThan time.Time, _ int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staleArg = olderThan
	return r.stale, nil
}

func (r *fakeRepo) item(id string) domain.ContentItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

func (r *fakeRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []domain.ContentItem
	err     error
}

func (f *fakeIndexer) Index(_ context.Context, item domain.ContentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, item)
	return f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) PublishAlert(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context, wait time.Duration) (string, error) {
	q.mu.Lock()
	if len(q.ids) > 0 {
		id := q.ids[0]
		q.ids = q.ids[1:]
		q.mu.Unlock()
		return id, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return "", nil
	}
}

func (q *fakeQueue) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}
