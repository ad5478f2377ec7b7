package matching

import (
	"context"
	"sync"

	"github.com/gohye/tradematch/tradematch/database/models"
)

// fakeLedger serves fixed want/have lists from memory. Reverse lookups are
// derived from the same lists so tests only declare each fact once.
type fakeLedger struct {
	wants map[string][]*models.WantItem
	haves map[string][]*models.TradeableItem
	order []string // ListActiveTraders order, defaults to insertion-free sorted keys
	err   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		wants: make(map[string][]*models.WantItem),
		haves: make(map[string][]*models.TradeableItem),
	}
}

func (f *fakeLedger) addWant(userID string, cardID int64) {
	f.wants[userID] = append(f.wants[userID], &models.WantItem{
		UserID: userID,
		CardID: cardID,
		Active: true,
	})
	f.noteUser(userID)
}

func (f *fakeLedger) addHave(userID string, itemID, cardID int64) {
	f.haves[userID] = append(f.haves[userID], &models.TradeableItem{
		ID:       itemID,
		UserID:   userID,
		CardID:   cardID,
		Quantity: 1,
		Active:   true,
	})
	f.noteUser(userID)
}

func (f *fakeLedger) noteUser(userID string) {
	for _, id := range f.order {
		if id == userID {
			return
		}
	}
	f.order = append(f.order, userID)
}

func (f *fakeLedger) ListActiveWants(_ context.Context, userID string) ([]*models.WantItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.wants[userID], nil
}

func (f *fakeLedger) ListActiveHaves(_ context.Context, userID string) ([]*models.TradeableItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.haves[userID], nil
}

func (f *fakeLedger) ListUsersWantingCard(_ context.Context, cardID int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for userID, wants := range f.wants {
		for _, w := range wants {
			if w.CardID == cardID {
				out = append(out, userID)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeLedger) ListUsersHavingCard(_ context.Context, cardID int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for userID, haves := range f.haves {
		for _, h := range haves {
			if h.CardID == cardID {
				out = append(out, userID)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeLedger) ListActiveTraders(_ context.Context, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, userID := range f.order {
		if len(f.wants[userID]) > 0 && len(f.haves[userID]) > 0 {
			out = append(out, userID)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeValues prices cards from a fixed table; absent cards are unpriced.
type fakeValues struct {
	values map[int64]int64
	err    error
}

func (f *fakeValues) GetValue(_ context.Context, cardID int64) (int64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	v, ok := f.values[cardID]
	return v, ok, nil
}

// ctxValues prices cards like fakeValues but honors context cancellation the
// way a database-backed source does.
type ctxValues struct {
	values map[int64]int64
}

func (f *ctxValues) GetValue(ctx context.Context, cardID int64) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	v, ok := f.values[cardID]
	return v, ok, nil
}

// fakeRelationships blocks the listed unordered pairs.
type fakeRelationships struct {
	blocked map[[2]string]bool
}

func newFakeRelationships() *fakeRelationships {
	return &fakeRelationships{blocked: make(map[[2]string]bool)}
}

func (f *fakeRelationships) block(a, b string) {
	if b < a {
		a, b = b, a
	}
	f.blocked[[2]string{a, b}] = true
}

func (f *fakeRelationships) IsBlocked(_ context.Context, a, b string) (bool, error) {
	if b < a {
		a, b = b, a
	}
	return f.blocked[[2]string{a, b}], nil
}

// fakeNotifier records which matches were announced.
type fakeNotifier struct {
	mu         sync.Mutex
	direct     []*models.MatchCandidate
	triangular []*models.TriangularMatch
}

func (f *fakeNotifier) NotifyDirect(_ context.Context, m *models.MatchCandidate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, m)
}

func (f *fakeNotifier) NotifyTriangular(_ context.Context, m *models.TriangularMatch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triangular = append(f.triangular, m)
}

// fakeQueue is an in-memory EventQueue.
type fakeQueue struct {
	mu         sync.Mutex
	nextID     int64
	pending    map[int64]string
	processed  []int64
	failed     []int64
	enqueueErr error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{pending: make(map[int64]string)}
}

func (f *fakeQueue) Enqueue(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		return 0, f.enqueueErr
	}
	f.nextID++
	f.pending[f.nextID] = userID
	return f.nextID, nil
}

func (f *fakeQueue) ListPending(_ context.Context, limit int) ([]PendingInvalidation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []PendingInvalidation
	for id, userID := range f.pending {
		out = append(out, PendingInvalidation{EventID: id, UserID: userID})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeQueue) MarkProcessed(_ context.Context, eventID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, eventID)
	f.processed = append(f.processed, eventID)
	return nil
}

func (f *fakeQueue) MarkFailed(_ context.Context, eventID int64, _ error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, eventID)
	return nil
}

// failingStore wraps a MatchStore and fails InvalidateUser on demand.
type failingStore struct {
	MatchStore
	invalidateErr error
}

func (s *failingStore) InvalidateUser(ctx context.Context, userID string) (int, error) {
	if s.invalidateErr != nil {
		return 0, s.invalidateErr
	}
	return s.MatchStore.InvalidateUser(ctx, userID)
}
