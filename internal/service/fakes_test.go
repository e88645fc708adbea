package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
)

type fakeStudents struct {
	students []models.Student
	err      error
	calls    int
	mu       sync.Mutex
}

func (f *fakeStudents) ListActiveBySchool(context.Context, string) ([]models.Student, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.students, f.err
}

type fakeSubscriptions struct {
	byStudent map[string][]models.Subscription
	errs      map[string]error
}

func (f *fakeSubscriptions) ListByStudent(_ context.Context, studentID string) ([]models.Subscription, error) {
	if err := f.errs[studentID]; err != nil {
		return nil, err
	}
	return f.byStudent[studentID], nil
}

type fakePayments struct {
	byStudent map[string][]models.Payment
	errs      map[string]error
}

func (f *fakePayments) ListByStudent(_ context.Context, studentID string) ([]models.Payment, error) {
	if err := f.errs[studentID]; err != nil {
		return nil, err
	}
	return f.byStudent[studentID], nil
}

type fakeSubscriptionTransactions struct {
	bySubscription map[string][]models.Transaction
	errs           map[string]error
}

func (f *fakeSubscriptionTransactions) ListBySubscription(_ context.Context, subscriptionID string) ([]models.Transaction, error) {
	if err := f.errs[subscriptionID]; err != nil {
		return nil, err
	}
	return f.bySubscription[subscriptionID], nil
}

type fakeLessons struct {
	bySubscription map[string][]models.Lesson
	errs           map[string]error
}

func (f *fakeLessons) ListBySubscription(_ context.Context, subscriptionID string) ([]models.Lesson, error) {
	if err := f.errs[subscriptionID]; err != nil {
		return nil, err
	}
	return f.bySubscription[subscriptionID], nil
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	ttls  map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) DeleteByPattern(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string][]byte{}
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// cancellingSubscriptions cancels the request context before answering, as a
// client disconnecting mid-report would.
type cancellingSubscriptions struct {
	cancel context.CancelFunc
}

func (c cancellingSubscriptions) ListByStudent(ctx context.Context, _ string) ([]models.Subscription, error) {
	c.cancel()
	return nil, ctx.Err()
}
