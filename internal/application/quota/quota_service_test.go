package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/nutrifit/backend/internal/domain/quota"
	"github.com/nutrifit/backend/internal/infrastructure/config"
	infraquota "github.com/nutrifit/backend/internal/infrastructure/quota"
)

var testUser = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func newTestService(t *testing.T, now time.Time, opts ...ServiceOption) (*Service, *infraquota.InMemoryCounterStore) {
	t.Helper()

	advice, err := domain.NewQuotaType("ai_advice", 3, domain.ResetPeriodWeekly)
	require.NoError(t, err)
	export, err := domain.NewQuotaType("pdf_export", 10, domain.ResetPeriodDaily)
	require.NoError(t, err)
	registry, err := domain.NewRegistry(advice, export)
	require.NoError(t, err)

	store := infraquota.NewInMemoryCounterStore()
	t.Cleanup(func() { _ = store.Close() })

	opts = append([]ServiceOption{WithClock(func() time.Time { return now })}, opts...)
	return NewService(registry, store, opts...), store
}

func TestCheck_BeforeAnyConsume(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	usage, err := svc.Check(context.Background(), testUser, "pdf_export", "")
	require.NoError(t, err)

	assert.Equal(t, int64(0), usage.Used)
	assert.Equal(t, int64(10), usage.Remaining)
	assert.False(t, usage.Exceeded)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), usage.PeriodStart)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), usage.ResetsAt)
}

func TestConsume_DailyLimitScenario(t *testing.T) {
	// QuotaType{limit=10, period=DAILY}: ten single-unit consumes succeed,
	// the eleventh fails with the overshoot recorded
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		usage, err := svc.Consume(ctx, testUser, "pdf_export", 1, "")
		require.NoError(t, err, "consume %d should succeed", i)
		assert.Equal(t, int64(i), usage.Used)
	}

	usage, err := svc.Consume(ctx, testUser, "pdf_export", 1, "")
	require.Error(t, err)

	var exceeded *domain.QuotaExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, int64(11), exceeded.Usage.Used)
	assert.Equal(t, int64(0), exceeded.Usage.Remaining)
	assert.True(t, exceeded.Usage.Exceeded)
	assert.Equal(t, usage, exceeded.Usage)
}

func TestConsume_OvershootIsPersisted(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	// A bulk consume that blows straight past the limit still lands
	_, err := svc.Consume(ctx, testUser, "pdf_export", 12, "")
	require.Error(t, err)

	usage, err := svc.Check(ctx, testUser, "pdf_export", "")
	require.NoError(t, err)
	assert.Equal(t, int64(12), usage.Used)
}

func TestConsume_PeriodRollover(t *testing.T) {
	current := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	svc, _ := newTestService(t, time.Time{}, WithClock(clock))
	ctx := context.Background()

	usage, err := svc.Consume(ctx, testUser, "pdf_export", 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.Used)

	// Step past midnight: a fresh counter, not a reset of the old one
	mu.Lock()
	current = time.Date(2024, 3, 16, 0, 1, 0, 0, time.UTC)
	mu.Unlock()

	usage, err = svc.Consume(ctx, testUser, "pdf_export", 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.Used)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), usage.PeriodStart)
}

func TestReset_IsIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	_, err := svc.Consume(ctx, testUser, "pdf_export", 5, "")
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx, testUser, "pdf_export", ""))
	require.NoError(t, svc.Reset(ctx, testUser, "pdf_export", ""))

	usage, err := svc.Check(ctx, testUser, "pdf_export", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Used)
}

func TestCheckAll(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	_, err := svc.Consume(ctx, testUser, "ai_advice", 2, "")
	require.NoError(t, err)

	usages, err := svc.CheckAll(ctx, testUser, "")
	require.NoError(t, err)
	require.Len(t, usages, 2)
	assert.Equal(t, "ai_advice", usages[0].TypeKey)
	assert.Equal(t, int64(2), usages[0].Used)
	assert.Equal(t, "pdf_export", usages[1].TypeKey)
	assert.Equal(t, int64(0), usages[1].Used)
}

func TestConsume_UnknownType(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	_, err := svc.Consume(context.Background(), testUser, "teleport", 1, "")
	assert.Error(t, err)
}

func TestConsume_AmountBelowOne(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	_, err := svc.Consume(context.Background(), testUser, "pdf_export", 0, "")
	assert.Error(t, err)
}

func TestConsume_TimezoneChangesPeriodIdentity(t *testing.T) {
	// 23:30 UTC on the 15th is already the 16th in Tokyo, so the two
	// timezones address different daily counters
	now := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	usage, err := svc.Consume(ctx, testUser, "pdf_export", 1, "Asia/Tokyo")
	require.NoError(t, err)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, tokyo), usage.PeriodStart)

	usage, err = svc.Check(ctx, testUser, "pdf_export", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Used)
}

func TestConsume_UnknownTimezoneFallsBackToDefault(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	usage, err := svc.Consume(context.Background(), testUser, "pdf_export", 1, "Mars/Olympus")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), usage.PeriodStart)
}

// recordingCounterStore wraps a real store and records ExpireAt calls
type recordingCounterStore struct {
	domain.CounterStore
	mu        sync.Mutex
	expireLog []string
}

func (r *recordingCounterStore) ExpireAt(ctx context.Context, key string, at time.Time) error {
	r.mu.Lock()
	r.expireLog = append(r.expireLog, key)
	r.mu.Unlock()
	return r.CounterStore.ExpireAt(ctx, key, at)
}

func TestConsume_FirstWriterSetsExpiryExactlyOnce(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	registry, err := domain.NewRegistry(domain.QuotaType{Key: "pdf_export", FreeLimit: 100, ResetPeriod: domain.ResetPeriodDaily})
	require.NoError(t, err)

	inner := infraquota.NewInMemoryCounterStore()
	t.Cleanup(func() { _ = inner.Close() })
	store := &recordingCounterStore{CounterStore: inner}

	svc := NewService(registry, store, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, testUser, "pdf_export", 1, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.expireLog, 1)
}

// failingCounterStore simulates an unreachable backend
type failingCounterStore struct{}

var errDown = errors.New("connection refused")

func (failingCounterStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	return 0, errDown
}
func (failingCounterStore) Get(ctx context.Context, key string) (int64, error) { return 0, errDown }
func (failingCounterStore) ExpireAt(ctx context.Context, key string, at time.Time) error {
	return errDown
}
func (failingCounterStore) Del(ctx context.Context, key string) error { return errDown }

func TestUnavailableBackend_FailOpen(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	registry, err := domain.NewRegistry(domain.QuotaType{Key: "pdf_export", FreeLimit: 10, ResetPeriod: domain.ResetPeriodDaily})
	require.NoError(t, err)

	svc := NewService(registry, failingCounterStore{},
		WithClock(func() time.Time { return now }),
		WithUnavailablePolicy(config.PolicyFailOpen))
	ctx := context.Background()

	usage, err := svc.Check(ctx, testUser, "pdf_export", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Used)

	usage, err = svc.Consume(ctx, testUser, "pdf_export", 1, "")
	require.NoError(t, err)
	assert.False(t, usage.Exceeded)
}

func TestUnavailableBackend_FailClosed(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	registry, err := domain.NewRegistry(domain.QuotaType{Key: "pdf_export", FreeLimit: 10, ResetPeriod: domain.ResetPeriodDaily})
	require.NoError(t, err)

	svc := NewService(registry, failingCounterStore{},
		WithClock(func() time.Time { return now }),
		WithUnavailablePolicy(config.PolicyFailClosed))
	ctx := context.Background()

	var unavailable *domain.BackendUnavailableError

	_, err = svc.Check(ctx, testUser, "pdf_export", "")
	require.ErrorAs(t, err, &unavailable)

	_, err = svc.Consume(ctx, testUser, "pdf_export", 1, "")
	require.ErrorAs(t, err, &unavailable)

	err = svc.Reset(ctx, testUser, "pdf_export", "")
	require.ErrorAs(t, err, &unavailable)
}
