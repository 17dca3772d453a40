package advice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nutrifit/backend/internal/infrastructure/cache"
)

var owner = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	fallback := cache.NewFallbackStore()
	t.Cleanup(func() { _ = fallback.Close() })

	entries := cache.NewEntryStore(nil, fallback)
	index := cache.NewNamespaceIndex(nil, fallback, zap.NewNop())
	indexed := cache.NewIndexedCache(entries, index)
	return NewGuard(indexed, 7*24*time.Hour)
}

func weekInputs() []SignatureInput {
	return []SignatureInput{
		{Name: "calorie_target", Value: decimal.NewFromInt(2100)},
		{Name: "protein_g", Value: decimal.NewFromFloat(140.5)},
		{Name: "weight_kg", Value: decimal.NewFromFloat(82.3)},
	}
}

func TestSignature_FieldOrderIndependent(t *testing.T) {
	a := []SignatureInput{
		{Name: "calorie_target", Value: decimal.NewFromInt(2100)},
		{Name: "weight_kg", Value: decimal.NewFromFloat(82.3)},
	}
	b := []SignatureInput{
		{Name: "weight_kg", Value: decimal.NewFromFloat(82.3)},
		{Name: "calorie_target", Value: decimal.NewFromInt(2100)},
	}

	assert.Equal(t, Signature(a), Signature(b))
}

func TestSignature_FixedPrecision(t *testing.T) {
	a := []SignatureInput{{Name: "weight_kg", Value: decimal.NewFromFloat(82.3)}}
	b := []SignatureInput{{Name: "weight_kg", Value: decimal.NewFromFloat(82.30)}}
	c := []SignatureInput{{Name: "weight_kg", Value: decimal.NewFromFloat(82.301)}}

	assert.Equal(t, Signature(a), Signature(b))
	// Differences beyond the stored precision round away
	assert.Equal(t, Signature(a), Signature(c))
}

func TestSignature_AnyInputChangesFingerprint(t *testing.T) {
	base := Signature(weekInputs())

	changed := weekInputs()
	changed[1].Value = decimal.NewFromFloat(141.0)

	assert.NotEqual(t, base, Signature(changed))
}

func TestResolve_SecondCallWithSameInputsHitsCache(t *testing.T) {
	guard := newTestGuard(t)
	ctx := context.Background()
	period := WeekKey(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	generations := 0
	generate := func(ctx context.Context) (string, error) {
		generations++
		return "eat more fiber", nil
	}

	text, cached, err := guard.Resolve(ctx, owner, period, weekInputs(), generate)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "eat more fiber", text)

	text, cached, err = guard.Resolve(ctx, owner, period, weekInputs(), generate)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "eat more fiber", text)
	assert.Equal(t, 1, generations)
}

func TestResolve_ChangedInputForcesRegeneration(t *testing.T) {
	guard := newTestGuard(t)
	ctx := context.Background()
	period := WeekKey(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	generations := 0
	generate := func(ctx context.Context) (string, error) {
		generations++
		return "advice v" + string(rune('0'+generations)), nil
	}

	_, _, err := guard.Resolve(ctx, owner, period, weekInputs(), generate)
	require.NoError(t, err)

	changed := weekInputs()
	changed[0].Value = decimal.NewFromInt(1800)

	text, cached, err := guard.Resolve(ctx, owner, period, changed, generate)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "advice v2", text)
	assert.Equal(t, 2, generations)
}

func TestInvalidate_ForcesRegenerationDespiteMatchingSignature(t *testing.T) {
	guard := newTestGuard(t)
	ctx := context.Background()
	period := WeekKey(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	generations := 0
	generate := func(ctx context.Context) (string, error) {
		generations++
		return "same advice", nil
	}

	_, _, err := guard.Resolve(ctx, owner, period, weekInputs(), generate)
	require.NoError(t, err)

	guard.Invalidate(ctx, owner)

	_, cached, err := guard.Resolve(ctx, owner, period, weekInputs(), generate)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, generations)
}

func TestInvalidatePeriod_DropsOnlyThatPeriod(t *testing.T) {
	guard := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.Store(ctx, owner, "2024-W11", Entry{Signature: "a", Advice: "x"}))
	require.NoError(t, guard.Store(ctx, owner, "2024-W12", Entry{Signature: "b", Advice: "y"}))

	guard.InvalidatePeriod(ctx, owner, "2024-W11")

	assert.Nil(t, guard.Lookup(ctx, owner, "2024-W11"))
	assert.NotNil(t, guard.Lookup(ctx, owner, "2024-W12"))
}

func TestWeekKey(t *testing.T) {
	assert.Equal(t, "2024-W11", WeekKey(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	// Jan 1st 2023 belongs to ISO week 52 of 2022
	assert.Equal(t, "2022-W52", WeekKey(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
}
