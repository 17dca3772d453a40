package advice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nutrifit/backend/internal/infrastructure/cache"
)

// Region is the cache region advice entries live in
const Region = "advice"

// Entry is a cached advice artifact together with the fingerprint of the
// inputs that produced it. The fingerprint makes "is this still valid for
// today's inputs" an O(1) string compare instead of a regeneration.
type Entry struct {
	Signature   string    `json:"signature"`
	Advice      string    `json:"advice"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Generator produces a fresh advice artifact from current inputs. It is
// the expensive call the guard exists to avoid.
type Generator func(ctx context.Context) (string, error)

// Guard caches generated advice keyed by owner and calendar period, and
// reuses a cached artifact whenever the input fingerprint still matches.
type Guard struct {
	store  *cache.TypedStore[Entry]
	logger *zap.Logger
	now    func() time.Time
}

// GuardOption is a functional option for configuring the guard
type GuardOption func(*Guard)

// WithGuardLogger sets the logger for the guard
func WithGuardLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithGuardClock overrides the wall clock, used by tests
func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		g.now = now
	}
}

// NewGuard creates a signature guard over the given cache with the given
// default TTL for advice entries
func NewGuard(indexed *cache.IndexedCache, ttl time.Duration, opts ...GuardOption) *Guard {
	g := &Guard{
		store:  cache.NewTypedStore[Entry](indexed, Region, ttl),
		logger: zap.NewNop(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// WeekKey renders the ISO week containing t, e.g. "2024-W11". Weekly advice
// partitions by this key so a new week naturally starts a fresh entry.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Lookup returns the cached entry for (owner, period), or nil
func (g *Guard) Lookup(ctx context.Context, owner uuid.UUID, period string) *Entry {
	return g.store.Get(ctx, owner.String(), period)
}

// Store caches a freshly generated entry for (owner, period)
func (g *Guard) Store(ctx context.Context, owner uuid.UUID, period string, entry Entry) error {
	return g.store.Put(ctx, owner.String(), period, entry)
}

// Refresh extends the life of a still-valid entry without marking it as a
// new computation
func (g *Guard) Refresh(ctx context.Context, owner uuid.UUID, period string, entry Entry) error {
	return g.store.Refresh(ctx, owner.String(), period, entry)
}

// Invalidate drops every cached period for the owner. Used when upstream
// data changes in a way that must force regeneration even if the
// signature would coincide, e.g. an edited profile.
func (g *Guard) Invalidate(ctx context.Context, owner uuid.UUID) {
	g.store.Invalidate(ctx, owner.String())
}

// InvalidatePeriod drops one cached period for the owner
func (g *Guard) InvalidatePeriod(ctx context.Context, owner uuid.UUID, period string) {
	g.store.InvalidateVariant(ctx, owner.String(), period)
}

// Resolve runs the consumer protocol in one call: compute the signature of
// the current inputs, reuse the cached artifact when the fingerprint
// matches (refreshing its TTL), otherwise invoke generate and cache the
// result. Returns the advice text and whether it came from the cache.
func (g *Guard) Resolve(ctx context.Context, owner uuid.UUID, period string, inputs []SignatureInput, generate Generator) (string, bool, error) {
	sig := Signature(inputs)

	if cached := g.Lookup(ctx, owner, period); cached != nil && cached.Signature == sig {
		if err := g.Refresh(ctx, owner, period, *cached); err != nil {
			g.logger.Warn("failed to refresh advice entry",
				zap.String("owner", owner.String()), zap.String("period", period), zap.Error(err))
		}
		return cached.Advice, true, nil
	}

	generated, err := generate(ctx)
	if err != nil {
		return "", false, err
	}

	entry := Entry{
		Signature:   sig,
		Advice:      generated,
		GeneratedAt: g.now(),
	}
	if err := g.Store(ctx, owner, period, entry); err != nil {
		g.logger.Warn("failed to cache generated advice",
			zap.String("owner", owner.String()), zap.String("period", period), zap.Error(err))
	}
	return generated, false, nil
}
