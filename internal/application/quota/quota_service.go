package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/nutrifit/backend/internal/domain/quota"
	"github.com/nutrifit/backend/internal/domain/shared"
	"github.com/nutrifit/backend/internal/infrastructure/config"
)

// Service tracks per-user, per-feature usage against calendar-aligned
// allowances. There is no scheduled reset: each period addresses a fresh
// counter key, and the previous period's counter dies by backend TTL.
type Service struct {
	registry *domain.Registry
	counters domain.CounterStore
	logger   *zap.Logger

	safetyBuffer time.Duration
	policy       config.UnavailablePolicy
	defaultLoc   *time.Location
	now          func() time.Time
}

// ServiceOption is a functional option for configuring the service
type ServiceOption func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the wall clock, used by tests to pin "now"
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithUnavailablePolicy sets what happens when the counter backend is
// unreachable: fail-open treats usage as zero, fail-closed rejects the
// gated operation
func WithUnavailablePolicy(policy config.UnavailablePolicy) ServiceOption {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithSafetyBuffer sets the slack added to counter TTLs past period end
func WithSafetyBuffer(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.safetyBuffer = d
	}
}

// WithDefaultLocation sets the timezone used when a caller sends none
func WithDefaultLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.defaultLoc = loc
		}
	}
}

// NewService creates a quota service over the given type registry and
// counter store
func NewService(registry *domain.Registry, counters domain.CounterStore, opts ...ServiceOption) *Service {
	s := &Service{
		registry:     registry,
		counters:     counters,
		logger:       zap.NewNop(),
		safetyBuffer: time.Hour,
		policy:       config.PolicyFailOpen,
		defaultLoc:   time.UTC,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Check returns the user's current position against one quota without any
// side effects. An absent counter reads as zero usage.
func (s *Service) Check(ctx context.Context, userID uuid.UUID, typeKey, timezone string) (domain.QuotaUsage, error) {
	t, err := s.resolveType(typeKey)
	if err != nil {
		return domain.QuotaUsage{}, err
	}
	loc := s.resolveLocation(timezone)
	start, end := t.ResetPeriod.PeriodBounds(s.now(), loc)

	used, err := s.counters.Get(ctx, domain.CounterKey(userID, t, start))
	if err != nil {
		usage, perr := s.applyUnavailablePolicy("check", t, start, end, err)
		return usage, perr
	}

	return domain.NewQuotaUsage(t, used, start, end), nil
}

// Consume atomically charges amount units against the user's quota and
// returns the resulting snapshot. The increment is persisted even when it
// pushes usage past the limit: admission is approximate by design, two
// racing consumers may both land or both bounce, and the overshoot is
// bounded by amount-1. The call whose increment lands the counter exactly
// at amount is the period's first writer and alone sets the key's expiry;
// the backend's atomic increment guarantees that total is seen once.
func (s *Service) Consume(ctx context.Context, userID uuid.UUID, typeKey string, amount int64, timezone string) (domain.QuotaUsage, error) {
	if amount < 1 {
		return domain.QuotaUsage{}, shared.NewDomainError("INVALID_AMOUNT", "Consume amount must be at least 1")
	}

	t, err := s.resolveType(typeKey)
	if err != nil {
		return domain.QuotaUsage{}, err
	}
	loc := s.resolveLocation(timezone)
	now := s.now()
	start, end := t.ResetPeriod.PeriodBounds(now, loc)
	key := domain.CounterKey(userID, t, start)

	newTotal, err := s.counters.IncrBy(ctx, key, amount)
	if err != nil {
		usage, perr := s.applyUnavailablePolicy("consume", t, start, end, err)
		return usage, perr
	}

	if newTotal == amount {
		expiry := end.Add(s.safetyBuffer)
		if err := s.counters.ExpireAt(ctx, key, expiry); err != nil {
			// The counter still rolls over by key identity; a missing TTL
			// only delays reclamation of the dead key.
			s.logger.Warn("failed to set quota counter expiry",
				zap.String("key", key), zap.Time("expiry", expiry), zap.Error(err))
		}
	}

	usage := domain.NewQuotaUsage(t, newTotal, start, end)
	if newTotal > t.FreeLimit {
		s.logger.Info("quota exceeded",
			zap.String("user_id", userID.String()),
			zap.String("quota_type", t.Key),
			zap.Int64("used", usage.Used),
			zap.Int64("limit", usage.Limit))
		return usage, domain.NewQuotaExceededError(usage)
	}
	return usage, nil
}

// Reset deletes the user's counter for the current period. Admin and
// testing operation; idempotent.
func (s *Service) Reset(ctx context.Context, userID uuid.UUID, typeKey, timezone string) error {
	t, err := s.resolveType(typeKey)
	if err != nil {
		return err
	}
	loc := s.resolveLocation(timezone)
	start, _ := t.ResetPeriod.PeriodBounds(s.now(), loc)

	if err := s.counters.Del(ctx, domain.CounterKey(userID, t, start)); err != nil {
		return &domain.BackendUnavailableError{Op: "reset", Err: err}
	}
	return nil
}

// CheckAll fans Check out across every configured quota type, in
// declaration order
func (s *Service) CheckAll(ctx context.Context, userID uuid.UUID, timezone string) ([]domain.QuotaUsage, error) {
	types := s.registry.All()
	usages := make([]domain.QuotaUsage, 0, len(types))
	for _, t := range types {
		usage, err := s.Check(ctx, userID, t.Key, timezone)
		if err != nil {
			return nil, err
		}
		usages = append(usages, usage)
	}
	return usages, nil
}

// Types returns the configured quota types
func (s *Service) Types() []domain.QuotaType {
	return s.registry.All()
}

// resolveType looks up the quota type or reports it unknown
func (s *Service) resolveType(typeKey string) (domain.QuotaType, error) {
	t, ok := s.registry.Get(typeKey)
	if !ok {
		return domain.QuotaType{}, shared.NewDomainError("UNKNOWN_QUOTA_TYPE", "Unknown quota type "+typeKey)
	}
	return t, nil
}

// resolveLocation parses the caller's timezone, falling back to the
// configured default on an empty or unknown name
func (s *Service) resolveLocation(timezone string) *time.Location {
	if timezone == "" {
		return s.defaultLoc
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		s.logger.Warn("unknown timezone, using default",
			zap.String("timezone", timezone))
		return s.defaultLoc
	}
	return loc
}

// applyUnavailablePolicy converts a backend failure into the configured
// behavior: fail-open reports zero usage and lets the operation proceed,
// fail-closed surfaces the outage
func (s *Service) applyUnavailablePolicy(op string, t domain.QuotaType, start, end time.Time, err error) (domain.QuotaUsage, error) {
	if s.policy == config.PolicyFailOpen {
		s.logger.Warn("quota backend unavailable, failing open",
			zap.String("op", op),
			zap.String("quota_type", t.Key),
			zap.Error(err))
		return domain.NewQuotaUsage(t, 0, start, end), nil
	}
	return domain.QuotaUsage{}, &domain.BackendUnavailableError{Op: op, Err: err}
}
