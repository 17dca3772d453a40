package quota

import (
	"github.com/nutrifit/backend/internal/domain/shared"
)

// QuotaType defines the usage allowance for one gated feature. Types are
// loaded once at startup and treated as immutable afterwards.
type QuotaType struct {
	Key         string      // Stable identifier (e.g., "ai_advice", "pdf_export")
	FreeLimit   int64       // Units allowed per period on the free tier
	ResetPeriod ResetPeriod // Calendar window after which usage starts over
	Description string      // Human-readable description
}

// NewQuotaType creates a validated quota type
func NewQuotaType(key string, freeLimit int64, resetPeriod ResetPeriod) (QuotaType, error) {
	if key == "" {
		return QuotaType{}, shared.NewDomainError("INVALID_QUOTA_TYPE", "Quota type key cannot be empty")
	}
	if freeLimit < 0 {
		return QuotaType{}, shared.NewDomainError("INVALID_LIMIT", "Free limit cannot be negative")
	}
	if !resetPeriod.IsValid() {
		return QuotaType{}, shared.NewDomainError("INVALID_RESET_PERIOD", "Invalid reset period")
	}
	return QuotaType{Key: key, FreeLimit: freeLimit, ResetPeriod: resetPeriod}, nil
}

// Registry holds the configured quota types in declaration order.
// It is built once at startup and never mutated afterwards, so reads
// need no locking.
type Registry struct {
	types map[string]QuotaType
	order []string
}

// NewRegistry builds a registry from the given types. Duplicate keys are
// rejected.
func NewRegistry(types ...QuotaType) (*Registry, error) {
	r := &Registry{types: make(map[string]QuotaType, len(types))}
	for _, t := range types {
		if t.Key == "" {
			return nil, shared.NewDomainError("INVALID_QUOTA_TYPE", "Quota type key cannot be empty")
		}
		if !t.ResetPeriod.IsValid() {
			return nil, shared.NewDomainError("INVALID_RESET_PERIOD", "Invalid reset period for "+t.Key)
		}
		if _, exists := r.types[t.Key]; exists {
			return nil, shared.NewDomainError("DUPLICATE_QUOTA_TYPE", "Duplicate quota type "+t.Key)
		}
		r.types[t.Key] = t
		r.order = append(r.order, t.Key)
	}
	return r, nil
}

// Get returns the quota type for the given key
func (r *Registry) Get(key string) (QuotaType, bool) {
	t, ok := r.types[key]
	return t, ok
}

// All returns the configured quota types in declaration order
func (r *Registry) All() []QuotaType {
	out := make([]QuotaType, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.types[key])
	}
	return out
}

// Len returns the number of configured quota types
func (r *Registry) Len() int {
	return len(r.order)
}
