package quota

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QuotaUsage is a derived snapshot of one user's position against one quota
// for the current period. It is never persisted; it is recomputed from the
// counter on every read.
type QuotaUsage struct {
	TypeKey     string    `json:"type"`
	Limit       int64     `json:"limit"`
	Used        int64     `json:"used"`
	Remaining   int64     `json:"remaining"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	ResetsAt    time.Time `json:"resets_at"`
	Exceeded    bool      `json:"exceeded"`
}

// NewQuotaUsage derives a usage snapshot from a raw counter value.
// Invariants: Remaining = max(0, Limit-Used); Exceeded = Used >= Limit.
func NewQuotaUsage(t QuotaType, used int64, periodStart, periodEnd time.Time) QuotaUsage {
	remaining := t.FreeLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaUsage{
		TypeKey:     t.Key,
		Limit:       t.FreeLimit,
		Used:        used,
		Remaining:   remaining,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		ResetsAt:    periodEnd,
		Exceeded:    used >= t.FreeLimit,
	}
}

// CounterKey identifies one user's counter for one quota type within one
// calendar period. A new period yields a new key, so reset is implicit:
// the old counter simply stops being addressed and expires on its own.
func CounterKey(userID uuid.UUID, t QuotaType, periodStart time.Time) string {
	return fmt.Sprintf("quota:%s:%s:%s", userID, t.Key, periodStart.Format("20060102"))
}
