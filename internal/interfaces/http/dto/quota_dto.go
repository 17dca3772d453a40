package dto

import (
	"time"

	domain "github.com/nutrifit/backend/internal/domain/quota"
)

// QuotaUsageResponse is the API view of one quota usage snapshot
type QuotaUsageResponse struct {
	Type        string    `json:"type"`
	Limit       int64     `json:"limit"`
	Used        int64     `json:"used"`
	Remaining   int64     `json:"remaining"`
	Exceeded    bool      `json:"exceeded"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	ResetsAt    time.Time `json:"resets_at"`
}

// NewQuotaUsageResponse maps a domain usage snapshot to the API shape
func NewQuotaUsageResponse(u domain.QuotaUsage) QuotaUsageResponse {
	return QuotaUsageResponse{
		Type:        u.TypeKey,
		Limit:       u.Limit,
		Used:        u.Used,
		Remaining:   u.Remaining,
		Exceeded:    u.Exceeded,
		PeriodStart: u.PeriodStart,
		PeriodEnd:   u.PeriodEnd,
		ResetsAt:    u.ResetsAt,
	}
}

// QuotaExceededDetails is the details payload attached to a 429 quota
// rejection. Remaining is always zero here; the reset time tells the
// client when to try again.
type QuotaExceededDetails struct {
	Type      string    `json:"type"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

// NewQuotaExceededDetails builds the rejection payload from the usage
// snapshot carried by the error
func NewQuotaExceededDetails(u domain.QuotaUsage) QuotaExceededDetails {
	return QuotaExceededDetails{
		Type:      u.TypeKey,
		Limit:     u.Limit,
		Remaining: 0,
		ResetsAt:  u.ResetsAt,
	}
}

// ConsumeQuotaRequest is the body of POST /quotas/:type/consume
type ConsumeQuotaRequest struct {
	Amount int64 `json:"amount" binding:"omitempty,min=1"`
}

// InvalidateCacheRequest is the body of POST /cache/invalidate
type InvalidateCacheRequest struct {
	Region string `json:"region" binding:"required"`
	Owner  string `json:"owner" binding:"required"`
}
