// internal/policy/domain.go
package policy

import (
	"time"

	"libralend/internal/liberr"
)

// Policy holds the library-wide lending and fine parameters. A single row
// exists; updates replace fields in place.
type Policy struct {
	MaxBooksPerUser           int       `json:"max_books_per_user"`
	MaxIssueDays              int       `json:"max_issue_days"`
	FinePerDay                float64   `json:"fine_per_day"`
	GracePeriodDays           int       `json:"grace_period_days"`
	LostBookPenaltyMultiplier float64   `json:"lost_book_penalty_multiplier"`
	MaxRenewals               int       `json:"max_renewals"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// Default is the policy seeded on first start.
func Default() Policy {
	return Policy{
		MaxBooksPerUser:           3,
		MaxIssueDays:              14,
		FinePerDay:                10.0,
		GracePeriodDays:           0,
		LostBookPenaltyMultiplier: 2.0,
		MaxRenewals:               1,
	}
}

// Update carries a partial policy change; nil fields keep their current
// value. The whole update commits atomically or not at all.
type Update struct {
	MaxBooksPerUser           *int     `json:"max_books_per_user,omitempty"`
	MaxIssueDays              *int     `json:"max_issue_days,omitempty"`
	FinePerDay                *float64 `json:"fine_per_day,omitempty"`
	GracePeriodDays           *int     `json:"grace_period_days,omitempty"`
	LostBookPenaltyMultiplier *float64 `json:"lost_book_penalty_multiplier,omitempty"`
	MaxRenewals               *int     `json:"max_renewals,omitempty"`
}

// Apply returns a copy of p with the non-nil fields of u overlaid.
func (u Update) Apply(p Policy) Policy {
	if u.MaxBooksPerUser != nil {
		p.MaxBooksPerUser = *u.MaxBooksPerUser
	}
	if u.MaxIssueDays != nil {
		p.MaxIssueDays = *u.MaxIssueDays
	}
	if u.FinePerDay != nil {
		p.FinePerDay = *u.FinePerDay
	}
	if u.GracePeriodDays != nil {
		p.GracePeriodDays = *u.GracePeriodDays
	}
	if u.LostBookPenaltyMultiplier != nil {
		p.LostBookPenaltyMultiplier = *u.LostBookPenaltyMultiplier
	}
	if u.MaxRenewals != nil {
		p.MaxRenewals = *u.MaxRenewals
	}
	return p
}

// Validate checks every field against its domain constraint.
func (p Policy) Validate() error {
	switch {
	case p.MaxBooksPerUser < 1:
		return liberr.New(liberr.KindInvalidPolicy, "max_books_per_user must be >= 1, got %d", p.MaxBooksPerUser)
	case p.MaxIssueDays < 1:
		return liberr.New(liberr.KindInvalidPolicy, "max_issue_days must be >= 1, got %d", p.MaxIssueDays)
	case p.FinePerDay < 0:
		return liberr.New(liberr.KindInvalidPolicy, "fine_per_day must be >= 0, got %g", p.FinePerDay)
	case p.GracePeriodDays < 0:
		return liberr.New(liberr.KindInvalidPolicy, "grace_period_days must be >= 0, got %d", p.GracePeriodDays)
	case p.LostBookPenaltyMultiplier < 1:
		return liberr.New(liberr.KindInvalidPolicy, "lost_book_penalty_multiplier must be >= 1, got %g", p.LostBookPenaltyMultiplier)
	case p.MaxRenewals < 0:
		return liberr.New(liberr.KindInvalidPolicy, "max_renewals must be >= 0, got %d", p.MaxRenewals)
	}
	return nil
}
