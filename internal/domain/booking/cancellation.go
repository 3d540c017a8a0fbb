package booking

import (
	"time"

	"staynest/internal/domain/shared/daterange"
)

// PolicyTier is the cancellation policy snapshotted onto a booking at
// creation. It never changes afterwards, even if the listing's does.
type PolicyTier string

const (
	TierFlexible PolicyTier = "flexible"
	TierModerate PolicyTier = "moderate"
	TierStrict   PolicyTier = "strict"
)

// NoticeRules maps each tier to the minimum whole days of notice a
// cancellation requires before check-in. Policy constants, overridable
// through configuration.
type NoticeRules struct {
	Flexible int
	Moderate int
	Strict   int
}

func DefaultNoticeRules() NoticeRules {
	return NoticeRules{Flexible: 1, Moderate: 5, Strict: 7}
}

// MinNoticeDays resolves the tier's notice requirement. Unknown tiers
// report ok=false and must be treated as non-cancellable.
func (r NoticeRules) MinNoticeDays(tier PolicyTier) (int, bool) {
	switch tier {
	case TierFlexible:
		return r.Flexible, true
	case TierModerate:
		return r.Moderate, true
	case TierStrict:
		return r.Strict, true
	default:
		return 0, false
	}
}

// ParseTier normalizes a stored tier name, falling back to moderate
// for empty input the way new listings default.
func ParseTier(raw string) PolicyTier {
	switch PolicyTier(raw) {
	case TierFlexible, TierModerate, TierStrict:
		return PolicyTier(raw)
	case "":
		return TierModerate
	default:
		return PolicyTier(raw)
	}
}

// CanCancelAt decides whether cancellation is still permitted: the
// booking must hold an active status and the remaining notice, counted
// in whole days rounded up, must meet the tier minimum. Unknown tiers
// fail closed.
func CanCancelAt(status Status, tier PolicyTier, checkIn, now time.Time, rules NoticeRules) bool {
	if status != StatusPending && status != StatusConfirmed {
		return false
	}
	minDays, ok := rules.MinNoticeDays(tier)
	if !ok {
		return false
	}
	return daterange.DaysUntil(now, checkIn) >= minDays
}
