// Package validity decides whether a credential's visit window is open.
// Comparison is by calendar date only; time of day is ignored.
package validity

import (
	"time"

	"gatepass-backend/internal/model"
)

const (
	ReasonNotStarted = "not started"
	ReasonExpired    = "expired"
)

// Decision is the outcome of a window evaluation. Reason is empty when Open.
type Decision struct {
	Open   bool
	Reason string
}

// Evaluate reports whether the credential's visit window contains now.
// A credential with a [ValidFrom, ValidTo] range is open on every date of the
// inclusive range. A single-VisitDate credential is open on that date only.
// A credential with no dates at all is never date-gated (legacy import rows).
func Evaluate(cred model.Credential, now time.Time) Decision {
	today := civilDate(now)

	switch {
	case cred.ValidFrom != nil && cred.ValidTo != nil:
		if today.Before(civilDate(*cred.ValidFrom)) {
			return Decision{Reason: ReasonNotStarted}
		}
		if today.After(civilDate(*cred.ValidTo)) {
			return Decision{Reason: ReasonExpired}
		}
		return Decision{Open: true}
	case cred.VisitDate != nil:
		visit := civilDate(*cred.VisitDate)
		if today.Before(visit) {
			return Decision{Reason: ReasonNotStarted}
		}
		if today.After(visit) {
			return Decision{Reason: ReasonExpired}
		}
		return Decision{Open: true}
	default:
		return Decision{Open: true}
	}
}

// civilDate truncates t to midnight of its own calendar date so that
// comparisons ignore both time of day and sub-day offsets.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
