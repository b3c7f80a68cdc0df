// internal/app/expiry_evaluator.go
package app

import (
	"time"

	"license_notification_bot/internal/domain/license"
)

// LeadTimes are the day counts before expiry at which an alert is due.
var LeadTimes = []int{90, 60, 30}

const day = 24 * time.Hour

// FilterExpiring returns the records whose expiry falls exactly one of the
// lead times after reference's calendar date, in input order. Records without
// a parseable expiry date are skipped.
func FilterExpiring(records []license.Record, reference time.Time) []license.Evaluation {
	today := license.DateOf(reference.UTC())

	var matches []license.Evaluation
	for _, rec := range records {
		expDate, ok := rec.ExpiryDate()
		if !ok {
			continue
		}
		diff := DaysBetween(today, expDate)
		if !isLeadTime(diff) {
			continue
		}
		matches = append(matches, license.Evaluation{Record: rec, DaysLeft: diff})
	}
	return matches
}

// DaysBetween returns to minus from in whole days, rounding partial days up.
func DaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	days := int(d / day)
	if d%day > 0 {
		days++
	}
	return days
}

func isLeadTime(days int) bool {
	for _, lt := range LeadTimes {
		if days == lt {
			return true
		}
	}
	return false
}
