package scheduler

import "time"

// Schedule decides when a task runs next.
type Schedule interface {
	Next(after time.Time) time.Time
}

type interval time.Duration

// Every runs a task d after its previous run.
func Every(d time.Duration) Schedule { return interval(d) }

func (i interval) Next(after time.Time) time.Time { return after.Add(time.Duration(i)) }

type daily struct{ hour, minute int }

// Daily runs a task once a day at hour:minute local time.
func Daily(hour, minute int) Schedule { return daily{hour, minute} }

func (d daily) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), d.hour, d.minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
