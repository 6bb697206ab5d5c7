package analytics

import "time"

const dayLayout = "2006-01-02"

// Window is a range of whole calendar days, inclusive on both ends, in the
// aggregator's location.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days lists every day of the window as YYYY-MM-DD, oldest first.
func (w Window) Days() []string {
	days := make([]string, 0, w.Len())
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dayLayout))
	}
	return days
}

// Len is the number of days in the window.
func (w Window) Len() int {
	if w.End.Before(w.Start) {
		return 0
	}
	n := 0
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Previous is the window of equal length ending the day before Start.
func (w Window) Previous() Window {
	n := w.Len()
	return Window{
		Start: w.Start.AddDate(0, 0, -n),
		End:   w.Start.AddDate(0, 0, -1),
	}
}

// Bounds returns the instants [from, to) covered by the window, for range queries.
func (w Window) Bounds() (from, to time.Time) {
	return w.Start, w.End.AddDate(0, 0, 1)
}

func (w Window) containsDay(day string) bool {
	return day >= w.Start.Format(dayLayout) && day <= w.End.Format(dayLayout)
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
