package governance

import "time"

// Granularity is the length class of a rate-limit counting window.
type Granularity string

const (
	GranularitySecond Granularity = "SECOND"
	GranularityMinute Granularity = "MINUTE"
	GranularityHour   Granularity = "HOUR"
	GranularityDay    Granularity = "DAY"
)

// Granularities lists all window granularities from shortest to longest.
// Admission checks them in this order so the cheapest window rejects first.
func Granularities() []Granularity {
	return []Granularity{GranularitySecond, GranularityMinute, GranularityHour, GranularityDay}
}

// Duration returns the window length for the granularity
func (g Granularity) Duration() time.Duration {
	switch g {
	case GranularitySecond:
		return time.Second
	case GranularityMinute:
		return time.Minute
	case GranularityHour:
		return time.Hour
	case GranularityDay:
		return 24 * time.Hour
	}
	return time.Minute
}

// String returns the string representation of Granularity
func (g Granularity) String() string {
	return string(g)
}

// WindowStart aligns t down to a multiple of the window length
func (g Granularity) WindowStart(t time.Time) time.Time {
	return t.Truncate(g.Duration())
}

// CounterWindow is the per-key counting state for one granularity. It keeps
// the current window count plus the full count of the immediately preceding
// window, which feeds the boundary-smoothing formula.
type CounterWindow struct {
	Key         string
	Granularity Granularity
	WindowStart time.Time
	Count       int64
	PrevCount   int64
	LastSeen    time.Time
}

// Rollover advances the window state to the one containing now. When a
// single window boundary was crossed the current count becomes the previous
// count; when more than one was crossed the previous window saw no traffic
// and both counts reset.
func (w *CounterWindow) Rollover(now time.Time) {
	start := w.Granularity.WindowStart(now)
	if !start.After(w.WindowStart) {
		return
	}
	if start.Sub(w.WindowStart) == w.Granularity.Duration() {
		w.PrevCount = w.Count
	} else {
		w.PrevCount = 0
	}
	w.Count = 0
	w.WindowStart = start
}

// SmoothedCount returns the boundary-corrected effective count at now:
// the previous window's count weighted by the fraction of it still inside
// the lookback interval, plus the current window's count. This removes the
// burst-at-boundary flaw of a plain fixed window without keeping a request
// log, and doubles as the linear decay that debits burst excess against
// the following window.
func (w *CounterWindow) SmoothedCount(now time.Time) float64 {
	d := w.Granularity.Duration()
	elapsed := now.Sub(w.WindowStart)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > d {
		elapsed = d
	}
	overlap := 1 - float64(elapsed)/float64(d)
	return float64(w.PrevCount)*overlap + float64(w.Count)
}

// ResetAfter returns the time remaining until the current window ends
func (w *CounterWindow) ResetAfter(now time.Time) time.Duration {
	end := w.WindowStart.Add(w.Granularity.Duration())
	if now.After(end) {
		return 0
	}
	return end.Sub(now)
}

// Expired reports whether the window is eligible for reaping: the window
// has ended and the key has seen no traffic for one full window length.
func (w *CounterWindow) Expired(now time.Time) bool {
	d := w.Granularity.Duration()
	return now.Sub(w.WindowStart) > d && now.Sub(w.LastSeen) > d
}
