package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Hours describes one exchange's regular trading session in its local
// timezone. It owns the two policies the replay engine depends on but
// never implements itself: dropping bars outside the session, and
// marking the last tradable bar of each day (SessionEnd).
type Hours struct {
	loc        *time.Location
	openMin    int // minutes from local midnight, inclusive
	closeMin   int // minutes from local midnight, inclusive
	forceClose int // minutes before closeMin at which SessionEnd starts
}

// NewHours builds a session calendar. open and close are local wall-clock
// times like "09:30" and "16:00". forceCloseWithin is how long before the
// close a bar is already considered end-of-session (e.g. 5*time.Minute
// marks every bar from 15:55 on). Weekends are always excluded.
func NewHours(tz, open, close string, forceCloseWithin time.Duration) (*Hours, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("market hours: load timezone %q: %w", tz, err)
	}

	openMin, err := parseWallClock(open)
	if err != nil {
		return nil, fmt.Errorf("market hours: open: %w", err)
	}
	closeMin, err := parseWallClock(close)
	if err != nil {
		return nil, fmt.Errorf("market hours: close: %w", err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("market hours: close %s must be after open %s", close, open)
	}

	fc := int(forceCloseWithin / time.Minute)
	if fc < 0 || fc >= closeMin-openMin {
		return nil, fmt.Errorf("market hours: force-close window %s does not fit session", forceCloseWithin)
	}

	return &Hours{loc: loc, openMin: openMin, closeMin: closeMin, forceClose: fc}, nil
}

func parseWallClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}

func (h *Hours) localMinute(t time.Time) (time.Weekday, int) {
	lt := t.In(h.loc)
	return lt.Weekday(), lt.Hour()*60 + lt.Minute()
}

// Contains reports whether t falls inside regular trading hours on a
// trading weekday.
func (h *Hours) Contains(t time.Time) bool {
	wd, min := h.localMinute(t)
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return min >= h.openMin && min <= h.closeMin
}

// Filter returns the bars that fall inside trading hours, preserving order.
func (h *Hours) Filter(bars []Bar) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if h.Contains(b.Time) {
			out = append(out, b)
		}
	}
	return out
}

// Annotate sets SessionEnd on each bar. A bar ends its session when the
// next bar falls on a different local calendar day, when no next bar
// exists, or when the bar's local time has entered the force-close window
// before the session close. Input bars must already be filtered and in
// ascending time order.
func (h *Hours) Annotate(bars []Bar) []Bar {
	cutoff := h.closeMin - h.forceClose
	for i := range bars {
		_, min := h.localMinute(bars[i].Time)
		switch {
		case i == len(bars)-1:
			bars[i].SessionEnd = true
		case !sameLocalDay(bars[i].Time, bars[i+1].Time, h.loc):
			bars[i].SessionEnd = true
		case min >= cutoff:
			bars[i].SessionEnd = true
		default:
			bars[i].SessionEnd = false
		}
	}
	return bars
}

func sameLocalDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
