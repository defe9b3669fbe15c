// Package tz converts between stored UTC milliseconds and local calendar
// dates. Local wall-clock times are resolved strictly: a time that falls in
// a DST gap or overlap is an error, never a guess.
package tz

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rustyeddy/ftjournal/errs"
)

// DateLayout is the local calendar date format used for bucketing.
const DateLayout = "2006-01-02"

// Load returns the IANA location for name.
func Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty timezone", errs.ErrTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timezone %q: %v", errs.ErrTimezone, name, err)
	}
	return loc, nil
}

// ToMillis returns t as UTC milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis returns the instant ms in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

// LocalDate formats the local calendar date of the UTC instant ms.
func LocalDate(loc *time.Location, ms int64) string {
	return FromMillis(ms, loc).Format(DateLayout)
}

// Resolve maps a local wall-clock time in loc to its single instant.
// time.Date silently normalizes gaps and picks one side of an overlap, so
// every offset loc uses around the wall time is tried and the matches counted.
func Resolve(loc *time.Location, year int, month time.Month, day, hour, minute, sec int) (time.Time, error) {
	wall := time.Date(year, month, day, hour, minute, sec, 0, time.UTC)

	offsets := map[int]bool{}
	for _, h := range []int{-48, -24, -12, 0, 12, 24, 48} {
		_, off := wall.Add(time.Duration(h) * time.Hour).In(loc).Zone()
		offsets[off] = true
	}

	var found []time.Time
	for off := range offsets {
		cand := wall.Add(-time.Duration(off) * time.Second).In(loc)
		if !sameWall(cand, wall) {
			continue
		}
		dup := false
		for _, f := range found {
			if f.Equal(cand) {
				dup = true
				break
			}
		}
		if !dup {
			found = append(found, cand)
		}
	}

	stamp := wall.Format("2006-01-02 15:04:05")
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return time.Time{}, fmt.Errorf("%w: local time %s does not exist in %s", errs.ErrTimezone, stamp, loc)
	default:
		return time.Time{}, fmt.Errorf("%w: local time %s is ambiguous in %s", errs.ErrTimezone, stamp, loc)
	}
}

// ResolveWall is Resolve for a time whose fields were parsed without a zone.
func ResolveWall(loc *time.Location, naive time.Time) (time.Time, error) {
	return Resolve(loc, naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), naive.Second())
}

// DayRange returns the half-open UTC millisecond interval covering the
// local calendar date in loc, midnight to next midnight. On DST change days
// the span is 23 or 25 hours.
func DayRange(loc *time.Location, date string) (int64, int64, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid date %q", errs.ErrValidation, date)
	}
	next := d.AddDate(0, 0, 1)
	return midnightRange(loc, d, next)
}

// MonthRange returns the half-open UTC millisecond interval from local
// midnight on the 1st of month to local midnight on the 1st of the next.
func MonthRange(loc *time.Location, year int, month time.Month) (int64, int64, error) {
	if month < time.January || month > time.December {
		return 0, 0, fmt.Errorf("%w: month %d out of range", errs.ErrValidation, month)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return midnightRange(loc, first, first.AddDate(0, 1, 0))
}

func midnightRange(loc *time.Location, from, to time.Time) (int64, int64, error) {
	start, err := Resolve(loc, from.Year(), from.Month(), from.Day(), 0, 0, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("range start: %w", err)
	}
	end, err := Resolve(loc, to.Year(), to.Month(), to.Day(), 0, 0, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("range end: %w", err)
	}
	return ToMillis(start), ToMillis(end), nil
}

func sameWall(t, wall time.Time) bool {
	return t.Year() == wall.Year() && t.Month() == wall.Month() && t.Day() == wall.Day() &&
		t.Hour() == wall.Hour() && t.Minute() == wall.Minute() && t.Second() == wall.Second()
}
