package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cron is a parsed 5-field cron expression (minute, hour, day-of-month,
// month, day-of-week). Each field is a bit set of the values it allows.
type Cron struct {
	minute, hour, dom, month, dow uint64

	// When both day fields are restricted a time matches if either does.
	domAny, dowAny bool
}

type bounds struct {
	name     string
	min, max int
}

var fields = [5]bounds{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// ParseCron parses a standard 5-field cron expression. Each field accepts
// *, n, n-m, and a /step on either; fields may be comma lists. Day-of-week 7
// is Sunday.
func ParseCron(expr string) (*Cron, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(parts))
	}

	var sets [5]uint64
	for i, f := range parts {
		set, err := parseSet(f, fields[i])
		if err != nil {
			return nil, fmt.Errorf("%s field: %w", fields[i].name, err)
		}
		sets[i] = set
	}

	c := &Cron{
		minute: sets[0],
		hour:   sets[1],
		dom:    sets[2],
		month:  sets[3],
		dow:    sets[4],
		domAny: parts[2] == "*",
		dowAny: parts[4] == "*",
	}
	if c.dow&(1<<7) != 0 {
		c.dow |= 1
	}
	return c, nil
}

func parseSet(field string, b bounds) (uint64, error) {
	var set uint64
	for _, item := range strings.Split(field, ",") {
		lo, hi, step, err := parseRange(item, b)
		if err != nil {
			return 0, err
		}
		for v := lo; v <= hi; v += step {
			set |= 1 << uint(v)
		}
	}
	return set, nil
}

func parseRange(item string, b bounds) (lo, hi, step int, err error) {
	rng, stepStr, hasStep := strings.Cut(item, "/")
	step = 1
	if hasStep {
		step, err = strconv.Atoi(stepStr)
		if err != nil || step <= 0 {
			return 0, 0, 0, fmt.Errorf("invalid step %q", item)
		}
	}

	switch {
	case rng == "*":
		return b.min, b.max, step, nil
	case strings.Contains(rng, "-"):
		loStr, hiStr, _ := strings.Cut(rng, "-")
		if lo, err = atoiIn(loStr, b); err != nil {
			return 0, 0, 0, err
		}
		if hi, err = atoiIn(hiStr, b); err != nil {
			return 0, 0, 0, err
		}
		if lo > hi {
			return 0, 0, 0, fmt.Errorf("invalid range %q", rng)
		}
		return lo, hi, step, nil
	default:
		if lo, err = atoiIn(rng, b); err != nil {
			return 0, 0, 0, err
		}
		if hasStep {
			// n/step runs from n to the end of the field.
			return lo, b.max, step, nil
		}
		return lo, lo, 1, nil
	}
}

func atoiIn(s string, b bounds) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	if v < b.min || v > b.max {
		return 0, fmt.Errorf("value %d out of range %d-%d", v, b.min, b.max)
	}
	return v, nil
}

func has(set uint64, v int) bool { return set&(1<<uint(v)) != 0 }

// Matches reports whether t, truncated to the minute, is a firing time.
func (c *Cron) Matches(t time.Time) bool {
	return has(c.minute, t.Minute()) &&
		has(c.hour, t.Hour()) &&
		has(c.month, int(t.Month())) &&
		c.dayMatches(t)
}

func (c *Cron) dayMatches(t time.Time) bool {
	domOK := has(c.dom, t.Day())
	dowOK := has(c.dow, int(t.Weekday()))
	if c.domAny || c.dowAny {
		return domOK && dowOK
	}
	return domOK || dowOK
}

// Next returns the first firing time strictly after t, or the zero time if
// none falls within five years (e.g. "0 0 31 2 *").
func (c *Cron) Next(t time.Time) time.Time {
	t = t.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(5, 0, 0)
	for t.Before(limit) {
		if !has(c.month, int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !c.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !has(c.hour, t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
			continue
		}
		if !has(c.minute, t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}
