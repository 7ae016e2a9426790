package service

import (
	"fmt"
	"strings"
)

// TimeOfDay is a validated daily clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts only zero-padded 24-hour "HH:MM".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	if len(raw) != 5 || raw[2] != ':' {
		return TimeOfDay{}, invalid("horaires", "invalid time %q, expected HH:MM", raw)
	}
	hour, ok := twoDigits(raw[0:2])
	if !ok || hour > 23 {
		return TimeOfDay{}, invalid("horaires", "invalid hour in %q", raw)
	}
	minute, ok := twoDigits(raw[3:5])
	if !ok || minute > 59 {
		return TimeOfDay{}, invalid("horaires", "invalid minute in %q", raw)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// CronSpec renders the daily trigger in seconds-enabled cron format:
// second minute hour dom month dow.
func (t TimeOfDay) CronSpec() string {
	return fmt.Sprintf("0 %d %d * * *", t.Minute, t.Hour)
}

// uniqueTimes trims and collapses duplicate entries, keeping first-seen order.
func uniqueTimes(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
