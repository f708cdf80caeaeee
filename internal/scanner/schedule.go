package scanner

import (
	"strconv"
	"strings"
	"time"

	"github.com/stkw0/lms/internal/database"
)

// NextScanTime computes when the next scheduled scan should run, relative to
// now. ok is false when scanning is disabled.
//
// Hourly scans run an hour from now. Daily, weekly and monthly scans run at
// the configured start time on the next qualifying day (weekly: Monday,
// monthly: the 1st); if now is a qualifying day and the start time has not
// passed yet, the scan runs today.
func NextScanTime(s *Settings, now time.Time) (next time.Time, ok bool) {
	switch s.UpdatePeriod {
	case database.PeriodHourly:
		return now.Add(time.Hour), true
	case database.PeriodDaily:
		return nextDaily(s.StartTime, now), true
	case database.PeriodWeekly:
		return nextWeekly(s.StartTime, now), true
	case database.PeriodMonthly:
		return nextMonthly(s.StartTime, now), true
	default:
		return time.Time{}, false
	}
}

func nextDaily(startTime string, now time.Time) time.Time {
	h, m := parseStartTime(startTime)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	if now.Before(candidate) {
		return candidate
	}
	return candidate.AddDate(0, 0, 1)
}

func nextWeekly(startTime string, now time.Time) time.Time {
	h, m := parseStartTime(startTime)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	if now.Weekday() == time.Monday && now.Before(candidate) {
		return candidate
	}
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return candidate.AddDate(0, 0, days)
}

func nextMonthly(startTime string, now time.Time) time.Time {
	h, m := parseStartTime(startTime)
	if now.Day() == 1 {
		candidate := time.Date(now.Year(), now.Month(), 1, h, m, 0, 0, now.Location())
		if now.Before(candidate) {
			return candidate
		}
	}
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, h, m, 0, 0, now.Location())
	return firstOfThisMonth.AddDate(0, 1, 0)
}

func parseStartTime(v string) (hour, minute int) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) == 2 {
		if h, err := strconv.Atoi(parts[0]); err == nil && h >= 0 && h < 24 {
			hour = h
		}
		if m, err := strconv.Atoi(parts[1]); err == nil && m >= 0 && m < 60 {
			minute = m
		}
	}
	return hour, minute
}
