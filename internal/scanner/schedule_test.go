package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stkw0/lms/internal/database"
)

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestNextScanTime_Never(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodNever}
	_, ok := NextScanTime(s, at(2024, time.March, 5, 12, 0))
	assert.False(t, ok)
}

func TestNextScanTime_Hourly(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodHourly, StartTime: "03:00"}
	now := at(2024, time.March, 5, 12, 30)
	next, ok := NextScanTime(s, now)
	assert.True(t, ok)
	assert.Equal(t, now.Add(time.Hour), next)
}

func TestNextScanTime_DailyBeforeStartTime(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodDaily, StartTime: "15:00"}
	next, ok := NextScanTime(s, at(2024, time.March, 5, 12, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2024, time.March, 5, 15, 0), next)
}

func TestNextScanTime_DailyAfterStartTime(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodDaily, StartTime: "15:00"}
	next, ok := NextScanTime(s, at(2024, time.March, 5, 16, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2024, time.March, 6, 15, 0), next)
}

func TestNextScanTime_WeeklyFromTuesday(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodWeekly, StartTime: "04:00"}
	// 2024-03-05 is a Tuesday; next Monday is 2024-03-11.
	next, ok := NextScanTime(s, at(2024, time.March, 5, 12, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2024, time.March, 11, 4, 0), next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestNextScanTime_WeeklyOnMondayBeforeStart(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodWeekly, StartTime: "22:00"}
	// 2024-03-04 is a Monday and the start time has not passed.
	next, ok := NextScanTime(s, at(2024, time.March, 4, 10, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2024, time.March, 4, 22, 0), next)
}

func TestNextScanTime_WeeklyOnMondayAfterStart(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodWeekly, StartTime: "08:00"}
	next, ok := NextScanTime(s, at(2024, time.March, 4, 10, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2024, time.March, 11, 8, 0), next)
}

func TestNextScanTime_Monthly(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodMonthly, StartTime: "02:30"}
	next, ok := NextScanTime(s, at(2024, time.March, 15, 12, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2024, time.April, 1, 2, 30), next)
}

func TestNextScanTime_MonthlyOnFirstBeforeStart(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodMonthly, StartTime: "23:00"}
	next, ok := NextScanTime(s, at(2024, time.March, 1, 10, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2024, time.March, 1, 23, 0), next)
}

func TestNextScanTime_MonthlyOnFirstAfterStart(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodMonthly, StartTime: "01:00"}
	next, ok := NextScanTime(s, at(2024, time.March, 1, 10, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2024, time.April, 1, 1, 0), next)
}

func TestNextScanTime_MonthlyYearRollover(t *testing.T) {
	s := &Settings{UpdatePeriod: database.PeriodMonthly, StartTime: "00:00"}
	next, ok := NextScanTime(s, at(2024, time.December, 20, 12, 0))
	assert.True(t, ok)
	assert.Equal(t, at(2025, time.January, 1, 0, 0), next)
}
