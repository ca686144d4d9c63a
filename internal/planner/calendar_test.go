package planner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, raw string) Date {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestDateArithmetic(t *testing.T) {
	start := mustDate(t, "2024-09-02")

	assert.Equal(t, Monday, start.Weekday())
	assert.Equal(t, Sunday, start.AddDays(6).Weekday())
	assert.Equal(t, "2024-10-01", start.AddDays(29).String())
	assert.Equal(t, 7, start.DaysUntil(start.AddDays(7)))
	assert.Equal(t, -1, start.DaysUntil(start.AddDays(-1)))
	assert.True(t, start.Before(start.AddDays(1)))
	assert.False(t, start.Before(start))

	_, err := ParseDate("2024-13-01")
	assert.Error(t, err)
}

func TestDateJSONRoundTrip(t *testing.T) {
	payload, err := json.Marshal(struct {
		Due Date `json:"due"`
	}{Due: mustDate(t, "2024-02-29")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-02-29"}`, string(payload))

	var decoded struct {
		Due Date `json:"due"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2025-01-31"}`), &decoded))
	assert.Equal(t, Date{Year: 2025, Month: 1, Day: 31}, decoded.Due)
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]Weekday{
		"monday":  Monday,
		"SUNDAY":  Sunday,
		" Friday": Friday,
		"3":       Wednesday,
		"7":       Sunday,
	}
	for raw, want := range cases {
		got, err := ParseWeekday(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseWeekday("0")
	assert.Error(t, err)
	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(450), c)
	assert.Equal(t, "07:30", c.String())

	end, err := ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, Clock(minutesPerDay), end)

	for _, raw := range []string{"24:30", "12:60", "noon", "-1:00"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestIntervalSubtract(t *testing.T) {
	day := Interval{Start: MustClock("06:00"), End: MustClock("22:00")}

	middle := day.Subtract(Interval{Start: MustClock("12:00"), End: MustClock("13:00")})
	assert.Equal(t, []Interval{
		{Start: MustClock("06:00"), End: MustClock("12:00")},
		{Start: MustClock("13:00"), End: MustClock("22:00")},
	}, middle)

	head := day.Subtract(Interval{Start: MustClock("05:00"), End: MustClock("07:00")})
	assert.Equal(t, []Interval{{Start: MustClock("07:00"), End: MustClock("22:00")}}, head)

	assert.Empty(t, day.Subtract(Interval{Start: 0, End: minutesPerDay}))

	untouched := day.Subtract(Interval{Start: MustClock("22:00"), End: MustClock("23:00")})
	assert.Equal(t, []Interval{day}, untouched)
}

func TestIntervalOverlapIsHalfOpen(t *testing.T) {
	a := Interval{Start: MustClock("08:00"), End: MustClock("09:00")}
	b := Interval{Start: MustClock("09:00"), End: MustClock("10:00")}
	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(Interval{Start: MustClock("08:59"), End: MustClock("09:30")}))
	assert.Equal(t, 60, a.Minutes())
	assert.Equal(t, 0, Interval{Start: b.End, End: b.Start}.Minutes())
}

func TestHoursToMinutes(t *testing.T) {
	assert.Equal(t, 90, hoursToMinutes(1.5))
	assert.Equal(t, 390, hoursToMinutes(5*WeakSubjectMultiplier))
	assert.Equal(t, 20, hoursToMinutes(1.0/3))
}
