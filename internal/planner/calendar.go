package planner

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	minutesPerDay = 24 * 60
)

// Date is a civil calendar date without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the civil date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// DaysUntil returns the number of days from d to other (negative when other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

func (d Date) Weekday() Weekday {
	return WeekdayOf(d.Time().Weekday())
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Weekday numbers days 1 (Monday) through 7 (Sunday).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[Weekday]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

var weekdayIndex = map[string]Weekday{
	"MONDAY":    Monday,
	"TUESDAY":   Tuesday,
	"WEDNESDAY": Wednesday,
	"THURSDAY":  Thursday,
	"FRIDAY":    Friday,
	"SATURDAY":  Saturday,
	"SUNDAY":    Sunday,
}

// WeekdayOf converts a time.Weekday.
func WeekdayOf(day time.Weekday) Weekday {
	if day == time.Sunday {
		return Sunday
	}
	return Weekday(day)
}

// ParseWeekday accepts upper/lower case names or the numbers 1-7.
func ParseWeekday(raw string) (Weekday, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if day, ok := weekdayIndex[raw]; ok {
		return day, nil
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err == nil && n >= 1 && n <= 7 {
		return Weekday(n), nil
	}
	return 0, fmt.Errorf("invalid weekday %q", raw)
}

func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if name, ok := weekdayNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WEEKDAY(%d)", int(w))
}

func (w Weekday) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(w))
	}
	return []byte(w.String()), nil
}

func (w *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Clock is a time of day in minutes since midnight; 24:00 is 1440.
type Clock int

// ParseClock parses HH:MM.
func ParseClock(raw string) (Clock, error) {
	var h, m int
	raw = strings.TrimSpace(raw)
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	return Clock(h*60 + m), nil
}

// MustClock panics on malformed input; meant for constants.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Interval is a half-open [Start, End) range within one day.
type Interval struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

func (i Interval) Minutes() int {
	if i.End <= i.Start {
		return 0
	}
	return int(i.End - i.Start)
}

func (i Interval) Empty() bool {
	return i.End <= i.Start
}

func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Contains reports whether other lies entirely inside i.
func (i Interval) Contains(other Interval) bool {
	return other.Start >= i.Start && other.End <= i.End
}

// Subtract removes cut from i, returning zero, one or two remaining pieces.
func (i Interval) Subtract(cut Interval) []Interval {
	if !i.Overlaps(cut) {
		return []Interval{i}
	}
	var out []Interval
	if cut.Start > i.Start {
		out = append(out, Interval{Start: i.Start, End: cut.Start})
	}
	if cut.End < i.End {
		out = append(out, Interval{Start: cut.End, End: i.End})
	}
	return out
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// hoursToMinutes converts fractional hours to whole minutes.
func hoursToMinutes(hours float64) int {
	return int(math.Round(hours * 60))
}

func minutesToHours(minutes int) float64 {
	return float64(minutes) / 60
}
