package planner

import (
	"fmt"
	"strings"
)

// StudyMode selects a preset of sleep, meal and study-cap numbers.
type StudyMode string

const (
	ModeRelaxed StudyMode = "relaxed"
	ModeNormal  StudyMode = "normal"
	ModeSprint  StudyMode = "sprint"
)

// ParseStudyMode defaults an empty value to normal.
func ParseStudyMode(raw string) (StudyMode, error) {
	switch mode := StudyMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ModeNormal, nil
	case ModeRelaxed, ModeNormal, ModeSprint:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown study mode %q", raw)
	}
}

// Preset is the configuration row for one study mode.
type Preset struct {
	Mode           StudyMode
	SleepHours     float64
	LunchMinutes   int
	DinnerMinutes  int
	DailyCapHours  float64
	EveningAllowed bool
	Bedtime        Clock
	LunchAt        Clock
	DinnerAt       Clock
	DayStart       Clock
	DayEnd         Clock
}

func (p Preset) DailyCapMinutes() int {
	return hoursToMinutes(p.DailyCapHours)
}

// WindowEnd is DayEnd, or bedtime when evening study is allowed.
// A midnight bedtime ends the window at 24:00.
func (p Preset) WindowEnd() Clock {
	if !p.EveningAllowed {
		return p.DayEnd
	}
	if p.Bedtime == 0 {
		return minutesPerDay
	}
	if p.Bedtime < p.DayEnd {
		return p.DayEnd
	}
	return p.Bedtime
}

func (p Preset) Lifestyle() LifestylePrefs {
	return LifestylePrefs{
		SleepHours:    p.SleepHours,
		LunchMinutes:  p.LunchMinutes,
		DinnerMinutes: p.DinnerMinutes,
	}
}

var presets = map[StudyMode]Preset{
	ModeRelaxed: {
		Mode:           ModeRelaxed,
		SleepHours:     8,
		LunchMinutes:   60,
		DinnerMinutes:  60,
		DailyCapHours:  4,
		EveningAllowed: false,
		Bedtime:        MustClock("22:00"),
		LunchAt:        MustClock("12:00"),
		DinnerAt:       MustClock("18:30"),
		DayStart:       MustClock("06:00"),
		DayEnd:         MustClock("21:00"),
	},
	ModeNormal: {
		Mode:           ModeNormal,
		SleepHours:     7,
		LunchMinutes:   45,
		DinnerMinutes:  45,
		DailyCapHours:  6,
		EveningAllowed: false,
		Bedtime:        MustClock("23:00"),
		LunchAt:        MustClock("12:00"),
		DinnerAt:       MustClock("18:30"),
		DayStart:       MustClock("06:00"),
		DayEnd:         MustClock("22:00"),
	},
	ModeSprint: {
		Mode:           ModeSprint,
		SleepHours:     6,
		LunchMinutes:   30,
		DinnerMinutes:  30,
		DailyCapHours:  8,
		EveningAllowed: true,
		Bedtime:        MustClock("00:00"),
		LunchAt:        MustClock("12:00"),
		DinnerAt:       MustClock("19:00"),
		DayStart:       MustClock("06:00"),
		DayEnd:         MustClock("23:00"),
	},
}

// PresetFor returns the preset of mode, falling back to normal.
func PresetFor(mode StudyMode) Preset {
	if preset, ok := presets[mode]; ok {
		return preset
	}
	return presets[ModeNormal]
}

// LifestyleFor fills zero fields of prefs from the mode preset.
func LifestyleFor(mode StudyMode, prefs LifestylePrefs) LifestylePrefs {
	base := PresetFor(mode).Lifestyle()
	if prefs.SleepHours > 0 {
		base.SleepHours = prefs.SleepHours
	}
	if prefs.LunchMinutes > 0 {
		base.LunchMinutes = prefs.LunchMinutes
	}
	if prefs.DinnerMinutes > 0 {
		base.DinnerMinutes = prefs.DinnerMinutes
	}
	return base
}
