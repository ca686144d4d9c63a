package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindowHonoursHardLimits(t *testing.T) {
	monday := mustDate(t, "2024-09-02")
	sunday := monday.AddDays(6)

	assert.Equal(t, Interval{Start: MustClock("06:00"), End: MustClock("24:00")}, DayWindow(monday, ModeSprint, HardLimits{}))
	assert.Equal(t, Interval{Start: MustClock("06:00"), End: MustClock("23:00")}, DayWindow(monday, ModeSprint, HardLimits{NoStudyAfter23: true}))
	assert.Equal(t, Interval{Start: MustClock("06:00"), End: MustClock("22:00")}, DayWindow(monday, ModeNormal, HardLimits{}))
	assert.Equal(t, Interval{Start: MustClock("06:00"), End: MustClock("21:00")}, DayWindow(monday, ModeRelaxed, HardLimits{NoStudyAfter23: true}))
	assert.True(t, DayWindow(sunday, ModeNormal, HardLimits{NoStudyOnSunday: true}).Empty())
	assert.False(t, DayWindow(sunday, ModeNormal, HardLimits{}).Empty())
}

func TestNoStudyAfter23ClosesSprintEvening(t *testing.T) {
	monday := mustDate(t, "2024-09-02")
	base := Request{
		HorizonStart: monday,
		HorizonWeeks: 1,
		Mode:         ModeSprint,
		Timetable: []FixedCommitment{
			{Day: Monday, Start: MustClock("06:00"), End: MustClock("22:00"), Label: "Internship"},
		},
	}
	limited := base
	limited.Limits = HardLimits{NoStudyAfter23: true}

	open := NewAvailabilityTable(base.Dates(), base.Constraints())
	closed := NewAvailabilityTable(limited.Dates(), limited.Constraints())
	assert.Equal(t, []Interval{{Start: MustClock("22:00"), End: MustClock("24:00")}}, open.Free(monday))
	assert.Equal(t, []Interval{{Start: MustClock("22:00"), End: MustClock("23:00")}}, closed.Free(monday))

	req := AllocationRequest{DeadlineID: "d1", Label: "Report", TargetMinutes: 120, Dates: []Date{monday}}

	late := Allocate(req, open)
	require.Len(t, late.Blocks, 1)
	assert.Equal(t, MustClock("24:00"), late.Blocks[0].End)
	assert.Zero(t, late.ShortfallMinutes)

	capped := Allocate(req, closed)
	require.Len(t, capped.Blocks, 1)
	assert.Equal(t, Interval{Start: MustClock("22:00"), End: MustClock("23:00")}, capped.Blocks[0].Interval())
	assert.Equal(t, 60, capped.ShortfallMinutes)
}

func TestFreeIntervalsSubtractsCommitmentsAndConsumed(t *testing.T) {
	window := Interval{Start: MustClock("06:00"), End: MustClock("22:00")}
	free := FreeIntervals(window,
		[]Interval{
			{Start: MustClock("18:30"), End: MustClock("19:15")},
			{Start: MustClock("07:00"), End: MustClock("11:30")},
		},
		[]Interval{{Start: MustClock("12:00"), End: MustClock("13:00")}},
	)

	assert.Equal(t, []Interval{
		{Start: MustClock("06:00"), End: MustClock("07:00")},
		{Start: MustClock("11:30"), End: MustClock("12:00")},
		{Start: MustClock("13:00"), End: MustClock("18:30")},
		{Start: MustClock("19:15"), End: MustClock("22:00")},
	}, free)

	assert.Nil(t, FreeIntervals(Interval{Start: 360, End: 360}, nil, nil))
}

func TestAvailabilityTableNormalMode(t *testing.T) {
	monday := mustDate(t, "2024-09-02")
	req := Request{HorizonStart: monday, HorizonWeeks: 1, Mode: ModeNormal}
	table := NewAvailabilityTable(req.Dates(), req.Constraints())

	assert.Equal(t, []Interval{
		{Start: MustClock("06:00"), End: MustClock("12:00")},
		{Start: MustClock("12:45"), End: MustClock("18:30")},
		{Start: MustClock("19:15"), End: MustClock("22:00")},
	}, table.Free(monday))
	assert.Equal(t, 870, table.FreeMinutes(monday))
	assert.Equal(t, 360, table.CapLeft(monday))

	table.Consume(monday, Interval{Start: MustClock("06:00"), End: MustClock("08:00")}, true)
	table.Consume(monday, Interval{Start: MustClock("20:00"), End: MustClock("21:00")}, false)

	assert.Equal(t, 120, table.Used(monday))
	assert.Equal(t, 240, table.CapLeft(monday))
	assert.Equal(t, 690, table.FreeMinutes(monday))
	require.Len(t, table.Free(monday), 4)
	assert.Equal(t, Interval{Start: MustClock("08:00"), End: MustClock("12:00")}, table.Free(monday)[0])

	outside := monday.AddDays(30)
	assert.Empty(t, table.Free(outside))
	assert.Zero(t, table.CapLeft(outside))
}

func TestAvailabilityTableTimetableAndExam(t *testing.T) {
	monday := mustDate(t, "2024-09-02")
	slot := Interval{Start: MustClock("13:00"), End: MustClock("15:00")}
	req := Request{
		HorizonStart: monday,
		HorizonWeeks: 1,
		Mode:         ModeNormal,
		Timetable: []FixedCommitment{
			{Day: Tuesday, Start: MustClock("07:00"), End: MustClock("11:00"), Label: "Lectures"},
		},
		Deadlines: []Deadline{
			{ID: "exam", Title: "Chemistry final", DueDate: monday.AddDays(3), Kind: DeadlineKindFixed, ExamSlot: &slot},
		},
	}
	table := NewAvailabilityTable(req.Dates(), req.Constraints())

	assert.Equal(t, Interval{Start: MustClock("06:00"), End: MustClock("07:00")}, table.Free(monday.AddDays(1))[0])
	assert.Equal(t, Interval{Start: MustClock("06:00"), End: MustClock("12:00")}, table.Free(monday.AddDays(2))[0])

	thursday := table.Free(monday.AddDays(3))
	for _, iv := range thursday {
		assert.False(t, iv.Overlaps(slot), "exam slot must not be free: %s", iv)
	}
}

func TestFixedDeadlineWithoutSlotLeavesDueDateOpen(t *testing.T) {
	monday := mustDate(t, "2024-09-02")
	req := Request{
		HorizonStart: monday,
		HorizonWeeks: 1,
		Mode:         ModeNormal,
		Deadlines: []Deadline{
			{ID: "exam", Title: "Oral exam", DueDate: monday.AddDays(2), Kind: DeadlineKindFixed},
		},
	}
	c := req.Constraints()
	table := NewAvailabilityTable(req.Dates(), c)

	assert.Empty(t, c.Commitments.Dated[monday.AddDays(2)])
	assert.Equal(t, table.Free(monday), table.Free(monday.AddDays(2)))
}

func TestSleepWindowsCrossingMidnight(t *testing.T) {
	windows := sleepWindows(Monday, MustClock("23:00"), 7*60)
	require.Len(t, windows, 2)
	assert.Equal(t, Interval{Start: 0, End: MustClock("06:00")}, windows[0].Interval())
	assert.Equal(t, Interval{Start: MustClock("23:00"), End: minutesPerDay}, windows[1].Interval())

	sprint := sleepWindows(Monday, MustClock("00:00"), 6*60)
	require.Len(t, sprint, 1)
	assert.Equal(t, Interval{Start: 0, End: MustClock("06:00")}, sprint[0].Interval())
}
