package planner

import "sort"

// DeadlineKind separates allocatable work from deadlines pinned to a timetable slot.
type DeadlineKind string

const (
	DeadlineKindFlexible DeadlineKind = "flexible"
	DeadlineKindFixed    DeadlineKind = "fixed"
)

// Deadline is a task with a due date and an effort estimate.
type Deadline struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	DueDate       Date         `json:"dueDate"`
	RequiredHours float64      `json:"requiredHours"`
	Notes         string       `json:"notes,omitempty"`
	Kind          DeadlineKind `json:"kind"`
	ExamSlot      *Interval    `json:"examSlot,omitempty"`
}

// IsWeak reports whether the notes flag the subject as a self-reported weakness.
func (d Deadline) IsWeak() bool {
	return IsWeakSubject(d.Notes)
}

// RequiredMinutes is the effort after weak-subject inflation.
func (d Deadline) RequiredMinutes() int {
	if d.IsWeak() {
		return hoursToMinutes(d.RequiredHours * WeakSubjectMultiplier)
	}
	return hoursToMinutes(d.RequiredHours)
}

func (d Deadline) Fixed() bool {
	return d.Kind == DeadlineKindFixed
}

// CommitmentSource records where a fixed commitment came from.
type CommitmentSource string

const (
	SourceTimetable CommitmentSource = "timetable"
	SourceSleep     CommitmentSource = "sleep"
	SourceMeal      CommitmentSource = "meal"
	SourceExam      CommitmentSource = "exam"
)

// FixedCommitment is an immovable weekly block of time.
type FixedCommitment struct {
	Day    Weekday          `json:"day"`
	Start  Clock            `json:"start"`
	End    Clock            `json:"end"`
	Label  string           `json:"label"`
	Source CommitmentSource `json:"source"`
}

func (c FixedCommitment) Interval() Interval {
	return Interval{Start: c.Start, End: c.End}
}

func (c FixedCommitment) Category() Category {
	switch c.Source {
	case SourceSleep:
		return CategorySleep
	case SourceMeal:
		return CategoryMeal
	default:
		return CategoryClass
	}
}

// LifestylePrefs drive the derived sleep and meal commitments.
type LifestylePrefs struct {
	SleepHours    float64 `json:"sleepHours"`
	LunchMinutes  int     `json:"lunchMinutes"`
	DinnerMinutes int     `json:"dinnerMinutes"`
}

// HardLimits are never relaxed by allocation or repair.
type HardLimits struct {
	NoStudyAfter23  bool `json:"noStudyAfter23"`
	NoStudyOnSunday bool `json:"noStudyOnSunday"`
}

// Category classifies a session block.
type Category string

const (
	CategoryStudy Category = "study"
	CategoryMeal  Category = "meal"
	CategorySleep Category = "sleep"
	CategoryBreak Category = "break"
	CategoryClass Category = "class"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryStudy, CategoryMeal, CategorySleep, CategoryBreak, CategoryClass:
		return true
	}
	return false
}

// SessionBlock is one contiguous scheduled activity.
type SessionBlock struct {
	Date       Date     `json:"date"`
	Start      Clock    `json:"start"`
	End        Clock    `json:"end"`
	Category   Category `json:"category"`
	DeadlineID string   `json:"deadlineId,omitempty"`
	Label      string   `json:"label"`
	Locked     bool     `json:"locked,omitempty"`
}

func (b SessionBlock) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

func (b SessionBlock) Minutes() int {
	return b.Interval().Minutes()
}

func (b SessionBlock) IsStudy() bool {
	return b.Category == CategoryStudy
}

// WeekPlan groups blocks of one horizon week by weekday.
type WeekPlan struct {
	Week      int                        `json:"week"`
	StartDate Date                       `json:"startDate"`
	EndDate   Date                       `json:"endDate"`
	Days      map[Weekday][]SessionBlock `json:"days"`
}

// Blocks flattens the plan in date then start order.
func (w WeekPlan) Blocks() []SessionBlock {
	var out []SessionBlock
	for _, blocks := range w.Days {
		out = append(out, blocks...)
	}
	sortBlocks(out)
	return out
}

// ReconciliationStatus classifies actual against target hours.
type ReconciliationStatus string

const (
	StatusMet   ReconciliationStatus = "met"
	StatusOver  ReconciliationStatus = "over"
	StatusUnder ReconciliationStatus = "under"
)

// HoursReconciliation compares allocated hours to the target of one deadline.
type HoursReconciliation struct {
	DeadlineID  string               `json:"deadlineId"`
	Title       string               `json:"title"`
	TargetHours float64              `json:"targetHours"`
	ActualHours float64              `json:"actualHours"`
	DeltaHours  float64              `json:"deltaHours"`
	Status      ReconciliationStatus `json:"status"`
}

// AllocationStatus reports how much of a deadline the assembler placed.
type AllocationStatus string

const (
	AllocationFull       AllocationStatus = "full"
	AllocationPartial    AllocationStatus = "partial"
	AllocationNone       AllocationStatus = "none"
	AllocationInfeasible AllocationStatus = "infeasible"
	AllocationFixed      AllocationStatus = "fixed"
)

// DeadlineAllocation is the assembler outcome for one deadline.
type DeadlineAllocation struct {
	DeadlineID       string           `json:"deadlineId"`
	Status           AllocationStatus `json:"status"`
	TargetMinutes    int              `json:"targetMinutes"`
	AllocatedMinutes int              `json:"allocatedMinutes"`
	ShortfallMinutes int              `json:"shortfallMinutes"`
	Weak             bool             `json:"weak"`
}

var categoryOrder = map[Category]int{
	CategorySleep: 0,
	CategoryClass: 1,
	CategoryMeal:  2,
	CategoryBreak: 3,
	CategoryStudy: 4,
}

// sortBlocks orders blocks by date, start, end, category, deadline and label.
func sortBlocks(blocks []SessionBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Category != b.Category {
			return categoryOrder[a.Category] < categoryOrder[b.Category]
		}
		if a.DeadlineID != b.DeadlineID {
			return a.DeadlineID < b.DeadlineID
		}
		return a.Label < b.Label
	})
}
