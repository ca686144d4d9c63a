package planner

// SessionBounds limits the length of a single study block, in minutes.
type SessionBounds struct {
	MinMinutes int `json:"minMinutes"`
	MaxMinutes int `json:"maxMinutes"`
}

// DefaultSessionBounds is one to two hours per block.
var DefaultSessionBounds = SessionBounds{MinMinutes: 60, MaxMinutes: 120}

func (b SessionBounds) orDefault() SessionBounds {
	if b.MinMinutes <= 0 {
		b.MinMinutes = DefaultSessionBounds.MinMinutes
	}
	if b.MaxMinutes <= 0 {
		b.MaxMinutes = DefaultSessionBounds.MaxMinutes
	}
	if b.MaxMinutes < b.MinMinutes {
		b.MaxMinutes = b.MinMinutes
	}
	return b
}

// AllocationRequest asks for TargetMinutes of study for one deadline.
type AllocationRequest struct {
	DeadlineID    string
	Label         string
	TargetMinutes int
	Dates         []Date
	Bounds        SessionBounds
}

// AllocationResult lists the carved blocks and what could not be placed.
type AllocationResult struct {
	Blocks           []SessionBlock
	AllocatedMinutes int
	ShortfallMinutes int
}

// Allocate packs the target into blocks over the valid dates, earliest date
// first and chronologically within a date. Every block is consumed from table
// as soon as it is carved. The first pass spreads the target evenly over the
// remaining dates; the second fills whatever is left first-fit.
func Allocate(req AllocationRequest, table *AvailabilityTable) AllocationResult {
	bounds := req.Bounds.orDefault()
	remaining := req.TargetMinutes
	var blocks []SessionBlock

	for i, date := range req.Dates {
		if remaining <= 0 {
			break
		}
		quota := ceilDiv(remaining, len(req.Dates)-i)
		if floor := minInt(bounds.MinMinutes, remaining); quota < floor {
			quota = floor
		}
		carved := carveDay(table, date, quota, remaining, bounds, req)
		for _, b := range carved {
			remaining -= b.Minutes()
		}
		blocks = append(blocks, carved...)
	}

	for _, date := range req.Dates {
		if remaining <= 0 {
			break
		}
		carved := carveDay(table, date, remaining, remaining, bounds, req)
		for _, b := range carved {
			remaining -= b.Minutes()
		}
		blocks = append(blocks, carved...)
	}

	sortBlocks(blocks)
	return AllocationResult{
		Blocks:           blocks,
		AllocatedMinutes: req.TargetMinutes - remaining,
		ShortfallMinutes: remaining,
	}
}

// carveDay places blocks on one date until the quota, the daily cap or the
// free time runs out. A block shorter than the minimum session is only carved
// when it closes the remaining target.
func carveDay(table *AvailabilityTable, date Date, quota, remaining int, bounds SessionBounds, req AllocationRequest) []SessionBlock {
	var out []SessionBlock
	taken := 0
	for taken < quota && remaining > 0 {
		floor := minInt(bounds.MinMinutes, remaining)
		limit := minInt(bounds.MaxMinutes, table.CapLeft(date), remaining, quota-taken)
		if limit < floor {
			break
		}
		placed := false
		for _, iv := range table.Free(date) {
			length := minInt(limit, iv.Minutes())
			if length < floor {
				continue
			}
			slot := Interval{Start: iv.Start, End: iv.Start + Clock(length)}
			table.Consume(date, slot, true)
			out = append(out, SessionBlock{
				Date:       date,
				Start:      slot.Start,
				End:        slot.End,
				Category:   CategoryStudy,
				DeadlineID: req.DeadlineID,
				Label:      req.Label,
			})
			taken += length
			remaining -= length
			placed = true
			break
		}
		if !placed {
			break
		}
	}
	return out
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
