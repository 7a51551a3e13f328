package scheduler

import (
	"fmt"
	"sort"
	"time"

	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
)

// Allocate packs task demand into free intervals, earliest deadline first.
//
// Intervals are consumed front to back through a shared cursor, so chunks for
// different tasks never overlap and leftover capacity after one task stays
// available to the next. A chunk is placed only when it fits the session
// bounds and ends at or before the task's deadline; free blocks longer than
// the maximum session are split into back-to-back chunks.
//
// While several tasks still have unplaced demand, a single task may claim at
// most MaxDailyShare of any one day's free minutes; a second pass then
// re-offers leftover capacity with the cap lifted so lone stragglers can
// absorb whole days. Infeasibility is reported through the returned task ids,
// never as an error; only malformed input errors out.
func Allocate(queue []Demand, intervals []FreeInterval, cfg Config) ([]Chunk, []string, error) {
	if cfg.MinSessionMinutes <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "min session minutes must be positive")
	}
	if cfg.MaxSessionMinutes < cfg.MinSessionMinutes {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "max session minutes must be >= min session minutes")
	}
	for _, demand := range queue {
		if demand.RequiredMinutes <= 0 {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("task %s has non-positive required minutes", demand.TaskID))
		}
	}

	slots := make([]slot, 0, len(intervals))
	dayTotals := make(map[string]int)
	for _, interval := range intervals {
		if !interval.Start.Before(interval.End) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("malformed interval: end %s not after start %s", interval.End, interval.Start))
		}
		slots = append(slots, slot{start: interval.Start, end: interval.End, cursor: interval.Start})
		dayTotals[dateKey(interval.Start)] += interval.Minutes()
	}
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].start.Equal(slots[j].start) {
			return slots[i].start.Before(slots[j].start)
		}
		return slots[i].end.Before(slots[j].end)
	})

	state := &allocState{
		slots:     slots,
		cfg:       cfg,
		dayTotals: dayTotals,
		dayUsed:   make(map[string]int),
		placed:    make(map[string]int),
	}

	// First pass: fair share. The cap only binds while siblings compete.
	applyCap := len(queue) > 1 && cfg.MaxDailyShare > 0 && cfg.MaxDailyShare < 1
	var chunks []Chunk
	for i := range queue {
		chunks = state.place(&queue[i], chunks, applyCap)
	}

	// Relaxation pass: whatever stayed free is re-offered to tasks that are
	// still short, cap lifted. Deadlines and session bounds still hold.
	if applyCap {
		for i := range queue {
			if state.placed[queue[i].TaskID] < queue[i].RequiredMinutes {
				chunks = state.place(&queue[i], chunks, false)
			}
		}
	}

	sort.Slice(chunks, func(i, j int) bool {
		if !chunks[i].Start.Equal(chunks[j].Start) {
			return chunks[i].Start.Before(chunks[j].Start)
		}
		return chunks[i].TaskID < chunks[j].TaskID
	})

	var unscheduled []string
	for _, demand := range queue {
		if state.placed[demand.TaskID] < demand.RequiredMinutes {
			unscheduled = append(unscheduled, demand.TaskID)
		}
	}

	return chunks, unscheduled, nil
}

type slot struct {
	start  time.Time
	end    time.Time
	cursor time.Time
}

type allocState struct {
	slots     []slot
	cfg       Config
	dayTotals map[string]int
	dayUsed   map[string]int // taskID|date -> minutes consumed by that task that day
	placed    map[string]int // taskID -> total minutes placed
}

func (a *allocState) place(demand *Demand, chunks []Chunk, applyCap bool) []Chunk {
	need := demand.RequiredMinutes - a.placed[demand.TaskID]

	for i := range a.slots {
		if need <= 0 {
			break
		}
		s := &a.slots[i]
		if !s.cursor.Before(demand.DueAt) {
			break
		}

		usableEnd := s.end
		if demand.DueAt.Before(usableEnd) {
			usableEnd = demand.DueAt
		}

		day := dateKey(s.start)
		for need > 0 && s.cursor.Before(usableEnd) {
			avail := int(usableEnd.Sub(s.cursor) / time.Minute)
			if avail < a.cfg.MinSessionMinutes {
				break
			}

			take := need
			if take > avail {
				take = avail
			}
			if take > a.cfg.MaxSessionMinutes {
				take = a.cfg.MaxSessionMinutes
			}

			if applyCap {
				allowed := int(a.cfg.MaxDailyShare * float64(a.dayTotals[day]))
				if allowed < a.cfg.MinSessionMinutes {
					allowed = a.cfg.MinSessionMinutes
				}
				capLeft := allowed - a.dayUsed[capKey(demand.TaskID, day)]
				if capLeft < a.cfg.MinSessionMinutes {
					break
				}
				if take > capLeft {
					take = capLeft
				}
			}

			// Tail shorter than a workable session: leave the capacity for
			// someone else; the shortfall surfaces as a diagnostic.
			if take < a.cfg.MinSessionMinutes {
				break
			}

			chunkStart := s.cursor
			chunkEnd := chunkStart.Add(time.Duration(take) * time.Minute)
			chunks = append(chunks, Chunk{
				TaskID:   demand.TaskID,
				CourseID: demand.CourseID,
				Start:    chunkStart,
				End:      chunkEnd,
				Minutes:  take,
			})

			s.cursor = chunkEnd
			need -= take
			a.placed[demand.TaskID] += take
			a.dayUsed[capKey(demand.TaskID, day)] += take
		}
	}

	return chunks
}

func capKey(taskID, day string) string {
	return taskID + "|" + day
}
