package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/studyflow/studyflow-api/internal/models"
	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
)

// ResolveAvailability expands weekly rules plus date exceptions into the
// concrete free intervals inside [from, to). Exceptions fully replace the
// weekly pattern for their date. Per day, intervals come out sorted by start
// with overlapping or touching windows merged. Days without an applicable
// rule contribute nothing.
func ResolveAvailability(rules []models.AvailabilityRule, exceptions []models.AvailabilityException, from, to time.Time) ([]FreeInterval, error) {
	if !from.Before(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "horizon end must be after start")
	}

	byWeekday := make(map[models.Weekday][]clockWindow)
	for _, rule := range rules {
		window, err := parseWindow(rule.StartTime, rule.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("availability rule %s is invalid", rule.ID))
		}
		if window.empty() {
			continue
		}
		byWeekday[rule.DayOfWeek] = append(byWeekday[rule.DayOfWeek], window)
	}

	byDate := make(map[string][]clockWindow)
	blocked := make(map[string]bool)
	for _, exc := range exceptions {
		key := dateKey(exc.Date)
		if !exc.IsAvailable {
			blocked[key] = true
			if _, seen := byDate[key]; !seen {
				byDate[key] = nil
			}
			continue
		}
		window, err := parseWindow(exc.StartTime, exc.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("availability exception %s is invalid", exc.ID))
		}
		if window.empty() {
			continue
		}
		byDate[key] = append(byDate[key], window)
	}

	loc := from.Location()
	var intervals []FreeInterval
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	for day.Before(to) {
		key := dateKey(day)

		var windows []clockWindow
		if dayWindows, overridden := byDate[key]; overridden || blocked[key] {
			windows = dayWindows
		} else {
			windows = byWeekday[models.WeekdayOf(day.Weekday())]
		}

		for _, window := range mergeWindows(windows) {
			interval := FreeInterval{
				Start: day.Add(time.Duration(window.startMin) * time.Minute),
				End:   day.Add(time.Duration(window.endMin) * time.Minute),
			}
			// Clamp to the horizon so a replan mid-window only offers the
			// remaining part of it.
			if interval.Start.Before(from) {
				interval.Start = from
			}
			if interval.End.After(to) {
				interval.End = to
			}
			if interval.Start.Before(interval.End) {
				intervals = append(intervals, interval)
			}
		}

		day = day.AddDate(0, 0, 1)
	}

	return intervals, nil
}

// SubtractBusy removes the time occupied by busy blocks from the free set.
// Both inputs must be sorted by start; the result preserves order.
func SubtractBusy(free, busy []FreeInterval) []FreeInterval {
	if len(busy) == 0 {
		return free
	}

	var result []FreeInterval
	for _, interval := range free {
		segments := []FreeInterval{interval}
		for _, block := range busy {
			var next []FreeInterval
			for _, seg := range segments {
				if block.End.Before(seg.Start) || !block.Start.Before(seg.End) || block.End.Equal(seg.Start) {
					next = append(next, seg)
					continue
				}
				if block.Start.After(seg.Start) {
					next = append(next, FreeInterval{Start: seg.Start, End: block.Start})
				}
				if block.End.Before(seg.End) {
					next = append(next, FreeInterval{Start: block.End, End: seg.End})
				}
			}
			segments = next
		}
		result = append(result, segments...)
	}
	return result
}

type clockWindow struct {
	startMin int
	endMin   int
}

func (w clockWindow) empty() bool {
	return w.endMin <= w.startMin
}

func parseWindow(start, end string) (clockWindow, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return clockWindow{}, err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return clockWindow{}, err
	}
	if endMin < startMin {
		return clockWindow{}, fmt.Errorf("window end %s precedes start %s", end, start)
	}
	// Equal start and end is a zero-length window: dropped, not an error.
	return clockWindow{startMin: startMin, endMin: endMin}, nil
}

func parseClock(raw string) (int, error) {
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

func mergeWindows(windows []clockWindow) []clockWindow {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]clockWindow, 0, len(windows))
	for _, w := range windows {
		if !w.empty() {
			sorted = append(sorted, w)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].startMin == sorted[j].startMin {
			return sorted[i].endMin < sorted[j].endMin
		}
		return sorted[i].startMin < sorted[j].startMin
	})

	var merged []clockWindow
	for _, w := range sorted {
		if len(merged) > 0 && w.startMin <= merged[len(merged)-1].endMin {
			if w.endMin > merged[len(merged)-1].endMin {
				merged[len(merged)-1].endMin = w.endMin
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
