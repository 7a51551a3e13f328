package scheduler

// Report classifies every unscheduled task into an actionable diagnostic.
// It is a pure function of the run's inputs and outputs: the same queue,
// chunks and interval set always yield the same diagnostics.
//
// A task with some minutes placed is partially scheduled. A task with
// nothing placed is infeasible: "deadline_too_soon" when its due instant
// falls before the earliest interval could complete even a minimum-length
// chunk, "insufficient_availability" otherwise.
func Report(queue []Demand, chunks []Chunk, unscheduled []string, intervals []FreeInterval, minSessionMinutes int) []Diagnostic {
	if len(unscheduled) == 0 {
		return nil
	}

	placed := make(map[string]int, len(queue))
	for _, chunk := range chunks {
		placed[chunk.TaskID] += chunk.Minutes
	}

	demands := make(map[string]Demand, len(queue))
	for _, demand := range queue {
		demands[demand.TaskID] = demand
	}

	diagnostics := make([]Diagnostic, 0, len(unscheduled))
	for _, taskID := range unscheduled {
		demand, ok := demands[taskID]
		if !ok {
			continue
		}

		minutes := placed[taskID]
		if minutes > 0 {
			diagnostics = append(diagnostics, Diagnostic{
				TaskID:          taskID,
				Kind:            DiagnosticPartiallyScheduled,
				MinutesPlaced:   minutes,
				MinutesRequired: demand.RequiredMinutes,
			})
			continue
		}

		diagnostics = append(diagnostics, Diagnostic{
			TaskID:          taskID,
			Kind:            DiagnosticInfeasible,
			Reason:          infeasibleReason(demand, intervals, minSessionMinutes),
			MinutesRequired: demand.RequiredMinutes,
		})
	}

	return diagnostics
}

func infeasibleReason(demand Demand, intervals []FreeInterval, minSessionMinutes int) InfeasibleReason {
	for _, interval := range intervals {
		if interval.Minutes() < minSessionMinutes {
			continue
		}
		firstChunkEnd := interval.Start.Add(minuteDuration(minSessionMinutes))
		if demand.DueAt.Before(firstChunkEnd) {
			return ReasonDeadlineTooSoon
		}
		return ReasonInsufficientAvailability
	}
	return ReasonInsufficientAvailability
}
