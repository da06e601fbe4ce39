package todo

import (
	"time"

	"todoflow/domain/entity"
)

const (
	dayMillis int64 = 24 * 60 * 60 * 1000
	weekDays  int64 = 6
	monthDays int64 = 29
)

// ComputeStats summarizes the unfiltered list as of now.
//
// Days are UTC epoch days. The today/week/month counters count completed
// todos by their creation time, not their completion time.
func ComputeStats(todos []entity.Todo, now time.Time) entity.Stats {
	nowMs := now.UnixMilli()
	startOfDay := nowMs - nowMs%dayMillis
	startOfWeek := startOfDay - weekDays*dayMillis
	startOfMonth := startOfDay - monthDays*dayMillis

	stats := entity.Stats{
		ByCategory: []entity.CategoryStats{},
		ByPriority: []entity.PriorityStats{},
	}

	for _, t := range todos {
		stats.Total++
		if !t.Completed {
			continue
		}
		stats.Completed++
		if t.CreatedAt >= startOfDay {
			stats.TodayCompleted++
		}
		if t.CreatedAt >= startOfWeek {
			stats.WeekCompleted++
		}
		if t.CreatedAt >= startOfMonth {
			stats.MonthCompleted++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	stats.CompletionRate = rate(stats.Completed, stats.Total)

	for _, c := range entity.Categories {
		total, completed := 0, 0
		for _, t := range todos {
			if t.Category == c {
				total++
				if t.Completed {
					completed++
				}
			}
		}
		if total == 0 {
			continue
		}
		stats.ByCategory = append(stats.ByCategory, entity.CategoryStats{
			Category:       c,
			Total:          total,
			Completed:      completed,
			CompletionRate: rate(completed, total),
		})
	}

	for _, p := range entity.Priorities {
		total, completed := 0, 0
		for _, t := range todos {
			if t.Priority == p {
				total++
				if t.Completed {
					completed++
				}
			}
		}
		if total == 0 {
			continue
		}
		stats.ByPriority = append(stats.ByPriority, entity.PriorityStats{
			Priority:       p,
			Total:          total,
			Completed:      completed,
			CompletionRate: rate(completed, total),
		})
	}

	return stats
}

func rate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total)
}
