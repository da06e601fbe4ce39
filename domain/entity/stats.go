package entity

// Stats is an aggregate snapshot over an owner's full todo list.
// CompletionRate is a fraction in [0,1]; presentation layers scale it.
type Stats struct {
	Total          int             `json:"total"`
	Completed      int             `json:"completed"`
	Pending        int             `json:"pending"`
	CompletionRate float64         `json:"completionRate"`
	TodayCompleted int             `json:"todayCompleted"`
	WeekCompleted  int             `json:"weekCompleted"`
	MonthCompleted int             `json:"monthCompleted"`
	ByCategory     []CategoryStats `json:"byCategory"`
	ByPriority     []PriorityStats `json:"byPriority"`
}

// CategoryStats is the breakdown for one category
type CategoryStats struct {
	Category       Category `json:"category"`
	Total          int      `json:"total"`
	Completed      int      `json:"completed"`
	CompletionRate float64  `json:"completionRate"`
}

// PriorityStats is the breakdown for one priority
type PriorityStats struct {
	Priority       Priority `json:"priority"`
	Total          int      `json:"total"`
	Completed      int      `json:"completed"`
	CompletionRate float64  `json:"completionRate"`
}

// Category returns the breakdown entry for c, if c has any todos
func (s Stats) Category(c Category) (CategoryStats, bool) {
	for _, cs := range s.ByCategory {
		if cs.Category == c {
			return cs, true
		}
	}
	return CategoryStats{}, false
}

// Priority returns the breakdown entry for p, if p has any todos
func (s Stats) Priority(p Priority) (PriorityStats, bool) {
	for _, ps := range s.ByPriority {
		if ps.Priority == p {
			return ps, true
		}
	}
	return PriorityStats{}, false
}
