package tasks

import "github.com/taskpro/backend/internal/models"

// Stats is the dashboard summary of one organization's tasks.
// Overdue counts tasks the sweeper has expired.
type Stats struct {
	Total      int                         `json:"total"`
	Overdue    int                         `json:"overdue"`
	Completed  int                         `json:"completed"`
	ByCategory map[models.TaskCategory]int `json:"byCategory"`
	ByPriority map[models.TaskPriority]int `json:"byPriority"`
}

// ComputeStats scans list. Every category and priority key is present.
func ComputeStats(list []*models.Task) *Stats {
	st := &Stats{
		ByCategory: make(map[models.TaskCategory]int, len(models.TaskCategories)),
		ByPriority: make(map[models.TaskPriority]int, len(models.TaskPriorities)),
	}
	for _, c := range models.TaskCategories {
		st.ByCategory[c] = 0
	}
	for _, p := range models.TaskPriorities {
		st.ByPriority[p] = 0
	}
	for _, t := range list {
		st.Total++
		switch t.Status {
		case models.StatusExpired:
			st.Overdue++
		case models.StatusCompleted:
			st.Completed++
		}
		st.ByCategory[t.Category]++
		st.ByPriority[t.Priority]++
	}
	return st
}
