package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskpro/backend/internal/models"
)

func TestComputeStatsEmptyHasAllKeys(t *testing.T) {
	st := ComputeStats(nil)
	assert.Zero(t, st.Total)
	assert.Len(t, st.ByCategory, len(models.TaskCategories))
	assert.Len(t, st.ByPriority, len(models.TaskPriorities))
	for _, c := range models.TaskCategories {
		v, ok := st.ByCategory[c]
		assert.True(t, ok, string(c))
		assert.Zero(t, v)
	}
}

func TestComputeStats(t *testing.T) {
	list := []*models.Task{
		{Status: models.StatusExpired, Category: models.CategoryBug, Priority: models.PriorityHigh},
		{Status: models.StatusExpired, Category: models.CategoryBug, Priority: models.PriorityLow},
		{Status: models.StatusCompleted, Category: models.CategoryFeature, Priority: models.PriorityHigh},
		{Status: models.StatusTodo, Category: models.CategoryImprovement, Priority: models.PriorityMedium},
	}
	st := ComputeStats(list)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.Overdue)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, map[models.TaskCategory]int{
		models.CategoryBug: 2, models.CategoryFeature: 1, models.CategoryImprovement: 1,
	}, st.ByCategory)
	assert.Equal(t, map[models.TaskPriority]int{
		models.PriorityLow: 1, models.PriorityMedium: 1, models.PriorityHigh: 2,
	}, st.ByPriority)
}
