package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoflow/domain/entity"
	"todoflow/todo"
)

func TestTimestampUnmarshal(t *testing.T) {
	want := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"epoch millis", `1741944600000`},
		{"epoch millis string", `"1741944600000"`},
		{"rfc3339", `"2025-03-14T09:30:00Z"`},
		{"offset", `"2025-03-14T17:30:00+08:00"`},
		{"no zone", `"2025-03-14T09:30:00"`},
		{"space separated", `"2025-03-14 09:30"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ts))
			assert.True(t, want.Equal(ts.Time), "got %v", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &ts))
}

func TestTimestampNullAndMarshal(t *testing.T) {
	var req CreateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","reminderTime":null}`), &req))
	assert.Nil(t, req.ToNewTask().ReminderTime)

	b, err := json.Marshal(Timestamp{Time: time.UnixMilli(1741944600000)})
	require.NoError(t, err)
	assert.Equal(t, "1741944600000", string(b))
}

func TestCreateRequestDefaults(t *testing.T) {
	req := CreateTodoRequest{Title: "x", Priority: "urgent", Category: "", Tags: []string{" a ", ""}}
	task := req.ToNewTask()
	assert.Equal(t, entity.PriorityMedium, task.Priority)
	assert.Equal(t, entity.CategoryPersonal, task.Category)
	assert.Equal(t, []string{"a"}, task.Tags)
}

func TestFiltersRequest(t *testing.T) {
	work := entity.CategoryWork
	current := todo.Filters{Category: &work, ShowCompleted: true}

	no := false
	out, err := FiltersRequest{Priority: "high", ShowCompleted: &no}.ToFilters(current)
	require.NoError(t, err)
	require.NotNil(t, out.Category)
	assert.Equal(t, entity.CategoryWork, *out.Category)
	require.NotNil(t, out.Priority)
	assert.Equal(t, entity.PriorityHigh, *out.Priority)
	assert.False(t, out.ShowCompleted)

	out, err = FiltersRequest{Category: "ALL"}.ToFilters(current)
	require.NoError(t, err)
	assert.Nil(t, out.Category)

	_, err = FiltersRequest{Category: "garden"}.ToFilters(current)
	assert.Error(t, err)

	assert.True(t, FiltersRequest{}.Empty())
}

func TestStatsResponsePercentages(t *testing.T) {
	resp := NewStatsResponse(entity.Stats{
		Total: 3, Completed: 2, CompletionRate: 2.0 / 3.0,
		ByCategory: []entity.CategoryStats{{Category: entity.CategoryHome, Total: 3, Completed: 2, CompletionRate: 2.0 / 3.0}},
	})
	assert.Equal(t, 67, resp.CompletionPercent)
	require.Len(t, resp.ByCategory, 1)
	assert.Equal(t, "Home", resp.ByCategory[0].Label)
	assert.NotNil(t, resp.ByPriority)
}
