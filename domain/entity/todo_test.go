package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoUnmarshalDefaults(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantPriority Priority
		wantCategory Category
		wantTags     []string
		wantReminder bool
	}{
		{
			name:         "Known enums are kept",
			input:        `{"title":"a","priority":"HIGH","category":"WORK","tags":["x"]}`,
			wantPriority: PriorityHigh,
			wantCategory: CategoryWork,
			wantTags:     []string{"x"},
		},
		{
			name:         "Missing fields fall back",
			input:        `{"title":"a"}`,
			wantPriority: PriorityMedium,
			wantCategory: CategoryPersonal,
			wantTags:     []string{},
		},
		{
			name:         "Unknown enums fall back",
			input:        `{"title":"a","priority":"URGENT","category":"GARDEN","tags":null}`,
			wantPriority: PriorityMedium,
			wantCategory: CategoryPersonal,
			wantTags:     []string{},
		},
		{
			name:         "Wrong enum types fall back",
			input:        `{"title":"a","priority":3,"category":true,"reminderTime":1700000000000}`,
			wantPriority: PriorityMedium,
			wantCategory: CategoryPersonal,
			wantTags:     []string{},
			wantReminder: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var todo Todo
			require.NoError(t, json.Unmarshal([]byte(tt.input), &todo))

			assert.Equal(t, tt.wantPriority, todo.Priority)
			assert.Equal(t, tt.wantCategory, todo.Category)
			assert.Equal(t, tt.wantTags, todo.Tags)
			assert.Equal(t, tt.wantReminder, todo.ReminderTime != nil)
			assert.Zero(t, todo.CreatedAt)
		})
	}
}

func TestTodoMarshalUsesSymbolicNames(t *testing.T) {
	todo := Todo{ID: "t1", Title: "a", Priority: PriorityHigh, Category: CategoryShopping, Tags: []string{}}

	b, err := json.Marshal(todo)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "HIGH", raw["priority"])
	assert.Equal(t, "SHOPPING", raw["category"])
	assert.Nil(t, raw["reminderTime"])
}

func TestTodoCloneIsDeep(t *testing.T) {
	rt := int64(42)
	orig := Todo{ID: "t1", Tags: []string{"a"}, ReminderTime: &rt}

	c := orig.Clone()
	c.Tags[0] = "b"
	*c.ReminderTime = 7

	assert.Equal(t, "a", orig.Tags[0])
	assert.Equal(t, int64(42), *orig.ReminderTime)
}

func TestParseEnums(t *testing.T) {
	p, ok := ParsePriority("high")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)

	_, ok = ParsePriority("none")
	assert.False(t, ok)

	c, ok := ParseCategory(" home ")
	assert.True(t, ok)
	assert.Equal(t, CategoryHome, c)

	assert.Equal(t, CategoryPersonal, CategoryOrDefault(""))
	assert.Len(t, Categories, 7)
	for _, c := range Categories {
		assert.NotEmpty(t, c.Label())
		assert.NotEmpty(t, c.Icon())
		assert.NotZero(t, c.Color())
	}
}

func TestEnumScan(t *testing.T) {
	var p Priority
	require.NoError(t, p.Scan([]byte("LOW")))
	assert.Equal(t, PriorityLow, p)
	require.NoError(t, p.Scan(nil))
	assert.Equal(t, PriorityMedium, p)
	assert.Error(t, p.Scan(12))

	var c Category
	require.NoError(t, c.Scan("STUDY"))
	assert.Equal(t, CategoryStudy, c)
	require.NoError(t, c.Scan("bogus"))
	assert.Equal(t, CategoryPersonal, c)
}
