package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Priority is the urgency of a todo, encoded by its symbolic name
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Priorities lists every priority in display order
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

type priorityMeta struct {
	label string
	color uint32
}

var priorityInfo = map[Priority]priorityMeta{
	PriorityLow:    {label: "Low", color: 0xFF4CAF50},
	PriorityMedium: {label: "Medium", color: 0xFFFF9800},
	PriorityHigh:   {label: "High", color: 0xFFF44336},
}

// ParsePriority resolves a symbolic name, case-insensitively
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := priorityInfo[p]
	return p, ok
}

// PriorityOrDefault resolves a symbolic name, falling back to MEDIUM
func PriorityOrDefault(s string) Priority {
	if p, ok := ParsePriority(s); ok {
		return p
	}
	return PriorityMedium
}

// Valid reports whether p is one of the fixed priorities
func (p Priority) Valid() bool {
	_, ok := priorityInfo[p]
	return ok
}

// Label returns the display label
func (p Priority) Label() string {
	return priorityInfo[p].label
}

// Color returns the ARGB display colour
func (p Priority) Color() uint32 {
	return priorityInfo[p].color
}

// UnmarshalJSON decodes unknown or malformed values as MEDIUM
func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*p = PriorityMedium
		return nil
	}
	*p = PriorityOrDefault(s)
	return nil
}

// Scan implements sql.Scanner for Priority
func (p *Priority) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = PriorityMedium
	case []byte:
		*p = PriorityOrDefault(string(v))
	case string:
		*p = PriorityOrDefault(v)
	default:
		return fmt.Errorf("unsupported type for Priority: %T", value)
	}
	return nil
}

// Value implements driver.Valuer for Priority
func (p Priority) Value() (driver.Value, error) {
	return string(p), nil
}

// Category groups todos by area of life, encoded by its symbolic name
type Category string

const (
	CategoryWork     Category = "WORK"
	CategoryPersonal Category = "PERSONAL"
	CategoryStudy    Category = "STUDY"
	CategoryHealth   Category = "HEALTH"
	CategoryShopping Category = "SHOPPING"
	CategoryHome     Category = "HOME"
	CategoryOther    Category = "OTHER"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryStudy,
	CategoryHealth,
	CategoryShopping,
	CategoryHome,
	CategoryOther,
}

type categoryMeta struct {
	label string
	icon  string
	color uint32
}

var categoryInfo = map[Category]categoryMeta{
	CategoryWork:     {label: "Work", icon: "💼", color: 0xFF2196F3},
	CategoryPersonal: {label: "Personal", icon: "👤", color: 0xFF9C27B0},
	CategoryStudy:    {label: "Study", icon: "📚", color: 0xFF00BCD4},
	CategoryHealth:   {label: "Health", icon: "💪", color: 0xFF4CAF50},
	CategoryShopping: {label: "Shopping", icon: "🛒", color: 0xFFFF5722},
	CategoryHome:     {label: "Home", icon: "🏠", color: 0xFF795548},
	CategoryOther:    {label: "Other", icon: "📝", color: 0xFF607D8B},
}

// ParseCategory resolves a symbolic name, case-insensitively
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := categoryInfo[c]
	return c, ok
}

// CategoryOrDefault resolves a symbolic name, falling back to PERSONAL
func CategoryOrDefault(s string) Category {
	if c, ok := ParseCategory(s); ok {
		return c
	}
	return CategoryPersonal
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	_, ok := categoryInfo[c]
	return ok
}

// Label returns the display label
func (c Category) Label() string {
	return categoryInfo[c].label
}

// Icon returns the display icon
func (c Category) Icon() string {
	return categoryInfo[c].icon
}

// Color returns the ARGB display colour
func (c Category) Color() uint32 {
	return categoryInfo[c].color
}

// UnmarshalJSON decodes unknown or malformed values as PERSONAL
func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*c = CategoryPersonal
		return nil
	}
	*c = CategoryOrDefault(s)
	return nil
}

// Scan implements sql.Scanner for Category
func (c *Category) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = CategoryPersonal
	case []byte:
		*c = CategoryOrDefault(string(v))
	case string:
		*c = CategoryOrDefault(v)
	default:
		return fmt.Errorf("unsupported type for Category: %T", value)
	}
	return nil
}

// Value implements driver.Valuer for Category
func (c Category) Value() (driver.Value, error) {
	return string(c), nil
}
