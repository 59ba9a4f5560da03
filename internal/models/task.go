package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is a task's position in its lifecycle.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "Todo"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusExpired    TaskStatus = "Expired"
)

// TaskStatuses lists every status in lifecycle order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusCompleted, StatusExpired}

// ParseTaskStatus accepts the stored form and the compact "InProgress" spelling.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "todo":
		return StatusTodo, true
	case "inprogress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	case "expired":
		return StatusExpired, true
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Expirable reports whether the sweeper may move s to Expired.
func (s TaskStatus) Expirable() bool {
	return s == StatusTodo || s == StatusInProgress
}

// CanTransitionTo reports whether a user may move a task from s to next.
// Expired is reachable only through the sweeper, never through this check.
// Re-applying the current non-terminal status is a permitted no-op.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// TaskCategory classifies a task.
type TaskCategory string

const (
	CategoryBug         TaskCategory = "Bug"
	CategoryFeature     TaskCategory = "Feature"
	CategoryImprovement TaskCategory = "Improvement"
)

var TaskCategories = []TaskCategory{CategoryBug, CategoryFeature, CategoryImprovement}

func (c TaskCategory) Valid() bool {
	return c == CategoryBug || c == CategoryFeature || c == CategoryImprovement
}

// TaskPriority ranks a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task is a unit of work owned by one organization.
type Task struct {
	ID             uuid.UUID    `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	OrganizationID uuid.UUID    `json:"organizationId"`
	AssignedTo     *uuid.UUID   `json:"assignedTo,omitempty"`
	Category       TaskCategory `json:"category"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	Status         TaskStatus   `json:"status"`
	CreatedBy      *uuid.UUID   `json:"createdBy,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// AssignedToUser reports whether the task is assigned to id.
func (t *Task) AssignedToUser(id uuid.UUID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == id
}

// Overdue reports whether the sweeper would expire the task at now.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status.Expirable()
}
