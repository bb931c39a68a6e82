// Package status computes derived lifecycle statuses from dates. It is a
// stateless package: callers load rows, resolve, then persist.
package status

import (
	"time"
)

type ProjectStatus string

const (
	ProjectPlanned    = ProjectStatus("Planned")
	ProjectInProgress = ProjectStatus("InProgress")
	ProjectCompleted  = ProjectStatus("Completed")
)

type TaskStatus string

const (
	TaskPlanned             = TaskStatus("Planned")
	TaskInProgress          = TaskStatus("InProgress")
	TaskPendingConfirmation = TaskStatus("PendingConfirmation")
	TaskCompleted           = TaskStatus("Completed")
)

type OrderStatus string

const (
	OrderNew        = OrderStatus("New")
	OrderInProgress = OrderStatus("InProgress")
	OrderDone       = OrderStatus("Done")
)

func (s ProjectStatus) IsValid() bool {
	return s == ProjectPlanned || s == ProjectInProgress || s == ProjectCompleted
}

func (s TaskStatus) IsValid() bool {
	return s == TaskPlanned || s == TaskInProgress || s == TaskPendingConfirmation || s == TaskCompleted
}

func (s OrderStatus) IsValid() bool {
	return s == OrderNew || s == OrderInProgress || s == OrderDone
}

// DateOf calendar date of t, in t's location
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func DeriveProjectStatus(startDate, endDate *time.Time, today time.Time) ProjectStatus {
	today = DateOf(today)
	if startDate != nil && DateOf(*startDate).After(today) {
		return ProjectPlanned
	}
	if endDate != nil && DateOf(*endDate).Before(today) {
		return ProjectCompleted
	}
	return ProjectInProgress
}

func DeriveOrderStatus(dueDate *time.Time, createTime time.Time, today time.Time) OrderStatus {
	today = DateOf(today)
	if dueDate != nil && DateOf(*dueDate).Before(today) {
		return OrderDone
	}
	if !DateOf(createTime).After(today) {
		return OrderInProgress
	}
	return OrderNew
}

func DeriveTaskStatus(dueDate *time.Time, createTime time.Time, today time.Time) TaskStatus {
	today = DateOf(today)
	if dueDate != nil && DateOf(*dueDate).Before(today) {
		return TaskCompleted
	}
	if !DateOf(createTime).After(today) {
		return TaskInProgress
	}
	return TaskPlanned
}

// ResolveProjectStatus auto-derive unless the caller explicitly changed the
// status on this save. Completed is terminal: a completion decided by the
// completion guard is never derived away on a later save.
func ResolveProjectStatus(old, incoming ProjectStatus, startDate, endDate *time.Time, today time.Time) ProjectStatus {
	if incoming != "" && incoming != old {
		return incoming
	}
	if old == ProjectCompleted {
		return ProjectCompleted
	}
	return DeriveProjectStatus(startDate, endDate, today)
}

// ResolveTaskStatus same policy for tasks: workflow actions write explicit
// values, plain saves re-derive.
func ResolveTaskStatus(old, incoming TaskStatus, dueDate *time.Time, createTime time.Time, today time.Time) TaskStatus {
	if incoming != "" && incoming != old {
		return incoming
	}
	if old == TaskCompleted || old == TaskPendingConfirmation {
		return old
	}
	return DeriveTaskStatus(dueDate, createTime, today)
}

func ResolveOrderStatus(old, incoming OrderStatus, dueDate *time.Time, createTime time.Time, today time.Time) OrderStatus {
	if incoming != "" && incoming != old {
		return incoming
	}
	return DeriveOrderStatus(dueDate, createTime, today)
}
