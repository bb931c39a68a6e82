package status_test

import (
	"testing"
	"time"

	"industrium/domain/status"

	. "github.com/onsi/gomega"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDeriveProjectStatus(t *testing.T) {
	RegisterTestingT(t)

	today := date(2025, 6, 10)

	t.Run("project not started yet should be planned", func(t *testing.T) {
		start := date(2025, 6, 11)
		Expect(status.DeriveProjectStatus(&start, nil, today)).To(Equal(status.ProjectPlanned))
	})

	t.Run("project with passed end date should be completed", func(t *testing.T) {
		start := date(2025, 6, 1)
		end := date(2025, 6, 9)
		Expect(status.DeriveProjectStatus(&start, &end, today)).To(Equal(status.ProjectCompleted))
	})

	t.Run("project in its date range should be in progress", func(t *testing.T) {
		start := date(2025, 6, 1)
		end := date(2025, 6, 30)
		Expect(status.DeriveProjectStatus(&start, &end, today)).To(Equal(status.ProjectInProgress))

		// end date today is not passed yet
		endToday := date(2025, 6, 10)
		Expect(status.DeriveProjectStatus(&start, &endToday, today)).To(Equal(status.ProjectInProgress))

		// no dates at all
		Expect(status.DeriveProjectStatus(nil, nil, today)).To(Equal(status.ProjectInProgress))
	})
}

func TestDeriveOrderStatus(t *testing.T) {
	RegisterTestingT(t)

	today := date(2025, 6, 10)

	t.Run("order with passed due date should be done", func(t *testing.T) {
		due := date(2025, 6, 9)
		Expect(status.DeriveOrderStatus(&due, date(2025, 6, 1), today)).To(Equal(status.OrderDone))
	})

	t.Run("order already created should be in progress", func(t *testing.T) {
		Expect(status.DeriveOrderStatus(nil, date(2025, 6, 10), today)).To(Equal(status.OrderInProgress))
		due := date(2025, 6, 20)
		Expect(status.DeriveOrderStatus(&due, date(2025, 6, 1), today)).To(Equal(status.OrderInProgress))
	})

	t.Run("order created in the future should be new", func(t *testing.T) {
		Expect(status.DeriveOrderStatus(nil, date(2025, 6, 11), today)).To(Equal(status.OrderNew))
	})
}

func TestDeriveTaskStatus(t *testing.T) {
	RegisterTestingT(t)

	today := date(2025, 6, 10)

	t.Run("task with passed due date should be completed", func(t *testing.T) {
		due := date(2025, 6, 9)
		Expect(status.DeriveTaskStatus(&due, date(2025, 6, 1), today)).To(Equal(status.TaskCompleted))
	})

	t.Run("task already created should be in progress", func(t *testing.T) {
		Expect(status.DeriveTaskStatus(nil, date(2025, 6, 10), today)).To(Equal(status.TaskInProgress))
	})

	t.Run("task created in the future should be planned", func(t *testing.T) {
		Expect(status.DeriveTaskStatus(nil, date(2025, 6, 11), today)).To(Equal(status.TaskPlanned))
	})
}

func TestResolveTaskStatus(t *testing.T) {
	RegisterTestingT(t)

	today := date(2025, 6, 10)
	yesterday := date(2025, 6, 9)

	t.Run("unchanged status should be re-derived from dates", func(t *testing.T) {
		r := status.ResolveTaskStatus(status.TaskInProgress, status.TaskInProgress, &yesterday, date(2025, 6, 1), today)
		Expect(r).To(Equal(status.TaskCompleted))

		r = status.ResolveTaskStatus(status.TaskPlanned, "", &yesterday, date(2025, 6, 1), today)
		Expect(r).To(Equal(status.TaskCompleted))
	})

	t.Run("explicitly changed status should be honored verbatim", func(t *testing.T) {
		r := status.ResolveTaskStatus(status.TaskInProgress, status.TaskPlanned, &yesterday, date(2025, 6, 1), today)
		Expect(r).To(Equal(status.TaskPlanned))
	})

	t.Run("workflow states should never be derived away", func(t *testing.T) {
		r := status.ResolveTaskStatus(status.TaskPendingConfirmation, status.TaskPendingConfirmation, &yesterday, date(2025, 6, 1), today)
		Expect(r).To(Equal(status.TaskPendingConfirmation))

		r = status.ResolveTaskStatus(status.TaskCompleted, "", nil, date(2025, 6, 1), today)
		Expect(r).To(Equal(status.TaskCompleted))
	})
}

func TestResolveProjectStatus(t *testing.T) {
	RegisterTestingT(t)

	today := date(2025, 6, 10)

	t.Run("completion is terminal", func(t *testing.T) {
		start := date(2025, 6, 1)
		end := date(2025, 6, 30)
		r := status.ResolveProjectStatus(status.ProjectCompleted, status.ProjectCompleted, &start, &end, today)
		Expect(r).To(Equal(status.ProjectCompleted))
	})

	t.Run("explicit override wins over derivation", func(t *testing.T) {
		start := date(2025, 6, 1)
		r := status.ResolveProjectStatus(status.ProjectInProgress, status.ProjectPlanned, &start, nil, today)
		Expect(r).To(Equal(status.ProjectPlanned))
	})
}
