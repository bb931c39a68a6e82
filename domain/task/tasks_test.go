package task_test

import (
	"testing"
	"time"

	"industrium/authority"
	"industrium/bizerror"
	"industrium/domain/notification"
	"industrium/domain/status"
	"industrium/domain/task"
	"industrium/persistence"
	"industrium/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestCreateTask(t *testing.T) {
	RegisterTestingT(t)

	t.Run("workers may create tasks too", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))

		record, err := task.CreateTask(&task.TaskCreation{Title: "grind the flange", AssigneeID: 10},
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())
		Expect(record.ID).ToNot(BeZero())
		Expect(record.CreatorID).To(Equal(types.ID(10)))
		Expect(record.Priority).To(Equal(task.PriorityMedium))
		Expect(record.Status).To(Equal(status.TaskInProgress))
	})

	t.Run("a past due date derives a completed task", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))

		yesterday := time.Now().AddDate(0, 0, -1)
		record, err := task.CreateTask(&task.TaskCreation{Title: "late delivery check", AssigneeID: 10, DueDate: &yesterday},
			testinfra.BuildSession(1, authority.RoleManager))
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.TaskCompleted))
	})

	t.Run("an explicit status overrides derivation", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))

		yesterday := time.Now().AddDate(0, 0, -1)
		record, err := task.CreateTask(&task.TaskCreation{Title: "rework", AssigneeID: 10,
			DueDate: &yesterday, Status: status.TaskPlanned},
			testinfra.BuildSession(1, authority.RoleManager))
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.TaskPlanned))
	})
}

func TestUpdateTask(t *testing.T) {
	RegisterTestingT(t)

	t.Run("workers must not update tasks", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		_, err := task.UpdateTask(100, &task.TaskUpdating{Title: "retitled", AssigneeID: 10},
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("an explicit status that lifts pending confirmation purges stale notifications", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildManager(db, 1, "ann")
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		_, err := task.SubmitTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())

		managerSession := testinfra.BuildSession(1, authority.RoleManager)
		record, err := task.UpdateTask(100, &task.TaskUpdating{Title: "assembly of unit 100", AssigneeID: 10,
			Status: status.TaskInProgress}, managerSession)
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.TaskInProgress))

		records, err := notification.QueryNotifications(managerSession)
		Expect(err).To(BeNil())
		Expect(records).To(BeEmpty())
	})

	t.Run("workflow states survive an ordinary update", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskPendingConfirmation)

		record, err := task.UpdateTask(100, &task.TaskUpdating{Title: "retitled", AssigneeID: 10},
			testinfra.BuildSession(1, authority.RoleManager))
		Expect(err).To(BeNil())
		Expect(record.Title).To(Equal("retitled"))
		Expect(record.Status).To(Equal(status.TaskPendingConfirmation))
	})
}

func TestDeleteTask(t *testing.T) {
	RegisterTestingT(t)

	t.Run("workers must not delete tasks", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		Expect(task.DeleteTask(100, testinfra.BuildSession(10, authority.RoleWorker))).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("deleting a pending task drops its notifications with it", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildManager(db, 1, "ann")
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		_, err := task.SubmitTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())

		managerSession := testinfra.BuildSession(1, authority.RoleManager)
		Expect(task.DeleteTask(100, managerSession)).To(BeNil())

		Expect(db.Where(&task.Task{ID: 100}).First(&task.Task{}).Error).ToNot(BeNil())
		records, err := notification.QueryNotifications(managerSession)
		Expect(err).To(BeNil())
		Expect(records).To(BeEmpty())
	})
}
