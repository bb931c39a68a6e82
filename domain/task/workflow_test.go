package task_test

import (
	"testing"

	"industrium/account"
	"industrium/authority"
	"industrium/bizerror"
	"industrium/domain/notification"
	"industrium/domain/project"
	"industrium/domain/status"
	"industrium/domain/task"
	"industrium/event"
	"industrium/persistence"
	"industrium/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func setupWorkflowTestDatabase(t *testing.T) *testinfra.TestDatabase {
	testDatabase := testinfra.StartSqliteTestDatabase("industrium")
	persistence.ActiveDataSourceManager = testDatabase.DS
	err := testDatabase.DS.GormDB(nil).AutoMigrate(
		&task.Task{}, &project.Project{}, &account.User{},
		&notification.TaskNotification{}, &event.EventRecord{}).Error
	Expect(err).To(BeNil())
	return testDatabase
}

func buildManager(db *gorm.DB, id types.ID, name string) {
	Expect(db.Create(&account.User{ID: id, Name: name, Role: authority.RoleManager,
		CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())
}

func buildTaskRecord(db *gorm.DB, id, assigneeId types.ID, st status.TaskStatus) *task.Task {
	record := task.Task{ID: id, Title: "assembly of unit " + id.String(), AssigneeID: assigneeId,
		Priority: task.PriorityMedium, Status: st, CreateTime: types.CurrentTimestamp()}
	Expect(db.Create(&record).Error).To(BeNil())
	return &record
}

func TestSubmitTaskComplete(t *testing.T) {
	RegisterTestingT(t)

	t.Run("only the assignee can submit", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildManager(db, 1, "ann")
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		record, err := task.SubmitTaskComplete(100, testinfra.BuildSession(20, authority.RoleWorker))
		Expect(record).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrForbidden))

		var current task.Task
		Expect(db.Where(&task.Task{ID: 100}).First(&current).Error).To(BeNil())
		Expect(current.Status).To(Equal(status.TaskInProgress))

		count := 0
		Expect(db.Model(&notification.TaskNotification{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())
	})

	t.Run("submitting a completed task is rejected", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildManager(db, 1, "ann")
		buildTaskRecord(db, 100, 10, status.TaskCompleted)

		_, err := task.SubmitTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(Equal(bizerror.ErrInvalidState))
	})

	t.Run("submit fails when no manager exists to confirm", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		_, err := task.SubmitTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(Equal(bizerror.ErrNoEscalationRecipient))

		var current task.Task
		Expect(db.Where(&task.Task{ID: 100}).First(&current).Error).To(BeNil())
		Expect(current.Status).To(Equal(status.TaskInProgress))
	})

	t.Run("submit moves the task to pending confirmation and notifies every manager", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildManager(db, 1, "ann")
		buildManager(db, 2, "bob")
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		record, err := task.SubmitTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.TaskPendingConfirmation))

		var current task.Task
		Expect(db.Where(&task.Task{ID: 100}).First(&current).Error).To(BeNil())
		Expect(current.Status).To(Equal(status.TaskPendingConfirmation))

		records := []notification.TaskNotification{}
		Expect(db.Find(&records).Error).To(BeNil())
		Expect(len(records)).To(Equal(2))
		recipients := []types.ID{records[0].RecipientID, records[1].RecipientID}
		Expect(recipients).To(ConsistOf(types.ID(1), types.ID(2)))
		Expect(records[0].TaskID).To(Equal(types.ID(100)))
		Expect(records[0].SenderID).To(Equal(types.ID(10)))
		Expect(records[0].Read).To(BeFalse())
	})
}

func TestConfirmTaskComplete(t *testing.T) {
	RegisterTestingT(t)

	t.Run("workers must not confirm", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskPendingConfirmation)

		_, err := task.ConfirmTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("confirm completes the task and purges its notifications", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildManager(db, 1, "ann")
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		_, err := task.SubmitTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())

		record, err := task.ConfirmTaskComplete(100, testinfra.BuildSession(1, authority.RoleManager))
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.TaskCompleted))

		count := 0
		Expect(db.Model(&notification.TaskNotification{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())
	})

	t.Run("confirming an already completed task is a no-op", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskCompleted)

		record, err := task.ConfirmTaskComplete(100, testinfra.BuildSession(1, authority.RoleManager))
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.TaskCompleted))
	})

	t.Run("a confirmed task no longer appears in the unread list", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildManager(db, 1, "ann")
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		_, err := task.SubmitTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())

		managerSession := testinfra.BuildSession(1, authority.RoleManager)
		records, err := notification.QueryNotifications(managerSession)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(1))

		_, err = task.ConfirmTaskComplete(100, managerSession)
		Expect(err).To(BeNil())

		records, err = notification.QueryNotifications(managerSession)
		Expect(err).To(BeNil())
		Expect(records).To(BeEmpty())
	})
}

func TestRejectTaskComplete(t *testing.T) {
	RegisterTestingT(t)

	t.Run("workers must not reject", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskPendingConfirmation)

		_, err := task.RejectTaskComplete(100, "not aligned", testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("reject sends the task back to in progress and purges its notifications", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildManager(db, 1, "ann")
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		_, err := task.SubmitTaskComplete(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())

		record, err := task.RejectTaskComplete(100, "edges unfinished", testinfra.BuildSession(1, authority.RoleManager))
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.TaskInProgress))

		count := 0
		Expect(db.Model(&notification.TaskNotification{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())

		// the reason lives on the audit trail only
		var events []event.EventRecord
		Expect(db.Where("source_type = ? AND event_category = ?", task.SourceTypeTask,
			event.EventCategoryStatusChanged).Find(&events).Error).To(BeNil())
		last := events[len(events)-1]
		Expect(len(last.UpdatedProperties)).To(Equal(1))
		Expect(last.UpdatedProperties[0].NewValueDesc).To(Equal("edges unfinished"))
	})
}

func TestMarkTaskDone(t *testing.T) {
	RegisterTestingT(t)

	t.Run("only the assignee can mark done", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		_, err := task.MarkTaskDone(100, testinfra.BuildSession(20, authority.RoleWorker))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("mark done raises the flag without touching the status", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupWorkflowTestDatabase(t))
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		buildTaskRecord(db, 100, 10, status.TaskInProgress)

		record, err := task.MarkTaskDone(100, testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())
		Expect(record.Done).To(BeTrue())

		var current task.Task
		Expect(db.Where(&task.Task{ID: 100}).First(&current).Error).To(BeNil())
		Expect(current.Done).To(BeTrue())
		Expect(current.Status).To(Equal(status.TaskInProgress))
	})
}
