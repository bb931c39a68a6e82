package task

import (
	"time"

	"industrium/authority"
	"industrium/bizerror"
	"industrium/domain/notification"
	"industrium/domain/project"
	"industrium/domain/status"
	"industrium/event"
	"industrium/idgen"
	"industrium/persistence"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Task carries two completion signals on purpose: the Done flag is a legacy
// self-reported marker written only by mark-done, while Status moves through
// the confirmation workflow. They are independent write paths and are never
// synchronized here.
type Task struct {
	ID    types.ID `json:"id" gorm:"primary_key"`
	Title string   `json:"title"`

	Description string `json:"description" sql:"type:TEXT"`

	CreatorID  types.ID `json:"creatorId"`
	AssigneeID types.ID `json:"assigneeId"`

	ProjectID types.ID `json:"projectId"`
	OrderID   types.ID `json:"orderId"`

	Priority string            `json:"priority"`
	Status   status.TaskStatus `json:"status"`

	DueDate *time.Time `json:"dueDate" sql:"type:DATE"`
	Done    bool       `json:"done" gorm:"column:is_done"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type TaskCreation struct {
	Title       string `json:"title" binding:"required,lte=255"`
	Description string `json:"description"`

	AssigneeID types.ID `json:"assigneeId" binding:"required"`
	ProjectID  types.ID `json:"projectId"`
	OrderID    types.ID `json:"orderId"`

	Priority string            `json:"priority" binding:"omitempty,oneof=Low Medium High"`
	Status   status.TaskStatus `json:"status" binding:"omitempty,oneof=Planned InProgress PendingConfirmation Completed"`

	DueDate *time.Time `json:"dueDate"`
}

type TaskUpdating struct {
	Title       string `json:"title" binding:"required,lte=255"`
	Description string `json:"description"`

	AssigneeID types.ID `json:"assigneeId" binding:"required"`
	ProjectID  types.ID `json:"projectId"`
	OrderID    types.ID `json:"orderId"`

	Priority string            `json:"priority" binding:"omitempty,oneof=Low Medium High"`
	Status   status.TaskStatus `json:"status" binding:"omitempty,oneof=Planned InProgress PendingConfirmation Completed"`

	DueDate *time.Time `json:"dueDate"`
}

type TaskQuery struct {
	Status     status.TaskStatus `json:"status" form:"status" binding:"omitempty,oneof=Planned InProgress PendingConfirmation Completed"`
	AssigneeID types.ID          `json:"assigneeId" form:"assigneeId"`
	ProjectID  types.ID          `json:"projectId" form:"projectId"`
}

var (
	taskIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateTaskFunc = CreateTask
	QueryTasksFunc = QueryTasks
	DetailTaskFunc = DetailTask
	UpdateTaskFunc = UpdateTask
	DeleteTaskFunc = DeleteTask

	// TaskDeleteCleanupFuncs run inside the deleting transaction; child
	// packages register cleanup of their own rows here.
	TaskDeleteCleanupFuncs []func(taskId types.ID, tx *gorm.DB) error
)

func init() {
	project.OpenTaskCountFunc = OpenTaskCount
	project.ProjectDeleteCleanupFuncs = append(project.ProjectDeleteCleanupFuncs,
		func(projectId types.ID, tx *gorm.DB) error {
			// tasks outlive their project, only the link is dropped
			return tx.Model(&Task{}).Where("project_id = ?", projectId).Update("project_id", 0).Error
		})
}

// OpenTaskCount linked tasks not yet completed; the project completion
// guard calls this on its own transaction.
func OpenTaskCount(projectId types.ID, tx *gorm.DB) (int, error) {
	count := 0
	err := tx.Model(&Task{}).Where("project_id = ? AND status <> ?", projectId, status.TaskCompleted).Count(&count).Error
	return count, err
}

// CreateTask workers may create tasks too, writes elsewhere stay manager-only
func CreateTask(c *TaskCreation, s *session.Session) (*Task, error) {
	if !s.Perms.HasAnyRole(authority.RoleManager, authority.RoleWorker) {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	priority := c.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	t := Task{ID: idgen.NextID(taskIdWorker), Title: c.Title, Description: c.Description,
		CreatorID: s.Identity.ID, AssigneeID: c.AssigneeID,
		ProjectID: c.ProjectID, OrderID: c.OrderID,
		Priority: priority,
		Status:   status.ResolveTaskStatus("", c.Status, c.DueDate, now.Time(), now.Time()),
		DueDate:  c.DueDate, CreateTime: now}

	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		if err := project.TouchProjectFunc(t.ProjectID, &s.Identity, tx); err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypeTask, t.ID, t.Title, event.EventCategoryCreated, nil, &s.Identity, now, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &t, nil
}

func QueryTasks(q *TaskQuery, s *session.Session) ([]Task, error) {
	tasks := []Task{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context).Order("ID ASC")
	if q != nil {
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		if q.AssigneeID != 0 {
			db = db.Where("assignee_id = ?", q.AssigneeID)
		}
		if q.ProjectID != 0 {
			db = db.Where("project_id = ?", q.ProjectID)
		}
	}
	if err := db.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func DetailTask(id types.ID, s *session.Session) (*Task, error) {
	t := Task{}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Where(&Task{ID: id}).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func UpdateTask(id types.ID, u *TaskUpdating, s *session.Session) (*Task, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	var t Task
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Task{ID: id}).First(&t).Error; err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		resolved := status.ResolveTaskStatus(t.Status, u.Status, u.DueDate, t.CreateTime.Time(), now.Time())
		// leaving PendingConfirmation by any path resolves the pending
		// confirmation requests
		if t.Status == status.TaskPendingConfirmation && resolved != status.TaskPendingConfirmation {
			if err := notification.PurgeForTask(id, tx); err != nil {
				return err
			}
		}
		updates := map[string]interface{}{
			"title": u.Title, "description": u.Description,
			"assignee_id": u.AssigneeID, "project_id": u.ProjectID, "order_id": u.OrderID,
			"priority": u.Priority, "status": resolved, "due_date": u.DueDate,
		}
		if u.Priority == "" {
			delete(updates, "priority")
		}
		if err := tx.Model(&Task{}).Where(&Task{ID: id}).Update(updates).Error; err != nil {
			return err
		}

		if err := project.TouchProjectFunc(t.ProjectID, &s.Identity, tx); err != nil {
			return err
		}
		if u.ProjectID != t.ProjectID {
			if err := project.TouchProjectFunc(u.ProjectID, &s.Identity, tx); err != nil {
				return err
			}
		}
		if t.Status != resolved {
			if _, err := event.CreateEvent(SourceTypeTask, id, u.Title, event.EventCategoryStatusChanged,
				[]event.UpdatedProperty{{PropertyName: "status", OldValue: string(t.Status), NewValue: string(resolved)}},
				&s.Identity, now, tx); err != nil {
				return err
			}
		}
		return tx.Where(&Task{ID: id}).First(&t).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &t, nil
}

func DeleteTask(id types.ID, s *session.Session) error {
	if !s.Perms.HasRole(authority.RoleManager) {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		var t Task
		if err := tx.Where(&Task{ID: id}).First(&t).Error; err != nil {
			return err
		}
		if err := notification.PurgeForTask(id, tx); err != nil {
			return err
		}
		for _, f := range TaskDeleteCleanupFuncs {
			if err := f(id, tx); err != nil {
				return err
			}
		}
		if err := tx.Delete(Task{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := project.TouchProjectFunc(t.ProjectID, &s.Identity, tx); err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypeTask, id, t.Title, event.EventCategoryDeleted, nil,
			&s.Identity, types.CurrentTimestamp(), tx)
		return err
	})
}

const SourceTypeTask = "TASK"
