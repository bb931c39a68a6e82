package task

import (
	"errors"
	"strconv"

	"industrium/account"
	"industrium/authority"
	"industrium/bizerror"
	"industrium/domain/notification"
	"industrium/domain/project"
	"industrium/domain/status"
	"industrium/event"
	"industrium/session"

	"industrium/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	MarkTaskDoneFunc        = MarkTaskDone
	SubmitTaskCompleteFunc  = SubmitTaskComplete
	ConfirmTaskCompleteFunc = ConfirmTaskComplete
	RejectTaskCompleteFunc  = RejectTaskComplete
)

// MarkTaskDone assignee-only legacy completion marker; Status is untouched.
func MarkTaskDone(id types.ID, s *session.Session) (*Task, error) {
	var t Task
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Task{ID: id}).First(&t).Error; err != nil {
			return err
		}
		if t.AssigneeID != s.Identity.ID {
			return bizerror.ErrForbidden
		}

		if err := tx.Model(&Task{}).Where(&Task{ID: id}).Update("is_done", true).Error; err != nil {
			return err
		}
		if err := project.TouchProjectFunc(t.ProjectID, &s.Identity, tx); err != nil {
			return err
		}
		now := types.CurrentTimestamp()
		if _, err := event.CreateEvent(SourceTypeTask, id, t.Title, event.EventCategoryPropertyUpdated,
			[]event.UpdatedProperty{{PropertyName: "done", OldValue: strconv.FormatBool(t.Done), NewValue: "true"}},
			&s.Identity, now, tx); err != nil {
			return err
		}
		t.Done = true
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &t, nil
}

// SubmitTaskComplete assignee hands the task over for confirmation. The
// status change and the notification fan-out commit or fail together.
func SubmitTaskComplete(id types.ID, s *session.Session) (*Task, error) {
	var t Task
	var ev *event.EventRecord
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Task{ID: id}).First(&t).Error; err != nil {
			return err
		}
		if t.AssigneeID != s.Identity.ID {
			return bizerror.ErrForbidden
		}
		if t.Status == status.TaskCompleted {
			return bizerror.ErrInvalidState
		}

		recipients, err := account.ListEscalationRecipientsFunc(tx)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return bizerror.ErrNoEscalationRecipient
		}

		if err := transitTaskStatus(tx, &t, status.TaskPendingConfirmation); err != nil {
			return err
		}

		recipientIds := make([]types.ID, 0, len(recipients))
		for _, r := range recipients {
			recipientIds = append(recipientIds, r.ID)
		}
		if err := notification.CreateEscalations(t.ID, t.Title, s.Identity.ID, recipientIds, tx); err != nil {
			return err
		}

		if err := project.TouchProjectFunc(t.ProjectID, &s.Identity, tx); err != nil {
			return err
		}
		ev, err = event.CreateEvent(SourceTypeTask, id, t.Title, event.EventCategoryStatusChanged,
			[]event.UpdatedProperty{{PropertyName: "status", OldValue: string(t.Status), NewValue: string(status.TaskPendingConfirmation)}},
			&s.Identity, types.CurrentTimestamp(), tx)
		if err != nil {
			return err
		}
		t.Status = status.TaskPendingConfirmation
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if event.InvokeHandlersFunc != nil && ev != nil {
		event.InvokeHandlersFunc(ev)
	}
	return &t, nil
}

// ConfirmTaskComplete manager accepts the work. Confirming an already
// completed task is a clean no-op.
func ConfirmTaskComplete(id types.ID, s *session.Session) (*Task, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	var t Task
	var ev *event.EventRecord
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Task{ID: id}).First(&t).Error; err != nil {
			return err
		}
		if t.Status == status.TaskCompleted {
			// resolved before; purging again affects zero rows
			return notification.PurgeForTask(t.ID, tx)
		}

		if err := transitTaskStatus(tx, &t, status.TaskCompleted); err != nil {
			return err
		}
		if err := notification.PurgeForTask(t.ID, tx); err != nil {
			return err
		}
		if err := project.TouchProjectFunc(t.ProjectID, &s.Identity, tx); err != nil {
			return err
		}
		var err error
		ev, err = event.CreateEvent(SourceTypeTask, id, t.Title, event.EventCategoryStatusChanged,
			[]event.UpdatedProperty{{PropertyName: "status", OldValue: string(t.Status), NewValue: string(status.TaskCompleted)}},
			&s.Identity, types.CurrentTimestamp(), tx)
		if err != nil {
			return err
		}
		t.Status = status.TaskCompleted
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if event.InvokeHandlersFunc != nil && ev != nil {
		event.InvokeHandlersFunc(ev)
	}
	return &t, nil
}

// RejectTaskComplete manager sends the work back. The reason is kept on the
// audit event only, not on the task row.
func RejectTaskComplete(id types.ID, reason string, s *session.Session) (*Task, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	var t Task
	var ev *event.EventRecord
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Task{ID: id}).First(&t).Error; err != nil {
			return err
		}

		if err := transitTaskStatus(tx, &t, status.TaskInProgress); err != nil {
			return err
		}
		if err := notification.PurgeForTask(t.ID, tx); err != nil {
			return err
		}
		if err := project.TouchProjectFunc(t.ProjectID, &s.Identity, tx); err != nil {
			return err
		}
		var err error
		ev, err = event.CreateEvent(SourceTypeTask, id, t.Title, event.EventCategoryStatusChanged,
			[]event.UpdatedProperty{{PropertyName: "status", OldValue: string(t.Status), NewValue: string(status.TaskInProgress),
				PropertyDesc: "rejected", NewValueDesc: reason}},
			&s.Identity, types.CurrentTimestamp(), tx)
		if err != nil {
			return err
		}
		t.Status = status.TaskInProgress
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if event.InvokeHandlersFunc != nil && ev != nil {
		event.InvokeHandlersFunc(ev)
	}
	return &t, nil
}

// transitTaskStatus optimistic write guarded by the loaded status, so a
// concurrent transition fails loudly instead of being lost.
func transitTaskStatus(tx *gorm.DB, t *Task, to status.TaskStatus) error {
	if t.Status == to {
		return nil
	}
	q := tx.Model(&Task{}).Where("id = ? AND status = ?", t.ID, t.Status).Update("status", to)
	if err := q.Error; err != nil {
		return err
	}
	if q.RowsAffected != 1 {
		return errors.New("expected affected row is 1, but actual is " + strconv.FormatInt(q.RowsAffected, 10))
	}
	return nil
}
