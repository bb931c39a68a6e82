package notification

import (
	"industrium/account"
	"industrium/bizerror"
	"industrium/idgen"
	"industrium/persistence"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

// TaskNotification a pending-confirmation request from an assignee to one
// manager. Rows exist only while the task sits in PendingConfirmation:
// the resolving workflow action purges them in its own transaction.
type TaskNotification struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	TaskID    types.ID `json:"taskId"`
	TaskTitle string   `json:"taskTitle"`

	SenderID    types.ID `json:"senderId"`
	SenderName  string   `json:"senderName" gorm:"-"`
	RecipientID types.ID `json:"recipientId"`

	Read bool `json:"read" gorm:"column:is_read"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

var (
	notificationIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryNotificationsFunc   = QueryNotifications
	MarkNotificationReadFunc = MarkNotificationRead
)

// CreateEscalations fan out one row per recipient on the caller's
// transaction, so the rows appear atomically with the status change.
func CreateEscalations(taskId types.ID, taskTitle string, senderId types.ID, recipientIds []types.ID, tx *gorm.DB) error {
	now := types.CurrentTimestamp()
	for _, recipientId := range recipientIds {
		n := TaskNotification{ID: idgen.NextID(notificationIdWorker),
			TaskID: taskId, TaskTitle: taskTitle,
			SenderID: senderId, RecipientID: recipientId, CreateTime: now}
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
	}
	return nil
}

// PurgeForTask delete-on-resolution; deleting zero rows is not an error,
// which keeps the resolving actions idempotent.
func PurgeForTask(taskId types.ID, tx *gorm.DB) error {
	return tx.Delete(&TaskNotification{}, "task_id = ?", taskId).Error
}

// QueryNotifications the caller's unread notifications, newest first,
// decorated with the sender's display name.
func QueryNotifications(s *session.Session) ([]TaskNotification, error) {
	records := []TaskNotification{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where("recipient_id = ? AND is_read = ?", s.Identity.ID, false).
		Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	senderIds := make([]types.ID, 0, len(records))
	for _, r := range records {
		senderIds = append(senderIds, r.SenderID)
	}
	senderNames, err := account.QueryAccountNamesFunc(senderIds)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].SenderName = senderNames[records[i].SenderID]
	}
	return records, nil
}

// MarkNotificationRead dismiss one row without resolving the task.
func MarkNotificationRead(id types.ID, s *session.Session) error {
	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		var n TaskNotification
		if err := tx.Where(&TaskNotification{ID: id}).First(&n).Error; err != nil {
			return err
		}
		if n.RecipientID != s.Identity.ID {
			return bizerror.ErrForbidden
		}
		return tx.Model(&TaskNotification{}).Where(&TaskNotification{ID: id}).Update("is_read", true).Error
	})
}
