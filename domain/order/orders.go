package order

import (
	"time"

	"industrium/authority"
	"industrium/bizerror"
	"industrium/domain/status"
	"industrium/event"
	"industrium/idgen"
	"industrium/persistence"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type Order struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	Number string   `json:"number" gorm:"unique_index"`
	Client string   `json:"client"`

	ProjectID types.ID `json:"projectId"`

	Status status.OrderStatus `json:"status"`

	DueDate    *time.Time      `json:"dueDate" sql:"type:DATE"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type OrderCreation struct {
	Number string `json:"number" binding:"required,lte=64"`
	Client string `json:"client" binding:"required,lte=255"`

	ProjectID types.ID `json:"projectId"`

	Status status.OrderStatus `json:"status" binding:"omitempty,oneof=New InProgress Done"`

	DueDate *time.Time `json:"dueDate"`
}

type OrderUpdating struct {
	Number string `json:"number" binding:"required,lte=64"`
	Client string `json:"client" binding:"required,lte=255"`

	ProjectID types.ID `json:"projectId"`

	Status status.OrderStatus `json:"status" binding:"omitempty,oneof=New InProgress Done"`

	DueDate *time.Time `json:"dueDate"`
}

type OrderQuery struct {
	Status    status.OrderStatus `json:"status" form:"status" binding:"omitempty,oneof=New InProgress Done"`
	ProjectID types.ID           `json:"projectId" form:"projectId"`
}

var (
	orderIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateOrderFunc = CreateOrder
	QueryOrdersFunc = QueryOrders
	DetailOrderFunc = DetailOrder
	UpdateOrderFunc = UpdateOrder
	DeleteOrderFunc = DeleteOrder
)

func CreateOrder(c *OrderCreation, s *session.Session) (*Order, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	o := Order{ID: idgen.NextID(orderIdWorker), Number: c.Number, Client: c.Client,
		ProjectID: c.ProjectID,
		Status:    status.ResolveOrderStatus("", c.Status, c.DueDate, now.Time(), now.Time()),
		DueDate:   c.DueDate, CreateTime: now}

	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypeOrder, o.ID, o.Number, event.EventCategoryCreated, nil, &s.Identity, now, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &o, nil
}

func QueryOrders(q *OrderQuery, s *session.Session) ([]Order, error) {
	orders := []Order{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context).Order("ID ASC")
	if q != nil {
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		if q.ProjectID != 0 {
			db = db.Where("project_id = ?", q.ProjectID)
		}
	}
	if err := db.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func DetailOrder(id types.ID, s *session.Session) (*Order, error) {
	o := Order{}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Where(&Order{ID: id}).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func UpdateOrder(id types.ID, u *OrderUpdating, s *session.Session) (*Order, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	var o Order
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Order{ID: id}).First(&o).Error; err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		resolved := status.ResolveOrderStatus(o.Status, u.Status, u.DueDate, o.CreateTime.Time(), now.Time())
		updates := map[string]interface{}{
			"number": u.Number, "client": u.Client, "project_id": u.ProjectID,
			"status": resolved, "due_date": u.DueDate,
		}
		if err := tx.Model(&Order{}).Where(&Order{ID: id}).Update(updates).Error; err != nil {
			return err
		}
		if o.Status != resolved {
			if _, err := event.CreateEvent(SourceTypeOrder, id, u.Number, event.EventCategoryStatusChanged,
				[]event.UpdatedProperty{{PropertyName: "status", OldValue: string(o.Status), NewValue: string(resolved)}},
				&s.Identity, now, tx); err != nil {
				return err
			}
		}
		return tx.Where(&Order{ID: id}).First(&o).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &o, nil
}

func DeleteOrder(id types.ID, s *session.Session) error {
	if !s.Perms.HasRole(authority.RoleManager) {
		return bizerror.ErrForbidden
	}
	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.Where(&Order{ID: id}).First(&o).Error; err != nil {
			return err
		}
		if err := tx.Delete(Order{}, "id = ?", id).Error; err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypeOrder, id, o.Number, event.EventCategoryDeleted, nil,
			&s.Identity, types.CurrentTimestamp(), tx)
		return err
	})
}

const SourceTypeOrder = "ORDER"
