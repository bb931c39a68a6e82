package directory

import (
	"industrium/account"
	"industrium/authority"
	"industrium/bizerror"
	"industrium/event"
	"industrium/idgen"
	"industrium/persistence"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type Department struct {
	ID   types.ID `json:"id" gorm:"primary_key"`
	Name string   `json:"name" gorm:"unique_index"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type DepartmentCreation struct {
	Name string `json:"name" binding:"required,lte=255"`
}

type DepartmentUpdating struct {
	Name string `json:"name" binding:"required,lte=255"`
}

var (
	directoryIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateDepartmentFunc = CreateDepartment
	QueryDepartmentsFunc = QueryDepartments
	UpdateDepartmentFunc = UpdateDepartment
	DeleteDepartmentFunc = DeleteDepartment
)

func CreateDepartment(c *DepartmentCreation, s *session.Session) (*Department, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	d := Department{ID: idgen.NextID(directoryIdWorker), Name: c.Name, CreateTime: now}
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&d).Error; err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypeDepartment, d.ID, d.Name, event.EventCategoryCreated, nil, &s.Identity, now, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &d, nil
}

func QueryDepartments(s *session.Session) ([]Department, error) {
	records := []Department{}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).
		Order("ID ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func UpdateDepartment(id types.ID, u *DepartmentUpdating, s *session.Session) (*Department, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	var d Department
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Department{ID: id}).First(&d).Error; err != nil {
			return err
		}
		if err := tx.Model(&Department{}).Where(&Department{ID: id}).Update("name", u.Name).Error; err != nil {
			return err
		}
		d.Name = u.Name
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &d, nil
}

// DeleteDepartment refuses while users or positions still reference the
// department.
func DeleteDepartment(id types.ID, s *session.Session) error {
	if !s.Perms.HasRole(authority.RoleManager) {
		return bizerror.ErrForbidden
	}
	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		var d Department
		if err := tx.Where(&Department{ID: id}).First(&d).Error; err != nil {
			return err
		}

		count := 0
		if err := tx.Model(&account.User{}).Where("department_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return bizerror.ErrInvalidState
		}
		if err := tx.Model(&Position{}).Where("department_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return bizerror.ErrInvalidState
		}

		if err := tx.Delete(Department{}, "id = ?", id).Error; err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypeDepartment, id, d.Name, event.EventCategoryDeleted, nil,
			&s.Identity, types.CurrentTimestamp(), tx)
		return err
	})
}

const SourceTypeDepartment = "DEPARTMENT"
