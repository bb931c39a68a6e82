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
)

type Position struct {
	ID   types.ID `json:"id" gorm:"primary_key"`
	Name string   `json:"name"`

	DepartmentID types.ID `json:"departmentId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type PositionCreation struct {
	Name         string   `json:"name" binding:"required,lte=255"`
	DepartmentID types.ID `json:"departmentId"`
}

type PositionUpdating struct {
	Name         string   `json:"name" binding:"required,lte=255"`
	DepartmentID types.ID `json:"departmentId"`
}

var (
	CreatePositionFunc = CreatePosition
	QueryPositionsFunc = QueryPositions
	UpdatePositionFunc = UpdatePosition
	DeletePositionFunc = DeletePosition
)

func CreatePosition(c *PositionCreation, s *session.Session) (*Position, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	p := Position{ID: idgen.NextID(directoryIdWorker), Name: c.Name, DepartmentID: c.DepartmentID, CreateTime: now}
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if p.DepartmentID != 0 {
			var d Department
			if err := tx.Where(&Department{ID: p.DepartmentID}).First(&d).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypePosition, p.ID, p.Name, event.EventCategoryCreated, nil, &s.Identity, now, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &p, nil
}

func QueryPositions(s *session.Session) ([]Position, error) {
	records := []Position{}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).
		Order("ID ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func UpdatePosition(id types.ID, u *PositionUpdating, s *session.Session) (*Position, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	var p Position
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Position{ID: id}).First(&p).Error; err != nil {
			return err
		}
		if u.DepartmentID != 0 {
			var d Department
			if err := tx.Where(&Department{ID: u.DepartmentID}).First(&d).Error; err != nil {
				return err
			}
		}
		updates := map[string]interface{}{"name": u.Name, "department_id": u.DepartmentID}
		if err := tx.Model(&Position{}).Where(&Position{ID: id}).Update(updates).Error; err != nil {
			return err
		}
		return tx.Where(&Position{ID: id}).First(&p).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &p, nil
}

// DeletePosition refuses while users still hold the position.
func DeletePosition(id types.ID, s *session.Session) error {
	if !s.Perms.HasRole(authority.RoleManager) {
		return bizerror.ErrForbidden
	}
	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		var p Position
		if err := tx.Where(&Position{ID: id}).First(&p).Error; err != nil {
			return err
		}

		count := 0
		if err := tx.Model(&account.User{}).Where("position_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return bizerror.ErrInvalidState
		}

		if err := tx.Delete(Position{}, "id = ?", id).Error; err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypePosition, id, p.Name, event.EventCategoryDeleted, nil,
			&s.Identity, types.CurrentTimestamp(), tx)
		return err
	})
}

const SourceTypePosition = "POSITION"
