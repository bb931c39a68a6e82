package project

import (
	"errors"
	"strconv"
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

type Project struct {
	ID   types.ID `json:"id" gorm:"primary_key"`
	Name string   `json:"name"`

	Description string `json:"description" sql:"type:TEXT"`

	StartDate *time.Time `json:"startDate" sql:"type:DATE"`
	EndDate   *time.Time `json:"endDate" sql:"type:DATE"`

	Status status.ProjectStatus `json:"status"`

	Creator    types.ID        `json:"creator"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`

	LastModifiedBy   types.ID        `json:"lastModifiedBy"`
	LastModifiedTime types.Timestamp `json:"lastModifiedTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ProjectCreation struct {
	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`

	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`

	Status status.ProjectStatus `json:"status" binding:"omitempty,oneof=Planned InProgress Completed"`
}

type ProjectUpdating struct {
	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`

	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`

	Status status.ProjectStatus `json:"status" binding:"omitempty,oneof=Planned InProgress Completed"`
}

type ProjectQuery struct {
	Status status.ProjectStatus `json:"status" form:"status" binding:"omitempty,oneof=Planned InProgress Completed"`
}

var (
	projectIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateProjectFunc   = CreateProject
	QueryProjectsFunc   = QueryProjects
	DetailProjectFunc   = DetailProject
	UpdateProjectFunc   = UpdateProject
	DeleteProjectFunc   = DeleteProject
	CompleteProjectFunc = CompleteProject

	TouchProjectFunc = TouchProject

	// OpenTaskCountFunc counts linked tasks not yet completed; injected by
	// the task package so the completion guard has no upward dependency.
	OpenTaskCountFunc func(projectId types.ID, tx *gorm.DB) (int, error)

	// ProjectDeleteCleanupFuncs run inside the deleting transaction; child
	// packages register cleanup of their own rows here.
	ProjectDeleteCleanupFuncs []func(projectId types.ID, tx *gorm.DB) error
)

func CreateProject(c *ProjectCreation, s *session.Session) (*Project, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	p := Project{ID: idgen.NextID(projectIdWorker), Name: c.Name, Description: c.Description,
		StartDate: c.StartDate, EndDate: c.EndDate,
		Status:     status.ResolveProjectStatus("", c.Status, c.StartDate, c.EndDate, now.Time()),
		Creator:    s.Identity.ID, CreateTime: now,
		LastModifiedBy: s.Identity.ID, LastModifiedTime: now}

	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypeProject, p.ID, p.Name, event.EventCategoryCreated, nil, &s.Identity, now, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &p, nil
}

func QueryProjects(q *ProjectQuery, s *session.Session) ([]Project, error) {
	projects := []Project{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context).Order("ID ASC")
	if q != nil && q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if err := db.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func DetailProject(id types.ID, s *session.Session) (*Project, error) {
	p := Project{}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Where(&Project{ID: id}).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func UpdateProject(id types.ID, u *ProjectUpdating, s *session.Session) (*Project, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	var p Project
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Project{ID: id}).First(&p).Error; err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		resolved := status.ResolveProjectStatus(p.Status, u.Status, u.StartDate, u.EndDate, now.Time())
		updates := map[string]interface{}{
			"name": u.Name, "description": u.Description,
			"start_date": u.StartDate, "end_date": u.EndDate,
			"status":           resolved,
			"last_modified_by": s.Identity.ID, "last_modified_time": now,
		}
		if err := tx.Model(&Project{}).Where(&Project{ID: id}).Update(updates).Error; err != nil {
			return err
		}
		if p.Status != resolved {
			if _, err := event.CreateEvent(SourceTypeProject, id, u.Name, event.EventCategoryStatusChanged,
				[]event.UpdatedProperty{{PropertyName: "status", OldValue: string(p.Status), NewValue: string(resolved)}},
				&s.Identity, now, tx); err != nil {
				return err
			}
		}
		return tx.Where(&Project{ID: id}).First(&p).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &p, nil
}

func DeleteProject(id types.ID, s *session.Session) error {
	if !s.Perms.HasRole(authority.RoleManager) {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		var p Project
		if err := tx.Where(&Project{ID: id}).First(&p).Error; err != nil {
			return err
		}
		for _, f := range ProjectDeleteCleanupFuncs {
			if err := f(id, tx); err != nil {
				return err
			}
		}
		if err := tx.Delete(Project{}, "id = ?", id).Error; err != nil {
			return err
		}
		_, err := event.CreateEvent(SourceTypeProject, id, p.Name, event.EventCategoryDeleted, nil,
			&s.Identity, types.CurrentTimestamp(), tx)
		return err
	})
}

// CompleteProject terminal completion, refused while any linked task is
// still open. The status write is guarded by the loaded status value so a
// concurrent reopen of a task fails the save instead of being lost.
func CompleteProject(id types.ID, s *session.Session) (*Project, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	var p Project
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Project{ID: id}).First(&p).Error; err != nil {
			return err
		}

		open, err := OpenTaskCountFunc(id, tx)
		if err != nil {
			return err
		}
		if open > 0 {
			return bizerror.ErrInvalidState
		}

		now := types.CurrentTimestamp()
		q := tx.Model(&Project{}).Where("id = ? AND status = ?", id, p.Status).
			Update(map[string]interface{}{"status": status.ProjectCompleted,
				"last_modified_by": s.Identity.ID, "last_modified_time": now})
		if err := q.Error; err != nil {
			return err
		}
		if q.RowsAffected != 1 {
			return errors.New("expected affected row is 1, but actual is " + strconv.FormatInt(q.RowsAffected, 10))
		}

		if p.Status != status.ProjectCompleted {
			if _, err := event.CreateEvent(SourceTypeProject, id, p.Name, event.EventCategoryStatusChanged,
				[]event.UpdatedProperty{{PropertyName: "status", OldValue: string(p.Status), NewValue: string(status.ProjectCompleted)}},
				&s.Identity, now, tx); err != nil {
				return err
			}
		}
		p.Status = status.ProjectCompleted
		p.LastModifiedBy = s.Identity.ID
		p.LastModifiedTime = now
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &p, nil
}

// TouchProject record a child mutation on the owning project. A zero id or
// a vanished project is not an error for the caller.
func TouchProject(projectId types.ID, identity *session.Identity, tx *gorm.DB) error {
	if projectId == 0 {
		return nil
	}
	return tx.Model(&Project{}).Where(&Project{ID: projectId}).
		Update(map[string]interface{}{"last_modified_by": identity.ID, "last_modified_time": types.CurrentTimestamp()}).Error
}

const SourceTypeProject = "PROJECT"
