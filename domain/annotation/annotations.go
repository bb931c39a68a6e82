package annotation

import (
	"industrium/bizerror"
	"industrium/domain/project"
	"industrium/domain/task"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const (
	ParentKindProject = "PROJECT"
	ParentKindTask    = "TASK"
)

// ParentRef binds a comment or an attachment to exactly one owner. Kind
// discriminates the reference, the id is never interpreted without it.
type ParentRef struct {
	Kind string   `json:"kind" form:"kind" binding:"required,oneof=PROJECT TASK"`
	ID   types.ID `json:"id" form:"id" binding:"required"`
}

var annotationIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

func init() {
	project.ProjectDeleteCleanupFuncs = append(project.ProjectDeleteCleanupFuncs,
		func(projectId types.ID, tx *gorm.DB) error {
			return purgeForParent(ParentRef{Kind: ParentKindProject, ID: projectId}, tx)
		})
	task.TaskDeleteCleanupFuncs = append(task.TaskDeleteCleanupFuncs,
		func(taskId types.ID, tx *gorm.DB) error {
			return purgeForParent(ParentRef{Kind: ParentKindTask, ID: taskId}, tx)
		})
}

// resolveOwnerProject maps a parent ref to the project whose activity clock
// the annotation should touch. The owner row must exist.
func resolveOwnerProject(parent ParentRef, tx *gorm.DB) (types.ID, error) {
	switch parent.Kind {
	case ParentKindProject:
		var p project.Project
		if err := tx.Where(&project.Project{ID: parent.ID}).First(&p).Error; err != nil {
			return 0, err
		}
		return p.ID, nil
	case ParentKindTask:
		var t task.Task
		if err := tx.Where(&task.Task{ID: parent.ID}).First(&t).Error; err != nil {
			return 0, err
		}
		return t.ProjectID, nil
	default:
		return 0, bizerror.ErrUnsupportedParent
	}
}

func purgeForParent(parent ParentRef, tx *gorm.DB) error {
	if err := tx.Delete(Comment{}, "parent_kind = ? AND parent_id = ?", parent.Kind, parent.ID).Error; err != nil {
		return err
	}
	return tx.Delete(Attachment{}, "parent_kind = ? AND parent_id = ?", parent.Kind, parent.ID).Error
}
