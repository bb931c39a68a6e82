package annotation

import (
	"industrium/authority"
	"industrium/bizerror"
	"industrium/domain/project"
	"industrium/event"
	"industrium/idgen"
	"industrium/persistence"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

type Comment struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ParentKind string   `json:"parentKind"`
	ParentID   types.ID `json:"parentId"`

	Body     string   `json:"body" sql:"type:TEXT"`
	AuthorID types.ID `json:"authorId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type CommentCreation struct {
	Parent ParentRef `json:"parent" binding:"required"`
	Body   string    `json:"body" binding:"required,lte=4096"`
}

type CommentQuery struct {
	Parent ParentRef `json:"parent" form:"parent" binding:"required"`
}

var (
	CreateCommentFunc = CreateComment
	QueryCommentsFunc = QueryComments
	DeleteCommentFunc = DeleteComment
)

func CreateComment(c *CommentCreation, s *session.Session) (*Comment, error) {
	if !s.Perms.HasAnyRole(authority.RoleManager, authority.RoleWorker) {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	record := Comment{ID: idgen.NextID(annotationIdWorker),
		ParentKind: c.Parent.Kind, ParentID: c.Parent.ID,
		Body: c.Body, AuthorID: s.Identity.ID, CreateTime: now}

	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		ownerProjectId, err := resolveOwnerProject(c.Parent, tx)
		if err != nil {
			return err
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := project.TouchProjectFunc(ownerProjectId, &s.Identity, tx); err != nil {
			return err
		}
		_, err = event.CreateEvent(SourceTypeComment, record.ID, c.Parent.Kind, event.EventCategoryCreated,
			nil, &s.Identity, now, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &record, nil
}

func QueryComments(q *CommentQuery, s *session.Session) ([]Comment, error) {
	records := []Comment{}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).
		Where("parent_kind = ? AND parent_id = ?", q.Parent.Kind, q.Parent.ID).
		Order("create_time ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteComment the author or a manager.
func DeleteComment(id types.ID, s *session.Session) error {
	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		var record Comment
		if err := tx.Where(&Comment{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if record.AuthorID != s.Identity.ID && !s.Perms.HasRole(authority.RoleManager) {
			return bizerror.ErrForbidden
		}

		ownerProjectId, err := resolveOwnerProject(ParentRef{Kind: record.ParentKind, ID: record.ParentID}, tx)
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if err := tx.Delete(Comment{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := project.TouchProjectFunc(ownerProjectId, &s.Identity, tx); err != nil {
			return err
		}
		_, err = event.CreateEvent(SourceTypeComment, id, record.ParentKind, event.EventCategoryDeleted,
			nil, &s.Identity, types.CurrentTimestamp(), tx)
		return err
	})
}

const SourceTypeComment = "COMMENT"
