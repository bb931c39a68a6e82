package annotation

import (
	"mime/multipart"
	"strconv"

	"industrium/authority"
	"industrium/bizerror"
	"industrium/client/s3"
	"industrium/domain/project"
	"industrium/event"
	"industrium/idgen"
	"industrium/persistence"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

type Attachment struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ParentKind string   `json:"parentKind"`
	ParentID   types.ID `json:"parentId"`

	FileName string `json:"fileName"`
	Size     int64  `json:"size"`

	UploaderID types.ID `json:"uploaderId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type AttachmentQuery struct {
	Parent ParentRef `json:"parent" form:"parent" binding:"required"`
}

var (
	CreateAttachmentFunc = CreateAttachment
	QueryAttachmentsFunc = QueryAttachments
	DeleteAttachmentFunc = DeleteAttachment
)

// ObjectKey the blob store key of an attachment record.
func (a Attachment) ObjectKey() string {
	return "attachments/" + strconv.FormatUint(uint64(a.ID), 10)
}

func CreateAttachment(parent ParentRef, file *multipart.FileHeader, s *session.Session) (*Attachment, error) {
	if !s.Perms.HasAnyRole(authority.RoleManager, authority.RoleWorker) {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	record := Attachment{ID: idgen.NextID(annotationIdWorker),
		ParentKind: parent.Kind, ParentID: parent.ID,
		FileName: file.Filename, Size: file.Size,
		UploaderID: s.Identity.ID, CreateTime: now}

	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		ownerProjectId, err := resolveOwnerProject(parent, tx)
		if err != nil {
			return err
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := project.TouchProjectFunc(ownerProjectId, &s.Identity, tx); err != nil {
			return err
		}

		src, err := file.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		if err := s3.PutObjectFunc(record.ObjectKey(), src, s); err != nil {
			return err
		}

		_, err = event.CreateEvent(SourceTypeAttachment, record.ID, record.FileName, event.EventCategoryCreated,
			nil, &s.Identity, now, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &record, nil
}

func QueryAttachments(q *AttachmentQuery, s *session.Session) ([]Attachment, error) {
	records := []Attachment{}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).
		Where("parent_kind = ? AND parent_id = ?", q.Parent.Kind, q.Parent.ID).
		Order("create_time ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailAttachment(id types.ID, s *session.Session) (*Attachment, error) {
	record := Attachment{}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).
		Where(&Attachment{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteAttachment the uploader or a manager. The blob is removed after the
// row delete committed; a dangling blob is tolerable, a dangling row is not.
func DeleteAttachment(id types.ID, s *session.Session) error {
	var record Attachment
	txErr := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Attachment{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if record.UploaderID != s.Identity.ID && !s.Perms.HasRole(authority.RoleManager) {
			return bizerror.ErrForbidden
		}

		ownerProjectId, err := resolveOwnerProject(ParentRef{Kind: record.ParentKind, ID: record.ParentID}, tx)
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if err := tx.Delete(Attachment{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := project.TouchProjectFunc(ownerProjectId, &s.Identity, tx); err != nil {
			return err
		}
		_, err = event.CreateEvent(SourceTypeAttachment, id, record.FileName, event.EventCategoryDeleted,
			nil, &s.Identity, types.CurrentTimestamp(), tx)
		return err
	})
	if txErr != nil {
		return txErr
	}
	return s3.DeleteObjectFunc(record.ObjectKey(), s)
}

const SourceTypeAttachment = "ATTACHMENT"
