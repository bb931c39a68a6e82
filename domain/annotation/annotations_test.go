package annotation_test

import (
	"bytes"
	"io"
	"io/ioutil"
	"mime/multipart"
	"testing"

	"industrium/account"
	"industrium/authority"
	"industrium/bizerror"
	"industrium/client/s3"
	"industrium/domain/annotation"
	"industrium/domain/notification"
	"industrium/domain/project"
	"industrium/domain/status"
	"industrium/domain/task"
	"industrium/event"
	"industrium/persistence"
	"industrium/session"
	"industrium/testinfra"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func setupAnnotationTestDatabase(t *testing.T) *testinfra.TestDatabase {
	testDatabase := testinfra.StartSqliteTestDatabase("industrium")
	persistence.ActiveDataSourceManager = testDatabase.DS
	err := testDatabase.DS.GormDB(nil).AutoMigrate(
		&annotation.Comment{}, &annotation.Attachment{},
		&project.Project{}, &task.Task{}, &account.User{},
		&notification.TaskNotification{}, &event.EventRecord{}).Error
	Expect(err).To(BeNil())
	return testDatabase
}

func buildProjectAndTask(t *testing.T) {
	db := persistence.ActiveDataSourceManager.GormDB(nil)
	now := types.CurrentTimestamp()
	Expect(db.Create(&project.Project{ID: 100, Name: "press line", Status: status.ProjectInProgress,
		CreateTime: now, LastModifiedTime: now}).Error).To(BeNil())
	Expect(db.Create(&task.Task{ID: 200, Title: "wiring", AssigneeID: 10, ProjectID: 100,
		Status: status.TaskInProgress, CreateTime: now}).Error).To(BeNil())
}

func TestCreateComment(t *testing.T) {
	RegisterTestingT(t)

	t.Run("a comment must reference an existing parent", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupAnnotationTestDatabase(t))
		buildProjectAndTask(t)

		_, err := annotation.CreateComment(&annotation.CommentCreation{
			Parent: annotation.ParentRef{Kind: annotation.ParentKindTask, ID: 999}, Body: "missing"},
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).ToNot(BeNil())
	})

	t.Run("commenting a task touches its owning project", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupAnnotationTestDatabase(t))
		buildProjectAndTask(t)
		db := persistence.ActiveDataSourceManager.GormDB(nil)

		record, err := annotation.CreateComment(&annotation.CommentCreation{
			Parent: annotation.ParentRef{Kind: annotation.ParentKindTask, ID: 200}, Body: "torque checked"},
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())
		Expect(record.AuthorID).To(Equal(types.ID(10)))

		var p project.Project
		Expect(db.Where(&project.Project{ID: 100}).First(&p).Error).To(BeNil())
		Expect(p.LastModifiedBy).To(Equal(types.ID(10)))
	})
}

func TestDeleteComment(t *testing.T) {
	RegisterTestingT(t)

	t.Run("only the author or a manager can delete a comment", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupAnnotationTestDatabase(t))
		buildProjectAndTask(t)

		record, err := annotation.CreateComment(&annotation.CommentCreation{
			Parent: annotation.ParentRef{Kind: annotation.ParentKindProject, ID: 100}, Body: "kickoff"},
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())

		Expect(annotation.DeleteComment(record.ID, testinfra.BuildSession(20, authority.RoleWorker))).
			To(Equal(bizerror.ErrForbidden))
		Expect(annotation.DeleteComment(record.ID, testinfra.BuildSession(1, authority.RoleManager))).To(BeNil())
	})
}

func TestAnnotationCleanup(t *testing.T) {
	RegisterTestingT(t)

	t.Run("deleting a task drops its comments with it", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupAnnotationTestDatabase(t))
		buildProjectAndTask(t)
		db := persistence.ActiveDataSourceManager.GormDB(nil)

		_, err := annotation.CreateComment(&annotation.CommentCreation{
			Parent: annotation.ParentRef{Kind: annotation.ParentKindTask, ID: 200}, Body: "torque checked"},
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())

		Expect(task.DeleteTask(200, testinfra.BuildSession(1, authority.RoleManager))).To(BeNil())

		count := 0
		Expect(db.Model(&annotation.Comment{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())
	})
}

func buildFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", name)
	Expect(err).To(BeNil())
	_, err = fw.Write(content)
	Expect(err).To(BeNil())
	Expect(w.Close()).To(BeNil())

	form, err := multipart.NewReader(&b, w.Boundary()).ReadForm(1 << 20)
	Expect(err).To(BeNil())
	return form.File["file"][0]
}

func TestAttachments(t *testing.T) {
	RegisterTestingT(t)

	t.Run("upload stores the blob under the record's object key", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupAnnotationTestDatabase(t))
		buildProjectAndTask(t)

		storedKeys := []string{}
		s3.PutObjectFunc = func(key string, r io.Reader, s *session.Session, opts ...oss.Option) error {
			content, err := ioutil.ReadAll(r)
			Expect(err).To(BeNil())
			Expect(string(content)).To(Equal("drawing-v2"))
			storedKeys = append(storedKeys, key)
			return nil
		}
		defer func() { s3.PutObjectFunc = nil }()

		record, err := annotation.CreateAttachment(
			annotation.ParentRef{Kind: annotation.ParentKindTask, ID: 200},
			buildFileHeader(t, "drawing.pdf", []byte("drawing-v2")),
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())
		Expect(record.FileName).To(Equal("drawing.pdf"))
		Expect(storedKeys).To(Equal([]string{record.ObjectKey()}))
	})

	t.Run("delete removes the row first and the blob afterwards", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupAnnotationTestDatabase(t))
		buildProjectAndTask(t)
		db := persistence.ActiveDataSourceManager.GormDB(nil)

		s3.PutObjectFunc = func(key string, r io.Reader, s *session.Session, opts ...oss.Option) error { return nil }
		deletedKeys := []string{}
		s3.DeleteObjectFunc = func(key string, s *session.Session, opts ...oss.Option) error {
			deletedKeys = append(deletedKeys, key)
			return nil
		}
		defer func() { s3.PutObjectFunc = nil; s3.DeleteObjectFunc = nil }()

		record, err := annotation.CreateAttachment(
			annotation.ParentRef{Kind: annotation.ParentKindTask, ID: 200},
			buildFileHeader(t, "drawing.pdf", []byte("drawing-v2")),
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(BeNil())

		Expect(annotation.DeleteAttachment(record.ID, testinfra.BuildSession(20, authority.RoleWorker))).
			To(Equal(bizerror.ErrForbidden))
		Expect(annotation.DeleteAttachment(record.ID, testinfra.BuildSession(10, authority.RoleWorker))).To(BeNil())

		count := 0
		Expect(db.Model(&annotation.Attachment{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())
		Expect(deletedKeys).To(Equal([]string{record.ObjectKey()}))
	})
}
