package annotation

import (
	"io"
	"net/http"

	"industrium/bizerror"
	"industrium/client/s3"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathComments    = "/v1/comments"
	PathAttachments = "/v1/attachments"
)

func RegisterAnnotationsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	cg := r.Group(PathComments, middleWares...)
	cg.POST("", handleCreateComment)
	cg.GET("", handleQueryComments)
	cg.DELETE(":id", handleDeleteComment)

	ag := r.Group(PathAttachments, middleWares...)
	ag.POST("", handleCreateAttachment)
	ag.GET("", handleQueryAttachments)
	ag.GET(":id/content", handleAttachmentContent)
	ag.DELETE(":id", handleDeleteAttachment)
}

func handleCreateComment(c *gin.Context) {
	creation := CommentCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateCommentFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryComments(c *gin.Context) {
	query := CommentQuery{}
	if err := c.ShouldBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryCommentsFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDeleteComment(c *gin.Context) {
	if err := DeleteCommentFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleCreateAttachment(c *gin.Context) {
	parent := ParentRef{}
	if err := c.ShouldBindWith(&parent, binding.FormMultipart); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	file, err := c.FormFile("file")
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateAttachmentFunc(parent, file, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryAttachments(c *gin.Context) {
	query := AttachmentQuery{}
	if err := c.ShouldBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryAttachmentsFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleAttachmentContent(c *gin.Context) {
	s := session.ExtractSessionFromGinContext(c)
	record, err := DetailAttachment(parseIdParam(c), s)
	if err != nil {
		panic(err)
	}
	body, err := s3.GetObjectFunc(record.ObjectKey(), s)
	if err != nil {
		panic(err)
	}
	defer body.Close()

	c.Header("Content-Disposition", `attachment; filename="`+record.FileName+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		panic(err)
	}
}

func handleDeleteAttachment(c *gin.Context) {
	if err := DeleteAttachmentFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func parseIdParam(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	return id
}
