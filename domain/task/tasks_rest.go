package task

import (
	"net/http"

	"industrium/bizerror"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathTasks = "/v1/tasks"

type RejectionBody struct {
	Reason string `json:"reason" binding:"omitempty,lte=1024"`
}

func RegisterTasksRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTasks, middleWares...)
	g.POST("", handleCreateTask)
	g.GET("", handleQueryTasks)
	g.GET(":id", handleDetailTask)
	g.PUT(":id", handleUpdateTask)
	g.DELETE(":id", handleDeleteTask)

	g.POST(":id/mark-done", handleMarkTaskDone)
	g.POST(":id/submit-complete", handleSubmitTaskComplete)
	g.POST(":id/confirm-complete", handleConfirmTaskComplete)
	// legacy alias of confirm-complete
	g.POST(":id/confirm-done", handleConfirmTaskComplete)
	g.POST(":id/reject-complete", handleRejectTaskComplete)
}

func handleCreateTask(c *gin.Context) {
	creation := TaskCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateTaskFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryTasks(c *gin.Context) {
	query := TaskQuery{}
	if err := c.ShouldBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryTasksFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailTask(c *gin.Context) {
	record, err := DetailTaskFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateTask(c *gin.Context) {
	id := parseIdParam(c)
	updating := TaskUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateTaskFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeleteTask(c *gin.Context) {
	if err := DeleteTaskFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleMarkTaskDone(c *gin.Context) {
	record, err := MarkTaskDoneFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleSubmitTaskComplete(c *gin.Context) {
	record, err := SubmitTaskCompleteFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleConfirmTaskComplete(c *gin.Context) {
	record, err := ConfirmTaskCompleteFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleRejectTaskComplete(c *gin.Context) {
	id := parseIdParam(c)
	body := RejectionBody{}
	// the reason is optional, an empty body is accepted
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil && err.Error() != "EOF" {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := RejectTaskCompleteFunc(id, body.Reason, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func parseIdParam(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	return id
}
