package directory

import (
	"net/http"

	"industrium/bizerror"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathDepartments = "/v1/departments"
	PathPositions   = "/v1/positions"
)

func RegisterDirectoryRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	d := r.Group(PathDepartments, middleWares...)
	d.POST("", handleCreateDepartment)
	d.GET("", handleQueryDepartments)
	d.PUT(":id", handleUpdateDepartment)
	d.DELETE(":id", handleDeleteDepartment)

	p := r.Group(PathPositions, middleWares...)
	p.POST("", handleCreatePosition)
	p.GET("", handleQueryPositions)
	p.PUT(":id", handleUpdatePosition)
	p.DELETE(":id", handleDeletePosition)
}

func handleCreateDepartment(c *gin.Context) {
	creation := DepartmentCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateDepartmentFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryDepartments(c *gin.Context) {
	records, err := QueryDepartmentsFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdateDepartment(c *gin.Context) {
	id := parseIdParam(c)
	updating := DepartmentUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateDepartmentFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeleteDepartment(c *gin.Context) {
	if err := DeleteDepartmentFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleCreatePosition(c *gin.Context) {
	creation := PositionCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreatePositionFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryPositions(c *gin.Context) {
	records, err := QueryPositionsFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdatePosition(c *gin.Context) {
	id := parseIdParam(c)
	updating := PositionUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdatePositionFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeletePosition(c *gin.Context) {
	if err := DeletePositionFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c)); err != nil {
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
