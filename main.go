package main

import (
	"net/http"

	"industrium/account"
	"industrium/bizerror"
	"industrium/client/s3"
	"industrium/domain/annotation"
	"industrium/domain/directory"
	"industrium/domain/notification"
	"industrium/domain/order"
	"industrium/domain/project"
	"industrium/domain/task"
	"industrium/event"
	"industrium/infra/tracing"
	"industrium/misc"
	"industrium/persistence"
	"industrium/servehttp"
	"industrium/session"
	"industrium/sessions"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Infoln("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database connection failed %v", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(nil).AutoMigrate(
		&account.User{},
		&directory.Department{}, &directory.Position{},
		&project.Project{}, &order.Order{}, &task.Task{},
		&notification.TaskNotification{},
		&annotation.Comment{}, &annotation.Attachment{},
		&event.EventRecord{},
	).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v", err)
	}

	tracingCloser := tracing.Bootstrap()
	defer tracingCloser.Close()

	s3.Bootstrap()

	event.EventHandlers = append(event.EventHandlers, event.StatusChangeLogHandler)

	engine := gin.New()
	engine.Use(gin.LoggerWithWriter(logrus.StandardLogger().Out), bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, misc.GetServiceName())
	})

	sessions.RegisterSessionsHandler(engine)
	sessions.RegisterSessionUsersHandler(engine, session.AuthFilter())

	account.RegisterUsersRestAPI(engine, session.AuthFilter())
	directory.RegisterDirectoryRestAPI(engine, session.AuthFilter())
	project.RegisterProjectsRestAPI(engine, session.AuthFilter())
	order.RegisterOrdersRestAPI(engine, session.AuthFilter())
	task.RegisterTasksRestAPI(engine, session.AuthFilter())
	notification.RegisterNotificationsRestAPI(engine, session.AuthFilter())
	annotation.RegisterAnnotationsRestAPI(engine, session.AuthFilter())

	servehttp.StartHTTPServer(engine)
}
