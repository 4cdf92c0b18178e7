package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	if err := run(logger); err != nil {
		logger.Fatal("server error", err)
	}
}

func run(logger core.Logger) error {
	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err = database.Ping(db); err != nil {
		return err
	}

	// set up repositories
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	studentRepo := sqlxrepos.NewStudentRepository(db)
	attRepo := sqlxrepos.NewAttendanceRepository(db)
	marksRepo := sqlxrepos.NewMarksRepository(db)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(usrRepo, studentRepo, mailSvc)
	courseSvc := course.NewService(courseRepo)
	studentSvc := student.NewService(studentRepo, usrSvc, usrRepo, courseRepo, attRepo, marksRepo)
	attSvc := attendance.NewService(attRepo, studentRepo, logger)
	marksSvc := marks.NewService(marksRepo, studentRepo, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:       core.Conf.Server.Addr(),
		Logger:        logger,
		UserSvc:       usrSvc,
		CourseSvc:     courseSvc,
		StudentSvc:    studentSvc,
		AttendanceSvc: attSvc,
		MarksSvc:      marksSvc,
		Shutdown:      shutdown,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening on " + core.Conf.Server.Addr())
		serverErrors <- app.Start()
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info("shutdown started", sig)
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			logger.Error("graceful shutdown failed", err)
			return err
		}
		logger.Info("shutdown complete")
	}
	return nil
}
