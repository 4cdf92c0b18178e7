package tests

import (
	"context"
	"os"
	"testing"
	"time"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

var (
	db  *inmemdb.DB
	app echoapi.Server

	usrRepo     user.Repository
	courseRepo  course.Repository
	studentRepo student.Repository
	attRepo     attendance.Repository
	marksRepo   marks.Repository

	studentSvc student.ServiceInterface

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	// errors are asserted against their mapped payloads, not raw traces
	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db = inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	courseRepo = inmemdb.NewCourseRepository(db)
	sRepo := inmemdb.NewStudentRepository(db)
	studentRepo = sRepo
	aRepo := inmemdb.NewAttendanceRepository(db)
	attRepo = aRepo
	mRepo := inmemdb.NewMarksRepository(db)
	marksRepo = mRepo

	// set up services
	logger := testLogger{}
	mailSvc := emailsvc.NewConsoleService()
	usrSvc := user.NewService(usrRepo, sRepo, mailSvc)
	courseSvc := course.NewService(courseRepo)
	studentSvc = student.NewService(sRepo, usrSvc, usrRepo, courseRepo, aRepo, mRepo)
	attSvc := attendance.NewService(aRepo, sRepo, logger)
	marksSvc := marks.NewService(mRepo, sRepo, logger)

	// set up server
	app = echoapi.NewServer(&echoapi.Options{
		DisableReqLogs: true,
		Logger:         logger,
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		StudentSvc:     studentSvc,
		AttendanceSvc:  attSvc,
		MarksSvc:       marksSvc,
	})

	os.Exit(m.Run())
}

func resetDB(t *testing.T) {
	t.Helper()
	db.Clear()
}

func createUser(t *testing.T, name, email, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{Name: name, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	if err := usr.SetPassword("secret12"); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createCourse(t *testing.T, name string, subjects ...string) course.Course {
	t.Helper()
	now := time.Now().UTC()
	c, err := courseRepo.CreateCourse(context.Background(), course.Course{
		Name:      name,
		Subjects:  subjects,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

func createStudent(t *testing.T, userID, courseID, facultyID string) student.Student {
	t.Helper()
	now := time.Now().UTC()
	st, err := studentRepo.CreateStudent(context.Background(), student.Student{
		UserID:       userID,
		CourseID:     courseID,
		FacultyID:    facultyID,
		OverallGrade: marks.GradeNA,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return st
}

func markAttendance(t *testing.T, studentID, facultyID, date, status string) attendance.Attendance {
	t.Helper()
	day, err := attendance.ParseDate(date)
	if err != nil {
		t.Fatalf("markAttendance() failed: %v", err)
	}
	now := time.Now().UTC()
	att, err := attRepo.CreateAttendance(context.Background(), attendance.Attendance{
		StudentID: studentID,
		FacultyID: facultyID,
		Date:      day,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("markAttendance() failed: %v", err)
	}
	return att
}

func createMarks(t *testing.T, studentID, createdBy, subject, examType string, obtained, max int) marks.Marks {
	t.Helper()
	now := time.Now().UTC()
	m := marks.Marks{
		StudentID:     studentID,
		Subject:       subject,
		ExamType:      examType,
		MaxMarks:      max,
		MarksObtained: obtained,
		ExamDate:      time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.Recompute()
	m, err := marksRepo.CreateMarks(context.Background(), m)
	if err != nil {
		t.Fatalf("createMarks() failed: %v", err)
	}
	return m
}
