// Package inmemdb provides map-backed repositories for tests and local runs
// without a database.
package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

type DB struct {
	mu         sync.RWMutex
	users      map[string]*user.User
	courses    map[string]*course.Course
	students   map[string]*student.Student
	attendance map[string]*attendance.Attendance
	marks      map[string]*marks.Marks
}

func NewDB() *DB {
	db := new(DB)
	db.reset()
	return db
}

// Clear drops all stored records.
func (db *DB) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users = make(map[string]*user.User)
	db.courses = make(map[string]*course.Course)
	db.students = make(map[string]*student.Student)
	db.attendance = make(map[string]*attendance.Attendance)
	db.marks = make(map[string]*marks.Marks)
}
