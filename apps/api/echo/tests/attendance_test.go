package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

func attendancePercent(t *testing.T, studentID string) int {
	t.Helper()
	st, err := studentRepo.GetStudentByID(context.Background(), studentID)
	if err != nil {
		t.Fatalf("GetStudentByID() failed: %v", err)
	}
	return st.AttendancePercent
}

func Test_attendanceApi_mark(t *testing.T) {
	resetDB(t)
	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	facA := createUser(t, "Prof A", "a@test.cd", user.RoleFaculty)
	facB := createUser(t, "Prof B", "b@test.cd", user.RoleFaculty)
	c := createCourse(t, "CS", "Mathematics")
	su := createUser(t, "S1", "s1@test.cd", user.RoleStudent)
	st := createStudent(t, su.ID, c.ID, facA.ID)

	body := marchallObj(t, map[string]string{"student_id": st.ID, "date": "2021-03-15", "status": "present"})

	t.Run("faculty only", func(t *testing.T) {
		// recording is the faculty's job, admins included out
		for _, usr := range []user.User{admin, su} {
			req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", getToken(t, usr), body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
		}
	})
	t.Run("unassigned student out of scope", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", getToken(t, facB), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
	t.Run("unknown student", func(t *testing.T) {
		b := marchallObj(t, map[string]string{"student_id": "nope", "date": "2021-03-15", "status": "present"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", getToken(t, facA), b)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: student.ErrNotFound.Error()})}, rec)
	})
	t.Run("marked", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", getToken(t, facA), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var att attendance.Attendance
		decodeBody(t, rec, &att)
		if att.FacultyID != facA.ID {
			t.Errorf("faculty_id = %s, want %s", att.FacultyID, facA.ID)
		}
		if got := attendancePercent(t, st.ID); got != 100 {
			t.Errorf("attendance_percentage = %d, want 100", got)
		}
	})
	t.Run("one record per student per day", func(t *testing.T) {
		b := marchallObj(t, map[string]string{"student_id": st.ID, "date": "2021-03-15", "status": "absent"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", getToken(t, facA), b)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: attendance.ErrDuplicateDate.Error()})}, rec)
	})
	t.Run("absence drags the percentage", func(t *testing.T) {
		b := marchallObj(t, map[string]string{"student_id": st.ID, "date": "2021-03-16", "status": "absent"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", getToken(t, facA), b)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := attendancePercent(t, st.ID); got != 50 {
			t.Errorf("attendance_percentage = %d, want 50", got)
		}
	})
}

func Test_attendanceApi_bulkMark(t *testing.T) {
	resetDB(t)
	facA := createUser(t, "Prof A", "a@test.cd", user.RoleFaculty)
	facB := createUser(t, "Prof B", "b@test.cd", user.RoleFaculty)
	c := createCourse(t, "CS", "Mathematics")
	s1 := createStudent(t, createUser(t, "S1", "s1@test.cd", user.RoleStudent).ID, c.ID, facA.ID)
	s2 := createStudent(t, createUser(t, "S2", "s2@test.cd", user.RoleStudent).ID, c.ID, facA.ID)
	s3 := createStudent(t, createUser(t, "S3", "s3@test.cd", user.RoleStudent).ID, c.ID, facB.ID)

	// s2 already has a record for the day
	markAttendance(t, s2.ID, facA.ID, "2021-03-15", attendance.StatusPresent)

	bulk := func(entries ...map[string]string) []byte {
		return marchallObj(t, map[string]interface{}{"date": "2021-03-15", "records": entries})
	}

	t.Run("out-of-scope student fails the batch", func(t *testing.T) {
		body := bulk(
			map[string]string{"student_id": s1.ID, "status": "present"},
			map[string]string{"student_id": s3.ID, "status": "present"},
		)
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk", getToken(t, facA), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

		// nothing was written
		recs, _ := attRepo.QueryAttendanceByStudent(context.Background(), s1.ID)
		if len(recs) != 0 {
			t.Errorf("records written for a failed batch: %d", len(recs))
		}
	})
	t.Run("duplicates are skipped", func(t *testing.T) {
		body := bulk(
			map[string]string{"student_id": s1.ID, "status": "present"},
			map[string]string{"student_id": s2.ID, "status": "late"},
		)
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk", getToken(t, facA), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Created []attendance.Attendance `json:"created"`
			Skipped int                     `json:"skipped"`
		}
		decodeBody(t, rec, &resp)
		if len(resp.Created) != 1 || resp.Skipped != 1 {
			t.Errorf("created = %d skipped = %d, want 1 and 1", len(resp.Created), resp.Skipped)
		}
		// the skipped student's existing record is untouched
		rec2, err := attRepo.GetAttendanceByStudentDate(context.Background(), s2.ID, resp.Created[0].Date)
		if err != nil {
			t.Fatalf("GetAttendanceByStudentDate() failed: %v", err)
		}
		if rec2.Status != attendance.StatusPresent {
			t.Errorf("status = %s, want %s", rec2.Status, attendance.StatusPresent)
		}
	})
}

func Test_attendanceApi_updateDelete(t *testing.T) {
	resetDB(t)
	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	facA := createUser(t, "Prof A", "a@test.cd", user.RoleFaculty)
	facB := createUser(t, "Prof B", "b@test.cd", user.RoleFaculty)
	c := createCourse(t, "CS", "Mathematics")
	su := createUser(t, "S1", "s1@test.cd", user.RoleStudent)
	st := createStudent(t, su.ID, c.ID, facA.ID)
	att := markAttendance(t, st.ID, facA.ID, "2021-03-15", attendance.StatusAbsent)

	t.Run("student cannot update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/attendance/"+att.ID, getToken(t, su), []byte(`{"status":"present"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
	t.Run("unassigned faculty cannot update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/attendance/"+att.ID, getToken(t, facB), []byte(`{"status":"present"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
	t.Run("admin corrects a record", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/attendance/"+att.ID, getToken(t, admin), []byte(`{"status":"present"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var updated attendance.Attendance
		decodeBody(t, rec, &updated)
		if updated.Status != attendance.StatusPresent {
			t.Errorf("status = %s, want %s", updated.Status, attendance.StatusPresent)
		}
		if got := attendancePercent(t, st.ID); got != 100 {
			t.Errorf("attendance_percentage = %d, want 100", got)
		}
	})
	t.Run("delete recomputes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/attendance/"+att.ID, getToken(t, facA))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := attendancePercent(t, st.ID); got != 0 {
			t.Errorf("attendance_percentage = %d, want 0", got)
		}
	})
	t.Run("unknown record", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/attendance/nope", getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: attendance.ErrNotFound.Error()})}, rec)
	})
}

func Test_attendanceApi_queries(t *testing.T) {
	resetDB(t)
	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	facA := createUser(t, "Prof A", "a@test.cd", user.RoleFaculty)
	facB := createUser(t, "Prof B", "b@test.cd", user.RoleFaculty)
	c := createCourse(t, "CS", "Mathematics")
	s1u := createUser(t, "S1", "s1@test.cd", user.RoleStudent)
	s2u := createUser(t, "S2", "s2@test.cd", user.RoleStudent)
	st1 := createStudent(t, s1u.ID, c.ID, facA.ID)
	st2 := createStudent(t, s2u.ID, c.ID, facB.ID)

	// st1's history includes a record left by facB before a reassignment
	a1 := markAttendance(t, st1.ID, facA.ID, "2021-03-15", attendance.StatusPresent)
	a2 := markAttendance(t, st1.ID, facB.ID, "2021-03-16", attendance.StatusLate)
	a3 := markAttendance(t, st2.ID, facB.ID, "2021-03-15", attendance.StatusAbsent)

	t.Run("admin sees all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance", getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, a1, a2, a3)}, rec)
	})
	t.Run("faculty sees assigned students' records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance", getToken(t, facA))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, a1, a2)}, rec)
	})
	t.Run("student sees own records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance", getToken(t, s1u))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, a1, a2)}, rec)
	})
	t.Run("by student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/student/"+st2.ID, getToken(t, facB))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, a3)}, rec)
	})
	t.Run("by student is scoped", func(t *testing.T) {
		for _, usr := range []user.User{facA, s1u} {
			req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/student/"+st2.ID, getToken(t, usr))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
		}
	})
}
