package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

func studentMarks(t *testing.T, studentID string) (int, string) {
	t.Helper()
	st, err := studentRepo.GetStudentByID(context.Background(), studentID)
	if err != nil {
		t.Fatalf("GetStudentByID() failed: %v", err)
	}
	return st.AverageMarks, st.OverallGrade
}

func Test_marksApi_create(t *testing.T) {
	resetDB(t)
	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	facA := createUser(t, "Prof A", "a@test.cd", user.RoleFaculty)
	facB := createUser(t, "Prof B", "b@test.cd", user.RoleFaculty)
	c := createCourse(t, "CS", "Mathematics")
	su := createUser(t, "S1", "s1@test.cd", user.RoleStudent)
	st := createStudent(t, su.ID, c.ID, facA.ID)

	body := marchallObj(t, map[string]interface{}{
		"student_id": st.ID, "subject": "Mathematics", "exam_type": "Mid-term",
		"max_marks": 50, "marks_obtained": 46, "exam_date": "2021-03-15",
	})

	t.Run("faculty only", func(t *testing.T) {
		for _, usr := range []user.User{admin, su} {
			req, rec := newAuthRequest(http.MethodPost, "/v1/marks", getToken(t, usr), body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
		}
	})
	t.Run("unassigned student out of scope", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", getToken(t, facB), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
	t.Run("unknown student", func(t *testing.T) {
		b := marchallObj(t, map[string]interface{}{
			"student_id": "nope", "subject": "Mathematics", "exam_type": "quiz",
			"max_marks": 50, "marks_obtained": 40, "exam_date": "2021-03-15",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", getToken(t, facA), b)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: student.ErrNotFound.Error()})}, rec)
	})
	t.Run("obtained above max rejected", func(t *testing.T) {
		b := marchallObj(t, map[string]interface{}{
			"student_id": st.ID, "subject": "Mathematics", "exam_type": "quiz",
			"max_marks": 50, "marks_obtained": 51, "exam_date": "2021-03-15",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", getToken(t, facA), b)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
	t.Run("created with derived fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", getToken(t, facA), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var m marks.Marks
		decodeBody(t, rec, &m)
		if m.Percentage != 92 || m.Grade != "A+" {
			t.Errorf("derived = %d %s, want 92 A+", m.Percentage, m.Grade)
		}
		if m.ExamType != marks.ExamMidterm {
			t.Errorf("exam_type = %s, want %s", m.ExamType, marks.ExamMidterm)
		}
		if m.CreatedBy != facA.ID {
			t.Errorf("created_by = %s, want %s", m.CreatedBy, facA.ID)
		}
		if avg, grade := studentMarks(t, st.ID); avg != 92 || grade != "A+" {
			t.Errorf("student overall = %d %s, want 92 A+", avg, grade)
		}
	})
	t.Run("overall averages all records", func(t *testing.T) {
		b := marchallObj(t, map[string]interface{}{
			"student_id": st.ID, "subject": "Mathematics", "exam_type": "quiz",
			"max_marks": 20, "marks_obtained": 15, "exam_date": "2021-03-20",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", getToken(t, facA), b)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		// (92 + 75) / 2 = 84 (rounded)
		if avg, grade := studentMarks(t, st.ID); avg != 84 || grade != "A-" {
			t.Errorf("student overall = %d %s, want 84 A-", avg, grade)
		}
	})
}

func Test_marksApi_updateDelete(t *testing.T) {
	resetDB(t)
	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	facA := createUser(t, "Prof A", "a@test.cd", user.RoleFaculty)
	facB := createUser(t, "Prof B", "b@test.cd", user.RoleFaculty)
	c := createCourse(t, "CS", "Mathematics")
	su := createUser(t, "S1", "s1@test.cd", user.RoleStudent)
	st := createStudent(t, su.ID, c.ID, facA.ID)
	m := createMarks(t, st.ID, facA.ID, "Mathematics", marks.ExamMidterm, 46, 50)

	t.Run("only the author may update", func(t *testing.T) {
		for _, usr := range []user.User{admin, facB, su} {
			req, rec := newAuthRequest(http.MethodPut, "/v1/marks/"+m.ID, getToken(t, usr), []byte(`{"marks_obtained":40}`))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
		}
	})
	t.Run("author updates and derived fields follow", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/marks/"+m.ID, getToken(t, facA), []byte(`{"marks_obtained":40}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var updated marks.Marks
		decodeBody(t, rec, &updated)
		if updated.Percentage != 80 || updated.Grade != "A-" {
			t.Errorf("derived = %d %s, want 80 A-", updated.Percentage, updated.Grade)
		}
		if avg, grade := studentMarks(t, st.ID); avg != 80 || grade != "A-" {
			t.Errorf("student overall = %d %s, want 80 A-", avg, grade)
		}
	})
	t.Run("resulting pair stays valid", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/marks/"+m.ID, getToken(t, facA), []byte(`{"marks_obtained":60}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
	t.Run("only the author may delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/marks/"+m.ID, getToken(t, facB))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
	t.Run("delete recomputes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/marks/"+m.ID, getToken(t, facA))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if avg, grade := studentMarks(t, st.ID); avg != 0 || grade != marks.GradeNA {
			t.Errorf("student overall = %d %s, want 0 %s", avg, grade, marks.GradeNA)
		}
	})
	t.Run("unknown record", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/marks/nope", getToken(t, facA))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: marks.ErrNotFound.Error()})}, rec)
	})
}

func Test_marksApi_queries(t *testing.T) {
	resetDB(t)
	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	facA := createUser(t, "Prof A", "a@test.cd", user.RoleFaculty)
	facB := createUser(t, "Prof B", "b@test.cd", user.RoleFaculty)
	c := createCourse(t, "CS", "Mathematics", "Physics")
	s1u := createUser(t, "S1", "s1@test.cd", user.RoleStudent)
	s2u := createUser(t, "S2", "s2@test.cd", user.RoleStudent)
	st1 := createStudent(t, s1u.ID, c.ID, facA.ID)
	st2 := createStudent(t, s2u.ID, c.ID, facB.ID)

	m1 := createMarks(t, st1.ID, facA.ID, "Mathematics", marks.ExamMidterm, 46, 50)
	m2 := createMarks(t, st1.ID, facA.ID, "Physics", marks.ExamQuiz, 15, 20)
	m3 := createMarks(t, st1.ID, facB.ID, "Physics", marks.ExamFinal, 30, 40) // authored before reassignment
	m4 := createMarks(t, st2.ID, facB.ID, "Mathematics", marks.ExamQuiz, 10, 20)

	t.Run("admin sees all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks", getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, m1, m2, m3, m4)}, rec)
	})
	t.Run("faculty sees own records for assigned students", func(t *testing.T) {
		// m3 is facB's but st1 is no longer assigned there; m4 qualifies on both
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks", getToken(t, facB))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, m4)}, rec)
	})
	t.Run("student sees own records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks", getToken(t, s1u))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, m1, m2, m3)}, rec)
	})
	t.Run("subject filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks?subject=physics", getToken(t, s1u))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, m2, m3)}, rec)
	})
	t.Run("exam type filter normalizes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks?exam_type=Mid-term", getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, m1)}, rec)
	})
	t.Run("by student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks/student/"+st1.ID+"?subject=Mathematics", getToken(t, facA))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, m1)}, rec)
	})
	t.Run("by student is scoped", func(t *testing.T) {
		for _, usr := range []user.User{facA, s1u} {
			req, rec := newAuthRequest(http.MethodGet, "/v1/marks/student/"+st2.ID, getToken(t, usr))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
		}
	})
}
