package tests

import (
	"context"
	"net/http"
	"testing"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/user"
)

func Test_authApi_login(t *testing.T) {
	resetDB(t)
	usr := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown email", body: []byte(`{"email":"who@test.cd","password":"secret12"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name: "wrong password", body: []byte(`{"email":"admin@test.cd","password":"nope"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name: "valid credentials", body: []byte(`{"email":"Admin@Test.cd","password":"secret12"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var resp echoapi.LoginResponse
				decodeBody(t, rec, &resp)
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				if resp.User.ID != usr.ID {
					t.Errorf("user = %v, want %v", resp.User.ID, usr.ID)
				}
				return
			}
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_verify(t *testing.T) {
	resetDB(t)
	usr := createUser(t, "Prof", "prof@test.cd", user.RoleFaculty)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/auth/verify")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})
	t.Run("echoes the principal", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/verify", getToken(t, usr))
		app.ServeHTTP(rec, req)
		wantData := []byte(`{"id":"` + usr.ID + `","name":"Prof","email":"prof@test.cd","role":"faculty"}`)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: wantData}, rec)
	})
}

func Test_authApi_changePassword(t *testing.T) {
	resetDB(t)
	usr := createUser(t, "Prof", "prof@test.cd", user.RoleFaculty)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "old password required", token: token, body: []byte(`{"new_password":"word12"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "old password must match", token: token, body: []byte(`{"old_password":"nope","new_password":"word12"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "password changed", token: token, body: []byte(`{"old_password":"secret12","new_password":"word12"}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{Success: "password changed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/change-password", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the new password is live
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", []byte(`{"email":"prof@test.cd","password":"word12"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
}

func Test_facultyApi_adminOnly(t *testing.T) {
	resetDB(t)
	fac := createUser(t, "Prof", "prof@test.cd", user.RoleFaculty)
	stu := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)

	for _, usr := range []user.User{fac, stu} {
		token := getToken(t, usr)
		for _, tt := range []httpTest{
			{name: usr.Role + " list", method: http.MethodGet, path: "/v1/faculty"},
			{name: usr.Role + " create", method: http.MethodPost, path: "/v1/faculty"},
			{name: usr.Role + " update", method: http.MethodPut, path: "/v1/faculty/" + fac.ID},
			{name: usr.Role + " delete", method: http.MethodDelete, path: "/v1/faculty/" + fac.ID},
			{name: usr.Role + " count", method: http.MethodGet, path: "/v1/faculty/" + fac.ID + "/students/count"},
		} {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(tt.method, tt.path, token)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
			})
		}
	}
}

func Test_facultyApi_crud(t *testing.T) {
	resetDB(t)
	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	adminToken := getToken(t, admin)

	var created user.User

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"name":"Prof Kanda","email":"kanda@test.cd","password":"secret12"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/faculty", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &created)
		if created.Role != user.RoleFaculty {
			t.Errorf("role = %s, want %s", created.Role, user.RoleFaculty)
		}
	})
	t.Run("duplicate email rejected", func(t *testing.T) {
		body := []byte(`{"name":"Prof Kanda","email":"kanda@test.cd","password":"secret12"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/faculty", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/faculty", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, created)}, rec)
	})
	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/faculty/"+created.ID, adminToken, []byte(`{"name":"Prof K"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var updated user.User
		decodeBody(t, rec, &updated)
		if updated.Name != "Prof K" {
			t.Errorf("name = %s, want Prof K", updated.Name)
		}
	})
	t.Run("update unknown", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/faculty/nope", adminToken, []byte(`{"name":"X"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()})}, rec)
	})
}

func Test_facultyApi_delete(t *testing.T) {
	resetDB(t)
	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	adminToken := getToken(t, admin)
	c := createCourse(t, "CS", "Mathematics")
	facA := createUser(t, "Prof A", "a@test.cd", user.RoleFaculty)
	facB := createUser(t, "Prof B", "b@test.cd", user.RoleFaculty)
	s1 := createUser(t, "S1", "s1@test.cd", user.RoleStudent)
	s2 := createUser(t, "S2", "s2@test.cd", user.RoleStudent)
	createStudent(t, s1.ID, c.ID, facA.ID)
	createStudent(t, s2.ID, c.ID, facA.ID)

	t.Run("student count", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/faculty/"+facA.ID+"/students/count", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"studentCount":2}`)}, rec)
	})
	t.Run("rejected without reassignment target", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/faculty/"+facA.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Error        string `json:"error"`
			StudentCount int    `json:"studentCount"`
		}
		decodeBody(t, rec, &resp)
		if resp.StudentCount != 2 {
			t.Errorf("studentCount = %d, want 2", resp.StudentCount)
		}
		if resp.Error == "" {
			t.Error("expected an error message")
		}
	})
	t.Run("reassignment to self rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/faculty/"+facA.ID+"?reassignTo="+facA.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
	att := markAttendance(t, createStudent(t, createUser(t, "S3", "s3@test.cd", user.RoleStudent).ID, c.ID, facB.ID).ID, facA.ID, "2021-03-15", "present")

	t.Run("reassigns then deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/faculty/"+facA.ID+"?reassignTo="+facB.ID, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"studentsReassigned":2}`)}, rec)

		// facB now has the two reassigned students on top of S3
		req, rec = newAuthRequest(http.MethodGet, "/v1/faculty/"+facB.ID+"/students/count", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"studentCount":3}`)}, rec)

		// the deleted faculty is gone
		req, rec = newAuthRequest(http.MethodGet, "/v1/faculty/"+facA.ID+"/students/count", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()})}, rec)

		// historical attendance keeps the recording faculty's id
		kept, err := attRepo.GetAttendanceByID(context.Background(), att.ID)
		if err != nil {
			t.Fatalf("GetAttendanceByID() failed: %v", err)
		}
		if kept.FacultyID != facA.ID {
			t.Errorf("FacultyID = %s, want %s", kept.FacultyID, facA.ID)
		}
	})
	t.Run("no dependents deletes directly", func(t *testing.T) {
		fac := createUser(t, "Prof C", "cc@test.cd", user.RoleFaculty)
		req, rec := newAuthRequest(http.MethodDelete, "/v1/faculty/"+fac.ID, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"studentsReassigned":0}`)}, rec)
	})
}
