package core

// StudentInfo is the projection of a student profile that the access-control
// checks and derived-metric recomputation need: who the profile belongs to
// and which faculty owns it.
type StudentInfo struct {
	ID        string
	UserID    string
	FacultyID string
}
