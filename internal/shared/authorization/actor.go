package authorization

// Actor is the already-authenticated identity on whose behalf an operation runs.
type Actor struct {
	ID         string
	Role       UserRole
	Department string
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}
