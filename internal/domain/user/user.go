package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/biztime"
)

var emailValidator = validator.New()

// User is the identity referenced by tickets as reporter, assignee or author.
type User struct {
	id         string
	name       string
	email      string
	role       authorization.UserRole
	department string
	active     bool
	createdAt  time.Time
	updatedAt  time.Time
}

// NewUser creates an active user.
func NewUser(id, name, email string, role authorization.UserRole, department string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("user name is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := emailValidator.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("invalid email: %s", email)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid user role: %s", role)
	}

	now := biztime.NowUTC()
	return &User{
		id:         id,
		name:       strings.TrimSpace(name),
		email:      email,
		role:       role,
		department: strings.TrimSpace(department),
		active:     true,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructUser rebuilds a user from persistence.
func ReconstructUser(id, name, email string, role authorization.UserRole, department string, active bool, createdAt, updatedAt time.Time) *User {
	return &User{
		id:         id,
		name:       name,
		email:      email,
		role:       role,
		department: department,
		active:     active,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (u *User) ID() string                   { return u.id }
func (u *User) Name() string                 { return u.name }
func (u *User) Email() string                { return u.email }
func (u *User) Role() authorization.UserRole { return u.role }
func (u *User) Department() string           { return u.department }
func (u *User) IsActive() bool               { return u.active }
func (u *User) CreatedAt() time.Time         { return u.createdAt }
func (u *User) UpdatedAt() time.Time         { return u.updatedAt }

// Deactivate keeps the user resolvable for history but no longer assignable.
func (u *User) Deactivate() {
	u.active = false
	u.updatedAt = biztime.NowUTC()
}

// AsActor returns the identity the permission evaluator works with.
func (u *User) AsActor() authorization.Actor {
	return authorization.Actor{ID: u.id, Role: u.role, Department: u.department}
}
