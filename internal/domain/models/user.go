package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// UserRole is a user's tenant-level role.
type UserRole string

const (
	UserRoleNone    UserRole = "None"
	UserRoleCreator UserRole = "Creator"
	UserRoleAdmin   UserRole = "Admin"
)

// ProjectRole is a user's role within one project.
type ProjectRole string

const (
	ProjectRoleOwner  ProjectRole = "Owner"
	ProjectRoleMember ProjectRole = "Member"
)

// User is a user document. Users own their project memberships: the
// authoritative record of who belongs to a project lives here, not on the
// project document.
type User struct {
	ID                 string              `json:"id"`
	Tenant             string              `json:"tenant"`
	Role               UserRole            `json:"role"`
	ProjectMemberships []ProjectMembership `json:"projectMemberships,omitempty"`
	Properties         map[string]string   `json:"properties,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// ProjectMembership associates a user with a project.
type ProjectMembership struct {
	ProjectID  string            `json:"projectId"`
	Role       ProjectRole       `json:"role"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Validate checks the user against its business rules.
func (u *User) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Role,
			validation.Required,
			validation.In(UserRoleNone, UserRoleCreator, UserRoleAdmin),
		),
		validation.Field(&u.ProjectMemberships),
		validation.Field(&u.Properties, validation.By(validProperties)),
	)
}

// Validate checks the membership against its business rules.
func (m ProjectMembership) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ProjectID, validation.Required),
		validation.Field(&m.Role,
			validation.Required,
			validation.In(ProjectRoleOwner, ProjectRoleMember),
		),
		validation.Field(&m.Properties, validation.By(validProperties)),
	)
}

// IsMember reports whether the user holds any membership in the project.
func (u *User) IsMember(projectID string) bool {
	_, ok := u.RoleFor(projectID)
	return ok
}

// IsOwner reports whether the user owns the project.
func (u *User) IsOwner(projectID string) bool {
	role, ok := u.RoleFor(projectID)
	return ok && role == ProjectRoleOwner
}

// RoleFor returns the user's role in the project, if any.
func (u *User) RoleFor(projectID string) (ProjectRole, bool) {
	for _, membership := range u.ProjectMemberships {
		if membership.ProjectID == projectID {
			return membership.Role, true
		}
	}
	return "", false
}

// EnsureMembership adds the membership or updates the existing one for the
// same project in place.
func (u *User) EnsureMembership(membership ProjectMembership) {
	for i, existing := range u.ProjectMemberships {
		if existing.ProjectID == membership.ProjectID {
			u.ProjectMemberships[i] = membership
			return
		}
	}
	u.ProjectMemberships = append(u.ProjectMemberships, membership)
}

// RemoveMembership drops the user's membership in the project and reports
// whether one was present.
func (u *User) RemoveMembership(projectID string) bool {
	for i, membership := range u.ProjectMemberships {
		if membership.ProjectID == projectID {
			u.ProjectMemberships = append(u.ProjectMemberships[:i], u.ProjectMemberships[i+1:]...)
			return true
		}
	}
	return false
}
