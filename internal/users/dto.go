package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Role           enums.Role `json:"role"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	IsActive       bool       `json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Role           enums.Role
	OrganizationID uuid.UUID
	IsActive       *bool
}

// CreateInput is the admin-facing payload for a new account.
type CreateInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Role           enums.Role
	OrganizationID uuid.UUID
}

// UpdateInput carries optional profile, role and password changes.
type UpdateInput struct {
	FirstName      *string
	LastName       *string
	Role           *enums.Role
	OrganizationID *uuid.UUID
	Password       *string
	IsActive       *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		IsActive:       u.IsActive,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		ID:             uuid.New(),
		Email:          NormalizeEmail(c.Email),
		PasswordHash:   c.PasswordHash,
		FirstName:      strings.TrimSpace(c.FirstName),
		LastName:       strings.TrimSpace(c.LastName),
		Role:           c.Role,
		OrganizationID: c.OrganizationID,
		IsActive:       isActive,
	}
}

// NormalizeEmail lowercases and trims addresses before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
