package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/config"
	"github.com/angelmondragon/literature-backend/pkg/db"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
	"github.com/angelmondragon/literature-backend/pkg/security"
)

const minPasswordLength = 8

// Service manages accounts. Everything except Me requires users:manage.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*UserDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error)
	Me(ctx context.Context, actor auth.Actor) (*UserDTO, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (pagination.Page[UserDTO], error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*UserDTO, error)
	Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error
}

type userStore interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filter ListFilter) ([]models.User, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type organizationLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

type service struct {
	repo          userStore
	organizations organizationLookup
	passwords     config.PasswordConfig
	logg          *logger.Logger
}

func NewService(repo userStore, organizations organizationLookup, passwords config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if organizations == nil {
		return nil, fmt.Errorf("organization lookup is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, organizations: organizations, passwords: passwords, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*UserDTO, error) {
	if err := actor.Require(enums.PermUsersManage); err != nil {
		return nil, err
	}
	email := NormalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if err := s.requireOrganization(ctx, input.OrganizationID); err != nil {
		return nil, err
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Role:           input.Role,
		OrganizationID: input.OrganizationID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"created_user_id": user.ID.String(),
		"role":            string(user.Role),
	}), "user.created")
	return FromModel(user), nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error) {
	if actor.UserID != id {
		if err := actor.Require(enums.PermUsersManage); err != nil {
			return nil, err
		}
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) Me(ctx context.Context, actor auth.Actor) (*UserDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (pagination.Page[UserDTO], error) {
	var empty pagination.Page[UserDTO]
	if err := actor.Require(enums.PermUsersManage); err != nil {
		return empty, err
	}
	if _, err := pagination.ParseCursor(filter.Page.Cursor); err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	dtos := make([]UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return pagination.Build(dtos, filter.Page.Limit, func(u UserDTO) pagination.Cursor {
		return pagination.Cursor{At: u.CreatedAt, ID: u.ID}
	}), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*UserDTO, error) {
	if err := actor.Require(enums.PermUsersManage); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name cannot be empty")
		}
		updates["first_name"] = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "last name cannot be empty")
		}
		updates["last_name"] = name
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		updates["role"] = *input.Role
	}
	if input.OrganizationID != nil {
		if err := s.requireOrganization(ctx, *input.OrganizationID); err != nil {
			return nil, err
		}
		updates["organization_id"] = *input.OrganizationID
	}
	if input.Password != nil {
		hash, err := s.hash(*input.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if input.IsActive != nil {
		if !*input.IsActive && id == actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate yourself")
		}
		updates["is_active"] = *input.IsActive
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	inactive := false
	if _, err := s.Update(ctx, actor, id, UpdateInput{IsActive: &inactive}); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "deactivated_user_id", id.String()), "user.deactivated")
	return nil
}

func (s *service) requireOrganization(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization is required")
	}
	org, err := s.organizations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "organization not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	if !org.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization is inactive")
	}
	return nil
}

func (s *service) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	hash, err := security.HashPassword(password, s.passwords)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
