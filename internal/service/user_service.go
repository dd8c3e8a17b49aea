package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

// CreateUserInput is the body of POST /users.
type CreateUserInput struct {
	FirstName string          `json:"first_name" validate:"required,max=100"`
	LastName  string          `json:"last_name" validate:"required,max=100"`
	UserName  string          `json:"user_name" validate:"required,min=2,max=100"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=6"`
	Role      model.Role      `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	CreatedAt model.Timestamp `json:"created_at"`
}

// UpdateProfileInput is the body of PUT /users/me. An empty password keeps
// the current one.
type UpdateProfileInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	UserName  string `json:"user_name" validate:"required,min=2,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"omitempty,min=6"`
}

var timeNow = time.Now

// UserService handles the user directory and the caller's own profile.
type UserService interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id uint) (*model.User, error)
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	UpdateProfile(ctx context.Context, id uint, in UpdateProfileInput) (*model.User, error)
	Delete(ctx context.Context, id uint) error
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

func (s *userService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create registers a user. Role defaults to USER and created_at to now.
func (s *userService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	userName := strings.TrimSpace(in.UserName)

	exists, err := s.repo.ExistsByEmailOrUserName(ctx, email, userName, 0)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if exists {
		return nil, errors.ErrUserAlreadyExists
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if !role.Valid() {
		role = model.RoleUser
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = model.NewTimestamp(timeNow())
	}

	user := &model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		UserName:     userName,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    createdAt,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's own record; role and created_at are kept.
func (s *userService) UpdateProfile(ctx context.Context, id uint, in UpdateProfileInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	userName := strings.TrimSpace(in.UserName)
	exists, err := s.repo.ExistsByEmailOrUserName(ctx, email, userName, id)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if exists {
		return nil, errors.ErrUserAlreadyExists
	}

	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.UserName = userName
	user.Email = email
	if in.Password != "" {
		hashed, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
