package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"carrental/internal/auth"
	"carrental/internal/errors"
	"carrental/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUserName(ctx context.Context, userName string) (*model.User, error) {
	args := m.Called(ctx, userName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmailOrUserName(ctx context.Context, email, userName string, excludeID uint) (bool, error) {
	args := m.Called(ctx, email, userName, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func TestAuthService_Login(t *testing.T) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	existing := &model.User{
		UserID:       3,
		UserName:     "jdoe",
		PasswordHash: string(hashedPassword),
		Role:         model.RoleUser,
	}

	tests := []struct {
		name          string
		username      string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			username: "jdoe",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUserName", mock.Anything, "jdoe").Return(existing, nil)
			},
		},
		{
			name:     "wrong password",
			username: "jdoe",
			password: "nope-nope",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUserName", mock.Anything, "jdoe").Return(existing, nil)
			},
			expectedError: errors.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			username: "ghost",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUserName", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: errors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			jwtService := auth.NewJWTService("test-secret", time.Hour)
			service := NewAuthService(mockRepo, jwtService, new(MockTokenStore))

			token, user, err := service.Login(context.Background(), tt.username, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, uint(3), user.UserID)

				claims, err := jwtService.ValidateToken(token)
				require.NoError(t, err)
				assert.Equal(t, "jdoe", claims.Username)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Validate(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	user := &model.User{UserID: 9, UserName: "admin", Role: model.RoleAdmin}
	token, err := jwtService.GenerateToken(user)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockTokenStore)
		store.On("IsTokenRevoked", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
		repo.On("FindByID", mock.Anything, uint(9)).Return(user, nil)

		claims, err := NewAuthService(repo, jwtService, store).Validate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, claims.Role)
		repo.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("revoked token", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("IsTokenRevoked", mock.Anything, mock.AnythingOfType("string")).Return(true, nil)

		_, err := NewAuthService(new(MockUserRepository), jwtService, store).Validate(context.Background(), token)
		assert.ErrorIs(t, err, errors.ErrInvalidToken)
	})

	t.Run("deleted user", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockTokenStore)
		store.On("IsTokenRevoked", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
		repo.On("FindByID", mock.Anything, uint(9)).Return(nil, gorm.ErrRecordNotFound)

		_, err := NewAuthService(repo, jwtService, store).Validate(context.Background(), token)
		assert.ErrorIs(t, err, errors.ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore)).Validate(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, errors.ErrInvalidToken)
	})
}

func TestAuthService_Revoke(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	token, err := jwtService.GenerateToken(&model.User{UserID: 1, Role: model.RoleUser})
	require.NoError(t, err)
	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)

	store := new(MockTokenStore)
	store.On("RevokeToken", mock.Anything, claims.ID, mock.AnythingOfType("time.Duration")).Return(nil)

	err = NewAuthService(new(MockUserRepository), jwtService, store).Revoke(context.Background(), claims)
	require.NoError(t, err)
	store.AssertExpectations(t)
}
