package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"live-docs/auth"
	"live-docs/errors"
	"live-docs/mocks"
	"live-docs/repositories"
)

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, 24*time.Hour)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		email := "test@example.com"
		password := "ComplexPass123!" // Must satisfy the complexity rules
		expectedUserID := "user-uuid"

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser(email, "alice", gomock.Any()).
			DoAndReturn(func(_, _, hashedPassword string) (string, error) {
				require.NotEqual(t, password, hashedPassword)
				match, err := auth.ComparePassword(password, hashedPassword)
				require.NoError(t, err)
				require.True(t, match)
				return expectedUserID, nil
			})

		token, user, err := svc.Register(email, "alice", password)
		req.NoError(err)
		req.NotEmpty(token)
		req.Equal(expectedUserID, user.ID)
		req.Equal("alice", user.Username)

		// The returned token must validate and carry the new identity
		claims, err := auth.ValidateToken(string(token))
		req.NoError(err)
		req.Equal(expectedUserID, claims.UserID)
		req.Equal("alice", claims.Username)
	})

	t.Run("should reject weak passwords before touching storage", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, _, err := svc.Register("test@example.com", "alice", "tooweak")
		req.ErrorIs(err, errors.ErrInvalidPassword)
	})

	t.Run("should propagate duplicate email", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			CreateUser("taken@example.com", gomock.Any(), gomock.Any()).
			Return("", errors.ErrUserAlreadyExists)

		_, _, err := svc.Register("taken@example.com", "alice", "ComplexPass123!")
		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, 24*time.Hour)

	password := "ComplexPass123!"
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	storedUser := repositories.User{
		ID:           "user-uuid",
		Email:        "test@example.com",
		Username:     "alice",
		PasswordHash: hash,
	}

	t.Run("should login with correct credentials", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByEmail("test@example.com").Return(storedUser, nil)

		token, user, err := svc.Login("test@example.com", password)
		req.NoError(err)
		req.NotEmpty(token)
		req.Equal("user-uuid", user.ID)
	})

	t.Run("should reject wrong password", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByEmail("test@example.com").Return(storedUser, nil)

		_, _, err := svc.Login("test@example.com", "WrongPass123!")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return the same error for unknown emails", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByEmail("ghost@example.com").Return(repositories.User{}, errors.ErrInvalidCredentials)

		// Unknown account and wrong password are indistinguishable
		_, _, err := svc.Login("ghost@example.com", password)
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
