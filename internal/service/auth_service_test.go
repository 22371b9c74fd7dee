package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"koins/internal/dto"
	"koins/internal/models"
	"koins/internal/repository"
	"koins/pkg/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuthService() (*AuthService, *memUserStore) {
	store := newMemUserStore()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(store, jwtManager, zap.NewNop()), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, store := newTestAuthService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "  Ana@Example.com ",
		Password: "supersecret",
		Name:     "Ana",
		LastName: "Gómez",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", registered.User.Email)
	assert.Equal(t, "Bearer", registered.TokenType)
	assert.Equal(t, int64(3600), registered.ExpiresIn)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)

	stored, err := store.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", stored.Password)

	loggedIn, err := svc.Login(ctx, &dto.LoginRequest{Email: "ANA@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "ana@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Rules(t *testing.T) {
	tests := []struct {
		name string
		req  dto.RegisterRequest
		want error
	}{
		{"bad email", dto.RegisterRequest{Email: "ana.example.com", Password: "supersecret", Name: "Ana"}, ErrInvalidEmail},
		{"short password", dto.RegisterRequest{Email: "ana@example.com", Password: "1234567", Name: "Ana"}, ErrWeakPassword},
		{"blank name", dto.RegisterRequest{Email: "ana@example.com", Password: "supersecret", Name: "  "}, ErrNameRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAuthService()
			_, err := svc.Register(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	svc, _ := newTestAuthService()
	req := dto.RegisterRequest{Email: "ana@example.com", Password: "supersecret", Name: "Ana"}
	_, err := svc.Register(context.Background(), &req)
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), &req)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRefreshToken(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, &dto.RegisterRequest{Email: "ana@example.com", Password: "supersecret", Name: "Ana"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, refreshed.User.ID)

	_, err = svc.RefreshToken(ctx, registered.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "access tokens cannot refresh")
	_, err = svc.RefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfile(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, &dto.RegisterRequest{Email: "ana@example.com", Password: "supersecret", Name: "Ana"})
	require.NoError(t, err)
	userID := uuid.MustParse(registered.User.ID)

	name, avatar := " Ana María ", "https://cdn.example.com/a.png"
	updated, err := svc.UpdateProfile(ctx, userID, &dto.UpdateProfileRequest{Name: &name, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", updated.Name)
	assert.Equal(t, avatar, updated.AvatarURL)

	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, *updated, *profile)

	blank := ""
	_, err = svc.UpdateProfile(ctx, userID, &dto.UpdateProfileRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrNameRequired)

	cleared, err := svc.UpdateProfile(ctx, userID, &dto.UpdateProfileRequest{AvatarURL: &blank})
	require.NoError(t, err)
	assert.Empty(t, cleared.AvatarURL)

	_, err = svc.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// lateDuplicateStore misses the email lookup but loses the insert, as a
// concurrent sign-up with the same address would.
type lateDuplicateStore struct {
	*memUserStore
}

func (s lateDuplicateStore) Create(ctx context.Context, user *models.User) error {
	return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
}

func TestRegister_ConcurrentDuplicateEmail(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	svc := NewAuthService(lateDuplicateStore{newMemUserStore()}, jwtManager, zap.NewNop())

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{Email: "ana@example.com", Password: "supersecret", Name: "Ana"})
	assert.ErrorIs(t, err, ErrUserExists)
}
