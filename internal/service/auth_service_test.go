package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/aquacentre-api/internal/models"
	"github.com/noah-isme/aquacentre-api/internal/repository"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	createErr     error
	lastLogin     bool
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{users: map[string]*models.User{}, refreshTokens: map[string]*models.RefreshToken{}}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, err := m.FindByEmail(ctx, user.Email); err == nil {
		return fmt.Errorf("create user: %w", repository.ErrDuplicate)
	}
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.TokenHash] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if tok, ok := m.refreshTokens[tokenHash]; ok {
		return tok, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, tok := range m.refreshTokens {
		if tok.ID == id {
			tok.Revoked = true
			tok.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newTestAuthService(repo *mockAuthRepo, audit auditWriter) *AuthService {
	return NewAuthService(repo, audit, nil, nil, AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "aquacentre-api",
	})
}

func seedUser(t *testing.T, repo *mockAuthRepo, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: "user-1", Email: "marie@example.com", PasswordHash: string(hash), FirstName: "Marie", Role: models.RoleCustomer, Active: active}
	repo.users[user.ID] = user
	return user
}

func TestAuthRegisterCreatesCustomer(t *testing.T) {
	repo := newMockAuthRepo()
	audit := &mockAuditWriter{}
	svc := newTestAuthService(repo, audit)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "Claire@Example.com", Password: "password123", FirstName: "Claire", LastName: "Dupont",
	})
	require.NoError(t, err)
	assert.Equal(t, "claire@example.com", resp.User.Email)
	assert.Equal(t, models.RoleCustomer, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Contains(t, repo.refreshTokens, HashToken(resp.RefreshToken))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRegister, audit.logs[0].Action)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Email: "claire@example.com", Password: "password123", FirstName: "Claire", LastName: "Dupont",
	})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestAuthRegisterValidatesPayload(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), nil)
	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "bad", Password: "short"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuthLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo()
	user := seedUser(t, repo, true)
	svc := newTestAuthService(repo, &mockAuditWriter{})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "password123"})
	require.NoError(t, err)
	assert.True(t, repo.lastLogin)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleCustomer, claims.Role)
}

func TestAuthLoginFailures(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(t, repo, true)
	svc := newTestAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "marie@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	repo.users["user-1"].Active = false
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "marie@example.com", Password: "password123"})
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo()
	user := seedUser(t, repo, true)
	svc := newTestAuthService(repo, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.refreshTokens[HashToken(login.RefreshToken)].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthLogoutChecksOwnership(t *testing.T) {
	repo := newMockAuthRepo()
	user := seedUser(t, repo, true)
	svc := newTestAuthService(repo, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "password123"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else", "", "")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, user.ID, "", ""))
	assert.True(t, repo.refreshTokens[HashToken(login.RefreshToken)].Revoked)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), nil)
	_, err := svc.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
