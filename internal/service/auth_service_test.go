package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rumbimoyo/academy-api/internal/models"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

type authRepoMock struct {
	profilesByEmail map[string]*models.Profile
	profilesByID    map[string]*models.Profile
	created         *models.Profile
	refreshTokens   map[string]*models.RefreshToken
	revokedIDs      []string
	revokedUsers    []string
	auditLogs       []*models.AuditLog
	passwordHash    string
}

func newAuthRepoMock() *authRepoMock {
	return &authRepoMock{
		profilesByEmail: map[string]*models.Profile{},
		profilesByID:    map[string]*models.Profile{},
		refreshTokens:   map[string]*models.RefreshToken{},
	}
}

func (m *authRepoMock) add(p *models.Profile) {
	m.profilesByEmail[p.Email] = p
	m.profilesByID[p.ID] = p
}

func (m *authRepoMock) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if p, ok := m.profilesByEmail[email]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if p, ok := m.profilesByID[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) Create(ctx context.Context, profile *models.Profile) error {
	m.created = profile
	m.add(profile)
	return nil
}

func (m *authRepoMock) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *authRepoMock) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordHash = passwordHash
	return nil
}

func (m *authRepoMock) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return nil
}

func (m *authRepoMock) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *authRepoMock) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revokedIDs = append(m.revokedIDs, id)
	return nil
}

func (m *authRepoMock) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type enrollmentApplierMock struct {
	applied []ApplyRequest
	err     error
}

func (m *enrollmentApplierMock) Apply(ctx context.Context, req ApplyRequest) (*models.EnrollmentDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.applied = append(m.applied, req)
	return &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: "enr-1", UserID: req.UserID, ProgramID: req.ProgramID, Status: models.EnrollmentStatusPending}}, nil
}

func newAuthFixture() (*AuthService, *authRepoMock, *enrollmentApplierMock) {
	repo := newAuthRepoMock()
	applier := &enrollmentApplierMock{}
	svc := NewAuthService(repo, applier, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "academy-api",
	})
	return svc, repo, applier
}

func seedProfile(repo *authRepoMock, password string) *models.Profile {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	profile := &models.Profile{
		ID:           "user-1",
		Email:        "tari@academy.dev",
		PasswordHash: string(hash),
		FullName:     "Tari M",
		Role:         models.RoleStudent,
		IsApproved:   true,
		IsActive:     true,
	}
	repo.add(profile)
	return profile
}

func TestAuthRegisterCreatesProfileAndEnrollment(t *testing.T) {
	svc, repo, applier := newAuthFixture()

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "new@academy.dev", Password: "secret1", FullName: "New Student", ProgramID: "prog-1", Motivation: "career switch",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.RoleStudent, repo.created.Role)
	assert.False(t, repo.created.IsApproved)
	assert.True(t, repo.created.IsActive)

	require.Len(t, applier.applied, 1)
	assert.Equal(t, repo.created.ID, applier.applied[0].UserID)
	assert.Equal(t, "prog-1", applier.applied[0].ProgramID)

	assert.False(t, info.IsApproved)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedProfile(repo, "secret1")

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "tari@academy.dev", Password: "secret1", FullName: "Tari M", ProgramID: "prog-1",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestAuthRegisterEnrollmentFailureKeepsProfile(t *testing.T) {
	svc, repo, applier := newAuthFixture()
	applier.err = errors.New("enrollments unavailable")

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "new@academy.dev", Password: "secret1", FullName: "New Student", ProgramID: "prog-1",
	})
	require.Error(t, err)
	// The profile write is not rolled back.
	require.NotNil(t, repo.created)
	assert.Equal(t, "new@academy.dev", repo.created.Email)
}

func TestAuthLoginIssuesTokens(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedProfile(repo, "secret1")

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "tari@academy.dev", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user-1", resp.Profile.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedProfile(repo, "secret1")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "tari@academy.dev", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	profile := seedProfile(repo, "secret1")
	profile.IsActive = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "tari@academy.dev", Password: "secret1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedProfile(repo, "secret1")

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "tari@academy.dev", Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)
	// The used token is revoked as part of rotation.
	assert.Len(t, repo.revokedIDs, 1)
}

func TestAuthRefreshExpiredToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedProfile(repo, "secret1")
	repo.refreshTokens["stale"] = &models.RefreshToken{
		ID: "tok-1", UserID: "user-1", Token: "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthLogoutRevokesOwnToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedProfile(repo, "secret1")
	repo.refreshTokens["tok"] = &models.RefreshToken{
		ID: "tok-1", UserID: "user-1", Token: "tok",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	require.NoError(t, svc.Logout(context.Background(), "tok", "user-1", models.LoginRequest{}))
	assert.Equal(t, []string{"tok-1"}, repo.revokedIDs)

	err := svc.Logout(context.Background(), "tok", "someone-else", models.LoginRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAuthChangePasswordRevokesSessions(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedProfile(repo, "secret1")

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "secret1", NewPassword: "secret2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordHash)
	assert.Equal(t, []string{"user-1"}, repo.revokedUsers)

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "secret3",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAuthValidateTokenRejectsForgery(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)

	other := NewAuthService(newAuthRepoMock(), &enrollmentApplierMock{}, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Minute,
	})
	forged, _, err := other.generateAccessToken(&models.Profile{ID: "user-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	require.Error(t, err)
}
