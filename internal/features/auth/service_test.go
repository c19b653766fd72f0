package auth

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/internal/utils/jwt"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}))
	return db
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		JWTSecret:          "access-secret",
		JWTRefreshSecret:   "refresh-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

func registerStudent(t *testing.T, db *gorm.DB, email string) *AuthResponse {
	t.Helper()
	resp, err := Register(db, RegisterInput{
		FullName: "Student",
		Email:    email,
		Password: "long-enough-password",
	}, testTokenConfig())
	require.NoError(t, err)
	return resp
}

func TestRegister_IssuesVerifiableTokens(t *testing.T) {
	db := newTestDB(t)
	cfg := testTokenConfig()

	resp := registerStudent(t, db, "new@example.com")

	require.NotNil(t, resp.User)
	assert.Equal(t, types.UserRoleStudent, resp.User.Role)

	claims, err := jwt.VerifyToken(resp.AccessToken, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	claims, err = jwt.VerifyToken(resp.RefreshToken, cfg.JWTRefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	stored, err := user.Get(db, resp.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, resp.RefreshToken, *stored.RefreshToken)
}

func TestRegister_Validation(t *testing.T) {
	db := newTestDB(t)
	cfg := testTokenConfig()

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"missing fields", RegisterInput{Email: "a@b.co"}, ErrMissingFields},
		{"bad email", RegisterInput{FullName: "A", Email: "not-an-email", Password: "long-enough-pw"}, ErrInvalidEmail},
		{"short password", RegisterInput{FullName: "A", Email: "a@b.co", Password: "short"}, ErrWeakPassword},
		{"admin role", RegisterInput{FullName: "A", Email: "a@b.co", Password: "long-enough-pw", Role: types.UserRoleAdmin}, ErrInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Register(db, tc.input, cfg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLogin_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	cfg := testTokenConfig()
	registerStudent(t, db, "login@example.com")

	resp, err := Login(db, LoginInput{Email: "login@example.com", Password: "long-enough-password"}, cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = Login(db, LoginInput{Email: "login@example.com", Password: "wrong-password"}, cfg)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Login(db, LoginInput{Email: "ghost@example.com", Password: "long-enough-password"}, cfg)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveAccountRejected(t *testing.T) {
	db := newTestDB(t)
	cfg := testTokenConfig()
	resp := registerStudent(t, db, "inactive@example.com")

	require.NoError(t, db.Model(&user.User{}).Where("id = ?", resp.User.ID).Update("is_active", false).Error)

	_, err := Login(db, LoginInput{Email: "inactive@example.com", Password: "long-enough-password"}, cfg)
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestRefresh_RotatesStoredToken(t *testing.T) {
	db := newTestDB(t)
	cfg := testTokenConfig()
	first := registerStudent(t, db, "refresh@example.com")

	second, err := Refresh(db, first.RefreshToken, cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, second.RefreshToken)

	// The old token no longer matches the stored one.
	_, err = Refresh(db, first.RefreshToken, cfg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Refresh(db, second.RefreshToken, cfg)
	assert.NoError(t, err)
}

func TestRefresh_GarbageTokenRejected(t *testing.T) {
	db := newTestDB(t)

	_, err := Refresh(db, "not.a.jwt", testTokenConfig())
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_InvalidatesRefresh(t *testing.T) {
	db := newTestDB(t)
	cfg := testTokenConfig()
	resp := registerStudent(t, db, "logout@example.com")

	require.NoError(t, Logout(db, resp.User.ID.String()))

	_, err := Refresh(db, resp.RefreshToken, cfg)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
