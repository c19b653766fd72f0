package auth

import (
	"errors"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/internal/utils/jwt"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Role     types.UserRole
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	User         *user.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

type TokenConfig struct {
	JWTSecret          string
	JWTRefreshSecret   string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Register creates a new student or mentor account. Admin accounts are only
// created through the create-admin script.
func Register(db *gorm.DB, input RegisterInput, cfg TokenConfig) (*AuthResponse, error) {
	if input.FullName == "" || input.Email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	if !emailRegex.MatchString(input.Email) {
		return nil, ErrInvalidEmail
	}

	if len(input.Password) < 8 {
		return nil, ErrWeakPassword
	}

	role := input.Role
	if role == "" {
		role = types.UserRoleStudent
	}
	if role != types.UserRoleStudent && role != types.UserRoleMentor {
		return nil, ErrInvalidRole
	}

	newUser, err := user.Create(db, user.CreateInput{
		FullName: input.FullName,
		Email:    input.Email,
		Password: input.Password,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}

	return issueTokens(db, &newUser, cfg)
}

// Login authenticates a user and returns tokens.
func Login(db *gorm.DB, input LoginInput, cfg TokenConfig) (*AuthResponse, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	usr, err := user.GetByEmail(db, input.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !usr.CheckPassword(input.Password) {
		return nil, ErrInvalidCredentials
	}

	if usr.Role != types.UserRoleAdmin && !usr.Active {
		return nil, ErrInactiveAccount
	}

	return issueTokens(db, &usr, cfg)
}

// Refresh exchanges a valid refresh token for a new token pair.
func Refresh(db *gorm.DB, refreshToken string, cfg TokenConfig) (*AuthResponse, error) {
	claims, err := jwt.VerifyToken(refreshToken, cfg.JWTRefreshSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	usr, err := user.Get(db, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// The presented token must match the one stored at last issue.
	if usr.RefreshToken == nil || *usr.RefreshToken != refreshToken {
		return nil, ErrInvalidToken
	}

	return issueTokens(db, &usr, cfg)
}

// Logout clears the stored refresh token so it can no longer be exchanged.
func Logout(db *gorm.DB, userID string) error {
	return db.Model(&user.User{}).Where("id = ?", userID).Update("refresh_token", nil).Error
}

func issueTokens(db *gorm.DB, usr *user.User, cfg TokenConfig) (*AuthResponse, error) {
	accessToken, err := jwt.GenerateAccessToken(usr.ID, cfg.JWTSecret, cfg.AccessTokenExpiry)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(usr.ID, cfg.JWTRefreshSecret, cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	if err := user.SetRefreshToken(db, usr.ID, &refreshToken); err != nil {
		return nil, err
	}
	usr.RefreshToken = &refreshToken

	return &AuthResponse{
		User:         usr,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
