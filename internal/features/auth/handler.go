package auth

import (
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/pkg/config"
	"github.com/learnhub-app/learnhub-server-go/pkg/email"
	"github.com/learnhub-app/learnhub-server-go/pkg/response"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// Handler processes authentication HTTP requests.
type Handler struct {
	db       *gorm.DB
	logger   *slog.Logger
	email    *email.Client
	tokenCfg TokenConfig
}

// NewHandler constructs an auth handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, emailClient *email.Client, cfg *config.Config) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		email:  emailClient,
		tokenCfg: TokenConfig{
			JWTSecret:          cfg.JWTSecret,
			JWTRefreshSecret:   cfg.JWTRefreshSecret,
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
	}
}

// Register creates a new account and returns a token pair.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		FullName string `json:"fullName" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid registration payload", err)
		return
	}

	result, err := Register(h.db, RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     types.UserRole(req.Role),
	}, h.tokenCfg)
	if err != nil {
		h.respondError(c, err, "registration failed")
		return
	}

	if h.email != nil && result.User != nil {
		go func(to, name string) {
			if err := h.email.SendWelcome(to, name); err != nil {
				h.logger.Warn("welcome email failed",
					slog.String("email", to),
					slog.String("error", err.Error()))
			}
		}(result.User.Email, result.User.FullName)
	}

	response.Created(c, result, "account created")
}

// Login authenticates credentials and returns a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid login payload", err)
		return
	}

	result, err := Login(h.db, LoginInput{Email: req.Email, Password: req.Password}, h.tokenCfg)
	if err != nil {
		h.respondError(c, err, "login failed")
		return
	}

	response.Success(c, http.StatusOK, result, "", nil)
}

// RefreshToken exchanges a refresh token for a new pair.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid refresh payload", err)
		return
	}

	result, err := Refresh(h.db, req.RefreshToken, h.tokenCfg)
	if err != nil {
		h.respondError(c, err, "token refresh failed")
		return
	}

	response.Success(c, http.StatusOK, result, "", nil)
}

// Logout invalidates the caller's refresh token.
func (h *Handler) Logout(c *gin.Context) {
	value, exists := c.Get("userId")
	if !exists {
		response.Error(c, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	if err := Logout(h.db, userID.String()); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "logout failed", err)
		return
	}

	response.Success(c, http.StatusOK, nil, "logged out", nil)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrInvalidRole):
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		response.Error(c, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, ErrInactiveAccount):
		response.Error(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, user.ErrEmailTaken):
		response.Error(c, http.StatusConflict, err.Error(), nil)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
