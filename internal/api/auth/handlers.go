package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/authz"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/ratelimit"
	"github.com/codr1/ShotSpot/internal/store"
)

const authQueryTimeout = 5 * time.Second

var (
	queries    *store.Queries
	tokens     *TokenManager
	limiter    *ratelimit.Limiter
	trustProxy bool
)

type UserResponse struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	IsActive           bool       `json:"isActive"`
	PasswordMustChange bool       `json:"passwordMustChange"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func NewUserResponse(u store.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              u.Email,
		Role:               u.Role,
		IsActive:           u.IsActive,
		PasswordMustChange: u.PasswordMustChange,
		LastLogin:          store.TimePtr(u.LastLogin),
		CreatedAt:          u.CreatedAt,
	}
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, tm *TokenManager, rl *ratelimit.Limiter, trustForwarded bool) {
	if database == nil {
		return
	}
	queries = database.Queries
	tokens = tm
	limiter = rl
	trustProxy = trustForwarded
}

func loadQueries() *store.Queries {
	return queries
}

// UserFromRequest resolves the bearer token to a current, active user. It
// returns nil without error when the request carries no token.
func UserFromRequest(r *http.Request) (*authz.AuthUser, error) {
	raw := BearerToken(r)
	if raw == "" || tokens == nil {
		return nil, nil
	}
	claimed, err := tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	q := loadQueries()
	if q == nil {
		return nil, fmt.Errorf("database queries not initialized")
	}
	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := q.GetUserByID(ctx, claimed.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	// role changes apply immediately, not at token expiry
	return &authz.AuthUser{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// POST /api/auth/register
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req registerRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to register user")
		return
	}
	if err := CheckPasswordStrength("password", req.Password); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to register user")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		apiutil.WriteInternalError(w, r, err, "Failed to register user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	role := authz.RoleUser
	count, err := q.CountUsers(ctx)
	if err != nil {
		apiutil.WriteInternalError(w, r, err, "Failed to register user")
		return
	}
	if count == 0 {
		role = authz.RoleAdmin
	}

	user, err := q.CreateUser(ctx, store.CreateUserParams{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, "Username or email already exists")
			return
		}
		apiutil.WriteInternalError(w, r, err, "Failed to register user")
		return
	}

	logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("User registered")
	writeToken(w, r, http.StatusCreated, user)
}

// POST /api/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req loginRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to log in")
		return
	}

	identifier := strings.TrimSpace(req.Username)
	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if check := limiter.CheckLogin(identifier, ip); !check.Allowed {
			ratelimit.LogRateLimitExceeded("login", identifier, ip, check.Reason)
			writeRetryAfter(w, check.RetryAfter)
			apiutil.WriteError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := q.GetUserByLogin(ctx, identifier)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		apiutil.WriteInternalError(w, r, err, "Failed to log in")
		return
	}
	if err != nil || !VerifyPassword(user.PasswordHash, req.Password) {
		if limiter != nil && limiter.RecordLoginFailure(identifier, ip) {
			ratelimit.LogRateLimitExceeded("login", identifier, ip, "lockout triggered")
		}
		logger.Warn().Str("identifier", ratelimit.SanitizeIdentifier(identifier)).Msg("Login failed")
		apiutil.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		apiutil.WriteError(w, http.StatusForbidden, "Account is deactivated")
		return
	}

	if limiter != nil {
		limiter.ResetLogin(identifier)
	}
	if err := q.TouchUserLogin(ctx, user.ID); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to record last login")
	} else if refreshed, err := q.GetUserByID(ctx, user.ID); err == nil {
		user = refreshed
	}

	logger.Info().Int64("user_id", user.ID).Msg("User logged in")
	writeToken(w, r, http.StatusOK, user)
}

// GET /api/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	authUser := authz.UserFromContext(r.Context())
	if authUser == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := q.GetUserByID(ctx, authUser.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load user")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, NewUserResponse(user)); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to write user response")
	}
}

// POST /api/auth/change-password
func HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	authUser := authz.UserFromContext(r.Context())
	if authUser == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req changePasswordRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to change password")
		return
	}
	if err := CheckPasswordStrength("newPassword", req.NewPassword); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to change password")
		return
	}
	if req.NewPassword == req.CurrentPassword {
		apiutil.WriteFieldErrors(w, []apiutil.FieldError{{Field: "newPassword", Reason: "must differ from the current password"}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := q.GetUserByID(ctx, authUser.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to change password")
		return
	}
	if !VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		apiutil.WriteError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		apiutil.WriteInternalError(w, r, err, "Failed to change password")
		return
	}
	if err := q.UpdateUserPassword(ctx, user.ID, hash, false); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to change password")
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("Password changed")
	w.WriteHeader(http.StatusNoContent)
}

func writeToken(w http.ResponseWriter, r *http.Request, status int, user store.User) {
	if tokens == nil {
		apiutil.WriteInternalError(w, r, fmt.Errorf("token manager not initialized"), "Failed to issue token")
		return
	}
	token, expiresAt, err := tokens.Issue(user)
	if err != nil {
		apiutil.WriteInternalError(w, r, err, "Failed to issue token")
		return
	}
	resp := tokenResponse{Token: token, ExpiresAt: expiresAt, User: NewUserResponse(user)}
	if err := apiutil.WriteJSON(w, status, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("user_id", user.ID).Msg("Failed to write token response")
	}
}

func writeRetryAfter(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}
