package users

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/auth"
	"github.com/codr1/ShotSpot/internal/api/authz"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/store"
)

const usersQueryTimeout = 5 * time.Second

var db *appdb.DB

var errLastAdmin = apiutil.HandlerError{Status: http.StatusConflict, Message: "Cannot remove the last active admin"}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin coach user"`
}

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin coach user"`
	IsActive *bool   `json:"isActive"`
}

type listResponse struct {
	Users []auth.UserResponse `json:"users"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	db = database
}

func loadDB(w http.ResponseWriter, r *http.Request) *appdb.DB {
	if db == nil {
		log.Ctx(r.Context()).Error().Msg("Database not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
	return db
}

// GET /api/users
func HandleListUsers(w http.ResponseWriter, r *http.Request) {
	database := loadDB(w, r)
	if database == nil {
		return
	}

	role := strings.TrimSpace(r.URL.Query().Get("role"))
	if role != "" && !authz.ValidRole(role) {
		apiutil.WriteFieldErrors(w, []apiutil.FieldError{{Field: "role", Reason: "must be one of: admin, coach, user"}})
		return
	}
	active, err := apiutil.QueryBool(r, "active")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list users")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), usersQueryTimeout)
	defer cancel()

	rows, err := database.Queries.ListUsers(ctx, store.ListUsersParams{
		Role:            role,
		IncludeInactive: active == nil || !*active,
		Search:          strings.TrimSpace(r.URL.Query().Get("search")),
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list users")
		return
	}

	resp := listResponse{Users: make([]auth.UserResponse, 0, len(rows))}
	for _, u := range rows {
		if active != nil && u.IsActive != *active {
			continue
		}
		resp.Users = append(resp.Users, auth.NewUserResponse(u))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write users response")
	}
}

// POST /api/users
func HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	database := loadDB(w, r)
	if database == nil {
		return
	}

	var req createUserRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create user")
		return
	}
	if err := auth.CheckPasswordStrength("password", req.Password); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create user")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		apiutil.WriteInternalError(w, r, err, "Failed to create user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), usersQueryTimeout)
	defer cancel()

	user, err := database.Queries.CreateUser(ctx, store.CreateUserParams{
		Username:           strings.TrimSpace(req.Username),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:       hash,
		Role:               req.Role,
		PasswordMustChange: true,
	})
	if err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, "Username or email already exists")
			return
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to create user")
		return
	}

	logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("User created by admin")
	if err := apiutil.WriteJSON(w, http.StatusCreated, auth.NewUserResponse(user)); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to write user response")
	}
}

// GET /api/users/{id}
func HandleGetUser(w http.ResponseWriter, r *http.Request) {
	database := loadDB(w, r)
	if database == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "user")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), usersQueryTimeout)
	defer cancel()

	user, err := database.Queries.GetUserByID(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load user")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, auth.NewUserResponse(user)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("user_id", id).Msg("Failed to write user response")
	}
}

// PUT /api/users/{id}
func HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	database := loadDB(w, r)
	if database == nil {
		return
	}
	actor := authz.UserFromContext(r.Context())
	if actor == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := apiutil.PathID(r, "id", "user")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update user")
		return
	}

	var req updateUserRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update user")
		return
	}
	if actor.ID == id {
		if req.Role != nil && *req.Role != actor.Role {
			apiutil.WriteError(w, http.StatusConflict, "You cannot change your own role")
			return
		}
		if req.IsActive != nil && !*req.IsActive {
			apiutil.WriteError(w, http.StatusConflict, "You cannot deactivate your own account")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), usersQueryTimeout)
	defer cancel()

	var updated store.User
	err = database.RunInTx(ctx, func(tx *appdb.DB) error {
		current, err := tx.Queries.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		params := store.UpdateUserParams{ID: id, Email: current.Email, Role: current.Role, IsActive: current.IsActive}
		if req.Email != nil {
			params.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.Role != nil {
			params.Role = *req.Role
		}
		if req.IsActive != nil {
			params.IsActive = *req.IsActive
		}

		losesAdmin := current.Role == authz.RoleAdmin && current.IsActive &&
			(params.Role != authz.RoleAdmin || !params.IsActive)
		if losesAdmin {
			if err := ensureAnotherAdmin(ctx, tx.Queries); err != nil {
				return err
			}
		}

		updated, err = tx.Queries.UpdateUser(ctx, params)
		return err
	})
	if err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, "Email already in use")
			return
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to update user")
		return
	}

	logger.Info().Int64("user_id", id).Str("role", updated.Role).Bool("is_active", updated.IsActive).Msg("User updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, auth.NewUserResponse(updated)); err != nil {
		logger.Error().Err(err).Int64("user_id", id).Msg("Failed to write user response")
	}
}

// DELETE /api/users/{id}
func HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	database := loadDB(w, r)
	if database == nil {
		return
	}
	actor := authz.UserFromContext(r.Context())
	if actor == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := apiutil.PathID(r, "id", "user")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to deactivate user")
		return
	}
	if actor.ID == id {
		apiutil.WriteError(w, http.StatusConflict, "You cannot deactivate your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), usersQueryTimeout)
	defer cancel()

	err = database.RunInTx(ctx, func(tx *appdb.DB) error {
		current, err := tx.Queries.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Role == authz.RoleAdmin && current.IsActive {
			if err := ensureAnotherAdmin(ctx, tx.Queries); err != nil {
				return err
			}
		}
		return tx.Queries.DeactivateUser(ctx, id)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to deactivate user")
		return
	}

	logger.Info().Int64("user_id", id).Msg("User deactivated")
	w.WriteHeader(http.StatusNoContent)
}

func ensureAnotherAdmin(ctx context.Context, q *store.Queries) error {
	count, err := q.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return errLastAdmin
	}
	return nil
}
