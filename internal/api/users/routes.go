package users

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
	"github.com/codr1/ShotSpot/internal/api/auth"
)

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/users", Summary: "List users", Access: apidoc.Admin,
			Handler: HandleListUsers, Response: listResponse{}},
		{Method: http.MethodPost, Path: "/api/users", Summary: "Create user", Access: apidoc.Admin,
			Handler: HandleCreateUser, Request: createUserRequest{}, Response: auth.UserResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/users/{id}", Summary: "Get user", Access: apidoc.Admin,
			Handler: HandleGetUser, Response: auth.UserResponse{}},
		{Method: http.MethodPut, Path: "/api/users/{id}", Summary: "Update user", Access: apidoc.Admin,
			Handler: HandleUpdateUser, Request: updateUserRequest{}, Response: auth.UserResponse{}},
		{Method: http.MethodDelete, Path: "/api/users/{id}", Summary: "Deactivate user", Access: apidoc.Admin,
			Handler: HandleDeleteUser, Status: http.StatusNoContent},
	}
}
