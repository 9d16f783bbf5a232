package auth

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodPost, Path: "/api/auth/register", Summary: "Register an account", Handler: HandleRegister,
			Request: registerRequest{}, Response: tokenResponse{}, Status: http.StatusCreated},
		{Method: http.MethodPost, Path: "/api/auth/login", Summary: "Log in", Handler: HandleLogin,
			Request: loginRequest{}, Response: tokenResponse{}},
		{Method: http.MethodGet, Path: "/api/auth/me", Summary: "Current user", Access: apidoc.Authenticated,
			Handler: HandleMe, Response: UserResponse{}},
		{Method: http.MethodPost, Path: "/api/auth/change-password", Summary: "Change password", Access: apidoc.Authenticated,
			Handler: HandleChangePassword, Request: changePasswordRequest{}, Status: http.StatusNoContent},
	}
}
