package teams

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

type teamList struct {
	Teams []TeamResponse `json:"teams"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/teams", Summary: "List teams", Access: apidoc.Authenticated,
			Handler: HandleListTeams, Response: teamList{}},
		{Method: http.MethodPost, Path: "/api/teams", Summary: "Create team", Access: apidoc.Coach,
			Handler: HandleCreateTeam, Request: teamRequest{}, Response: TeamResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/teams/{id}", Summary: "Get team", Access: apidoc.Authenticated,
			Handler: HandleGetTeam, Response: TeamResponse{}},
		{Method: http.MethodPut, Path: "/api/teams/{id}", Summary: "Update team", Access: apidoc.Coach,
			Handler: HandleUpdateTeam, Request: teamRequest{}, Response: TeamResponse{}},
		{Method: http.MethodDelete, Path: "/api/teams/{id}", Summary: "Delete team", Access: apidoc.Coach,
			Handler: HandleDeleteTeam, Status: http.StatusNoContent},
	}
}
