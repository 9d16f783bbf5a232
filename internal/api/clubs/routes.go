package clubs

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

type clubList struct {
	Clubs []ClubResponse `json:"clubs"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/clubs", Summary: "List clubs", Access: apidoc.Authenticated,
			Handler: HandleListClubs, Response: clubList{}},
		{Method: http.MethodPost, Path: "/api/clubs", Summary: "Create club", Access: apidoc.Coach,
			Handler: HandleCreateClub, Request: clubRequest{}, Response: ClubResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/clubs/{id}", Summary: "Get club", Access: apidoc.Authenticated,
			Handler: HandleGetClub, Response: ClubResponse{}},
		{Method: http.MethodPut, Path: "/api/clubs/{id}", Summary: "Update club", Access: apidoc.Coach,
			Handler: HandleUpdateClub, Request: clubRequest{}, Response: ClubResponse{}},
		{Method: http.MethodDelete, Path: "/api/clubs/{id}", Summary: "Delete club", Access: apidoc.Coach,
			Handler: HandleDeleteClub, Status: http.StatusNoContent},
	}
}
