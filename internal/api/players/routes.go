package players

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

type playerList struct {
	Players []PlayerResponse `json:"players"`
}

type playerAchievements struct {
	Achievements []AchievementResponse `json:"achievements"`
	TotalPoints  int64                 `json:"totalPoints"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/players", Summary: "List players", Access: apidoc.Authenticated,
			Handler: HandleListPlayers, Response: playerList{}},
		{Method: http.MethodPost, Path: "/api/players", Summary: "Create player", Access: apidoc.Coach,
			Handler: HandleCreatePlayer, Request: playerRequest{}, Response: PlayerResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/players/{id}", Summary: "Get player", Access: apidoc.Authenticated,
			Handler: HandleGetPlayer, Response: PlayerResponse{}},
		{Method: http.MethodPut, Path: "/api/players/{id}", Summary: "Update player", Access: apidoc.Coach,
			Handler: HandleUpdatePlayer, Request: playerRequest{}, Response: PlayerResponse{}},
		{Method: http.MethodDelete, Path: "/api/players/{id}", Summary: "Delete player", Access: apidoc.Coach,
			Handler: HandleDeletePlayer, Status: http.StatusNoContent},
		{Method: http.MethodGet, Path: "/api/players/{id}/stats", Summary: "Player shooting stats", Access: apidoc.Authenticated,
			Handler: HandlePlayerStats, Response: statsResponse{}},
		{Method: http.MethodGet, Path: "/api/players/{id}/achievements", Summary: "Player achievements", Access: apidoc.Authenticated,
			Handler: HandlePlayerAchievements, Response: playerAchievements{}},
	}
}
