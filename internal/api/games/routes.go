package games

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

type gameList struct {
	Games []GameResponse `json:"games"`
}

type rosterList struct {
	Roster []RosterEntryResponse `json:"roster"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/games", Summary: "List games", Access: apidoc.Authenticated,
			Handler: HandleListGames, Response: gameList{}},
		{Method: http.MethodPost, Path: "/api/games", Summary: "Schedule game", Access: apidoc.Coach,
			Handler: HandleCreateGame, Request: gameRequest{}, Response: GameResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/games/{id}", Summary: "Get game", Access: apidoc.Authenticated,
			Handler: HandleGetGame, Response: GameResponse{}},
		{Method: http.MethodPut, Path: "/api/games/{id}", Summary: "Update game", Access: apidoc.Coach,
			Handler: HandleUpdateGame, Request: gameRequest{}, Response: GameResponse{}},
		{Method: http.MethodDelete, Path: "/api/games/{id}", Summary: "Delete game", Access: apidoc.Coach,
			Handler: HandleDeleteGame, Status: http.StatusNoContent},
		{Method: http.MethodPost, Path: "/api/games/{id}/start", Summary: "Start game", Access: apidoc.Coach,
			Handler: HandleStartGame, Response: GameResponse{}},
		{Method: http.MethodPost, Path: "/api/games/{id}/end", Summary: "End game", Access: apidoc.Coach,
			Handler: HandleEndGame, Response: endGameResponse{}},
		{Method: http.MethodPost, Path: "/api/games/{id}/cancel", Summary: "Cancel game", Access: apidoc.Coach,
			Handler: HandleCancelGame, Response: GameResponse{}},
		{Method: http.MethodGet, Path: "/api/games/{id}/clock", Summary: "Game clock", Access: apidoc.Authenticated,
			Handler: HandleGetClock, Response: ClockResponse{}},
		{Method: http.MethodPost, Path: "/api/games/{id}/clock/{action}", Summary: "Apply a clock action (start, pause, resume, stop, reset, next-period)",
			Access: apidoc.Coach, Handler: HandleClockAction, Response: ClockResponse{}},
		{Method: http.MethodGet, Path: "/api/games/{id}/roster", Summary: "Game roster", Access: apidoc.Authenticated,
			Handler: HandleGetRoster, Response: rosterList{}},
		{Method: http.MethodPut, Path: "/api/games/{id}/roster/{club_id}", Summary: "Replace a club's roster", Access: apidoc.Coach,
			Handler: HandleReplaceRoster, Request: rosterRequest{}, Response: rosterList{}},
	}
}
