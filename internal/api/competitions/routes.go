package competitions

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
	"github.com/codr1/ShotSpot/internal/api/games"
)

type competitionList struct {
	Competitions []CompetitionResponse `json:"competitions"`
}

type competitionTeamList struct {
	Teams []CompetitionTeamResponse `json:"teams"`
}

type bracketMatches struct {
	Bracket []BracketResponse `json:"bracket"`
}

type standingList struct {
	Standings []StandingResponse `json:"standings"`
}

type scheduledGames struct {
	Games []games.GameResponse `json:"games"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/competitions", Summary: "List competitions", Access: apidoc.Authenticated,
			Handler: HandleListCompetitions, Response: competitionList{}},
		{Method: http.MethodPost, Path: "/api/competitions", Summary: "Create league or tournament", Access: apidoc.Coach,
			Handler: HandleCreateCompetition, Request: competitionRequest{}, Response: CompetitionResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/competitions/{id}", Summary: "Get competition", Access: apidoc.Authenticated,
			Handler: HandleGetCompetition, Response: CompetitionResponse{}},
		{Method: http.MethodPut, Path: "/api/competitions/{id}", Summary: "Update competition", Access: apidoc.Coach,
			Handler: HandleUpdateCompetition, Request: competitionRequest{}, Response: CompetitionResponse{}},
		{Method: http.MethodDelete, Path: "/api/competitions/{id}", Summary: "Delete competition", Access: apidoc.Coach,
			Handler: HandleDeleteCompetition, Status: http.StatusNoContent},
		{Method: http.MethodGet, Path: "/api/competitions/{id}/teams", Summary: "List entered teams", Access: apidoc.Authenticated,
			Handler: HandleListTeams, Response: competitionTeamList{}},
		{Method: http.MethodPost, Path: "/api/competitions/{id}/teams", Summary: "Enter team", Access: apidoc.Coach,
			Handler: HandleAddTeam, Request: addTeamRequest{}, Response: addTeamRequest{}, Status: http.StatusCreated},
		{Method: http.MethodDelete, Path: "/api/competitions/{id}/teams/{team_id}", Summary: "Withdraw team", Access: apidoc.Coach,
			Handler: HandleRemoveTeam, Status: http.StatusNoContent},
		{Method: http.MethodPost, Path: "/api/competitions/{id}/bracket/generate", Summary: "Generate knockout bracket",
			Access: apidoc.Coach, Handler: HandleGenerateBracket, Response: bracketMatches{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/competitions/{id}/bracket", Summary: "Get bracket", Access: apidoc.Authenticated,
			Handler: HandleGetBracket, Response: bracketMatches{}},
		{Method: http.MethodPost, Path: "/api/competitions/{id}/bracket/{bracket_id}/winner", Summary: "Record match winner",
			Access: apidoc.Coach, Handler: HandleRecordWinner, Request: winnerRequest{}, Response: BracketResponse{}},
		{Method: http.MethodPost, Path: "/api/competitions/{id}/bracket/{bracket_id}/game", Summary: "Link game to match",
			Access: apidoc.Coach, Handler: HandleLinkGame, Request: linkGameRequest{}, Response: BracketResponse{}},
		{Method: http.MethodGet, Path: "/api/competitions/{id}/standings", Summary: "League standings", Access: apidoc.Authenticated,
			Handler: HandleGetStandings, Response: standingList{}},
		{Method: http.MethodPost, Path: "/api/competitions/{id}/standings/refresh", Summary: "Recompute standings",
			Access: apidoc.Coach, Handler: HandleRefreshStandings, Response: standingList{}},
		{Method: http.MethodPost, Path: "/api/competitions/{id}/schedule", Summary: "Generate round-robin schedule",
			Access: apidoc.Coach, Handler: HandleGenerateSchedule, Request: scheduleRequest{}, Response: scheduledGames{}, Status: http.StatusCreated},
	}
}
