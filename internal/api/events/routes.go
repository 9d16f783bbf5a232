package events

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

type eventList struct {
	Events []GameEventResponse `json:"events"`
}

type shotList struct {
	Shots []ShotResponse `json:"shots"`
}

type substitutionList struct {
	Substitutions []SubstitutionResponse `json:"substitutions"`
}

type timelineList struct {
	Timeline []TimelineEntry `json:"timeline"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/games/{id}/events", Summary: "List fouls, timeouts and period events",
			Access: apidoc.Authenticated, Handler: HandleListEvents, Response: eventList{}},
		{Method: http.MethodPost, Path: "/api/games/{id}/events", Summary: "Record game event", Access: apidoc.Coach,
			Handler: HandleCreateEvent, Request: gameEventRequest{}, Response: GameEventResponse{}, Status: http.StatusCreated},
		{Method: http.MethodDelete, Path: "/api/games/{id}/events/{event_id}", Summary: "Delete game event", Access: apidoc.Coach,
			Handler: HandleDeleteEvent, Status: http.StatusNoContent},
		{Method: http.MethodGet, Path: "/api/games/{id}/shots", Summary: "List shots", Access: apidoc.Authenticated,
			Handler: HandleListShots, Response: shotList{}},
		{Method: http.MethodPost, Path: "/api/games/{id}/shots", Summary: "Record shot", Access: apidoc.Coach,
			Handler: HandleCreateShot, Request: shotRequest{}, Response: ShotResponse{}, Status: http.StatusCreated},
		{Method: http.MethodPut, Path: "/api/games/{id}/shots/{shot_id}", Summary: "Correct shot", Access: apidoc.Coach,
			Handler: HandleUpdateShot, Request: shotUpdateRequest{}, Response: ShotResponse{}},
		{Method: http.MethodDelete, Path: "/api/games/{id}/shots/{shot_id}", Summary: "Delete shot", Access: apidoc.Coach,
			Handler: HandleDeleteShot, Status: http.StatusNoContent},
		{Method: http.MethodGet, Path: "/api/games/{id}/substitutions", Summary: "List substitutions", Access: apidoc.Authenticated,
			Handler: HandleListSubstitutions, Response: substitutionList{}},
		{Method: http.MethodPost, Path: "/api/games/{id}/substitutions", Summary: "Record substitution", Access: apidoc.Coach,
			Handler: HandleCreateSubstitution, Request: substitutionRequest{}, Response: SubstitutionResponse{}, Status: http.StatusCreated},
		{Method: http.MethodDelete, Path: "/api/games/{id}/substitutions/{sub_id}", Summary: "Undo latest substitution",
			Access: apidoc.Coach, Handler: HandleDeleteSubstitution, Status: http.StatusNoContent},
		{Method: http.MethodGet, Path: "/api/games/{id}/lineup", Summary: "Players on court per club", Access: apidoc.Authenticated,
			Handler: HandleLineup, Response: map[string]clubLineupResponse{}},
		{Method: http.MethodGet, Path: "/api/games/{id}/timeline", Summary: "Merged game timeline", Access: apidoc.Authenticated,
			Handler: HandleTimeline, Response: timelineList{}},
		{Method: http.MethodGet, Path: "/api/games/{id}/live", Summary: "Live feed websocket", Handler: HandleLive,
			Status: http.StatusSwitchingProtocols, ContentType: "text/plain"},
	}
}
