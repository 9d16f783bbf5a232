package achievements

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

type achievementList struct {
	Achievements []AchievementResponse `json:"achievements"`
}

type leaderboard struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/achievements", Summary: "List achievements", Access: apidoc.Authenticated,
			Handler: HandleListAchievements, Response: achievementList{}},
		{Method: http.MethodPost, Path: "/api/achievements", Summary: "Create achievement", Access: apidoc.Admin,
			Handler: HandleCreateAchievement, Request: achievementRequest{}, Response: AchievementResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/achievements/leaderboard", Summary: "Achievement points leaderboard",
			Access: apidoc.Authenticated, Handler: HandleLeaderboard, Response: leaderboard{}},
		{Method: http.MethodGet, Path: "/api/achievements/{id}", Summary: "Get achievement", Access: apidoc.Authenticated,
			Handler: HandleGetAchievement, Response: AchievementResponse{}},
		{Method: http.MethodPut, Path: "/api/achievements/{id}", Summary: "Update achievement", Access: apidoc.Admin,
			Handler: HandleUpdateAchievement, Request: achievementRequest{}, Response: AchievementResponse{}},
		{Method: http.MethodDelete, Path: "/api/achievements/{id}", Summary: "Delete achievement", Access: apidoc.Admin,
			Handler: HandleDeleteAchievement, Status: http.StatusNoContent},
	}
}
