package health

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
)

const pingTimeout = 2 * time.Second

var database *appdb.DB

type Response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func InitHandlers(db *appdb.DB) {
	database = db
}

// GET /health answers 503 when the database does not respond.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := Response{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if database == nil {
		resp = Response{Status: "unavailable", Database: "not configured"}
		status = http.StatusServiceUnavailable
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := database.PingContext(ctx); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("Health check database ping failed")
			resp = Response{Status: "unavailable", Database: "unreachable"}
			status = http.StatusServiceUnavailable
		}
	}

	if err := apiutil.WriteJSON(w, status, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write health response")
	}
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/health", Summary: "Health check", Handler: HandleHealth, Response: Response{}},
	}
}
