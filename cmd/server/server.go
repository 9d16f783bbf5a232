// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/alerts"
	"github.com/codr1/ShotSpot/internal/api"
	"github.com/codr1/ShotSpot/internal/api/achievements"
	"github.com/codr1/ShotSpot/internal/api/apidoc"
	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/auth"
	"github.com/codr1/ShotSpot/internal/api/authz"
	"github.com/codr1/ShotSpot/internal/api/clubs"
	"github.com/codr1/ShotSpot/internal/api/competitions"
	"github.com/codr1/ShotSpot/internal/api/events"
	"github.com/codr1/ShotSpot/internal/api/exports"
	"github.com/codr1/ShotSpot/internal/api/games"
	"github.com/codr1/ShotSpot/internal/api/health"
	"github.com/codr1/ShotSpot/internal/api/players"
	"github.com/codr1/ShotSpot/internal/api/teams"
	twizzitapi "github.com/codr1/ShotSpot/internal/api/twizzit"
	"github.com/codr1/ShotSpot/internal/api/users"
	"github.com/codr1/ShotSpot/internal/config"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/email"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/ratelimit"
	"github.com/codr1/ShotSpot/internal/reports"
	"github.com/codr1/ShotSpot/internal/scheduler"
	"github.com/codr1/ShotSpot/internal/twizzit"
)

const apiVersion = "1.0.0"

// app owns everything that needs closing on shutdown.
type app struct {
	server  *http.Server
	db      *appdb.DB
	limiter *ratelimit.Limiter
	broker  *livefeed.Broker
	nats    *livefeed.NATSSink
}

func newApp(cfg *config.Config) (*app, error) {
	database, err := appdb.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{db: database}

	clock := clockwork.NewRealClock()

	a.limiter = ratelimit.New(&ratelimit.Config{
		LoginMaxAttempts:  cfg.RateLimit.LoginMaxAttempts,
		LoginLockout:      cfg.RateLimit.LoginLockout,
		LoginMaxIPPerHour: cfg.RateLimit.LoginMaxIPPerHour,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Clock:             clock,
	})

	var sender email.EmailSender
	if cfg.Email.Enabled {
		ses, err := email.NewSESClient(cfg.Email.AccessKeyID, cfg.Email.SecretAccessKey, cfg.Email.Region, cfg.Email.Sender)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create SES client: %w", err)
		}
		sender = ses
	} else {
		log.Info().Msg("Email disabled; alerts and report links are only logged")
	}

	apiutil.SetAlertNotifier(alerts.New(alerts.Config{
		Recipients: cfg.Alerts.Recipients,
		Cooldown:   cfg.Alerts.Cooldown,
		Sender:     sender,
		Clock:      clock,
	}))

	var sinks []livefeed.Sink
	if cfg.NATS.URL != "" {
		a.nats, err = livefeed.NewNATSSink(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		sinks = append(sinks, a.nats)
	}
	a.broker = livefeed.NewBroker(sinks...)
	streamer := livefeed.NewStreamer(a.broker, cfg.App.CORSOrigins)

	builder := reports.NewBuilder(database.Queries, clock)
	exporter := reports.NewExporter(database.Queries, builder)

	cipher, err := twizzit.NewCipher(cfg.TwizzitSecret())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create twizzit cipher: %w", err)
	}
	syncService := twizzit.NewService(database.Queries, cipher, twizzit.DefaultClientFactory(cfg.Twizzit.Timeout), clock)

	tokens := auth.NewTokenManager(cfg.App.SecretKey, cfg.Auth.TokenTTL, cfg.Auth.Issuer, clock)

	// Initialize handlers
	health.InitHandlers(database)
	auth.InitHandlers(database, tokens, a.limiter, cfg.RateLimit.TrustProxy)
	users.InitHandlers(database)
	clubs.InitHandlers(database, cfg.App.DefaultRegion)
	teams.InitHandlers(database)
	players.InitHandlers(database)
	games.InitHandlers(database, a.broker, clock)
	events.InitHandlers(database, a.broker, streamer)
	competitions.InitHandlers(database)
	achievements.InitHandlers(database)
	exports.InitHandlers(database, exporter, clock)
	twizzitapi.InitHandlers(database, syncService, cfg.Twizzit.BaseURL)

	if err := scheduler.Init(clock); err != nil {
		a.close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	runner := &scheduler.ReportRunner{
		Queries:  database.Queries,
		Exporter: exporter,
		Sender:   sender,
		BaseURL:  cfg.App.BaseURL,
		Clock:    clock,
	}
	if err := scheduler.RegisterReportJob(runner, cfg.Reports.PollCron); err != nil {
		a.close()
		return nil, err
	}
	if err := scheduler.RegisterTwizzitSyncJob(syncService, cfg.Twizzit.SyncCron); err != nil {
		a.close()
		return nil, err
	}

	router := http.NewServeMux()
	if err := registerRoutes(router, cfg); err != nil {
		a.close()
		return nil, err
	}

	// Setup middleware chain; the first middleware listed runs innermost
	handler := api.ChainMiddleware(
		router,
		api.WithAuth,
		api.WithRateLimit(a.limiter, cfg.RateLimit.TrustProxy),
		api.WithRecovery,
		api.WithLogging,
		api.WithRequestID,
		api.WithCORS(cfg.App.CORSOrigins),
	)

	a.server = &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

func allRoutes() []apidoc.Route {
	groups := [][]apidoc.Route{
		health.Routes(),
		auth.Routes(),
		users.Routes(),
		clubs.Routes(),
		teams.Routes(),
		players.Routes(),
		games.Routes(),
		events.Routes(),
		competitions.Routes(),
		achievements.Routes(),
		exports.Routes(),
		twizzitapi.Routes(),
	}
	var routes []apidoc.Route
	for _, g := range groups {
		routes = append(routes, g...)
	}
	return routes
}

// guard wraps h in the middleware matching the route's access level.
func guard(access apidoc.Access, h http.Handler) http.Handler {
	switch access {
	case apidoc.Authenticated:
		return api.RequireAuth(h)
	case apidoc.Coach:
		return api.RequireRole(authz.RoleCoach)(h)
	case apidoc.Admin:
		return api.RequireRole(authz.RoleAdmin)(h)
	default:
		return h
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config) error {
	routes := allRoutes()
	for _, rt := range routes {
		mux.Handle(rt.Pattern(), guard(rt.Access, rt.Handler))
	}

	spec, err := apidoc.NewSpec(cfg.App.Name+" API", apiVersion,
		"Korfball match tracking: clubs, games, live events, competitions and reports.", routes)
	if err != nil {
		log.Warn().Err(err).Msg("Some routes are missing from the OpenAPI document")
	}
	specHandler, err := apidoc.Handler(spec)
	if err != nil {
		return err
	}
	mux.HandleFunc("GET /openapi.json", specHandler)
	mux.Handle("GET /docs/", apidoc.UI(cfg.App.Name+" API", "/openapi.json", "/docs/"))

	log.Info().Int("routes", len(routes)).Msg("Routes registered")
	return nil
}

// close releases resources in reverse order of creation. Safe on a partly
// built app.
func (a *app) close() {
	if a.broker != nil {
		a.broker.Close()
	}
	if a.nats != nil {
		a.nats.Close()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
}
