package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/sydlexius/groovenomad/internal/api/middleware"
	"github.com/sydlexius/groovenomad/internal/backup"
	"github.com/sydlexius/groovenomad/internal/chat"
	"github.com/sydlexius/groovenomad/internal/event"
	"github.com/sydlexius/groovenomad/internal/festival"
	"github.com/sydlexius/groovenomad/internal/inquiry"
	"github.com/sydlexius/groovenomad/internal/lexicon"
	"github.com/sydlexius/groovenomad/internal/maintenance"
	"github.com/sydlexius/groovenomad/internal/webhook"
)

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(event.Event)
}

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	FestivalService    *festival.Service
	FestivalSource     festival.Source
	Lexicon            *lexicon.Store
	Templater          *chat.Templater
	QuoteIntake        *inquiry.Intake
	QueryLog           *inquiry.QueryLog
	WebhookService     *webhook.Service
	WebhookDispatcher  *webhook.Dispatcher
	Maintenance        *maintenance.Service
	Backups            *backup.Service // nil when backups are disabled
	Events             Publisher
	DB                 *sql.DB
	Logger             *slog.Logger
	BasePath           string
	CORSOrigin         string
	AdminTokenHash     string
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Router sets up all HTTP routes for the application.
type Router struct {
	festivalService   *festival.Service
	festivalSource    festival.Source
	lexicon           *lexicon.Store
	templater         *chat.Templater
	quoteIntake       *inquiry.Intake
	queryLog          *inquiry.QueryLog
	webhookService    *webhook.Service
	webhookDispatcher *webhook.Dispatcher
	maintenance       *maintenance.Service
	backups           *backup.Service
	events            Publisher
	db                *sql.DB
	logger            *slog.Logger
	basePath          string
	corsOrigin        string
	adminTokenHash    string
	ratePerMinute     int
	rateBurst         int
}

// NewRouter creates a new Router. When FestivalSource is nil, the festival
// service is read directly.
func NewRouter(deps RouterDeps) *Router {
	src := deps.FestivalSource
	if src == nil {
		src = deps.FestivalService
	}
	return &Router{
		festivalService:   deps.FestivalService,
		festivalSource:    src,
		lexicon:           deps.Lexicon,
		templater:         deps.Templater,
		quoteIntake:       deps.QuoteIntake,
		queryLog:          deps.QueryLog,
		webhookService:    deps.WebhookService,
		webhookDispatcher: deps.WebhookDispatcher,
		maintenance:       deps.Maintenance,
		backups:           deps.Backups,
		events:            deps.Events,
		db:                deps.DB,
		logger:            deps.Logger.With("component", "api"),
		basePath:          deps.BasePath,
		corsOrigin:        deps.CORSOrigin,
		adminTokenHash:    deps.AdminTokenHash,
		ratePerMinute:     deps.RateLimitPerMinute,
		rateBurst:         deps.RateLimitBurst,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
// ctx bounds the rate limiter's background sweep.
func (r *Router) Handler(ctx context.Context) http.Handler {
	admin := middleware.AdminToken(r.adminTokenHash)
	limiter := middleware.PerMinute(ctx, r.ratePerMinute, r.rateBurst)
	mux := http.NewServeMux()
	bp := r.basePath

	// Public API
	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/api/v1/festivals", r.handleListFestivals)
	mux.HandleFunc("GET "+bp+"/api/v1/festivals/{id}", r.handleGetFestival)
	mux.HandleFunc("POST "+bp+"/api/v1/playlist/parse", r.handleParsePlaylist)
	mux.HandleFunc("POST "+bp+"/api/v1/playlist/match", r.handleMatchPlaylist)
	mux.HandleFunc("POST "+bp+"/api/v1/match", r.handleMatch)
	mux.Handle("POST "+bp+"/api/v1/chat", limiter.Middleware(http.HandlerFunc(r.handleChat)))
	mux.Handle("POST "+bp+"/api/v1/quotes", limiter.Middleware(http.HandlerFunc(r.handleSubmitQuote)))

	// Admin API
	mux.HandleFunc("POST "+bp+"/api/v1/festivals", wrapAuth(r.handleCreateFestival, admin))
	mux.HandleFunc("DELETE "+bp+"/api/v1/festivals/{id}", wrapAuth(r.handleDeleteFestival, admin))
	mux.HandleFunc("GET "+bp+"/api/v1/queries", wrapAuth(r.handleListQueries, admin))
	mux.HandleFunc("GET "+bp+"/api/v1/queries/{id}", wrapAuth(r.handleGetQuery, admin))
	mux.HandleFunc("POST "+bp+"/api/v1/lexicon/reload", wrapAuth(r.handleReloadLexicon, admin))
	mux.HandleFunc("GET "+bp+"/api/v1/webhooks", wrapAuth(r.handleListWebhooks, admin))
	mux.HandleFunc("POST "+bp+"/api/v1/webhooks", wrapAuth(r.handleCreateWebhook, admin))
	mux.HandleFunc("GET "+bp+"/api/v1/webhooks/{id}", wrapAuth(r.handleGetWebhook, admin))
	mux.HandleFunc("PUT "+bp+"/api/v1/webhooks/{id}", wrapAuth(r.handleUpdateWebhook, admin))
	mux.HandleFunc("DELETE "+bp+"/api/v1/webhooks/{id}", wrapAuth(r.handleDeleteWebhook, admin))
	mux.HandleFunc("POST "+bp+"/api/v1/webhooks/{id}/test", wrapAuth(r.handleTestWebhook, admin))
	if r.maintenance != nil {
		mux.HandleFunc("GET "+bp+"/api/v1/maintenance", wrapAuth(r.handleMaintenanceStatus, admin))
		mux.HandleFunc("POST "+bp+"/api/v1/maintenance/run", wrapAuth(r.handleMaintenanceRun, admin))
	}
	if r.backups != nil {
		mux.HandleFunc("GET "+bp+"/api/v1/backups", wrapAuth(r.handleListBackups, admin))
		mux.HandleFunc("POST "+bp+"/api/v1/backups", wrapAuth(r.handleCreateBackup, admin))
	}

	// Web pages
	mux.HandleFunc("GET "+bp+"/{$}", r.handleIndex)
	mux.HandleFunc("POST "+bp+"/playlist", r.handlePlaylistPage)

	var h http.Handler = mux
	h = middleware.CORS(r.corsOrigin)(h)
	h = middleware.SecurityHeaders(h)
	return middleware.Logging(r.logger)(h)
}

// wrapAuth wraps a handler function with auth middleware.
func wrapAuth(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return authMw(fn).ServeHTTP
}
