package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"craftbridge/internal/app"
	"craftbridge/internal/auth"
	"craftbridge/internal/backup"
	"craftbridge/internal/domain"
	"craftbridge/internal/ws"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Coordinator is the bridge surface the API exposes.
type Coordinator interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Kill() error
	RunCommand(ctx context.Context, text string) (string, error)
	ListPlayers(ctx context.Context) (domain.Roster, error)
	FetchPlayerCount(ctx context.Context) (uint32, error)
	Status(ctx context.Context) domain.StatusReport
	Stats() (domain.ServerStats, error)
	History(limit int) ([]domain.HistoryEntry, error)
}

type Backups interface {
	ListBackups() ([]backup.BackupInfo, error)
	CreateBackup(ctx context.Context, name string) (backup.BackupInfo, error)
	DeleteBackup(name string) error
	RestoreBackup(name string) error
}

type Server struct {
	Coordinator    Coordinator
	Backups        Backups
	Hub            *ws.Hub
	Secret         string
	AllowedOrigins []string
	CommandLimit   int
	Logger         *log.Logger

	limiter *httprate.RateLimiter
}

func NewAPIServer(container *app.Container) *Server {
	return &Server{
		Coordinator:    container.Coordinator,
		Backups:        container.Backups,
		Hub:            container.Hub,
		Secret:         container.Config.APISecret,
		AllowedOrigins: container.Config.AllowedOrigins,
		CommandLimit:   container.Config.CommandRateLimit,
		Logger:         container.Logger.WithPrefix("api"),
	}
}

func (api *Server) Routes() http.Handler {
	origins := api.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	limit := api.CommandLimit
	if limit <= 0 {
		limit = 60
	}

	api.limiter = newCommandLimiter(limit, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(api.Secret, auth.RoleViewer))

		r.Get("/server/players", api.handleListPlayers)
		r.Get("/server/count", api.handlePlayerCount)
		r.Get("/server/status", api.handleStatus)
		r.Get("/server/stats", api.handleStats)
		r.Get("/history", api.handleHistory)
		r.Get("/backups", api.handleListBackups)
		r.Get("/ws/events", api.handleEvents)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(api.Secret, auth.RoleOperator))

		r.Post("/server/start", api.handleStart)
		r.Post("/server/stop", api.handleStop)
		r.Post("/server/kill", api.handleKill)
		r.With(api.limiter.Handler).Post("/server/command", api.handleCommand)

		r.Post("/backups", api.handleCreateBackup)
		r.Delete("/backups/{name}", api.handleDeleteBackup)
		r.Post("/backups/{name}/restore", api.handleRestoreBackup)
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (api *Server) Start(ctx context.Context, listenAddr string) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		api.logger().Info("API listening", "addr", listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (api *Server) logger() *log.Logger {
	if api.Logger == nil {
		return log.Default()
	}
	return api.Logger
}

func (api *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		api.logger().Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
