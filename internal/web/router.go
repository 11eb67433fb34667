package web

import (
	"log/slog"
	"net/http"

	"onehandcoder/db"
	"onehandcoder/internal/account"
	"onehandcoder/internal/api"
	"onehandcoder/internal/apperror"
	"onehandcoder/internal/metrics"
	"onehandcoder/internal/settings"
	"onehandcoder/middleware"

	"github.com/gorilla/mux"
)

// Server bundles the handlers and middleware behind the HTTP API.
type Server struct {
	Account     *account.AccountHandlers
	Settings    *settings.SettingsHandlers
	Auth        *middleware.Middleware
	Metrics     *metrics.Metrics
	Store       db.Repository
	Errors      *api.Writer
	Logger      *slog.Logger
	FrontendURL string
}

func (s *Server) SetupRoutes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.Metrics.Middleware)

	r.Handle("/metrics", s.Metrics.Handler()).Methods("GET")
	r.HandleFunc("/healthz", s.Health).Methods("GET")

	// Accounts
	r.HandleFunc("/api/auth/register", s.Account.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", s.Account.Login).Methods("POST")

	// Learning state
	r.HandleFunc("/api/profile", s.Auth.AuthMiddleware(s.Account.Profile)).Methods("GET", "POST")
	r.HandleFunc("/api/progress", s.Auth.AuthMiddleware(s.Account.UpdateProgress)).Methods("POST")
	r.HandleFunc("/api/save-program", s.Auth.AuthMiddleware(s.Account.SaveProgram)).Methods("POST")
	r.HandleFunc("/api/complete-course", s.Auth.AuthMiddleware(s.Account.CompleteCourse)).Methods("POST")

	// Settings
	r.HandleFunc("/api/settings", s.Auth.AuthMiddleware(s.Settings.GetSettings)).Methods("GET")
	r.HandleFunc("/api/settings/update", s.Auth.AuthMiddleware(s.Settings.UpdateSettings)).Methods("POST")
	r.HandleFunc("/api/settings/reset-progress", s.Auth.AuthMiddleware(s.Settings.ResetProgress)).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(s.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.MethodNotAllowed)

	var handler http.Handler = r
	handler = middleware.LimitBody(handler)
	handler = middleware.SetupCORS(s.FrontendURL)(handler)
	handler = middleware.LoggingMiddleware(s.Logger)(handler)
	return handler
}

// Health reports whether the user store answers a ping.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		s.Errors.Error(w, r, apperror.Internal(err, "ping store"), "Store unavailable")
		return
	}
	api.OK(w, nil)
}

func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	s.Errors.Error(w, r, apperror.NotFound("Route not found"), "")
}

func (s *Server) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusMethodNotAllowed, api.Body{"success": false, "message": "Method not allowed"})
}
