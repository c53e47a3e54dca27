package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"signaltracker/backend/services/dashboard-gateway/internal/http/handlers"
	"signaltracker/backend/services/dashboard-gateway/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	AuthHandlers      *handlers.AuthHandlers
	AccountHandlers   *handlers.AccountHandlers
	DashboardHandlers *handlers.DashboardHandlers
	MapHandlers       *handlers.MapHandlers
	AdminHandlers     *handlers.AdminHandlers
	UploadHandlers    *handlers.UploadHandlers
	SettingsHandlers  *handlers.SettingsHandlers
	HealthHandler     http.HandlerFunc
	LiveHandler       http.HandlerFunc
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))

	auth := deps.AuthHandlers
	mux.Handle("/api/auth/login", method(http.MethodPost, http.HandlerFunc(auth.Login)))
	mux.Handle("/api/auth/signup", method(http.MethodPost, http.HandlerFunc(auth.Signup)))
	mux.Handle("/api/auth/forgot-password", method(http.MethodPost, http.HandlerFunc(auth.ForgotPassword)))
	mux.Handle("/api/auth/reset-password", method(http.MethodPost, http.HandlerFunc(auth.ResetPassword)))

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware)
	}
	private := func(pattern, verb string, handler http.HandlerFunc) {
		mux.Handle(pattern, method(verb, authenticated(handler)))
	}

	private("/api/auth/logout", http.MethodPost, auth.Logout)
	private("/api/auth/me", http.MethodGet, auth.Me)

	accounts := deps.AccountHandlers
	private("/api/auth/status", http.MethodGet, accounts.Status)
	private("/api/auth/logged-user", http.MethodGet, accounts.LoggedUser)
	private("/api/lookups/states", http.MethodGet, accounts.States)
	private("/api/lookups/user-types", http.MethodGet, accounts.UserTypes)

	dash := deps.DashboardHandlers
	private("/api/dashboard", http.MethodGet, dash.Summary)
	private("/api/dashboard/ranking", http.MethodGet, dash.Ranking)
	private("/api/dashboard/charts", http.MethodGet, dash.Charts)

	maps := deps.MapHandlers
	private("/api/map/logs", http.MethodGet, maps.Logs)
	private("/api/map/sessions/{id}/logs", http.MethodGet, maps.SessionLogs)
	private("/api/map/prediction", http.MethodGet, maps.Prediction)
	private("/api/map/heatmap", http.MethodGet, maps.Heatmap)
	private("/api/map/overlay.png", http.MethodGet, maps.Overlay)
	private("/api/map/legend.png", http.MethodGet, maps.Legend)
	private("/api/map/projects", http.MethodGet, maps.Projects)
	private("/api/map/projects/{id}/polygons", http.MethodGet, maps.ProjectPolygons)
	private("/api/map/providers", http.MethodGet, maps.Providers)
	private("/api/map/technologies", http.MethodGet, maps.Technologies)
	private("/api/map/bands", http.MethodGet, maps.Bands)
	private("/api/map/log", http.MethodPost, maps.LogNetwork)
	private("/api/map/sessions/start", http.MethodPost, maps.StartSession)
	private("/api/map/sessions/end", http.MethodPost, maps.EndSession)
	mux.Handle("/api/map/views", authenticated(methods(map[string]http.HandlerFunc{
		http.MethodGet:  maps.Views,
		http.MethodPost: maps.SaveView,
	})))
	private("/api/map/views/{id}", http.MethodDelete, maps.DeleteView)

	admin := deps.AdminHandlers
	private("/api/admin/sessions", http.MethodGet, admin.Sessions)
	private("/api/admin/sessions/{id}", http.MethodDelete, admin.DeleteSession)
	private("/api/admin/network-logs", http.MethodGet, admin.NetworkLogs)
	mux.Handle("/api/admin/users", authenticated(methods(map[string]http.HandlerFunc{
		http.MethodGet:  admin.Users,
		http.MethodPost: admin.SaveUser,
	})))
	mux.Handle("/api/admin/users/{id}", authenticated(methods(map[string]http.HandlerFunc{
		http.MethodGet:    admin.User,
		http.MethodDelete: admin.DeleteUser,
	})))
	private("/api/admin/users/search", http.MethodPost, admin.SearchUsers)
	private("/api/admin/users/reset-password", http.MethodPost, admin.ResetUserPassword)
	private("/api/admin/change-password", http.MethodPost, admin.ChangePassword)

	uploads := deps.UploadHandlers
	private("/api/upload", http.MethodPost, uploads.Upload)
	private("/api/upload/template", http.MethodGet, uploads.Template)
	private("/api/upload/files", http.MethodGet, uploads.Files)
	private("/api/upload/sessions", http.MethodGet, uploads.Sessions)

	settings := deps.SettingsHandlers
	mux.Handle("/api/settings/thresholds", authenticated(methods(map[string]http.HandlerFunc{
		http.MethodGet:  settings.Thresholds,
		http.MethodPost: settings.SaveThresholds,
	})))
	private("/api/settings/metrics", http.MethodGet, settings.Metrics)

	if deps.LiveHandler != nil {
		private("/ws/live", http.MethodGet, deps.LiveHandler)
	}

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

// methods dispatches one path to a handler per HTTP method.
func methods(byMethod map[string]http.HandlerFunc) http.Handler {
	allowed := make([]string, 0, len(byMethod))
	for m := range byMethod {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	})
}
