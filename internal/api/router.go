package api

import (
	"database/sql"
	"net/http"

	"github.com/lovrop/najdeno/internal/match"
	"github.com/lovrop/najdeno/internal/metrics"
	"github.com/lovrop/najdeno/internal/model"
	"github.com/lovrop/najdeno/internal/task"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, tasks task.Submitter) http.Handler {
	mux := http.NewServeMux()

	cfg := match.DefaultConfig()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Tasks: tasks}
	usersHandler := &UsersHandler{DB: db, Config: cfg}
	itemsHandler := &ItemsHandler{DB: db, Tasks: tasks, Config: cfg}
	matchesHandler := &MatchesHandler{DB: db, Tasks: tasks, Config: cfg, Items: itemsHandler}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public.
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "running"})
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Profile.
	mux.Handle("GET /api/profile", authMW(http.HandlerFunc(usersHandler.Profile)))
	mux.Handle("PUT /api/profile", authMW(http.HandlerFunc(usersHandler.UpdateProfile)))
	mux.Handle("PUT /api/profile/password", authMW(http.HandlerFunc(usersHandler.ChangePassword)))
	mux.Handle("PUT /api/profile/photo", authMW(http.HandlerFunc(usersHandler.UploadPhoto)))
	mux.Handle("GET /api/profile/photo", authMW(http.HandlerFunc(usersHandler.GetPhoto)))

	// Items.
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("GET /api/items/mine", authMW(http.HandlerFunc(itemsHandler.ListMine)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/photo", authMW(http.HandlerFunc(itemsHandler.UploadPhoto)))
	mux.Handle("GET /api/items/{id}/photo", authMW(http.HandlerFunc(itemsHandler.GetPhoto)))

	// Matching and claim verification.
	mux.Handle("GET /api/items/{id}/matches", authMW(http.HandlerFunc(matchesHandler.List)))
	mux.Handle("GET /api/matches/{id}/question", authMW(http.HandlerFunc(matchesHandler.Question)))
	mux.Handle("POST /api/items/{id}/matches/{matchID}/answer", authMW(http.HandlerFunc(matchesHandler.Answer)))

	// Admin.
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("POST /api/users/{id}/promote", authMW(requireAdmin(http.HandlerFunc(usersHandler.Promote))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
