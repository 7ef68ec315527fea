package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/lovrop/najdeno/internal/imaging"
	"github.com/lovrop/najdeno/internal/match"
	"github.com/lovrop/najdeno/internal/model"
	"github.com/lovrop/najdeno/internal/store"
)

// UsersHandler handles profile and admin user-management endpoints.
type UsersHandler struct {
	DB     *sql.DB
	Config match.Config
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Profile handles GET /api/profile.
func (h *UsersHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/profile. Empty fields keep their current value.
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FirstName == "" && req.LastName == "" && req.Email == "" && req.Phone == "" {
		jsonError(w, http.StatusBadRequest, "at least one field is required")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil || user == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if req.FirstName == "" {
		req.FirstName = user.FirstName
	}
	if req.LastName == "" {
		req.LastName = user.LastName
	}
	if req.Email == "" {
		req.Email = user.Email
	}
	if req.Phone == "" {
		req.Phone = user.Phone
	}

	if err := store.UpdateUserProfile(r.Context(), h.DB, user.ID,
		req.FirstName, req.LastName, strings.ToLower(strings.TrimSpace(req.Email)), req.Phone); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	updated, _ := store.GetUser(r.Context(), h.DB, user.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// ChangePassword handles PUT /api/profile/password.
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil || user == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, string(hash)); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	slog.Info("user changed own password", "user", claims.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// UploadPhoto handles PUT /api/profile/photo.
func (h *UsersHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)
	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	data, mime, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetUserPhoto(r.Context(), h.DB, claims.UserID, data, mime); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save photo")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetPhoto handles GET /api/profile/photo.
func (h *UsersHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	data, mime, err := store.GetUserPhoto(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Write(data)
}

// List handles GET /api/users (admin).
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id} (admin).
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// Promote handles POST /api/users/{id}/promote (admin).
func (h *UsersHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, id, model.RoleAdmin); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to promote user")
		return
	}

	slog.Info("user promoted to admin", "user_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user promoted"})
}

// Delete handles DELETE /api/users/{id} (admin). The user's reports are
// withdrawn first so no counterpart item stays stuck mid-authentication.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	items, err := store.ListItemsByReporter(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list user items")
		return
	}
	for i := range items {
		if err := match.UndoMatches(r.Context(), h.DB, &items[i], h.Config); err != nil {
			slog.Error("undoing matches for deleted user's item", "item", items[i].ID, "error", err)
			continue
		}
		if err := store.DeleteItem(r.Context(), h.DB, items[i].ID); err != nil {
			slog.Error("deleting user's item", "item", items[i].ID, "error", err)
		}
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
