package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lovrop/najdeno/internal/imaging"
	"github.com/lovrop/najdeno/internal/match"
	"github.com/lovrop/najdeno/internal/model"
	"github.com/lovrop/najdeno/internal/store"
	"github.com/lovrop/najdeno/internal/task"
)

// ItemsHandler handles lost/found report endpoints.
type ItemsHandler struct {
	DB     *sql.DB
	Tasks  task.Submitter
	Config match.Config
}

type createItemRequest struct {
	Kind             string `json:"kind"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Subcategory      string `json:"subcategory"`
	Location         string `json:"location"`
	EventDate        string `json:"event_date"`
	Brand            string `json:"brand"`
	Model            string `json:"model"`
	Color            string `json:"color"`
	Description      string `json:"description"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

type updateItemRequest struct {
	Name             *string `json:"name"`
	Category         *string `json:"category"`
	Subcategory      *string `json:"subcategory"`
	Location         *string `json:"location"`
	EventDate        *string `json:"event_date"`
	Brand            *string `json:"brand"`
	Model            *string `json:"model"`
	Color            *string `json:"color"`
	Description      *string `json:"description"`
	SecurityQuestion *string `json:"security_question"`
	SecurityAnswer   *string `json:"security_answer"`
}

// parseEventDate accepts a plain date or an RFC 3339 timestamp.
func parseEventDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Create handles POST /api/items: records the report and immediately runs
// match discovery against counterpart reports.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Kind != model.KindLost && req.Kind != model.KindFound {
		jsonError(w, http.StatusBadRequest, "kind must be 'lost' or 'found'")
		return
	}
	if req.Name == "" || req.Category == "" || req.Subcategory == "" || req.EventDate == "" {
		jsonError(w, http.StatusBadRequest, "name, category, subcategory and event_date required")
		return
	}
	if (req.SecurityQuestion == "") != (req.SecurityAnswer == "") {
		jsonError(w, http.StatusBadRequest, "security question and answer must be set together")
		return
	}

	eventDate, err := parseEventDate(req.EventDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid event_date")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, &model.Item{
		Kind:             req.Kind,
		Name:             req.Name,
		Category:         req.Category,
		Subcategory:      req.Subcategory,
		Location:         req.Location,
		EventDate:        eventDate,
		Brand:            req.Brand,
		Model:            req.Model,
		Color:            req.Color,
		Description:      req.Description,
		ReporterID:       claims.UserID,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	matches, err := match.FindMatches(r.Context(), h.DB, item, h.Config)
	if err != nil {
		// The report itself succeeded; discovery can be re-run via the
		// matches endpoint.
		slog.Error("match discovery after report", "item", item.ID, "error", err)
	}
	h.notifyMatches(item, matches)

	jsonResponse(w, http.StatusCreated, map[string]any{
		"item":    item,
		"matches": matches,
	})
}

// List handles GET /api/items?kind=&status=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	status := r.URL.Query().Get("status")

	if kind != "" && kind != model.KindLost && kind != model.KindFound {
		jsonError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	if status != "" && !model.ValidStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, kind, status)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// ListMine handles GET /api/items/mine.
func (h *ItemsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	items, err := store.ListItemsByReporter(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. Only the reporter (or an admin) may
// change a report, and only through the allow-listed fields.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := store.ItemUpdate{
		Name:             req.Name,
		Category:         req.Category,
		Subcategory:      req.Subcategory,
		Location:         req.Location,
		Brand:            req.Brand,
		Model:            req.Model,
		Color:            req.Color,
		Description:      req.Description,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	}
	if req.EventDate != nil {
		eventDate, err := parseEventDate(*req.EventDate)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid event_date")
			return
		}
		upd.EventDate = &eventDate
	}

	if err := store.UpdateItem(r.Context(), h.DB, item.ID, upd); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, _ := store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}. Any in-flight match bookkeeping that
// depended on this report is rolled back before the record is removed.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	if err := match.UndoMatches(r.Context(), h.DB, item, h.Config); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to undo matches")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadPhoto handles PUT /api/items/{id}/photo.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	// Limit to 5 MB.
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

	if err := store.SetItemPhoto(r.Context(), h.DB, item.ID, data, mime); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save photo")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetPhoto handles GET /api/items/{id}/photo.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetItemPhoto(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// notifyMatches submits a notification task for each discovered match.
func (h *ItemsHandler) notifyMatches(item *model.Item, matches []match.Candidate) {
	if h.Tasks == nil {
		return
	}
	for _, m := range matches {
		if err := h.Tasks.Submit(task.Task{
			Kind: task.KindMatchFound,
			Payload: map[string]string{
				"item_id":  item.ID,
				"match_id": m.Item.ID,
				"score":    strconv.Itoa(m.Score),
			},
		}); err != nil {
			slog.Warn("submitting match notification task", "error", err)
		}
	}
}

// loadItem fetches the item from the path id, writing the error response on
// failure.
func (h *ItemsHandler) loadItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id := r.PathValue("id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// loadOwnedItem is loadItem plus a reporter-or-admin ownership check.
func (h *ItemsHandler) loadOwnedItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return nil, false
	}

	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	if item.ReporterID != claims.UserID && claims.Role != model.RoleAdmin {
		jsonError(w, http.StatusForbidden, "not your report")
		return nil, false
	}
	return item, true
}
