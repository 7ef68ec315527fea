package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lovrop/najdeno/internal/model"
)

const itemColumns = `id, kind, name, category, subcategory, location, event_date,
	brand, model, color, description, reporter_id, security_question,
	security_answer, photo_mime, status, created_at, updated_at, deleted_at`

// CreateItem inserts a new report. The item's ID is generated if empty and the
// status always starts at Registered.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	if item.Category == "" || item.Subcategory == "" {
		return nil, fmt.Errorf("category and subcategory are required")
	}
	if item.Kind != model.KindLost && item.Kind != model.KindFound {
		return nil, fmt.Errorf("invalid item kind %q", item.Kind)
	}

	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, kind, name, category, subcategory, location, event_date,
		                    brand, model, color, description, reporter_id,
		                    security_question, security_answer)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.Kind, item.Name, item.Category, item.Subcategory, item.Location,
		item.EventDate, item.Brand, item.Model, item.Color, item.Description,
		item.ReporterID, item.SecurityQuestion, item.SecurityAnswer,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items, optionally filtered by kind and status.
func ListItems(ctx context.Context, db *sql.DB, kind, status string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL`
	var args []any
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListItemsByReporter returns all non-deleted items reported by a user.
func ListItemsByReporter(ctx context.Context, db *sql.DB, reporterID int64) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE deleted_at IS NULL AND reporter_id = ?
		 ORDER BY created_at DESC, id`, reporterID)
	if err != nil {
		return nil, fmt.Errorf("listing items by reporter: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// FindCandidates returns all non-deleted items of the given kind sharing
// category and subcategory, excluding the given reporter's own reports.
// Reporter and security fields are deliberately not loaded: candidates are
// shown to the other party before a claim is verified. Ordered by creation
// time (oldest first) so tie-breaking downstream is deterministic.
func FindCandidates(ctx context.Context, db *sql.DB, kind, category, subcategory string, excludeReporter int64) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, kind, name, category, subcategory, location, event_date,
		        brand, model, color, description, photo_mime, status,
		        created_at, updated_at
		 FROM items
		 WHERE deleted_at IS NULL AND kind = ? AND category = ? AND subcategory = ?
		   AND reporter_id != ?
		 ORDER BY created_at, id`,
		kind, category, subcategory, excludeReporter)
	if err != nil {
		return nil, fmt.Errorf("finding candidates: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var location, brand, mdl, color, description, photoMime sql.NullString
		if err := rows.Scan(&item.ID, &item.Kind, &item.Name, &item.Category,
			&item.Subcategory, &location, &item.EventDate, &brand, &mdl, &color,
			&description, &photoMime, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		item.Location = location.String
		item.Brand = brand.String
		item.Model = mdl.String
		item.Color = color.String
		item.Description = description.String
		item.PhotoMime = photoMime.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemUpdate is the closed set of fields a report's owner may change.
// Nil fields are left untouched. Status is intentionally absent: status only
// moves through conditional transitions, never through a blind merge.
type ItemUpdate struct {
	Name             *string
	Category         *string
	Subcategory      *string
	Location         *string
	EventDate        *time.Time
	Brand            *string
	Model            *string
	Color            *string
	Description      *string
	SecurityQuestion *string
	SecurityAnswer   *string
}

// UpdateItem merges the allow-listed fields into an item.
func UpdateItem(ctx context.Context, db *sql.DB, id string, upd ItemUpdate) error {
	var sets []string
	var args []any
	add := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Category != nil {
		if *upd.Category == "" {
			return fmt.Errorf("category cannot be empty")
		}
		add("category", *upd.Category)
	}
	if upd.Subcategory != nil {
		if *upd.Subcategory == "" {
			return fmt.Errorf("subcategory cannot be empty")
		}
		add("subcategory", *upd.Subcategory)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.EventDate != nil {
		add("event_date", *upd.EventDate)
	}
	if upd.Brand != nil {
		add("brand", *upd.Brand)
	}
	if upd.Model != nil {
		add("model", *upd.Model)
	}
	if upd.Color != nil {
		add("color", *upd.Color)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.SecurityQuestion != nil {
		add("security_question", *upd.SecurityQuestion)
	}
	if upd.SecurityAnswer != nil {
		add("security_answer", *upd.SecurityAnswer)
	}

	if len(sets) == 0 {
		return fmt.Errorf("no fields to update")
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	_, err := db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`,
		args...)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// UpdateItemStatus conditionally moves an item's status. The update only
// applies if the current status is in fromStatuses, so concurrent callers
// cannot race past each other; the return value reports whether this caller
// won the update.
func UpdateItemStatus(ctx context.Context, db *sql.DB, id string, fromStatuses []string, toStatus string) (bool, error) {
	if !model.ValidStatus(toStatus) {
		return false, fmt.Errorf("undefined item status %q", toStatus)
	}

	args := []any{toStatus, id}
	for _, s := range fromStatuses {
		args = append(args, s)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status IN (`+placeholders(len(fromStatuses))+`)`,
		args...)
	if err != nil {
		return false, fmt.Errorf("updating item status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating item status: %w", err)
	}
	return n > 0, nil
}

// UpdateItemStatusMany conditionally moves the status of several items at
// once, returning how many were actually updated.
func UpdateItemStatusMany(ctx context.Context, db *sql.DB, ids []string, fromStatuses []string, toStatus string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if !model.ValidStatus(toStatus) {
		return 0, fmt.Errorf("undefined item status %q", toStatus)
	}

	args := []any{toStatus}
	for _, id := range ids {
		args = append(args, id)
	}
	for _, s := range fromStatuses {
		args = append(args, s)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id IN (`+placeholders(len(ids))+`) AND deleted_at IS NULL
		   AND status IN (`+placeholders(len(fromStatuses))+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("updating item statuses: %w", err)
	}

	return result.RowsAffected()
}

// PromotePair atomically moves a claiming item and its matched counterpart to
// Authentication Verified in a single transaction. A still-Registered claiming
// item is first moved through Authentication In Progress so the status only
// ever travels along defined edges. Returns false (and leaves both records
// untouched) if either item's current status does not permit the promotion.
func PromotePair(ctx context.Context, db *sql.DB, claimID, matchID string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// The claiming item may never have been flagged by a discovery run (it is
	// the newer of the pair); bring it in line before promoting.
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status = ?`,
		model.StatusAuthInProgress, claimID, model.StatusRegistered); err != nil {
		return false, fmt.Errorf("staging claiming item: %w", err)
	}

	for _, id := range []string{claimID, matchID} {
		result, err := tx.ExecContext(ctx,
			`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND deleted_at IS NULL AND status IN (?, ?)`,
			model.StatusAuthVerified, id, model.StatusAuthInProgress, model.StatusAuthVerified)
		if err != nil {
			return false, fmt.Errorf("promoting item %s: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("promoting item %s: %w", id, err)
		}
		if n == 0 {
			// Guard failed: roll back so neither record changed.
			return false, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing promotion: %w", err)
	}
	return true, nil
}

// SetItemPhoto sets an item's photo data.
func SetItemPhoto(ctx context.Context, db *sql.DB, id string, photo []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET photo = ?, photo_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		photo, mime, id)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	return nil
}

// GetItemPhoto returns a non-deleted item's photo data and MIME type.
func GetItemPhoto(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item photo: %w", err)
	}
	return photo, mime.String, nil
}

// placeholders returns a comma-separated list of n SQL placeholders.
func placeholders(n int) string {
	if n == 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var location, brand, mdl, color, description sql.NullString
	var secQuestion, secAnswer, photoMime sql.NullString
	err := row.Scan(&item.ID, &item.Kind, &item.Name, &item.Category,
		&item.Subcategory, &location, &item.EventDate, &brand, &mdl, &color,
		&description, &item.ReporterID, &secQuestion, &secAnswer, &photoMime,
		&item.Status, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.Location = location.String
	item.Brand = brand.String
	item.Model = mdl.String
	item.Color = color.String
	item.Description = description.String
	item.SecurityQuestion = secQuestion.String
	item.SecurityAnswer = secAnswer.String
	item.PhotoMime = photoMime.String
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
