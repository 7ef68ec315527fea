package match

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lovrop/najdeno/internal/db"
	"github.com/lovrop/najdeno/internal/model"
	"github.com/lovrop/najdeno/internal/store"
)

func newTestUser(t *testing.T, database *sql.DB, email string) int64 {
	t.Helper()
	u, err := store.CreateUser(context.Background(), database, "Test", "User", email, "", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u.ID
}

func newReport(t *testing.T, database *sql.DB, item model.Item) *model.Item {
	t.Helper()
	created, err := store.CreateItem(context.Background(), database, &item)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return created
}

// phoneReport is a lost/found phone pair that scores 90 against its
// counterpart: category, subcategory, location, date, brand and color.
func phoneReport(kind string, reporter int64, eventDate time.Time) model.Item {
	return model.Item{
		Kind:        kind,
		Name:        "Phone",
		Category:    "electronics",
		Subcategory: "phone",
		Location:    "City Library",
		EventDate:   eventDate,
		Brand:       "Acme",
		Color:       "black",
		ReporterID:  reporter,
	}
}

func itemStatus(t *testing.T, database *sql.DB, id string) string {
	t.Helper()
	item, err := store.GetItem(context.Background(), database, id)
	if err != nil || item == nil {
		t.Fatalf("GetItem(%s): %v", id, err)
	}
	return item.Status
}

func TestFindMatchesFlagsCandidates(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	found := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))
	lost := newReport(t, database, phoneReport(model.KindLost, loser, date("2024-03-10")))

	matches, err := FindMatches(ctx, database, lost, cfg)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Item.ID != found.ID {
		t.Errorf("expected match %s, got %s", found.ID, matches[0].Item.ID)
	}
	if matches[0].Score != 90 {
		t.Errorf("expected score 90, got %d", matches[0].Score)
	}
	if matches[0].Item.Status != model.StatusAuthInProgress {
		t.Errorf("expected returned candidate status %q, got %q",
			model.StatusAuthInProgress, matches[0].Item.Status)
	}
	if got := itemStatus(t, database, found.ID); got != model.StatusAuthInProgress {
		t.Errorf("expected stored candidate status %q, got %q", model.StatusAuthInProgress, got)
	}
}

func TestFindMatchesBelowThreshold(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	// Ten days apart scores 70, below the threshold of 80.
	found := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-20")))
	lost := newReport(t, database, phoneReport(model.KindLost, loser, date("2024-03-10")))

	matches, err := FindMatches(ctx, database, lost, cfg)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
	if got := itemStatus(t, database, found.ID); got != model.StatusRegistered {
		t.Errorf("expected rejected candidate to stay %q, got %q", model.StatusRegistered, got)
	}
}

func TestFindMatchesExcludesOwnReports(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	user := newTestUser(t, database, "user@example.com")

	newReport(t, database, phoneReport(model.KindFound, user, date("2024-03-10")))
	lost := newReport(t, database, phoneReport(model.KindLost, user, date("2024-03-10")))

	matches, err := FindMatches(ctx, database, lost, cfg)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected own reports to be excluded, got %d matches", len(matches))
	}
}

func TestFindMatchesOrdering(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	weaker := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))

	stronger := phoneReport(model.KindFound, finder, date("2024-03-10"))
	stronger.Model = "X100"
	strongerCreated := newReport(t, database, stronger)

	lost := phoneReport(model.KindLost, loser, date("2024-03-10"))
	lost.Model = "X100"
	lostCreated := newReport(t, database, lost)

	matches, err := FindMatches(ctx, database, lostCreated, cfg)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Item.ID != strongerCreated.ID || matches[1].Item.ID != weaker.ID {
		t.Errorf("expected matches ordered by descending score, got [%s %s]",
			matches[0].Item.ID, matches[1].Item.ID)
	}
}

func TestFindMatchesTiesOldestFirst(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	older := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))
	newer := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))

	// In-memory runs land in the same second; spread the creation times so
	// the tie-break is observable.
	if _, err := database.ExecContext(ctx,
		`UPDATE items SET created_at = '2024-03-01 10:00:00' WHERE id = ?`, older.ID); err != nil {
		t.Fatalf("backdating item: %v", err)
	}
	if _, err := database.ExecContext(ctx,
		`UPDATE items SET created_at = '2024-03-02 10:00:00' WHERE id = ?`, newer.ID); err != nil {
		t.Fatalf("backdating item: %v", err)
	}

	lost := newReport(t, database, phoneReport(model.KindLost, loser, date("2024-03-10")))

	matches, err := FindMatches(ctx, database, lost, cfg)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Item.ID != older.ID {
		t.Errorf("expected equal scores ordered oldest first, got %s before %s",
			matches[0].Item.ID, matches[1].Item.ID)
	}
}

func TestFindMatchesRerunKeepsStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	found := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))
	lost := newReport(t, database, phoneReport(model.KindLost, loser, date("2024-03-10")))

	if _, err := FindMatches(ctx, database, lost, cfg); err != nil {
		t.Fatalf("first FindMatches: %v", err)
	}
	matches, err := FindMatches(ctx, database, lost, cfg)
	if err != nil {
		t.Fatalf("second FindMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected rediscovery to return the match, got %d", len(matches))
	}
	if got := itemStatus(t, database, found.ID); got != model.StatusAuthInProgress {
		t.Errorf("expected candidate to stay %q, got %q", model.StatusAuthInProgress, got)
	}
}

func TestFindMatchesNeverRegressesVerified(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	found := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))
	lost := newReport(t, database, phoneReport(model.KindLost, loser, date("2024-03-10")))

	// Walk the candidate forward to Authentication Verified.
	store.UpdateItemStatus(ctx, database, found.ID,
		[]string{model.StatusRegistered}, model.StatusAuthInProgress)
	store.UpdateItemStatus(ctx, database, found.ID,
		[]string{model.StatusAuthInProgress}, model.StatusAuthVerified)

	if _, err := FindMatches(ctx, database, lost, cfg); err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if got := itemStatus(t, database, found.ID); got != model.StatusAuthVerified {
		t.Errorf("expected verified candidate untouched, got %q", got)
	}
}

func TestUndoMatchesRollsBackInProgress(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	found := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))
	lost := newReport(t, database, phoneReport(model.KindLost, loser, date("2024-03-10")))

	if _, err := FindMatches(ctx, database, lost, cfg); err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if got := itemStatus(t, database, found.ID); got != model.StatusAuthInProgress {
		t.Fatalf("expected candidate flagged before undo, got %q", got)
	}

	if err := UndoMatches(ctx, database, lost, cfg); err != nil {
		t.Fatalf("UndoMatches: %v", err)
	}
	if got := itemStatus(t, database, found.ID); got != model.StatusRegistered {
		t.Errorf("expected candidate rolled back to %q, got %q", model.StatusRegistered, got)
	}
}

func TestUndoMatchesWriteFailureNonFatal(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	found := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))
	lost := newReport(t, database, phoneReport(model.KindLost, loser, date("2024-03-10")))

	if _, err := FindMatches(ctx, database, lost, cfg); err != nil {
		t.Fatalf("FindMatches: %v", err)
	}

	// Make the rollback write fail while reads keep working.
	if _, err := database.ExecContext(ctx,
		`CREATE TRIGGER rollback_write_fails BEFORE UPDATE OF status ON items
		 WHEN NEW.status = 'Registered'
		 BEGIN SELECT RAISE(ABORT, 'disk error'); END`); err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	if err := UndoMatches(ctx, database, lost, cfg); err != nil {
		t.Fatalf("expected a failed rollback write to be non-fatal, got %v", err)
	}
	if got := itemStatus(t, database, found.ID); got != model.StatusAuthInProgress {
		t.Errorf("expected candidate left at %q after the failed write, got %q",
			model.StatusAuthInProgress, got)
	}

	// The withdrawal itself still goes through.
	if err := store.DeleteItem(ctx, database, lost.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	got, _ := store.GetItem(ctx, database, lost.ID)
	if got == nil || got.DeletedAt == nil {
		t.Error("expected the originating item to be withdrawn despite the rollback failure")
	}
}

func TestUndoMatchesLeavesVerifiedAlone(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cfg := DefaultConfig()

	loser := newTestUser(t, database, "loser@example.com")
	finder := newTestUser(t, database, "finder@example.com")

	found := newReport(t, database, phoneReport(model.KindFound, finder, date("2024-03-10")))
	lost := newReport(t, database, phoneReport(model.KindLost, loser, date("2024-03-10")))

	store.UpdateItemStatus(ctx, database, found.ID,
		[]string{model.StatusRegistered}, model.StatusAuthInProgress)
	store.UpdateItemStatus(ctx, database, found.ID,
		[]string{model.StatusAuthInProgress}, model.StatusAuthVerified)

	if err := UndoMatches(ctx, database, lost, cfg); err != nil {
		t.Fatalf("UndoMatches: %v", err)
	}
	if got := itemStatus(t, database, found.ID); got != model.StatusAuthVerified {
		t.Errorf("expected completed verification to survive, got %q", got)
	}
}
