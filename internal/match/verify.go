package match

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lovrop/najdeno/internal/metrics"
	"github.com/lovrop/najdeno/internal/model"
	"github.com/lovrop/najdeno/internal/store"
)

// SecurityQuestion returns the private security question attached to a
// candidate match. ErrNotFound if the item does not exist, ErrUnavailable if
// it has no question configured.
func SecurityQuestion(ctx context.Context, db *sql.DB, matchID string) (string, error) {
	if matchID == "" {
		return "", ErrInvalidInput
	}

	item, err := store.GetItem(ctx, db, matchID)
	if err != nil {
		return "", fmt.Errorf("loading match: %w", err)
	}
	if item == nil || item.DeletedAt != nil {
		return "", ErrNotFound
	}
	if item.SecurityQuestion == "" {
		return "", ErrUnavailable
	}

	return item.SecurityQuestion, nil
}

// VerifyAnswer checks the claimant's answer against the matched item's stored
// security answer. On success both records are promoted to Authentication
// Verified atomically; a reader never observes only one of the two updated.
// A wrong answer returns (false, nil) with no state change. Re-verifying an
// already verified pair is a no-op that still reports success.
func VerifyAnswer(ctx context.Context, db *sql.DB, itemID, matchID, answer string, cfg Config) (bool, error) {
	if itemID == "" || matchID == "" || strings.TrimSpace(answer) == "" {
		return false, ErrInvalidInput
	}

	item, err := store.GetItem(ctx, db, itemID)
	if err != nil {
		return false, fmt.Errorf("loading item: %w", err)
	}
	if item == nil || item.DeletedAt != nil {
		return false, ErrNotFound
	}

	matched, err := store.GetItem(ctx, db, matchID)
	if err != nil {
		return false, fmt.Errorf("loading match: %w", err)
	}
	if matched == nil || matched.DeletedAt != nil {
		return false, ErrNotFound
	}

	if matched.SecurityAnswer == "" {
		return false, ErrUnavailable
	}

	if !Similar(strings.ToLower(answer), strings.ToLower(matched.SecurityAnswer), cfg.AnswerThreshold) {
		metrics.ClaimVerifications.WithLabelValues("rejected").Inc()
		return false, nil
	}

	// Idempotent repeat of a completed verification.
	if item.Status == model.StatusAuthVerified && matched.Status == model.StatusAuthVerified {
		metrics.ClaimVerifications.WithLabelValues("verified").Inc()
		return true, nil
	}

	// The matched item must not already be verified against someone else or
	// further along in its return.
	if model.StatusProtected(matched.Status) {
		metrics.ClaimVerifications.WithLabelValues("conflict").Inc()
		return false, ErrConflict
	}

	promoted, err := store.PromotePair(ctx, db, item.ID, matched.ID)
	if err != nil {
		return false, fmt.Errorf("promoting verified pair: %w", err)
	}
	if !promoted {
		// A concurrent update changed one of the statuses between the read
		// and the guarded write; nothing was modified.
		metrics.ClaimVerifications.WithLabelValues("conflict").Inc()
		return false, ErrConflict
	}

	metrics.ClaimVerifications.WithLabelValues("verified").Inc()
	return true, nil
}
