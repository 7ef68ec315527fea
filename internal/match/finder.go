// Package match implements the item-matching and claim-verification engine:
// candidate scoring, match discovery and reversal, and the security-answer
// check that promotes a candidate match to a verified claim.
package match

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lovrop/najdeno/internal/metrics"
	"github.com/lovrop/najdeno/internal/model"
	"github.com/lovrop/najdeno/internal/store"
)

// Candidate is an opposite-kind item whose score met the match threshold.
type Candidate struct {
	Item  model.Item `json:"item"`
	Score int        `json:"score"`
}

// FindMatches returns the opposite-kind candidates matching the given item,
// ordered by descending score (ties oldest first). Every retained candidate
// still in Registered is moved to Authentication In Progress; candidates
// already further along are left untouched, so re-running discovery never
// regresses anything. A store-read failure aborts with no status mutation;
// a failure updating a single candidate is logged and skipped.
func FindMatches(ctx context.Context, db *sql.DB, item *model.Item, cfg Config) ([]Candidate, error) {
	candidates, err := store.FindCandidates(ctx, db,
		model.OppositeKind(item.Kind), item.Category, item.Subcategory, item.ReporterID)
	if err != nil {
		return nil, fmt.Errorf("finding candidates: %w", err)
	}

	var matches []Candidate
	for i := range candidates {
		if score := Score(item, &candidates[i], cfg); score >= cfg.MatchThreshold {
			matches = append(matches, Candidate{Item: candidates[i], Score: score})
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	// Candidates arrive ordered by creation time, so a stable sort on score
	// keeps ties oldest-first.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	for i := range matches {
		c := &matches[i]
		if c.Item.Status != model.StatusRegistered {
			continue
		}
		updated, err := store.UpdateItemStatus(ctx, db, c.Item.ID,
			[]string{model.StatusRegistered}, model.StatusAuthInProgress)
		if err != nil {
			slog.Error("updating match candidate status", "item", c.Item.ID, "error", err)
			continue
		}
		if updated {
			c.Item.Status = model.StatusAuthInProgress
			metrics.MatchesDiscovered.Inc()
		}
	}

	return matches, nil
}

// UndoMatches releases the in-flight match bookkeeping that depended on an
// item about to be withdrawn: every counterpart candidate the item would
// match is rolled back from Authentication In Progress to Registered, since
// the deleted item can no longer complete verification. Candidates at
// Authentication Verified or later are left alone, a completed verification
// survives counterpart deletion. The rollback is a single guarded bulk
// update, so a candidate that moved on concurrently is simply skipped. A
// store-read failure aborts with an error; a failure of the rollback write
// itself is logged and never blocks the withdrawal.
func UndoMatches(ctx context.Context, db *sql.DB, item *model.Item, cfg Config) error {
	candidates, err := store.FindCandidates(ctx, db,
		model.OppositeKind(item.Kind), item.Category, item.Subcategory, item.ReporterID)
	if err != nil {
		return fmt.Errorf("finding candidates to undo: %w", err)
	}

	var ids []string
	for i := range candidates {
		c := &candidates[i]
		if Score(item, c, cfg) < cfg.MatchThreshold {
			continue
		}
		if c.Status != model.StatusAuthInProgress {
			continue
		}
		ids = append(ids, c.ID)
	}

	n, err := store.UpdateItemStatusMany(ctx, db, ids,
		[]string{model.StatusAuthInProgress}, model.StatusRegistered)
	if err != nil {
		// Best-effort bookkeeping: the status rollback must not block the
		// withdrawal of the originating item.
		slog.Error("rolling back match candidates", "item", item.ID, "error", err)
		return nil
	}
	metrics.MatchRollbacks.Add(float64(n))

	return nil
}
