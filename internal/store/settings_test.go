package store

import (
	"context"
	"testing"

	"github.com/lovrop/najdeno/internal/db"
)

func TestGetJWTSecretStable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("expected a 64-char hex secret, got %d chars", len(first))
	}

	second, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret: %v", err)
	}
	if first != second {
		t.Error("expected the persisted secret to be returned on later calls")
	}
}
