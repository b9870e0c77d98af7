// Package dbtest opens migrated in-memory stores and seeds fixtures for tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"ukepenger/internal/platform/config"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

// Open returns a fresh, fully migrated in-memory SQLite store that is closed
// when the test ends.
func Open(t testing.TB) *database.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", URL: ":memory:", MaxConnections: 1})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate db: %v", err)
	}
	return db
}

func Family(t testing.TB, db *database.DB, mode models.ApprovalMode) *models.Family {
	t.Helper()
	now := time.Now().UnixMilli()
	f := &models.Family{ApprovalMode: mode, CreatedAt: now, UpdatedAt: now}
	if err := repositories.NewFamilyRepository(db).Create(context.Background(), f); err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	return f
}

func Child(t testing.TB, db *database.DB, familyID, name string) *models.Child {
	t.Helper()
	now := time.Now().UnixMilli()
	c := &models.Child{FamilyID: familyID, Name: name, AvatarKey: models.DefaultAvatar, Active: true, CreatedAt: now, UpdatedAt: now}
	if err := repositories.NewChildRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}
	return c
}

func Task(t testing.TB, db *database.DB, familyID, title string, amountOre int64) *models.Task {
	t.Helper()
	now := time.Now().UnixMilli()
	task := &models.Task{FamilyID: familyID, Title: title, AmountOre: amountOre, Active: true, CreatedAt: now, UpdatedAt: now}
	if err := repositories.NewTaskRepository(db).Create(context.Background(), task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	return task
}

// Claim inserts a claim directly, bypassing submission rules.
func Claim(t testing.TB, db *database.DB, familyID, childID, taskID string, amountOre int64, status models.ClaimStatus) *models.Claim {
	t.Helper()
	c := &models.Claim{
		FamilyID:  familyID,
		ChildID:   childID,
		TaskID:    taskID,
		AmountOre: amountOre,
		Status:    status,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := repositories.NewClaimRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("Failed to create claim: %v", err)
	}
	return c
}
