package catalog

import (
	"context"
	"math"
	"testing"

	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/platform/database/dbtest"
	"ukepenger/internal/platform/models"
)

func TestCreateChild(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	family := dbtest.Family(t, db, models.ApprovalRequired)

	tests := []struct {
		name       string
		input      ChildInput
		wantAvatar string
		wantErr    error
	}{
		{name: "Default Avatar", input: ChildInput{Name: " Ola "}, wantAvatar: models.DefaultAvatar},
		{name: "Chosen Avatar", input: ChildInput{Name: "Kari", AvatarKey: "panda"}, wantAvatar: "panda"},
		{name: "Unknown Avatar", input: ChildInput{Name: "Per", AvatarKey: "dinosaur"}, wantErr: errors.Invalid("")},
		{name: "Missing Name", input: ChildInput{Name: "  "}, wantErr: errors.Invalid("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child, err := svc.CreateChild(context.Background(), family.ID, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateChild() error = %v", err)
			}
			if child.AvatarKey != tt.wantAvatar {
				t.Errorf("Expected avatar %s, got %s", tt.wantAvatar, child.AvatarKey)
			}
			if !child.Active {
				t.Error("Expected new child to be active")
			}
		})
	}
}

func TestUpdateChildTenantAndSoftDelete(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	other := dbtest.Family(t, db, models.ApprovalRequired)
	child := dbtest.Child(t, db, family.ID, "Ola")

	inactive := false
	if _, err := svc.UpdateChild(ctx, other.ID, child.ID, ChildPatch{Active: &inactive}); !errors.Is(err, errors.TenantMismatch("")) {
		t.Errorf("Expected tenant mismatch, got %v", err)
	}

	updated, err := svc.UpdateChild(ctx, family.ID, child.ID, ChildPatch{Active: &inactive})
	if err != nil {
		t.Fatalf("UpdateChild() error = %v", err)
	}
	if updated.Active {
		t.Error("Expected child to be inactive")
	}

	active, _ := svc.ListChildren(ctx, family.ID, true)
	if len(active) != 0 {
		t.Errorf("Expected no active children, got %d", len(active))
	}
	all, _ := svc.ListChildren(ctx, family.ID, false)
	if len(all) != 1 {
		t.Errorf("Expected soft-deleted child to remain listed, got %d", len(all))
	}
}

func TestTasksAndSettings(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	child := dbtest.Child(t, db, family.ID, "Ola")

	if _, err := svc.CreateTask(ctx, family.ID, TaskInput{Title: "Dishes", AmountOre: -1}); !errors.Is(err, errors.Invalid("")) {
		t.Errorf("Expected invalid amount, got %v", err)
	}

	dishes, err := svc.CreateTask(ctx, family.ID, TaskInput{Title: "Dishes", AmountOre: 2000})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	laundry, _ := svc.CreateTask(ctx, family.ID, TaskInput{Title: "Laundry", AmountOre: 1500})

	if _, err := svc.SetTaskEnabled(ctx, family.ID, child.ID, laundry.ID, false); err != nil {
		t.Fatalf("SetTaskEnabled() error = %v", err)
	}

	tasks, err := svc.ChildTasks(ctx, family.ID, child.ID)
	if err != nil {
		t.Fatalf("ChildTasks() error = %v", err)
	}
	enabled := map[string]bool{}
	for _, ct := range tasks {
		enabled[ct.ID] = ct.Enabled
	}
	if !enabled[dishes.ID] {
		t.Error("Expected task without override to be enabled")
	}
	if enabled[laundry.ID] {
		t.Error("Expected overridden task to be disabled")
	}

	amount := int64(2500)
	updated, err := svc.UpdateTask(ctx, family.ID, dishes.ID, TaskPatch{AmountOre: &amount})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if updated.AmountOre != 2500 || updated.Title != "Dishes" {
		t.Errorf("Unexpected task after update: %+v", updated)
	}
}

func TestTaskAmountBounds(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	task := dbtest.Task(t, db, family.ID, "Dishes", 2000)

	tests := []struct {
		name    string
		amount  int64
		wantErr bool
	}{
		{name: "Zero", amount: 0},
		{name: "At Cap", amount: MaxAmountOre},
		{name: "Negative", amount: -1, wantErr: true},
		{name: "Above Cap", amount: MaxAmountOre + 1, wantErr: true},
		{name: "Max Int64", amount: math.MaxInt64, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, family.ID, TaskInput{Title: "Lawn", AmountOre: tt.amount})
			if tt.wantErr != errors.Is(err, errors.Invalid("")) {
				t.Errorf("CreateTask(%d) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}

			amount := tt.amount
			_, err = svc.UpdateTask(ctx, family.ID, task.ID, TaskPatch{AmountOre: &amount})
			if tt.wantErr != errors.Is(err, errors.Invalid("")) {
				t.Errorf("UpdateTask(%d) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("UpdateTask(%d) unexpected error = %v", tt.amount, err)
			}
		})
	}
}

func TestSetApprovalMode(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)

	got, err := svc.SetApprovalMode(ctx, family.ID, models.ApprovalAuto)
	if err != nil {
		t.Fatalf("SetApprovalMode() error = %v", err)
	}
	if got.ApprovalMode != models.ApprovalAuto {
		t.Errorf("Expected AUTO_APPROVE, got %s", got.ApprovalMode)
	}

	if _, err := svc.SetApprovalMode(ctx, family.ID, "SOMETIMES"); !errors.Is(err, errors.Invalid("")) {
		t.Errorf("Expected invalid mode, got %v", err)
	}
}
