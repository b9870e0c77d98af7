package claims

import (
	"context"
	"testing"
	"time"

	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/database/dbtest"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *database.DB, *clock) {
	t.Helper()
	db := dbtest.Open(t)
	c := &clock{t: time.Now().Truncate(time.Millisecond)}
	svc := NewService(db, 10*time.Second)
	svc.now = c.Now
	return svc, db, c
}

func TestSubmitClaim_RequireApproval(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	child := dbtest.Child(t, db, family.ID, "Ada")
	task := dbtest.Task(t, db, family.ID, "Dishes", 2000)

	claim, err := svc.SubmitClaim(ctx, family.ID, child.ID, task.ID)
	if err != nil {
		t.Fatalf("SubmitClaim() error = %v", err)
	}
	if claim.Status != models.ClaimSent {
		t.Errorf("Expected SENT, got %s", claim.Status)
	}
	if claim.AmountOre != 2000 {
		t.Errorf("Expected 2000 øre, got %d", claim.AmountOre)
	}

	// Price changes after submission do not touch the claim.
	task.AmountOre = 5000
	if err := repositories.NewTaskRepository(db).Update(ctx, task); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	stored, _ := repositories.NewClaimRepository(db).GetByID(ctx, claim.ID)
	if stored.AmountOre != 2000 {
		t.Errorf("Expected frozen amount 2000, got %d", stored.AmountOre)
	}
}

func TestSubmitClaim_AutoApprove(t *testing.T) {
	svc, db, _ := newTestService(t)
	family := dbtest.Family(t, db, models.ApprovalAuto)
	child := dbtest.Child(t, db, family.ID, "Ada")
	task := dbtest.Task(t, db, family.ID, "Dishes", 2000)

	claim, err := svc.SubmitClaim(context.Background(), family.ID, child.ID, task.ID)
	if err != nil {
		t.Fatalf("SubmitClaim() error = %v", err)
	}
	if claim.Status != models.ClaimApproved {
		t.Errorf("Expected APPROVED, got %s", claim.Status)
	}
}

func TestSubmitClaim_Failures(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	other := dbtest.Family(t, db, models.ApprovalRequired)
	child := dbtest.Child(t, db, family.ID, "Ada")
	task := dbtest.Task(t, db, family.ID, "Dishes", 2000)
	foreignTask := dbtest.Task(t, db, other.ID, "Lawn", 5000)

	inactiveChild := dbtest.Child(t, db, family.ID, "Bo")
	inactiveChild.Active = false
	repositories.NewChildRepository(db).Update(ctx, inactiveChild)

	inactiveTask := dbtest.Task(t, db, family.ID, "Old", 100)
	inactiveTask.Active = false
	repositories.NewTaskRepository(db).Update(ctx, inactiveTask)

	disabledTask := dbtest.Task(t, db, family.ID, "Vacuum", 1500)
	repositories.NewChildTaskSettingRepository(db).Upsert(ctx, &models.ChildTaskSetting{ChildID: child.ID, TaskID: disabledTask.ID, Enabled: false})

	tests := []struct {
		name     string
		familyID string
		childID  string
		taskID   string
		want     error
	}{
		{name: "Missing Child", familyID: family.ID, childID: "chd_missing", taskID: task.ID, want: errors.NotFound("")},
		{name: "Missing Task", familyID: family.ID, childID: child.ID, taskID: "tsk_missing", want: errors.NotFound("")},
		{name: "Foreign Task", familyID: family.ID, childID: child.ID, taskID: foreignTask.ID, want: errors.TenantMismatch("")},
		{name: "Acting For Other Family", familyID: other.ID, childID: child.ID, taskID: task.ID, want: errors.TenantMismatch("")},
		{name: "Inactive Child", familyID: family.ID, childID: inactiveChild.ID, taskID: task.ID, want: errors.Inactive("")},
		{name: "Inactive Task", familyID: family.ID, childID: child.ID, taskID: inactiveTask.ID, want: errors.Inactive("")},
		{name: "Disabled For Child", familyID: family.ID, childID: child.ID, taskID: disabledTask.ID, want: ErrTaskDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitClaim(ctx, tt.familyID, tt.childID, tt.taskID)
			if !errors.Is(err, tt.want) {
				t.Errorf("SubmitClaim() error = %v, want %v", err, tt.want)
			}
		})
	}

	claims, _ := svc.ListClaims(ctx, family.ID, ListFilter{})
	if len(claims) != 0 {
		t.Errorf("Expected no claims written, got %d", len(claims))
	}
}

func TestSubmitClaim_Cooldown(t *testing.T) {
	svc, db, clk := newTestService(t)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	child := dbtest.Child(t, db, family.ID, "Ada")
	task := dbtest.Task(t, db, family.ID, "Dishes", 2000)
	otherTask := dbtest.Task(t, db, family.ID, "Lawn", 3000)

	if _, err := svc.SubmitClaim(ctx, family.ID, child.ID, task.ID); err != nil {
		t.Fatalf("SubmitClaim() error = %v", err)
	}

	clk.Advance(4 * time.Second)
	_, err := svc.SubmitClaim(ctx, family.ID, child.ID, task.ID)
	e, ok := errors.As(err)
	if !ok || e.Code != errors.ErrCodeCooldownActive {
		t.Fatalf("Expected cooldown error, got %v", err)
	}
	if ms := e.Details["retry_after_ms"].(int64); ms != 6000 {
		t.Errorf("Expected retry_after_ms 6000, got %d", ms)
	}

	if _, err := svc.SubmitClaim(ctx, family.ID, child.ID, otherTask.ID); err != nil {
		t.Errorf("Expected other task to be unaffected, got %v", err)
	}

	clk.Advance(6*time.Second + time.Millisecond)
	if _, err := svc.SubmitClaim(ctx, family.ID, child.ID, task.ID); err != nil {
		t.Errorf("Expected submission after cooldown to succeed, got %v", err)
	}
}

func TestDecideClaim(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	other := dbtest.Family(t, db, models.ApprovalRequired)
	child := dbtest.Child(t, db, family.ID, "Ada")
	task := dbtest.Task(t, db, family.ID, "Dishes", 2000)

	claim, err := svc.SubmitClaim(ctx, family.ID, child.ID, task.ID)
	if err != nil {
		t.Fatalf("SubmitClaim() error = %v", err)
	}

	if _, err := svc.DecideClaim(ctx, other.ID, claim.ID, models.ClaimApproved, "user-2"); !errors.Is(err, errors.TenantMismatch("")) {
		t.Errorf("Expected tenant mismatch, got %v", err)
	}
	if _, err := svc.DecideClaim(ctx, family.ID, claim.ID, models.ClaimPaid, "user-1"); !errors.Is(err, errors.Invalid("")) {
		t.Errorf("Expected invalid decision, got %v", err)
	}

	decided, err := svc.DecideClaim(ctx, family.ID, claim.ID, models.ClaimApproved, "user-1")
	if err != nil {
		t.Fatalf("DecideClaim() error = %v", err)
	}
	if decided.Status != models.ClaimApproved || decided.DecidedBy == nil || *decided.DecidedBy != "user-1" {
		t.Errorf("Unexpected decided claim %+v", decided)
	}

	if _, err := svc.DecideClaim(ctx, family.ID, claim.ID, models.ClaimRejected, "user-1"); !errors.Is(err, errors.Conflict("")) {
		t.Errorf("Expected conflict on second decision, got %v", err)
	}

	stored, _ := repositories.NewClaimRepository(db).GetByID(ctx, claim.ID)
	if stored.Status != models.ClaimApproved || stored.DecidedAt == nil {
		t.Errorf("Expected stored APPROVED with decided_at, got %+v", stored)
	}
}

func TestListVisibleTasks_OrderedByTitle(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	child := dbtest.Child(t, db, family.ID, "Ada")
	for _, title := range []string{"Vacuum", "Dishes", "Lawn"} {
		dbtest.Task(t, db, family.ID, title, 1000)
	}

	board, err := svc.ListVisibleTasks(ctx, family.ID, child.ID)
	if err != nil {
		t.Fatalf("ListVisibleTasks() error = %v", err)
	}

	want := []string{"Dishes", "Lawn", "Vacuum"}
	if len(board.Tasks) != len(want) {
		t.Fatalf("Expected %d tasks, got %d", len(want), len(board.Tasks))
	}
	for i, task := range board.Tasks {
		if task.Title != want[i] {
			t.Errorf("Task %d: expected %s, got %s", i, want[i], task.Title)
		}
	}
}

func TestListVisibleTasks(t *testing.T) {
	svc, db, clk := newTestService(t)
	ctx := context.Background()
	family := dbtest.Family(t, db, models.ApprovalRequired)
	other := dbtest.Family(t, db, models.ApprovalRequired)
	child := dbtest.Child(t, db, family.ID, "Ada")
	dishes := dbtest.Task(t, db, family.ID, "Dishes", 2000)
	lawn := dbtest.Task(t, db, family.ID, "Lawn", 3000)
	vacuum := dbtest.Task(t, db, family.ID, "Vacuum", 1500)
	dbtest.Task(t, db, other.ID, "Foreign", 100)

	settings := repositories.NewChildTaskSettingRepository(db)
	settings.Upsert(ctx, &models.ChildTaskSetting{ChildID: child.ID, TaskID: vacuum.ID, Enabled: false})
	settings.Upsert(ctx, &models.ChildTaskSetting{ChildID: child.ID, TaskID: lawn.ID, Enabled: true})

	if _, err := svc.SubmitClaim(ctx, family.ID, child.ID, dishes.ID); err != nil {
		t.Fatalf("SubmitClaim() error = %v", err)
	}
	submittedAt := clk.Now().UnixMilli()

	board, err := svc.ListVisibleTasks(ctx, family.ID, child.ID)
	if err != nil {
		t.Fatalf("ListVisibleTasks() error = %v", err)
	}

	ids := map[string]bool{}
	for _, task := range board.Tasks {
		ids[task.ID] = true
	}
	if !ids[dishes.ID] || !ids[lawn.ID] || ids[vacuum.ID] || len(ids) != 2 {
		t.Errorf("Unexpected visible tasks %v", ids)
	}
	if got := board.Cooldowns[dishes.ID]; got != submittedAt+10000 {
		t.Errorf("Expected cooldown until %d, got %d", submittedAt+10000, got)
	}
	if _, ok := board.Cooldowns[lawn.ID]; ok {
		t.Error("Expected no cooldown for lawn")
	}

	clk.Advance(11 * time.Second)
	board, _ = svc.ListVisibleTasks(ctx, family.ID, child.ID)
	if len(board.Cooldowns) != 0 {
		t.Errorf("Expected cooldowns to expire, got %v", board.Cooldowns)
	}

	if _, err := svc.ListVisibleTasks(ctx, other.ID, child.ID); !errors.Is(err, errors.TenantMismatch("")) {
		t.Errorf("Expected tenant mismatch, got %v", err)
	}
}
