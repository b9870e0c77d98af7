// Package claims drives a chore claim from submission through decision.
package claims

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

const DefaultCooldown = 10 * time.Second

var ErrTaskDisabled = errors.New(http.StatusBadRequest, errors.ErrCodeTaskDisabled, "Task is disabled for this child")

type Service struct {
	db       *database.DB
	cooldown time.Duration
	now      func() time.Time
}

func NewService(db *database.DB, cooldown time.Duration) *Service {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Service{db: db, cooldown: cooldown, now: time.Now}
}

// loadChildAndTask enforces that both exist, belong to familyID and are active.
func (s *Service) loadChildAndTask(ctx context.Context, familyID, childID, taskID string) (*models.Child, *models.Task, error) {
	child, err := repositories.NewChildRepository(s.db).GetByID(ctx, childID)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}
	task, err := repositories.NewTaskRepository(s.db).GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}

	if child == nil {
		return nil, nil, errors.NotFound("Child not found")
	}
	if task == nil {
		return nil, nil, errors.NotFound("Task not found")
	}
	if child.FamilyID != familyID || task.FamilyID != familyID {
		return nil, nil, errors.TenantMismatch("Child or task belongs to another family")
	}
	if !child.Active {
		return nil, nil, errors.Inactive("Child is inactive")
	}
	if !task.Active {
		return nil, nil, errors.Inactive("Task is inactive")
	}
	return child, task, nil
}

// SubmitClaim records that a child did a task. The claim's amount is
// copied from the task and its status follows the family's approval mode.
// The duplicate check is a time window, not a constraint: two submissions
// racing on separate connections can both pass it.
func (s *Service) SubmitClaim(ctx context.Context, familyID, childID, taskID string) (*models.Claim, error) {
	_, task, err := s.loadChildAndTask(ctx, familyID, childID, taskID)
	if err != nil {
		return nil, err
	}

	setting, err := repositories.NewChildTaskSettingRepository(s.db).Get(ctx, childID, taskID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if setting != nil && !setting.Enabled {
		return nil, ErrTaskDisabled
	}

	claimsRepo := repositories.NewClaimRepository(s.db)
	now := s.now()
	latest, err := claimsRepo.LatestSince(ctx, childID, taskID, now.Add(-s.cooldown).UnixMilli())
	if err != nil {
		return nil, errors.Internal(err)
	}
	if latest > 0 {
		wait := time.UnixMilli(latest).Add(s.cooldown).Sub(now)
		return nil, errors.RateLimited("Task was just claimed, wait a moment", wait)
	}

	family, err := repositories.NewFamilyRepository(s.db).GetByID(ctx, familyID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if family == nil {
		return nil, errors.NotFound("Family not found")
	}

	claim := &models.Claim{
		FamilyID:  familyID,
		ChildID:   childID,
		TaskID:    taskID,
		AmountOre: task.AmountOre,
		Status:    models.ClaimSent,
		CreatedAt: now.UnixMilli(),
	}
	if family.ApprovalMode == models.ApprovalAuto {
		claim.Status = models.ClaimApproved
	}

	if err := claimsRepo.Create(ctx, claim); err != nil {
		return nil, errors.Internal(err)
	}
	return claim, nil
}

// DecideClaim approves or rejects a SENT claim. The update is conditional
// on the current status so concurrent decisions cannot both apply.
func (s *Service) DecideClaim(ctx context.Context, familyID, claimID string, decision models.ClaimStatus, userID string) (*models.Claim, error) {
	if decision != models.ClaimApproved && decision != models.ClaimRejected {
		return nil, errors.Invalid("Decision must be APPROVED or REJECTED")
	}

	repo := repositories.NewClaimRepository(s.db)
	claim, err := repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if claim == nil {
		return nil, errors.NotFound("Claim not found")
	}
	if claim.FamilyID != familyID {
		return nil, errors.TenantMismatch("Claim belongs to another family")
	}

	now := s.now().UnixMilli()
	ok, err := repo.Decide(ctx, claimID, familyID, decision, userID, now)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !ok {
		return nil, errors.Conflict("Claim has already been decided")
	}

	claim.Status = decision
	claim.DecidedAt = &now
	claim.DecidedBy = &userID
	return claim, nil
}

type ListFilter = repositories.ClaimFilter

func (s *Service) ListClaims(ctx context.Context, familyID string, f ListFilter) ([]*models.Claim, error) {
	claims, err := repositories.NewClaimRepository(s.db).List(ctx, familyID, f)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return claims, nil
}

// TaskBoard is what a child sees: the claimable tasks and, per task id,
// the unix-millis instant its cooldown ends.
type TaskBoard struct {
	Child     *models.Child    `json:"child"`
	Tasks     []*models.Task   `json:"tasks"`
	Cooldowns map[string]int64 `json:"cooldowns"`
}

// ListVisibleTasks returns the family's active tasks minus those explicitly
// disabled for the child.
func (s *Service) ListVisibleTasks(ctx context.Context, familyID, childID string) (*TaskBoard, error) {
	child, err := repositories.NewChildRepository(s.db).GetByID(ctx, childID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if child == nil {
		return nil, errors.NotFound("Child not found")
	}
	if child.FamilyID != familyID {
		return nil, errors.TenantMismatch("Child belongs to another family")
	}
	if !child.Active {
		return nil, errors.Inactive("Child is inactive")
	}

	now := s.now()
	var (
		tasks    []*models.Task
		settings map[string]bool
		latest   map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tasks, err = repositories.NewTaskRepository(s.db).ListByFamily(gctx, familyID, true, repositories.TaskOrderTitle)
		return err
	})
	g.Go(func() (err error) {
		settings, err = repositories.NewChildTaskSettingRepository(s.db).ListByChild(gctx, childID)
		return err
	})
	g.Go(func() (err error) {
		latest, err = repositories.NewClaimRepository(s.db).LatestPerTaskSince(gctx, childID, now.Add(-s.cooldown).UnixMilli())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Internal(err)
	}

	board := &TaskBoard{Child: child, Tasks: []*models.Task{}, Cooldowns: map[string]int64{}}
	for _, t := range tasks {
		if enabled, ok := settings[t.ID]; ok && !enabled {
			continue
		}
		board.Tasks = append(board.Tasks, t)
		if createdAt, ok := latest[t.ID]; ok {
			board.Cooldowns[t.ID] = createdAt + s.cooldown.Milliseconds()
		}
	}
	return board, nil
}
