// Package catalog manages the admin-owned configuration of a family: its
// approval mode, children, tasks and per-child task visibility.
package catalog

import (
	"context"
	"strings"
	"time"

	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

// MaxAmountOre caps a single task reward at 1 000 000 kr.
const MaxAmountOre int64 = 100_000_000

type Service struct {
	db  *database.DB
	now func() time.Time
}

func NewService(db *database.DB) *Service {
	return &Service{db: db, now: time.Now}
}

type ChildInput struct {
	Name      string
	AvatarKey string
}

// ChildPatch carries optional updates; nil fields are left unchanged.
type ChildPatch struct {
	Name      *string
	AvatarKey *string
	Active    *bool
}

type TaskInput struct {
	Title     string
	AmountOre int64
}

type TaskPatch struct {
	Title     *string
	AmountOre *int64
	Active    *bool
}

// ChildTask is a task as seen from one child's settings page.
type ChildTask struct {
	*models.Task
	Enabled bool `json:"enabled"`
}

func (s *Service) GetFamily(ctx context.Context, familyID string) (*models.Family, error) {
	family, err := repositories.NewFamilyRepository(s.db).GetByID(ctx, familyID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if family == nil {
		return nil, errors.NotFound("Family not found")
	}
	return family, nil
}

func (s *Service) SetApprovalMode(ctx context.Context, familyID string, mode models.ApprovalMode) (*models.Family, error) {
	if mode != models.ApprovalRequired && mode != models.ApprovalAuto {
		return nil, errors.Invalid("Unknown approval mode")
	}
	if _, err := s.GetFamily(ctx, familyID); err != nil {
		return nil, err
	}
	if err := repositories.NewFamilyRepository(s.db).UpdateApprovalMode(ctx, familyID, mode, s.now().UnixMilli()); err != nil {
		return nil, errors.Internal(err)
	}
	return s.GetFamily(ctx, familyID)
}

func (s *Service) ListChildren(ctx context.Context, familyID string, activeOnly bool) ([]*models.Child, error) {
	children, err := repositories.NewChildRepository(s.db).ListByFamily(ctx, familyID, activeOnly)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return children, nil
}

func normalizeAvatar(key string) (string, error) {
	if key == "" {
		return models.DefaultAvatar, nil
	}
	if !models.IsAvatar(key) {
		return "", errors.Invalid("Unknown avatar").WithDetails(map[string]interface{}{"avatars": models.Avatars})
	}
	return key, nil
}

func (s *Service) CreateChild(ctx context.Context, familyID string, in ChildInput) (*models.Child, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.Invalid("Name is required")
	}
	avatar, err := normalizeAvatar(in.AvatarKey)
	if err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	child := &models.Child{
		FamilyID:  familyID,
		Name:      name,
		AvatarKey: avatar,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repositories.NewChildRepository(s.db).Create(ctx, child); err != nil {
		return nil, errors.Internal(err)
	}
	return child, nil
}

// Child loads a child and checks it belongs to familyID.
func (s *Service) Child(ctx context.Context, familyID, childID string) (*models.Child, error) {
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
	return child, nil
}

func (s *Service) UpdateChild(ctx context.Context, familyID, childID string, patch ChildPatch) (*models.Child, error) {
	child, err := s.Child(ctx, familyID, childID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, errors.Invalid("Name cannot be empty")
		}
		child.Name = name
	}
	if patch.AvatarKey != nil {
		avatar, err := normalizeAvatar(*patch.AvatarKey)
		if err != nil {
			return nil, err
		}
		child.AvatarKey = avatar
	}
	if patch.Active != nil {
		child.Active = *patch.Active
	}
	child.UpdatedAt = s.now().UnixMilli()

	if err := repositories.NewChildRepository(s.db).Update(ctx, child); err != nil {
		return nil, errors.Internal(err)
	}
	return child, nil
}

func (s *Service) ListTasks(ctx context.Context, familyID string, activeOnly bool) ([]*models.Task, error) {
	tasks, err := repositories.NewTaskRepository(s.db).ListByFamily(ctx, familyID, activeOnly, repositories.TaskOrderCreated)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return tasks, nil
}

func (s *Service) CreateTask(ctx context.Context, familyID string, in TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errors.Invalid("Title is required")
	}
	if err := checkAmount(in.AmountOre); err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	task := &models.Task{
		FamilyID:  familyID,
		Title:     title,
		AmountOre: in.AmountOre,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repositories.NewTaskRepository(s.db).Create(ctx, task); err != nil {
		return nil, errors.Internal(err)
	}
	return task, nil
}

func (s *Service) task(ctx context.Context, familyID, taskID string) (*models.Task, error) {
	task, err := repositories.NewTaskRepository(s.db).GetByID(ctx, taskID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if task == nil {
		return nil, errors.NotFound("Task not found")
	}
	if task.FamilyID != familyID {
		return nil, errors.TenantMismatch("Task belongs to another family")
	}
	return task, nil
}

// UpdateTask changes a task. Claims already submitted keep the amount they
// were created with.
func (s *Service) UpdateTask(ctx context.Context, familyID, taskID string, patch TaskPatch) (*models.Task, error) {
	task, err := s.task(ctx, familyID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, errors.Invalid("Title cannot be empty")
		}
		task.Title = title
	}
	if patch.AmountOre != nil {
		if err := checkAmount(*patch.AmountOre); err != nil {
			return nil, err
		}
		task.AmountOre = *patch.AmountOre
	}
	if patch.Active != nil {
		task.Active = *patch.Active
	}
	task.UpdatedAt = s.now().UnixMilli()

	if err := repositories.NewTaskRepository(s.db).Update(ctx, task); err != nil {
		return nil, errors.Internal(err)
	}
	return task, nil
}

// ChildTasks lists every task of the family with the child's enabled flag.
func (s *Service) ChildTasks(ctx context.Context, familyID, childID string) ([]ChildTask, error) {
	if _, err := s.Child(ctx, familyID, childID); err != nil {
		return nil, err
	}
	tasks, err := s.ListTasks(ctx, familyID, false)
	if err != nil {
		return nil, err
	}
	settings, err := repositories.NewChildTaskSettingRepository(s.db).ListByChild(ctx, childID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	out := make([]ChildTask, 0, len(tasks))
	for _, t := range tasks {
		enabled, ok := settings[t.ID]
		out = append(out, ChildTask{Task: t, Enabled: !ok || enabled})
	}
	return out, nil
}

func (s *Service) SetTaskEnabled(ctx context.Context, familyID, childID, taskID string, enabled bool) (*models.ChildTaskSetting, error) {
	if _, err := s.Child(ctx, familyID, childID); err != nil {
		return nil, err
	}
	if _, err := s.task(ctx, familyID, taskID); err != nil {
		return nil, err
	}

	setting := &models.ChildTaskSetting{
		ChildID:   childID,
		TaskID:    taskID,
		Enabled:   enabled,
		UpdatedAt: s.now().UnixMilli(),
	}
	if err := repositories.NewChildTaskSettingRepository(s.db).Upsert(ctx, setting); err != nil {
		return nil, errors.Internal(err)
	}
	return setting, nil
}

func checkAmount(ore int64) error {
	switch {
	case ore < 0:
		return errors.Invalid("Amount cannot be negative")
	case ore > MaxAmountOre:
		return errors.Invalid("Amount is too large")
	}
	return nil
}
