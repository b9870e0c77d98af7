package repositories

import (
	"context"
	"database/sql"
	"errors"

	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
)

type TaskRepository struct {
	db database.Querier
}

func NewTaskRepository(db database.Querier) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, family_id, title, amount_ore, active, created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	t := &models.Task{}
	if err := row.Scan(&t.ID, &t.FamilyID, &t.Title, &t.AmountOre, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = NewID("tsk")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, family_id, title, amount_ore, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.FamilyID, task.Title, task.AmountOre, task.Active, task.CreatedAt, task.UpdatedAt)
	return err
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// TaskOrder selects the sort order of ListByFamily.
type TaskOrder int

const (
	TaskOrderCreated TaskOrder = iota
	TaskOrderTitle
)

func (r *TaskRepository) ListByFamily(ctx context.Context, familyID string, activeOnly bool, order TaskOrder) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE family_id = ?`
	args := []interface{}{familyID}
	if activeOnly {
		query += ` AND active = ?`
		args = append(args, true)
	}
	if order == TaskOrderTitle {
		query += ` ORDER BY title, id`
	} else {
		query += ` ORDER BY created_at, id`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, amount_ore = ?, active = ?, updated_at = ?
		WHERE id = ? AND family_id = ?
	`, task.Title, task.AmountOre, task.Active, task.UpdatedAt, task.ID, task.FamilyID)
	return err
}

type ChildTaskSettingRepository struct {
	db database.Querier
}

func NewChildTaskSettingRepository(db database.Querier) *ChildTaskSettingRepository {
	return &ChildTaskSettingRepository{db: db}
}

func (r *ChildTaskSettingRepository) Get(ctx context.Context, childID, taskID string) (*models.ChildTaskSetting, error) {
	s := &models.ChildTaskSetting{}
	err := r.db.QueryRowContext(ctx, `
		SELECT child_id, task_id, enabled, updated_at
		FROM child_task_settings WHERE child_id = ? AND task_id = ?
	`, childID, taskID).Scan(&s.ChildID, &s.TaskID, &s.Enabled, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByChild returns the explicit overrides for a child keyed by task id.
func (r *ChildTaskSettingRepository) ListByChild(ctx context.Context, childID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT task_id, enabled FROM child_task_settings WHERE child_id = ?`, childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]bool)
	for rows.Next() {
		var taskID string
		var enabled bool
		if err := rows.Scan(&taskID, &enabled); err != nil {
			return nil, err
		}
		settings[taskID] = enabled
	}
	return settings, rows.Err()
}

func (r *ChildTaskSettingRepository) Upsert(ctx context.Context, s *models.ChildTaskSetting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO child_task_settings (child_id, task_id, enabled, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (child_id, task_id) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at
	`, s.ChildID, s.TaskID, s.Enabled, s.UpdatedAt)
	return err
}
