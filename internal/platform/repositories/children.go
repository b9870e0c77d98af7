package repositories

import (
	"context"
	"database/sql"
	"errors"

	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
)

type ChildRepository struct {
	db database.Querier
}

func NewChildRepository(db database.Querier) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = `id, family_id, name, avatar_key, active, created_at, updated_at`

func scanChild(row interface{ Scan(...interface{}) error }) (*models.Child, error) {
	c := &models.Child{}
	if err := row.Scan(&c.ID, &c.FamilyID, &c.Name, &c.AvatarKey, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	if child.ID == "" {
		child.ID = NewID("chd")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO children (id, family_id, name, avatar_key, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, child.ID, child.FamilyID, child.Name, child.AvatarKey, child.Active, child.CreatedAt, child.UpdatedAt)
	return err
}

func (r *ChildRepository) GetByID(ctx context.Context, id string) (*models.Child, error) {
	c, err := scanChild(r.db.QueryRowContext(ctx, `SELECT `+childColumns+` FROM children WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *ChildRepository) ListByFamily(ctx context.Context, familyID string, activeOnly bool) ([]*models.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE family_id = ?`
	args := []interface{}{familyID}
	if activeOnly {
		query += ` AND active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := []*models.Child{}
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE children SET name = ?, avatar_key = ?, active = ?, updated_at = ?
		WHERE id = ? AND family_id = ?
	`, child.Name, child.AvatarKey, child.Active, child.UpdatedAt, child.ID, child.FamilyID)
	return err
}
