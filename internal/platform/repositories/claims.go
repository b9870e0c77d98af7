package repositories

import (
	"context"
	"database/sql"
	"errors"

	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
)

type ClaimRepository struct {
	db database.Querier
}

func NewClaimRepository(db database.Querier) *ClaimRepository {
	return &ClaimRepository{db: db}
}

type ClaimFilter struct {
	Status  models.ClaimStatus
	ChildID string
	Limit   int
}

const claimColumns = `id, family_id, child_id, task_id, amount_ore, status, created_at, decided_at, decided_by, paid_at`

func scanClaim(row interface{ Scan(...interface{}) error }) (*models.Claim, error) {
	c := &models.Claim{}
	var decidedAt, paidAt sql.NullInt64
	var decidedBy sql.NullString
	if err := row.Scan(&c.ID, &c.FamilyID, &c.ChildID, &c.TaskID, &c.AmountOre, &c.Status, &c.CreatedAt, &decidedAt, &decidedBy, &paidAt); err != nil {
		return nil, err
	}
	c.DecidedAt = int64Ptr(decidedAt)
	c.DecidedBy = stringPtr(decidedBy)
	c.PaidAt = int64Ptr(paidAt)
	return c, nil
}

func (r *ClaimRepository) Create(ctx context.Context, c *models.Claim) error {
	if c.ID == "" {
		c.ID = NewID("clm")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO claims (id, family_id, child_id, task_id, amount_ore, status, created_at, decided_at, decided_by, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.FamilyID, c.ChildID, c.TaskID, c.AmountOre, c.Status, c.CreatedAt, c.DecidedAt, c.DecidedBy, c.PaidAt)
	return err
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*models.Claim, error) {
	c, err := scanClaim(r.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// LatestSince returns the newest created_at for (child, task) at or after
// since, or 0 if there is none.
func (r *ClaimRepository) LatestSince(ctx context.Context, childID, taskID string, since int64) (int64, error) {
	var latest sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM claims
		WHERE child_id = ? AND task_id = ? AND created_at >= ?
	`, childID, taskID, since).Scan(&latest)
	if err != nil {
		return 0, err
	}
	return latest.Int64, nil
}

// LatestPerTaskSince maps task id to the newest claim created_at for the child.
func (r *ClaimRepository) LatestPerTaskSince(ctx context.Context, childID string, since int64) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, MAX(created_at) FROM claims
		WHERE child_id = ? AND created_at >= ?
		GROUP BY task_id
	`, childID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[string]int64)
	for rows.Next() {
		var taskID string
		var createdAt int64
		if err := rows.Scan(&taskID, &createdAt); err != nil {
			return nil, err
		}
		latest[taskID] = createdAt
	}
	return latest, rows.Err()
}

func (r *ClaimRepository) List(ctx context.Context, familyID string, f ClaimFilter) ([]*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE family_id = ?`
	args := []interface{}{familyID}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ChildID != "" {
		query += ` AND child_id = ?`
		args = append(args, f.ChildID)
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	return r.query(ctx, query, args...)
}

func (r *ClaimRepository) ListByIDs(ctx context.Context, ids []string) ([]*models.Claim, error) {
	if len(ids) == 0 {
		return []*models.Claim{}, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.query(ctx, `SELECT `+claimColumns+` FROM claims WHERE id IN (`+database.Placeholders(len(ids))+`)`, args...)
}

func (r *ClaimRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Claim, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []*models.Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// Decide moves a SENT claim to status. It reports false when the claim was
// not SENT (or not in the family), leaving it untouched.
func (r *ClaimRepository) Decide(ctx context.Context, id, familyID string, status models.ClaimStatus, decidedBy string, now int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE claims SET status = ?, decided_at = ?, decided_by = ?
		WHERE id = ? AND family_id = ? AND status = ?
	`, status, now, decidedBy, id, familyID, models.ClaimSent)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkPaid settles APPROVED claims and returns how many rows changed.
func (r *ClaimRepository) MarkPaid(ctx context.Context, ids []string, now int64) (int64, error) {
	return r.transition(ctx, ids, models.ClaimApproved, models.ClaimPaid, &now)
}

// RevertPaid returns PAID claims to APPROVED and clears paid_at.
func (r *ClaimRepository) RevertPaid(ctx context.Context, ids []string) (int64, error) {
	return r.transition(ctx, ids, models.ClaimPaid, models.ClaimApproved, nil)
}

func (r *ClaimRepository) transition(ctx context.Context, ids []string, from, to models.ClaimStatus, paidAt *int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{to, paidAt}
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, from)

	res, err := r.db.ExecContext(ctx, `
		UPDATE claims SET status = ?, paid_at = ?
		WHERE id IN (`+database.Placeholders(len(ids))+`) AND status = ?
	`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
