package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
)

// NewID returns a prefixed random identifier, e.g. "fam_<uuid>".
func NewID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

type FamilyRepository struct {
	db database.Querier
}

func NewFamilyRepository(db database.Querier) *FamilyRepository {
	return &FamilyRepository{db: db}
}

func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	if family.ID == "" {
		family.ID = NewID("fam")
	}
	if family.ApprovalMode == "" {
		family.ApprovalMode = models.ApprovalRequired
	}
	if family.Name == "" {
		family.Name = "Family"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO families (id, name, approval_mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, family.ID, family.Name, family.ApprovalMode, family.CreatedAt, family.UpdatedAt)
	return err
}

func (r *FamilyRepository) GetByID(ctx context.Context, id string) (*models.Family, error) {
	f := &models.Family{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, approval_mode, created_at, updated_at
		FROM families WHERE id = ?
	`, id).Scan(&f.ID, &f.Name, &f.ApprovalMode, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func (r *FamilyRepository) UpdateApprovalMode(ctx context.Context, id string, mode models.ApprovalMode, now int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE families SET approval_mode = ?, updated_at = ? WHERE id = ?`, mode, now, id)
	return err
}

func (r *FamilyRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM families WHERE id = ?`, id)
	return err
}

type ProfileRepository struct {
	db database.Querier
}

func NewProfileRepository(db database.Querier) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	p := &models.Profile{}
	var familyID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, family_id, role, created_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &familyID, &p.Role, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.FamilyID = stringPtr(familyID)
	return p, nil
}

// CreateIfAbsent inserts a profile without a family. A concurrent insert for
// the same user is not an error.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, userID, role string, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, family_id, role, created_at)
		VALUES (?, NULL, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, role, now)
	return err
}

// AssignFamily sets family_id only if the profile has none yet and reports
// whether this call won.
func (r *ProfileRepository) AssignFamily(ctx context.Context, userID, familyID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET family_id = ? WHERE user_id = ? AND family_id IS NULL`, familyID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
