package payments

import (
	"context"
	"database/sql"
	"errors"

	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

type Repository struct {
	db database.Querier
}

func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = repositories.NewID("pay")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, family_id, child_id, method, amount_ore, note, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.FamilyID, p.ChildID, p.Method, p.AmountOre, p.Note, p.CreatedBy, p.CreatedAt)
	return err
}

func (r *Repository) LinkClaim(ctx context.Context, paymentID, claimID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO payment_claims (payment_id, claim_id) VALUES (?, ?)`, paymentID, claimID)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	p := &models.Payment{}
	var note sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, family_id, child_id, method, amount_ore, note, created_by, created_at
		FROM payments WHERE id = ?
	`, id).Scan(&p.ID, &p.FamilyID, &p.ChildID, &p.Method, &p.AmountOre, &note, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if note.Valid {
		p.Note = &note.String
	}
	return p, nil
}

func (r *Repository) ClaimIDs(ctx context.Context, paymentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT claim_id FROM payment_claims WHERE payment_id = ? ORDER BY claim_id`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByFamily returns payments newest first, each with its linked claim ids.
func (r *Repository) ListByFamily(ctx context.Context, familyID, childID string) ([]*models.Payment, error) {
	query := `
		SELECT p.id, p.family_id, p.child_id, p.method, p.amount_ore, p.note, p.created_by, p.created_at, pc.claim_id
		FROM payments p
		LEFT JOIN payment_claims pc ON pc.payment_id = p.id
		WHERE p.family_id = ?`
	args := []interface{}{familyID}
	if childID != "" {
		query += ` AND p.child_id = ?`
		args = append(args, childID)
	}
	query += ` ORDER BY p.created_at DESC, p.id, pc.claim_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*models.Payment{}
	byID := map[string]*models.Payment{}
	for rows.Next() {
		var p models.Payment
		var note, claimID sql.NullString
		if err := rows.Scan(&p.ID, &p.FamilyID, &p.ChildID, &p.Method, &p.AmountOre, &note, &p.CreatedBy, &p.CreatedAt, &claimID); err != nil {
			return nil, err
		}
		existing, ok := byID[p.ID]
		if !ok {
			if note.Valid {
				p.Note = &note.String
			}
			p.ClaimIDs = []string{}
			existing = &p
			byID[p.ID] = existing
			payments = append(payments, existing)
		}
		if claimID.Valid {
			existing.ClaimIDs = append(existing.ClaimIDs, claimID.String)
		}
	}
	return payments, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, paymentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payment_claims WHERE payment_id = ?`, paymentID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, paymentID)
	return err
}
