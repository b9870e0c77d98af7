package pairing

import (
	"context"
	"database/sql"
	"errors"

	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

type DeviceRepository struct {
	db database.Querier
}

func NewDeviceRepository(db database.Querier) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, family_id, name, device_code, secret_salt, token_hash, active, revoked_at, last_seen_at, created_at, updated_at`

func scanDevice(row interface{ Scan(...interface{}) error }) (*models.Device, error) {
	d := &models.Device{}
	var revokedAt, lastSeenAt sql.NullInt64
	err := row.Scan(&d.ID, &d.FamilyID, &d.Name, &d.Code, &d.SecretSalt, &d.TokenHash, &d.Active, &revokedAt, &lastSeenAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		d.RevokedAt = &revokedAt.Int64
	}
	if lastSeenAt.Valid {
		d.LastSeenAt = &lastSeenAt.Int64
	}
	return d, nil
}

func (r *DeviceRepository) one(ctx context.Context, query string, args ...interface{}) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func (r *DeviceRepository) Create(ctx context.Context, d *models.Device) error {
	if d.ID == "" {
		d.ID = repositories.NewID("dev")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (id, family_id, name, device_code, secret_salt, token_hash, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.FamilyID, d.Name, d.Code, d.SecretSalt, d.TokenHash, d.Active, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	return r.one(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
}

func (r *DeviceRepository) GetByCode(ctx context.Context, code string) (*models.Device, error) {
	return r.one(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_code = ?`, code)
}

// ActiveForFamily returns the most recently updated usable device.
func (r *DeviceRepository) ActiveForFamily(ctx context.Context, familyID string) (*models.Device, error) {
	return r.one(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE family_id = ? AND active = ? AND revoked_at IS NULL
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`, familyID, true)
}

func (r *DeviceRepository) ListByFamily(ctx context.Context, familyID string) ([]*models.Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE family_id = ?
		ORDER BY updated_at DESC, id DESC
	`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []*models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *DeviceRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE device_code = ?`, code).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Rotate replaces the pairing material of a device in place.
func (r *DeviceRepository) Rotate(ctx context.Context, d *models.Device) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET device_code = ?, secret_salt = ?, token_hash = ?, updated_at = ?
		WHERE id = ?
	`, d.Code, d.SecretSalt, d.TokenHash, d.UpdatedAt, d.ID)
	return err
}

func (r *DeviceRepository) Revoke(ctx context.Context, id string, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET active = ?, revoked_at = ?, updated_at = ?
		WHERE id = ? AND revoked_at IS NULL
	`, false, now, now, id)
	return err
}

func (r *DeviceRepository) Touch(ctx context.Context, id string, now int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE devices SET last_seen_at = ? WHERE id = ?`, now, id)
	return err
}

// PruneRevoked deletes devices revoked before cutoff.
func (r *DeviceRepository) PruneRevoked(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE revoked_at IS NOT NULL AND revoked_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ChildQRRepository struct {
	db database.Querier
}

func NewChildQRRepository(db database.Querier) *ChildQRRepository {
	return &ChildQRRepository{db: db}
}

const childQRColumns = `id, family_id, child_id, code, secret_hash, active, revoked_at, created_at`

func (r *ChildQRRepository) one(ctx context.Context, query string, args ...interface{}) (*models.ChildQRCode, error) {
	q := &models.ChildQRCode{}
	var revokedAt sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&q.ID, &q.FamilyID, &q.ChildID, &q.Code, &q.SecretHash, &q.Active, &revokedAt, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		q.RevokedAt = &revokedAt.Int64
	}
	return q, nil
}

func (r *ChildQRRepository) Create(ctx context.Context, q *models.ChildQRCode) error {
	if q.ID == "" {
		q.ID = repositories.NewID("cqr")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO child_qr_codes (id, family_id, child_id, code, secret_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.FamilyID, q.ChildID, q.Code, q.SecretHash, q.Active, q.CreatedAt)
	return err
}

func (r *ChildQRRepository) GetByCode(ctx context.Context, code string) (*models.ChildQRCode, error) {
	return r.one(ctx, `SELECT `+childQRColumns+` FROM child_qr_codes WHERE code = ?`, code)
}

func (r *ChildQRRepository) ActiveForChild(ctx context.Context, childID string) (*models.ChildQRCode, error) {
	return r.one(ctx, `
		SELECT `+childQRColumns+` FROM child_qr_codes
		WHERE child_id = ? AND active = ? AND revoked_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, childID, true)
}

func (r *ChildQRRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM child_qr_codes WHERE code = ?`, code).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeForChild revokes every live QR code of the child.
func (r *ChildQRRepository) RevokeForChild(ctx context.Context, childID string, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE child_qr_codes SET active = ?, revoked_at = ?
		WHERE child_id = ? AND revoked_at IS NULL
	`, false, now, childID)
	return err
}

func (r *ChildQRRepository) PruneRevoked(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM child_qr_codes WHERE revoked_at IS NOT NULL AND revoked_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
