package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"ukepenger/internal/platform/database"
)

const (
	ActionPairingIssued      = "device.pairing_issued"
	ActionPairingRotated     = "device.pairing_rotated"
	ActionDeviceRevoked      = "device.revoked"
	ActionDeviceClaimed      = "device.claimed"
	ActionChildPaired        = "child_qr.claimed"
	ActionChildPairingIssued = "child_qr.issued"
	ActionClaimDecided       = "claim.decided"
	ActionPaymentCreated     = "payment.created"
	ActionPaymentDeleted     = "payment.deleted"
	ActionApprovalMode       = "family.approval_mode_changed"
)

type Entry struct {
	FamilyID     string
	UserID       string
	DeviceID     string
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]interface{}
	IPAddress    string
	UserAgent    string
}

// Logger writes audit rows in the background so request latency does not
// depend on the audit table.
type Logger struct {
	db      *database.DB
	pending sync.WaitGroup
}

func NewLogger(db *database.DB) *Logger {
	return &Logger{db: db}
}

func (l *Logger) Log(ctx context.Context, e Entry) {
	if l == nil {
		return
	}

	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}
	id := "aud_" + uuid.New().String()
	createdAt := time.Now().UnixMilli()

	l.pending.Add(1)
	go func() {
		defer l.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		_, err := l.db.ExecContext(ctx, `
			INSERT INTO audit_logs (id, family_id, user_id, device_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, e.FamilyID, e.UserID, e.DeviceID, e.Action, e.ResourceType, e.ResourceID, string(metaJSON), e.IPAddress, e.UserAgent, createdAt)
		if err != nil {
			log.Warn().Err(err).Str("action", e.Action).Str("family_id", e.FamilyID).Msg("failed to write audit log")
		}
	}()
}

// Wait blocks until every queued audit write has finished.
func (l *Logger) Wait() {
	l.pending.Wait()
}

type Record struct {
	ID           string                 `json:"id"`
	FamilyID     string                 `json:"family_id"`
	UserID       string                 `json:"user_id,omitempty"`
	DeviceID     string                 `json:"device_id,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	CreatedAt    int64                  `json:"created_at"`
}

// List returns the newest audit rows of a family.
func (l *Logger) List(ctx context.Context, familyID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, family_id, COALESCE(user_id, ''), COALESCE(device_id, ''), action, resource_type,
			COALESCE(resource_id, ''), COALESCE(metadata, '{}'), COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM audit_logs WHERE family_id = ? ORDER BY created_at DESC LIMIT ?
	`, familyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var meta string
		if err := rows.Scan(&rec.ID, &rec.FamilyID, &rec.UserID, &rec.DeviceID, &rec.Action, &rec.ResourceType,
			&rec.ResourceID, &meta, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			log.Debug().Err(err).Str("audit_id", rec.ID).Msg("unreadable audit metadata")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
