package models

type ApprovalMode string

const (
	ApprovalRequired ApprovalMode = "REQUIRE_APPROVAL"
	ApprovalAuto     ApprovalMode = "AUTO_APPROVE"
)

type ClaimStatus string

const (
	ClaimSent     ClaimStatus = "SENT"
	ClaimApproved ClaimStatus = "APPROVED"
	ClaimRejected ClaimStatus = "REJECTED"
	ClaimPaid     ClaimStatus = "PAID"
)

type PaymentMethod string

const (
	MethodVipps PaymentMethod = "VIPPS"
	MethodCash  PaymentMethod = "CASH"
	MethodBank  PaymentMethod = "BANK"
	MethodOther PaymentMethod = "OTHER"
)

const RoleParent = "PARENT"

type Family struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ApprovalMode ApprovalMode `json:"approval_mode"`
	CreatedAt    int64        `json:"created_at"`
	UpdatedAt    int64        `json:"updated_at"`
}

type Profile struct {
	UserID    string  `json:"user_id"`
	FamilyID  *string `json:"family_id,omitempty"`
	Role      string  `json:"role"`
	CreatedAt int64   `json:"created_at"`
}

type Child struct {
	ID        string `json:"id"`
	FamilyID  string `json:"family_id"`
	Name      string `json:"name"`
	AvatarKey string `json:"avatar_key"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type Task struct {
	ID        string `json:"id"`
	FamilyID  string `json:"family_id"`
	Title     string `json:"title"`
	AmountOre int64  `json:"amount_ore"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// ChildTaskSetting overrides task visibility for one child. No row means enabled.
type ChildTaskSetting struct {
	ChildID   string `json:"child_id"`
	TaskID    string `json:"task_id"`
	Enabled   bool   `json:"enabled"`
	UpdatedAt int64  `json:"updated_at"`
}

type Claim struct {
	ID        string      `json:"id"`
	FamilyID  string      `json:"family_id"`
	ChildID   string      `json:"child_id"`
	TaskID    string      `json:"task_id"`
	AmountOre int64       `json:"amount_ore"`
	Status    ClaimStatus `json:"status"`
	CreatedAt int64       `json:"created_at"`
	DecidedAt *int64      `json:"decided_at,omitempty"`
	DecidedBy *string     `json:"decided_by,omitempty"`
	PaidAt    *int64      `json:"paid_at,omitempty"`
}

type Payment struct {
	ID        string        `json:"id"`
	FamilyID  string        `json:"family_id"`
	ChildID   string        `json:"child_id"`
	Method    PaymentMethod `json:"method"`
	AmountOre int64         `json:"amount_ore"`
	Note      *string       `json:"note,omitempty"`
	CreatedBy string        `json:"created_by"`
	CreatedAt int64         `json:"created_at"`
	ClaimIDs  []string      `json:"claim_ids,omitempty"`
}

// Device is a paired kiosk. The raw secret is never stored; SecretSalt lets
// the server re-derive it and TokenHash is what cookies are bound to.
type Device struct {
	ID         string `json:"id"`
	FamilyID   string `json:"family_id"`
	Name       string `json:"name"`
	Code       string `json:"device_code"`
	SecretSalt string `json:"-"`
	TokenHash  string `json:"-"`
	Active     bool   `json:"active"`
	RevokedAt  *int64 `json:"revoked_at,omitempty"`
	LastSeenAt *int64 `json:"last_seen_at,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

// Usable reports whether the device may still back a session.
func (d *Device) Usable() bool {
	return d != nil && d.Active && d.RevokedAt == nil
}

type ChildQRCode struct {
	ID         string `json:"id"`
	FamilyID   string `json:"family_id"`
	ChildID    string `json:"child_id"`
	Code       string `json:"code"`
	SecretHash string `json:"-"`
	Active     bool   `json:"active"`
	RevokedAt  *int64 `json:"revoked_at,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

func (q *ChildQRCode) Usable() bool {
	return q != nil && q.Active && q.RevokedAt == nil
}
