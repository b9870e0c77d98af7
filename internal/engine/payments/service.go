// Package payments settles approved claims into payment records and
// reverses a settlement by deleting its payment.
package payments

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

var (
	ErrEmptySelection = errors.New(http.StatusBadRequest, errors.ErrCodeEmptySelection, "Select at least one claim")
	ErrInvalidClaim   = errors.New(http.StatusBadRequest, errors.ErrCodeInvalidClaim, "Every claim must be an approved claim for this child")
)

type Service struct {
	db  *database.DB
	now func() time.Time
}

func NewService(db *database.DB) *Service {
	return &Service{db: db, now: time.Now}
}

type CreateInput struct {
	FamilyID  string
	ChildID   string
	ClaimIDs  []string
	Method    models.PaymentMethod
	Note      string
	CreatedBy string
}

type Result struct {
	PaymentID string `json:"paymentId"`
	AmountOre int64  `json:"amount_ore"`
	Claims    int    `json:"claims"`
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CreatePayment settles a batch of APPROVED claims for one child. Either
// every claim becomes PAID and linked to the new payment, or nothing changes.
func (s *Service) CreatePayment(ctx context.Context, in CreateInput) (*Result, error) {
	ids := dedupe(in.ClaimIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	switch in.Method {
	case models.MethodVipps, models.MethodCash, models.MethodBank, models.MethodOther:
	default:
		return nil, errors.Invalid("Unknown payment method")
	}

	var result *Result
	err := s.db.WithTx(ctx, func(q database.Querier) error {
		child, err := repositories.NewChildRepository(q).GetByID(ctx, in.ChildID)
		if err != nil {
			return err
		}
		if child == nil {
			return errors.NotFound("Child not found")
		}
		if child.FamilyID != in.FamilyID {
			return errors.TenantMismatch("Child belongs to another family")
		}

		claimsRepo := repositories.NewClaimRepository(q)
		claims, err := claimsRepo.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(claims) != len(ids) {
			return errors.NotFound("One or more claims were not found")
		}

		var total int64
		for _, c := range claims {
			if c.FamilyID != in.FamilyID || c.ChildID != in.ChildID || c.Status != models.ClaimApproved {
				return ErrInvalidClaim
			}
			if c.AmountOre < 0 || c.AmountOre > math.MaxInt64-total {
				return errors.Invalid("Payment total is out of range")
			}
			total += c.AmountOre
		}

		now := s.now().UnixMilli()
		payment := &models.Payment{
			FamilyID:  in.FamilyID,
			ChildID:   in.ChildID,
			Method:    in.Method,
			AmountOre: total,
			CreatedBy: in.CreatedBy,
			CreatedAt: now,
		}
		if note := strings.TrimSpace(in.Note); note != "" {
			payment.Note = &note
		}

		repo := NewRepository(q)
		if err := repo.Create(ctx, payment); err != nil {
			return err
		}
		for _, id := range ids {
			if err := repo.LinkClaim(ctx, payment.ID, id); err != nil {
				return err
			}
		}

		// Filtered by status so a claim re-decided concurrently is not paid.
		n, err := claimsRepo.MarkPaid(ctx, ids, now)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return errors.Conflict("Claims changed while settling, try again")
		}

		result = &Result{PaymentID: payment.ID, AmountOre: total, Claims: len(ids)}
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.Internal(err)
	}
	return result, nil
}

// DeletePayment removes a payment and returns its PAID claims to APPROVED.
// It reports how many claims were reverted.
func (s *Service) DeletePayment(ctx context.Context, familyID, paymentID string) (int64, error) {
	var reverted int64
	err := s.db.WithTx(ctx, func(q database.Querier) error {
		repo := NewRepository(q)
		payment, err := repo.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return errors.NotFound("Payment not found")
		}
		if payment.FamilyID != familyID {
			return errors.TenantMismatch("Payment belongs to another family")
		}

		ids, err := repo.ClaimIDs(ctx, paymentID)
		if err != nil {
			return err
		}
		if reverted, err = repositories.NewClaimRepository(q).RevertPaid(ctx, ids); err != nil {
			return err
		}
		return repo.Delete(ctx, paymentID)
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return 0, err
		}
		return 0, errors.Internal(err)
	}
	return reverted, nil
}

func (s *Service) ListPayments(ctx context.Context, familyID, childID string) ([]*models.Payment, error) {
	payments, err := NewRepository(s.db).ListByFamily(ctx, familyID, childID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return payments, nil
}
