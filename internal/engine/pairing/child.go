package pairing

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/pkg/token"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

const childSecretBytes = 24

type ChildPairing struct {
	ChildID  string `json:"childId"`
	Code     string `json:"code"`
	Secret   string `json:"secret"`
	ClaimURL string `json:"claimUrl"`
	QRCode   string `json:"qrCode"`
}

type ChildSession struct {
	Session
	ChildID string
	Reused  bool
}

// IssueChildPairing creates a QR code pinned to one child. The secret is
// returned once and only its bcrypt hash is kept, so an existing active
// code cannot be shown again: callers must pass regenerate to replace it.
func (s *Service) IssueChildPairing(ctx context.Context, familyID, childID string, regenerate bool) (*ChildPairing, error) {
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
	if !child.Active {
		return nil, errors.Inactive("Child is inactive")
	}

	secret, err := token.GenerateSecret(childSecretBytes)
	if err != nil {
		return nil, errors.Internal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal(err)
	}

	var qr *models.ChildQRCode
	err = s.db.WithTx(ctx, func(q database.Querier) error {
		codes := NewChildQRRepository(q)
		now := s.now().UnixMilli()

		active, err := codes.ActiveForChild(ctx, childID)
		if err != nil {
			return err
		}
		if active != nil {
			if !regenerate {
				return errors.Conflict("Child already has an active QR code")
			}
			if err := codes.RevokeForChild(ctx, childID, now); err != nil {
				return err
			}
		}

		code, err := token.GenerateUniqueCode(ctx, codes, codeLength)
		if err != nil {
			return err
		}
		qr = &models.ChildQRCode{
			FamilyID:   familyID,
			ChildID:    childID,
			Code:       code,
			SecretHash: string(hash),
			Active:     true,
			CreatedAt:  now,
		}
		return codes.Create(ctx, qr)
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	p := &ChildPairing{ChildID: childID, Code: qr.Code, Secret: secret}
	p.ClaimURL = s.claimURL("/kiosk/child/claim", p.Code, p.Secret)
	if p.QRCode, err = QRDataURL(p.ClaimURL); err != nil {
		return nil, errors.Internal(err)
	}
	return p, nil
}

// ClaimChildPairing redeems a child QR code. The kiosk session already
// carried by the requester is kept when it belongs to the same family;
// otherwise the family's active device (or a new "Kiosk" device) backs a
// fresh session.
func (s *Service) ClaimChildPairing(ctx context.Context, code, secret, currentCookie string) (*ChildSession, error) {
	code = normalizeCode(code)
	if code == "" || secret == "" {
		return nil, errors.Invalid("Missing code or secret")
	}

	qr, err := NewChildQRRepository(s.db).GetByCode(ctx, code)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !qr.Usable() {
		return nil, ErrInvalidChildQR
	}
	if bcrypt.CompareHashAndPassword([]byte(qr.SecretHash), []byte(secret)) != nil {
		return nil, ErrInvalidSecret
	}

	child, err := repositories.NewChildRepository(s.db).GetByID(ctx, qr.ChildID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if child == nil || !child.Active || child.FamilyID != qr.FamilyID {
		return nil, ErrInvalidChildQR
	}

	var dev *models.Device
	reused := false
	err = s.db.WithTx(ctx, func(q database.Querier) error {
		devices := NewDeviceRepository(q)
		if currentCookie != "" {
			current, err := s.deviceForCookie(ctx, devices, currentCookie)
			if err != nil {
				return err
			}
			if current != nil && current.FamilyID == child.FamilyID {
				dev, reused = current, true
				return nil
			}
		}
		ensured, err := s.ensureFamilyDevice(ctx, devices, child.FamilyID)
		dev = ensured
		return err
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	if !reused {
		sess, err := s.sessionFor(dev)
		if err != nil {
			return nil, err
		}
		return &ChildSession{Session: *sess, ChildID: child.ID}, nil
	}
	return &ChildSession{
		Session: Session{Cookie: currentCookie, DeviceID: dev.ID, FamilyID: dev.FamilyID},
		ChildID: child.ID,
		Reused:  true,
	}, nil
}
