// Package pairing turns an admin's intent into long-lived kiosk sessions:
// family-wide device pairing and the narrower per-child QR pairing.
package pairing

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/pkg/token"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
)

const (
	codeLength        = 8
	deviceSecretBytes = 24
	defaultDeviceName = "Kiosk"
)

var (
	ErrInvalidDevice  = errors.New(http.StatusBadRequest, errors.ErrCodeInvalidDevice, "Invalid or revoked pairing code")
	ErrInvalidSecret  = errors.New(http.StatusBadRequest, errors.ErrCodeInvalidSecret, "Pairing secret does not match")
	ErrInvalidChildQR = errors.New(http.StatusBadRequest, errors.ErrCodeInvalidChildQR, "Invalid or revoked child QR code")
)

type Service struct {
	db         *database.DB
	signer     *token.Signer
	pairingKey []byte
	baseURL    string
	now        func() time.Time
}

// NewService wires the pairing protocol. signingKey authenticates cookies,
// pairingKey derives device secrets and baseURL prefixes claim links.
func NewService(db *database.DB, signingKey, pairingKey, baseURL string) *Service {
	return &Service{
		db:         db,
		signer:     token.NewSigner(signingKey),
		pairingKey: []byte(pairingKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
}

type Pairing struct {
	DeviceID    string `json:"deviceId"`
	Code        string `json:"code"`
	Secret      string `json:"secret"`
	ClaimURL    string `json:"claimUrl"`
	QRCode      string `json:"qrCode"`
	Regenerated bool   `json:"regenerated"`
}

// Identity is what a verified kiosk session stands for.
type Identity struct {
	DeviceID string
	FamilyID string
}

type Session struct {
	Cookie   string
	DeviceID string
	FamilyID string
}

// deriveSecret recomputes a device secret from the server key and the
// device's stored salt. The secret itself is never persisted.
func (s *Service) deriveSecret(salt, deviceID string) (string, error) {
	r := hkdf.New(sha256.New, s.pairingKey, []byte(salt), []byte("device:"+deviceID))
	b := make([]byte, deviceSecretBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Service) claimURL(path, code, secret string) string {
	v := url.Values{}
	v.Set("code", code)
	v.Set("secret", secret)
	return s.baseURL + path + "?" + v.Encode()
}

// newMaterial assigns a fresh code, salt and token hash to d and returns
// the raw secret.
func (s *Service) newMaterial(ctx context.Context, devices *DeviceRepository, d *models.Device) (string, error) {
	code, err := token.GenerateUniqueCode(ctx, devices, codeLength)
	if err != nil {
		return "", err
	}
	salt, err := token.GenerateSecret(token.MinSecretBytes)
	if err != nil {
		return "", err
	}
	secret, err := s.deriveSecret(salt, d.ID)
	if err != nil {
		return "", err
	}
	d.Code = code
	d.SecretSalt = salt
	d.TokenHash = token.Hash(secret)
	return secret, nil
}

// IssuePairing returns the family's pairing material. Without regenerate an
// existing active device is reused and the same code and secret come back,
// unless its stored hash no longer matches the derived secret, in which case
// it is rotated.
// With regenerate the device is rotated in place, which invalidates every
// cookie issued for the previous secret.
func (s *Service) IssuePairing(ctx context.Context, familyID string, regenerate bool) (*Pairing, error) {
	var p *Pairing
	err := s.db.WithTx(ctx, func(q database.Querier) error {
		devices := NewDeviceRepository(q)
		now := s.now().UnixMilli()

		dev, err := devices.ActiveForFamily(ctx, familyID)
		if err != nil {
			return err
		}

		if dev != nil && !regenerate {
			secret, err := s.deriveSecret(dev.SecretSalt, dev.ID)
			if err != nil {
				return err
			}
			// A changed pairing key derives a secret the stored hash no
			// longer matches; rotate instead of handing out dead material.
			if token.Equal(token.Hash(secret), dev.TokenHash) {
				p = &Pairing{DeviceID: dev.ID, Code: dev.Code, Secret: secret}
				return nil
			}
		}

		var secret string
		rotated := dev != nil
		if !rotated {
			dev = &models.Device{ID: newDeviceID(), FamilyID: familyID, Name: defaultDeviceName, Active: true, CreatedAt: now, UpdatedAt: now}
			if secret, err = s.newMaterial(ctx, devices, dev); err != nil {
				return err
			}
			if err := devices.Create(ctx, dev); err != nil {
				return err
			}
		} else {
			dev.UpdatedAt = now
			if secret, err = s.newMaterial(ctx, devices, dev); err != nil {
				return err
			}
			if err := devices.Rotate(ctx, dev); err != nil {
				return err
			}
		}

		p = &Pairing{DeviceID: dev.ID, Code: dev.Code, Secret: secret, Regenerated: rotated}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	p.ClaimURL = s.claimURL("/kiosk/claim", p.Code, p.Secret)
	if p.QRCode, err = QRDataURL(p.ClaimURL); err != nil {
		return nil, errors.Internal(err)
	}
	return p, nil
}

// ClaimPairing exchanges a code and secret for a signed session cookie value.
func (s *Service) ClaimPairing(ctx context.Context, code, secret string) (*Session, error) {
	code = normalizeCode(code)
	if code == "" || secret == "" {
		return nil, errors.Invalid("Missing code or secret")
	}

	devices := NewDeviceRepository(s.db)
	dev, err := devices.GetByCode(ctx, code)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !dev.Usable() {
		return nil, ErrInvalidDevice
	}
	if !token.Equal(token.Hash(secret), dev.TokenHash) {
		return nil, ErrInvalidSecret
	}

	now := s.now().UnixMilli()
	if err := devices.Touch(ctx, dev.ID, now); err != nil {
		return nil, errors.Internal(err)
	}
	return s.sessionFor(dev)
}

func (s *Service) sessionFor(dev *models.Device) (*Session, error) {
	cookie, err := s.signer.Sign(token.Session{DeviceID: dev.ID, TokenHash: dev.TokenHash, IssuedAt: s.now().UnixMilli()})
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Session{Cookie: cookie, DeviceID: dev.ID, FamilyID: dev.FamilyID}, nil
}

// VerifySession resolves a cookie value to its device. It returns nil
// without error for anything that is not a live session: bad signature,
// unknown or revoked device, or a secret that has since been rotated.
func (s *Service) VerifySession(ctx context.Context, cookie string) (*Identity, error) {
	dev, err := s.deviceForCookie(ctx, NewDeviceRepository(s.db), cookie)
	if err != nil || dev == nil {
		return nil, err
	}
	return &Identity{DeviceID: dev.ID, FamilyID: dev.FamilyID}, nil
}

func (s *Service) deviceForCookie(ctx context.Context, devices *DeviceRepository, cookie string) (*models.Device, error) {
	sess, ok := s.signer.Verify(cookie)
	if !ok {
		return nil, nil
	}
	dev, err := devices.GetByID(ctx, sess.DeviceID)
	if err != nil {
		return nil, err
	}
	if !dev.Usable() || !token.Equal(sess.TokenHash, dev.TokenHash) {
		return nil, nil
	}
	return dev, nil
}

func (s *Service) ListDevices(ctx context.Context, familyID string) ([]*models.Device, error) {
	devices, err := NewDeviceRepository(s.db).ListByFamily(ctx, familyID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return devices, nil
}

// Revoke deactivates a device. Sessions bound to it fail on their next
// verification.
func (s *Service) Revoke(ctx context.Context, familyID, deviceID string) error {
	devices := NewDeviceRepository(s.db)
	dev, err := devices.GetByID(ctx, deviceID)
	if err != nil {
		return errors.Internal(err)
	}
	if dev == nil {
		return errors.NotFound("Device not found")
	}
	if dev.FamilyID != familyID {
		return errors.TenantMismatch("Device belongs to another family")
	}
	if err := devices.Revoke(ctx, deviceID, s.now().UnixMilli()); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// ensureFamilyDevice returns the family's active device, creating one named
// "Kiosk" if there is none.
func (s *Service) ensureFamilyDevice(ctx context.Context, devices *DeviceRepository, familyID string) (*models.Device, error) {
	dev, err := devices.ActiveForFamily(ctx, familyID)
	if err != nil || dev != nil {
		return dev, err
	}

	now := s.now().UnixMilli()
	dev = &models.Device{ID: newDeviceID(), FamilyID: familyID, Name: defaultDeviceName, Active: true, CreatedAt: now, UpdatedAt: now}
	if _, err := s.newMaterial(ctx, devices, dev); err != nil {
		return nil, err
	}
	if err := devices.Create(ctx, dev); err != nil {
		return nil, err
	}
	return dev, nil
}

// PruneRevoked removes devices and child QR codes revoked before cutoff.
func (s *Service) PruneRevoked(ctx context.Context, cutoff time.Time) (devices, qrCodes int64, err error) {
	ms := cutoff.UnixMilli()
	err = s.db.WithTx(ctx, func(q database.Querier) error {
		var err error
		if qrCodes, err = NewChildQRRepository(q).PruneRevoked(ctx, ms); err != nil {
			return err
		}
		devices, err = NewDeviceRepository(q).PruneRevoked(ctx, ms)
		return err
	})
	return devices, qrCodes, err
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func wrapInternal(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, token.ErrCodeSpaceExhausted) {
		return &errors.Error{Status: http.StatusServiceUnavailable, Code: errors.ErrCodeInternal, Message: "Could not allocate a pairing code, try again", Err: err}
	}
	return errors.Internal(err)
}
