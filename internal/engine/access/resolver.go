// Package access decides who is acting on a request: an admin signed in
// through the identity provider, or a paired kiosk.
package access

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"ukepenger/internal/engine/pairing"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/platform/auth"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

type Kind string

const (
	KindAdmin Kind = "admin"
	KindKiosk Kind = "kiosk"
)

type Actor struct {
	Kind     Kind
	FamilyID string
	UserID   string
	DeviceID string
}

func (a *Actor) IsAdmin() bool { return a != nil && a.Kind == KindAdmin }

// Authorize fails with TENANT_MISMATCH when familyID is not the actor's.
func (a *Actor) Authorize(familyID string) error {
	if a == nil || a.FamilyID != familyID {
		return errors.TenantMismatch("Resource belongs to another family")
	}
	return nil
}

type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type SessionVerifier interface {
	VerifySession(ctx context.Context, cookie string) (*pairing.Identity, error)
}

type Resolver struct {
	db         *database.DB
	tokens     TokenValidator
	sessions   SessionVerifier
	cookieName string
	now        func() time.Time
}

func NewResolver(db *database.DB, tokens TokenValidator, sessions SessionVerifier, cookieName string) *Resolver {
	return &Resolver{db: db, tokens: tokens, sessions: sessions, cookieName: cookieName, now: time.Now}
}

// Resolve tries the bearer token first and falls back to the kiosk cookie,
// so an explicit admin action is never redirected by a stale kiosk cookie.
func (r *Resolver) Resolve(req *http.Request) (*Actor, error) {
	actor, err := r.ResolveAdmin(req)
	if err == nil {
		return actor, nil
	}
	if e, ok := errors.As(err); !ok || e.Code != errors.ErrCodeUnauthorized {
		return nil, err
	}
	return r.ResolveKiosk(req)
}

func bearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

func (r *Resolver) ResolveAdmin(req *http.Request) (*Actor, error) {
	tok := bearerToken(req)
	if tok == "" {
		return nil, errors.Unauthorized("Missing bearer token")
	}
	claims, err := r.tokens.ValidateToken(tok)
	if err != nil {
		log.Debug().Err(err).Msg("bearer token rejected")
		return nil, errors.Unauthorized("Invalid or expired token")
	}

	familyID, err := r.EnsureFamily(req.Context(), claims.Subject)
	if err != nil {
		return nil, err
	}
	return &Actor{Kind: KindAdmin, FamilyID: familyID, UserID: claims.Subject}, nil
}

func (r *Resolver) ResolveKiosk(req *http.Request) (*Actor, error) {
	c, err := req.Cookie(r.cookieName)
	if err != nil || c.Value == "" {
		return nil, errors.Unauthorized("Not signed in")
	}
	id, err := r.sessions.VerifySession(req.Context(), c.Value)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if id == nil {
		return nil, errors.Unauthorized("Kiosk session is no longer valid")
	}
	return &Actor{Kind: KindKiosk, FamilyID: id.FamilyID, DeviceID: id.DeviceID}, nil
}

// EnsureFamily returns the family of userID, creating the profile and
// family on first sign-in. Concurrent first requests converge on one family:
// the profile is claimed with a conditional update and re-read, and a
// family created by a losing request is removed.
func (r *Resolver) EnsureFamily(ctx context.Context, userID string) (string, error) {
	profile, err := repositories.NewProfileRepository(r.db).GetByUserID(ctx, userID)
	if err != nil {
		return "", errors.Internal(err)
	}
	if profile != nil && profile.FamilyID != nil {
		return *profile.FamilyID, nil
	}

	var familyID string
	err = r.db.WithTx(ctx, func(q database.Querier) error {
		profiles := repositories.NewProfileRepository(q)
		families := repositories.NewFamilyRepository(q)
		now := r.now().UnixMilli()

		if err := profiles.CreateIfAbsent(ctx, userID, models.RoleParent, now); err != nil {
			return err
		}

		family := &models.Family{CreatedAt: now, UpdatedAt: now}
		if err := families.Create(ctx, family); err != nil {
			return err
		}
		won, err := profiles.AssignFamily(ctx, userID, family.ID)
		if err != nil {
			return err
		}

		current, err := profiles.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if current == nil || current.FamilyID == nil {
			return fmt.Errorf("profile %s has no family after assignment", userID)
		}
		familyID = *current.FamilyID

		if !won {
			return families.Delete(ctx, family.ID)
		}
		log.Info().Str("family_id", familyID).Msg("created family for new user")
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return "", err
		}
		return "", errors.Internal(err)
	}
	return familyID, nil
}
