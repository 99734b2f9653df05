// ABOUTME: Profiles stores what users report about themselves via PUT /me.
// ABOUTME: Missing fields in an update keep their previous values.
package links

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/apperr"
)

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Email      *string `json:"email"`
	Role       *string `json:"role"`
	PracticeID *string `json:"practiceId"`
}

// Profiles manages user profiles.
type Profiles struct {
	store Store
	now   func() time.Time
}

// NewProfiles creates a profile service over store.
func NewProfiles(store Store) *Profiles {
	return &Profiles{store: store, now: time.Now}
}

// Get returns the stored profile. A missing profile or role falls back to
// defaultRole, and to patient when that is empty too.
func (p *Profiles) Get(ctx context.Context, userID, defaultRole string) (*Profile, error) {
	if defaultRole == "" {
		defaultRole = RolePatient
	}
	prof, err := p.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &Profile{UserID: userID, Role: defaultRole}, nil
	}
	if err != nil {
		return nil, apperr.Internal("read profile", err)
	}
	if prof.Role == "" {
		prof.Role = defaultRole
	}
	return prof, nil
}

// Upsert merges u into the stored profile. defaultRole applies when neither
// the update nor the stored profile carries a role.
func (p *Profiles) Upsert(ctx context.Context, userID, defaultRole string, u ProfileUpdate) (*Profile, error) {
	if userID == "" {
		return nil, apperr.Auth("Missing or invalid token")
	}

	prof, err := p.store.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		prof = &Profile{UserID: userID}
	case err != nil:
		return nil, apperr.Internal("read profile", err)
	}

	if u.Email != nil {
		prof.Email = strings.TrimSpace(*u.Email)
	}
	if u.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*u.Role))
		if role != RolePatient && role != RoleDoctor {
			return nil, apperr.Validation("role must be patient or doctor")
		}
		prof.Role = role
	}
	if u.PracticeID != nil {
		prof.PracticeID = strings.TrimSpace(*u.PracticeID)
	}
	if prof.Role == "" {
		prof.Role = defaultRole
	}
	if prof.Role == "" {
		prof.Role = RolePatient
	}
	prof.UpdatedAt = p.now().UTC()

	if err := p.store.PutProfile(ctx, *prof); err != nil {
		return nil, apperr.Internal("write profile", err)
	}
	return prof, nil
}
