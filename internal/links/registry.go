// ABOUTME: LinkRegistry creates, overwrites and revokes doctor-patient links.
// ABOUTME: Lists a doctor's active patients through the doctor-indexed store lookup.
package links

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/apperr"
)

// LinkRequest is the body of a link request. At least one id is required.
type LinkRequest struct {
	DoctorID   string `json:"doctorId"`
	PracticeID string `json:"practiceId"`
	InviteCode string `json:"inviteCode"`
}

// ExternalID picks the link key: practiceId, then doctorId, then inviteCode.
func (r LinkRequest) ExternalID() string {
	for _, id := range []string{r.PracticeID, r.DoctorID, r.InviteCode} {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	return ""
}

// PatientSummary is one row of a doctor's patient list.
type PatientSummary struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Registry manages links.
type Registry struct {
	store Store
	now   func() time.Time
}

// NewRegistry creates a registry over store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// LinkDoctor writes an active link from patientID to the request's external
// id, overwriting whatever link that pair had before.
func (r *Registry) LinkDoctor(ctx context.Context, patientID string, req LinkRequest) (*Link, error) {
	if patientID == "" {
		return nil, apperr.Auth("Missing or invalid token")
	}
	id := req.ExternalID()
	if id == "" {
		return nil, apperr.Validation("doctorId, practiceId, or inviteCode required")
	}

	l := Link{
		PatientID:  patientID,
		DoctorID:   id,
		PracticeID: strings.TrimSpace(req.PracticeID),
		InviteCode: strings.TrimSpace(req.InviteCode),
		Status:     StatusActive,
		ConsentAt:  r.now().UTC(),
	}
	if err := r.store.PutLink(ctx, l); err != nil {
		return nil, apperr.Internal("write link", err)
	}
	return &l, nil
}

// SetStatus overwrites the status of an existing link.
func (r *Registry) SetStatus(ctx context.Context, patientID, doctorID string, status Status) (*Link, error) {
	if status == "" {
		return nil, apperr.Validation("status required")
	}
	l, err := r.store.GetLink(ctx, patientID, doctorID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Link not found")
	}
	if err != nil {
		return nil, apperr.Internal("read link", err)
	}

	l.Status = status
	if err := r.store.PutLink(ctx, *l); err != nil {
		return nil, apperr.Internal("write link", err)
	}
	return l, nil
}

// Revoke sets the link's status to revoked. The consent log is untouched.
func (r *Registry) Revoke(ctx context.Context, patientID, doctorID string) (*Link, error) {
	return r.SetStatus(ctx, patientID, doctorID, StatusRevoked)
}

// ListPatients returns the distinct patients with an active link to
// doctorID, joined to their profiles and ordered by user id. A patient
// without a profile is listed with role patient and no email.
func (r *Registry) ListPatients(ctx context.Context, doctorID string) ([]PatientSummary, error) {
	all, err := r.store.LinksForDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperr.Internal("list links", err)
	}

	seen := make(map[string]bool)
	out := []PatientSummary{}
	for _, l := range all {
		if !l.Active() || seen[l.PatientID] {
			continue
		}
		seen[l.PatientID] = true

		summary := PatientSummary{UserID: l.PatientID, Role: RolePatient}
		p, err := r.store.GetProfile(ctx, l.PatientID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return nil, apperr.Internal("read profile", err)
		default:
			summary.Email = p.Email
			if p.Role != "" {
				summary.Role = p.Role
			}
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// LinkedDoctors returns the patient's active links.
func (r *Registry) LinkedDoctors(ctx context.Context, patientID string) ([]Link, error) {
	all, err := r.store.LinksForPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("list links", err)
	}
	out := []Link{}
	for _, l := range all {
		if l.Active() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DoctorID < out[j].DoctorID })
	return out, nil
}
