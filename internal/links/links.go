// ABOUTME: Doctor-patient links, consent entries and user profiles.
// ABOUTME: Defines the record types and the Store contract the cloud backends implement.
package links

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Store when a key has no value.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by a Store when an append-only key is already taken.
	ErrConflict = errors.New("already exists")
)

// Status is the state of a link. Only StatusActive grants access.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Role values carried by tokens and profiles.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// Link grants a doctor read access to a patient while active.
// DoctorID holds the external id chosen by LinkRequest.ExternalID.
type Link struct {
	PatientID  string    `json:"patientId"`
	DoctorID   string    `json:"doctorId"`
	PracticeID string    `json:"practiceId,omitempty"`
	InviteCode string    `json:"inviteCode,omitempty"`
	Status     Status    `json:"status"`
	ConsentAt  time.Time `json:"consentAt"`
}

// Active reports whether the link grants access.
func (l *Link) Active() bool {
	return l.Status == StatusActive
}

// Consent is an immutable record of a patient agreeing to share data.
type Consent struct {
	PatientID   string    `json:"patientId"`
	ConsentedAt time.Time `json:"consentedAt"`
	PracticeID  string    `json:"practiceId,omitempty"`
	DoctorID    string    `json:"doctorId,omitempty"`
	ConsentType string    `json:"consentType"`
}

// Profile is what a user told the service about themselves.
type Profile struct {
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	PracticeID string    `json:"practiceId,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store persists links, consents and profiles.
type Store interface {
	// PutLink writes l at (PatientID, DoctorID), replacing any previous link.
	PutLink(ctx context.Context, l Link) error
	GetLink(ctx context.Context, patientID, doctorID string) (*Link, error)
	// LinksForDoctor reads through a doctor-indexed key, not a full scan.
	LinksForDoctor(ctx context.Context, doctorID string) ([]Link, error)
	LinksForPatient(ctx context.Context, patientID string) ([]Link, error)

	// AppendConsent returns ErrConflict if (PatientID, ConsentedAt) is taken.
	AppendConsent(ctx context.Context, c Consent) error
	// ListConsents returns a patient's consents oldest first.
	ListConsents(ctx context.Context, patientID string) ([]Consent, error)

	PutProfile(ctx context.Context, p Profile) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}
