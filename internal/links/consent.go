// ABOUTME: ConsentLog appends immutable consent-to-share entries.
// ABOUTME: Entries are keyed by (patient, consentedAt) and never overwritten or deleted.
package links

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/apperr"
)

// DefaultConsentType is recorded when the request names none.
const DefaultConsentType = "data_sharing"

// ConsentRequest is the body of a consent request.
type ConsentRequest struct {
	PracticeID  string `json:"practiceId"`
	DoctorID    string `json:"doctorId"`
	ConsentType string `json:"consentType"`
}

// ConsentLog records consents.
type ConsentLog struct {
	store Store
	now   func() time.Time
}

// NewConsentLog creates a consent log over store.
func NewConsentLog(store Store) *ConsentLog {
	return &ConsentLog{store: store, now: time.Now}
}

// Record appends a new consent. A key collision is rejected, never merged.
func (c *ConsentLog) Record(ctx context.Context, patientID string, req ConsentRequest) (*Consent, error) {
	if patientID == "" {
		return nil, apperr.Auth("Missing or invalid token")
	}
	consentType := strings.TrimSpace(req.ConsentType)
	if consentType == "" {
		consentType = DefaultConsentType
	}

	entry := Consent{
		PatientID:   patientID,
		ConsentedAt: c.now().UTC().Truncate(time.Microsecond),
		PracticeID:  strings.TrimSpace(req.PracticeID),
		DoctorID:    strings.TrimSpace(req.DoctorID),
		ConsentType: consentType,
	}
	err := c.store.AppendConsent(ctx, entry)
	if errors.Is(err, ErrConflict) {
		return nil, apperr.Validation("Consent already recorded at this time; retry")
	}
	if err != nil {
		return nil, apperr.Internal("append consent", err)
	}
	return &entry, nil
}

// List returns a patient's consents oldest first.
func (c *ConsentLog) List(ctx context.Context, patientID string) ([]Consent, error) {
	out, err := c.store.ListConsents(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("list consents", err)
	}
	if out == nil {
		out = []Consent{}
	}
	return out, nil
}
