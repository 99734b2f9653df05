// ABOUTME: AccessGate decides whether a doctor may read a patient's ledger.
// ABOUTME: Anything short of an exact active link is Forbidden, never NotFound.
package links

import (
	"context"
	"errors"

	"github.com/harperreed/healthlink/internal/apperr"
)

// Gate authorizes doctor reads.
type Gate struct {
	store Store
}

// NewGate creates a gate over store.
func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Authorize returns nil only when the link (patientID, doctorID) exists and
// is active. Missing, revoked and unknown links all look the same to callers.
func (g *Gate) Authorize(ctx context.Context, doctorID, patientID string) error {
	denied := apperr.Forbidden("Not authorized to view this patient")
	if doctorID == "" || patientID == "" {
		return denied
	}

	l, err := g.store.GetLink(ctx, patientID, doctorID)
	if errors.Is(err, ErrNotFound) {
		return denied
	}
	if err != nil {
		return apperr.Internal("read link", err)
	}
	if !l.Active() {
		return denied
	}
	return nil
}
