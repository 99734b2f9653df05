// ABOUTME: Tests for the error taxonomy.
// ABOUTME: Verifies kind-to-status mapping, wrapping and public messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Auth("Missing or invalid token"), http.StatusUnauthorized},
		{Validation("doctorId, practiceId, or inviteCode required"), http.StatusBadRequest},
		{Forbidden("Not authorized to view this patient"), http.StatusForbidden},
		{NotFound("Not found"), http.StatusNotFound},
		{Internal("store failed", errors.New("disk")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", Forbidden("no")), http.StatusForbidden},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused at 10.0.0.3")
	err := Internal("load links", cause)

	assert.Equal(t, "Internal server error", err.Public())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("authorize: %w", Forbidden("nope"))
	assert.True(t, Is(err, KindForbidden))
	assert.False(t, Is(err, KindNotFound))
	assert.Equal(t, "forbidden", KindOf(err).String())
	assert.Equal(t, "nope", Forbidden("nope").Public())
}
