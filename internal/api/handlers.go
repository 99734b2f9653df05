// ABOUTME: Route handlers for the ledger API.
// ABOUTME: Handlers decode the body, call one service and render JSON.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/harperreed/healthlink/internal/apperr"
	"github.com/harperreed/healthlink/internal/links"
	"github.com/harperreed/healthlink/internal/models"
	"github.com/labstack/echo/v4"
)

type handlers struct {
	deps Deps
}

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst
// untouched unless required is set.
func decodeJSON(c echo.Context, dst any, required bool) error {
	err := json.NewDecoder(c.Request().Body).Decode(dst)
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	if errors.Is(err, io.EOF) && !required {
		return nil
	}
	return apperr.Validation("Invalid JSON body")
}

func (h *handlers) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "healthlink ledger API"})
}

type profileResponse struct {
	OK     bool   `json:"ok"`
	UserID string `json:"userId"`
}

func (h *handlers) putProfile(c echo.Context) error {
	id := identityFrom(c)
	var u links.ProfileUpdate
	if err := decodeJSON(c, &u, false); err != nil {
		return err
	}
	if _, err := h.deps.Profiles.Upsert(c.Request().Context(), id.UserID, id.Role, u); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{OK: true, UserID: id.UserID})
}

type linkedDoctor struct {
	DoctorID   string `json:"doctorId"`
	PracticeID string `json:"practiceId"`
}

type meResponse struct {
	UserID        string         `json:"userId"`
	Email         string         `json:"email"`
	Role          string         `json:"role"`
	LinkedDoctors []linkedDoctor `json:"linkedDoctors"`
}

func (h *handlers) getMe(c echo.Context) error {
	ctx := c.Request().Context()
	id := identityFrom(c)

	prof, err := h.deps.Profiles.Get(ctx, id.UserID, id.Role)
	if err != nil {
		return err
	}
	active, err := h.deps.Registry.LinkedDoctors(ctx, id.UserID)
	if err != nil {
		return err
	}

	out := meResponse{UserID: id.UserID, Email: prof.Email, Role: prof.Role, LinkedDoctors: []linkedDoctor{}}
	for _, l := range active {
		out.LinkedDoctors = append(out.LinkedDoctors, linkedDoctor{DoctorID: l.DoctorID, PracticeID: l.PracticeID})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) sync(c echo.Context) error {
	id := identityFrom(c)
	var batch models.SyncBatch
	if err := decodeJSON(c, &batch, true); err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			return apperr.Validation("Invalid sync payload")
		}
		return err
	}

	counts, err := h.deps.Ledger.Sync(c.Request().Context(), id.UserID, &batch)
	if err != nil {
		return err
	}
	h.deps.Metrics.ObserveSync(counts)
	return c.JSON(http.StatusOK, map[string]any{"synced": true, "counts": counts})
}

type consentResponse struct {
	Consented   bool      `json:"consented"`
	ConsentedAt time.Time `json:"consentedAt"`
}

func (h *handlers) recordConsent(c echo.Context) error {
	id := identityFrom(c)
	var req links.ConsentRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	entry, err := h.deps.Consents.Record(c.Request().Context(), id.UserID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, consentResponse{Consented: true, ConsentedAt: entry.ConsentedAt})
}

func (h *handlers) listConsents(c echo.Context) error {
	id := identityFrom(c)
	consents, err := h.deps.Consents.List(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"consents": consents})
}

func (h *handlers) linkDoctor(c echo.Context) error {
	id := identityFrom(c)
	var req links.LinkRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	l, err := h.deps.Registry.LinkDoctor(c.Request().Context(), id.UserID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"linked": true, "doctorId": l.DoctorID})
}

func (h *handlers) revokeDoctor(c echo.Context) error {
	id := identityFrom(c)
	if _, err := h.deps.Registry.Revoke(c.Request().Context(), id.UserID, c.Param("doctorId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"revoked": true})
}

func (h *handlers) listPatients(c echo.Context) error {
	id := identityFrom(c)
	patients, err := h.deps.Registry.ListPatients(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"patients": patients})
}

func (h *handlers) overview(c echo.Context) error {
	id := identityFrom(c)
	ov, err := h.deps.Ledger.Overview(c.Request().Context(), id.UserID, c.Param("patientId"))
	if apperr.Is(err, apperr.KindForbidden) {
		h.deps.Metrics.ObserveDenial()
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ov)
}
