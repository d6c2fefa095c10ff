package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/audit"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/auth"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/obs"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/store/pg"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/token"
)

var allowedActions = map[string]bool{
	"download": true,
	"view":     true,
}

type issueLinkRequest struct {
	Action         string `json:"action"`
	ExpiresMinutes int    `json:"expires_minutes"`
}

// IssueLink issues a signed download link for a document the caller owns.
func (a *API) IssueLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	docID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	var req issueLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		req.Action = "download"
	}
	if !allowedActions[req.Action] {
		respondError(w, http.StatusBadRequest, "unsupported action")
		return
	}

	doc, err := a.docs.GetDocument(r.Context(), docID)
	if errors.Is(err, pg.ErrNotFound) {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if doc.OwnerID != userID {
		respondError(w, http.StatusForbidden, "not your document")
		return
	}

	url, err := a.links.GenerateURL(token.Grant{
		ResourceType:     "document",
		ResourceID:       doc.ID,
		UserID:           userID,
		Action:           req.Action,
		ExpiresInMinutes: req.ExpiresMinutes,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "link generation failed")
		return
	}

	obs.ObserveTokenIssued()
	_ = audit.LogEvent(r.Context(), "link.issued", map[string]any{
		"document_id": doc.ID,
		"action":      req.Action,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"url":         url,
		"document_id": doc.ID,
		"action":      req.Action,
	})
}

// Download resolves a signed link token to download metadata. The token is
// the sole credential: no session is required.
func (a *API) Download(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		respondError(w, http.StatusBadRequest, "missing token")
		return
	}

	payload, err := a.links.ValidateToken(tok)
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		obs.ObserveTokenValidation("expired")
		_ = audit.LogEvent(r.Context(), "link.expired", nil)
		respondError(w, http.StatusGone, "link expired")
		return
	case err != nil:
		obs.ObserveTokenValidation("invalid")
		_ = audit.LogEvent(r.Context(), "link.rejected", nil)
		respondError(w, http.StatusForbidden, "link expired or invalid")
		return
	}
	obs.ObserveTokenValidation("valid")

	if payload.ResourceType != "document" {
		respondError(w, http.StatusForbidden, "link expired or invalid")
		return
	}
	doc, err := a.docs.GetDocument(r.Context(), payload.ResourceID)
	if errors.Is(err, pg.ErrNotFound) {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}

	_ = audit.LogEvent(r.Context(), "link.redeemed", map[string]any{
		"document_id": doc.ID,
		"user_id":     payload.UserID,
		"action":      payload.Action,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"document":   doc,
		"action":     payload.Action,
		"user_id":    payload.UserID,
		"expires_at": payload.ExpiresAt,
	})
}
