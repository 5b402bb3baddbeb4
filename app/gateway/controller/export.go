package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/blockvista/gateway/pkg/export"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type issueTokenRequest struct {
	Address  string `json:"address"`
	From     int64  `json:"from"`
	To       int64  `json:"to"`
	MaxLimit int    `json:"max_limit"`
}

type issueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleIssueToken issues a scoped export capability token, subject to
// the strict issuance quota.
func (c *Controller) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Address == "" || req.MaxLimit <= 0 {
		writeError(w, http.StatusBadRequest, "address and max_limit are required")
		return
	}

	scope := export.Scope{
		Identity: identityFrom(r.Context()),
		Address:  req.Address,
		From:     req.From,
		To:       req.To,
		MaxLimit: req.MaxLimit,
	}
	token, expiresAt, err := c.App.Guard.IssueToken(scope)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, issueTokenResponse{Token: token, ExpiresAt: expiresAt})
}

// HandleExport serves one page of a bulk export. The presented token
// must cover the exact address and time range being fetched, and the
// page size must stay within the token's bound.
func (c *Controller) HandleExport(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	params, err := parsePageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scope := export.Scope{
		Identity: identityFrom(r.Context()),
		Address:  address,
		From:     params.FromTime,
		To:       params.ToTime,
	}
	if err := c.App.Guard.VerifyRequest(token, scope, params.Limit); err != nil {
		writeUpstreamError(w, err)
		return
	}

	page, err := c.App.Activity.GetAddressActivity(r.Context(), address, params)
	if err != nil {
		c.App.Logger.Error("export page failed", zap.String("address", address), zap.Error(err))
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
