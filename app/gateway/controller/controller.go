package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/blockvista/gateway/app/gateway/types"
	"github.com/blockvista/gateway/pkg/export"
	"github.com/blockvista/gateway/pkg/rpc"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/v1/address/{address}/activity", c.HandleAddressActivity).Methods("GET")
	r.HandleFunc("/v1/node/{method}", c.HandleNodeCall).Methods("POST")

	r.Handle("/v1/export/token", c.RequireIdentity(http.HandlerFunc(c.HandleIssueToken))).Methods("POST")
	r.Handle("/v1/export/{address}", c.RequireIdentity(http.HandlerFunc(c.HandleExport))).Methods("GET")

	return r, nil
}

// WithCORS allows the explorer UI to call the gateway from any origin.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError maps the error taxonomy onto HTTP: quota
// rejections carry Retry-After, rejected tokens say why, everything
// upstream is a bad gateway.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var quotaErr *export.QuotaError
	if errors.As(err, &quotaErr) {
		w.Header().Set("Retry-After", strconv.Itoa(int(quotaErr.RetryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, quotaErr.Error())
		return
	}
	var verifyErr *export.VerifyError
	if errors.As(err, &verifyErr) {
		writeError(w, http.StatusForbidden, verifyErr.Error())
		return
	}
	var nodeErr *rpc.NodeError
	if errors.As(err, &nodeErr) {
		writeError(w, http.StatusBadGateway, nodeErr.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "upstream unavailable")
}
