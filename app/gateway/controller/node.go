package controller

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Read-only methods the surrounding service layer may route through the
// gateway. Anything else is refused before touching the node.
var allowedNodeMethods = map[string]bool{
	"getaddressdeltas":  true,
	"getblockdeltas":    true,
	"getblockhash":      true,
	"getblockheader":    true,
	"getblockcount":     true,
	"getbestblockhash":  true,
	"getblockchaininfo": true,
}

// HandleNodeCall is the routed-call passthrough for other read
// operations: the body is the params array, the result comes back raw.
func (c *Controller) HandleNodeCall(w http.ResponseWriter, r *http.Request) {
	method := mux.Vars(r)["method"]
	if !allowedNodeMethods[method] {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}

	var params []any
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "params must be a JSON array")
			return
		}
	}

	result, err := c.App.Chain.Raw(r.Context(), method, params)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": json.RawMessage(result)})
}
