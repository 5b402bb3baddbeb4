package controller

import (
	"fmt"
	"net/http"

	"github.com/blockvista/gateway/pkg/activity"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleAddressActivity serves the paginated, enriched activity feed
// for one address. Identical concurrent requests share one upstream
// computation through the page coalescer.
func (c *Controller) HandleAddressActivity(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}

	params, err := parsePageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := c.App.Pages.Do(activityKey(address, params), func() (*activity.Page, error) {
		return c.App.Activity.GetAddressActivity(r.Context(), address, params)
	})
	if err != nil {
		c.App.Logger.Error("address activity failed", zap.String("address", address), zap.Error(err))
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// activityKey identifies one logical activity request for coalescing.
func activityKey(address string, p activity.PageParams) string {
	cursor := ""
	if p.Cursor != nil {
		cursor = p.Cursor.Encode()
	}
	return fmt.Sprintf("activity:%s:%d:%d:%s:%d:%d:%d:%d",
		address, p.Limit, p.Offset, cursor, p.FromBlock, p.ToBlock, p.FromTime, p.ToTime)
}
