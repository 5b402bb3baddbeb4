package types

import (
	"context"
	"net/http"
	"time"

	"github.com/blockvista/gateway/pkg/activity"
	"github.com/blockvista/gateway/pkg/coalesce"
	"github.com/blockvista/gateway/pkg/export"
	"github.com/blockvista/gateway/pkg/rpc"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type App struct {
	// Chain routes RPC calls across the configured node endpoints.
	Chain *rpc.Router
	// Activity aggregates per-address deltas into the enriched feed.
	Activity *activity.Aggregator
	// Guard issues and verifies export capability tokens.
	Guard *export.Guard

	// Coalescers shared by the read endpoints. Windows are tuned per
	// endpoint: activity pages churn faster than the chain tip.
	Pages *coalesce.Group[*activity.Page]
	Tip   *coalesce.Group[int64]

	// Cron drives the periodic breaker/quota/coalescer sweeps.
	Cron *cron.Cron

	// JWTSecret verifies the bearer identity on export endpoints.
	JWTSecret []byte

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application and blocks until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Cron.Start()
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-a.Cron.Stop().Done()
	_ = a.Server.Shutdown(shutdownCtx)
	a.Logger.Info("goodbye")
}
