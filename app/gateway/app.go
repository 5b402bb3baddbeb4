package gateway

import (
	"context"
	"time"

	"github.com/blockvista/gateway/app/gateway/types"
	"github.com/blockvista/gateway/pkg/activity"
	"github.com/blockvista/gateway/pkg/coalesce"
	"github.com/blockvista/gateway/pkg/export"
	"github.com/blockvista/gateway/pkg/logging"
	"github.com/blockvista/gateway/pkg/retry"
	"github.com/blockvista/gateway/pkg/rpc"
	"github.com/blockvista/gateway/pkg/utils"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	pageCoalesceWindow = time.Second
	tipCoalesceWindow  = 2 * time.Second
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	endpoints := utils.Dedup([]string{
		utils.Env("NODE_URL", "http://127.0.0.1:8232"),
		utils.Env("NODE_URL_SECONDARY", ""),
	})

	// The secondary reuses the primary's credentials.
	var creds *rpc.Credentials
	if user := utils.Env("NODE_RPC_USER", ""); user != "" {
		creds = &rpc.Credentials{User: user, Pass: utils.Env("NODE_RPC_PASS", "")}
	}

	clients := make([]*rpc.Client, 0, len(endpoints))
	for _, ep := range endpoints {
		clients = append(clients, rpc.NewClient(rpc.ClientOpts{
			Endpoint:    ep,
			Credentials: creds,
			Timeout:     utils.EnvDuration("NODE_TIMEOUT", 30*time.Second),
		}))
	}
	chain := rpc.NewRouter(clients, logger)

	// Probe the node so misconfiguration shows up at startup, but keep
	// serving if it is merely down: every request fails over on its own.
	probeErr := retry.WithBackoff(ctx, retry.DefaultConfig(), logger, "node probe", func() error {
		_, err := chain.BlockCount(ctx)
		return err
	})
	if probeErr != nil {
		logger.Warn("node unreachable at startup, continuing degraded", zap.Error(probeErr))
	}

	secret := utils.Env("EXPORT_SECRET", "")
	if secret == "" {
		logger.Fatal("EXPORT_SECRET is required")
	}
	jwtSecret := utils.Env("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	app := &types.App{
		Chain:     chain,
		Activity:  activity.NewAggregator(chain, utils.EnvInt("ENRICH_WORKERS", 8), logger),
		Guard:     export.NewGuard([]byte(secret), logger),
		Pages:     coalesce.NewGroup[*activity.Page](pageCoalesceWindow),
		Tip:       coalesce.NewGroup[int64](tipCoalesceWindow),
		JWTSecret: []byte(jwtSecret),
		Logger:    logger,
	}

	app.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	sweepSpec := utils.Env("SWEEP_CRON", "0 * * * * *")
	if _, err := app.Cron.AddFunc(sweepSpec, func() {
		app.Guard.Sweep()
		app.Pages.Sweep()
		app.Tip.Sweep()
	}); err != nil {
		logger.Fatal("Unable to schedule sweeps", zap.Error(err), zap.String("cronSpec", sweepSpec))
	}

	return app
}
