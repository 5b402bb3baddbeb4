package export

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Quota classes: issuance is strict (few tokens, slow refill, long
// block), per-request fetches are looser.
var (
	IssueClass = Class{Capacity: 6, RefillPerSec: 0.1, BlockFor: 10 * time.Minute}
	FetchClass = Class{Capacity: 30, RefillPerSec: 1, BlockFor: 30 * time.Second}
)

// IdleTTL is how long an identity's quota state may sit unused before
// the periodic sweep discards it.
const IdleTTL = time.Hour

// QuotaError is a structured rate-limit rejection, distinct from
// transport failures, carrying the wait before a retry may succeed.
type QuotaError struct {
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded, retry after %s", e.RetryAfter)
}

// VerifyError reports why a presented token was rejected.
type VerifyError struct {
	Reason Reason
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("export token rejected: %s", e.Reason)
}

// Guard is the export-capability guard: it issues scope-bound tokens
// under the issuance quota and verifies presented tokens under the
// per-request quota.
type Guard struct {
	signer *Signer
	issue  *Limiter
	fetch  *Limiter
	logger *zap.Logger
}

func NewGuard(secret []byte, logger *zap.Logger) *Guard {
	return &Guard{
		signer: NewSigner(secret),
		issue:  NewLimiter(IssueClass),
		fetch:  NewLimiter(FetchClass),
		logger: logger,
	}
}

// IssueToken checks the identity's issuance quota and signs a token
// bound to the given scope.
func (g *Guard) IssueToken(scope Scope) (string, time.Time, error) {
	if retryAfter, ok := g.issue.Allow(scope.Identity, 1); !ok {
		g.logger.Debug("export issuance throttled",
			zap.String("identity", scope.Identity),
			zap.Duration("retry_after", retryAfter))
		return "", time.Time{}, &QuotaError{RetryAfter: retryAfter}
	}
	return g.signer.Issue(scope)
}

// VerifyRequest verifies the token against the presented scope and
// limit, then charges the per-request quota.
func (g *Guard) VerifyRequest(token string, scope Scope, limit int) error {
	if reason := g.signer.Verify(token, scope, limit); reason != ReasonOK {
		return &VerifyError{Reason: reason}
	}
	if retryAfter, ok := g.fetch.Allow(scope.Identity, 1); !ok {
		return &QuotaError{RetryAfter: retryAfter}
	}
	return nil
}

// Sweep drops idle quota state in both classes. Wired to the periodic
// sweep scheduler.
func (g *Guard) Sweep() {
	dropped := g.issue.Sweep(IdleTTL) + g.fetch.Sweep(IdleTTL)
	if dropped > 0 {
		g.logger.Debug("swept idle quota state", zap.Int("dropped", dropped))
	}
}
