package netLayer

import (
	"time"

	"go.uber.org/zap"

	"github.com/novarelay/tunrelay/utils"
)

// DefaultKeepAlivePeriod is the Upstream Dialer's keepalive interval.
const DefaultKeepAlivePeriod = 60 * time.Second

// tuneKeepAliveProbes is implemented per-platform in sockopt_*.go; it
// fills in keepalive probe interval/count the stdlib net package doesn't
// expose, using golang.org/x/sys where the OS supports it. Best-effort:
// failures are logged, never fatal, since the stdlib-level keepalive
// already applies.
func logTuneFailure(what string, err error) {
	if ce := utils.CanLogDebug("keepalive tuning failed"); ce != nil {
		ce.Write(zap.String("what", what), zap.Error(err))
	}
}
