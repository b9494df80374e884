//go:build !unix

package lifecycle

import (
	"context"

	"github.com/rs/zerolog/log"
)

// NotifySignals is a no-op where SIGUSR1/SIGUSR2 do not exist; use the HTTP
// lifecycle endpoints instead.
func NotifySignals(ctx context.Context, b *Broadcaster) {
	log.Warn().Msg("Lifecycle signals not supported on this platform")
}
