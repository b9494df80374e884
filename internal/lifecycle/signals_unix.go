//go:build unix

package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// NotifySignals forwards SIGUSR1 as EnteredBackground and SIGUSR2 as BecameActive
// until ctx is cancelled.
func NotifySignals(ctx context.Context, b *Broadcaster) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				log.Debug().Str("signal", sig.String()).Msg("Lifecycle signal received")
				switch sig {
				case syscall.SIGUSR1:
					b.Publish(EnteredBackground)
				case syscall.SIGUSR2:
					b.Publish(BecameActive)
				}
			}
		}
	}()
}
