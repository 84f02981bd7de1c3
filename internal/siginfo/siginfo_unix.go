//go:build !windows

package siginfo

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// watch listens for SIGUSR1. Linux has no SIGINFO (that's a BSD/Darwin
// console-driven signal); SIGUSR1 is the closest portable analogue and
// costs nothing on the platforms that do have SIGINFO, so it's used
// uniformly across every non-Windows target.
func watch(ctx context.Context, r Reporter, log zerolog.Logger, now func() int64) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			report(r, log, now)
		}
	}
}
