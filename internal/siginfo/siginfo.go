// Package siginfo wires an optional operator signal to print the server's
// clip status without touching the wire protocol. It is split by platform
// (siginfo_unix.go, siginfo_windows.go) since Go's syscall package has no
// portable SIGINFO-equivalent constant; general-purpose logging is
// zerolog's job, this package only decides when to emit one status line.
package siginfo

import (
	"context"

	"github.com/rs/zerolog"
)

// Reporter is anything that can describe the current clip slot. Server
// satisfies this directly via its Status method.
type Reporter interface {
	Status(now func() int64) (nonEmpty bool, ageSeconds int64)
}

// Watch installs the platform's informational signal handler and logs the
// clip status via log each time it fires, until ctx is canceled. On
// platforms with no such signal (windows) it is a no-op that returns
// immediately when ctx is done.
func Watch(ctx context.Context, r Reporter, log zerolog.Logger, now func() int64) {
	watch(ctx, r, log, now)
}

func report(r Reporter, log zerolog.Logger, now func() int64) {
	present, age := r.Status(now)
	if !present {
		log.Info().Msg("clipboard: empty")
		return
	}
	log.Info().Int64("age_seconds", age).Msg("clipboard: holding a clip")
}
