//go:build windows

package siginfo

import (
	"context"

	"github.com/rs/zerolog"
)

// watch is a no-op on windows: there is no portable equivalent of
// SIGINFO/SIGUSR1 worth wiring up, matching logger_windows.go's approach of
// stubbing out the unix-only mechanism rather than faking it.
func watch(ctx context.Context, _ Reporter, _ zerolog.Logger, _ func() int64) {
	<-ctx.Done()
}
