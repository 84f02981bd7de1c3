// Command klip-server runs the klip server: it accepts connections, runs
// the handshake and the three-opcode command dispatch, and holds the
// single-slot clip store in memory.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lmaotrigine/klip/internal/config"
	"github.com/lmaotrigine/klip/internal/password"
	"github.com/lmaotrigine/klip/internal/server"
	"github.com/lmaotrigine/klip/internal/siginfo"
)

var (
	flagConfig  string
	flagListen  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "klip-server",
	Short: "Run the klip clipboard server",
	RunE:  run,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagConfig, "config", "c", "klip.toml", "path to a klip.toml config file")
	flags.StringVar(&flagListen, "listen", "", "override the listen address from the config file")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug-level logging")
}

// logWriter picks a console-pretty writer for an interactive terminal and a
// plain JSON writer otherwise.
func logWriter() io.Writer {
	if password.IsTerminal(os.Stderr.Fd()) {
		return zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return os.Stderr
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zerolog.New(logWriter()).With().Timestamp().Logger().Fatal().Err(err).Msg("klip-server")
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(logWriter()).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}

	srv, err := server.New(cfg, server.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("shutting down")
		cancel()
	}()

	go siginfo.Watch(ctx, srv, log, func() int64 { return time.Now().Unix() })

	return srv.ListenAndServe(ctx)
}
