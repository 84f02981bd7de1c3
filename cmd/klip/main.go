// Command klip is the client: it copies stdin to the server, pastes the
// stored clip to stdout, or pastes and clears it in one round trip.
package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lmaotrigine/klip/internal/client"
	"github.com/lmaotrigine/klip/internal/config"
	"github.com/lmaotrigine/klip/internal/errs"
	"github.com/lmaotrigine/klip/internal/password"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "klip",
	Short: "A network clipboard",
}

var copyCmd = &cobra.Command{
	Use:     "copy",
	Aliases: []string{"store", "c"},
	Short:   "Read stdin and store it as the clip",
	RunE:    runCopy,
}

var pasteCmd = &cobra.Command{
	Use:     "paste",
	Aliases: []string{"get", "p"},
	Short:   "Write the stored clip to stdout",
	RunE:    runPaste,
}

var moveCmd = &cobra.Command{
	Use:     "move",
	Aliases: []string{"m"},
	Short:   "Write the stored clip to stdout and clear it",
	RunE:    runMove,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "klip.toml", "path to a klip.toml config file")
	rootCmd.AddCommand(copyCmd, pasteCmd, moveCmd)
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
		zerolog.New(logWriter()).With().Timestamp().Logger().Error().Err(err).Msg("klip")
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return client.New(cfg)
}

func runCopy(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return errs.Wrap(errs.KindIO, err, "read stdin")
	}
	return c.Store(data)
}

func runPaste(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	data, err := c.Get()
	if err != nil {
		if kind, ok := errs.Of(err); ok && kind == errs.KindEmpty {
			return nil
		}
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runMove(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	data, err := c.Move()
	if err != nil {
		if kind, ok := errs.Of(err); ok && kind == errs.KindEmpty {
			return nil
		}
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
