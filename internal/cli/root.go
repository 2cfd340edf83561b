// Package cli wires the taker command line: login, take and reschedule.
package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/apiclient"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/config"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/logger"
)

// options are the persistent flags, seeded from the environment.
type options struct {
	cfg     *config.ClientConfig
	logFile io.Closer
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd(config.LoadClient()).Execute()
}

// NewRootCmd builds the command tree on top of cfg. Flags override cfg.
func NewRootCmd(cfg *config.ClientConfig) *cobra.Command {
	opts := &options{cfg: cfg}

	cmd := &cobra.Command{
		Use:          "taker",
		Short:        "Take scheduled multiple-choice tests from the terminal",
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logFile != nil {
				_ = opts.logFile.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfg.APIRoot, "api-root", cfg.APIRoot, "base URL of the taking-test API")
	cmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "bearer token (defaults to $ANSWERGATE_TOKEN)")
	cmd.PersistentFlags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "per-request timeout")

	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newTakeCmd(opts))
	cmd.AddCommand(newRescheduleCmd(opts))
	return cmd
}

// logger writes to LOG_FILE when set, otherwise to stderr.
func (o *options) logger() zerolog.Logger {
	out := io.Writer(os.Stderr)
	if o.cfg.LogFile != "" {
		f, err := os.OpenFile(o.cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err == nil {
			o.logFile = f
			out = f
		}
	}
	return logger.SetupTo(out, o.cfg.LogLevel, o.cfg.LogFormat)
}

func (o *options) client(log zerolog.Logger) *apiclient.Client {
	timeout := o.cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return apiclient.New(o.cfg.APIRoot, log, apiclient.WithTimeout(timeout))
}
