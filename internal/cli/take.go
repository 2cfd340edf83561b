package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/console"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/takingtest"
)

func newTakeCmd(opts *options) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "take <sessionId>",
		Short: "Take the test of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := strconv.Atoi(args[0])
			if err != nil || sessionID <= 0 {
				return fmt.Errorf("invalid session id %q", args[0])
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := opts.logger()
			client := opts.client(log)
			con := console.New(cmd.InOrStdin(), cmd.OutOrStdout())

			ctrl := takingtest.NewController(client, con, con, takingtest.Config{
				Token:            opts.cfg.Token,
				SessionID:        sessionID,
				Location:         opts.cfg.Location,
				AutosaveInterval: opts.cfg.AutosaveInterval,
				OnTick:           con.Tick,
			}, log)
			defer ctrl.Close()

			if err := ctrl.Load(ctx); err != nil {
				if errors.Is(err, takingtest.ErrMissingToken) {
					return errors.New("no token: run `taker login` and export ANSWERGATE_TOKEN, or pass --token")
				}
				return err
			}

			if watch {
				watchCtx, cancelWatch := context.WithCancel(ctx)
				defer cancelWatch()
				go func() {
					err := client.WatchSession(watchCtx, opts.cfg.Token, sessionID, func(info model.SessionInfo) {
						_ = ctrl.Reschedule(info)
					})
					if err != nil {
						log.Warn().Err(err).Msg("Session stream ended")
					}
				}()
			}

			if err := con.Run(ctx, ctrl); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			switch con.Outcome() {
			case console.OutcomeFinished:
				fmt.Fprintln(cmd.OutOrStdout(), "Done. You may close this window.")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Left the test without submitting. Saved answers are kept on the server.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "follow schedule changes over the session stream")
	return cmd
}
