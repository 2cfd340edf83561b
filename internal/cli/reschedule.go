package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

func newRescheduleCmd(opts *options) *cobra.Command {
	var req model.RescheduleRequest

	cmd := &cobra.Command{
		Use:   "reschedule <sessionId>",
		Short: "Move a session (admin token required)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := strconv.Atoi(args[0])
			if err != nil || sessionID <= 0 {
				return fmt.Errorf("invalid session id %q", args[0])
			}
			info, err := opts.client(opts.logger()).Reschedule(cmd.Context(), opts.cfg.Token, sessionID, req)
			if err != nil {
				return fmt.Errorf("reschedule: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %d now starts %s for %s.\n", info.ID, info.StartTime, info.TimeLimit)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.StartTime, "start", "", "new start time, dd/MM/yyyy HH:mm")
	cmd.Flags().IntVar(&req.DurationMinutes, "minutes", 0, "new duration in minutes")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("minutes")
	return cmd
}
