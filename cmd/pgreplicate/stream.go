package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pglogrepl"
	"github.com/spf13/cobra"

	"github.com/jfoltran/pgreplicate/pkg/lsn"
	"github.com/jfoltran/pgreplicate/pkg/replicationclient"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream WAL frames from the replication slot until interrupted",
	Long: `Stream starts logical replication from --start-lsn or, when that flag
is unset, from the replication slot's confirmed_flush_lsn (creating the slot
first if it does not exist), and logs each frame as it arrives. A dropped connection is retried with exponential backoff;
Ctrl-C stops the stream cleanly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		startLSN, err := resolveStartLSN(ctx)
		if err != nil {
			return err
		}

		backoff := time.Second
		const maxBackoff = 30 * time.Second

		for {
			err := runStreamOnce(ctx, startLSN, &startLSN)
			if err == nil || ctx.Err() != nil {
				return nil
			}

			logger.Warn().Err(err).Dur("retry_in", backoff).Msg("replication stream dropped, reconnecting")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	},
}

// resolveStartLSN honors an explicit --start-lsn flag, otherwise ensures
// the slot exists and resumes from its confirmed_flush_lsn.
func resolveStartLSN(ctx context.Context) (pglogrepl.LSN, error) {
	if cfg.Replication.StartLSN != "" {
		return lsn.Parse(cfg.Replication.StartLSN)
	}

	client, err := connectSource(ctx)
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	defer client.Close(ctx)

	info, err := client.GetOrCreateSlot(ctx, cfg.Replication.SlotName)
	if err != nil {
		return 0, fmt.Errorf("get or create slot: %w", err)
	}
	return info.ConfirmedFlushLSN, nil
}

// runStreamOnce opens one replication connection and pulls frames until it
// errors or ctx is cancelled, updating *lastLSN as frames are acknowledged
// so a reconnect resumes where this attempt left off.
func runStreamOnce(ctx context.Context, startLSN pglogrepl.LSN, lastLSN *pglogrepl.LSN) error {
	client, err := connectSource(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close(ctx)

	rs, err := client.GetLogicalReplicationStream(ctx, cfg.Replication.Publication, cfg.Replication.SlotName, startLSN)
	if err != nil {
		return fmt.Errorf("start replication: %w", err)
	}
	defer rs.Close(ctx)

	for {
		frame, err := rs.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		switch frame.Kind {
		case replicationclient.FrameData:
			logger.Info().Stringer("lsn", frame.LSN).Int("bytes", len(frame.Data)).Msg("wal frame")
			*lastLSN = frame.LSN
			if err := rs.SendStandbyStatusUpdate(ctx, frame.LSN); err != nil {
				return fmt.Errorf("ack standby status: %w", err)
			}
		case replicationclient.FrameKeepalive:
			lag := lsn.Lag(*lastLSN, frame.LSN)
			if lag > 0 {
				logger.Info().Str("lag", lsn.FormatLag(lag, time.Since(frame.ServerTime))).Msg("keepalive")
			}
			if frame.ReplyRequested {
				if err := rs.SendStandbyStatusUpdate(ctx, *lastLSN); err != nil {
					return fmt.Errorf("ack keepalive: %w", err)
				}
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(streamCmd)
}
