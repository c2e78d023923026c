package replicationclient

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/rs/zerolog"

	"github.com/jfoltran/pgreplicate/pkg/table"
)

// GetTableCopyStream returns a byte stream of tableName's rows, restricted
// to columns, in Postgres's text COPY format. The stream is produced by
// CopyTo running against the same replication-mode connection; the caller
// drains the reader to completion (or cancels ctx) to release it.
func (c *Client) GetTableCopyStream(ctx context.Context, tableName table.Name, columnSchemas []table.ColumnSchema) (io.Reader, error) {
	names := (table.Schema{ColumnSchemas: columnSchemas}).ColumnNames()
	columnNames := make([]string, len(names))
	for i, name := range names {
		columnNames[i] = table.QuoteIdentifier(name)
	}

	copyQuery := fmt.Sprintf(
		"COPY %s (%s) TO STDOUT WITH (FORMAT text);",
		tableName.AsQuotedIdentifier(), strings.Join(columnNames, ", "),
	)

	pr, pw := io.Pipe()
	go func() {
		_, err := c.conn.CopyTo(ctx, pw, copyQuery)
		if err != nil {
			err = newDatabaseError("copy table", err)
		}
		pw.CloseWithError(err)
	}()

	return pr, nil
}

// FrameKind discriminates the two message shapes a copy-both replication
// stream produces.
type FrameKind int

const (
	// FrameData carries a chunk of raw pgoutput payload.
	FrameData FrameKind = iota
	// FrameKeepalive carries a primary keepalive with no payload.
	FrameKeepalive
)

// Frame is one message from the WAL stream. Decoding Data into the
// pgoutput Begin/Commit/Relation/Insert/Update/Delete grammar is
// deliberately out of scope here; Frame exposes the wire payload opaquely
// to whatever downstream decoder consumes the stream.
type Frame struct {
	Kind FrameKind
	// LSN is WALStart for FrameData, ServerWALEnd for FrameKeepalive.
	LSN            pglogrepl.LSN
	ServerTime     time.Time
	Data           []byte
	ReplyRequested bool
}

// ReplicationStream is a lazy, infinite source of Frames tied to one
// START_REPLICATION copy-both session. Its lifetime is the client
// connection's: closing it (or cancelling the context passed to Next)
// releases the underlying copy-both state.
type ReplicationStream struct {
	client *Client
	logger zerolog.Logger

	standbyTimeout time.Duration
	nextStandby    time.Time
}

// GetLogicalReplicationStream starts logical replication on slotName from
// startLSN, decoding with the pgoutput plugin and restricting output to
// publication. The returned stream yields opaque frames; use Next to pull
// them and SendStandbyStatusUpdate to acknowledge progress.
func (c *Client) GetLogicalReplicationStream(ctx context.Context, publication, slotName string, startLSN pglogrepl.LSN) (*ReplicationStream, error) {
	err := pglogrepl.StartReplication(ctx, c.conn, slotName, startLSN, pglogrepl.StartReplicationOptions{
		Mode: pglogrepl.LogicalReplication,
		PluginArgs: []string{
			"proto_version '1'",
			fmt.Sprintf("publication_names %s", table.QuoteLiteral(publication)),
		},
	})
	if err != nil {
		return nil, newDatabaseError("start replication", err)
	}

	return &ReplicationStream{
		client:         c,
		logger:         c.logger.With().Str("slot", slotName).Logger(),
		standbyTimeout: 10 * time.Second,
		nextStandby:    time.Now().Add(10 * time.Second),
	}, nil
}

// Next blocks until the next frame arrives, ctx is cancelled, or the
// connection errors.
func (s *ReplicationStream) Next(ctx context.Context) (Frame, error) {
	for {
		msgCtx, cancel := context.WithDeadline(ctx, s.nextStandby)
		msg, err := s.client.conn.ReceiveMessage(msgCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return Frame{}, ctx.Err()
			}
			if pgconn.Timeout(err) {
				// Deadline passed without ctx itself expiring: not a real
				// failure. Re-arm the deadline and keep waiting; status
				// updates are only sent by SendStandbyStatusUpdate.
				s.nextStandby = time.Now().Add(s.standbyTimeout)
				continue
			}
			return Frame{}, newDatabaseError("receive replication message", err)
		}

		if errResp, ok := msg.(*pgproto3.ErrorResponse); ok {
			return Frame{}, newDatabaseError("server error from replication stream", fmt.Errorf("%s (SQLSTATE %s)", errResp.Message, errResp.Code))
		}

		cd, ok := msg.(*pgproto3.CopyData)
		if !ok {
			continue
		}
		if len(cd.Data) == 0 {
			continue
		}

		switch cd.Data[0] {
		case pglogrepl.PrimaryKeepaliveMessageByteID:
			ka, err := pglogrepl.ParsePrimaryKeepaliveMessage(cd.Data[1:])
			if err != nil {
				return Frame{}, newDatabaseError("parse keepalive", err)
			}
			if ka.ReplyRequested {
				s.nextStandby = time.Now()
			}
			return Frame{
				Kind:           FrameKeepalive,
				LSN:            ka.ServerWALEnd,
				ServerTime:     ka.ServerTime,
				ReplyRequested: ka.ReplyRequested,
			}, nil

		case pglogrepl.XLogDataByteID:
			xld, err := pglogrepl.ParseXLogData(cd.Data[1:])
			if err != nil {
				return Frame{}, newDatabaseError("parse XLogData", err)
			}
			return Frame{
				Kind:       FrameData,
				LSN:        xld.WALStart,
				ServerTime: xld.ServerTime,
				Data:       xld.WALData,
			}, nil

		default:
			continue
		}
	}
}

// SendStandbyStatusUpdate acknowledges that writtenLSN has been durably
// applied, advancing the slot's confirmed_flush_lsn on the server.
func (s *ReplicationStream) SendStandbyStatusUpdate(ctx context.Context, writtenLSN pglogrepl.LSN) error {
	err := pglogrepl.SendStandbyStatusUpdate(ctx, s.client.conn, pglogrepl.StandbyStatusUpdate{
		WALWritePosition: writtenLSN,
		WALFlushPosition: writtenLSN,
		WALApplyPosition: writtenLSN,
	})
	if err != nil {
		return newDatabaseError("send standby status update", err)
	}
	s.nextStandby = time.Now().Add(s.standbyTimeout)
	return nil
}

// Close ends the copy-both session by closing the client's connection.
// Postgres has no command to exit COPY BOTH mode on a replication-mode
// connection short of terminating it; reconnecting is the caller's
// responsibility if further operations are needed.
func (s *ReplicationStream) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
