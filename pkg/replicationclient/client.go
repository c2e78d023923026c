// Package replicationclient implements a Postgres logical replication
// client: catalog discovery, replication slot lifecycle, initial snapshot
// via COPY, and WAL streaming over the pgoutput wire protocol. The client
// surfaces raw pgoutput frames; decoding the Begin/Commit/Relation/Insert
// row grammar is left to a separate subsystem.
package replicationclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// ConnectConfig identifies a Postgres server and the database/credentials
// to connect with.
type ConnectConfig struct {
	Host     string
	Port     uint16
	Database string
	Username string
	Password *string
}

func (c ConnectConfig) replicationDSN() string {
	var userinfo *url.Userinfo
	if c.Password != nil {
		userinfo = url.UserPassword(c.Username, *c.Password)
	} else {
		userinfo = url.User(c.Username)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     userinfo,
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "replication=database",
	}
	return u.String()
}

// Client is a connection to a Postgres server in logical replication mode.
// It owns the connection's transaction state: the catalog inspector and
// slot manager operations are plain methods on this one concrete type, with
// no background driver task of its own beyond what pgconn already runs.
type Client struct {
	conn   *pgconn.PgConn
	inTxn  bool
	logger zerolog.Logger
}

// ConnectNoTLS connects to a Postgres server in logical replication mode
// without TLS.
func ConnectNoTLS(ctx context.Context, cfg ConnectConfig, logger zerolog.Logger) (*Client, error) {
	log := logger.With().Str("component", "replicationclient").Logger()
	log.Info().Str("host", cfg.Host).Uint16("port", cfg.Port).Str("database", cfg.Database).Msg("connecting to postgres")

	conn, err := pgconn.Connect(ctx, cfg.replicationDSN())
	if err != nil {
		return nil, newDatabaseError("connect to postgres", err)
	}

	log.Info().Msg("connected to postgres")

	return &Client{
		conn:   conn,
		logger: log,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// BeginReadonlyTransaction starts a read-only, repeatable-read transaction.
func (c *Client) BeginReadonlyTransaction(ctx context.Context) error {
	if err := c.simpleExec(ctx, "begin read only isolation level repeatable read;"); err != nil {
		return err
	}
	c.inTxn = true
	return nil
}

// CommitTxn commits the open transaction. It is a no-op when no transaction
// is open.
func (c *Client) CommitTxn(ctx context.Context) error {
	if !c.inTxn {
		return nil
	}
	if err := c.simpleExec(ctx, "commit;"); err != nil {
		return err
	}
	c.inTxn = false
	return nil
}

// RollbackTxn rolls back the open transaction. It is a no-op when no
// transaction is open.
func (c *Client) RollbackTxn(ctx context.Context) error {
	if !c.inTxn {
		return nil
	}
	if err := c.simpleExec(ctx, "rollback;"); err != nil {
		return err
	}
	c.inTxn = false
	return nil
}

// simpleExec runs a statement over the simple query protocol, discarding
// any result rows. Replication-mode connections only accept the simple
// query and replication protocols, never prepared statements.
func (c *Client) simpleExec(ctx context.Context, sql string) error {
	mrr := c.conn.Exec(ctx, sql)
	for mrr.NextResult() {
		mrr.ResultReader().Close()
	}
	if err := mrr.Close(); err != nil {
		return newDatabaseError(fmt.Sprintf("exec %q", sql), err)
	}
	return nil
}
