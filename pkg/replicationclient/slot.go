package replicationclient

import (
	"context"
	"fmt"

	"github.com/jackc/pglogrepl"

	"github.com/jfoltran/pgreplicate/pkg/lsn"
	"github.com/jfoltran/pgreplicate/pkg/table"
)

// SlotInfo describes a logical replication slot's position.
type SlotInfo struct {
	ConfirmedFlushLSN pglogrepl.LSN
}

// GetSlot returns the info of an existing slot, or ok == false if no slot
// with that name exists. It has no transaction side effects.
func (c *Client) GetSlot(ctx context.Context, slotName string) (SlotInfo, bool, error) {
	query := fmt.Sprintf(
		`select confirmed_flush_lsn from pg_replication_slots where slot_name = %s`,
		table.QuoteLiteral(slotName),
	)

	rows, err := c.simpleQuery(ctx, query)
	if err != nil {
		return SlotInfo{}, false, err
	}
	if len(rows) == 0 {
		return SlotInfo{}, false, nil
	}

	raw, ok := rows[0].get("confirmed_flush_lsn")
	if !ok {
		return SlotInfo{}, false, newMissingColumn("confirmed_flush_lsn", "pg_replication_slots")
	}
	confirmed, err := lsn.Parse(string(raw))
	if err != nil {
		return SlotInfo{}, false, newInvalidPgLsn(string(raw), err)
	}

	return SlotInfo{ConfirmedFlushLSN: confirmed}, true, nil
}

// createSlot issues CREATE_REPLICATION_SLOT for slotName, binding its
// consistent point to the currently open transaction's snapshot. This only
// succeeds when the connection is in logical replication mode and a
// transaction is open; otherwise Postgres rejects the command outright.
func (c *Client) createSlot(ctx context.Context, slotName string) (SlotInfo, error) {
	query := fmt.Sprintf(
		`CREATE_REPLICATION_SLOT %s LOGICAL pgoutput USE_SNAPSHOT`,
		table.QuoteIdentifier(slotName),
	)

	rows, err := c.simpleQuery(ctx, query)
	if err != nil {
		return SlotInfo{}, err
	}
	if len(rows) == 0 {
		return SlotInfo{}, newFailedToCreateSlot(slotName)
	}

	raw, ok := rows[0].get("consistent_point")
	if !ok {
		return SlotInfo{}, newMissingColumn("consistent_point", "create_replication_slot")
	}
	consistentPoint, err := lsn.Parse(string(raw))
	if err != nil {
		return SlotInfo{}, newInvalidPgLsn(string(raw), err)
	}

	return SlotInfo{ConfirmedFlushLSN: consistentPoint}, nil
}

// GetOrCreateSlot returns the info of an existing slot named slotName, or
// creates it. Creation rolls back any transaction already open on the
// client, starts a fresh read-only repeatable-read transaction, and binds
// the new slot's consistent point to that transaction's snapshot.
func (c *Client) GetOrCreateSlot(ctx context.Context, slotName string) (SlotInfo, error) {
	info, ok, err := c.GetSlot(ctx, slotName)
	if err != nil {
		return SlotInfo{}, err
	}
	if ok {
		return info, nil
	}

	if err := c.RollbackTxn(ctx); err != nil {
		return SlotInfo{}, err
	}
	if err := c.BeginReadonlyTransaction(ctx); err != nil {
		return SlotInfo{}, err
	}
	return c.createSlot(ctx, slotName)
}
