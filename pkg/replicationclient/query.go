package replicationclient

import (
	"context"
)

// row is one result row from a simple-query, indexed by column name.
type row struct {
	fields map[string]int
	values [][]byte
}

func (r row) get(name string) ([]byte, bool) {
	i, ok := r.fields[name]
	if !ok || r.values[i] == nil {
		return nil, false
	}
	return r.values[i], true
}

// simpleQuery runs sql over the simple query protocol and returns its rows.
// Replication-mode connections reject prepared statements, so every catalog
// query in this package goes through here rather than through pgx's normal
// Query path.
func (c *Client) simpleQuery(ctx context.Context, sql string) ([]row, error) {
	mrr := c.conn.Exec(ctx, sql)

	var rows []row
	for mrr.NextResult() {
		result := mrr.ResultReader().Read()
		if result.Err != nil {
			mrr.Close()
			return nil, newDatabaseError("simple query", result.Err)
		}

		fields := make(map[string]int, len(result.FieldDescriptions))
		for i, fd := range result.FieldDescriptions {
			fields[fd.Name] = i
		}
		for _, values := range result.Rows {
			rows = append(rows, row{fields: fields, values: values})
		}
	}

	if err := mrr.Close(); err != nil {
		return nil, newDatabaseError("simple query", err)
	}

	return rows, nil
}
