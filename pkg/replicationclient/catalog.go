package replicationclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jfoltran/pgreplicate/pkg/pgtypes"
	"github.com/jfoltran/pgreplicate/pkg/table"
)

// GetTableID returns the relation OID of table, along with false if the
// table is not found in the catalog. It also validates that the table's
// replica identity is DEFAULT ('d') or FULL ('f'); any other identity
// (NOTHING or an explicit index) is rejected since logical replication
// cannot reliably identify rows for it.
func (c *Client) GetTableID(ctx context.Context, t table.Name) (table.ID, bool, error) {
	query := fmt.Sprintf(
		`select c.oid, c.relreplident
		from pg_class c
		join pg_namespace n on (c.relnamespace = n.oid)
		where n.nspname = %s and c.relname = %s`,
		table.QuoteLiteral(t.Schema), table.QuoteLiteral(t.Name),
	)

	rows, err := c.simpleQuery(ctx, query)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	r := rows[0]

	identity, ok := r.get("relreplident")
	if !ok {
		return 0, false, newMissingColumn("relreplident", "pg_class")
	}
	if string(identity) != "d" && string(identity) != "f" {
		return 0, false, newReplicaIdentityNotSupported(string(identity))
	}

	oidRaw, ok := r.get("oid")
	if !ok {
		return 0, false, newMissingColumn("oid", "pg_class")
	}
	oid, err := strconv.ParseUint(string(oidRaw), 10, 32)
	if err != nil {
		return 0, false, newOidColumnNotU32(string(oidRaw), err)
	}

	return table.ID(oid), true, nil
}

// GetColumnSchemas returns the replicated columns of tableID in attnum
// order, restricted to publication's column list when publication is
// non-nil. System, dropped, and generated columns are never returned.
func (c *Client) GetColumnSchemas(ctx context.Context, tableID table.ID, publication *string) ([]table.ColumnSchema, error) {
	var pubCTE, pubPred string
	if publication != nil {
		pubCTE = fmt.Sprintf(
			`with pub_attrs as (
				select unnest(r.prattrs)
				from pg_publication_rel r
				left join pg_publication p on r.prpubid = p.oid
				where p.pubname = %s and r.prrelid = %d
			)`,
			table.QuoteLiteral(*publication), tableID,
		)
		pubPred = `and (
			case (select count(*) from pub_attrs)
			when 0 then true
			else (a.attnum in (select * from pub_attrs))
			end
		)`
	}

	query := fmt.Sprintf(
		`%s
		select a.attname, a.atttypid, a.atttypmod, a.attnotnull,
			coalesce(i.indisprimary, false) as primary
		from pg_attribute a
		left join pg_index i
			on a.attrelid = i.indrelid
			and a.attnum = any(i.indkey)
			and i.indisprimary = true
		where a.attnum > 0::int2
		and not a.attisdropped
		and a.attgenerated = ''
		and a.attrelid = %d
		%s
		order by a.attnum`,
		pubCTE, tableID, pubPred,
	)

	rows, err := c.simpleQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	schemas := make([]table.ColumnSchema, 0, len(rows))
	for _, r := range rows {
		name, ok := r.get("attname")
		if !ok {
			return nil, newMissingColumn("attname", "pg_attribute")
		}

		typeOIDRaw, ok := r.get("atttypid")
		if !ok {
			return nil, newMissingColumn("atttypid", "pg_attribute")
		}
		typeOID, err := strconv.ParseUint(string(typeOIDRaw), 10, 32)
		if err != nil {
			return nil, newOidColumnNotU32(string(typeOIDRaw), err)
		}

		modifierRaw, ok := r.get("atttypmod")
		if !ok {
			return nil, newMissingColumn("atttypmod", "pg_attribute")
		}
		modifier, err := strconv.ParseInt(string(modifierRaw), 10, 32)
		if err != nil {
			return nil, newTypeModifierColumnNotI32(string(modifierRaw), err)
		}

		notNullRaw, ok := r.get("attnotnull")
		if !ok {
			return nil, newMissingColumn("attnotnull", "pg_attribute")
		}

		schemas = append(schemas, table.ColumnSchema{
			Name:     string(name),
			Type:     pgtypes.Resolve(uint32(typeOID)),
			Modifier: int32(modifier),
			Nullable: string(notNullRaw) == "f",
		})
	}

	return schemas, nil
}

// queryLookupKey finds the best unique index usable as a lookup key for
// tableID, restricted to columns in publishedColumnNames. It returns ok ==
// false when no index qualifies.
func (c *Client) queryLookupKey(ctx context.Context, tableID table.ID, publishedColumnNames map[string]bool) (table.LookupKey, bool, error) {
	query := fmt.Sprintf(
		`SELECT
			c2.relname AS index_name,
			ARRAY_AGG(a.attname ORDER BY x.ordinality) AS columns,
			i.indisprimary AS is_primary
		FROM pg_index i
		JOIN pg_class c1 ON c1.oid = i.indrelid
		JOIN pg_class c2 ON c2.oid = i.indexrelid
		JOIN unnest(i.indkey) WITH ORDINALITY AS x(attnum, ordinality) ON true
		JOIN pg_attribute a ON a.attrelid = c1.oid AND a.attnum = x.attnum
		WHERE c1.oid = %d
		AND (i.indisunique OR i.indisprimary)
		AND i.indpred IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM unnest(i.indkey) AS k(attnum)
			JOIN pg_attribute a2 ON a2.attrelid = c1.oid AND a2.attnum = k.attnum
			WHERE a2.attnotnull = false
		)
		AND NOT EXISTS (
			SELECT 1 FROM pg_constraint con
			WHERE con.conindid = i.indexrelid AND con.condeferrable
		)
		GROUP BY c2.relname, i.indisprimary
		ORDER BY i.indisprimary DESC, c2.relname`,
		tableID,
	)

	rows, err := c.simpleQuery(ctx, query)
	if err != nil {
		return table.LookupKey{}, false, err
	}

	for _, r := range rows {
		indexName := "unnamed_index"
		if raw, ok := r.get("index_name"); ok {
			indexName = string(raw)
		}

		var columns []string
		if raw, ok := r.get("columns"); ok {
			trimmed := strings.Trim(string(raw), "{}")
			if trimmed != "" {
				for _, col := range strings.Split(trimmed, ",") {
					columns = append(columns, strings.TrimSpace(col))
				}
			}
		}

		allPublished := true
		for _, col := range columns {
			if !publishedColumnNames[col] {
				allPublished = false
				break
			}
		}
		if allPublished {
			return table.Key(indexName, columns), true, nil
		}
	}

	return table.LookupKey{}, false, nil
}

// GetLookupKey returns the lookup key for tableID given the columns it
// publishes, falling back to FullRow when no published unique index
// qualifies.
func (c *Client) GetLookupKey(ctx context.Context, tableID table.ID, columnSchemas []table.ColumnSchema) (table.LookupKey, error) {
	published := make(map[string]bool, len(columnSchemas))
	for _, cs := range columnSchemas {
		published[cs.Name] = true
	}

	key, ok, err := c.queryLookupKey(ctx, tableID, published)
	if err != nil {
		return table.LookupKey{}, err
	}
	if ok {
		return key, nil
	}
	return table.FullRow(), nil
}

func (c *Client) getTableSchema(ctx context.Context, name table.Name, publication *string) (table.Schema, error) {
	tableID, found, err := c.GetTableID(ctx, name)
	if err != nil {
		return table.Schema{}, err
	}
	if !found {
		return table.Schema{}, newMissingTable(name)
	}

	columnSchemas, err := c.GetColumnSchemas(ctx, tableID, publication)
	if err != nil {
		return table.Schema{}, err
	}

	lookupKey, err := c.GetLookupKey(ctx, tableID, columnSchemas)
	if err != nil {
		return table.Schema{}, err
	}

	return table.Schema{
		TableName:     name,
		TableID:       tableID,
		ColumnSchemas: columnSchemas,
		LookupKey:     lookupKey,
	}, nil
}

// GetTableSchemas resolves the schema of every table in tableNames,
// skipping (with a warning log) any table that has no safe lookup key.
func (c *Client) GetTableSchemas(ctx context.Context, tableNames []table.Name, publication *string) (map[table.ID]table.Schema, error) {
	schemas := make(map[table.ID]table.Schema, len(tableNames))

	for _, name := range tableNames {
		schema, err := c.getTableSchema(ctx, name, publication)
		if err != nil {
			return nil, err
		}
		if !schema.HasSafeLookupKey() {
			c.logger.Warn().
				Stringer("table", schema.TableName).
				Uint32("table_id", uint32(schema.TableID)).
				Msg("table has no safe lookup key and will not be copied")
			continue
		}
		schemas[schema.TableID] = schema
	}

	return schemas, nil
}

// GetPublicationTableNames returns every table published by publication.
func (c *Client) GetPublicationTableNames(ctx context.Context, publication string) ([]table.Name, error) {
	query := fmt.Sprintf(
		`select schemaname, tablename from pg_publication_tables where pubname = %s`,
		table.QuoteLiteral(publication),
	)

	rows, err := c.simpleQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	names := make([]table.Name, 0, len(rows))
	for _, r := range rows {
		schema, ok := r.get("schemaname")
		if !ok {
			return nil, newMissingColumn("schemaname", "pg_publication_tables")
		}
		name, ok := r.get("tablename")
		if !ok {
			return nil, newMissingColumn("tablename", "pg_publication_tables")
		}
		names = append(names, table.Name{Schema: string(schema), Name: string(name)})
	}

	return names, nil
}

// PublicationExists reports whether a publication named name exists.
func (c *Client) PublicationExists(ctx context.Context, name string) (bool, error) {
	query := fmt.Sprintf(`select 1 as exists from pg_publication where pubname = %s`, table.QuoteLiteral(name))
	rows, err := c.simpleQuery(ctx, query)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
