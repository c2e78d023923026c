package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfoltran/pgreplicate/pkg/table"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the tables and lookup keys a publication exposes",
	Long: `Discover connects to the source, confirms the publication exists, and
reports each published table's columns and resolved lookup key — the same
catalog walk a snapshot run performs before copying any data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()

		client, err := connectSource(ctx)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer client.Close(ctx)

		ok, err := client.PublicationExists(ctx, cfg.Replication.Publication)
		if err != nil {
			return fmt.Errorf("check publication: %w", err)
		}
		if !ok {
			return fmt.Errorf("publication %q does not exist", cfg.Replication.Publication)
		}

		tableNames, err := client.GetPublicationTableNames(ctx, cfg.Replication.Publication)
		if err != nil {
			return fmt.Errorf("list publication tables: %w", err)
		}

		schemas, err := client.GetTableSchemas(ctx, tableNames, &cfg.Replication.Publication)
		if err != nil {
			return fmt.Errorf("resolve table schemas: %w", err)
		}

		logger.Info().Int("tables", len(schemas)).Str("publication", cfg.Replication.Publication).Msg("discovered tables")

		byName := make(map[string]table.Schema, len(schemas))
		for _, s := range schemas {
			byName[s.TableName.String()] = s
		}

		for _, name := range tableNames {
			s, ok := byName[name.String()]
			if !ok {
				fmt.Printf("%s: skipped (no safe lookup key)\n", name)
				continue
			}
			printTableSchema(s)
		}

		return nil
	},
}

func printTableSchema(s table.Schema) {
	fmt.Printf("%s  (lookup key: %s %v)\n", s.TableName, s.LookupKey.Kind, s.LookupKey.Columns)
	for _, col := range s.ColumnSchemas {
		fmt.Printf("  %-20s %s\n", col.Name, col.Type.Name)
	}
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
