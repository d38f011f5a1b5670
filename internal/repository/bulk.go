package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CopyRows bulk-inserts rows into table using the COPY protocol.
// Every row must hold one value per column, in column order.
func CopyRows(ctx context.Context, db DBTX, table string, columns []string, rows [][]interface{}) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("copy %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
	}

	n, err := db.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", table, err)
	}
	return n, nil
}

// replaceAll empties table and loads rows in its place. DELETE rather than TRUNCATE keeps
// concurrent readers on the previous snapshot until the surrounding transaction commits.
func replaceAll(ctx context.Context, tx DBTX, table string, columns []string, rows [][]interface{}) (int64, error) {
	if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	return CopyRows(ctx, tx, table, columns, rows)
}
