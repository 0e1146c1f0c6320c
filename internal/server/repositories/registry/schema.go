package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/dbx"
)

const tableName = "registry"

// Columns is the registry schema every query in this package relies on.
var Columns = []string{
	"id",
	"unit_key",
	"normalized_key",
	"owner_identity",
	"container_ref",
	"access_status",
	"access_issues",
	"full_path",
	"uploaded",
	"present",
	"deleted",
	"files_found",
	"total_bytes",
	"health",
	"issues",
	"last_checked",
	"last_synced",
}

// VerifySchema fails with common.ErrMissingColumn naming every column of
// Columns that the registry table lacks.
func VerifySchema(ctx context.Context, db dbx.DBTX) error {
	query :=
		`SELECT column_name FROM information_schema.columns
		 WHERE table_name = $1
		 `

	rows, err := db.QueryContext(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	have := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		have[strings.ToLower(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	var missing []string
	for _, c := range Columns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s.%s", common.ErrMissingColumn, tableName, strings.Join(missing, ", "))
	}
	return nil
}
