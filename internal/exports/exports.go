// SPDX-License-Identifier: AGPL-3.0-only
package exports

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// WriteIndex dumps the cache index as CSV, one row per cached post.
// Artifact bytes stay on disk, this is the bookkeeping view operators
// use to see what the cache holds and how stale it is.
func WriteIndex(ctx context.Context, db *sql.DB, w io.Writer) error {
	rows, err := db.QueryContext(ctx,
		`SELECT account_name, status_id, cached_at, expires_at, last_served_at, byte_size, content_type
		   FROM screengrabs ORDER BY last_served_at DESC`)
	if err != nil {
		return fmt.Errorf("failed to query cache index: %w", err)
	}
	defer rows.Close()

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{
		"account_name",
		"status_id",
		"cached_at",
		"expires_at",
		"last_served_at",
		"byte_size",
		"content_type",
	}); err != nil {
		return err
	}

	for rows.Next() {
		var (
			account, statusID, contentType string
			cachedAt, expiresAt, servedAt  time.Time
			byteSize                       int64
		)
		if err := rows.Scan(&account, &statusID, &cachedAt, &expiresAt, &servedAt, &byteSize, &contentType); err != nil {
			return err
		}

		record := []string{
			account,
			statusID,
			cachedAt.Format(time.RFC3339),
			expiresAt.Format(time.RFC3339),
			servedAt.Format(time.RFC3339),
			strconv.FormatInt(byteSize, 10),
			contentType,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}
