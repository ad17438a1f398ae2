// SPDX-License-Identifier: AGPL-3.0-only
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fluffyriot/screengrabx/internal/cache"
	"github.com/fluffyriot/screengrabx/internal/exports"
	"github.com/fluffyriot/screengrabx/internal/fetcher"
)

// One-shot maintenance commands, run via flags instead of the server
// loop. They talk to the same store the server uses and exit.

func HandleInvalidate(store cache.Store, identifier string) {
	ctx := context.Background()

	account, statusID, found := strings.Cut(identifier, "/")
	if !found {
		log.Fatalf("Identifier must be account/status_id, got '%s'", identifier)
	}
	if err := fetcher.ValidateIdentifier(account, statusID); err != nil {
		log.Fatalf("Invalid identifier '%s': %v", identifier, err)
	}

	if err := store.Invalidate(ctx, account, statusID); err != nil {
		log.Fatalf("Failed to invalidate '%s': %v", identifier, err)
	}
	// The mosaic entry rides along with the post entry.
	if err := store.Invalidate(ctx, account, statusID+"-media"); err != nil {
		log.Fatalf("Failed to invalidate media for '%s': %v", identifier, err)
	}

	fmt.Printf("Invalidated %s, next request refills it.\n", identifier)
}

func HandleSweep(store *cache.DBStore) {
	removed, err := store.Sweep(context.Background())
	if err != nil {
		log.Fatalf("Sweep failed after removing %d entries: %v", removed, err)
	}
	fmt.Printf("Sweep removed %d entries.\n", removed)
}

func HandleExport(db *sql.DB, path string) {
	if path == "" {
		log.Fatal("--export requires an output path")
	}

	file, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create '%s': %v", path, err)
	}
	defer file.Close()

	if err := exports.WriteIndex(context.Background(), db, file); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fmt.Printf("Cache index written to %s\n", path)
}
