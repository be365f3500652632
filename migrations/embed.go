// Package migrations embeds the schema and applies it in file-name order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Files embeds the SQL migrations.
//
//go:embed *.sql
var Files embed.FS

// Names lists the embedded migrations in apply order.
func Names() ([]string, error) {
	names, err := fs.Glob(Files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Apply runs every migration. Statements are idempotent so re-running is safe.
func Apply(ctx context.Context, conn db.DBTX) error {
	names, err := Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		body, err := Files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := conn.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
