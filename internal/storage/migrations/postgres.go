// Package migrations applies the embedded schema files for both databases at
// boot. Every migration is idempotent, so the runners re-apply the full set on
// each start instead of tracking versions.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

// RunPostgresMigrations connects with the given DSN and applies the embedded
// Postgres schema files in lexical order. It uses a single short-lived
// connection; the service pool is opened afterwards.
func RunPostgresMigrations(ctx context.Context, dsn string, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect for postgres migrations: %w", err)
	}
	defer conn.Close(context.Background())

	files, err := sqlFiles(postgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(postgresFS, "postgres/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := conn.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		logger.Printf("[migrations] applied postgres/%s", file)
	}

	return nil
}

// sqlFiles lists the .sql entries of an embedded directory in lexical order.
func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
