package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies every embedded *.sql file under migrations/ that
// hasn't already been recorded in schema_migrations, in lexical filename
// order, each inside its own transaction. Generalized from
// XavierBriggs-minerva's Database.RunMigrations, which read migration files
// off disk by an explicit hardcoded list; this version discovers files via
// go:embed so new migrations need no code change.
func (s *Store) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	if err := s.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.runMigration(ctx, name); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}

	log.Println("✓ All migrations completed successfully")
	return nil
}

func (s *Store) createMigrationsTable(ctx context.Context) error {
	var query string
	if s.Dialect == DialectPostgres {
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version VARCHAR(255) PRIMARY KEY,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`
	} else {
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version TEXT PRIMARY KEY,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`
	}
	_, err := s.DB.ExecContext(ctx, query)
	return err
}

func (s *Store) runMigration(ctx context.Context, name string) error {
	var exists bool
	err := s.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", name).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("  ⊘ skipping %s (already applied)", name)
		return nil
	}

	content, err := migrationFiles.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read embedded migration: %w", err)
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.Rebind("INSERT INTO schema_migrations (version) VALUES ($1)"), name); err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
		return nil
	})
}
