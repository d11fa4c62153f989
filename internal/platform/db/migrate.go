package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Migration is one numbered SQL file, e.g. "002_clinical.sql".
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// MigrationStatus reports one migration against a clinic schema. Modified is
// set when the file on disk no longer matches what was applied.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	Modified  bool
	AppliedAt *time.Time
}

// Migrator keeps a clinic schema in step with the numbered SQL files in an
// fs.FS. Applied files are recorded with a checksum in schema_migrations.
type Migrator struct {
	pool  *pgxpool.Pool
	files fs.FS
}

func NewMigrator(pool *pgxpool.Pool, files fs.FS) *Migrator {
	return &Migrator{pool: pool, files: files}
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type appliedMigration struct {
	checksum string
	at       time.Time
}

func ledgerDDL(schema string) string {
	return fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %[1]s;
CREATE TABLE IF NOT EXISTS %[1]s.schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    checksum   TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, schema)
}

// migrationVersion extracts N from "N_name.sql".
func migrationVersion(name string) (int, bool) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// LoadMigrations returns the *.sql files at the root of the migrator's FS in
// version order. Files without a positive numeric prefix are ignored and a
// repeated version is an error.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	names, err := fs.Glob(m.files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int]string, len(names))
	var loaded []Migration
	for _, name := range names {
		version, ok := migrationVersion(path.Base(name))
		if !ok {
			continue
		}
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		byVersion[version] = name

		body, err := fs.ReadFile(m.files, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(body)
		loaded = append(loaded, Migration{
			Version:  version,
			Name:     name,
			SQL:      string(body),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Version < loaded[j].Version })
	return loaded, nil
}

func appliedIn(ctx context.Context, q rowQuerier, schema string) (map[int]appliedMigration, error) {
	rows, err := q.Query(ctx, fmt.Sprintf("SELECT version, checksum, applied_at FROM %s.schema_migrations", schema))
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations in %s: %w", schema, err)
	}
	defer rows.Close()

	done := make(map[int]appliedMigration)
	for rows.Next() {
		var v int
		var a appliedMigration
		if err := rows.Scan(&v, &a.checksum, &a.at); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		done[v] = a
	}
	return done, rows.Err()
}

// Up brings schema up to date and returns how many files it applied. The
// whole run is one transaction holding an advisory lock on the schema name,
// so two processes provisioning the same clinic serialize and a failure
// leaves the schema untouched. A recorded migration whose file has since
// changed aborts the run.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	pending, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", schema); err != nil {
		return 0, fmt.Errorf("lock %s: %w", schema, err)
	}
	if _, err := tx.Exec(ctx, ledgerDDL(schema)); err != nil {
		return 0, fmt.Errorf("prepare schema_migrations in %s: %w", schema, err)
	}
	done, err := appliedIn(ctx, tx, schema)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path TO %s, public", schema)); err != nil {
		return 0, fmt.Errorf("set search_path: %w", err)
	}

	log := zerolog.Ctx(ctx)
	count := 0
	for _, mig := range pending {
		if prev, ok := done[mig.Version]; ok {
			if prev.checksum != "" && prev.checksum != mig.Checksum {
				return 0, fmt.Errorf("migration %s was modified after being applied to %s", mig.Name, schema)
			}
			continue
		}
		if _, err := tx.Exec(ctx, mig.SQL); err != nil {
			return 0, fmt.Errorf("apply %s: %w", mig.Name, err)
		}
		if _, err := tx.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s.schema_migrations (version, name, checksum) VALUES ($1, $2, $3)", schema),
			mig.Version, mig.Name, mig.Checksum,
		); err != nil {
			return 0, fmt.Errorf("record %s: %w", mig.Name, err)
		}
		log.Info().Str("schema", schema).Str("migration", mig.Name).Msg("applied migration")
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit migrations for %s: %w", schema, err)
	}
	return count, nil
}

// Status lists every known migration with whether schema has it.
func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	known, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	if _, err := m.pool.Exec(ctx, ledgerDDL(schema)); err != nil {
		return nil, fmt.Errorf("prepare schema_migrations in %s: %w", schema, err)
	}
	done, err := appliedIn(ctx, m.pool, schema)
	if err != nil {
		return nil, err
	}
	return statusOf(known, done), nil
}

func statusOf(known []Migration, done map[int]appliedMigration) []MigrationStatus {
	out := make([]MigrationStatus, 0, len(known))
	for _, mig := range known {
		s := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if a, ok := done[mig.Version]; ok {
			at := a.at
			s.Applied = true
			s.AppliedAt = &at
			s.Modified = a.checksum != "" && a.checksum != mig.Checksum
		}
		out = append(out, s)
	}
	return out
}
