// Package lineage persists which strategy versions a project has committed to,
// per flavor key, and serves them back as a grouping.LineageLock.
//
// Commits are first-write-wins: once a version is recorded for
// (project, flavor key, identifier) it is never replaced, which is what keeps
// historical grouping stable when newer strategy versions are registered.
package lineage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aqilarik/grouping/grouping"
)

const schema = `
CREATE TABLE IF NOT EXISTS strategy_lineage (
	project      TEXT NOT NULL,
	flavor_key   TEXT NOT NULL,
	identifier   TEXT NOT NULL,
	version      TEXT NOT NULL,
	committed_at TEXT NOT NULL,
	PRIMARY KEY (project, flavor_key, identifier)
);
`

// Store reads and writes lineage locks in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the SQLite database at path and runs migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	s, err := New(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle and runs migrations.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lock returns the committed versions of project for the given flavor keys.
// An empty result is valid and means nothing has been committed yet.
func (s *Store) Lock(ctx context.Context, project string, flavorKeys []string) (grouping.LineageLock, error) {
	lock := grouping.LineageLock{}
	if len(flavorKeys) == 0 {
		return lock, nil
	}

	args := make([]any, 0, len(flavorKeys)+1)
	args = append(args, project)
	for _, k := range flavorKeys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(flavorKeys)), ", ")

	rows, err := s.db.QueryContext(ctx,
		`SELECT flavor_key, identifier, version FROM strategy_lineage
		 WHERE project = ? AND flavor_key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query lineage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var flavor, identifier, version string
		if err := rows.Scan(&flavor, &identifier, &version); err != nil {
			return nil, fmt.Errorf("scan lineage: %w", err)
		}
		lock.Set(flavor, identifier, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lineage: %w", err)
	}
	return lock, nil
}

// Commit records version for (project, flavorKey, identifier) unless a version
// is already recorded. It reports whether a row was written.
func (s *Store) Commit(ctx context.Context, project, flavorKey, identifier, version string) (bool, error) {
	if _, err := grouping.ParseVersion(version); err != nil {
		return false, fmt.Errorf("commit %s:%s: %w", identifier, version, err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO strategy_lineage (project, flavor_key, identifier, version, committed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		project, flavorKey, identifier, version, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("commit %s:%s: %w", identifier, version, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("commit %s:%s: %w", identifier, version, err)
	}
	return n > 0, nil
}

// CommitPick records the assignments p actually used during its last
// Evaluate (see Pick.Used), nested resolutions included, in one transaction.
// Versions that were applicable but pruned are not committed. Returns the
// number of rows written.
func (s *Store) CommitPick(ctx context.Context, project string, p *grouping.Pick) (int, error) {
	return s.commitAll(ctx, project, p.Used())
}

// CommitLock records every entry of lock, e.g. a lineage section loaded from a
// manifest. Existing entries are kept.
func (s *Store) CommitLock(ctx context.Context, project string, lock grouping.LineageLock) (int, error) {
	var assignments []grouping.Assignment
	for flavor, versions := range lock {
		for id, version := range versions {
			if _, err := grouping.ParseVersion(version); err != nil {
				return 0, fmt.Errorf("commit %s:%s: %w", id, version, err)
			}
			assignments = append(assignments, grouping.Assignment{Identifier: id, Version: version, FlavorKey: flavor})
		}
	}
	return s.commitAll(ctx, project, assignments)
}

func (s *Store) commitAll(ctx context.Context, project string, assignments []grouping.Assignment) (int, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	written := 0
	for _, a := range assignments {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO strategy_lineage (project, flavor_key, identifier, version, committed_at)
			 VALUES (?, ?, ?, ?, ?)`,
			project, a.FlavorKey, a.Identifier, a.Version, now,
		)
		if err != nil {
			return 0, fmt.Errorf("commit %s: %w", a.FullID(), err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			written++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Debug("lineage committed",
		slog.String("project", project),
		slog.Int("assignments", len(assignments)),
		slog.Int("written", written))
	return written, nil
}
