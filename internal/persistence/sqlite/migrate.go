package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered schema history. Each entry runs once; applied
// versions are tracked in schema_migrations. Never edit an applied entry,
// append a new one instead.
var migrations = []struct {
	version int
	name    string
	stmts   []string
}{
	{
		version: 1,
		name:    "create_domains_and_users",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS domains (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL,
				domain_id TEXT NOT NULL REFERENCES domains(id),
				is_admin INTEGER NOT NULL DEFAULT 0,
				active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_domain ON users(domain_id)`,
		},
	},
	{
		version: 2,
		name:    "create_meetings",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS meetings (
				id TEXT PRIMARY KEY,
				topic TEXT NOT NULL,
				meeting_type TEXT NOT NULL CHECK (meeting_type IN ('in_person', 'online')),
				location TEXT,
				summary TEXT,
				starts_at TEXT NOT NULL,
				duration_minutes INTEGER NOT NULL DEFAULT 60,
				recurrence_type TEXT NOT NULL DEFAULT 'none'
					CHECK (recurrence_type IN ('none', 'daily', 'weekly', 'monthly', 'yearly')),
				recurrence_interval INTEGER NOT NULL DEFAULT 1,
				recurrence_end_date TEXT,
				recurrence_count INTEGER,
				recurrence_calendar TEXT NOT NULL DEFAULT 'gregorian'
					CHECK (recurrence_calendar IN ('gregorian', 'jalali')),
				created_by TEXT NOT NULL REFERENCES users(id),
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS meeting_participants (
				meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL REFERENCES users(id),
				PRIMARY KEY (meeting_id, user_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_meetings_starts_at ON meetings(starts_at)`,
			`CREATE INDEX IF NOT EXISTS idx_meetings_created_by ON meetings(created_by)`,
		},
	},
	{
		version: 3,
		name:    "create_report_snapshots",
		stmts: []string{
			// Key columns store zero values, never NULL, so the unique
			// index holds across optional parts of the snapshot key.
			`CREATE TABLE IF NOT EXISTS report_snapshots (
				id TEXT PRIMARY KEY,
				report_type TEXT NOT NULL CHECK (report_type IN ('individual', 'team')),
				period_type TEXT NOT NULL CHECK (period_type IN ('weekly', 'monthly', 'yearly')),
				jalali_year INTEGER NOT NULL,
				jalali_month INTEGER NOT NULL DEFAULT 0,
				jalali_week INTEGER NOT NULL DEFAULT 0,
				user_id TEXT NOT NULL DEFAULT '',
				domain_id TEXT NOT NULL DEFAULT '',
				period_start TEXT NOT NULL,
				period_end TEXT NOT NULL,
				label TEXT NOT NULL,
				content BLOB NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_report_snapshots_key
				ON report_snapshots(report_type, period_type, jalali_year, jalali_month, jalali_week, user_id, domain_id)`,
			`CREATE INDEX IF NOT EXISTS idx_report_snapshots_user ON report_snapshots(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_report_snapshots_domain ON report_snapshots(domain_id)`,
		},
	},
}

// Migrate brings the schema up to the latest version.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`); err != nil {
		return fmt.Errorf("failed to initialize schema_migrations: %w", err)
	}

	var current int
	err := pool.DB().QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
