package db

import "embed"

// MigrationFS holds the poker_sessions, poker_votes and audit_logs schema applied by cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
