// Package journal persists session outcomes and error-sink records in SQLite.
//
// The Store owns schema migrations and the session/error tables. Every closed
// session gets a row that transitions migrating → committed/failed, and every
// capacity rejection or quarantined file gets an error row, so the CLI can
// answer "what happened to my photos" without scraping logs. The database is
// an operational record, not the source of truth for files: the filesystem
// layout (patient folders, _backup, _error) is authoritative.
package journal
