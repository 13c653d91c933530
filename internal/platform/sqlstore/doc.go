// Package sqlstore implements the task store on a SQL database. PostgreSQL is
// reached through the pgx stdlib driver and SQLite through modernc.org/sqlite.
// The schema is managed by goose migrations embedded in the binary.
//
// SQL databases do not expire rows on their own, so the store filters expired
// rows on read and implements store.Purger for the sweeper to delete them.
package sqlstore
