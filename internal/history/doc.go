// Package history keeps a SQLite ledger of conversion runs, failed frames,
// and promotion attempts.
//
// The ledger is an audit trail only. Conversion state is always derived
// from the filesystem by the scanner; nothing here is consulted when
// planning work. Schema changes bump schemaVersion in schema.go; users
// delete history.db to adopt the new schema.
package history
