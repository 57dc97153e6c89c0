// Package history persists finished generation requests in SQLite.
//
// The coordinator records one entry per terminal request outcome. Entries
// are pruned on every write by age (history.retention_hours) and by count
// (history.max_entries), oldest first. Preferences summarizes the surviving
// entries into the preferred voice and tone plus a success rate, which the
// CLI surfaces through `podgen history prefs`.
package history
