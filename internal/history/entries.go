package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"
)

// Entry is one finished generation request.
type Entry struct {
	ID              int64     `json:"id"`
	RequestID       string    `json:"request_id"`
	Topic           string    `json:"topic"`
	Voice           string    `json:"voice"`
	Tone            string    `json:"tone"`
	DurationMinutes int       `json:"duration_minutes"`
	AudioSeconds    float64   `json:"audio_seconds,omitempty"`
	Success         bool      `json:"success"`
	ArtifactRef     string    `json:"artifact_ref,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Preferences summarizes the retained history.
type Preferences struct {
	PreferredVoice    string         `json:"preferred_voice,omitempty"`
	PreferredTone     string         `json:"preferred_tone,omitempty"`
	SuccessRate       float64        `json:"success_rate"`
	TotalGenerations  int            `json:"total_generations"`
	VoiceDistribution map[string]int `json:"voice_distribution"`
	ToneDistribution  map[string]int `json:"tone_distribution"`
}

const entryColumns = `id, request_id, topic, voice, tone, duration_minutes, audio_seconds, success,
    artifact_ref, error_message, created_at`

// Record inserts entry and prunes expired and excess rows. A zero CreatedAt
// is set to the current time.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.Topic) == "" {
		return Entry{}, fmt.Errorf("record history: empty topic")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	res, err := s.execWithRetry(ctx,
		`INSERT INTO generations (
            request_id, topic, voice, tone, duration_minutes, audio_seconds, success,
            artifact_ref, error_message, created_at, created_ns
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.Topic,
		entry.Voice,
		entry.Tone,
		entry.DurationMinutes,
		entry.AudioSeconds,
		boolToInt(entry.Success),
		nullableString(entry.ArtifactRef),
		nullableString(entry.ErrorMessage),
		entry.CreatedAt.Format(time.RFC3339Nano),
		entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	if _, err := s.Prune(ctx); err != nil {
		return entry, err
	}
	return entry, nil
}

// Prune removes entries older than the retention window, then trims the
// oldest rows beyond the entry cap. It returns the number of rows removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	var removed int64
	if s.retention > 0 {
		cutoff := time.Now().Add(-s.retention).UnixNano()
		res, err := s.execWithRetry(ctx, `DELETE FROM generations WHERE created_ns < ?`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("prune expired history: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	if s.maxEntries > 0 {
		res, err := s.execWithRetry(ctx,
			`DELETE FROM generations WHERE id NOT IN (
                SELECT id FROM generations ORDER BY created_ns DESC, id DESC LIMIT ?
            )`, s.maxEntries)
		if err != nil {
			return removed, fmt.Errorf("prune excess history: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every retained entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if _, err := s.Prune(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + entryColumns + ` FROM generations ORDER BY created_ns DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// Search returns entries whose topic contains the substring, case-insensitively,
// newest first.
func (s *Store) Search(ctx context.Context, topic string) ([]Entry, error) {
	if _, err := s.Prune(ctx); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(topic))
	return s.query(ctx,
		`SELECT `+entryColumns+` FROM generations
         WHERE instr(lower(topic), ?) > 0
         ORDER BY created_ns DESC, id DESC`, needle)
}

// ByVoice returns entries generated with voice, newest first.
func (s *Store) ByVoice(ctx context.Context, voice string) ([]Entry, error) {
	if _, err := s.Prune(ctx); err != nil {
		return nil, err
	}
	return s.query(ctx,
		`SELECT `+entryColumns+` FROM generations WHERE voice = ? ORDER BY created_ns DESC, id DESC`,
		strings.ToLower(strings.TrimSpace(voice)))
}

// Count returns the number of retained entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	if _, err := s.Prune(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM generations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM generations`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Preferences derives usage preferences from retained entries. Ties go to
// the value used first. An empty history yields zero Preferences.
func (s *Store) Preferences(ctx context.Context) (Preferences, error) {
	entries, err := s.Recent(ctx, 0)
	if err != nil {
		return Preferences{}, err
	}
	prefs := Preferences{
		VoiceDistribution: map[string]int{},
		ToneDistribution:  map[string]int{},
	}
	if len(entries) == 0 {
		return prefs, nil
	}

	var voiceOrder, toneOrder []string
	succeeded := 0
	// entries are newest first; walk oldest first so ties favour first use.
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if prefs.VoiceDistribution[entry.Voice] == 0 {
			voiceOrder = append(voiceOrder, entry.Voice)
		}
		prefs.VoiceDistribution[entry.Voice]++
		if prefs.ToneDistribution[entry.Tone] == 0 {
			toneOrder = append(toneOrder, entry.Tone)
		}
		prefs.ToneDistribution[entry.Tone]++
		if entry.Success {
			succeeded++
		}
	}
	prefs.TotalGenerations = len(entries)
	prefs.PreferredVoice = mostUsed(voiceOrder, prefs.VoiceDistribution)
	prefs.PreferredTone = mostUsed(toneOrder, prefs.ToneDistribution)
	prefs.SuccessRate = math.Round(float64(succeeded)/float64(len(entries))*10000) / 100
	return prefs, nil
}

func mostUsed(order []string, counts map[string]int) string {
	best, bestCount := "", 0
	for _, key := range order {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	return best
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry     Entry
		success   int
		artifact  sql.NullString
		message   sql.NullString
		createdAt string
	)
	if err := rows.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.Topic,
		&entry.Voice,
		&entry.Tone,
		&entry.DurationMinutes,
		&entry.AudioSeconds,
		&success,
		&artifact,
		&message,
		&createdAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	entry.Success = success != 0
	entry.ArtifactRef = artifact.String
	entry.ErrorMessage = message.String
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	entry.CreatedAt = parsed
	return entry, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
