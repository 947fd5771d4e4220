// Package store persists captured sessions: an append-only JSONL event
// log plus metadata and replay documents per session, with a SQLite
// index for cross-session listing and search.
package store

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zzhiyuann/vibe-replay/internal/logger"
	"github.com/zzhiyuann/vibe-replay/internal/replay"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// maxEventLineBytes bounds a single JSONL line when reading back events.
// Capture caps details at 50KB; this leaves generous headroom.
const maxEventLineBytes = 1 << 20

// Store manages storage and retrieval of captured sessions.
type Store struct {
	baseDir     string
	sessionsDir string
	db          *sql.DB
	mu          sync.RWMutex
}

// Open creates or opens a session store rooted at baseDir. An empty
// baseDir defaults to ~/.vibe-replay.
func Open(baseDir string) (*Store, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".vibe-replay")
	}

	sessionsDir := filepath.Join(baseDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, "index.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	s := &Store{
		baseDir:     baseDir,
		sessionsDir: sessionsDir,
		db:          db,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	logger.Debug().
		Str("path", baseDir).
		Msg("Opened session store")

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		project TEXT DEFAULT '',
		project_path TEXT DEFAULT '',
		start_time TEXT,
		end_time TEXT,
		duration_seconds REAL,
		event_count INTEGER DEFAULT 0,
		summary TEXT DEFAULT '',
		tags TEXT DEFAULT '[]',
		files_modified TEXT DEFAULT '[]',
		tools_used TEXT DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project);
	`

	_, err := s.db.Exec(schema)
	return err
}

// BaseDir returns the storage root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// SessionDir returns the directory holding one session's files.
func (s *Store) SessionDir(sessionID string) string {
	return filepath.Join(s.sessionsDir, sessionID)
}

func (s *Store) eventsPath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), "events.jsonl")
}

func (s *Store) metadataPath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), "metadata.json")
}

func (s *Store) replayPath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), "replay.json")
}

// EnsureSession creates the session directory if needed.
func (s *Store) EnsureSession(sessionID string) error {
	return os.MkdirAll(s.SessionDir(sessionID), 0755)
}

// AppendEvent appends an event to its session's JSONL log.
func (s *Store) AppendEvent(event *replay.Event) error {
	if err := s.EnsureSession(event.SessionID); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	f, err := os.OpenFile(s.eventsPath(event.SessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Events reads all events for a session in chronological order. Missing
// logs yield an empty slice; malformed lines are skipped.
func (s *Store) Events(sessionID string) ([]replay.Event, error) {
	f, err := os.Open(s.eventsPath(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []replay.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxEventLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event replay.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			logger.Debug().Err(err).Str("session", sessionID).Msg("Skipping malformed event line")
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return events, nil
}

// EventCount counts events without decoding them.
func (s *Store) EventCount(sessionID string) (int, error) {
	f, err := os.Open(s.eventsPath(sessionID))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxEventLineBytes)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read event log: %w", err)
	}
	return count, nil
}

// SaveMetadata writes the metadata document and refreshes the index row.
func (s *Store) SaveMetadata(meta *replay.SessionMetadata) error {
	if err := s.EnsureSession(meta.SessionID); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(meta.SessionID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return s.indexSession(meta)
}

// Metadata reads a session's metadata. Returns nil when the document is
// missing or corrupted; a corrupted record is treated as absent.
func (s *Store) Metadata(sessionID string) (*replay.SessionMetadata, error) {
	data, err := os.ReadFile(s.metadataPath(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta replay.SessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		logger.Debug().Err(err).Str("session", sessionID).Msg("Treating corrupted metadata as absent")
		return nil, nil
	}
	return &meta, nil
}

// SaveReplay writes the cached analysis result, replacing any prior one.
func (s *Store) SaveReplay(r *replay.SessionReplay) error {
	if err := s.EnsureSession(r.Metadata.SessionID); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode replay: %w", err)
	}
	if err := os.WriteFile(s.replayPath(r.Metadata.SessionID), data, 0644); err != nil {
		return fmt.Errorf("failed to write replay: %w", err)
	}
	return nil
}

// Replay reads a session's cached analysis. Returns nil when missing
// or corrupted.
func (s *Store) Replay(sessionID string) (*replay.SessionReplay, error) {
	data, err := os.ReadFile(s.replayPath(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read replay: %w", err)
	}

	var r replay.SessionReplay
	if err := json.Unmarshal(data, &r); err != nil {
		logger.Debug().Err(err).Str("session", sessionID).Msg("Treating corrupted replay as absent")
		return nil, nil
	}
	return &r, nil
}

func (s *Store) indexSession(meta *replay.SessionMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endTime any
	if meta.EndTime != nil {
		endTime = meta.EndTime.Format(time.RFC3339Nano)
	}

	tags, _ := json.Marshal(orEmptySlice(meta.Tags))
	files, _ := json.Marshal(orEmptySlice(meta.FilesModified))
	tools, _ := json.Marshal(orEmptyMap(meta.ToolsUsed))

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sessions
		 (session_id, project, project_path, start_time, end_time,
		  duration_seconds, event_count, summary, tags, files_modified, tools_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.SessionID,
		meta.Project,
		meta.ProjectPath,
		meta.StartTime.Format(time.RFC3339Nano),
		endTime,
		meta.DurationSeconds,
		meta.EventCount,
		meta.Summary,
		string(tags),
		string(files),
		string(tools),
	)
	if err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// ListSessions returns indexed sessions newest first, optionally
// filtered by project.
func (s *Store) ListSessions(project string, limit, offset int) ([]*replay.SessionMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rows *sql.Rows
		err  error
	)
	if project != "" {
		rows, err = s.db.Query(
			`SELECT session_id, project, project_path, start_time, end_time,
			        duration_seconds, event_count, summary, tags, files_modified, tools_used
			 FROM sessions WHERE project = ?
			 ORDER BY start_time DESC LIMIT ? OFFSET ?`,
			project, limit, offset,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT session_id, project, project_path, start_time, end_time,
			        duration_seconds, event_count, summary, tags, files_modified, tools_used
			 FROM sessions
			 ORDER BY start_time DESC LIMIT ? OFFSET ?`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return s.scanSessions(rows)
}

// SearchSessions matches sessions whose summary, project, or tags
// contain the query.
func (s *Store) SearchSessions(query string, limit int) ([]*replay.SessionMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT session_id, project, project_path, start_time, end_time,
		        duration_seconds, event_count, summary, tags, files_modified, tools_used
		 FROM sessions
		 WHERE summary LIKE ? OR project LIKE ? OR tags LIKE ?
		 ORDER BY start_time DESC LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return s.scanSessions(rows)
}

func (s *Store) scanSessions(rows *sql.Rows) ([]*replay.SessionMetadata, error) {
	var sessions []*replay.SessionMetadata
	for rows.Next() {
		var (
			meta              replay.SessionMetadata
			startTime         sql.NullString
			endTime           sql.NullString
			duration          sql.NullFloat64
			tags, files, tool sql.NullString
		)
		if err := rows.Scan(
			&meta.SessionID, &meta.Project, &meta.ProjectPath,
			&startTime, &endTime, &duration, &meta.EventCount,
			&meta.Summary, &tags, &files, &tool,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		if startTime.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, startTime.String); err == nil {
				meta.StartTime = ts
			}
		}
		if endTime.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, endTime.String); err == nil {
				meta.EndTime = &ts
			}
		}
		meta.DurationSeconds = duration.Float64

		if tags.Valid && tags.String != "" {
			_ = json.Unmarshal([]byte(tags.String), &meta.Tags)
		}
		if files.Valid && files.String != "" {
			_ = json.Unmarshal([]byte(files.String), &meta.FilesModified)
		}
		if tool.Valid && tool.String != "" {
			_ = json.Unmarshal([]byte(tool.String), &meta.ToolsUsed)
		}

		sessions = append(sessions, &meta)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session's files and index row. Returns false
// when the session does not exist.
func (s *Store) DeleteSession(sessionID string) (bool, error) {
	dir := s.SessionDir(sessionID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false, nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("failed to remove session directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return false, fmt.Errorf("failed to delete index row: %w", err)
	}
	return true, nil
}

// SessionExists reports whether a session directory exists.
func (s *Store) SessionExists(sessionID string) bool {
	_, err := os.Stat(s.SessionDir(sessionID))
	return err == nil
}

// ResolveSessionID resolves a full or unique-prefix session ID.
// Ambiguous prefixes return the candidate list in the error.
func (s *Store) ResolveSessionID(partial string) (string, error) {
	if s.SessionExists(partial) {
		return partial, nil
	}

	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), partial) {
			matches = append(matches, entry.Name())
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("session not found: %s", partial)
	default:
		return "", fmt.Errorf("ambiguous session ID %s: matches %s", partial, strings.Join(matches, ", "))
	}
}

// Close closes the index database.
func (s *Store) Close() error {
	return s.db.Close()
}

func orEmptySlice(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orEmptyMap(v map[string]int) map[string]int {
	if v == nil {
		return map[string]int{}
	}
	return v
}
