package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"qrgen/internal/pkg/parser"
)

type Event struct {
	ID        string                 `json:"id"`
	RequestID string                 `json:"request_id,omitempty"`
	Action    string                 `json:"action"`
	Filename  string                 `json:"filename,omitempty"`
	Link      string                 `json:"link,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IPAddress string                 `json:"ip_address"`
	UserAgent string                 `json:"user_agent"`
	Client    string                 `json:"client,omitempty"`
	CreatedAt int64                  `json:"created_at"`
}

type requestKey struct{}

type requestInfo struct {
	id        string
	ip        string
	userAgent string
}

// WithRequest stores the caller details the logger attaches to events
// recorded under ctx.
func WithRequest(ctx context.Context, requestID, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestKey{}, requestInfo{id: requestID, ip: ip, userAgent: userAgent})
}

const schema = `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		request_id  TEXT,
		action      TEXT NOT NULL,
		filename    TEXT,
		link        TEXT,
		metadata    TEXT,
		ip_address  TEXT,
		user_agent  TEXT,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC);
`

// Logger persists workflow events to the audit_logs table.
type Logger struct {
	db  *sql.DB
	now func() time.Time
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db, now: time.Now}
}

// Migrate creates the audit table when missing.
func (l *Logger) Migrate() error {
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("creating audit table: %w", err)
	}
	return nil
}

// Record stores one event. Failures are logged, never returned, so auditing
// cannot fail the workflow that triggered it.
func (l *Logger) Record(ctx context.Context, action, filename, link string, metadata map[string]interface{}) {
	event := &Event{
		ID:        "audit_" + uuid.New().String(),
		Action:    action,
		Filename:  filename,
		Link:      link,
		Metadata:  metadata,
		IPAddress: "unknown",
		UserAgent: "unknown",
		CreatedAt: l.now().Unix(),
	}

	if req, ok := ctx.Value(requestKey{}).(requestInfo); ok {
		event.RequestID = req.id
		if req.ip != "" {
			event.IPAddress = req.ip
		}
		if req.userAgent != "" {
			event.UserAgent = req.userAgent
		}
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		metaJSON = []byte("null")
	}

	query := `
		INSERT INTO audit_logs (id, request_id, action, filename, link, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = l.db.ExecContext(context.WithoutCancel(ctx), query,
		event.ID, event.RequestID, event.Action, event.Filename, event.Link,
		string(metaJSON), event.IPAddress, event.UserAgent, event.CreatedAt)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("action", action).Msg("failed to write audit event")
	}
}

// Recent returns up to limit events, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, request_id, action, filename, link, metadata, ip_address, user_agent, created_at
		FROM audit_logs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var requestID, filename, link, metaStr sql.NullString
		if err := rows.Scan(&e.ID, &requestID, &e.Action, &filename, &link, &metaStr,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		e.RequestID = requestID.String
		e.Filename = filename.String
		e.Link = link.String
		e.Client = parser.Describe(e.UserAgent)
		if metaStr.Valid && metaStr.String != "" {
			json.Unmarshal([]byte(metaStr.String), &e.Metadata)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (l *Logger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
