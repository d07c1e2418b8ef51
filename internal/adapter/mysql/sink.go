package mysql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"stage-tracker/internal/aggregate"
	"stage-tracker/internal/domain"
)

// Client implements ports.SessionSink by mirroring sessions into MySQL tables.
type Client struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewClient opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func NewClient(ctx context.Context, dsn string, log *slog.Logger) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	return &Client{db: db, log: log, now: time.Now}, nil
}

const upsertSession = `
INSERT INTO logged_sessions
  (token, finalized_at, external_reference, total_seconds, mirrored_at)
VALUES
  (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  finalized_at=VALUES(finalized_at),
  external_reference=VALUES(external_reference),
  total_seconds=VALUES(total_seconds),
  mirrored_at=VALUES(mirrored_at);
`

const insertInterval = `
INSERT INTO session_intervals
  (token, position, stage_name, stage_code, start_time, end_time, elapsed_sec)
VALUES
  (?, ?, ?, ?, ?, ?, ?);
`

// SyncSessions upserts sessions and replaces their intervals in one
// transaction. Re-sending a session leaves the tables as if it was sent once.
func (c *Client) SyncSessions(ctx context.Context, sessions []domain.LoggedSession) error {
	if len(sessions) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	sessStmt, err := tx.PrepareContext(ctx, upsertSession)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer sessStmt.Close()
	ivStmt, err := tx.PrepareContext(ctx, insertInterval)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer ivStmt.Close()

	mirroredAt := c.now().UTC()
	var intervals int
	for _, s := range sessions {
		if _, err := sessStmt.ExecContext(ctx,
			s.Token,
			finalizedAt(s.FinalizedAt),
			s.Reference,
			aggregate.TotalElapsed(s.Intervals),
			mirroredAt,
		); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM session_intervals WHERE token = ?", s.Token); err != nil {
			tx.Rollback()
			return err
		}
		for i, iv := range s.Intervals {
			if _, err := ivStmt.ExecContext(ctx,
				s.Token,
				i,
				iv.StageName,
				iv.StageCode,
				iv.Start,
				iv.End,
				iv.ElapsedSec,
			); err != nil {
				tx.Rollback()
				return err
			}
			intervals++
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.log.Info("mysql sink upserted sessions", slog.Int("sessions", len(sessions)), slog.Int("intervals", intervals))
	return nil
}

// finalizedAt converts the log's local timestamp for a DATETIME column.
// Timestamps that do not parse are stored as NULL.
func finalizedAt(s string) interface{} {
	t, err := time.ParseInLocation(domain.FinalizedLayout, s, time.Local)
	if err != nil {
		return nil
	}
	return t
}

// DB exposes the connection pool so the schema can be migrated over it.
func (c *Client) DB() *sql.DB { return c.db }

// Close closes the underlying DB. Not wired via interface to keep ports minimal.
func (c *Client) Close() error { return c.db.Close() }
