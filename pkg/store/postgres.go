package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for database/sql
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresConfig mirrors tarsy's pkg/database.Config shape, trimmed to the
// fields this store actually needs.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Postgres is the database/sql + pgx-backed Store implementation. It
// intentionally skips an Ent code-generation layer (see DESIGN.md) — the
// six data operations of the Store interface (store.go) don't need a full
// ORM, so plain parameterized SQL drives them directly.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pooled connection to cfg.DSN, runs embedded schema
// migrations, and returns a ready-to-use Store.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Postgres{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "dpp_verifier", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Do not call m.Close() — it would close the shared *sql.DB passed via
	// postgres.WithInstance above. Only the embedded-fs source needs closing.
	return sourceDriver.Close()
}

// Ping reports whether the underlying connection pool is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) InsertSession(ctx context.Context, agentID string, stageReached int, timestamp int64, timings map[string]any, passed bool, rejectReason *string) (int64, error) {
	timingsJSON, err := json.Marshal(timings)
	if err != nil {
		return 0, fmt.Errorf("marshal timings: %w", err)
	}

	var id int64
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO sessions (agent_id, stage_reached, timestamp, timings, passed, reject_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		agentID, stageReached, timestamp, timingsJSON, boolToInt(passed), nullableString(rejectReason))
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateSession(ctx context.Context, id int64, stageReached int, timings map[string]any, passed bool, rejectReason *string) error {
	timingsJSON, err := json.Marshal(timings)
	if err != nil {
		return fmt.Errorf("marshal timings: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		UPDATE sessions
		SET stage_reached = $2, timings = $3, passed = $4, reject_reason = $5
		WHERE id = $1`,
		id, stageReached, timingsJSON, boolToInt(passed), nullableString(rejectReason))
	if err != nil {
		return fmt.Errorf("update session %d: %w", id, err)
	}
	return nil
}

func (p *Postgres) InsertChallengeRound(ctx context.Context, sessionID int64, roundNum int, challengeText, responseText string, correct bool, responseTimeS float64) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO challenge_rounds (session_id, round_num, challenge_text, response_text, correct, response_time_s)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sessionID, roundNum, challengeText, responseText, boolToInt(correct), responseTimeS)
	if err != nil {
		return fmt.Errorf("insert challenge round: %w", err)
	}
	return nil
}

func (p *Postgres) FetchSessionsByAgent(ctx context.Context, agentID string) ([]SessionRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, agent_id, stage_reached, timestamp, timings, passed, reject_reason
		FROM sessions
		WHERE agent_id = $1
		ORDER BY timestamp ASC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions by agent: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		row, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (p *Postgres) FetchChallengeHistory(ctx context.Context, sessionID int64) ([]ChallengeRoundRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT session_id, round_num, challenge_text, response_text, correct, response_time_s
		FROM challenge_rounds
		WHERE session_id = $1
		ORDER BY round_num ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch challenge history: %w", err)
	}
	defer rows.Close()

	var out []ChallengeRoundRow
	for rows.Next() {
		var r ChallengeRoundRow
		var correct int
		if err := rows.Scan(&r.SessionID, &r.RoundNum, &r.ChallengeText, &r.ResponseText, &correct, &r.ResponseTimeS); err != nil {
			return nil, fmt.Errorf("scan challenge round: %w", err)
		}
		r.Correct = correct != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) FetchStaleInProgressSessions(ctx context.Context, cutoff int64) ([]SessionRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, agent_id, stage_reached, timestamp, timings, passed, reject_reason
		FROM sessions
		WHERE reject_reason = $1 AND timestamp < $2
		ORDER BY timestamp ASC`, RejectReasonInProgress, cutoff)
	if err != nil {
		return nil, fmt.Errorf("fetch stale in-progress sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		row, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSessionRow(rows scannable) (SessionRow, error) {
	var (
		row         SessionRow
		timingsJSON []byte
		passed      int
		reject      sql.NullString
	)
	if err := rows.Scan(&row.ID, &row.AgentID, &row.StageReached, &row.Timestamp, &timingsJSON, &passed, &reject); err != nil {
		return SessionRow{}, fmt.Errorf("scan session row: %w", err)
	}
	row.Passed = passed != 0
	if reject.Valid {
		v := reject.String
		row.RejectReason = &v
	}
	row.Timings = map[string]any{}
	if len(timingsJSON) > 0 {
		if err := json.Unmarshal(timingsJSON, &row.Timings); err != nil {
			return SessionRow{}, fmt.Errorf("unmarshal timings: %w", err)
		}
	}
	return row, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
