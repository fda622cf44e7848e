package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"costtracker/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db *sql.DB
}

// DSN appends the connection pragmas every connection needs.
func DSN(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("Database schema ready", "path", dbPath, "version", version)

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser inserts a user. A taken username yields core.ErrDuplicateUsername.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password) VALUES (?, ?)",
		username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("create user %q: %w", username, core.ErrDuplicateUsername)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("read user id: %w", err)
	}

	return core.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (r *SQLiteRepository) FindUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id, username, password FROM users WHERE username = ?",
		username)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id, username, password FROM users WHERE user_id = ?",
		id)
	return scanUser(row)
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// CreateCost inserts c and returns it with its generated ID.
func (r *SQLiteRepository) CreateCost(ctx context.Context, c core.CostRecord) (core.CostRecord, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO costs (user_id, amount, date, category) VALUES (?, ?, ?, ?)",
		c.UserID, c.Amount.String(), c.Date.String(), c.Category)
	if err != nil {
		return core.CostRecord{}, fmt.Errorf("create cost: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.CostRecord{}, fmt.Errorf("read cost id: %w", err)
	}
	c.ID = id

	slog.DebugContext(ctx, "Cost saved to SQLite",
		"cost_id", c.ID,
		"user_id", c.UserID,
		"amount", c.Amount.String(),
		"date", c.Date.String(),
		"category", c.Category)

	return c, nil
}

// ListCosts returns every cost owned by userID, oldest insert first.
func (r *SQLiteRepository) ListCosts(ctx context.Context, userID int64) ([]core.CostRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT cost_id, user_id, amount, date, category FROM costs WHERE user_id = ? ORDER BY cost_id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list costs: %w", err)
	}
	defer rows.Close()

	costs := []core.CostRecord{}
	for rows.Next() {
		var (
			c            core.CostRecord
			amount, date string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &amount, &date, &c.Category); err != nil {
			return nil, fmt.Errorf("scan cost: %w", err)
		}
		if c.Amount, err = core.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("cost %d amount %q: %w", c.ID, amount, err)
		}
		if c.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("cost %d date %q: %w", c.ID, date, err)
		}
		costs = append(costs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate costs: %w", err)
	}
	return costs, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, username, created_at, expires_at) VALUES (?, ?, ?, ?, ?)",
		s.Token, s.UserID, s.Username, s.CreatedAt.Unix(), s.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns the stored session, expired or not.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (core.Session, error) {
	var (
		s                  core.Session
		created, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT token, user_id, username, created_at, expires_at FROM sessions WHERE token = ?",
		token).Scan(&s.Token, &s.UserID, &s.Username, &created, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Session{}, core.ErrNotFound
		}
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt = time.Unix(created, 0).UTC()
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return s, nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted sessions: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
