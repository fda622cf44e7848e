package services

import (
	"context"
	"time"

	"costtracker/internal/core"
)

// UserStore is the credential store.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
	FindUserByUsername(ctx context.Context, username string) (core.User, error)
}

// SessionStore is the server-side half of a session.
type SessionStore interface {
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, token string) (core.Session, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// CostStore is the cost ledger.
type CostStore interface {
	CreateCost(ctx context.Context, c core.CostRecord) (core.CostRecord, error)
	ListCosts(ctx context.Context, userID int64) ([]core.CostRecord, error)
}

// CostEventPublisher is notified after a cost is stored.
type CostEventPublisher interface {
	PublishCostAdded(ctx context.Context, c core.CostRecord) error
}
