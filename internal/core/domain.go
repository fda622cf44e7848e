package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
	}

	// Identity is what a resolved session grants a request.
	Identity struct {
		ID       int64
		Username string
	}

	CostRecord struct {
		ID       int64
		UserID   int64
		Amount   Amount
		Date     Date
		Category string
	}

	// CostInput is an add-cost request before parsing. Empty fields are missing.
	CostInput struct {
		Amount   string
		Date     string
		Category string
	}

	Session struct {
		Token     string
		UserID    int64
		Username  string
		CreatedAt time.Time
		ExpiresAt time.Time
	}
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingField       = errors.New("missing required fields")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrDuplicateUsername  = errors.New("duplicate username")
	ErrNotFound           = errors.New("not found")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Identity returns the identity a session for u carries.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}

// Expired reports whether the session is past its absolute lifetime at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s Session) Identity() Identity {
	return Identity{ID: s.UserID, Username: s.Username}
}

// Missing reports whether any required field is absent.
func (in CostInput) Missing() bool {
	return strings.TrimSpace(in.Amount) == "" ||
		strings.TrimSpace(in.Date) == "" ||
		strings.TrimSpace(in.Category) == ""
}
