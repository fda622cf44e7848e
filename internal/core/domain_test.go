package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.January, 1), d)
	assert.Equal(t, "2024-01-01", d.String())

	for _, bad := range []string{"", "2024-13-01", "01/01/2024", "2024-1-1"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestSessionExpired(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{CreatedAt: created, ExpiresAt: created.Add(24 * time.Hour)}

	assert.False(t, s.Expired(created))
	assert.False(t, s.Expired(created.Add(24*time.Hour-time.Second)))
	assert.True(t, s.Expired(created.Add(24*time.Hour)))
	assert.True(t, s.Expired(created.Add(48*time.Hour)))
}

func TestCostInputMissing(t *testing.T) {
	full := CostInput{Amount: "12.50", Date: "2024-01-01", Category: "food"}
	assert.False(t, full.Missing())

	for _, in := range []CostInput{
		{Date: "2024-01-01", Category: "food"},
		{Amount: "1", Category: "food"},
		{Amount: "1", Date: "2024-01-01"},
		{Amount: "  ", Date: "2024-01-01", Category: "food"},
	} {
		assert.True(t, in.Missing(), "%+v", in)
	}
}

func TestUserIdentity(t *testing.T) {
	u := User{ID: 7, Username: "alice", PasswordHash: "x"}
	assert.Equal(t, Identity{ID: 7, Username: "alice"}, u.Identity())
}
