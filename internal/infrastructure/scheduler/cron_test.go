package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

func TestParseCron(t *testing.T) {
	t.Run("accepts the forms the sync services emit", func(t *testing.T) {
		for _, expr := range []string{
			"*/15 * * * *",
			"0 * * * *",
			"0 */2 * * *",
			"0 */6 * * *",
			"30 2 * * *",
		} {
			_, err := parseCron(expr)
			assert.NoError(t, err, expr)
		}
	})

	t.Run("rejects malformed expressions", func(t *testing.T) {
		for _, expr := range []string{
			"",
			"* * * *",
			"60 * * * *",
			"* 24 * * *",
			"*/0 * * * *",
			"a * * * *",
			"5-2 * * * *",
		} {
			_, err := parseCron(expr)
			assert.ErrorIs(t, err, domain.ErrInvalidCronExpr, expr)
		}
	})
}

func TestCronSchedule_Matches(t *testing.T) {
	tests := []struct {
		expr    string
		at      time.Time
		matches bool
	}{
		{"*/15 * * * *", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), true},
		{"*/15 * * * *", time.Date(2026, 3, 10, 9, 45, 0, 0, time.UTC), true},
		{"*/15 * * * *", time.Date(2026, 3, 10, 9, 50, 0, 0, time.UTC), false},
		{"0 * * * *", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), true},
		{"0 * * * *", time.Date(2026, 3, 10, 9, 1, 0, 0, time.UTC), false},
		{"0 */6 * * *", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), true},
		{"0 */6 * * *", time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC), false},
		{"30 2 * * *", time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC), true},
		{"30 2 * * *", time.Date(2026, 3, 10, 3, 30, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		schedule, err := parseCron(tt.expr)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.matches, schedule.matches(tt.at), "%s at %s", tt.expr, tt.at)
	}
}

func TestCronSchedule_Next(t *testing.T) {
	t.Run("advances to the next firing minute", func(t *testing.T) {
		schedule, err := parseCron("*/15 * * * *")
		require.NoError(t, err)

		after := time.Date(2026, 3, 10, 9, 7, 12, 0, time.UTC)
		next := schedule.next(after)

		assert.Equal(t, time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC), next)
	})

	t.Run("skips past the current minute", func(t *testing.T) {
		schedule, err := parseCron("0 * * * *")
		require.NoError(t, err)

		after := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		next := schedule.next(after)

		assert.Equal(t, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), next)
	})

	t.Run("rolls over to the next day", func(t *testing.T) {
		schedule, err := parseCron("30 2 * * *")
		require.NoError(t, err)

		after := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
		next := schedule.next(after)

		assert.Equal(t, time.Date(2026, 3, 11, 2, 30, 0, 0, time.UTC), next)
	})
}
