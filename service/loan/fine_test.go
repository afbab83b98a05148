package loansvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalculateFine(t *testing.T) {
	due := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		rate float64
		want float64
	}{
		{"returned early", due.AddDate(0, 0, -2), 1000, 0},
		{"returned exactly on due date", due, 1000, 0},
		{"under a whole day late", due.Add(23 * time.Hour), 1000, 0},
		{"one day late", due.Add(24 * time.Hour), 1000, 1000},
		{"partial second day floors to one", due.Add(36 * time.Hour), 1000, 1000},
		{"five days late", due.AddDate(0, 0, 5), 1000, 5000},
		{"five days late at other rate", due.AddDate(0, 0, 5), 250, 1250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CalculateFine(due, tc.now, tc.rate))
		})
	}
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.Equal(t, 0, DaysOverdue(due, due))
	require.Equal(t, 0, DaysOverdue(due, due.AddDate(0, 0, -1)))
	require.Equal(t, 3, DaysOverdue(due, due.AddDate(0, 0, 3)))
	require.Equal(t, 3, DaysOverdue(due, due.AddDate(0, 0, 3).Add(12*time.Hour)))
}
