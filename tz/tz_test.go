package tz

import (
	"testing"
	"time"

	"github.com/rustyeddy/ftjournal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := Load(name)
	require.NoError(t, err)
	return loc
}

func TestLoad(t *testing.T) {
	t.Parallel()

	_, err := Load("America/New_York")
	assert.NoError(t, err)

	for _, bad := range []string{"", "  ", "Mars/Olympus_Mons"} {
		_, err := Load(bad)
		assert.ErrorIs(t, err, errs.ErrTimezone, bad)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	ny := mustLoad(t, "America/New_York")

	tests := []struct {
		name    string
		wall    time.Time
		wantUTC time.Time
		wantErr string
	}{
		{
			name:    "winter",
			wall:    time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
			wantUTC: time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			name:    "summer",
			wall:    time.Date(2024, 7, 4, 9, 30, 0, 0, time.UTC),
			wantUTC: time.Date(2024, 7, 4, 13, 30, 0, 0, time.UTC),
		},
		{
			name:    "spring forward gap",
			wall:    time.Date(2024, 3, 10, 2, 30, 0, 0, time.UTC),
			wantErr: "does not exist",
		},
		{
			name:    "fall back overlap",
			wall:    time.Date(2024, 11, 3, 1, 30, 0, 0, time.UTC),
			wantErr: "ambiguous",
		},
		{
			name:    "just after fall back",
			wall:    time.Date(2024, 11, 3, 2, 0, 0, 0, time.UTC),
			wantUTC: time.Date(2024, 11, 3, 7, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWall(ny, tt.wall)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, errs.ErrTimezone)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantUTC.Equal(got), "got %s", got.UTC())
		})
	}
}

func TestDayRangeAcrossDST(t *testing.T) {
	t.Parallel()

	ny := mustLoad(t, "America/New_York")

	tests := []struct {
		date  string
		hours int64
	}{
		{"2024-03-09", 24},
		{"2024-03-10", 23},
		{"2024-11-03", 25},
	}

	for _, tt := range tests {
		start, end, err := DayRange(ny, tt.date)
		require.NoError(t, err, tt.date)
		assert.Equal(t, tt.hours*int64(time.Hour/time.Millisecond), end-start, tt.date)
		assert.Equal(t, tt.date, LocalDate(ny, start))
		assert.Equal(t, tt.date, LocalDate(ny, end-1))
	}
}

func TestDayRangeRejectsBadDate(t *testing.T) {
	t.Parallel()

	_, _, err := DayRange(time.UTC, "2024-13-01")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestMonthRange(t *testing.T) {
	t.Parallel()

	ny := mustLoad(t, "America/New_York")

	start, end, err := MonthRange(ny, 2024, time.December)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 5, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC).UnixMilli(), end)

	_, _, err = MonthRange(ny, 2024, 13)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDayRangeMidnightGap(t *testing.T) {
	t.Parallel()

	// Santiago springs forward at local midnight, so 2024-09-08 00:00 never happens.
	scl := mustLoad(t, "America/Santiago")
	_, _, err := DayRange(scl, "2024-09-08")
	assert.ErrorIs(t, err, errs.ErrTimezone)
}

func TestLocalDate(t *testing.T) {
	t.Parallel()

	tokyo := mustLoad(t, "Asia/Tokyo")
	ms := time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, "2024-06-01", LocalDate(tokyo, ms))
	assert.Equal(t, "2024-05-31", LocalDate(time.UTC, ms))
}
