package calendar

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/pkg/timeutil"
)

func TestResolveNowruz(t *testing.T) {
	r := NewPersianResolver(timeutil.TehranTZ)

	// 2024-03-20 is 1 Farvardin 1403, a Wednesday. The first three days of
	// 1403 belong to the closing week of 1402 (week 1 is the week containing
	// 4 Farvardin).
	keys, err := r.Resolve(timeutil.DateTime(2024, 3, 20, 12, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, "2024-03-20", keys.Day)
	assert.Equal(t, "1403-01", keys.Month)
	assert.Equal(t, "1402-W53", keys.Week)

	// Saturday 2024-03-23 is 4 Farvardin and opens week 1 of 1403.
	keys, err = r.Resolve(timeutil.DateTime(2024, 3, 23, 12, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "1403-W01", keys.Week)
}

func TestResolveMonthRollover(t *testing.T) {
	r := NewPersianResolver(timeutil.TehranTZ)

	// Farvardin has 31 days; 2024-04-19 is its last day and 2024-04-20 is
	// 1 Ordibehesht.
	keys, err := r.Resolve(timeutil.DateTime(2024, 4, 19, 12, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "1403-01", keys.Month)

	keys, err = r.Resolve(timeutil.DateTime(2024, 4, 20, 12, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "1403-02", keys.Month)
}

func TestResolveWeekBoundaryIsSaturday(t *testing.T) {
	r := NewPersianResolver(timeutil.TehranTZ)

	friday, err := r.Resolve(timeutil.DateTime(2024, 3, 29, 23, 0, 0))
	require.NoError(t, err)
	saturday, err := r.Resolve(timeutil.DateTime(2024, 3, 30, 1, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, "1403-W01", friday.Week)
	assert.Equal(t, "1403-W02", saturday.Week)
}

func TestResolveConsecutiveWeeks(t *testing.T) {
	r := NewPersianResolver(timeutil.TehranTZ)

	// Mid-year, adding seven days advances the week key by exactly one.
	base := timeutil.DateTime(2024, 5, 1, 10, 0, 0)
	k1, err := r.Resolve(base)
	require.NoError(t, err)
	k2, err := r.Resolve(base.AddDate(0, 0, 7))
	require.NoError(t, err)

	var y1, w1, y2, w2 int
	_, err = fmt.Sscanf(k1.Week, "%d-W%d", &y1, &w1)
	require.NoError(t, err)
	_, err = fmt.Sscanf(k2.Week, "%d-W%d", &y2, &w2)
	require.NoError(t, err)

	assert.Equal(t, y1, y2)
	assert.Equal(t, w1+1, w2)
}

func TestResolveDayFollowsTehranMidnight(t *testing.T) {
	r := NewPersianResolver(timeutil.TehranTZ)

	// 21:00 UTC is already 00:30 of the next day in Tehran.
	keys, err := r.Resolve(time.Date(2024, 3, 20, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-21", keys.Day)
}

func TestResolveDeterministic(t *testing.T) {
	r := NewPersianResolver(timeutil.TehranTZ)
	instant := timeutil.DateTime(2026, 8, 29, 15, 4, 5)

	first, err := r.Resolve(instant)
	require.NoError(t, err)
	second, err := r.Resolve(instant)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveZeroInstant(t *testing.T) {
	r := NewPersianResolver(timeutil.TehranTZ)

	_, err := r.Resolve(time.Time{})
	assert.ErrorIs(t, err, shared.ErrInvalidInstant)
}
