package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
)

func TestRankOrdering(t *testing.T) {
	entries := []Entry{
		{UserID: "carol", TotalSeconds: 120},
		{UserID: "bob", TotalSeconds: 300},
		{UserID: "alice", TotalSeconds: 120},
		{UserID: "dave", TotalSeconds: 0},
	}

	Rank(entries)

	assert.Equal(t, "bob", entries[0].UserID)
	// Ties break by user ID ascending.
	assert.Equal(t, "alice", entries[1].UserID)
	assert.Equal(t, "carol", entries[2].UserID)
	assert.Equal(t, "dave", entries[3].UserID)
}

func TestPeriodKeyFor(t *testing.T) {
	keys := calendar.PeriodKeys{Day: "2026-08-10", Week: "1405-W21", Month: "1405-05"}

	assert.Equal(t, "2026-08-10", PeriodDay.KeyFor(keys))
	assert.Equal(t, "1405-W21", PeriodWeek.KeyFor(keys))
	assert.Equal(t, "1405-05", PeriodMonth.KeyFor(keys))
	assert.Equal(t, "", Period("year").KeyFor(keys))
}

func TestPeriodValid(t *testing.T) {
	assert.True(t, PeriodDay.Valid())
	assert.True(t, PeriodWeek.Valid())
	assert.True(t, PeriodMonth.Valid())
	assert.False(t, Period("").Valid())
	assert.False(t, Period("year").Valid())
}
