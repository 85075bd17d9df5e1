package repository

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestPgDateRoundTrip(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.December, Day: 31}

	pg := toPgDate(d)
	assert.True(t, pg.Valid)
	assert.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), pg.Time)
	assert.Equal(t, d, fromPgDate(pg))
}

func TestPgDate_NullIsZero(t *testing.T) {
	assert.False(t, toPgDate(civil.Date{}).Valid)
	assert.True(t, fromPgDate(pgtype.Date{}).IsZero())
}

func TestSchema_OneLogPerHabitAndDate(t *testing.T) {
	assert.Contains(t, schema, "CREATE UNIQUE INDEX IF NOT EXISTS idx_habit_logs_habit_date ON habit_logs(habit_id, log_date)")
	assert.Contains(t, schema, "log_date     DATE,")
}
