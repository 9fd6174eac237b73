// Package postgres implements the PostgreSQL persistence layer for Study Tracker Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users table
-- Version: 001

-- The active session lives inline on the user row. At most one session per
-- user by construction: the three session columns are either all cleared
-- (idle), started set (running), or started + paused set (paused).
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    session_started_at TIMESTAMP WITH TIME ZONE,
    session_paused_at TIMESTAMP WITH TIME ZONE,
    session_paused_seconds BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- A pause without a start is unrepresentable state
    CONSTRAINT valid_session CHECK (session_paused_at IS NULL OR session_started_at IS NOT NULL),
    CONSTRAINT valid_paused_seconds CHECK (session_paused_seconds >= 0)
);

-- Partial index: the sweeper and the live snapshot only ever scan active sessions
CREATE INDEX IF NOT EXISTS idx_users_active_session ON users(session_started_at) WHERE session_started_at IS NOT NULL;

-- Trigger to auto-update updated_at
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_users_updated_at ON users;
CREATE TRIGGER update_users_updated_at
    BEFORE UPDATE ON users
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_users_updated_at ON users;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE PERIOD STATS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create daily/weekly/monthly stats tables
-- Version: 002

-- Committed totals per (user, period key). Rows are upserted additively and
-- never deleted, so totals are monotonically non-decreasing. The day key is a
-- Gregorian civil date; week and month keys follow the Persian calendar.
CREATE TABLE IF NOT EXISTS daily_stats (
    user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    period_key TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    total_seconds BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, period_key),
    CONSTRAINT daily_total_non_negative CHECK (total_seconds >= 0)
);

CREATE TABLE IF NOT EXISTS weekly_stats (
    user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    period_key TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    total_seconds BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, period_key),
    CONSTRAINT weekly_total_non_negative CHECK (total_seconds >= 0)
);

CREATE TABLE IF NOT EXISTS monthly_stats (
    user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    period_key TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    total_seconds BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, period_key),
    CONSTRAINT monthly_total_non_negative CHECK (total_seconds >= 0)
);

-- Leaderboard reads scan one period key ordered by total
CREATE INDEX IF NOT EXISTS idx_daily_stats_key_total ON daily_stats(period_key, total_seconds DESC, user_id);
CREATE INDEX IF NOT EXISTS idx_weekly_stats_key_total ON weekly_stats(period_key, total_seconds DESC, user_id);
CREATE INDEX IF NOT EXISTS idx_monthly_stats_key_total ON monthly_stats(period_key, total_seconds DESC, user_id);
`

const migration002Down = `
DROP TABLE IF EXISTS monthly_stats;
DROP TABLE IF EXISTS weekly_stats;
DROP TABLE IF EXISTS daily_stats;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE REPORT ANCHORS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create report anchors table
-- Version: 003

-- One row per civil day: which Telegram message the live report job edits.
CREATE TABLE IF NOT EXISTS report_anchors (
    day_key TEXT PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    message_id BIGINT NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration003Down = `
DROP TABLE IF EXISTS report_anchors;
`
