package db

// PostgresMigrations returns the PostgreSQL schema statements in order.
// Readings reference devices without ON DELETE CASCADE: removing a device
// must go through the lifecycle coordinator, which deletes readings first.
func PostgresMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL PRIMARY KEY,
			credit_balance   NUMERIC(12,2) NOT NULL DEFAULT 0,
			credit_threshold NUMERIC(12,2) NOT NULL DEFAULT 50
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id        BIGSERIAL PRIMARY KEY,
			user_id   BIGINT NOT NULL REFERENCES users(id),
			name      TEXT NOT NULL,
			type      TEXT NOT NULL,
			max_power DOUBLE PRECISION NOT NULL DEFAULT 0,
			location  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_user ON devices(user_id)`,
		`CREATE TABLE IF NOT EXISTS power_readings (
			id             BIGSERIAL PRIMARY KEY,
			device_id      BIGINT NOT NULL REFERENCES devices(id),
			user_id        BIGINT NOT NULL REFERENCES users(id),
			timestamp      TIMESTAMPTZ NOT NULL,
			power_usage    DOUBLE PRECISION NOT NULL,
			voltage        DOUBLE PRECISION,
			current        DOUBLE PRECISION,
			duration_hours DOUBLE PRECISION,
			rate           DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_user_ts ON power_readings(user_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_device ON power_readings(device_id)`,
		`CREATE TABLE IF NOT EXISTS energy_tips (
			id               BIGSERIAL PRIMARY KEY,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL,
			impact_level     TEXT NOT NULL,
			estimated_saving TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS shown_tips (
			user_id  BIGINT NOT NULL REFERENCES users(id),
			tip_id   BIGINT NOT NULL REFERENCES energy_tips(id),
			shown_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shown_tips_user ON shown_tips(user_id, shown_at)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id),
			type       TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, type, created_at)`,
		`CREATE TABLE IF NOT EXISTS credit_recoveries (
			user_id      BIGINT PRIMARY KEY REFERENCES users(id),
			recovered_at TIMESTAMPTZ NOT NULL
		)`,
	}
}

// SQLiteMigrations returns the SQLite schema statements in order.
// Each string is a single statement.
func SQLiteMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			credit_balance   REAL NOT NULL DEFAULT 0,
			credit_threshold REAL NOT NULL DEFAULT 50
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id   INTEGER NOT NULL REFERENCES users(id),
			name      TEXT NOT NULL,
			type      TEXT NOT NULL,
			max_power REAL NOT NULL DEFAULT 0,
			location  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_user ON devices(user_id)`,
		`CREATE TABLE IF NOT EXISTS power_readings (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id      INTEGER NOT NULL REFERENCES devices(id),
			user_id        INTEGER NOT NULL REFERENCES users(id),
			timestamp      INTEGER NOT NULL,
			power_usage    REAL NOT NULL,
			voltage        REAL,
			current        REAL,
			duration_hours REAL,
			rate           REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_user_ts ON power_readings(user_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_device ON power_readings(device_id)`,
		`CREATE TABLE IF NOT EXISTS energy_tips (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL,
			impact_level     TEXT NOT NULL,
			estimated_saving TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS shown_tips (
			user_id  INTEGER NOT NULL REFERENCES users(id),
			tip_id   INTEGER NOT NULL REFERENCES energy_tips(id),
			shown_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shown_tips_user ON shown_tips(user_id, shown_at)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			type       TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, type, created_at)`,
		`CREATE TABLE IF NOT EXISTS credit_recoveries (
			user_id      INTEGER PRIMARY KEY REFERENCES users(id),
			recovered_at INTEGER NOT NULL
		)`,
	}
}
