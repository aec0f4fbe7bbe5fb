package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/septivank/energy-insight-engine/internal/engine"
)

// Tx is an alias for pgx.Tx
type Tx = pgx.Tx

// Repository is the PostgreSQL engine store
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate applies the schema and seeds the tip catalog
func (r *Repository) Migrate(ctx context.Context) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range db.PostgresMigrations() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, tip := range db.DefaultTips() {
		batch.Queue(`
			INSERT INTO energy_tips (id, title, description, impact_level, estimated_saving)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, tip.ID, tip.Title, tip.Description, string(tip.ImpactLevel), tip.EstimatedSaving)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed tips: %w", err)
	}
	// keep the serial ahead of the explicitly seeded IDs
	if _, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('energy_tips', 'id'), (SELECT MAX(id) FROM energy_tips))`); err != nil {
		return fmt.Errorf("failed to advance tip sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	return nil
}

// BeginTx starts a new transaction
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Ping checks the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const readingColumns = `
	pr.id, pr.device_id, pr.user_id, d.name, d.type, pr.timestamp,
	pr.power_usage, pr.voltage, pr.current, pr.duration_hours, pr.rate`

// ReadingsForUser returns the user's readings at or after since
func (r *Repository) ReadingsForUser(ctx context.Context, userID int64, since time.Time) ([]db.PowerReading, error) {
	query := `SELECT` + readingColumns + `
		FROM power_readings pr
		JOIN devices d ON pr.device_id = d.id
		WHERE pr.user_id = $1 AND pr.timestamp >= $2
		ORDER BY pr.timestamp DESC`
	return r.queryReadings(ctx, query, userID, since)
}

// ReadingsForDeviceType returns the user's readings of devices of one type
func (r *Repository) ReadingsForDeviceType(ctx context.Context, userID int64, deviceType db.DeviceType, since time.Time) ([]db.PowerReading, error) {
	query := `SELECT` + readingColumns + `
		FROM power_readings pr
		JOIN devices d ON pr.device_id = d.id
		WHERE pr.user_id = $1 AND d.type = $2 AND pr.timestamp >= $3
		ORDER BY pr.timestamp DESC`
	return r.queryReadings(ctx, query, userID, string(deviceType), since)
}

func (r *Repository) queryReadings(ctx context.Context, query string, args ...any) ([]db.PowerReading, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []db.PowerReading
	for rows.Next() {
		var (
			reading    db.PowerReading
			deviceType string
		)
		if err := rows.Scan(
			&reading.ID,
			&reading.DeviceID,
			&reading.UserID,
			&reading.DeviceName,
			&deviceType,
			&reading.Timestamp,
			&reading.PowerUsage,
			&reading.Voltage,
			&reading.Current,
			&reading.DurationHours,
			&reading.Rate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		reading.DeviceType = db.DeviceType(deviceType)
		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}

// GetUser returns the user's credit position
func (r *Repository) GetUser(ctx context.Context, userID int64) (*db.User, error) {
	query := `
		SELECT id, credit_balance, credit_threshold
		FROM users
		WHERE id = $1
	`

	var user db.User
	err := r.pool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.CreditBalance, &user.CreditThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// SetThreshold updates the user's credit threshold
func (r *Repository) SetThreshold(ctx context.Context, userID int64, value float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET credit_threshold = $1 WHERE id = $2`, value, userID)
	if err != nil {
		return fmt.Errorf("failed to update threshold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// RecentNotifications returns notifications created at or after since, newest first
func (r *Repository) RecentNotifications(ctx context.Context, userID int64, since time.Time) ([]db.Notification, error) {
	query := `
		SELECT id, user_id, type, message, created_at
		FROM notifications
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []db.Notification
	for rows.Next() {
		var n db.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return notifications, nil
}

// GetDevice returns a device by ID
func (r *Repository) GetDevice(ctx context.Context, deviceID int64) (*db.Device, error) {
	query := `
		SELECT id, user_id, name, type, max_power, location
		FROM devices
		WHERE id = $1
	`

	var (
		device     db.Device
		deviceType string
	)
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(
		&device.ID,
		&device.UserID,
		&device.Name,
		&deviceType,
		&device.MaxPower,
		&device.Location,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	device.Type = db.DeviceType(deviceType)

	return &device, nil
}

// DeleteDeviceAndReadings deletes readings then the device in one transaction.
// The device row is locked first so concurrent reading inserts wait and then
// see it gone.
func (r *Repository) DeleteDeviceAndReadings(ctx context.Context, userID, deviceID int64) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM devices WHERE id = $1 AND user_id = $2 FOR UPDATE`, deviceID, userID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock device: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM power_readings WHERE device_id = $1`, deviceID); err != nil {
		return fmt.Errorf("failed to delete readings: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM devices WHERE id = $1 AND user_id = $2`, deviceID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertReading stores a reading for an existing device. The device row is
// share-locked for the insert so a concurrent delete cannot orphan it.
func (r *Repository) InsertReading(ctx context.Context, reading *db.PowerReading) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.InsertReadingTx(ctx, tx, reading); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertReadingTx inserts a reading within a transaction
func (r *Repository) InsertReadingTx(ctx context.Context, tx pgx.Tx, reading *db.PowerReading) error {
	var ownerID int64
	err := tx.QueryRow(ctx, `SELECT user_id FROM devices WHERE id = $1 FOR SHARE`, reading.DeviceID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock device: %w", err)
	}

	query := `
		INSERT INTO power_readings (
			device_id, user_id, timestamp, power_usage,
			voltage, current, duration_hours, rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		reading.DeviceID,
		ownerID,
		reading.Timestamp,
		reading.PowerUsage,
		reading.Voltage,
		reading.Current,
		reading.DurationHours,
		reading.Rate,
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert power reading: %w", err)
	}

	reading.UserID = ownerID
	return nil
}

// RecentDeviceUsage gets recent usage values of a device for anomaly detection
func (r *Repository) RecentDeviceUsage(ctx context.Context, deviceID int64, limit int) ([]float64, error) {
	query := `
		SELECT power_usage
		FROM power_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return values, nil
}

// InUserTx runs fn in a transaction holding the user's advisory lock
func (r *Repository) InUserTx(ctx context.Context, userID int64, fn func(tx engine.UserTx) error) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("failed to acquire user lock: %w", err)
	}

	if err := fn(&userTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type userTx struct {
	tx pgx.Tx
}

func (t *userTx) TipsCatalog(ctx context.Context) ([]db.Tip, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, title, description, impact_level, estimated_saving
		FROM energy_tips
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tips: %w", err)
	}
	defer rows.Close()

	var tips []db.Tip
	for rows.Next() {
		var (
			tip    db.Tip
			impact string
		)
		if err := rows.Scan(&tip.ID, &tip.Title, &tip.Description, &impact, &tip.EstimatedSaving); err != nil {
			return nil, fmt.Errorf("failed to scan tip: %w", err)
		}
		tip.ImpactLevel = db.Impact(impact)
		tips = append(tips, tip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tips, nil
}

func (t *userTx) ShownTips(ctx context.Context, userID int64, since time.Time) (map[int64]struct{}, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT DISTINCT tip_id
		FROM shown_tips
		WHERE user_id = $1 AND shown_at > $2
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query shown tips: %w", err)
	}
	defer rows.Close()

	shown := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tip id: %w", err)
		}
		shown[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return shown, nil
}

func (t *userTx) AppendShownTip(ctx context.Context, userID, tipID int64, when time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO shown_tips (user_id, tip_id, shown_at)
		VALUES ($1, $2, $3)
	`, userID, tipID, when)
	if err != nil {
		return fmt.Errorf("failed to record shown tip: %w", err)
	}
	return nil
}

func (t *userTx) AppendNotification(ctx context.Context, userID int64, kind, message string, when time.Time) (*db.Notification, error) {
	n := db.Notification{UserID: userID, Type: kind, Message: message, CreatedAt: when}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, kind, message, when).Scan(&n.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	return &n, nil
}

func (t *userTx) LastNotification(ctx context.Context, userID int64, kind string) (*db.Notification, error) {
	var n db.Notification
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, type, message, created_at
		FROM notifications
		WHERE user_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID, kind).Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last notification: %w", err)
	}
	return &n, nil
}

func (t *userTx) CreditRecoveredAt(ctx context.Context, userID int64) (time.Time, error) {
	var recoveredAt time.Time
	err := t.tx.QueryRow(ctx, `
		SELECT recovered_at FROM credit_recoveries WHERE user_id = $1
	`, userID).Scan(&recoveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, db.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query credit recovery: %w", err)
	}
	return recoveredAt, nil
}

func (t *userTx) SetCreditRecoveredAt(ctx context.Context, userID int64, when time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO credit_recoveries (user_id, recovered_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET recovered_at = EXCLUDED.recovered_at
	`, userID, when)
	if err != nil {
		return fmt.Errorf("failed to record credit recovery: %w", err)
	}
	return nil
}
