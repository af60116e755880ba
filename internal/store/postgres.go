package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sweeney/fridge-monitor/internal/logic"
)

const defaultTable = "fridge_records"

// Postgres is a Repository backed by a Postgres table.
type Postgres struct {
	db       *sql.DB
	table    string
	deviceID string
}

// PostgresOption configures the repository.
type PostgresOption func(*Postgres)

// WithTable overrides the default table name.
func WithTable(table string) PostgresOption {
	return func(p *Postgres) {
		if table != "" {
			p.table = table
		}
	}
}

// Open connects to dsn with the pgx driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return db, nil
}

// NewPostgres returns a repository writing rows for deviceID.
func NewPostgres(db *sql.DB, deviceID string, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, table: defaultTable, deviceID: deviceID}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureSchema creates the table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("store: nil db")
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	device_id TEXT NOT NULL,
	start_ts BIGINT NOT NULL,
	end_ts BIGINT NOT NULL,
	tvc_sum DOUBLE PRECISION NOT NULL,
	tvc_seconds BIGINT NOT NULL,
	tvc_min DOUBLE PRECISION NOT NULL,
	tvc_max DOUBLE PRECISION NOT NULL,
	tvc_observed BOOLEAN NOT NULL,
	tamb_sum DOUBLE PRECISION NOT NULL,
	tamb_seconds BIGINT NOT NULL,
	tvc_low_seconds BIGINT NOT NULL,
	tvc_high_seconds BIGINT NOT NULL,
	low_alarm_seconds BIGINT NOT NULL,
	high_alarm_seconds BIGINT NOT NULL,
	door_count INTEGER NOT NULL,
	door_open_seconds BIGINT NOT NULL,
	door_alarmed BOOLEAN NOT NULL,
	power_available_seconds BIGINT NOT NULL,
	power_alarmed BOOLEAN NOT NULL,
	records_read SMALLINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (device_id, start_ts)
)`, p.table)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("store: create table: %w", err)
	}
	return nil
}

// Save upserts rec.
func (p *Postgres) Save(ctx context.Context, rec logic.AggregationRecord) error {
	if p == nil || p.db == nil {
		return errors.New("store: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	device_id, start_ts, end_ts,
	tvc_sum, tvc_seconds, tvc_min, tvc_max, tvc_observed,
	tamb_sum, tamb_seconds,
	tvc_low_seconds, tvc_high_seconds, low_alarm_seconds, high_alarm_seconds,
	door_count, door_open_seconds, door_alarmed,
	power_available_seconds, power_alarmed, records_read
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
)
ON CONFLICT (device_id, start_ts)
DO UPDATE SET
	end_ts = EXCLUDED.end_ts,
	tvc_sum = EXCLUDED.tvc_sum,
	tvc_seconds = EXCLUDED.tvc_seconds,
	tvc_min = EXCLUDED.tvc_min,
	tvc_max = EXCLUDED.tvc_max,
	tvc_observed = EXCLUDED.tvc_observed,
	tamb_sum = EXCLUDED.tamb_sum,
	tamb_seconds = EXCLUDED.tamb_seconds,
	tvc_low_seconds = EXCLUDED.tvc_low_seconds,
	tvc_high_seconds = EXCLUDED.tvc_high_seconds,
	low_alarm_seconds = EXCLUDED.low_alarm_seconds,
	high_alarm_seconds = EXCLUDED.high_alarm_seconds,
	door_count = EXCLUDED.door_count,
	door_open_seconds = EXCLUDED.door_open_seconds,
	door_alarmed = EXCLUDED.door_alarmed,
	power_available_seconds = EXCLUDED.power_available_seconds,
	power_alarmed = EXCLUDED.power_alarmed,
	records_read = EXCLUDED.records_read,
	updated_at = NOW()`, p.table)

	if _, err := p.db.ExecContext(ctx, query, p.args(rec)...); err != nil {
		return fmt.Errorf("store: save record %d: %w", rec.Start, err)
	}
	return nil
}

func (p *Postgres) args(rec logic.AggregationRecord) []any {
	return []any{
		p.deviceID, int64(rec.Start), int64(rec.End),
		rec.TVCSum, int64(rec.TVCSeconds), float64(rec.TVCMin), float64(rec.TVCMax), rec.TVCObserved,
		rec.TAmbSum, int64(rec.TAmbSeconds),
		int64(rec.TVCLowSeconds), int64(rec.TVCHighSeconds), int64(rec.LowAlarmSeconds), int64(rec.HighAlarmSeconds),
		int64(rec.DoorCount), int64(rec.DoorOpenSeconds), rec.DoorAlarmed,
		int64(rec.PowerAvailableSeconds), rec.PowerAlarmed, int64(rec.RecordsRead),
	}
}

// recordColumns is the select list matched by scanRecord.
const recordColumns = `start_ts, end_ts,
	tvc_sum, tvc_seconds, tvc_min, tvc_max, tvc_observed,
	tamb_sum, tamb_seconds,
	tvc_low_seconds, tvc_high_seconds, low_alarm_seconds, high_alarm_seconds,
	door_count, door_open_seconds, door_alarmed,
	power_available_seconds, power_alarmed, records_read`

func (p *Postgres) List(ctx context.Context, from, to logic.Timestamp) ([]logic.AggregationRecord, error) {
	if p == nil || p.db == nil {
		return nil, errors.New("store: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE device_id = $1 AND start_ts >= $2 AND start_ts < $3
ORDER BY start_ts`, recordColumns, p.table)

	rows, err := p.db.QueryContext(ctx, query, p.deviceID, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []logic.AggregationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

func (p *Postgres) Daily(ctx context.Context, day time.Time) (logic.AggregationRecord, error) {
	return daily(ctx, p, day)
}

func scanRecord(rows *sql.Rows) (logic.AggregationRecord, error) {
	var (
		start, end, tvcSeconds, tambSeconds              int64
		lowSeconds, highSeconds, lowAlarm, highAlarm     int64
		doorCount, doorOpen, powerAvailable, recordsRead int64
		tvcMin, tvcMax                                   float64
		rec                                              logic.AggregationRecord
	)
	err := rows.Scan(
		&start, &end,
		&rec.TVCSum, &tvcSeconds, &tvcMin, &tvcMax, &rec.TVCObserved,
		&rec.TAmbSum, &tambSeconds,
		&lowSeconds, &highSeconds, &lowAlarm, &highAlarm,
		&doorCount, &doorOpen, &rec.DoorAlarmed,
		&powerAvailable, &rec.PowerAlarmed, &recordsRead,
	)
	if err != nil {
		return logic.AggregationRecord{}, err
	}
	rec.Start, rec.End = logic.Timestamp(start), logic.Timestamp(end)
	rec.TVCSeconds = uint32(tvcSeconds)
	rec.TVCMin, rec.TVCMax = float32(tvcMin), float32(tvcMax)
	rec.TAmbSeconds = uint32(tambSeconds)
	rec.TVCLowSeconds, rec.TVCHighSeconds = uint32(lowSeconds), uint32(highSeconds)
	rec.LowAlarmSeconds, rec.HighAlarmSeconds = uint32(lowAlarm), uint32(highAlarm)
	rec.DoorCount, rec.DoorOpenSeconds = uint16(doorCount), uint32(doorOpen)
	rec.PowerAvailableSeconds = uint32(powerAvailable)
	rec.RecordsRead = uint8(recordsRead)
	return rec, nil
}
