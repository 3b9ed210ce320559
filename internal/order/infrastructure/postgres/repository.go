package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/campus-cafe/internal/order/application"
	"github.com/dmehra2102/campus-cafe/internal/order/domain"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	number           TEXT NOT NULL,
	location_id      TEXT NOT NULL,
	location_name    TEXT NOT NULL,
	location_address TEXT NOT NULL,
	items            JSONB NOT NULL,
	lines            JSONB NOT NULL,
	subtotal         NUMERIC(10,2) NOT NULL,
	tax              NUMERIC(10,2) NOT NULL,
	total            NUMERIC(10,2) NOT NULL,
	status           TEXT NOT NULL,
	pickup           JSONB NOT NULL,
	pickup_time      TEXT NOT NULL,
	rating           INT NOT NULL DEFAULT 0,
	order_date       TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_session_idx ON orders (session_id, created_at DESC);
CREATE INDEX IF NOT EXISTS orders_preparing_idx ON orders (session_id) WHERE status = 'preparing';
CREATE TABLE IF NOT EXISTS outbox (
	id             BIGSERIAL PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	type           TEXT NOT NULL,
	payload        JSONB NOT NULL,
	headers        JSONB NOT NULL DEFAULT '{}',
	traceparent    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	relay_id       TEXT,
	lease_until    TIMESTAMPTZ,
	retry_count    INT NOT NULL DEFAULT 0,
	last_error     TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (status, id);
`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// EnsureSchema creates the orders and outbox tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *Repository) SaveWithOutbox(ctx context.Context, sessionID string, o domain.Order, event outbox.Event) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	lines := o.Lines
	if lines == nil {
		lines = []domain.OrderLine{}
	}
	_, err = tx.Exec(ctx, `INSERT INTO orders (id, session_id, number, location_id, location_name, location_address,
			items, lines, subtotal, tax, total, status, pickup, pickup_time, rating, order_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::text::numeric,$10::text::numeric,$11::text::numeric,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET status=$12, rating=$15, updated_at=$18`,
		o.ID, sessionID, o.Number, o.LocationID, o.LocationName, o.LocationAddress,
		o.Items, lines, o.Subtotal.StringFixed(2), o.Tax.StringFixed(2), o.Total.StringFixed(2),
		string(o.Status), o.Pickup, o.PickupTime, o.Rating, o.Date, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", o.ID, err)
	}

	headers := event.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		event.AggregateType, event.AggregateID, event.Type, string(event.Payload), headers, event.Traceparent)
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", event.Type, err)
	}
	return tx.Commit(ctx)
}

const selectOrder = `SELECT id, number, location_id, location_name, location_address, items, lines,
	subtotal::text, tax::text, total::text, status, pickup, pickup_time, rating, order_date, created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                    domain.Order
		subtotal, tax, total string
		status               string
	)
	err := row.Scan(&o.ID, &o.Number, &o.LocationID, &o.LocationName, &o.LocationAddress, &o.Items, &o.Lines,
		&subtotal, &tax, &total, &status, &o.Pickup, &o.PickupTime, &o.Rating, &o.Date, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&o.Subtotal, subtotal}, {&o.Tax, tax}, {&o.Total, total}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return domain.Order{}, fmt.Errorf("order %s amount: %w", o.ID, err)
		}
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("%w: %s", application.ErrOrderNotFound, id)
	}
	return o, err
}

func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` WHERE session_id=$1 ORDER BY created_at DESC, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *Repository) PreparingSessions(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT session_id FROM orders WHERE status=$1 ORDER BY session_id`,
		string(domain.StatusPreparing))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

// LockBatch claims pending events, and in-progress ones whose lease ran out,
// for relayID.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload::text, headers, traceparent, created_at, retry_count
		FROM outbox
		WHERE status = 'pending' OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, err
	}

	var events []outbox.Event
	for rows.Next() {
		var (
			event   outbox.Event
			payload string
		)
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.Type, &payload,
			&event.Headers, &event.Traceparent, &event.CreatedAt, &event.RetryCount); err != nil {
			rows.Close()
			return nil, err
		}
		event.Payload = []byte(payload)
		event.Status = outbox.StatusInProgress
		events = append(events, event)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	_, err = tx.Exec(ctx, `UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + $2::text::interval WHERE id = ANY($3)`,
		relayID, lease.String(), ids)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent', lease_until=NULL WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox
		SET status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			last_error=$2, retry_count=retry_count+1, lease_until=NULL
		WHERE id=$1`, id, errMsg, outbox.MaxRetries)
	return err
}

// Count reports how many events are in status.
func (s *OutboxStore) Count(ctx context.Context, status outbox.Status) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE status=$1`, string(status)).Scan(&n)
	return n, err
}
