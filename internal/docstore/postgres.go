package docstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresBackend хранит каждую коллекцию отдельной строкой таблицы documents.
// Транзакция блокирует строки коллекций через SELECT ... FOR UPDATE.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresBackend создаёт пул соединений и применяет миграции.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	b := &PostgresBackend{
		pool:   pool,
		delays: []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond},
	}

	if err := b.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return b, nil
}

func (b *PostgresBackend) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(b.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

// Get читает документ вне транзакции.
func (b *PostgresBackend) Get(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := b.pool.QueryRow(ctx, `SELECT body FROM documents WHERE name = $1`, name).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("select document %s: %w", name, err)
	}
	if body == nil {
		return nil, ErrNoDocument
	}
	return body, nil
}

// Update выполняет fn в транзакции, удерживая блокировки строк коллекций names.
// Транзакция повторяется только при конфликте сериализации или взаимной блокировке:
// в этих случаях PostgreSQL уже откатил все изменения.
func (b *PostgresBackend) Update(ctx context.Context, names []string, fn func(tx Tx) error) error {
	return b.withRetry(ctx, func() error {
		return b.update(ctx, names, fn)
	})
}

func (b *PostgresBackend) update(ctx context.Context, names []string, fn func(tx Tx) error) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	// Строки создаются заранее, чтобы FOR UPDATE блокировал и ещё не сохранённые коллекции.
	_, err = tx.Exec(ctx,
		`INSERT INTO documents (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
		names,
	)
	if err != nil {
		return fmt.Errorf("%w: ensure documents: %w", ErrStorage, err)
	}

	rows, err := tx.Query(ctx,
		`SELECT name, body FROM documents WHERE name = ANY($1) ORDER BY name FOR UPDATE`,
		names,
	)
	if err != nil {
		return fmt.Errorf("%w: lock documents: %w", ErrStorage, err)
	}

	pt := &pgTx{docs: make(map[string][]byte, len(names)), allowed: make(map[string]bool, len(names)), puts: make(map[string][]byte)}
	for _, n := range names {
		pt.allowed[n] = true
	}
	for rows.Next() {
		var (
			name string
			body []byte
		)
		if err := rows.Scan(&name, &body); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scan document: %w", ErrStorage, err)
		}
		pt.docs[name] = body
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: rows error: %w", ErrStorage, err)
	}

	if err := fn(pt); err != nil {
		return err
	}

	for name, body := range pt.puts {
		_, err := tx.Exec(ctx,
			`UPDATE documents SET body = $2, updated_at = now() WHERE name = $1`,
			name, body,
		)
		if err != nil {
			return fmt.Errorf("%w: update document %s: %w", ErrStorage, name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit tx: %w", ErrStorage, err)
	}
	return nil
}

func (b *PostgresBackend) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(b.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			break
		}
		if pgErr.Code != pgerrcode.SerializationFailure && pgErr.Code != pgerrcode.DeadlockDetected {
			break
		}
		if i == len(b.delays) {
			break
		}

		timer := time.NewTimer(b.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

type pgTx struct {
	docs    map[string][]byte
	allowed map[string]bool
	puts    map[string][]byte
}

func (t *pgTx) Get(name string) ([]byte, error) {
	if !t.allowed[name] {
		return nil, fmt.Errorf("%w: %s", ErrNotInTx, name)
	}
	if body, ok := t.puts[name]; ok {
		return body, nil
	}
	body := t.docs[name]
	if body == nil {
		return nil, ErrNoDocument
	}
	return body, nil
}

func (t *pgTx) Put(name string, data []byte) error {
	if !t.allowed[name] {
		return fmt.Errorf("%w: %s", ErrNotInTx, name)
	}
	t.puts[name] = data
	return nil
}
