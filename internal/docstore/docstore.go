// Package docstore реализует хранилище именованных JSON-коллекций
// с атомарной записью и транзакциями над несколькими коллекциями.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"

	"go.uber.org/zap"
)

var (
	// ErrNoDocument возвращается бэкендом, если коллекция ещё не сохранялась.
	ErrNoDocument = errors.New("document not found")
	// ErrStorage оборачивает ошибки записи в долговременное хранилище.
	ErrStorage = errors.New("storage failure")
	// ErrNotInTx возвращается при обращении к коллекции, не заблокированной транзакцией.
	ErrNotInTx = errors.New("collection is not part of the transaction")
	// ErrInvalidName возвращается для недопустимых имён коллекций.
	ErrInvalidName = errors.New("invalid collection name")
)

var collectionName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Backend описывает долговременное хранилище сырых документов.
type Backend interface {
	// Get возвращает документ вне транзакции или ErrNoDocument.
	Get(ctx context.Context, name string) ([]byte, error)
	// Update блокирует перечисленные коллекции на время fn и атомарно
	// применяет все сделанные в fn записи.
	Update(ctx context.Context, names []string, fn func(tx Tx) error) error
	Close() error
}

// Tx даёт доступ к коллекциям внутри транзакции.
type Tx interface {
	Get(name string) ([]byte, error)
	Put(name string, data []byte) error
}

// FailureObserver получает уведомления о сбоях записи.
type FailureObserver interface {
	StorageFailure(op string)
}

// DB объединяет бэкенд с журналированием ошибок чтения.
type DB struct {
	backend  Backend
	logger   *zap.Logger
	observer FailureObserver
}

// Option настраивает DB.
type Option func(*DB)

// WithFailureObserver подключает наблюдателя за сбоями записи.
func WithFailureObserver(o FailureObserver) Option {
	return func(db *DB) { db.observer = o }
}

// New создаёт DB поверх бэкенда.
func New(backend Backend, logger *zap.Logger, opts ...Option) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &DB{backend: backend, logger: logger}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Close закрывает бэкенд.
func (db *DB) Close() error {
	return db.backend.Close()
}

// Update выполняет fn как одну транзакцию над коллекциями names.
func (db *DB) Update(ctx context.Context, fn func(tx *Txn) error, names ...string) error {
	names = normalizeNames(names)
	for _, n := range names {
		if err := ValidateName(n); err != nil {
			return err
		}
	}

	err := db.backend.Update(ctx, names, func(tx Tx) error {
		return fn(&Txn{tx: tx, db: db})
	})
	if err != nil && errors.Is(err, ErrStorage) && db.observer != nil {
		db.observer.StorageFailure("update")
	}
	return err
}

// Txn представляет транзакцию, через которую типизированные коллекции читают и пишут данные.
type Txn struct {
	tx Tx
	db *DB
}

// ValidateName проверяет имя коллекции.
func ValidateName(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func normalizeNames(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}

// Record описывает запись коллекции с целочисленным идентификатором.
type Record interface {
	RecordID() int64
}

// NextID возвращает max(id)+1 или 1 для пустой коллекции. Идентификатор не резервируется:
// запись нужно сохранить в той же транзакции, в которой он вычислен.
func NextID[T Record](items []T) int64 {
	var maxID int64
	for _, it := range items {
		maxID = max(maxID, it.RecordID())
	}
	return maxID + 1
}

// Collection описывает типизированную именованную коллекцию.
type Collection[T any] struct {
	name     string
	fallback func() T
}

// NewCollection описывает коллекцию name со значением по умолчанию fallback.
func NewCollection[T any](name string, fallback func() T) Collection[T] {
	if err := ValidateName(name); err != nil {
		panic(err)
	}
	return Collection[T]{name: name, fallback: fallback}
}

// Name возвращает имя коллекции.
func (c Collection[T]) Name() string { return c.name }

// Read возвращает сохранённое значение коллекции или значение по умолчанию,
// если документа нет или его не удалось прочитать. Ошибки только журналируются.
func (c Collection[T]) Read(ctx context.Context, db *DB) T {
	data, err := db.backend.Get(ctx, c.name)
	if err != nil {
		if !errors.Is(err, ErrNoDocument) {
			db.logger.Error("document read error", zap.String("collection", c.name), zap.Error(err))
		}
		return c.fallback()
	}
	v, err := c.decode(data)
	if err != nil {
		db.logger.Error("document decode error", zap.String("collection", c.name), zap.Error(err))
		return c.fallback()
	}
	return v
}

// Write заменяет значение коллекции.
func (c Collection[T]) Write(ctx context.Context, db *DB, v T) error {
	return db.Update(ctx, func(tx *Txn) error {
		return c.Store(tx, v)
	}, c.name)
}

// Load читает коллекцию внутри транзакции. Повреждённый документ даёт значение
// по умолчанию; прочие ошибки чтения прерывают транзакцию, чтобы значение
// по умолчанию не перезаписало существующие данные.
func (c Collection[T]) Load(tx *Txn) (T, error) {
	data, err := tx.tx.Get(c.name)
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return c.fallback(), nil
		}
		var zero T
		return zero, fmt.Errorf("load %s: %w", c.name, err)
	}
	v, err := c.decode(data)
	if err != nil {
		tx.db.logger.Error("document decode error", zap.String("collection", c.name), zap.Error(err))
		return c.fallback(), nil
	}
	return v, nil
}

// Store записывает значение коллекции внутри транзакции.
func (c Collection[T]) Store(tx *Txn, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	return tx.tx.Put(c.name, data)
}

func (c Collection[T]) decode(data []byte) (T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return c.fallback(), nil
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
