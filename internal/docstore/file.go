package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const journalName = "_journal.json"

// journal хранит намерение применить несколько документов разом.
type journal struct {
	ID        string                     `json:"id"`
	Documents map[string]json.RawMessage `json:"documents"`
}

// FileBackend хранит каждую коллекцию в файле <dir>/<name>.json.
// Запись атомарна (временный файл и rename); транзакции над несколькими
// коллекциями проходят через журнал и восстанавливаются при открытии.
// Блокировки действуют в пределах одного процесса.
type FileBackend struct {
	dir    string
	logger *zap.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	broken error
}

// OpenFileBackend открывает каталог данных и доигрывает незавершённый журнал.
func OpenFileBackend(dir string, logger *zap.Logger) (*FileBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", ErrStorage, err)
	}

	b := &FileBackend{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}

	if err := b.recover(); err != nil {
		return nil, err
	}
	return b, nil
}

// Close освобождает ресурсы бэкенда.
func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// Get читает документ вне транзакции.
func (b *FileBackend) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := b.health(); err != nil {
		return nil, err
	}
	return b.read(name)
}

// health возвращает ошибку, если журнал не удалось применить: до перезапуска,
// который доиграет журнал, файлы могут быть в промежуточном состоянии.
func (b *FileBackend) health() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken != nil {
		return fmt.Errorf("%w: pending journal: %w", ErrStorage, b.broken)
	}
	return nil
}

func (b *FileBackend) read(name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (b *FileBackend) lockFor(name string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.locks[name]
	if !ok {
		l = &sync.Mutex{}
		b.locks[name] = l
	}
	return l
}

// Update блокирует коллекции в порядке сортировки имён, выполняет fn и применяет записи.
func (b *FileBackend) Update(ctx context.Context, names []string, fn func(tx Tx) error) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	for _, n := range sorted {
		l := b.lockFor(n)
		l.Lock()
		defer l.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.health(); err != nil {
		return err
	}

	tx := &fileTx{backend: b, allowed: make(map[string]bool, len(sorted)), puts: make(map[string][]byte)}
	for _, n := range sorted {
		tx.allowed[n] = true
	}

	if err := fn(tx); err != nil {
		return err
	}

	return b.commit(tx.puts)
}

func (b *FileBackend) commit(puts map[string][]byte) error {
	switch len(puts) {
	case 0:
		return nil
	case 1:
		for name, data := range puts {
			if err := writeAtomic(b.path(name), data); err != nil {
				return fmt.Errorf("%w: write %s: %w", ErrStorage, name, err)
			}
		}
		return nil
	}

	j := journal{ID: uuid.NewString(), Documents: make(map[string]json.RawMessage, len(puts))}
	for name, data := range puts {
		j.Documents[name] = json.RawMessage(data)
	}
	raw, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("%w: encode journal: %w", ErrStorage, err)
	}
	if err := writeAtomic(filepath.Join(b.dir, journalName), raw); err != nil {
		return fmt.Errorf("%w: write journal: %w", ErrStorage, err)
	}

	if err := b.apply(j); err != nil {
		b.mu.Lock()
		b.broken = err
		b.mu.Unlock()
		b.logger.Error("journal apply failed, storage is unavailable until restart", zap.String("journal", j.ID), zap.Error(err))
		return err
	}
	return nil
}

// apply переносит документы журнала на место и удаляет журнал.
func (b *FileBackend) apply(j journal) error {
	names := make([]string, 0, len(j.Documents))
	for name := range j.Documents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("%w: journal %s: %w", ErrStorage, j.ID, err)
		}
		if err := writeAtomic(b.path(name), j.Documents[name]); err != nil {
			return fmt.Errorf("%w: apply journal %s to %s: %w", ErrStorage, j.ID, name, err)
		}
	}

	if err := os.Remove(filepath.Join(b.dir, journalName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove journal %s: %w", ErrStorage, j.ID, err)
	}
	if err := syncDir(b.dir); err != nil {
		return fmt.Errorf("%w: sync data dir: %w", ErrStorage, err)
	}
	return nil
}

func (b *FileBackend) recover() error {
	raw, err := os.ReadFile(filepath.Join(b.dir, journalName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: read journal: %w", ErrStorage, err)
	}

	var j journal
	if err := json.Unmarshal(raw, &j); err != nil {
		// Журнал пишется атомарно, поэтому нечитаемый журнал не мог быть применён частично.
		b.logger.Error("discarding unreadable journal", zap.Error(err))
		if err := os.Remove(filepath.Join(b.dir, journalName)); err != nil {
			return fmt.Errorf("%w: remove journal: %w", ErrStorage, err)
		}
		return nil
	}

	b.logger.Warn("replaying storage journal", zap.String("journal", j.ID), zap.Int("documents", len(j.Documents)))
	return b.apply(j)
}

type fileTx struct {
	backend *FileBackend
	allowed map[string]bool
	puts    map[string][]byte
}

func (t *fileTx) Get(name string) ([]byte, error) {
	if !t.allowed[name] {
		return nil, fmt.Errorf("%w: %s", ErrNotInTx, name)
	}
	if data, ok := t.puts[name]; ok {
		return data, nil
	}
	return t.backend.read(name)
}

func (t *fileTx) Put(name string, data []byte) error {
	if !t.allowed[name] {
		return fmt.Errorf("%w: %s", ErrNotInTx, name)
	}
	t.puts[name] = data
	return nil
}

// writeAtomic пишет data во временный файл рядом с path и переименовывает его на место.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
